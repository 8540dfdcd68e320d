package modlog

import (
	"strings"
	"testing"
	"time"
)

func TestParseWikiDocumentRoundTrip(t *testing.T) {
	original, err := NewRenderer().Run(testConfig(), testActions())
	if err != nil {
		t.Fatal(err)
	}

	actions, anomalies := ParseWikiDocument(original.Body, "testsub")
	if len(anomalies) != 0 {
		t.Errorf("Expected no anomalies, got %+v", anomalies)
	}
	if len(actions) != 3 {
		t.Fatalf("Expected 3 actions, got %d", len(actions))
	}

	byType := make(map[string]Action)
	for _, a := range actions {
		byType[a.ActionType] = a
	}

	filtered := byType["removecomment"]
	if filtered.Kind != KindFilterRemoval {
		t.Errorf("Expected filter removal, got %s", filtered.Kind)
	}
	if filtered.TargetID != "c1" || filtered.TargetKind != TargetComment {
		t.Errorf("Expected comment c1, got %s %s", filtered.TargetKind, filtered.TargetID)
	}
	if filtered.TargetTitle != "Hello world" {
		t.Errorf("Expected title 'Hello world', got %q", filtered.TargetTitle)
	}
	if filtered.RemovalReason != "Rule 2: spam" {
		t.Errorf("Expected reason to survive, got %q", filtered.RemovalReason)
	}
	wantTime := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC).Unix()
	if filtered.CreatedAt != wantTime {
		t.Errorf("Expected created_at %d, got %d", wantTime, filtered.CreatedAt)
	}
	if !strings.HasPrefix(filtered.ActionID, "wiki:removecomment:c1:") {
		t.Errorf("Expected synthetic wiki id, got %s", filtered.ActionID)
	}

	if byType["approvecomment"].Kind != KindApproval {
		t.Errorf("Expected approval with the reversal suffix stripped, got %+v", byType["approvecomment"])
	}

	rerendered, err := NewRenderer().Run(testConfig(), actions)
	if err != nil {
		t.Fatal(err)
	}
	if rerendered.Body != original.Body {
		t.Errorf("Expected recovered actions to render the same document\nwant:\n%s\ngot:\n%s", original.Body, rerendered.Body)
	}
}

func TestParseWikiDocumentSkipsBadRows(t *testing.T) {
	content := strings.Join([]string{
		"# Moderation Log for /r/testsub",
		"",
		"| 10:00:00 UTC | removelink | p0 | alice |  |  |  |",
		"## 2024-03-10",
		"",
		tableHeader,
		tableSeparator,
		"| 25:99:00 UTC | removelink | p1 | alice |  |  |  |",
		"| too | short |",
		`| 09:00:00 UTC | removelink | p2 | alice |  | a\|b |  |`,
	}, "\n")

	actions, anomalies := ParseWikiDocument(content, "testsub")

	if len(actions) != 1 {
		t.Fatalf("Expected 1 action, got %d", len(actions))
	}
	if actions[0].TargetID != "p2" || actions[0].RemovalReason != "a/b" {
		t.Errorf("Expected p2 with unescaped reason, got %+v", actions[0])
	}
	if len(anomalies) != 2 {
		t.Errorf("Expected 2 anomalies, got %+v", anomalies)
	}
}
