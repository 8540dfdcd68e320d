package modlog

import (
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
)

func TestRendererGolden(t *testing.T) {
	doc, err := NewRenderer().Run(testConfig(), testActions())
	if err != nil {
		t.Fatal(err)
	}

	g := goldie.New(t)
	g.Assert(t, "render_document", []byte(doc.Body))

	if doc.Rows != 3 || doc.Groups != 2 || doc.DroppedGroups != 0 {
		t.Errorf("Expected 3 rows in 2 groups, got %d rows in %d groups (%d dropped)", doc.Rows, doc.Groups, doc.DroppedGroups)
	}
}

func TestRendererIsDeterministic(t *testing.T) {
	actions := testActions()
	reversed := []Action{actions[2], actions[1], actions[0]}

	first, err := NewRenderer().Run(testConfig(), actions)
	if err != nil {
		t.Fatal(err)
	}
	second, err := NewRenderer().Run(testConfig(), reversed)
	if err != nil {
		t.Fatal(err)
	}

	if first.Body != second.Body {
		t.Error("Expected input order not to affect the rendered body")
	}
	if first.Fingerprint != second.Fingerprint {
		t.Errorf("Expected equal fingerprints, got %s and %s", first.Fingerprint, second.Fingerprint)
	}
	if first.Fingerprint != Fingerprint(first.Body) {
		t.Error("Expected fingerprint to hash the body")
	}
}

func TestRendererEmpty(t *testing.T) {
	doc, err := NewRenderer().Run(testConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}

	if !strings.HasSuffix(doc.Body, emptyNotice) {
		t.Errorf("Expected empty notice, got %q", doc.Body)
	}
	if strings.Contains(doc.Body, tableHeader) {
		t.Error("Expected no table for an empty window")
	}
	if doc.Rows != 0 {
		t.Errorf("Expected 0 rows, got %d", doc.Rows)
	}
}

func TestRendererDropsOldestGroups(t *testing.T) {
	config := testConfig()

	full, err := NewRenderer().Run(config, testActions())
	if err != nil {
		t.Fatal(err)
	}

	config.Settings.SizeLimit = len(full.Body) - 1
	doc, err := NewRenderer().Run(config, testActions())
	if err != nil {
		t.Fatal(err)
	}

	if len(doc.Body) > config.Settings.SizeLimit {
		t.Errorf("Expected body within %d characters, got %d", config.Settings.SizeLimit, len(doc.Body))
	}
	if !strings.Contains(doc.Body, truncatedNotice) {
		t.Error("Expected truncation notice")
	}
	if !strings.Contains(doc.Body, "## 2024-03-10") {
		t.Error("Expected newest group to be kept")
	}
	if strings.Contains(doc.Body, "## 2024-03-09") {
		t.Error("Expected oldest group to be dropped")
	}
	if doc.DroppedGroups != 1 || doc.Groups != 1 || doc.Rows != 2 {
		t.Errorf("Expected 1 kept group with 2 rows and 1 dropped, got %d/%d/%d", doc.Groups, doc.Rows, doc.DroppedGroups)
	}
}

func TestRendererOverflow(t *testing.T) {
	config := testConfig()
	config.Settings.SizeLimit = 200

	doc, err := NewRenderer().Run(config, testActions())
	if doc != nil {
		t.Error("Expected no document on overflow")
	}

	var overflow *RenderOverflowError
	if !errors.As(err, &overflow) {
		t.Fatalf("Expected RenderOverflowError, got %v", err)
	}
	if overflow.Date != "2024-03-10" {
		t.Errorf("Expected overflow on 2024-03-10, got %s", overflow.Date)
	}
	if overflow.Limit != 200 {
		t.Errorf("Expected limit 200, got %d", overflow.Limit)
	}
}

func TestRendererDropsNoticeWhenOnlyNewestGroupFits(t *testing.T) {
	config := testConfig()

	full, err := NewRenderer().Run(config, testActions())
	if err != nil {
		t.Fatal(err)
	}

	// header plus the newest date group, exactly as it appears in the full document
	newestOnly, _, found := strings.Cut(full.Body, "\n## 2024-03-09")
	if !found {
		t.Fatalf("Expected an older date group in\n%s", full.Body)
	}

	config.Settings.SizeLimit = size(newestOnly)
	doc, err := NewRenderer().Run(config, testActions())
	if err != nil {
		t.Fatalf("Expected newest group of %d characters to fit, got %v", config.Settings.SizeLimit, err)
	}
	if doc.Body != newestOnly {
		t.Errorf("Expected newest group without notice, got\n%s", doc.Body)
	}
	if doc.DroppedGroups != 1 {
		t.Errorf("Expected 1 dropped group, got %d", doc.DroppedGroups)
	}
	if doc.Rows != 2 {
		t.Errorf("Expected 2 rows, got %d", doc.Rows)
	}

	config.Settings.SizeLimit = size(newestOnly) - 1
	_, err = NewRenderer().Run(config, testActions())
	var overflow *RenderOverflowError
	if !errors.As(err, &overflow) {
		t.Fatalf("Expected RenderOverflowError one character below the newest group, got %v", err)
	}
	if overflow.Size != size(newestOnly) {
		t.Errorf("Expected overflow size %d, got %d", size(newestOnly), overflow.Size)
	}
}

func TestRendererCountsCharacters(t *testing.T) {
	config := testConfig()
	actions := testActions()[2:]
	actions[0].RemovalReason = strings.Repeat("é", 100)

	doc, err := NewRenderer().Run(config, actions)
	if err != nil {
		t.Fatal(err)
	}

	// exactly at the limit in characters, over it in bytes
	config.Settings.SizeLimit = size(doc.Body)
	doc, err = NewRenderer().Run(config, actions)
	if err != nil {
		t.Fatalf("Expected body of %d characters to fit, got %v", config.Settings.SizeLimit, err)
	}
	if doc.DroppedGroups != 0 {
		t.Errorf("Expected nothing dropped, got %d", doc.DroppedGroups)
	}
}

func TestRendererEscapesCells(t *testing.T) {
	actions := testActions()[2:]
	actions[0].RemovalReason = `a|b\c`
	actions[0].Moderator = "mod|name"

	doc, err := NewRenderer().Run(testConfig(), actions)
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(doc.Body, `| a\|b\\c |`) {
		t.Errorf("Expected escaped reason, got %q", doc.Body)
	}
	if !strings.Contains(doc.Body, `| mod\|name |`) {
		t.Errorf("Expected escaped moderator, got %q", doc.Body)
	}

	for _, line := range strings.Split(doc.Body, "\n") {
		if !strings.HasPrefix(line, "| ") {
			continue
		}
		if cells := splitRow(line); len(cells) != 7 {
			t.Errorf("Expected 7 cells, got %d in %q", len(cells), line)
		}
	}
}

func TestRendererAnonymizesModerators(t *testing.T) {
	config := testConfig()
	config.Settings.AnonymizeModerators = true

	doc, err := NewRenderer().Run(config, testActions())
	if err != nil {
		t.Fatal(err)
	}

	if strings.Contains(doc.Body, "alice") {
		t.Error("Expected human moderator names to be hidden")
	}
	if !strings.Contains(doc.Body, "| "+HumanLabel+" |") {
		t.Error("Expected human moderator label")
	}
	if !strings.Contains(doc.Body, "| "+AutomationLabel+" |") {
		t.Error("Expected automation label")
	}
}

func TestRendererNeverLinksUsers(t *testing.T) {
	actions := testActions()
	actions[2].TargetPermalink = ""

	doc, err := NewRenderer().Run(testConfig(), actions)
	if err != nil {
		t.Fatal(err)
	}

	for _, forbidden := range []string{"bob", "/user/", "/u/"} {
		if strings.Contains(doc.Body, forbidden) {
			t.Errorf("Expected no %q in body", forbidden)
		}
	}
	if !strings.Contains(doc.Body, "| p2 | alice |  | Off topic |") {
		t.Errorf("Expected empty content cell, got %q", doc.Body)
	}
}

func TestRendererPairsApprovalWithLatestRemoval(t *testing.T) {
	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC).Unix()
	action := func(id, actionType string, kind ActionKind, offset int64) Action {
		return Action{
			ActionID:   id,
			ActionType: actionType,
			Kind:       kind,
			Moderator:  "alice",
			TargetID:   "p1",
			TargetKind: TargetPost,
			CreatedAt:  base + offset,
		}
	}

	actions := []Action{
		action("a1", "removelink", KindRemoval, 0),
		action("a2", "spamlink", KindRemoval, 10),
		action("a3", "approvelink", KindApproval, 20),
		action("a4", "approvelink", KindApproval, -10),
	}

	pairs := pairApprovals(actions[:3])
	if got := pairs["a3"]; got == nil || got.ActionID != "a2" {
		t.Errorf("Expected a3 paired with a2, got %+v", got)
	}

	doc, err := NewRenderer().Run(testConfig(), actions)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(doc.Body, "| approvelink (reversal of spamlink) |") {
		t.Errorf("Expected reversal label, got %q", doc.Body)
	}
	// the approval before any removal stays unpaired
	if strings.Count(doc.Body, "reversal of") != 1 {
		t.Errorf("Expected exactly one reversal, got %q", doc.Body)
	}
}

func TestModmailURL(t *testing.T) {
	action := testActions()[0]
	action.TargetTitle = strings.Repeat("x", 100)

	link := ModmailURL("testsub", action)

	if !strings.HasPrefix(link, "https://www.reddit.com/message/compose?to=/r/testsub&subject=Comment%20Removal%20Inquiry") {
		t.Errorf("Unexpected modmail link %s", link)
	}
	if strings.Contains(link, strings.Repeat("x", 60)) {
		t.Error("Expected title to be truncated")
	}
	if strings.ContainsAny(link, " ()") {
		t.Errorf("Expected link safe inside markdown, got %s", link)
	}
}

func TestModmailURLEscapesQueryCharacters(t *testing.T) {
	action := testActions()[2]
	action.TargetTitle = "Q&A thread=1 + more"

	link := ModmailURL("testsub", action)

	if strings.ContainsAny(link, " ()+") {
		t.Errorf("Expected link safe inside markdown, got %s", link)
	}

	u, err := url.Parse(link)
	if err != nil {
		t.Fatal(err)
	}
	query := u.Query()
	if got := query.Get("subject"); got != "Post Removal Inquiry - Q&A thread=1 + more" {
		t.Errorf("Expected full subject, got %q", got)
	}
	if got := query.Get("to"); got != "/r/testsub" {
		t.Errorf("Expected recipient '/r/testsub', got %q", got)
	}
	if len(query) != 2 {
		t.Errorf("Expected only 'to' and 'subject' parameters, got %v", query)
	}
}

func TestEscapeCell(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"a|b", `a\|b`},
		{`back\slash`, `back\\slash`},
		{"multi\nline\ttext", "multi line text"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := EscapeCell(tt.in); got != tt.want {
			t.Errorf("EscapeCell(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
