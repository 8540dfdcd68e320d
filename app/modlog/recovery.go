package modlog

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	dateHeaderPattern = regexp.MustCompile(`^## (\d{4}-\d{2}-\d{2})$`)
	markdownLink      = regexp.MustCompile(`^\[(.*)\]\((https://[^)\s]+)\)$`)
	reversalSuffix    = regexp.MustCompile(` \(reversal of [^)]*\)$`)
)

// ParseWikiDocument reads a previously published document back into actions so
// a lost store can be rebuilt. Rows that cannot be parsed are reported as
// anomalies and skipped.
func ParseWikiDocument(content, subreddit string) ([]Action, []Anomaly) {
	var (
		actions     []Action
		anomalies   []Anomaly
		currentDate string
	)

	for n, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)

		if m := dateHeaderPattern.FindStringSubmatch(line); m != nil {
			currentDate = m[1]
			continue
		}
		if currentDate == "" || !strings.HasPrefix(line, "|") {
			continue
		}
		if line == tableHeader || strings.HasPrefix(line, "|---") {
			continue
		}

		cells := splitRow(line)
		if len(cells) < 6 {
			anomalies = append(anomalies, Anomaly{Field: "row", Reason: fmt.Sprintf("line %d has %d cells", n+1, len(cells))})
			continue
		}

		created, err := time.Parse(dateLayout+" "+timeLayout, currentDate+" "+cells[0])
		if err != nil {
			anomalies = append(anomalies, Anomaly{Field: "time", Reason: fmt.Sprintf("line %d: %v", n+1, err)})
			continue
		}

		actions = append(actions, recoverAction(subreddit, created.Unix(), cells))
	}

	return actions, anomalies
}

func recoverAction(subreddit string, createdAt int64, cells []string) Action {
	label := reversalSuffix.ReplaceAllString(cells[1], "")
	automated := strings.HasPrefix(label, filterPrefix)
	actionType := strings.TrimPrefix(label, filterPrefix)

	action := Action{
		Subreddit:     subreddit,
		ActionType:    actionType,
		Kind:          classify(actionType, automated),
		Moderator:     cells[3],
		RemovalReason: CleanText(cells[5]),
		CreatedAt:     createdAt,
	}

	if m := markdownLink.FindStringSubmatch(cells[4]); m != nil {
		action.TargetID, action.TargetKind, action.TargetPermalink = resolveTarget(m[2], "")
		title := m[1]
		if action.TargetKind == TargetComment {
			title = strings.TrimPrefix(strings.TrimPrefix(title, "Comment"), " on ")
		} else if title == "Post" {
			title = ""
		}
		action.TargetTitle = CleanText(title)
	}
	if action.TargetID == "" {
		action.TargetID = cells[2]
	}

	// a removal and its reason often share a second on the same target
	key := cells[2]
	if key == "" {
		key = Fingerprint(strings.Join(cells, "|"))[:12]
	}
	action.ActionID = fmt.Sprintf("wiki:%s:%s:%d", actionType, key, createdAt)

	return action
}

// splitRow splits a table row on unescaped pipes and unescapes each cell.
func splitRow(line string) []string {
	var (
		cells   []string
		cell    strings.Builder
		escaped bool
	)

	for _, r := range line {
		switch {
		case escaped:
			cell.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '|':
			cells = append(cells, strings.TrimSpace(cell.String()))
			cell.Reset()
		default:
			cell.WriteRune(r)
		}
	}
	cells = append(cells, strings.TrimSpace(cell.String()))

	// drop the empty cells outside the leading and trailing delimiters
	if len(cells) >= 2 {
		cells = cells[1 : len(cells)-1]
	}
	return cells
}
