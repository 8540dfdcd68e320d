package modlog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05 UTC"

	tableHeader    = "| Time | Action | ID | Moderator | Content | Reason | Inquire |"
	tableSeparator = "|------|--------|----|-----------|---------|--------|---------|"

	emptyNotice     = "No moderation actions to display.\n"
	truncatedNotice = "*Older entries were omitted to stay within the wiki size limit.*\n\n"

	filterPrefix   = "filter-"
	reversalFormat = "%s (reversal of %s)"

	maxLinkTextLength     = 80
	maxModmailTitleLength = 50
)

// Document is a rendered wiki page ready for publishing.
type Document struct {
	Body          string
	Fingerprint   string
	Rows          int
	Groups        int
	DroppedGroups int
}

type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

type dateGroup struct {
	date string
	rows []string
}

// Run renders actions (ordered by created_at ascending) into a markdown document
// grouped by UTC date, newest date first. When the document exceeds the size
// limit, whole date groups are dropped oldest first.
func (r *Renderer) Run(config *Config, actions []Action) (*Document, error) {
	sorted := append([]Action(nil), actions...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt < sorted[j].CreatedAt })

	display := NewModeratorDisplay(config)
	reversals := pairApprovals(sorted)

	var groups []*dateGroup
	for _, action := range sorted {
		date := action.Time().Format(dateLayout)
		if len(groups) == 0 || groups[len(groups)-1].date != date {
			groups = append(groups, &dateGroup{date: date})
		}
		g := groups[len(groups)-1]
		g.rows = append(g.rows, r.formatRow(config, display, action, reversals[action.ActionID]))
	}

	// newest date first
	sections := make([]string, len(groups))
	for i, g := range groups {
		sections[len(groups)-1-i] = formatSection(g)
	}

	header := formatHeader(config)
	if len(sections) == 0 {
		return newDocument(header+emptyNotice, 0, 0, 0), nil
	}

	limit := config.Settings.SizeLimit
	full := header + strings.Join(sections, "\n")
	if limit <= 0 || size(full) <= limit {
		return newDocument(full, len(sorted), len(sections), 0), nil
	}

	newest := groups[len(groups)-1]
	body := header + truncatedNotice + sections[0]
	if size(body) > limit {
		// the notice is optional; only the newest group itself must fit
		bare := header + sections[0]
		if size(bare) > limit {
			return nil, &RenderOverflowError{Date: newest.date, Size: size(bare), Limit: limit}
		}
		return newDocument(bare, len(newest.rows), 1, len(sections)-1), nil
	}

	kept := 1
	rows := len(newest.rows)
	for _, section := range sections[1:] {
		candidate := body + "\n" + section
		if size(candidate) > limit {
			break
		}
		body = candidate
		kept++
		rows += len(groups[len(groups)-kept].rows)
	}

	return newDocument(body, rows, kept, len(sections)-kept), nil
}

func newDocument(body string, rows, groups, dropped int) *Document {
	return &Document{
		Body:          body,
		Fingerprint:   Fingerprint(body),
		Rows:          rows,
		Groups:        groups,
		DroppedGroups: dropped,
	}
}

// Fingerprint is the content hash used to skip redundant remote writes.
func Fingerprint(body string) string {
	hash := sha256.Sum256([]byte(body))
	return hex.EncodeToString(hash[:])
}

func size(s string) int {
	return utf8.RuneCountInString(s)
}

func formatHeader(config *Config) string {
	return fmt.Sprintf("# Moderation Log for /r/%s\n\n*Showing actions from the last %d days. All times are UTC.*\n\n",
		config.Name, config.Settings.RetentionDays)
}

func formatSection(g *dateGroup) string {
	var b strings.Builder
	b.WriteString("## ")
	b.WriteString(g.date)
	b.WriteString("\n\n")
	b.WriteString(tableHeader)
	b.WriteString("\n")
	b.WriteString(tableSeparator)
	b.WriteString("\n")
	for _, row := range g.rows {
		b.WriteString(row)
		b.WriteString("\n")
	}
	return b.String()
}

func (r *Renderer) formatRow(config *Config, display *ModeratorDisplay, action Action, reversed *Action) string {
	cells := []string{
		action.Time().Format(timeLayout),
		actionLabel(action, reversed),
		action.TargetID,
		display.Label(action.Moderator),
		contentCell(action),
		action.RemovalReason,
		inquireCell(config, action),
	}

	for i, cell := range cells {
		cells[i] = EscapeCell(cell)
	}

	return "| " + strings.Join(cells, " | ") + " |"
}

func actionLabel(action Action, reversed *Action) string {
	switch {
	case action.Kind == KindFilterRemoval:
		return filterPrefix + action.ActionType
	case action.Kind == KindApproval && reversed != nil:
		return fmt.Sprintf(reversalFormat, action.ActionType, actionLabel(*reversed, nil))
	default:
		return action.ActionType
	}
}

// contentCell links to the affected content. Without a resolvable content URL
// the cell stays empty.
func contentCell(action Action) string {
	link := action.ContentURL()
	if link == "" {
		return ""
	}
	return "[" + linkText(action) + "](" + link + ")"
}

func linkText(action Action) string {
	text := action.TargetTitle
	if action.TargetKind == TargetComment {
		if text != "" {
			text = "Comment on " + text
		} else {
			text = "Comment"
		}
	}
	if text == "" {
		text = "Post"
	}

	text = strings.NewReplacer("[", "(", "]", ")").Replace(text)
	return truncate(text, maxLinkTextLength)
}

func inquireCell(config *Config, action Action) string {
	if !action.Kind.IsRemoval() {
		return ""
	}
	return "[Contact Mods](" + ModmailURL(config.Target(), action) + ")"
}

// ModmailURL builds a pre-filled modmail compose link for asking about a removal.
func ModmailURL(target string, action Action) string {
	removalType := map[string]string{
		"removelink":    "Post",
		"removepost":    "Post",
		"removecomment": "Comment",
		"spamlink":      "Spam Post",
		"spamcomment":   "Spam Comment",
	}[action.ActionType]
	if removalType == "" {
		removalType = "Content"
	}

	subject := fmt.Sprintf("%s Removal Inquiry - %s", removalType, truncate(linkText(action), maxModmailTitleLength))
	// spaces as %20 so the link survives inside a markdown table
	escaped := strings.ReplaceAll(url.QueryEscape(subject), "+", "%20")
	return fmt.Sprintf("%s/message/compose?to=/r/%s&subject=%s", redditBaseURL, target, escaped)
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-3]) + "..."
}

// EscapeCell makes a value safe inside a markdown table cell.
func EscapeCell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "|", `\|`)
}

// pairApprovals maps each approval to the most recent earlier removal of the
// same content within the window.
func pairApprovals(sorted []Action) map[string]*Action {
	lastRemoval := make(map[string]*Action)
	pairs := make(map[string]*Action)

	for i := range sorted {
		action := &sorted[i]
		if action.TargetID == "" {
			continue
		}
		key := string(action.TargetKind) + ":" + action.TargetID

		switch {
		case action.Kind.IsRemoval():
			lastRemoval[key] = action
		case action.Kind == KindApproval:
			if removal, ok := lastRemoval[key]; ok {
				pairs[action.ActionID] = removal
			}
		}
	}

	return pairs
}
