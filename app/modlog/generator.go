package modlog

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"
)

// Generator renders a partition's ledger as an RSS 2.0 feed.
type Generator struct {
	baseURL string
	version string
}

func NewGenerator(baseURL, version string) *Generator {
	return &Generator{
		baseURL: strings.TrimRight(baseURL, "/"),
		version: version,
	}
}

// Run writes actions newest first. Items only link to content URLs.
func (g *Generator) Run(config *Config, actions []Action) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", fmt.Sprintf("Moderation log for /r/%s", config.Name), 4)
	g.writeElement(&buf, "link", fmt.Sprintf("%s/r/%s/wiki/%s", redditBaseURL, config.Target(), config.WikiPage), 4)
	g.writeElement(&buf, "description", fmt.Sprintf("Moderation actions in /r/%s from the last %d days", config.Name, config.Settings.RetentionDays), 4)

	if g.baseURL != "" {
		selfLink := fmt.Sprintf("%s/partitions/%s/feed.xml", g.baseURL, config.Name)
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(selfLink)))
	}

	lastBuildDate := time.Unix(0, 0).UTC()
	if len(actions) > 0 {
		lastBuildDate = actions[len(actions)-1].Time()
	}
	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("RedditModLog/%s", cmp.Or(g.version, "dev")), 4)

	display := NewModeratorDisplay(config)
	for i := len(actions) - 1; i >= 0; i-- {
		g.writeItem(&buf, display, actions[i])
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, display *ModeratorDisplay, action Action) {
	buf.WriteString("    <item>\n")

	buf.WriteString("      <guid isPermaLink=\"false\">")
	xml.EscapeText(buf, []byte(action.ActionID))
	buf.WriteString("</guid>\n")

	label := actionLabel(action, nil)
	title := label + " by " + display.Label(action.Moderator)
	if action.TargetID != "" {
		title += " (" + action.TargetID + ")"
	}
	g.writeElement(buf, "title", title, 6)

	if link := action.ContentURL(); link != "" {
		g.writeElement(buf, "link", link, 6)
	}

	g.writeElement(buf, "description", cmp.Or(action.RemovalReason, "No reason given"), 6)
	g.writeElement(buf, "pubDate", action.Time().Format(time.RFC1123Z), 6)
	g.writeElement(buf, "category", string(action.Kind), 6)

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}
