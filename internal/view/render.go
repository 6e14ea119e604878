package view

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/tidwall/gjson"

	"github.com/dennisimoo/DiscordMessageMigrator/internal/export"
)

// Options controls terminal rendering.
type Options struct {
	Width int  // wrap column, default 80
	Color bool // colorize headers
}

const defaultWidth = 80

// Render writes one formatted block per record: header, wrapped content,
// attachment references, embed summaries and reaction tallies. Attachments
// and embeds are rendered as plain references, never fetched.
func Render(w io.Writer, records []export.Record, opts Options) error {
	width := opts.Width
	if width <= 0 {
		width = defaultWidth
	}
	header := fmt.Sprintf
	if opts.Color {
		header = color.New(color.FgCyan, color.Bold).Sprintf
	}

	for _, r := range records {
		if _, err := fmt.Fprintln(w, header("[%s] %s:", formatTimestamp(r), r.DisplayAuthor())); err != nil {
			return err
		}
		if r.Content != "" {
			fmt.Fprintln(w, wrap(r.Content, width))
		}
		if len(r.Attachments) > 0 {
			fmt.Fprintf(w, "  Attachments (%d):\n", len(r.Attachments))
			for i, a := range r.Attachments {
				filename := a.Filename
				if filename == "" {
					filename = "Unknown file"
				}
				fmt.Fprintf(w, "  %d. %s\n", i+1, filename)
				if a.URL != "" {
					fmt.Fprintf(w, "     %s\n", a.URL)
				}
			}
		}
		if len(r.Embeds) > 0 {
			fmt.Fprintf(w, "  Embeds (%d):\n", len(r.Embeds))
			for i, e := range r.Embeds {
				renderEmbed(w, i+1, e, width)
			}
		}
		if len(r.Reactions) > 0 {
			var sb strings.Builder
			sb.WriteString("  Reactions: ")
			for _, re := range r.Reactions {
				fmt.Fprintf(&sb, "%s (%d) ", re.Emoji, re.Count)
			}
			fmt.Fprintln(w, strings.TrimRight(sb.String(), " "))
		}
		if _, err := fmt.Fprintln(w, strings.Repeat("-", width)); err != nil {
			return err
		}
	}
	return nil
}

// renderEmbed prints the title, url and wrapped description of one opaque
// embed block. Unknown fields are ignored, never dropped from the record.
func renderEmbed(w io.Writer, n int, raw []byte, width int) {
	title := gjson.GetBytes(raw, "title").String()
	if title == "" {
		title = "No Title"
	}
	fmt.Fprintf(w, "  %d. %s\n", n, title)
	if url := gjson.GetBytes(raw, "url").String(); url != "" {
		fmt.Fprintf(w, "     URL: %s\n", url)
	}
	if desc := gjson.GetBytes(raw, "description").String(); desc != "" {
		for _, line := range strings.Split(wrap(desc, width-5), "\n") {
			fmt.Fprintf(w, "     %s\n", line)
		}
	}
}

func formatTimestamp(r export.Record) string {
	if r.Timestamp.IsZero() {
		return "unknown time"
	}
	return r.Timestamp.Format("2006-01-02 15:04:05")
}

// wrap line-wraps text at the given display width, leaving lines already
// within the width untouched. Width-aware for wide runes.
func wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if runewidth.StringWidth(line) <= width {
			out = append(out, line)
			continue
		}
		out = append(out, runewidth.Wrap(line, width))
	}
	return strings.Join(out, "\n")
}
