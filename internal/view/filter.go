package view

import (
	"strings"

	"github.com/dennisimoo/DiscordMessageMigrator/internal/export"
)

// Criteria narrows a record sequence. Zero-value fields are ignored; when
// both are set a record must satisfy both.
type Criteria struct {
	Author   string // exact, case-insensitive match on display name or handle
	Contains string // case-insensitive substring match on content
}

// Filter returns the records matching c, preserving order. The input is
// never mutated.
func Filter(records []export.Record, c Criteria) []export.Record {
	if c.Author == "" && c.Contains == "" {
		return append([]export.Record(nil), records...)
	}
	needle := strings.ToLower(c.Contains)
	out := make([]export.Record, 0, len(records))
	for _, r := range records {
		if c.Author != "" &&
			!strings.EqualFold(r.AuthorName, c.Author) &&
			!strings.EqualFold(r.AuthorHandle, c.Author) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(r.Content), needle) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Reverse returns the records in reverse order.
func Reverse(records []export.Record) []export.Record {
	out := make([]export.Record, len(records))
	for i, r := range records {
		out[len(records)-1-i] = r
	}
	return out
}

// Limit returns the first n records. n <= 0 means no limit.
func Limit(records []export.Record, n int) []export.Record {
	if n <= 0 || n >= len(records) {
		return append([]export.Record(nil), records...)
	}
	return append([]export.Record(nil), records[:n]...)
}
