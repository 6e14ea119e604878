package export

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/tidwall/gjson"
)

// MalformedExportError reports the first unparseable record in an export.
type MalformedExportError struct {
	Index  int
	Reason string
}

func (e *MalformedExportError) Error() string {
	return fmt.Sprintf("malformed export: record %d: %s", e.Index, e.Reason)
}

// ErrGuildExport is returned for whole-guild exports, which bundle multiple
// channels and must be split into per-channel files first.
var ErrGuildExport = errors.New("guild export detected, expected a single-channel export")

// LoadFile reads and parses an export file.
func LoadFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read export file %s: %w", path, err)
	}
	return Load(data)
}

// Load parses raw export data into an ordered sequence of Records. It
// tolerates the known export shapes: a bare array of messages, an object
// with a "messages" array, or an object whose messages hide under some
// other key. The input is never mutated.
func Load(data []byte) ([]Record, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("export is not valid JSON")
	}
	root := gjson.ParseBytes(data)

	list, err := findMessages(root)
	if err != nil {
		return nil, err
	}

	items := list.Array()
	records := make([]Record, 0, len(items))
	for i, item := range items {
		rec, err := parseRecord(i, item)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// findMessages locates the message array within an export of any known shape.
func findMessages(root gjson.Result) (gjson.Result, error) {
	if root.IsArray() {
		return root, nil
	}
	if !root.IsObject() {
		return gjson.Result{}, fmt.Errorf("invalid export format: expected a list or object")
	}
	if msgs := root.Get("messages"); msgs.IsArray() {
		return msgs, nil
	}
	if root.Get("guild").Exists() && root.Get("channels").Exists() {
		return gjson.Result{}, ErrGuildExport
	}

	// Last resort: scan top-level keys for an array of message-like
	// objects (author, content and timestamp present on a sample).
	var found gjson.Result
	var foundKey string
	root.ForEach(func(key, value gjson.Result) bool {
		if !value.IsArray() {
			return true
		}
		items := value.Array()
		if len(items) == 0 {
			return true
		}
		sample := items
		if len(sample) > 5 {
			sample = sample[:5]
		}
		for _, item := range sample {
			if !item.IsObject() ||
				!item.Get("author").Exists() ||
				!item.Get("content").Exists() ||
				!item.Get("timestamp").Exists() {
				return true
			}
		}
		found = value
		foundKey = key.String()
		return false
	})
	if foundKey != "" {
		slog.Info("export: found messages in non-standard field", "field", foundKey)
		return found, nil
	}
	return gjson.Result{}, fmt.Errorf("unknown export structure: no message array found")
}

func parseRecord(index int, item gjson.Result) (Record, error) {
	if !item.IsObject() {
		return Record{}, &MalformedExportError{Index: index, Reason: "not an object"}
	}
	id := item.Get("id")
	if !id.Exists() {
		return Record{}, &MalformedExportError{Index: index, Reason: "missing id"}
	}

	rec := Record{
		ID:      id.String(),
		Content: item.Get("content").String(),
		index:   index,
	}

	// Author is either a nested object (global_name preferred, username
	// as the handle) or a flat string.
	author := item.Get("author")
	if author.IsObject() {
		rec.AuthorName = author.Get("global_name").String()
		rec.AuthorHandle = author.Get("username").String()
		if rec.AuthorName == "" {
			rec.AuthorName = author.Get("name").String()
		}
	} else if author.Type == gjson.String {
		rec.AuthorName = author.String()
	}

	ts, ok := parseTimestamp(item.Get("timestamp"))
	rec.Timestamp = ts
	rec.TimeInferred = !ok

	item.Get("attachments").ForEach(func(_, a gjson.Result) bool {
		rec.Attachments = append(rec.Attachments, Attachment{
			URL:      a.Get("url").String(),
			Filename: a.Get("filename").String(),
		})
		return true
	})
	item.Get("embeds").ForEach(func(_, e gjson.Result) bool {
		rec.Embeds = append(rec.Embeds, []byte(e.Raw))
		return true
	})
	item.Get("reactions").ForEach(func(_, r gjson.Result) bool {
		emoji := r.Get("emoji")
		name := emoji.String()
		if emoji.IsObject() {
			name = emoji.Get("name").String()
		}
		rec.Reactions = append(rec.Reactions, Reaction{
			Emoji: name,
			Count: int(r.Get("count").Int()),
		})
		return true
	})
	return rec, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseTimestamp accepts ISO-8601-like strings and epoch numbers
// (seconds, or milliseconds for values past ~2286 in seconds).
func parseTimestamp(v gjson.Result) (time.Time, bool) {
	switch v.Type {
	case gjson.String:
		s := v.String()
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	case gjson.Number:
		n := v.Int()
		if n <= 0 {
			return time.Time{}, false
		}
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), true
		}
		return time.Unix(n, 0).UTC(), true
	default:
		return time.Time{}, false
	}
}

// Sort orders records by timestamp, the canonical sort key. Records
// without timestamps sort before timestamped ones and keep their input
// order relative to each other.
func Sort(records []Record) []Record {
	out := make([]Record, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Timestamp.IsZero() || b.Timestamp.IsZero() {
			return a.Timestamp.IsZero() && !b.Timestamp.IsZero()
		}
		if a.Timestamp.Equal(b.Timestamp) {
			return a.index < b.index
		}
		return a.Timestamp.Before(b.Timestamp)
	})
	return out
}
