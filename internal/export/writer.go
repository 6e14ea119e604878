package export

import (
	"fmt"
	"os"
	"time"

	"github.com/tidwall/sjson"
)

// docBuilder accumulates sjson edits, keeping only the first error.
type docBuilder struct {
	doc []byte
	err error
}

func (b *docBuilder) set(path string, value interface{}) {
	if b.err != nil {
		return
	}
	b.doc, b.err = sjson.SetBytes(b.doc, path, value)
}

func (b *docBuilder) setRaw(path string, raw []byte) {
	if b.err != nil {
		return
	}
	b.doc, b.err = sjson.SetRawBytes(b.doc, path, raw)
}

// Marshal re-serializes records into the standard export shape, an object
// with a "messages" array. Lossless for the normalized fields; embed
// blocks are written back byte-for-byte.
func Marshal(records []Record) ([]byte, error) {
	out := &docBuilder{doc: []byte(`{"messages":[]}`)}
	for _, r := range records {
		msg := &docBuilder{doc: []byte(`{}`)}
		msg.set("id", r.ID)
		if r.AuthorName != "" {
			msg.set("author.global_name", r.AuthorName)
		}
		if r.AuthorHandle != "" {
			msg.set("author.username", r.AuthorHandle)
		}
		msg.set("content", r.Content)
		if !r.Timestamp.IsZero() {
			msg.set("timestamp", r.Timestamp.Format(time.RFC3339Nano))
		}
		for i, a := range r.Attachments {
			msg.set(fmt.Sprintf("attachments.%d.url", i), a.URL)
			msg.set(fmt.Sprintf("attachments.%d.filename", i), a.Filename)
		}
		for _, e := range r.Embeds {
			msg.setRaw("embeds.-1", e)
		}
		for i, re := range r.Reactions {
			msg.set(fmt.Sprintf("reactions.%d.emoji.name", i), re.Emoji)
			msg.set(fmt.Sprintf("reactions.%d.count", i), re.Count)
		}
		if msg.err != nil {
			return nil, fmt.Errorf("failed to serialize record %s: %w", r.ID, msg.err)
		}
		out.setRaw("messages.-1", msg.doc)
	}
	if out.err != nil {
		return nil, fmt.Errorf("failed to serialize export: %w", out.err)
	}
	return out.doc, nil
}

// Save writes records to path in the standard export shape.
func Save(path string, records []Record) error {
	data, err := Marshal(records)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write export file %s: %w", path, err)
	}
	return nil
}
