package export

import (
	"encoding/json"
	"time"
)

// Attachment is one file reference carried by a message.
type Attachment struct {
	URL      string
	Filename string
}

// Reaction is an emoji tally on a message. Informational only; reactions
// are rendered but never replayed to a live channel.
type Reaction struct {
	Emoji string
	Count int
}

// Record is the normalized form of one exported message. Immutable once
// loaded; every transform downstream copies rather than mutates.
type Record struct {
	ID           string
	AuthorName   string // display name, preferred for presentation
	AuthorHandle string // account handle, also matched by author filters
	Content      string
	Timestamp    time.Time // zero when the export carried none
	TimeInferred bool      // true when Timestamp was absent or unparseable
	Attachments  []Attachment
	Embeds       []json.RawMessage // opaque blocks, passed through verbatim
	Reactions    []Reaction

	// index is the record's position in the input, the fallback sort key
	// for records without timestamps.
	index int
}

// DisplayAuthor returns the best available author name for presentation.
func (r Record) DisplayAuthor() string {
	if r.AuthorName != "" {
		return r.AuthorName
	}
	if r.AuthorHandle != "" {
		return r.AuthorHandle
	}
	return "Unknown User"
}
