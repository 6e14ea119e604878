package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Message is one existing message in a remote channel, as returned by History.
type Message struct {
	ID         string
	AuthorID   string
	AuthorName string
	Content    string
	Timestamp  time.Time
}

// Capability is the interface all messaging platforms must implement.
// It is deliberately narrow: send one message, delete one message, list a
// page of channel history. Rate-limit and authorization failures are
// reported through the error taxonomy below so callers can react uniformly.
type Capability interface {
	Name() string
	// Send posts content to the channel and returns the remote message ID.
	Send(ctx context.Context, channelID, content string) (string, error)
	// Delete removes one message from the channel.
	Delete(ctx context.Context, channelID, messageID string) error
	// History returns up to limit messages older than the before cursor
	// (newest first) plus the cursor for the next page. An empty cursor
	// means history is exhausted.
	History(ctx context.Context, channelID string, limit int, before string) ([]Message, string, error)
	// SelfID returns the authenticated bot's own user ID.
	SelfID() string
	// MaxMessageLength is the platform's payload ceiling in characters.
	MaxMessageLength() int
	Close() error
}

// RateLimitedError signals the platform throttled the operation and it may
// be retried after RetryAfter.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

var (
	// ErrUnauthorized means the operation was rejected for lack of
	// permission. Fatal to a run.
	ErrUnauthorized = errors.New("operation unauthorized")
	// ErrNotFound means the target message no longer exists.
	ErrNotFound = errors.New("message not found")
	// ErrHistoryUnsupported means the platform cannot list channel history.
	ErrHistoryUnsupported = errors.New("history listing not supported")
)

// Factory creates a Capability from JSON config.
type Factory func(cfg json.RawMessage) (Capability, error)

var registry = map[string]Factory{}

// Register adds a platform factory to the registry.
func Register(name string, factory Factory) {
	registry[name] = factory
}

// Open creates a Capability by registered name.
func Open(name string, cfg json.RawMessage) (Capability, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("no factory registered for platform %q", name)
	}
	cap, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create platform %q: %w", name, err)
	}
	return cap, nil
}

// RegisteredNames returns all registered platform names.
func RegisteredNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
