package platform

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

type mockCapability struct {
	name string
}

func (m *mockCapability) Name() string          { return m.name }
func (m *mockCapability) SelfID() string        { return "self" }
func (m *mockCapability) MaxMessageLength() int { return 100 }
func (m *mockCapability) Close() error          { return nil }

func (m *mockCapability) Send(ctx context.Context, channelID, content string) (string, error) {
	return "", nil
}

func (m *mockCapability) Delete(ctx context.Context, channelID, messageID string) error {
	return nil
}

func (m *mockCapability) History(ctx context.Context, channelID string, limit int, before string) ([]Message, string, error) {
	return nil, "", nil
}

func TestOpenUnknownPlatform(t *testing.T) {
	if _, err := Open("nonexistent-platform-xyz", json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected error for unregistered platform")
	}
}

func TestRegisterAndOpen(t *testing.T) {
	const name = "test-mock"
	Register(name, func(cfg json.RawMessage) (Capability, error) {
		return &mockCapability{name: name}, nil
	})

	cap, err := Open(name, json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if cap.Name() != name {
		t.Errorf("Name = %q, want %q", cap.Name(), name)
	}
}

func TestRegisteredNamesIncludesBuiltins(t *testing.T) {
	names := RegisteredNames()
	nameSet := make(map[string]bool, len(names))
	for _, n := range names {
		nameSet[n] = true
	}
	for _, b := range []string{"discord", "telegram"} {
		if !nameSet[b] {
			t.Errorf("expected built-in platform %q to be registered", b)
		}
	}
}

func TestRateLimitedErrorMessage(t *testing.T) {
	err := &RateLimitedError{RetryAfter: 2 * time.Second}
	want := "rate limited, retry after 2s"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
