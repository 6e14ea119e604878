package platform

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
)

func restError(status int) *discordgo.RESTError {
	return &discordgo.RESTError{Response: &http.Response{StatusCode: status}}
}

func TestMapDiscordErr(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil passes through", nil, nil},
		{"unauthorized sentinel", discordgo.ErrUnauthorized, ErrUnauthorized},
		{"rest 401", restError(http.StatusUnauthorized), ErrUnauthorized},
		{"rest 403", restError(http.StatusForbidden), ErrUnauthorized},
		{"rest 404", restError(http.StatusNotFound), ErrNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := mapDiscordErr(tc.in)
			if !errors.Is(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMapDiscordErrRateLimited(t *testing.T) {
	in := &discordgo.RateLimitError{
		RateLimit: &discordgo.RateLimit{
			TooManyRequests: &discordgo.TooManyRequests{RetryAfter: 1500 * time.Millisecond},
		},
	}
	got := mapDiscordErr(in)

	var rl *RateLimitedError
	if !errors.As(got, &rl) {
		t.Fatalf("expected RateLimitedError, got %v", got)
	}
	if rl.RetryAfter != 1500*time.Millisecond {
		t.Errorf("RetryAfter = %v, want 1.5s", rl.RetryAfter)
	}
}

func TestMapDiscordErrTransientPassesThrough(t *testing.T) {
	tests := []struct {
		name string
		in   error
	}{
		{"rest 500", restError(http.StatusInternalServerError)},
		{"rest 502", restError(http.StatusBadGateway)},
		{"plain error", errors.New("connection refused")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := mapDiscordErr(tc.in)
			if !errors.Is(got, tc.in) {
				t.Errorf("transient error was rewritten: got %v, want %v", got, tc.in)
			}
			var rl *RateLimitedError
			if errors.As(got, &rl) || errors.Is(got, ErrUnauthorized) || errors.Is(got, ErrNotFound) {
				t.Errorf("transient error was misclassified: %v", got)
			}
		})
	}
}
