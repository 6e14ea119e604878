package platform

import (
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestMapTelegramErr(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"unauthorized", &tgbotapi.Error{Code: 401, Message: "Unauthorized"}, ErrUnauthorized},
		{"forbidden", &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was kicked"}, ErrUnauthorized},
		{"delete target gone", &tgbotapi.Error{Code: 400, Message: "Bad Request: message to delete not found"}, ErrNotFound},
		{"other 400 passes through", &tgbotapi.Error{Code: 400, Message: "Bad Request: message is too long"}, nil},
		{"plain error passes through", errors.New("dial tcp: timeout"), nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := mapTelegramErr(tc.in)
			if tc.want != nil {
				if !errors.Is(got, tc.want) {
					t.Errorf("got %v, want %v", got, tc.want)
				}
				return
			}
			if !errors.Is(got, tc.in) {
				t.Errorf("error was rewritten: got %v, want %v", got, tc.in)
			}
		})
	}
}

func TestMapTelegramErrRateLimited(t *testing.T) {
	tests := []struct {
		name       string
		retryAfter int
		want       time.Duration
	}{
		{"retry after provided", 7, 7 * time.Second},
		{"missing retry after defaults", 0, time.Second},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := &tgbotapi.Error{
				Code:               429,
				Message:            "Too Many Requests",
				ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: tc.retryAfter},
			}
			got := mapTelegramErr(in)

			var rl *RateLimitedError
			if !errors.As(got, &rl) {
				t.Fatalf("expected RateLimitedError, got %v", got)
			}
			if rl.RetryAfter != tc.want {
				t.Errorf("RetryAfter = %v, want %v", rl.RetryAfter, tc.want)
			}
		})
	}
}

func TestParseTelegramChatID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"123456", 123456, false},
		{"-1001234567890", -1001234567890, false},
		{"general", 0, true},
		{"", 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := parseTelegramChatID(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestTelegramHTTPClientTimeout(t *testing.T) {
	client := telegramHTTPClient()
	if client.Timeout <= 0 {
		t.Fatal("expected a bounded HTTP client, got no timeout")
	}
}
