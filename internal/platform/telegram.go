package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func init() {
	Register("telegram", newTelegramCapability)
}

const (
	telegramMaxMessageLen = 4096
	telegramHTTPTimeout   = 30 * time.Second
)

type telegramConfig struct {
	Token string `json:"token"`
}

// TelegramCapability covers send and delete. The Bot API has no endpoint
// for reading channel history, so History always fails with
// ErrHistoryUnsupported and the cleanup planner cannot run against it.
type TelegramCapability struct {
	bot *tgbotapi.BotAPI
}

func newTelegramCapability(cfg json.RawMessage) (Capability, error) {
	var tcfg telegramConfig
	if err := json.Unmarshal(cfg, &tcfg); err != nil {
		return nil, fmt.Errorf("failed to parse telegram config: %w", err)
	}
	bot, err := tgbotapi.NewBotAPIWithClient(tcfg.Token, tgbotapi.APIEndpoint, telegramHTTPClient())
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	slog.Info("telegram: authenticated", "userID", bot.Self.ID, "username", bot.Self.UserName)
	return &TelegramCapability{bot: bot}, nil
}

func (c *TelegramCapability) Name() string          { return "telegram" }
func (c *TelegramCapability) SelfID() string        { return strconv.FormatInt(c.bot.Self.ID, 10) }
func (c *TelegramCapability) MaxMessageLength() int { return telegramMaxMessageLen }

func (c *TelegramCapability) Send(ctx context.Context, channelID, content string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	chatID, err := parseTelegramChatID(channelID)
	if err != nil {
		return "", err
	}
	sent, err := c.bot.Send(tgbotapi.NewMessage(chatID, content))
	if err != nil {
		return "", mapTelegramErr(err)
	}
	return strconv.Itoa(sent.MessageID), nil
}

func (c *TelegramCapability) Delete(ctx context.Context, channelID, messageID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chatID, err := parseTelegramChatID(channelID)
	if err != nil {
		return err
	}
	msgID, err := strconv.Atoi(messageID)
	if err != nil {
		return fmt.Errorf("telegram: invalid message id %q: %w", messageID, err)
	}
	if _, err := c.bot.Request(tgbotapi.NewDeleteMessage(chatID, msgID)); err != nil {
		return mapTelegramErr(err)
	}
	return nil
}

func (c *TelegramCapability) History(ctx context.Context, channelID string, limit int, before string) ([]Message, string, error) {
	return nil, "", ErrHistoryUnsupported
}

func (c *TelegramCapability) Close() error {
	c.bot.StopReceivingUpdates()
	return nil
}

// telegramHTTPClient bounds every Bot API call. The library offers no
// per-request context, so a hung request surfaces as a client timeout
// instead of blocking the run forever.
func telegramHTTPClient() *http.Client {
	return &http.Client{Timeout: telegramHTTPTimeout}
}

func parseTelegramChatID(channelID string) (int64, error) {
	chatID, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("telegram: invalid chat id %q: %w", channelID, err)
	}
	return chatID, nil
}

// mapTelegramErr translates Bot API errors onto the platform taxonomy.
func mapTelegramErr(err error) error {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.Code {
	case 429:
		retryAfter := time.Duration(apiErr.RetryAfter) * time.Second
		if retryAfter <= 0 {
			retryAfter = time.Second
		}
		return &RateLimitedError{RetryAfter: retryAfter}
	case 401, 403:
		return ErrUnauthorized
	case 400:
		if strings.Contains(strings.ToLower(apiErr.Message), "not found") {
			return ErrNotFound
		}
	}
	return err
}
