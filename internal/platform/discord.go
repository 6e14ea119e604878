package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

func init() {
	Register("discord", newDiscordCapability)
}

// Discord caps message bodies at 2000 characters and history pages at 100.
const (
	discordMaxMessageLen = 2000
	discordMaxPageSize   = 100
)

type discordConfig struct {
	Token string `json:"token"`
}

type DiscordCapability struct {
	session *discordgo.Session
	selfID  string
}

func newDiscordCapability(cfg json.RawMessage) (Capability, error) {
	var dcfg discordConfig
	if err := json.Unmarshal(cfg, &dcfg); err != nil {
		return nil, fmt.Errorf("failed to parse discord config: %w", err)
	}
	session, err := discordgo.New("Bot " + dcfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	// 429s must reach the dispatcher, which owns pacing and retry.
	session.ShouldRetryOnRateLimit = false
	session.MaxRestRetries = 1

	self, err := session.User("@me")
	if err != nil {
		return nil, fmt.Errorf("discord: failed to identify bot user: %w", mapDiscordErr(err))
	}
	slog.Info("discord: authenticated", "userID", self.ID, "username", self.Username)
	return &DiscordCapability{session: session, selfID: self.ID}, nil
}

func (c *DiscordCapability) Name() string          { return "discord" }
func (c *DiscordCapability) SelfID() string        { return c.selfID }
func (c *DiscordCapability) MaxMessageLength() int { return discordMaxMessageLen }

func (c *DiscordCapability) Send(ctx context.Context, channelID, content string) (string, error) {
	msg, err := c.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return "", mapDiscordErr(err)
	}
	return msg.ID, nil
}

func (c *DiscordCapability) Delete(ctx context.Context, channelID, messageID string) error {
	err := c.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return mapDiscordErr(err)
	}
	return nil
}

func (c *DiscordCapability) History(ctx context.Context, channelID string, limit int, before string) ([]Message, string, error) {
	if limit <= 0 || limit > discordMaxPageSize {
		limit = discordMaxPageSize
	}
	msgs, err := c.session.ChannelMessages(channelID, limit, before, "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, "", mapDiscordErr(err)
	}
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		rec := Message{ID: m.ID, Content: m.Content, Timestamp: m.Timestamp}
		if m.Author != nil {
			rec.AuthorID = m.Author.ID
			rec.AuthorName = m.Author.Username
		}
		out = append(out, rec)
	}
	next := ""
	if len(msgs) == limit {
		// ChannelMessages returns newest first; the last entry is the
		// oldest and becomes the before-cursor for the next page.
		next = msgs[len(msgs)-1].ID
	}
	return out, next, nil
}

func (c *DiscordCapability) Close() error {
	// REST-only session, no gateway connection to tear down.
	return nil
}

// mapDiscordErr translates discordgo errors onto the platform taxonomy.
// Anything unrecognized is left as-is and treated as transient by callers.
func mapDiscordErr(err error) error {
	var rl *discordgo.RateLimitError
	if errors.As(err, &rl) {
		return &RateLimitedError{RetryAfter: rl.RetryAfter}
	}
	if errors.Is(err, discordgo.ErrUnauthorized) {
		return ErrUnauthorized
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		switch rest.Response.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return ErrUnauthorized
		case http.StatusNotFound:
			return ErrNotFound
		}
	}
	return err
}
