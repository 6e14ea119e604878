package cleanup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dennisimoo/DiscordMessageMigrator/internal/dispatch"
	"github.com/dennisimoo/DiscordMessageMigrator/internal/platform"
)

// The original cleanup pass scanned at most 500 messages of history.
const (
	DefaultPageSize    = 100
	DefaultMaxMessages = 500
)

// Predicate decides whether a listed message becomes a delete job.
type Predicate func(platform.Message) bool

// Everything matches all messages.
func Everything(platform.Message) bool { return true }

// OnlySelf matches only messages the authenticated bot posted itself.
func OnlySelf(cap platform.Capability) Predicate {
	selfID := cap.SelfID()
	return func(m platform.Message) bool {
		return m.AuthorID == selfID
	}
}

// Planner enumerates a channel's existing messages and turns the ones
// matching a predicate into delete jobs. It deletes nothing itself; the
// job sequence is handed to the dispatcher.
type Planner struct {
	Capability  platform.Capability
	ChannelID   string
	PageSize    int // per listing page, capped by the platform limit
	MaxMessages int // scan ceiling, 0 means DefaultMaxMessages; -1 unbounded
}

// Plan paginates channel history newest-first and returns delete jobs in
// listing order. Pagination stops on a short page, an exhausted cursor, or
// the scan ceiling.
func (p *Planner) Plan(ctx context.Context, keep Predicate) ([]dispatch.Job, error) {
	pageSize := p.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	maxMessages := p.MaxMessages
	if maxMessages == 0 {
		maxMessages = DefaultMaxMessages
	}
	if keep == nil {
		keep = Everything
	}

	var matched []platform.Message
	scanned := 0
	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		limit := pageSize
		if maxMessages > 0 && scanned+limit > maxMessages {
			limit = maxMessages - scanned
		}
		page, next, err := p.Capability.History(ctx, p.ChannelID, limit, cursor)
		if err != nil {
			return nil, fmt.Errorf("failed to list channel history: %w", err)
		}
		scanned += len(page)
		for _, m := range page {
			if keep(m) {
				matched = append(matched, m)
			}
		}
		if len(page) < limit || next == "" {
			break
		}
		if maxMessages > 0 && scanned >= maxMessages {
			break
		}
		cursor = next
	}

	slog.Info("cleanup: plan built", "scanned", scanned, "matched", len(matched), "channel", p.ChannelID)
	return dispatch.DeleteJobs(matched), nil
}
