package directory

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/eamwealth/backoffice-chat/internal/api"
	"github.com/eamwealth/backoffice-chat/internal/domain"
	"github.com/eamwealth/backoffice-chat/pkg/log"
)

// Directory is the conversation list, kept sorted by most recent
// traffic. Fetch failures leave the last known state in place so the
// list never goes blank on a transient error.
type Directory struct {
	api    api.Client
	logger zerolog.Logger

	mu       sync.RWMutex
	sessions []domain.Session
}

func New(apiClient api.Client) *Directory {
	return &Directory{
		api:    apiClient,
		logger: log.L().With().Str("component", "directory").Logger(),
	}
}

// Refresh replaces the session list with the server's. On failure the
// previous list is kept.
func (d *Directory) Refresh(ctx context.Context) {
	sessions, err := d.api.ListSessions(ctx)
	if err != nil {
		d.logger.Warn().Err(err).Msg("session list refresh failed, keeping last known state")
		return
	}

	d.mu.Lock()
	d.sessions = sessions
	d.sortLocked()
	d.mu.Unlock()
}

// Sessions returns the current list, most recently active first.
func (d *Directory) Sessions() []domain.Session {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]domain.Session, len(d.sessions))
	copy(out, d.sessions)
	return out
}

// ApplyInbound folds an inbound message into the matching session's
// preview and unread count and moves it to the front. seen marks the
// message as already on screen (focused session, chat surface open), in
// which case the unread count is left alone. An unknown session id
// triggers a full refresh instead.
func (d *Directory) ApplyInbound(ctx context.Context, msg domain.Message, seen bool) {
	d.mu.Lock()

	_, i, found := lo.FindIndexOf(d.sessions, func(s domain.Session) bool {
		return s.ID == msg.SessionID
	})
	if !found {
		d.mu.Unlock()
		d.logger.Info().Str(log.FieldSessionID, msg.SessionID).Msg("message for unknown session, refreshing list")
		d.Refresh(ctx)
		return
	}

	d.sessions[i].LastMessage = msg.Preview()
	d.sessions[i].LastMessageAt = msg.CreatedAt
	if !seen {
		d.sessions[i].UnreadCount++
	}
	d.sortLocked()
	d.mu.Unlock()
}

// MarkRead acknowledges the session on the server, then zeroes its
// unread count. A failed acknowledgment leaves the count unchanged.
func (d *Directory) MarkRead(ctx context.Context, sessionID string) {
	if err := d.api.MarkRead(ctx, sessionID); err != nil {
		d.logger.Warn().Err(err).Str(log.FieldSessionID, sessionID).Msg("read receipt failed")
		return
	}

	d.mu.Lock()
	_, i, found := lo.FindIndexOf(d.sessions, func(s domain.Session) bool {
		return s.ID == sessionID
	})
	if found {
		d.sessions[i].UnreadCount = 0
	}
	d.mu.Unlock()
}

// UnreadTotal is the badge count across all sessions.
func (d *Directory) UnreadTotal() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return lo.SumBy(d.sessions, func(s domain.Session) int { return s.UnreadCount })
}

func (d *Directory) sortLocked() {
	sort.SliceStable(d.sessions, func(i, j int) bool {
		return d.sessions[i].LastMessageAt.After(d.sessions[j].LastMessageAt)
	})
}
