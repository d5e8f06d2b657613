package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/eamwealth/backoffice-chat/internal/api"
	"github.com/eamwealth/backoffice-chat/internal/auth"
	"github.com/eamwealth/backoffice-chat/internal/config"
	"github.com/eamwealth/backoffice-chat/internal/directory"
	"github.com/eamwealth/backoffice-chat/internal/domain"
	"github.com/eamwealth/backoffice-chat/internal/store"
	"github.com/eamwealth/backoffice-chat/internal/transport"
	"github.com/eamwealth/backoffice-chat/pkg/log"
)

var ErrNoActiveSession = errors.New("no active session selected")

// ErrNotConnected is surfaced to the caller when a send is attempted
// while the realtime connection is down. There is no retry queue; the
// user resends.
var ErrNotConnected = transport.ErrNotConnected

type event interface{}

type frameEvent struct{ frame domain.Frame }
type stateEvent struct{ state transport.State }

// Controller orchestrates the chat core: it owns the one realtime
// connection per authenticated operator, the message store and the
// session directory, and tracks which session has focus and whether
// the chat surface is open. Inbound frames and state changes arrive on
// a single-consumer queue; user operations serialize against the same
// mutex the consumer holds, so all chat state mutates one event at a
// time.
type Controller struct {
	logger  zerolog.Logger
	apiBase string
	tokens  auth.TokenSource

	api   api.Client
	conn  transport.Connection
	store *store.MessageStore
	dir   *directory.Directory

	events   chan event
	done     chan struct{}
	stopOnce sync.Once

	mu        sync.Mutex
	focusedID string
	open      bool
}

func New(cfg *config.Config, apiClient api.Client, tokens auth.TokenSource) *Controller {
	c := newController(cfg.API.BaseURL, apiClient, tokens)
	c.conn = transport.NewWSConnection(cfg.WebSocket, c.enqueueFrame, c.enqueueState)
	return c
}

func newController(apiBase string, apiClient api.Client, tokens auth.TokenSource) *Controller {
	return &Controller{
		logger:  log.L().With().Str("component", "controller").Logger(),
		apiBase: apiBase,
		tokens:  tokens,
		api:     apiClient,
		store:   store.NewMessageStore(),
		dir:     directory.New(apiClient),
		events:  make(chan event, 256),
		done:    make(chan struct{}),
	}
}

// Start connects the realtime transport and loads the initial session
// list. Without a usable token the transport stays down; the REST
// surface still works and a later Start on re-login reconnects.
func (c *Controller) Start(ctx context.Context) {
	token := c.tokens()
	if ident, err := auth.Inspect(token); err != nil {
		c.logger.Warn().Err(err).Msg("realtime connect skipped")
		token = ""
	} else {
		c.logger = c.logger.With().
			Str(log.FieldOperatorID, ident.OperatorID).
			Str(log.FieldTenantID, ident.TenantID).
			Logger()
	}

	go c.run(ctx)
	c.conn.Connect(c.apiBase, token)
	c.dir.Refresh(ctx)
}

// Stop tears the controller down: the event loop exits and the
// transport closes without reconnecting.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *Controller) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case ev := <-c.events:
			switch ev := ev.(type) {
			case frameEvent:
				c.handleFrame(ctx, ev.frame)
			case stateEvent:
				c.handleState(ev.state)
			}
		}
	}
}

func (c *Controller) enqueueFrame(frame domain.Frame) {
	select {
	case c.events <- frameEvent{frame}:
	case <-c.done:
	}
}

func (c *Controller) enqueueState(state transport.State) {
	select {
	case c.events <- stateEvent{state}:
	case <-c.done:
	}
}

func (c *Controller) handleFrame(ctx context.Context, frame domain.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch frame.Type {
	case domain.FrameTypeMessage:
		msg, err := domain.DecodeMessage(frame)
		if err != nil {
			c.logger.Warn().Err(err).Msg("dropping malformed message frame")
			return
		}
		// Replaces a pending optimistic entry when the correlation id
		// matches, otherwise appends.
		c.store.Append(msg.SessionID, msg)
		seen := c.open && c.focusedID == msg.SessionID
		c.dir.ApplyInbound(ctx, msg, seen)

	default:
		c.logger.Debug().Str(log.FieldFrameType, frame.Type).Msg("unhandled frame type")
	}
}

func (c *Controller) handleState(state transport.State) {
	c.logger.Info().Str(log.FieldState, state.String()).Msg("transport state changed")
}

// SelectSession focuses a session: its history is fetched and the
// session is acknowledged as read. An empty id clears focus back to
// the list view with no side effects.
func (c *Controller) SelectSession(ctx context.Context, sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sessionID == "" {
		c.focusedID = ""
		return
	}

	c.focusedID = sessionID

	history, err := c.api.MessageHistory(ctx, sessionID)
	if err != nil {
		c.logger.Warn().Err(err).Str(log.FieldSessionID, sessionID).Msg("history fetch failed, keeping last known log")
	} else {
		c.store.SetHistory(sessionID, history)
	}

	c.dir.MarkRead(ctx, sessionID)
}

// SendMessage sends to the focused session with optimistic local echo.
// It requires focus and a connected transport; otherwise it surfaces a
// connectivity error and changes nothing.
func (c *Controller) SendMessage(content string, kind domain.ContentKind) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked(content, kind)
}

// SendAttachment sends raw attachment bytes' textual reference (an
// upload URL or name) with the content kind sniffed from the bytes.
func (c *Controller) SendAttachment(content string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked(content, domain.DetectKind(data))
}

func (c *Controller) sendLocked(content string, kind domain.ContentKind) error {
	if c.focusedID == "" {
		return ErrNoActiveSession
	}
	if c.conn.State() != transport.StateConnected {
		return ErrNotConnected
	}

	if kind == "" {
		kind = domain.KindText
	}

	msg := domain.Message{
		SessionID:    c.focusedID,
		Sender:       domain.SenderOperator,
		Content:      content,
		Kind:         kind,
		CreatedAt:    time.Now().UTC(),
		ClientSideID: uuid.NewString(),
	}

	frame, err := domain.NewMessageFrame(msg)
	if err != nil {
		return err
	}

	c.store.Append(msg.SessionID, msg)

	if err := c.conn.Send(frame); err != nil {
		// No frame went out, so the optimistic entry comes back out too.
		c.store.Remove(msg.SessionID, msg.ClientSideID)
		c.logger.Warn().Err(err).Str(log.FieldCorrelationID, msg.ClientSideID).Msg("send failed")
		return err
	}

	c.logger.Debug().
		Str(log.FieldSessionID, msg.SessionID).
		Str(log.FieldCorrelationID, msg.ClientSideID).
		Msg("message sent")
	return nil
}

// RefreshSessions re-fetches the session list.
func (c *Controller) RefreshSessions(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dir.Refresh(ctx)
}

// ToggleOpen flips the chat surface visibility and reports the new
// state.
func (c *Controller) ToggleOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = !c.open
	return c.open
}

// Hide closes the chat surface. The realtime connection stays up.
func (c *Controller) Hide() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
}

func (c *Controller) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *Controller) FocusedSession() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focusedID
}

// Messages returns the ordered log for a session.
func (c *Controller) Messages(sessionID string) []domain.Message {
	return c.store.Get(sessionID)
}

// Sessions returns the directory, most recently active first.
func (c *Controller) Sessions() []domain.Session {
	return c.dir.Sessions()
}

// UnreadTotal is the badge count across all sessions.
func (c *Controller) UnreadTotal() int {
	return c.dir.UnreadTotal()
}

// ConnState reports the transport state for the UI indicator.
func (c *Controller) ConnState() transport.State {
	return c.conn.State()
}
