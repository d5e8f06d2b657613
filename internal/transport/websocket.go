package transport

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/eamwealth/backoffice-chat/internal/config"
	"github.com/eamwealth/backoffice-chat/internal/domain"
	"github.com/eamwealth/backoffice-chat/pkg/log"
)

// State is the connection lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

var (
	ErrNotConnected = errors.New("transport not connected")
	ErrQueueFull    = errors.New("transport send queue full")
)

const defaultReconnectDelay = 3 * time.Second

// WSConnection is a websocket Connection with automatic reconnection.
// A dropped connection schedules exactly one redial after a fixed
// backoff; an explicit Close or a superseding Connect cancels it.
type WSConnection struct {
	cfg     config.WebSocketConfig
	logger  zerolog.Logger
	onFrame func(domain.Frame)
	onState func(State)

	mu       sync.Mutex
	conn     *websocket.Conn
	sendCh   chan []byte
	state    State
	retry    *time.Timer
	endpoint string
	closed   bool
	gen      uint64 // bumped on every connect/close; stale pumps and timers check it
}

func NewWSConnection(cfg config.WebSocketConfig, onFrame func(domain.Frame), onState func(State)) *WSConnection {
	return &WSConnection{
		cfg:     cfg,
		logger:  log.L().With().Str("component", "transport").Logger(),
		onFrame: onFrame,
		onState: onState,
	}
}

func (c *WSConnection) Connect(apiBase, token string) {
	if token == "" {
		c.logger.Debug().Msg("connect skipped, no token available")
		return
	}

	endpoint, err := Endpoint(apiBase, token)
	if err != nil {
		c.logger.Error().Err(err).Msg("cannot derive realtime endpoint")
		return
	}

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.closed = false
	c.endpoint = endpoint
	c.cancelRetryLocked()
	c.teardownLocked()
	c.state = StateConnecting
	c.mu.Unlock()

	c.notify(StateConnecting)
	go c.dial(gen)
}

func (c *WSConnection) dial(gen uint64) {
	c.mu.Lock()
	endpoint := c.endpoint
	c.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.Dial(endpoint, nil)

	c.mu.Lock()
	if gen != c.gen || c.closed {
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}

	if err != nil {
		c.logger.Warn().Err(err).Msg("dial failed")
		c.state = StateDisconnected
		c.scheduleRetryLocked(gen)
		c.mu.Unlock()
		c.notify(StateDisconnected)
		return
	}

	c.conn = conn
	c.sendCh = make(chan []byte, 256)
	c.state = StateConnected
	c.cancelRetryLocked()
	sendCh := c.sendCh
	c.mu.Unlock()

	c.logger.Info().Msg("realtime connection established")
	c.notify(StateConnected)

	go c.writePump(conn, sendCh)
	go c.readPump(gen, conn)
}

func (c *WSConnection) readPump(gen uint64, conn *websocket.Conn) {
	conn.SetReadLimit(c.cfg.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn().Err(err).Msg("read failed")
			}
			break
		}

		frame, err := domain.DecodeFrame(raw)
		if err != nil {
			// Undecodable frames are dropped, never fatal.
			c.logger.Warn().Err(err).Msg("dropping undecodable frame")
			continue
		}

		if c.onFrame != nil {
			c.onFrame(frame)
		}
	}

	c.handleDisconnect(gen)
}

func (c *WSConnection) writePump(conn *websocket.Conn, sendCh chan []byte) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case data, ok := <-sendCh:
			conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				// Returning closes the socket, which funnels write
				// errors through the read side's close path.
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WSConnection) handleDisconnect(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		// Superseded by a newer connect or an explicit close.
		c.mu.Unlock()
		return
	}

	c.teardownLocked()
	c.state = StateDisconnected
	if !c.closed {
		c.scheduleRetryLocked(gen)
	}
	c.mu.Unlock()

	c.notify(StateDisconnected)
}

func (c *WSConnection) Send(frame domain.Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateConnected || c.sendCh == nil {
		return ErrNotConnected
	}

	select {
	case c.sendCh <- data:
		return nil
	default:
		return ErrQueueFull
	}
}

func (c *WSConnection) Close() {
	c.mu.Lock()
	c.gen++
	c.closed = true
	c.cancelRetryLocked()
	c.teardownLocked()
	changed := c.state != StateDisconnected
	c.state = StateDisconnected
	c.mu.Unlock()

	if changed {
		c.notify(StateDisconnected)
	}
}

func (c *WSConnection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *WSConnection) scheduleRetryLocked(gen uint64) {
	if c.retry != nil {
		return // at most one attempt in flight
	}

	delay := c.cfg.ReconnectDelay
	if delay <= 0 {
		delay = defaultReconnectDelay
	}

	c.logger.Info().Dur("delay", delay).Msg("scheduling reconnect")
	c.retry = time.AfterFunc(delay, func() { c.redial(gen) })
}

func (c *WSConnection) redial(gen uint64) {
	c.mu.Lock()
	c.retry = nil
	if gen != c.gen || c.closed {
		c.mu.Unlock()
		return
	}

	c.gen++
	gen = c.gen
	c.state = StateConnecting
	c.mu.Unlock()

	c.notify(StateConnecting)
	c.dial(gen)
}

func (c *WSConnection) cancelRetryLocked() {
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
}

func (c *WSConnection) teardownLocked() {
	if c.sendCh != nil {
		close(c.sendCh)
		c.sendCh = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *WSConnection) notify(s State) {
	if c.onState != nil {
		c.onState(s)
	}
}
