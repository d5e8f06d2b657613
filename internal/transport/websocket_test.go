package transport

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/eamwealth/backoffice-chat/internal/config"
	"github.com/eamwealth/backoffice-chat/internal/domain"
)

func testWSConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		PingInterval:   50 * time.Millisecond,
		PongWait:       2 * time.Second,
		WriteWait:      time.Second,
		MaxMessageSize: 4096,
		ReconnectDelay: 100 * time.Millisecond,
	}
}

// wsServer upgrades every request and hands the connection to handle.
// dials counts accepted connections.
func wsServer(t *testing.T, dials *atomic.Int32, handle func(*websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		dials.Add(1)
		handle(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// readUntilClosed keeps the server side reading so pings are answered.
func readUntilClosed(conn *websocket.Conn) {
	defer conn.Close()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func waitState(t *testing.T, states <-chan State, want State) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case s := <-states:
			if s == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %v", want)
		}
	}
}

func Test_Connect_And_Receive_Frame(t *testing.T) {
	req := require.New(t)
	var dials atomic.Int32

	srv := wsServer(t, &dials, func(conn *websocket.Conn) {
		defer conn.Close()
		err := conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"type":"message","data":{"session_id":"s1","content":"hi"}}`))
		if err != nil {
			return
		}
		readUntilClosed(conn)
	})

	frames := make(chan domain.Frame, 16)
	states := make(chan State, 16)
	c := NewWSConnection(testWSConfig(),
		func(f domain.Frame) { frames <- f },
		func(s State) { states <- s })
	defer c.Close()

	c.Connect(srv.URL, "token-1")
	waitState(t, states, StateConnected)

	select {
	case f := <-frames:
		req.Equal(domain.FrameTypeMessage, f.Type)
		m, err := domain.DecodeMessage(f)
		req.NoError(err)
		req.Equal("s1", m.SessionID)
	case <-time.After(3 * time.Second):
		t.Fatal("no frame received")
	}
}

func Test_Undecodable_Frame_Is_Dropped_Not_Fatal(t *testing.T) {
	req := require.New(t)
	var dials atomic.Int32

	srv := wsServer(t, &dials, func(conn *websocket.Conn) {
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`{{{not json`))
		conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"type":"message","data":{"session_id":"s1","content":"still alive"}}`))
		readUntilClosed(conn)
	})

	frames := make(chan domain.Frame, 16)
	states := make(chan State, 16)
	c := NewWSConnection(testWSConfig(),
		func(f domain.Frame) { frames <- f },
		func(s State) { states <- s })
	defer c.Close()

	c.Connect(srv.URL, "token-1")
	waitState(t, states, StateConnected)

	select {
	case f := <-frames:
		m, err := domain.DecodeMessage(f)
		req.NoError(err)
		req.Equal("still alive", m.Content)
	case <-time.After(3 * time.Second):
		t.Fatal("connection did not survive the bad frame")
	}
}

func Test_Send_Reaches_Server(t *testing.T) {
	req := require.New(t)
	var dials atomic.Int32
	received := make(chan []byte, 1)

	srv := wsServer(t, &dials, func(conn *websocket.Conn) {
		defer conn.Close()
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		received <- raw
		readUntilClosed(conn)
	})

	states := make(chan State, 16)
	c := NewWSConnection(testWSConfig(), nil, func(s State) { states <- s })
	defer c.Close()

	c.Connect(srv.URL, "token-1")
	waitState(t, states, StateConnected)

	frame, err := domain.NewMessageFrame(domain.Message{
		SessionID:    "s1",
		Content:      "hello",
		Kind:         domain.KindText,
		ClientSideID: "c1",
	})
	req.NoError(err)
	req.NoError(c.Send(frame))

	select {
	case raw := <-received:
		f, err := domain.DecodeFrame(raw)
		req.NoError(err)
		req.Equal(domain.FrameTypeMessage, f.Type)
	case <-time.After(3 * time.Second):
		t.Fatal("server never received the frame")
	}
}

func Test_Send_While_Disconnected_Is_Rejected(t *testing.T) {
	c := NewWSConnection(testWSConfig(), nil, nil)
	err := c.Send(domain.Frame{Type: domain.FrameTypeMessage})
	require.ErrorIs(t, err, ErrNotConnected)
}

func Test_Reconnects_Exactly_Once_After_Drop(t *testing.T) {
	req := require.New(t)
	var dials atomic.Int32

	srv := wsServer(t, &dials, func(conn *websocket.Conn) {
		if dials.Load() == 1 {
			// Drop the first connection immediately.
			conn.Close()
			return
		}
		readUntilClosed(conn)
	})

	states := make(chan State, 16)
	c := NewWSConnection(testWSConfig(), nil, func(s State) { states <- s })
	defer c.Close()

	c.Connect(srv.URL, "token-1")
	waitState(t, states, StateConnected)
	waitState(t, states, StateDisconnected)
	waitState(t, states, StateConnected)

	// One drop, one redial; nothing further while the link is healthy.
	time.Sleep(4 * testWSConfig().ReconnectDelay)
	req.Equal(int32(2), dials.Load())
}

func Test_Close_Cancels_Pending_Reconnect(t *testing.T) {
	req := require.New(t)
	var dials atomic.Int32

	srv := wsServer(t, &dials, func(conn *websocket.Conn) {
		conn.Close()
	})

	states := make(chan State, 16)
	c := NewWSConnection(testWSConfig(), nil, func(s State) { states <- s })

	c.Connect(srv.URL, "token-1")
	waitState(t, states, StateConnected)
	waitState(t, states, StateDisconnected)

	// Close before the backoff elapses; the scheduled attempt must not fire.
	c.Close()
	time.Sleep(4 * testWSConfig().ReconnectDelay)

	req.Equal(int32(1), dials.Load())
	req.Equal(StateDisconnected, c.State())
}

func Test_Connect_Without_Token_Is_A_Noop(t *testing.T) {
	req := require.New(t)
	var dials atomic.Int32

	srv := wsServer(t, &dials, readUntilClosed)

	c := NewWSConnection(testWSConfig(), nil, nil)
	c.Connect(srv.URL, "")

	time.Sleep(100 * time.Millisecond)
	req.Equal(int32(0), dials.Load())
	req.Equal(StateDisconnected, c.State())
}

func Test_Superseding_Connect_Closes_Previous(t *testing.T) {
	req := require.New(t)
	var dials atomic.Int32

	srv := wsServer(t, &dials, readUntilClosed)

	states := make(chan State, 16)
	c := NewWSConnection(testWSConfig(), nil, func(s State) { states <- s })
	defer c.Close()

	c.Connect(srv.URL, "token-1")
	waitState(t, states, StateConnected)

	c.Connect(srv.URL, "token-2")
	waitState(t, states, StateConnected)

	req.Equal(int32(2), dials.Load())
	req.Equal(StateConnected, c.State())
}
