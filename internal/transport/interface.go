package transport

import "github.com/eamwealth/backoffice-chat/internal/domain"

// Connection is the realtime link to the platform. Implementations own
// socket lifecycle only; chat state stays with the caller, which is
// notified through the frame and state callbacks.
type Connection interface {
	// Connect opens the realtime connection derived from the HTTP API
	// base. It is a silent no-op when no token is available. A live
	// connection, if any, is closed first.
	Connect(apiBase, token string)

	// Send serializes and transmits a frame. It is a caller error to
	// send while not connected; ErrNotConnected is returned and nothing
	// is queued.
	Send(frame domain.Frame) error

	// Close tears the connection down and cancels any pending
	// reconnect attempt. It does not auto-reconnect.
	Close()

	State() State
}
