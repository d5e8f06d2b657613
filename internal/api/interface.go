package api

import (
	"context"

	"github.com/eamwealth/backoffice-chat/internal/domain"
)

// Client is the request/response contract with the platform's chat
// endpoints. History direction is unspecified; callers normalize.
type Client interface {
	// ListSessions fetches the operator's full session list.
	ListSessions(ctx context.Context) ([]domain.Session, error)

	// MessageHistory fetches the message log for one session.
	MessageHistory(ctx context.Context, sessionID string) ([]domain.Message, error)

	// MarkRead acknowledges a session as read. Idempotent.
	MarkRead(ctx context.Context, sessionID string) error
}
