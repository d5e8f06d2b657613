package domain

import "time"

// Session is one conversation thread between a client and the operator
// side, with the denormalized preview the session list renders.
type Session struct {
	ID            string    `json:"session_id"`
	ClientName    string    `json:"client_name"`
	LastMessage   string    `json:"last_message"`
	LastMessageAt time.Time `json:"last_message_at"`
	UnreadCount   int       `json:"unread_count"`
}
