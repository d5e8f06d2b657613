package store

import (
	"sync"

	"github.com/samber/lo"

	"github.com/eamwealth/backoffice-chat/internal/domain"
)

// MessageStore keeps the per-session ordered message log, merging
// optimistic local entries with server-confirmed ones.
type MessageStore struct {
	mu   sync.RWMutex
	logs map[string][]domain.Message
}

func NewMessageStore() *MessageStore {
	return &MessageStore{
		logs: make(map[string][]domain.Message),
	}
}

// Append adds a message to a session's log. When an existing entry
// matches by server id or by correlation id, the message replaces it at
// its current position instead of appending a duplicate; this is how a
// server echo of an optimistic send is reconciled.
func (s *MessageStore) Append(sessionID string, msg domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.logs[sessionID]
	_, i, found := lo.FindIndexOf(entries, func(m domain.Message) bool {
		if msg.ID != "" && m.ID == msg.ID {
			return true
		}
		return msg.ClientSideID != "" && m.ClientSideID == msg.ClientSideID
	})
	if found {
		entries[i] = msg
		return
	}

	s.logs[sessionID] = append(entries, msg)
}

// SetHistory replaces a session's full log. The server returns history
// in either chronological direction; it is normalized to ascending
// creation time before storing.
func (s *MessageStore) SetHistory(sessionID string, msgs []domain.Message) {
	entries := make([]domain.Message, len(msgs))
	copy(entries, msgs)

	if len(entries) > 1 && entries[0].CreatedAt.After(entries[len(entries)-1].CreatedAt) {
		lo.Reverse(entries)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[sessionID] = entries
}

// Remove drops the entry matching a correlation id from a session's
// log, undoing an optimistic append whose frame never went out.
func (s *MessageStore) Remove(sessionID, clientSideID string) {
	if clientSideID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs[sessionID] = lo.Reject(s.logs[sessionID], func(m domain.Message, _ int) bool {
		return m.ClientSideID == clientSideID
	})
}

// Get returns the ordered log for a session, empty if none was loaded.
func (s *MessageStore) Get(sessionID string) []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.logs[sessionID]
	out := make([]domain.Message, len(entries))
	copy(out, entries)
	return out
}
