package domain

import (
	"encoding/json"
	"errors"
	"time"
)

// WebSocket frame types.
const (
	FrameTypeMessage = "message"
)

// Sender classifies who authored a message.
type Sender string

const (
	SenderOperator Sender = "operator"
	SenderClient   Sender = "client"
)

// ContentKind classifies message content.
type ContentKind string

const (
	KindText  ContentKind = "text"
	KindImage ContentKind = "image"
	KindFile  ContentKind = "file"
)

var ErrBadFrame = errors.New("malformed frame")

// Frame is the wire envelope exchanged over the realtime connection.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Message is one entry in a session's log. ID is server-assigned and
// empty on optimistic entries; ClientSideID is the client-generated
// correlation id used to match an optimistic entry to its confirmed
// counterpart.
type Message struct {
	ID           string      `json:"message_id,omitempty"`
	SessionID    string      `json:"session_id"`
	Sender       Sender      `json:"sender"`
	Content      string      `json:"content"`
	Kind         ContentKind `json:"content_type"`
	CreatedAt    time.Time   `json:"created_at"`
	ClientSideID string      `json:"client_side_id,omitempty"`
}

// outboundMessage is the payload of client-originated message frames.
type outboundMessage struct {
	SessionID    string      `json:"session_id"`
	Content      string      `json:"content"`
	ContentType  ContentKind `json:"content_type"`
	ClientSideID string      `json:"client_side_id"`
}

// NewMessageFrame builds the outbound frame for a message.
func NewMessageFrame(m Message) (Frame, error) {
	data, err := json.Marshal(outboundMessage{
		SessionID:    m.SessionID,
		Content:      m.Content,
		ContentType:  m.Kind,
		ClientSideID: m.ClientSideID,
	})
	if err != nil {
		return Frame{}, err
	}
	return Frame{Type: FrameTypeMessage, Data: data}, nil
}

// DecodeFrame parses an inbound frame. Older servers put the payload
// fields directly at the top level instead of under "data"; both shapes
// are accepted, so when "data" is absent the raw frame doubles as the
// payload.
func DecodeFrame(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, err
	}
	if f.Type == "" {
		return Frame{}, ErrBadFrame
	}
	if len(f.Data) == 0 {
		f.Data = raw
	}
	return f, nil
}

// DecodeMessage parses the payload of a message frame.
func DecodeMessage(f Frame) (Message, error) {
	var m Message
	if err := json.Unmarshal(f.Data, &m); err != nil {
		return Message{}, err
	}
	if m.SessionID == "" {
		return Message{}, ErrBadFrame
	}
	if m.Kind == "" {
		m.Kind = KindText
	}
	return m, nil
}

// Preview is the session-list preview text for a message: the content
// for text messages, a bracketed kind tag otherwise.
func (m Message) Preview() string {
	if m.Kind == KindText {
		return m.Content
	}
	return "[" + string(m.Kind) + "]"
}
