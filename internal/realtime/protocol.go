package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/terrawatt/terrawatt/internal/infrastructure/database/models"
)

// FrameType discriminates every frame on the wire.
type FrameType string

const (
	// Client to server
	FrameSendMessage FrameType = "send_message"
	FrameJoinTask    FrameType = "join_task"
	FrameLeaveTask   FrameType = "leave_task"
	FrameGetMessages FrameType = "get_messages"
	FrameMarkRead    FrameType = "mark_read"
	FramePing        FrameType = "ping"

	// Server to client
	FrameConnectionEstablished FrameType = "connection_established"
	FrameNewMessage            FrameType = "new_message"
	FrameMessageSent           FrameType = "message_sent"
	FrameJoinedTask            FrameType = "joined_task"
	FrameLeftTask              FrameType = "left_task"
	FrameMessagesHistory       FrameType = "messages_history"
	FrameError                 FrameType = "error"
	FramePong                  FrameType = "pong"
)

// Frame is the JSON envelope carried over the socket. Data is decoded into
// the payload type matching Type; dispatch is by typed payload, never by
// poking at raw maps.
type Frame struct {
	Type FrameType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Decode unmarshals the frame payload into v.
func (f Frame) Decode(v interface{}) error {
	if len(f.Data) == 0 {
		return fmt.Errorf("frame %s has no payload", f.Type)
	}
	if err := json.Unmarshal(f.Data, v); err != nil {
		return fmt.Errorf("invalid %s payload: %w", f.Type, err)
	}
	return nil
}

// NewFrame wraps a typed payload into a frame.
func NewFrame(t FrameType, payload interface{}) (Frame, error) {
	if payload == nil {
		return Frame{Type: t}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to encode %s payload: %w", t, err)
	}
	return Frame{Type: t, Data: data}, nil
}

// mustFrame is for server-built frames whose payloads always marshal.
func mustFrame(t FrameType, payload interface{}) Frame {
	frame, err := NewFrame(t, payload)
	if err != nil {
		panic(err)
	}
	return frame
}

// Client to server payloads

type SendMessagePayload struct {
	TaskID      uuid.UUID  `json:"task_id"`
	Content     string     `json:"content"`
	RecipientID *uuid.UUID `json:"recipient_id,omitempty"`
	IsUrgent    bool       `json:"is_urgent,omitempty"`
}

type JoinTaskPayload struct {
	TaskID uuid.UUID `json:"task_id"`
	Limit  int       `json:"limit,omitempty"`
	Offset int       `json:"offset,omitempty"`
}

type LeaveTaskPayload struct {
	TaskID uuid.UUID `json:"task_id"`
}

type GetMessagesPayload struct {
	TaskID uuid.UUID `json:"task_id"`
	Limit  int       `json:"limit,omitempty"`
	Offset int       `json:"offset,omitempty"`
}

type MarkReadPayload struct {
	MessageID uuid.UUID `json:"message_id"`
}

// Server to client payloads

type ConnectionEstablishedPayload struct {
	UserID uuid.UUID `json:"user_id"`
}

type JoinedTaskPayload struct {
	TaskID   uuid.UUID            `json:"task_id"`
	Messages []models.TaskMessage `json:"messages"`
}

type LeftTaskPayload struct {
	TaskID uuid.UUID `json:"task_id"`
}

type MessagesHistoryPayload struct {
	TaskID   uuid.UUID            `json:"task_id"`
	Messages []models.TaskMessage `json:"messages"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
