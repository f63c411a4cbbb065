package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/terrawatt/terrawatt/internal/infrastructure/database/models"
)

// ErrNotConnected is returned by send operations while the channel has no
// open socket. Nothing is queued; callers re-issue after reconnect.
var ErrNotConnected = errors.New("channel is not connected")

// ChannelState reflects the socket lifecycle.
type ChannelState string

const (
	StateConnecting ChannelState = "connecting"
	StateOpen       ChannelState = "open"
	StateClosed     ChannelState = "closed"
)

// Events carries one typed callback per server frame. Nil callbacks are
// skipped. Disconnected fires once, after the reconnection budget is spent.
type Events struct {
	ConnectionEstablished func(ConnectionEstablishedPayload)
	NewMessage            func(models.TaskMessage)
	MessageSent           func(models.TaskMessage)
	JoinedTask            func(JoinedTaskPayload)
	LeftTask              func(LeftTaskPayload)
	MessagesHistory       func(MessagesHistoryPayload)
	Error                 func(ErrorPayload)
	Pong                  func()
	Reconnected           func(attempt int)
	Disconnected          func(err error)
}

// ChannelConfig configures one client session. Every knob is injected so
// tests can run many simulated sessions in-process.
type ChannelConfig struct {
	URL                  string        // ws:// or wss:// endpoint
	Token                string        // bearer credential, carried as a query parameter
	MaxReconnectAttempts int           // default 5
	BaseReconnectDelay   time.Duration // default 1s; attempt n waits base*n
	Events               Events
	Dialer               *websocket.Dialer
}

// Channel is the client side of the realtime protocol: one socket per
// session, automatic reconnection on abnormal closure, at most one joined
// task at a time.
type Channel struct {
	cfg    ChannelConfig
	dialer *websocket.Dialer

	mu            sync.Mutex
	conn          *websocket.Conn
	state         ChannelState
	currentTaskID *uuid.UUID
	closed        bool          // intentional disconnect
	quit          chan struct{} // closed by Disconnect, cancels reconnection
}

// NewChannel creates a channel; no network activity until Connect.
func NewChannel(cfg ChannelConfig) *Channel {
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = 5
	}
	if cfg.BaseReconnectDelay <= 0 {
		cfg.BaseReconnectDelay = time.Second
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &Channel{
		cfg:    cfg,
		dialer: dialer,
		state:  StateClosed,
		quit:   make(chan struct{}),
	}
}

// State returns the current socket state.
func (ch *Channel) State() ChannelState {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.state
}

// Connect dials the endpoint and starts the read loop. The credential rides
// on the connection URL; a rejected credential fails the dial outright.
func (ch *Channel) Connect(ctx context.Context) error {
	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		return errors.New("channel has been disconnected")
	}
	if ch.state == StateOpen {
		ch.mu.Unlock()
		return nil
	}
	ch.state = StateConnecting
	ch.mu.Unlock()

	if err := ch.dial(ctx); err != nil {
		ch.mu.Lock()
		ch.state = StateClosed
		ch.mu.Unlock()
		return err
	}
	return nil
}

func (ch *Channel) dial(ctx context.Context) error {
	url := fmt.Sprintf("%s?token=%s", ch.cfg.URL, ch.cfg.Token)
	conn, _, err := ch.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	ch.mu.Lock()
	// Disconnect may have run while the handshake was in flight; an
	// intentionally closed channel must not come back open.
	if ch.closed {
		ch.mu.Unlock()
		conn.Close()
		return errors.New("channel has been disconnected")
	}
	ch.conn = conn
	ch.state = StateOpen
	ch.mu.Unlock()

	go ch.readLoop(conn)
	return nil
}

// Disconnect closes the socket intentionally: no reconnection, pending
// reconnect attempts are cancelled, joined-task state is cleared.
func (ch *Channel) Disconnect() {
	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		return
	}
	ch.closed = true
	ch.state = StateClosed
	ch.currentTaskID = nil
	conn := ch.conn
	ch.conn = nil
	close(ch.quit)
	ch.mu.Unlock()

	if conn != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}
}

func (ch *Channel) readLoop(conn *websocket.Conn) {
	var readErr error
	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			readErr = err
			break
		}
		ch.handleFrame(frame)
	}

	ch.mu.Lock()
	if ch.closed || ch.conn != conn {
		// Intentional close, or this socket was already replaced.
		ch.mu.Unlock()
		return
	}
	ch.conn = nil
	ch.state = StateConnecting
	ch.mu.Unlock()

	ch.reconnect(readErr)
}

// reconnect retries with a delay growing linearly in the attempt number
// (base, 2*base, ...) until success, cancellation, or budget exhaustion.
func (ch *Channel) reconnect(cause error) {
	for attempt := 1; attempt <= ch.cfg.MaxReconnectAttempts; attempt++ {
		select {
		case <-time.After(ch.cfg.BaseReconnectDelay * time.Duration(attempt)):
		case <-ch.quit:
			return
		}

		err := ch.dial(context.Background())
		if err != nil {
			cause = err
			continue
		}

		if ch.cfg.Events.Reconnected != nil {
			ch.cfg.Events.Reconnected(attempt)
		}
		// Restore the task subscription the old socket held.
		if taskID := ch.joinedTask(); taskID != nil {
			_ = ch.JoinTask(*taskID, 0, 0)
		}
		return
	}

	ch.mu.Lock()
	closed := ch.closed
	ch.state = StateClosed
	ch.mu.Unlock()

	// An intentional disconnect during the final attempt is not an exhaustion.
	if !closed && ch.cfg.Events.Disconnected != nil {
		ch.cfg.Events.Disconnected(cause)
	}
}

func (ch *Channel) handleFrame(frame Frame) {
	events := ch.cfg.Events
	switch frame.Type {
	case FrameConnectionEstablished:
		var payload ConnectionEstablishedPayload
		if frame.Decode(&payload) == nil && events.ConnectionEstablished != nil {
			events.ConnectionEstablished(payload)
		}
	case FrameNewMessage:
		var message models.TaskMessage
		if frame.Decode(&message) == nil && events.NewMessage != nil {
			events.NewMessage(message)
		}
	case FrameMessageSent:
		var message models.TaskMessage
		if frame.Decode(&message) == nil && events.MessageSent != nil {
			events.MessageSent(message)
		}
	case FrameJoinedTask:
		var payload JoinedTaskPayload
		if frame.Decode(&payload) == nil {
			ch.setJoinedTask(&payload.TaskID)
			if events.JoinedTask != nil {
				events.JoinedTask(payload)
			}
		}
	case FrameLeftTask:
		var payload LeftTaskPayload
		if frame.Decode(&payload) == nil {
			ch.setJoinedTask(nil)
			if events.LeftTask != nil {
				events.LeftTask(payload)
			}
		}
	case FrameMessagesHistory:
		var payload MessagesHistoryPayload
		if frame.Decode(&payload) == nil && events.MessagesHistory != nil {
			events.MessagesHistory(payload)
		}
	case FrameError:
		var payload ErrorPayload
		if frame.Decode(&payload) == nil && events.Error != nil {
			events.Error(payload)
		}
	case FramePong:
		if events.Pong != nil {
			events.Pong()
		}
	}
}

func (ch *Channel) joinedTask() *uuid.UUID {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.currentTaskID
}

func (ch *Channel) setJoinedTask(taskID *uuid.UUID) {
	ch.mu.Lock()
	ch.currentTaskID = taskID
	ch.mu.Unlock()
}

// Send writes one frame. It fails immediately while disconnected; there is
// no store-and-forward buffering.
func (ch *Channel) Send(frame Frame) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.state != StateOpen || ch.conn == nil {
		return ErrNotConnected
	}
	if err := ch.conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("failed to send frame: %w", err)
	}
	return nil
}

// JoinTask subscribes to a task room and requests recent history.
func (ch *Channel) JoinTask(taskID uuid.UUID, limit, offset int) error {
	frame, err := NewFrame(FrameJoinTask, JoinTaskPayload{TaskID: taskID, Limit: limit, Offset: offset})
	if err != nil {
		return err
	}
	return ch.Send(frame)
}

// LeaveTask drops the task subscription.
func (ch *Channel) LeaveTask(taskID uuid.UUID) error {
	frame, err := NewFrame(FrameLeaveTask, LeaveTaskPayload{TaskID: taskID})
	if err != nil {
		return err
	}
	return ch.Send(frame)
}

// SendMessage posts into the joined task room.
func (ch *Channel) SendMessage(taskID uuid.UUID, content string, recipientID *uuid.UUID, urgent bool) error {
	frame, err := NewFrame(FrameSendMessage, SendMessagePayload{
		TaskID:      taskID,
		Content:     content,
		RecipientID: recipientID,
		IsUrgent:    urgent,
	})
	if err != nil {
		return err
	}
	return ch.Send(frame)
}

// GetMessages requests a history page for a task.
func (ch *Channel) GetMessages(taskID uuid.UUID, limit, offset int) error {
	frame, err := NewFrame(FrameGetMessages, GetMessagesPayload{TaskID: taskID, Limit: limit, Offset: offset})
	if err != nil {
		return err
	}
	return ch.Send(frame)
}

// MarkRead acknowledges a message.
func (ch *Channel) MarkRead(messageID uuid.UUID) error {
	frame, err := NewFrame(FrameMarkRead, MarkReadPayload{MessageID: messageID})
	if err != nil {
		return err
	}
	return ch.Send(frame)
}

// Ping sends a liveness check; the server answers with pong.
func (ch *Channel) Ping() error {
	return ch.Send(Frame{Type: FramePing})
}
