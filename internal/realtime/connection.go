package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 32 * 1024
	sendBufferSize = 64
)

// Client is the server side of one websocket connection, bound 1:1 to the
// authenticated user for the life of the socket.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID uuid.UUID

	send chan Frame

	mu            sync.Mutex
	currentTaskID *uuid.UUID

	closeOnce sync.Once
}

// NewClient wraps an upgraded connection. Serve must be called to start the
// pumps.
func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan Frame, sendBufferSize),
	}
}

func (c *Client) joinedTask() *uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentTaskID
}

func (c *Client) setJoinedTask(taskID *uuid.UUID) {
	c.mu.Lock()
	c.currentTaskID = taskID
	c.mu.Unlock()
}

// queue enqueues a frame for delivery. A client that cannot drain its buffer
// is cut off rather than allowed to stall a room.
func (c *Client) queue(frame Frame) {
	select {
	case c.send <- frame:
	default:
		c.closeSlow("send buffer overflow")
	}
}

func (c *Client) closeSlow(reason string) {
	c.closeOnce.Do(func() {
		c.hub.log.Warn("Closing websocket client", "user_id", c.userID, "reason", reason)
		c.conn.Close()
	})
}

// Serve registers the client, starts the write pump and runs the read loop
// until the connection dies. It cleans up room membership on exit.
func (c *Client) Serve(ctx context.Context) {
	c.hub.register(c)
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	go c.writePump()

	c.queue(mustFrame(FrameConnectionEstablished, ConnectionEstablishedPayload{UserID: c.userID}))
	c.readPump(ctx)
}

func (c *Client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame Frame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Warn("Websocket read failed", "user_id", c.userID, "error", err)
			}
			return
		}
		c.dispatch(ctx, frame)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch routes one inbound frame to its handler. Failures go back to this
// client as error frames; they never tear the connection down.
func (c *Client) dispatch(ctx context.Context, frame Frame) {
	switch frame.Type {
	case FrameJoinTask:
		var payload JoinTaskPayload
		if err := frame.Decode(&payload); err != nil {
			c.sendError(err.Error())
			return
		}
		history, err := c.hub.join(ctx, c, payload.TaskID, payload.Limit, payload.Offset)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		c.queue(mustFrame(FrameJoinedTask, JoinedTaskPayload{TaskID: payload.TaskID, Messages: history}))

	case FrameLeaveTask:
		var payload LeaveTaskPayload
		if err := frame.Decode(&payload); err != nil {
			c.sendError(err.Error())
			return
		}
		c.hub.leave(c, payload.TaskID)
		c.queue(mustFrame(FrameLeftTask, LeftTaskPayload{TaskID: payload.TaskID}))

	case FrameSendMessage:
		var payload SendMessagePayload
		if err := frame.Decode(&payload); err != nil {
			c.sendError(err.Error())
			return
		}
		message, err := c.hub.sendMessage(ctx, c, payload)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		c.queue(mustFrame(FrameMessageSent, message))

	case FrameGetMessages:
		var payload GetMessagesPayload
		if err := frame.Decode(&payload); err != nil {
			c.sendError(err.Error())
			return
		}
		history, err := c.hub.history(ctx, payload.TaskID, payload.Limit, payload.Offset)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		c.queue(mustFrame(FrameMessagesHistory, MessagesHistoryPayload{TaskID: payload.TaskID, Messages: history}))

	case FrameMarkRead:
		var payload MarkReadPayload
		if err := frame.Decode(&payload); err != nil {
			c.sendError(err.Error())
			return
		}
		if err := c.hub.markRead(ctx, payload.MessageID); err != nil {
			c.sendError(err.Error())
		}

	case FramePing:
		c.queue(Frame{Type: FramePong})

	default:
		c.sendError("unknown frame type: " + string(frame.Type))
	}
}

func (c *Client) sendError(message string) {
	c.queue(mustFrame(FrameError, ErrorPayload{Message: message}))
}
