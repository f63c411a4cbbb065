package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/terrawatt/terrawatt/internal/domain/repositories"
	"github.com/terrawatt/terrawatt/internal/domain/services"
	"github.com/terrawatt/terrawatt/internal/infrastructure/database/models"
	"github.com/terrawatt/terrawatt/pkg/logger"
)

// Hub routes task messages between connected clients. Each task has a room
// holding its current subscriber set; fan-out happens under the room lock so
// every subscriber observes messages in persist order.
type Hub struct {
	taskRepo    repositories.ReviewTaskRepository
	messageRepo repositories.TaskMessageRepository
	cache       services.CacheService // optional, nil disables presence tracking
	log         *logger.Logger

	mu    sync.RWMutex
	rooms map[uuid.UUID]*taskRoom
	conns map[uuid.UUID]*Client // one connection per user
}

// NewHub creates a new hub instance
func NewHub(taskRepo repositories.ReviewTaskRepository, messageRepo repositories.TaskMessageRepository, cache services.CacheService, log *logger.Logger) *Hub {
	return &Hub{
		taskRepo:    taskRepo,
		messageRepo: messageRepo,
		cache:       cache,
		log:         log,
		rooms:       make(map[uuid.UUID]*taskRoom),
		conns:       make(map[uuid.UUID]*Client),
	}
}

type taskRoom struct {
	mu      sync.Mutex
	members map[*Client]struct{}
}

func (h *Hub) room(taskID uuid.UUID) *taskRoom {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[taskID]
	if !ok {
		room = &taskRoom{members: make(map[*Client]struct{})}
		h.rooms[taskID] = room
	}
	return room
}

// register binds the connection to its user. A newer connection for the same
// user supersedes the old one.
func (h *Hub) register(c *Client) {
	h.mu.Lock()
	prev := h.conns[c.userID]
	h.conns[c.userID] = c
	h.mu.Unlock()

	if prev != nil && prev != c {
		prev.closeSlow("superseded by a newer connection")
	}

	h.setPresence(c.userID, true)
}

// unregister drops the connection and clears any room membership. Called
// exactly once when the socket dies.
func (h *Hub) unregister(c *Client) {
	if taskID := c.joinedTask(); taskID != nil {
		h.leave(c, *taskID)
	}

	h.mu.Lock()
	last := h.conns[c.userID] == c
	if last {
		delete(h.conns, c.userID)
	}
	h.mu.Unlock()

	// A superseded connection must not clear the presence of its successor.
	if last {
		h.setPresence(c.userID, false)
	}
}

// setPresence mirrors the connection state into the cache so other services
// can tell who is reachable over the socket. Best effort; failures are logged
// and ignored.
func (h *Hub) setPresence(userID uuid.UUID, online bool) {
	if h.cache == nil {
		return
	}

	key := fmt.Sprintf(services.PresenceKeyPattern, userID)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var err error
	if online {
		err = h.cache.Set(ctx, key, "online", services.CacheMediumTerm)
	} else {
		err = h.cache.Delete(ctx, key)
	}
	if err != nil {
		h.log.Warn("Failed to update presence", "user_id", userID, "error", err)
	}
}

// join subscribes the client to a task room and returns recent history.
// A client may hold one subscription; joining another task switches rooms.
func (h *Hub) join(ctx context.Context, c *Client, taskID uuid.UUID, limit, offset int) ([]models.TaskMessage, error) {
	if _, err := h.taskRepo.GetByID(ctx, taskID); err != nil {
		return nil, fmt.Errorf("unknown task %s", taskID)
	}

	if current := c.joinedTask(); current != nil && *current != taskID {
		h.leave(c, *current)
	}

	// History and membership move together under the room lock. sendMessage
	// holds the same lock across persist and fan-out, so a message lands in
	// the history snapshot or the live stream, never both.
	room := h.room(taskID)
	room.mu.Lock()
	history, err := h.messageRepo.ListByTask(ctx, taskID, limit, offset)
	if err != nil {
		room.mu.Unlock()
		return nil, err
	}
	room.members[c] = struct{}{}
	room.mu.Unlock()
	c.setJoinedTask(&taskID)

	return history, nil
}

func (h *Hub) leave(c *Client, taskID uuid.UUID) {
	room := h.room(taskID)
	room.mu.Lock()
	delete(room.members, c)
	room.mu.Unlock()

	if current := c.joinedTask(); current != nil && *current == taskID {
		c.setJoinedTask(nil)
	}
}

// sendMessage persists the message and fans it out to every other room
// member. The room lock is held across persist and fan-out, which is what
// makes delivery order match persist order for all subscribers.
func (h *Hub) sendMessage(ctx context.Context, c *Client, payload SendMessagePayload) (*models.TaskMessage, error) {
	current := c.joinedTask()
	if current == nil || *current != payload.TaskID {
		return nil, fmt.Errorf("join task %s before sending", payload.TaskID)
	}

	message := &models.TaskMessage{
		ID:          uuid.New(),
		TaskID:      payload.TaskID,
		SenderID:    c.userID,
		RecipientID: payload.RecipientID,
		Content:     payload.Content,
		IsUrgent:    payload.IsUrgent,
	}

	room := h.room(payload.TaskID)
	room.mu.Lock()
	defer room.mu.Unlock()

	if err := h.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}

	frame := mustFrame(FrameNewMessage, message)
	delivered := make(map[uuid.UUID]bool, len(room.members))
	for member := range room.members {
		if member == c {
			continue
		}
		member.queue(frame)
		delivered[member.userID] = true
	}

	// Direct delivery to a recipient who is connected but not in the room.
	if payload.RecipientID != nil && !delivered[*payload.RecipientID] {
		h.mu.RLock()
		recipient := h.conns[*payload.RecipientID]
		h.mu.RUnlock()
		if recipient != nil && recipient != c {
			recipient.queue(frame)
		}
	}

	return message, nil
}

func (h *Hub) history(ctx context.Context, taskID uuid.UUID, limit, offset int) ([]models.TaskMessage, error) {
	return h.messageRepo.ListByTask(ctx, taskID, limit, offset)
}

func (h *Hub) markRead(ctx context.Context, messageID uuid.UUID) error {
	return h.messageRepo.MarkRead(ctx, messageID)
}
