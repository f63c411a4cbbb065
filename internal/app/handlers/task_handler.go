package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/terrawatt/terrawatt/internal/domain/repositories"
	"github.com/terrawatt/terrawatt/internal/infrastructure/database/models"
)

// TaskHandler serves the review task endpoints. Tasks anchor the realtime
// messaging rooms; message history over HTTP is also served here.
type TaskHandler struct {
	*BaseHandler
	taskRepo    repositories.ReviewTaskRepository
	messageRepo repositories.TaskMessageRepository
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskRepo repositories.ReviewTaskRepository, messageRepo repositories.TaskMessageRepository, cfg *HandlerConfig) *TaskHandler {
	return &TaskHandler{
		BaseHandler: NewBaseHandler(cfg),
		taskRepo:    taskRepo,
		messageRepo: messageRepo,
	}
}

// RegisterRoutes registers task routes
func (h *TaskHandler) RegisterRoutes(router *gin.RouterGroup) {
	lands := router.Group("/lands")
	{
		lands.POST("/:id/tasks", h.CreateTask)
		lands.GET("/:id/tasks", h.ListTasks)
	}

	tasks := router.Group("/tasks")
	{
		tasks.GET("/:id", h.GetTask)
		tasks.PATCH("/:id", h.UpdateTask)
		tasks.GET("/:id/messages", h.ListMessages)
	}
}

// CreateTaskRequest carries the fields for a new review task
type CreateTaskRequest struct {
	Title      string     `json:"title" binding:"required"`
	AssignedTo *uuid.UUID `json:"assigned_to"`
	DueDate    *time.Time `json:"due_date"`
}

// CreateTask opens a review task for a land
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userCtx, ok := h.AuthenticateUser(c)
	if !ok {
		return
	}

	landID, ok := h.ValidateUUID(c, "land ID", c.Param("id"))
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	task := &models.ReviewTask{
		LandID:     landID,
		Title:      req.Title,
		Status:     models.TaskOpen,
		CreatedBy:  userCtx.UserID,
		AssignedTo: req.AssignedTo,
		DueDate:    req.DueDate,
	}

	if err := h.taskRepo.Create(c.Request.Context(), task); err != nil {
		h.RespondInternalError(c, "Failed to create task", err.Error())
		return
	}

	h.RespondCreated(c, task)
}

// ListTasks returns the review tasks for a land
func (h *TaskHandler) ListTasks(c *gin.Context) {
	if _, ok := h.AuthenticateUser(c); !ok {
		return
	}

	landID, ok := h.ValidateUUID(c, "land ID", c.Param("id"))
	if !ok {
		return
	}

	page, pageSize := h.ParsePagination(c)
	tasks, total, err := h.taskRepo.ListByLand(c.Request.Context(), landID, repositories.ListParams{
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		h.RespondInternalError(c, "Failed to list tasks", err.Error())
		return
	}

	h.RespondSuccess(c, gin.H{
		"tasks":     tasks,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetTask returns a single review task
func (h *TaskHandler) GetTask(c *gin.Context) {
	if _, ok := h.AuthenticateUser(c); !ok {
		return
	}

	taskID, ok := h.ValidateUUID(c, "task ID", c.Param("id"))
	if !ok {
		return
	}

	task, err := h.taskRepo.GetByID(c.Request.Context(), taskID)
	if err != nil {
		h.RespondNotFound(c, "Task not found")
		return
	}

	h.RespondSuccess(c, task)
}

// UpdateTaskRequest carries mutable task fields
type UpdateTaskRequest struct {
	Title      *string    `json:"title"`
	Status     *string    `json:"status"`
	AssignedTo *uuid.UUID `json:"assigned_to"`
	DueDate    *time.Time `json:"due_date"`
}

// UpdateTask mutates title, status, assignee or due date
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	if _, ok := h.AuthenticateUser(c); !ok {
		return
	}

	taskID, ok := h.ValidateUUID(c, "task ID", c.Param("id"))
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	task, err := h.taskRepo.GetByID(c.Request.Context(), taskID)
	if err != nil {
		h.RespondNotFound(c, "Task not found")
		return
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Status != nil {
		status := models.TaskStatus(*req.Status)
		if status != models.TaskOpen && status != models.TaskDone {
			h.RespondBadRequest(c, "Status must be 'open' or 'done'")
			return
		}
		task.Status = status
	}
	if req.AssignedTo != nil {
		task.AssignedTo = req.AssignedTo
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}

	if err := h.taskRepo.Update(c.Request.Context(), task); err != nil {
		h.RespondInternalError(c, "Failed to update task", err.Error())
		return
	}

	h.RespondSuccess(c, task)
}

// ListMessages returns a task's message history over HTTP, newest first
func (h *TaskHandler) ListMessages(c *gin.Context) {
	if _, ok := h.AuthenticateUser(c); !ok {
		return
	}

	taskID, ok := h.ValidateUUID(c, "task ID", c.Param("id"))
	if !ok {
		return
	}

	if _, err := h.taskRepo.GetByID(c.Request.Context(), taskID); err != nil {
		h.RespondNotFound(c, "Task not found")
		return
	}

	limit := getIntParam(c, "limit", 50)
	offset := getIntParam(c, "offset", 0)

	messages, err := h.messageRepo.ListByTask(c.Request.Context(), taskID, limit, offset)
	if err != nil {
		h.RespondInternalError(c, "Failed to list messages", err.Error())
		return
	}

	h.RespondSuccess(c, gin.H{
		"task_id":  taskID,
		"messages": messages,
	})
}
