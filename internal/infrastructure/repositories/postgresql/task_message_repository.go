package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/terrawatt/terrawatt/internal/domain/repositories"
	"github.com/terrawatt/terrawatt/internal/infrastructure/database"
	"github.com/terrawatt/terrawatt/internal/infrastructure/database/models"
)

type TaskMessageRepository struct {
	db *database.DB
}

func NewTaskMessageRepository(db *database.DB) repositories.TaskMessageRepository {
	return &TaskMessageRepository{db: db}
}

func (r *TaskMessageRepository) Create(ctx context.Context, message *models.TaskMessage) error {
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return fmt.Errorf("failed to create task message: %w", err)
	}
	return nil
}

func (r *TaskMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TaskMessage, error) {
	var message models.TaskMessage
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("task message not found")
		}
		return nil, fmt.Errorf("failed to get task message: %w", err)
	}
	return &message, nil
}

// ListByTask returns pages of history, newest first.
func (r *TaskMessageRepository) ListByTask(ctx context.Context, taskID uuid.UUID, limit, offset int) ([]models.TaskMessage, error) {
	if limit <= 0 {
		limit = 50
	}

	var messages []models.TaskMessage
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list task messages: %w", err)
	}
	return messages, nil
}

func (r *TaskMessageRepository) MarkRead(ctx context.Context, messageID uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&models.TaskMessage{}).
		Where("id = ? AND read_at IS NULL", messageID).
		Update("read_at", time.Now().UTC())
	if result.Error != nil {
		return fmt.Errorf("failed to mark message read: %w", result.Error)
	}
	return nil
}
