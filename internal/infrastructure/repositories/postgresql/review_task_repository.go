package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/terrawatt/terrawatt/internal/domain/repositories"
	"github.com/terrawatt/terrawatt/internal/infrastructure/database"
	"github.com/terrawatt/terrawatt/internal/infrastructure/database/models"
)

type ReviewTaskRepository struct {
	db *database.DB
}

func NewReviewTaskRepository(db *database.DB) repositories.ReviewTaskRepository {
	return &ReviewTaskRepository{db: db}
}

func (r *ReviewTaskRepository) Create(ctx context.Context, task *models.ReviewTask) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("failed to create review task: %w", err)
	}
	return nil
}

func (r *ReviewTaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ReviewTask, error) {
	var task models.ReviewTask
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("review task not found")
		}
		return nil, fmt.Errorf("failed to get review task: %w", err)
	}
	return &task, nil
}

func (r *ReviewTaskRepository) ListByLand(ctx context.Context, landID uuid.UUID, params repositories.ListParams) ([]models.ReviewTask, int64, error) {
	var tasks []models.ReviewTask
	var total int64

	query := r.db.WithContext(ctx).Model(&models.ReviewTask{}).
		Where("land_id = ?", landID)

	if params.Search != "" {
		query = query.Where("title LIKE ?", "%"+params.Search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count review tasks: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	err := query.
		Preload("Assignee", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "first_name", "last_name", "email")
		}).
		Order("created_at DESC").Offset(offset).Limit(params.PageSize).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list review tasks: %w", err)
	}

	return tasks, total, nil
}

func (r *ReviewTaskRepository) Update(ctx context.Context, task *models.ReviewTask) error {
	result := r.db.WithContext(ctx).Save(task)
	if result.Error != nil {
		return fmt.Errorf("failed to update review task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("review task not found")
	}
	return nil
}
