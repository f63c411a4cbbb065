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

type LandRepository struct {
	db *database.DB
}

func NewLandRepository(db *database.DB) repositories.LandRepository {
	return &LandRepository{db: db}
}

func (r *LandRepository) Create(ctx context.Context, land *models.Land) error {
	if err := r.db.WithContext(ctx).Create(land).Error; err != nil {
		return fmt.Errorf("failed to create land: %w", err)
	}
	return nil
}

func (r *LandRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Land, error) {
	var land models.Land
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Where("id = ?", id).First(&land).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("land not found")
		}
		return nil, fmt.Errorf("failed to get land: %w", err)
	}
	return &land, nil
}

func (r *LandRepository) List(ctx context.Context, params repositories.ListParams) ([]models.Land, int64, error) {
	var lands []models.Land
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Land{})

	if params.Search != "" {
		searchTerm := "%" + params.Search + "%"
		query = query.Where("name LIKE ? OR location LIKE ?", searchTerm, searchTerm)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count lands: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	orderBy := "created_at DESC"
	if params.SortBy != "" {
		direction := "ASC"
		if params.SortDesc {
			direction = "DESC"
		}
		orderBy = fmt.Sprintf("%s %s", params.SortBy, direction)
	}

	err := query.Preload("Owner").
		Order(orderBy).Offset(offset).Limit(params.PageSize).Find(&lands).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list lands: %w", err)
	}

	return lands, total, nil
}

func (r *LandRepository) Update(ctx context.Context, land *models.Land) error {
	result := r.db.WithContext(ctx).Save(land)
	if result.Error != nil {
		return fmt.Errorf("failed to update land: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("land not found")
	}
	return nil
}
