package postgresql

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/terrawatt/terrawatt/internal/domain/repositories"
	"github.com/terrawatt/terrawatt/internal/infrastructure/database"
	"github.com/terrawatt/terrawatt/internal/infrastructure/database/models"
)

type ReviewAuditRepository struct {
	db *database.DB
}

func NewReviewAuditRepository(db *database.DB) repositories.ReviewAuditRepository {
	return &ReviewAuditRepository{db: db}
}

func (r *ReviewAuditRepository) Create(ctx context.Context, entry *models.ReviewAudit) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}
	return nil
}

func (r *ReviewAuditRepository) Query(ctx context.Context, filter repositories.AuditFilter) ([]models.ReviewAudit, int64, error) {
	var entries []models.ReviewAudit
	var total int64

	query := r.db.WithContext(ctx).Model(&models.ReviewAudit{}).
		Where("land_id = ?", filter.LandID)

	if filter.DocumentType != nil {
		query = query.Where("document_type = ?", *filter.DocumentType)
	}
	if filter.Action != nil {
		query = query.Where("action = ?", *filter.Action)
	}
	if filter.ActorID != nil {
		query = query.Where("actor_id = ?", *filter.ActorID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	err := query.
		Preload("Actor", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "first_name", "last_name", "email", "role")
		}).
		Order("created_at DESC").
		Offset(filter.Offset).Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query audit entries: %w", err)
	}

	return entries, total, nil
}
