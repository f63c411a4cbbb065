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

type DocumentVersionRepository struct {
	db *database.DB
}

func NewDocumentVersionRepository(db *database.DB) repositories.DocumentVersionRepository {
	return &DocumentVersionRepository{db: db}
}

func (r *DocumentVersionRepository) RecordUpload(ctx context.Context, version *models.DocumentVersion, entry *models.ReviewAudit) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Number assignment happens inside the transaction so readers of the
		// committed ledger always see a contiguous sequence.
		var max *int
		if err := tx.Model(&models.DocumentVersion{}).
			Where("land_id = ? AND document_type = ?", version.LandID, version.DocumentType).
			Select("MAX(version_number)").
			Scan(&max).Error; err != nil {
			return err
		}
		version.VersionNumber = 1
		if max != nil {
			version.VersionNumber = *max + 1
		}

		// Demote the previous latest non-archived version of this pair.
		if err := tx.Model(&models.DocumentVersion{}).
			Where("land_id = ? AND document_type = ? AND is_latest = ? AND status <> ?",
				version.LandID, version.DocumentType, true, models.DocStatusArchived).
			Update("is_latest", false).Error; err != nil {
			return err
		}

		if err := tx.Create(version).Error; err != nil {
			// The unique index on (land, type, number) catches a concurrent
			// upload that claimed the same number.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return repositories.ErrStaleState
			}
			return err
		}

		entry.DocumentID = version.ID
		return tx.Create(entry).Error
	})
	if err != nil {
		if errors.Is(err, repositories.ErrStaleState) {
			return err
		}
		return fmt.Errorf("failed to record upload: %w", err)
	}
	return nil
}

func (r *DocumentVersionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DocumentVersion, error) {
	var version models.DocumentVersion
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&version).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("document version not found")
		}
		return nil, fmt.Errorf("failed to get document version: %w", err)
	}
	return &version, nil
}

func (r *DocumentVersionRepository) ListVersions(ctx context.Context, landID uuid.UUID, docType models.DocumentType) ([]models.DocumentVersion, error) {
	var versions []models.DocumentVersion
	err := r.db.WithContext(ctx).
		Where("land_id = ? AND document_type = ?", landID, docType).
		Order("version_number DESC").
		Find(&versions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list document versions: %w", err)
	}
	return versions, nil
}

func (r *DocumentVersionRepository) StatusSummary(ctx context.Context, landID uuid.UUID) ([]repositories.DocumentTypeSummary, error) {
	var rows []repositories.DocumentTypeSummary
	err := r.db.WithContext(ctx).Model(&models.DocumentVersion{}).
		Select(`document_type,
			COUNT(*) AS total_versions,
			MAX(version_number) AS max_version,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS under_review_versions,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS archived_versions`,
			models.DocStatusUnderReview, models.DocStatusArchived).
		Where("land_id = ?", landID).
		Group("document_type").
		Order("document_type").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to build status summary: %w", err)
	}
	return rows, nil
}

func (r *DocumentVersionRepository) UpdateStateGuarded(ctx context.Context, versionID uuid.UUID, guard repositories.StateGuard, updates map[string]interface{}, entry *models.ReviewAudit) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&models.DocumentVersion{}).
			Where("id = ? AND status = ?", versionID, guard.Status)
		if guard.CheckLocker {
			if guard.LockedBy == nil {
				query = query.Where("review_locked_by IS NULL")
			} else {
				query = query.Where("review_locked_by = ?", *guard.LockedBy)
			}
		}

		result := query.Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repositories.ErrStaleState
		}

		return tx.Create(entry).Error
	})
	if err != nil {
		if errors.Is(err, repositories.ErrStaleState) {
			return err
		}
		return fmt.Errorf("failed to update version state: %w", err)
	}
	return nil
}
