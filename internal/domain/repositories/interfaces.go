package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/terrawatt/terrawatt/internal/infrastructure/database/models"
)

// ErrStaleState is returned by guarded updates when the row no longer matches
// the expected state, i.e. another actor won the race.
var ErrStaleState = errors.New("version state changed concurrently")

// Core repository interfaces for clean architecture

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

type LandRepository interface {
	Create(ctx context.Context, land *models.Land) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Land, error)
	List(ctx context.Context, params ListParams) ([]models.Land, int64, error)
	Update(ctx context.Context, land *models.Land) error
}

// DocumentVersionRepository owns the version ledger rows. Mutations that
// change version state are transactional: the row change and its audit entry
// commit together or not at all.
type DocumentVersionRepository interface {
	// RecordUpload assigns the next version number for the (land, document
	// type) pair, inserts the version, demotes the prior latest non-archived
	// version, and appends the audit entry, all in one transaction. A
	// concurrent upload losing the number race returns ErrStaleState.
	RecordUpload(ctx context.Context, version *models.DocumentVersion, entry *models.ReviewAudit) error

	GetByID(ctx context.Context, id uuid.UUID) (*models.DocumentVersion, error)
	ListVersions(ctx context.Context, landID uuid.UUID, docType models.DocumentType) ([]models.DocumentVersion, error)
	StatusSummary(ctx context.Context, landID uuid.UUID) ([]DocumentTypeSummary, error)

	// UpdateStateGuarded applies updates to the version only while the row
	// still matches guard, and appends the audit entry in the same
	// transaction. Returns ErrStaleState when the guard no longer holds,
	// which is how concurrent lock attempts are serialized.
	UpdateStateGuarded(ctx context.Context, versionID uuid.UUID, guard StateGuard, updates map[string]interface{}, entry *models.ReviewAudit) error
}

type ReviewAuditRepository interface {
	Create(ctx context.Context, entry *models.ReviewAudit) error
	Query(ctx context.Context, filter AuditFilter) ([]models.ReviewAudit, int64, error)
}

type ReviewTaskRepository interface {
	Create(ctx context.Context, task *models.ReviewTask) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ReviewTask, error)
	ListByLand(ctx context.Context, landID uuid.UUID, params ListParams) ([]models.ReviewTask, int64, error)
	Update(ctx context.Context, task *models.ReviewTask) error
}

type TaskMessageRepository interface {
	Create(ctx context.Context, message *models.TaskMessage) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.TaskMessage, error)
	ListByTask(ctx context.Context, taskID uuid.UUID, limit, offset int) ([]models.TaskMessage, error)
	MarkRead(ctx context.Context, messageID uuid.UUID) error
}

// Supporting types for repository operations

type ListParams struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	SortBy   string `json:"sort_by"`
	SortDesc bool   `json:"sort_desc"`
	Search   string `json:"search"`
}

// StateGuard pins the expected current state of a version row. LockedBy is
// compared only when CheckLocker is set, so a guard can require "unlocked"
// (CheckLocker true, LockedBy nil) or a specific holder.
type StateGuard struct {
	Status      models.DocStatus
	CheckLocker bool
	LockedBy    *uuid.UUID
}

type AuditFilter struct {
	LandID       uuid.UUID            `json:"land_id"`
	DocumentType *models.DocumentType `json:"document_type,omitempty"`
	Action       *models.AuditAction  `json:"action_type,omitempty"`
	ActorID      *uuid.UUID           `json:"actor_id,omitempty"`
	Limit        int                  `json:"limit"`
	Offset       int                  `json:"offset"`
}

type DocumentTypeSummary struct {
	DocumentType        models.DocumentType `json:"document_type"`
	TotalVersions       int                 `json:"total_versions"`
	MaxVersion          int                 `json:"max_version"`
	UnderReviewVersions int                 `json:"under_review_versions"`
	ArchivedVersions    int                 `json:"archived_versions"`
}
