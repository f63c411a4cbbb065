package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/terrawatt/terrawatt/internal/domain/repositories"
	"github.com/terrawatt/terrawatt/internal/infrastructure/database/models"
)

var (
	ErrVersionNotFound   = errors.New("document version not found")
	ErrLandNotFound      = errors.New("land not found")
	ErrInvalidReference  = errors.New("referenced land does not exist")
	ErrInvalidTransition = errors.New("operation not allowed in current version status")
	ErrLockConflict      = errors.New("version is already under review by another user")
	ErrUploadConflict    = errors.New("concurrent upload for this document type, retry")
	ErrUnauthorizedActor = errors.New("actor is not the lock holder")
)

// ReviewResult is the outcome of a completed review.
type ReviewResult string

const (
	ReviewApprove ReviewResult = "approve"
	ReviewReject  ReviewResult = "reject"
)

// VersionService is the version ledger and review lock manager. Every state
// mutation writes its audit entry in the same transaction, so callers never
// observe a status change without a matching audit row.
type VersionService struct {
	versionRepo repositories.DocumentVersionRepository
	landRepo    repositories.LandRepository
	auditRepo   repositories.ReviewAuditRepository
	cache       CacheService // optional, nil disables summary caching
}

// NewVersionService creates a new version service instance
func NewVersionService(
	versionRepo repositories.DocumentVersionRepository,
	landRepo repositories.LandRepository,
	auditRepo repositories.ReviewAuditRepository,
	cache CacheService,
) *VersionService {
	return &VersionService{
		versionRepo: versionRepo,
		landRepo:    landRepo,
		auditRepo:   auditRepo,
		cache:       cache,
	}
}

// RecordUploadParams contains parameters for registering an uploaded payload
// in the ledger. The payload itself must already be stored.
type RecordUploadParams struct {
	LandID       uuid.UUID           `json:"land_id"`
	DocumentType models.DocumentType `json:"document_type"`
	UploadedBy   uuid.UUID           `json:"uploaded_by"`
	StoragePath  string              `json:"storage_path"`
	FileSize     int64               `json:"file_size"`
	Notes        string              `json:"notes,omitempty"`
}

// RecordUpload appends a new version: number = current max + 1 assigned
// inside the ledger transaction, latest flag moves to the new version,
// status starts active.
func (s *VersionService) RecordUpload(ctx context.Context, params RecordUploadParams) (*models.DocumentVersion, error) {
	if _, err := s.landRepo.GetByID(ctx, params.LandID); err != nil {
		return nil, ErrInvalidReference
	}

	now := time.Now().UTC()
	version := &models.DocumentVersion{
		ID:           uuid.New(),
		LandID:       params.LandID,
		DocumentType: params.DocumentType,
		Status:       models.DocStatusActive,
		IsLatest:     true,
		StoragePath:  params.StoragePath,
		FileSize:     params.FileSize,
		Notes:        params.Notes,
		UploadedBy:   params.UploadedBy,
		UploadedAt:   now,
	}

	entry := &models.ReviewAudit{
		ID:           uuid.New(),
		LandID:       params.LandID,
		DocumentType: params.DocumentType,
		Action:       models.AuditUpload,
		ActorID:      params.UploadedBy,
		Reason:       params.Notes,
		CreatedAt:    now,
	}

	if err := s.versionRepo.RecordUpload(ctx, version, entry); err != nil {
		if errors.Is(err, repositories.ErrStaleState) {
			return nil, ErrUploadConflict
		}
		return nil, err
	}

	s.invalidateSummary(ctx, params.LandID)
	return version, nil
}

// GetVersion returns a single ledger entry.
func (s *VersionService) GetVersion(ctx context.Context, id uuid.UUID) (*models.DocumentVersion, error) {
	version, err := s.versionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrVersionNotFound
	}
	return version, nil
}

// ListVersions returns the ledger for one document type, newest first.
func (s *VersionService) ListVersions(ctx context.Context, landID uuid.UUID, docType models.DocumentType) ([]models.DocumentVersion, error) {
	if _, err := s.landRepo.GetByID(ctx, landID); err != nil {
		return nil, ErrLandNotFound
	}
	return s.versionRepo.ListVersions(ctx, landID, docType)
}

// GetStatusSummary aggregates one row per document type present for the land.
func (s *VersionService) GetStatusSummary(ctx context.Context, landID uuid.UUID) ([]repositories.DocumentTypeSummary, error) {
	if _, err := s.landRepo.GetByID(ctx, landID); err != nil {
		return nil, ErrLandNotFound
	}

	cacheKey := fmt.Sprintf(SummaryCacheKeyPattern, landID)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey); err == nil && cached != "" {
			var summary []repositories.DocumentTypeSummary
			if err := json.Unmarshal([]byte(cached), &summary); err == nil {
				return summary, nil
			}
		}
	}

	summary, err := s.versionRepo.StatusSummary(ctx, landID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(summary); err == nil {
			_ = s.cache.Set(ctx, cacheKey, string(data), CacheShortTerm)
		}
	}

	return summary, nil
}

// Lock claims a version for exclusive review. Only the latest active version
// can be locked; a concurrent claim loses with ErrLockConflict.
func (s *VersionService) Lock(ctx context.Context, versionID, actorID uuid.UUID, reason string) (*models.DocumentVersion, error) {
	version, err := s.versionRepo.GetByID(ctx, versionID)
	if err != nil {
		return nil, ErrVersionNotFound
	}

	switch version.Status {
	case models.DocStatusUnderReview:
		return nil, ErrLockConflict
	case models.DocStatusArchived:
		return nil, ErrInvalidTransition
	}
	if !version.IsLatest {
		return nil, ErrInvalidTransition
	}

	now := time.Now().UTC()
	guard := repositories.StateGuard{
		Status:      models.DocStatusActive,
		CheckLocker: true,
		LockedBy:    nil,
	}
	updates := map[string]interface{}{
		"status":           models.DocStatusUnderReview,
		"review_locked_by": actorID,
		"review_locked_at": now,
		"review_reason":    reason,
	}
	entry := s.auditEntry(version, models.AuditLock, actorID, reason, now)

	if err := s.versionRepo.UpdateStateGuarded(ctx, versionID, guard, updates, entry); err != nil {
		if errors.Is(err, repositories.ErrStaleState) {
			return nil, ErrLockConflict
		}
		return nil, err
	}

	s.invalidateSummary(ctx, version.LandID)
	return s.versionRepo.GetByID(ctx, versionID)
}

// Unlock releases a review claim without a verdict. Allowed for the lock
// holder or an admin.
func (s *VersionService) Unlock(ctx context.Context, versionID uuid.UUID, actor *models.User, reason string) (*models.DocumentVersion, error) {
	version, err := s.versionRepo.GetByID(ctx, versionID)
	if err != nil {
		return nil, ErrVersionNotFound
	}

	if version.Status != models.DocStatusUnderReview {
		return nil, ErrInvalidTransition
	}
	if err := s.authorizeLockHolder(version, actor); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	guard := repositories.StateGuard{
		Status:      models.DocStatusUnderReview,
		CheckLocker: true,
		LockedBy:    version.ReviewLockedBy,
	}
	entry := s.auditEntry(version, models.AuditUnlock, actor.ID, reason, now)

	if err := s.versionRepo.UpdateStateGuarded(ctx, versionID, guard, clearLockUpdates(models.DocStatusActive), entry); err != nil {
		if errors.Is(err, repositories.ErrStaleState) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	s.invalidateSummary(ctx, version.LandID)
	return s.versionRepo.GetByID(ctx, versionID)
}

// CompleteReview ends a review with a verdict: approve returns the version
// to active, reject archives it.
func (s *VersionService) CompleteReview(ctx context.Context, versionID uuid.UUID, actor *models.User, result ReviewResult, reason string) (*models.DocumentVersion, error) {
	version, err := s.versionRepo.GetByID(ctx, versionID)
	if err != nil {
		return nil, ErrVersionNotFound
	}

	if version.Status != models.DocStatusUnderReview {
		return nil, ErrInvalidTransition
	}
	if err := s.authorizeLockHolder(version, actor); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	guard := repositories.StateGuard{
		Status:      models.DocStatusUnderReview,
		CheckLocker: true,
		LockedBy:    version.ReviewLockedBy,
	}

	var updates map[string]interface{}
	var entry *models.ReviewAudit
	switch result {
	case ReviewApprove:
		updates = clearLockUpdates(models.DocStatusActive)
		entry = s.auditEntry(version, models.AuditUnlock, actor.ID, reason, now)
	case ReviewReject:
		updates = clearLockUpdates(models.DocStatusArchived)
		updates["is_latest"] = false
		entry = s.auditEntry(version, models.AuditArchive, actor.ID, reason, now)
	default:
		return nil, fmt.Errorf("unknown review result %q", result)
	}

	if err := s.versionRepo.UpdateStateGuarded(ctx, versionID, guard, updates, entry); err != nil {
		if errors.Is(err, repositories.ErrStaleState) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	s.invalidateSummary(ctx, version.LandID)
	return s.versionRepo.GetByID(ctx, versionID)
}

// Archive soft-deletes a version. Archival is terminal and never promotes
// another version to latest. The currently-latest version cannot be archived
// directly; it has to be superseded by a newer upload first.
func (s *VersionService) Archive(ctx context.Context, versionID, actorID uuid.UUID, reason string) (*models.DocumentVersion, error) {
	version, err := s.versionRepo.GetByID(ctx, versionID)
	if err != nil {
		return nil, ErrVersionNotFound
	}

	if version.Status == models.DocStatusArchived {
		return nil, ErrInvalidTransition
	}
	if version.IsLatest {
		return nil, ErrInvalidTransition
	}

	now := time.Now().UTC()
	guard := repositories.StateGuard{Status: version.Status}
	updates := clearLockUpdates(models.DocStatusArchived)
	updates["is_latest"] = false
	entry := s.auditEntry(version, models.AuditArchive, actorID, reason, now)

	if err := s.versionRepo.UpdateStateGuarded(ctx, versionID, guard, updates, entry); err != nil {
		if errors.Is(err, repositories.ErrStaleState) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	s.invalidateSummary(ctx, version.LandID)
	return s.versionRepo.GetByID(ctx, versionID)
}

// QueryAudit returns the audit trail for a land, newest first.
func (s *VersionService) QueryAudit(ctx context.Context, filter repositories.AuditFilter) ([]models.ReviewAudit, int64, error) {
	if _, err := s.landRepo.GetByID(ctx, filter.LandID); err != nil {
		return nil, 0, ErrLandNotFound
	}
	return s.auditRepo.Query(ctx, filter)
}

func (s *VersionService) authorizeLockHolder(version *models.DocumentVersion, actor *models.User) error {
	if actor.Role == models.UserRoleAdmin {
		return nil
	}
	if version.ReviewLockedBy == nil || *version.ReviewLockedBy != actor.ID {
		return ErrUnauthorizedActor
	}
	return nil
}

func (s *VersionService) auditEntry(version *models.DocumentVersion, action models.AuditAction, actorID uuid.UUID, reason string, at time.Time) *models.ReviewAudit {
	return &models.ReviewAudit{
		ID:           uuid.New(),
		LandID:       version.LandID,
		DocumentType: version.DocumentType,
		DocumentID:   version.ID,
		Action:       action,
		ActorID:      actorID,
		Reason:       reason,
		CreatedAt:    at,
	}
}

func (s *VersionService) invalidateSummary(ctx context.Context, landID uuid.UUID) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx, fmt.Sprintf(SummaryCacheKeyPattern, landID))
}

func clearLockUpdates(status models.DocStatus) map[string]interface{} {
	return map[string]interface{}{
		"status":           status,
		"review_locked_by": nil,
		"review_locked_at": nil,
	}
}
