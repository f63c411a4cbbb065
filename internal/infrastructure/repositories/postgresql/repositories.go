package postgresql

import (
	"context"
	"fmt"

	"github.com/terrawatt/terrawatt/internal/domain/repositories"
	"github.com/terrawatt/terrawatt/internal/infrastructure/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	UserRepo    repositories.UserRepository
	LandRepo    repositories.LandRepository
	VersionRepo repositories.DocumentVersionRepository
	AuditRepo   repositories.ReviewAuditRepository
	TaskRepo    repositories.ReviewTaskRepository
	MessageRepo repositories.TaskMessageRepository

	// Internal reference to database for health checks
	db *database.DB
}

// NewRepositories creates a new repositories container
func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		UserRepo:    NewUserRepository(db),
		LandRepo:    NewLandRepository(db),
		VersionRepo: NewDocumentVersionRepository(db),
		AuditRepo:   NewReviewAuditRepository(db),
		TaskRepo:    NewReviewTaskRepository(db),
		MessageRepo: NewTaskMessageRepository(db),
		db:          db,
	}
}

// HealthCheck verifies database connectivity
func (r *Repositories) HealthCheck(ctx context.Context) error {
	sqlDB, err := r.db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
