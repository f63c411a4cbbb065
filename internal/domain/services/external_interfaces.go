package services

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// External service interfaces that our domain services depend on

// StorageService persists document payloads by opaque reference. Binary
// storage is an external collaborator: the ledger only ever sees the
// reference it hands back.
type StorageService interface {
	Store(ctx context.Context, params StorageParams) (string, error)
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
}

// StorageParams contains parameters for storing files
type StorageParams struct {
	LandID      uuid.UUID
	FileReader  io.Reader
	Filename    string
	ContentType string
	Size        int64
}

// AuthService validates a bearer credential issued by the external auth
// layer. The core never checks credentials itself; it trusts the actor
// identity this returns.
type AuthService interface {
	ValidateToken(accessToken string) (*AuthUser, error)
}

// AuthUser is the identity bound to a validated credential.
type AuthUser struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// CacheService interface for caching operations
type CacheService interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

// Cache key patterns for the application
const (
	// Per-land document status summary
	SummaryCacheKeyPattern = "doc_summary:%s"

	// Realtime presence, keyed by user id
	PresenceKeyPattern = "ws_presence:%s"
)

// Common cache durations
const (
	CacheShortTerm  = 5 * time.Minute
	CacheMediumTerm = 30 * time.Minute
)
