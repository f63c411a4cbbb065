package models

import (
	"time"

	"github.com/google/uuid"
)

// Custom enum-like types
type DocStatus string
type UserRole string
type EnergyType string
type LandStatus string
type AuditAction string
type DocumentType string
type TaskStatus string

const (
	// Document version status
	DocStatusActive      DocStatus = "active"
	DocStatusUnderReview DocStatus = "under_review"
	DocStatusArchived    DocStatus = "archived"

	// User Roles
	UserRoleAdmin     UserRole = "admin"
	UserRoleReviewer  UserRole = "reviewer"
	UserRoleLandowner UserRole = "landowner"
	UserRoleInvestor  UserRole = "investor"

	// Energy Types
	EnergySolar      EnergyType = "solar"
	EnergyWind       EnergyType = "wind"
	EnergyHydro      EnergyType = "hydro"
	EnergyGeothermal EnergyType = "geothermal"

	// Land Status
	LandListed         LandStatus = "listed"
	LandUnderDiligence LandStatus = "under_diligence"
	LandFunded         LandStatus = "funded"

	// Audit Actions
	AuditUpload  AuditAction = "upload"
	AuditLock    AuditAction = "lock"
	AuditUnlock  AuditAction = "unlock"
	AuditArchive AuditAction = "archive"

	// Document Types for land diligence
	DocTypeSurveyReport   DocumentType = "survey_report"
	DocTypeOwnershipDeed  DocumentType = "ownership_deed"
	DocTypeEnvironmental  DocumentType = "environmental_assessment"
	DocTypeGridConnection DocumentType = "grid_connection"
	DocTypeZoningCert     DocumentType = "zoning_certificate"
	DocTypeFinancialModel DocumentType = "financial_model"
	DocTypeLeaseAgreement DocumentType = "lease_agreement"
	DocTypeGeneral        DocumentType = "general"

	// Review Task Status
	TaskOpen TaskStatus = "open"
	TaskDone TaskStatus = "done"
)

// Core Models

type User struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	Email     string    `json:"email" gorm:"type:varchar(320);unique;not null;index"`
	FirstName string    `json:"first_name" gorm:"type:varchar(100);not null"`
	LastName  string    `json:"last_name" gorm:"type:varchar(100);not null"`
	Role      UserRole  `json:"role" gorm:"type:varchar(20);not null;default:'landowner'"`
	IsActive  bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:now()"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:now()"`

	// Relationships
	Lands    []Land            `json:"lands,omitempty" gorm:"foreignKey:OwnerID"`
	Uploads  []DocumentVersion `json:"uploads,omitempty" gorm:"foreignKey:UploadedBy"`
	Messages []TaskMessage     `json:"messages,omitempty" gorm:"foreignKey:SenderID"`
}

type Land struct {
	ID         uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	OwnerID    uuid.UUID  `json:"owner_id" gorm:"type:uuid;not null;index"`
	Name       string     `json:"name" gorm:"type:varchar(255);not null"`
	EnergyType EnergyType `json:"energy_type" gorm:"type:varchar(20);not null"`
	AreaAcres  float64    `json:"area_acres" gorm:"type:decimal(12,2);not null"`
	Location   string     `json:"location" gorm:"type:varchar(255)"`
	Status     LandStatus `json:"status" gorm:"type:varchar(20);not null;default:'listed'"`
	CreatedAt  time.Time  `json:"created_at" gorm:"not null;default:now()"`
	UpdatedAt  time.Time  `json:"updated_at" gorm:"not null;default:now()"`

	// Relationships
	Owner     User              `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	Documents []DocumentVersion `json:"documents,omitempty" gorm:"foreignKey:LandID"`
	Tasks     []ReviewTask      `json:"tasks,omitempty" gorm:"foreignKey:LandID"`
}

// DocumentVersion is one entry in the version ledger. Version numbers are
// contiguous per (land_id, document_type) and exactly one non-archived
// version per pair carries is_latest.
type DocumentVersion struct {
	ID            uuid.UUID    `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	LandID        uuid.UUID    `json:"land_id" gorm:"type:uuid;not null;uniqueIndex:idx_land_doctype_version"`
	DocumentType  DocumentType `json:"document_type" gorm:"type:varchar(50);not null;uniqueIndex:idx_land_doctype_version"`
	VersionNumber int          `json:"version_number" gorm:"not null;uniqueIndex:idx_land_doctype_version"`
	Status        DocStatus    `json:"status" gorm:"type:varchar(20);not null;default:'active';index"`
	IsLatest      bool         `json:"is_latest" gorm:"not null;default:false"`

	// Payload reference; binary persistence lives behind the storage adapter
	StoragePath string `json:"storage_path" gorm:"type:varchar(500);not null"`
	FileSize    int64  `json:"file_size" gorm:"not null;default:0"`
	Notes       string `json:"notes" gorm:"type:text"`

	UploadedBy uuid.UUID `json:"uploaded_by" gorm:"type:uuid;not null;index"`
	UploadedAt time.Time `json:"uploaded_at" gorm:"not null;default:now()"`

	// review_locked_by is non-null iff status is under_review
	ReviewLockedBy *uuid.UUID `json:"review_locked_by" gorm:"type:uuid;index"`
	ReviewLockedAt *time.Time `json:"review_locked_at"`
	ReviewReason   string     `json:"review_reason" gorm:"type:text"`

	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:now()"`

	// Relationships
	Land     Land  `json:"land,omitempty" gorm:"foreignKey:LandID"`
	Uploader User  `json:"uploader,omitempty" gorm:"foreignKey:UploadedBy"`
	Locker   *User `json:"locker,omitempty" gorm:"foreignKey:ReviewLockedBy"`
}

// ReviewAudit rows are append-only; every ledger mutation writes exactly one
// in the same transaction.
type ReviewAudit struct {
	ID           uuid.UUID    `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	LandID       uuid.UUID    `json:"land_id" gorm:"type:uuid;not null;index"`
	DocumentType DocumentType `json:"document_type" gorm:"type:varchar(50);not null;index"`
	DocumentID   uuid.UUID    `json:"document_id" gorm:"type:uuid;not null;index"`
	Action       AuditAction  `json:"action_type" gorm:"type:varchar(20);not null;index"`
	ActorID      uuid.UUID    `json:"actor_id" gorm:"type:uuid;not null;index"`
	Reason       string       `json:"reason" gorm:"type:text"`
	CreatedAt    time.Time    `json:"timestamp" gorm:"not null;default:now();index"`

	// Relationships
	Land  Land `json:"land,omitempty" gorm:"foreignKey:LandID"`
	Actor User `json:"actor,omitempty" gorm:"foreignKey:ActorID"`
}

// ReviewTask anchors a messaging room for reviewer coordination.
type ReviewTask struct {
	ID         uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	LandID     uuid.UUID  `json:"land_id" gorm:"type:uuid;not null;index"`
	Title      string     `json:"title" gorm:"type:varchar(255);not null"`
	Status     TaskStatus `json:"status" gorm:"type:varchar(20);not null;default:'open'"`
	CreatedBy  uuid.UUID  `json:"created_by" gorm:"type:uuid;not null;index"`
	AssignedTo *uuid.UUID `json:"assigned_to" gorm:"type:uuid;index"`
	DueDate    *time.Time `json:"due_date"`
	CreatedAt  time.Time  `json:"created_at" gorm:"not null;default:now()"`
	UpdatedAt  time.Time  `json:"updated_at" gorm:"not null;default:now()"`

	// Relationships
	Land     Land          `json:"land,omitempty" gorm:"foreignKey:LandID"`
	Creator  User          `json:"creator,omitempty" gorm:"foreignKey:CreatedBy"`
	Assignee *User         `json:"assignee,omitempty" gorm:"foreignKey:AssignedTo"`
	Messages []TaskMessage `json:"messages,omitempty" gorm:"foreignKey:TaskID"`
}

// TaskMessage is never deleted; read_at is the only mutable field.
type TaskMessage struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	TaskID      uuid.UUID  `json:"task_id" gorm:"type:uuid;not null;index"`
	SenderID    uuid.UUID  `json:"sender_id" gorm:"type:uuid;not null;index"`
	RecipientID *uuid.UUID `json:"recipient_id" gorm:"type:uuid;index"`
	Content     string     `json:"content" gorm:"type:text;not null"`
	IsUrgent    bool       `json:"is_urgent" gorm:"not null;default:false"`
	CreatedAt   time.Time  `json:"created_at" gorm:"not null;default:now();index"`
	ReadAt      *time.Time `json:"read_at"`

	// Relationships
	Task      ReviewTask `json:"task,omitempty" gorm:"foreignKey:TaskID"`
	Sender    User       `json:"sender,omitempty" gorm:"foreignKey:SenderID"`
	Recipient *User      `json:"recipient,omitempty" gorm:"foreignKey:RecipientID"`
}

// GetAllModels returns all models for migration
func GetAllModels() []interface{} {
	return []interface{}{
		&User{},
		&Land{},
		&DocumentVersion{},
		&ReviewAudit{},
		&ReviewTask{},
		&TaskMessage{},
	}
}
