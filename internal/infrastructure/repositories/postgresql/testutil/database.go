package testutil

import (
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/terrawatt/terrawatt/internal/infrastructure/database"
	"github.com/terrawatt/terrawatt/internal/infrastructure/database/models"
)

// TestDB wraps the database for testing
type TestDB struct {
	*database.DB
}

// NewTestDB creates a new test database connection
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	// Use DATABASE_URL_TEST if available (for Docker), otherwise SQLite
	databaseURL := os.Getenv("DATABASE_URL_TEST")
	if databaseURL == "" {
		databaseURL = "file::memory:?cache=shared"
		t.Logf("Using SQLite in-memory database for testing")
	} else {
		t.Logf("Using PostgreSQL database for testing: %s", databaseURL)
	}

	db, err := database.New(databaseURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := db.AutoMigrate(models.GetAllModels()...); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return &TestDB{DB: db}
}

// Cleanup closes the test database
func (db *TestDB) Cleanup(t *testing.T) {
	t.Helper()
	if err := db.Close(); err != nil {
		t.Errorf("Failed to close test database: %v", err)
	}
}

// CreateTestUser creates a test user
func (db *TestDB) CreateTestUser(t *testing.T, role models.UserRole) *models.User {
	t.Helper()

	user := &models.User{
		ID:        uuid.New(),
		Email:     fmt.Sprintf("test-%s@example.com", uuid.New().String()[:8]),
		FirstName: "Test",
		LastName:  "User",
		Role:      role,
		IsActive:  true,
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// CreateTestLand creates a test land parcel
func (db *TestDB) CreateTestLand(t *testing.T, owner *models.User) *models.Land {
	t.Helper()

	land := &models.Land{
		ID:         uuid.New(),
		OwnerID:    owner.ID,
		Name:       fmt.Sprintf("Test Parcel %s", uuid.New().String()[:8]),
		EnergyType: models.EnergySolar,
		AreaAcres:  120.5,
		Location:   "Kern County, CA",
		Status:     models.LandListed,
	}

	if err := db.Create(land).Error; err != nil {
		t.Fatalf("Failed to create test land: %v", err)
	}

	return land
}

// CreateTestTask creates a test review task
func (db *TestDB) CreateTestTask(t *testing.T, land *models.Land, creator *models.User) *models.ReviewTask {
	t.Helper()

	task := &models.ReviewTask{
		ID:        uuid.New(),
		LandID:    land.ID,
		Title:     fmt.Sprintf("Review %s documents", uuid.New().String()[:8]),
		Status:    models.TaskOpen,
		CreatedBy: creator.ID,
	}

	if err := db.Create(task).Error; err != nil {
		t.Fatalf("Failed to create test task: %v", err)
	}

	return task
}
