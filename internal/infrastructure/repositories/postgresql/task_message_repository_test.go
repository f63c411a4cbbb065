package postgresql

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrawatt/terrawatt/internal/infrastructure/database/models"
	"github.com/terrawatt/terrawatt/internal/infrastructure/repositories/postgresql/testutil"
)

func createTaskMessage(t *testing.T, db *testutil.TestDB, task *models.ReviewTask, sender *models.User, content string, at time.Time) *models.TaskMessage {
	t.Helper()
	message := &models.TaskMessage{
		ID:        uuid.New(),
		TaskID:    task.ID,
		SenderID:  sender.ID,
		Content:   content,
		CreatedAt: at,
	}
	require.NoError(t, db.Create(message).Error)
	return message
}

func TestTaskMessageRepository_Create(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer db.Cleanup(t)

	repo := NewTaskMessageRepository(db.DB)
	ctx := context.Background()

	user := db.CreateTestUser(t, models.UserRoleReviewer)
	land := db.CreateTestLand(t, user)
	task := db.CreateTestTask(t, land, user)

	message := &models.TaskMessage{
		ID:       uuid.New(),
		TaskID:   task.ID,
		SenderID: user.ID,
		Content:  "Survey boundaries look off on page 3",
		IsUrgent: true,
	}
	require.NoError(t, repo.Create(ctx, message))

	found, err := repo.GetByID(ctx, message.ID)
	require.NoError(t, err)
	assert.Equal(t, message.Content, found.Content)
	assert.True(t, found.IsUrgent)
	assert.Nil(t, found.ReadAt)
}

func TestTaskMessageRepository_ListByTask_NewestFirst(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer db.Cleanup(t)

	repo := NewTaskMessageRepository(db.DB)
	ctx := context.Background()

	user := db.CreateTestUser(t, models.UserRoleReviewer)
	land := db.CreateTestLand(t, user)
	task := db.CreateTestTask(t, land, user)

	base := time.Now().UTC().Add(-time.Hour)
	createTaskMessage(t, db, task, user, "first", base)
	createTaskMessage(t, db, task, user, "second", base.Add(time.Minute))
	createTaskMessage(t, db, task, user, "third", base.Add(2*time.Minute))

	messages, err := repo.ListByTask(ctx, task.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "third", messages[0].Content)
	assert.Equal(t, "first", messages[2].Content)
}

func TestTaskMessageRepository_ListByTask_Pagination(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer db.Cleanup(t)

	repo := NewTaskMessageRepository(db.DB)
	ctx := context.Background()

	user := db.CreateTestUser(t, models.UserRoleReviewer)
	land := db.CreateTestLand(t, user)
	task := db.CreateTestTask(t, land, user)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		createTaskMessage(t, db, task, user, "message", base.Add(time.Duration(i)*time.Minute))
	}

	messages, err := repo.ListByTask(ctx, task.ID, 2, 1)
	require.NoError(t, err)
	assert.Len(t, messages, 2)
}

func TestTaskMessageRepository_MarkRead(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer db.Cleanup(t)

	repo := NewTaskMessageRepository(db.DB)
	ctx := context.Background()

	user := db.CreateTestUser(t, models.UserRoleReviewer)
	land := db.CreateTestLand(t, user)
	task := db.CreateTestTask(t, land, user)
	message := createTaskMessage(t, db, task, user, "read me", time.Now().UTC())

	require.NoError(t, repo.MarkRead(ctx, message.ID))

	found, err := repo.GetByID(ctx, message.ID)
	require.NoError(t, err)
	require.NotNil(t, found.ReadAt)
	firstRead := *found.ReadAt

	// A second mark is a no-op; the original read time stands
	require.NoError(t, repo.MarkRead(ctx, message.ID))
	found, err = repo.GetByID(ctx, message.ID)
	require.NoError(t, err)
	require.NotNil(t, found.ReadAt)
	assert.Equal(t, firstRead.Unix(), found.ReadAt.Unix())
}
