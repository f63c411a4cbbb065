package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrawatt/terrawatt/internal/domain/repositories"
	"github.com/terrawatt/terrawatt/internal/infrastructure/database/models"
	"github.com/terrawatt/terrawatt/internal/infrastructure/repositories/postgresql"
	"github.com/terrawatt/terrawatt/internal/infrastructure/repositories/postgresql/testutil"
)

func setupVersionService(t *testing.T) (*VersionService, *testutil.TestDB) {
	t.Helper()
	db := testutil.NewTestDB(t)
	t.Cleanup(func() { db.Cleanup(t) })

	svc := NewVersionService(
		postgresql.NewDocumentVersionRepository(db.DB),
		postgresql.NewLandRepository(db.DB),
		postgresql.NewReviewAuditRepository(db.DB),
		nil,
	)
	return svc, db
}

func uploadVersion(t *testing.T, svc *VersionService, land *models.Land, user *models.User, docType models.DocumentType) *models.DocumentVersion {
	t.Helper()
	version, err := svc.RecordUpload(context.Background(), RecordUploadParams{
		LandID:       land.ID,
		DocumentType: docType,
		UploadedBy:   user.ID,
		StoragePath:  "uploads/test.pdf",
		FileSize:     4096,
	})
	require.NoError(t, err)
	return version
}

func TestVersionService_RecordUpload_FirstVersion(t *testing.T) {
	svc, db := setupVersionService(t)
	ctx := context.Background()

	owner := db.CreateTestUser(t, models.UserRoleLandowner)
	land := db.CreateTestLand(t, owner)

	version := uploadVersion(t, svc, land, owner, models.DocTypeSurveyReport)
	assert.Equal(t, 1, version.VersionNumber)
	assert.Equal(t, models.DocStatusActive, version.Status)
	assert.True(t, version.IsLatest)

	entries, total, err := svc.QueryAudit(ctx, repositories.AuditFilter{LandID: land.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditUpload, entries[0].Action)
	assert.Equal(t, owner.ID, entries[0].ActorID)
}

func TestVersionService_RecordUpload_UnknownLand(t *testing.T) {
	svc, db := setupVersionService(t)

	owner := db.CreateTestUser(t, models.UserRoleLandowner)

	_, err := svc.RecordUpload(context.Background(), RecordUploadParams{
		LandID:       uuid.New(),
		DocumentType: models.DocTypeSurveyReport,
		UploadedBy:   owner.ID,
		StoragePath:  "uploads/test.pdf",
	})
	assert.ErrorIs(t, err, ErrInvalidReference)
}

func TestVersionService_RecordUpload_SupersedesLatest(t *testing.T) {
	svc, db := setupVersionService(t)
	ctx := context.Background()

	owner := db.CreateTestUser(t, models.UserRoleLandowner)
	land := db.CreateTestLand(t, owner)

	v1 := uploadVersion(t, svc, land, owner, models.DocTypeSurveyReport)
	v2 := uploadVersion(t, svc, land, owner, models.DocTypeSurveyReport)

	assert.Equal(t, 2, v2.VersionNumber)

	prior, err := svc.GetVersion(ctx, v1.ID)
	require.NoError(t, err)
	assert.False(t, prior.IsLatest)
	assert.Equal(t, models.DocStatusActive, prior.Status)
}

func TestVersionService_Lock(t *testing.T) {
	svc, db := setupVersionService(t)
	ctx := context.Background()

	owner := db.CreateTestUser(t, models.UserRoleLandowner)
	reviewer := db.CreateTestUser(t, models.UserRoleReviewer)
	land := db.CreateTestLand(t, owner)

	version := uploadVersion(t, svc, land, owner, models.DocTypeSurveyReport)

	locked, err := svc.Lock(ctx, version.ID, reviewer.ID, "boundary check")
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusUnderReview, locked.Status)
	require.NotNil(t, locked.ReviewLockedBy)
	assert.Equal(t, reviewer.ID, *locked.ReviewLockedBy)
	assert.NotNil(t, locked.ReviewLockedAt)
	assert.Equal(t, "boundary check", locked.ReviewReason)
}

func TestVersionService_Lock_Conflict(t *testing.T) {
	svc, db := setupVersionService(t)
	ctx := context.Background()

	owner := db.CreateTestUser(t, models.UserRoleLandowner)
	reviewerA := db.CreateTestUser(t, models.UserRoleReviewer)
	reviewerB := db.CreateTestUser(t, models.UserRoleReviewer)
	land := db.CreateTestLand(t, owner)

	version := uploadVersion(t, svc, land, owner, models.DocTypeSurveyReport)

	_, err := svc.Lock(ctx, version.ID, reviewerA.ID, "first claim")
	require.NoError(t, err)

	_, err = svc.Lock(ctx, version.ID, reviewerB.ID, "second claim")
	assert.ErrorIs(t, err, ErrLockConflict)

	// The first claim is untouched
	found, err := svc.GetVersion(ctx, version.ID)
	require.NoError(t, err)
	require.NotNil(t, found.ReviewLockedBy)
	assert.Equal(t, reviewerA.ID, *found.ReviewLockedBy)
}

func TestVersionService_Lock_NotLatest(t *testing.T) {
	svc, db := setupVersionService(t)
	ctx := context.Background()

	owner := db.CreateTestUser(t, models.UserRoleLandowner)
	reviewer := db.CreateTestUser(t, models.UserRoleReviewer)
	land := db.CreateTestLand(t, owner)

	v1 := uploadVersion(t, svc, land, owner, models.DocTypeSurveyReport)
	uploadVersion(t, svc, land, owner, models.DocTypeSurveyReport)

	_, err := svc.Lock(ctx, v1.ID, reviewer.ID, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestVersionService_Unlock_ByHolder(t *testing.T) {
	svc, db := setupVersionService(t)
	ctx := context.Background()

	owner := db.CreateTestUser(t, models.UserRoleLandowner)
	reviewer := db.CreateTestUser(t, models.UserRoleReviewer)
	land := db.CreateTestLand(t, owner)

	version := uploadVersion(t, svc, land, owner, models.DocTypeSurveyReport)
	_, err := svc.Lock(ctx, version.ID, reviewer.ID, "")
	require.NoError(t, err)

	unlocked, err := svc.Unlock(ctx, version.ID, reviewer, "stepping away")
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusActive, unlocked.Status)
	assert.Nil(t, unlocked.ReviewLockedBy)
	assert.Nil(t, unlocked.ReviewLockedAt)
}

func TestVersionService_Unlock_NotHolder(t *testing.T) {
	svc, db := setupVersionService(t)
	ctx := context.Background()

	owner := db.CreateTestUser(t, models.UserRoleLandowner)
	reviewerA := db.CreateTestUser(t, models.UserRoleReviewer)
	reviewerB := db.CreateTestUser(t, models.UserRoleReviewer)
	land := db.CreateTestLand(t, owner)

	version := uploadVersion(t, svc, land, owner, models.DocTypeSurveyReport)
	_, err := svc.Lock(ctx, version.ID, reviewerA.ID, "")
	require.NoError(t, err)

	_, err = svc.Unlock(ctx, version.ID, reviewerB, "")
	assert.ErrorIs(t, err, ErrUnauthorizedActor)
}

func TestVersionService_Unlock_AdminOverride(t *testing.T) {
	svc, db := setupVersionService(t)
	ctx := context.Background()

	owner := db.CreateTestUser(t, models.UserRoleLandowner)
	reviewer := db.CreateTestUser(t, models.UserRoleReviewer)
	admin := db.CreateTestUser(t, models.UserRoleAdmin)
	land := db.CreateTestLand(t, owner)

	version := uploadVersion(t, svc, land, owner, models.DocTypeSurveyReport)
	_, err := svc.Lock(ctx, version.ID, reviewer.ID, "")
	require.NoError(t, err)

	unlocked, err := svc.Unlock(ctx, version.ID, admin, "reviewer unavailable")
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusActive, unlocked.Status)
	assert.Nil(t, unlocked.ReviewLockedBy)

	entries, _, err := svc.QueryAudit(ctx, repositories.AuditFilter{LandID: land.ID})
	require.NoError(t, err)
	assert.Equal(t, models.AuditUnlock, entries[0].Action)
	assert.Equal(t, admin.ID, entries[0].ActorID)
}

func TestVersionService_CompleteReview_Approve(t *testing.T) {
	svc, db := setupVersionService(t)
	ctx := context.Background()

	owner := db.CreateTestUser(t, models.UserRoleLandowner)
	reviewer := db.CreateTestUser(t, models.UserRoleReviewer)
	land := db.CreateTestLand(t, owner)

	version := uploadVersion(t, svc, land, owner, models.DocTypeSurveyReport)
	_, err := svc.Lock(ctx, version.ID, reviewer.ID, "")
	require.NoError(t, err)

	approved, err := svc.CompleteReview(ctx, version.ID, reviewer, ReviewApprove, "checks out")
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusActive, approved.Status)
	assert.True(t, approved.IsLatest)
	assert.Nil(t, approved.ReviewLockedBy)
}

func TestVersionService_CompleteReview_Reject(t *testing.T) {
	svc, db := setupVersionService(t)
	ctx := context.Background()

	owner := db.CreateTestUser(t, models.UserRoleLandowner)
	reviewer := db.CreateTestUser(t, models.UserRoleReviewer)
	land := db.CreateTestLand(t, owner)

	version := uploadVersion(t, svc, land, owner, models.DocTypeSurveyReport)
	_, err := svc.Lock(ctx, version.ID, reviewer.ID, "")
	require.NoError(t, err)

	rejected, err := svc.CompleteReview(ctx, version.ID, reviewer, ReviewReject, "boundary dispute")
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusArchived, rejected.Status)
	assert.False(t, rejected.IsLatest)

	entries, _, err := svc.QueryAudit(ctx, repositories.AuditFilter{LandID: land.ID})
	require.NoError(t, err)
	assert.Equal(t, models.AuditArchive, entries[0].Action)
}

func TestVersionService_CompleteReview_NotUnderReview(t *testing.T) {
	svc, db := setupVersionService(t)
	ctx := context.Background()

	owner := db.CreateTestUser(t, models.UserRoleLandowner)
	reviewer := db.CreateTestUser(t, models.UserRoleReviewer)
	land := db.CreateTestLand(t, owner)

	version := uploadVersion(t, svc, land, owner, models.DocTypeSurveyReport)

	_, err := svc.CompleteReview(ctx, version.ID, reviewer, ReviewApprove, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestVersionService_VersionNumbersStayContiguous(t *testing.T) {
	svc, db := setupVersionService(t)
	ctx := context.Background()

	owner := db.CreateTestUser(t, models.UserRoleLandowner)
	reviewer := db.CreateTestUser(t, models.UserRoleReviewer)
	land := db.CreateTestLand(t, owner)

	uploadVersion(t, svc, land, owner, models.DocTypeSurveyReport)
	v2 := uploadVersion(t, svc, land, owner, models.DocTypeSurveyReport)

	// Reject v2; the next upload still takes number 3
	_, err := svc.Lock(ctx, v2.ID, reviewer.ID, "")
	require.NoError(t, err)
	_, err = svc.CompleteReview(ctx, v2.ID, reviewer, ReviewReject, "")
	require.NoError(t, err)

	v3 := uploadVersion(t, svc, land, owner, models.DocTypeSurveyReport)
	assert.Equal(t, 3, v3.VersionNumber)
}

func TestVersionService_Archive(t *testing.T) {
	svc, db := setupVersionService(t)
	ctx := context.Background()

	owner := db.CreateTestUser(t, models.UserRoleLandowner)
	land := db.CreateTestLand(t, owner)

	v1 := uploadVersion(t, svc, land, owner, models.DocTypeSurveyReport)
	uploadVersion(t, svc, land, owner, models.DocTypeSurveyReport)

	archived, err := svc.Archive(ctx, v1.ID, owner.ID, "superseded")
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusArchived, archived.Status)
	assert.False(t, archived.IsLatest)
}

func TestVersionService_Archive_LatestRejected(t *testing.T) {
	svc, db := setupVersionService(t)
	ctx := context.Background()

	owner := db.CreateTestUser(t, models.UserRoleLandowner)
	land := db.CreateTestLand(t, owner)

	version := uploadVersion(t, svc, land, owner, models.DocTypeSurveyReport)

	_, err := svc.Archive(ctx, version.ID, owner.ID, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestVersionService_Archive_Terminal(t *testing.T) {
	svc, db := setupVersionService(t)
	ctx := context.Background()

	owner := db.CreateTestUser(t, models.UserRoleLandowner)
	reviewer := db.CreateTestUser(t, models.UserRoleReviewer)
	land := db.CreateTestLand(t, owner)

	v1 := uploadVersion(t, svc, land, owner, models.DocTypeSurveyReport)
	uploadVersion(t, svc, land, owner, models.DocTypeSurveyReport)

	_, err := svc.Archive(ctx, v1.ID, owner.ID, "")
	require.NoError(t, err)

	// No operation touches an archived version again
	_, err = svc.Archive(ctx, v1.ID, owner.ID, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.Lock(ctx, v1.ID, reviewer.ID, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestVersionService_GetStatusSummary(t *testing.T) {
	svc, db := setupVersionService(t)
	ctx := context.Background()

	owner := db.CreateTestUser(t, models.UserRoleLandowner)
	reviewer := db.CreateTestUser(t, models.UserRoleReviewer)
	land := db.CreateTestLand(t, owner)

	uploadVersion(t, svc, land, owner, models.DocTypeSurveyReport)
	v2 := uploadVersion(t, svc, land, owner, models.DocTypeSurveyReport)
	uploadVersion(t, svc, land, owner, models.DocTypeOwnershipDeed)

	_, err := svc.Lock(ctx, v2.ID, reviewer.ID, "")
	require.NoError(t, err)

	summary, err := svc.GetStatusSummary(ctx, land.ID)
	require.NoError(t, err)
	require.Len(t, summary, 2)

	byType := make(map[models.DocumentType]int)
	for _, row := range summary {
		byType[row.DocumentType] = row.TotalVersions
		if row.DocumentType == models.DocTypeSurveyReport {
			assert.Equal(t, 2, row.MaxVersion)
			assert.Equal(t, 1, row.UnderReviewVersions)
		}
	}
	assert.Equal(t, 2, byType[models.DocTypeSurveyReport])
	assert.Equal(t, 1, byType[models.DocTypeOwnershipDeed])
}

func TestVersionService_GetStatusSummary_UnknownLand(t *testing.T) {
	svc, _ := setupVersionService(t)

	_, err := svc.GetStatusSummary(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrLandNotFound)
}
