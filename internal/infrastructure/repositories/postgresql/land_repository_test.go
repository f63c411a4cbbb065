package postgresql

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrawatt/terrawatt/internal/domain/repositories"
	"github.com/terrawatt/terrawatt/internal/infrastructure/database/models"
	"github.com/terrawatt/terrawatt/internal/infrastructure/repositories/postgresql/testutil"
)

func TestLandRepository_Create(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer db.Cleanup(t)

	repo := NewLandRepository(db.DB)
	ctx := context.Background()

	owner := db.CreateTestUser(t, models.UserRoleLandowner)

	land := &models.Land{
		ID:         uuid.New(),
		OwnerID:    owner.ID,
		Name:       "Mojave Solar Site",
		EnergyType: models.EnergySolar,
		AreaAcres:  340.0,
		Location:   "San Bernardino County, CA",
		Status:     models.LandListed,
	}
	require.NoError(t, repo.Create(ctx, land))

	found, err := repo.GetByID(ctx, land.ID)
	require.NoError(t, err)
	assert.Equal(t, land.Name, found.Name)
	assert.Equal(t, models.EnergySolar, found.EnergyType)
}

func TestLandRepository_GetByID_NotFound(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer db.Cleanup(t)

	repo := NewLandRepository(db.DB)

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestLandRepository_List_Search(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer db.Cleanup(t)

	repo := NewLandRepository(db.DB)
	ctx := context.Background()

	owner := db.CreateTestUser(t, models.UserRoleLandowner)
	windSite := &models.Land{
		ID:         uuid.New(),
		OwnerID:    owner.ID,
		Name:       "Altamont Wind Ridge",
		EnergyType: models.EnergyWind,
		AreaAcres:  220.0,
		Status:     models.LandListed,
	}
	require.NoError(t, repo.Create(ctx, windSite))
	db.CreateTestLand(t, owner)

	lands, total, err := repo.List(ctx, repositories.ListParams{Page: 1, PageSize: 10, Search: "Altamont"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, lands, 1)
	assert.Equal(t, windSite.ID, lands[0].ID)
}
