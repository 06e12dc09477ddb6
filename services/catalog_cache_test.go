package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stylistapi/dbhelper"
	"stylistapi/models"
	"stylistapi/services"
)

func TestCatalogSnapshotSplitsConsidering(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()

	require.NoError(t, db.Create(&models.WardrobeItem{OwnerID: "owner-1", Name: "White tee", Category: "tops"}).Error)
	require.NoError(t, db.Create(&models.WardrobeItem{OwnerID: "owner-1", Name: "Blue jeans", Category: "bottoms"}).Error)
	require.NoError(t, db.Create(&models.WardrobeItem{OwnerID: "owner-1", Name: "Cream boots", Category: "footwear", Considering: true}).Error)
	require.NoError(t, db.Create(&models.WardrobeItem{OwnerID: "owner-2", Name: "Black dress", Category: "dresses"}).Error)

	svc, err := services.NewCatalogCacheService(db)
	require.NoError(t, err)

	snapshot, err := svc.GetSnapshot(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Len(t, snapshot.Catalog, 2)
	require.Len(t, snapshot.Considering, 1)
	assert.Equal(t, "White tee", snapshot.Catalog[0].Name)
	assert.Equal(t, models.CategoryTops, snapshot.Catalog[0].Category)
	assert.Equal(t, "Cream boots", snapshot.Considering[0].Name)

	_, err = svc.GetSnapshot(context.Background(), "")
	assert.Error(t, err)
}

func TestCatalogSnapshotInvalidateReloads(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()

	require.NoError(t, db.Create(&models.WardrobeItem{OwnerID: "owner-1", Name: "White tee", Category: "tops"}).Error)

	svc, err := services.NewCatalogCacheService(db)
	require.NoError(t, err)

	snapshot, err := svc.GetSnapshot(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Len(t, snapshot.Catalog, 1)

	require.NoError(t, db.Create(&models.WardrobeItem{OwnerID: "owner-1", Name: "Blue jeans", Category: "bottoms"}).Error)

	// Loadable cache writes back asynchronously, so poll until the
	// invalidation takes effect.
	assert.Eventually(t, func() bool {
		if err := svc.Invalidate(context.Background(), "owner-1"); err != nil {
			return false
		}
		snapshot, err := svc.GetSnapshot(context.Background(), "owner-1")
		return err == nil && len(snapshot.Catalog) == 2
	}, 2*time.Second, 50*time.Millisecond)
}
