package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"
	"gorm.io/gorm"

	"stylistapi/models"
)

const catalogCacheExpiration = 5 * time.Minute

// CatalogSnapshot is one owner's wardrobe frozen for a generation request:
// the owned pool plus the considering pool, both in stable row order.
type CatalogSnapshot struct {
	Catalog     []models.CatalogItem
	Considering []models.CatalogItem
}

type CatalogCacheProvider interface {
	GetSnapshot(ctx context.Context, ownerID string) (CatalogSnapshot, error)
	Invalidate(ctx context.Context, ownerID string) error
}

// CatalogCacheService serves wardrobe snapshots through a loadable Ristretto
// cache so repeated generation requests skip the catalog query.
type CatalogCacheService struct {
	cache *cache.LoadableCache[CatalogSnapshot]
}

func NewCatalogCacheService(db *gorm.DB) (*CatalogCacheService, error) {
	ristrettoCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e7,
		MaxCost:     1 << 27,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}
	ristrettoStore := ristretto_store.NewRistretto(ristrettoCache)

	loadFunction := func(ctx context.Context, key any) (CatalogSnapshot, []store.Option, error) {
		ownerID, ok := key.(string)
		if !ok {
			return CatalogSnapshot{}, nil, fmt.Errorf("invalid key type provided to catalog cache: expected string, got %T", key)
		}

		log.Printf("CACHE MISS for owner: %s. Loading wardrobe snapshot.", ownerID)
		var rows []models.WardrobeItem
		if err := db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("id asc").Find(&rows).Error; err != nil {
			return CatalogSnapshot{}, nil, fmt.Errorf("loading wardrobe for %s: %w", ownerID, err)
		}

		var snapshot CatalogSnapshot
		for _, row := range rows {
			if row.Considering {
				snapshot.Considering = append(snapshot.Considering, row.Snapshot())
			} else {
				snapshot.Catalog = append(snapshot.Catalog, row.Snapshot())
			}
		}
		return snapshot, []store.Option{store.WithExpiration(catalogCacheExpiration)}, nil
	}

	loadableCache := cache.NewLoadable[CatalogSnapshot](
		loadFunction,
		cache.New[CatalogSnapshot](ristrettoStore),
	)
	fmt.Println("Initialized CatalogCacheService with Ristretto cache!")
	return &CatalogCacheService{cache: loadableCache}, nil
}

func (s *CatalogCacheService) GetSnapshot(ctx context.Context, ownerID string) (CatalogSnapshot, error) {
	if ownerID == "" {
		return CatalogSnapshot{}, fmt.Errorf("owner id required")
	}
	return s.cache.Get(ctx, ownerID)
}

// Invalidate drops the owner's snapshot after a wardrobe write.
func (s *CatalogCacheService) Invalidate(ctx context.Context, ownerID string) error {
	return s.cache.Delete(ctx, ownerID)
}
