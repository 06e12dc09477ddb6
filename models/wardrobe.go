package models

import (
	"fmt"
	"time"
)

type JsonModel struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WardrobeItem is the persisted wardrobe piece. The generation pipeline never
// touches rows directly; callers snapshot them into CatalogItem values first.
type WardrobeItem struct {
	JsonModel
	OwnerID     string  `gorm:"index" json:"-"`
	Name        string  `json:"name"`
	Category    string  `json:"category"` // one of models.AllCategories
	Colors      *string `json:"colors"`
	Fabric      *string `json:"fabric"`
	Silhouette  *string `json:"silhouette"`
	Description *string `gorm:"type:text" json:"description"`
	// Considering marks pieces the user is thinking about buying; they form
	// the secondary pool for complete_look anchor matching.
	Considering bool `gorm:"default:false" json:"considering"`
}

// Snapshot freezes the row into the immutable catalog representation used for
// one generation request.
func (w WardrobeItem) Snapshot() CatalogItem {
	attrs := map[string]string{}
	if w.Colors != nil && *w.Colors != "" {
		attrs["colors"] = *w.Colors
	}
	if w.Fabric != nil && *w.Fabric != "" {
		attrs["fabric"] = *w.Fabric
	}
	if w.Silhouette != nil && *w.Silhouette != "" {
		attrs["silhouette"] = *w.Silhouette
	}
	if len(attrs) == 0 {
		attrs = nil
	}
	return CatalogItem{
		ID:         fmt.Sprintf("%d", w.ID),
		Name:       w.Name,
		Category:   Category(w.Category),
		Attributes: attrs,
	}
}
