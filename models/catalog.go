package models

import "github.com/go-playground/validator"

// Category buckets every wardrobe piece into one of the structural groups the
// outfit constraint rules reason about.
type Category string

const (
	CategoryTops        Category = "tops"
	CategoryBottoms     Category = "bottoms"
	CategoryDresses     Category = "dresses"
	CategoryOuterwear   Category = "outerwear"
	CategoryFootwear    Category = "footwear"
	CategoryAccessories Category = "accessories"
	CategoryBags        Category = "bags"
)

var AllCategories = []Category{
	CategoryTops, CategoryBottoms, CategoryDresses, CategoryOuterwear,
	CategoryFootwear, CategoryAccessories, CategoryBags,
}

func ValidCategory(value string) bool {
	for _, c := range AllCategories {
		if string(c) == value {
			return true
		}
	}
	return false
}

func ValidateCategory(fl validator.FieldLevel) bool {
	return ValidCategory(fl.Field().String())
}

// IsLowerBody reports whether the category occupies the lower-body slot of an
// outfit. Dresses count: a dress excludes a separate bottom.
func (c Category) IsLowerBody() bool {
	return c == CategoryBottoms || c == CategoryDresses
}

// CatalogItem is one wardrobe piece as the pipeline sees it: an immutable
// snapshot owned by the caller. The pipeline never mutates it.
type CatalogItem struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Category   Category          `json:"category"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type GenerationMode string

const (
	ModeOccasion     GenerationMode = "occasion"
	ModeCompleteLook GenerationMode = "complete_look"
)

func ValidateGenerationMode(fl validator.FieldLevel) bool {
	v := GenerationMode(fl.Field().String())
	return v == ModeOccasion || v == ModeCompleteLook
}

const DefaultOutfitCount = 3

// GenerationContext carries everything one styling request needs. It is built
// once per request and is read-only for the lifetime of the job; workers and
// the streaming path share the same snapshot semantics.
type GenerationContext struct {
	StyleWords       []string       `json:"style_words"`
	Occasion         string         `json:"occasion,omitempty"`
	WeatherCondition string         `json:"weather_condition,omitempty"`
	TemperatureRange string         `json:"temperature_range,omitempty"`
	Catalog          []CatalogItem  `json:"catalog"`
	// Considering is the secondary pool consulted when anchor ids are not in
	// the primary wardrobe (complete_look flow).
	Considering   []CatalogItem  `json:"considering,omitempty"`
	AnchorItemIDs []string       `json:"anchor_item_ids,omitempty"`
	Mode          GenerationMode `json:"mode"`
	OutfitCount   int            `json:"outfit_count"`
	Model         string         `json:"model,omitempty"`
}

func (g GenerationContext) EffectiveOutfitCount() int {
	if g.OutfitCount <= 0 {
		return DefaultOutfitCount
	}
	return g.OutfitCount
}
