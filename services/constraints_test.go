package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stylistapi/models"
)

func resolvedItems(items ...models.CatalogItem) []models.ResolvedItem {
	out := make([]models.ResolvedItem, 0, len(items))
	for i := range items {
		out = append(out, models.ResolvedItem{Name: items[i].Name, Item: &items[i]})
	}
	return out
}

func TestValidateOutfitPasses(t *testing.T) {
	items := resolvedItems(
		models.CatalogItem{ID: "1", Name: "White tee", Category: models.CategoryTops},
		models.CatalogItem{ID: "2", Name: "Blue jeans", Category: models.CategoryBottoms},
		models.CatalogItem{ID: "3", Name: "White sneakers", Category: models.CategoryFootwear},
	)
	result := ValidateOutfit(items, models.ModeOccasion, nil)
	assert.True(t, result.Passed)
	assert.Empty(t, result.Violations)
}

func TestValidateOutfitMinimumItemCount(t *testing.T) {
	items := resolvedItems(
		models.CatalogItem{ID: "2", Name: "Blue jeans", Category: models.CategoryBottoms},
	)
	// Unresolved names do not count toward the minimum.
	items = append(items, models.ResolvedItem{Name: "Phantom jacket"})

	result := ValidateOutfit(items, models.ModeOccasion, nil)
	require.False(t, result.Passed)
	assert.Equal(t, []models.ViolationKind{models.ViolationMinimumItemCount}, result.Violations)
}

func TestValidateOutfitRequiresLowerBody(t *testing.T) {
	items := resolvedItems(
		models.CatalogItem{ID: "1", Name: "White tee", Category: models.CategoryTops},
		models.CatalogItem{ID: "3", Name: "White sneakers", Category: models.CategoryFootwear},
	)
	result := ValidateOutfit(items, models.ModeOccasion, nil)
	require.False(t, result.Passed)
	assert.Equal(t, []models.ViolationKind{models.ViolationRequiresLowerBody}, result.Violations)
}

func TestValidateOutfitSingleLowerBody(t *testing.T) {
	items := resolvedItems(
		models.CatalogItem{ID: "2", Name: "Blue jeans", Category: models.CategoryBottoms},
		models.CatalogItem{ID: "5", Name: "Slip dress", Category: models.CategoryDresses},
	)
	result := ValidateOutfit(items, models.ModeOccasion, nil)
	require.False(t, result.Passed)
	assert.Equal(t, []models.ViolationKind{models.ViolationSingleLowerBody}, result.Violations)
}

func TestValidateOutfitSingleFootwear(t *testing.T) {
	items := resolvedItems(
		models.CatalogItem{ID: "2", Name: "Blue jeans", Category: models.CategoryBottoms},
		models.CatalogItem{ID: "3", Name: "White sneakers", Category: models.CategoryFootwear},
		models.CatalogItem{ID: "6", Name: "Cream boots", Category: models.CategoryFootwear},
	)
	result := ValidateOutfit(items, models.ModeOccasion, nil)
	require.False(t, result.Passed)
	assert.Equal(t, []models.ViolationKind{models.ViolationSingleFootwear}, result.Violations)
}

func TestValidateOutfitShortCircuitsOnFirstFailure(t *testing.T) {
	// Both zero lower body and anchor missing; only the earlier rule reports.
	items := resolvedItems(
		models.CatalogItem{ID: "1", Name: "White tee", Category: models.CategoryTops},
		models.CatalogItem{ID: "3", Name: "White sneakers", Category: models.CategoryFootwear},
	)
	result := ValidateOutfit(items, models.ModeCompleteLook, []string{"42"})
	require.False(t, result.Passed)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, models.ViolationRequiresLowerBody, result.Violations[0])
}

func TestValidateOutfitAnchorInclusion(t *testing.T) {
	items := resolvedItems(
		models.CatalogItem{ID: "1", Name: "White tee", Category: models.CategoryTops},
		models.CatalogItem{ID: "2", Name: "Blue jeans", Category: models.CategoryBottoms},
	)

	result := ValidateOutfit(items, models.ModeCompleteLook, []string{"42"})
	require.False(t, result.Passed)
	assert.Equal(t, []models.ViolationKind{models.ViolationAnchorInclusion}, result.Violations)

	// Same outfit passes in occasion mode since anchors are not enforced.
	result = ValidateOutfit(items, models.ModeOccasion, []string{"42"})
	assert.True(t, result.Passed)

	// And passes in complete_look when the anchor is present.
	result = ValidateOutfit(items, models.ModeCompleteLook, []string{"2"})
	assert.True(t, result.Passed)
}
