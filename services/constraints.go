package services

import "stylistapi/models"

// ValidateOutfit judges the structural validity of a resolved outfit. Rules
// run in a fixed order and stop at the first failure, so a result carries at
// most one violation.
func ValidateOutfit(items []models.ResolvedItem, mode models.GenerationMode, anchorIDs []string) models.ValidationResult {
	resolvedCount := 0
	lowerBody := 0
	footwear := 0
	resolvedIDs := map[string]bool{}
	for _, it := range items {
		if !it.Resolved() {
			continue
		}
		resolvedCount++
		resolvedIDs[it.Item.ID] = true
		if it.Item.Category.IsLowerBody() {
			lowerBody++
		}
		if it.Item.Category == models.CategoryFootwear {
			footwear++
		}
	}

	fail := func(kind models.ViolationKind) models.ValidationResult {
		return models.ValidationResult{Passed: false, Violations: []models.ViolationKind{kind}}
	}

	if resolvedCount < 2 {
		return fail(models.ViolationMinimumItemCount)
	}
	if lowerBody == 0 {
		return fail(models.ViolationRequiresLowerBody)
	}
	if lowerBody > 1 {
		return fail(models.ViolationSingleLowerBody)
	}
	if footwear > 1 {
		return fail(models.ViolationSingleFootwear)
	}
	if mode == models.ModeCompleteLook {
		for _, id := range anchorIDs {
			if !resolvedIDs[id] {
				return fail(models.ViolationAnchorInclusion)
			}
		}
	}
	return models.ValidationResult{Passed: true}
}
