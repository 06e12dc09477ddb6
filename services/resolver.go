package services

import (
	"strings"

	"stylistapi/models"
)

// ResolveItemName maps a model-produced item name back onto a catalog entry.
// Matching is case-insensitive: exact name first, then bidirectional
// substring; ties go to the earliest catalog entry so results stay
// deterministic for a given catalog ordering. A miss returns an unresolved
// ResolvedItem carrying the original name, never an error.
func ResolveItemName(name string, catalog []models.CatalogItem) models.ResolvedItem {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return models.ResolvedItem{Name: name}
	}
	for i := range catalog {
		if strings.ToLower(catalog[i].Name) == needle {
			return models.ResolvedItem{Name: name, Item: &catalog[i]}
		}
	}
	for i := range catalog {
		candidate := strings.ToLower(catalog[i].Name)
		if candidate == "" {
			continue
		}
		if strings.Contains(candidate, needle) || strings.Contains(needle, candidate) {
			return models.ResolvedItem{Name: name, Item: &catalog[i]}
		}
	}
	return models.ResolvedItem{Name: name}
}

// ResolveOutfitItems resolves every item name of a candidate, preserving the
// model's ordering. Unresolved names stay in the list as tagged misses.
func ResolveOutfitItems(candidate models.OutfitCandidate, catalog []models.CatalogItem) []models.ResolvedItem {
	resolved := make([]models.ResolvedItem, 0, len(candidate.Items))
	for _, name := range candidate.Items {
		resolved = append(resolved, ResolveItemName(name, catalog))
	}
	return resolved
}

// ResolveAnchor finds the anchor item by ID, checking the owned catalog
// first and the considering pool second.
func ResolveAnchor(anchorID string, catalog, considering []models.CatalogItem) *models.CatalogItem {
	for i := range catalog {
		if catalog[i].ID == anchorID {
			return &catalog[i]
		}
	}
	for i := range considering {
		if considering[i].ID == anchorID {
			return &considering[i]
		}
	}
	return nil
}
