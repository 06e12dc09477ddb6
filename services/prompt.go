package services

import (
	"fmt"
	"strings"

	"stylistapi/models"
)

const stylistSystemInstruction = `You are an expert personal stylist. You compose outfits strictly from the wardrobe items the user lists, never inventing pieces. Every outfit must include exactly one lower-body piece (bottoms or a dress), at most one pair of footwear, and at least two items total. Refer to items by their exact catalog names.`

func formatCatalogLines(items []models.CatalogItem) string {
	var b strings.Builder
	for _, it := range items {
		b.WriteString("- ")
		b.WriteString(it.Name)
		b.WriteString(" (")
		b.WriteString(string(it.Category))
		if len(it.Attributes) > 0 {
			for _, key := range []string{"colors", "fabric", "silhouette"} {
				if v, ok := it.Attributes[key]; ok && v != "" {
					b.WriteString(", ")
					b.WriteString(v)
				}
			}
		}
		b.WriteString(")\n")
	}
	return b.String()
}

// BuildOutfitPrompt renders the generation prompt for one context. The same
// prompt serves the batch and streaming paths; the markers it requests are
// what StreamingAssembler scans for, and in batch mode the extractor skips
// them as preamble around the JSON blocks.
func BuildOutfitPrompt(genCtx models.GenerationContext) GenerateParams {
	count := genCtx.EffectiveOutfitCount()

	var b strings.Builder
	fmt.Fprintf(&b, "Create %d distinct outfits from this wardrobe.\n\n", count)
	b.WriteString("WARDROBE:\n")
	b.WriteString(formatCatalogLines(genCtx.Catalog))

	if genCtx.Mode == models.ModeCompleteLook {
		if len(genCtx.Considering) > 0 {
			b.WriteString("\nPIECES BEING CONSIDERED FOR PURCHASE:\n")
			b.WriteString(formatCatalogLines(genCtx.Considering))
		}
		var anchors []string
		for _, id := range genCtx.AnchorItemIDs {
			if item := ResolveAnchor(id, genCtx.Catalog, genCtx.Considering); item != nil {
				anchors = append(anchors, item.Name)
			}
		}
		if len(anchors) > 0 {
			fmt.Fprintf(&b, "\nEVERY outfit must include: %s.\n", strings.Join(anchors, ", "))
		}
	}

	if len(genCtx.StyleWords) > 0 {
		fmt.Fprintf(&b, "\nStyle direction: %s.\n", strings.Join(genCtx.StyleWords, ", "))
	}
	if genCtx.Occasion != "" {
		fmt.Fprintf(&b, "Occasion: %s.\n", genCtx.Occasion)
	}
	if genCtx.WeatherCondition != "" {
		fmt.Fprintf(&b, "Weather: %s.\n", genCtx.WeatherCondition)
	}
	if genCtx.TemperatureRange != "" {
		fmt.Fprintf(&b, "Temperature: %s.\n", genCtx.TemperatureRange)
	}

	b.WriteString("\nFor each outfit N from 1 to ")
	fmt.Fprintf(&b, "%d, print the literal line ===OUTFIT N JSON=== followed by one JSON object:\n", count)
	b.WriteString(`{"items": ["exact catalog item name", ...], "styling_notes": "how to wear it", "why_it_works": "why the combination works"}` + "\n")
	b.WriteString("Print nothing after the final JSON object.\n")

	return GenerateParams{
		SystemInstruction: stylistSystemInstruction,
		Prompt:            b.String(),
		Model:             ModelFromString(genCtx.Model),
		Temperature:       floatPointer(1),
		MaxOutputTokens:   50000,
	}
}
