package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"stylistapi/models"
)

// EmptyResultError means every extracted candidate was rejected by
// validation, or none were extracted at all.
type EmptyResultError struct {
	Rejected int
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("no valid outfits produced (%d candidates rejected)", e.Rejected)
}

// resolutionPool is the catalog item names resolve against. In complete_look
// mode the prompt offers the considering pieces too, so names must resolve
// across both pools; the primary wardrobe keeps priority by coming first.
func resolutionPool(genCtx models.GenerationContext) []models.CatalogItem {
	if genCtx.Mode != models.ModeCompleteLook || len(genCtx.Considering) == 0 {
		return genCtx.Catalog
	}
	pool := make([]models.CatalogItem, 0, len(genCtx.Catalog)+len(genCtx.Considering))
	pool = append(pool, genCtx.Catalog...)
	return append(pool, genCtx.Considering...)
}

// finalizeCandidate runs one candidate through resolution and validation.
// Rejected candidates are logged with their violation and dropped.
func finalizeCandidate(candidate models.OutfitCandidate, genCtx models.GenerationContext) (models.ResolvedOutfit, bool) {
	resolved := ResolveOutfitItems(candidate, resolutionPool(genCtx))
	validation := ValidateOutfit(resolved, genCtx.Mode, genCtx.AnchorItemIDs)
	outfit := models.ResolvedOutfit{
		Items:        resolved,
		StylingNotes: candidate.StylingNotes,
		WhyItWorks:   candidate.WhyItWorks,
		Validation:   validation,
	}
	if !validation.Passed {
		fmt.Printf("[Outfit %d] rejected: %v\n", candidate.SectionIndex, validation.Violations)
		return outfit, false
	}
	return outfit, true
}

// SynthesizeOutfits runs the batch path: one complete provider response,
// extracted and filtered into validated outfits.
func SynthesizeOutfits(ctx context.Context, provider TextGenerationProvider, genCtx models.GenerationContext) ([]models.ResolvedOutfit, error) {
	params := BuildOutfitPrompt(genCtx)
	result, err := provider.Generate(ctx, params)
	if err != nil {
		return nil, err
	}
	fmt.Printf("[Generation] model %s used %d tokens (~$%.5f)\n",
		result.ModelName, result.Usage.TotalTokenCount, EstimateCostUSD(params.Model, result.Usage))

	candidates, err := ExtractOutfitCandidates(result.Text)
	if err != nil {
		return nil, err
	}

	outfits := make([]models.ResolvedOutfit, 0, len(candidates))
	rejected := 0
	for _, candidate := range candidates {
		outfit, ok := finalizeCandidate(candidate, genCtx)
		if !ok {
			rejected++
			continue
		}
		outfits = append(outfits, outfit)
	}
	if len(outfits) == 0 {
		return nil, &EmptyResultError{Rejected: rejected}
	}
	return outfits, nil
}

// StreamOutfits runs the streaming path: deltas flow through the assembler
// and each validated outfit is handed to emit as soon as its JSON block
// closes. Returns the number of outfits emitted. Outfits already emitted stay
// valid even when a later delta fails.
func StreamOutfits(ctx context.Context, provider TextGenerationProvider, genCtx models.GenerationContext, emit func(outfitNumber int, outfit models.ResolvedOutfit) error) (int, error) {
	params := BuildOutfitPrompt(genCtx)
	stream, err := provider.GenerateStream(ctx, params)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	assembler := NewStreamingAssembler()
	emitted := 0
	rejected := 0

	process := func(candidates []models.OutfitCandidate) error {
		for _, candidate := range candidates {
			outfit, ok := finalizeCandidate(candidate, genCtx)
			if !ok {
				rejected++
				continue
			}
			emitted++
			if err := emit(emitted, outfit); err != nil {
				return err
			}
		}
		return nil
	}

	for {
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return emitted, err
		}
		if err := process(assembler.Push(delta)); err != nil {
			return emitted, err
		}
	}

	if _, err := assembler.Finish(); err != nil {
		if emitted == 0 {
			return 0, err
		}
		fmt.Printf("[Stream] finished with extraction issue after %d outfits: %v\n", emitted, err)
	}
	for _, d := range assembler.Diagnostics() {
		fmt.Printf("[Stream] section %d %s: %s\n", d.SectionIndex, d.Kind, d.Message)
	}
	timings := assembler.Timings()
	fmt.Printf("[Stream] first token %s, %d emissions, stream end %s\n",
		timings.FirstToken, len(timings.Emissions), timings.StreamEnd)

	if emitted == 0 {
		return 0, &EmptyResultError{Rejected: rejected}
	}
	return emitted, nil
}
