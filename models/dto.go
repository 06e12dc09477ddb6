package models

type CatalogItemIn struct {
	ID         string            `json:"id"`
	Name       string            `json:"name" validate:"required"`
	Category   string            `json:"category" validate:"required,clothingcategory"`
	Attributes map[string]string `json:"attributes"`
}

type GenerateOutfitsRequest struct {
	StyleWords       []string        `json:"style_words" validate:"required,len=3,dive,required"`
	Occasion         string          `json:"occasion"`
	WeatherCondition string          `json:"weather_condition"`
	TemperatureRange string          `json:"temperature_range"`
	// An empty catalog is allowed; the handler falls back to the caller's
	// stored wardrobe snapshot.
	Catalog          []CatalogItemIn `json:"catalog" validate:"omitempty,dive"`
	Considering      []CatalogItemIn `json:"considering" validate:"dive"`
	AnchorItemIDs    []string        `json:"anchor_item_ids"`
	Mode             string          `json:"mode" validate:"required,generationmode"`
	OutfitCount      int             `json:"outfit_count" validate:"omitempty,min=1,max=6"`
	Model            string          `json:"model"`
}

func (r GenerateOutfitsRequest) ToContext() GenerationContext {
	ctx := GenerationContext{
		StyleWords:       r.StyleWords,
		Occasion:         r.Occasion,
		WeatherCondition: r.WeatherCondition,
		TemperatureRange: r.TemperatureRange,
		AnchorItemIDs:    r.AnchorItemIDs,
		Mode:             GenerationMode(r.Mode),
		OutfitCount:      r.OutfitCount,
		Model:            r.Model,
	}
	for _, it := range r.Catalog {
		ctx.Catalog = append(ctx.Catalog, CatalogItem{
			ID: it.ID, Name: it.Name, Category: Category(it.Category), Attributes: it.Attributes,
		})
	}
	for _, it := range r.Considering {
		ctx.Considering = append(ctx.Considering, CatalogItem{
			ID: it.ID, Name: it.Name, Category: Category(it.Category), Attributes: it.Attributes,
		})
	}
	return ctx
}

type GenerateOutfitsResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type JobStatusResponse struct {
	JobID    string           `json:"job_id"`
	Status   string           `json:"status"`
	Progress int              `json:"progress"`
	Outfits  []ResolvedOutfit `json:"outfits,omitempty"`
	Error    *JobError        `json:"error,omitempty"`
}

func NewJobStatusResponse(job *GenerationJob) JobStatusResponse {
	return JobStatusResponse{
		JobID:    job.ID,
		Status:   string(job.Status),
		Progress: job.Progress,
		Outfits:  job.Outfits,
		Error:    job.Error,
	}
}

// SSE payloads for the streaming endpoint.

type OutfitStreamEvent struct {
	OutfitNumber int            `json:"outfitNumber"`
	Outfit       ResolvedOutfit `json:"outfit"`
}

type CompleteStreamEvent struct {
	Total int `json:"total"`
}

type ErrorStreamEvent struct {
	Error string `json:"error"`
}

type WardrobeItemIn struct {
	Name        string  `json:"name" validate:"required"`
	Category    string  `json:"category" validate:"required,clothingcategory"`
	Colors      *string `json:"colors"`
	Fabric      *string `json:"fabric"`
	Silhouette  *string `json:"silhouette"`
	Description *string `json:"description"`
	Considering bool    `json:"considering"`
}

type WardrobeListResponse struct {
	Items []WardrobeItem `json:"items"`
}
