package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"stylistapi/models"
	"stylistapi/services"
	"stylistapi/tasks"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
)

type OutfitsController struct {
	JobStore     services.JobStoreProvider
	Registry     *services.ProviderRegistry
	CatalogCache services.CatalogCacheProvider
}

func (controller *OutfitsController) OutfitRoutes(g *echo.Group) {
	g.POST("/generate", controller.GenerateOutfits)
	g.GET("/jobs/:jobId", controller.GetJob)
	g.POST("/stream", controller.StreamOutfits)
}

// buildContext turns a validated request into the immutable generation
// context. An empty catalog falls back to the caller's stored wardrobe
// snapshot (X-Owner-ID header).
func (controller *OutfitsController) buildContext(c echo.Context, req models.GenerateOutfitsRequest) (models.GenerationContext, error) {
	genCtx := req.ToContext()
	if len(genCtx.Catalog) > 0 {
		return genCtx, nil
	}
	ownerID := c.Request().Header.Get("X-Owner-ID")
	if ownerID == "" {
		return genCtx, fmt.Errorf("catalog is empty and no X-Owner-ID header provided")
	}
	snapshot, err := controller.CatalogCache.GetSnapshot(c.Request().Context(), ownerID)
	if err != nil {
		return genCtx, fmt.Errorf("loading wardrobe snapshot: %w", err)
	}
	if len(snapshot.Catalog) == 0 {
		return genCtx, fmt.Errorf("wardrobe is empty")
	}
	genCtx.Catalog = snapshot.Catalog
	genCtx.Considering = snapshot.Considering
	return genCtx, nil
}

func (controller *OutfitsController) GenerateOutfits(c echo.Context) error {
	var req models.GenerateOutfitsRequest
	if err := c.Bind(&req); err != nil {
		fmt.Println(err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	asynqClient, ok := c.Get("__asynqclient").(*asynq.Client)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Service is not available, please try again a bit later"})
	}

	genCtx, err := controller.buildContext(c, req)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	job := models.GenerationJob{
		ID:       uuid.NewString(),
		Status:   models.JobQueued,
		Progress: 0,
		Context:  &genCtx,
	}
	if err := controller.JobStore.Create(c.Request().Context(), &job); err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to create generation job, please try again"})
	}

	task, err := tasks.NewOutfitGenerationTask(job.ID)
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Sorry, could not start generation, please try again"})
	}
	info, err := asynqClient.Enqueue(task)
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Sorry, could not start generation, please try again"})
	}
	fmt.Println("[Queue] Outfit generation task submitted, Job ID: ", job.ID, " Task ID: ", info.ID)

	return c.JSON(http.StatusAccepted, models.GenerateOutfitsResponse{
		JobID:  job.ID,
		Status: string(job.Status),
	})
}

func (controller *OutfitsController) GetJob(c echo.Context) error {
	jobID := c.Param("jobId")
	job, err := controller.JobStore.Get(c.Request().Context(), jobID)
	if err != nil {
		if errors.Is(err, services.ErrJobNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Job not found"})
		}
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to read job status"})
	}
	return c.JSON(http.StatusOK, models.NewJobStatusResponse(job))
}

// StreamOutfits runs generation inline and pushes every validated outfit as
// an SSE event the moment its JSON block completes, instead of queueing.
func (controller *OutfitsController) StreamOutfits(c echo.Context) error {
	var req models.GenerateOutfitsRequest
	if err := c.Bind(&req); err != nil {
		fmt.Println(err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	genCtx, err := controller.buildContext(c, req)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	provider, err := controller.Registry.ForModel(services.ModelFromString(genCtx.Model))
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "No provider available for the requested model"})
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeEvent := func(event string, payload any) error {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
			return err
		}
		w.Flush()
		return nil
	}

	// The inline path gets the same upper bound as a queued job, so a
	// stalled vendor stream cannot hold the connection open indefinitely.
	streamCtx, cancel := context.WithTimeout(c.Request().Context(), tasks.JobTimeout)
	defer cancel()

	total, err := services.StreamOutfits(streamCtx, provider, genCtx,
		func(outfitNumber int, outfit models.ResolvedOutfit) error {
			return writeEvent("outfit", models.OutfitStreamEvent{
				OutfitNumber: outfitNumber,
				Outfit:       outfit,
			})
		})
	if err != nil {
		// Outfits already pushed stay valid; the terminal event reports
		// the failure instead of a complete count.
		sentry.CaptureException(fmt.Errorf("[Stream] generation failed after %d outfits: %w", total, err))
		return writeEvent("error", models.ErrorStreamEvent{Error: userFacingStreamError(err)})
	}
	return writeEvent("complete", models.CompleteStreamEvent{Total: total})
}

// userFacingStreamError keeps vendor details out of the SSE error payload.
func userFacingStreamError(err error) string {
	var provErr *services.ProviderError
	if errors.As(err, &provErr) {
		switch provErr.Kind {
		case services.ProviderErrAuth:
			return "generation service rejected our credentials"
		case services.ProviderErrRateLimit:
			return "generation service is busy, please retry shortly"
		default:
			return "generation service is unavailable, please retry"
		}
	}
	var emptyErr *services.EmptyResultError
	if errors.As(err, &emptyErr) {
		return "no valid outfits could be composed from this wardrobe"
	}
	var extErr *services.ExtractionError
	if errors.As(err, &extErr) {
		return "generation produced an unreadable response, please retry"
	}
	return "outfit generation failed, please retry"
}
