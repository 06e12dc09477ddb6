package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"

	"stylistapi/models"
	"stylistapi/services"
)

const (
	TypeOutfitGeneration = "generate:outfits"
	QueueGenerate        = "generate"
)

// JobTimeout bounds one generation job end to end.
var JobTimeout = 120 * time.Second

type OutfitGenerationPayload struct {
	JobID string `json:"job_id"`
}

// Client initializes an asynq client for enqueuing tasks
func NewClient() (*asynq.Client, error) {
	return asynq.NewClient(asynq.RedisClientOpt{Addr: services.GetEnv("REDIS_ADDR", "localhost:6379")}), nil
}

// NewOutfitGenerationTask enqueues one generation job. Jobs are never
// auto-retried; a failed attempt finalizes the job record instead.
func NewOutfitGenerationTask(jobID string) (*asynq.Task, error) {
	payload, err := json.Marshal(OutfitGenerationPayload{JobID: jobID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeOutfitGeneration, payload, asynq.MaxRetry(0), asynq.Queue(QueueGenerate)), nil
}

// jobErrorFor maps pipeline failures onto the job error taxonomy the poll
// endpoint exposes. Raw vendor errors never reach the caller.
func jobErrorFor(err error) models.JobError {
	var provErr *services.ProviderError
	if errors.As(err, &provErr) {
		return models.JobError{Kind: "provider_" + string(provErr.Kind), Message: provErr.Message}
	}
	var extErr *services.ExtractionError
	if errors.As(err, &extErr) {
		return models.JobError{Kind: "extraction_" + string(extErr.Kind), Message: extErr.Message}
	}
	var emptyErr *services.EmptyResultError
	if errors.As(err, &emptyErr) {
		return models.JobError{Kind: "empty_result", Message: emptyErr.Error()}
	}
	return models.JobError{Kind: "job_execution", Message: err.Error()}
}

func HandleOutfitGenerationTask(ctx context.Context, t *asynq.Task, jobStore services.JobStoreProvider, registry *services.ProviderRegistry) error {
	var payload OutfitGenerationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}
	fmt.Printf("[Job: %v] Outfit generation\n", payload.JobID)

	job, err := jobStore.Get(ctx, payload.JobID)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("[QUEUE] Error on retrieving job for generation %v: %w", payload.JobID, err))
		return err
	}
	if job.Context == nil {
		finalize(ctx, jobStore, payload.JobID, models.JobError{Kind: "job_execution", Message: "job has no generation context"})
		return nil
	}

	jobCtx, cancel := context.WithTimeout(ctx, JobTimeout)
	defer cancel()

	if err := jobStore.MarkRunning(jobCtx, payload.JobID); err != nil {
		if errors.Is(err, services.ErrJobFinalized) {
			fmt.Printf("[Job: %v] already finalized, skipping\n", payload.JobID)
			return nil
		}
		sentry.CaptureException(fmt.Errorf("[Job: %v] Error marking job running: %w", payload.JobID, err))
		return err
	}
	checkpoint(jobCtx, jobStore, payload.JobID, 25)

	defer func() {
		if r := recover(); r != nil {
			sentry.CaptureException(fmt.Errorf("[Job: %v] panic during generation: %v", payload.JobID, r))
			finalize(context.WithoutCancel(ctx), jobStore, payload.JobID,
				models.JobError{Kind: "job_execution", Message: fmt.Sprintf("panic: %v", r)})
		}
	}()

	model := services.ModelFromString(job.Context.Model)
	provider, err := registry.ForModel(model)
	if err != nil {
		finalize(jobCtx, jobStore, payload.JobID, models.JobError{Kind: "job_execution", Message: err.Error()})
		return nil
	}
	checkpoint(jobCtx, jobStore, payload.JobID, 40)

	outfits, err := services.SynthesizeOutfits(jobCtx, provider, *job.Context)

	// Terminal writes use a fresh context so a deadline that fired mid-call
	// cannot also block recording the outcome.
	finalCtx := context.WithoutCancel(ctx)
	if jobCtx.Err() == context.DeadlineExceeded {
		fmt.Printf("[Job: %v] timed out after %s\n", payload.JobID, JobTimeout)
		if err := jobStore.MarkTimedOut(finalCtx, payload.JobID, models.JobError{
			Kind:    "job_timeout",
			Message: fmt.Sprintf("generation exceeded %s", JobTimeout),
		}); err != nil && !errors.Is(err, services.ErrJobFinalized) {
			sentry.CaptureException(fmt.Errorf("[Job: %v] Error marking job timed out: %w", payload.JobID, err))
		}
		return nil
	}
	if err != nil {
		fmt.Printf("[Job: %v] generation failed: %v\n", payload.JobID, err)
		sentry.CaptureException(fmt.Errorf("[Job: %v] generation failed: %w", payload.JobID, err))
		finalize(finalCtx, jobStore, payload.JobID, jobErrorFor(err))
		return nil
	}

	checkpoint(finalCtx, jobStore, payload.JobID, 90)
	if err := jobStore.Succeed(finalCtx, payload.JobID, outfits); err != nil {
		if errors.Is(err, services.ErrJobFinalized) {
			fmt.Printf("[Job: %v] result discarded, job already finalized\n", payload.JobID)
			return nil
		}
		sentry.CaptureException(fmt.Errorf("[Job: %v] Error recording success: %w", payload.JobID, err))
		return err
	}
	fmt.Printf("[Job: %v] done, %d outfits\n", payload.JobID, len(outfits))
	return nil
}

func checkpoint(ctx context.Context, jobStore services.JobStoreProvider, jobID string, progress int) {
	if err := jobStore.SetProgress(ctx, jobID, progress); err != nil && !errors.Is(err, services.ErrJobFinalized) {
		fmt.Printf("[Job: %v] Error setting progress %d: %v\n", jobID, progress, err)
	}
}

func finalize(ctx context.Context, jobStore services.JobStoreProvider, jobID string, jobErr models.JobError) {
	if err := jobStore.Fail(ctx, jobID, jobErr); err != nil && !errors.Is(err, services.ErrJobFinalized) {
		sentry.CaptureException(fmt.Errorf("[Job: %v] Error recording failure: %w", jobID, err))
	}
}
