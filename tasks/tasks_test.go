package tasks_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stylistapi/models"
	"stylistapi/services"
	"stylistapi/tasks"
	"stylistapi/test"
)

func newQueuedJob(t *testing.T, store *test.MemoryJobStore, genCtx *models.GenerationContext) string {
	t.Helper()
	job := &models.GenerationJob{
		ID:      uuid.NewString(),
		Status:  models.JobQueued,
		Context: genCtx,
	}
	require.NoError(t, store.Create(context.Background(), job))
	return job.ID
}

func runTask(t *testing.T, store *test.MemoryJobStore, registry *services.ProviderRegistry, jobID string) error {
	t.Helper()
	task, err := tasks.NewOutfitGenerationTask(jobID)
	require.NoError(t, err)
	return tasks.HandleOutfitGenerationTask(context.Background(), task, store, registry)
}

func occasionContext() *models.GenerationContext {
	return &models.GenerationContext{
		StyleWords: []string{"smart casual"},
		Occasion:   "dinner",
		Catalog:    test.BasicCatalog(),
		Mode:       models.ModeOccasion,
	}
}

func TestHandleOutfitGenerationSuccess(t *testing.T) {
	store := test.NewMemoryJobStore()
	provider := &test.FakeProvider{
		Text: `[{"items":["White tee","Blue jeans","White sneakers"],"styling_notes":"n","why_it_works":"w"}]`,
	}
	registry := services.NewProviderRegistry(provider, nil)
	jobID := newQueuedJob(t, store, occasionContext())

	require.NoError(t, runTask(t, store, registry, jobID))

	job, err := store.Get(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobSucceeded, job.Status)
	assert.Equal(t, 100, job.Progress)
	require.Len(t, job.Outfits, 1)
	assert.True(t, job.Outfits[0].Validation.Passed)
	assert.Nil(t, job.Error)
}

func TestHandleOutfitGenerationEmptyResult(t *testing.T) {
	store := test.NewMemoryJobStore()
	provider := &test.FakeProvider{
		Text: `[{"items":["White tee","White sneakers"],"styling_notes":"","why_it_works":""}]`,
	}
	registry := services.NewProviderRegistry(provider, nil)
	jobID := newQueuedJob(t, store, occasionContext())

	require.NoError(t, runTask(t, store, registry, jobID))

	job, err := store.Get(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, job.Status)
	require.NotNil(t, job.Error)
	assert.Equal(t, "empty_result", job.Error.Kind)
}

func TestHandleOutfitGenerationProviderError(t *testing.T) {
	store := test.NewMemoryJobStore()
	provider := &test.FakeProvider{
		Err: services.NewProviderError(services.ProviderErrRateLimit, "gemini-2.0-flash", "quota exhausted", nil),
	}
	registry := services.NewProviderRegistry(provider, nil)
	jobID := newQueuedJob(t, store, occasionContext())

	require.NoError(t, runTask(t, store, registry, jobID))

	job, err := store.Get(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, job.Status)
	require.NotNil(t, job.Error)
	assert.Equal(t, "provider_rate_limit", job.Error.Kind)
	assert.Equal(t, "quota exhausted", job.Error.Message)
}

func TestHandleOutfitGenerationExtractionError(t *testing.T) {
	store := test.NewMemoryJobStore()
	provider := &test.FakeProvider{Text: "no structured output here, sorry"}
	registry := services.NewProviderRegistry(provider, nil)
	jobID := newQueuedJob(t, store, occasionContext())

	require.NoError(t, runTask(t, store, registry, jobID))

	job, err := store.Get(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, job.Status)
	require.NotNil(t, job.Error)
	assert.Equal(t, "extraction_no_json_found", job.Error.Kind)
}

func TestHandleOutfitGenerationTimeout(t *testing.T) {
	previous := tasks.JobTimeout
	tasks.JobTimeout = 30 * time.Millisecond
	defer func() { tasks.JobTimeout = previous }()

	store := test.NewMemoryJobStore()
	registry := services.NewProviderRegistry(test.SlowProvider{}, nil)
	jobID := newQueuedJob(t, store, occasionContext())

	require.NoError(t, runTask(t, store, registry, jobID))

	job, err := store.Get(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobTimedOut, job.Status)
	require.NotNil(t, job.Error)
	assert.Equal(t, "job_timeout", job.Error.Kind)
	// Partial progress survives, it just never reaches 100.
	assert.Less(t, job.Progress, 100)
}

func TestHandleOutfitGenerationAlreadyFinalized(t *testing.T) {
	store := test.NewMemoryJobStore()
	provider := &test.FakeProvider{Text: "irrelevant"}
	registry := services.NewProviderRegistry(provider, nil)
	jobID := newQueuedJob(t, store, occasionContext())
	require.NoError(t, store.Fail(context.Background(), jobID, models.JobError{Kind: "job_execution", Message: "boom"}))

	require.NoError(t, runTask(t, store, registry, jobID))

	job, err := store.Get(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, job.Status)
	assert.Equal(t, "boom", job.Error.Message)
	assert.Zero(t, provider.GenerateCalls)
}

func TestHandleOutfitGenerationMissingJob(t *testing.T) {
	store := test.NewMemoryJobStore()
	registry := services.NewProviderRegistry(&test.FakeProvider{}, nil)

	err := runTask(t, store, registry, uuid.NewString())
	assert.ErrorIs(t, err, services.ErrJobNotFound)
}

func TestHandleOutfitGenerationNilContext(t *testing.T) {
	store := test.NewMemoryJobStore()
	registry := services.NewProviderRegistry(&test.FakeProvider{}, nil)
	jobID := newQueuedJob(t, store, nil)

	require.NoError(t, runTask(t, store, registry, jobID))

	job, err := store.Get(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, job.Status)
	assert.Equal(t, "job_execution", job.Error.Kind)
}

func TestNewOutfitGenerationTaskPayload(t *testing.T) {
	task, err := tasks.NewOutfitGenerationTask("abc-123")
	require.NoError(t, err)
	assert.Equal(t, tasks.TypeOutfitGeneration, task.Type())
	assert.JSONEq(t, `{"job_id":"abc-123"}`, string(task.Payload()))
}
