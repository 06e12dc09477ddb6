package test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"stylistapi/models"
	"stylistapi/services"
)

func JsonString(model interface{}) string {
	bytes, _ := json.Marshal(model)
	return string(bytes)
}

func NewJSONRequest(method string, target string, param interface{}) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	return req
}

func NewJSONOwnerRequest(method string, target string, ownerID string, param interface{}) *http.Request {
	req := NewJSONRequest(method, target, param)
	req.Header.Add("X-Owner-ID", ownerID)
	return req
}

// BasicCatalog is the minimal valid wardrobe used across pipeline tests.
func BasicCatalog() []models.CatalogItem {
	return []models.CatalogItem{
		{ID: "1", Name: "White tee", Category: models.CategoryTops},
		{ID: "2", Name: "Blue jeans", Category: models.CategoryBottoms},
		{ID: "3", Name: "White sneakers", Category: models.CategoryFootwear},
	}
}

// FakeProvider serves canned responses in place of a real vendor.
type FakeProvider struct {
	Text   string
	Deltas []string
	Err    error

	mu            sync.Mutex
	GenerateCalls int
	StreamCalls   int
}

func (p *FakeProvider) Generate(ctx context.Context, params services.GenerateParams) (*services.GenerationResult, error) {
	p.mu.Lock()
	p.GenerateCalls++
	p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	return &services.GenerationResult{
		Text:      p.Text,
		Usage:     services.Usage{InputTokenCount: 100, OutputTokenCount: 200, TotalTokenCount: 300},
		ModelName: params.Model.String(),
	}, nil
}

func (p *FakeProvider) GenerateStream(ctx context.Context, params services.GenerateParams) (services.TextStream, error) {
	p.mu.Lock()
	p.StreamCalls++
	p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	deltas := p.Deltas
	if deltas == nil {
		deltas = []string{p.Text}
	}
	return &FakeStream{deltas: deltas}, nil
}

type FakeStream struct {
	deltas []string
	pos    int
	Closed bool
}

func (s *FakeStream) Recv() (string, error) {
	if s.pos >= len(s.deltas) {
		return "", io.EOF
	}
	delta := s.deltas[s.pos]
	s.pos++
	return delta, nil
}

func (s *FakeStream) Close() error {
	s.Closed = true
	return nil
}

// SlowProvider blocks until its context is cancelled, for timeout tests.
type SlowProvider struct{}

func (SlowProvider) Generate(ctx context.Context, params services.GenerateParams) (*services.GenerationResult, error) {
	<-ctx.Done()
	return nil, services.NewProviderError(services.ProviderErrTransport, params.Model.String(), "cancelled", ctx.Err())
}

func (SlowProvider) GenerateStream(ctx context.Context, params services.GenerateParams) (services.TextStream, error) {
	<-ctx.Done()
	return nil, services.NewProviderError(services.ProviderErrTransport, params.Model.String(), "cancelled", ctx.Err())
}

// MemoryJobStore mirrors the Redis store's semantics in a map.
type MemoryJobStore struct {
	mu   sync.Mutex
	jobs map[string]models.GenerationJob
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: map[string]models.GenerationJob{}}
}

func (s *MemoryJobStore) Create(ctx context.Context, job *models.GenerationJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	s.jobs[job.ID] = *job
	return nil
}

func (s *MemoryJobStore) Get(ctx context.Context, id string) (*models.GenerationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, services.ErrJobNotFound
	}
	copied := job
	return &copied, nil
}

func (s *MemoryJobStore) mutate(id string, fn func(*models.GenerationJob)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return services.ErrJobNotFound
	}
	if job.Status.Terminal() {
		return services.ErrJobFinalized
	}
	fn(&job)
	job.UpdatedAt = time.Now().UTC()
	s.jobs[id] = job
	return nil
}

func (s *MemoryJobStore) MarkRunning(ctx context.Context, id string) error {
	return s.mutate(id, func(job *models.GenerationJob) {
		job.Status = models.JobRunning
	})
}

func (s *MemoryJobStore) SetProgress(ctx context.Context, id string, progress int) error {
	return s.mutate(id, func(job *models.GenerationJob) {
		if progress > job.Progress {
			job.Progress = progress
		}
	})
}

func (s *MemoryJobStore) Succeed(ctx context.Context, id string, outfits []models.ResolvedOutfit) error {
	return s.mutate(id, func(job *models.GenerationJob) {
		job.Status = models.JobSucceeded
		job.Progress = 100
		job.Outfits = outfits
	})
}

func (s *MemoryJobStore) Fail(ctx context.Context, id string, jobErr models.JobError) error {
	return s.mutate(id, func(job *models.GenerationJob) {
		job.Status = models.JobFailed
		job.Error = &jobErr
	})
}

func (s *MemoryJobStore) MarkTimedOut(ctx context.Context, id string, jobErr models.JobError) error {
	return s.mutate(id, func(job *models.GenerationJob) {
		job.Status = models.JobTimedOut
		job.Error = &jobErr
	})
}

// MemoryCatalogCache serves fixed snapshots in tests.
type MemoryCatalogCache struct {
	Snapshots map[string]services.CatalogSnapshot

	mu          sync.Mutex
	Invalidated []string
}

func (c *MemoryCatalogCache) GetSnapshot(ctx context.Context, ownerID string) (services.CatalogSnapshot, error) {
	return c.Snapshots[ownerID], nil
}

func (c *MemoryCatalogCache) Invalidate(ctx context.Context, ownerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Invalidated = append(c.Invalidated, ownerID)
	return nil
}
