package models

import "time"

// OutfitCandidate is one unvalidated outfit proposal extracted from model
// output. It only ever lives between extraction and validation.
type OutfitCandidate struct {
	Items        []string          `json:"items"`
	StylingNotes string            `json:"styling_notes"`
	WhyItWorks   string            `json:"why_it_works"`
	SectionIndex int               `json:"-"`
	Metadata     map[string]string `json:"-"`
}

// ResolvedItem pairs the raw model-returned name with the catalog entry it
// matched. Item stays nil when resolution failed; that is a value, not an
// error (unresolved names are expected model behavior).
type ResolvedItem struct {
	Name string       `json:"name"`
	Item *CatalogItem `json:"item,omitempty"`
}

func (r ResolvedItem) Resolved() bool {
	return r.Item != nil
}

type ViolationKind string

const (
	ViolationMinimumItemCount  ViolationKind = "minimum_item_count"
	ViolationRequiresLowerBody ViolationKind = "requires_lower_body"
	ViolationSingleLowerBody   ViolationKind = "single_lower_body"
	ViolationSingleFootwear    ViolationKind = "single_footwear"
	ViolationAnchorInclusion   ViolationKind = "anchor_inclusion"
)

// ValidationResult holds the outcome of the constraint rules. Rules
// short-circuit, so Violations carries at most the first failure.
type ValidationResult struct {
	Passed     bool            `json:"passed"`
	Violations []ViolationKind `json:"violations,omitempty"`
}

// ResolvedOutfit is the terminal artifact of the pipeline: every raw item name
// mapped against the catalog plus the structural validation verdict.
type ResolvedOutfit struct {
	Items        []ResolvedItem   `json:"items"`
	StylingNotes string           `json:"styling_notes"`
	WhyItWorks   string           `json:"why_it_works"`
	Validation   ValidationResult `json:"validation"`
}

func (o ResolvedOutfit) ResolvedCount() int {
	n := 0
	for _, it := range o.Items {
		if it.Resolved() {
			n++
		}
	}
	return n
}

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
	JobTimedOut  JobStatus = "timed_out"
)

func (s JobStatus) Terminal() bool {
	return s == JobSucceeded || s == JobFailed || s == JobTimedOut
}

type JobError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// GenerationJob is the job record kept in the job store. Only the worker that
// owns the job writes to it after enqueue.
type GenerationJob struct {
	ID        string             `json:"id"`
	Status    JobStatus          `json:"status"`
	Progress  int                `json:"progress"`
	Context   *GenerationContext `json:"context,omitempty"`
	Outfits   []ResolvedOutfit   `json:"outfits,omitempty"`
	Error     *JobError          `json:"error,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}
