package jobs

import (
	"context"
	"time"

	"github.com/viralcraft/core/pkg/models"
)

// JobStore is the persistence surface the scheduler and executor need.
// *database.Queries satisfies it.
type JobStore interface {
	// GetScheduledJob returns one job row by id
	GetScheduledJob(ctx context.Context, id int32) (models.ScheduledJob, error)

	// ListActiveScheduledJobs returns every job with is_active = true
	ListActiveScheduledJobs(ctx context.Context) ([]models.ScheduledJob, error)

	// MarkScheduledJobRunStarted advances run bookkeeping before generation
	// work begins
	MarkScheduledJobRunStarted(ctx context.Context, id int32, nextRunAt time.Time) error

	// MarkScheduledJobRunFailed records a failed execution
	MarkScheduledJobRunFailed(ctx context.Context, id int32, lastError string) error

	// MarkScheduledJobBlocked records a safeguard denial as a failed run
	MarkScheduledJobBlocked(ctx context.Context, id int32, reason string) error
}

// GenerationPipeline is the unified content-generation call scheduled jobs
// delegate to. The executor treats it as opaque.
type GenerationPipeline interface {
	GenerateUnified(ctx context.Context, req models.UnifiedGenerationRequest) (*models.GenerationResult, error)
}

// TaskStatus is a read-only snapshot of one live scheduled task
type TaskStatus struct {
	JobID     int32 `json:"jobId"`
	Running   bool  `json:"running"`
	Destroyed bool  `json:"destroyed"`
}
