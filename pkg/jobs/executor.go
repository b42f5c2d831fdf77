package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/viralcraft/core/pkg/logger"
	"github.com/viralcraft/core/pkg/models"
	"github.com/viralcraft/core/pkg/safeguards"
)

// Executor runs one occurrence of a scheduled job: re-validates the safeguard
// gate, advances run bookkeeping, delegates to the generation pipeline, and
// records success or failure. Every failure path updates the job's lastError
// and failure streak before propagating, so the last-known-bad state is always
// inspectable without consulting logs.
type Executor struct {
	store    JobStore
	pipeline GenerationPipeline
	gate     *safeguards.Gate
	logger   *logger.Logger

	// now is overridable for deterministic next-run tests
	now func() time.Time
}

// NewExecutor creates a scheduled job executor
func NewExecutor(store JobStore, pipeline GenerationPipeline, gate *safeguards.Gate) *Executor {
	return &Executor{
		store:    store,
		pipeline: pipeline,
		gate:     gate,
		logger:   logger.New("scheduled-job-executor"),
		now:      time.Now,
	}
}

// Execute runs a single occurrence of job. Invoked from inside the
// single-flight tick wrapper and from the manual-trigger endpoint; it does not
// rely on that and is idempotent per call.
func (e *Executor) Execute(ctx context.Context, job models.ScheduledJob) (*models.GenerationResult, error) {
	log := logger.WithContext(ctx, "scheduled-job-executor").WithJob(job.ID, job.Name)
	log.LogJobStart(job.ID, job.Name, job.ScheduleTime)
	start := e.now()

	// Policy may have changed since the task was installed; check again.
	decision := e.gate.Validate(safeguards.ScheduledContext())
	if !decision.Allowed {
		log.Warn().
			Str("action", "job_blocked").
			Str("reason", decision.Reason).
			Msg("Scheduled job blocked by safeguards")

		if err := e.store.MarkScheduledJobBlocked(ctx, job.ID, decision.Reason); err != nil {
			log.Error().
				Err(err).
				Str("action", "bookkeeping_failed").
				Msg("Failed to record safeguard block")
		}
		return nil, fmt.Errorf("scheduled job %d blocked by safeguards: %s", job.ID, decision.Reason)
	}

	nextRun, err := CalculateNextRunTime(job.ScheduleTime, job.Timezone, e.now())
	if err != nil {
		if bkErr := e.store.MarkScheduledJobRunFailed(ctx, job.ID, err.Error()); bkErr != nil {
			log.Error().
				Err(bkErr).
				Str("action", "bookkeeping_failed").
				Msg("Failed to record schedule parse failure")
		}
		return nil, fmt.Errorf("failed to compute next run for job %d: %w", job.ID, err)
	}

	// Bookkeeping happens before the generation work so a crash mid-generation
	// still advances the schedule and does not wedge the job.
	if err := e.store.MarkScheduledJobRunStarted(ctx, job.ID, nextRun); err != nil {
		return nil, fmt.Errorf("failed to record run start for job %d: %w", job.ID, err)
	}

	result, err := e.pipeline.GenerateUnified(ctx, buildUnifiedRequest(job))
	if err != nil {
		if bkErr := e.store.MarkScheduledJobRunFailed(ctx, job.ID, err.Error()); bkErr != nil {
			log.Error().
				Err(bkErr).
				Str("action", "bookkeeping_failed").
				Msg("Failed to record pipeline failure")
		}
		return nil, fmt.Errorf("generation pipeline failed for job %d: %w", job.ID, err)
	}

	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = "content generation failed"
		}
		if bkErr := e.store.MarkScheduledJobRunFailed(ctx, job.ID, msg); bkErr != nil {
			log.Error().
				Err(bkErr).
				Str("action", "bookkeeping_failed").
				Msg("Failed to record pipeline failure")
		}
		return nil, errors.New(msg)
	}

	errorCount := 0
	for _, item := range result.Items {
		if item.Error != "" {
			errorCount++
		}
	}
	log.LogJobComplete(job.ID, job.Name, e.now().Sub(start), len(result.Items), errorCount)

	return result, nil
}

func buildUnifiedRequest(job models.ScheduledJob) models.UnifiedGenerationRequest {
	aiModel := job.AIModel
	if aiModel == "" {
		aiModel = "gpt-4o"
	}

	return models.UnifiedGenerationRequest{
		Mode:                   "automated",
		SelectedNiches:         job.SelectedNiches,
		Tones:                  job.Tones,
		Templates:              job.Templates,
		Platforms:              job.Platforms,
		UseExistingProducts:    job.UseExistingProducts,
		GenerateAffiliateLinks: job.GenerateAffiliateLinks,
		UseSpartanFormat:       job.UseSpartanFormat,
		UseSmartStyle:          job.UseSmartStyle,
		AIModel:                aiModel,
		AffiliateID:            job.AffiliateID,
		WebhookURL:             job.WebhookURL,
		SendToMakeWebhook:      job.SendToMakeWebhook,
		UserID:                 job.UserID,
		ScheduledJobID:         job.ID,
		ScheduledJobName:       job.Name,
	}
}
