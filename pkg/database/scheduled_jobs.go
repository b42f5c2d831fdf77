package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/viralcraft/core/pkg/models"
)

const scheduledJobColumns = `id, user_id, name, schedule_time, timezone, is_active,
	selected_niches, tones, templates, platforms,
	use_existing_products, generate_affiliate_links, use_spartan_format, use_smart_style,
	ai_model, affiliate_id, webhook_url, send_to_make_webhook,
	last_run_at, next_run_at, total_runs, consecutive_failures, last_error,
	created_at, updated_at`

func scanScheduledJob(row pgx.Row) (models.ScheduledJob, error) {
	var j models.ScheduledJob
	err := row.Scan(
		&j.ID, &j.UserID, &j.Name, &j.ScheduleTime, &j.Timezone, &j.IsActive,
		&j.SelectedNiches, &j.Tones, &j.Templates, &j.Platforms,
		&j.UseExistingProducts, &j.GenerateAffiliateLinks, &j.UseSpartanFormat, &j.UseSmartStyle,
		&j.AIModel, &j.AffiliateID, &j.WebhookURL, &j.SendToMakeWebhook,
		&j.LastRunAt, &j.NextRunAt, &j.TotalRuns, &j.ConsecutiveFailures, &j.LastError,
		&j.CreatedAt, &j.UpdatedAt,
	)
	return j, err
}

// InsertScheduledJobParams holds the client-supplied fields plus the computed
// first next-run time
type InsertScheduledJobParams struct {
	UserID                 int32
	Name                   string
	ScheduleTime           string
	Timezone               string
	IsActive               bool
	SelectedNiches         []string
	Tones                  []string
	Templates              []string
	Platforms              []string
	UseExistingProducts    bool
	GenerateAffiliateLinks bool
	UseSpartanFormat       bool
	UseSmartStyle          bool
	AIModel                string
	AffiliateID            string
	WebhookURL             string
	SendToMakeWebhook      bool
	NextRunAt              time.Time
}

// InsertScheduledJob persists a new scheduled job and returns the stored row
func (q *Queries) InsertScheduledJob(ctx context.Context, arg InsertScheduledJobParams) (models.ScheduledJob, error) {
	query := `INSERT INTO scheduled_bulk_jobs (
		user_id, name, schedule_time, timezone, is_active,
		selected_niches, tones, templates, platforms,
		use_existing_products, generate_affiliate_links, use_spartan_format, use_smart_style,
		ai_model, affiliate_id, webhook_url, send_to_make_webhook, next_run_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	RETURNING ` + scheduledJobColumns

	row := q.db.QueryRow(ctx, query,
		arg.UserID, arg.Name, arg.ScheduleTime, arg.Timezone, arg.IsActive,
		arg.SelectedNiches, arg.Tones, arg.Templates, arg.Platforms,
		arg.UseExistingProducts, arg.GenerateAffiliateLinks, arg.UseSpartanFormat, arg.UseSmartStyle,
		arg.AIModel, arg.AffiliateID, arg.WebhookURL, arg.SendToMakeWebhook, arg.NextRunAt,
	)
	return scanScheduledJob(row)
}

// GetScheduledJob returns one job by id
func (q *Queries) GetScheduledJob(ctx context.Context, id int32) (models.ScheduledJob, error) {
	query := `SELECT ` + scheduledJobColumns + ` FROM scheduled_bulk_jobs WHERE id = $1`
	return scanScheduledJob(q.db.QueryRow(ctx, query, id))
}

// GetScheduledJobForUser returns one job scoped to its owner
func (q *Queries) GetScheduledJobForUser(ctx context.Context, id, userID int32) (models.ScheduledJob, error) {
	query := `SELECT ` + scheduledJobColumns + ` FROM scheduled_bulk_jobs WHERE id = $1 AND user_id = $2`
	return scanScheduledJob(q.db.QueryRow(ctx, query, id, userID))
}

// ListActiveScheduledJobs returns every job with is_active = true
func (q *Queries) ListActiveScheduledJobs(ctx context.Context) ([]models.ScheduledJob, error) {
	query := `SELECT ` + scheduledJobColumns + ` FROM scheduled_bulk_jobs WHERE is_active = true ORDER BY id`

	rows, err := q.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active scheduled jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.ScheduledJob
	for rows.Next() {
		j, err := scanScheduledJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scheduled job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// ListScheduledJobsForUser returns a user's jobs ordered by creation time
func (q *Queries) ListScheduledJobsForUser(ctx context.Context, userID int32) ([]models.ScheduledJob, error) {
	query := `SELECT ` + scheduledJobColumns + ` FROM scheduled_bulk_jobs WHERE user_id = $1 ORDER BY created_at`

	rows, err := q.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.ScheduledJob
	for rows.Next() {
		j, err := scanScheduledJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scheduled job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// UpdateScheduledJobParams carries partial updates; nil fields keep the stored
// value
type UpdateScheduledJobParams struct {
	ID                     int32
	UserID                 int32
	Name                   *string
	ScheduleTime           *string
	Timezone               *string
	IsActive               *bool
	SelectedNiches         []string
	Tones                  []string
	Templates              []string
	Platforms              []string
	UseExistingProducts    *bool
	GenerateAffiliateLinks *bool
	UseSpartanFormat       *bool
	UseSmartStyle          *bool
	AIModel                *string
	AffiliateID            *string
	WebhookURL             *string
	SendToMakeWebhook      *bool
	NextRunAt              *time.Time
}

// UpdateScheduledJob applies the non-nil fields and returns the updated row
func (q *Queries) UpdateScheduledJob(ctx context.Context, arg UpdateScheduledJobParams) (models.ScheduledJob, error) {
	query := `UPDATE scheduled_bulk_jobs SET
		name = COALESCE($3, name),
		schedule_time = COALESCE($4, schedule_time),
		timezone = COALESCE($5, timezone),
		is_active = COALESCE($6, is_active),
		selected_niches = COALESCE($7, selected_niches),
		tones = COALESCE($8, tones),
		templates = COALESCE($9, templates),
		platforms = COALESCE($10, platforms),
		use_existing_products = COALESCE($11, use_existing_products),
		generate_affiliate_links = COALESCE($12, generate_affiliate_links),
		use_spartan_format = COALESCE($13, use_spartan_format),
		use_smart_style = COALESCE($14, use_smart_style),
		ai_model = COALESCE($15, ai_model),
		affiliate_id = COALESCE($16, affiliate_id),
		webhook_url = COALESCE($17, webhook_url),
		send_to_make_webhook = COALESCE($18, send_to_make_webhook),
		next_run_at = COALESCE($19, next_run_at),
		updated_at = now()
	WHERE id = $1 AND user_id = $2
	RETURNING ` + scheduledJobColumns

	row := q.db.QueryRow(ctx, query,
		arg.ID, arg.UserID,
		arg.Name, arg.ScheduleTime, arg.Timezone, arg.IsActive,
		arg.SelectedNiches, arg.Tones, arg.Templates, arg.Platforms,
		arg.UseExistingProducts, arg.GenerateAffiliateLinks, arg.UseSpartanFormat, arg.UseSmartStyle,
		arg.AIModel, arg.AffiliateID, arg.WebhookURL, arg.SendToMakeWebhook, arg.NextRunAt,
	)
	return scanScheduledJob(row)
}

// DeleteScheduledJob removes a job scoped to its owner and returns the deleted
// row
func (q *Queries) DeleteScheduledJob(ctx context.Context, id, userID int32) (models.ScheduledJob, error) {
	query := `DELETE FROM scheduled_bulk_jobs WHERE id = $1 AND user_id = $2 RETURNING ` + scheduledJobColumns
	return scanScheduledJob(q.db.QueryRow(ctx, query, id, userID))
}

// MarkScheduledJobRunStarted advances run bookkeeping before generation work
// begins: a crash mid-generation still advances the schedule.
func (q *Queries) MarkScheduledJobRunStarted(ctx context.Context, id int32, nextRunAt time.Time) error {
	query := `UPDATE scheduled_bulk_jobs SET
		last_run_at = now(),
		total_runs = total_runs + 1,
		next_run_at = $2,
		consecutive_failures = 0,
		last_error = NULL,
		updated_at = now()
	WHERE id = $1`

	_, err := q.db.Exec(ctx, query, id, nextRunAt)
	if err != nil {
		return fmt.Errorf("failed to mark run started for job %d: %w", id, err)
	}
	return nil
}

// MarkScheduledJobRunFailed records a failed execution
func (q *Queries) MarkScheduledJobRunFailed(ctx context.Context, id int32, lastError string) error {
	query := `UPDATE scheduled_bulk_jobs SET
		consecutive_failures = consecutive_failures + 1,
		last_error = $2,
		updated_at = now()
	WHERE id = $1`

	_, err := q.db.Exec(ctx, query, id, lastError)
	if err != nil {
		return fmt.Errorf("failed to mark run failed for job %d: %w", id, err)
	}
	return nil
}

// MarkScheduledJobBlocked records a safeguard denial as a failed run
func (q *Queries) MarkScheduledJobBlocked(ctx context.Context, id int32, reason string) error {
	query := `UPDATE scheduled_bulk_jobs SET
		last_run_at = now(),
		consecutive_failures = consecutive_failures + 1,
		last_error = $2,
		updated_at = now()
	WHERE id = $1`

	_, err := q.db.Exec(ctx, query, id, "Blocked by safeguards: "+reason)
	if err != nil {
		return fmt.Errorf("failed to mark run blocked for job %d: %w", id, err)
	}
	return nil
}
