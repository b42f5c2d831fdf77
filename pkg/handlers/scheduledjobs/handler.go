package scheduledjobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/viralcraft/core/pkg/database"
	"github.com/viralcraft/core/pkg/jobs"
	"github.com/viralcraft/core/pkg/logger"
	"github.com/viralcraft/core/pkg/models"
	"github.com/viralcraft/core/pkg/models/api"
)

// Single-tenant deployment for now; auth comes later
const defaultUserID int32 = 1

// JobStore is the persistence surface the handler needs. *database.Queries
// satisfies it.
type JobStore interface {
	ListScheduledJobsForUser(ctx context.Context, userID int32) ([]models.ScheduledJob, error)
	InsertScheduledJob(ctx context.Context, arg database.InsertScheduledJobParams) (models.ScheduledJob, error)
	GetScheduledJobForUser(ctx context.Context, id, userID int32) (models.ScheduledJob, error)
	UpdateScheduledJob(ctx context.Context, arg database.UpdateScheduledJobParams) (models.ScheduledJob, error)
	DeleteScheduledJob(ctx context.Context, id, userID int32) (models.ScheduledJob, error)
}

// TaskScheduler is the cron lifecycle surface the handler drives.
// *jobs.Scheduler satisfies it.
type TaskScheduler interface {
	Start(job models.ScheduledJob) error
	StopAndDestroy(jobID int32)
	EmergencyStopAll() int
	Status() []jobs.TaskStatus
}

// JobRunner runs one occurrence of a job synchronously. *jobs.Executor
// satisfies it.
type JobRunner interface {
	Execute(ctx context.Context, job models.ScheduledJob) (*models.GenerationResult, error)
}

// Handler exposes the scheduled bulk-generation job API. CRUD handlers keep
// the in-memory task set consistent with the persisted isActive state: tasks
// are torn down before the row is mutated or removed, and (re)installed after
// persisting.
type Handler struct {
	store     JobStore
	scheduler TaskScheduler
	executor  JobRunner
	logger    *logger.Logger
}

// NewHandler creates a scheduled jobs handler
func NewHandler(store JobStore, scheduler TaskScheduler, executor JobRunner, log *logger.Logger) *Handler {
	return &Handler{
		store:     store,
		scheduler: scheduler,
		executor:  executor,
		logger:    log,
	}
}

// List handles GET /api/scheduled-bulk/jobs
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	jobList, err := h.store.ListScheduledJobsForUser(ctx, defaultUserID)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to fetch scheduled jobs")
		writeJSON(w, http.StatusInternalServerError, api.Response{
			Success: false,
			Error:   "Failed to fetch scheduled jobs",
		})
		return
	}

	writeJSON(w, http.StatusOK, api.Response{
		Success: true,
		Data:    jobList,
		Meta: map[string]interface{}{
			"total": len(jobList),
		},
	})
}

// Create handles POST /api/scheduled-bulk/jobs
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var input models.ScheduledJobInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, api.Response{
			Success: false,
			Error:   "Invalid request body",
		})
		return
	}

	if msg := validateInput(&input); msg != "" {
		writeJSON(w, http.StatusBadRequest, api.Response{
			Success: false,
			Error:   msg,
		})
		return
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	nextRunAt, err := jobs.CalculateNextRunTime(input.ScheduleTime, input.Timezone, time.Now())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, api.Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	job, err := h.store.InsertScheduledJob(ctx, database.InsertScheduledJobParams{
		UserID:                 defaultUserID,
		Name:                   input.Name,
		ScheduleTime:           input.ScheduleTime,
		Timezone:               input.Timezone,
		IsActive:               isActive,
		SelectedNiches:         input.SelectedNiches,
		Tones:                  input.Tones,
		Templates:              input.Templates,
		Platforms:              input.Platforms,
		UseExistingProducts:    boolVal(input.UseExistingProducts),
		GenerateAffiliateLinks: boolVal(input.GenerateAffiliateLinks),
		UseSpartanFormat:       boolVal(input.UseSpartanFormat),
		UseSmartStyle:          boolVal(input.UseSmartStyle),
		AIModel:                input.AIModel,
		AffiliateID:            input.AffiliateID,
		WebhookURL:             input.WebhookURL,
		SendToMakeWebhook:      boolVal(input.SendToMakeWebhook),
		NextRunAt:              nextRunAt,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to create scheduled job")
		writeJSON(w, http.StatusInternalServerError, api.Response{
			Success: false,
			Error:   "Failed to create scheduled job",
		})
		return
	}

	if err := h.scheduler.Start(job); err != nil {
		h.logger.Error().
			Err(err).
			Int32("job_id", job.ID).
			Msg("Job persisted but cron task installation failed")
		writeJSON(w, http.StatusInternalServerError, api.Response{
			Success: false,
			Error:   "Job saved but its schedule could not be installed: " + err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, api.Response{
		Success: true,
		Data:    job,
	})
}

// Update handles PUT /api/scheduled-bulk/jobs/{id}. Omitted fields keep their
// stored values; only what the body supplies is written.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	jobID, ok := pathID(w, r)
	if !ok {
		return
	}

	var input models.ScheduledJobInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, api.Response{
			Success: false,
			Error:   "Invalid request body",
		})
		return
	}

	// Tear the task down before touching the row; a stale task must never
	// outlive the schedule it was built from.
	h.scheduler.StopAndDestroy(jobID)

	params := database.UpdateScheduledJobParams{
		ID:                     jobID,
		UserID:                 defaultUserID,
		SelectedNiches:         input.SelectedNiches,
		Tones:                  input.Tones,
		Templates:              input.Templates,
		Platforms:              input.Platforms,
		IsActive:               input.IsActive,
		UseExistingProducts:    input.UseExistingProducts,
		GenerateAffiliateLinks: input.GenerateAffiliateLinks,
		UseSpartanFormat:       input.UseSpartanFormat,
		UseSmartStyle:          input.UseSmartStyle,
		SendToMakeWebhook:      input.SendToMakeWebhook,
	}
	if input.Name != "" {
		params.Name = &input.Name
	}
	if input.ScheduleTime != "" {
		if _, _, err := jobs.ParseScheduleTime(input.ScheduleTime); err != nil {
			writeJSON(w, http.StatusBadRequest, api.Response{
				Success: false,
				Error:   err.Error(),
			})
			return
		}
		params.ScheduleTime = &input.ScheduleTime
	}
	if input.Timezone != "" {
		params.Timezone = &input.Timezone
	}
	if input.AIModel != "" {
		params.AIModel = &input.AIModel
	}
	if input.AffiliateID != "" {
		params.AffiliateID = &input.AffiliateID
	}
	if input.WebhookURL != "" {
		params.WebhookURL = &input.WebhookURL
	}

	if input.ScheduleTime != "" {
		tz := input.Timezone
		if tz == "" {
			existing, err := h.store.GetScheduledJobForUser(ctx, jobID, defaultUserID)
			if err != nil {
				respondNotFoundOrError(w, h.logger, err, "Failed to update scheduled job")
				return
			}
			tz = existing.Timezone
		}
		nextRunAt, err := jobs.CalculateNextRunTime(input.ScheduleTime, tz, time.Now())
		if err != nil {
			writeJSON(w, http.StatusBadRequest, api.Response{
				Success: false,
				Error:   err.Error(),
			})
			return
		}
		params.NextRunAt = &nextRunAt
	}

	job, err := h.store.UpdateScheduledJob(ctx, params)
	if err != nil {
		respondNotFoundOrError(w, h.logger, err, "Failed to update scheduled job")
		return
	}

	if job.IsActive {
		if err := h.scheduler.Start(job); err != nil {
			h.logger.Error().
				Err(err).
				Int32("job_id", job.ID).
				Msg("Job updated but cron task installation failed")
			writeJSON(w, http.StatusInternalServerError, api.Response{
				Success: false,
				Error:   "Job updated but its schedule could not be installed: " + err.Error(),
			})
			return
		}
	} else {
		h.logger.Info().
			Int32("job_id", job.ID).
			Str("action", "update_inactive").
			Msg("Job is not active, skipping cron creation")
	}

	writeJSON(w, http.StatusOK, api.Response{
		Success: true,
		Data:    job,
	})
}

// Delete handles DELETE /api/scheduled-bulk/jobs/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	jobID, ok := pathID(w, r)
	if !ok {
		return
	}

	// Task first, row second: a task must never survive its owning row.
	h.scheduler.StopAndDestroy(jobID)

	if _, err := h.store.DeleteScheduledJob(ctx, jobID, defaultUserID); err != nil {
		respondNotFoundOrError(w, h.logger, err, "Failed to delete scheduled job")
		return
	}

	writeJSON(w, http.StatusOK, api.Response{
		Success: true,
		Message: "Scheduled job deleted successfully",
	})
}

// Trigger handles POST /api/scheduled-bulk/jobs/{id}/trigger and returns the
// executor's result synchronously
func (h *Handler) Trigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	jobID, ok := pathID(w, r)
	if !ok {
		return
	}

	job, err := h.store.GetScheduledJobForUser(ctx, jobID, defaultUserID)
	if err != nil {
		respondNotFoundOrError(w, h.logger, err, "Failed to load scheduled job")
		return
	}

	result, err := h.executor.Execute(ctx, job)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, api.Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, api.Response{
		Success: true,
		Message: "Job triggered manually",
		Data:    result,
	})
}

// EmergencyStop handles POST /api/scheduled-bulk/emergency-stop
func (h *Handler) EmergencyStop(w http.ResponseWriter, r *http.Request) {
	stopped := h.scheduler.EmergencyStopAll()

	writeJSON(w, http.StatusOK, api.Response{
		Success: true,
		Message: "Emergency stop completed",
		Data:    api.EmergencyStopResponse{StoppedCount: stopped},
	})
}

// CronStatus handles GET /api/scheduled-bulk/cron-status
func (h *Handler) CronStatus(w http.ResponseWriter, r *http.Request) {
	statuses := h.scheduler.Status()

	activeJobs := make([]api.CronTaskStatus, 0, len(statuses))
	for _, s := range statuses {
		activeJobs = append(activeJobs, api.CronTaskStatus{
			JobID:     s.JobID,
			Running:   s.Running,
			Destroyed: s.Destroyed,
		})
	}

	writeJSON(w, http.StatusOK, api.Response{
		Success: true,
		Data: api.CronStatusResponse{
			TotalActiveCronJobs: len(activeJobs),
			ActiveJobs:          activeJobs,
		},
	})
}

func validateInput(input *models.ScheduledJobInput) string {
	if input.Name == "" {
		return "Job name is required"
	}
	if _, _, err := jobs.ParseScheduleTime(input.ScheduleTime); err != nil {
		return err.Error()
	}
	if input.Timezone == "" {
		return "Timezone is required"
	}
	if _, err := time.LoadLocation(input.Timezone); err != nil {
		return "Invalid timezone: " + input.Timezone
	}
	if len(input.SelectedNiches) == 0 {
		return "At least one niche is required"
	}
	return ""
}

func boolVal(v *bool) bool {
	return v != nil && *v
}

func pathID(w http.ResponseWriter, r *http.Request) (int32, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, api.Response{
			Success: false,
			Error:   "Invalid job ID",
		})
		return 0, false
	}
	return int32(id), true
}

func respondNotFoundOrError(w http.ResponseWriter, log *logger.Logger, err error, msg string) {
	if errors.Is(err, pgx.ErrNoRows) {
		writeJSON(w, http.StatusNotFound, api.Response{
			Success: false,
			Error:   "Scheduled job not found",
		})
		return
	}

	log.Error().Err(err).Msg(msg)
	writeJSON(w, http.StatusInternalServerError, api.Response{
		Success: false,
		Error:   msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, body api.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
