package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/viralcraft/core/pkg/logger"
	"github.com/viralcraft/core/pkg/models"
	"github.com/viralcraft/core/pkg/safeguards"
)

// runningTask is the opaque handle for one installed cron task. Owned
// exclusively by the Scheduler; never shared outside it.
type runningTask interface {
	stop()
	destroy()
	isRunning() bool
	isDestroyed() bool
}

// cronTask wraps a per-job cron runner bound to the job's timezone
type cronTask struct {
	cron *cron.Cron

	mu        sync.Mutex
	running   bool
	destroyed bool
}

func (t *cronTask) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		// Does not wait for an in-flight tick; it runs to completion.
		t.cron.Stop()
		t.running = false
	}
}

func (t *cronTask) destroy() {
	t.stop()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.destroyed = true
}

func (t *cronTask) isRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *cronTask) isDestroyed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.destroyed
}

// Scheduler owns the in-memory map of job id to running cron task and the
// execution-lock set. It guarantees at most one live task per job id and makes
// each job's tick single-flight. All state is process-local; restart recovery
// goes through InitializeFromStore.
type Scheduler struct {
	mu    sync.Mutex
	tasks map[int32]runningTask

	locks    *ExecutionLockSet
	store    JobStore
	executor *Executor
	gate     *safeguards.Gate
	logger   *logger.Logger

	// settleDelay is the pause between teardown and re-install that lets a
	// racing cleanup finish before the duplicate check
	settleDelay time.Duration

	// tickTimeout bounds one execution of a job's generation work
	tickTimeout time.Duration
}

// NewScheduler creates a cron lifecycle manager. Instantiate one per process;
// tests may instantiate several in isolation.
func NewScheduler(store JobStore, executor *Executor, gate *safeguards.Gate) *Scheduler {
	return &Scheduler{
		tasks:       make(map[int32]runningTask),
		locks:       NewExecutionLockSet(),
		store:       store,
		executor:    executor,
		gate:        gate,
		logger:      logger.New("cron-scheduler"),
		settleDelay: 100 * time.Millisecond,
		tickTimeout: 30 * time.Minute,
	}
}

// StopAndDestroy tears down the task for jobID if one exists and clears any
// execution lock for it. Idempotent; never fails when nothing exists.
func (s *Scheduler) StopAndDestroy(jobID int32) {
	s.mu.Lock()
	task, ok := s.tasks[jobID]
	if ok {
		delete(s.tasks, jobID)
	}
	s.mu.Unlock()

	if ok {
		s.logger.Info().
			Int32("job_id", jobID).
			Str("action", "task_teardown").
			Msg("Stopping existing cron task")
		s.destroyTask(jobID, task)
	}

	s.locks.Release(jobID)
}

// destroyTask stops and destroys one task, best effort. A misbehaving task
// must not abort the caller's cleanup loop.
func (s *Scheduler) destroyTask(jobID int32, task runningTask) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Int32("job_id", jobID).
				Str("action", "task_teardown_failed").
				Interface("panic", r).
				Msg("Task teardown panicked, continuing cleanup")
		}
	}()

	task.stop()
	task.destroy()
}

// Start installs a recurring cron task for job. Inactive jobs are skipped with
// a log. Any existing task for the same id is torn down first, so calling
// Start twice never yields two live tasks.
func (s *Scheduler) Start(job models.ScheduledJob) error {
	if !job.IsActive {
		s.logger.Info().
			Int32("job_id", job.ID).
			Str("job_name", job.Name).
			Str("action", "start_skipped_inactive").
			Msg("Job is not active, skipping cron creation")
		return nil
	}

	// Unconditional teardown, even on first start: no duplicate may survive.
	s.StopAndDestroy(job.ID)

	// Let any interleaved cleanup finish before re-checking.
	time.Sleep(s.settleDelay)

	s.mu.Lock()
	if leftover, ok := s.tasks[job.ID]; ok {
		s.logger.Warn().
			Int32("job_id", job.ID).
			Str("action", "task_race_detected").
			Msg("Task still registered after cleanup, forcing removal")
		delete(s.tasks, job.ID)
		s.mu.Unlock()
		s.destroyTask(job.ID, leftover)
		s.locks.Release(job.ID)
	} else {
		s.mu.Unlock()
	}

	// Policy check at install time; execution re-checks on every tick.
	decision := s.gate.Validate(safeguards.ScheduledContext())
	if !decision.Allowed {
		s.logger.Warn().
			Int32("job_id", job.ID).
			Str("job_name", job.Name).
			Str("action", "start_blocked").
			Str("reason", decision.Reason).
			Msg("Job will not be started due to safeguard restrictions")
		return nil
	}

	hour, minute, err := ParseScheduleTime(job.ScheduleTime)
	if err != nil {
		return fmt.Errorf("failed to schedule job %d: %w", job.ID, err)
	}
	cronExpr := fmt.Sprintf("%d %d * * *", minute, hour)

	loc, err := time.LoadLocation(job.Timezone)
	if err != nil {
		return fmt.Errorf("failed to schedule job %d: invalid timezone %q: %w", job.ID, job.Timezone, err)
	}

	c := cron.New(cron.WithLocation(loc))
	jobID := job.ID
	if _, err := c.AddFunc(cronExpr, func() { s.runTick(jobID) }); err != nil {
		return fmt.Errorf("failed to schedule job %d: %w", job.ID, err)
	}

	task := &cronTask{cron: c, running: true}
	c.Start()

	s.mu.Lock()
	s.tasks[job.ID] = task
	total := len(s.tasks)
	s.mu.Unlock()

	s.logger.Info().
		Int32("job_id", job.ID).
		Str("job_name", job.Name).
		Str("action", "task_installed").
		Str("cron_expression", cronExpr).
		Str("timezone", job.Timezone).
		Int("total_tasks", total).
		Msg("Cron task created and registered")

	return nil
}

// runTick is the single-flight execution wrapper bound into each cron task.
// Errors are fully contained here: an uncaught error must not stop other
// jobs' timers.
func (s *Scheduler) runTick(jobID int32) {
	if !s.locks.TryAcquire(jobID) {
		s.logger.Warn().
			Int32("job_id", jobID).
			Str("action", "tick_skipped_locked").
			Msg("Previous execution still running, skipping this tick")
		return
	}
	defer s.locks.Release(jobID)

	requestID := uuid.New().String()
	tickLogger := s.logger.WithRequestID(requestID)

	ctx, cancel := context.WithTimeout(context.Background(), s.tickTimeout)
	defer cancel()
	ctx = tickLogger.ToContext(ctx)

	// Re-load the row so a tick sees current fan-out parameters, and so a
	// tick racing a delete finds nothing to do.
	job, err := s.store.GetScheduledJob(ctx, jobID)
	if err != nil {
		tickLogger.Error().
			Err(err).
			Int32("job_id", jobID).
			Str("action", "tick_load_failed").
			Msg("Could not load job for scheduled execution")
		return
	}

	if _, err := s.executor.Execute(ctx, job); err != nil {
		tickLogger.Error().
			Err(err).
			Int32("job_id", jobID).
			Str("job_name", job.Name).
			Str("action", "tick_failed").
			Msg("Scheduled execution failed")
	}
}

// EmergencyStopAll stops and destroys every registered task and clears the
// task map. Best effort per task; returns the number stopped. Safe to call
// with no tasks registered.
func (s *Scheduler) EmergencyStopAll() int {
	s.mu.Lock()
	tasks := s.tasks
	s.tasks = make(map[int32]runningTask)
	s.mu.Unlock()

	stopped := 0
	for jobID, task := range tasks {
		s.destroyTask(jobID, task)
		stopped++
		s.logger.Info().
			Int32("job_id", jobID).
			Str("action", "emergency_stopped").
			Msg("Stopped and destroyed cron task")
	}

	s.logger.Info().
		Str("action", "emergency_stop_complete").
		Int("stopped_count", stopped).
		Msg("Emergency stop completed")

	return stopped
}

// Status returns a read-only snapshot of every registered task, ordered by
// job id
func (s *Scheduler) Status() []TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]TaskStatus, 0, len(s.tasks))
	for jobID, task := range s.tasks {
		statuses = append(statuses, TaskStatus{
			JobID:     jobID,
			Running:   task.isRunning(),
			Destroyed: task.isDestroyed(),
		})
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].JobID < statuses[j].JobID })
	return statuses
}

// HasTask reports whether a task is registered for jobID
func (s *Scheduler) HasTask(jobID int32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[jobID]
	return ok
}

// IsExecuting reports whether jobID currently holds the execution lock
func (s *Scheduler) IsExecuting(jobID int32) bool {
	return s.locks.IsLocked(jobID)
}

// InitializeFromStore rebuilds the task map from persisted active rows. Called
// on process start; in-memory task state is lost on restart. Any stale tasks
// are cleared first to prevent duplicates.
func (s *Scheduler) InitializeFromStore(ctx context.Context) error {
	s.logger.Info().
		Str("action", "initialize_start").
		Msg("Initializing scheduled bulk generation jobs")

	decision := s.gate.Validate(safeguards.ScheduledContext())
	if !decision.Allowed {
		s.logger.Warn().
			Str("action", "initialize_blocked").
			Str("reason", decision.Reason).
			Msg("No scheduled jobs will be started due to safeguard restrictions")
		return nil
	}

	if cleared := s.EmergencyStopAll(); cleared > 0 {
		s.logger.Info().
			Str("action", "initialize_cleanup").
			Int("cleared_count", cleared).
			Msg("Cleared stale cron tasks before initialization")
	}

	activeJobs, err := s.store.ListActiveScheduledJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active scheduled jobs: %w", err)
	}

	installed := 0
	for _, job := range activeJobs {
		if err := s.Start(job); err != nil {
			s.logger.Error().
				Err(err).
				Int32("job_id", job.ID).
				Str("job_name", job.Name).
				Str("action", "initialize_job_failed").
				Msg("Could not install cron task for job")
			continue
		}
		installed++
	}

	s.logger.Info().
		Str("action", "initialize_complete").
		Int("active_jobs", len(activeJobs)).
		Int("installed", installed).
		Msg("Scheduled job initialization completed")

	return nil
}
