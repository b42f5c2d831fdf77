package jobs

import "sync"

// ExecutionLockSet makes each job's cron tick single-flight. A tick that fires
// while the previous tick's work for the same job id is still running is
// skipped, not queued. All state is process-local and lost on restart.
type ExecutionLockSet struct {
	mu   sync.Mutex
	held map[int32]bool
}

// NewExecutionLockSet creates an empty lock set
func NewExecutionLockSet() *ExecutionLockSet {
	return &ExecutionLockSet{
		held: make(map[int32]bool),
	}
}

// TryAcquire inserts jobID into the set. Returns false if the job is already
// executing; the caller must skip the tick.
func (s *ExecutionLockSet) TryAcquire(jobID int32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.held[jobID] {
		return false
	}
	s.held[jobID] = true
	return true
}

// Release removes jobID from the set. Safe to call when not held.
func (s *ExecutionLockSet) Release(jobID int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.held, jobID)
}

// IsLocked reports whether jobID is currently executing
func (s *ExecutionLockSet) IsLocked(jobID int32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.held[jobID]
}
