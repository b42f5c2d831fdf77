package api

import "time"

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// CronTaskStatus represents one live scheduled task in the status endpoint
type CronTaskStatus struct {
	JobID     int32 `json:"jobId"`
	Running   bool  `json:"running"`
	Destroyed bool  `json:"destroyed"`
}

// CronStatusResponse is the live cron status snapshot
type CronStatusResponse struct {
	TotalActiveCronJobs int              `json:"totalActiveCronJobs"`
	ActiveJobs          []CronTaskStatus `json:"activeJobs"`
}

// EmergencyStopResponse reports a process-wide cron shutdown
type EmergencyStopResponse struct {
	StoppedCount int `json:"stoppedCount"`
}

// Response represents a general API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}
