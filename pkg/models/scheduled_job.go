package models

import "time"

// ScheduledJob is a persisted scheduled bulk-generation job. One active job
// owns at most one live cron task at any instant; the scheduler enforces that.
type ScheduledJob struct {
	ID                     int32      `json:"id"`
	UserID                 int32      `json:"userId"`
	Name                   string     `json:"name"`
	ScheduleTime           string     `json:"scheduleTime"` // HH:MM, local to Timezone
	Timezone               string     `json:"timezone"`     // IANA name
	IsActive               bool       `json:"isActive"`
	SelectedNiches         []string   `json:"selectedNiches"`
	Tones                  []string   `json:"tones"`
	Templates              []string   `json:"templates"`
	Platforms              []string   `json:"platforms"`
	UseExistingProducts    bool       `json:"useExistingProducts"`
	GenerateAffiliateLinks bool       `json:"generateAffiliateLinks"`
	UseSpartanFormat       bool       `json:"useSpartanFormat"`
	UseSmartStyle          bool       `json:"useSmartStyle"`
	AIModel                string     `json:"aiModel"`
	AffiliateID            string     `json:"affiliateId"`
	WebhookURL             string     `json:"webhookUrl"`
	SendToMakeWebhook      bool       `json:"sendToMakeWebhook"`
	LastRunAt              *time.Time `json:"lastRunAt,omitempty"`
	NextRunAt              *time.Time `json:"nextRunAt,omitempty"`
	TotalRuns              int32      `json:"totalRuns"`
	ConsecutiveFailures    int32      `json:"consecutiveFailures"`
	LastError              *string    `json:"lastError,omitempty"`
	CreatedAt              time.Time  `json:"createdAt"`
	UpdatedAt              time.Time  `json:"updatedAt"`
}

// ScheduledJobInput is the client-supplied portion of a job, used by the
// create and update endpoints. Server-assigned fields are excluded. Flags are
// pointers so a partial update can tell "omitted" from "set to false".
type ScheduledJobInput struct {
	Name                   string   `json:"name"`
	ScheduleTime           string   `json:"scheduleTime"`
	Timezone               string   `json:"timezone"`
	IsActive               *bool    `json:"isActive,omitempty"`
	SelectedNiches         []string `json:"selectedNiches"`
	Tones                  []string `json:"tones"`
	Templates              []string `json:"templates"`
	Platforms              []string `json:"platforms"`
	UseExistingProducts    *bool    `json:"useExistingProducts,omitempty"`
	GenerateAffiliateLinks *bool    `json:"generateAffiliateLinks,omitempty"`
	UseSpartanFormat       *bool    `json:"useSpartanFormat,omitempty"`
	UseSmartStyle          *bool    `json:"useSmartStyle,omitempty"`
	AIModel                string   `json:"aiModel"`
	AffiliateID            string   `json:"affiliateId"`
	WebhookURL             string   `json:"webhookUrl"`
	SendToMakeWebhook      *bool    `json:"sendToMakeWebhook,omitempty"`
}
