package models

import "time"

// UnifiedGenerationRequest is the payload handed to the unified generation
// pipeline. Scheduled jobs build it from their stored fan-out parameters;
// the batch endpoint builds it per niche.
type UnifiedGenerationRequest struct {
	Mode                   string   `json:"mode"` // "manual" | "automated"
	SelectedNiches         []string `json:"selectedNiches"`
	Tones                  []string `json:"tones"`
	Templates              []string `json:"templates"`
	Platforms              []string `json:"platforms"`
	UseExistingProducts    bool     `json:"useExistingProducts"`
	GenerateAffiliateLinks bool     `json:"generateAffiliateLinks"`
	UseSpartanFormat       bool     `json:"useSpartanFormat"`
	UseSmartStyle          bool     `json:"useSmartStyle"`
	AIModel                string   `json:"aiModel"`
	AffiliateID            string   `json:"affiliateId"`
	WebhookURL             string   `json:"webhookUrl"`
	SendToMakeWebhook      bool     `json:"sendToMakeWebhook"`
	UserID                 int32    `json:"userId"`
	ScheduledJobID         int32    `json:"scheduledJobId,omitempty"`
	ScheduledJobName       string   `json:"scheduledJobName,omitempty"`
}

// FallbackLevel records how far down the generation fallback chain a piece of
// content came from.
type FallbackLevel string

const (
	FallbackExact   FallbackLevel = "exact"   // primary model
	FallbackDefault FallbackLevel = "default" // fallback model after primary failure
	FallbackGeneric FallbackLevel = "generic" // static content, no model reached
)

// GeneratedContent is one produced piece of content with its platform breakdown.
type GeneratedContent struct {
	Niche         string            `json:"niche"`
	Product       string            `json:"product"`
	TemplateType  string            `json:"templateType"`
	Tone          string            `json:"tone"`
	Content       string            `json:"content"`
	Hashtags      []string          `json:"hashtags"`
	PlatformPosts map[string]string `json:"platformPosts,omitempty"`
	Model         string            `json:"model"`
	Tokens        int               `json:"tokens"`
	FallbackLevel FallbackLevel     `json:"fallbackLevel"`
	FromCache     bool              `json:"fromCache"`
	Error         string            `json:"error,omitempty"`
}

// GenerationResult is the pipeline's report for one unified generation run.
type GenerationResult struct {
	Success     bool               `json:"success"`
	Error       string             `json:"error,omitempty"`
	Items       []GeneratedContent `json:"items"`
	Model       string             `json:"model"`
	TotalTokens int                `json:"totalTokens"`
	GeneratedAt time.Time          `json:"generatedAt"`
}

// ContentHistory is a persisted record of one generated piece of content.
type ContentHistory struct {
	ID           int32     `json:"id"`
	UserID       int32     `json:"userId"`
	Niche        string    `json:"niche"`
	ContentType  string    `json:"contentType"`
	Tone         string    `json:"tone"`
	ProductName  string    `json:"productName"`
	PromptText   string    `json:"promptText"`
	OutputText   string    `json:"outputText"`
	ModelUsed    string    `json:"modelUsed"`
	TokenCount   int32     `json:"tokenCount"`
	CreatedAt    time.Time `json:"createdAt"`
}
