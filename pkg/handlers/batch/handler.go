package batch

import (
	"encoding/json"
	"net/http"

	"github.com/viralcraft/core/pkg/logger"
	"github.com/viralcraft/core/pkg/models"
	"github.com/viralcraft/core/pkg/models/api"
	"github.com/viralcraft/core/pkg/safeguards"
	"github.com/viralcraft/core/pkg/services"
)

const defaultUserID int32 = 1

// Daily batch fan-out: one piece per niche, rotating through the
// high-conversion template and tone sets.
var (
	dailyNiches = []string{"beauty", "tech", "fashion", "fitness", "food", "travel", "pet"}

	highConversionTemplates = []string{
		"influencer_caption",
		"viral_hook",
		"trending_explainer",
		"bullet_points",
		"buyer_persona",
	}

	salesTones = []string{"enthusiastic", "trendy", "friendly", "luxurious", "casual"}
)

// Request optionally narrows the daily batch. Empty fields use the full
// default sets.
type Request struct {
	Niches            []string `json:"niches"`
	Platforms         []string `json:"platforms"`
	AIModel           string   `json:"aiModel"`
	SendToMakeWebhook bool     `json:"sendToMakeWebhook"`
	WebhookURL        string   `json:"webhookUrl"`
}

// Handler runs the daily cross-niche batch through the unified pipeline
type Handler struct {
	pipeline *services.UnifiedPipeline
	gate     *safeguards.Gate
	logger   *logger.Logger
}

// NewHandler creates a daily batch handler
func NewHandler(pipeline *services.UnifiedPipeline, gate *safeguards.Gate, log *logger.Logger) *Handler {
	return &Handler{
		pipeline: pipeline,
		gate:     gate,
		logger:   log,
	}
}

// Run handles POST /api/daily-batch
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req Request
	if r.Body != nil {
		// Body is optional; a bare POST runs the full default batch
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	decision := h.gate.Validate(safeguards.Context{
		Source:    safeguards.SourceBatch,
		UserAgent: r.Header.Get("User-Agent"),
	})
	if !decision.Allowed {
		h.logger.Warn().
			Str("action", "batch_blocked").
			Str("reason", decision.Reason).
			Msg("Daily batch blocked by safeguards")
		writeJSON(w, http.StatusForbidden, api.Response{
			Success: false,
			Error:   decision.Reason,
		})
		return
	}

	niches := req.Niches
	if len(niches) == 0 {
		niches = dailyNiches
	}
	platforms := req.Platforms
	if len(platforms) == 0 {
		platforms = []string{"Instagram", "TikTok"}
	}

	result, err := h.pipeline.GenerateUnified(ctx, models.UnifiedGenerationRequest{
		Mode:              "manual",
		SelectedNiches:    niches,
		Tones:             salesTones,
		Templates:         highConversionTemplates,
		Platforms:         platforms,
		AIModel:           req.AIModel,
		SendToMakeWebhook: req.SendToMakeWebhook,
		WebhookURL:        req.WebhookURL,
		UserID:            defaultUserID,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("Daily batch failed")
		writeJSON(w, http.StatusInternalServerError, api.Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, api.Response{
		Success: result.Success,
		Data:    result,
		Meta: map[string]interface{}{
			"niches": len(niches),
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, body api.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
