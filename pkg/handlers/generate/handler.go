package generate

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/viralcraft/core/pkg/cache"
	"github.com/viralcraft/core/pkg/database"
	"github.com/viralcraft/core/pkg/logger"
	"github.com/viralcraft/core/pkg/models"
	"github.com/viralcraft/core/pkg/models/api"
	"github.com/viralcraft/core/pkg/safeguards"
	"github.com/viralcraft/core/pkg/services"
)

const defaultUserID int32 = 1

// Request is the interactive generation payload. Everything but the product
// name has a default.
type Request struct {
	Product       string   `json:"product"`
	TemplateType  string   `json:"templateType"`
	Tone          string   `json:"tone"`
	Niche         string   `json:"niche"`
	Platforms     []string `json:"platforms"`
	AIModel       string   `json:"aiModel"`
	UseSmartStyle bool     `json:"useSmartStyle"`
	WebhookURL    string   `json:"webhookUrl"`
	SendToWebhook bool     `json:"sendToWebhook"`
}

// Handler serves interactive single-piece content generation with a TTL cache
// in front of the model. A cache hit skips the model, the history insert and
// the usage counter; only a fresh generation pays for those.
type Handler struct {
	generator *services.ContentGenerator
	webhooks  *services.WebhookService
	queries   *database.Queries
	gate      *safeguards.Gate
	cache     *cache.Cache[models.GeneratedContent]
	logger    *logger.Logger
}

// NewHandler creates an interactive generation handler
func NewHandler(
	generator *services.ContentGenerator,
	webhooks *services.WebhookService,
	queries *database.Queries,
	gate *safeguards.Gate,
	contentCache *cache.Cache[models.GeneratedContent],
	log *logger.Logger,
) *Handler {
	return &Handler{
		generator: generator,
		webhooks:  webhooks,
		queries:   queries,
		gate:      gate,
		cache:     contentCache,
		logger:    log,
	}
}

// Generate handles POST /api/generate-content
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, api.Response{
			Success: false,
			Error:   "Invalid request body",
		})
		return
	}

	if req.Product == "" {
		writeJSON(w, http.StatusBadRequest, api.Response{
			Success: false,
			Error:   "Product name is required",
		})
		return
	}
	applyDefaults(&req)

	decision := h.gate.Validate(safeguards.DetectGenerationContext(r))
	if !decision.Allowed {
		h.logger.Warn().
			Str("action", "generation_blocked").
			Str("source", decision.Source).
			Str("reason", decision.Reason).
			Msg("Interactive generation blocked by safeguards")
		writeJSON(w, http.StatusForbidden, api.Response{
			Success: false,
			Error:   decision.Reason,
		})
		return
	}

	key := cache.GenerateKey(map[string]any{
		"product":       req.Product,
		"templateType":  req.TemplateType,
		"tone":          req.Tone,
		"niche":         req.Niche,
		"useSmartStyle": req.UseSmartStyle,
	})

	if cached, ok := h.cache.Get(key); ok {
		cached.FromCache = true
		h.logger.Info().
			Str("action", "cache_hit").
			Str("product", req.Product).
			Str("template_type", req.TemplateType).
			Msg("Serving cached content")
		writeJSON(w, http.StatusOK, api.Response{
			Success: true,
			Data:    cached,
		})
		return
	}

	item, prompt := h.generator.Generate(ctx, services.GenerateParams{
		Product:       req.Product,
		TemplateType:  req.TemplateType,
		Tone:          req.Tone,
		Niche:         req.Niche,
		Platforms:     req.Platforms,
		AIModel:       req.AIModel,
		UseSmartStyle: req.UseSmartStyle,
	})

	h.cache.Set(key, item)

	if _, err := h.queries.InsertContentHistory(ctx, database.InsertContentHistoryParams{
		UserID:      defaultUserID,
		Niche:       item.Niche,
		ContentType: item.TemplateType,
		Tone:        item.Tone,
		ProductName: item.Product,
		PromptText:  prompt,
		OutputText:  item.Content,
		ModelUsed:   item.Model,
		TokenCount:  int32(item.Tokens),
	}); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to record content history")
	}

	if err := h.queries.IncrementAPIUsage(ctx, item.TemplateType, item.Tone, item.Niche, defaultUserID); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to increment api usage")
	}

	if req.SendToWebhook {
		for _, platform := range req.Platforms {
			caption := item.Content
			if variant, ok := item.PlatformPosts[platform]; ok {
				caption = variant
			}
			h.webhooks.SendAsync(req.WebhookURL, services.WebhookPayload{
				Platform:        platform,
				PostType:        item.TemplateType,
				Caption:         caption,
				Hashtags:        item.Hashtags,
				Product:         item.Product,
				Niche:           item.Niche,
				Tone:            item.Tone,
				TemplateType:    item.TemplateType,
				Timestamp:       timestampNow(),
				AutomationReady: true,
			})
		}
	}

	writeJSON(w, http.StatusOK, api.Response{
		Success: true,
		Data:    item,
	})
}

func applyDefaults(req *Request) {
	if req.TemplateType == "" {
		req.TemplateType = "original"
	}
	if req.Tone == "" {
		req.Tone = "friendly"
	}
	if req.Niche == "" {
		req.Niche = "skincare"
	}
	if len(req.Platforms) == 0 {
		req.Platforms = []string{"Instagram"}
	}
}

func timestampNow() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func writeJSON(w http.ResponseWriter, status int, body api.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
