package services

import (
	"context"
	"fmt"
	"time"

	"github.com/viralcraft/core/pkg/database"
	"github.com/viralcraft/core/pkg/logger"
	"github.com/viralcraft/core/pkg/models"
	"github.com/viralcraft/core/pkg/utils"
)

// HistoryStore is the persistence surface the pipeline needs for generated
// content. *database.Queries satisfies it.
type HistoryStore interface {
	InsertContentHistory(ctx context.Context, arg database.InsertContentHistoryParams) (models.ContentHistory, error)
	IncrementAPIUsage(ctx context.Context, templateType, tone, niche string, userID int32) error
}

// WebhookSender pushes a payload to an automation webhook without blocking the
// caller. *WebhookService satisfies it.
type WebhookSender interface {
	SendAsync(targetURL string, payload WebhookPayload)
}

// UnifiedPipeline is the unified content-generation call shared by scheduled
// jobs, the batch endpoint, and manual triggers. It fans out over the
// request's niches with rotating tones and templates, persists each produced
// piece, and pushes webhook payloads when requested.
type UnifiedPipeline struct {
	generator *ContentGenerator
	webhooks  WebhookSender
	history   HistoryStore
	logger    *logger.Logger
}

// NewUnifiedPipeline creates the unified generation pipeline
func NewUnifiedPipeline(generator *ContentGenerator, webhooks WebhookSender, history HistoryStore) *UnifiedPipeline {
	return &UnifiedPipeline{
		generator: generator,
		webhooks:  webhooks,
		history:   history,
		logger:    logger.New("unified-pipeline"),
	}
}

// GenerateUnified runs one unified generation pass. One item is produced per
// niche; a niche-level failure is reported in its item and does not abort the
// other niches.
func (p *UnifiedPipeline) GenerateUnified(ctx context.Context, req models.UnifiedGenerationRequest) (*models.GenerationResult, error) {
	if len(req.SelectedNiches) == 0 {
		return nil, fmt.Errorf("no niches selected for generation")
	}

	tones := req.Tones
	if len(tones) == 0 {
		tones = []string{"friendly"}
	}
	templates := req.Templates
	if len(templates) == 0 {
		templates = []string{"influencer_caption"}
	}

	result := &models.GenerationResult{
		Model:       req.AIModel,
		GeneratedAt: time.Now(),
	}

	succeeded := 0
	for i, niche := range req.SelectedNiches {
		tone := tones[i%len(tones)]
		template := templates[i%len(templates)]
		product := fmt.Sprintf("Top %s Product", niche)

		item, prompt := p.generator.Generate(ctx, GenerateParams{
			Product:          product,
			TemplateType:     template,
			Tone:             tone,
			Niche:            niche,
			Platforms:        req.Platforms,
			AIModel:          req.AIModel,
			UseSpartanFormat: req.UseSpartanFormat,
			UseSmartStyle:    req.UseSmartStyle,
		})
		result.TotalTokens += item.Tokens

		if _, err := p.history.InsertContentHistory(ctx, database.InsertContentHistoryParams{
			UserID:      req.UserID,
			Niche:       niche,
			ContentType: template,
			Tone:        tone,
			ProductName: product,
			PromptText:  prompt,
			OutputText:  item.Content,
			ModelUsed:   item.Model,
			TokenCount:  int32(item.Tokens),
		}); err != nil {
			p.logger.Error().
				Err(err).
				Str("action", "history_save_failed").
				Str("niche", niche).
				Msg("Could not persist generated content")
			item.Error = err.Error()
		}

		if err := p.history.IncrementAPIUsage(ctx, template, tone, niche, req.UserID); err != nil {
			p.logger.Warn().
				Err(err).
				Str("action", "usage_increment_failed").
				Msg("Could not bump usage counter")
		}

		if req.SendToMakeWebhook && item.Error == "" {
			platforms := req.Platforms
			if len(platforms) == 0 {
				platforms = []string{"Instagram"}
			}
			// One payload per target platform, each carrying that
			// platform's variant of the post.
			for _, platform := range platforms {
				caption := item.Content
				if variant, ok := item.PlatformPosts[platform]; ok {
					caption = variant
				}
				p.webhooks.SendAsync(req.WebhookURL, WebhookPayload{
					Platform:        platform,
					PostType:        template,
					Caption:         caption,
					Hashtags:        item.Hashtags,
					Product:         product,
					Niche:           niche,
					Tone:            tone,
					TemplateType:    template,
					SourceJobSlug:   utils.GenerateJobSlug(req.ScheduledJobName, req.ScheduledJobID),
					Timestamp:       time.Now().UTC().Format(time.RFC3339),
					AutomationReady: true,
				})
			}
		}

		if item.Error == "" {
			succeeded++
		}
		result.Items = append(result.Items, item)
	}

	result.Success = succeeded > 0
	if succeeded == 0 {
		result.Error = "content generation failed for every selected niche"
	}

	p.logger.Info().
		Str("action", "unified_generation_complete").
		Str("mode", req.Mode).
		Int("niches", len(req.SelectedNiches)).
		Int("succeeded", succeeded).
		Int("total_tokens", result.TotalTokens).
		Int32("scheduled_job_id", req.ScheduledJobID).
		Msg("Unified generation pass completed")

	return result, nil
}
