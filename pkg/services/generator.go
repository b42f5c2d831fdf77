package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/viralcraft/core/pkg/logger"
	"github.com/viralcraft/core/pkg/models"
)

var hashtagPattern = regexp.MustCompile(`#\w+`)

// ExtractHashtags pulls hashtag words (without the #) out of generated text
func ExtractHashtags(text string) []string {
	matches := hashtagPattern.FindAllString(text, -1)
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, strings.TrimPrefix(m, "#"))
	}
	return tags
}

// GenerateParams describes one piece of content to produce
type GenerateParams struct {
	Product          string
	TemplateType     string
	Tone             string
	Niche            string
	Platforms        []string
	AIModel          string
	UseSpartanFormat bool
	UseSmartStyle    bool
}

// ContentGenerator produces marketing content with a tiered fallback policy:
// the requested model first, a cheaper fallback model on quota or server
// errors, and static generic content when both fail. Generate never returns an
// error for model failures; the fallback level records how far down the chain
// the content came from.
type ContentGenerator struct {
	client        ModelClient
	primaryModel  string
	fallbackModel string
	logger        *logger.Logger
}

// NewContentGenerator creates a content generator over the given model client
func NewContentGenerator(client ModelClient, primaryModel, fallbackModel string) *ContentGenerator {
	return &ContentGenerator{
		client:        client,
		primaryModel:  primaryModel,
		fallbackModel: fallbackModel,
		logger:        logger.New("content-generator"),
	}
}

// Generate produces one piece of content. The returned prompt is persisted
// with the content history record.
func (g *ContentGenerator) Generate(ctx context.Context, params GenerateParams) (models.GeneratedContent, string) {
	prompt := g.buildPrompt(params)
	model := params.AIModel
	if model == "" {
		model = g.primaryModel
	}

	start := time.Now()

	item := models.GeneratedContent{
		Niche:        params.Niche,
		Product:      params.Product,
		TemplateType: params.TemplateType,
		Tone:         params.Tone,
	}

	completion, err := g.client.Complete(ctx, model, prompt)
	if err == nil && strings.TrimSpace(completion.Content) != "" {
		item.Content = completion.Content
		item.Model = completion.Model
		item.Tokens = completion.Tokens
		item.FallbackLevel = models.FallbackExact
		item.Hashtags = ExtractHashtags(completion.Content)
		item.PlatformPosts = buildPlatformPosts(completion.Content, params.Platforms)
		g.logger.LogGeneration(params.Product, params.TemplateType, params.Tone, params.Niche, item.Model, item.Tokens, false, time.Since(start))
		return item, prompt
	}

	if err != nil && isQuotaError(err) && g.fallbackModel != "" && g.fallbackModel != model {
		g.logger.Warn().
			Err(err).
			Str("action", "model_fallback").
			Str("primary_model", model).
			Str("fallback_model", g.fallbackModel).
			Msg("Primary model unavailable, retrying with fallback model")

		completion, err = g.client.Complete(ctx, g.fallbackModel, prompt)
		if err == nil && strings.TrimSpace(completion.Content) != "" {
			item.Content = completion.Content
			item.Model = completion.Model
			item.Tokens = completion.Tokens
			item.FallbackLevel = models.FallbackDefault
			item.Hashtags = ExtractHashtags(completion.Content)
			item.PlatformPosts = buildPlatformPosts(completion.Content, params.Platforms)
			g.logger.LogGeneration(params.Product, params.TemplateType, params.Tone, params.Niche, item.Model, item.Tokens, false, time.Since(start))
			return item, prompt
		}
	}

	g.logger.Error().
		Err(err).
		Str("action", "generation_fallback_generic").
		Str("product", params.Product).
		Str("niche", params.Niche).
		Msg("All models failed, serving static generic content")

	item.Content = genericContent(params)
	item.Model = "fallback"
	item.Tokens = 0
	item.FallbackLevel = models.FallbackGeneric
	item.Hashtags = ExtractHashtags(item.Content)
	item.PlatformPosts = buildPlatformPosts(item.Content, params.Platforms)
	return item, prompt
}

// twitterMaxRunes is the post length cap applied to the Twitter/X variant
const twitterMaxRunes = 280

// buildPlatformPosts derives a per-platform variant of the base content.
// Twitter gets a length-capped cut, short-video platforms get the copy framed
// as a spoken script, everything else carries the base post unchanged.
func buildPlatformPosts(content string, platforms []string) map[string]string {
	if len(platforms) == 0 {
		return nil
	}

	posts := make(map[string]string, len(platforms))
	for _, platform := range platforms {
		switch strings.ToLower(platform) {
		case "twitter", "x":
			posts[platform] = truncateRunes(content, twitterMaxRunes)
		case "tiktok", "youtube shorts", "reels":
			posts[platform] = "🎬 Video script:\n\n" + content + "\n\n[Show the product on screen while reading]"
		default:
			posts[platform] = content
		}
	}
	return posts
}

// truncateRunes cuts s to at most max runes, reserving room for an ellipsis
// when a cut happens.
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

func (g *ContentGenerator) buildPrompt(params GenerateParams) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a %s-tone %s social media post about %q for the %s niche.",
		params.Tone, params.TemplateType, params.Product, params.Niche)

	if len(params.Platforms) > 0 {
		fmt.Fprintf(&b, " Target platforms: %s.", strings.Join(params.Platforms, ", "))
	}
	if params.UseSpartanFormat {
		b.WriteString(" Keep the copy terse and direct: no emojis, no filler, short sentences.")
	}
	if params.UseSmartStyle {
		b.WriteString(" Match the account's established voice, phrasing and emoji usage so the post reads like its recent content.")
	}
	b.WriteString(" Close with relevant hashtags.")

	return b.String()
}

// genericContent is the last fallback tier: deterministic static copy so the
// caller always has something to return.
func genericContent(params GenerateParams) string {
	title := capitalize(params.TemplateType)
	tone := capitalize(params.Tone)

	return fmt.Sprintf(`✨ %s - %s Content ✨

This %s is a fantastic choice for your %s journey! With its exceptional quality and %s appeal, it's become a trending favorite.

Key highlights:
🌟 Perfect for %s enthusiasts
💫 %s user experience
✨ Trending among community members

Experience the difference today! #%s #trending`,
		params.Product, title,
		params.Product, params.Niche, params.Tone,
		params.Niche,
		tone,
		params.Niche)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
