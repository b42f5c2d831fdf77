package services

import (
	"context"
	"errors"
	"testing"

	"github.com/viralcraft/core/internal/config"
	"github.com/viralcraft/core/pkg/database"
	"github.com/viralcraft/core/pkg/models"
)

type fakeHistoryStore struct {
	inserts    []database.InsertContentHistoryParams
	insertErr  error
	usageCalls int
	usageErr   error
}

func (f *fakeHistoryStore) InsertContentHistory(ctx context.Context, arg database.InsertContentHistoryParams) (models.ContentHistory, error) {
	if f.insertErr != nil {
		return models.ContentHistory{}, f.insertErr
	}
	f.inserts = append(f.inserts, arg)
	return models.ContentHistory{ID: int32(len(f.inserts))}, nil
}

func (f *fakeHistoryStore) IncrementAPIUsage(ctx context.Context, templateType, tone, niche string, userID int32) error {
	f.usageCalls++
	return f.usageErr
}

type fakeWebhookSender struct {
	sent []WebhookPayload
	urls []string
}

func (f *fakeWebhookSender) SendAsync(targetURL string, payload WebhookPayload) {
	f.urls = append(f.urls, targetURL)
	f.sent = append(f.sent, payload)
}

func newTestPipeline(client ModelClient, history HistoryStore) *UnifiedPipeline {
	generator := NewContentGenerator(client, "gpt-4o", "gpt-3.5-turbo")
	webhooks := NewWebhookService(config.WebhookConfig{Timeout: 1})
	return NewUnifiedPipeline(generator, webhooks, history)
}

func TestGenerateUnifiedRequiresNiches(t *testing.T) {
	p := newTestPipeline(&fakeModelClient{}, &fakeHistoryStore{})

	if _, err := p.GenerateUnified(context.Background(), models.UnifiedGenerationRequest{}); err == nil {
		t.Error("GenerateUnified() should fail with no niches")
	}
}

func TestGenerateUnifiedFansOutPerNiche(t *testing.T) {
	client := &fakeModelClient{
		responses: map[string]*ModelCompletion{
			"gpt-4o": {Content: "generated copy #ad", Model: "gpt-4o", Tokens: 10},
		},
	}
	history := &fakeHistoryStore{}
	p := newTestPipeline(client, history)

	result, err := p.GenerateUnified(context.Background(), models.UnifiedGenerationRequest{
		Mode:           "automated",
		SelectedNiches: []string{"skincare", "tech", "fitness"},
		Tones:          []string{"friendly", "trendy"},
		Templates:      []string{"influencer_caption"},
		AIModel:        "gpt-4o",
		UserID:         1,
	})
	if err != nil {
		t.Fatalf("GenerateUnified() unexpected error: %v", err)
	}

	if !result.Success {
		t.Error("result should be successful")
	}
	if len(result.Items) != 3 {
		t.Fatalf("got %d items, want one per niche", len(result.Items))
	}
	if result.TotalTokens != 30 {
		t.Errorf("total tokens = %d, want 30", result.TotalTokens)
	}

	// Tones rotate with the niche index
	wantTones := []string{"friendly", "trendy", "friendly"}
	for i, insert := range history.inserts {
		if insert.Tone != wantTones[i] {
			t.Errorf("insert %d tone = %q, want %q", i, insert.Tone, wantTones[i])
		}
		if insert.PromptText == "" || insert.OutputText == "" {
			t.Errorf("insert %d should carry prompt and output", i)
		}
	}
	if history.usageCalls != 3 {
		t.Errorf("usage bumped %d times, want 3", history.usageCalls)
	}
}

func TestGenerateUnifiedDefaultsTonesAndTemplates(t *testing.T) {
	client := &fakeModelClient{
		responses: map[string]*ModelCompletion{
			"gpt-4o": {Content: "copy", Model: "gpt-4o", Tokens: 1},
		},
	}
	history := &fakeHistoryStore{}
	p := newTestPipeline(client, history)

	result, err := p.GenerateUnified(context.Background(), models.UnifiedGenerationRequest{
		SelectedNiches: []string{"skincare"},
		AIModel:        "gpt-4o",
	})
	if err != nil {
		t.Fatalf("GenerateUnified() unexpected error: %v", err)
	}
	if !result.Success {
		t.Error("result should be successful")
	}
	if history.inserts[0].Tone != "friendly" || history.inserts[0].ContentType != "influencer_caption" {
		t.Errorf("defaults not applied: tone=%q template=%q", history.inserts[0].Tone, history.inserts[0].ContentType)
	}
}

func TestGenerateUnifiedWebhookFansOutPerPlatform(t *testing.T) {
	client := &fakeModelClient{
		responses: map[string]*ModelCompletion{
			"gpt-4o": {Content: "generated copy #ad", Model: "gpt-4o", Tokens: 10},
		},
	}
	sender := &fakeWebhookSender{}
	generator := NewContentGenerator(client, "gpt-4o", "gpt-3.5-turbo")
	p := NewUnifiedPipeline(generator, sender, &fakeHistoryStore{})

	result, err := p.GenerateUnified(context.Background(), models.UnifiedGenerationRequest{
		Mode:              "automated",
		SelectedNiches:    []string{"skincare"},
		Platforms:         []string{"Instagram", "TikTok", "Twitter"},
		AIModel:           "gpt-4o",
		SendToMakeWebhook: true,
		WebhookURL:        "https://hook.example.com/x",
		ScheduledJobName:  "Morning Skincare Run",
		ScheduledJobID:    42,
		UserID:            1,
	})
	if err != nil {
		t.Fatalf("GenerateUnified() unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatal("result should be successful")
	}

	if len(sender.sent) != 3 {
		t.Fatalf("sent %d payloads, want one per platform", len(sender.sent))
	}
	seen := map[string]WebhookPayload{}
	for i, payload := range sender.sent {
		seen[payload.Platform] = payload
		if sender.urls[i] != "https://hook.example.com/x" {
			t.Errorf("payload %d sent to %q", i, sender.urls[i])
		}
		if payload.SourceJobSlug == "" {
			t.Errorf("payload %d missing job slug", i)
		}
	}
	if _, ok := seen["Instagram"]; !ok {
		t.Error("instagram payload missing")
	}
	tiktok, ok := seen["TikTok"]
	if !ok {
		t.Fatal("tiktok payload missing")
	}
	if tiktok.Caption == seen["Instagram"].Caption {
		t.Error("tiktok payload should carry its platform variant, not the base post")
	}
	if got := result.Items[0].PlatformPosts; len(got) != 3 {
		t.Errorf("item platform posts = %d entries, want 3", len(got))
	}
}

func TestGenerateUnifiedWebhookSkippedWhenDisabled(t *testing.T) {
	client := &fakeModelClient{
		responses: map[string]*ModelCompletion{
			"gpt-4o": {Content: "copy", Model: "gpt-4o", Tokens: 1},
		},
	}
	sender := &fakeWebhookSender{}
	generator := NewContentGenerator(client, "gpt-4o", "gpt-3.5-turbo")
	p := NewUnifiedPipeline(generator, sender, &fakeHistoryStore{})

	if _, err := p.GenerateUnified(context.Background(), models.UnifiedGenerationRequest{
		SelectedNiches: []string{"skincare"},
		Platforms:      []string{"Instagram"},
		AIModel:        "gpt-4o",
	}); err != nil {
		t.Fatalf("GenerateUnified() unexpected error: %v", err)
	}

	if len(sender.sent) != 0 {
		t.Errorf("sent %d payloads, want none when webhooks are off", len(sender.sent))
	}
}

func TestGenerateUnifiedHistoryFailureMarksItem(t *testing.T) {
	client := &fakeModelClient{
		responses: map[string]*ModelCompletion{
			"gpt-4o": {Content: "copy", Model: "gpt-4o", Tokens: 1},
		},
	}
	history := &fakeHistoryStore{insertErr: errors.New("disk full")}
	p := newTestPipeline(client, history)

	result, err := p.GenerateUnified(context.Background(), models.UnifiedGenerationRequest{
		SelectedNiches: []string{"skincare"},
		AIModel:        "gpt-4o",
	})
	if err != nil {
		t.Fatalf("GenerateUnified() unexpected error: %v", err)
	}

	if result.Success {
		t.Error("a run where every item failed to persist is not a success")
	}
	if result.Items[0].Error == "" {
		t.Error("the failed item should carry its error")
	}
	if result.Error == "" {
		t.Error("the result should carry an overall error")
	}
}

func TestGenerateUnifiedGenericFallbackStillSucceeds(t *testing.T) {
	// Every model call fails; the generic tier keeps the run alive
	client := &fakeModelClient{
		errs: map[string]error{
			"gpt-4o":        quotaErr(),
			"gpt-3.5-turbo": quotaErr(),
		},
	}
	history := &fakeHistoryStore{}
	p := newTestPipeline(client, history)

	result, err := p.GenerateUnified(context.Background(), models.UnifiedGenerationRequest{
		SelectedNiches: []string{"skincare"},
		AIModel:        "gpt-4o",
	})
	if err != nil {
		t.Fatalf("GenerateUnified() unexpected error: %v", err)
	}
	if !result.Success {
		t.Error("generic-tier content still counts as a produced item")
	}
	if result.Items[0].FallbackLevel != models.FallbackGeneric {
		t.Errorf("fallback level = %q, want generic", result.Items[0].FallbackLevel)
	}
}
