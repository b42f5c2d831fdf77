package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/openai/openai-go"

	"github.com/viralcraft/core/pkg/models"
)

// fakeModelClient scripts one response per requested model
type fakeModelClient struct {
	responses map[string]*ModelCompletion
	errs      map[string]error
	requested []string
}

func (f *fakeModelClient) Complete(ctx context.Context, model, prompt string) (*ModelCompletion, error) {
	f.requested = append(f.requested, model)
	if err, ok := f.errs[model]; ok {
		return nil, err
	}
	if resp, ok := f.responses[model]; ok {
		return resp, nil
	}
	return nil, errors.New("unscripted model " + model)
}

// quotaErr builds a rate-limit API error. Request and Response must be
// populated: the SDK's Error() formats both.
func quotaErr() error {
	return &openai.Error{
		StatusCode: 429,
		Request:    httptest.NewRequest("POST", "https://api.openai.com/v1/chat/completions", nil),
		Response: &http.Response{
			StatusCode: 429,
			Status:     "429 Too Many Requests",
			Body:       http.NoBody,
		},
	}
}

func testParams() GenerateParams {
	return GenerateParams{
		Product:      "Glow Serum",
		TemplateType: "influencer_caption",
		Tone:         "friendly",
		Niche:        "skincare",
		Platforms:    []string{"Instagram"},
	}
}

func TestGeneratePrimaryModel(t *testing.T) {
	client := &fakeModelClient{
		responses: map[string]*ModelCompletion{
			"gpt-4o": {Content: "Glow up with Glow Serum! #skincare #glow", Model: "gpt-4o", Tokens: 42},
		},
	}
	g := NewContentGenerator(client, "gpt-4o", "gpt-3.5-turbo")

	item, prompt := g.Generate(context.Background(), testParams())

	if item.FallbackLevel != models.FallbackExact {
		t.Errorf("fallback level = %q, want exact", item.FallbackLevel)
	}
	if item.Model != "gpt-4o" || item.Tokens != 42 {
		t.Errorf("item model/tokens = %q/%d", item.Model, item.Tokens)
	}
	if !reflect.DeepEqual(item.Hashtags, []string{"skincare", "glow"}) {
		t.Errorf("hashtags = %v", item.Hashtags)
	}
	if prompt == "" {
		t.Error("prompt should be returned for history persistence")
	}
	if !reflect.DeepEqual(client.requested, []string{"gpt-4o"}) {
		t.Errorf("requested models = %v, want just the primary", client.requested)
	}
}

func TestGenerateQuotaFallsBackToCheaperModel(t *testing.T) {
	client := &fakeModelClient{
		errs: map[string]error{"gpt-4o": quotaErr()},
		responses: map[string]*ModelCompletion{
			"gpt-3.5-turbo": {Content: "Still glowing #skincare", Model: "gpt-3.5-turbo", Tokens: 20},
		},
	}
	g := NewContentGenerator(client, "gpt-4o", "gpt-3.5-turbo")

	item, _ := g.Generate(context.Background(), testParams())

	if item.FallbackLevel != models.FallbackDefault {
		t.Errorf("fallback level = %q, want default", item.FallbackLevel)
	}
	if item.Model != "gpt-3.5-turbo" {
		t.Errorf("item model = %q, want the fallback model", item.Model)
	}
	if !reflect.DeepEqual(client.requested, []string{"gpt-4o", "gpt-3.5-turbo"}) {
		t.Errorf("requested models = %v", client.requested)
	}
}

func TestGenerateNonQuotaErrorSkipsFallbackModel(t *testing.T) {
	client := &fakeModelClient{
		errs: map[string]error{"gpt-4o": errors.New("context canceled")},
	}
	g := NewContentGenerator(client, "gpt-4o", "gpt-3.5-turbo")

	item, _ := g.Generate(context.Background(), testParams())

	if item.FallbackLevel != models.FallbackGeneric {
		t.Errorf("fallback level = %q, want generic", item.FallbackLevel)
	}
	if len(client.requested) != 1 {
		t.Errorf("non-quota failures must not burn fallback-model calls, requested %v", client.requested)
	}
}

func TestGenerateAllModelsFailServesGeneric(t *testing.T) {
	client := &fakeModelClient{
		errs: map[string]error{
			"gpt-4o":        quotaErr(),
			"gpt-3.5-turbo": quotaErr(),
		},
	}
	g := NewContentGenerator(client, "gpt-4o", "gpt-3.5-turbo")

	params := testParams()
	item, _ := g.Generate(context.Background(), params)

	if item.FallbackLevel != models.FallbackGeneric {
		t.Errorf("fallback level = %q, want generic", item.FallbackLevel)
	}
	if item.Model != "fallback" {
		t.Errorf("item model = %q, want fallback", item.Model)
	}
	if !strings.Contains(item.Content, params.Product) {
		t.Error("generic content should mention the product")
	}
	if !strings.Contains(item.Content, params.Niche) {
		t.Error("generic content should mention the niche")
	}
	if len(item.Hashtags) == 0 {
		t.Error("generic content carries hashtags too")
	}
}

func TestGenerateEmptyCompletionServesGeneric(t *testing.T) {
	client := &fakeModelClient{
		responses: map[string]*ModelCompletion{
			"gpt-4o": {Content: "   ", Model: "gpt-4o"},
		},
	}
	g := NewContentGenerator(client, "gpt-4o", "gpt-3.5-turbo")

	item, _ := g.Generate(context.Background(), testParams())
	if item.FallbackLevel != models.FallbackGeneric {
		t.Errorf("fallback level = %q, want generic for a blank completion", item.FallbackLevel)
	}
}

func TestGenerateRequestedModelOverridesPrimary(t *testing.T) {
	client := &fakeModelClient{
		responses: map[string]*ModelCompletion{
			"gpt-4-turbo": {Content: "Custom model output #ok", Model: "gpt-4-turbo", Tokens: 5},
		},
	}
	g := NewContentGenerator(client, "gpt-4o", "gpt-3.5-turbo")

	params := testParams()
	params.AIModel = "gpt-4-turbo"

	item, _ := g.Generate(context.Background(), params)
	if item.Model != "gpt-4-turbo" {
		t.Errorf("item model = %q, want the requested model", item.Model)
	}
	if !reflect.DeepEqual(client.requested, []string{"gpt-4-turbo"}) {
		t.Errorf("requested models = %v", client.requested)
	}
}

func TestGenerateBuildsPlatformVariants(t *testing.T) {
	long := "Glow up with Glow Serum! " + strings.Repeat("shine ", 60) + "#skincare"
	client := &fakeModelClient{
		responses: map[string]*ModelCompletion{
			"gpt-4o": {Content: long, Model: "gpt-4o", Tokens: 42},
		},
	}
	g := NewContentGenerator(client, "gpt-4o", "gpt-3.5-turbo")

	params := testParams()
	params.Platforms = []string{"Instagram", "Twitter", "TikTok"}

	item, _ := g.Generate(context.Background(), params)

	if len(item.PlatformPosts) != 3 {
		t.Fatalf("platform posts = %d entries, want one per platform", len(item.PlatformPosts))
	}
	if item.PlatformPosts["Instagram"] != long {
		t.Error("default platforms carry the base post unchanged")
	}
	if got := []rune(item.PlatformPosts["Twitter"]); len(got) > twitterMaxRunes {
		t.Errorf("twitter variant is %d runes, cap is %d", len(got), twitterMaxRunes)
	}
	if !strings.HasSuffix(item.PlatformPosts["Twitter"], "…") {
		t.Error("a cut twitter variant should end with an ellipsis")
	}
	if !strings.Contains(item.PlatformPosts["TikTok"], "Video script") {
		t.Error("tiktok variant should be framed as a script")
	}
	if !strings.Contains(item.PlatformPosts["TikTok"], long) {
		t.Error("tiktok variant should embed the base post")
	}
}

func TestGenerateGenericTierStillBuildsPlatformVariants(t *testing.T) {
	client := &fakeModelClient{
		errs: map[string]error{
			"gpt-4o":        quotaErr(),
			"gpt-3.5-turbo": quotaErr(),
		},
	}
	g := NewContentGenerator(client, "gpt-4o", "gpt-3.5-turbo")

	params := testParams()
	params.Platforms = []string{"Instagram", "X"}

	item, _ := g.Generate(context.Background(), params)

	if len(item.PlatformPosts) != 2 {
		t.Fatalf("platform posts = %d entries, want 2", len(item.PlatformPosts))
	}
	if got := []rune(item.PlatformPosts["X"]); len(got) > twitterMaxRunes {
		t.Errorf("x variant is %d runes, cap is %d", len(got), twitterMaxRunes)
	}
}

func TestTruncateRunesIsRuneSafe(t *testing.T) {
	s := strings.Repeat("✨", 300)
	got := truncateRunes(s, twitterMaxRunes)
	if runes := []rune(got); len(runes) != twitterMaxRunes {
		t.Errorf("truncated length = %d runes, want %d", len(runes), twitterMaxRunes)
	}
	if strings.Contains(got, "�") {
		t.Error("truncation must not split a multi-byte rune")
	}

	short := "brief"
	if truncateRunes(short, twitterMaxRunes) != short {
		t.Error("content under the cap passes through unchanged")
	}
}

func TestBuildPromptSmartStyle(t *testing.T) {
	g := NewContentGenerator(&fakeModelClient{}, "gpt-4o", "gpt-3.5-turbo")

	params := testParams()
	plain := g.buildPrompt(params)

	params.UseSmartStyle = true
	styled := g.buildPrompt(params)

	if plain == styled {
		t.Error("enabling smart style must change the prompt")
	}
	if !strings.Contains(styled, "established voice") {
		t.Errorf("smart-style prompt should ask for the account's voice, got %q", styled)
	}
	if strings.Contains(plain, "established voice") {
		t.Error("the voice instruction must only appear when smart style is on")
	}
}

func TestExtractHashtags(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "none", input: "plain text", want: []string{}},
		{name: "single", input: "check this #skincare", want: []string{"skincare"}},
		{name: "multiple", input: "#glow up #skincare now #trending", want: []string{"glow", "skincare", "trending"}},
		{name: "underscores and digits", input: "#glow_up2026", want: []string{"glow_up2026"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractHashtags(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractHashtags(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
