package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/viralcraft/core/internal/config"
	"github.com/viralcraft/core/pkg/logger"
)

// WebhookPayload is one finished piece of content shaped for a Make.com-style
// automation scenario
type WebhookPayload struct {
	Platform         string   `json:"platform"`
	PostType         string   `json:"postType"`
	Caption          string   `json:"caption"`
	Hashtags         []string `json:"hashtags"`
	Script           string   `json:"script,omitempty"`
	PostInstructions string   `json:"postInstructions,omitempty"`
	Product          string   `json:"product"`
	Niche            string   `json:"niche"`
	Tone             string   `json:"tone"`
	TemplateType     string   `json:"templateType"`
	SourceJobSlug    string   `json:"sourceJobSlug,omitempty"`
	BatchID          string   `json:"batchId,omitempty"`
	Timestamp        string   `json:"timestamp"`
	AutomationReady  bool     `json:"automationReady"`
}

// WebhookService delivers content payloads to automation webhook targets. A
// circuit breaker keeps a flapping target from soaking every generation call
// in timeout waits.
type WebhookService struct {
	client     *http.Client
	breaker    *gobreaker.CircuitBreaker
	defaultURL string
	logger     *logger.Logger
}

// NewWebhookService creates a webhook delivery client
func NewWebhookService(cfg config.WebhookConfig) *WebhookService {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "make-webhook",
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &WebhookService{
		client: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		breaker:    breaker,
		defaultURL: cfg.MakeWebhookURL,
		logger:     logger.New("webhook-service"),
	}
}

// Send delivers payload to targetURL (or the configured default when empty)
// and reports success or failure
func (s *WebhookService) Send(ctx context.Context, targetURL string, payload WebhookPayload) error {
	if targetURL == "" {
		targetURL = s.defaultURL
	}
	if targetURL == "" {
		return fmt.Errorf("no webhook target configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	start := time.Now()
	result, err := s.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(body))
		if err != nil {
			return 0, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return 0, err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return resp.StatusCode, fmt.Errorf("webhook target returned status %d", resp.StatusCode)
		}
		return resp.StatusCode, nil
	})

	statusCode := 0
	if code, ok := result.(int); ok {
		statusCode = code
	}
	s.logger.LogWebhookDelivery(targetURL, statusCode, time.Since(start), err)

	if err != nil {
		return fmt.Errorf("webhook delivery to %s failed: %w", targetURL, err)
	}
	return nil
}

// SendAsync delivers payload without blocking the caller. Failures are logged
// by Send; they never reach the generation path.
func (s *WebhookService) SendAsync(targetURL string, payload WebhookPayload) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.client.Timeout+5*time.Second)
		defer cancel()

		if err := s.Send(ctx, targetURL, payload); err != nil {
			s.logger.Warn().
				Err(err).
				Str("action", "webhook_async_failed").
				Msg("Asynchronous webhook delivery failed")
		}
	}()
}
