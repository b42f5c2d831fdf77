package database

import (
	"context"
	"fmt"

	"github.com/viralcraft/core/pkg/models"
)

// InsertContentHistoryParams holds one generated piece of content with its
// generation metadata
type InsertContentHistoryParams struct {
	UserID      int32
	Niche       string
	ContentType string
	Tone        string
	ProductName string
	PromptText  string
	OutputText  string
	ModelUsed   string
	TokenCount  int32
}

// InsertContentHistory persists a content-history record
func (q *Queries) InsertContentHistory(ctx context.Context, arg InsertContentHistoryParams) (models.ContentHistory, error) {
	query := `INSERT INTO content_history (
		user_id, niche, content_type, tone, product_name,
		prompt_text, output_text, model_used, token_count
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING id, user_id, niche, content_type, tone, product_name,
		prompt_text, output_text, model_used, token_count, created_at`

	var h models.ContentHistory
	err := q.db.QueryRow(ctx, query,
		arg.UserID, arg.Niche, arg.ContentType, arg.Tone, arg.ProductName,
		arg.PromptText, arg.OutputText, arg.ModelUsed, arg.TokenCount,
	).Scan(
		&h.ID, &h.UserID, &h.Niche, &h.ContentType, &h.Tone, &h.ProductName,
		&h.PromptText, &h.OutputText, &h.ModelUsed, &h.TokenCount, &h.CreatedAt,
	)
	if err != nil {
		return models.ContentHistory{}, fmt.Errorf("failed to insert content history: %w", err)
	}
	return h, nil
}

// IncrementAPIUsage bumps the per-user usage counter for a template/tone/niche
// combination
func (q *Queries) IncrementAPIUsage(ctx context.Context, templateType, tone, niche string, userID int32) error {
	query := `INSERT INTO api_usage (user_id, template_type, tone, niche, request_count)
	VALUES ($1, $2, $3, $4, 1)
	ON CONFLICT (user_id, template_type, tone, niche)
	DO UPDATE SET request_count = api_usage.request_count + 1, updated_at = now()`

	_, err := q.db.Exec(ctx, query, userID, templateType, tone, niche)
	if err != nil {
		return fmt.Errorf("failed to increment api usage: %w", err)
	}
	return nil
}
