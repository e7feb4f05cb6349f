package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"video-insight/models"
)

type AILogRepository struct {
	db DB
}

func NewAILogRepository(db DB) *AILogRepository {
	return &AILogRepository{db: db}
}

func (r *AILogRepository) Insert(ctx context.Context, l *models.AILog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.RequestedAt.IsZero() {
		l.RequestedAt = time.Now()
	}
	if l.CompletedAt.IsZero() {
		l.CompletedAt = l.RequestedAt
	}
	_, err := r.db.Exec(ctx, `INSERT INTO ai_logs
		(id, analysis_id, provider, model_name, model_version, attempt, input_tokens, output_tokens,
		 total_tokens, duration_ms, error_message, input_prompt, output_response, requested_at, completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		l.ID, l.AnalysisID, l.Provider, l.ModelName, l.ModelVersion, l.Attempt, l.InputTokens, l.OutputTokens,
		l.TotalTokens, l.DurationMs, l.ErrorMessage, l.InputPrompt, l.OutputResponse, l.RequestedAt, l.CompletedAt)
	return err
}
