package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"video-insight/models"
	"video-insight/repositories"
)

type AnalysisRepository struct {
	db DB
}

func NewAnalysisRepository(db DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

const analysisColumns = `id, url, video_id, summary_id, title, thumbnail_url, transcript,
	processing_status, analysis_status, audio_status, summary,
	content_quality, sentiment, community, age_groups, emotions, insights,
	total_comments_analyzed, analyzed_at, analysis_model, analysis_error,
	audio_storage_path, audio_error, created_at, updated_at`

func scanAnalysis(row pgx.Row) (*models.Analysis, error) {
	var a models.Analysis
	var processing, analysis, audio string
	err := row.Scan(
		&a.ID, &a.URL, &a.VideoID, &a.SummaryID, &a.Title, &a.ThumbnailURL, &a.Transcript,
		&processing, &analysis, &audio, &a.Summary,
		&a.ContentQuality, &a.Sentiment, &a.Community, &a.AgeGroups, &a.Emotions, &a.Insights,
		&a.TotalCommentsAnalyzed, &a.AnalyzedAt, &a.AnalysisModel, &a.AnalysisError,
		&a.AudioStoragePath, &a.AudioError, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, mapNoRows(err)
	}
	a.ProcessingStatus = models.Status(processing)
	a.AnalysisStatus = models.Status(analysis)
	a.AudioStatus = models.Status(audio)
	return &a, nil
}

func (r *AnalysisRepository) FindByID(ctx context.Context, id string) (*models.Analysis, error) {
	return scanAnalysis(r.db.QueryRow(ctx, `SELECT `+analysisColumns+` FROM analyses WHERE id = $1`, id))
}

func (r *AnalysisRepository) FindByURL(ctx context.Context, url string) (*models.Analysis, error) {
	return scanAnalysis(r.db.QueryRow(ctx, `SELECT `+analysisColumns+` FROM analyses WHERE url = $1`, url))
}

// Insert fails with repositories.ErrDuplicate on a url conflict.
func (r *AnalysisRepository) Insert(ctx context.Context, a *models.Analysis) error {
	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	_, err := r.db.Exec(ctx, `INSERT INTO analyses (`+analysisColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25)`,
		a.ID, a.URL, a.VideoID, a.SummaryID, a.Title, a.ThumbnailURL, a.Transcript,
		string(a.ProcessingStatus), string(a.AnalysisStatus), string(a.AudioStatus), a.Summary,
		a.ContentQuality, a.Sentiment, a.Community, a.AgeGroups, a.Emotions, a.Insights,
		a.TotalCommentsAnalyzed, a.AnalyzedAt, a.AnalysisModel, a.AnalysisError,
		a.AudioStoragePath, a.AudioError, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repositories.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *AnalysisRepository) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	if err := repositories.CheckFields(fields); err != nil {
		return err
	}
	set, args := buildSet(fields, 1)
	n := len(args)
	if set != "" {
		set += ", "
	}
	sql := fmt.Sprintf(`UPDATE analyses SET %supdated_at = $%d WHERE id = $%d`, set, n+1, n+2)
	args = append(args, time.Now(), id)

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *AnalysisRepository) TransitionStatus(ctx context.Context, id, field string, from []models.Status, to models.Status, extra map[string]any) (bool, error) {
	if err := repositories.CheckStatusField(field); err != nil {
		return false, err
	}
	if err := repositories.CheckFields(extra); err != nil {
		return false, err
	}
	fields := map[string]any{field: to}
	for k, v := range extra {
		fields[k] = v
	}
	set, args := buildSet(fields, 1)
	n := len(args)
	sql := fmt.Sprintf(`UPDATE analyses SET %s, updated_at = $%d WHERE id = $%d AND %s = ANY($%d)`,
		set, n+1, n+2, field, n+3)
	args = append(args, time.Now(), id, repositories.StatusStrings(from))

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("transition %s to %s: %w", field, to, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *AnalysisRepository) ListStale(ctx context.Context, field string, before time.Time, limit int) ([]models.Analysis, error) {
	if err := repositories.CheckStatusField(field); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, fmt.Sprintf(`SELECT %s FROM analyses
		WHERE %s = $1 AND updated_at < $2 ORDER BY updated_at LIMIT $3`, analysisColumns, field),
		string(models.StatusProcessing), before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
