package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"video-insight/models"
)

type TranscriptRepository struct {
	db DB
}

func NewTranscriptRepository(db DB) *TranscriptRepository {
	return &TranscriptRepository{db: db}
}

func (r *TranscriptRepository) FindByVideoID(ctx context.Context, videoID string) (*models.Transcript, error) {
	var t models.Transcript
	err := r.db.QueryRow(ctx,
		`SELECT id, video_id, language, segments, created_at FROM transcripts WHERE video_id = $1`, videoID,
	).Scan(&t.ID, &t.VideoID, &t.Language, &t.Segments, &t.CreatedAt)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &t, nil
}

func (r *TranscriptRepository) InsertIfAbsent(ctx context.Context, t *models.Transcript) (bool, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	tag, err := r.db.Exec(ctx,
		`INSERT INTO transcripts (id, video_id, language, segments, created_at)
		 VALUES ($1, $2, $3, $4, $5) ON CONFLICT (video_id) DO NOTHING`,
		t.ID, t.VideoID, t.Language, t.Segments, t.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
