package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"video-insight/models"
)

type CommentRepository struct {
	db DB
}

func NewCommentRepository(db DB) *CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) RecentIDs(ctx context.Context, videoID string, n int) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT comment_id FROM comments WHERE video_id = $1 ORDER BY updated_at DESC LIMIT $2`, videoID, n)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// InsertMany appends comments with ON CONFLICT DO NOTHING and returns the
// number of new rows.
func (r *CommentRepository) InsertMany(ctx context.Context, comments []models.Comment) (int, error) {
	if len(comments) == 0 {
		return 0, nil
	}
	now := time.Now()
	batch := &pgx.Batch{}
	for i := range comments {
		c := &comments[i]
		if c.CollectedAt.IsZero() {
			c.CollectedAt = now
		}
		batch.Queue(`INSERT INTO comments
			(comment_id, video_id, author, text, like_count, published_at, updated_at, collected_at, raw)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) ON CONFLICT (comment_id) DO NOTHING`,
			c.CommentID, c.VideoID, c.Author, c.Text, c.LikeCount, c.PublishedAt, c.UpdatedAt, c.CollectedAt, c.Raw)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	inserted := 0
	for range comments {
		tag, err := br.Exec()
		if err != nil {
			return inserted, err
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

func (r *CommentRepository) ListRecent(ctx context.Context, videoID string, limit int) ([]models.Comment, error) {
	rows, err := r.db.Query(ctx, `SELECT comment_id, video_id, author, text, like_count,
		published_at, updated_at, collected_at, raw
		FROM comments WHERE video_id = $1 ORDER BY published_at DESC LIMIT $2`, videoID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Comment, error) {
		var c models.Comment
		err := row.Scan(&c.CommentID, &c.VideoID, &c.Author, &c.Text, &c.LikeCount,
			&c.PublishedAt, &c.UpdatedAt, &c.CollectedAt, &c.Raw)
		return c, err
	})
}

func (r *CommentRepository) CountByVideo(ctx context.Context, videoID string) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM comments WHERE video_id = $1`, videoID).Scan(&n)
	return n, err
}
