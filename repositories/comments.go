package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"video-insight/models"
)

type CommentRepository struct {
	col *mongo.Collection
}

func NewCommentRepository(db *mongo.Database) *CommentRepository {
	return &CommentRepository{col: db.Collection("comments")}
}

// RecentIDs returns up to n comment ids of the video, most recently updated first.
func (r *CommentRepository) RecentIDs(ctx context.Context, videoID string, n int) ([]string, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetLimit(int64(n)).
		SetProjection(bson.M{"comment_id": 1})
	cur, err := r.col.Find(ctx, bson.M{"video_id": videoID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		CommentID string `bson:"comment_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.CommentID)
	}
	return ids, nil
}

// InsertMany appends comments, skipping ids that already exist.
// It returns how many were actually inserted.
func (r *CommentRepository) InsertMany(ctx context.Context, comments []models.Comment) (int, error) {
	if len(comments) == 0 {
		return 0, nil
	}
	now := time.Now()
	docs := make([]interface{}, 0, len(comments))
	for i := range comments {
		if comments[i].CollectedAt.IsZero() {
			comments[i].CollectedAt = now
		}
		docs = append(docs, comments[i])
	}

	_, err := r.col.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return len(docs), nil
	}

	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) && bwe.WriteConcernError == nil {
		dups := 0
		for _, we := range bwe.WriteErrors {
			if !isDuplicateCode(we.Code) {
				return len(docs) - len(bwe.WriteErrors), err
			}
			dups++
		}
		return len(docs) - dups, nil
	}
	return 0, err
}

func isDuplicateCode(code int) bool {
	return code == 11000 || code == 11001 || code == 12582
}

// ListRecent returns up to limit comments, newest published first.
func (r *CommentRepository) ListRecent(ctx context.Context, videoID string, limit int) ([]models.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "published_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.col.Find(ctx, bson.M{"video_id": videoID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Comment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *CommentRepository) CountByVideo(ctx context.Context, videoID string) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"video_id": videoID})
}
