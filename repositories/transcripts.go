package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"video-insight/models"
)

type TranscriptRepository struct {
	col *mongo.Collection
}

func NewTranscriptRepository(db *mongo.Database) *TranscriptRepository {
	return &TranscriptRepository{col: db.Collection("transcripts")}
}

func (r *TranscriptRepository) FindByVideoID(ctx context.Context, videoID string) (*models.Transcript, error) {
	var t models.Transcript
	if err := r.col.FindOne(ctx, bson.M{"video_id": videoID}).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// InsertIfAbsent inserts t unless the video already has a transcript.
// It reports false when another writer got there first.
func (r *TranscriptRepository) InsertIfAbsent(ctx context.Context, t *models.Transcript) (bool, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	if _, err := r.col.InsertOne(ctx, t); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
