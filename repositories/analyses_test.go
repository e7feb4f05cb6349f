package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"video-insight/models"
)

func TestAnalysisRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("FindByURL decodes document", func(mt *mtest.T) {
		repo := NewAnalysisRepository(mt.DB)
		ns := mt.DB.Name() + ".analyses"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "a-1"},
			{Key: "url", Value: "https://www.youtube.com/watch?v=abc"},
			{Key: "video_id", Value: "abc"},
			{Key: "analysis_status", Value: "completed"},
			{Key: "sentiment", Value: bson.D{
				{Key: "positive", Value: 60}, {Key: "neutral", Value: 30}, {Key: "negative", Value: 10},
			}},
		}))

		a, err := repo.FindByURL(ctx, "https://www.youtube.com/watch?v=abc")
		require.NoError(mt, err)
		assert.Equal(mt, "a-1", a.ID)
		assert.Equal(mt, models.StatusCompleted, a.AnalysisStatus)
		require.NotNil(mt, a.Sentiment)
		assert.Equal(mt, 60, a.Sentiment.Positive)
		assert.Nil(mt, a.Community)
	})

	mt.Run("FindByID not found", func(mt *mtest.T) {
		repo := NewAnalysisRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mt.DB.Name()+".analyses", mtest.FirstBatch))

		_, err := repo.FindByID(ctx, "missing")
		assert.True(mt, errors.Is(err, ErrNotFound))
	})

	mt.Run("Insert duplicate url", func(mt *mtest.T) {
		repo := NewAnalysisRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "E11000 duplicate key error",
		}))

		err := repo.Insert(ctx, &models.Analysis{ID: "a-2", URL: "u"})
		assert.True(mt, errors.Is(err, ErrDuplicate))
	})

	mt.Run("Insert sets timestamps", func(mt *mtest.T) {
		repo := NewAnalysisRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		a := &models.Analysis{ID: "a-3", URL: "u"}
		require.NoError(mt, repo.Insert(ctx, a))
		assert.False(mt, a.CreatedAt.IsZero())
		assert.False(mt, a.UpdatedAt.IsZero())
	})

	mt.Run("TransitionStatus reports lost race", func(mt *mtest.T) {
		repo := NewAnalysisRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0},
		))

		won, err := repo.TransitionStatus(ctx, "a-1", models.FieldAnalysisStatus,
			[]models.Status{models.StatusPending, models.StatusFailed}, models.StatusProcessing, nil)
		require.NoError(mt, err)
		assert.False(mt, won)
	})

	mt.Run("TransitionStatus wins", func(mt *mtest.T) {
		repo := NewAnalysisRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1},
		))

		won, err := repo.TransitionStatus(ctx, "a-1", models.FieldAudioStatus,
			[]models.Status{models.StatusPending}, models.StatusProcessing,
			map[string]any{models.FieldAudioError: ""})
		require.NoError(mt, err)
		assert.True(mt, won)
	})

	mt.Run("UpdateFields rejects unknown columns", func(mt *mtest.T) {
		repo := NewAnalysisRepository(mt.DB)
		err := repo.UpdateFields(ctx, "a-1", map[string]any{"url": "x"})
		assert.Error(mt, err)

		_, err = repo.TransitionStatus(ctx, "a-1", "summary", nil, models.StatusFailed, nil)
		assert.Error(mt, err)
	})

	mt.Run("UpdateFields missing record", func(mt *mtest.T) {
		repo := NewAnalysisRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0},
		))
		err := repo.UpdateFields(ctx, "gone", map[string]any{models.FieldSummary: "s"})
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("ListStale", func(mt *mtest.T) {
		repo := NewAnalysisRepository(mt.DB)
		ns := mt.DB.Name() + ".analyses"
		mt.AddMockResponses(
			mtest.CreateCursorResponse(1, ns, mtest.FirstBatch,
				bson.D{{Key: "_id", Value: "s-1"}, {Key: "analysis_status", Value: "processing"}},
				bson.D{{Key: "_id", Value: "s-2"}, {Key: "analysis_status", Value: "processing"}},
			),
			mtest.CreateCursorResponse(0, ns, mtest.NextBatch),
		)
		out, err := repo.ListStale(ctx, models.FieldAnalysisStatus, time.Now(), 10)
		require.NoError(mt, err)
		require.Len(mt, out, 2)
		assert.Equal(mt, "s-2", out[1].ID)
	})
}
