package pipeline

import (
	"context"
	"time"

	"video-insight/collector"
	"video-insight/models"
	"video-insight/youtube"
)

// AnalysisStore is the record store contract shared by the Mongo, Postgres
// and memory repositories.
type AnalysisStore interface {
	FindByID(ctx context.Context, id string) (*models.Analysis, error)
	FindByURL(ctx context.Context, url string) (*models.Analysis, error)
	Insert(ctx context.Context, a *models.Analysis) error
	UpdateFields(ctx context.Context, id string, fields map[string]any) error
	TransitionStatus(ctx context.Context, id, field string, from []models.Status, to models.Status, extra map[string]any) (bool, error)
}

type StaleStore interface {
	ListStale(ctx context.Context, field string, before time.Time, limit int) ([]models.Analysis, error)
	TransitionStatus(ctx context.Context, id, field string, from []models.Status, to models.Status, extra map[string]any) (bool, error)
}

type CommentReader interface {
	ListRecent(ctx context.Context, videoID string, limit int) ([]models.Comment, error)
	CountByVideo(ctx context.Context, videoID string) (int64, error)
}

type AILogStore interface {
	Insert(ctx context.Context, log *models.AILog) error
}

// Collector is satisfied by *collector.Coordinator.
type Collector interface {
	EnsureTranscript(ctx context.Context, videoID string) (collector.TranscriptResult, error)
	CollectComments(ctx context.Context, videoID string) (collector.CommentStats, error)
}

type MetadataSource interface {
	FetchMetadata(ctx context.Context, videoID string) (youtube.Metadata, error)
}

// QuotaGate is satisfied by *quota.Limiter.
type QuotaGate interface {
	Reserve(ctx context.Context) error
}

type AudioStorage interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}
