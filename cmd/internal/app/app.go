// Package app wires config, stores, external clients and pipelines for the
// api and processor binaries.
package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"video-insight/collector"
	"video-insight/config"
	"video-insight/db"
	"video-insight/llm"
	"video-insight/pipeline"
	"video-insight/quota"
	"video-insight/repositories"
	"video-insight/repositories/memory"
	"video-insight/repositories/postgres"
	"video-insight/storage"
	"video-insight/tts"
	"video-insight/youtube"
)

// AnalysisRepo is what both binaries need from the analyses store.
type AnalysisRepo interface {
	pipeline.AnalysisStore
	pipeline.StaleStore
}

type CommentRepo interface {
	collector.CommentStore
	pipeline.CommentReader
}

// Stores groups the repositories of one backend.
type Stores struct {
	Analyses    AnalysisRepo
	Transcripts collector.TranscriptStore
	Comments    CommentRepo
	AILogs      pipeline.AILogStore
	close       func(ctx context.Context) error
	ping        func(ctx context.Context) error
}

// Ping reports whether the backend is reachable.
func (s *Stores) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

func (s *Stores) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// OpenStores connects the backend named by store.backend.
func OpenStores(ctx context.Context, cfg config.StoreConfig) (*Stores, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "mongo", "mongodb":
		if err := db.InitMongo(ctx, cfg); err != nil {
			return nil, fmt.Errorf("failed to initialize MongoDB: %w", err)
		}
		d := db.Database()
		return &Stores{
			Analyses:    repositories.NewAnalysisRepository(d),
			Transcripts: repositories.NewTranscriptRepository(d),
			Comments:    repositories.NewCommentRepository(d),
			AILogs:      repositories.NewAILogRepository(d),
			close:       db.DisconnectMongo,
			ping:        db.PingMongo,
		}, nil
	case "postgres", "postgresql":
		pool, err := db.OpenPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &Stores{
			Analyses:    postgres.NewAnalysisRepository(pool),
			Transcripts: postgres.NewTranscriptRepository(pool),
			Comments:    postgres.NewCommentRepository(pool),
			AILogs:      postgres.NewAILogRepository(pool),
			close: func(context.Context) error {
				pool.Close()
				return nil
			},
			ping: pool.Ping,
		}, nil
	case "memory":
		config.Logger.Warn("using in-memory store; records are lost on restart")
		return MemoryStores(memory.New()), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Backend)
	}
}

func MemoryStores(m *memory.Store) *Stores {
	return &Stores{
		Analyses:    m.Analyses(),
		Transcripts: m.Transcripts(),
		Comments:    m.Comments(),
		AILogs:      m.AILogs(),
	}
}

// App holds the pipelines built once per process.
type App struct {
	Config   config.AppConfig
	Stores   *Stores
	Analysis *pipeline.AnalysisPipeline
	Audio    *pipeline.AudioPipeline
	Recovery *pipeline.Recovery

	gcs *storage.GCS
}

// New builds every pipeline. Audio storage is optional: without a bucket the
// audio pipeline still exists but generation fails with a clear error.
func New(ctx context.Context, cfg config.AppConfig) (*App, error) {
	stores, err := OpenStores(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	a, err := build(ctx, cfg, stores)
	if err != nil {
		_ = stores.Close(ctx)
		return nil, err
	}
	return a, nil
}

func build(ctx context.Context, cfg config.AppConfig, stores *Stores) (*App, error) {
	registry, err := llm.NewRegistryFromConfig(ctx, cfg.LLM.Providers)
	if err != nil {
		return nil, err
	}
	if len(registry.Enabled()) == 0 {
		config.Logger.Warn("no LLM provider has an API key; analyses will fail")
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	transcripts := youtube.NewTranscriptClient(httpClient, cfg.YouTube.TranscriptLanguages)

	var comments collector.CommentSource = youtube.NoCommentSource{}
	metadata := youtube.NewMetadataClient(nil, httpClient)
	if cfg.YouTube.APIKey != "" {
		svc, err := youtube.NewService(ctx, cfg.YouTube.APIKey)
		if err != nil {
			return nil, err
		}
		comments = youtube.NewCommentClient(svc, cfg.YouTube.CommentPageSize)
		metadata = youtube.NewMetadataClient(svc, httpClient)
	} else {
		config.Logger.Warn("YOUTUBE_API_KEY is not set; comments will not be collected")
	}

	coord := collector.NewCoordinator(stores.Transcripts, stores.Comments, transcripts, comments, collector.Options{
		MaxComments:   cfg.Collection.MaxComments,
		RecentIDCount: cfg.Collection.RecentIDCount,
		Timeout:       cfg.Collection.Timeout,
	})

	analysis := pipeline.NewAnalysisPipeline(pipeline.Deps{
		Analyses:  stores.Analyses,
		Comments:  stores.Comments,
		AILogs:    stores.AILogs,
		Collector: coord,
		Registry:  registry,
		Metadata:  metadata,
		Quota:     quota.NewFromConfig(cfg.Quota),
	}, pipeline.OptionsFromConfig(cfg))

	vendors, err := tts.NewVendorsFromConfig(ctx, cfg.TTS.Vendors)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:   cfg,
		Stores:   stores,
		Analysis: analysis,
		Recovery: pipeline.NewRecovery(stores.Analyses, cfg.Recovery.StaleAfter),
	}

	audioDeps := pipeline.AudioDeps{Analyses: stores.Analyses, Vendors: vendors}
	if cfg.Storage.Bucket != "" {
		gcs, err := storage.NewGCS(ctx, cfg.Storage.Bucket)
		if err != nil {
			return nil, err
		}
		a.gcs = gcs
		audioDeps.Storage = gcs
	} else {
		config.Logger.Warn("GCS_BUCKET is not set; audio generation is disabled")
	}
	a.Audio = pipeline.NewAudioPipeline(audioDeps, pipeline.AudioOptionsFromConfig(cfg))

	return a, nil
}

func (a *App) Close(ctx context.Context) {
	if a.gcs != nil {
		if err := a.gcs.Close(); err != nil {
			config.Logger.Warnf("failed to close storage client: %v", err)
		}
	}
	if err := a.Stores.Close(ctx); err != nil {
		config.Logger.Warnf("failed to close store: %v", err)
	}
}
