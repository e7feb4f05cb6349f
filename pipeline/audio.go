package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"video-insight/config"
	"video-insight/fallback"
	"video-insight/models"
	"video-insight/repositories"
	"video-insight/storage"
	"video-insight/tts"
)

type AudioDeps struct {
	Analyses AnalysisStore
	Vendors  []tts.Vendor
	Storage  AudioStorage
}

type AudioOptions struct {
	AttemptTimeout time.Duration
	StorageTimeout time.Duration
	SignedURLTTL   time.Duration
	Rand           *rand.Rand
}

func AudioOptionsFromConfig(cfg config.AppConfig) AudioOptions {
	return AudioOptions{
		AttemptTimeout: cfg.TTS.AttemptTimeout,
		StorageTimeout: cfg.Storage.Timeout,
		SignedURLTTL:   cfg.Storage.SignedURLTTL,
	}
}

// AudioPipeline turns a completed summary into a stored audio file.
type AudioPipeline struct {
	deps AudioDeps
	opts AudioOptions
}

func NewAudioPipeline(deps AudioDeps, opts AudioOptions) *AudioPipeline {
	if opts.SignedURLTTL <= 0 {
		opts.SignedURLTTL = time.Hour
	}
	return &AudioPipeline{deps: deps, opts: opts}
}

// Generate synthesizes the summary with the first vendor that succeeds.
// Vendors are tried in random order, once each.
func (p *AudioPipeline) Generate(ctx context.Context, analysisID string, force bool) (*models.Analysis, error) {
	rec, err := p.find(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	if rec.AnalysisStatus != models.StatusCompleted || rec.Summary == "" {
		return nil, ErrNotReady
	}
	switch rec.AudioStatus {
	case models.StatusProcessing:
		return rec, nil
	case models.StatusCompleted:
		if !force {
			return rec, nil
		}
	}

	from := rec.AudioStatus
	if from == "" {
		from = models.StatusPending
	}
	won, err := p.deps.Analyses.TransitionStatus(ctx, rec.ID, models.FieldAudioStatus,
		[]models.Status{from}, models.StatusProcessing,
		map[string]any{models.FieldAudioError: ""})
	if err != nil {
		return nil, fmt.Errorf("claim audio %s: %w", rec.ID, err)
	}
	if !won {
		return p.find(ctx, analysisID)
	}

	path, err := p.synthesizeAndUpload(ctx, rec)
	if err != nil {
		p.markFailed(ctx, rec.ID, err)
		return nil, &RunError{AnalysisID: rec.ID, Stage: StageAudio, Err: err}
	}

	if err := p.deps.Analyses.UpdateFields(ctx, rec.ID, map[string]any{
		models.FieldAudioStatus:      models.StatusCompleted,
		models.FieldAudioStoragePath: path,
		models.FieldAudioError:       "",
	}); err != nil {
		err = fmt.Errorf("persist audio: %w", err)
		p.markFailed(ctx, rec.ID, err)
		return nil, &RunError{AnalysisID: rec.ID, Stage: StageAudio, Err: err}
	}

	config.InfoWithFields("audio generated", config.Fields{"analysis_id": rec.ID, "path": path})
	return p.find(ctx, analysisID)
}

func (p *AudioPipeline) synthesizeAndUpload(ctx context.Context, rec *models.Analysis) (string, error) {
	if p.deps.Storage == nil {
		return "", errors.New("audio storage is not configured")
	}

	strategies := make([]fallback.Strategy[*tts.Audio], 0, len(p.deps.Vendors))
	for _, v := range p.deps.Vendors {
		v := v
		strategies = append(strategies, fallback.Func[*tts.Audio]{
			Name:      v.Name(),
			IsEnabled: v.Enabled(),
			Fn: func(ctx context.Context) (*tts.Audio, error) {
				return v.Synthesize(ctx, rec.Summary)
			},
		})
	}

	res, err := fallback.Run(ctx, strategies, fallback.Options{
		MaxRetries:     1,
		Shuffle:        true,
		Rand:           p.opts.Rand,
		AttemptTimeout: p.opts.AttemptTimeout,
		Label:          "tts",
	})
	if err != nil {
		return "", err
	}

	path := storage.AudioPath(rec.VideoID, rec.ID, res.Value.Ext)
	uctx := ctx
	if p.opts.StorageTimeout > 0 {
		var cancel context.CancelFunc
		uctx, cancel = context.WithTimeout(ctx, p.opts.StorageTimeout)
		defer cancel()
	}
	if err := p.deps.Storage.Upload(uctx, path, res.Value.Data, res.Value.ContentType); err != nil {
		return "", fmt.Errorf("upload audio: %w", err)
	}
	config.DebugWithFields("audio uploaded", config.Fields{
		"analysis_id": rec.ID, "vendor": res.StrategyID, "bytes": len(res.Value.Data),
	})
	return path, nil
}

// SignedURL returns a time-limited download URL for the stored audio.
func (p *AudioPipeline) SignedURL(ctx context.Context, analysisID string) (string, error) {
	rec, err := p.find(ctx, analysisID)
	if err != nil {
		return "", err
	}
	if rec.AudioStatus != models.StatusCompleted || rec.AudioStoragePath == "" {
		return "", ErrAudioNotReady
	}
	if p.deps.Storage == nil {
		return "", errors.New("audio storage is not configured")
	}
	return p.deps.Storage.SignedURL(ctx, rec.AudioStoragePath, p.opts.SignedURLTTL)
}

func (p *AudioPipeline) find(ctx context.Context, id string) (*models.Analysis, error) {
	rec, err := p.deps.Analyses.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (p *AudioPipeline) markFailed(ctx context.Context, id string, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	_, err := p.deps.Analyses.TransitionStatus(ctx, id, models.FieldAudioStatus,
		[]models.Status{models.StatusProcessing}, models.StatusFailed,
		map[string]any{models.FieldAudioError: cause.Error()})
	if err != nil {
		config.ErrorWithFields("failed to mark audio as failed", config.Fields{
			"analysis_id": id,
			"cause":       cause.Error(),
			"error":       err.Error(),
		})
		return
	}
	config.WarnWithFields("audio generation failed", config.Fields{"analysis_id": id, "error": cause.Error()})
}
