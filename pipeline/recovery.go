package pipeline

import (
	"context"
	"fmt"
	"time"

	"video-insight/config"
	"video-insight/models"
)

const staleMessage = "timed out"

// Recovery fails runs whose owner disappeared while the record was processing.
type Recovery struct {
	store      StaleStore
	staleAfter time.Duration
	batch      int
	now        func() time.Time
}

func NewRecovery(store StaleStore, staleAfter time.Duration) *Recovery {
	if staleAfter <= 0 {
		staleAfter = 15 * time.Minute
	}
	return &Recovery{store: store, staleAfter: staleAfter, batch: 100, now: time.Now}
}

// SweepStale marks stale analysis and audio runs as failed and reports how
// many records it changed.
func (r *Recovery) SweepStale(ctx context.Context) (int, error) {
	cutoff := r.now().Add(-r.staleAfter)

	analyses, err := r.sweep(ctx, models.FieldAnalysisStatus, cutoff, map[string]any{
		models.FieldProcessingStatus: models.StatusFailed,
		models.FieldAnalysisError:    staleMessage,
	})
	if err != nil {
		return analyses, err
	}
	audio, err := r.sweep(ctx, models.FieldAudioStatus, cutoff, map[string]any{
		models.FieldAudioError: staleMessage,
	})
	total := analyses + audio
	if total > 0 {
		config.InfoWithFields("stale runs recovered", config.Fields{"analysis": analyses, "audio": audio})
	}
	return total, err
}

func (r *Recovery) sweep(ctx context.Context, field string, cutoff time.Time, extra map[string]any) (int, error) {
	stale, err := r.store.ListStale(ctx, field, cutoff, r.batch)
	if err != nil {
		return 0, fmt.Errorf("list stale %s: %w", field, err)
	}
	n := 0
	for _, a := range stale {
		won, err := r.store.TransitionStatus(ctx, a.ID, field,
			[]models.Status{models.StatusProcessing}, models.StatusFailed, extra)
		if err != nil {
			config.ErrorWithFields("failed to recover stale run", config.Fields{
				"analysis_id": a.ID, "field": field, "error": err.Error(),
			})
			continue
		}
		if won {
			n++
		}
	}
	return n, nil
}
