package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"video-insight/config"
	"video-insight/llm"
	"video-insight/models"
)

const (
	cleanupTimeout  = 10 * time.Second
	metadataTimeout = 15 * time.Second
	logExcerptLimit = 4000
)

// markFailed moves a processing record to failed. It runs on a detached
// context so an expired run deadline does not prevent the write. Its own
// errors are logged and dropped so they never replace the run error.
func (p *AnalysisPipeline) markFailed(ctx context.Context, id string, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	won, err := p.deps.Analyses.TransitionStatus(ctx, id, models.FieldAnalysisStatus,
		[]models.Status{models.StatusProcessing}, models.StatusFailed,
		map[string]any{
			models.FieldProcessingStatus: models.StatusFailed,
			models.FieldAnalysisError:    cause.Error(),
		})
	if err != nil {
		config.ErrorWithFields("failed to mark analysis as failed", config.Fields{
			"analysis_id": id,
			"cause":       cause.Error(),
			"error":       err.Error(),
		})
		return
	}
	if !won {
		config.WarnWithFields("analysis was no longer processing when marking failed", config.Fields{
			"analysis_id": id,
			"cause":       cause.Error(),
		})
		return
	}
	config.WarnWithFields("analysis failed", config.Fields{"analysis_id": id, "error": cause.Error()})
}

// logAttempt stores one provider call in ai_logs. Best-effort.
func (p *AnalysisPipeline) logAttempt(ctx context.Context, analysisID string, prov llm.Provider, attempt int, req llm.Request, resp *llm.Response, callErr error, started time.Time) {
	if p.deps.AILogs == nil {
		return
	}
	done := p.opts.Now()
	entry := &models.AILog{
		ID:          uuid.NewString(),
		AnalysisID:  analysisID,
		Provider:    prov.Name(),
		ModelName:   prov.Model(),
		Attempt:     attempt,
		DurationMs:  done.Sub(started).Milliseconds(),
		InputPrompt: excerpt(req.Prompt),
		RequestedAt: started,
		CompletedAt: done,
	}
	if resp != nil {
		entry.ModelVersion = resp.ModelVersion
		entry.InputTokens = resp.Usage.InputTokens
		entry.OutputTokens = resp.Usage.OutputTokens
		entry.TotalTokens = resp.Usage.TotalTokens
		entry.OutputResponse = excerpt(resp.Raw)
	}
	if callErr != nil {
		msg := callErr.Error()
		entry.ErrorMessage = &msg
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := p.deps.AILogs.Insert(wctx, entry); err != nil {
		config.WarnWithFields("failed to store ai log", config.Fields{
			"analysis_id": analysisID,
			"provider":    llm.ID(prov),
			"error":       err.Error(),
		})
	}
}

func excerpt(s string) string {
	return truncateRunes(s, logExcerptLimit)
}
