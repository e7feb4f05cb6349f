package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-insight/collector"
	"video-insight/fallback"
	"video-insight/llm"
	"video-insight/models"
	"video-insight/quota"
	"video-insight/repositories/memory"
	"video-insight/youtube"
)

type harness struct {
	store       *memory.Store
	transcripts *fakeTranscriptSource
	comments    *fakeCommentSource
	deps        Deps
	opts        Options
	start       time.Time
}

func newHarness(providers ...llm.Provider) *harness {
	h := &harness{
		store:       memory.New(),
		transcripts: &fakeTranscriptSource{text: "This video explains sorting algorithms step by step."},
		comments:    &fakeCommentSource{comments: makeComments(80)},
		start:       time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	h.deps = Deps{
		Analyses: h.store.Analyses(),
		Comments: h.store.Comments(),
		AILogs:   h.store.AILogs(),
		Collector: collector.NewCoordinator(h.store.Transcripts(), h.store.Comments(),
			h.transcripts, h.comments, collector.Options{}),
		Registry: llm.NewRegistry(providers...),
	}
	h.opts = Options{Now: steppingClock(h.start)}
	return h
}

func (h *harness) pipeline() *AnalysisPipeline {
	return NewAnalysisPipeline(h.deps, h.opts)
}

func (h *harness) record(t *testing.T) *models.Analysis {
	t.Helper()
	rec, err := h.store.Analyses().FindByURL(context.Background(), testURL)
	require.NoError(t, err)
	return rec
}

func TestAnalyze_CompletesAndNormalizes(t *testing.T) {
	prov := newProvider("gemini", respond(analysisObject()))
	h := newHarness(prov)
	h.deps.Metadata = &fakeMetadata{md: youtube.Metadata{Title: "Sorting 101", ThumbnailURL: "https://i.ytimg.com/vi/x/hq.jpg"}}

	res, err := h.pipeline().Analyze(context.Background(), Request{URL: "https://youtu.be/" + testVideoID, SummaryID: "sum-1"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)

	rec := res.Record
	assert.Equal(t, testURL, rec.URL)
	assert.Equal(t, "sum-1", rec.SummaryID)
	assert.Equal(t, "Sorting 101", rec.Title)
	assert.Equal(t, models.StatusCompleted, rec.AnalysisStatus)
	assert.Equal(t, models.StatusCompleted, rec.ProcessingStatus)
	assert.Equal(t, models.StatusPending, rec.AudioStatus)
	assert.Equal(t, "gemini/model-gemini", rec.AnalysisModel)
	assert.Equal(t, 80, rec.TotalCommentsAnalyzed)
	require.NotNil(t, rec.AnalyzedAt)
	assert.True(t, rec.AnalyzedAt.After(h.start))
	require.NotNil(t, rec.Transcript)
	assert.Contains(t, *rec.Transcript, "sorting algorithms")

	require.NotNil(t, rec.ContentQuality)
	assert.GreaterOrEqual(t, rec.ContentQuality.OverallScore, 0)
	assert.LessOrEqual(t, rec.ContentQuality.OverallScore, 100)

	require.NotNil(t, rec.Sentiment)
	assert.Equal(t, 100, rec.Sentiment.Positive+rec.Sentiment.Neutral+rec.Sentiment.Negative)
	require.NotNil(t, rec.AgeGroups)
	assert.Equal(t, 100, rec.AgeGroups.Teens+rec.AgeGroups.Twenties+rec.AgeGroups.Thirties+rec.AgeGroups.FortyPlus)
	require.NotNil(t, rec.Emotions)
	e := rec.Emotions
	assert.Equal(t, 100, e.Joy+e.Trust+e.Fear+e.Surprise+e.Sadness+e.Disgust+e.Anger+e.Anticipation)
	assert.NotNil(t, rec.Community)
	require.NotNil(t, rec.Insights)
	assert.Len(t, rec.Insights.KeyInsights, 2)

	logs := h.store.AILogs().All()
	require.Len(t, logs, 1)
	assert.Equal(t, rec.ID, logs[0].AnalysisID)
	assert.Equal(t, "gemini", logs[0].Provider)
	assert.Equal(t, int64(1500), logs[0].TotalTokens)
	assert.Nil(t, logs[0].ErrorMessage)

	assert.Equal(t, "video_analysis", prov.last.SchemaName)
	assert.Contains(t, prov.last.Prompt, "sorting algorithms")
	assert.Contains(t, prov.last.Prompt, "Sorting 101")
}

func TestAnalyze_FewCommentsOmitsCommunitySections(t *testing.T) {
	prov := newProvider("gemini", respond(analysisObject()))
	h := newHarness(prov)
	h.comments.comments = makeComments(10)

	res, err := h.pipeline().Analyze(context.Background(), Request{URL: testURL})
	require.NoError(t, err)

	props, ok := prov.last.Schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.NotContains(t, props, "community")
	assert.NotContains(t, props, "age_groups")
	assert.NotContains(t, props, "emotions")
	assert.Contains(t, props, "sentiment")

	assert.Nil(t, res.Record.Community)
	assert.Nil(t, res.Record.AgeGroups)
	assert.Nil(t, res.Record.Emotions)
	assert.Equal(t, 10, res.Record.TotalCommentsAnalyzed)
}

func TestAnalyze_NoTranscriptNeverCallsProvider(t *testing.T) {
	prov := newProvider("gemini", respond(analysisObject()))
	h := newHarness(prov)
	h.transcripts.text = ""
	h.comments.comments = nil

	res, err := h.pipeline().Analyze(context.Background(), Request{URL: testURL})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoTranscript, res.Outcome)
	assert.Equal(t, 0, prov.Calls())

	rec := h.record(t)
	assert.Equal(t, models.StatusFailed, rec.AnalysisStatus)
	assert.Equal(t, models.StatusFailed, rec.ProcessingStatus)
	assert.Equal(t, ErrNoTranscript.Error(), rec.AnalysisError)
}

func TestAnalyze_CompletedIsIdempotent(t *testing.T) {
	prov := newProvider("gemini", respond(analysisObject()))
	h := newHarness(prov)
	p := h.pipeline()

	first, err := p.Analyze(context.Background(), Request{URL: testURL})
	require.NoError(t, err)

	second, err := p.Analyze(context.Background(), Request{URL: testURL})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyCompleted, second.Outcome)
	assert.Equal(t, 1, prov.Calls())
	assert.Equal(t, first.Record, second.Record)
}

func TestAnalyze_ForceReruns(t *testing.T) {
	prov := newProvider("gemini", respond(analysisObject()))
	h := newHarness(prov)
	p := h.pipeline()

	first, err := p.Analyze(context.Background(), Request{URL: testURL})
	require.NoError(t, err)
	require.NoError(t, h.store.Analyses().UpdateFields(context.Background(), first.Record.ID, map[string]any{
		models.FieldAudioStatus:      models.StatusCompleted,
		models.FieldAudioStoragePath: "audio/old.mp3",
	}))

	res, err := p.Analyze(context.Background(), Request{VideoID: testVideoID, Force: true})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, 2, prov.Calls())
	assert.Equal(t, 1, h.transcripts.calls, "stored transcript is reused")

	rec := h.record(t)
	assert.Equal(t, models.StatusPending, rec.AudioStatus, "new summary invalidates old audio")
	assert.Empty(t, rec.AudioStoragePath)
}

func TestAnalyze_FailedRecordIsRetried(t *testing.T) {
	prov := newProvider("gemini", fail("upstream exploded"), respond(analysisObject()))
	h := newHarness(prov)
	h.opts.MaxRetries = 1
	p := h.pipeline()

	_, err := p.Analyze(context.Background(), Request{URL: testURL})
	require.Error(t, err)
	assert.Equal(t, models.StatusFailed, h.record(t).AnalysisStatus)

	res, err := p.Analyze(context.Background(), Request{URL: testURL})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Empty(t, res.Record.AnalysisError)
}

func TestAnalyze_ProcessingRecordIsNotRerun(t *testing.T) {
	prov := newProvider("gemini", respond(analysisObject()))
	h := newHarness(prov)
	require.NoError(t, h.store.Analyses().Insert(context.Background(), &models.Analysis{
		ID: "existing", URL: testURL, VideoID: testVideoID,
		ProcessingStatus: models.StatusProcessing,
		AnalysisStatus:   models.StatusProcessing,
		AudioStatus:      models.StatusPending,
	}))

	res, err := h.pipeline().Analyze(context.Background(), Request{URL: testURL, Force: true})
	require.NoError(t, err)
	assert.Equal(t, OutcomeInProgress, res.Outcome)
	assert.Equal(t, "existing", res.Record.ID)
	assert.Equal(t, 0, prov.Calls())
	assert.Equal(t, 0, h.transcripts.calls)
}

func TestAnalyze_CreateConflictObservesWinner(t *testing.T) {
	prov := newProvider("gemini", respond(analysisObject()))
	h := newHarness(prov)
	require.NoError(t, h.store.Analyses().Insert(context.Background(), &models.Analysis{
		ID: "winner", URL: testURL, VideoID: testVideoID,
		ProcessingStatus: models.StatusProcessing,
		AnalysisStatus:   models.StatusProcessing,
		AudioStatus:      models.StatusPending,
	}))
	h.deps.Analyses = &staleFindByURL{Analyses: h.store.Analyses()}

	res, err := h.pipeline().Analyze(context.Background(), Request{URL: testURL})
	require.NoError(t, err)
	assert.Equal(t, OutcomeInProgress, res.Outcome)
	assert.Equal(t, "winner", res.Record.ID)
	assert.Equal(t, 0, prov.Calls())
}

func TestAnalyze_ConcurrentSubmissionsRunOnce(t *testing.T) {
	release := make(chan struct{})
	prov := newProvider("gemini", func() (*llm.Response, error) {
		<-release
		return respond(analysisObject())()
	})
	h := newHarness(prov)
	p := h.pipeline()

	type result struct {
		outcome Outcome
		err     error
	}
	results := make(chan result, 2)
	for i := 0; i < 2; i++ {
		go func() {
			res, err := p.Analyze(context.Background(), Request{URL: testURL})
			r := result{err: err}
			if res != nil {
				r.outcome = res.Outcome
			}
			results <- r
		}()
	}

	// the owner blocks inside the provider, so the first result is the loser's
	first := <-results
	close(release)
	second := <-results

	require.NoError(t, first.err)
	require.NoError(t, second.err)
	assert.Equal(t, OutcomeInProgress, first.outcome)
	assert.Equal(t, OutcomeCompleted, second.outcome)
	assert.Equal(t, 1, prov.Calls())
}

func TestAnalyze_FailsOverOnQuota(t *testing.T) {
	a := newProvider("gemini", fail("Error 429, RESOURCE_EXHAUSTED: quota exceeded"))
	b := newProvider("openai", respond(analysisObject()))
	h := newHarness(a, b)

	res, err := h.pipeline().Analyze(context.Background(), Request{URL: testURL})
	require.NoError(t, err)
	assert.Equal(t, "openai/model-openai", res.Record.AnalysisModel)
	assert.Equal(t, 1, a.Calls(), "quota errors skip the remaining retries")
	assert.Equal(t, 1, b.Calls())

	logs := h.store.AILogs().All()
	require.Len(t, logs, 2)
	require.NotNil(t, logs[0].ErrorMessage)
	assert.Contains(t, *logs[0].ErrorMessage, "quota")
	assert.Nil(t, logs[1].ErrorMessage)
}

func TestAnalyze_RetriesInvalidOutput(t *testing.T) {
	bad := analysisObject()
	bad["content_quality"].(map[string]any)["overall_score"] = 150
	prov := newProvider("gemini", respond(bad), respond(analysisObject()))
	h := newHarness(prov)

	res, err := h.pipeline().Analyze(context.Background(), Request{URL: testURL})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, 2, prov.Calls())
	assert.Equal(t, 78, res.Record.ContentQuality.OverallScore)
}

func TestAnalyze_ValidationTextNeverLooksLikeQuota(t *testing.T) {
	bad := analysisObject()
	bad["insights"].(map[string]any)["key_insights"] = []any{strings.Repeat("x", 429)}
	prov := newProvider("gemini", respond(bad), respond(analysisObject()))
	h := newHarness(prov)

	res, err := h.pipeline().Analyze(context.Background(), Request{URL: testURL})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, 2, prov.Calls())
}

func TestAnalyze_AllProvidersFail(t *testing.T) {
	a := newProvider("gemini", fail("boom"))
	b := newProvider("openai", fail("bad gateway"))
	h := newHarness(a, b)

	_, err := h.pipeline().Analyze(context.Background(), Request{URL: testURL})
	require.Error(t, err)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, StageAnalysis, runErr.Stage)
	var exhausted *fallback.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Len(t, exhausted.Attempts, 4)

	rec := h.record(t)
	assert.Equal(t, models.StatusFailed, rec.AnalysisStatus)
	assert.Equal(t, models.StatusFailed, rec.ProcessingStatus)
	assert.Contains(t, rec.AnalysisError, "[gemini/model-gemini#1] boom")
	assert.Contains(t, rec.AnalysisError, "[openai/model-openai#2] bad gateway")
	assert.Len(t, h.store.AILogs().All(), 4)
}

func TestAnalyze_NoEnabledProviders(t *testing.T) {
	prov := newProvider("gemini", respond(analysisObject()))
	prov.enabled = false
	h := newHarness(prov)

	_, err := h.pipeline().Analyze(context.Background(), Request{URL: testURL})
	require.Error(t, err)
	assert.ErrorIs(t, err, fallback.ErrNoStrategies)
	assert.Equal(t, 0, prov.Calls())
	assert.Equal(t, models.StatusFailed, h.record(t).AnalysisStatus)
}

func TestAnalyze_CommentSourceErrorFailsRun(t *testing.T) {
	prov := newProvider("gemini", respond(analysisObject()))
	h := newHarness(prov)
	h.comments.err = errors.New("commentThreads.list: 403")

	_, err := h.pipeline().Analyze(context.Background(), Request{URL: testURL})
	var collErr *collector.CollectionError
	require.ErrorAs(t, err, &collErr)
	assert.Equal(t, collector.StageComments, collErr.Stage)
	assert.Equal(t, 0, prov.Calls())
	assert.Equal(t, models.StatusFailed, h.record(t).AnalysisStatus)
}

func TestAnalyze_QuotaExhausted(t *testing.T) {
	prov := newProvider("gemini", respond(analysisObject()))
	h := newHarness(prov)
	h.deps.Quota = &fakeQuota{err: quota.ErrDailyQuotaExceeded}

	_, err := h.pipeline().Analyze(context.Background(), Request{URL: testURL})
	assert.ErrorIs(t, err, quota.ErrDailyQuotaExceeded)
	assert.Equal(t, 0, prov.Calls())
	assert.Equal(t, models.StatusFailed, h.record(t).AnalysisStatus)
}

func TestAnalyze_FailureWriteErrorIsSwallowed(t *testing.T) {
	prov := newProvider("gemini", fail("boom"))
	h := newHarness(prov)
	h.deps.Analyses = failingFailWrite{h.store.Analyses()}

	_, err := h.pipeline().Analyze(context.Background(), Request{URL: testURL})
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Contains(t, err.Error(), "boom")
	assert.NotContains(t, err.Error(), "store unavailable")
}

func TestAnalyze_InvalidURL(t *testing.T) {
	prov := newProvider("gemini", respond(analysisObject()))
	h := newHarness(prov)

	_, err := h.pipeline().Analyze(context.Background(), Request{URL: "https://vimeo.com/12345"})
	assert.ErrorIs(t, err, youtube.ErrInvalidURL)

	_, err = h.store.Analyses().FindByURL(context.Background(), testURL)
	assert.Error(t, err)
}

func TestAnalyze_MetadataFailureIsNotFatal(t *testing.T) {
	prov := newProvider("gemini", respond(analysisObject()))
	h := newHarness(prov)
	h.deps.Metadata = &fakeMetadata{err: errors.New("videos.list: 500")}

	res, err := h.pipeline().Analyze(context.Background(), Request{URL: testURL})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Empty(t, res.Record.Title)
}
