// Package pipeline drives an analysis record from submission to a terminal
// status: collect, prompt, generate with fallback, normalize, persist.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"video-insight/collector"
	"video-insight/config"
	"video-insight/fallback"
	"video-insight/llm"
	"video-insight/models"
	"video-insight/repositories"
	"video-insight/schema"
	"video-insight/youtube"
)

type Outcome string

const (
	OutcomeCompleted        Outcome = "completed"
	OutcomeAlreadyCompleted Outcome = "already_completed"
	OutcomeInProgress       Outcome = "in_progress"
	OutcomeNoTranscript     Outcome = "no_transcript"
)

// Request identifies the video by URL or bare id.
type Request struct {
	URL       string
	VideoID   string
	SummaryID string
	Force     bool
}

type Result struct {
	Record  *models.Analysis
	Outcome Outcome
}

type Deps struct {
	Analyses  AnalysisStore
	Comments  CommentReader
	AILogs    AILogStore
	Collector Collector
	Registry  *llm.Registry
	// Metadata and Quota are optional.
	Metadata MetadataSource
	Quota    QuotaGate
}

type Options struct {
	Language             string
	PromptCommentLimit   int
	CommunityMinComments int
	MaxTranscriptChars   int
	RunTimeout           time.Duration
	Temperature          float64
	MaxRetries           int
	AttemptTimeout       time.Duration
	Now                  func() time.Time
}

func OptionsFromConfig(cfg config.AppConfig) Options {
	return Options{
		Language:             cfg.Analysis.Language,
		PromptCommentLimit:   cfg.Analysis.PromptCommentLimit,
		CommunityMinComments: cfg.Analysis.CommunityMinComments,
		MaxTranscriptChars:   cfg.Analysis.MaxTranscriptChars,
		RunTimeout:           cfg.Analysis.RunTimeout,
		Temperature:          cfg.LLM.Temperature,
		MaxRetries:           cfg.LLM.MaxRetries,
		AttemptTimeout:       cfg.LLM.AttemptTimeout,
	}
}

type AnalysisPipeline struct {
	deps Deps
	opts Options
}

func NewAnalysisPipeline(deps Deps, opts Options) *AnalysisPipeline {
	if opts.Language == "" {
		opts.Language = "English"
	}
	if opts.PromptCommentLimit <= 0 {
		opts.PromptCommentLimit = 100
	}
	if opts.CommunityMinComments <= 0 {
		opts.CommunityMinComments = 50
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 2
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if deps.Registry == nil {
		deps.Registry = llm.NewRegistry()
	}
	return &AnalysisPipeline{deps: deps, opts: opts}
}

// Analyze runs one analysis for the requested video. A completed record is
// returned without any provider call unless Force is set. A record already
// processing is left to its owner. Errors after the record was claimed are
// returned as *RunError with the record already marked failed.
func (p *AnalysisPipeline) Analyze(ctx context.Context, req Request) (*Result, error) {
	videoID, url, err := resolveVideo(req)
	if err != nil {
		return nil, err
	}

	rec, claimed, err := p.claim(ctx, videoID, url, req)
	if err != nil {
		return nil, err
	}
	if !claimed {
		outcome := OutcomeInProgress
		if rec.AnalysisStatus == models.StatusCompleted {
			outcome = OutcomeAlreadyCompleted
		}
		config.InfoWithFields("analysis skipped", config.Fields{
			"analysis_id": rec.ID, "video_id": videoID, "outcome": string(outcome),
		})
		return &Result{Record: rec, Outcome: outcome}, nil
	}

	runCtx := ctx
	if p.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.opts.RunTimeout)
		defer cancel()
	}

	start := p.opts.Now()
	outcome, err := p.run(runCtx, rec)
	if err != nil {
		p.markFailed(ctx, rec.ID, err)
		return nil, &RunError{AnalysisID: rec.ID, Stage: StageAnalysis, Err: err}
	}
	if outcome == OutcomeNoTranscript {
		p.markFailed(ctx, rec.ID, ErrNoTranscript)
	}

	updated, err := p.deps.Analyses.FindByID(ctx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("reload analysis %s: %w", rec.ID, err)
	}
	config.InfoWithFields("analysis finished", config.Fields{
		"analysis_id": rec.ID,
		"video_id":    videoID,
		"outcome":     string(outcome),
		"elapsed_ms":  p.opts.Now().Sub(start).Milliseconds(),
	})
	return &Result{Record: updated, Outcome: outcome}, nil
}

func resolveVideo(req Request) (videoID, url string, err error) {
	if req.VideoID != "" {
		return youtube.Normalize(req.VideoID)
	}
	return youtube.Normalize(req.URL)
}

// claim finds or creates the record and moves it to processing. It returns
// claimed=false when another run owns the record or it is already done.
func (p *AnalysisPipeline) claim(ctx context.Context, videoID, url string, req Request) (*models.Analysis, bool, error) {
	existing, err := p.deps.Analyses.FindByURL(ctx, url)
	switch {
	case err == nil:
		return p.reclaim(ctx, existing, req)
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, false, fmt.Errorf("find analysis by url: %w", err)
	}

	rec := &models.Analysis{
		ID:               uuid.NewString(),
		URL:              url,
		VideoID:          videoID,
		SummaryID:        req.SummaryID,
		ProcessingStatus: models.StatusProcessing,
		AnalysisStatus:   models.StatusProcessing,
		AudioStatus:      models.StatusPending,
	}
	if err := p.deps.Analyses.Insert(ctx, rec); err != nil {
		if !errors.Is(err, repositories.ErrDuplicate) {
			return nil, false, fmt.Errorf("insert analysis: %w", err)
		}
		// 동시에 들어온 다른 요청이 먼저 생성했다.
		winner, ferr := p.deps.Analyses.FindByURL(ctx, url)
		if ferr != nil {
			return nil, false, fmt.Errorf("reload analysis after conflict: %w", ferr)
		}
		return winner, false, nil
	}
	config.InfoWithFields("analysis created", config.Fields{"analysis_id": rec.ID, "video_id": videoID})

	p.fillMetadata(ctx, rec)
	return rec, true, nil
}

func (p *AnalysisPipeline) reclaim(ctx context.Context, existing *models.Analysis, req Request) (*models.Analysis, bool, error) {
	switch existing.AnalysisStatus {
	case models.StatusProcessing:
		return existing, false, nil
	case models.StatusCompleted:
		if !req.Force {
			return existing, false, nil
		}
	}

	extra := map[string]any{
		models.FieldProcessingStatus: models.StatusProcessing,
		models.FieldAnalysisError:    "",
	}
	if req.SummaryID != "" {
		extra[models.FieldSummaryID] = req.SummaryID
	}
	won, err := p.deps.Analyses.TransitionStatus(ctx, existing.ID, models.FieldAnalysisStatus,
		[]models.Status{existing.AnalysisStatus}, models.StatusProcessing, extra)
	if err != nil {
		return nil, false, fmt.Errorf("claim analysis %s: %w", existing.ID, err)
	}
	if !won {
		current, err := p.deps.Analyses.FindByID(ctx, existing.ID)
		if err != nil {
			return nil, false, fmt.Errorf("reload analysis %s: %w", existing.ID, err)
		}
		return current, false, nil
	}

	existing.AnalysisStatus = models.StatusProcessing
	existing.ProcessingStatus = models.StatusProcessing
	existing.AnalysisError = ""
	if existing.Title == "" {
		p.fillMetadata(ctx, existing)
	}
	return existing, true, nil
}

// fillMetadata stores title and thumbnail. Failures are logged only.
func (p *AnalysisPipeline) fillMetadata(ctx context.Context, rec *models.Analysis) {
	if p.deps.Metadata == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()
	md, err := p.deps.Metadata.FetchMetadata(ctx, rec.VideoID)
	if err != nil {
		config.WarnWithFields("metadata fetch failed", config.Fields{"video_id": rec.VideoID, "error": err.Error()})
		return
	}
	fields := map[string]any{}
	if md.Title != "" {
		fields[models.FieldTitle] = md.Title
		rec.Title = md.Title
	}
	if md.ThumbnailURL != "" {
		fields[models.FieldThumbnailURL] = md.ThumbnailURL
		rec.ThumbnailURL = md.ThumbnailURL
	}
	if len(fields) == 0 {
		return
	}
	if err := p.deps.Analyses.UpdateFields(ctx, rec.ID, fields); err != nil {
		config.WarnWithFields("metadata update failed", config.Fields{"analysis_id": rec.ID, "error": err.Error()})
	}
}

func (p *AnalysisPipeline) run(ctx context.Context, rec *models.Analysis) (Outcome, error) {
	// 1. 자막과 댓글을 병렬로 수집
	var transcript collector.TranscriptResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		transcript, err = p.deps.Collector.EnsureTranscript(gctx, rec.VideoID)
		return err
	})
	g.Go(func() error {
		_, err := p.deps.Collector.CollectComments(gctx, rec.VideoID)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", err
	}
	if !transcript.Available || transcript.Transcript == nil {
		return OutcomeNoTranscript, nil
	}
	text := transcript.Transcript.Text()

	// 2. 프롬프트 구성
	comments, err := p.deps.Comments.ListRecent(ctx, rec.VideoID, p.opts.PromptCommentLimit)
	if err != nil {
		return "", fmt.Errorf("load comments: %w", err)
	}
	total, err := p.deps.Comments.CountByVideo(ctx, rec.VideoID)
	if err != nil {
		return "", fmt.Errorf("count comments: %w", err)
	}
	community := total >= int64(p.opts.CommunityMinComments)
	prompt := buildPrompt(promptInput{
		Title:      rec.Title,
		Transcript: text,
		Comments:   comments,
		Language:   p.opts.Language,
		Community:  community,
		MaxChars:   p.opts.MaxTranscriptChars,
	})

	// 3. 쿼터
	if p.deps.Quota != nil {
		if err := p.deps.Quota.Reserve(ctx); err != nil {
			return "", fmt.Errorf("quota: %w", err)
		}
	}

	// 4. 생성 + 검증
	gen, err := p.generate(ctx, rec.ID, prompt, community)
	if err != nil {
		return "", err
	}
	gen.output.normalize()

	// 5. 저장
	now := p.opts.Now()
	fields := map[string]any{
		models.FieldSummary:               gen.output.Summary,
		models.FieldContentQuality:        gen.output.ContentQuality,
		models.FieldSentiment:             gen.output.Sentiment,
		models.FieldCommunity:             gen.output.Community,
		models.FieldAgeGroups:             gen.output.AgeGroups,
		models.FieldEmotions:              gen.output.Emotions,
		models.FieldInsights:              gen.output.Insights,
		models.FieldTranscript:            text,
		models.FieldTotalCommentsAnalyzed: len(comments),
		models.FieldAnalysisModel:         gen.providerID,
		models.FieldAnalyzedAt:            now,
		models.FieldAnalysisError:         "",
		models.FieldAnalysisStatus:        models.StatusCompleted,
		models.FieldProcessingStatus:      models.StatusCompleted,
		// 새 요약이 저장되면 이전 오디오는 무효다. 진행 중인 오디오 작업은 CAS 에서 진다.
		models.FieldAudioStatus:      models.StatusPending,
		models.FieldAudioStoragePath: "",
		models.FieldAudioError:       "",
	}
	if err := p.deps.Analyses.UpdateFields(ctx, rec.ID, fields); err != nil {
		return "", fmt.Errorf("persist analysis: %w", err)
	}
	return OutcomeCompleted, nil
}

type generation struct {
	output     *analysisOutput
	providerID string
}

func (p *AnalysisPipeline) generate(ctx context.Context, analysisID, prompt string, community bool) (*generation, error) {
	s := AnalysisSchema(community)
	req := llm.Request{
		System:      systemInstruction,
		Prompt:      prompt,
		Schema:      s.JSONSchema(),
		SchemaName:  "video_analysis",
		Temperature: p.opts.Temperature,
	}

	providers := p.deps.Registry.Providers()
	strategies := make([]fallback.Strategy[*analysisOutput], 0, len(providers))
	for _, prov := range providers {
		strategies = append(strategies, p.strategy(prov, analysisID, req, s, community))
	}

	res, err := fallback.Run(ctx, strategies, fallback.Options{
		MaxRetries:     p.opts.MaxRetries,
		AttemptTimeout: p.opts.AttemptTimeout,
		ShouldFailover: llm.ShouldFailover,
		Label:          "analysis",
	})
	if err != nil {
		return nil, err
	}
	return &generation{output: res.Value, providerID: res.StrategyID}, nil
}

// strategy wraps one provider: call, log the attempt, validate, decode.
// Only group-sum violations are accepted since normalization repairs them.
func (p *AnalysisPipeline) strategy(prov llm.Provider, analysisID string, req llm.Request, s *schema.Schema, community bool) fallback.Strategy[*analysisOutput] {
	attempt := 0
	return fallback.Func[*analysisOutput]{
		Name:      llm.ID(prov),
		IsEnabled: prov.Enabled(),
		Fn: func(ctx context.Context) (*analysisOutput, error) {
			attempt++
			started := p.opts.Now()
			resp, err := prov.GenerateStructured(ctx, req)
			p.logAttempt(ctx, analysisID, prov, attempt, req, resp, err, started)
			if err != nil {
				return nil, err
			}

			vs := schema.Validate(s, resp.Object)
			if len(vs) > 0 && !vs.Repairable() {
				return nil, vs.Err()
			}
			if len(vs) > 0 {
				config.DebugWithFields("ratio sums will be normalized", config.Fields{
					"analysis_id": analysisID, "provider": llm.ID(prov), "violations": len(vs),
				})
			}
			return decodeOutput(resp.Object, community)
		},
	}
}
