package handler

import (
	"context"
	"errors"

	"video-insight/config"
	"video-insight/eventbus"
	"video-insight/events"
	"video-insight/models"
	"video-insight/pipeline"
)

type Analyzer interface {
	Analyze(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

type AudioGenerator interface {
	Generate(ctx context.Context, analysisID string, force bool) (*models.Analysis, error)
}

type AudioPublisher interface {
	PublishAudioRequested(ctx context.Context, analysisID string, force bool) (string, error)
}

type EventHandlers struct {
	analysis  Analyzer
	audio     AudioGenerator
	publisher AudioPublisher
	autoAudio bool
}

// NewEventHandlers autoAudio 가 true 면 분석 완료 후 음성 생성 이벤트를 이어서 발행한다.
func NewEventHandlers(analysis Analyzer, audio AudioGenerator, publisher AudioPublisher, autoAudio bool) *EventHandlers {
	return &EventHandlers{
		analysis:  analysis,
		audio:     audio,
		publisher: publisher,
		autoAudio: autoAudio,
	}
}

// Handle 은 페이로드의 type 필드로 분기한다.
// nil 을 반환하면 오프셋이 커밋되고, 에러를 반환하면 재시도 토픽으로 보내진다.
func (h *EventHandlers) Handle(ctx context.Context, ev eventbus.Event) error {
	typ, err := events.PeekType(ev.Payload)
	if err != nil {
		// 재시도해도 결과가 같으므로 커밋한다.
		config.ErrorWithFields("undecodable event skipped", config.Fields{"event_id": ev.ID, "error": err.Error()})
		return nil
	}

	switch typ {
	case events.AnalysisRequested:
		v, err := eventbus.DecodeJSON[events.AnalysisRequestedEvent](ev)
		if err != nil {
			return err
		}
		return h.HandleAnalysisRequested(ctx, &v)
	case events.AudioRequested:
		v, err := eventbus.DecodeJSON[events.AudioRequestedEvent](ev)
		if err != nil {
			return err
		}
		return h.HandleAudioRequested(ctx, &v)
	default:
		// 알 수 없는 타입 또는 다른 서비스용 이벤트는 무시 (커밋)
		return nil
	}
}

func (h *EventHandlers) HandleAnalysisRequested(ctx context.Context, event *events.AnalysisRequestedEvent) error {
	fields := config.Fields{"event_id": event.ID, "url": event.URL, "video_id": event.VideoID, "force": event.Force}
	config.InfoWithFields("handling analysis.requested", fields)

	res, err := h.analysis.Analyze(ctx, pipeline.Request{
		URL:       event.URL,
		VideoID:   event.VideoID,
		SummaryID: event.SummaryID,
		Force:     event.Force,
	})
	if err != nil {
		var runErr *pipeline.RunError
		if errors.As(err, &runErr) {
			// 레코드가 이미 failed 로 기록되었으므로 재시도하지 않는다.
			fields["analysis_id"] = runErr.AnalysisID
			fields["error"] = err.Error()
			config.WarnWithFields("analysis run failed", fields)
			return nil
		}
		return err
	}

	fields["analysis_id"] = res.Record.ID
	fields["outcome"] = string(res.Outcome)
	config.InfoWithFields("analysis handled", fields)

	if h.autoAudio && res.Outcome == pipeline.OutcomeCompleted && h.publisher != nil {
		if _, err := h.publisher.PublishAudioRequested(ctx, res.Record.ID, false); err != nil {
			// 재시도 시 already_completed 가 되므로 분석은 다시 돌지 않는다.
			return err
		}
	}
	return nil
}

func (h *EventHandlers) HandleAudioRequested(ctx context.Context, event *events.AudioRequestedEvent) error {
	fields := config.Fields{"event_id": event.ID, "analysis_id": event.AnalysisID, "force": event.Force}
	config.InfoWithFields("handling audio.requested", fields)

	rec, err := h.audio.Generate(ctx, event.AnalysisID, event.Force)
	var runErr *pipeline.RunError
	switch {
	case err == nil:
		fields["audio_status"] = string(rec.AudioStatus)
		config.InfoWithFields("audio handled", fields)
		return nil
	case errors.As(err, &runErr):
		fields["error"] = err.Error()
		config.WarnWithFields("audio run failed", fields)
		return nil
	case errors.Is(err, pipeline.ErrNotFound), errors.Is(err, pipeline.ErrNotReady):
		fields["error"] = err.Error()
		config.WarnWithFields("audio request dropped", fields)
		return nil
	default:
		return err
	}
}
