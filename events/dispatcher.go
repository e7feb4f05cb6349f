package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"video-insight/eventbus"
)

// Dispatcher 분석/음성 요청 이벤트 발행 서비스
type Dispatcher struct {
	bus    eventbus.Publisher
	topic  eventbus.Topic
	source string
	now    func() time.Time
}

// NewDispatcher source 는 발행 주체 이름(api, processor 등)이다.
func NewDispatcher(bus eventbus.Publisher, source string) *Dispatcher {
	return &Dispatcher{
		bus:    bus,
		topic:  eventbus.TopicAnalysisEvents,
		source: source,
		now:    time.Now,
	}
}

func (d *Dispatcher) base(t EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      t,
		Timestamp: d.now(),
		Source:    d.source,
		Version:   schemaVersion,
	}
}

// PublishAnalysisRequested 분석 요청 이벤트 발행. 발행된 이벤트 ID를 반환한다.
func (d *Dispatcher) PublishAnalysisRequested(ctx context.Context, url, videoID, summaryID string, force bool) (string, error) {
	e := AnalysisRequestedEvent{
		BaseEvent: d.base(AnalysisRequested),
		URL:       url,
		VideoID:   videoID,
		SummaryID: summaryID,
		Force:     force,
	}
	return e.ID, d.publish(ctx, e.ID, e)
}

// PublishAudioRequested 음성 생성 요청 이벤트 발행
func (d *Dispatcher) PublishAudioRequested(ctx context.Context, analysisID string, force bool) (string, error) {
	e := AudioRequestedEvent{
		BaseEvent:  d.base(AudioRequested),
		AnalysisID: analysisID,
		Force:      force,
	}
	return e.ID, d.publish(ctx, e.ID, e)
}

func (d *Dispatcher) publish(ctx context.Context, id string, payload any) error {
	evt, err := eventbus.NewJSONEvent(id, payload, 0)
	if err != nil {
		return fmt.Errorf("failed to build event: %w", err)
	}
	if err := d.bus.Publish(ctx, d.topic.Base(), evt); err != nil {
		return fmt.Errorf("failed to publish %s: %w", id, err)
	}
	return nil
}
