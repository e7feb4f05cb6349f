package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-insight/eventbus"
	"video-insight/events"
	"video-insight/models"
	"video-insight/pipeline"
)

type fakeAnalyzer struct {
	res  *pipeline.Result
	err  error
	reqs []pipeline.Request
}

func (f *fakeAnalyzer) Analyze(_ context.Context, req pipeline.Request) (*pipeline.Result, error) {
	f.reqs = append(f.reqs, req)
	return f.res, f.err
}

type fakeAudio struct {
	rec   *models.Analysis
	err   error
	calls []string
}

func (f *fakeAudio) Generate(_ context.Context, id string, _ bool) (*models.Analysis, error) {
	f.calls = append(f.calls, id)
	return f.rec, f.err
}

type fakePublisher struct {
	ids []string
	err error
}

func (f *fakePublisher) PublishAudioRequested(_ context.Context, id string, _ bool) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.ids = append(f.ids, id)
	return "evt", nil
}

func jsonEvent(t *testing.T, payload any) eventbus.Event {
	t.Helper()
	evt, err := eventbus.NewJSONEvent("", payload, 0)
	require.NoError(t, err)
	return evt
}

func analysisEvent(t *testing.T) eventbus.Event {
	return jsonEvent(t, events.AnalysisRequestedEvent{
		BaseEvent: events.BaseEvent{ID: "e1", Type: events.AnalysisRequested},
		URL:       "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		SummaryID: "s1",
		Force:     true,
	})
}

func completedResult() *pipeline.Result {
	return &pipeline.Result{
		Record:  &models.Analysis{ID: "a1", AnalysisStatus: models.StatusCompleted},
		Outcome: pipeline.OutcomeCompleted,
	}
}

func TestAnalysisEventRunsPipeline(t *testing.T) {
	an := &fakeAnalyzer{res: completedResult()}
	pub := &fakePublisher{}
	h := NewEventHandlers(an, &fakeAudio{}, pub, false)

	require.NoError(t, h.Handle(context.Background(), analysisEvent(t)))
	require.Len(t, an.reqs, 1)
	assert.Equal(t, pipeline.Request{
		URL:       "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		SummaryID: "s1",
		Force:     true,
	}, an.reqs[0])
	assert.Empty(t, pub.ids)
}

func TestAutoAudioPublishesAfterCompletion(t *testing.T) {
	pub := &fakePublisher{}
	h := NewEventHandlers(&fakeAnalyzer{res: completedResult()}, &fakeAudio{}, pub, true)

	require.NoError(t, h.Handle(context.Background(), analysisEvent(t)))
	assert.Equal(t, []string{"a1"}, pub.ids)
}

func TestAutoAudioSkipsOtherOutcomes(t *testing.T) {
	res := completedResult()
	res.Outcome = pipeline.OutcomeAlreadyCompleted
	pub := &fakePublisher{}
	h := NewEventHandlers(&fakeAnalyzer{res: res}, &fakeAudio{}, pub, true)

	require.NoError(t, h.Handle(context.Background(), analysisEvent(t)))
	assert.Empty(t, pub.ids)
}

func TestAutoAudioPublishFailureIsRetried(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	h := NewEventHandlers(&fakeAnalyzer{res: completedResult()}, &fakeAudio{}, pub, true)

	assert.Error(t, h.Handle(context.Background(), analysisEvent(t)))
}

func TestRunErrorIsCommitted(t *testing.T) {
	an := &fakeAnalyzer{err: &pipeline.RunError{AnalysisID: "a1", Stage: pipeline.StageAnalysis, Err: errors.New("all providers failed")}}
	h := NewEventHandlers(an, &fakeAudio{}, nil, false)

	assert.NoError(t, h.Handle(context.Background(), analysisEvent(t)))
}

func TestPreClaimErrorIsRetried(t *testing.T) {
	an := &fakeAnalyzer{err: errors.New("store unavailable")}
	h := NewEventHandlers(an, &fakeAudio{}, nil, false)

	assert.Error(t, h.Handle(context.Background(), analysisEvent(t)))
}

func TestAudioEvent(t *testing.T) {
	audioEvt := jsonEvent(t, events.AudioRequestedEvent{
		BaseEvent:  events.BaseEvent{ID: "e2", Type: events.AudioRequested},
		AnalysisID: "a1",
	})

	au := &fakeAudio{rec: &models.Analysis{ID: "a1", AudioStatus: models.StatusCompleted}}
	h := NewEventHandlers(&fakeAnalyzer{}, au, nil, false)
	require.NoError(t, h.Handle(context.Background(), audioEvt))
	assert.Equal(t, []string{"a1"}, au.calls)

	for _, err := range []error{
		&pipeline.RunError{AnalysisID: "a1", Stage: pipeline.StageAudio, Err: errors.New("tts down")},
		pipeline.ErrNotFound,
		pipeline.ErrNotReady,
	} {
		h := NewEventHandlers(&fakeAnalyzer{}, &fakeAudio{err: err}, nil, false)
		assert.NoError(t, h.Handle(context.Background(), audioEvt), err.Error())
	}

	h = NewEventHandlers(&fakeAnalyzer{}, &fakeAudio{err: errors.New("claim failed")}, nil, false)
	assert.Error(t, h.Handle(context.Background(), audioEvt))
}

func TestUnknownAndBrokenEventsAreCommitted(t *testing.T) {
	an := &fakeAnalyzer{}
	h := NewEventHandlers(an, &fakeAudio{}, nil, false)

	other := jsonEvent(t, events.BaseEvent{ID: "x", Type: "newsletter.sent"})
	assert.NoError(t, h.Handle(context.Background(), other))
	assert.NoError(t, h.Handle(context.Background(), eventbus.Event{ID: "y", Payload: []byte("{")}))
	assert.Empty(t, an.reqs)
}
