package eventbus

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryTopicNamesRoundTrip(t *testing.T) {
	topic := NewTopic("video-insight.analysis.events")
	names := topic.GetRetryTopics()
	require.Len(t, names, len(RetryDelays))

	for i, name := range names {
		assert.Equal(t, fmt.Sprintf("video-insight.analysis.events.retry.%d", i+1), name)
		d, ok := ParseRetryDelayFromTopicName(name)
		require.True(t, ok, name)
		assert.Equal(t, RetryDelays[i], d)
	}
	assert.Equal(t, "video-insight.analysis.events.dlq", topic.DLQ())
}

func TestParseRetryDelayRejectsUnknown(t *testing.T) {
	for _, name := range []string{
		"video-insight.analysis.events",
		"x.retry.",
		"x.retry.0",
		"x.retry.9",
		"x.retry.10s",
	} {
		_, ok := ParseRetryDelayFromTopicName(name)
		assert.False(t, ok, name)
	}
}

func TestGetRetryTopicBounds(t *testing.T) {
	topic := NewTopic("t")
	_, err := topic.GetRetryTopic(0)
	assert.ErrorIs(t, err, ErrMaxRetryExceeded)
	_, err = topic.GetRetryTopic(len(RetryDelays) + 1)
	assert.ErrorIs(t, err, ErrMaxRetryExceeded)

	name, err := topic.GetRetryTopic(2)
	require.NoError(t, err)
	assert.Equal(t, "t.retry.2", name)
}

func TestNextDestination(t *testing.T) {
	topic := NewTopic("t")
	boom := errors.New("boom")

	dest, next := NextDestination(topic, Event{ID: "e1", MaxRetry: 2}, boom)
	assert.Equal(t, "t.retry.1", dest)
	assert.Equal(t, 1, next.Retry)
	assert.Equal(t, "boom", next.LastError)

	dest, next = NextDestination(topic, next, boom)
	assert.Equal(t, "t.retry.2", dest)
	assert.Equal(t, 2, next.Retry)

	dest, next = NextDestination(topic, next, boom)
	assert.Equal(t, "t.dlq", dest)
	assert.Equal(t, 2, next.Retry)
}

func TestNextDestinationDefaultsMaxRetry(t *testing.T) {
	topic := NewTopic("t")
	evt := Event{ID: "e1", Retry: len(RetryDelays) - 1}
	dest, _ := NextDestination(topic, evt, errors.New("x"))
	assert.Equal(t, "t.retry.5", dest)

	evt.Retry = len(RetryDelays)
	dest, _ = NextDestination(topic, evt, errors.New("x"))
	assert.Equal(t, "t.dlq", dest)
}

type samplePayload struct {
	URL   string `json:"url"`
	Force bool   `json:"force"`
}

func TestJSONEventHelpers(t *testing.T) {
	evt, err := NewJSONEvent("", samplePayload{URL: "https://youtu.be/x", Force: true}, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, evt.ID)
	assert.Equal(t, len(RetryDelays), evt.MaxRetry)
	assert.Zero(t, evt.Retry)

	out, err := DecodeJSON[samplePayload](evt)
	require.NoError(t, err)
	assert.Equal(t, samplePayload{URL: "https://youtu.be/x", Force: true}, out)

	_, err = DecodeJSON[samplePayload](Event{Payload: []byte("{")})
	assert.Error(t, err)
}

func TestReadyIn(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Zero(t, readyIn(now.Add(-time.Minute), 30*time.Second, now))
	assert.Equal(t, 500*time.Millisecond, readyIn(now, 10*time.Second, now))
	assert.Equal(t, 50*time.Millisecond, readyIn(now, 10*time.Millisecond, now))
	assert.Equal(t, 200*time.Millisecond, readyIn(now, 200*time.Millisecond, now))
}

func TestEnvInt(t *testing.T) {
	t.Setenv("VI_TEST_INT", "")
	assert.Equal(t, 7, envInt("VI_TEST_INT", 7))
	t.Setenv("VI_TEST_INT", "42")
	assert.Equal(t, 42, envInt("VI_TEST_INT", 7))
	t.Setenv("VI_TEST_INT", "-3")
	assert.Equal(t, 7, envInt("VI_TEST_INT", 7))
}

func TestTopicSpecs(t *testing.T) {
	specs := topicSpecs(TopicAnalysisEvents, 3, 2)
	require.Len(t, specs, 2+len(RetryDelays))

	assert.Equal(t, TopicAnalysisEvents.Base(), specs[0].Topic)
	assert.Equal(t, 3, specs[0].NumPartitions)
	assert.Equal(t, TopicAnalysisEvents.DLQ(), specs[1].Topic)
	assert.Equal(t, 1, specs[1].NumPartitions)
	for i, s := range specs[2:] {
		assert.Equal(t, fmt.Sprintf("%s.retry.%d", TopicAnalysisEvents.Base(), i+1), s.Topic)
		assert.Equal(t, 3, s.NumPartitions)
		assert.Equal(t, 2, s.ReplicationFactor)
	}

	assert.Equal(t, 1, topicSpecs(NewTopic("t"), 0, 1)[0].NumPartitions)
}
