package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"video-insight/collector"
	"video-insight/llm"
	"video-insight/models"
	"video-insight/repositories"
	"video-insight/repositories/memory"
	"video-insight/tts"
	"video-insight/youtube"
)

const testVideoID = "dQw4w9WgXcQ"

var testURL = "https://www.youtube.com/watch?v=" + testVideoID

type fakeTranscriptSource struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (f *fakeTranscriptSource) FetchTranscript(_ context.Context, videoID string) (*models.Transcript, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.text == "" {
		return nil, collector.ErrNoTranscript
	}
	return &models.Transcript{
		ID:       "tr-" + videoID,
		VideoID:  videoID,
		Language: "en",
		Segments: []models.TranscriptSegment{{StartMs: 0, EndMs: 4000, Text: f.text}},
	}, nil
}

type fakeCommentSource struct {
	mu       sync.Mutex
	comments []models.Comment
	err      error
	calls    int
}

func (f *fakeCommentSource) FetchComments(_ context.Context, _ string, _ collector.Order, _ string) (*collector.CommentPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &collector.CommentPage{Items: f.comments}, nil
}

func makeComments(n int) []models.Comment {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	out := make([]models.Comment, n)
	for i := range out {
		at := base.Add(-time.Duration(i) * time.Minute)
		out[i] = models.Comment{
			CommentID:   fmt.Sprintf("c%03d", i),
			Author:      fmt.Sprintf("viewer%d", i),
			Text:        fmt.Sprintf("great explanation number %d", i),
			LikeCount:   int64(i % 7),
			PublishedAt: at,
			UpdatedAt:   at,
		}
	}
	return out
}

// fakeProvider replays scripted results; the last one repeats.
type fakeProvider struct {
	mu      sync.Mutex
	name    string
	model   string
	enabled bool
	script  []func() (*llm.Response, error)
	calls   int
	last    llm.Request
}

func newProvider(name string, script ...func() (*llm.Response, error)) *fakeProvider {
	return &fakeProvider{name: name, model: "model-" + name, enabled: true, script: script}
}

func (f *fakeProvider) Name() string  { return f.name }
func (f *fakeProvider) Model() string { return f.model }
func (f *fakeProvider) Enabled() bool { return f.enabled }

func (f *fakeProvider) GenerateStructured(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = req
	i := f.calls
	f.calls++
	if len(f.script) == 0 {
		return nil, errors.New("no scripted response")
	}
	if i >= len(f.script) {
		i = len(f.script) - 1
	}
	return f.script[i]()
}

func (f *fakeProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func respond(obj map[string]any) func() (*llm.Response, error) {
	return func() (*llm.Response, error) {
		return &llm.Response{
			Object:       obj,
			Raw:          `{"summary":"..."}`,
			Usage:        llm.TokenUsage{InputTokens: 1200, OutputTokens: 300, TotalTokens: 1500},
			ModelVersion: "v-test",
		}, nil
	}
}

func fail(msg string) func() (*llm.Response, error) {
	return func() (*llm.Response, error) { return nil, errors.New(msg) }
}

// analysisObject is a schema-valid model output. Ratio groups are given
// slightly off 100 on purpose.
func analysisObject() map[string]any {
	return map[string]any{
		"summary": "The video walks through bubble, merge and quick sort.",
		"content_quality": map[string]any{
			"educational_value":    85,
			"entertainment_value":  60,
			"information_accuracy": 90,
			"clarity":              80,
			"depth":                70,
			"overall_score":        78,
			"category":             "education",
			"target_audience":      "computer science students",
		},
		"sentiment": map[string]any{
			"positive": 60, "neutral": 30, "negative": 7,
			"overall_score": 55, "intensity": 40,
		},
		"community": map[string]any{
			"politeness": 80, "rudeness": 5, "kindness": 75, "toxicity": 3,
			"constructive": 60, "self_centered": 10, "off_topic": 15, "overall_score": 70,
		},
		"age_groups": map[string]any{
			"teens": 20, "twenties": 45, "thirties": 25, "forty_plus": 13,
		},
		"emotions": map[string]any{
			"joy": 30, "trust": 20, "fear": 2, "surprise": 10,
			"sadness": 3, "disgust": 1, "anger": 2, "anticipation": 20,
		},
		"insights": map[string]any{
			"content_summary":   "A comparison of classic sorting algorithms.",
			"audience_reaction": "Viewers appreciate the visual walkthrough.",
			"key_insights":      []any{"merge sort is stable", "quick sort is fast on average"},
			"recommendations":   []any{"add complexity charts"},
		},
	}
}

type fakeMetadata struct {
	md  youtube.Metadata
	err error
}

func (f *fakeMetadata) FetchMetadata(context.Context, string) (youtube.Metadata, error) {
	return f.md, f.err
}

type fakeQuota struct{ err error }

func (f *fakeQuota) Reserve(context.Context) error { return f.err }

// failingFailWrite rejects every transition to failed.
type failingFailWrite struct {
	*memory.Analyses
}

func (s failingFailWrite) TransitionStatus(ctx context.Context, id, field string, from []models.Status, to models.Status, extra map[string]any) (bool, error) {
	if to == models.StatusFailed {
		return false, errors.New("store unavailable")
	}
	return s.Analyses.TransitionStatus(ctx, id, field, from, to, extra)
}

// staleFindByURL hides existing records once, as if two callers looked up
// the url at the same moment.
type staleFindByURL struct {
	*memory.Analyses
	once sync.Once
}

func (s *staleFindByURL) FindByURL(ctx context.Context, url string) (*models.Analysis, error) {
	hidden := false
	s.once.Do(func() { hidden = true })
	if hidden {
		return nil, repositories.ErrNotFound
	}
	return s.Analyses.FindByURL(ctx, url)
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeStorage) Upload(_ context.Context, path string, data []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.objects[path] = data
	f.types[path] = contentType
	return nil
}

func (f *fakeStorage) SignedURL(_ context.Context, path string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://storage.example/%s?ttl=%d", path, int(ttl.Seconds())), nil
}

type fakeVendor struct {
	mu      sync.Mutex
	name    string
	enabled bool
	err     error
	calls   int
}

func (f *fakeVendor) Name() string  { return f.name }
func (f *fakeVendor) Enabled() bool { return f.enabled }

func (f *fakeVendor) Synthesize(_ context.Context, text string) (*tts.Audio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &tts.Audio{Data: []byte("audio:" + text), ContentType: "audio/mpeg", Ext: "mp3"}, nil
}

// steppingClock advances one second per call.
func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	t := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}
