// Package memory is an in-process record store with the same contracts as
// the Mongo and Postgres repositories. Selected with store.backend=memory.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"video-insight/models"
	"video-insight/repositories"
)

type Store struct {
	mu          sync.Mutex
	analyses    map[string]models.Analysis
	byURL       map[string]string
	transcripts map[string]models.Transcript
	comments    map[string]models.Comment
	aiLogs      []models.AILog

	now func() time.Time
}

func New() *Store {
	return &Store{
		analyses:    map[string]models.Analysis{},
		byURL:       map[string]string{},
		transcripts: map[string]models.Transcript{},
		comments:    map[string]models.Comment{},
		now:         time.Now,
	}
}

// SetClock overrides the time source used for updated_at.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Analyses returns the analysis repository view of the store.
func (s *Store) Analyses() *Analyses       { return &Analyses{s} }
func (s *Store) Transcripts() *Transcripts { return &Transcripts{s} }
func (s *Store) Comments() *Comments       { return &Comments{s} }
func (s *Store) AILogs() *AILogs           { return &AILogs{s} }

type Analyses struct{ s *Store }

func (r *Analyses) FindByID(_ context.Context, id string) (*models.Analysis, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.analyses[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &a, nil
}

func (r *Analyses) FindByURL(ctx context.Context, url string) (*models.Analysis, error) {
	r.s.mu.Lock()
	id, ok := r.s.byURL[url]
	r.s.mu.Unlock()
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *Analyses) Insert(_ context.Context, a *models.Analysis) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.byURL[a.URL]; ok {
		return repositories.ErrDuplicate
	}
	if _, ok := r.s.analyses[a.ID]; ok {
		return repositories.ErrDuplicate
	}
	now := r.s.now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	r.s.analyses[a.ID] = *a
	r.s.byURL[a.URL] = a.ID
	return nil
}

func (r *Analyses) UpdateFields(_ context.Context, id string, fields map[string]any) error {
	if err := repositories.CheckFields(fields); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.analyses[id]
	if !ok {
		return repositories.ErrNotFound
	}
	updated, err := apply(a, fields, r.s.now())
	if err != nil {
		return err
	}
	r.s.analyses[id] = updated
	return nil
}

func (r *Analyses) TransitionStatus(_ context.Context, id, field string, from []models.Status, to models.Status, extra map[string]any) (bool, error) {
	if err := repositories.CheckStatusField(field); err != nil {
		return false, err
	}
	if err := repositories.CheckFields(extra); err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.analyses[id]
	if !ok {
		return false, nil
	}
	current := statusOf(a, field)
	matched := false
	for _, f := range from {
		if f == current {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	fields := map[string]any{field: to}
	for k, v := range extra {
		fields[k] = v
	}
	updated, err := apply(a, fields, r.s.now())
	if err != nil {
		return false, err
	}
	r.s.analyses[id] = updated
	return true, nil
}

func (r *Analyses) ListStale(_ context.Context, field string, before time.Time, limit int) ([]models.Analysis, error) {
	if err := repositories.CheckStatusField(field); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Analysis
	for _, a := range r.s.analyses {
		if statusOf(a, field) == models.StatusProcessing && a.UpdatedAt.Before(before) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Backdate sets updated_at directly. Used to simulate stuck runs.
func (r *Analyses) Backdate(id string, at time.Time) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a, ok := r.s.analyses[id]; ok {
		a.UpdatedAt = at
		r.s.analyses[id] = a
	}
}

func statusOf(a models.Analysis, field string) models.Status {
	switch field {
	case models.FieldProcessingStatus:
		return a.ProcessingStatus
	case models.FieldAnalysisStatus:
		return a.AnalysisStatus
	case models.FieldAudioStatus:
		return a.AudioStatus
	}
	return ""
}

// apply round-trips through bson so partial updates follow the same field
// names and encodings the Mongo store uses.
func apply(a models.Analysis, fields map[string]any, now time.Time) (models.Analysis, error) {
	raw, err := bson.Marshal(a)
	if err != nil {
		return a, err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return a, err
	}
	for k, v := range fields {
		doc[k] = v
	}
	doc["updated_at"] = now
	raw, err = bson.Marshal(doc)
	if err != nil {
		return a, err
	}
	var out models.Analysis
	if err := bson.Unmarshal(raw, &out); err != nil {
		return a, err
	}
	return out, nil
}

type Transcripts struct{ s *Store }

func (r *Transcripts) FindByVideoID(_ context.Context, videoID string) (*models.Transcript, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.transcripts[videoID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &t, nil
}

func (r *Transcripts) InsertIfAbsent(_ context.Context, t *models.Transcript) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.transcripts[t.VideoID]; ok {
		return false, nil
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = r.s.now()
	}
	r.s.transcripts[t.VideoID] = *t
	return true, nil
}

type Comments struct{ s *Store }

func (r *Comments) RecentIDs(_ context.Context, videoID string, n int) ([]string, error) {
	list := r.byVideo(videoID, func(a, b models.Comment) bool { return a.UpdatedAt.After(b.UpdatedAt) })
	ids := make([]string, 0, n)
	for i := 0; i < len(list) && i < n; i++ {
		ids = append(ids, list[i].CommentID)
	}
	return ids, nil
}

func (r *Comments) InsertMany(_ context.Context, comments []models.Comment) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, c := range comments {
		if _, ok := r.s.comments[c.CommentID]; ok {
			continue
		}
		if c.CollectedAt.IsZero() {
			c.CollectedAt = r.s.now()
		}
		r.s.comments[c.CommentID] = c
		n++
	}
	return n, nil
}

func (r *Comments) ListRecent(_ context.Context, videoID string, limit int) ([]models.Comment, error) {
	list := r.byVideo(videoID, func(a, b models.Comment) bool { return a.PublishedAt.After(b.PublishedAt) })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (r *Comments) CountByVideo(_ context.Context, videoID string) (int64, error) {
	return int64(len(r.byVideo(videoID, nil))), nil
}

func (r *Comments) byVideo(videoID string, less func(a, b models.Comment) bool) []models.Comment {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Comment
	for _, c := range r.s.comments {
		if c.VideoID == videoID {
			out = append(out, c)
		}
	}
	if less != nil {
		sort.SliceStable(out, func(i, j int) bool {
			if less(out[i], out[j]) {
				return true
			}
			if less(out[j], out[i]) {
				return false
			}
			return out[i].CommentID > out[j].CommentID
		})
	}
	return out
}

type AILogs struct{ s *Store }

func (r *AILogs) Insert(_ context.Context, l *models.AILog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	r.s.aiLogs = append(r.s.aiLogs, *l)
	return nil
}

// All returns a copy of the stored logs.
func (r *AILogs) All() []models.AILog {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]models.AILog(nil), r.s.aiLogs...)
}
