// Package collector makes sure a video's transcript and comments are stored
// before analysis, calling the external sources only when needed.
package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"video-insight/config"
	"video-insight/models"
	"video-insight/repositories"
)

// ErrNoTranscript is returned by a TranscriptSource when the video has no captions.
var ErrNoTranscript = errors.New("no transcript available")

type Order string

const (
	OrderTime      Order = "time"
	OrderRelevance Order = "relevance"
)

type TranscriptStore interface {
	FindByVideoID(ctx context.Context, videoID string) (*models.Transcript, error)
	InsertIfAbsent(ctx context.Context, t *models.Transcript) (bool, error)
}

type CommentStore interface {
	RecentIDs(ctx context.Context, videoID string, n int) ([]string, error)
	InsertMany(ctx context.Context, comments []models.Comment) (int, error)
}

type TranscriptSource interface {
	FetchTranscript(ctx context.Context, videoID string) (*models.Transcript, error)
}

type CommentSource interface {
	FetchComments(ctx context.Context, videoID string, order Order, pageToken string) (*CommentPage, error)
}

// CommentPage is one page from the comment source, newest first when ordered by time.
type CommentPage struct {
	Items         []models.Comment
	NextPageToken string
}

type Options struct {
	MaxComments   int
	RecentIDCount int
	Timeout       time.Duration
}

type TranscriptResult struct {
	Transcript *models.Transcript
	// Available is false when the source has no captions for the video.
	Available bool
	// Fetched is true when the source was called during this run.
	Fetched bool
}

type CommentStats struct {
	Collected          int  `json:"collected"`
	Batches            int  `json:"batches"`
	StoppedByDuplicate bool `json:"stopped_by_duplicate"`
}

const (
	StageTranscript      = "transcript"
	StageTranscriptStore = "transcript_store"
	StageComments        = "comments"
	StageCommentStore    = "comment_store"
)

// CollectionError is a source or store failure. It is fatal to an analysis run.
type CollectionError struct {
	Stage   string
	VideoID string
	Err     error
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("collection failed at %s for video %s: %v", e.Stage, e.VideoID, e.Err)
}

func (e *CollectionError) Unwrap() error { return e.Err }

type Coordinator struct {
	transcripts      TranscriptStore
	comments         CommentStore
	transcriptSource TranscriptSource
	commentSource    CommentSource
	opts             Options
}

func NewCoordinator(ts TranscriptStore, cs CommentStore, tsrc TranscriptSource, csrc CommentSource, opts Options) *Coordinator {
	if opts.MaxComments <= 0 {
		opts.MaxComments = 500
	}
	if opts.RecentIDCount <= 0 {
		opts.RecentIDCount = 3
	}
	return &Coordinator{
		transcripts:      ts,
		comments:         cs,
		transcriptSource: tsrc,
		commentSource:    csrc,
		opts:             opts,
	}
}

func (c *Coordinator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.Timeout > 0 {
		return context.WithTimeout(ctx, c.opts.Timeout)
	}
	return context.WithCancel(ctx)
}

// EnsureTranscript returns the stored transcript, fetching and storing it
// once if absent. A video without captions is not an error.
func (c *Coordinator) EnsureTranscript(ctx context.Context, videoID string) (TranscriptResult, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	stored, err := c.transcripts.FindByVideoID(ctx, videoID)
	if err == nil {
		return TranscriptResult{Transcript: stored, Available: true}, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return TranscriptResult{}, &CollectionError{Stage: StageTranscriptStore, VideoID: videoID, Err: err}
	}

	fetched, err := c.transcriptSource.FetchTranscript(ctx, videoID)
	if errors.Is(err, ErrNoTranscript) {
		config.Logger.Infof("no transcript for video %s", videoID)
		return TranscriptResult{Fetched: true}, nil
	}
	if err != nil {
		return TranscriptResult{}, &CollectionError{Stage: StageTranscript, VideoID: videoID, Err: err}
	}
	if fetched == nil || len(fetched.Segments) == 0 {
		config.Logger.Infof("empty transcript for video %s", videoID)
		return TranscriptResult{Fetched: true}, nil
	}
	fetched.VideoID = videoID

	inserted, err := c.transcripts.InsertIfAbsent(ctx, fetched)
	if err != nil {
		return TranscriptResult{}, &CollectionError{Stage: StageTranscriptStore, VideoID: videoID, Err: err}
	}
	if !inserted {
		// another run stored it first; theirs is the canonical copy
		winner, err := c.transcripts.FindByVideoID(ctx, videoID)
		if err != nil {
			return TranscriptResult{}, &CollectionError{Stage: StageTranscriptStore, VideoID: videoID, Err: err}
		}
		return TranscriptResult{Transcript: winner, Available: true, Fetched: true}, nil
	}

	config.Logger.Infof("transcript stored for video %s (%d segments)", videoID, len(fetched.Segments))
	return TranscriptResult{Transcript: fetched, Available: true, Fetched: true}, nil
}

// CollectComments pages newest-first and stops at the first page that
// contains an already-stored recent id. That page is not inserted.
func (c *Coordinator) CollectComments(ctx context.Context, videoID string) (CommentStats, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var stats CommentStats

	recent, err := c.comments.RecentIDs(ctx, videoID, c.opts.RecentIDCount)
	if err != nil {
		return stats, &CollectionError{Stage: StageCommentStore, VideoID: videoID, Err: err}
	}
	recentSet := make(map[string]struct{}, len(recent))
	for _, id := range recent {
		recentSet[id] = struct{}{}
	}

	seen := make(map[string]struct{})
	taken := 0
	token := ""
	for taken < c.opts.MaxComments {
		page, err := c.commentSource.FetchComments(ctx, videoID, OrderTime, token)
		if err != nil {
			return stats, &CollectionError{Stage: StageComments, VideoID: videoID, Err: err}
		}
		stats.Batches++
		if page == nil {
			break
		}

		if intersects(page.Items, recentSet) {
			stats.StoppedByDuplicate = true
			break
		}

		batch := make([]models.Comment, 0, len(page.Items))
		for _, item := range page.Items {
			if taken+len(batch) >= c.opts.MaxComments {
				break
			}
			if item.CommentID == "" {
				continue
			}
			if _, dup := seen[item.CommentID]; dup {
				continue
			}
			seen[item.CommentID] = struct{}{}
			item.VideoID = videoID
			batch = append(batch, item)
		}
		taken += len(batch)

		if len(batch) > 0 {
			n, err := c.comments.InsertMany(ctx, batch)
			if err != nil {
				return stats, &CollectionError{Stage: StageCommentStore, VideoID: videoID, Err: err}
			}
			stats.Collected += n
		}

		// A source that keeps handing out tokens without new items would
		// otherwise spin until the collection deadline.
		if page.NextPageToken == "" || page.NextPageToken == token || len(batch) == 0 {
			break
		}
		token = page.NextPageToken
	}

	config.Logger.Infof("comments collected for video %s: collected=%d batches=%d stopped_by_duplicate=%t",
		videoID, stats.Collected, stats.Batches, stats.StoppedByDuplicate)
	return stats, nil
}

func intersects(items []models.Comment, set map[string]struct{}) bool {
	if len(set) == 0 {
		return false
	}
	for _, it := range items {
		if _, ok := set[it.CommentID]; ok {
			return true
		}
	}
	return false
}
