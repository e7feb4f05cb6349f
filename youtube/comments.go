package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"
	yt "google.golang.org/api/youtube/v3"

	"video-insight/collector"
	"video-insight/models"
)

// CommentClient pages comment threads through the Data API.
type CommentClient struct {
	svc      *yt.Service
	pageSize int64
}

func NewCommentClient(svc *yt.Service, pageSize int64) *CommentClient {
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}
	return &CommentClient{svc: svc, pageSize: pageSize}
}

func (c *CommentClient) FetchComments(ctx context.Context, videoID string, order collector.Order, pageToken string) (*collector.CommentPage, error) {
	if order == "" {
		order = collector.OrderTime
	}
	call := c.svc.CommentThreads.List([]string{"snippet"}).
		VideoId(videoID).
		Order(string(order)).
		MaxResults(c.pageSize).
		TextFormat("plainText")
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		if commentsDisabled(err) {
			return &collector.CommentPage{}, nil
		}
		return nil, err
	}

	page := &collector.CommentPage{NextPageToken: resp.NextPageToken}
	for _, th := range resp.Items {
		if c := toComment(videoID, th); c != nil {
			page.Items = append(page.Items, *c)
		}
	}
	return page, nil
}

// commentsDisabled matches the 403 the Data API returns for videos with
// comments turned off. Those videos simply have no comments.
func commentsDisabled(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Code != http.StatusForbidden {
		return false
	}
	for _, item := range gerr.Errors {
		if item.Reason == "commentsDisabled" {
			return true
		}
	}
	return false
}

func toComment(videoID string, th *yt.CommentThread) *models.Comment {
	if th == nil || th.Snippet == nil || th.Snippet.TopLevelComment == nil {
		return nil
	}
	top := th.Snippet.TopLevelComment
	if top.Snippet == nil {
		return nil
	}
	s := top.Snippet

	text := s.TextOriginal
	if text == "" {
		text = s.TextDisplay
	}
	c := &models.Comment{
		CommentID:   top.Id,
		VideoID:     videoID,
		Author:      s.AuthorDisplayName,
		Text:        text,
		LikeCount:   s.LikeCount,
		PublishedAt: parseTime(s.PublishedAt),
		UpdatedAt:   parseTime(s.UpdatedAt),
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.PublishedAt
	}
	if raw, err := th.MarshalJSON(); err == nil {
		var m map[string]any
		if json.Unmarshal(raw, &m) == nil {
			c.Raw = m
		}
	}
	return c
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// NoCommentSource stands in when no Data API key is configured. Every video
// looks like it has no comments.
type NoCommentSource struct{}

func (NoCommentSource) FetchComments(context.Context, string, collector.Order, string) (*collector.CommentPage, error) {
	return &collector.CommentPage{}, nil
}
