package models

import "time"

// Comment is a platform comment. Rows are append-only.
// Collection: comments (unique comment_id)
type Comment struct {
	CommentID   string         `bson:"comment_id" json:"comment_id"`
	VideoID     string         `bson:"video_id" json:"video_id"`
	Author      string         `bson:"author" json:"author"`
	Text        string         `bson:"text" json:"text"`
	LikeCount   int64          `bson:"like_count" json:"like_count"`
	PublishedAt time.Time      `bson:"published_at" json:"published_at"`
	UpdatedAt   time.Time      `bson:"updated_at" json:"updated_at"`
	CollectedAt time.Time      `bson:"collected_at" json:"collected_at"`
	Raw         map[string]any `bson:"raw,omitempty" json:"raw,omitempty"`
}
