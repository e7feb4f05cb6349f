package models

import (
	"strings"
	"time"
)

// Transcript is collected once per video and never rewritten.
// Collection: transcripts (unique video_id)
type Transcript struct {
	ID        string              `bson:"_id" json:"id"`
	VideoID   string              `bson:"video_id" json:"video_id"`
	Language  string              `bson:"language" json:"language"`
	Segments  []TranscriptSegment `bson:"segments" json:"segments"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
}

type TranscriptSegment struct {
	StartMs int64  `bson:"start_ms" json:"start_ms"`
	EndMs   int64  `bson:"end_ms" json:"end_ms"`
	Text    string `bson:"text" json:"text"`
}

// Text joins segment texts with single spaces.
func (t *Transcript) Text() string {
	if t == nil {
		return ""
	}
	parts := make([]string, 0, len(t.Segments))
	for _, s := range t.Segments {
		if txt := strings.TrimSpace(s.Text); txt != "" {
			parts = append(parts, txt)
		}
	}
	return strings.Join(parts, " ")
}
