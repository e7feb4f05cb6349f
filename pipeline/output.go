package pipeline

import (
	"encoding/json"
	"fmt"

	"video-insight/models"
	"video-insight/ratio"
)

// analysisOutput mirrors the schema returned by AnalysisSchema.
type analysisOutput struct {
	Summary        string                 `json:"summary"`
	ContentQuality *models.ContentQuality `json:"content_quality"`
	Sentiment      *models.Sentiment      `json:"sentiment"`
	Community      *models.Community      `json:"community"`
	AgeGroups      *models.AgeGroups      `json:"age_groups"`
	Emotions       *models.Emotions       `json:"emotions"`
	Insights       *models.Insights       `json:"insights"`
}

func decodeOutput(obj map[string]any, community bool) (*analysisOutput, error) {
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	var out analysisOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode analysis output: %w", err)
	}
	if !community {
		out.Community = nil
		out.AgeGroups = nil
		out.Emotions = nil
	}
	return &out, nil
}

// normalize forces every ratio group to sum to 100. Groups are independent.
func (o *analysisOutput) normalize() {
	if s := o.Sentiment; s != nil {
		ratio.Apply(&s.Positive, &s.Neutral, &s.Negative)
	}
	if a := o.AgeGroups; a != nil {
		ratio.Apply(&a.Teens, &a.Twenties, &a.Thirties, &a.FortyPlus)
	}
	if e := o.Emotions; e != nil {
		ratio.Apply(&e.Joy, &e.Trust, &e.Fear, &e.Surprise, &e.Sadness, &e.Disgust, &e.Anger, &e.Anticipation)
	}
}
