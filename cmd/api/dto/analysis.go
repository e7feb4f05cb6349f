package dto

import (
	"time"

	"video-insight/models"
)

// SubmitAnalysisRequest 는 POST /analyses 요청 바디다.
type SubmitAnalysisRequest struct {
	URL       string `json:"url" binding:"required"`
	Force     bool   `json:"force"`
	SummaryID string `json:"summary_id"`
}

type RequestAudioRequest struct {
	Force bool `json:"force"`
}

// AnalysisDTO 는 저장된 분석 레코드의 API 표현이다. transcript 본문은 내보내지 않는다.
type AnalysisDTO struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	VideoID       string `json:"video_id"`
	SummaryID     string `json:"summary_id,omitempty"`
	Title         string `json:"title"`
	ThumbnailURL  string `json:"thumbnail_url"`
	HasTranscript bool   `json:"has_transcript"`

	ProcessingStatus models.Status `json:"processing_status"`
	AnalysisStatus   models.Status `json:"analysis_status"`
	AudioStatus      models.Status `json:"audio_status"`

	Summary        string                 `json:"summary,omitempty"`
	ContentQuality *models.ContentQuality `json:"content_quality,omitempty"`
	Sentiment      *models.Sentiment      `json:"sentiment,omitempty"`
	Community      *models.Community      `json:"community,omitempty"`
	AgeGroups      *models.AgeGroups      `json:"age_groups,omitempty"`
	Emotions       *models.Emotions       `json:"emotions,omitempty"`
	Insights       *models.Insights       `json:"insights,omitempty"`

	TotalCommentsAnalyzed int        `json:"total_comments_analyzed"`
	AnalyzedAt            *time.Time `json:"analyzed_at,omitempty"`
	AnalysisModel         string     `json:"analysis_model,omitempty"`
	AnalysisError         string     `json:"analysis_error,omitempty"`
	AudioError            string     `json:"audio_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SubmitAnalysisResponse 는 202 응답 바디다. 기존 레코드가 있으면 함께 돌려준다.
type SubmitAnalysisResponse struct {
	EventID  string       `json:"event_id"`
	URL      string       `json:"url"`
	VideoID  string       `json:"video_id"`
	Analysis *AnalysisDTO `json:"analysis,omitempty"`
}

type AudioRequestResponse struct {
	EventID    string `json:"event_id"`
	AnalysisID string `json:"analysis_id"`
}

type AudioURLResponse struct {
	AnalysisID string `json:"analysis_id"`
	URL        string `json:"url"`
	ExpiresIn  int64  `json:"expires_in_seconds"`
}

func AnalysisFromModel(a *models.Analysis) *AnalysisDTO {
	if a == nil {
		return nil
	}
	return &AnalysisDTO{
		ID:                    a.ID,
		URL:                   a.URL,
		VideoID:               a.VideoID,
		SummaryID:             a.SummaryID,
		Title:                 a.Title,
		ThumbnailURL:          a.ThumbnailURL,
		HasTranscript:         a.Transcript != nil && *a.Transcript != "",
		ProcessingStatus:      a.ProcessingStatus,
		AnalysisStatus:        a.AnalysisStatus,
		AudioStatus:           a.AudioStatus,
		Summary:               a.Summary,
		ContentQuality:        a.ContentQuality,
		Sentiment:             a.Sentiment,
		Community:             a.Community,
		AgeGroups:             a.AgeGroups,
		Emotions:              a.Emotions,
		Insights:              a.Insights,
		TotalCommentsAnalyzed: a.TotalCommentsAnalyzed,
		AnalyzedAt:            a.AnalyzedAt,
		AnalysisModel:         a.AnalysisModel,
		AnalysisError:         a.AnalysisError,
		AudioError:            a.AudioError,
		CreatedAt:             a.CreatedAt,
		UpdatedAt:             a.UpdatedAt,
	}
}
