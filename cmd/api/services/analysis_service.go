package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"video-insight/cmd/api/dto"
	"video-insight/cmd/api/trace"
	"video-insight/config"
	"video-insight/models"
	"video-insight/pipeline"
	"video-insight/repositories"
	"video-insight/youtube"
)

var (
	ErrInvalidURL = errors.New("invalid youtube url")
	ErrNotFound   = errors.New("analysis not found")
	// ErrNotReady 는 요약이 완료되지 않은 분석에 대해 음성을 요청한 경우다.
	ErrNotReady      = errors.New("analysis is not completed")
	ErrAudioNotReady = errors.New("audio is not ready")
	ErrAudioDisabled = errors.New("audio storage is not configured")
)

type AnalysisReader interface {
	FindByID(ctx context.Context, id string) (*models.Analysis, error)
	FindByURL(ctx context.Context, url string) (*models.Analysis, error)
}

// Publisher 는 events.Dispatcher 가 만족한다.
type Publisher interface {
	PublishAnalysisRequested(ctx context.Context, url, videoID, summaryID string, force bool) (string, error)
	PublishAudioRequested(ctx context.Context, analysisID string, force bool) (string, error)
}

// AudioSigner 는 pipeline.AudioPipeline 이 만족한다.
type AudioSigner interface {
	SignedURL(ctx context.Context, analysisID string) (string, error)
}

// AnalysisService 는 제출/조회 요청을 저장소 조회와 이벤트 발행으로 변환한다.
// 실제 분석은 processor 가 이벤트를 받아 수행한다.
type AnalysisService struct {
	store     AnalysisReader
	publisher Publisher
	audio     AudioSigner
	urlTTL    time.Duration
}

func NewAnalysisService(store AnalysisReader, publisher Publisher, audio AudioSigner, urlTTL time.Duration) *AnalysisService {
	return &AnalysisService{store: store, publisher: publisher, audio: audio, urlTTL: urlTTL}
}

// SubmitResult: Completed 가 true 면 기존 완료 레코드를 그대로 돌려준 것이다.
type SubmitResult struct {
	Completed *dto.AnalysisDTO
	Accepted  *dto.SubmitAnalysisResponse
}

func (s *AnalysisService) Submit(ctx context.Context, in dto.SubmitAnalysisRequest) (SubmitResult, error) {
	videoID, canonical, err := youtube.Normalize(in.URL)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	existing, err := s.store.FindByURL(ctx, canonical)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return SubmitResult{}, err
	}
	if existing != nil && existing.AnalysisStatus == models.StatusCompleted && !in.Force {
		return SubmitResult{Completed: dto.AnalysisFromModel(existing)}, nil
	}

	eventID, err := s.publisher.PublishAnalysisRequested(ctx, canonical, videoID, in.SummaryID, in.Force)
	if err != nil {
		return SubmitResult{}, err
	}
	config.InfoWithFields("analysis requested", config.Fields{
		"event_id":   eventID,
		"video_id":   videoID,
		"force":      in.Force,
		"request_id": trace.RequestIDFromContext(ctx),
	})

	return SubmitResult{Accepted: &dto.SubmitAnalysisResponse{
		EventID:  eventID,
		URL:      canonical,
		VideoID:  videoID,
		Analysis: dto.AnalysisFromModel(existing),
	}}, nil
}

func (s *AnalysisService) GetByID(ctx context.Context, id string) (*dto.AnalysisDTO, error) {
	a, err := s.store.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return dto.AnalysisFromModel(a), nil
}

// GetByURL 은 어떤 형태의 유튜브 URL 이든 정규화한 뒤 조회한다.
func (s *AnalysisService) GetByURL(ctx context.Context, rawURL string) (*dto.AnalysisDTO, error) {
	_, canonical, err := youtube.Normalize(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	a, err := s.store.FindByURL(ctx, canonical)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return dto.AnalysisFromModel(a), nil
}

func (s *AnalysisService) RequestAudio(ctx context.Context, id string, force bool) (*dto.AudioRequestResponse, error) {
	if s.audio == nil {
		return nil, ErrAudioDisabled
	}
	a, err := s.store.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if a.AnalysisStatus != models.StatusCompleted || a.Summary == "" {
		return nil, ErrNotReady
	}

	eventID, err := s.publisher.PublishAudioRequested(ctx, id, force)
	if err != nil {
		return nil, err
	}
	config.InfoWithFields("audio requested", config.Fields{
		"event_id":    eventID,
		"analysis_id": id,
		"request_id":  trace.RequestIDFromContext(ctx),
	})
	return &dto.AudioRequestResponse{EventID: eventID, AnalysisID: id}, nil
}

func (s *AnalysisService) AudioURL(ctx context.Context, id string) (*dto.AudioURLResponse, error) {
	if s.audio == nil {
		return nil, ErrAudioDisabled
	}
	u, err := s.audio.SignedURL(ctx, id)
	switch {
	case errors.Is(err, pipeline.ErrNotFound):
		return nil, ErrNotFound
	case errors.Is(err, pipeline.ErrAudioNotReady):
		return nil, ErrAudioNotReady
	case err != nil:
		return nil, err
	}
	return &dto.AudioURLResponse{AnalysisID: id, URL: u, ExpiresIn: int64(s.urlTTL.Seconds())}, nil
}
