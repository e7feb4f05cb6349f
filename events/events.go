package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType 이벤트 타입 정의
type EventType string

const (
	AnalysisRequested EventType = "analysis.requested"
	AudioRequested    EventType = "audio.requested"
)

const schemaVersion = "1.0"

// BaseEvent 모든 이벤트의 기본 구조
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
}

// AnalysisRequestedEvent 영상 분석 파이프라인 트리거 이벤트
type AnalysisRequestedEvent struct {
	BaseEvent
	URL       string `json:"url,omitempty"`
	VideoID   string `json:"video_id,omitempty"`
	SummaryID string `json:"summary_id,omitempty"`
	Force     bool   `json:"force,omitempty"`
}

// AudioRequestedEvent 요약 음성 생성 요청 이벤트
type AudioRequestedEvent struct {
	BaseEvent
	AnalysisID string `json:"analysis_id"`
	Force      bool   `json:"force,omitempty"`
}

// SerializeEvent 이벤트를 JSON으로 직렬화하고 타입 정보 반환
func SerializeEvent(event any) ([]byte, EventType, error) {
	var eventType EventType

	switch e := event.(type) {
	case AnalysisRequestedEvent:
		eventType = e.Type
	case AudioRequestedEvent:
		eventType = e.Type
	default:
		return nil, "", fmt.Errorf("unknown event type: %T", event)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal event: %w", err)
	}

	return data, eventType, nil
}

// DeserializeEvent 이벤트 타입에 따라 적절한 구조체로 역직렬화
func DeserializeEvent(eventType EventType, data []byte) (any, error) {
	var event any

	switch eventType {
	case AnalysisRequested:
		event = &AnalysisRequestedEvent{}
	case AudioRequested:
		event = &AudioRequestedEvent{}
	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	return event, nil
}

// PeekType 페이로드 전체를 디코딩하기 전에 type 필드만 읽는다.
func PeekType(data []byte) (EventType, error) {
	var peek struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(data, &peek); err != nil {
		return "", fmt.Errorf("failed to read event type: %w", err)
	}
	if peek.Type == "" {
		return "", fmt.Errorf("event type missing")
	}
	return peek.Type, nil
}
