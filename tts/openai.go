package tts

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type OpenAISpeech struct {
	client  openai.Client
	model   string
	voice   string
	enabled bool
}

func NewOpenAISpeech(apiKey, model, voice string) *OpenAISpeech {
	if model == "" {
		model = "gpt-4o-mini-tts"
	}
	if voice == "" {
		voice = "alloy"
	}
	s := &OpenAISpeech{model: model, voice: voice, enabled: apiKey != ""}
	if s.enabled {
		s.client = openai.NewClient(option.WithAPIKey(apiKey))
	}
	return s
}

func (s *OpenAISpeech) Name() string  { return "openai/" + s.model }
func (s *OpenAISpeech) Enabled() bool { return s.enabled }

func (s *OpenAISpeech) Synthesize(ctx context.Context, text string) (*Audio, error) {
	if !s.enabled {
		return nil, errors.New("openai speech is not configured")
	}
	resp, err := s.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(s.model),
		Voice:          openai.AudioSpeechNewParamsVoice(s.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read speech body: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("openai speech returned no audio")
	}
	return &Audio{Data: data, ContentType: "audio/mpeg", Ext: "mp3"}, nil
}
