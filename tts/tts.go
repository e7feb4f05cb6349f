// Package tts turns summary text into speech through interchangeable vendors.
package tts

import (
	"context"
	"fmt"
	"strings"

	"video-insight/config"
)

type Audio struct {
	Data        []byte
	ContentType string
	Ext         string
}

// Vendor makes one synthesis call per invocation, no retries.
type Vendor interface {
	Name() string
	Enabled() bool
	Synthesize(ctx context.Context, text string) (*Audio, error)
}

func NewVendorsFromConfig(ctx context.Context, cfgs []config.TTSVendorConfig) ([]Vendor, error) {
	var out []Vendor
	for _, c := range cfgs {
		switch strings.ToLower(c.Name) {
		case "openai":
			out = append(out, NewOpenAISpeech(c.APIKey, c.Model, c.Voice))
		case "gemini", "google":
			g, err := NewGeminiSpeech(ctx, c.APIKey, c.Model, c.Voice)
			if err != nil {
				return nil, err
			}
			out = append(out, g)
		default:
			return nil, fmt.Errorf("unsupported TTS vendor: %s", c.Name)
		}
		config.Logger.Infof("tts vendor registered: %s enabled=%t", c.Name, out[len(out)-1].Enabled())
	}
	return out, nil
}
