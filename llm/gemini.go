package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini returns a disabled provider when apiKey is empty.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	g := &Gemini{model: model}
	if apiKey == "" {
		return g, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	g.client = client
	return g, nil
}

func (g *Gemini) Name() string  { return "gemini" }
func (g *Gemini) Model() string { return g.model }
func (g *Gemini) Enabled() bool { return g.client != nil }

// Client exposes the underlying genai client for other Gemini features (TTS).
func (g *Gemini) Client() *genai.Client { return g.client }

func (g *Gemini) GenerateStructured(ctx context.Context, req Request) (*Response, error) {
	if g.client == nil {
		return nil, errors.New("gemini provider is not configured")
	}

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType:   "application/json",
		ResponseJsonSchema: req.Schema,
		Temperature:        genai.Ptr[float32](float32(req.Temperature)),
	}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, errors.New("gemini returned an empty result")
	}

	raw := result.Text()
	resp := &Response{Raw: raw, ModelVersion: result.ModelVersion}
	if result.UsageMetadata != nil {
		resp.Usage = TokenUsage{
			InputTokens:  int64(result.UsageMetadata.PromptTokenCount),
			OutputTokens: int64(result.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int64(result.UsageMetadata.TotalTokenCount),
		}
	}
	obj, err := decodeObject(raw)
	if err != nil {
		return resp, err
	}
	resp.Object = obj
	return resp, nil
}
