package llm

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

type OpenAI struct {
	client  openai.Client
	model   string
	enabled bool
}

// NewOpenAI returns a disabled provider when apiKey is empty. baseURL is
// optional and allows OpenAI-compatible gateways.
func NewOpenAI(apiKey, model, baseURL string) *OpenAI {
	p := &OpenAI{model: model, enabled: apiKey != ""}
	if !p.enabled {
		return p
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	p.client = openai.NewClient(opts...)
	return p
}

func (p *OpenAI) Name() string  { return "openai" }
func (p *OpenAI) Model() string { return p.model }
func (p *OpenAI) Enabled() bool { return p.enabled }

// Client exposes the underlying client for other OpenAI features (TTS).
func (p *OpenAI) Client() openai.Client { return p.client }

func (p *OpenAI) GenerateStructured(ctx context.Context, req Request) (*Response, error) {
	if !p.enabled {
		return nil, errors.New("openai provider is not configured")
	}

	name := req.SchemaName
	if name == "" {
		name = "structured_output"
	}
	messages := []openai.ChatCompletionMessageParamUnion{}
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	completion, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(p.model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   name,
					Schema: req.Schema,
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("openai returned no choices")
	}

	raw := completion.Choices[0].Message.Content
	resp := &Response{
		Raw:          raw,
		ModelVersion: completion.Model,
		Usage: TokenUsage{
			InputTokens:  completion.Usage.PromptTokens,
			OutputTokens: completion.Usage.CompletionTokens,
			TotalTokens:  completion.Usage.TotalTokens,
		},
	}
	obj, err := decodeObject(raw)
	if err != nil {
		return resp, err
	}
	resp.Object = obj
	return resp, nil
}
