// Package llm wraps structured-output LLM backends behind one interface.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Provider makes exactly one structured generation call per invocation.
// Errors from the backend are returned as-is.
type Provider interface {
	Name() string
	Model() string
	Enabled() bool
	GenerateStructured(ctx context.Context, req Request) (*Response, error)
}

type Request struct {
	System      string
	Prompt      string
	Schema      map[string]any
	SchemaName  string
	Temperature float64
}

type Response struct {
	Object       map[string]any
	Raw          string
	Usage        TokenUsage
	ModelVersion string
}

type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// ID returns "<provider>/<model>".
func ID(p Provider) string {
	return p.Name() + "/" + p.Model()
}

// decodeObject parses a JSON object, tolerating a surrounding markdown fence.
func decodeObject(raw string) (map[string]any, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, fmt.Errorf("invalid JSON object in model output: %w", err)
	}
	return obj, nil
}
