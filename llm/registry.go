package llm

import (
	"context"
	"fmt"
	"strings"

	"video-insight/config"
)

// Registry holds the providers built once per process, in priority order.
type Registry struct {
	providers []Provider
}

func NewRegistry(providers ...Provider) *Registry {
	return &Registry{providers: providers}
}

// NewRegistryFromConfig builds providers from llm.providers.
func NewRegistryFromConfig(ctx context.Context, cfgs []config.ProviderConfig) (*Registry, error) {
	r := &Registry{}
	for _, c := range cfgs {
		switch strings.ToLower(c.Name) {
		case "gemini", "google":
			g, err := NewGemini(ctx, c.APIKey, c.Model)
			if err != nil {
				return nil, err
			}
			r.providers = append(r.providers, g)
		case "openai":
			r.providers = append(r.providers, NewOpenAI(c.APIKey, c.Model, c.BaseURL))
		default:
			return nil, fmt.Errorf("unsupported LLM provider: %s", c.Name)
		}
		config.Logger.Infof("llm provider registered: %s/%s enabled=%t", c.Name, c.Model, r.providers[len(r.providers)-1].Enabled())
	}
	return r, nil
}

// Providers returns all registered providers, enabled or not.
func (r *Registry) Providers() []Provider {
	return append([]Provider(nil), r.providers...)
}

// Enabled returns providers with credentials.
func (r *Registry) Enabled() []Provider {
	var out []Provider
	for _, p := range r.providers {
		if p.Enabled() {
			out = append(out, p)
		}
	}
	return out
}

// Gemini returns the first Gemini provider, if any.
func (r *Registry) Gemini() *Gemini {
	for _, p := range r.providers {
		if g, ok := p.(*Gemini); ok {
			return g
		}
	}
	return nil
}

// OpenAI returns the first OpenAI provider, if any.
func (r *Registry) OpenAI() *OpenAI {
	for _, p := range r.providers {
		if o, ok := p.(*OpenAI); ok {
			return o
		}
	}
	return nil
}
