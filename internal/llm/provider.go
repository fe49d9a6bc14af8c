package llm

import (
	"context"
	"fmt"

	"budget-meal-planner/internal/config"
)

// NewTextGenerator builds the client for the configured provider. It returns
// a nil generator for config.ProviderNone, which callers treat as local-only.
// The caller must close the returned generator if it implements Closer.
func NewTextGenerator(ctx context.Context, cfg *config.Config, temperature float64) (TextGenerator, error) {
	switch cfg.LLMProvider {
	case config.ProviderGroq:
		return NewGroqClient(cfg, temperature), nil
	case config.ProviderGemini:
		client, err := NewGeminiClient(ctx, cfg, float32(temperature))
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.ProviderNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}
