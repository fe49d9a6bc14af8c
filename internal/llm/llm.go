package llm

import (
	"context"

	"budget-meal-planner/internal/shared"
)

// ContentResponse is the raw reply of one generation call and its token usage.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// TextGenerator is the external scoring capability used by the selector and
// the analyzer. Replies are expected to hold a JSON object.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (ContentResponse, error)
}

// GeneratorFunc adapts a plain function to TextGenerator.
type GeneratorFunc func(ctx context.Context, prompt string) (ContentResponse, error)

// GenerateContent calls f.
func (f GeneratorFunc) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	return f(ctx, prompt)
}

// Closer is implemented by generators holding network clients.
type Closer interface {
	Close() error
}
