package llm

import (
	"context"
	"fmt"
	"strings"

	"budget-meal-planner/internal/config"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient is a TextGenerator backed by the Google Gemini API.
type GeminiClient struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
}

// NewGeminiClient creates a new Gemini API client.
func NewGeminiClient(ctx context.Context, cfg *config.Config, temperature float32) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	model := client.GenerativeModel(cfg.GeminiModel)
	model.SetTemperature(temperature)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	return &GeminiClient{client: client, model: model, modelName: cfg.GeminiModel}, nil
}

// GenerateContent sends a prompt and joins the text parts of the first candidate.
func (c *GeminiClient) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ContentResponse{}, errNoContent
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return ContentResponse{}, errNoContent
	}

	out := ContentResponse{Content: sb.String()}
	out.Usage.Model = c.modelName
	if resp.UsageMetadata != nil {
		out.Usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.Usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		out.Usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return out, nil
}

// Close closes the underlying Gemini client.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}
