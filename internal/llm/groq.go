package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"budget-meal-planner/internal/config"
	"budget-meal-planner/internal/shared"
)

const (
	groqAPIURL   = "https://api.groq.com/openai/v1/chat/completions"
	groqTimeout  = 30 * time.Second
	maxErrorBody = 1 << 10
	// Both planner prompts ask for a single JSON object.
	systemPrompt = "You are a meal planning assistant for Ethiopian households. Reply with one JSON object and nothing else."
)

var errNoContent = errors.New("no content generated")

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// groqClient talks to Groq's OpenAI-compatible chat completions endpoint.
type groqClient struct {
	apiKey      string
	apiURL      string
	model       string
	temperature float64
	httpClient  *http.Client
}

// NewGroqClient creates a Groq client in JSON reply mode.
func NewGroqClient(cfg *config.Config, temperature float64) TextGenerator {
	return &groqClient{
		apiKey:      cfg.GroqAPIKey,
		apiURL:      groqAPIURL,
		model:       cfg.GroqModel,
		temperature: temperature,
		httpClient:  &http.Client{Timeout: groqTimeout},
	}
}

// GenerateContent sends one chat completion request. There are no retries.
func (c *groqClient) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature:    c.temperature,
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return ContentResponse{}, fmt.Errorf("groq api error: status=%d body=%s", resp.StatusCode, msg)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ContentResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return ContentResponse{}, errNoContent
	}

	model := out.Model
	if model == "" {
		model = c.model
	}
	return ContentResponse{
		Content: out.Choices[0].Message.Content,
		Usage: shared.TokenUsage{
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
			TotalTokens:      out.Usage.TotalTokens,
			Model:            model,
		},
	}, nil
}
