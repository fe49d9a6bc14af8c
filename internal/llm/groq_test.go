package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"budget-meal-planner/internal/config"
)

func newTestGroqClient(url string) *groqClient {
	c := NewGroqClient(&config.Config{GroqAPIKey: "test_key", GroqModel: "test-model"}, 0.2).(*groqClient)
	c.apiURL = url
	return c
}

func TestGroqGenerateContent(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer test_key" {
				t.Errorf("Expected bearer token, got '%s'", got)
			}

			var body chatRequest
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("Failed to decode request body: %v", err)
			}
			if body.Model != "test-model" {
				t.Errorf("Expected model 'test-model', got '%v'", body.Model)
			}
			if body.Temperature != 0.2 {
				t.Errorf("Expected temperature 0.2, got %v", body.Temperature)
			}
			if len(body.Messages) != 2 || body.Messages[1].Content != "pick one" {
				t.Errorf("Unexpected messages %+v", body.Messages)
			}
			if body.ResponseFormat["type"] != "json_object" {
				t.Errorf("Expected JSON reply mode, got %v", body.ResponseFormat)
			}

			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, `{
				"model": "test-model",
				"choices": [{"message": {"content": "{\"selectedId\": 3}"}}],
				"usage": {"prompt_tokens": 120, "completion_tokens": 8, "total_tokens": 128}
			}`)
		}))
		defer server.Close()

		resp, err := newTestGroqClient(server.URL).GenerateContent(context.Background(), "pick one")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if resp.Content != `{"selectedId": 3}` {
			t.Errorf("Unexpected content '%s'", resp.Content)
		}
		if resp.Usage.PromptTokens != 120 || resp.Usage.CompletionTokens != 8 {
			t.Errorf("Unexpected usage %+v", resp.Usage)
		}
		if resp.Usage.Model != "test-model" {
			t.Errorf("Expected usage model 'test-model', got '%s'", resp.Usage.Model)
		}
	})

	t.Run("ServerError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprintln(w, `{"error": "invalid api key"}`)
		}))
		defer server.Close()

		_, err := newTestGroqClient(server.URL).GenerateContent(context.Background(), "pick one")
		if err == nil {
			t.Fatal("Expected an error for non-200 status code, got nil")
		}
	})

	t.Run("NoChoices", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintln(w, `{"choices": []}`)
		}))
		defer server.Close()

		_, err := newTestGroqClient(server.URL).GenerateContent(context.Background(), "pick one")
		if !errors.Is(err, errNoContent) {
			t.Fatalf("Expected 'no content generated', got %v", err)
		}
	})
}
