package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LLM providers accepted in LLM_PROVIDER.
const (
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
	ProviderNone   = "none"
)

// Config holds the configuration for the application.
type Config struct {
	LLMProvider  string
	GeminiAPIKey string
	GeminiModel  string
	GroqAPIKey   string
	GroqModel    string

	DatabasePath string
	CatalogPath  string
	LogMode      string

	// Selection tuning
	BudgetTolerance float64
	VarietyWindow   int
	ShortlistSize   int
	TierSmallBelow  float64
	TierMediumBelow float64

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64
	Port                   string
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	cfg := &Config{
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiModel:        envOr("GEMINI_MODEL", "gemini-1.5-flash"),
		GroqAPIKey:         os.Getenv("GROQ_API_KEY"),
		GroqModel:          envOr("GROQ_MODEL", "llama-3.3-70b-versatile"),
		DatabasePath:       envOr("DATABASE_PATH", "data/meal-planner.db"),
		CatalogPath:        os.Getenv("CATALOG_PATH"),
		LogMode:            envOr("LOG_MODE", "dev"),
		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL: os.Getenv("TELEGRAM_WEBHOOK_URL"),
		Port:               envOr("PORT", "8080"),
	}

	provider, err := resolveProvider(strings.ToLower(strings.TrimSpace(os.Getenv("LLM_PROVIDER"))), cfg)
	if err != nil {
		return nil, err
	}
	cfg.LLMProvider = provider

	if cfg.BudgetTolerance, err = floatFromEnv("BUDGET_TOLERANCE", 1.10); err != nil {
		return nil, err
	}
	if cfg.BudgetTolerance <= 0 {
		return nil, fmt.Errorf("BUDGET_TOLERANCE must be positive")
	}
	if cfg.VarietyWindow, err = intFromEnv("VARIETY_WINDOW", 5); err != nil {
		return nil, err
	}
	if cfg.ShortlistSize, err = intFromEnv("SHORTLIST_SIZE", 10); err != nil {
		return nil, err
	}
	if cfg.ShortlistSize < 1 {
		return nil, fmt.Errorf("SHORTLIST_SIZE must be at least 1")
	}
	if cfg.TierSmallBelow, err = floatFromEnv("TIER_SMALL_BELOW", 200); err != nil {
		return nil, err
	}
	if cfg.TierMediumBelow, err = floatFromEnv("TIER_MEDIUM_BELOW", 400); err != nil {
		return nil, err
	}
	if cfg.TierMediumBelow < cfg.TierSmallBelow {
		return nil, fmt.Errorf("TIER_MEDIUM_BELOW must not be lower than TIER_SMALL_BELOW")
	}

	if raw := os.Getenv("TELEGRAM_ALLOWED_USER_IDS"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("TELEGRAM_ALLOWED_USER_IDS must be a comma separated list of ids: %w", err)
			}
			cfg.TelegramAllowedUserIDs = append(cfg.TelegramAllowedUserIDs, id)
		}
	}
	if raw := os.Getenv("ADMIN_TELEGRAM_ID"); raw != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ADMIN_TELEGRAM_ID must be an integer: %w", err)
		}
		cfg.AdminTelegramID = id
	}
	if _, err := strconv.ParseUint(cfg.Port, 10, 16); err != nil {
		return nil, fmt.Errorf("PORT must be a TCP port number: %w", err)
	}

	return cfg, nil
}

// resolveProvider picks the text generation backend. An empty value selects the
// first provider that has a key, or none.
func resolveProvider(requested string, cfg *Config) (string, error) {
	switch requested {
	case "":
		if cfg.GroqAPIKey != "" {
			return ProviderGroq, nil
		}
		if cfg.GeminiAPIKey != "" {
			return ProviderGemini, nil
		}
		return ProviderNone, nil
	case ProviderGroq:
		if cfg.GroqAPIKey == "" {
			return "", fmt.Errorf("GROQ_API_KEY environment variable not set")
		}
		return ProviderGroq, nil
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return "", fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
		return ProviderGemini, nil
	case ProviderNone:
		return ProviderNone, nil
	default:
		return "", fmt.Errorf("LLM_PROVIDER must be one of groq, gemini, none; got %q", requested)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return v, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return v, nil
}
