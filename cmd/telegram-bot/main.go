package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"budget-meal-planner/internal/app"
	"budget-meal-planner/internal/config"
	"budget-meal-planner/internal/logger"
	"budget-meal-planner/internal/telegram"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.TelegramBotToken == "" || cfg.TelegramWebhookURL == "" {
		fmt.Fprintln(os.Stderr, "TELEGRAM_BOT_TOKEN and TELEGRAM_WEBHOOK_URL must be set")
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	// 2. Wire database, catalog and planner
	rt, err := app.Bootstrap(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to start", "error", err)
	}
	defer rt.Close()

	sessions := telegram.NewSessionRepository(rt.DB.SQL)
	if n, err := sessions.CleanupExpired(ctx); err != nil {
		log.Warn("failed to clean up expired sessions", "error", err)
	} else if n > 0 {
		log.Info("expired sessions removed", "count", n)
	}

	// 3. Initialize Telegram Bot
	bot, err := telegram.NewBot(cfg, rt.App, sessions, log)
	if err != nil {
		log.Fatal("failed to initialize telegram bot", "error", err)
	}

	// 4. Start Server with Graceful Shutdown
	mux := http.NewServeMux()
	bot.RegisterHandlers(mux)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("telegram bot server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	if err := bot.Drain(ctxShutdown); err != nil {
		log.Warn("update handlers still running at exit", "error", err)
	}

	log.Info("server exiting")
}
