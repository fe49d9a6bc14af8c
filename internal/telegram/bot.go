package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"budget-meal-planner/internal/app"
	"budget-meal-planner/internal/config"
	"budget-meal-planner/internal/logger"
	"budget-meal-planner/internal/metrics"
	"budget-meal-planner/internal/planner"
	"budget-meal-planner/internal/profile"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	historyLimit  = 5
	shoppingDays  = 7
	metricsDays   = 7
	notesTTL      = 10 * time.Minute
	handleTimeout = time.Minute
)

// sender is the subset of *tgbotapi.BotAPI the bot talks through.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot wraps the Telegram API and the meal planning app.
type Bot struct {
	api      sender
	app      *app.App
	sessions *SessionRepository
	cfg      *config.Config
	log      *logger.Logger
	now      func() time.Time
	// dispatch runs update handling off the webhook goroutine.
	dispatch func(func())
	inflight sync.WaitGroup
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(
	cfg *config.Config,
	application *app.App,
	sessions *SessionRepository,
	log *logger.Logger,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	log = logger.OrNop(log)
	log.Info("authorized on telegram", "account", api.Self.UserName)

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %s: %w", cfg.TelegramWebhookURL, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	log.Info("webhook set", "description", resp.Description)

	return newBot(api, cfg, application, sessions, log), nil
}

func newBot(api sender, cfg *config.Config, application *app.App, sessions *SessionRepository, log *logger.Logger) *Bot {
	b := &Bot{
		api:      api,
		app:      application,
		sessions: sessions,
		cfg:      cfg,
		log:      logger.OrNop(log),
		now:      func() time.Time { return time.Now().UTC() },
	}
	b.dispatch = b.goTracked
	return b
}

func (b *Bot) goTracked(f func()) {
	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()
		f()
	}()
}

// Drain waits for in-flight update handlers to finish, or for ctx to end.
// Call it after the HTTP server has stopped accepting webhooks and before the
// database is closed.
func (b *Bot) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RegisterHandlers registers the webhook and health handlers on mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", b.handleWebhook)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		b.log.Warn("error parsing update", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)

	switch {
	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		if !b.isAllowed(q.From) {
			return
		}
		b.dispatch(func() { b.handleCallbackQuery(q) })
	case update.Message != nil:
		msg := update.Message
		if !b.isAllowed(msg.From) {
			return
		}
		b.dispatch(func() { b.processMessage(msg) })
	}
}

func (b *Bot) isAllowed(from *tgbotapi.User) bool {
	if from == nil {
		return false
	}
	if slices.Contains(b.cfg.TelegramAllowedUserIDs, from.ID) {
		return true
	}
	b.log.Warn("unauthorized access attempt", "telegram_id", from.ID, "username", from.UserName)
	return false
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	userID := strconv.FormatInt(msg.From.ID, 10)
	if !msg.IsCommand() {
		b.handleText(ctx, userID, msg)
		return
	}

	args := strings.TrimSpace(msg.CommandArguments())
	switch msg.Command() {
	case "start", "help":
		b.reply(msg.Chat.ID, helpText)
	case "budget":
		b.handleBudget(ctx, userID, msg.Chat.ID, args)
	case "goal":
		b.updateProfile(ctx, userID, msg.Chat.ID, func(p *profile.Profile) { p.Goals = args })
	case "activity":
		b.updateProfile(ctx, userID, msg.Chat.ID, func(p *profile.Profile) { p.ActivityLevel = args })
	case "diet":
		b.updateProfile(ctx, userID, msg.Chat.ID, func(p *profile.Profile) { p.DietaryRestrictions = profile.ParseList(args) })
	case "allergies":
		b.updateProfile(ctx, userID, msg.Chat.ID, func(p *profile.Profile) { p.Allergies = profile.ParseList(args) })
	case "profile":
		p, err := b.app.Profile(ctx, userID)
		if err != nil {
			b.replyError(msg.Chat.ID, "loading your profile", err)
			return
		}
		b.reply(msg.Chat.ID, formatProfile(p))
	case "plan":
		b.handlePlanRequest(ctx, userID, msg.Chat.ID)
	case "history":
		plans, err := b.app.History(ctx, userID, historyLimit)
		if err != nil {
			b.replyError(msg.Chat.ID, "loading your history", err)
			return
		}
		b.reply(msg.Chat.ID, formatHistory(plans))
	case "shopping":
		list, err := b.app.ShoppingList(ctx, userID, shoppingDays)
		if err != nil {
			b.replyError(msg.Chat.ID, "building your shopping list", err)
			return
		}
		b.reply(msg.Chat.ID, formatShoppingList(list))
	case "usage":
		u, err := b.app.BudgetUsage(ctx, userID, b.now())
		if err != nil {
			b.replyError(msg.Chat.ID, "computing your budget usage", err)
			return
		}
		b.reply(msg.Chat.ID, formatUsage(u))
	case "metrics":
		b.handleMetricsRequest(ctx, msg)
	default:
		b.reply(msg.Chat.ID, "🤔 Unknown command.\n\n"+helpText)
	}
}

// handleText treats free text as the answer to a pending notes prompt.
func (b *Bot) handleText(ctx context.Context, userID string, msg *tgbotapi.Message) {
	session, err := b.sessions.GetActive(ctx, userID, time.Now())
	if err != nil {
		b.log.Error("failed to load session", "user_id", userID, "error", err)
	}
	if session == nil || session.SessionType != SessionAwaitingNotes {
		b.reply(msg.Chat.ID, helpText)
		return
	}

	data, err := session.GetContextData()
	if err != nil {
		b.log.Error("corrupt session data", "session_id", session.ID, "error", err)
		_ = b.sessions.Delete(ctx, session.ID)
		return
	}
	if err := b.sessions.Delete(ctx, session.ID); err != nil {
		b.log.Warn("failed to delete session", "session_id", session.ID, "error", err)
	}

	plan, err := b.app.UpdateNotes(ctx, userID, data.PlanID, msg.Text)
	if err != nil {
		b.replyError(msg.Chat.ID, "saving your notes", err)
		return
	}
	b.replyPlan(msg.Chat.ID, plan)
}

func (b *Bot) handleBudget(ctx context.Context, userID string, chatID int64, args string) {
	amount, err := strconv.ParseFloat(strings.ReplaceAll(args, ",", ""), 64)
	if err != nil || amount < 0 || math.IsInf(amount, 0) || math.IsNaN(amount) {
		b.reply(chatID, "Usage: /budget 4500 (monthly budget in ETB)")
		return
	}
	p, err := b.app.UpdateProfile(ctx, userID, func(p *profile.Profile) { p.MonthlyBudget = amount })
	if err != nil {
		b.replyError(chatID, "saving your budget", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("✅ Monthly budget set to *%.2f ETB* (about %.2f ETB per day).",
		p.MonthlyBudget, planner.DailyCeiling(p.MonthlyBudget)))
}

func (b *Bot) updateProfile(ctx context.Context, userID string, chatID int64, fn func(*profile.Profile)) {
	p, err := b.app.UpdateProfile(ctx, userID, fn)
	if err != nil {
		b.replyError(chatID, "saving your profile", err)
		return
	}
	b.reply(chatID, "✅ Saved.\n\n"+formatProfile(p))
}

func (b *Bot) handlePlanRequest(ctx context.Context, userID string, chatID int64) {
	status := tgbotapi.NewMessage(chatID, "🧑‍🍳 *Thinking...*\n(Picking meals that fit your budget)")
	status.ParseMode = tgbotapi.ModeMarkdown
	sent, err := b.api.Send(status)
	if err != nil {
		b.log.Error("failed to send initial reply", "error", err)
		return
	}

	plan, err := b.app.GenerateMealPlan(ctx, userID)
	if err != nil {
		b.log.Error("error generating plan", "user_id", userID, "error", err)
		b.edit(chatID, sent.MessageID, errorText("generating your plan", err), nil)
		b.sendAdminAlert(fmt.Sprintf("⚠️ *Plan generation failed*\nUser: %s\n%s", userID, md(err.Error())))
		return
	}

	keyboard := planKeyboard(plan)
	b.edit(chatID, sent.MessageID, formatPlanMarkdown(plan), &keyboard)
}

func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	// Answer callback to remove spinner
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.log.Warn("failed to answer callback", "error", err)
	}
	if query.Message == nil {
		return
	}
	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID
	userID := strconv.FormatInt(query.From.ID, 10)

	cb, err := parseCallback(query.Data)
	if err != nil {
		b.log.Warn("ignoring callback", "error", err)
		return
	}

	var plan *planner.GeneratedPlan
	switch cb.Action {
	case actionAnalyze:
		plan, err = b.app.AnalyzePlan(ctx, userID, cb.PlanID)
	case actionRemove:
		plan, err = b.app.RemoveMeal(ctx, userID, cb.PlanID, cb.MealType)
	case actionDelete:
		if err := b.app.DeletePlan(ctx, userID, cb.PlanID); err != nil {
			b.replyError(chatID, "deleting your plan", err)
			return
		}
		b.edit(chatID, messageID, fmt.Sprintf("🗑 Plan #%d deleted.", cb.PlanID), nil)
		return
	case actionNotes:
		_, err = b.sessions.Create(ctx, userID, SessionAwaitingNotes, SessionContextData{PlanID: cb.PlanID}, notesTTL)
		if err != nil {
			b.replyError(chatID, "starting your notes", err)
			return
		}
		b.reply(chatID, fmt.Sprintf("📝 Send me your notes for plan #%d.", cb.PlanID))
		return
	}
	if err != nil {
		b.replyError(chatID, "updating your plan", err)
		return
	}

	keyboard := planKeyboard(plan)
	b.edit(chatID, messageID, formatPlanMarkdown(plan), &keyboard)
}

func (b *Bot) handleMetricsRequest(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From.ID != b.cfg.AdminTelegramID {
		b.reply(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		return
	}

	usage, err := b.app.DailyMetrics(ctx, metricsDays)
	if err != nil {
		b.replyError(msg.Chat.ID, "fetching metrics", err)
		return
	}
	b.reply(msg.Chat.ID, formatMetrics(usage, metrics.GetSysHealth(b.cfg.DatabasePath)))
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) replyPlan(chatID int64, plan *planner.GeneratedPlan) {
	msg := tgbotapi.NewMessage(chatID, formatPlanMarkdown(plan))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = planKeyboard(plan)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("failed to send plan", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) edit(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	edit.ReplyMarkup = keyboard
	if _, err := b.api.Send(edit); err != nil {
		b.log.Error("failed to edit message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) replyError(chatID int64, doing string, err error) {
	b.log.Warn("request failed", "chat_id", chatID, "doing", doing, "error", err)
	b.reply(chatID, errorText(doing, err))
}

func errorText(doing string, err error) string {
	switch {
	case errors.Is(err, planner.ErrPlanNotFound):
		return "🔍 That plan no longer exists."
	case errors.Is(err, planner.ErrValidation):
		return "⚠️ " + md(err.Error())
	}
	safeErr := strings.ReplaceAll(err.Error(), "`", "'")
	return fmt.Sprintf("❌ *Error %s:*\n```\n%v\n```", doing, safeErr)
}

func (b *Bot) sendAdminAlert(text string) {
	if b.cfg.AdminTelegramID == 0 {
		return
	}
	b.reply(b.cfg.AdminTelegramID, text)
}
