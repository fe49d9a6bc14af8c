package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"budget-meal-planner/internal/app"
	"budget-meal-planner/internal/catalog"
	"budget-meal-planner/internal/config"
	"budget-meal-planner/internal/database"
	"budget-meal-planner/internal/metrics"
	"budget-meal-planner/internal/planner"
	"budget-meal-planner/internal/profile"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminID  int64 = 42
	memberID int64 = 43
)

type fakeSender struct {
	sent []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.sent = append(f.sent, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// texts returns the bodies of sent and edited messages, skipping callback answers.
func (f *fakeSender) texts() []string {
	var out []string
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeSender) last() string {
	t := f.texts()
	if len(t) == 0 {
		return ""
	}
	return t[len(t)-1]
}

func newTestBot(t *testing.T) (*Bot, *fakeSender) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "bot.db")
	db, err := database.NewDB(dbPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cat, err := catalog.Default(catalog.DefaultThresholds())
	require.NoError(t, err)
	planRepo := planner.NewPlanRepository(db.SQL)
	mealPlanner := planner.NewPlanner(cat, planner.NewStrategy(nil, nil, 0, nil), planRepo, planner.DefaultSettings(), nil)
	application := app.NewApp(cat, mealPlanner, planner.NewAnalyzer(nil, nil), planRepo,
		profile.NewRepository(db.SQL), metrics.NewStore(db.SQL), nil)

	cfg := &config.Config{
		DatabasePath:           dbPath,
		TelegramAllowedUserIDs: []int64{adminID, memberID},
		AdminTelegramID:        adminID,
	}
	api := &fakeSender{}
	b := newBot(api, cfg, application, NewSessionRepository(db.SQL), nil)
	b.dispatch = func(f func()) { f() }
	return b, api
}

func command(from int64, text string) *tgbotapi.Message {
	name, _, _ := strings.Cut(text, " ")
	return &tgbotapi.Message{
		Text:     text,
		From:     &tgbotapi.User{ID: from},
		Chat:     &tgbotapi.Chat{ID: from},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}
}

func callback(from int64, data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: from},
		Data:    data,
		Message: &tgbotapi.Message{MessageID: 1, Chat: &tgbotapi.Chat{ID: from}},
	}
}

func TestBotPlanFlow(t *testing.T) {
	b, api := newTestBot(t)
	ctx := context.Background()
	userID := "43"

	b.processMessage(command(memberID, "/budget 6,000"))
	assert.Contains(t, api.last(), "6000.00 ETB")

	b.processMessage(command(memberID, "/diet fasting, vegetarian"))
	assert.Contains(t, api.last(), "fasting, vegetarian")

	b.processMessage(command(memberID, "/plan"))
	require.Contains(t, api.last(), "Meal Plan #1")
	edit, ok := api.sent[len(api.sent)-1].(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	require.NotNil(t, edit.ReplyMarkup)
	assert.Len(t, edit.ReplyMarkup.InlineKeyboard, 2)

	b.handleCallbackQuery(callback(memberID, "analyze|1"))
	assert.Contains(t, api.last(), "*Score:*")

	b.handleCallbackQuery(callback(memberID, "remove|1|Dinner"))
	assert.NotContains(t, api.last(), "*Dinner*")
	assert.NotContains(t, api.last(), "*Score:*", "removing a meal clears the analysis")

	// A second tap on the same stale button leaves the plan alone
	b.handleCallbackQuery(callback(memberID, "remove|1|Dinner"))
	assert.Contains(t, api.last(), "plan has no dinner anymore")

	b.handleCallbackQuery(callback(memberID, "notes|1"))
	assert.Contains(t, api.last(), "notes for plan #1")
	b.processMessage(&tgbotapi.Message{Text: "bought_injera early", From: &tgbotapi.User{ID: memberID}, Chat: &tgbotapi.Chat{ID: memberID}})
	assert.Contains(t, api.last(), `bought\_injera early`)

	history, err := b.app.History(ctx, userID, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "bought_injera early", history[0].Notes)
	assert.Len(t, history[0].Meals, 2)

	b.processMessage(command(memberID, "/usage"))
	assert.Contains(t, api.last(), "Plans: 1")

	b.processMessage(command(memberID, "/history"))
	assert.Contains(t, api.last(), "*#1*")

	b.processMessage(command(memberID, "/shopping"))
	assert.Contains(t, api.last(), "Shopping List* (1 plans)")
}

func TestBotRejectsOtherUsersPlans(t *testing.T) {
	b, api := newTestBot(t)
	b.processMessage(command(memberID, "/plan"))
	b.handleCallbackQuery(callback(adminID, "remove|1|Breakfast"))
	assert.Contains(t, api.last(), "no longer exists")
	b.handleCallbackQuery(callback(adminID, "delete|1"))
	assert.Contains(t, api.last(), "no longer exists")
}

func TestBotDeletePlan(t *testing.T) {
	b, api := newTestBot(t)
	b.processMessage(command(memberID, "/plan"))
	require.Contains(t, api.last(), "Meal Plan #1")

	b.handleCallbackQuery(callback(memberID, "delete|1"))
	edit, ok := api.sent[len(api.sent)-1].(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.Equal(t, "🗑 Plan #1 deleted.", edit.Text)
	assert.Nil(t, edit.ReplyMarkup)

	b.processMessage(command(memberID, "/history"))
	assert.Contains(t, api.last(), "No plans yet")
}

func TestParseCallback(t *testing.T) {
	cb, err := parseCallback("remove|7|lunch")
	require.NoError(t, err)
	assert.Equal(t, callbackData{Action: actionRemove, PlanID: 7, MealType: planner.MealLunch}, cb)

	cb, err = parseCallback("delete|7")
	require.NoError(t, err)
	assert.Equal(t, actionDelete, cb.Action)

	for _, bad := range []string{"remove|7|1", "remove|7", "delete|x", "dance|7", "analyze"} {
		_, err := parseCallback(bad)
		assert.Error(t, err, bad)
	}
}

func TestBotCommands(t *testing.T) {
	t.Run("BadBudget", func(t *testing.T) {
		b, api := newTestBot(t)
		b.processMessage(command(memberID, "/budget lots"))
		assert.Contains(t, api.last(), "Usage: /budget")
		b.processMessage(command(memberID, "/budget inf"))
		assert.Contains(t, api.last(), "Usage: /budget")
	})

	t.Run("Profile", func(t *testing.T) {
		b, api := newTestBot(t)
		b.processMessage(command(memberID, "/goal gain muscle"))
		b.processMessage(command(memberID, "/profile"))
		assert.Contains(t, api.last(), "Goal: gain muscle")
		assert.Contains(t, api.last(), "Allergies: _not set_")
	})

	t.Run("MetricsAdminOnly", func(t *testing.T) {
		b, api := newTestBot(t)
		b.processMessage(command(memberID, "/metrics"))
		assert.Contains(t, api.last(), "Access Denied")

		b.processMessage(command(adminID, "/metrics"))
		assert.Contains(t, api.last(), "Usage & Health Report")
	})

	t.Run("TextWithoutSessionShowsHelp", func(t *testing.T) {
		b, api := newTestBot(t)
		b.processMessage(&tgbotapi.Message{Text: "hello", From: &tgbotapi.User{ID: memberID}, Chat: &tgbotapi.Chat{ID: memberID}})
		assert.Equal(t, helpText, api.last())
	})

	t.Run("UnknownCommand", func(t *testing.T) {
		b, api := newTestBot(t)
		b.processMessage(command(memberID, "/dance"))
		assert.Contains(t, api.last(), "Unknown command")
	})
}

func TestHandleWebhook(t *testing.T) {
	b, api := newTestBot(t)
	mux := http.NewServeMux()
	b.RegisterHandlers(mux)

	post := func(body string) int {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body)))
		return rec.Code
	}

	assert.Equal(t, http.StatusBadRequest, post("{"))

	stranger := `{"update_id":1,"message":{"message_id":1,"from":{"id":99},"chat":{"id":99},"text":"/plan","entities":[{"type":"bot_command","offset":0,"length":5}]}}`
	assert.Equal(t, http.StatusOK, post(stranger))
	assert.Empty(t, api.sent, "unauthorized users get no reply")

	member := `{"update_id":2,"message":{"message_id":2,"from":{"id":43},"chat":{"id":43},"text":"/help","entities":[{"type":"bot_command","offset":0,"length":5}]}}`
	assert.Equal(t, http.StatusOK, post(member))
	assert.Equal(t, helpText, api.last())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "OK", rec.Body.String())
}

func TestConcurrentSessionCreateKeepsOne(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBot(t)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.sessions.Create(ctx, "u1", SessionAwaitingNotes, SessionContextData{PlanID: int64(i)}, time.Minute)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var live int
	require.NoError(t, b.sessions.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE user_id = ?`, "u1").Scan(&live))
	assert.Equal(t, 1, live)
}

func TestDrainWaitsForHandlers(t *testing.T) {
	b, api := newTestBot(t)
	b.dispatch = b.goTracked

	release := make(chan struct{})
	b.dispatch(func() {
		<-release
		b.processMessage(command(memberID, "/help"))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, b.Drain(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, b.Drain(context.Background()))
	assert.Equal(t, helpText, api.last())
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBot(t)
	repo := b.sessions

	_, err := repo.Create(ctx, "u1", SessionAwaitingNotes, SessionContextData{PlanID: 3}, time.Minute)
	require.NoError(t, err)
	_, err = repo.Create(ctx, "u1", SessionAwaitingNotes, SessionContextData{PlanID: 4}, time.Minute)
	require.NoError(t, err)

	s, err := repo.GetActive(ctx, "u1", time.Now())
	require.NoError(t, err)
	require.NotNil(t, s)
	data, err := s.GetContextData()
	require.NoError(t, err)
	assert.Equal(t, int64(4), data.PlanID, "a new session replaces the old one")

	s, err = repo.GetActive(ctx, "u1", time.Now().Add(2*time.Minute))
	require.NoError(t, err)
	assert.Nil(t, s, "expired sessions are not active")

	var live int
	require.NoError(t, b.sessions.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE user_id = ?`, "u1").Scan(&live))
	assert.Equal(t, 1, live)

	_, err = repo.Create(ctx, "u2", SessionAwaitingNotes, SessionContextData{PlanID: 1}, -time.Minute)
	require.NoError(t, err)
	n, err := repo.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
