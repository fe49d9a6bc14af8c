package telegram

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Session types.
const (
	SessionAwaitingNotes = "awaiting_notes"
)

// Session is a pending conversational step, such as waiting for the notes of a plan.
type Session struct {
	ID          int64
	UserID      string
	SessionType string
	ContextData string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// SessionContextData holds structured data stored in the context_data JSON field
type SessionContextData struct {
	PlanID int64 `json:"plan_id"`
}

// SessionRepository provides access to session persistence operations
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository instance
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create opens a session for userID, replacing any session it already had.
func (sr *SessionRepository) Create(ctx context.Context, userID, sessionType string, contextData SessionContextData, ttl time.Duration) (int64, error) {
	jsonData, err := json.Marshal(contextData)
	if err != nil {
		return 0, err
	}
	now := time.Now()

	tx, err := sr.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin session transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID); err != nil {
		return 0, fmt.Errorf("failed to clear sessions for user %s: %w", userID, err)
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (user_id, session_type, context_data, expires_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		userID, sessionType, string(jsonData), now.Add(ttl).Unix(), now.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read session id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit session: %w", err)
	}
	return id, nil
}

// GetActive retrieves the most recent non-expired session for a user, or nil.
func (sr *SessionRepository) GetActive(ctx context.Context, userID string, now time.Time) (*Session, error) {
	var (
		s                    Session
		expiresAt, createdAt int64
	)
	err := sr.db.QueryRowContext(ctx,
		`SELECT id, user_id, session_type, context_data, expires_at, created_at
		 FROM sessions WHERE user_id = ? AND expires_at > ?
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
		userID, now.Unix(),
	).Scan(&s.ID, &s.UserID, &s.SessionType, &s.ContextData, &expiresAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}
	s.ExpiresAt = time.Unix(expiresAt, 0)
	s.CreatedAt = time.Unix(createdAt, 0)
	return &s, nil
}

// GetContextData unmarshals the context_data JSON field
func (s *Session) GetContextData() (SessionContextData, error) {
	var data SessionContextData
	err := json.Unmarshal([]byte(s.ContextData), &data)
	return data, err
}

// Delete removes a session
func (sr *SessionRepository) Delete(ctx context.Context, sessionID int64) error {
	_, err := sr.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
	return err
}

// CleanupExpired removes all expired sessions.
func (sr *SessionRepository) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := sr.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, time.Now().Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
