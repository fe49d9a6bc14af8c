package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository is a database-backed repository for user profiles.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

// Save inserts or replaces the profile of p.UserID.
func (r *Repository) Save(ctx context.Context, p Profile) error {
	if p.UserID == "" {
		return fmt.Errorf("profile has no user id")
	}
	if err := p.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO profiles (user_id, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		p.UserID, string(data), time.Now().UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save profile for user %s: %w", p.UserID, err)
	}
	return nil
}

// Get returns the stored profile, or an empty profile for an unknown user.
func (r *Repository) Get(ctx context.Context, userID string) (Profile, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM profiles WHERE user_id = ?`, userID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{UserID: userID}, nil
	}
	if err != nil {
		return Profile{}, fmt.Errorf("failed to get profile for user %s: %w", userID, err)
	}

	var p Profile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return Profile{}, fmt.Errorf("failed to unmarshal profile JSON: %w", err)
	}
	p.UserID = userID
	return p, nil
}
