package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"budget-meal-planner/internal/shared"
)

// ExecutionMetric records metadata for a single external call.
type ExecutionMetric struct {
	AgentName        string
	Model            string
	PromptTokens     int
	CompletionTokens int
	LatencyMS        int64
	Fallback         bool
	Timestamp        time.Time
}

// Store handles persistence of metrics to SQLite. It does not own the connection.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Record saves a metric to the database.
func (s *Store) Record(ctx context.Context, m ExecutionMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO execution_metrics (agent_name, model, prompt_tokens, completion_tokens, latency_ms, fallback, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.AgentName, m.Model, m.PromptTokens, m.CompletionTokens, m.LatencyMS, m.Fallback, ts.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record metric for %s: %w", m.AgentName, err)
	}
	return nil
}

// RecordMeta records metrics directly from shared.AgentMeta. Calls that used
// no tokens and did not fall back are skipped.
func (s *Store) RecordMeta(ctx context.Context, meta shared.AgentMeta) error {
	if meta.Usage.Total() == 0 && !meta.Fallback {
		return nil
	}
	m := MapUsage(meta.AgentName, meta.Usage, meta.Latency)
	m.Fallback = meta.Fallback
	m.Timestamp = s.now()
	return s.Record(ctx, m)
}

// DailyUsage represents token totals for a single day.
type DailyUsage struct {
	Date            string
	TotalPrompt     int
	TotalCompletion int
	TotalExecution  int
	Fallbacks       int
}

// GetDailyUsage retrieves usage for the last N days, newest day first.
func (s *Store) GetDailyUsage(ctx context.Context, days int) ([]DailyUsage, error) {
	since := s.now().AddDate(0, 0, -days).Unix()
	rows, err := s.db.QueryContext(ctx,
		`SELECT date(timestamp, 'unixepoch') AS day,
		        COALESCE(SUM(prompt_tokens), 0),
		        COALESCE(SUM(completion_tokens), 0),
		        COUNT(*),
		        COALESCE(SUM(fallback), 0)
		 FROM execution_metrics
		 WHERE timestamp >= ?
		 GROUP BY day
		 ORDER BY day DESC`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	defer rows.Close()

	var results []DailyUsage
	for rows.Next() {
		var u DailyUsage
		if err := rows.Scan(&u.Date, &u.TotalPrompt, &u.TotalCompletion, &u.TotalExecution, &u.Fallbacks); err != nil {
			return nil, fmt.Errorf("failed to scan daily usage: %w", err)
		}
		results = append(results, u)
	}
	return results, rows.Err()
}

// Cleanup removes records older than the specified number of days and
// reports how many were deleted.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := s.now().AddDate(0, 0, -olderThanDays).Unix()
	res, err := s.db.ExecContext(ctx, `DELETE FROM execution_metrics WHERE timestamp < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up metrics: %w", err)
	}
	return res.RowsAffected()
}

// MapUsage converts shared.TokenUsage to an ExecutionMetric.
func MapUsage(agentName string, usage shared.TokenUsage, latency time.Duration) ExecutionMetric {
	return ExecutionMetric{
		AgentName:        agentName,
		Model:            usage.Model,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		LatencyMS:        latency.Milliseconds(),
		Timestamp:        time.Now().UTC(),
	}
}
