package planner

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrPlanNotFound is returned when no stored plan matches.
var ErrPlanNotFound = errors.New("meal plan not found")

// PlanRepository is a database-backed repository for generated plans.
type PlanRepository struct {
	db *sql.DB
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(d *sql.DB) *PlanRepository {
	return &PlanRepository{db: d}
}

// Save inserts a new plan and returns its id. plan.ID is set on success.
func (r *PlanRepository) Save(ctx context.Context, plan *GeneratedPlan) (int64, error) {
	if plan == nil {
		return 0, fmt.Errorf("%w: nil plan", ErrValidation)
	}
	data, err := json.Marshal(plan)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal meal plan: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO meal_plans (user_id, meal_id, total_cost, plan_data, created_at) VALUES (?, ?, ?, ?, ?)`,
		plan.UserID, nullableMealID(plan.MealID), plan.TotalEstimatedCost, string(data), plan.Date.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert meal plan: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read meal plan id: %w", err)
	}
	plan.ID = id
	return id, nil
}

// Update rewrites a stored plan in place.
func (r *PlanRepository) Update(ctx context.Context, plan *GeneratedPlan) error {
	data, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to marshal meal plan: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE meal_plans SET meal_id = ?, total_cost = ?, plan_data = ? WHERE id = ?`,
		nullableMealID(plan.MealID), plan.TotalEstimatedCost, string(data), plan.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update meal plan %d: %w", plan.ID, err)
	}
	return expectOneRow(res, plan.ID)
}

// Delete removes a stored plan.
func (r *PlanRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM meal_plans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete meal plan %d: %w", id, err)
	}
	return expectOneRow(res, id)
}

// Get loads a plan by id.
func (r *PlanRepository) Get(ctx context.Context, id int64) (*GeneratedPlan, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, plan_data FROM meal_plans WHERE id = ?`, id)
	plan, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrPlanNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meal plan %d: %w", id, err)
	}
	return plan, nil
}

// ListRecentByUserID retrieves the N most recent plans for a user, newest first.
func (r *PlanRepository) ListRecentByUserID(ctx context.Context, userID string, limit int) ([]GeneratedPlan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, plan_data FROM meal_plans WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent meal plans for user %s: %w", userID, err)
	}
	return collectPlans(rows)
}

// ListBetween returns a user's plans dated in [from, to), oldest first.
func (r *PlanRepository) ListBetween(ctx context.Context, userID string, from, to time.Time) ([]GeneratedPlan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, plan_data FROM meal_plans WHERE user_id = ? AND created_at >= ? AND created_at < ? ORDER BY created_at, id`,
		userID, from.Unix(), to.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list meal plans for user %s: %w", userID, err)
	}
	return collectPlans(rows)
}

// RecentMealIDs returns the catalog ids of the user's last limit plans, newest
// first. Plans without a catalog id are skipped but still count toward limit.
func (r *PlanRepository) RecentMealIDs(ctx context.Context, userID string, limit int) ([]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT meal_id FROM meal_plans WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent meal ids for user %s: %w", userID, err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id sql.NullInt64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan meal id: %w", err)
		}
		if id.Valid {
			ids = append(ids, int(id.Int64))
		}
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*GeneratedPlan, error) {
	var (
		id     int64
		userID string
		data   []byte
	)
	if err := row.Scan(&id, &userID, &data); err != nil {
		return nil, err
	}
	var plan GeneratedPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("failed to unmarshal meal plan %d: %w", id, err)
	}
	plan.ID = id
	plan.UserID = userID
	return &plan, nil
}

func collectPlans(rows *sql.Rows) ([]GeneratedPlan, error) {
	defer rows.Close()

	var plans []GeneratedPlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *plan)
	}
	return plans, rows.Err()
}

func expectOneRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrPlanNotFound, id)
	}
	return nil
}

// Id 0 is the staple day, which is not a catalog entry.
func nullableMealID(id int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(id), Valid: id != 0}
}
