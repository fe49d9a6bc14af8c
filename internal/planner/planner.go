package planner

import (
	"context"
	"fmt"
	"time"

	"budget-meal-planner/internal/catalog"
	"budget-meal-planner/internal/logger"
	"budget-meal-planner/internal/profile"
	"budget-meal-planner/internal/shared"

	"github.com/google/uuid"
)

// Settings tune a Planner.
type Settings struct {
	BudgetTolerance float64
	VarietyWindow   int
	ShortlistSize   int
	Calories        SlotCalories
}

// DefaultSettings returns the stock tuning.
func DefaultSettings() Settings {
	return Settings{
		BudgetTolerance: DefaultBudgetTolerance,
		VarietyWindow:   DefaultVarietyWindow,
		ShortlistSize:   DefaultShortlistSize,
		Calories:        DefaultSlotCalories(),
	}
}

// HistorySource returns the catalog ids of a user's recent plans, most recent first.
type HistorySource interface {
	RecentMealIDs(ctx context.Context, userID string, limit int) ([]int, error)
}

// Planner handles the generation of daily meal plans.
type Planner struct {
	catalog   *catalog.Catalog
	strategy  Strategy
	formatter *Formatter
	history   HistorySource
	settings  Settings
	log       *logger.Logger
}

// NewPlanner creates a new Planner instance. history may be nil, in which
// case no variety exclusion is applied.
func NewPlanner(
	cat *catalog.Catalog,
	strategy Strategy,
	history HistorySource,
	settings Settings,
	log *logger.Logger,
) *Planner {
	return &Planner{
		catalog:   cat,
		strategy:  strategy,
		formatter: NewFormatter(settings.Calories),
		history:   history,
		settings:  settings,
		log:       logger.OrNop(log),
	}
}

// WithClock overrides the time source used to date plans.
func (p *Planner) WithClock(now func() time.Time) *Planner {
	p.formatter.Now = now
	return p
}

// Candidates narrows the catalog for a monthly budget, falling back to the
// cheapest combination when nothing is affordable. It is empty only for an
// empty catalog.
func (p *Planner) Candidates(monthlyBudget float64) (candidates []catalog.MealCombination, fellBack bool) {
	candidates = Filter(p.catalog, monthlyBudget, p.settings.BudgetTolerance)
	if len(candidates) > 0 {
		return candidates, false
	}
	cheapest, ok := FallbackCheapest(p.catalog)
	if !ok {
		return nil, true
	}
	return []catalog.MealCombination{cheapest}, true
}

// GeneratePlan creates a plan for one day under the profile's budget.
func (p *Planner) GeneratePlan(
	ctx context.Context,
	userID string,
	prof profile.Profile,
) (*GeneratedPlan, []shared.AgentMeta, error) {
	if err := prof.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	log := p.log.With("request_id", uuid.NewString(), "user_id", userID)

	candidates, fellBack := p.Candidates(prof.MonthlyBudget)
	if len(candidates) == 0 {
		log.Warn("catalog is empty, serving the staple day")
		plan := p.formatter.Format(catalog.Staple())
		plan.UserID = userID
		return &plan, nil, nil
	}
	if fellBack {
		log.Info("no combination fits the budget, using the cheapest",
			"monthly_budget", prof.MonthlyBudget,
			"meal_id", candidates[0].ID,
		)
	}

	var recent []int
	if p.history != nil && p.settings.VarietyWindow > 0 {
		ids, err := p.history.RecentMealIDs(ctx, userID, p.settings.VarietyWindow)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load recent plans: %w", err)
		}
		recent = ids
	}
	narrowed := Exclude(candidates, recent, p.settings.VarietyWindow)

	choice, err := p.strategy.Select(ctx, SelectionRequest{
		Candidates:   narrowed,
		Profile:      prof,
		RecentIDs:    recent,
		DailyCeiling: DailyCeiling(prof.MonthlyBudget),
	})
	if err != nil {
		return nil, nil, err
	}

	var metas []shared.AgentMeta
	if choice.Meta != nil {
		metas = append(metas, *choice.Meta)
	}

	plan := p.formatter.Format(choice.Combination)
	plan.UserID = userID

	log.Info("meal plan generated",
		"meal_id", plan.MealID,
		"source", choice.Source,
		"candidates", len(narrowed),
		"total_cost", plan.TotalEstimatedCost,
	)
	return &plan, metas, nil
}
