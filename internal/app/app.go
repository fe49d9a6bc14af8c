package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"budget-meal-planner/internal/catalog"
	"budget-meal-planner/internal/logger"
	"budget-meal-planner/internal/metrics"
	"budget-meal-planner/internal/planner"
	"budget-meal-planner/internal/profile"
	"budget-meal-planner/internal/shared"
	"budget-meal-planner/internal/shopping"
)

// App holds the application's dependencies.
type App struct {
	catalog      *catalog.Catalog
	mealPlanner  *planner.Planner
	analyzer     planner.Analyzer
	planRepo     *planner.PlanRepository
	profileRepo  *profile.Repository
	metricsStore *metrics.Store
	log          *logger.Logger

	// editMu serialises read-modify-write updates of stored plans.
	editMu sync.Mutex
}

// NewApp creates and initializes a new App instance.
func NewApp(
	cat *catalog.Catalog,
	mealPlanner *planner.Planner,
	analyzer planner.Analyzer,
	planRepo *planner.PlanRepository,
	profileRepo *profile.Repository,
	metricsStore *metrics.Store,
	log *logger.Logger,
) *App {
	return &App{
		catalog:      cat,
		mealPlanner:  mealPlanner,
		analyzer:     analyzer,
		planRepo:     planRepo,
		profileRepo:  profileRepo,
		metricsStore: metricsStore,
		log:          logger.OrNop(log),
	}
}

// Catalog returns the loaded catalog.
func (a *App) Catalog() *catalog.Catalog {
	return a.catalog
}

// GenerateMealPlan creates and stores a plan for the user's saved profile.
func (a *App) GenerateMealPlan(ctx context.Context, userID string) (*planner.GeneratedPlan, error) {
	prof, err := a.profileRepo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	plan, metas, err := a.mealPlanner.GeneratePlan(ctx, userID, prof)
	if err != nil {
		return nil, fmt.Errorf("failed to generate plan: %w", err)
	}
	a.recordMetas(ctx, metas...)

	if _, err := a.planRepo.Save(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to save plan: %w", err)
	}
	return plan, nil
}

// AnalyzePlan scores a stored plan and attaches the analysis to it.
func (a *App) AnalyzePlan(ctx context.Context, userID string, planID int64) (*planner.GeneratedPlan, error) {
	a.editMu.Lock()
	defer a.editMu.Unlock()

	plan, err := a.ownedPlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}

	analysis, meta := a.analyzer.Analyze(ctx, plan)
	if meta != nil {
		a.recordMetas(ctx, *meta)
	}

	plan.Analysis = &analysis
	if err := a.planRepo.Update(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to store analysis: %w", err)
	}
	return plan, nil
}

// RemoveMeal drops the meal of slot mealType from a stored plan and recomputes
// its totals. Removing a slot that is already gone fails with ErrValidation.
func (a *App) RemoveMeal(ctx context.Context, userID string, planID int64, mealType planner.MealType) (*planner.GeneratedPlan, error) {
	a.editMu.Lock()
	defer a.editMu.Unlock()

	plan, err := a.ownedPlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}

	updated, err := planner.RemoveMealOfType(*plan, mealType)
	if err != nil {
		return nil, err
	}
	if err := a.planRepo.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to store plan: %w", err)
	}
	return &updated, nil
}

// UpdateNotes replaces the free-text notes of a stored plan.
func (a *App) UpdateNotes(ctx context.Context, userID string, planID int64, notes string) (*planner.GeneratedPlan, error) {
	a.editMu.Lock()
	defer a.editMu.Unlock()

	plan, err := a.ownedPlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}

	updated := planner.WithNotes(*plan, notes)
	if err := a.planRepo.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to store plan: %w", err)
	}
	return &updated, nil
}

// DeletePlan removes one of the user's stored plans.
func (a *App) DeletePlan(ctx context.Context, userID string, planID int64) error {
	a.editMu.Lock()
	defer a.editMu.Unlock()

	if _, err := a.ownedPlan(ctx, userID, planID); err != nil {
		return err
	}
	if err := a.planRepo.Delete(ctx, planID); err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	return nil
}

// BudgetUsage reports the user's spend in the calendar month of now.
func (a *App) BudgetUsage(ctx context.Context, userID string, now time.Time) (planner.BudgetUsage, error) {
	prof, err := a.profileRepo.Get(ctx, userID)
	if err != nil {
		return planner.BudgetUsage{}, fmt.Errorf("failed to load profile: %w", err)
	}

	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	plans, err := a.planRepo.ListBetween(ctx, userID, from, from.AddDate(0, 1, 0))
	if err != nil {
		return planner.BudgetUsage{}, fmt.Errorf("failed to load plans: %w", err)
	}
	return planner.MonthlyUsage(plans, prof.MonthlyBudget, now), nil
}

// SaveProfile stores the profile under userID.
func (a *App) SaveProfile(ctx context.Context, userID string, p profile.Profile) error {
	p.UserID = userID
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", planner.ErrValidation, err)
	}
	if err := a.profileRepo.Save(ctx, p); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// Profile returns the stored profile, or an empty one for a new user.
func (a *App) Profile(ctx context.Context, userID string) (profile.Profile, error) {
	return a.profileRepo.Get(ctx, userID)
}

// UpdateProfile applies fn to the stored profile and saves the result.
func (a *App) UpdateProfile(ctx context.Context, userID string, fn func(*profile.Profile)) (profile.Profile, error) {
	p, err := a.profileRepo.Get(ctx, userID)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("failed to load profile: %w", err)
	}
	fn(&p)
	if err := a.SaveProfile(ctx, userID, p); err != nil {
		return profile.Profile{}, err
	}
	return p, nil
}

// History returns the user's most recent plans, newest first.
func (a *App) History(ctx context.Context, userID string, limit int) ([]planner.GeneratedPlan, error) {
	plans, err := a.planRepo.ListRecentByUserID(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return plans, nil
}

// ShoppingList merges the meals of the user's last limit plans.
func (a *App) ShoppingList(ctx context.Context, userID string, limit int) (shopping.ShoppingList, error) {
	plans, err := a.History(ctx, userID, limit)
	if err != nil {
		return shopping.ShoppingList{}, err
	}
	return shopping.FromPlans(userID, plans), nil
}

// DailyMetrics returns external call usage for the last days.
func (a *App) DailyMetrics(ctx context.Context, days int) ([]metrics.DailyUsage, error) {
	return a.metricsStore.GetDailyUsage(ctx, days)
}

// CleanupMetrics deletes execution metrics older than days.
func (a *App) CleanupMetrics(ctx context.Context, days int) (int64, error) {
	return a.metricsStore.Cleanup(ctx, days)
}

func (a *App) ownedPlan(ctx context.Context, userID string, planID int64) (*planner.GeneratedPlan, error) {
	plan, err := a.planRepo.Get(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.UserID != userID {
		return nil, fmt.Errorf("%w: id %d", planner.ErrPlanNotFound, planID)
	}
	return plan, nil
}

// Metrics are best effort; a failed write never fails the request.
func (a *App) recordMetas(ctx context.Context, metas ...shared.AgentMeta) {
	if a.metricsStore == nil {
		return
	}
	for _, meta := range metas {
		if err := a.metricsStore.RecordMeta(ctx, meta); err != nil {
			a.log.Warn("failed to record metrics", "agent", meta.AgentName, "error", err)
		}
	}
}
