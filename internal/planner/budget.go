package planner

import (
	"math"
	"time"

	"budget-meal-planner/internal/catalog"
)

const (
	daysPerMonth = 30
	// DefaultBudgetTolerance allows 10% over the daily ceiling.
	DefaultBudgetTolerance = 1.10
)

// DailyCeiling converts a monthly budget into a per-day spending ceiling.
// Budgets that are not a positive finite number yield 0; profile validation
// rejects NaN and infinite budgets before they reach the planner.
func DailyCeiling(monthlyBudget float64) float64 {
	if !(monthlyBudget > 0) || math.IsInf(monthlyBudget, 0) {
		return 0
	}
	return monthlyBudget / daysPerMonth
}

// Filter returns, in catalog order, the combinations whose total fits under the
// daily ceiling scaled by tolerance.
func Filter(cat *catalog.Catalog, monthlyBudget, tolerance float64) []catalog.MealCombination {
	if tolerance <= 0 {
		tolerance = DefaultBudgetTolerance
	}
	limit := DailyCeiling(monthlyBudget) * tolerance

	var out []catalog.MealCombination
	for _, m := range cat.All() {
		if m.Total <= limit {
			out = append(out, m)
		}
	}
	return out
}

// FallbackCheapest returns the combination with the lowest total, ties going
// to the lowest id. ok is false for an empty catalog.
func FallbackCheapest(cat *catalog.Catalog) (catalog.MealCombination, bool) {
	all := cat.All()
	if len(all) == 0 {
		return catalog.MealCombination{}, false
	}
	best := all[0]
	for _, m := range all[1:] {
		if m.Total < best.Total || (m.Total == best.Total && m.ID < best.ID) {
			best = m
		}
	}
	return best, true
}

// BudgetUsage is the month-to-date spend against a monthly budget.
type BudgetUsage struct {
	Month     time.Month
	Year      int
	Plans     int
	Spent     float64
	Budget    float64
	Remaining float64
	Percent   float64
}

// MonthlyUsage sums the plans dated in the calendar month of now.
func MonthlyUsage(plans []GeneratedPlan, monthlyBudget float64, now time.Time) BudgetUsage {
	u := BudgetUsage{Month: now.Month(), Year: now.Year(), Budget: math.Max(monthlyBudget, 0)}
	for _, p := range plans {
		d := p.Date.In(now.Location())
		if d.Year() != u.Year || d.Month() != u.Month {
			continue
		}
		u.Plans++
		u.Spent += p.TotalEstimatedCost
	}
	u.Remaining = math.Max(u.Budget-u.Spent, 0)
	if u.Budget > 0 {
		u.Percent = math.Min(u.Spent/u.Budget*100, 100)
	}
	return u
}
