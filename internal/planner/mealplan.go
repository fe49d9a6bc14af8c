package planner

import (
	"fmt"
	"strings"
	"time"
)

// MealType tags a slot of the day.
type MealType string

const (
	MealBreakfast MealType = "Breakfast"
	MealLunch     MealType = "Lunch"
	MealDinner    MealType = "Dinner"
)

// ParseMealType accepts a slot name in any case.
func ParseMealType(s string) (MealType, error) {
	for _, t := range []MealType{MealBreakfast, MealLunch, MealDinner} {
		if strings.EqualFold(strings.TrimSpace(s), string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown meal %q", ErrValidation, s)
}

// PlannedMeal is one meal of a generated day.
type PlannedMeal struct {
	Type         MealType `json:"type"`
	Name         string   `json:"name"`
	Cost         float64  `json:"cost"`
	Calories     int      `json:"calories"`
	Ingredients  []string `json:"ingredients"`
	Instructions string   `json:"instructions"`
}

// Analysis is a 1-10 score with a short rationale.
type Analysis struct {
	Score   int    `json:"score"`
	Summary string `json:"summary"`
}

// GeneratedPlan is the persisted shape of a generated day.
type GeneratedPlan struct {
	ID                 int64         `json:"id,omitempty"` // Database ID for referencing
	UserID             string        `json:"user_id,omitempty"`
	Date               time.Time     `json:"date"`
	TotalEstimatedCost float64       `json:"total_estimated_cost"`
	TotalCalories      int           `json:"total_calories"`
	MealID             int           `json:"mealId,omitempty"` // Catalog combination, 0 for the staple day
	Meals              []PlannedMeal `json:"meals"`
	Notes              string        `json:"notes,omitempty"`
	Analysis           *Analysis     `json:"analysis,omitempty"`
}
