package planner

import (
	"fmt"
	"strings"
	"time"

	"budget-meal-planner/internal/catalog"
)

// SlotCalories are fixed placeholder calories per slot. The catalog has no
// nutrition data, so these are configuration rather than computed values.
type SlotCalories struct {
	Breakfast int
	Lunch     int
	Dinner    int
}

// DefaultSlotCalories returns 400/600/500 kcal.
func DefaultSlotCalories() SlotCalories {
	return SlotCalories{Breakfast: 400, Lunch: 600, Dinner: 500}
}

var slotInstructions = map[MealType]string{
	MealBreakfast: "Enjoy your delicious breakfast!",
	MealLunch:     "A hearty lunch to keep you going.",
	MealDinner:    "A nutritious dinner to end the day.",
}

// Formatter turns a catalog combination into a GeneratedPlan.
type Formatter struct {
	Calories SlotCalories
	Now      func() time.Time
}

// NewFormatter creates a Formatter stamping plans with the current UTC time.
func NewFormatter(calories SlotCalories) *Formatter {
	return &Formatter{
		Calories: calories,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// Format builds the plan for combo. Breakfast, lunch and dinner appear in that order.
func (f *Formatter) Format(combo catalog.MealCombination) GeneratedPlan {
	meals := []PlannedMeal{
		newPlannedMeal(MealBreakfast, combo.Breakfast, f.Calories.Breakfast),
		newPlannedMeal(MealLunch, combo.Lunch, f.Calories.Lunch),
		newPlannedMeal(MealDinner, combo.Dinner, f.Calories.Dinner),
	}
	cost, calories := totals(meals)
	return GeneratedPlan{
		Date:               f.Now(),
		TotalEstimatedCost: cost,
		TotalCalories:      calories,
		MealID:             combo.ID,
		Meals:              meals,
	}
}

func newPlannedMeal(t MealType, item catalog.Item, calories int) PlannedMeal {
	return PlannedMeal{
		Type:         t,
		Name:         item.Name,
		Cost:         item.Price,
		Calories:     calories,
		Ingredients:  []string{item.Name},
		Instructions: slotInstructions[t],
	}
}

func totals(meals []PlannedMeal) (float64, int) {
	var cost float64
	var calories int
	for _, m := range meals {
		cost += m.Cost
		calories += m.Calories
	}
	return cost, calories
}

// RecomputeAfterMealRemoval returns a copy of plan without the meal at index,
// with cost and calories summed over the remaining meals. A plan always keeps
// at least one meal.
func RecomputeAfterMealRemoval(plan GeneratedPlan, index int) (GeneratedPlan, error) {
	if index < 0 || index >= len(plan.Meals) {
		return GeneratedPlan{}, fmt.Errorf("%w: meal index %d out of range (plan has %d meals)", ErrValidation, index, len(plan.Meals))
	}
	if len(plan.Meals) == 1 {
		return GeneratedPlan{}, fmt.Errorf("%w: cannot remove the last meal of a plan", ErrValidation)
	}

	meals := make([]PlannedMeal, 0, len(plan.Meals)-1)
	meals = append(meals, plan.Meals[:index]...)
	meals = append(meals, plan.Meals[index+1:]...)

	out := plan
	out.Meals = meals
	out.TotalEstimatedCost, out.TotalCalories = totals(meals)
	// The previous score described the removed meal too
	out.Analysis = nil
	return out, nil
}

// RemoveMealOfType drops the meal of slot t. Removing a slot that is already
// gone is rejected, so repeating a removal never subtracts twice.
func RemoveMealOfType(plan GeneratedPlan, t MealType) (GeneratedPlan, error) {
	for i, m := range plan.Meals {
		if m.Type == t {
			return RecomputeAfterMealRemoval(plan, i)
		}
	}
	return GeneratedPlan{}, fmt.Errorf("%w: plan has no %s anymore", ErrValidation, strings.ToLower(string(t)))
}

// WithNotes returns a copy of plan carrying the trimmed notes.
func WithNotes(plan GeneratedPlan, notes string) GeneratedPlan {
	plan.Notes = strings.TrimSpace(notes)
	return plan
}
