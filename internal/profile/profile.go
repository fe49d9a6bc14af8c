package profile

import (
	"fmt"
	"math"
	"strings"
)

// Profile is the per-user input to plan generation.
//
// DietaryRestrictions and Allergies are collected and passed to the external
// scoring call, but the catalog carries no tags, so local selection does not
// filter on them.
type Profile struct {
	UserID              string   `json:"user_id"`
	MonthlyBudget       float64  `json:"monthly_budget"`
	Goals               string   `json:"goals,omitempty"`
	DietaryRestrictions []string `json:"dietary_restrictions,omitempty"`
	Allergies           []string `json:"allergies,omitempty"`
	ActivityLevel       string   `json:"activity_level,omitempty"`
}

// Validate rejects budgets that cannot be divided into a daily ceiling.
// A zero budget is valid.
func (p Profile) Validate() error {
	if math.IsNaN(p.MonthlyBudget) || math.IsInf(p.MonthlyBudget, 0) {
		return fmt.Errorf("monthly budget must be a finite number")
	}
	if p.MonthlyBudget < 0 {
		return fmt.Errorf("monthly budget must not be negative, got %.2f", p.MonthlyBudget)
	}
	return nil
}

// ParseList splits a comma separated user entry into trimmed, non-empty values.
func ParseList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
