package planner

import "budget-meal-planner/internal/catalog"

// DefaultVarietyWindow is how many recent plans are avoided.
const DefaultVarietyWindow = 5

// Exclude drops candidates served in the last window plans. recentIDs is
// ordered most recent first. Variety is a soft preference: when every
// candidate was served recently the input is returned unchanged.
func Exclude(candidates []catalog.MealCombination, recentIDs []int, window int) []catalog.MealCombination {
	if window <= 0 || len(recentIDs) == 0 || len(candidates) == 0 {
		return candidates
	}
	if len(recentIDs) > window {
		recentIDs = recentIDs[:window]
	}

	recent := make(map[int]struct{}, len(recentIDs))
	for _, id := range recentIDs {
		recent[id] = struct{}{}
	}

	out := make([]catalog.MealCombination, 0, len(candidates))
	for _, m := range candidates {
		if _, seen := recent[m.ID]; !seen {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return candidates
	}
	return out
}
