package shopping

import (
	"slices"
	"strings"

	"budget-meal-planner/internal/planner"
)

// Item is one thing to buy, merged across plans by name.
type Item struct {
	Name      string  `json:"name"`
	Count     int     `json:"count"`
	TotalCost float64 `json:"total_cost"`
}

// ShoppingList represents what to buy for a set of plans.
type ShoppingList struct {
	UserID    string  `json:"user_id"`
	PlanIDs   []int64 `json:"plan_ids"`
	Items     []Item  `json:"items"`
	TotalCost float64 `json:"total_cost"`
}

// FromPlans merges the meals of plans into one list. Each meal contributes its
// cost once, split evenly over its ingredients. Items are sorted by name,
// case-insensitively.
func FromPlans(userID string, plans []planner.GeneratedPlan) ShoppingList {
	list := ShoppingList{UserID: userID}
	byName := map[string]int{}

	for _, p := range plans {
		list.PlanIDs = append(list.PlanIDs, p.ID)
		for _, m := range p.Meals {
			ingredients := m.Ingredients
			if len(ingredients) == 0 {
				ingredients = []string{m.Name}
			}
			share := m.Cost / float64(len(ingredients))
			for _, name := range ingredients {
				key := strings.ToLower(strings.TrimSpace(name))
				i, ok := byName[key]
				if !ok {
					i = len(list.Items)
					byName[key] = i
					list.Items = append(list.Items, Item{Name: strings.TrimSpace(name)})
				}
				list.Items[i].Count++
				list.Items[i].TotalCost += share
			}
			list.TotalCost += m.Cost
		}
	}

	slices.SortFunc(list.Items, func(a, b Item) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return list
}
