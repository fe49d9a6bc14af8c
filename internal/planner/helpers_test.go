package planner

import (
	"context"
	"testing"

	"budget-meal-planner/internal/catalog"
	"budget-meal-planner/internal/llm"
	"budget-meal-planner/internal/shared"

	"github.com/stretchr/testify/require"
)

// stubRand returns fixed draws and leaves shuffled slices in order.
type stubRand struct {
	n       int
	drawn   []int
	shuffle int
}

func (r *stubRand) IntN(n int) int {
	r.drawn = append(r.drawn, n)
	return r.n % n
}

func (r *stubRand) Shuffle(n int, swap func(i, j int)) {
	r.shuffle++
}

// reverseRand reverses the slice on Shuffle so tests can tell sampling happened.
type reverseRand struct{ stubRand }

func (r *reverseRand) Shuffle(n int, swap func(i, j int)) {
	r.shuffle++
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		swap(i, j)
	}
}

type MockTextGenerator struct {
	Content string
	Err     error
	Prompts []string
}

func (m *MockTextGenerator) GenerateContent(_ context.Context, prompt string) (llm.ContentResponse, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return llm.ContentResponse{}, m.Err
	}
	return llm.ContentResponse{
		Content: m.Content,
		Usage:   shared.TokenUsage{PromptTokens: 120, CompletionTokens: 8, TotalTokens: 128, Model: "mock"},
	}, nil
}

type stubHistory struct {
	ids []int
	err error
}

func (h stubHistory) RecentMealIDs(_ context.Context, _ string, limit int) ([]int, error) {
	if h.err != nil {
		return nil, h.err
	}
	if len(h.ids) > limit {
		return h.ids[:limit], nil
	}
	return h.ids, nil
}

func entry(id int, b, l, d float64) catalog.Entry {
	return catalog.Entry{
		ID:        id,
		Breakfast: catalog.Item{Name: "Breakfast", Price: b},
		Lunch:     catalog.Item{Name: "Lunch", Price: l},
		Dinner:    catalog.Item{Name: "Dinner", Price: d},
		Total:     b + l + d,
	}
}

func mustCatalog(t *testing.T, entries ...catalog.Entry) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Load(entries, catalog.DefaultThresholds())
	require.NoError(t, err)
	return cat
}

func ids(combos []catalog.MealCombination) []int {
	out := make([]int, 0, len(combos))
	for _, c := range combos {
		out = append(out, c.ID)
	}
	return out
}
