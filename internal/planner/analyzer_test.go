package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func planWith(calories int, cost float64) *GeneratedPlan {
	return &GeneratedPlan{
		ID:                 1,
		TotalCalories:      calories,
		TotalEstimatedCost: cost,
		Meals: []PlannedMeal{
			{Type: MealBreakfast, Name: "Kinche", Cost: cost / 2, Calories: calories / 2},
			{Type: MealDinner, Name: "Beyaynetu", Cost: cost / 2, Calories: calories - calories/2},
		},
	}
}

func TestLocalAnalyzer(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		calories int
		cost     float64
		want     int
	}{
		{"HealthyAndCheap", 1600, 300, 9},
		{"TooManyCaloriesAndCostly", 3000, 800, 6},
		{"HealthyAndCostly", 1500, 650, 8},
		{"MiddlingAndCheap", 1300, 200, 8},
		{"TooFewCalories", 900, 120, 7},
		{"BandEdgesInclusive", 2000, 500, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, meta := LocalAnalyzer{}.Analyze(ctx, planWith(tt.calories, tt.cost))
			assert.Nil(t, meta)
			assert.Equal(t, tt.want, a.Score)
			assert.GreaterOrEqual(t, a.Score, 1)
			assert.LessOrEqual(t, a.Score, 10)
			assert.NotEmpty(t, a.Summary)
		})
	}

	t.Run("SummaryCitesTotals", func(t *testing.T) {
		a, _ := LocalAnalyzer{}.Analyze(ctx, planWith(1500, 170))
		assert.Contains(t, a.Summary, "1500 kcal")
		assert.Contains(t, a.Summary, "170 ETB")
	})

	t.Run("NilPlan", func(t *testing.T) {
		a, _ := LocalAnalyzer{}.Analyze(ctx, nil)
		assert.Equal(t, baseScore, a.Score)
		assert.Equal(t, genericSummary, a.Summary)
	})
}

func TestDelegatedAnalyzer(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		gen := &MockTextGenerator{Content: `{"score": 8, "summary": "Balanced and cheap."}`}
		a, meta := (&DelegatedAnalyzer{TextGen: gen}).Analyze(ctx, planWith(1500, 170))

		assert.Equal(t, Analysis{Score: 8, Summary: "Balanced and cheap."}, a)
		require.NotNil(t, meta)
		assert.Equal(t, "Analyst", meta.AgentName)
		assert.False(t, meta.Fallback)
		require.Len(t, gen.Prompts, 1)
		assert.Contains(t, gen.Prompts[0], "Kinche")
		assert.Contains(t, gen.Prompts[0], "1500 kcal for 170.00 ETB")
	})

	failures := []struct {
		name    string
		content string
		err     error
	}{
		{"GeneratorError", "", errors.New("timeout")},
		{"Malformed", `{"score":`, nil},
		{"MissingScore", `{"summary": "ok"}`, nil},
		{"ScoreOutOfRange", `{"score": 11, "summary": "ok"}`, nil},
		{"FractionalScore", `{"score": 7.5, "summary": "ok"}`, nil},
		{"EmptySummary", `{"score": 7, "summary": "  "}`, nil},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			gen := &MockTextGenerator{Content: tt.content, Err: tt.err}
			a, meta := (&DelegatedAnalyzer{TextGen: gen}).Analyze(ctx, planWith(1600, 300))

			assert.Equal(t, 9, a.Score, "falls back to the local heuristic")
			require.NotNil(t, meta)
			assert.True(t, meta.Fallback)
		})
	}

	t.Run("NilPlanSkipsCall", func(t *testing.T) {
		gen := &MockTextGenerator{}
		a, meta := (&DelegatedAnalyzer{TextGen: gen}).Analyze(ctx, nil)
		assert.Equal(t, genericSummary, a.Summary)
		assert.Nil(t, meta)
		assert.Empty(t, gen.Prompts)
	})
}

func TestNewAnalyzer(t *testing.T) {
	assert.IsType(t, LocalAnalyzer{}, NewAnalyzer(nil, nil))
	assert.IsType(t, &DelegatedAnalyzer{}, NewAnalyzer(&MockTextGenerator{}, nil))
}
