package planner

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDailyCeiling(t *testing.T) {
	assert.InDelta(t, 100.0, DailyCeiling(3000), 1e-9)
	assert.Zero(t, DailyCeiling(0))
	assert.Zero(t, DailyCeiling(-30))
	assert.Zero(t, DailyCeiling(math.NaN()))
	assert.Zero(t, DailyCeiling(math.Inf(1)))
}

func TestFilter(t *testing.T) {
	cat := mustCatalog(t,
		entry(1, 30, 30, 40),  // 100
		entry(2, 40, 40, 30),  // 110, exactly at the tolerance limit
		entry(3, 40, 40, 31),  // 111
		entry(4, 20, 20, 20),  // 60
	)

	t.Run("ToleranceIsInclusive", func(t *testing.T) {
		assert.Equal(t, []int{1, 2, 4}, ids(Filter(cat, 3000, 1.10)))
	})

	t.Run("StrictTolerance", func(t *testing.T) {
		assert.Equal(t, []int{1, 4}, ids(Filter(cat, 3000, 1.0)))
	})

	t.Run("NonPositiveToleranceUsesDefault", func(t *testing.T) {
		assert.Equal(t, []int{1, 2, 4}, ids(Filter(cat, 3000, 0)))
	})

	t.Run("ZeroBudgetMatchesNothing", func(t *testing.T) {
		assert.Empty(t, Filter(cat, 0, 1.10))
	})
}

func TestFallbackCheapest(t *testing.T) {
	t.Run("LowestTotal", func(t *testing.T) {
		cat := mustCatalog(t, entry(5, 100, 100, 100), entry(2, 50, 50, 50), entry(9, 80, 80, 80))
		got, ok := FallbackCheapest(cat)
		assert.True(t, ok)
		assert.Equal(t, 2, got.ID)
	})

	t.Run("TiesGoToLowestID", func(t *testing.T) {
		cat := mustCatalog(t, entry(7, 10, 10, 10), entry(3, 10, 10, 10), entry(5, 20, 20, 20))
		got, ok := FallbackCheapest(cat)
		assert.True(t, ok)
		assert.Equal(t, 3, got.ID)
	})

	t.Run("EmptyCatalog", func(t *testing.T) {
		_, ok := FallbackCheapest(mustCatalog(t))
		assert.False(t, ok)
	})
}

func TestMonthlyUsage(t *testing.T) {
	now := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	plans := []GeneratedPlan{
		{Date: time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC), TotalEstimatedCost: 175},
		{Date: time.Date(2024, time.March, 14, 8, 0, 0, 0, time.UTC), TotalEstimatedCost: 325},
		{Date: time.Date(2024, time.February, 29, 8, 0, 0, 0, time.UTC), TotalEstimatedCost: 1000},
		{Date: time.Date(2023, time.March, 10, 8, 0, 0, 0, time.UTC), TotalEstimatedCost: 1000},
	}

	t.Run("CurrentMonthOnly", func(t *testing.T) {
		u := MonthlyUsage(plans, 5000, now)
		assert.Equal(t, time.March, u.Month)
		assert.Equal(t, 2024, u.Year)
		assert.Equal(t, 2, u.Plans)
		assert.InDelta(t, 500.0, u.Spent, 1e-9)
		assert.InDelta(t, 4500.0, u.Remaining, 1e-9)
		assert.InDelta(t, 10.0, u.Percent, 1e-9)
	})

	t.Run("OverspendIsCapped", func(t *testing.T) {
		u := MonthlyUsage(plans, 300, now)
		assert.Zero(t, u.Remaining)
		assert.InDelta(t, 100.0, u.Percent, 1e-9)
	})

	t.Run("NoBudget", func(t *testing.T) {
		u := MonthlyUsage(plans, 0, now)
		assert.Zero(t, u.Percent)
		assert.InDelta(t, 500.0, u.Spent, 1e-9)
	})
}
