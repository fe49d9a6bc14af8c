package planner

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"budget-meal-planner/internal/llm"
	"budget-meal-planner/internal/logger"
	"budget-meal-planner/internal/shared"
)

//go:embed analyst_prompt.md
var analystPrompt string

// Local scoring heuristic.
const (
	baseScore          = 7
	healthyCaloriesMin = 1400
	healthyCaloriesMax = 2000
	poorCaloriesBelow  = 1200
	poorCaloriesAbove  = 2500
	// LowCostThreshold is the daily cost in ETB under which a plan earns a bonus.
	LowCostThreshold = 500.0
	minScore         = 1
	maxScore         = 10
)

const genericSummary = "A simple, affordable day of meals. Detailed analysis is unavailable right now."

// Analyzer scores a plan. It never fails; the returned meta is set when an
// external call was attempted.
type Analyzer interface {
	Analyze(ctx context.Context, plan *GeneratedPlan) (Analysis, *shared.AgentMeta)
}

// NewAnalyzer returns a DelegatedAnalyzer when textGen is set, else a LocalAnalyzer.
func NewAnalyzer(textGen llm.TextGenerator, log *logger.Logger) Analyzer {
	if textGen == nil {
		return LocalAnalyzer{}
	}
	return &DelegatedAnalyzer{TextGen: textGen, Logger: log}
}

// LocalAnalyzer scores from calorie and cost heuristics.
type LocalAnalyzer struct{}

func (LocalAnalyzer) Analyze(_ context.Context, plan *GeneratedPlan) (Analysis, *shared.AgentMeta) {
	return analyzeLocally(plan), nil
}

func analyzeLocally(plan *GeneratedPlan) Analysis {
	if plan == nil {
		return Analysis{Score: baseScore, Summary: genericSummary}
	}

	cost, calories := totals(plan.Meals)

	score := baseScore
	switch {
	case calories >= healthyCaloriesMin && calories <= healthyCaloriesMax:
		score++
	case calories < poorCaloriesBelow || calories > poorCaloriesAbove:
		score--
	}
	if cost < LowCostThreshold {
		score++
	}
	score = max(minScore, min(maxScore, score))

	return Analysis{
		Score: score,
		Summary: fmt.Sprintf(
			"This Ethiopian meal plan provides %d kcal for only %.0f ETB, combining traditional dishes with good nutritional value and affordability.",
			calories, cost,
		),
	}
}

// DelegatedAnalyzer asks a text generator for {score, summary} and falls back
// to the local heuristic on any failure.
type DelegatedAnalyzer struct {
	TextGen llm.TextGenerator
	Logger  *logger.Logger
}

type analystPromptData struct {
	Meals         []PlannedMeal
	TotalCalories int
	TotalCost     float64
}

func (a *DelegatedAnalyzer) Analyze(ctx context.Context, plan *GeneratedPlan) (Analysis, *shared.AgentMeta) {
	if plan == nil {
		return analyzeLocally(nil), nil
	}

	start := time.Now()
	result, usage, err := a.delegate(ctx, plan)
	meta := &shared.AgentMeta{
		AgentName: shared.AgentAnalyst,
		Usage:     usage,
		Latency:   time.Since(start),
	}
	if err != nil {
		logger.OrNop(a.Logger).Warn("delegated analysis failed, scoring locally", "error", err, "plan_id", plan.ID)
		meta.Fallback = true
		return analyzeLocally(plan), meta
	}
	return result, meta
}

func (a *DelegatedAnalyzer) delegate(ctx context.Context, plan *GeneratedPlan) (Analysis, shared.TokenUsage, error) {
	if a.TextGen == nil {
		return Analysis{}, shared.TokenUsage{}, fmt.Errorf("no text generator configured")
	}

	cost, calories := totals(plan.Meals)
	prompt, err := renderPrompt("analyst", analystPrompt, analystPromptData{
		Meals:         plan.Meals,
		TotalCalories: calories,
		TotalCost:     cost,
	})
	if err != nil {
		return Analysis{}, shared.TokenUsage{}, fmt.Errorf("failed to build analyst prompt: %w", err)
	}

	resp, err := a.TextGen.GenerateContent(ctx, prompt)
	if err != nil {
		return Analysis{}, shared.TokenUsage{}, fmt.Errorf("failed to get LLM response: %w", err)
	}

	result, err := parseAnalysis(resp.Content)
	return result, resp.Usage, err
}

func parseAnalysis(content string) (Analysis, error) {
	var raw struct {
		Score   *float64 `json:"score"`
		Summary string   `json:"summary"`
	}
	if err := json.Unmarshal([]byte(extractJSON(content)), &raw); err != nil {
		return Analysis{}, fmt.Errorf("failed to parse analyst response %w. Response: %s", err, content)
	}
	if raw.Score == nil {
		return Analysis{}, fmt.Errorf("analyst response has no score. Response: %s", content)
	}
	score := *raw.Score
	if score != math.Trunc(score) || score < minScore || score > maxScore {
		return Analysis{}, fmt.Errorf("analyst score %v is outside %d-%d", score, minScore, maxScore)
	}
	summary := strings.TrimSpace(raw.Summary)
	if summary == "" {
		return Analysis{}, fmt.Errorf("analyst response has an empty summary")
	}
	return Analysis{Score: int(score), Summary: summary}, nil
}
