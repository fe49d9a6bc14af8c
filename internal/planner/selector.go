package planner

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"budget-meal-planner/internal/catalog"
	"budget-meal-planner/internal/llm"
	"budget-meal-planner/internal/logger"
	"budget-meal-planner/internal/profile"
	"budget-meal-planner/internal/shared"
)

//go:embed selector_prompt.md
var selectorPrompt string

// DefaultShortlistSize caps how many candidates are sent to the external call.
const DefaultShortlistSize = 10

// ChoiceSource records which path produced a selection.
type ChoiceSource string

const (
	SourceLocal     ChoiceSource = "local"
	SourceDelegated ChoiceSource = "delegated"
	SourceFallback  ChoiceSource = "fallback"
)

// SelectionRequest is the input of a Strategy.
type SelectionRequest struct {
	Candidates   []catalog.MealCombination
	Profile      profile.Profile
	RecentIDs    []int
	DailyCeiling float64
}

// Choice is the single combination a Strategy resolved to.
type Choice struct {
	Combination catalog.MealCombination
	Source      ChoiceSource
	// Meta is set when an external call was attempted.
	Meta *shared.AgentMeta
}

// Strategy picks exactly one combination from a non-empty candidate list.
// The only error it returns wraps ErrInvariantViolation.
type Strategy interface {
	Select(ctx context.Context, req SelectionRequest) (Choice, error)
}

// NewStrategy returns a DelegatedStrategy when textGen is set, else a LocalStrategy.
func NewStrategy(textGen llm.TextGenerator, rnd Rand, shortlistSize int, log *logger.Logger) Strategy {
	if rnd == nil {
		rnd = DefaultRand()
	}
	if textGen == nil {
		return LocalStrategy{Rand: rnd}
	}
	return &DelegatedStrategy{
		TextGen:       textGen,
		Rand:          rnd,
		ShortlistSize: shortlistSize,
		Logger:        log,
	}
}

// LocalStrategy picks uniformly at random without any external dependency.
type LocalStrategy struct {
	Rand Rand
}

func (s LocalStrategy) Select(_ context.Context, req SelectionRequest) (Choice, error) {
	if len(req.Candidates) == 0 {
		return Choice{}, fmt.Errorf("%w: no candidates to select from", ErrInvariantViolation)
	}
	return Choice{Combination: s.pick(req.Candidates), Source: SourceLocal}, nil
}

func (s LocalStrategy) pick(candidates []catalog.MealCombination) catalog.MealCombination {
	if len(candidates) == 1 {
		return candidates[0]
	}
	rnd := s.Rand
	if rnd == nil {
		rnd = DefaultRand()
	}
	return candidates[rnd.IntN(len(candidates))]
}

// DelegatedStrategy asks a text generator to choose from a random shortlist and
// falls back to a local pick over the same shortlist on any failure.
type DelegatedStrategy struct {
	TextGen       llm.TextGenerator
	Rand          Rand
	ShortlistSize int
	Logger        *logger.Logger
}

type selectorPromptData struct {
	Profile      profile.Profile
	DailyCeiling float64
	RecentIDs    []int
	Shortlist    []catalog.MealCombination
}

func (s *DelegatedStrategy) Select(ctx context.Context, req SelectionRequest) (Choice, error) {
	if len(req.Candidates) == 0 {
		return Choice{}, fmt.Errorf("%w: no candidates to select from", ErrInvariantViolation)
	}

	rnd := s.Rand
	if rnd == nil {
		rnd = DefaultRand()
	}
	shortlist := sampleShortlist(req.Candidates, s.ShortlistSize, rnd)

	start := time.Now()
	combo, usage, err := s.delegate(ctx, req, shortlist)
	meta := &shared.AgentMeta{
		AgentName: shared.AgentSelector,
		Usage:     usage,
		Latency:   time.Since(start),
	}
	if err != nil {
		logger.OrNop(s.Logger).Warn("delegated selection failed, picking locally",
			"error", err,
			"shortlist_size", len(shortlist),
		)
		meta.Fallback = true
		local := LocalStrategy{Rand: rnd}
		return Choice{Combination: local.pick(shortlist), Source: SourceFallback, Meta: meta}, nil
	}

	return Choice{Combination: combo, Source: SourceDelegated, Meta: meta}, nil
}

func (s *DelegatedStrategy) delegate(
	ctx context.Context,
	req SelectionRequest,
	shortlist []catalog.MealCombination,
) (catalog.MealCombination, shared.TokenUsage, error) {
	if s.TextGen == nil {
		return catalog.MealCombination{}, shared.TokenUsage{}, fmt.Errorf("no text generator configured")
	}

	prompt, err := renderPrompt("selector", selectorPrompt, selectorPromptData{
		Profile:      req.Profile,
		DailyCeiling: req.DailyCeiling,
		RecentIDs:    req.RecentIDs,
		Shortlist:    shortlist,
	})
	if err != nil {
		return catalog.MealCombination{}, shared.TokenUsage{}, fmt.Errorf("failed to build selector prompt: %w", err)
	}

	resp, err := s.TextGen.GenerateContent(ctx, prompt)
	if err != nil {
		return catalog.MealCombination{}, shared.TokenUsage{}, fmt.Errorf("failed to get LLM response: %w", err)
	}

	combo, err := parseSelection(resp.Content, shortlist)
	return combo, resp.Usage, err
}

// parseSelection decodes {"selectedId": n} and resolves n within the shortlist.
func parseSelection(content string, shortlist []catalog.MealCombination) (catalog.MealCombination, error) {
	var raw struct {
		SelectedID *float64 `json:"selectedId"`
	}
	if err := json.Unmarshal([]byte(extractJSON(content)), &raw); err != nil {
		return catalog.MealCombination{}, fmt.Errorf("failed to parse selector response %w. Response: %s", err, content)
	}
	if raw.SelectedID == nil {
		return catalog.MealCombination{}, fmt.Errorf("selector response has no selectedId. Response: %s", content)
	}

	id := *raw.SelectedID
	if id != math.Trunc(id) {
		return catalog.MealCombination{}, fmt.Errorf("selectedId %v is not an integer", id)
	}
	for _, m := range shortlist {
		if float64(m.ID) == id {
			return m, nil
		}
	}
	return catalog.MealCombination{}, fmt.Errorf("selectedId %v is not in the shortlist", id)
}

// sampleShortlist draws up to size candidates without replacement.
func sampleShortlist(candidates []catalog.MealCombination, size int, rnd Rand) []catalog.MealCombination {
	if size <= 0 {
		size = DefaultShortlistSize
	}
	pool := make([]catalog.MealCombination, len(candidates))
	copy(pool, candidates)
	rnd.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if len(pool) > size {
		pool = pool[:size]
	}
	return pool
}
