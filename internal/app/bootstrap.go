package app

import (
	"context"
	"errors"
	"fmt"

	"budget-meal-planner/internal/catalog"
	"budget-meal-planner/internal/config"
	"budget-meal-planner/internal/database"
	"budget-meal-planner/internal/llm"
	"budget-meal-planner/internal/logger"
	"budget-meal-planner/internal/metrics"
	"budget-meal-planner/internal/planner"
	"budget-meal-planner/internal/profile"
)

// Temperatures for the two external calls. Selection is looser to spread
// choices across the shortlist.
const (
	selectorTemperature = 0.4
	analystTemperature  = 0.1
)

// Runtime is a fully wired App together with the resources it holds.
type Runtime struct {
	App *App
	DB  *database.DB

	closers []llm.Closer
}

// Close releases the LLM clients and the database.
func (r *Runtime) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c.Close())
	}
	if r.DB != nil {
		errs = append(errs, r.DB.Close())
	}
	return errors.Join(errs...)
}

// Bootstrap opens the database, loads the catalog and wires the planner for cfg.
func Bootstrap(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Runtime, error) {
	log = logger.OrNop(log)
	rt := &Runtime{}

	th := catalog.Thresholds{SmallBelow: cfg.TierSmallBelow, MediumBelow: cfg.TierMediumBelow}
	if th == (catalog.Thresholds{}) {
		th = catalog.DefaultThresholds()
	}
	cat, err := loadCatalog(cfg.CatalogPath, th)
	if err != nil {
		return nil, err
	}
	log.Info("catalog loaded", "entries", cat.Len(), "path", cfg.CatalogPath)

	selectorGen, err := rt.textGenerator(ctx, cfg, selectorTemperature)
	if err != nil {
		rt.Close()
		return nil, err
	}
	analystGen, err := rt.textGenerator(ctx, cfg, analystTemperature)
	if err != nil {
		rt.Close()
		return nil, err
	}
	log.Info("llm provider selected", "provider", cfg.LLMProvider)

	db, err := database.NewDB(cfg.DatabasePath, log)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	rt.DB = db

	settings := planner.DefaultSettings()
	if cfg.BudgetTolerance > 0 {
		settings.BudgetTolerance = cfg.BudgetTolerance
	}
	if cfg.VarietyWindow >= 0 {
		settings.VarietyWindow = cfg.VarietyWindow
	}
	if cfg.ShortlistSize > 0 {
		settings.ShortlistSize = cfg.ShortlistSize
	}

	planRepo := planner.NewPlanRepository(db.SQL)
	strategy := planner.NewStrategy(selectorGen, planner.DefaultRand(), settings.ShortlistSize, log)
	mealPlanner := planner.NewPlanner(cat, strategy, planRepo, settings, log)

	rt.App = NewApp(
		cat,
		mealPlanner,
		planner.NewAnalyzer(analystGen, log),
		planRepo,
		profile.NewRepository(db.SQL),
		metrics.NewStore(db.SQL),
		log,
	)
	return rt, nil
}

func (r *Runtime) textGenerator(ctx context.Context, cfg *config.Config, temperature float64) (llm.TextGenerator, error) {
	gen, err := llm.NewTextGenerator(ctx, cfg, temperature)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s client: %w", cfg.LLMProvider, err)
	}
	if c, ok := gen.(llm.Closer); ok {
		r.closers = append(r.closers, c)
	}
	return gen, nil
}

func loadCatalog(path string, th catalog.Thresholds) (*catalog.Catalog, error) {
	if path == "" {
		cat, err := catalog.Default(th)
		if err != nil {
			return nil, fmt.Errorf("failed to load built-in catalog: %w", err)
		}
		return cat, nil
	}
	cat, err := catalog.LoadFile(path, th)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", path, err)
	}
	return cat, nil
}
