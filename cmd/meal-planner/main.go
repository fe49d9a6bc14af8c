package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"budget-meal-planner/internal/app"
	"budget-meal-planner/internal/catalog"
	"budget-meal-planner/internal/config"
	"budget-meal-planner/internal/logger"
	"budget-meal-planner/internal/planner"
	"budget-meal-planner/internal/profile"

	"github.com/joho/godotenv"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()
	rt, err := app.Bootstrap(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to start", "error", err)
	}
	defer rt.Close()

	if err := run(ctx, rt.App, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		rt.Close()
		log.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, command string, args []string) error {
	fs := flag.NewFlagSet(command, flag.ExitOnError)
	user := fs.String("user", "default_user", "User id")

	switch command {
	case "generate":
		fs.Parse(args)
		plan, err := a.GenerateMealPlan(ctx, *user)
		if err != nil {
			return err
		}
		printPlan(plan)

	case "analyze":
		planID := fs.Int64("plan", 0, "Plan id")
		fs.Parse(args)
		plan, err := a.AnalyzePlan(ctx, *user, *planID)
		if err != nil {
			return err
		}
		printPlan(plan)

	case "remove-meal":
		planID := fs.Int64("plan", 0, "Plan id")
		meal := fs.String("meal", "", "Meal to remove: breakfast, lunch or dinner")
		fs.Parse(args)
		mealType, err := planner.ParseMealType(*meal)
		if err != nil {
			return err
		}
		plan, err := a.RemoveMeal(ctx, *user, *planID, mealType)
		if err != nil {
			return err
		}
		printPlan(plan)

	case "delete":
		planID := fs.Int64("plan", 0, "Plan id")
		fs.Parse(args)
		if err := a.DeletePlan(ctx, *user, *planID); err != nil {
			return err
		}
		fmt.Printf("Plan #%d deleted.\n", *planID)

	case "notes":
		planID := fs.Int64("plan", 0, "Plan id")
		text := fs.String("text", "", "Notes to attach")
		fs.Parse(args)
		plan, err := a.UpdateNotes(ctx, *user, *planID, *text)
		if err != nil {
			return err
		}
		printPlan(plan)

	case "history":
		limit := fs.Int("limit", 10, "Number of plans to show")
		fs.Parse(args)
		plans, err := a.History(ctx, *user, *limit)
		if err != nil {
			return err
		}
		if len(plans) == 0 {
			fmt.Println("No plans yet.")
		}
		for _, p := range plans {
			fmt.Printf("#%-5d %s  %8.2f ETB  %5d kcal  meal %d\n",
				p.ID, p.Date.Format("2006-01-02"), p.TotalEstimatedCost, p.TotalCalories, p.MealID)
		}

	case "shopping":
		limit := fs.Int("limit", 7, "Number of recent plans to shop for")
		fs.Parse(args)
		list, err := a.ShoppingList(ctx, *user, *limit)
		if err != nil {
			return err
		}
		for _, it := range list.Items {
			fmt.Printf("%-30s x%-3d %8.2f ETB\n", it.Name, it.Count, it.TotalCost)
		}
		fmt.Printf("\nTotal for %d plans: %.2f ETB\n", len(list.PlanIDs), list.TotalCost)

	case "usage":
		fs.Parse(args)
		u, err := a.BudgetUsage(ctx, *user, time.Now())
		if err != nil {
			return err
		}
		line := fmt.Sprintf("%s %d: %d plans, %.2f ETB spent", u.Month, u.Year, u.Plans, u.Spent)
		if u.Budget > 0 {
			line += fmt.Sprintf(" of %.2f (%.0f%%), %.2f remaining", u.Budget, u.Percent, u.Remaining)
		}
		fmt.Println(line)

	case "profile":
		budget := fs.Float64("budget", -1, "Monthly budget in ETB")
		goal := fs.String("goal", "", "Health goal")
		activity := fs.String("activity", "", "Activity level")
		diet := fs.String("diet", "", "Comma separated dietary restrictions")
		allergies := fs.String("allergies", "", "Comma separated allergies")
		fs.Parse(args)

		set := map[string]bool{}
		fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

		p, err := a.UpdateProfile(ctx, *user, func(p *profile.Profile) {
			if set["budget"] {
				p.MonthlyBudget = *budget
			}
			if set["goal"] {
				p.Goals = *goal
			}
			if set["activity"] {
				p.ActivityLevel = *activity
			}
			if set["diet"] {
				p.DietaryRestrictions = profile.ParseList(*diet)
			}
			if set["allergies"] {
				p.Allergies = profile.ParseList(*allergies)
			}
		})
		if err != nil {
			return err
		}
		fmt.Printf("User:       %s\n", p.UserID)
		fmt.Printf("Budget:     %.2f ETB/month (%.2f ETB/day)\n", p.MonthlyBudget, planner.DailyCeiling(p.MonthlyBudget))
		fmt.Printf("Goal:       %s\n", p.Goals)
		fmt.Printf("Activity:   %s\n", p.ActivityLevel)
		fmt.Printf("Diet:       %s\n", strings.Join(p.DietaryRestrictions, ", "))
		fmt.Printf("Allergies:  %s\n", strings.Join(p.Allergies, ", "))

	case "catalog":
		tier := fs.String("tier", "", "Only show Small, Medium or Large combinations")
		fs.Parse(args)
		combos := a.Catalog().All()
		if *tier != "" {
			combos = a.Catalog().ByTier(catalog.Tier(*tier))
		}
		for _, c := range combos {
			fmt.Printf("%3d  %-6s %7.2f  %s / %s / %s\n", c.ID, c.Tier, c.Total, c.Breakfast.Name, c.Lunch.Name, c.Dinner.Name)
		}

	case "metrics-cleanup":
		days := fs.Int("days", 30, "Keep records for the last N days")
		fs.Parse(args)
		affected, err := a.CleanupMetrics(ctx, *days)
		if err != nil {
			return fmt.Errorf("cleanup failed: %w", err)
		}
		fmt.Printf("Successfully removed %d old metric records.\n", affected)

	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
	return nil
}

func printPlan(plan *planner.GeneratedPlan) {
	fmt.Printf("\n=== MEAL PLAN #%d (%s) ===\n", plan.ID, plan.Date.Format("2006-01-02"))
	for i, m := range plan.Meals {
		fmt.Printf("%d. %-10s %-28s %7.2f ETB  %4d kcal\n", i, m.Type, m.Name, m.Cost, m.Calories)
	}
	fmt.Printf("\nTotal: %.2f ETB, %d kcal\n", plan.TotalEstimatedCost, plan.TotalCalories)
	if plan.Analysis != nil {
		fmt.Printf("Score: %d/10\n%s\n", plan.Analysis.Score, plan.Analysis.Summary)
	}
	if plan.Notes != "" {
		fmt.Printf("Notes: %s\n", plan.Notes)
	}
}

func printUsage() {
	fmt.Println("Usage: meal-planner <command> [flags]")
	fmt.Println("\nCommands:")
	fmt.Println("  generate           Generate and store today's plan")
	fmt.Println("  analyze            Score a stored plan (-plan)")
	fmt.Println("  remove-meal        Remove a meal from a plan (-plan, -meal)")
	fmt.Println("  delete             Delete a stored plan (-plan)")
	fmt.Println("  notes              Attach notes to a plan (-plan, -text)")
	fmt.Println("  history            List recent plans (-limit)")
	fmt.Println("  shopping           Shopping list for recent plans (-limit)")
	fmt.Println("  usage              Show this month's spend against the budget")
	fmt.Println("  profile            Show or update the profile (-budget, -goal, -activity, -diet, -allergies)")
	fmt.Println("  catalog            List catalog combinations (-tier)")
	fmt.Println("  metrics-cleanup    Remove old metric records (-days)")
	fmt.Println("\nAll commands accept -user (default \"default_user\").")
}
