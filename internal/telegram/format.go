package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"budget-meal-planner/internal/metrics"
	"budget-meal-planner/internal/planner"
	"budget-meal-planner/internal/profile"
	"budget-meal-planner/internal/shopping"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = `🍲 *Budget Meal Planner*

Set up your profile:
/budget 4500 - monthly food budget in ETB
/goal lose weight - your health goal
/activity moderate - activity level
/diet vegetarian, fasting - dietary restrictions
/allergies peanuts - allergies
/profile - show your profile

Plan:
/plan - generate today's meals
/history - your recent plans
/shopping - what to buy for your last week of plans
/usage - budget used this month`

// Callback actions carried in inline button data.
const (
	actionAnalyze = "analyze"
	actionRemove  = "remove"
	actionNotes   = "notes"
	actionDelete  = "delete"
)

func md(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func formatPlanMarkdown(plan *planner.GeneratedPlan) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🍽 *Meal Plan #%d* (%s)\n\n", plan.ID, plan.Date.Format("2006-01-02")))

	for _, m := range plan.Meals {
		sb.WriteString(fmt.Sprintf("*%s*: %s\n", m.Type, md(m.Name)))
		sb.WriteString(fmt.Sprintf("   %.0f ETB · %d kcal\n", m.Cost, m.Calories))
	}

	sb.WriteString(fmt.Sprintf("\n💰 *Total:* %.2f ETB\n", plan.TotalEstimatedCost))
	sb.WriteString(fmt.Sprintf("🔥 *Calories:* %d kcal\n", plan.TotalCalories))

	if plan.Analysis != nil {
		sb.WriteString(fmt.Sprintf("\n⭐ *Score:* %d/10\n_%s_\n", plan.Analysis.Score, md(plan.Analysis.Summary)))
	}
	if plan.Notes != "" {
		sb.WriteString(fmt.Sprintf("\n📝 %s\n", md(plan.Notes)))
	}
	return sb.String()
}

// planKeyboard offers analysis, notes, deletion and one remove button per meal.
// Remove buttons name the meal slot, so a stale tap cannot hit another meal. A
// plan with a single meal gets no remove buttons.
func planKeyboard(plan *planner.GeneratedPlan) tgbotapi.InlineKeyboardMarkup {
	id := strconv.FormatInt(plan.ID, 10)
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Analyze", actionAnalyze+"|"+id),
			tgbotapi.NewInlineKeyboardButtonData("📝 Notes", actionNotes+"|"+id),
			tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", actionDelete+"|"+id),
		),
	}

	if len(plan.Meals) > 1 {
		var remove []tgbotapi.InlineKeyboardButton
		for _, m := range plan.Meals {
			remove = append(remove, tgbotapi.NewInlineKeyboardButtonData(
				"❌ "+string(m.Type),
				fmt.Sprintf("%s|%s|%s", actionRemove, id, m.Type),
			))
		}
		rows = append(rows, remove)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

type callbackData struct {
	Action   string
	PlanID   int64
	MealType planner.MealType
}

// parseCallback decodes "analyze|id", "notes|id", "delete|id" and
// "remove|id|Breakfast".
func parseCallback(data string) (callbackData, error) {
	parts := strings.Split(data, "|")
	if len(parts) < 2 {
		return callbackData{}, fmt.Errorf("malformed callback data %q", data)
	}

	cb := callbackData{Action: parts[0]}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return callbackData{}, fmt.Errorf("malformed plan id in %q: %w", data, err)
	}
	cb.PlanID = id

	switch cb.Action {
	case actionAnalyze, actionNotes, actionDelete:
		if len(parts) != 2 {
			return callbackData{}, fmt.Errorf("malformed callback data %q", data)
		}
	case actionRemove:
		if len(parts) != 3 {
			return callbackData{}, fmt.Errorf("malformed callback data %q", data)
		}
		mt, err := planner.ParseMealType(parts[2])
		if err != nil {
			return callbackData{}, fmt.Errorf("malformed meal in %q: %w", data, err)
		}
		cb.MealType = mt
	default:
		return callbackData{}, fmt.Errorf("unknown callback action %q", cb.Action)
	}
	return cb, nil
}

func formatProfile(p profile.Profile) string {
	orNone := func(v string) string {
		if v == "" {
			return "_not set_"
		}
		return md(v)
	}

	var sb strings.Builder
	sb.WriteString("👤 *Your Profile*\n\n")
	sb.WriteString(fmt.Sprintf("• Monthly budget: %.2f ETB (%.2f ETB/day)\n", p.MonthlyBudget, planner.DailyCeiling(p.MonthlyBudget)))
	sb.WriteString(fmt.Sprintf("• Goal: %s\n", orNone(p.Goals)))
	sb.WriteString(fmt.Sprintf("• Activity: %s\n", orNone(p.ActivityLevel)))
	sb.WriteString(fmt.Sprintf("• Diet: %s\n", orNone(strings.Join(p.DietaryRestrictions, ", "))))
	sb.WriteString(fmt.Sprintf("• Allergies: %s\n", orNone(strings.Join(p.Allergies, ", "))))
	return sb.String()
}

func formatUsage(u planner.BudgetUsage) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("💰 *Budget for %s %d*\n\n", u.Month, u.Year))
	if u.Budget == 0 {
		sb.WriteString("_No monthly budget set. Use /budget to add one._\n")
	}
	sb.WriteString(fmt.Sprintf("• Plans: %d\n", u.Plans))
	sb.WriteString(fmt.Sprintf("• Spent: %.2f ETB\n", u.Spent))
	if u.Budget > 0 {
		sb.WriteString(fmt.Sprintf("• Remaining: %.2f of %.2f ETB\n", u.Remaining, u.Budget))
		sb.WriteString(fmt.Sprintf("• Used: %.0f%%\n", u.Percent))
	}
	return sb.String()
}

func formatHistory(plans []planner.GeneratedPlan) string {
	if len(plans) == 0 {
		return "📭 No plans yet. Use /plan to create one."
	}

	var sb strings.Builder
	sb.WriteString("🗂 *Recent Plans*\n\n")
	for _, p := range plans {
		names := make([]string, 0, len(p.Meals))
		for _, m := range p.Meals {
			names = append(names, md(m.Name))
		}
		sb.WriteString(fmt.Sprintf("*#%d* %s · %.0f ETB\n%s\n", p.ID, p.Date.Format("Jan 2"), p.TotalEstimatedCost, strings.Join(names, ", ")))
		if p.Analysis != nil {
			sb.WriteString(fmt.Sprintf("⭐ %d/10\n", p.Analysis.Score))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatShoppingList(list shopping.ShoppingList) string {
	if len(list.Items) == 0 {
		return "🛒 Nothing to buy yet. Use /plan first."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🛒 *Shopping List* (%d plans)\n\n", len(list.PlanIDs)))
	for _, it := range list.Items {
		if it.Count > 1 {
			sb.WriteString(fmt.Sprintf("• %s x%d · %.0f ETB\n", md(it.Name), it.Count, it.TotalCost))
			continue
		}
		sb.WriteString(fmt.Sprintf("• %s · %.0f ETB\n", md(it.Name), it.TotalCost))
	}
	sb.WriteString(fmt.Sprintf("\n💰 *Total:* %.2f ETB\n", list.TotalCost))
	return sb.String()
}

func formatMetrics(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d execs, %d fallbacks)\n",
			d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution, d.Fallbacks))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Database: %s\n", health.DBSize))
	return sb.String()
}
