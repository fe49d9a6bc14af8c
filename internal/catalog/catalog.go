package catalog

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrDataIntegrity is returned when a catalog entry is inconsistent.
var ErrDataIntegrity = errors.New("catalog data integrity error")

// totalEpsilon is how far a stated total may drift from the sum of its prices.
const totalEpsilon = 0.005

// Tier is a price category assigned from a combination's total.
type Tier string

const (
	TierSmall  Tier = "Small"
	TierMedium Tier = "Medium"
	TierLarge  Tier = "Large"
)

// Item is a single priced dish.
type Item struct {
	Name  string  `json:"name" yaml:"name"`
	Price float64 `json:"price" yaml:"price"`
}

// Entry is a raw catalog record as read from a data source.
type Entry struct {
	ID        int     `json:"id" yaml:"id"`
	Breakfast Item    `json:"breakfast" yaml:"breakfast"`
	Lunch     Item    `json:"lunch" yaml:"lunch"`
	Dinner    Item    `json:"dinner" yaml:"dinner"`
	Total     float64 `json:"total" yaml:"total"`
	Category  string  `json:"category,omitempty" yaml:"category,omitempty"`
}

// MealCombination is a validated breakfast/lunch/dinner triple.
type MealCombination struct {
	ID        int     `json:"id"`
	Tier      Tier    `json:"tier"`
	Breakfast Item    `json:"breakfast"`
	Lunch     Item    `json:"lunch"`
	Dinner    Item    `json:"dinner"`
	Total     float64 `json:"total"`
	// Label is the category label carried by the source, informational only.
	Label string `json:"label,omitempty"`
}

// Thresholds bound the tiers: totals below SmallBelow are Small, below
// MediumBelow Medium, everything else Large.
type Thresholds struct {
	SmallBelow  float64
	MediumBelow float64
}

// DefaultThresholds returns the ETB tier bounds used when none are configured.
func DefaultThresholds() Thresholds {
	return Thresholds{SmallBelow: 200, MediumBelow: 400}
}

// TierFor classifies a daily total.
func (t Thresholds) TierFor(total float64) Tier {
	switch {
	case total < t.SmallBelow:
		return TierSmall
	case total < t.MediumBelow:
		return TierMedium
	default:
		return TierLarge
	}
}

// Catalog is the immutable, ordered set of meal combinations.
type Catalog struct {
	combos []MealCombination
	byID   map[int]int
}

// Load validates the raw entries and builds a catalog in load order.
func Load(entries []Entry, th Thresholds) (*Catalog, error) {
	if th.MediumBelow < th.SmallBelow {
		return nil, fmt.Errorf("%w: tier thresholds out of order (small below %.2f, medium below %.2f)",
			ErrDataIntegrity, th.SmallBelow, th.MediumBelow)
	}

	c := &Catalog{
		combos: make([]MealCombination, 0, len(entries)),
		byID:   make(map[int]int, len(entries)),
	}
	for _, e := range entries {
		if err := validateEntry(e); err != nil {
			return nil, err
		}
		if _, dup := c.byID[e.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %d", ErrDataIntegrity, e.ID)
		}
		c.byID[e.ID] = len(c.combos)
		c.combos = append(c.combos, MealCombination{
			ID:        e.ID,
			Tier:      th.TierFor(e.Total),
			Breakfast: e.Breakfast,
			Lunch:     e.Lunch,
			Dinner:    e.Dinner,
			Total:     e.Total,
			Label:     e.Category,
		})
	}
	return c, nil
}

func validateEntry(e Entry) error {
	// Id 0 is reserved for the staple day.
	if e.ID <= 0 {
		return fmt.Errorf("%w: entry id must be positive, got %d", ErrDataIntegrity, e.ID)
	}
	slots := []struct {
		slot string
		item Item
	}{
		{"breakfast", e.Breakfast},
		{"lunch", e.Lunch},
		{"dinner", e.Dinner},
	}
	sum := 0.0
	for _, s := range slots {
		if strings.TrimSpace(s.item.Name) == "" {
			return fmt.Errorf("%w: entry %d has no %s name", ErrDataIntegrity, e.ID, s.slot)
		}
		if s.item.Price < 0 || math.IsNaN(s.item.Price) || math.IsInf(s.item.Price, 0) {
			return fmt.Errorf("%w: entry %d has invalid %s price %v", ErrDataIntegrity, e.ID, s.slot, s.item.Price)
		}
		sum += s.item.Price
	}
	if math.IsNaN(e.Total) || math.Abs(e.Total-sum) > totalEpsilon {
		return fmt.Errorf("%w: entry %d total %.2f does not match sum of prices %.2f",
			ErrDataIntegrity, e.ID, e.Total, sum)
	}
	return nil
}

// All returns every combination in load order.
func (c *Catalog) All() []MealCombination {
	out := make([]MealCombination, len(c.combos))
	copy(out, c.combos)
	return out
}

// ByTier returns the combinations of one tier in load order.
func (c *Catalog) ByTier(tier Tier) []MealCombination {
	var out []MealCombination
	for _, m := range c.combos {
		if m.Tier == tier {
			out = append(out, m)
		}
	}
	return out
}

// Get looks up a combination by id.
func (c *Catalog) Get(id int) (MealCombination, bool) {
	i, ok := c.byID[id]
	if !ok {
		return MealCombination{}, false
	}
	return c.combos[i], true
}

func (c *Catalog) Len() int {
	return len(c.combos)
}

// Staple is the built-in day used only when the catalog has no entries.
// Its id is 0, which never names a catalog entry.
func Staple() MealCombination {
	return MealCombination{
		ID:        0,
		Tier:      TierSmall,
		Breakfast: Item{Name: "Kita Fir Fir", Price: 40},
		Lunch:     Item{Name: "Shiro with Injera", Price: 70},
		Dinner:    Item{Name: "Misir Wot with Injera", Price: 80},
		Total:     190,
	}
}
