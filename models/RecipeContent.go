package models

import "github.com/google/uuid"

// Recipe types supported by the engine.
const (
	RecipeTypeMadeToOrder = "made_to_order"
	RecipeTypeBatchPrep   = "batch_prep"
)

// ValidRecipeType reports whether the supplied recipe type is known.
func ValidRecipeType(value string) bool {
	switch value {
	case RecipeTypeMadeToOrder, RecipeTypeBatchPrep:
		return true
	}
	return false
}

// RecipeIngredientLine is one row of a recipe's composition. Quantity and
// waste determine the effective quantity actually prepared; the unit cost is
// a snapshot taken when the line was authored and may be refreshed by
// recalculation or revert.
type RecipeIngredientLine struct {
	IngredientID     uuid.UUID   `json:"ingredient_id"`
	Name             string      `json:"name"`
	Quantity         float64     `json:"quantity"`
	Unit             string      `json:"unit"`
	WastePercent     float64     `json:"waste_percent"`
	UnitCost         float64     `json:"unit_cost"`
	DisplayOrder     int         `json:"display_order"`
	PrepInstructions string      `json:"prep_instructions,omitempty"`
	Optional         bool        `json:"optional"`
	SubstitutionIDs  []uuid.UUID `json:"substitution_ids,omitempty"`
}

// EffectiveQuantity inflates the planned quantity to cover preparation waste.
func (l RecipeIngredientLine) EffectiveQuantity() float64 {
	if l.WastePercent <= 0 {
		return l.Quantity
	}
	return l.Quantity / (1 - l.WastePercent/100)
}

// RecipeTranslation carries a localized name and description.
type RecipeTranslation struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// BatchOutput describes the inventory output of a batch-prep recipe.
type BatchOutput struct {
	InventoryItemID   uuid.UUID `json:"inventory_item_id"`
	InventoryItemName string    `json:"inventory_item_name"`
	Unit              string    `json:"unit"`
	QuantityPerYield  float64   `json:"quantity_per_yield"`
	ShelfLifeHours    int       `json:"shelf_life_hours"`
	MinBatchSize      float64   `json:"min_batch_size"`
	MaxBatchSize      float64   `json:"max_batch_size"`
}

// RecipeContent is the authored content of a single recipe version. It is
// stored both as the mutable draft and as immutable published/history
// snapshots.
type RecipeContent struct {
	Name              string                       `json:"name"`
	Description       string                       `json:"description"`
	Type              string                       `json:"type"`
	PortionYield      float64                      `json:"portion_yield"`
	YieldUnit         string                       `json:"yield_unit"`
	Lines             []RecipeIngredientLine       `json:"lines"`
	PrepTimeMinutes   int                          `json:"prep_time_minutes"`
	CookTimeMinutes   int                          `json:"cook_time_minutes"`
	DeclaredAllergens []string                     `json:"declared_allergens,omitempty"`
	Translations      map[string]RecipeTranslation `json:"translations,omitempty"`
	Batch             *BatchOutput                 `json:"batch,omitempty"`
}

// Portions returns the divisor used for per-portion cost: the batch output
// quantity for batch-prep recipes, the portion yield otherwise.
func (c RecipeContent) Portions() float64 {
	if c.Type == RecipeTypeBatchPrep && c.Batch != nil && c.Batch.QuantityPerYield > 0 {
		return c.Batch.QuantityPerYield
	}
	return c.PortionYield
}

// Clone returns a deep copy of the content so that drafts, published
// snapshots and history entries never share backing storage.
func (c RecipeContent) Clone() RecipeContent {
	out := c
	if c.Lines != nil {
		out.Lines = make([]RecipeIngredientLine, len(c.Lines))
		copy(out.Lines, c.Lines)
		for i, line := range c.Lines {
			if line.SubstitutionIDs != nil {
				out.Lines[i].SubstitutionIDs = append([]uuid.UUID(nil), line.SubstitutionIDs...)
			}
		}
	}
	if c.DeclaredAllergens != nil {
		out.DeclaredAllergens = append([]string(nil), c.DeclaredAllergens...)
	}
	if c.Translations != nil {
		out.Translations = make(map[string]RecipeTranslation, len(c.Translations))
		for locale, tr := range c.Translations {
			out.Translations[locale] = tr
		}
	}
	if c.Batch != nil {
		batch := *c.Batch
		out.Batch = &batch
	}
	return out
}

// RecipeCosting is the computed result attached to a published version.
type RecipeCosting struct {
	TheoreticalCost     float64  `json:"theoretical_cost"`
	CostPerPortion      float64  `json:"cost_per_portion"`
	ContainsAllergens   []string `json:"contains_allergens"`
	MayContainAllergens []string `json:"may_contain_allergens"`
}
