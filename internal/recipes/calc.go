package recipes

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	applog "brigade/internal/log"
	"brigade/models"
)

// DefaultMaxDepth bounds sub-recipe nesting during cost and allergen
// resolution. The depth budget travels with every recursive call, together
// with the resolution path, because the graph spans separate entities and a
// call stack check alone would not catch a cycle crossing several of them.
const DefaultMaxDepth = 10

const (
	resolveCacheTTL     = 30 * time.Second
	resolveCacheCleanup = time.Minute
)

// errSubRecipeUnresolved signals that a linked recipe has no published
// version; the caller falls back to the ingredient's stored cost.
var errSubRecipeUnresolved = errors.New("recipes: sub-recipe has no published version")

// EvaluateOptions tunes a single evaluation run.
type EvaluateOptions struct {
	// RefreshUnitCosts replaces every line's unit-cost snapshot with the
	// ingredient's current default cost before costing. Revert uses this so
	// a restored version is priced at today's costs.
	RefreshUnitCosts bool
}

// Calculator computes cost rollups and allergen unions for recipe content,
// resolving nested sub-recipes bottom-up through their published versions.
type Calculator struct {
	db          *gorm.DB
	ingredients *Ingredients
	resolved    *gocache.Cache
	maxDepth    int
}

// NewCalculator builds a Calculator over the supplied database. Ingredient
// cost edits and new sub-recipe links change what a cached resolution would
// price, so the ingredients service is wired to flush the organization's
// cached entries on every write.
func NewCalculator(db *gorm.DB, ingredients *Ingredients) *Calculator {
	c := &Calculator{
		db:          db,
		ingredients: ingredients,
		resolved:    gocache.New(resolveCacheTTL, resolveCacheCleanup),
		maxDepth:    DefaultMaxDepth,
	}
	ingredients.changed = c.invalidateOrganization
	return c
}

// Invalidate drops the cached resolution for the recipe together with every
// cached entry whose subtree reaches it. Called after publish, revert,
// recalculate and delete. Ancestor entries embed this recipe's cost, so
// deleting only the recipe's own key would leave them pricing against the
// old value until the TTL expires.
func (c *Calculator) Invalidate(orgID, recipeID uuid.UUID) {
	c.resolved.Delete(resolveKey(orgID, recipeID))
	for key, item := range c.resolved.Items() {
		resolved, ok := item.Object.(resolvedSubRecipe)
		if !ok || !onPath(resolved.subtree, recipeID) {
			continue
		}
		c.resolved.Delete(key)
	}
}

func (c *Calculator) invalidateOrganization(orgID uuid.UUID) {
	prefix := orgID.String() + "/"
	for key := range c.resolved.Items() {
		if strings.HasPrefix(key, prefix) {
			c.resolved.Delete(key)
		}
	}
}

// Evaluate computes the costing for the supplied content. recipeID starts the
// resolution path so a recipe referencing itself through any chain of
// sub-recipe links fails with CircularReferenceError instead of looping. The
// returned content equals the input except when options request a unit-cost
// refresh.
func (c *Calculator) Evaluate(ctx context.Context, orgID, recipeID uuid.UUID, content models.RecipeContent, opts EvaluateOptions) (models.RecipeContent, models.RecipeCosting, error) {
	path := []uuid.UUID{recipeID}

	out := content.Clone()
	agg, err := c.evaluateLines(ctx, orgID, out.Lines, path, c.maxDepth, opts)
	if err != nil {
		return models.RecipeContent{}, models.RecipeCosting{}, err
	}
	out.Lines = agg.lines

	portions := out.Portions()
	if portions <= 0 {
		return models.RecipeContent{}, models.RecipeCosting{}, InvalidInput("recipe yield must be greater than zero")
	}

	contains, mayContain := mergeAllergens(append(agg.contains, out.DeclaredAllergens...), agg.mayContain)

	costing := models.RecipeCosting{
		TheoreticalCost:     roundCurrency(agg.total),
		CostPerPortion:      roundPerPortion(agg.total / portions),
		ContainsAllergens:   contains,
		MayContainAllergens: mayContain,
	}

	applog.Debug(ctx, "recipe evaluated",
		"recipe", recipeID,
		"organization", orgID,
		"theoreticalCost", costing.TheoreticalCost,
		"costPerPortion", costing.CostPerPortion,
	)
	return out, costing, nil
}

type lineAggregate struct {
	total      float64
	contains   []string
	mayContain []string
	subtree    []uuid.UUID
	lines      []models.RecipeIngredientLine
}

type lineOutcome struct {
	line       models.RecipeIngredientLine
	cost       float64
	contains   []string
	mayContain []string
	subtree    []uuid.UUID
}

// evaluateLines resolves every line concurrently and aggregates in input
// order. Lookups address distinct entities and are pure reads, so the fan-out
// is safe; the path is copy-extended per branch, never appended in place.
func (c *Calculator) evaluateLines(ctx context.Context, orgID uuid.UUID, lines []models.RecipeIngredientLine, path []uuid.UUID, depth int, opts EvaluateOptions) (lineAggregate, error) {
	outcomes := make([]lineOutcome, len(lines))

	g, gctx := errgroup.WithContext(ctx)
	for i, line := range lines {
		i, line := i, line
		g.Go(func() error {
			outcome, err := c.evaluateLine(gctx, orgID, line, path, depth, opts)
			if err != nil {
				return err
			}
			outcomes[i] = outcome
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return lineAggregate{}, err
	}

	agg := lineAggregate{lines: make([]models.RecipeIngredientLine, len(lines))}
	for i, outcome := range outcomes {
		agg.lines[i] = outcome.line
		agg.total += outcome.cost
		agg.contains = append(agg.contains, outcome.contains...)
		agg.mayContain = append(agg.mayContain, outcome.mayContain...)
		agg.subtree = append(agg.subtree, outcome.subtree...)
	}
	return agg, nil
}

func (c *Calculator) evaluateLine(ctx context.Context, orgID uuid.UUID, line models.RecipeIngredientLine, path []uuid.UUID, depth int, opts EvaluateOptions) (lineOutcome, error) {
	if line.WastePercent < 0 || line.WastePercent >= 100 {
		return lineOutcome{}, InvalidInput(fmt.Sprintf("line %q has invalid waste percent %.2f", line.Name, line.WastePercent))
	}

	info, err := c.ingredients.CostAndAllergens(ctx, orgID, line.IngredientID)
	if err != nil {
		return lineOutcome{}, err
	}

	if opts.RefreshUnitCosts {
		line.UnitCost = info.UnitCost
	}

	outcome := lineOutcome{line: line}
	unitCost := line.UnitCost

	if info.SubRecipeID != nil {
		resolved, err := c.resolveSubRecipe(ctx, orgID, *info.SubRecipeID, path, depth)
		switch {
		case err == nil:
			unitCost = resolved.unitCost
			outcome.contains = append(outcome.contains, resolved.contains...)
			outcome.mayContain = append(outcome.mayContain, resolved.mayContain...)
			outcome.subtree = append(outcome.subtree, resolved.subtree...)
		case errors.Is(err, errSubRecipeUnresolved):
			// Fall back to the ingredient's stored cost and declarations.
			unitCost = info.UnitCost
		default:
			return lineOutcome{}, err
		}
	}

	// Allergen exposure is a safety property: optional lines still count.
	for _, decl := range info.Allergens {
		switch decl.Declaration {
		case models.DeclarationContains:
			outcome.contains = append(outcome.contains, decl.Tag)
		case models.DeclarationMayContain:
			outcome.mayContain = append(outcome.mayContain, decl.Tag)
		}
	}

	if !line.Optional {
		outcome.cost = line.EffectiveQuantity() * unitCost
	}
	return outcome, nil
}

type resolvedSubRecipe struct {
	unitCost   float64
	contains   []string
	mayContain []string
	subtree    []uuid.UUID
}

// resolveSubRecipe prices one unit of the recipe's output by re-evaluating
// its published content bottom-up. Results are cached briefly; a cached entry
// remembers every recipe id in its subtree so a hit can still fail a cycle
// check against the current path.
func (c *Calculator) resolveSubRecipe(ctx context.Context, orgID, recipeID uuid.UUID, path []uuid.UUID, depth int) (resolvedSubRecipe, error) {
	if onPath(path, recipeID) {
		return resolvedSubRecipe{}, &CircularReferenceError{Path: appendPath(path, recipeID)}
	}
	if depth <= 0 {
		return resolvedSubRecipe{}, ErrDepthExceeded
	}

	if entry, ok := c.resolved.Get(resolveKey(orgID, recipeID)); ok {
		resolved := entry.(resolvedSubRecipe)
		for _, id := range resolved.subtree {
			if onPath(path, id) {
				return resolvedSubRecipe{}, &CircularReferenceError{Path: appendPath(path, recipeID, id)}
			}
		}
		return resolved, nil
	}

	var doc models.RecipeDocument
	err := c.db.WithContext(ctx).
		First(&doc, "id = ? AND organization_id = ?", recipeID, orgID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return resolvedSubRecipe{}, errSubRecipeUnresolved
		}
		return resolvedSubRecipe{}, fmt.Errorf("load sub-recipe %s: %w", recipeID, err)
	}
	if doc.Published == nil {
		return resolvedSubRecipe{}, errSubRecipeUnresolved
	}

	agg, err := c.evaluateLines(ctx, orgID, doc.Published.Lines, appendPath(path, recipeID), depth-1, EvaluateOptions{})
	if err != nil {
		return resolvedSubRecipe{}, err
	}

	portions := doc.Published.Portions()
	if portions <= 0 {
		return resolvedSubRecipe{}, InvalidInput(fmt.Sprintf("sub-recipe %s has no output quantity", recipeID))
	}

	resolved := resolvedSubRecipe{
		unitCost:   agg.total / portions,
		contains:   append(agg.contains, doc.Published.DeclaredAllergens...),
		mayContain: agg.mayContain,
		subtree:    append(agg.subtree, recipeID),
	}
	c.resolved.Set(resolveKey(orgID, recipeID), resolved, gocache.DefaultExpiration)
	return resolved, nil
}

func resolveKey(orgID, recipeID uuid.UUID) string {
	return orgID.String() + "/" + recipeID.String()
}

func onPath(path []uuid.UUID, id uuid.UUID) bool {
	for _, seen := range path {
		if seen == id {
			return true
		}
	}
	return false
}

// appendPath copies before extending; sibling branches share a prefix and
// resolve in parallel, so the backing array must never grow in place.
func appendPath(path []uuid.UUID, ids ...uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, len(path), len(path)+len(ids))
	copy(out, path)
	return append(out, ids...)
}

// mergeAllergens deduplicates both sets and applies the override rule: a tag
// declared "contains" anywhere is removed from the may-contain set.
func mergeAllergens(contains, mayContain []string) ([]string, []string) {
	containsSet := make(map[string]bool, len(contains))
	for _, tag := range contains {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			containsSet[tag] = true
		}
	}

	maySet := make(map[string]bool, len(mayContain))
	for _, tag := range mayContain {
		tag = strings.TrimSpace(tag)
		if tag != "" && !containsSet[tag] {
			maySet[tag] = true
		}
	}

	return sortedTags(containsSet), sortedTags(maySet)
}

func sortedTags(set map[string]bool) []string {
	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// roundCurrency rounds to currency precision. Rounding happens only at
// totals, never per line, so rounding error does not compound.
func roundCurrency(value float64) float64 {
	return math.Round(value*100) / 100
}

func roundPerPortion(value float64) float64 {
	return math.Round(value*10000) / 10000
}
