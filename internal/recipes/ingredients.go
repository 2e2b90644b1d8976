package recipes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	applog "brigade/internal/log"
	"brigade/models"
)

// IngredientInfo is the projection other components consume when resolving a
// line: current cost, unit, allergen declarations and the optional back-link
// to the recipe that produces this ingredient.
type IngredientInfo struct {
	IngredientID uuid.UUID                    `json:"ingredient_id"`
	Name         string                       `json:"name"`
	UnitCost     float64                      `json:"unit_cost"`
	Unit         string                       `json:"unit"`
	Allergens    []models.AllergenDeclaration `json:"allergens"`
	SubRecipeID  *uuid.UUID                   `json:"sub_recipe_id,omitempty"`
}

// IngredientPatch carries a partial ingredient update; nil fields are left
// untouched.
type IngredientPatch struct {
	Name            *string                       `json:"name,omitempty"`
	BaseUnit        *string                       `json:"base_unit,omitempty"`
	DefaultUnitCost *float64                      `json:"default_unit_cost,omitempty"`
	CostUnit        *string                       `json:"cost_unit,omitempty"`
	Allergens       *[]models.AllergenDeclaration `json:"allergens,omitempty"`
}

// Ingredients manages ingredient master data for all organizations. The
// changed hook, when set, is invoked after every write that can affect a
// recipe costing for the organization.
type Ingredients struct {
	db      *gorm.DB
	changed func(orgID uuid.UUID)
}

// NewIngredients builds an Ingredients service over the supplied database.
func NewIngredients(db *gorm.DB) *Ingredients {
	return &Ingredients{db: db}
}

// Create stores a new ingredient. A zero ID is replaced with a random one.
func (s *Ingredients) Create(ctx context.Context, ingredient *models.Ingredient) error {
	if ingredient == nil {
		return InvalidInput("ingredient must not be nil")
	}
	if ingredient.OrganizationID == uuid.Nil {
		return InvalidInput("organization id is required")
	}
	if strings.TrimSpace(ingredient.Name) == "" {
		return InvalidInput("ingredient name is required")
	}
	if strings.TrimSpace(ingredient.BaseUnit) == "" {
		return InvalidInput("ingredient base unit is required")
	}
	if ingredient.DefaultUnitCost < 0 {
		return InvalidInput("ingredient cost must not be negative")
	}
	for _, decl := range ingredient.Allergens {
		if strings.TrimSpace(decl.Tag) == "" {
			return InvalidInput("allergen tag must not be empty")
		}
		if !models.ValidDeclaration(decl.Declaration) {
			return InvalidInput(fmt.Sprintf("unknown allergen declaration type: %s", decl.Declaration))
		}
	}

	if ingredient.ID == uuid.Nil {
		ingredient.ID = uuid.New()
	}
	for i := range ingredient.Allergens {
		ingredient.Allergens[i].IngredientID = ingredient.ID
	}

	var existing models.Ingredient
	err := s.db.WithContext(ctx).First(&existing, "id = ?", ingredient.ID).Error
	if err == nil {
		return AlreadyExists("ingredient", ingredient.ID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("check existing ingredient: %w", err)
	}

	if err := s.db.WithContext(ctx).Create(ingredient).Error; err != nil {
		return fmt.Errorf("create ingredient: %w", err)
	}

	applog.Debug(ctx, "ingredient created",
		"ingredient", ingredient.ID,
		"organization", ingredient.OrganizationID,
		"name", ingredient.Name,
	)
	return nil
}

// Get loads one ingredient with its allergen declarations.
func (s *Ingredients) Get(ctx context.Context, orgID, id uuid.UUID) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	err := s.db.WithContext(ctx).
		Preload("Allergens").
		First(&ingredient, "id = ? AND organization_id = ?", id, orgID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("ingredient", id)
		}
		return nil, fmt.Errorf("load ingredient: %w", err)
	}
	return &ingredient, nil
}

// List returns every ingredient for the organization ordered by name.
func (s *Ingredients) List(ctx context.Context, orgID uuid.UUID) ([]models.Ingredient, error) {
	var ingredients []models.Ingredient
	err := s.db.WithContext(ctx).
		Preload("Allergens").
		Where("organization_id = ?", orgID).
		Order("name asc").
		Find(&ingredients).Error
	if err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	return ingredients, nil
}

// Update applies a partial edit to the ingredient. Cost and allergens may be
// edited at any time; a supplied allergen list replaces the previous one.
func (s *Ingredients) Update(ctx context.Context, orgID, id uuid.UUID, patch IngredientPatch) (*models.Ingredient, error) {
	ingredient, err := s.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return nil, InvalidInput("ingredient name must not be empty")
		}
		updates["name"] = *patch.Name
	}
	if patch.BaseUnit != nil {
		updates["base_unit"] = *patch.BaseUnit
	}
	if patch.DefaultUnitCost != nil {
		if *patch.DefaultUnitCost < 0 {
			return nil, InvalidInput("ingredient cost must not be negative")
		}
		updates["default_unit_cost"] = *patch.DefaultUnitCost
	}
	if patch.CostUnit != nil {
		updates["cost_unit"] = *patch.CostUnit
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(ingredient).Updates(updates).Error; err != nil {
				return fmt.Errorf("update ingredient: %w", err)
			}
		}
		if patch.Allergens != nil {
			for _, decl := range *patch.Allergens {
				if strings.TrimSpace(decl.Tag) == "" {
					return InvalidInput("allergen tag must not be empty")
				}
				if !models.ValidDeclaration(decl.Declaration) {
					return InvalidInput(fmt.Sprintf("unknown allergen declaration type: %s", decl.Declaration))
				}
			}
			if err := tx.Where("ingredient_id = ?", id).Delete(&models.AllergenDeclaration{}).Error; err != nil {
				return fmt.Errorf("clear allergen declarations: %w", err)
			}
			for _, decl := range *patch.Allergens {
				decl.ID = 0
				decl.IngredientID = id
				if err := tx.Create(&decl).Error; err != nil {
					return fmt.Errorf("create allergen declaration: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyChanged(orgID)

	return s.Get(ctx, orgID, id)
}

func (s *Ingredients) notifyChanged(orgID uuid.UUID) {
	if s.changed != nil {
		s.changed(orgID)
	}
}

// CostAndAllergens returns the cost/allergen projection used during recipe
// calculation.
func (s *Ingredients) CostAndAllergens(ctx context.Context, orgID, id uuid.UUID) (IngredientInfo, error) {
	ingredient, err := s.Get(ctx, orgID, id)
	if err != nil {
		return IngredientInfo{}, err
	}
	return IngredientInfo{
		IngredientID: ingredient.ID,
		Name:         ingredient.Name,
		UnitCost:     ingredient.DefaultUnitCost,
		Unit:         ingredient.CostUnit,
		Allergens:    ingredient.Allergens,
		SubRecipeID:  ingredient.SubRecipeID,
	}, nil
}

// LinkToSubRecipe marks the ingredient as produced by the given recipe. The
// pointer is assigned once: relinking to the same recipe is a no-op and
// relinking to a different recipe is rejected.
func (s *Ingredients) LinkToSubRecipe(ctx context.Context, orgID, ingredientID, recipeID uuid.UUID) error {
	if recipeID == uuid.Nil {
		return InvalidInput("sub-recipe id is required")
	}

	ingredient, err := s.Get(ctx, orgID, ingredientID)
	if err != nil {
		return err
	}

	if ingredient.SubRecipeID != nil {
		if *ingredient.SubRecipeID == recipeID {
			return nil
		}
		return InvalidInput("ingredient is already linked to a different sub-recipe")
	}

	err = s.db.WithContext(ctx).
		Model(ingredient).
		Update("sub_recipe_id", recipeID).Error
	if err != nil {
		return fmt.Errorf("link sub-recipe: %w", err)
	}
	s.notifyChanged(orgID)

	applog.Info(ctx, "ingredient linked to sub-recipe",
		"ingredient", ingredientID,
		"recipe", recipeID,
	)
	return nil
}
