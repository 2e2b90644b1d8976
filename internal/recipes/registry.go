package recipes

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	applog "brigade/internal/log"
	"brigade/models"
)

// Registry is the per-organization catalog of recipes. It is a write-through
// index: entries exist only because something registered them, and they are
// not kept in sync with the documents they describe.
type Registry struct {
	db *gorm.DB
}

// NewRegistry builds a Registry service.
func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// Register upserts the catalog entry for a recipe. Registering the same
// recipe id again overwrites the previous entry.
func (s *Registry) Register(ctx context.Context, entry models.RecipeRegistryEntry) error {
	if entry.OrganizationID == uuid.Nil {
		return InvalidInput("organization id is required")
	}
	if entry.RecipeID == uuid.Nil {
		return InvalidInput("recipe id is required")
	}
	if strings.TrimSpace(entry.Name) == "" {
		return InvalidInput("recipe name is required")
	}
	if !models.ValidRecipeType(entry.RecipeType) {
		return InvalidInput(fmt.Sprintf("unknown recipe type: %s", entry.RecipeType))
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "organization_id"}, {Name: "recipe_id"}},
			UpdateAll: true,
		}).
		Create(&entry).Error
	if err != nil {
		return fmt.Errorf("register recipe: %w", err)
	}

	applog.Debug(ctx, "recipe registered",
		"recipe", entry.RecipeID,
		"organization", entry.OrganizationID,
		"type", entry.RecipeType,
	)
	return nil
}

// List returns every registered recipe for the organization.
func (s *Registry) List(ctx context.Context, orgID uuid.UUID) ([]models.RecipeRegistryEntry, error) {
	var entries []models.RecipeRegistryEntry
	err := s.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("name asc").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list registry entries: %w", err)
	}
	return entries, nil
}

// BatchPrepRecipes returns the registered batch-prep recipes.
func (s *Registry) BatchPrepRecipes(ctx context.Context, orgID uuid.UUID) ([]models.RecipeRegistryEntry, error) {
	var entries []models.RecipeRegistryEntry
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND recipe_type = ?", orgID, models.RecipeTypeBatchPrep).
		Order("name asc").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list batch-prep recipes: %w", err)
	}
	return entries, nil
}

// RecipesByOutputItem returns the registered recipes producing the given
// inventory item.
func (s *Registry) RecipesByOutputItem(ctx context.Context, orgID, itemID uuid.UUID) ([]models.RecipeRegistryEntry, error) {
	var entries []models.RecipeRegistryEntry
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND output_inventory_item_id = ?", orgID, itemID).
		Order("name asc").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list recipes by output item: %w", err)
	}
	return entries, nil
}
