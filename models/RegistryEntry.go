package models

import (
	"time"

	"github.com/google/uuid"
)

// RecipeRegistryEntry is a write-through catalog row for one recipe. It is
// populated only by explicit registration calls and is not kept in sync with
// the document it describes.
type RecipeRegistryEntry struct {
	OrganizationID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"organization_id"`
	RecipeID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"recipe_id"`
	Name                  string     `gorm:"not null" json:"name"`
	Description           string     `json:"description,omitempty"`
	Cost                  float64    `json:"cost"`
	RecipeType            string     `gorm:"not null" json:"recipe_type"`
	OutputInventoryItemID *uuid.UUID `gorm:"type:uuid;index" json:"output_inventory_item_id,omitempty"`
	ShelfLifeHours        *int       `json:"shelf_life_hours,omitempty"`
	UpdatedAt             time.Time  `json:"updated_at"`
}
