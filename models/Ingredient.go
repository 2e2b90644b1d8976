package models

import (
	"time"

	"github.com/google/uuid"
)

// Declaration strengths for allergen tags. A "contains" declaration is the
// stronger signal and overrides "may_contain" for the same tag when recipe
// allergen sets are computed.
const (
	DeclarationContains   = "contains"
	DeclarationMayContain = "may_contain"
)

// ValidDeclaration reports whether the supplied declaration type is known.
func ValidDeclaration(value string) bool {
	switch value {
	case DeclarationContains, DeclarationMayContain:
		return true
	}
	return false
}

// Ingredient is the master-data record for a purchasable or produced item.
// When SubRecipeID is set the ingredient is the output of another recipe and
// its cost is derived from that recipe's published version; the declared
// DefaultUnitCost then acts only as a display fallback.
type Ingredient struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID  uuid.UUID  `gorm:"type:uuid;index;not null" json:"organization_id"`
	Name            string     `gorm:"not null;index" json:"name"`
	BaseUnit        string     `gorm:"not null" json:"base_unit"`
	DefaultUnitCost float64    `json:"default_unit_cost"`
	CostUnit        string     `json:"cost_unit"`
	SubRecipeID     *uuid.UUID `gorm:"type:uuid" json:"sub_recipe_id,omitempty"`

	Allergens []AllergenDeclaration `gorm:"foreignKey:IngredientID" json:"allergens"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AllergenDeclaration records a single allergen exposure for an ingredient.
type AllergenDeclaration struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	IngredientID uuid.UUID `gorm:"type:uuid;index;not null" json:"-"`
	Tag          string    `gorm:"not null" json:"tag"`
	Declaration  string    `gorm:"not null" json:"declaration"`
	Note         string    `json:"note,omitempty"`
}
