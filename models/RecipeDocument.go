package models

import (
	"time"

	"github.com/google/uuid"
)

// RecipeDocument is the aggregate root for one recipe. Draft is the mutable
// working copy; Published is the immutable snapshot other recipes and
// subsystems consume. History rows live in RecipeVersionRecord.
type RecipeDocument struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;index;not null" json:"organization_id"`

	Draft         *RecipeContent `gorm:"serializer:json" json:"draft,omitempty"`
	Published     *RecipeContent `gorm:"serializer:json" json:"published,omitempty"`
	PublishedCost *RecipeCosting `gorm:"serializer:json" json:"published_cost,omitempty"`

	PublishedVersion int `gorm:"not null;default:0" json:"published_version"`
	TotalVersions    int `gorm:"not null;default:0" json:"total_versions"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecipeVersionRecord is one append-only history entry for a recipe document.
type RecipeVersionRecord struct {
	ID             uint          `gorm:"primaryKey" json:"-"`
	RecipeID       uuid.UUID     `gorm:"type:uuid;index;not null" json:"recipe_id"`
	OrganizationID uuid.UUID     `gorm:"type:uuid;index;not null" json:"organization_id"`
	VersionNumber  int           `gorm:"not null" json:"version_number"`
	Content        RecipeContent `gorm:"serializer:json" json:"content"`
	Cost           RecipeCosting `gorm:"serializer:json" json:"cost"`
	ChangeNote     string        `json:"change_note"`
	Author         string        `json:"author"`
	CreatedAt      time.Time     `json:"created_at"`
}
