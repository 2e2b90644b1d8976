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

// CreateSpec describes a new recipe document.
type CreateSpec struct {
	ID                 uuid.UUID            `json:"id"`
	OrganizationID     uuid.UUID            `json:"organization_id"`
	Content            models.RecipeContent `json:"content"`
	Author             string               `json:"author"`
	ChangeNote         string               `json:"change_note"`
	PublishImmediately bool                 `json:"publish_immediately"`
}

// DraftPatch is a partial content edit; nil fields inherit from the base
// content (the current draft, falling back to the published version).
type DraftPatch struct {
	Name              *string                              `json:"name,omitempty"`
	Description       *string                              `json:"description,omitempty"`
	Type              *string                              `json:"type,omitempty"`
	PortionYield      *float64                             `json:"portion_yield,omitempty"`
	YieldUnit         *string                              `json:"yield_unit,omitempty"`
	Lines             *[]models.RecipeIngredientLine       `json:"lines,omitempty"`
	PrepTimeMinutes   *int                                 `json:"prep_time_minutes,omitempty"`
	CookTimeMinutes   *int                                 `json:"cook_time_minutes,omitempty"`
	DeclaredAllergens *[]string                            `json:"declared_allergens,omitempty"`
	Translations      *map[string]models.RecipeTranslation `json:"translations,omitempty"`
	Batch             *models.BatchOutput                  `json:"batch,omitempty"`
}

// Documents orchestrates draft/publish/revert lifecycles for recipe
// documents. Every mutating operation runs under the document's key lock so
// concurrent calls to the same document apply one at a time.
type Documents struct {
	db    *gorm.DB
	calc  *Calculator
	locks *keyLocks
}

// NewDocuments builds a Documents service.
func NewDocuments(db *gorm.DB, calc *Calculator) *Documents {
	return &Documents{db: db, calc: calc, locks: newKeyLocks()}
}

// Create stores a new document. With PublishImmediately the initial content
// is evaluated and committed as published version 1; otherwise it becomes the
// initial draft.
func (s *Documents) Create(ctx context.Context, spec CreateSpec) (*models.RecipeDocument, error) {
	if spec.OrganizationID == uuid.Nil {
		return nil, InvalidInput("organization id is required")
	}
	if spec.ID == uuid.Nil {
		spec.ID = uuid.New()
	}
	if err := validateContent(spec.Content); err != nil {
		return nil, err
	}

	release := s.locks.acquire(spec.OrganizationID, spec.ID)
	defer release()

	var existing models.RecipeDocument
	err := s.db.WithContext(ctx).First(&existing, "id = ?", spec.ID).Error
	if err == nil {
		return nil, AlreadyExists("recipe document", spec.ID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check existing document: %w", err)
	}

	doc := models.RecipeDocument{
		ID:             spec.ID,
		OrganizationID: spec.OrganizationID,
	}

	if spec.PublishImmediately {
		content, costing, err := s.calc.Evaluate(ctx, spec.OrganizationID, spec.ID, spec.Content, EvaluateOptions{})
		if err != nil {
			return nil, err
		}
		doc.Published = &content
		doc.PublishedCost = &costing
		doc.PublishedVersion = 1
		doc.TotalVersions = 1

		note := spec.ChangeNote
		if strings.TrimSpace(note) == "" {
			note = "initial version"
		}
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&doc).Error; err != nil {
				return fmt.Errorf("create document: %w", err)
			}
			record := models.RecipeVersionRecord{
				RecipeID:       doc.ID,
				OrganizationID: doc.OrganizationID,
				VersionNumber:  1,
				Content:        content,
				Cost:           costing,
				ChangeNote:     note,
				Author:         spec.Author,
			}
			if err := tx.Create(&record).Error; err != nil {
				return fmt.Errorf("create history entry: %w", err)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		draft := spec.Content.Clone()
		doc.Draft = &draft
		if err := s.db.WithContext(ctx).Create(&doc).Error; err != nil {
			return nil, fmt.Errorf("create document: %w", err)
		}
	}

	applog.Info(ctx, "recipe document created",
		"recipe", doc.ID,
		"organization", doc.OrganizationID,
		"published", spec.PublishImmediately,
	)
	return &doc, nil
}

// Delete removes the document together with its version history. The
// registry entry, if any, is left to the caller: the registry is a
// write-through catalog and is never mutated implicitly.
func (s *Documents) Delete(ctx context.Context, orgID, recipeID uuid.UUID) error {
	release := s.locks.acquire(orgID, recipeID)
	defer release()

	doc, err := s.load(ctx, orgID, recipeID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeVersionRecord{}).Error; err != nil {
			return fmt.Errorf("delete version history: %w", err)
		}
		if err := tx.Delete(doc).Error; err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.calc.Invalidate(orgID, recipeID)
	applog.Info(ctx, "recipe document deleted",
		"recipe", recipeID,
		"organization", orgID,
	)
	return nil
}

// CreateDraft creates or overwrites the draft by merging the patch over the
// current draft, falling back to the published content. The draft is not
// recalculated; costing runs at publish time.
func (s *Documents) CreateDraft(ctx context.Context, orgID, recipeID uuid.UUID, patch DraftPatch) (*models.RecipeDocument, error) {
	release := s.locks.acquire(orgID, recipeID)
	defer release()

	doc, err := s.load(ctx, orgID, recipeID)
	if err != nil {
		return nil, err
	}

	var base models.RecipeContent
	switch {
	case doc.Draft != nil:
		base = doc.Draft.Clone()
	case doc.Published != nil:
		base = doc.Published.Clone()
	}

	merged := applyPatch(base, patch)
	doc.Draft = &merged

	if err := s.db.WithContext(ctx).Save(doc).Error; err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return doc, nil
}

// DiscardDraft clears the draft; discarding a missing draft is a no-op.
func (s *Documents) DiscardDraft(ctx context.Context, orgID, recipeID uuid.UUID) error {
	release := s.locks.acquire(orgID, recipeID)
	defer release()

	doc, err := s.load(ctx, orgID, recipeID)
	if err != nil {
		return err
	}
	if doc.Draft == nil {
		return nil
	}

	doc.Draft = nil
	if err := s.db.WithContext(ctx).Save(doc).Error; err != nil {
		return fmt.Errorf("discard draft: %w", err)
	}
	return nil
}

// PublishDraft promotes the current draft to a new published version,
// appending a history entry. The draft is preserved unless discardDraft.
func (s *Documents) PublishDraft(ctx context.Context, orgID, recipeID uuid.UUID, note, author string, discardDraft bool) (*models.RecipeDocument, error) {
	release := s.locks.acquire(orgID, recipeID)
	defer release()

	doc, err := s.load(ctx, orgID, recipeID)
	if err != nil {
		return nil, err
	}
	if doc.Draft == nil {
		return nil, ErrNoDraft
	}
	if err := validateContent(*doc.Draft); err != nil {
		return nil, err
	}

	content, costing, err := s.calc.Evaluate(ctx, orgID, recipeID, *doc.Draft, EvaluateOptions{})
	if err != nil {
		return nil, err
	}

	version := doc.TotalVersions + 1
	doc.Published = &content
	doc.PublishedCost = &costing
	doc.PublishedVersion = version
	doc.TotalVersions = version
	if discardDraft {
		doc.Draft = nil
	}

	if err := s.commitVersion(ctx, doc, content, costing, version, note, author); err != nil {
		return nil, err
	}

	s.calc.Invalidate(orgID, recipeID)
	applog.Info(ctx, "draft published",
		"recipe", recipeID,
		"organization", orgID,
		"version", version,
	)
	return doc, nil
}

// RevertToVersion copies a historical version's content forward as a brand
// new head version. History is never truncated. Costing is recomputed against
// the ingredients' current costs, not the costs frozen at the version's
// original publish time.
func (s *Documents) RevertToVersion(ctx context.Context, orgID, recipeID uuid.UUID, versionNumber int, reason, author string) (*models.RecipeDocument, error) {
	release := s.locks.acquire(orgID, recipeID)
	defer release()

	doc, err := s.load(ctx, orgID, recipeID)
	if err != nil {
		return nil, err
	}
	if versionNumber < 1 || versionNumber > doc.TotalVersions {
		return nil, &VersionNotFoundError{RecipeID: recipeID, Version: versionNumber}
	}

	var record models.RecipeVersionRecord
	err = s.db.WithContext(ctx).
		First(&record, "recipe_id = ? AND version_number = ?", recipeID, versionNumber).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &VersionNotFoundError{RecipeID: recipeID, Version: versionNumber}
		}
		return nil, fmt.Errorf("load version %d: %w", versionNumber, err)
	}

	content, costing, err := s.calc.Evaluate(ctx, orgID, recipeID, record.Content, EvaluateOptions{RefreshUnitCosts: true})
	if err != nil {
		return nil, err
	}

	version := doc.TotalVersions + 1
	doc.Published = &content
	doc.PublishedCost = &costing
	doc.PublishedVersion = version
	doc.TotalVersions = version

	if err := s.commitVersion(ctx, doc, content, costing, version, reason, author); err != nil {
		return nil, err
	}

	s.calc.Invalidate(orgID, recipeID)
	applog.Info(ctx, "document reverted",
		"recipe", recipeID,
		"organization", orgID,
		"restoredVersion", versionNumber,
		"newVersion", version,
	)
	return doc, nil
}

// RecalculateCost patches the published lines whose ingredient appears in the
// overrides map and recomputes costing in place. No version is created: this
// models a supplier price change patched into the live recipe without
// document-history noise.
func (s *Documents) RecalculateCost(ctx context.Context, orgID, recipeID uuid.UUID, overrides map[uuid.UUID]float64) (*models.RecipeDocument, error) {
	release := s.locks.acquire(orgID, recipeID)
	defer release()

	doc, err := s.load(ctx, orgID, recipeID)
	if err != nil {
		return nil, err
	}
	if doc.Published == nil {
		return nil, InvalidInput("recipe has no published version to recalculate")
	}

	patched := doc.Published.Clone()
	for i, line := range patched.Lines {
		if cost, ok := overrides[line.IngredientID]; ok {
			if cost < 0 {
				return nil, InvalidInput("override unit cost must not be negative")
			}
			patched.Lines[i].UnitCost = cost
		}
	}

	content, costing, err := s.calc.Evaluate(ctx, orgID, recipeID, patched, EvaluateOptions{})
	if err != nil {
		return nil, err
	}

	doc.Published = &content
	doc.PublishedCost = &costing
	if err := s.db.WithContext(ctx).Save(doc).Error; err != nil {
		return nil, fmt.Errorf("save recalculated document: %w", err)
	}

	s.calc.Invalidate(orgID, recipeID)
	applog.Info(ctx, "published cost recalculated",
		"recipe", recipeID,
		"organization", orgID,
		"overrides", len(overrides),
		"theoreticalCost", costing.TheoreticalCost,
	)
	return doc, nil
}

// AddTranslation sets the published version's translation for a locale.
func (s *Documents) AddTranslation(ctx context.Context, orgID, recipeID uuid.UUID, locale string, translation models.RecipeTranslation) error {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return InvalidInput("locale is required")
	}

	release := s.locks.acquire(orgID, recipeID)
	defer release()

	doc, err := s.load(ctx, orgID, recipeID)
	if err != nil {
		return err
	}
	if doc.Published == nil {
		return InvalidInput("recipe has no published version to translate")
	}

	if doc.Published.Translations == nil {
		doc.Published.Translations = make(map[string]models.RecipeTranslation)
	}
	doc.Published.Translations[locale] = translation

	if err := s.db.WithContext(ctx).Save(doc).Error; err != nil {
		return fmt.Errorf("save translation: %w", err)
	}
	return nil
}

// RemoveTranslation deletes the published version's translation for a locale.
// Removing a locale that is not present is a silent no-op.
func (s *Documents) RemoveTranslation(ctx context.Context, orgID, recipeID uuid.UUID, locale string) error {
	release := s.locks.acquire(orgID, recipeID)
	defer release()

	doc, err := s.load(ctx, orgID, recipeID)
	if err != nil {
		return err
	}
	if doc.Published == nil || doc.Published.Translations == nil {
		return nil
	}
	if _, ok := doc.Published.Translations[locale]; !ok {
		return nil
	}

	delete(doc.Published.Translations, locale)
	if err := s.db.WithContext(ctx).Save(doc).Error; err != nil {
		return fmt.Errorf("remove translation: %w", err)
	}
	return nil
}

// GetSnapshot returns the full document state.
func (s *Documents) GetSnapshot(ctx context.Context, orgID, recipeID uuid.UUID) (*models.RecipeDocument, error) {
	return s.load(ctx, orgID, recipeID)
}

// GetPublished returns the published content and costing, or nils when the
// document exists but nothing has been published yet.
func (s *Documents) GetPublished(ctx context.Context, orgID, recipeID uuid.UUID) (*models.RecipeContent, *models.RecipeCosting, error) {
	doc, err := s.load(ctx, orgID, recipeID)
	if err != nil {
		return nil, nil, err
	}
	return doc.Published, doc.PublishedCost, nil
}

// GetVersion returns one history entry, or nil when the version number is
// outside the document's range.
func (s *Documents) GetVersion(ctx context.Context, orgID, recipeID uuid.UUID, versionNumber int) (*models.RecipeVersionRecord, error) {
	if _, err := s.load(ctx, orgID, recipeID); err != nil {
		return nil, err
	}

	var record models.RecipeVersionRecord
	err := s.db.WithContext(ctx).
		First(&record, "recipe_id = ? AND version_number = ?", recipeID, versionNumber).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load version %d: %w", versionNumber, err)
	}
	return &record, nil
}

// GetVersionHistory returns every history entry, newest first.
func (s *Documents) GetVersionHistory(ctx context.Context, orgID, recipeID uuid.UUID) ([]models.RecipeVersionRecord, error) {
	if _, err := s.load(ctx, orgID, recipeID); err != nil {
		return nil, err
	}

	var records []models.RecipeVersionRecord
	err := s.db.WithContext(ctx).
		Where("recipe_id = ?", recipeID).
		Order("version_number desc").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("load version history: %w", err)
	}
	return records, nil
}

func (s *Documents) load(ctx context.Context, orgID, recipeID uuid.UUID) (*models.RecipeDocument, error) {
	var doc models.RecipeDocument
	err := s.db.WithContext(ctx).
		First(&doc, "id = ? AND organization_id = ?", recipeID, orgID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("recipe document", recipeID)
		}
		return nil, fmt.Errorf("load document: %w", err)
	}
	return &doc, nil
}

func (s *Documents) commitVersion(ctx context.Context, doc *models.RecipeDocument, content models.RecipeContent, costing models.RecipeCosting, version int, note, author string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(doc).Error; err != nil {
			return fmt.Errorf("save document: %w", err)
		}
		record := models.RecipeVersionRecord{
			RecipeID:       doc.ID,
			OrganizationID: doc.OrganizationID,
			VersionNumber:  version,
			Content:        content,
			Cost:           costing,
			ChangeNote:     note,
			Author:         author,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("create history entry: %w", err)
		}
		return nil
	})
}

func applyPatch(base models.RecipeContent, patch DraftPatch) models.RecipeContent {
	if patch.Name != nil {
		base.Name = *patch.Name
	}
	if patch.Description != nil {
		base.Description = *patch.Description
	}
	if patch.Type != nil {
		base.Type = *patch.Type
	}
	if patch.PortionYield != nil {
		base.PortionYield = *patch.PortionYield
	}
	if patch.YieldUnit != nil {
		base.YieldUnit = *patch.YieldUnit
	}
	if patch.Lines != nil {
		base.Lines = append([]models.RecipeIngredientLine(nil), (*patch.Lines)...)
	}
	if patch.PrepTimeMinutes != nil {
		base.PrepTimeMinutes = *patch.PrepTimeMinutes
	}
	if patch.CookTimeMinutes != nil {
		base.CookTimeMinutes = *patch.CookTimeMinutes
	}
	if patch.DeclaredAllergens != nil {
		base.DeclaredAllergens = append([]string(nil), (*patch.DeclaredAllergens)...)
	}
	if patch.Translations != nil {
		base.Translations = make(map[string]models.RecipeTranslation, len(*patch.Translations))
		for locale, tr := range *patch.Translations {
			base.Translations[locale] = tr
		}
	}
	if patch.Batch != nil {
		batch := *patch.Batch
		base.Batch = &batch
	}
	return base
}
