package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	applog "brigade/internal/log"
	"brigade/internal/recipes"
	"brigade/models"
)

type createRecipeRequest struct {
	ID                 uuid.UUID            `json:"id"`
	Content            models.RecipeContent `json:"content"`
	Author             string               `json:"author"`
	ChangeNote         string               `json:"change_note"`
	PublishImmediately bool                 `json:"publish_immediately"`
}

type publishRequest struct {
	ChangeNote   string `json:"change_note"`
	Author       string `json:"author"`
	DiscardDraft bool   `json:"discard_draft"`
}

type revertRequest struct {
	VersionNumber int    `json:"version_number"`
	Reason        string `json:"reason"`
	Author        string `json:"author"`
}

type recalculateRequest struct {
	CostOverrides map[uuid.UUID]float64 `json:"cost_overrides"`
}

type translationRequest struct {
	Locale      string `json:"locale"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// RecipeResource handles REST-style interactions for recipe documents: the
// draft/publish lifecycle, version history, translations and cost
// recalculation.
func RecipeResource(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	orgID, ok := organizationID(w, r)
	if !ok {
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/recipes")
	path = strings.Trim(path, "/")

	if path == "" {
		if r.Method == http.MethodPost {
			createRecipe(w, r, orgID)
			return
		}
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	segments := strings.Split(path, "/")
	recipeID, err := uuid.Parse(segments[0])
	if err != nil {
		applog.Debug(r.Context(), "invalid recipe identifier", "identifier", segments[0], "error", err)
		http.NotFound(w, r)
		return
	}

	if len(segments) == 1 {
		switch r.Method {
		case http.MethodGet:
			showRecipe(w, r, orgID, recipeID)
		case http.MethodDelete:
			deleteRecipe(w, r, orgID, recipeID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	switch segments[1] {
	case "draft":
		switch r.Method {
		case http.MethodPut, http.MethodPatch:
			saveDraft(w, r, orgID, recipeID)
		case http.MethodDelete:
			discardDraft(w, r, orgID, recipeID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case "publish":
		requirePost(w, r, func() { publishRecipe(w, r, orgID, recipeID) })
	case "revert":
		requirePost(w, r, func() { revertRecipe(w, r, orgID, recipeID) })
	case "recalculate":
		requirePost(w, r, func() { recalculateRecipe(w, r, orgID, recipeID) })
	case "translations":
		recipeTranslations(w, r, orgID, recipeID, segments[2:])
	case "published":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		showPublished(w, r, orgID, recipeID)
	case "versions":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		showVersions(w, r, orgID, recipeID, segments[2:])
	default:
		http.NotFound(w, r)
	}
}

func requirePost(w http.ResponseWriter, r *http.Request, fn func()) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	fn()
}

func createRecipe(w http.ResponseWriter, r *http.Request, orgID uuid.UUID) {
	var req createRecipeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	doc, err := documents.Create(r.Context(), recipes.CreateSpec{
		ID:                 req.ID,
		OrganizationID:     orgID,
		Content:            req.Content,
		Author:             req.Author,
		ChangeNote:         req.ChangeNote,
		PublishImmediately: req.PublishImmediately,
	})
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func showRecipe(w http.ResponseWriter, r *http.Request, orgID, recipeID uuid.UUID) {
	doc, err := documents.GetSnapshot(r.Context(), orgID, recipeID)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func deleteRecipe(w http.ResponseWriter, r *http.Request, orgID, recipeID uuid.UUID) {
	if err := documents.Delete(r.Context(), orgID, recipeID); err != nil {
		writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func saveDraft(w http.ResponseWriter, r *http.Request, orgID, recipeID uuid.UUID) {
	var patch recipes.DraftPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	doc, err := documents.CreateDraft(r.Context(), orgID, recipeID, patch)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func discardDraft(w http.ResponseWriter, r *http.Request, orgID, recipeID uuid.UUID) {
	if err := documents.DiscardDraft(r.Context(), orgID, recipeID); err != nil {
		writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func publishRecipe(w http.ResponseWriter, r *http.Request, orgID, recipeID uuid.UUID) {
	var req publishRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	doc, err := documents.PublishDraft(r.Context(), orgID, recipeID, req.ChangeNote, req.Author, req.DiscardDraft)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func revertRecipe(w http.ResponseWriter, r *http.Request, orgID, recipeID uuid.UUID) {
	var req revertRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	doc, err := documents.RevertToVersion(r.Context(), orgID, recipeID, req.VersionNumber, req.Reason, req.Author)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func recalculateRecipe(w http.ResponseWriter, r *http.Request, orgID, recipeID uuid.UUID) {
	var req recalculateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	doc, err := documents.RecalculateCost(r.Context(), orgID, recipeID, req.CostOverrides)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func recipeTranslations(w http.ResponseWriter, r *http.Request, orgID, recipeID uuid.UUID, rest []string) {
	switch r.Method {
	case http.MethodPost, http.MethodPut:
		var req translationRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Locale) == "" {
			writeJSONError(w, http.StatusBadRequest, "translation locale is required")
			return
		}
		err := documents.AddTranslation(r.Context(), orgID, recipeID, req.Locale, models.RecipeTranslation{
			Name:        req.Name,
			Description: req.Description,
		})
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		if len(rest) == 0 || rest[0] == "" {
			writeJSONError(w, http.StatusBadRequest, "translation locale is required")
			return
		}
		if err := documents.RemoveTranslation(r.Context(), orgID, recipeID, rest[0]); err != nil {
			writeEngineError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func showPublished(w http.ResponseWriter, r *http.Request, orgID, recipeID uuid.UUID) {
	content, costing, err := documents.GetPublished(r.Context(), orgID, recipeID)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	if content == nil {
		writeJSONError(w, http.StatusNotFound, "recipe has no published version")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"content": content,
		"cost":    costing,
	})
}

func showVersions(w http.ResponseWriter, r *http.Request, orgID, recipeID uuid.UUID, rest []string) {
	if len(rest) == 0 || rest[0] == "" {
		history, err := documents.GetVersionHistory(r.Context(), orgID, recipeID)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, history)
		return
	}

	versionNumber, err := strconv.Atoi(rest[0])
	if err != nil {
		applog.Debug(r.Context(), "invalid version number", "value", rest[0], "error", err)
		http.NotFound(w, r)
		return
	}

	record, err := documents.GetVersion(r.Context(), orgID, recipeID, versionNumber)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	if record == nil {
		writeJSONError(w, http.StatusNotFound, "version not found")
		return
	}
	writeJSON(w, http.StatusOK, record)
}
