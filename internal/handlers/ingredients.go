package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	applog "brigade/internal/log"
	"brigade/internal/recipes"
	"brigade/models"
)

type linkSubRecipeRequest struct {
	RecipeID uuid.UUID `json:"recipe_id"`
}

// IngredientResource handles REST-style interactions for ingredient records.
func IngredientResource(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	orgID, ok := organizationID(w, r)
	if !ok {
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/ingredients")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			listIngredients(w, r, orgID)
		case http.MethodPost:
			createIngredient(w, r, orgID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	segments := strings.Split(path, "/")
	ingredientID, err := uuid.Parse(segments[0])
	if err != nil {
		applog.Debug(r.Context(), "invalid ingredient identifier", "identifier", segments[0], "error", err)
		http.NotFound(w, r)
		return
	}

	if len(segments) > 1 && segments[1] == "link-sub-recipe" {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		linkIngredientSubRecipe(w, r, orgID, ingredientID)
		return
	}

	switch r.Method {
	case http.MethodGet:
		showIngredient(w, r, orgID, ingredientID)
	case http.MethodPut, http.MethodPatch:
		updateIngredient(w, r, orgID, ingredientID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listIngredients(w http.ResponseWriter, r *http.Request, orgID uuid.UUID) {
	results, err := ingredients.List(r.Context(), orgID)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func createIngredient(w http.ResponseWriter, r *http.Request, orgID uuid.UUID) {
	var ingredient models.Ingredient
	if !decodeJSON(w, r, &ingredient) {
		return
	}
	ingredient.OrganizationID = orgID

	if err := ingredients.Create(r.Context(), &ingredient); err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ingredient)
}

func showIngredient(w http.ResponseWriter, r *http.Request, orgID, id uuid.UUID) {
	ingredient, err := ingredients.Get(r.Context(), orgID, id)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ingredient)
}

func updateIngredient(w http.ResponseWriter, r *http.Request, orgID, id uuid.UUID) {
	var patch recipes.IngredientPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	updated, err := ingredients.Update(r.Context(), orgID, id, patch)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func linkIngredientSubRecipe(w http.ResponseWriter, r *http.Request, orgID, id uuid.UUID) {
	var req linkSubRecipeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := ingredients.LinkToSubRecipe(r.Context(), orgID, id, req.RecipeID); err != nil {
		writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
