package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	applog "brigade/internal/log"
	"brigade/models"
)

// RegistryResource handles the recipe lookup registry: idempotent
// registration plus the listings kitchen displays and inventory consume.
func RegistryResource(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	orgID, ok := organizationID(w, r)
	if !ok {
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/registry")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			listRegistry(w, r, orgID)
		case http.MethodPost:
			registerRecipe(w, r, orgID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	segments := strings.Split(path, "/")
	switch segments[0] {
	case "batch-prep":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		listBatchPrep(w, r, orgID)
	case "by-output-item":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if len(segments) < 2 {
			http.NotFound(w, r)
			return
		}
		itemID, err := uuid.Parse(segments[1])
		if err != nil {
			applog.Debug(r.Context(), "invalid inventory item identifier", "identifier", segments[1], "error", err)
			http.NotFound(w, r)
			return
		}
		listByOutputItem(w, r, orgID, itemID)
	default:
		http.NotFound(w, r)
	}
}

func listRegistry(w http.ResponseWriter, r *http.Request, orgID uuid.UUID) {
	entries, err := registry.List(r.Context(), orgID)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func registerRecipe(w http.ResponseWriter, r *http.Request, orgID uuid.UUID) {
	var entry models.RecipeRegistryEntry
	if !decodeJSON(w, r, &entry) {
		return
	}
	entry.OrganizationID = orgID

	if err := registry.Register(r.Context(), entry); err != nil {
		writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func listBatchPrep(w http.ResponseWriter, r *http.Request, orgID uuid.UUID) {
	entries, err := registry.BatchPrepRecipes(r.Context(), orgID)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func listByOutputItem(w http.ResponseWriter, r *http.Request, orgID, itemID uuid.UUID) {
	entries, err := registry.RecipesByOutputItem(r.Context(), orgID, itemID)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
