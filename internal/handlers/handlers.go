package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"

	applog "brigade/internal/log"
	"brigade/internal/recipes"
)

// OrganizationHeader scopes every API request to one tenant. Authentication
// sits in front of this service; by the time a request arrives the header is
// trusted.
const OrganizationHeader = "X-Organization-ID"

var (
	database    *gorm.DB
	ingredients *recipes.Ingredients
	calculator  *recipes.Calculator
	documents   *recipes.Documents
	registry    *recipes.Registry
)

// Configure installs the shared dependencies used by the HTTP handlers.
func Configure(db *gorm.DB) {
	database = db
	if db == nil {
		ingredients = nil
		calculator = nil
		documents = nil
		registry = nil
		return
	}
	ingredients = recipes.NewIngredients(db)
	calculator = recipes.NewCalculator(db, ingredients)
	documents = recipes.NewDocuments(db, calculator)
	registry = recipes.NewRegistry(db)
}

func ready(w http.ResponseWriter, r *http.Request) bool {
	if database == nil {
		applog.Debug(r.Context(), "api request without database", "path", r.URL.Path)
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func organizationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.Header.Get(OrganizationHeader)
	if raw == "" {
		writeJSONError(w, http.StatusBadRequest, "missing organization header")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid organization id")
		return uuid.Nil, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		applog.Debug(r.Context(), "invalid request payload", "path", r.URL.Path, "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return false
	}
	return true
}

// writeEngineError translates the engine's error taxonomy into HTTP status
// codes. Unknown errors are logged and reported as 500 without leaking
// internals.
func writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		conflict *recipes.AlreadyExistsError
		notFound *recipes.NotFoundError
		version  *recipes.VersionNotFoundError
		invalid  *recipes.ValidationError
		circular *recipes.CircularReferenceError
	)

	switch {
	case errors.As(err, &conflict):
		writeJSONError(w, http.StatusConflict, conflict.Error())
	case errors.Is(err, recipes.ErrNoDraft):
		writeJSONError(w, http.StatusConflict, err.Error())
	case errors.As(err, &notFound):
		writeJSONError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &version):
		writeJSONError(w, http.StatusNotFound, version.Error())
	case errors.As(err, &invalid):
		writeJSONError(w, http.StatusUnprocessableEntity, invalid.Error())
	case errors.As(err, &circular):
		writeJSONError(w, http.StatusUnprocessableEntity, circular.Error())
	case errors.Is(err, recipes.ErrDepthExceeded):
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		applog.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		applog.Error(context.Background(), "failed to encode json response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
