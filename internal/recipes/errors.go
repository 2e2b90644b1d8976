package recipes

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Sentinel errors surfaced by the engine.
var (
	// ErrNoDraft is returned when a publish is attempted with nothing drafted.
	ErrNoDraft = errors.New("recipes: no draft to publish")
	// ErrDepthExceeded is returned when sub-recipe resolution runs out of
	// its depth budget before reaching the leaves of the graph.
	ErrDepthExceeded = errors.New("recipes: sub-recipe nesting exceeds maximum depth")
)

// AlreadyExistsError reports a create against a key that is already taken.
type AlreadyExistsError struct {
	Resource string
	ID       uuid.UUID
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("found conflicting %s with id: %s", e.Resource, e.ID)
}

// AlreadyExists builds an AlreadyExistsError.
func AlreadyExists(resource string, id uuid.UUID) *AlreadyExistsError {
	return &AlreadyExistsError{Resource: resource, ID: id}
}

// NotFoundError reports an operation addressed to a missing entity.
type NotFoundError struct {
	Resource string
	ID       uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("could not find a %s with id: %s", e.Resource, e.ID)
}

// NotFound builds a NotFoundError.
func NotFound(resource string, id uuid.UUID) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// VersionNotFoundError reports a version number outside the document's
// [1, TotalVersions] range.
type VersionNotFoundError struct {
	RecipeID uuid.UUID
	Version  int
}

func (e *VersionNotFoundError) Error() string {
	return fmt.Sprintf("recipe %s has no version %d", e.RecipeID, e.Version)
}

// ValidationError reports rejected input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// InvalidInput builds a ValidationError.
func InvalidInput(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// CircularReferenceError reports a recipe that directly or transitively
// references itself as an ingredient. Path holds the resolution path that
// closed the cycle, root first.
type CircularReferenceError struct {
	Path []uuid.UUID
}

func (e *CircularReferenceError) Error() string {
	ids := make([]string, len(e.Path))
	for i, id := range e.Path {
		ids[i] = id.String()
	}
	return "recipes: circular sub-recipe reference: " + strings.Join(ids, " -> ")
}
