package server

import (
	"context"
	"net/http"

	"brigade/internal/handlers"
	applog "brigade/internal/log"
)

func newRouter() http.Handler {
	mux := http.NewServeMux()
	applog.Debug(context.Background(), "registering http routes")
	mux.HandleFunc("/healthz", handlers.Health)
	mux.HandleFunc("/api/ingredients", handlers.IngredientResource)
	mux.HandleFunc("/api/ingredients/", handlers.IngredientResource)
	mux.HandleFunc("/api/recipes", handlers.RecipeResource)
	mux.HandleFunc("/api/recipes/", handlers.RecipeResource)
	mux.HandleFunc("/api/registry", handlers.RegistryResource)
	mux.HandleFunc("/api/registry/", handlers.RegistryResource)
	return mux
}
