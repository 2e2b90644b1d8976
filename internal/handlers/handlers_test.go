package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"brigade/models"
)

func withTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	original := database

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	err = db.AutoMigrate(
		&models.Ingredient{},
		&models.AllergenDeclaration{},
		&models.RecipeDocument{},
		&models.RecipeVersionRecord{},
		&models.RecipeRegistryEntry{},
	)
	if err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	Configure(db)
	t.Cleanup(func() {
		Configure(original)
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func apiRequest(t *testing.T, org uuid.UUID, method, target string, payload any) *http.Request {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, body)
	if org != uuid.Nil {
		req.Header.Set(OrganizationHeader, org.String())
	}
	return req
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	Health(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var resp healthResponse
	decodeResponse(t, w, &resp)
	if resp.Status != "ok" {
		t.Fatalf("unexpected health payload: %+v", resp)
	}
}

func TestMissingOrganizationHeader(t *testing.T) {
	withTestDatabase(t)

	req := apiRequest(t, uuid.Nil, http.MethodGet, "/api/ingredients", nil)
	w := httptest.NewRecorder()
	IngredientResource(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without org header, got %d", w.Code)
	}
}

func TestUnconfiguredDatabaseReturnsServiceUnavailable(t *testing.T) {
	original := database
	Configure(nil)
	t.Cleanup(func() { Configure(original) })

	req := apiRequest(t, uuid.New(), http.MethodGet, "/api/ingredients", nil)
	w := httptest.NewRecorder()
	IngredientResource(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", w.Code)
	}
}
