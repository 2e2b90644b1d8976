package main

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"brigade/models"
)

func TestParseCSVPriceList(t *testing.T) {
	input := strings.Join([]string{
		"name,unit,cost,cost_unit,allergens",
		"San Marzano Tomatoes,kg,3.40,EUR,",
		"Cream,l,\"2,60\",EUR,Milk:contains",
		"Rye Flour,kg,1.80,EUR,Gluten:contains;Sesame:may_contain",
		",kg,9.99,EUR,",
	}, "\n")

	rows, err := parseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parseCSV returned error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows (blank name skipped), got %d", len(rows))
	}

	if rows[0].Name != "San Marzano Tomatoes" || rows[0].Cost != 3.40 {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if rows[1].Cost != 2.60 {
		t.Fatalf("comma decimal not normalized: %+v", rows[1])
	}
	if len(rows[2].Allergens) != 2 {
		t.Fatalf("allergen declarations not parsed: %+v", rows[2].Allergens)
	}
	if rows[2].Allergens[1].Declaration != models.DeclarationMayContain {
		t.Fatalf("unexpected declaration: %+v", rows[2].Allergens[1])
	}
}

func TestParseCSVMissingColumn(t *testing.T) {
	_, err := parseCSV(strings.NewReader("name,unit\nSalt,g"))
	if err == nil {
		t.Fatal("expected error for missing cost column")
	}
}

func TestParsePriceText(t *testing.T) {
	text := strings.Join([]string{
		"Ardeche Provisions - Weekly Price List",
		"",
		"San Marzano Tomatoes 3.40 EUR/kg",
		"Basil 1,20 EUR/bunch",
		"Some narrative paragraph about delivery schedules.",
		"Cream 2.60 EUR/l",
	}, "\n")

	rows := parsePriceText(text)
	if len(rows) != 3 {
		t.Fatalf("expected 3 price rows, got %d: %+v", len(rows), rows)
	}
	if rows[0].Name != "San Marzano Tomatoes" || rows[0].Unit != "kg" || rows[0].CostUnit != "EUR" {
		t.Fatalf("unexpected row: %+v", rows[0])
	}
	if rows[1].Cost != 1.20 {
		t.Fatalf("comma decimal not normalized: %+v", rows[1])
	}
}

func TestParseAllergensDefaultsToContains(t *testing.T) {
	declarations := parseAllergens("Milk; Soy:may_contain ; ;Nuts:unknown")
	if len(declarations) != 3 {
		t.Fatalf("expected 3 declarations, got %+v", declarations)
	}
	if declarations[0].Declaration != models.DeclarationContains {
		t.Fatalf("bare tag should default to contains: %+v", declarations[0])
	}
	if declarations[1].Declaration != models.DeclarationMayContain {
		t.Fatalf("unexpected declaration: %+v", declarations[1])
	}
	if declarations[2].Declaration != models.DeclarationContains {
		t.Fatalf("unknown declaration should fall back to contains: %+v", declarations[2])
	}
}

func TestImportRowsUpsertsByName(t *testing.T) {
	ctx := context.Background()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			sqlDB.Close()
		}
	})
	if err := database.AutoMigrate(&models.Ingredient{}, &models.AllergenDeclaration{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	org := uuid.New()
	rows := []ingredientRow{
		{Name: "Cream", Unit: "l", Cost: 2.60, CostUnit: "EUR",
			Allergens: []models.AllergenDeclaration{{Tag: "Milk", Declaration: models.DeclarationContains}}},
		{Name: "Basil", Unit: "bunch", Cost: 1.20, CostUnit: "EUR"},
	}
	imported, err := importRows(ctx, database, org, rows)
	if err != nil {
		t.Fatalf("importRows: %v", err)
	}
	if imported != 2 {
		t.Fatalf("imported = %d, want 2", imported)
	}

	// A second run with a new price updates in place instead of duplicating.
	imported, err = importRows(ctx, database, org, []ingredientRow{
		{Name: "Cream", Unit: "l", Cost: 2.90, CostUnit: "EUR"},
	})
	if err != nil {
		t.Fatalf("second importRows: %v", err)
	}
	if imported != 1 {
		t.Fatalf("imported = %d, want 1", imported)
	}

	var count int64
	if err := database.Model(&models.Ingredient{}).Where("organization_id = ?", org).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 ingredients after re-import, got %d", count)
	}

	var cream models.Ingredient
	if err := database.Preload("Allergens").First(&cream, "name = ?", "Cream").Error; err != nil {
		t.Fatalf("load cream: %v", err)
	}
	if cream.DefaultUnitCost != 2.90 {
		t.Fatalf("cost not updated: %+v", cream)
	}
	if len(cream.Allergens) != 1 {
		t.Fatalf("allergens lost on update without declarations: %+v", cream.Allergens)
	}
}
