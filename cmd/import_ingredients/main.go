package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
	"gorm.io/gorm"

	"brigade/internal/config"
	"brigade/internal/db"
	"brigade/models"
)

// priceLinePattern matches one supplier price-list line extracted from a
// PDF, e.g. "San Marzano Tomatoes 3.40 EUR/kg".
var priceLinePattern = regexp.MustCompile(`^(.*\S)\s+(\d+(?:[.,]\d+)?)\s+([A-Z]{3})/([a-zA-Z]+)$`)

type ingredientRow struct {
	Name      string
	Unit      string
	Cost      float64
	CostUnit  string
	Allergens []models.AllergenDeclaration
}

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: import_ingredients ORG_ID FILE")
		os.Exit(2)
	}

	if err := run(os.Args[1], os.Args[2]); err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}
}

func run(orgArg, path string) error {
	orgID, err := uuid.Parse(orgArg)
	if err != nil {
		return fmt.Errorf("parse organization id: %w", err)
	}

	rows, err := readPriceList(path)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no ingredient rows found in %s", filepath.Base(path))
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	database, err := db.Initialize(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(database); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	imported, err := importRows(context.Background(), database, orgID, rows)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Imported %d ingredients from %s\n", imported, filepath.Base(path))
	return nil
}

func readPriceList(path string) ([]ingredientRow, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open csv: %w", err)
		}
		defer file.Close()
		return parseCSV(file)
	case ".pdf":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read pdf: %w", err)
		}
		text, err := extractTextFromPDF(data)
		if err != nil {
			return nil, fmt.Errorf("extract pdf text: %w", err)
		}
		return parsePriceText(text), nil
	default:
		return nil, fmt.Errorf("unsupported price list format: %s", filepath.Ext(path))
	}
}

func parseCSV(r io.Reader) ([]ingredientRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("csv is empty")
	}

	header := records[0]
	index := make(map[string]int, len(header))
	for idx, key := range header {
		index[strings.ToLower(strings.TrimSpace(key))] = idx
	}
	for _, required := range []string{"name", "unit", "cost"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("csv is missing required column %q", required)
		}
	}

	field := func(row []string, key string) string {
		idx, ok := index[key]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	rows := make([]ingredientRow, 0, len(records)-1)
	for lineNo, record := range records[1:] {
		name := field(record, "name")
		if name == "" {
			continue
		}
		cost, err := parseCost(field(record, "cost"))
		if err != nil {
			return nil, fmt.Errorf("line %d (%s): %w", lineNo+2, name, err)
		}
		rows = append(rows, ingredientRow{
			Name:      name,
			Unit:      field(record, "unit"),
			Cost:      cost,
			CostUnit:  field(record, "cost_unit"),
			Allergens: parseAllergens(field(record, "allergens")),
		})
	}
	return rows, nil
}

// parsePriceText scans extracted PDF text line by line; anything that does
// not look like a price entry is skipped.
func parsePriceText(text string) []ingredientRow {
	var rows []ingredientRow
	for _, line := range strings.Split(text, "\n") {
		match := priceLinePattern.FindStringSubmatch(strings.TrimSpace(line))
		if match == nil {
			continue
		}
		cost, err := parseCost(match[2])
		if err != nil {
			continue
		}
		rows = append(rows, ingredientRow{
			Name:     match[1],
			Unit:     match[4],
			Cost:     cost,
			CostUnit: match[3],
		})
	}
	return rows
}

func extractTextFromPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var builder strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", err
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}

func parseCost(value string) (float64, error) {
	value = strings.ReplaceAll(strings.TrimSpace(value), ",", ".")
	cost, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("parse cost %q: %w", value, err)
	}
	if cost < 0 {
		return 0, fmt.Errorf("cost %q must not be negative", value)
	}
	return cost, nil
}

// parseAllergens reads "Milk:contains;Soy:may_contain" style declarations.
// A tag without an explicit declaration defaults to contains.
func parseAllergens(value string) []models.AllergenDeclaration {
	var declarations []models.AllergenDeclaration
	for _, part := range strings.Split(value, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tag, declaration, found := strings.Cut(part, ":")
		tag = strings.TrimSpace(tag)
		declaration = strings.TrimSpace(declaration)
		if tag == "" {
			continue
		}
		if !found || !models.ValidDeclaration(declaration) {
			declaration = models.DeclarationContains
		}
		declarations = append(declarations, models.AllergenDeclaration{
			Tag:         tag,
			Declaration: declaration,
		})
	}
	return declarations
}

func importRows(ctx context.Context, database *gorm.DB, orgID uuid.UUID, rows []ingredientRow) (int, error) {
	imported := 0
	for idx, row := range rows {
		if err := database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var existing models.Ingredient
			err := tx.Where("organization_id = ? AND name = ?", orgID, row.Name).First(&existing).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				ingredient := models.Ingredient{
					ID:              uuid.New(),
					OrganizationID:  orgID,
					Name:            row.Name,
					BaseUnit:        row.Unit,
					DefaultUnitCost: row.Cost,
					CostUnit:        row.CostUnit,
				}
				for i := range row.Allergens {
					row.Allergens[i].IngredientID = ingredient.ID
				}
				ingredient.Allergens = row.Allergens
				if err := tx.Create(&ingredient).Error; err != nil {
					return fmt.Errorf("create ingredient: %w", err)
				}
			case err != nil:
				return fmt.Errorf("find ingredient: %w", err)
			default:
				updates := map[string]any{
					"default_unit_cost": row.Cost,
				}
				if row.Unit != "" {
					updates["base_unit"] = row.Unit
				}
				if row.CostUnit != "" {
					updates["cost_unit"] = row.CostUnit
				}
				if err := tx.Model(&existing).Updates(updates).Error; err != nil {
					return fmt.Errorf("update ingredient: %w", err)
				}
				if len(row.Allergens) > 0 {
					if err := tx.Where("ingredient_id = ?", existing.ID).Delete(&models.AllergenDeclaration{}).Error; err != nil {
						return fmt.Errorf("clear allergen declarations: %w", err)
					}
					for _, declaration := range row.Allergens {
						declaration.ID = 0
						declaration.IngredientID = existing.ID
						if err := tx.Create(&declaration).Error; err != nil {
							return fmt.Errorf("create allergen declaration: %w", err)
						}
					}
				}
			}
			return nil
		}); err != nil {
			return imported, fmt.Errorf("row %d (%s): %w", idx+1, row.Name, err)
		}
		imported++
	}
	return imported, nil
}
