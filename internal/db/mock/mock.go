package mock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	applog "brigade/internal/log"
	"brigade/internal/recipes"
	"brigade/models"
)

// OrganizationID is the tenant every seeded record belongs to, so demos and
// tests can address the fixture data directly.
var OrganizationID = uuid.MustParse("7b1f0d2c-4a9e-4f3b-a1c6-2d8e5b9f0a31")

// New returns an in-memory sqlite database seeded with representative
// kitchen data: a pantry of ingredients, a published batch-prep sauce and a
// made-to-order dish that consumes it as a sub-recipe.
func New(ctx context.Context) (*gorm.DB, error) {
	applog.Debug(ctx, "initialising mock database")

	db, err := gorm.Open(sqlite.Open("file:brigade-mock?mode=memory&cache=shared"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		PrepareStmt:                              true,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&models.Ingredient{},
		&models.AllergenDeclaration{},
		&models.RecipeDocument{},
		&models.RecipeVersionRecord{},
		&models.RecipeRegistryEntry{},
	); err != nil {
		return nil, err
	}

	if err := seed(ctx, db); err != nil {
		return nil, err
	}

	applog.Debug(ctx, "mock database ready")
	return db, nil
}

func seed(ctx context.Context, db *gorm.DB) error {
	applog.Debug(ctx, "seeding mock database")

	ingredients := recipes.NewIngredients(db)
	calculator := recipes.NewCalculator(db, ingredients)
	documents := recipes.NewDocuments(db, calculator)
	registry := recipes.NewRegistry(db)

	tomatoes := models.Ingredient{
		OrganizationID:  OrganizationID,
		Name:            "San Marzano Tomatoes",
		BaseUnit:        "kg",
		DefaultUnitCost: 3.40,
		CostUnit:        "EUR",
	}
	basil := models.Ingredient{
		OrganizationID:  OrganizationID,
		Name:            "Basil",
		BaseUnit:        "bunch",
		DefaultUnitCost: 1.20,
		CostUnit:        "EUR",
	}
	cream := models.Ingredient{
		OrganizationID:  OrganizationID,
		Name:            "Cream",
		BaseUnit:        "l",
		DefaultUnitCost: 2.60,
		CostUnit:        "EUR",
		Allergens: []models.AllergenDeclaration{
			{Tag: "Milk", Declaration: models.DeclarationContains},
		},
	}
	houseSauce := models.Ingredient{
		OrganizationID:  OrganizationID,
		Name:            "House Tomato Sauce",
		BaseUnit:        "l",
		DefaultUnitCost: 1.10,
		CostUnit:        "EUR",
	}

	for _, ingredient := range []*models.Ingredient{&tomatoes, &basil, &cream, &houseSauce} {
		if err := ingredients.Create(ctx, ingredient); err != nil {
			return err
		}
	}

	sauceOutput := uuid.New()
	shelfLife := 72
	sauce, err := documents.Create(ctx, recipes.CreateSpec{
		OrganizationID: OrganizationID,
		Content: models.RecipeContent{
			Name:         "House Tomato Sauce",
			Description:  "Slow-reduced batch sauce used across the menu.",
			Type:         models.RecipeTypeBatchPrep,
			PortionYield: 1,
			YieldUnit:    "batch",
			Lines: []models.RecipeIngredientLine{
				{IngredientID: tomatoes.ID, Name: "San Marzano Tomatoes", Quantity: 5, Unit: "kg", UnitCost: 3.40, WastePercent: 8},
				{IngredientID: basil.ID, Name: "Basil", Quantity: 2, Unit: "bunch", UnitCost: 1.20},
			},
			Batch: &models.BatchOutput{
				InventoryItemID:   sauceOutput,
				InventoryItemName: "House Tomato Sauce",
				Unit:              "l",
				QuantityPerYield:  10,
				ShelfLifeHours:    shelfLife,
			},
		},
		Author:             "sous-chef",
		PublishImmediately: true,
	})
	if err != nil {
		return err
	}

	if err := ingredients.LinkToSubRecipe(ctx, OrganizationID, houseSauce.ID, sauce.ID); err != nil {
		return err
	}

	dish, err := documents.Create(ctx, recipes.CreateSpec{
		OrganizationID: OrganizationID,
		Content: models.RecipeContent{
			Name:         "Penne alla Vodka",
			Type:         models.RecipeTypeMadeToOrder,
			PortionYield: 4,
			YieldUnit:    "portion",
			Lines: []models.RecipeIngredientLine{
				{IngredientID: houseSauce.ID, Name: "House Tomato Sauce", Quantity: 0.8, Unit: "l", UnitCost: 1.10},
				{IngredientID: cream.ID, Name: "Cream", Quantity: 0.2, Unit: "l", UnitCost: 2.60},
			},
		},
		Author:             "sous-chef",
		PublishImmediately: true,
	})
	if err != nil {
		return err
	}

	entries := []models.RecipeRegistryEntry{
		{
			OrganizationID:        OrganizationID,
			RecipeID:              sauce.ID,
			Name:                  sauce.Published.Name,
			Description:           sauce.Published.Description,
			Cost:                  sauce.PublishedCost.TheoreticalCost,
			RecipeType:            models.RecipeTypeBatchPrep,
			OutputInventoryItemID: &sauceOutput,
			ShelfLifeHours:        &shelfLife,
		},
		{
			OrganizationID: OrganizationID,
			RecipeID:       dish.ID,
			Name:           dish.Published.Name,
			Cost:           dish.PublishedCost.TheoreticalCost,
			RecipeType:     models.RecipeTypeMadeToOrder,
		},
	}
	for _, entry := range entries {
		if err := registry.Register(ctx, entry); err != nil {
			return err
		}
	}

	applog.Debug(ctx, "mock database seeded")
	return nil
}
