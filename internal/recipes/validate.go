package recipes

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"brigade/models"
)

// validateContent enforces the structural invariants publishable content must
// satisfy. Drafts are deliberately not validated on save so authoring stays
// responsive; validation runs at create, publish and revert.
func validateContent(content models.RecipeContent) error {
	if strings.TrimSpace(content.Name) == "" {
		return InvalidInput("recipe name is required")
	}
	if !models.ValidRecipeType(content.Type) {
		return InvalidInput(fmt.Sprintf("unknown recipe type: %s", content.Type))
	}
	if content.PortionYield <= 0 {
		return InvalidInput("portion yield must be greater than zero")
	}

	required := 0
	for _, line := range content.Lines {
		if line.IngredientID == uuid.Nil {
			return InvalidInput("ingredient line is missing its ingredient id")
		}
		if line.Quantity <= 0 {
			return InvalidInput(fmt.Sprintf("line %q must have a positive quantity", line.Name))
		}
		if line.WastePercent < 0 || line.WastePercent >= 100 {
			return InvalidInput(fmt.Sprintf("line %q waste percent must be in [0, 100)", line.Name))
		}
		if line.UnitCost < 0 {
			return InvalidInput(fmt.Sprintf("line %q unit cost must not be negative", line.Name))
		}
		if !line.Optional {
			required++
		}
	}
	if required == 0 {
		return InvalidInput("recipe must have at least one required ingredient line")
	}

	if content.Type == models.RecipeTypeBatchPrep {
		if content.Batch == nil {
			return InvalidInput("batch-prep recipe requires output details")
		}
		if strings.TrimSpace(content.Batch.Unit) == "" {
			return InvalidInput("batch output unit is required")
		}
		if content.Batch.QuantityPerYield <= 0 {
			return InvalidInput("batch output quantity per yield must be greater than zero")
		}
		if content.Batch.MinBatchSize < 0 || (content.Batch.MaxBatchSize > 0 && content.Batch.MaxBatchSize < content.Batch.MinBatchSize) {
			return InvalidInput("batch size bounds are incoherent")
		}
	}

	return nil
}
