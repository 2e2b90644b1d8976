package recipes

import (
	"math"
	"sort"
	"testing"

	"pgregory.net/rapid"

	"brigade/models"
)

func TestEffectiveQuantityProperties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		quantity := rapid.Float64Range(0.001, 10000).Draw(rt, "quantity")
		waste := rapid.Float64Range(0, 99).Draw(rt, "waste")

		line := models.RecipeIngredientLine{Quantity: quantity, WastePercent: waste}
		effective := line.EffectiveQuantity()

		if effective < quantity {
			rt.Fatalf("effective quantity %f below gross quantity %f", effective, quantity)
		}
		if waste == 0 && effective != quantity {
			rt.Fatalf("zero waste changed quantity: %f != %f", effective, quantity)
		}
		want := quantity / (1 - waste/100)
		if math.Abs(effective-want) > want*1e-12 {
			rt.Fatalf("effective quantity %f, want %f", effective, want)
		}
	})
}

func TestMergeAllergensProperties(t *testing.T) {
	tagGen := rapid.SampledFrom([]string{
		"Gluten", "Milk", "Eggs", "Fish", "Peanuts", "Soy", "Sesame", "Celery", "Mustard", "Sulphites",
	})

	rapid.Check(t, func(rt *rapid.T) {
		contains := rapid.SliceOfN(tagGen, 0, 8).Draw(rt, "contains")
		mayContain := rapid.SliceOfN(tagGen, 0, 8).Draw(rt, "mayContain")

		mergedContains, mergedMay := mergeAllergens(contains, mayContain)

		if !sort.StringsAreSorted(mergedContains) || !sort.StringsAreSorted(mergedMay) {
			rt.Fatalf("merged sets not sorted: %v / %v", mergedContains, mergedMay)
		}

		seen := map[string]string{}
		for _, tag := range mergedContains {
			if seen[tag] != "" {
				rt.Fatalf("duplicate tag %q in contains", tag)
			}
			seen[tag] = "contains"
		}
		for _, tag := range mergedMay {
			if seen[tag] != "" {
				rt.Fatalf("tag %q appears in both sets", tag)
			}
			seen[tag] = "may_contain"
		}

		// Every input tag survives, with contains taking precedence.
		for _, tag := range contains {
			if seen[tag] != "contains" {
				rt.Fatalf("contains tag %q classified as %q", tag, seen[tag])
			}
		}
		for _, tag := range mayContain {
			if seen[tag] == "" {
				rt.Fatalf("may-contain tag %q dropped", tag)
			}
		}
	})
}

func TestCurrencyRoundingProperties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		value := rapid.Float64Range(0, 100000).Draw(rt, "value")

		rounded := roundCurrency(value)
		if math.Abs(rounded-value) > 0.005+1e-9 {
			rt.Fatalf("roundCurrency moved %f to %f", value, rounded)
		}
		if roundCurrency(rounded) != rounded {
			rt.Fatalf("roundCurrency not idempotent at %f", rounded)
		}

		perPortion := roundPerPortion(value)
		if math.Abs(perPortion-value) > 0.00005+1e-9 {
			rt.Fatalf("roundPerPortion moved %f to %f", value, perPortion)
		}
	})
}
