package engine

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var displayNames = map[string]string{
	"vehicle":    "Vehicle Dealerships",
	"realestate": "Real Estate Professionals",
	"apartment":  "Apartment Rentals",
}

// NormalizeCategory maps "" and "all" (any case) to AllCategory.
func NormalizeCategory(category string) string {
	c := strings.TrimSpace(category)
	if c == "" || strings.EqualFold(c, AllCategory) {
		return AllCategory
	}
	return c
}

// DisplayName returns the human label for a business-category key.
func DisplayName(category string) string {
	c := NormalizeCategory(category)
	if c == AllCategory {
		return "All Business Types"
	}
	if name, ok := displayNames[strings.ToLower(c)]; ok {
		return name
	}
	// Casers are stateful; one per call.
	return cases.Title(language.English).String(strings.NewReplacer("_", " ", "-", " ").Replace(c))
}
