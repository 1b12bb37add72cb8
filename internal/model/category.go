package model

// Category is a merchandise category used to route catalogs and tag tasks.
type Category string

// Category constants
const (
	CategoryAll          Category = "All"
	CategoryDairy        Category = "Dairy"
	CategorySnacks       Category = "Snacks"
	CategoryBeverages    Category = "Beverages"
	CategoryFreshProduce Category = "Fresh Produce"
	CategoryHousehold    Category = "Household"
)

// Categories lists the concrete categories in catalog order. CategoryAll is
// a view over all of them and is not included.
var Categories = []Category{
	CategoryDairy,
	CategorySnacks,
	CategoryBeverages,
	CategoryFreshProduce,
	CategoryHousehold,
}

// ParseCategory returns the Category named by s.
func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	if c == CategoryAll {
		return c, true
	}
	for _, known := range Categories {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// Persona identifies which dashboard role is active.
type Persona string

// Persona constants
const (
	PersonaStoreManager      Persona = "Store Manager"
	PersonaOperationsManager Persona = "Operations Manager"
	PersonaRegionalManager   Persona = "Regional Manager"
	PersonaSiteManager       Persona = "Site Manager"
)

// ParsePersona returns the Persona named by s.
func ParsePersona(s string) (Persona, bool) {
	switch p := Persona(s); p {
	case PersonaStoreManager, PersonaOperationsManager, PersonaRegionalManager, PersonaSiteManager:
		return p, true
	}
	return "", false
}

// ResetsOpsFeed reports whether switching category under this persona
// reloads the insight and alert feeds.
func (p Persona) ResetsOpsFeed() bool {
	return p == PersonaOperationsManager
}
