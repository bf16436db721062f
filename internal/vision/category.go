package vision

import "strings"

// Category is the classification label that selects a destination bin.
type Category string

const (
	CategoryFruit Category = "fruit"
	CategorySnack Category = "snack"
	CategoryDrink Category = "drink"
)

// DefaultCategory is substituted when the service returns something
// unrecognizable. A miscategorized item is preferable to a stalled pipeline.
const DefaultCategory = CategorySnack

var validCategories = []Category{CategoryFruit, CategorySnack, CategoryDrink}

func (c Category) Valid() bool {
	for _, v := range validCategories {
		if c == v {
			return true
		}
	}
	return false
}

// ParseCategory extracts a valid category from a raw model response.
// Exact match first, then substring, then the default fallback.
func ParseCategory(text string) Category {
	t := strings.ToLower(strings.TrimSpace(text))
	if Category(t).Valid() {
		return Category(t)
	}
	for _, cat := range validCategories {
		if strings.Contains(t, string(cat)) {
			return cat
		}
	}
	return DefaultCategory
}
