package core

import "strings"

// Category is one of the fixed expense classifications.
type Category string

const (
	CategoryFood          Category = "food"
	CategoryTransport     Category = "transport"
	CategoryShopping      Category = "shopping"
	CategoryHousing       Category = "housing"
	CategoryEntertainment Category = "entertainment"
	CategoryUtilities     Category = "utilities"
	CategoryHealth        Category = "health"
	CategoryOther         Category = "other"
)

var categoryLabels = map[Category]string{
	CategoryFood:          "Food & Dining",
	CategoryTransport:     "Transportation",
	CategoryShopping:      "Shopping",
	CategoryHousing:       "Housing",
	CategoryEntertainment: "Entertainment",
	CategoryUtilities:     "Utilities",
	CategoryHealth:        "Health",
	CategoryOther:         "Other",
}

var categoryOrder = []Category{
	CategoryFood,
	CategoryTransport,
	CategoryShopping,
	CategoryHousing,
	CategoryEntertainment,
	CategoryUtilities,
	CategoryHealth,
	CategoryOther,
}

// Categories returns every category in display order.
func Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label returns the human-readable name; unknown values are returned as-is.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// Rank is the position of c in display order, used to break ties.
func (c Category) Rank() int {
	for i, v := range categoryOrder {
		if v == c {
			return i
		}
	}
	return len(categoryOrder)
}

// ParseCategory accepts a category key (case-insensitive). Empty input yields CategoryOther.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return CategoryOther, nil
	}
	c := Category(s)
	if !c.Valid() {
		return "", ErrInvalidCategory
	}
	return c, nil
}
