package domain

import (
	"fmt"
	"math"
	"strings"
)

// Category is one categorical height descriptor and its substitute value.
// Rank orders categories from shortest to tallest; descriptors sharing a
// rank carry no ordering relation between them.
type Category struct {
	Label string  `yaml:"label" validate:"required"`
	Rank  int     `yaml:"rank" validate:"gte=0"`
	Value float64 `yaml:"value"`
}

// CategoryLookup is an immutable label to height mapping for one sex
type CategoryLookup struct {
	sex        Sex
	categories []Category
	index      map[string]float64
}

// NewCategoryLookup validates and freezes a set of categories.
// A category of lower rank must map to a strictly lower value than any
// category of higher rank.
func NewCategoryLookup(sex Sex, categories []Category) (*CategoryLookup, error) {
	if len(categories) == 0 {
		return nil, fmt.Errorf("%s lookup has no categories", sex)
	}

	index := make(map[string]float64, len(categories))
	frozen := make([]Category, len(categories))
	for i, c := range categories {
		label := strings.TrimSpace(c.Label)
		if label == "" {
			return nil, fmt.Errorf("%s lookup: category %d has an empty label", sex, i)
		}
		if math.IsNaN(c.Value) || math.IsInf(c.Value, 0) {
			return nil, fmt.Errorf("%s lookup: %q maps to a non-finite value", sex, label)
		}
		if _, dup := index[label]; dup {
			return nil, fmt.Errorf("%s lookup: duplicate label %q", sex, label)
		}
		index[label] = c.Value
		frozen[i] = Category{Label: label, Rank: c.Rank, Value: c.Value}
	}

	for _, a := range frozen {
		for _, b := range frozen {
			if a.Rank < b.Rank && !(a.Value < b.Value) {
				return nil, fmt.Errorf("%s lookup: %q (rank %d, %g) must be shorter than %q (rank %d, %g)",
					sex, a.Label, a.Rank, a.Value, b.Label, b.Rank, b.Value)
			}
		}
	}

	return &CategoryLookup{sex: sex, categories: frozen, index: index}, nil
}

// Sex returns the child group this lookup applies to
func (l *CategoryLookup) Sex() Sex { return l.sex }

// Lookup returns the substitute value of a label
func (l *CategoryLookup) Lookup(label string) (float64, bool) {
	v, ok := l.index[strings.TrimSpace(label)]
	return v, ok
}

// Categories returns a copy of the categories in declaration order
func (l *CategoryLookup) Categories() []Category {
	out := make([]Category, len(l.categories))
	copy(out, l.categories)
	return out
}

// Labels returns the known labels in declaration order
func (l *CategoryLookup) Labels() []string {
	out := make([]string, len(l.categories))
	for i, c := range l.categories {
		out[i] = c.Label
	}
	return out
}

// DefaultSonCategories are the substitutes used for the published tables
func DefaultSonCategories() []Category {
	return []Category{
		{Label: "short", Rank: 0, Value: 4.5},
		{Label: "deformed", Rank: 1, Value: 5.5},
		{Label: "medium", Rank: 2, Value: 7.0},
		{Label: "tallish", Rank: 3, Value: 8.0},
	}
}

// DefaultDaughterCategories are the substitutes used for the published tables
func DefaultDaughterCategories() []Category {
	return []Category{
		{Label: "idiotic", Rank: 0, Value: -3.0},
		{Label: "short", Rank: 1, Value: 1.5},
		{Label: "shortish", Rank: 2, Value: 2.5},
		{Label: "deformed", Rank: 2, Value: 2.5},
		{Label: "medium", Rank: 3, Value: 5.0},
		{Label: "tallish", Rank: 4, Value: 5.5},
		{Label: "tall", Rank: 5, Value: 6.0},
		{Label: "very tall", Rank: 6, Value: 7.5},
	}
}
