package planner

import "event-planner/internal/model"

const (
	UncategorizedName = "Uncategorized"
	DefaultColor      = "#3498DB"
)

// CategoryLabel is what a task shows for its category.
type CategoryLabel struct {
	Name  string
	Color string
}

// CategoryIndex maps category ids to categories for repeated lookups.
type CategoryIndex map[string]model.Category

func NewCategoryIndex(categories []model.Category) CategoryIndex {
	idx := make(CategoryIndex, len(categories))
	for _, c := range categories {
		idx[c.ID] = c
	}
	return idx
}

// Resolve returns the label for a task's category id.
func (idx CategoryIndex) Resolve(categoryID *string) CategoryLabel {
	if categoryID == nil || *categoryID == "" {
		return CategoryLabel{Name: UncategorizedName, Color: DefaultColor}
	}
	category, ok := idx[*categoryID]
	if !ok {
		return CategoryLabel{Name: UncategorizedName, Color: DefaultColor}
	}
	color := DefaultColor
	if category.Color != nil && *category.Color != "" {
		color = *category.Color
	}
	return CategoryLabel{Name: category.Name, Color: color}
}

// ResolveCategory is a one-off lookup without building an index.
func ResolveCategory(categoryID *string, categories []model.Category) CategoryLabel {
	return NewCategoryIndex(categories).Resolve(categoryID)
}
