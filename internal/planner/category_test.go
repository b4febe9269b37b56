package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"event-planner/internal/model"
)

func TestResolveCategory(t *testing.T) {
	red := "#FF0000"
	categories := []model.Category{
		{ID: "work", Name: "Work", Color: &red},
		{ID: "home", Name: "Home"},
	}
	id := func(s string) *string { return &s }

	cases := []struct {
		name string
		id   *string
		want CategoryLabel
	}{
		{"match with color", id("work"), CategoryLabel{"Work", "#FF0000"}},
		{"match without color", id("home"), CategoryLabel{"Home", DefaultColor}},
		{"missing id", nil, CategoryLabel{UncategorizedName, DefaultColor}},
		{"empty id", id(""), CategoryLabel{UncategorizedName, DefaultColor}},
		{"unknown id", id("gone"), CategoryLabel{UncategorizedName, DefaultColor}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveCategory(tc.id, categories))
		})
	}
}
