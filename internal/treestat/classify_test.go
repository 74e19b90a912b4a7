package treestat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		path     string
		expected Category
	}{
		{"main.go", CategoryCode},
		{"src/App.TSX", CategoryCode},
		{"lib/util.py", CategoryCode},
		{"styles/site.scss", CategoryCode},
		{"index.html", CategoryMarkup},
		{"docs/README.md", CategoryMarkup},
		{"data/table.csv", CategoryMarkup},
		{"notes.txt", CategoryDocumentation},
		{"manual.rtf", CategoryDocumentation},
		{"LICENSE", CategoryDocumentation},
		{"scripts/deploy.sh", CategoryScripts},
		{"build.ps1", CategoryScripts},
		{"Makefile", CategoryScripts},
		{"config/app.yaml", CategoryConfiguration},
		{"package.json", CategoryConfiguration},
		{".gitignore", CategoryConfiguration},
		{"go.mod", CategoryConfiguration},
		{"Dockerfile", CategoryConfiguration},
		{"notes.unknownext", CategoryOtherText},
		{"AUTHORS", CategoryOtherText},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.path))
		})
	}
}

func TestCategoryExtensionsAreDisjoint(t *testing.T) {
	seen := make(map[string]Category)
	for category, exts := range categoryExtensions {
		for _, ext := range exts {
			other, dup := seen[ext]
			assert.False(t, dup, "extension %s registered for %s and %s", ext, other, category)
			seen[ext] = category
		}
	}
}

func TestCategoriesCoverTable(t *testing.T) {
	for category := range categoryExtensions {
		assert.Contains(t, Categories, category)
	}
	assert.Contains(t, Categories, CategoryOtherText)
	assert.IsIncreasing(t, categoryNamesOf(Categories))
}

func categoryNamesOf(categories []Category) []string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}
	return names
}
