package analytics

import (
	"strings"
	"unicode"

	"github.com/kpiplatform/backend/internal/domain/shared"
	"golang.org/x/text/cases"
)

// Category is a P&L line item. Categories are matched across uploads by
// NameKey, the folded form of the display name.
type Category struct {
	shared.BaseEntity
	Name      string
	NameKey   string
	SortOrder int
	IsTotal   bool
}

var folder = cases.Fold()

// NormalizeCategoryName trims the name and collapses every run of unicode
// whitespace (non-breaking spaces included) into a single space.
func NormalizeCategoryName(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	space := false
	for _, r := range raw {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// CategoryKey derives the join key for a category name: normalized,
// case-folded and with "ё" treated as "е".
func CategoryKey(name string) string {
	key := folder.String(NormalizeCategoryName(name))
	return strings.ReplaceAll(key, "ё", "е")
}

// NewCategory creates a category from a raw sheet label
func NewCategory(rawName string, sortOrder int, isTotal bool) (*Category, error) {
	name := NormalizeCategoryName(rawName)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Category name cannot be empty")
	}
	return &Category{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		NameKey:    CategoryKey(name),
		SortOrder:  sortOrder,
		IsTotal:    isTotal,
	}, nil
}

// CategoryCollision records that a sheet label was merged into an existing
// category whose display name differs from the label.
type CategoryCollision struct {
	Label    string `json:"label"`
	Existing string `json:"existing"`
	Key      string `json:"key"`
}
