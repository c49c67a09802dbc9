package models

import "strings"

type Category string

const (
	CategoryBL     Category = "BL"
	CategoryGL     Category = "GL"
	CategoryPlus15 Category = "+15"
	CategoryPlus18 Category = "+18"
)

// Categories lists the fixed category tags in display order.
var Categories = []Category{CategoryBL, CategoryGL, CategoryPlus15, CategoryPlus18}

// ParseCategory upper-cases s and reports whether it names a known category.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, true
		}
	}
	return "", false
}
