package model

// Categories are exact, case-sensitive values.
var Categories = []string{
	"Personal Belongings",
	"Electronics",
	"School Supplies & Stationery",
	"Tumblers & Food Containers",
	"Clothing & Apparell",
	"Money & Valuables",
	"Documents",
	"Other",
}

// ValidCategory reports whether c is one of Categories.
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}
