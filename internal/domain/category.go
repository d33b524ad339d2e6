package domain

// Category groups products in the catalog sidebar.
type Category struct {
	ID   int64
	Name string
}

// CategoryName looks up a category name by id, returning "" when unknown.
func CategoryName(categories []Category, id int64) string {
	for _, c := range categories {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}
