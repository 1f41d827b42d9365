package menu

import (
	"github.com/Lixing-Zhang/menu-extractor/internal/models"
)

// Stats summarizes the size of a document
type Stats struct {
	Categories int `json:"categories"`
	Items      int `json:"items"`
}

// Count returns the number of categories and items in doc
func Count(doc *models.MenuDocument) Stats {
	var s Stats
	if doc == nil {
		return s
	}
	s.Categories = len(doc.Categories)
	for _, c := range doc.Categories {
		s.Items += len(c.Items)
	}
	return s
}

// Clone returns a deep copy of doc
func Clone(doc *models.MenuDocument) *models.MenuDocument {
	if doc == nil {
		return nil
	}
	out := &models.MenuDocument{
		RestaurantName: doc.RestaurantName,
		Categories:     make([]models.MenuCategory, len(doc.Categories)),
	}
	for i, c := range doc.Categories {
		out.Categories[i] = models.MenuCategory{
			ID:           c.ID,
			CategoryName: c.CategoryName,
			Items:        copyItems(c.Items),
		}
	}
	return out
}

// Equal compares two documents by value. A nil items slice equals an empty one.
func Equal(a, b *models.MenuDocument) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.RestaurantName != b.RestaurantName || len(a.Categories) != len(b.Categories) {
		return false
	}
	for i := range a.Categories {
		ca, cb := a.Categories[i], b.Categories[i]
		if ca.ID != cb.ID || ca.CategoryName != cb.CategoryName || len(ca.Items) != len(cb.Items) {
			return false
		}
		for j := range ca.Items {
			if ca.Items[j] != cb.Items[j] {
				return false
			}
		}
	}
	return true
}

// FindCategory returns the category with the given id
func FindCategory(doc *models.MenuDocument, id string) (models.MenuCategory, bool) {
	idx := categoryIndex(doc, id)
	if idx < 0 {
		return models.MenuCategory{}, false
	}
	return doc.Categories[idx], true
}

// FindItem returns one item of one category
func FindItem(doc *models.MenuDocument, categoryID, itemID string) (models.MenuItem, bool) {
	c, ok := FindCategory(doc, categoryID)
	if !ok {
		return models.MenuItem{}, false
	}
	idx := itemIndex(c, itemID)
	if idx < 0 {
		return models.MenuItem{}, false
	}
	return c.Items[idx], true
}

// IDs returns every category and item id in document order
func IDs(doc *models.MenuDocument) []string {
	if doc == nil {
		return nil
	}
	var ids []string
	for _, c := range doc.Categories {
		ids = append(ids, c.ID)
		for _, it := range c.Items {
			ids = append(ids, it.ID)
		}
	}
	return ids
}
