// Package menu implements the edit operations of a menu document.
//
// Every operation takes a document and returns a new one. The input is never
// modified: slices that change are copied, untouched categories and items are
// carried over by value. Operations on ids that do not exist return the input
// document unchanged rather than failing.
package menu

import (
	"github.com/Lixing-Zhang/menu-extractor/internal/idgen"
	"github.com/Lixing-Zhang/menu-extractor/internal/models"
)

// Defaults for entities created by the editor
const (
	DefaultRestaurantName = "New Menu"
	DefaultCategoryName   = "New Category"
	DefaultItemName       = "New Item"
	DefaultItemPrice      = "0.00"
)

// Editor applies edit operations. It only holds the id generator used for
// new categories and items.
type Editor struct {
	newID idgen.Generator
}

// NewEditor creates an editor; a nil generator means idgen.Default
func NewEditor(gen idgen.Generator) *Editor {
	if gen == nil {
		gen = idgen.Default
	}
	return &Editor{newID: gen}
}

// RenameRestaurant sets the restaurant name. A nil document stays nil.
func (e *Editor) RenameRestaurant(doc *models.MenuDocument, name string) *models.MenuDocument {
	if doc == nil {
		return nil
	}
	next := *doc
	next.RestaurantName = name
	return &next
}

// EditCategory applies patch to the category with the given id
func (e *Editor) EditCategory(doc *models.MenuDocument, categoryID string, patch models.CategoryPatch) *models.MenuDocument {
	idx := categoryIndex(doc, categoryID)
	if idx < 0 {
		return doc
	}

	categories := copyCategories(doc.Categories)
	if patch.CategoryName != nil {
		categories[idx].CategoryName = *patch.CategoryName
	}

	next := *doc
	next.Categories = categories
	return &next
}

// EditItem applies patch to one item of one category
func (e *Editor) EditItem(doc *models.MenuDocument, categoryID, itemID string, patch models.ItemPatch) *models.MenuDocument {
	cIdx := categoryIndex(doc, categoryID)
	if cIdx < 0 {
		return doc
	}
	iIdx := itemIndex(doc.Categories[cIdx], itemID)
	if iIdx < 0 {
		return doc
	}

	items := copyItems(doc.Categories[cIdx].Items)
	item := &items[iIdx]
	if patch.Name != nil {
		item.Name = *patch.Name
	}
	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if patch.Price != nil {
		item.Price = *patch.Price
	}

	categories := copyCategories(doc.Categories)
	categories[cIdx].Items = items

	next := *doc
	next.Categories = categories
	return &next
}

// AddCategory appends an empty category. On a nil document it creates a new
// one holding only that category; this is the only way to build a document
// outside of normalization.
func (e *Editor) AddCategory(doc *models.MenuDocument) *models.MenuDocument {
	category := models.MenuCategory{
		ID:           e.newID(),
		CategoryName: DefaultCategoryName,
		Items:        []models.MenuItem{},
	}

	if doc == nil {
		return &models.MenuDocument{
			RestaurantName: DefaultRestaurantName,
			Categories:     []models.MenuCategory{category},
		}
	}

	categories := make([]models.MenuCategory, 0, len(doc.Categories)+1)
	categories = append(categories, doc.Categories...)
	categories = append(categories, category)

	next := *doc
	next.Categories = categories
	return &next
}

// RemoveCategory drops the category with the given id
func (e *Editor) RemoveCategory(doc *models.MenuDocument, categoryID string) *models.MenuDocument {
	idx := categoryIndex(doc, categoryID)
	if idx < 0 {
		return doc
	}

	categories := make([]models.MenuCategory, 0, len(doc.Categories)-1)
	categories = append(categories, doc.Categories[:idx]...)
	categories = append(categories, doc.Categories[idx+1:]...)

	next := *doc
	next.Categories = categories
	return &next
}

// AddItem appends a default item to the category
func (e *Editor) AddItem(doc *models.MenuDocument, categoryID string) *models.MenuDocument {
	idx := categoryIndex(doc, categoryID)
	if idx < 0 {
		return doc
	}

	old := doc.Categories[idx].Items
	items := make([]models.MenuItem, 0, len(old)+1)
	items = append(items, old...)
	items = append(items, models.MenuItem{
		ID:          e.newID(),
		Name:        DefaultItemName,
		Description: "",
		Price:       DefaultItemPrice,
	})

	categories := copyCategories(doc.Categories)
	categories[idx].Items = items

	next := *doc
	next.Categories = categories
	return &next
}

// RemoveItem drops one item from one category
func (e *Editor) RemoveItem(doc *models.MenuDocument, categoryID, itemID string) *models.MenuDocument {
	cIdx := categoryIndex(doc, categoryID)
	if cIdx < 0 {
		return doc
	}
	old := doc.Categories[cIdx].Items
	iIdx := itemIndex(doc.Categories[cIdx], itemID)
	if iIdx < 0 {
		return doc
	}

	items := make([]models.MenuItem, 0, len(old)-1)
	items = append(items, old[:iIdx]...)
	items = append(items, old[iIdx+1:]...)

	categories := copyCategories(doc.Categories)
	categories[cIdx].Items = items

	next := *doc
	next.Categories = categories
	return &next
}

func categoryIndex(doc *models.MenuDocument, id string) int {
	if doc == nil {
		return -1
	}
	for i, c := range doc.Categories {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func itemIndex(c models.MenuCategory, id string) int {
	for i, it := range c.Items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// copyCategories makes a shallow copy; item slices are still shared and
// must be replaced, not written through.
func copyCategories(in []models.MenuCategory) []models.MenuCategory {
	out := make([]models.MenuCategory, len(in))
	copy(out, in)
	return out
}

func copyItems(in []models.MenuItem) []models.MenuItem {
	out := make([]models.MenuItem, len(in))
	copy(out, in)
	return out
}
