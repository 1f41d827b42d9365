package menu

import (
	"testing"

	"github.com/Lixing-Zhang/menu-extractor/internal/idgen"
	"github.com/Lixing-Zhang/menu-extractor/internal/models"
)

func strPtr(s string) *string { return &s }

// sampleDocument returns a fresh two-category document
func sampleDocument() *models.MenuDocument {
	return &models.MenuDocument{
		RestaurantName: "Chez Test",
		Categories: []models.MenuCategory{
			{
				ID:           "c1",
				CategoryName: "Starters",
				Items: []models.MenuItem{
					{ID: "i1", Name: "Soup", Description: "Hot", Price: "5.00"},
					{ID: "i2", Name: "Salad", Description: "", Price: "6.00"},
				},
			},
			{
				ID:           "c2",
				CategoryName: "Desserts",
				Items: []models.MenuItem{
					{ID: "i3", Name: "Tart", Description: "Apple", Price: "4.50"},
				},
			},
		},
	}
}

func TestEditor_DoesNotMutateInput(t *testing.T) {
	editor := NewEditor(idgen.V4())

	ops := []struct {
		name  string
		apply func(*models.MenuDocument) *models.MenuDocument
		delta Stats
	}{
		{"rename restaurant", func(d *models.MenuDocument) *models.MenuDocument {
			return editor.RenameRestaurant(d, "Other")
		}, Stats{}},
		{"edit category", func(d *models.MenuDocument) *models.MenuDocument {
			return editor.EditCategory(d, "c1", models.CategoryPatch{CategoryName: strPtr("Entrées")})
		}, Stats{}},
		{"edit item", func(d *models.MenuDocument) *models.MenuDocument {
			return editor.EditItem(d, "c1", "i2", models.ItemPatch{Price: strPtr("7.00")})
		}, Stats{}},
		{"add category", func(d *models.MenuDocument) *models.MenuDocument {
			return editor.AddCategory(d)
		}, Stats{Categories: 1}},
		{"remove category", func(d *models.MenuDocument) *models.MenuDocument {
			return editor.RemoveCategory(d, "c1")
		}, Stats{Categories: -1, Items: -2}},
		{"add item", func(d *models.MenuDocument) *models.MenuDocument {
			return editor.AddItem(d, "c2")
		}, Stats{Items: 1}},
		{"remove item", func(d *models.MenuDocument) *models.MenuDocument {
			return editor.RemoveItem(d, "c1", "i1")
		}, Stats{Items: -1}},
	}

	for _, op := range ops {
		t.Run(op.name, func(t *testing.T) {
			doc := sampleDocument()
			snapshot := Clone(doc)

			next := op.apply(doc)

			if !Equal(doc, snapshot) {
				t.Fatalf("input document was mutated")
			}
			if next == doc {
				t.Fatalf("expected a new document value")
			}

			before, after := Count(doc), Count(next)
			if after.Categories-before.Categories != op.delta.Categories {
				t.Errorf("category delta = %d, want %d", after.Categories-before.Categories, op.delta.Categories)
			}
			if after.Items-before.Items != op.delta.Items {
				t.Errorf("item delta = %d, want %d", after.Items-before.Items, op.delta.Items)
			}

			seen := make(map[string]bool)
			for _, id := range IDs(next) {
				if seen[id] {
					t.Errorf("duplicate id %q", id)
				}
				seen[id] = true
			}
		})
	}
}

func TestEditor_UnknownIDsAreNoOps(t *testing.T) {
	editor := NewEditor(idgen.V4())
	doc := sampleDocument()

	tests := []struct {
		name string
		got  *models.MenuDocument
	}{
		{"edit missing category", editor.EditCategory(doc, "nope", models.CategoryPatch{CategoryName: strPtr("x")})},
		{"edit item in missing category", editor.EditItem(doc, "nope", "i1", models.ItemPatch{Name: strPtr("x")})},
		{"edit missing item", editor.EditItem(doc, "c1", "nope", models.ItemPatch{Name: strPtr("x")})},
		{"remove missing category", editor.RemoveCategory(doc, "nope")},
		{"add item to missing category", editor.AddItem(doc, "nope")},
		{"remove item from missing category", editor.RemoveItem(doc, "nope", "i1")},
		{"remove missing item", editor.RemoveItem(doc, "c1", "nope")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != doc {
				t.Errorf("expected the input document to be returned unchanged")
			}
			if !Equal(tt.got, sampleDocument()) {
				t.Errorf("document value changed")
			}
		})
	}
}

func TestEditor_NilDocument(t *testing.T) {
	editor := NewEditor(idgen.V4())

	if got := editor.RenameRestaurant(nil, "x"); got != nil {
		t.Error("RenameRestaurant(nil) should stay nil")
	}
	if got := editor.RemoveCategory(nil, "c1"); got != nil {
		t.Error("RemoveCategory(nil) should stay nil")
	}
	if got := editor.AddItem(nil, "c1"); got != nil {
		t.Error("AddItem(nil) should stay nil")
	}
}

func TestEditor_AddCategoryThenItemOnNil(t *testing.T) {
	editor := NewEditor(idgen.V4())

	doc := editor.AddCategory(nil)
	if doc == nil {
		t.Fatal("AddCategory(nil) returned nil")
	}
	if doc.RestaurantName != DefaultRestaurantName {
		t.Errorf("restaurant name = %q, want %q", doc.RestaurantName, DefaultRestaurantName)
	}
	if len(doc.Categories) != 1 {
		t.Fatalf("expected 1 category, got %d", len(doc.Categories))
	}

	category := doc.Categories[0]
	if !idgen.Valid(category.ID) {
		t.Errorf("category id %q is not a valid identifier", category.ID)
	}
	if category.CategoryName != DefaultCategoryName {
		t.Errorf("category name = %q, want %q", category.CategoryName, DefaultCategoryName)
	}
	if category.Items == nil || len(category.Items) != 0 {
		t.Errorf("expected an empty, non-nil item list")
	}

	doc = editor.AddItem(doc, category.ID)
	if len(doc.Categories) != 1 || len(doc.Categories[0].Items) != 1 {
		t.Fatalf("expected exactly one category with one item, got %+v", Count(doc))
	}

	item := doc.Categories[0].Items[0]
	want := models.MenuItem{ID: item.ID, Name: "New Item", Description: "", Price: "0.00"}
	if item != want {
		t.Errorf("item = %+v, want %+v", item, want)
	}
	if item.ID == category.ID {
		t.Error("item and category share an id")
	}
}

func TestEditor_EditItemPreservesOrderAndSiblings(t *testing.T) {
	editor := NewEditor(idgen.V4())
	doc := sampleDocument()

	next := editor.EditItem(doc, "c1", "i1", models.ItemPatch{
		Name:        strPtr("Onion soup"),
		Description: strPtr(""),
	})

	items := next.Categories[0].Items
	if items[0].ID != "i1" || items[1].ID != "i2" {
		t.Fatalf("item order changed: %+v", items)
	}
	if items[0].Name != "Onion soup" || items[0].Description != "" || items[0].Price != "5.00" {
		t.Errorf("unexpected edited item: %+v", items[0])
	}
	if items[1] != doc.Categories[0].Items[1] {
		t.Errorf("sibling item changed: %+v", items[1])
	}
	if !Equal(&models.MenuDocument{Categories: next.Categories[1:]}, &models.MenuDocument{Categories: doc.Categories[1:]}) {
		t.Error("unrelated category changed")
	}
}

func TestEditor_AddAppendsAndRemoveKeepsOrder(t *testing.T) {
	editor := NewEditor(idgen.Sequence("c3", "i4"))
	doc := sampleDocument()

	doc = editor.AddCategory(doc)
	if got := doc.Categories[len(doc.Categories)-1].ID; got != "c3" {
		t.Fatalf("new category id = %q, want c3 at the end", got)
	}

	doc = editor.AddItem(doc, "c1")
	items := doc.Categories[0].Items
	if items[len(items)-1].ID != "i4" {
		t.Fatalf("new item not appended: %+v", items)
	}

	doc = editor.RemoveCategory(doc, "c2")
	var order []string
	for _, c := range doc.Categories {
		order = append(order, c.ID)
	}
	if len(order) != 2 || order[0] != "c1" || order[1] != "c3" {
		t.Errorf("category order = %v, want [c1 c3]", order)
	}

	doc = editor.RemoveItem(doc, "c1", "i2")
	items = doc.Categories[0].Items
	if len(items) != 2 || items[0].ID != "i1" || items[1].ID != "i4" {
		t.Errorf("item order after removal = %+v", items)
	}
}

func TestEditor_RemoveLastCategoryLeavesValidEmptyMenu(t *testing.T) {
	editor := NewEditor(idgen.V4())
	doc := editor.RemoveCategory(editor.RemoveCategory(sampleDocument(), "c1"), "c2")

	if doc == nil {
		t.Fatal("removing categories should not discard the document")
	}
	if len(doc.Categories) != 0 {
		t.Errorf("expected 0 categories, got %d", len(doc.Categories))
	}
	if doc.RestaurantName != "Chez Test" {
		t.Errorf("restaurant name = %q", doc.RestaurantName)
	}
}
