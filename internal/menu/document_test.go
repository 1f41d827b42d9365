package menu

import (
	"testing"

	"github.com/Lixing-Zhang/menu-extractor/internal/models"
)

func TestClone_IsDeep(t *testing.T) {
	doc := sampleDocument()
	clone := Clone(doc)

	if !Equal(doc, clone) {
		t.Fatal("clone differs from original")
	}

	clone.Categories[0].Items[0].Name = "changed"
	if doc.Categories[0].Items[0].Name != "Soup" {
		t.Error("clone shares item storage with the original")
	}

	if Clone(nil) != nil {
		t.Error("Clone(nil) should be nil")
	}
}

func TestEqual(t *testing.T) {
	empty := &models.MenuDocument{RestaurantName: "x", Categories: []models.MenuCategory{{ID: "c", Items: nil}}}
	emptySlice := &models.MenuDocument{RestaurantName: "x", Categories: []models.MenuCategory{{ID: "c", Items: []models.MenuItem{}}}}

	tests := []struct {
		name string
		a, b *models.MenuDocument
		want bool
	}{
		{"both nil", nil, nil, true},
		{"one nil", sampleDocument(), nil, false},
		{"same value", sampleDocument(), sampleDocument(), true},
		{"nil and empty items", empty, emptySlice, true},
		{"different name", sampleDocument(), &models.MenuDocument{RestaurantName: "other"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFindAndCount(t *testing.T) {
	doc := sampleDocument()

	if s := Count(doc); s.Categories != 2 || s.Items != 3 {
		t.Errorf("Count() = %+v, want 2 categories and 3 items", s)
	}
	if s := Count(nil); s != (Stats{}) {
		t.Errorf("Count(nil) = %+v", s)
	}

	if c, ok := FindCategory(doc, "c2"); !ok || c.CategoryName != "Desserts" {
		t.Errorf("FindCategory(c2) = %+v, %v", c, ok)
	}
	if _, ok := FindCategory(doc, "missing"); ok {
		t.Error("FindCategory found a missing id")
	}
	if it, ok := FindItem(doc, "c1", "i2"); !ok || it.Name != "Salad" {
		t.Errorf("FindItem(c1, i2) = %+v, %v", it, ok)
	}
	if _, ok := FindItem(doc, "c2", "i1"); ok {
		t.Error("FindItem matched an item of another category")
	}

	ids := IDs(doc)
	want := []string{"c1", "i1", "i2", "c2", "i3"}
	if len(ids) != len(want) {
		t.Fatalf("IDs() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("IDs()[%d] = %s, want %s", i, ids[i], want[i])
		}
	}
}
