package models

// MenuItem is a single dish. Description is always present (empty when
// unknown) and Price is free-form text, never parsed as currency.
type MenuItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
}

// MenuCategory groups items in display order
type MenuCategory struct {
	ID           string     `json:"id"`
	CategoryName string     `json:"categoryName"`
	Items        []MenuItem `json:"items"`
}

// MenuDocument is the editable menu. A document with zero categories is valid.
// A nil *MenuDocument stands for "no menu yet".
type MenuDocument struct {
	RestaurantName string         `json:"restaurantName"`
	Categories     []MenuCategory `json:"categories"`
}

// CategoryPatch carries the editable fields of a category; nil means unchanged
type CategoryPatch struct {
	CategoryName *string `json:"categoryName,omitempty"`
}

// ItemPatch carries the editable fields of an item; nil means unchanged
type ItemPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Price       *string `json:"price,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p ItemPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil
}
