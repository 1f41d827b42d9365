package extraction

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/Lixing-Zhang/menu-extractor/internal/idgen"
	"github.com/Lixing-Zhang/menu-extractor/internal/models"
)

// Placeholders written over leaf fields that are missing or not strings
const (
	UnknownCategory = "Unknown category"
	UnknownItem     = "Unknown item"
	UnknownPrice    = "N/A"
)

var fencePattern = regexp.MustCompile("(?s)^```(?:json)?\\s*\\n?(.*?)\\n?\\s*```$")

// Repair records one leaf field that was replaced during normalization
type Repair struct {
	Path  string `json:"path"`
	Field string `json:"field"`
	Value string `json:"value"`
}

func (r Repair) String() string {
	return fmt.Sprintf("%s.%s set to %q", r.Path, r.Field, r.Value)
}

// Normalizer turns untrusted extraction output into a MenuDocument
type Normalizer struct {
	newID idgen.Generator
}

// NewNormalizer creates a normalizer; a nil generator means idgen.Default
func NewNormalizer(gen idgen.Generator) *Normalizer {
	if gen == nil {
		gen = idgen.Default
	}
	return &Normalizer{newID: gen}
}

// Normalize parses raw text with the default normalizer
func Normalize(raw string) (*models.MenuDocument, error) {
	return NewNormalizer(nil).Normalize(raw)
}

// Normalize parses raw text and returns a validated document
func (n *Normalizer) Normalize(raw string) (*models.MenuDocument, error) {
	doc, _, err := n.NormalizeWithReport(raw)
	return doc, err
}

// NormalizeWithReport is Normalize plus the list of leaf repairs applied
func (n *Normalizer) NormalizeWithReport(raw string) (*models.MenuDocument, []Repair, error) {
	text := StripFence(raw)

	var v interface{}
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, nil, newFormatError("response is not valid JSON", text, err)
	}

	return n.normalizeValue(v, text)
}

// NormalizeValue normalizes an already decoded JSON value
func (n *Normalizer) NormalizeValue(v interface{}) (*models.MenuDocument, []Repair, error) {
	snippet := ""
	if b, err := json.Marshal(v); err == nil {
		snippet = string(b)
	}
	return n.normalizeValue(v, snippet)
}

func (n *Normalizer) normalizeValue(v interface{}, text string) (*models.MenuDocument, []Repair, error) {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, nil, newFormatError("response is not a JSON object", text, nil)
	}

	name, ok := obj["restaurantName"].(string)
	if !ok {
		return nil, nil, newFormatError("restaurantName is missing or not a string", text, nil)
	}
	rawCategories, ok := obj["categories"].([]interface{})
	if !ok {
		return nil, nil, newFormatError("categories is missing or not an array", text, nil)
	}

	var repairs []Repair
	doc := &models.MenuDocument{
		RestaurantName: name,
		Categories:     make([]models.MenuCategory, 0, len(rawCategories)),
	}

	for ci, rc := range rawCategories {
		path := fmt.Sprintf("categories[%d]", ci)
		fields, _ := rc.(map[string]interface{})

		category := models.MenuCategory{ID: n.newID()}
		category.CategoryName, ok = fields["categoryName"].(string)
		if !ok {
			category.CategoryName = UnknownCategory
			repairs = append(repairs, Repair{Path: path, Field: "categoryName", Value: UnknownCategory})
		}

		rawItems, ok := fields["items"].([]interface{})
		if !ok {
			repairs = append(repairs, Repair{Path: path, Field: "items", Value: "[]"})
		}
		category.Items = make([]models.MenuItem, 0, len(rawItems))

		for ii, ri := range rawItems {
			itemPath := fmt.Sprintf("%s.items[%d]", path, ii)
			item, itemRepairs := n.normalizeItem(ri, itemPath)
			category.Items = append(category.Items, item)
			repairs = append(repairs, itemRepairs...)
		}

		doc.Categories = append(doc.Categories, category)
	}

	return doc, repairs, nil
}

func (n *Normalizer) normalizeItem(v interface{}, path string) (models.MenuItem, []Repair) {
	fields, _ := v.(map[string]interface{})
	var repairs []Repair

	str := func(field, def string) string {
		if s, ok := fields[field].(string); ok {
			return s
		}
		repairs = append(repairs, Repair{Path: path, Field: field, Value: def})
		return def
	}

	item := models.MenuItem{
		ID:          n.newID(),
		Name:        str("name", UnknownItem),
		Description: str("description", ""),
		Price:       str("price", UnknownPrice),
	}
	return item, repairs
}

// StripFence removes one enclosing ``` or ```json code fence and trims the rest
func StripFence(raw string) string {
	text := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(text); m != nil && m[1] != "" {
		return strings.TrimSpace(m[1])
	}
	return text
}
