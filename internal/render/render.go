// Package render turns a menu document and a color theme into HTML.
//
// Two projections exist: the editable view used while the user works on the
// menu (every category, entity ids exposed as data attributes) and the static
// view that is exported (empty sections omitted). Standalone wraps the static
// view in a complete HTML page.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Lixing-Zhang/menu-extractor/internal/models"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(
	template.New("render").Funcs(template.FuncMap{
		"esc": Escape,
	}).ParseFS(templateFS, "templates/*.tmpl"),
)

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// Escape replaces the five HTML-sensitive characters with entities
func Escape(s string) string {
	return escaper.Replace(s)
}

type colors struct {
	Primary     string
	Secondary   string
	ItemName    string
	Description string
}

type page struct {
	RestaurantName string
	Colors         *colors
	Categories     []categoryView
}

type categoryView struct {
	ID     string
	Name   string
	Colors *colors
	Items  []itemView
}

type itemView struct {
	ID          string
	Name        string
	Description string
	Price       string
	Colors      *colors
}

type shell struct {
	Title string
	Body  string
}

func newPage(doc *models.MenuDocument, theme models.ColorTheme, withIDs bool) page {
	c := &colors{
		Primary:     theme.Primary(),
		Secondary:   theme.Secondary(),
		ItemName:    theme.ItemName(),
		Description: theme.Description(),
	}
	p := page{Colors: c}
	if doc == nil {
		return p
	}

	p.RestaurantName = doc.RestaurantName
	p.Categories = make([]categoryView, 0, len(doc.Categories))
	for _, cat := range doc.Categories {
		cv := categoryView{Name: cat.CategoryName, Colors: c, Items: make([]itemView, 0, len(cat.Items))}
		if withIDs {
			cv.ID = cat.ID
		}
		for _, item := range cat.Items {
			iv := itemView{Name: item.Name, Description: item.Description, Price: item.Price, Colors: c}
			if withIDs {
				iv.ID = item.ID
			}
			cv.Items = append(cv.Items, iv)
		}
		p.Categories = append(p.Categories, cv)
	}
	return p
}

func execute(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("error rendering %s: %w", name, err)
	}
	return buf.String(), nil
}

// Editable renders every category, including unnamed and empty ones
func Editable(doc *models.MenuDocument, theme models.ColorTheme) (string, error) {
	return execute("editable.tmpl", newPage(doc, theme, true))
}

// Static renders the export view; categories without a name or without
// items are left out.
func Static(doc *models.MenuDocument, theme models.ColorTheme) (string, error) {
	return execute("static.tmpl", newPage(doc, theme, false))
}

// Standalone renders the static view inside a complete HTML document
func Standalone(doc *models.MenuDocument, theme models.ColorTheme) (string, error) {
	body, err := Static(doc, theme)
	if err != nil {
		return "", err
	}

	s := shell{Body: body}
	if doc != nil {
		s.Title = doc.RestaurantName
	}
	return execute("document.tmpl", s)
}

var (
	whitespace = regexp.MustCompile(`[\s\p{Zs}]+`)
	pathUnsafe = regexp.MustCompile(`[/\\:*?"<>|\x00-\x1f]`)
)

// Filename derives the export file name from the restaurant name. The result
// never contains a path separator and never starts with a dot.
func Filename(restaurantName string) string {
	base := ""
	if strings.TrimSpace(restaurantName) != "" {
		base = whitespace.ReplaceAllString(cases.Lower(language.Und).String(restaurantName), "_")
		base = strings.TrimLeft(pathUnsafe.ReplaceAllString(base, "_"), ".")
	}
	if base == "" {
		base = "menu"
	}
	return base + "_menu.html"
}
