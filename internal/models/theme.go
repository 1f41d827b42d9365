package models

// Default colors for each semantic role of a theme
const (
	DefaultDominant    = "#3B82F6"
	DefaultSecondary   = "#1D4ED8"
	DefaultItemName    = "#1F2937"
	DefaultDescription = "#4B5563"
)

// Palette indexes of the semantic roles
const (
	RoleSecondary   = 1
	RoleItemName    = 2
	RoleDescription = 3
)

// ColorTheme is derived once per ingested image and never changes afterwards.
// Dominant is always populated; Palette may hold fewer than five entries.
type ColorTheme struct {
	Dominant string   `json:"dominant"`
	Palette  []string `json:"palette"`
}

// FallbackTheme is used whenever derivation fails or has not completed
func FallbackTheme() ColorTheme {
	return ColorTheme{
		Dominant: DefaultDominant,
		Palette:  []string{"#60A5FA", "#93C5FD", "#BFDBFE", "#DBEAFE"},
	}
}

// Primary returns the dominant color, or the default if unset
func (t ColorTheme) Primary() string {
	if t.Dominant == "" {
		return DefaultDominant
	}
	return t.Dominant
}

// Role returns palette[index], or def when the palette is too short
// or the entry is blank.
func (t ColorTheme) Role(index int, def string) string {
	if index < 0 || index >= len(t.Palette) || t.Palette[index] == "" {
		return def
	}
	return t.Palette[index]
}

// Secondary is the category accent color
func (t ColorTheme) Secondary() string { return t.Role(RoleSecondary, DefaultSecondary) }

// ItemName is the text color of item names
func (t ColorTheme) ItemName() string { return t.Role(RoleItemName, DefaultItemName) }

// Description is the text color of descriptions and the footer
func (t ColorTheme) Description() string { return t.Role(RoleDescription, DefaultDescription) }
