package customization

import (
	"sort"
	"strings"
)

// Preset is a named, immutable bundle of base-tier colors.
type Preset struct {
	Name           string
	Label          string
	PrimaryColor   string
	SecondaryColor string
	AccentColor    string
	ThemeMode      string
}

var catalogue = map[string]Preset{
	"ocean": {
		Name:           "ocean",
		Label:          "Ocean Breeze",
		PrimaryColor:   "#0891b2",
		SecondaryColor: "#0ea5e9",
		AccentColor:    "#06b6d4",
		ThemeMode:      ThemeLight,
	},
	"forest": {
		Name:           "forest",
		Label:          "Forest Green",
		PrimaryColor:   "#059669",
		SecondaryColor: "#10b981",
		AccentColor:    "#34d399",
		ThemeMode:      ThemeLight,
	},
	"sunset": {
		Name:           "sunset",
		Label:          "Sunset Glow",
		PrimaryColor:   "#f59e0b",
		SecondaryColor: "#f97316",
		AccentColor:    "#fb923c",
		ThemeMode:      ThemeLight,
	},
	"midnight": {
		Name:           "midnight",
		Label:          "Midnight Purple",
		PrimaryColor:   "#7c3aed",
		SecondaryColor: "#8b5cf6",
		AccentColor:    "#a78bfa",
		ThemeMode:      ThemeDark,
	},
	"rose": {
		Name:           "rose",
		Label:          "Rose Garden",
		PrimaryColor:   "#e11d48",
		SecondaryColor: "#f43f5e",
		AccentColor:    "#fb7185",
		ThemeMode:      ThemeLight,
	},
	"professional": {
		Name:           "professional",
		Label:          "Professional",
		PrimaryColor:   "#1e40af",
		SecondaryColor: "#3b82f6",
		AccentColor:    "#60a5fa",
		ThemeMode:      ThemeLight,
	},
}

// PresetByName looks up a preset. Names are matched case-insensitively.
func PresetByName(name string) (Preset, bool) {
	p, ok := catalogue[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// Presets lists every preset sorted by name.
func Presets() []Preset {
	out := make([]Preset, 0, len(catalogue))
	for _, p := range catalogue {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// Patch returns the partial update that applies the preset. Only the base-tier
// fields it names are set.
func (p Preset) Patch() Patch {
	return Patch{
		PresetThemeName: String(p.Label),
		PrimaryColor:    String(p.PrimaryColor),
		SecondaryColor:  String(p.SecondaryColor),
		AccentColor:     String(p.AccentColor),
		ThemeMode:       String(p.ThemeMode),
	}
}
