package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"idlely/internal/customization"
	"idlely/internal/identity"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(18)
	lockStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func encodeSettings(s customization.Settings, format string) (string, error) {
	switch strings.ToLower(format) {
	case formatJSON:
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data) + "\n", nil
	case formatYAML, "yml":
		data, err := yaml.Marshal(s)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported format %q", format)
	}
}

func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	default:
		return formatJSON
	}
}

// snapshotJSON converts a YAML snapshot into the JSON form the store imports.
// JSON payloads pass through untouched.
func snapshotJSON(payload []byte, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case formatJSON:
		return payload, nil
	case formatYAML, "yml":
		var doc map[string]any
		if err := yaml.Unmarshal(payload, &doc); err != nil {
			return nil, fmt.Errorf("parse yaml snapshot: %w", err)
		}
		if doc == nil {
			return nil, fmt.Errorf("parse yaml snapshot: document is empty")
		}
		return json.Marshal(doc)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

func swatch(hex string) string {
	if hex == "" {
		return ""
	}
	return lipgloss.NewStyle().Background(lipgloss.Color(hex)).Render("  ") + " " + hex
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

func renderSettings(s customization.Settings, entitled bool) string {
	lines := []string{
		titleStyle.Render("Appearance"),
		row("theme", s.ThemeMode),
		row("primary", swatch(s.PrimaryColor)),
		row("secondary", swatch(s.SecondaryColor)),
		row("accent", swatch(s.AccentColor)),
		row("font size", s.FontSize),
		row("density", s.LayoutDensity),
		row("icons", s.IconStyle),
	}
	if s.PresetThemeName != "" {
		lines = append(lines, row("preset", s.PresetThemeName))
	}

	lines = append(lines, "", titleStyle.Render("Premium"))
	if !entitled {
		lines = append(lines, lockStyle.Render("locked: activate a reference key to unlock"))
	}
	lines = append(lines,
		row("background", s.BackgroundType),
		row("gradient", fmt.Sprintf("%s %s → %s (%s)", s.GradientType, s.GradientColor1, s.GradientColor2, s.GradientAngle)),
		row("logo position", s.LogoPosition),
		row("animation", s.AnimationSpeed+" / "+s.AnimationType),
		row("template", s.LayoutTemplate),
	)
	if s.CustomFontFamily != "" {
		lines = append(lines, row("font family", s.CustomFontFamily))
	}
	if s.CustomCSS != "" {
		lines = append(lines, row("custom css", fmt.Sprintf("%d bytes", len(s.CustomCSS))))
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderStatus(who identity.Identity, sub *customization.SubscriptionInfo, online bool) string {
	account := "guest (" + who.ID + ")"
	if who.SignedIn() {
		account = who.Email
	}
	backend := "offline"
	if online {
		backend = "connected"
	}

	plan := customization.TierFree
	if sub != nil {
		plan = sub.Tier + " / " + sub.Status
		if sub.ExpiresAt != nil {
			plan += " until " + sub.ExpiresAt.Local().Format(time.DateOnly)
		}
	}
	if sub.Entitled() {
		plan = okStyle.Render(plan)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		row("account", account),
		row("backend", backend),
		row("plan", plan),
	)
}

func renderPresets(presets []customization.Preset) string {
	lines := make([]string, 0, len(presets))
	for _, p := range presets {
		colors := lipgloss.JoinHorizontal(lipgloss.Top,
			swatch(p.PrimaryColor), " ",
			swatch(p.SecondaryColor), " ",
			swatch(p.AccentColor),
		)
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
			labelStyle.Render(p.Name), fmt.Sprintf("%-14s ", p.Label), colors))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
