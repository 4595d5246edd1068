// Package presentation maps customization settings onto presentation
// variables. Projection is pure: settings go in, a State comes out, and the
// settings are never written back.
package presentation

import (
	"fmt"

	colorful "github.com/lucasb-eyer/go-colorful"

	"idlely/internal/customization"
)

// Variable names written by the projector.
const (
	VarColorPrimary      = "--color-primary"
	VarColorSecondary    = "--color-secondary"
	VarColorAccent       = "--color-accent"
	VarColorOnPrimary    = "--color-on-primary"
	VarBaseFontSize      = "--base-font-size"
	VarLayoutPadding     = "--layout-padding"
	VarLayoutGap         = "--layout-gap"
	VarContainerMaxWidth = "--container-max-width"
	VarCardSpacing       = "--card-spacing"
	VarSectionSpacing    = "--section-spacing"
	VarContentPadding    = "--content-padding"

	VarBackgroundGradient = "--background-gradient"
	VarBackgroundImage    = "--background-image"
	VarCustomFont         = "--custom-font"
	VarCustomLogo         = "--custom-logo"
	VarLogoPosition       = "--logo-position"
	VarAnimationDuration  = "--animation-duration"
	VarAnimationEasing    = "--animation-easing"
)

// Body classes toggled by the background mode.
const (
	ClassGradient = "theme-gradient"
	ClassImage    = "theme-image"
)

// Fallbacks used when a gradient is selected with parts missing.
const (
	DefaultGradientColor1 = "#667eea"
	DefaultGradientColor2 = "#764ba2"
	DefaultGradientAngle  = "135deg"
)

var fontSizes = map[string]string{
	customization.FontSmall:      "14px",
	customization.FontMedium:     "16px",
	customization.FontLarge:      "18px",
	customization.FontExtraLarge: "20px",
}

type density struct {
	padding string
	gap     string
}

var densities = map[string]density{
	customization.DensityCompact:     {padding: "0.5rem", gap: "0.5rem"},
	customization.DensityComfortable: {padding: "1rem", gap: "1rem"},
	customization.DensitySpacious:    {padding: "1.5rem", gap: "1.5rem"},
}

// Template is the spacing tuple a layout template resolves to.
type Template struct {
	ContainerWidth string
	CardSpacing    string
	SectionSpacing string
	ContentPadding string
}

var templates = map[string]Template{
	customization.TemplateDefault: {
		ContainerWidth: "1280px",
		CardSpacing:    "1.5rem",
		SectionSpacing: "2rem",
		ContentPadding: "1.5rem",
	},
	customization.TemplateDashboardFocused: {
		ContainerWidth: "1536px",
		CardSpacing:    "1rem",
		SectionSpacing: "1.5rem",
		ContentPadding: "1rem",
	},
	customization.TemplateCompact: {
		ContainerWidth: "1024px",
		CardSpacing:    "0.75rem",
		SectionSpacing: "1rem",
		ContentPadding: "0.75rem",
	},
	customization.TemplateSpacious: {
		ContainerWidth: "1280px",
		CardSpacing:    "2rem",
		SectionSpacing: "3rem",
		ContentPadding: "2rem",
	},
}

var animationDurations = map[string]string{
	customization.AnimationSlow:   "0.5s",
	customization.AnimationNormal: "0.3s",
	customization.AnimationFast:   "0.15s",
	customization.AnimationNone:   "0s",
}

var animationEasings = map[string]string{
	customization.AnimationSmooth: "ease-in-out",
	customization.AnimationBouncy: "cubic-bezier(0.68, -0.55, 0.265, 1.55)",
	customization.AnimationSharp:  "linear",
	customization.AnimationNone:   "step-end",
}

// ResolveTemplate returns the spacing tuple for name, falling back to the
// default template for unset or unknown names.
func ResolveTemplate(name string) Template {
	if t, ok := templates[name]; ok {
		return t
	}
	return templates[customization.TemplateDefault]
}

// FontSize returns the absolute size for a font size bucket, defaulting to medium.
func FontSize(name string) string {
	if v, ok := fontSizes[name]; ok {
		return v
	}
	return fontSizes[customization.FontMedium]
}

// AnimationDuration returns the duration for a speed bucket, defaulting to normal.
func AnimationDuration(speed string) string {
	if v, ok := animationDurations[speed]; ok {
		return v
	}
	return animationDurations[customization.AnimationNormal]
}

// Gradient builds the CSS gradient expression for the given parts. Empty parts
// take the package defaults; any shape other than radial is linear.
func Gradient(color1, color2, angle, shape string) string {
	if color1 == "" {
		color1 = DefaultGradientColor1
	}
	if color2 == "" {
		color2 = DefaultGradientColor2
	}
	if angle == "" {
		angle = DefaultGradientAngle
	}
	if shape == customization.GradientRadial {
		return fmt.Sprintf("radial-gradient(circle, %s, %s)", color1, color2)
	}
	return fmt.Sprintf("linear-gradient(%s, %s, %s)", angle, color1, color2)
}

// Project derives the presentation state for s. appearance is consulted once,
// and only when s asks for the automatic theme mode.
func Project(s customization.Settings, appearance Appearance) State {
	state := State{
		Variables: make(map[string]string, 20),
		Premium:   s.IsPremium,
	}
	vars := state.Variables

	vars[VarColorPrimary] = s.PrimaryColor
	vars[VarColorSecondary] = s.SecondaryColor
	vars[VarColorAccent] = s.AccentColor
	vars[VarColorOnPrimary] = contrastText(s.PrimaryColor)

	vars[VarBaseFontSize] = FontSize(s.FontSize)

	d, ok := densities[s.LayoutDensity]
	if !ok {
		d = densities[customization.DensityComfortable]
	}
	vars[VarLayoutPadding] = d.padding
	vars[VarLayoutGap] = d.gap

	templateName := customization.TemplateDefault
	if s.IsPremium {
		templateName = s.LayoutTemplate
	}
	tpl := ResolveTemplate(templateName)
	vars[VarContainerMaxWidth] = tpl.ContainerWidth
	vars[VarCardSpacing] = tpl.CardSpacing
	vars[VarSectionSpacing] = tpl.SectionSpacing
	vars[VarContentPadding] = tpl.ContentPadding

	switch s.ThemeMode {
	case customization.ThemeDark:
		state.Dark = true
	case customization.ThemeLight:
		state.Dark = false
	default:
		state.Dark = appearance != nil && appearance.PrefersDark()
	}

	if !s.IsPremium {
		return state
	}

	switch {
	case s.BackgroundType == customization.BackgroundGradient:
		vars[VarBackgroundGradient] = Gradient(s.GradientColor1, s.GradientColor2, s.GradientAngle, s.GradientType)
		state.BodyClasses = append(state.BodyClasses, ClassGradient)
	case s.BackgroundType == customization.BackgroundImage && s.BackgroundImageURL != "":
		vars[VarBackgroundImage] = fmt.Sprintf("url(%s)", s.BackgroundImageURL)
		state.BodyClasses = append(state.BodyClasses, ClassImage)
	}

	if s.CustomFontFamily != "" {
		vars[VarCustomFont] = s.CustomFontFamily
	}
	if s.CustomLogoURL != "" {
		vars[VarCustomLogo] = fmt.Sprintf("url(%s)", s.CustomLogoURL)
		vars[VarLogoPosition] = s.LogoPosition
	}

	vars[VarAnimationDuration] = AnimationDuration(s.AnimationSpeed)
	if easing, ok := animationEasings[s.AnimationType]; ok {
		vars[VarAnimationEasing] = easing
	}

	state.CustomCSS = s.CustomCSS
	return state
}

// contrastText picks a readable text color for content drawn on top of hex.
func contrastText(hex string) string {
	c, err := colorful.Hex(hex)
	if err != nil {
		return TextOnLight
	}
	if IsDark(c) {
		return TextOnDark
	}
	return TextOnLight
}

// Text colors for content drawn over a background.
const (
	TextOnDark  = "#ffffff"
	TextOnLight = "#1f2937"
)

// IsDark reports whether a color's perceived luminance falls below one half.
func IsDark(c colorful.Color) bool {
	return 0.299*c.R+0.587*c.G+0.114*c.B < 0.5
}
