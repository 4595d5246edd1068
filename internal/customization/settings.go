// Package customization defines the layered customization settings, the
// partial-update merge, preset themes and subscription entitlement.
package customization

import "maps"

// Theme modes.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
	ThemeAuto  = "auto"
)

// Font sizes.
const (
	FontSmall      = "small"
	FontMedium     = "medium"
	FontLarge      = "large"
	FontExtraLarge = "extra-large"
)

// Layout densities.
const (
	DensityCompact     = "compact"
	DensityComfortable = "comfortable"
	DensitySpacious    = "spacious"
)

// Icon styles.
const (
	IconOutline = "outline"
	IconFilled  = "filled"
	IconMixed   = "mixed"
)

// Background modes.
const (
	BackgroundSolid    = "solid"
	BackgroundGradient = "gradient"
	BackgroundImage    = "image"
)

// Gradient shapes.
const (
	GradientLinear = "linear"
	GradientRadial = "radial"
)

// Logo positions.
const (
	LogoTopLeft   = "top-left"
	LogoTopCenter = "top-center"
	LogoTopRight  = "top-right"
)

// Animation speeds.
const (
	AnimationSlow   = "slow"
	AnimationNormal = "normal"
	AnimationFast   = "fast"
	AnimationNone   = "none"
)

// Animation types.
const (
	AnimationSmooth = "smooth"
	AnimationBouncy = "bouncy"
	AnimationSharp  = "sharp"
)

// Layout templates.
const (
	TemplateDefault          = "default"
	TemplateDashboardFocused = "dashboard-focused"
	TemplateCompact          = "compact"
	TemplateSpacious         = "spacious"
)

// Settings is the flat customization record. The base tier is always active;
// the advanced tier only takes effect when IsPremium is set.
type Settings struct {
	// Base tier.
	ThemeMode       string `json:"theme_mode" yaml:"theme_mode" validate:"required,oneof=light dark auto"`
	PrimaryColor    string `json:"primary_color" yaml:"primary_color" validate:"required,hexcolor"`
	SecondaryColor  string `json:"secondary_color" yaml:"secondary_color" validate:"required,hexcolor"`
	AccentColor     string `json:"accent_color" yaml:"accent_color" validate:"required,hexcolor"`
	FontSize        string `json:"font_size" yaml:"font_size" validate:"required,oneof=small medium large extra-large"`
	LayoutDensity   string `json:"layout_density" yaml:"layout_density" validate:"required,oneof=compact comfortable spacious"`
	IconStyle       string `json:"icon_style" yaml:"icon_style" validate:"required,oneof=outline filled mixed"`
	PresetThemeName string `json:"preset_theme_name,omitempty" yaml:"preset_theme_name,omitempty" validate:"max=64"`

	// Advanced tier.
	BackgroundType     string         `json:"background_type" yaml:"background_type" validate:"required,oneof=solid gradient image"`
	BackgroundGradient string         `json:"background_gradient,omitempty" yaml:"background_gradient,omitempty" validate:"max=256"`
	BackgroundImageURL string         `json:"background_image_url,omitempty" yaml:"background_image_url,omitempty" validate:"omitempty,url"`
	GradientColor1     string         `json:"gradient_color_1,omitempty" yaml:"gradient_color_1,omitempty" validate:"omitempty,hexcolor"`
	GradientColor2     string         `json:"gradient_color_2,omitempty" yaml:"gradient_color_2,omitempty" validate:"omitempty,hexcolor"`
	GradientType       string         `json:"gradient_type,omitempty" yaml:"gradient_type,omitempty" validate:"omitempty,oneof=linear radial"`
	GradientAngle      string         `json:"gradient_angle,omitempty" yaml:"gradient_angle,omitempty" validate:"max=32"`
	CustomLogoURL      string         `json:"custom_logo_url,omitempty" yaml:"custom_logo_url,omitempty" validate:"omitempty,url"`
	LogoPosition       string         `json:"logo_position" yaml:"logo_position" validate:"required,oneof=top-left top-center top-right"`
	CustomIconPack     string         `json:"custom_icon_pack,omitempty" yaml:"custom_icon_pack,omitempty" validate:"max=128"`
	CustomFontFamily   string         `json:"custom_font_family,omitempty" yaml:"custom_font_family,omitempty" validate:"max=128"`
	CustomFontURL      string         `json:"custom_font_url,omitempty" yaml:"custom_font_url,omitempty" validate:"omitempty,url"`
	AnimationSpeed     string         `json:"animation_speed" yaml:"animation_speed" validate:"required,oneof=slow normal fast none"`
	AnimationType      string         `json:"animation_type" yaml:"animation_type" validate:"required,oneof=smooth bouncy sharp none"`
	CustomCSS          string         `json:"custom_css,omitempty" yaml:"custom_css,omitempty" validate:"max=65536"`
	WidgetLayout       map[string]any `json:"widget_layout" yaml:"widget_layout,omitempty"`
	LayoutPositions    map[string]any `json:"layout_positions" yaml:"layout_positions,omitempty"`
	LayoutTemplate     string         `json:"layout_template,omitempty" yaml:"layout_template,omitempty" validate:"omitempty,oneof=default dashboard-focused compact spacious"`

	// Owned by the signed-in identity, never by a partial update.
	UserID    string `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	IsPremium bool   `json:"is_premium" yaml:"is_premium"`
}

// Defaults returns the hard-coded settings used on first load and on reset.
func Defaults() Settings {
	return Settings{
		ThemeMode:      ThemeLight,
		PrimaryColor:   "#3b82f6",
		SecondaryColor: "#8b5cf6",
		AccentColor:    "#10b981",
		FontSize:       FontMedium,
		LayoutDensity:  DensityComfortable,
		IconStyle:      IconOutline,
		BackgroundType: BackgroundSolid,
		GradientColor1: "#667eea",
		GradientColor2: "#764ba2",
		GradientType:   GradientLinear,
		GradientAngle:  "135deg",
		LogoPosition:   LogoTopLeft,
		AnimationSpeed: AnimationNormal,
		AnimationType:  AnimationSmooth,
		LayoutTemplate: TemplateDefault,

		LayoutPositions: map[string]any{},
	}
}

// Clone returns a copy whose top-level maps are not shared with s.
func (s Settings) Clone() Settings {
	out := s
	if s.WidgetLayout != nil {
		out.WidgetLayout = maps.Clone(s.WidgetLayout)
	}
	if s.LayoutPositions != nil {
		out.LayoutPositions = maps.Clone(s.LayoutPositions)
	}
	return out
}

// WithOwner returns a copy carrying the identity-owned fields.
func (s Settings) WithOwner(userID string, premium bool) Settings {
	out := s.Clone()
	out.UserID = userID
	out.IsPremium = premium
	return out
}
