package customization

import "maps"

// Patch is a partial update. Nil fields are left untouched by Apply; set
// fields overwrite the current value. Identity-owned fields are not patchable.
type Patch struct {
	ThemeMode       *string `json:"theme_mode,omitempty"`
	PrimaryColor    *string `json:"primary_color,omitempty"`
	SecondaryColor  *string `json:"secondary_color,omitempty"`
	AccentColor     *string `json:"accent_color,omitempty"`
	FontSize        *string `json:"font_size,omitempty"`
	LayoutDensity   *string `json:"layout_density,omitempty"`
	IconStyle       *string `json:"icon_style,omitempty"`
	PresetThemeName *string `json:"preset_theme_name,omitempty"`

	BackgroundType     *string         `json:"background_type,omitempty"`
	BackgroundGradient *string         `json:"background_gradient,omitempty"`
	BackgroundImageURL *string         `json:"background_image_url,omitempty"`
	GradientColor1     *string         `json:"gradient_color_1,omitempty"`
	GradientColor2     *string         `json:"gradient_color_2,omitempty"`
	GradientType       *string         `json:"gradient_type,omitempty"`
	GradientAngle      *string         `json:"gradient_angle,omitempty"`
	CustomLogoURL      *string         `json:"custom_logo_url,omitempty"`
	LogoPosition       *string         `json:"logo_position,omitempty"`
	CustomIconPack     *string         `json:"custom_icon_pack,omitempty"`
	CustomFontFamily   *string         `json:"custom_font_family,omitempty"`
	CustomFontURL      *string         `json:"custom_font_url,omitempty"`
	AnimationSpeed     *string         `json:"animation_speed,omitempty"`
	AnimationType      *string         `json:"animation_type,omitempty"`
	CustomCSS          *string         `json:"custom_css,omitempty"`
	WidgetLayout       *map[string]any `json:"widget_layout,omitempty"`
	LayoutPositions    *map[string]any `json:"layout_positions,omitempty"`
	LayoutTemplate     *string         `json:"layout_template,omitempty"`
}

// String returns a pointer to v, for building patches inline.
func String(v string) *string {
	return &v
}

// Empty reports whether the patch sets no field.
func (p Patch) Empty() bool {
	return p == (Patch{})
}

// Apply merges p onto base and returns the result. base is not modified.
func (p Patch) Apply(base Settings) Settings {
	out := base.Clone()

	setString(&out.ThemeMode, p.ThemeMode)
	setString(&out.PrimaryColor, p.PrimaryColor)
	setString(&out.SecondaryColor, p.SecondaryColor)
	setString(&out.AccentColor, p.AccentColor)
	setString(&out.FontSize, p.FontSize)
	setString(&out.LayoutDensity, p.LayoutDensity)
	setString(&out.IconStyle, p.IconStyle)
	setString(&out.PresetThemeName, p.PresetThemeName)

	setString(&out.BackgroundType, p.BackgroundType)
	setString(&out.BackgroundGradient, p.BackgroundGradient)
	setString(&out.BackgroundImageURL, p.BackgroundImageURL)
	setString(&out.GradientColor1, p.GradientColor1)
	setString(&out.GradientColor2, p.GradientColor2)
	setString(&out.GradientType, p.GradientType)
	setString(&out.GradientAngle, p.GradientAngle)
	setString(&out.CustomLogoURL, p.CustomLogoURL)
	setString(&out.LogoPosition, p.LogoPosition)
	setString(&out.CustomIconPack, p.CustomIconPack)
	setString(&out.CustomFontFamily, p.CustomFontFamily)
	setString(&out.CustomFontURL, p.CustomFontURL)
	setString(&out.AnimationSpeed, p.AnimationSpeed)
	setString(&out.AnimationType, p.AnimationType)
	setString(&out.CustomCSS, p.CustomCSS)
	setString(&out.LayoutTemplate, p.LayoutTemplate)

	if p.WidgetLayout != nil {
		out.WidgetLayout = maps.Clone(*p.WidgetLayout)
	}
	if p.LayoutPositions != nil {
		out.LayoutPositions = maps.Clone(*p.LayoutPositions)
	}

	return out
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
