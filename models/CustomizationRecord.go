package models

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"idlely/internal/customization"
)

// CustomizationRecord is the stored settings row, one per user. Entitlement is
// not stored here; it is derived from the user's subscription.
type CustomizationRecord struct {
	gorm.Model
	UserUID string `gorm:"type:varchar(36);uniqueIndex;not null"`

	ThemeMode       string `gorm:"type:varchar(16);not null"`
	PrimaryColor    string `gorm:"type:varchar(16);not null"`
	SecondaryColor  string `gorm:"type:varchar(16);not null"`
	AccentColor     string `gorm:"type:varchar(16);not null"`
	FontSize        string `gorm:"type:varchar(16);not null"`
	LayoutDensity   string `gorm:"type:varchar(16);not null"`
	IconStyle       string `gorm:"type:varchar(16);not null"`
	PresetThemeName string `gorm:"type:varchar(64)"`

	BackgroundType     string `gorm:"type:varchar(16);not null"`
	BackgroundGradient string
	BackgroundImageURL string
	GradientColor1     string `gorm:"type:varchar(16)"`
	GradientColor2     string `gorm:"type:varchar(16)"`
	GradientType       string `gorm:"type:varchar(16)"`
	GradientAngle      string `gorm:"type:varchar(32)"`
	CustomLogoURL      string
	LogoPosition       string `gorm:"type:varchar(16)"`
	CustomIconPack     string
	CustomFontFamily   string
	CustomFontURL      string
	AnimationSpeed     string `gorm:"type:varchar(16)"`
	AnimationType      string `gorm:"type:varchar(16)"`
	CustomCSS          string `gorm:"type:text"`
	WidgetLayout       datatypes.JSON
	LayoutPositions    datatypes.JSON
	LayoutTemplate     string `gorm:"type:varchar(32)"`
}

// NewCustomizationRecord flattens settings into a row owned by userUID.
func NewCustomizationRecord(userUID string, s customization.Settings) (CustomizationRecord, error) {
	widgets, err := encodeObject(s.WidgetLayout)
	if err != nil {
		return CustomizationRecord{}, fmt.Errorf("encode widget layout: %w", err)
	}
	positions, err := encodeObject(s.LayoutPositions)
	if err != nil {
		return CustomizationRecord{}, fmt.Errorf("encode layout positions: %w", err)
	}

	return CustomizationRecord{
		UserUID:            userUID,
		ThemeMode:          s.ThemeMode,
		PrimaryColor:       s.PrimaryColor,
		SecondaryColor:     s.SecondaryColor,
		AccentColor:        s.AccentColor,
		FontSize:           s.FontSize,
		LayoutDensity:      s.LayoutDensity,
		IconStyle:          s.IconStyle,
		PresetThemeName:    s.PresetThemeName,
		BackgroundType:     s.BackgroundType,
		BackgroundGradient: s.BackgroundGradient,
		BackgroundImageURL: s.BackgroundImageURL,
		GradientColor1:     s.GradientColor1,
		GradientColor2:     s.GradientColor2,
		GradientType:       s.GradientType,
		GradientAngle:      s.GradientAngle,
		CustomLogoURL:      s.CustomLogoURL,
		LogoPosition:       s.LogoPosition,
		CustomIconPack:     s.CustomIconPack,
		CustomFontFamily:   s.CustomFontFamily,
		CustomFontURL:      s.CustomFontURL,
		AnimationSpeed:     s.AnimationSpeed,
		AnimationType:      s.AnimationType,
		CustomCSS:          s.CustomCSS,
		WidgetLayout:       widgets,
		LayoutPositions:    positions,
		LayoutTemplate:     s.LayoutTemplate,
	}, nil
}

// Settings rebuilds the settings object. premium is the entitlement the
// caller derived from the user's subscription.
func (r CustomizationRecord) Settings(premium bool) (customization.Settings, error) {
	widgets, err := decodeObject(r.WidgetLayout)
	if err != nil {
		return customization.Settings{}, fmt.Errorf("decode widget layout: %w", err)
	}
	positions, err := decodeObject(r.LayoutPositions)
	if err != nil {
		return customization.Settings{}, fmt.Errorf("decode layout positions: %w", err)
	}

	return customization.Settings{
		ThemeMode:          r.ThemeMode,
		PrimaryColor:       r.PrimaryColor,
		SecondaryColor:     r.SecondaryColor,
		AccentColor:        r.AccentColor,
		FontSize:           r.FontSize,
		LayoutDensity:      r.LayoutDensity,
		IconStyle:          r.IconStyle,
		PresetThemeName:    r.PresetThemeName,
		BackgroundType:     r.BackgroundType,
		BackgroundGradient: r.BackgroundGradient,
		BackgroundImageURL: r.BackgroundImageURL,
		GradientColor1:     r.GradientColor1,
		GradientColor2:     r.GradientColor2,
		GradientType:       r.GradientType,
		GradientAngle:      r.GradientAngle,
		CustomLogoURL:      r.CustomLogoURL,
		LogoPosition:       r.LogoPosition,
		CustomIconPack:     r.CustomIconPack,
		CustomFontFamily:   r.CustomFontFamily,
		CustomFontURL:      r.CustomFontURL,
		AnimationSpeed:     r.AnimationSpeed,
		AnimationType:      r.AnimationType,
		CustomCSS:          r.CustomCSS,
		WidgetLayout:       widgets,
		LayoutPositions:    positions,
		LayoutTemplate:     r.LayoutTemplate,
		UserID:             r.UserUID,
		IsPremium:          premium,
	}, nil
}

func encodeObject(m map[string]any) (datatypes.JSON, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

func decodeObject(raw datatypes.JSON) (map[string]any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
