package presentation

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idlely/internal/customization"
)

func premiumDefaults() customization.Settings {
	s := customization.Defaults()
	s.IsPremium = true
	return s
}

func TestProjectBaseVariables(t *testing.T) {
	s := customization.Defaults()
	s.FontSize = customization.FontExtraLarge
	s.LayoutDensity = customization.DensityCompact

	got := Project(s, Fixed(false))

	want := map[string]string{
		VarColorPrimary:      "#3b82f6",
		VarColorSecondary:    "#8b5cf6",
		VarColorAccent:       "#10b981",
		VarColorOnPrimary:    TextOnLight,
		VarBaseFontSize:      "20px",
		VarLayoutPadding:     "0.5rem",
		VarLayoutGap:         "0.5rem",
		VarContainerMaxWidth: "1280px",
		VarCardSpacing:       "1.5rem",
		VarSectionSpacing:    "2rem",
		VarContentPadding:    "1.5rem",
	}
	if diff := cmp.Diff(want, got.Variables); diff != "" {
		t.Fatalf("Project() variables mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, got.Dark)
	assert.Empty(t, got.BodyClasses)
	assert.False(t, got.Premium)
}

func TestFontSizeBuckets(t *testing.T) {
	tests := map[string]string{
		customization.FontSmall:      "14px",
		customization.FontMedium:     "16px",
		customization.FontLarge:      "18px",
		customization.FontExtraLarge: "20px",
		"":                           "16px",
	}
	for in, want := range tests {
		assert.Equal(t, want, FontSize(in), in)
	}
}

func TestResolveTemplate(t *testing.T) {
	tests := []struct {
		name string
		want Template
	}{
		{customization.TemplateDefault, Template{"1280px", "1.5rem", "2rem", "1.5rem"}},
		{customization.TemplateDashboardFocused, Template{"1536px", "1rem", "1.5rem", "1rem"}},
		{customization.TemplateCompact, Template{"1024px", "0.75rem", "1rem", "0.75rem"}},
		{customization.TemplateSpacious, Template{"1280px", "2rem", "3rem", "2rem"}},
		{"", Template{"1280px", "1.5rem", "2rem", "1.5rem"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveTemplate(tt.name), tt.name)
	}
}

func TestTemplateIsGatedByEntitlement(t *testing.T) {
	s := customization.Defaults()
	s.LayoutTemplate = customization.TemplateCompact

	free := Project(s, nil)
	assert.Equal(t, "1280px", free.Variables[VarContainerMaxWidth])

	s.IsPremium = true
	premium := Project(s, nil)
	assert.Equal(t, "1024px", premium.Variables[VarContainerMaxWidth])
}

func TestAnimationDurations(t *testing.T) {
	tests := map[string]string{
		customization.AnimationSlow:   "0.5s",
		customization.AnimationNormal: "0.3s",
		customization.AnimationFast:   "0.15s",
		customization.AnimationNone:   "0s",
	}
	for speed, want := range tests {
		s := premiumDefaults()
		s.AnimationSpeed = speed
		assert.Equal(t, want, Project(s, nil).Variables[VarAnimationDuration], speed)
	}
}

func TestThemeModeResolution(t *testing.T) {
	calls := 0
	system := AppearanceFunc(func() bool {
		calls++
		return true
	})

	s := customization.Defaults()
	s.ThemeMode = customization.ThemeDark
	assert.True(t, Project(s, system).Dark)

	s.ThemeMode = customization.ThemeLight
	assert.False(t, Project(s, system).Dark)
	assert.Equal(t, 0, calls, "explicit modes must not consult the system preference")

	s.ThemeMode = customization.ThemeAuto
	assert.True(t, Project(s, system).Dark)
	assert.False(t, Project(s, Fixed(false)).Dark)
	assert.False(t, Project(s, nil).Dark)
	assert.Equal(t, 1, calls)
}

func TestLinearGradientExpression(t *testing.T) {
	s := premiumDefaults()
	s.BackgroundType = customization.BackgroundGradient
	s.GradientColor1 = "#667eea"
	s.GradientColor2 = "#764ba2"
	s.GradientAngle = "135deg"
	s.GradientType = customization.GradientLinear

	got := Project(s, nil)

	assert.Equal(t, "linear-gradient(135deg, #667eea, #764ba2)", got.Variables[VarBackgroundGradient])
	assert.True(t, got.HasClass(ClassGradient))
	assert.False(t, got.HasClass(ClassImage))
}

func TestGradientDefaultsAndRadial(t *testing.T) {
	assert.Equal(t, "linear-gradient(135deg, #667eea, #764ba2)", Gradient("", "", "", ""))
	assert.Equal(t, "radial-gradient(circle, #000000, #ffffff)", Gradient("#000000", "#ffffff", "90deg", customization.GradientRadial))
}

func TestProjectDoesNotMutateSettings(t *testing.T) {
	s := premiumDefaults()
	s.BackgroundType = customization.BackgroundGradient
	before := s.Clone()

	Project(s, nil)

	assert.Equal(t, before, s)
	assert.Empty(t, s.BackgroundGradient)
}

func TestImageBackground(t *testing.T) {
	s := premiumDefaults()
	s.BackgroundType = customization.BackgroundImage
	s.BackgroundImageURL = "https://cdn.example/bg.png"

	got := Project(s, nil)
	assert.Equal(t, "url(https://cdn.example/bg.png)", got.Variables[VarBackgroundImage])
	assert.True(t, got.HasClass(ClassImage))

	s.BackgroundImageURL = ""
	solid := Project(s, nil)
	_, ok := solid.Variable(VarBackgroundImage)
	assert.False(t, ok)
	assert.Empty(t, solid.BodyClasses)
}

func TestPremiumFieldsInertWithoutEntitlement(t *testing.T) {
	s := customization.Defaults()
	s.BackgroundType = customization.BackgroundGradient
	s.CustomFontFamily = "Inter"
	s.CustomLogoURL = "https://cdn.example/logo.svg"
	s.CustomCSS = "body{}"

	got := Project(s, nil)
	for _, name := range []string{VarBackgroundGradient, VarBackgroundImage, VarCustomFont, VarCustomLogo, VarAnimationDuration, VarAnimationEasing} {
		_, ok := got.Variable(name)
		assert.False(t, ok, name)
	}
	assert.Empty(t, got.BodyClasses)
	assert.Empty(t, got.CustomCSS)
}

func TestDowngradeClearsAppliedPremiumState(t *testing.T) {
	surface := NewContext()

	s := premiumDefaults()
	s.BackgroundType = customization.BackgroundGradient
	s.CustomCSS = ".card{border-radius:0}"
	surface.Apply(Project(s, nil))
	require.True(t, surface.Current().HasClass(ClassGradient))

	s.IsPremium = false
	surface.Apply(Project(s, nil))

	current := surface.Current()
	_, ok := current.Variable(VarBackgroundGradient)
	assert.False(t, ok)
	assert.False(t, current.HasClass(ClassGradient))
	assert.Empty(t, current.CustomCSS)
	assert.Equal(t, 2, surface.Applied())
}

func TestContrastText(t *testing.T) {
	assert.Equal(t, TextOnDark, contrastText("#1e40af"))
	assert.Equal(t, TextOnLight, contrastText("#fb923c"))
	assert.Equal(t, TextOnLight, contrastText("not-a-color"))
}

func TestStateCSSIsSorted(t *testing.T) {
	state := State{
		Variables: map[string]string{"--b": "2", "--a": "1"},
		CustomCSS: ".x{}",
	}
	css := state.CSS()
	assert.Equal(t, ":root {\n  --a: 1;\n  --b: 2;\n}\n.x{}\n", css)
	assert.True(t, strings.HasPrefix(css, ":root"))
}

func TestContextCurrentIsCopy(t *testing.T) {
	surface := NewContext()
	surface.Apply(Project(customization.Defaults(), nil))

	current := surface.Current()
	current.Variables[VarColorPrimary] = "#000000"

	assert.Equal(t, "#3b82f6", surface.Current().Variables[VarColorPrimary])
}
