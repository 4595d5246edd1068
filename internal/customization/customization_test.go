package customization

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	require.NoError(t, Defaults().Validate())
}

func TestPatchApplyIsShallowMerge(t *testing.T) {
	base := Defaults()
	base.CustomCSS = "body { color: red; }"

	patch := Patch{
		PrimaryColor: String("#111111"),
		FontSize:     String(FontLarge),
	}
	got := patch.Apply(base)

	want := base.Clone()
	want.PrimaryColor = "#111111"
	want.FontSize = FontLarge
	assert.Equal(t, want, got)

	// base is untouched
	assert.Equal(t, "#3b82f6", base.PrimaryColor)
	assert.Equal(t, FontMedium, base.FontSize)
}

func TestPatchApplyDoesNotAliasMaps(t *testing.T) {
	positions := map[string]any{"sidebar": "left"}
	got := Patch{LayoutPositions: &positions}.Apply(Defaults())

	positions["sidebar"] = "right"
	assert.Equal(t, "left", got.LayoutPositions["sidebar"])
}

func TestPatchEmpty(t *testing.T) {
	assert.True(t, Patch{}.Empty())
	assert.False(t, Patch{IconStyle: String(IconFilled)}.Empty())
}

func TestPatchNeverTouchesOwnerFields(t *testing.T) {
	base := Defaults().WithOwner("user-1", true)
	got := Patch{ThemeMode: String(ThemeDark)}.Apply(base)

	assert.Equal(t, "user-1", got.UserID)
	assert.True(t, got.IsPremium)
}

func TestPresetOcean(t *testing.T) {
	preset, ok := PresetByName("ocean")
	require.True(t, ok)

	base := Defaults()
	base.FontSize = FontSmall
	got := preset.Patch().Apply(base)

	assert.Equal(t, "#0891b2", got.PrimaryColor)
	assert.Equal(t, "#0ea5e9", got.SecondaryColor)
	assert.Equal(t, "#06b6d4", got.AccentColor)
	assert.Equal(t, ThemeLight, got.ThemeMode)
	assert.Equal(t, "Ocean Breeze", got.PresetThemeName)
	assert.Equal(t, FontSmall, got.FontSize)
	assert.Equal(t, base.BackgroundType, got.BackgroundType)
}

func TestPresetByNameUnknown(t *testing.T) {
	_, ok := PresetByName("galaxy")
	assert.False(t, ok)

	_, ok = PresetByName("  MIDNIGHT ")
	assert.True(t, ok)
}

func TestPresetsSorted(t *testing.T) {
	presets := Presets()
	require.Len(t, presets, 6)
	for i := 1; i < len(presets); i++ {
		assert.Less(t, presets[i-1].Name, presets[i].Name)
	}
	for _, p := range presets {
		assert.NoError(t, p.Patch().Apply(Defaults()).Validate(), p.Name)
	}
}

func TestEntitled(t *testing.T) {
	tiers := []string{TierFree, TierPremium, ""}
	statuses := []string{StatusActive, StatusInactive, StatusCancelled, StatusExpired, ""}

	for _, tier := range tiers {
		for _, status := range statuses {
			info := &SubscriptionInfo{Tier: tier, Status: status}
			want := tier == TierPremium && status == StatusActive
			assert.Equal(t, want, info.Entitled(), "tier=%q status=%q", tier, status)
		}
	}

	var missing *SubscriptionInfo
	assert.False(t, missing.Entitled())
}

func TestValidateReportsJSONFieldNames(t *testing.T) {
	s := Defaults()
	s.ThemeMode = "sepia"
	s.PrimaryColor = "blue"
	s.BackgroundImageURL = "not a url"

	err := s.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "theme_mode")
	assert.Contains(t, verr.Fields, "primary_color")
	assert.Contains(t, verr.Fields, "background_image_url")
	assert.Equal(t, "must be a hex color", verr.Fields["primary_color"])
}

func TestCloneCopiesMaps(t *testing.T) {
	s := Defaults()
	s.WidgetLayout = map[string]any{"calendar": true}

	c := s.Clone()
	c.WidgetLayout["calendar"] = false
	c.LayoutPositions["x"] = 1

	assert.Equal(t, true, s.WidgetLayout["calendar"])
	assert.NotContains(t, s.LayoutPositions, "x")
}
