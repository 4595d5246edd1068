package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"idlely/internal/customization"
	applog "idlely/internal/log"
	"idlely/internal/presentation"
	"idlely/internal/realtime"
	"idlely/internal/views/theme"
)

var formFields = map[string]func(*customization.Patch, *string){
	"theme_mode":         func(p *customization.Patch, v *string) { p.ThemeMode = v },
	"primary_color":      func(p *customization.Patch, v *string) { p.PrimaryColor = v },
	"secondary_color":    func(p *customization.Patch, v *string) { p.SecondaryColor = v },
	"accent_color":       func(p *customization.Patch, v *string) { p.AccentColor = v },
	"font_size":          func(p *customization.Patch, v *string) { p.FontSize = v },
	"layout_density":     func(p *customization.Patch, v *string) { p.LayoutDensity = v },
	"icon_style":         func(p *customization.Patch, v *string) { p.IconStyle = v },
	"background_type":    func(p *customization.Patch, v *string) { p.BackgroundType = v },
	"gradient_color_1":   func(p *customization.Patch, v *string) { p.GradientColor1 = v },
	"gradient_color_2":   func(p *customization.Patch, v *string) { p.GradientColor2 = v },
	"gradient_type":      func(p *customization.Patch, v *string) { p.GradientType = v },
	"gradient_angle":     func(p *customization.Patch, v *string) { p.GradientAngle = v },
	"logo_position":      func(p *customization.Patch, v *string) { p.LogoPosition = v },
	"animation_speed":    func(p *customization.Patch, v *string) { p.AnimationSpeed = v },
	"animation_type":     func(p *customization.Patch, v *string) { p.AnimationType = v },
	"layout_template":    func(p *customization.Patch, v *string) { p.LayoutTemplate = v },
	"custom_font_family": func(p *customization.Patch, v *string) { p.CustomFontFamily = v },
}

// patchFromForm builds a partial update from the submitted fields. Fields
// absent from the form are left alone.
func patchFromForm(form url.Values) customization.Patch {
	var patch customization.Patch
	for name, set := range formFields {
		if _, ok := form[name]; !ok {
			continue
		}
		value := strings.TrimSpace(form.Get(name))
		set(&patch, &value)
	}
	return patch
}

// UpdatePreferences applies a form submission, or a named preset, to the
// caller's stored settings.
func UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		applog.Debug(r.Context(), "preferences update with unsupported method", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if database == nil {
		writeError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	uid, ok := currentUserUID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := r.ParseForm(); err != nil {
		applog.Error(r.Context(), "failed to parse preferences form", "error", err)
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return
	}

	current, found, err := loadSettings(r.Context(), uid)
	if err != nil {
		applog.Error(r.Context(), "unable to load settings for preferences", "user", uid, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	if !found {
		current = customization.Defaults().WithOwner(uid, false)
	}

	next := current
	if name := strings.TrimSpace(r.PostFormValue("preset")); name != "" {
		preset, ok := customization.PresetByName(name)
		if !ok {
			applog.Debug(r.Context(), "received unknown preset", "value", name)
			writeError(w, http.StatusBadRequest, "unknown preset")
			return
		}
		next = preset.Patch().Apply(next)
	}
	next = patchFromForm(r.PostForm).Apply(next)

	if err := next.Validate(); err != nil {
		var verr *customization.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, r, http.StatusUnprocessableEntity, errorResponse{Message: "invalid settings", Fields: verr.Fields})
			return
		}
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	applog.Debug(r.Context(), "updating user preferences", "user", uid)
	if err := saveSettings(r.Context(), uid, next); err != nil {
		applog.Error(r.Context(), "failed to persist user preferences", "error", err)
		http.Error(w, "failed to save preferences", http.StatusInternalServerError)
		return
	}
	if hub != nil {
		hub.Notify(r.Context(), uid, realtime.EventSettingsUpdated, next)
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		state := presentation.Project(next, requestAppearance(r))
		if err := theme.Style(state).Render(r.Context(), w); err != nil {
			applog.Error(r.Context(), "failed to render theme fragment", "error", err)
		}
		return
	}
	writeJSON(w, r, http.StatusOK, next)
}
