package handlers

import (
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"idlely/internal/customization"
	applog "idlely/internal/log"
	"idlely/internal/presentation"
	"idlely/internal/views/theme"
)

const colorSchemeHint = "Sec-CH-Prefers-Color-Scheme"

// requestAppearance reads the browser's color scheme hint. Clients that do
// not send it are treated as preferring light.
func requestAppearance(r *http.Request) presentation.Appearance {
	hint := strings.Trim(strings.TrimSpace(r.Header.Get(colorSchemeHint)), `"`)
	return presentation.Fixed(strings.EqualFold(hint, "dark"))
}

// Theme renders the caller's projected theme. HTMX requests and requests
// for format=css get only the style block; everything else gets a preview page.
func Theme(w http.ResponseWriter, r *http.Request) {
	applog.Debug(r.Context(), "handling theme request", "method", r.Method, "htmx", isHTMX(r))

	switch r.Method {
	case http.MethodGet, http.MethodHead:
	default:
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

	settings, found, err := loadSettings(r.Context(), uid)
	if err != nil {
		applog.Error(r.Context(), "failed to load settings for theme", "user", uid, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	if !found {
		settings = customization.Defaults().WithOwner(uid, false)
	}

	state := presentation.Project(settings, requestAppearance(r))

	w.Header().Set("Accept-CH", colorSchemeHint)
	w.Header().Add("Vary", colorSchemeHint)

	if r.URL.Query().Get("format") == "css" {
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		if _, err := w.Write([]byte(theme.StyleSheet(state))); err != nil {
			applog.Error(r.Context(), "failed to write theme stylesheet", "error", err)
		}
		return
	}

	var component templ.Component
	if isHTMX(r) {
		component = theme.Style(state)
	} else {
		component = theme.Preview(state, "Idlely theme preview")
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(r.Context(), w); err != nil {
		applog.Error(r.Context(), "failed to render theme", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
