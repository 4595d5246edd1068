package handlers

import (
	"net/http"
	"strings"

	"idlely/internal/customization"
	applog "idlely/internal/log"
)

// ownerFilter resolves the user a table read is scoped to. Clients filter with
// user_id=eq.<id>; a filter naming anyone but the session user is refused.
func ownerFilter(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid, ok := currentUserUID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return "", false
	}

	filter := r.URL.Query().Get("user_id")
	if filter == "" {
		return uid, true
	}
	op, value, found := strings.Cut(filter, ".")
	if !found || op != "eq" || value == "" {
		writeError(w, http.StatusBadRequest, "unsupported user_id filter")
		return "", false
	}
	if value != uid {
		applog.Debug(r.Context(), "refusing cross-user read", "user", uid, "requested", value)
		writeError(w, http.StatusForbidden, "permission denied")
		return "", false
	}
	return uid, true
}

// CustomizationSettings lists the caller's settings record.
func CustomizationSettings(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		writeError(w, http.StatusServiceUnavailable, "database not available")
		return
	}
	uid, ok := ownerFilter(w, r)
	if !ok {
		return
	}

	settings, found, err := loadSettings(r.Context(), uid)
	if err != nil {
		applog.Error(r.Context(), "failed to load customization settings", "user", uid, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}

	rows := []customization.Settings{}
	if found {
		rows = append(rows, settings)
	}
	applog.Debug(r.Context(), "customization settings served", "user", uid, "found", found)
	writeJSON(w, r, http.StatusOK, rows)
}

type subscriptionRow struct {
	UserID string `json:"user_id"`
	customization.SubscriptionInfo
}

// UserSubscriptions lists the caller's subscription record.
func UserSubscriptions(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		writeError(w, http.StatusServiceUnavailable, "database not available")
		return
	}
	uid, ok := ownerFilter(w, r)
	if !ok {
		return
	}

	sub, found, err := loadSubscription(r.Context(), uid)
	if err != nil {
		applog.Error(r.Context(), "failed to load subscription", "user", uid, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load subscription")
		return
	}

	rows := []subscriptionRow{}
	if found {
		rows = append(rows, subscriptionRow{UserID: uid, SubscriptionInfo: sub.Info(nowFunc())})
	}
	writeJSON(w, r, http.StatusOK, rows)
}
