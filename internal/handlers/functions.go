package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"idlely/internal/customization"
	"idlely/internal/entitlement"
	applog "idlely/internal/log"
	"idlely/internal/realtime"
)

const (
	msgInvalidKey      = "Invalid reference key"
	msgKeyAlreadyUsed  = "This reference key has already been used"
	msgTooManyAttempts = "Too many activation attempts. Please try again later."
)

type updateCustomizationRequest struct {
	UserID   string          `json:"userId"`
	Settings json.RawMessage `json:"settings"`
}

// functionCaller checks that the session user is the one the body names.
func functionCaller(w http.ResponseWriter, r *http.Request, bodyUserID string) (string, bool) {
	uid, ok := currentUserUID(r)
	if !ok {
		writeFunctionError(w, r, http.StatusUnauthorized, entitlement.MsgSignInRequired, nil)
		return "", false
	}
	if bodyUserID != "" && bodyUserID != uid {
		applog.Debug(r.Context(), "refusing cross-user function call", "user", uid, "requested", bodyUserID, "path", r.URL.Path)
		writeFunctionError(w, r, http.StatusForbidden, "permission denied", nil)
		return "", false
	}
	return uid, true
}

// UpdateCustomization replaces the caller's settings record and notifies the
// caller's other open sessions.
func UpdateCustomization(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if database == nil {
		writeFunctionError(w, r, http.StatusServiceUnavailable, "database not available", nil)
		return
	}

	var body updateCustomizationRequest
	if err := decodeJSON(r, &body); err != nil {
		applog.Debug(r.Context(), "failed to decode update request", "error", err)
		writeFunctionError(w, r, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	uid, ok := functionCaller(w, r, body.UserID)
	if !ok {
		return
	}
	if len(body.Settings) == 0 || string(body.Settings) == "null" {
		writeFunctionError(w, r, http.StatusBadRequest, "settings are required", nil)
		return
	}

	settings := customization.Defaults()
	if err := json.Unmarshal(body.Settings, &settings); err != nil {
		applog.Debug(r.Context(), "failed to decode settings", "user", uid, "error", err)
		writeFunctionError(w, r, http.StatusBadRequest, "invalid settings", nil)
		return
	}
	if err := settings.Validate(); err != nil {
		var verr *customization.ValidationError
		if errors.As(err, &verr) {
			writeFunctionError(w, r, http.StatusUnprocessableEntity, "invalid settings", verr.Fields)
			return
		}
		writeFunctionError(w, r, http.StatusUnprocessableEntity, err.Error(), nil)
		return
	}

	if err := saveSettings(r.Context(), uid, settings); err != nil {
		applog.Error(r.Context(), "failed to save customization settings", "user", uid, "error", err)
		writeFunctionError(w, r, http.StatusInternalServerError, "failed to save settings", nil)
		return
	}

	premium, err := entitled(r.Context(), uid)
	if err != nil {
		applog.Warn(r.Context(), "failed to resolve entitlement after save", "user", uid, "error", err)
	}
	saved := settings.WithOwner(uid, premium)

	if hub != nil {
		delivered := hub.Notify(r.Context(), uid, realtime.EventSettingsUpdated, saved)
		applog.Debug(r.Context(), "settings change broadcast", "user", uid, "listeners", delivered)
	}

	applog.Info(r.Context(), "customization settings saved", "user", uid)
	writeFunctionSuccess(w, r, saved)
}

type activatePremiumRequest struct {
	ReferenceKey string `json:"referenceKey"`
	UserID       string `json:"userId"`
}

type activationData struct {
	Message   string `json:"message"`
	Tier      string `json:"subscription_tier"`
	Status    string `json:"subscription_status"`
	ExpiresAt *int64 `json:"expires_at,omitempty"`
}

// ActivatePremium redeems a reference key for the caller.
func ActivatePremium(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if database == nil {
		writeFunctionError(w, r, http.StatusServiceUnavailable, entitlement.MsgFailed, nil)
		return
	}

	var body activatePremiumRequest
	if err := decodeJSON(r, &body); err != nil {
		writeFunctionError(w, r, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	uid, ok := functionCaller(w, r, body.UserID)
	if !ok {
		return
	}
	if body.ReferenceKey == "" {
		writeFunctionError(w, r, http.StatusBadRequest, entitlement.MsgKeyRequired, nil)
		return
	}

	if activationLimiter != nil && !activationLimiter.Allow(uid) {
		applog.Warn(r.Context(), "activation throttled", "user", uid)
		writeFunctionError(w, r, http.StatusTooManyRequests, msgTooManyAttempts, nil)
		return
	}

	sub, err := redeemKey(r.Context(), uid, body.ReferenceKey)
	switch {
	case errors.Is(err, errKeyUnknown):
		applog.Debug(r.Context(), "activation with unknown key", "user", uid)
		writeFunctionError(w, r, http.StatusBadRequest, msgInvalidKey, nil)
		return
	case errors.Is(err, errKeyRedeemed):
		applog.Debug(r.Context(), "activation with redeemed key", "user", uid)
		writeFunctionError(w, r, http.StatusConflict, msgKeyAlreadyUsed, nil)
		return
	case err != nil:
		applog.Error(r.Context(), "failed to redeem reference key", "user", uid, "error", err)
		writeFunctionError(w, r, http.StatusInternalServerError, entitlement.MsgFailed, nil)
		return
	}

	data := activationData{
		Message: entitlement.MsgActivated,
		Tier:    sub.Tier,
		Status:  sub.Status,
	}
	if sub.ExpiresAt != nil {
		expires := sub.ExpiresAt.Unix()
		data.ExpiresAt = &expires
	}

	applog.Info(r.Context(), "premium activated", "user", uid, "expiresAt", sub.ExpiresAt)
	writeFunctionSuccess(w, r, data)
}
