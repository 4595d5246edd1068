package handlers

import (
	"errors"
	"net/http"
	"strings"

	applog "idlely/internal/log"
)

type tokenRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Token exchanges email and password for a session.
func Token(w http.ResponseWriter, r *http.Request) {
	applog.Debug(r.Context(), "handling token request", "method", r.Method)

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if sessionManager == nil || database == nil {
		applog.Debug(r.Context(), "authentication dependencies unavailable", "hasSession", sessionManager != nil, "hasDatabase", database != nil)
		writeError(w, http.StatusServiceUnavailable, "authentication not available")
		return
	}

	var body tokenRequest
	if err := decodeJSON(r, &body); err != nil {
		applog.Debug(r.Context(), "failed to decode token request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	body.Email = strings.TrimSpace(body.Email)

	if fields := validateRequest(body); fields != nil {
		applog.Debug(r.Context(), "token request missing credentials", "fields", fields)
		writeError(w, http.StatusBadRequest, "Email and password are required.")
		return
	}

	user, err := authenticate(r, body.Email, body.Password)
	if err != nil {
		if errors.Is(err, errInvalidCredentials) {
			applog.Debug(r.Context(), "authentication failed", "email", strings.ToLower(body.Email))
			writeError(w, http.StatusBadRequest, "Invalid email or password. Please try again.")
			return
		}
		applog.Error(r.Context(), "failed to authenticate", "error", err)
		writeError(w, http.StatusInternalServerError, "We were unable to sign you in. Please try again.")
		return
	}

	applog.Debug(r.Context(), "authentication succeeded", "uid", user.UID)
	issueSession(w, r, http.StatusOK, user)
}
