package handlers

import (
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	applog "idlely/internal/log"
)

type signupRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Name     string `json:"name" validate:"max=128"`
}

// Signup registers an account and returns a session for it.
func Signup(w http.ResponseWriter, r *http.Request) {
	applog.Debug(r.Context(), "handling signup request", "method", r.Method)

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if sessionManager == nil || database == nil {
		applog.Debug(r.Context(), "registration dependencies unavailable", "hasSession", sessionManager != nil, "hasDatabase", database != nil)
		writeError(w, http.StatusServiceUnavailable, "registration not available")
		return
	}

	var body signupRequest
	if err := decodeJSON(r, &body); err != nil {
		applog.Debug(r.Context(), "failed to decode signup request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	body.Email = strings.TrimSpace(body.Email)

	if fields := validateRequest(body); fields != nil {
		applog.Debug(r.Context(), "signup request rejected", "fields", fields)
		writeJSON(w, r, http.StatusUnprocessableEntity, errorResponse{Message: "Please check the highlighted fields.", Fields: fields})
		return
	}

	if _, err := findUserByEmail(r, body.Email); err == nil {
		applog.Debug(r.Context(), "signup attempted with existing email", "email", strings.ToLower(body.Email))
		writeError(w, http.StatusConflict, "An account with that email already exists.")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		applog.Error(r.Context(), "failed to check existing user", "error", err)
		writeError(w, http.StatusInternalServerError, "We couldn't create your account right now. Please try again.")
		return
	}

	user, err := createUser(r, body.Email, body.Name, body.Password)
	if err != nil {
		applog.Error(r.Context(), "failed to create user", "error", err)
		writeError(w, http.StatusInternalServerError, "We couldn't create your account right now. Please try again.")
		return
	}

	applog.Debug(r.Context(), "user created via signup", "userID", user.ID, "uid", user.UID)

	if err := establishSession(r, user); err != nil {
		applog.Error(r.Context(), "failed to establish session after signup", "error", err)
		writeError(w, http.StatusInternalServerError, "We couldn't sign you in after creating your account. Please try again.")
		return
	}

	issueSession(w, r, http.StatusCreated, user)
}
