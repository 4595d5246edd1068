package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"idlely/internal/customization"
	applog "idlely/internal/log"
	"idlely/internal/ratelimit"
	"idlely/internal/realtime"
	"idlely/models"
)

const (
	sessionAuthenticatedKey = "auth:authenticated"
	sessionUserIDKey        = "auth:user:id"
	sessionUserUIDKey       = "auth:user:uid"
	sessionUserEmailKey     = "auth:user:email"
	sessionUserNameKey      = "auth:user:name"
)

var errInvalidCredentials = errors.New("invalid email or password")

var (
	sessionManager    *scs.SessionManager
	database          *gorm.DB
	hub               *realtime.Hub
	activationLimiter *ratelimit.Keyed
	projectAPIKey     string

	nowFunc = time.Now
)

// Configure installs the shared dependencies used by the HTTP handlers.
func Configure(sm *scs.SessionManager, db *gorm.DB) {
	sessionManager = sm
	database = db
}

// ConfigureRealtime installs the hub that fans settings changes out to listeners.
func ConfigureRealtime(h *realtime.Hub) {
	hub = h
}

// ConfigureActivationLimiter installs the per-account throttle for premium activation.
func ConfigureActivationLimiter(l *ratelimit.Keyed) {
	activationLimiter = l
}

// ConfigureAPIKey sets the project key every API request must present.
func ConfigureAPIKey(key string) {
	projectAPIKey = strings.TrimSpace(key)
}

// createUser stores a new account together with its default settings and a
// free subscription.
func createUser(r *http.Request, email, name, password string) (*models.User, error) {
	if database == nil {
		return nil, gorm.ErrInvalidDB
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hashed),
	}

	err = database.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		record, err := models.NewCustomizationRecord(user.UID, customization.Defaults())
		if err != nil {
			return err
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		return tx.Create(&models.Subscription{
			UserUID: user.UID,
			Tier:    customization.TierFree,
			Status:  customization.StatusInactive,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

func findUserByEmail(r *http.Request, email string) (*models.User, error) {
	if database == nil {
		return nil, gorm.ErrInvalidDB
	}

	user := &models.User{}
	err := database.WithContext(r.Context()).Where("lower(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(user).Error
	if err != nil {
		return nil, err
	}
	return user, nil
}

// authenticate verifies the provided credentials and populates the session if successful.
func authenticate(r *http.Request, email, password string) (*models.User, error) {
	user, err := findUserByEmail(r, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}

	if err := establishSession(r, user); err != nil {
		return nil, err
	}
	return user, nil
}

func establishSession(r *http.Request, user *models.User) error {
	if sessionManager == nil {
		return errors.New("session manager not configured")
	}
	if err := sessionManager.RenewToken(r.Context()); err != nil {
		return err
	}
	sessionManager.Put(r.Context(), sessionAuthenticatedKey, true)
	sessionManager.Put(r.Context(), sessionUserIDKey, int(user.ID))
	sessionManager.Put(r.Context(), sessionUserUIDKey, user.UID)
	sessionManager.Put(r.Context(), sessionUserEmailKey, user.Email)
	sessionManager.Put(r.Context(), sessionUserNameKey, user.Name)
	return nil
}

type sessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sessionResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresAt   int64       `json:"expires_at"`
	User        sessionUser `json:"user"`
}

// issueSession commits the session so its token can be handed to clients that
// do not keep cookies.
func issueSession(w http.ResponseWriter, r *http.Request, status int, user *models.User) {
	token, expiry, err := sessionManager.Commit(r.Context())
	if err != nil {
		applog.Error(r.Context(), "failed to commit session", "error", err)
		writeError(w, http.StatusInternalServerError, "We were unable to sign you in. Please try again.")
		return
	}
	writeJSON(w, r, status, sessionResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiry.Unix(),
		User:        sessionUser{ID: user.UID, Email: user.Email, Name: user.Name},
	})
}

// RequireAuthentication rejects requests without an active session.
func RequireAuthentication(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ActiveSession(r) {
			applog.Debug(r.Context(), "rejecting unauthenticated request", "path", r.URL.Path)
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		uid, _ := currentUserUID(r)
		next.ServeHTTP(w, r.WithContext(applog.With(r.Context(), "user", uid)))
	})
}

// Logout destroys the current session.
func Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if sessionManager != nil {
		if err := sessionManager.Destroy(r.Context()); err != nil {
			applog.Error(r.Context(), "failed to destroy session", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to sign out")
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// ActiveSession returns true when the current request has an authenticated session.
func ActiveSession(r *http.Request) bool {
	if sessionManager == nil {
		return false
	}
	return sessionManager.GetBool(r.Context(), sessionAuthenticatedKey) && sessionManager.GetString(r.Context(), sessionUserUIDKey) != ""
}

// currentUserUID returns the public identifier of the signed-in user.
func currentUserUID(r *http.Request) (string, bool) {
	if sessionManager == nil {
		return "", false
	}
	uid := sessionManager.GetString(r.Context(), sessionUserUIDKey)
	return uid, uid != ""
}
