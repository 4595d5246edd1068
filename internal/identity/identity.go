// Package identity models who owns the customization settings: a signed-in
// account, or a guest synthesized on this device.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	applog "idlely/internal/log"
)

const guestPrefix = "guest-"

// Identity is the current owner of the settings.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Guest bool   `json:"isGuest"`
}

// SignedIn reports whether the identity is a non-guest account that the
// remote store recognizes.
func (i Identity) SignedIn() bool {
	return strings.TrimSpace(i.ID) != "" && !i.Guest
}

// Account returns a signed-in identity.
func Account(id, email string) Identity {
	return Identity{ID: id, Email: email}
}

// KV is the slice of the local cache the guest store needs.
type KV interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
	Delete(key string) error
}

// GuestKey is where the guest identity is cached.
const GuestKey = "idlely_guest_user"

// NewGuest synthesizes a fresh guest identity.
func NewGuest() (Identity, error) {
	id, err := gonanoid.New()
	if err != nil {
		return Identity{}, fmt.Errorf("generate guest id: %w", err)
	}
	return Identity{
		ID:    guestPrefix + id,
		Email: "guest@local",
		Guest: true,
	}, nil
}

// Guest restores the cached guest identity or synthesizes and caches a new one.
// A corrupt cache entry is logged and replaced.
func Guest(ctx context.Context, kv KV) (Identity, error) {
	raw, found, err := kv.Get(GuestKey)
	if err != nil {
		return Identity{}, err
	}
	if found {
		var cached Identity
		if err := json.Unmarshal(raw, &cached); err == nil && cached.Guest && cached.ID != "" {
			applog.Debug(ctx, "restored guest identity from cache", "id", cached.ID)
			return cached, nil
		}
		applog.Warn(ctx, "discarding unreadable guest identity")
	}

	guest, err := NewGuest()
	if err != nil {
		return Identity{}, err
	}
	data, err := json.Marshal(guest)
	if err != nil {
		return Identity{}, fmt.Errorf("marshal guest: %w", err)
	}
	if err := kv.Put(GuestKey, data); err != nil {
		return Identity{}, err
	}
	applog.Debug(ctx, "created guest identity", "id", guest.ID)
	return guest, nil
}

// ForgetGuest clears the cached guest identity.
func ForgetGuest(kv KV) error {
	return kv.Delete(GuestKey)
}

// SessionKey is where a signed-in session is cached between runs.
const SessionKey = "idlely_session"

// Session is a signed-in identity together with the bearer token the backend
// issued for it.
type Session struct {
	User        Identity  `json:"user"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Valid reports whether the session can still be presented to the backend.
func (s Session) Valid(now time.Time) bool {
	if s.AccessToken == "" || !s.User.SignedIn() {
		return false
	}
	return s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt)
}

// SaveSession caches the session.
func SaveSession(kv KV, session Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return kv.Put(SessionKey, data)
}

// RestoreSession returns the cached session when one exists and has not
// expired. Expired or unreadable entries are dropped.
func RestoreSession(ctx context.Context, kv KV) (Session, bool, error) {
	raw, found, err := kv.Get(SessionKey)
	if err != nil || !found {
		return Session{}, false, err
	}
	var session Session
	if err := json.Unmarshal(raw, &session); err != nil || !session.Valid(time.Now()) {
		applog.Info(ctx, "dropping stale session")
		return Session{}, false, kv.Delete(SessionKey)
	}
	return session, true, nil
}

// ForgetSession clears the cached session.
func ForgetSession(kv KV) error {
	return kv.Delete(SessionKey)
}
