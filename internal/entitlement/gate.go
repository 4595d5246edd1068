// Package entitlement decides whether the current identity may use the
// advanced customization tier, and brokers premium activation.
package entitlement

import (
	"context"
	"errors"
	"strings"

	"idlely/internal/customization"
	"idlely/internal/identity"
	applog "idlely/internal/log"
	"idlely/internal/remote"
)

// User-facing activation messages.
const (
	MsgSignInRequired = "Please sign in to activate premium access"
	MsgKeyRequired    = "Please enter a reference key"
	MsgActivated      = "Premium activated successfully!"
	MsgFailed         = "Failed to activate premium"
	MsgNetworkError   = "Network error"
)

// Backend is the part of the remote client the gate needs.
type Backend interface {
	FetchSubscription(ctx context.Context, userID string) (customization.SubscriptionInfo, error)
	ActivatePremium(ctx context.Context, userID, referenceKey string) (remote.Activation, error)
}

// Result is the outcome of an activation attempt.
type Result struct {
	Success bool
	Message string
}

// Gate resolves subscriptions and forwards activation requests.
type Gate struct {
	backend Backend
}

// New returns a Gate backed by backend.
func New(backend Backend) *Gate {
	return &Gate{backend: backend}
}

// Resolve returns the subscription for who, or nil when there is none or it
// cannot be determined. Guests never have a subscription.
func (g *Gate) Resolve(ctx context.Context, who identity.Identity) *customization.SubscriptionInfo {
	if !who.SignedIn() || g.backend == nil {
		return nil
	}

	info, err := g.backend.FetchSubscription(ctx, who.ID)
	if errors.Is(err, remote.ErrNotFound) {
		applog.Debug(ctx, "no subscription on record", "user", who.ID)
		return nil
	}
	if err != nil {
		applog.Error(ctx, "failed to resolve subscription", "user", who.ID, "error", err)
		return nil
	}
	return &info
}

// Entitled reports whether info unlocks the advanced tier.
func Entitled(info *customization.SubscriptionInfo) bool {
	return info.Entitled()
}

// Activate redeems key for who. Failures are reported in the Result.
func (g *Gate) Activate(ctx context.Context, who identity.Identity, key string) Result {
	if !who.SignedIn() {
		return Result{Message: MsgSignInRequired}
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return Result{Message: MsgKeyRequired}
	}
	if g.backend == nil {
		return Result{Message: MsgFailed}
	}

	resp, err := g.backend.ActivatePremium(ctx, who.ID, key)
	if err != nil {
		applog.Error(ctx, "premium activation failed", "user", who.ID, "error", err)
		var statusErr *remote.StatusError
		if errors.As(err, &statusErr) {
			return Result{Message: MsgFailed}
		}
		return Result{Message: MsgNetworkError}
	}
	if !resp.Success {
		applog.Info(ctx, "premium activation rejected", "user", who.ID, "reason", resp.Message)
		return Result{Message: firstNonEmpty(resp.Message, MsgFailed)}
	}

	applog.Info(ctx, "premium activated", "user", who.ID)
	return Result{Success: true, Message: firstNonEmpty(resp.Message, MsgActivated)}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
