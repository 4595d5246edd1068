package customization

import "time"

// Subscription tiers.
const (
	TierFree    = "free"
	TierPremium = "premium"
)

// Subscription statuses.
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusCancelled = "cancelled"
	StatusExpired   = "expired"
)

// SubscriptionInfo is the subscription record the backend keeps per user.
type SubscriptionInfo struct {
	Tier         string     `json:"subscription_tier"`
	Status       string     `json:"subscription_status"`
	ReferenceKey string     `json:"reference_key,omitempty"`
	ActivatedAt  *time.Time `json:"activated_at,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// Entitled reports whether the subscription unlocks the advanced tier. Any
// combination other than an active premium subscription counts as free.
func (s *SubscriptionInfo) Entitled() bool {
	if s == nil {
		return false
	}
	return s.Tier == TierPremium && s.Status == StatusActive
}
