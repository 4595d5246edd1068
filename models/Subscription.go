package models

import (
	"time"

	"gorm.io/gorm"

	"idlely/internal/customization"
)

// Subscription is the entitlement record for a user, one per user.
type Subscription struct {
	gorm.Model
	UserUID      string `gorm:"type:varchar(36);uniqueIndex;not null"`
	Tier         string `gorm:"type:varchar(16);not null;default:free"`
	Status       string `gorm:"type:varchar(16);not null;default:inactive"`
	ReferenceKey string `gorm:"type:varchar(64)"`
	ActivatedAt  *time.Time
	ExpiresAt    *time.Time
}

// Lapsed reports whether an active subscription has passed its expiry.
func (s *Subscription) Lapsed(now time.Time) bool {
	return s.Status == customization.StatusActive && s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

// Info converts the record to the wire form, reporting lapsed subscriptions as expired.
func (s *Subscription) Info(now time.Time) customization.SubscriptionInfo {
	status := s.Status
	if s.Lapsed(now) {
		status = customization.StatusExpired
	}
	return customization.SubscriptionInfo{
		Tier:         s.Tier,
		Status:       status,
		ReferenceKey: s.ReferenceKey,
		ActivatedAt:  s.ActivatedAt,
		ExpiresAt:    s.ExpiresAt,
	}
}
