package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// ActivationKey is a premium reference key. A key with DurationDays of zero
// grants premium without expiry.
type ActivationKey struct {
	gorm.Model
	Code         string `gorm:"type:varchar(64);uniqueIndex;not null"`
	DurationDays int    `gorm:"not null;default:0"`
	Note         string
	RedeemedBy   *string `gorm:"type:varchar(36)"`
	RedeemedAt   *time.Time
}

// NormalizeKey canonicalizes a reference key as typed by a user.
func NormalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// Redeemed reports whether the key has been used.
func (k *ActivationKey) Redeemed() bool {
	return k.RedeemedBy != nil
}

// ExpiryFrom returns when premium granted at from ends, or nil for no expiry.
func (k *ActivationKey) ExpiryFrom(from time.Time) *time.Time {
	if k.DurationDays <= 0 {
		return nil
	}
	expiry := from.AddDate(0, 0, k.DurationDays)
	return &expiry
}
