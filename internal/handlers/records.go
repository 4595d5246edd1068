package handlers

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"idlely/internal/customization"
	applog "idlely/internal/log"
	"idlely/models"
)

var (
	errKeyUnknown  = errors.New("unknown reference key")
	errKeyRedeemed = errors.New("reference key already redeemed")
)

// loadSubscription returns the user's subscription, marking it expired once
// its end date has passed. found is false when no record exists.
func loadSubscription(ctx context.Context, uid string) (sub models.Subscription, found bool, err error) {
	err = database.WithContext(ctx).Where("user_uid = ?", uid).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Subscription{}, false, nil
	}
	if err != nil {
		return models.Subscription{}, false, err
	}

	if sub.Lapsed(nowFunc()) {
		applog.Info(ctx, "subscription lapsed", "user", uid, "expiresAt", sub.ExpiresAt)
		sub.Status = customization.StatusExpired
		if err := database.WithContext(ctx).Model(&sub).Update("status", customization.StatusExpired).Error; err != nil {
			applog.Warn(ctx, "failed to persist lapsed subscription", "user", uid, "error", err)
		}
	}
	return sub, true, nil
}

func entitled(ctx context.Context, uid string) (bool, error) {
	sub, found, err := loadSubscription(ctx, uid)
	if err != nil || !found {
		return false, err
	}
	info := sub.Info(nowFunc())
	return info.Entitled(), nil
}

// loadSettings returns the stored settings with entitlement applied.
func loadSettings(ctx context.Context, uid string) (settings customization.Settings, found bool, err error) {
	var record models.CustomizationRecord
	err = database.WithContext(ctx).Where("user_uid = ?", uid).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return customization.Settings{}, false, nil
	}
	if err != nil {
		return customization.Settings{}, false, err
	}

	premium, err := entitled(ctx, uid)
	if err != nil {
		return customization.Settings{}, false, err
	}
	settings, err = record.Settings(premium)
	if err != nil {
		return customization.Settings{}, false, err
	}
	return settings, true, nil
}

// saveSettings replaces the user's settings record, creating it when missing.
func saveSettings(ctx context.Context, uid string, settings customization.Settings) error {
	next, err := models.NewCustomizationRecord(uid, settings)
	if err != nil {
		return err
	}

	return database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.CustomizationRecord
		err := tx.Where("user_uid = ?", uid).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&next).Error
		case err != nil:
			return err
		}
		next.Model = existing.Model
		return tx.Save(&next).Error
	})
}

// redeemKey marks code as used by uid and grants premium. A key with a
// duration extends an unexpired premium period instead of restarting it.
func redeemKey(ctx context.Context, uid, code string) (models.Subscription, error) {
	var granted models.Subscription
	err := database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var key models.ActivationKey
		if err := tx.Where("code = ?", models.NormalizeKey(code)).First(&key).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errKeyUnknown
			}
			return err
		}
		if key.Redeemed() {
			return errKeyRedeemed
		}

		now := nowFunc().UTC()
		claimed := tx.Model(&models.ActivationKey{}).
			Where("id = ? AND redeemed_by IS NULL", key.ID).
			Updates(map[string]any{"redeemed_by": uid, "redeemed_at": now})
		if claimed.Error != nil {
			return claimed.Error
		}
		if claimed.RowsAffected == 0 {
			return errKeyRedeemed
		}

		var sub models.Subscription
		err := tx.Where("user_uid = ?", uid).First(&sub).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		start := now
		if sub.Tier == customization.TierPremium && sub.Status == customization.StatusActive && sub.ExpiresAt != nil && sub.ExpiresAt.After(now) {
			start = *sub.ExpiresAt
		}
		unlimited := sub.Tier == customization.TierPremium && sub.Status == customization.StatusActive && sub.ExpiresAt == nil && sub.ID != 0

		sub.UserUID = uid
		sub.Tier = customization.TierPremium
		sub.Status = customization.StatusActive
		sub.ReferenceKey = key.Code
		sub.ActivatedAt = &now
		if !unlimited {
			sub.ExpiresAt = key.ExpiryFrom(start)
		}
		if err := tx.Save(&sub).Error; err != nil {
			return err
		}
		granted = sub
		return nil
	})
	return granted, err
}
