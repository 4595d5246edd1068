package mock

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"idlely/internal/customization"
	"idlely/internal/db"
	applog "idlely/internal/log"
	"idlely/models"
)

// Demo credentials and reference keys seeded into the mock database.
const (
	DemoEmail    = "demo@idlely.app"
	DemoPassword = "idlely"
	DemoUID      = "00000000-0000-4000-8000-000000000001"
)

// DemoKeys are unredeemed reference keys: a 30 day key and a lifetime key.
var DemoKeys = []string{"IDLELY-DEMO-30D", "IDLELY-DEMO-LIFETIME"}

// New returns an in-memory sqlite database seeded with a demo account.
func New(ctx context.Context) (*gorm.DB, error) {
	applog.Debug(ctx, "initialising mock database")

	database, err := gorm.Open(sqlite.Open("file:idlely-mock?mode=memory&cache=shared"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		PrepareStmt:                              true,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(database); err != nil {
		return nil, err
	}

	if err := Seed(ctx, database); err != nil {
		return nil, err
	}

	applog.Debug(ctx, "mock database ready")
	return database, nil
}

// Seed adds the demo account, its settings and the demo keys. It is a no-op
// when the demo account already exists.
func Seed(ctx context.Context, database *gorm.DB) error {
	var existing int64
	if err := database.WithContext(ctx).Model(&models.User{}).Where("uid = ?", DemoUID).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		applog.Debug(ctx, "mock database already seeded")
		return nil
	}

	applog.Debug(ctx, "seeding mock database")

	password, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := &models.User{
		UID:          DemoUID,
		Name:         "Demo Idler",
		Email:        DemoEmail,
		PasswordHash: string(password),
	}
	if err := database.WithContext(ctx).Create(user).Error; err != nil {
		return err
	}

	settings := customization.Defaults()
	settings.PrimaryColor = "#0891b2"
	settings.SecondaryColor = "#0ea5e9"
	settings.AccentColor = "#06b6d4"
	settings.PresetThemeName = "Ocean Breeze"
	record, err := models.NewCustomizationRecord(user.UID, settings)
	if err != nil {
		return err
	}
	if err := database.WithContext(ctx).Create(&record).Error; err != nil {
		return err
	}

	subscription := models.Subscription{
		UserUID: user.UID,
		Tier:    customization.TierFree,
		Status:  customization.StatusInactive,
	}
	if err := database.WithContext(ctx).Create(&subscription).Error; err != nil {
		return err
	}

	keys := []models.ActivationKey{
		{Code: DemoKeys[0], DurationDays: 30, Note: "demo monthly"},
		{Code: DemoKeys[1], Note: "demo lifetime"},
	}
	if err := database.WithContext(ctx).Create(&keys).Error; err != nil {
		return err
	}

	applog.Debug(ctx, "mock database seeded")
	return nil
}
