package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents an account that can sign in and own customization settings.
type User struct {
	gorm.Model
	UID          string `gorm:"type:varchar(36);uniqueIndex;not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Name         string
}

// BeforeCreate assigns the public identifier clients address the user by.
func (u *User) BeforeCreate(*gorm.DB) error {
	if u.UID == "" {
		u.UID = uuid.NewString()
	}
	return nil
}
