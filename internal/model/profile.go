package model

import "time"

// Profile is a registered account.
type Profile struct {
	ID           string    `gorm:"primaryKey;size:36"`
	Email        string    `gorm:"uniqueIndex;size:256;not null"`
	Name         string    `gorm:"size:128;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}
