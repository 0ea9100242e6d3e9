package model

import (
	"time"
)

// OccupancyOpen is the live session of an occupied chair (hot table).
// A row exists iff the chair is occupied.
type OccupancyOpen struct {
	ChairID   int64     `gorm:"primaryKey;autoIncrement:false"`
	UserID    string    `gorm:"size:64;not null"`
	StartedAt time.Time `gorm:"not null"`
}

// OccupancyHistory is a completed, billed session (cold table).
type OccupancyHistory struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	ChairID     int64     `gorm:"not null;index"`
	UserID      string    `gorm:"size:64;not null;index"`
	PeriodStart time.Time `gorm:"not null"`
	PeriodEnd   time.Time `gorm:"not null;index"`
	Minutes     int64     `gorm:"not null"`
	Fee         int64     `gorm:"not null"`
}
