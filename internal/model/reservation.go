package model

import (
	"time"

	"chair-reservation-backend/internal/interval"
)

// Reservation is a time-bounded claim on a chair. It is never edited in place.
type Reservation struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	ChairID   int64     `gorm:"not null;index:idx_reservations_chair_start,priority:1" json:"chair_id"`
	UserID    string    `gorm:"size:64;not null;index" json:"user_id"`
	UserName  string    `gorm:"size:128;not null" json:"user_name"`
	StartAt   time.Time `gorm:"not null;index:idx_reservations_chair_start,priority:2" json:"start_time"`
	EndAt     time.Time `gorm:"not null;index" json:"end_time"`
	PartySize int       `gorm:"not null;default:1" json:"people"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

// Interval returns the reservation's [StartAt, EndAt) range.
func (r Reservation) Interval() interval.Interval {
	return interval.Interval{Start: r.StartAt, End: r.EndAt}
}

// Expired reports whether the reservation ended at or before now.
func (r Reservation) Expired(now time.Time) bool {
	return !r.EndAt.After(now)
}
