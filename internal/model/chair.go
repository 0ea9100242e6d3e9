package model

import "time"

// Chair is one unit of the fixed, configured pool.
type Chair struct {
	ID          int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	DisplayName string    `gorm:"size:128;not null" json:"name"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}
