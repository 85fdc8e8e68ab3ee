package model

import "time"

type RateWindow struct {
	ID uint64 `gorm:"primaryKey"`

	UserID uint64 `gorm:"column:user_id;not null;uniqueIndex:uk_rate_user_window,priority:1"`

	// WindowStart is aligned to the configured window length.
	WindowStart time.Time `gorm:"column:window_start;not null;uniqueIndex:uk_rate_user_window,priority:2"`

	Count int `gorm:"column:count;not null;default:0"`
}

// TableName returns the database table name.
func (RateWindow) TableName() string {
	return "rate_window"
}
