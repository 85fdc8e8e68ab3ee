package model

import "time"

type Quota struct {
	ID uint64 `gorm:"primaryKey"`

	UserID uint64 `gorm:"column:user_id;not null;uniqueIndex"`
	User   User   `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`

	// UsedBytes is the sum of declared sizes of the user's non-purged assets.
	UsedBytes  int64 `gorm:"column:used_bytes;not null;default:0"`
	LimitBytes int64 `gorm:"column:limit_bytes;not null"`

	// RateLimit is requests allowed per rate window.
	RateLimit int `gorm:"column:rate_limit;not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the database table name.
func (Quota) TableName() string {
	return "quota"
}
