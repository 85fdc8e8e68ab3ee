package model

import "time"

type ContentObject struct {
	ID uint64 `gorm:"primaryKey"`

	Hash string `gorm:"column:hash;size:64;uniqueIndex;not null"`

	BucketName string `gorm:"column:bucket_name;size:64;not null"`
	ObjectName string `gorm:"column:object_name;size:512;not null"`

	Size int64 `gorm:"column:size;not null"`

	RefCount int64 `gorm:"column:ref_count;not null;default:1"`

	CreatedAt time.Time
}

// TableName returns the database table name.
func (ContentObject) TableName() string {
	return "content_object"
}
