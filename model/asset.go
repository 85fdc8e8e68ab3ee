package model

import "time"

// LifecycleStatus is the explicit state behind the soft-delete columns.
type LifecycleStatus int

const (
	StatusActive LifecycleStatus = iota
	StatusTrashed
	// StatusPurged is terminal: the row no longer exists.
	StatusPurged
)

type Asset struct {
	ID uint64 `gorm:"primaryKey" json:"id,omitempty"`

	UserID uint64 `gorm:"column:user_id;not null;index" json:"user_id,omitempty"`
	User   User   `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"-"`

	FolderID *uint64 `gorm:"column:folder_id;index" json:"folder_id,omitempty"`
	Folder   *Folder `gorm:"foreignKey:FolderID;references:ID" json:"-"`

	Name string `gorm:"column:name;size:255;not null" json:"name,omitempty"`

	Hash string `gorm:"column:hash;size:64;not null;index" json:"hash,omitempty"`

	// Size is the size declared at upload time; the quota ledger charges
	// this per asset even when the content is shared.
	Size int64 `gorm:"column:size;not null;default:0" json:"size,omitempty"`

	IsPublic      bool       `gorm:"column:is_public;not null;default:false" json:"is_public,omitempty"`
	ShareID       *string    `gorm:"column:share_id;size:64;uniqueIndex" json:"share_id,omitempty"`
	ShareExpireAt *time.Time `gorm:"column:share_expire_at" json:"share_expire_at,omitempty"`
	DownloadCount int64      `gorm:"column:download_count;not null;default:0" json:"download_count,omitempty"`

	IsDeleted bool       `gorm:"column:is_deleted;not null;default:false" json:"is_deleted,omitempty"`
	DeletedAt *time.Time `gorm:"column:deleted_at;index" json:"deleted_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Asset) TableName() string {
	return "asset"
}

// Status reports the lifecycle state of the asset row.
func (a *Asset) Status() LifecycleStatus {
	if a.IsDeleted {
		return StatusTrashed
	}
	return StatusActive
}
