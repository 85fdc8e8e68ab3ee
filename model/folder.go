package model

import "time"

type Folder struct {
	ID uint64 `gorm:"primaryKey" json:"id,omitempty"`

	UserID uint64 `gorm:"column:user_id;not null;index:idx_folder_user_parent_name,priority:1" json:"user_id,omitempty"`
	User   User   `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"-"`

	ParentID *uint64 `gorm:"column:parent_id;index;index:idx_folder_user_parent_name,priority:2" json:"parent_id,omitempty"`
	Parent   *Folder `gorm:"foreignKey:ParentID;references:ID" json:"-"`

	Name string `gorm:"column:name;size:255;not null;index:idx_folder_user_parent_name,priority:3" json:"name,omitempty"`

	IsDeleted bool       `gorm:"column:is_deleted;not null;default:false" json:"is_deleted,omitempty"`
	DeletedAt *time.Time `gorm:"column:deleted_at;index" json:"deleted_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Folder) TableName() string {
	return "folder"
}

// Status reports the lifecycle state of the folder row.
func (f *Folder) Status() LifecycleStatus {
	if f.IsDeleted {
		return StatusTrashed
	}
	return StatusActive
}

/*
ParentID 为空表示根目录 所以使用指针
同名约束在业务层做 回收站可以容纳多个同名条目 索引只用于加速查找
*/
