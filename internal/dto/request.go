package dto

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username      string `json:"username" binding:"required"`
	FirstPassword string `json:"first-password" binding:"required"`
	LastPassword  string `json:"second-password" binding:"required"`
	Email         string `json:"email" binding:"required"`
}

type UploadInitRequest struct {
	FileName string  `json:"file_name" binding:"required"`
	Size     int64   `json:"size" binding:"gte=0"`
	Hash     string  `json:"hash" binding:"required"`
	FolderID *uint64 `json:"folder_id"`
}

type UploadConfirmRequest struct {
	FileName string  `json:"file_name" binding:"required"`
	Size     int64   `json:"size" binding:"gte=0"`
	Hash     string  `json:"hash" binding:"required"`
	FolderID *uint64 `json:"folder_id"`
}

type FolderCreateRequest struct {
	Name     string  `json:"name" binding:"required"`
	ParentID *uint64 `json:"parent_id"`
}

type FolderRenameRequest struct {
	FolderID uint64 `json:"folder_id" binding:"required"`
	NewName  string `json:"new_name" binding:"required"`
}

type FolderMoveRequest struct {
	FolderID uint64  `json:"folder_id" binding:"required"`
	TargetID *uint64 `json:"target_id"`
}

type AssetRenameRequest struct {
	AssetID uint64 `json:"asset_id" binding:"required"`
	NewName string `json:"new_name" binding:"required"`
}

type AssetMoveRequest struct {
	AssetIDs []uint64 `json:"asset_ids" binding:"required"`
	TargetID *uint64  `json:"target_id"`
}

type AssetListRequest struct {
	FolderID  *uint64 `json:"folder_id"`
	Page      int     `json:"page"`
	PageSize  int     `json:"page_size"`
	OrderBy   string  `json:"order_by"`
	OrderDesc bool    `json:"order_desc"`
}

type AssetSearchRequest struct {
	Query    string `json:"query" binding:"required"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

type TrashAssetRequest struct {
	AssetID uint64 `json:"asset_id" binding:"required"`
}

type TrashFolderRequest struct {
	FolderID uint64 `json:"folder_id" binding:"required"`
}

type ShareEnableRequest struct {
	AssetID    uint64 `json:"asset_id" binding:"required"`
	ExpireDays int    `json:"expire_days"`
}

type ShareDisableRequest struct {
	AssetID uint64 `json:"asset_id" binding:"required"`
}

type FetchCreateRequest struct {
	URL      string  `json:"url" binding:"required"`
	FileName string  `json:"file_name" binding:"required"`
	FolderID *uint64 `json:"folder_id"`
}
