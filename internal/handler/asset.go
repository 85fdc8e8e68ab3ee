package handler

import (
	"SkyVault/internal/dto"
	"SkyVault/internal/service"
	"SkyVault/utils"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const listCacheTTL = 30 * time.Second

// ListAssets lists a folder's active assets with paging. Listings are
// cached per user and invalidated on any mutation.
func ListAssets(c *gin.Context) {
	var req dto.AssetListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, err)
		return
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 || req.PageSize > 200 {
		req.PageSize = 50
	}
	userID := currentUserID(c)

	var folderKey uint64
	if req.FolderID != nil {
		folderKey = *req.FolderID
	}
	ctx := c.Request.Context()
	if cached, ok := utils.GetAssetListFromCache(ctx, userID, folderKey, req.Page, req.PageSize); ok && req.OrderBy == "" {
		utils.Success(c, gin.H{"assets": cached.Assets, "total": cached.Total})
		return
	}

	assets, total, err := service.ListAssets(userID, &req)
	if err != nil {
		fail(c, err)
		return
	}
	if req.OrderBy == "" {
		_ = utils.SetAssetListToCache(ctx, userID, folderKey, req.Page, req.PageSize,
			&utils.AssetListCache{Assets: assets, Total: total}, listCacheTTL)
	}
	utils.Success(c, gin.H{"assets": assets, "total": total})
}

// SearchAssets searches active assets by name substring.
func SearchAssets(c *gin.Context) {
	var req dto.AssetSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, err)
		return
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 || req.PageSize > 200 {
		req.PageSize = 50
	}
	userID := currentUserID(c)
	assets, total, err := service.SearchAssets(userID, &req)
	if err != nil {
		fail(c, err)
		return
	}
	utils.Success(c, gin.H{"assets": assets, "total": total})
}

// RenameAsset renames an asset in place.
func RenameAsset(c *gin.Context) {
	var req dto.AssetRenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, err)
		return
	}
	userID := currentUserID(c)
	if err := service.RenameAsset(userID, req.AssetID, req.NewName); err != nil {
		fail(c, err)
		return
	}
	_ = utils.InvalidateAssetListCache(c.Request.Context(), userID)
	utils.Success(c, nil)
}

// MoveAssets moves assets into a target folder.
func MoveAssets(c *gin.Context) {
	var req dto.AssetMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, err)
		return
	}
	userID := currentUserID(c)
	if err := service.MoveAssets(userID, req.AssetIDs, req.TargetID); err != nil {
		fail(c, err)
		return
	}
	_ = utils.InvalidateAssetListCache(c.Request.Context(), userID)
	utils.Success(c, nil)
}

// DownloadAsset returns a presigned download URL for an asset.
func DownloadAsset(c *gin.Context) {
	assetID, err := strconv.ParseUint(c.Param("assetID"), 10, 64)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	userID := currentUserID(c)
	url, err := service.AssetDownloadURL(c.Request.Context(), userID, assetID)
	if err != nil {
		fail(c, err)
		return
	}
	utils.Success(c, gin.H{"url": url})
}

// PreviewAsset returns a presigned inline preview URL for an asset.
func PreviewAsset(c *gin.Context) {
	assetID, err := strconv.ParseUint(c.Param("assetID"), 10, 64)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	userID := currentUserID(c)
	url, err := service.AssetPreviewURL(c.Request.Context(), userID, assetID)
	if err != nil {
		fail(c, err)
		return
	}
	utils.Success(c, gin.H{"url": url})
}

// GetUsage reports the user's quota consumption.
func GetUsage(c *gin.Context) {
	userID := currentUserID(c)
	ctx := c.Request.Context()
	if quota, ok := utils.GetUsageFromCache(ctx, userID); ok {
		utils.Success(c, dto.UsageResponse{UsedBytes: quota.UsedBytes, LimitBytes: quota.LimitBytes})
		return
	}
	quota, err := service.GetUsage(userID)
	if err != nil {
		fail(c, err)
		return
	}
	_ = utils.SetUsageToCache(ctx, userID, quota, listCacheTTL)
	utils.Success(c, dto.UsageResponse{UsedBytes: quota.UsedBytes, LimitBytes: quota.LimitBytes})
}
