package handler

import (
	"SkyVault/internal/dto"
	"SkyVault/internal/service"
	"SkyVault/utils"

	"github.com/gin-gonic/gin"
)

// ListTrash lists the user's trashed folders and assets.
func ListTrash(c *gin.Context) {
	userID := currentUserID(c)
	folders, assets, err := service.ListTrash(userID)
	if err != nil {
		fail(c, err)
		return
	}
	utils.Success(c, gin.H{"folders": folders, "assets": assets})
}

// TrashAsset moves a single asset to the trash.
func TrashAsset(c *gin.Context) {
	var req dto.TrashAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, err)
		return
	}
	userID := currentUserID(c)
	if err := service.TrashAsset(userID, req.AssetID); err != nil {
		fail(c, err)
		return
	}
	invalidateUserCaches(c, userID)
	utils.Success(c, nil)
}

// RestoreAsset brings a trashed asset back.
func RestoreAsset(c *gin.Context) {
	var req dto.TrashAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, err)
		return
	}
	userID := currentUserID(c)
	if err := service.RestoreAsset(userID, req.AssetID); err != nil {
		fail(c, err)
		return
	}
	invalidateUserCaches(c, userID)
	utils.Success(c, nil)
}

// PurgeAsset permanently deletes a trashed asset and refunds its bytes.
func PurgeAsset(c *gin.Context) {
	var req dto.TrashAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, err)
		return
	}
	userID := currentUserID(c)
	if err := service.PurgeAsset(c.Request.Context(), userID, req.AssetID); err != nil {
		fail(c, err)
		return
	}
	invalidateUserCaches(c, userID)
	utils.Success(c, nil)
}

// TrashFolder moves a folder and everything under it to the trash.
func TrashFolder(c *gin.Context) {
	var req dto.TrashFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, err)
		return
	}
	userID := currentUserID(c)
	if err := service.CascadeTrash(userID, req.FolderID); err != nil {
		fail(c, err)
		return
	}
	invalidateUserCaches(c, userID)
	utils.Success(c, nil)
}

// RestoreFolder restores a trashed folder subtree.
func RestoreFolder(c *gin.Context) {
	var req dto.TrashFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, err)
		return
	}
	userID := currentUserID(c)
	if err := service.CascadeRestore(userID, req.FolderID); err != nil {
		fail(c, err)
		return
	}
	invalidateUserCaches(c, userID)
	utils.Success(c, nil)
}

// PurgeFolder permanently deletes a folder subtree and refunds the freed
// bytes.
func PurgeFolder(c *gin.Context) {
	var req dto.TrashFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, err)
		return
	}
	userID := currentUserID(c)
	freed, err := service.CascadePurge(c.Request.Context(), userID, req.FolderID)
	if err != nil {
		fail(c, err)
		return
	}
	invalidateUserCaches(c, userID)
	utils.Success(c, gin.H{"freed_bytes": freed})
}

// EmptyTrash purges everything in the trash.
func EmptyTrash(c *gin.Context) {
	userID := currentUserID(c)
	freed, err := service.EmptyTrash(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	invalidateUserCaches(c, userID)
	utils.Success(c, gin.H{"freed_bytes": freed})
}
