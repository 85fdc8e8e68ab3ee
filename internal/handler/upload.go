package handler

import (
	"SkyVault/internal/dto"
	"SkyVault/internal/service"
	"SkyVault/utils"

	"github.com/gin-gonic/gin"
)

// InitUpload starts an upload handshake. The response either links the
// asset instantly or carries a presigned PUT URL.
func InitUpload(c *gin.Context) {
	var req dto.UploadInitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, err)
		return
	}
	userID := currentUserID(c)
	resp, err := service.InitUpload(c.Request.Context(), userID, &req)
	if err != nil {
		fail(c, err)
		return
	}
	if resp.Instant {
		invalidateUserCaches(c, userID)
	}
	utils.Success(c, resp)
}

// ConfirmUpload finishes an upload after the client has PUT the bytes.
func ConfirmUpload(c *gin.Context) {
	var req dto.UploadConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, err)
		return
	}
	userID := currentUserID(c)
	asset, err := service.ConfirmUpload(c.Request.Context(), userID, req.FileName, req.Hash, req.Size, req.FolderID)
	if err != nil {
		fail(c, err)
		return
	}
	invalidateUserCaches(c, userID)
	utils.Success(c, asset)
}

// FastUpload links an asset to existing content without transferring bytes.
func FastUpload(c *gin.Context) {
	var req dto.UploadInitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, err)
		return
	}
	userID := currentUserID(c)
	resp, err := service.FastUpload(c.Request.Context(), userID, &req)
	if err != nil {
		fail(c, err)
		return
	}
	if resp.Instant {
		invalidateUserCaches(c, userID)
	}
	utils.Success(c, resp)
}

func invalidateUserCaches(c *gin.Context, userID uint64) {
	ctx := c.Request.Context()
	_ = utils.InvalidateAssetListCache(ctx, userID)
	_ = utils.InvalidateUsageCache(ctx, userID)
}
