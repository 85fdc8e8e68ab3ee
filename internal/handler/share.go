package handler

import (
	"SkyVault/internal/dto"
	"SkyVault/internal/service"
	"SkyVault/utils"
	"net/http"

	"github.com/gin-gonic/gin"
)

// EnableShare creates a public share link for an asset.
func EnableShare(c *gin.Context) {
	var req dto.ShareEnableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, err)
		return
	}
	userID := currentUserID(c)
	shareID, err := service.EnableShare(userID, req.AssetID, req.ExpireDays)
	if err != nil {
		fail(c, err)
		return
	}
	utils.Success(c, dto.ShareResponse{ShareID: shareID})
}

// DisableShare revokes an asset's share link.
func DisableShare(c *gin.Context) {
	var req dto.ShareDisableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, err)
		return
	}
	userID := currentUserID(c)
	if err := service.DisableShare(userID, req.AssetID); err != nil {
		fail(c, err)
		return
	}
	utils.Success(c, nil)
}

// ShareDownload resolves a public share link and redirects to a presigned
// download URL. No authentication; the share id is the capability.
func ShareDownload(c *gin.Context) {
	shareID := c.Param("shareID")
	url, _, err := service.ShareDownloadURL(c.Request.Context(), shareID)
	if err != nil {
		fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}
