package handler

import (
	"SkyVault/internal/dto"
	"SkyVault/internal/service"
	"SkyVault/utils"
	"strconv"

	"github.com/gin-gonic/gin"
)

// CreateFolder creates a folder under an optional parent.
func CreateFolder(c *gin.Context) {
	var req dto.FolderCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, err)
		return
	}
	userID := currentUserID(c)
	folder, err := service.CreateFolder(userID, req.ParentID, req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	utils.Success(c, folder)
}

// RenameFolder renames a folder.
func RenameFolder(c *gin.Context) {
	var req dto.FolderRenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, err)
		return
	}
	userID := currentUserID(c)
	if err := service.RenameFolder(userID, req.FolderID, req.NewName); err != nil {
		fail(c, err)
		return
	}
	utils.Success(c, nil)
}

// MoveFolder re-parents a folder. Moves into the folder's own subtree are
// rejected.
func MoveFolder(c *gin.Context) {
	var req dto.FolderMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, err)
		return
	}
	userID := currentUserID(c)
	if err := service.MoveFolder(userID, req.FolderID, req.TargetID); err != nil {
		fail(c, err)
		return
	}
	utils.Success(c, nil)
}

// ListFolders lists a user's active folders under a parent.
func ListFolders(c *gin.Context) {
	userID := currentUserID(c)
	var parentID *uint64
	if raw := c.Query("parent_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			utils.Fail(c, err)
			return
		}
		parentID = &id
	}
	folders, err := service.ListFolders(userID, parentID)
	if err != nil {
		fail(c, err)
		return
	}
	utils.Success(c, gin.H{"folders": folders})
}
