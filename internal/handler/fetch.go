package handler

import (
	"SkyVault/internal/dto"
	"SkyVault/internal/task"
	"SkyVault/utils"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// CreateFetch enqueues an offline fetch of a remote URL into the user's
// storage.
func CreateFetch(c *gin.Context) {
	var req dto.FetchCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, err)
		return
	}
	userID := currentUserID(c)
	fileName := strings.TrimSpace(req.FileName)
	if fileName == "" {
		fileName = inferFileNameFromURL(req.URL)
	}
	t, err := task.CreateFetchTask(userID, req.URL, fileName, req.FolderID)
	if err != nil {
		fail(c, err)
		return
	}
	utils.Success(c, gin.H{"task_id": t.ID, "status": t.Status})
}

// ListFetchTasks lists the user's fetch tasks, newest first.
func ListFetchTasks(c *gin.Context) {
	userID := currentUserID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	tasks, err := task.ListFetchTasks(userID, limit)
	if err != nil {
		fail(c, err)
		return
	}
	utils.Success(c, gin.H{"tasks": tasks})
}

func inferFileNameFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "download"
	}
	name := path.Base(parsed.Path)
	if name == "" || name == "." || name == "/" {
		return "download"
	}
	return name
}
