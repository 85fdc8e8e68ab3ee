package router

import (
	"SkyVault/internal/handler"
	"SkyVault/utils"

	"github.com/gin-gonic/gin"
)

// InitRouter builds API routes.
func InitRouter() *gin.Engine {
	r := gin.Default()
	r.Use(utils.CORSMiddleware())

	api := r.Group("/api")
	{
		api.POST("/register", handler.Register)
		api.GET("/activate", handler.Activate)
		api.POST("/login", handler.Login)
		api.GET("/share/download/:shareID", handler.ShareDownload)

		auth := api.Group("")
		auth.Use(utils.AuthMiddleware())
		auth.Use(handler.RateLimitMiddleware())

		upload := auth.Group("/upload")
		{
			upload.POST("/init", handler.InitUpload)
			upload.POST("/confirm", handler.ConfirmUpload)
			upload.POST("/fast", handler.FastUpload)
		}

		asset := auth.Group("/asset")
		{
			asset.POST("/list", handler.ListAssets)
			asset.POST("/search", handler.SearchAssets)
			asset.POST("/rename", handler.RenameAsset)
			asset.POST("/move", handler.MoveAssets)
			asset.GET("/download/:assetID", handler.DownloadAsset)
			asset.GET("/preview/:assetID", handler.PreviewAsset)
		}

		folder := auth.Group("/folder")
		{
			folder.POST("/create", handler.CreateFolder)
			folder.POST("/rename", handler.RenameFolder)
			folder.POST("/move", handler.MoveFolder)
			folder.GET("/list", handler.ListFolders)
		}

		trash := auth.Group("/trash")
		{
			trash.GET("/list", handler.ListTrash)
			trash.POST("/asset", handler.TrashAsset)
			trash.POST("/asset/restore", handler.RestoreAsset)
			trash.POST("/asset/purge", handler.PurgeAsset)
			trash.POST("/folder", handler.TrashFolder)
			trash.POST("/folder/restore", handler.RestoreFolder)
			trash.POST("/folder/purge", handler.PurgeFolder)
			trash.POST("/empty", handler.EmptyTrash)
		}

		share := auth.Group("/share")
		{
			share.POST("/enable", handler.EnableShare)
			share.POST("/disable", handler.DisableShare)
		}

		fetch := auth.Group("/fetch")
		{
			fetch.POST("/create", handler.CreateFetch)
			fetch.GET("/tasks", handler.ListFetchTasks)
		}

		auth.GET("/usage", handler.GetUsage)
	}
	return r
}
