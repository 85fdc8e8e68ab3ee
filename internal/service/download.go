package service

import (
	"SkyVault/config"
	"SkyVault/internal/repo"
	"SkyVault/internal/storage"
	"SkyVault/utils"
	"context"
	"fmt"
	"path"
	"strings"
)

// GetContentType returns content type by file extension.
func GetContentType(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".pdf":
		return "application/pdf"
	case ".zip":
		return "application/zip"
	case ".tar":
		return "application/x-tar"
	case ".gz":
		return "application/gzip"
	case ".mp4":
		return "video/mp4"
	default:
		return "application/octet-stream"
	}
}

func presignedContentURL(ctx context.Context, bucket, object, fileName, disposition string) (string, error) {
	if object == "" {
		return "", fmt.Errorf("object name missing")
	}
	if storage.Default == nil {
		return "", fmt.Errorf("storage not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	contentType := GetContentType(fileName)
	safeName := utils.SanitizeHeaderFilename(fileName)
	url, err := storage.Default.PresignedGetObjectWithResponse(
		ctx,
		bucket,
		object,
		config.AppConfig.PresignDownloadExpiry,
		map[string]string{
			"response-content-type":        contentType,
			"response-content-disposition": fmt.Sprintf("%s; filename=\"%s\"", disposition, safeName),
		},
	)
	if err == nil {
		return url, nil
	}
	return storage.Default.PresignedGetObject(ctx, bucket, object, config.AppConfig.PresignDownloadExpiry)
}

// AssetDownloadURL returns a presigned download URL for a user's asset.
func AssetDownloadURL(ctx context.Context, userID, assetID uint64) (string, error) {
	asset, err := getAsset(repo.Db, userID, assetID)
	if err != nil {
		return "", err
	}
	if asset.IsDeleted {
		return "", fmt.Errorf("asset %d is trashed: %w", assetID, ErrPreconditionFailed)
	}
	obj, err := GetContentByHash(repo.Db, asset.Hash)
	if err != nil {
		return "", err
	}
	return presignedContentURL(ctx, obj.BucketName, obj.ObjectName, asset.Name, "attachment")
}

// AssetPreviewURL returns a presigned inline preview URL for a user's asset.
func AssetPreviewURL(ctx context.Context, userID, assetID uint64) (string, error) {
	asset, err := getAsset(repo.Db, userID, assetID)
	if err != nil {
		return "", err
	}
	if asset.IsDeleted {
		return "", fmt.Errorf("asset %d is trashed: %w", assetID, ErrPreconditionFailed)
	}
	obj, err := GetContentByHash(repo.Db, asset.Hash)
	if err != nil {
		return "", err
	}
	return presignedContentURL(ctx, obj.BucketName, obj.ObjectName, asset.Name, "inline")
}
