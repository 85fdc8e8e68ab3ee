package service

import (
	"SkyVault/config"
	"SkyVault/internal/dto"
	"SkyVault/internal/repo"
	"SkyVault/internal/storage"
	"SkyVault/model"
	"errors"
	"fmt"
	"time"

	"golang.org/x/net/context"
	"gorm.io/gorm"
)

func getAsset(db *gorm.DB, userID, assetID uint64) (*model.Asset, error) {
	var asset model.Asset
	if err := db.Where("id = ? AND user_id = ?", assetID, userID).First(&asset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("asset %d: %w", assetID, ErrNotFound)
		}
		return nil, err
	}
	return &asset, nil
}

func checkAssetNameFree(tx *gorm.DB, userID uint64, folderID *uint64, name string, excludeID uint64) error {
	var count int64
	query := tx.Model(&model.Asset{}).
		Where("user_id = ? AND name = ? AND is_deleted = 0 AND id != ?", userID, name, excludeID)
	if folderID == nil || *folderID == 0 {
		query = query.Where("folder_id IS NULL")
	} else {
		query = query.Where("folder_id = ?", *folderID)
	}
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("file %q already exists here: %w", name, ErrConflict)
	}
	return nil
}

func requireActiveFolder(tx *gorm.DB, userID uint64, folderID *uint64) error {
	if folderID == nil || *folderID == 0 {
		return nil
	}
	folder, err := getFolder(tx, userID, *folderID)
	if err != nil {
		return err
	}
	if folder.IsDeleted {
		return fmt.Errorf("folder %d is trashed: %w", *folderID, ErrPreconditionFailed)
	}
	return nil
}

func validateUploadRequest(name, hash string, size int64) error {
	if name == "" {
		return fmt.Errorf("file name empty: %w", ErrInvalidArgument)
	}
	if !ValidContentHash(hash) {
		return fmt.Errorf("hash must be 64 hex chars: %w", ErrInvalidArgument)
	}
	if size < 0 {
		return fmt.Errorf("size negative: %w", ErrInvalidArgument)
	}
	return nil
}

// InitUpload starts an upload. If the content is already stored and backed,
// the asset is linked instantly without moving bytes; otherwise the client
// gets a presigned PUT URL for the content key and confirms afterwards.
func InitUpload(ctx context.Context, userID uint64, req *dto.UploadInitRequest) (*dto.UploadInitResponse, error) {
	if err := validateUploadRequest(req.FileName, req.Hash, req.Size); err != nil {
		return nil, err
	}
	if err := CheckQuota(repo.Db, userID, req.Size); err != nil {
		return nil, err
	}

	obj, err := GetContentByHash(repo.Db, req.Hash)
	if err == nil {
		if req.Size > 0 && obj.Size > 0 && req.Size != obj.Size {
			return &dto.UploadInitResponse{NeedUpload: true, Reason: "size_mismatch"}, nil
		}
		if backErr := ConfirmBacking(ctx, obj); backErr == nil {
			asset, linkErr := ConfirmUpload(ctx, userID, req.FileName, req.Hash, req.Size, req.FolderID)
			if linkErr != nil {
				return nil, linkErr
			}
			return &dto.UploadInitResponse{Instant: true, AssetID: asset.ID}, nil
		} else if !errors.Is(backErr, ErrNotFound) {
			return nil, backErr
		}
		// Metadata without backing bytes: fall through to a fresh upload.
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if storage.Default == nil {
		return nil, fmt.Errorf("storage not initialized")
	}
	url, err := storage.Default.PresignedPutObject(
		ctx,
		config.AppConfig.BucketName,
		BuildContentKey(req.Hash),
		config.AppConfig.PresignUploadExpiry,
	)
	if err != nil {
		return nil, err
	}
	return &dto.UploadInitResponse{NeedUpload: true, UploadURL: url}, nil
}

// ConfirmUpload finishes an upload in one transaction: quota gate, content
// link-or-create, backing check on the fresh path, asset insert, usage
// charge. Any failure rolls the whole transaction back and nothing is
// charged.
func ConfirmUpload(ctx context.Context, userID uint64, name, hash string, size int64, folderID *uint64) (*model.Asset, error) {
	if err := validateUploadRequest(name, hash, size); err != nil {
		return nil, err
	}
	folderID = normalizeParentID(folderID)
	var asset *model.Asset
	err := repo.Db.Transaction(func(tx *gorm.DB) error {
		if err := requireActiveFolder(tx, userID, folderID); err != nil {
			return err
		}
		if err := CheckQuota(tx, userID, size); err != nil {
			return err
		}
		if err := checkAssetNameFree(tx, userID, folderID, name, 0); err != nil {
			return err
		}
		obj, created, err := LinkOrCreateContent(tx, hash, size)
		if err != nil {
			return err
		}
		if created {
			// Fresh content: the bytes must actually be in the blob store.
			if err := ConfirmBacking(ctx, obj); err != nil {
				return err
			}
		}
		asset = &model.Asset{
			UserID:   userID,
			FolderID: folderID,
			Name:     name,
			Hash:     hash,
			Size:     size,
		}
		if err := tx.Create(asset).Error; err != nil {
			return err
		}
		return AdjustUsage(tx, userID, size)
	})
	if err != nil {
		return nil, err
	}
	return asset, nil
}

// FastUpload links an asset to already-stored content without any byte
// transfer. Returns need_upload when the hash is unknown or unbacked.
func FastUpload(ctx context.Context, userID uint64, req *dto.UploadInitRequest) (*dto.UploadInitResponse, error) {
	if err := validateUploadRequest(req.FileName, req.Hash, req.Size); err != nil {
		return nil, err
	}
	obj, err := GetContentByHash(repo.Db, req.Hash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &dto.UploadInitResponse{NeedUpload: true, Reason: "hash_not_found"}, nil
		}
		return nil, err
	}
	if req.Size > 0 && obj.Size > 0 && req.Size != obj.Size {
		return &dto.UploadInitResponse{NeedUpload: true, Reason: "size_mismatch"}, nil
	}
	if err := ConfirmBacking(ctx, obj); err != nil {
		if errors.Is(err, ErrNotFound) {
			return &dto.UploadInitResponse{NeedUpload: true, Reason: "object_missing"}, nil
		}
		return nil, err
	}
	asset, err := ConfirmUpload(ctx, userID, req.FileName, req.Hash, req.Size, req.FolderID)
	if err != nil {
		return nil, err
	}
	return &dto.UploadInitResponse{Instant: true, AssetID: asset.ID}, nil
}

// TrashAsset soft-deletes a single asset. No quota or ref-count change;
// bytes stay charged while the asset is recoverable.
func TrashAsset(userID, assetID uint64) error {
	now := time.Now()
	res := repo.Db.Model(&model.Asset{}).
		Where("id = ? AND user_id = ? AND is_deleted = 0", assetID, userID).
		Updates(map[string]interface{}{
			"is_deleted": true,
			"deleted_at": &now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("asset %d: %w", assetID, ErrNotFound)
	}
	return nil
}

// RestoreAsset brings a trashed asset back. The containing folder must be
// active, mirroring the folder restore rule.
func RestoreAsset(userID, assetID uint64) error {
	return repo.Db.Transaction(func(tx *gorm.DB) error {
		asset, err := getAsset(tx, userID, assetID)
		if err != nil {
			return err
		}
		if !asset.IsDeleted {
			return fmt.Errorf("asset %d is not trashed: %w", assetID, ErrPreconditionFailed)
		}
		if err := requireActiveFolder(tx, userID, asset.FolderID); err != nil {
			return err
		}
		if err := checkAssetNameFree(tx, userID, asset.FolderID, asset.Name, assetID); err != nil {
			return err
		}
		return tx.Model(&model.Asset{}).
			Where("id = ?", assetID).
			Updates(map[string]interface{}{
				"is_deleted": false,
				"deleted_at": nil,
			}).Error
	})
}

// purgeAssetsTx deletes asset rows and releases one content reference per
// asset. Returns the declared bytes freed and the blobs whose last
// reference disappeared.
func purgeAssetsTx(tx *gorm.DB, assets []model.Asset) (int64, []BlobRef, error) {
	var (
		freed int64
		blobs []BlobRef
	)
	for _, asset := range assets {
		if err := tx.Where("id = ?", asset.ID).Delete(&model.Asset{}).Error; err != nil {
			return 0, nil, err
		}
		blob, err := ReleaseContent(tx, asset.Hash)
		if err != nil {
			return 0, nil, err
		}
		if blob != nil {
			blobs = append(blobs, *blob)
		}
		freed += asset.Size
	}
	return freed, blobs, nil
}

// PurgeAsset permanently deletes one asset: row delete, reference release
// and usage refund in a single transaction. The backing blob is removed
// after commit if this was the last reference.
func PurgeAsset(ctx context.Context, userID, assetID uint64) error {
	var blobs []BlobRef
	err := repo.Db.Transaction(func(tx *gorm.DB) error {
		asset, err := getAsset(tx, userID, assetID)
		if err != nil {
			return err
		}
		var freed int64
		freed, blobs, err = purgeAssetsTx(tx, []model.Asset{*asset})
		if err != nil {
			return err
		}
		return AdjustUsage(tx, userID, -freed)
	})
	if err != nil {
		return err
	}
	DeleteBlobs(ctx, blobs)
	return nil
}

// RenameAsset renames an active asset.
func RenameAsset(userID, assetID uint64, newName string) error {
	if newName == "" {
		return fmt.Errorf("file name empty: %w", ErrInvalidArgument)
	}
	return repo.Db.Transaction(func(tx *gorm.DB) error {
		asset, err := getAsset(tx, userID, assetID)
		if err != nil {
			return err
		}
		if asset.IsDeleted {
			return fmt.Errorf("asset %d is trashed: %w", assetID, ErrPreconditionFailed)
		}
		if err := checkAssetNameFree(tx, userID, asset.FolderID, newName, assetID); err != nil {
			return err
		}
		return tx.Model(asset).Update("name", newName).Error
	})
}

// MoveAssets moves assets into a target folder (nil = root).
func MoveAssets(userID uint64, assetIDs []uint64, targetID *uint64) error {
	if len(assetIDs) == 0 {
		return fmt.Errorf("no assets given: %w", ErrInvalidArgument)
	}
	targetID = normalizeParentID(targetID)
	return repo.Db.Transaction(func(tx *gorm.DB) error {
		if err := requireActiveFolder(tx, userID, targetID); err != nil {
			return err
		}
		var assets []model.Asset
		if err := tx.Where("id IN ? AND user_id = ? AND is_deleted = 0", assetIDs, userID).
			Find(&assets).Error; err != nil {
			return err
		}
		if len(assets) != len(assetIDs) {
			return fmt.Errorf("some assets missing: %w", ErrNotFound)
		}
		for _, asset := range assets {
			if err := checkAssetNameFree(tx, userID, targetID, asset.Name, asset.ID); err != nil {
				return err
			}
		}
		return tx.Model(&model.Asset{}).
			Where("id IN ?", assetIDs).
			Update("folder_id", targetID).Error
	})
}

// ListAssets lists a user's active assets in a folder with paging and
// ordering.
func ListAssets(userID uint64, req *dto.AssetListRequest) ([]model.Asset, int64, error) {
	var (
		assets []model.Asset
		total  int64
	)
	query := repo.Db.Model(&model.Asset{}).
		Where("user_id = ? AND is_deleted = 0", userID)
	if req.FolderID == nil || *req.FolderID == 0 {
		query = query.Where("folder_id IS NULL")
	} else {
		query = query.Where("folder_id = ?", *req.FolderID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "created_at DESC"
	if orderBy := sanitizeOrderBy(req.OrderBy); orderBy != "" {
		if req.OrderDesc {
			order = orderBy + " DESC"
		} else {
			order = orderBy + " ASC"
		}
	}
	offset := (req.Page - 1) * req.PageSize
	if err := query.Order(order).Offset(offset).Limit(req.PageSize).Find(&assets).Error; err != nil {
		return nil, 0, err
	}
	return assets, total, nil
}

// SearchAssets searches active assets by name.
func SearchAssets(userID uint64, req *dto.AssetSearchRequest) ([]model.Asset, int64, error) {
	var (
		assets []model.Asset
		total  int64
	)
	query := repo.Db.Model(&model.Asset{}).
		Where("user_id = ? AND is_deleted = 0", userID).
		Where("name LIKE ?", fmt.Sprintf("%%%s%%", req.Query))
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (req.Page - 1) * req.PageSize
	if err := query.Order("created_at DESC").Offset(offset).Limit(req.PageSize).Find(&assets).Error; err != nil {
		return nil, 0, err
	}
	return assets, total, nil
}

// ListTrash returns the user's trashed folders and assets.
func ListTrash(userID uint64) ([]model.Folder, []model.Asset, error) {
	var folders []model.Folder
	if err := repo.Db.Where("user_id = ? AND is_deleted = 1", userID).
		Order("deleted_at DESC").Find(&folders).Error; err != nil {
		return nil, nil, err
	}
	var assets []model.Asset
	if err := repo.Db.Where("user_id = ? AND is_deleted = 1", userID).
		Order("deleted_at DESC").Find(&assets).Error; err != nil {
		return nil, nil, err
	}
	return folders, assets, nil
}

// GetUsage returns the user's quota row.
func GetUsage(userID uint64) (*model.Quota, error) {
	return GetOrCreateQuota(repo.Db, userID)
}
