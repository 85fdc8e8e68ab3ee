package service

import (
	"SkyVault/internal/repo"
	"SkyVault/model"
	"SkyVault/utils"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/net/context"
	"gorm.io/gorm"
)

type shareCacheEntry struct {
	AssetID  uint64    `json:"asset_id"`
	ExpireAt time.Time `json:"expire_at"`
}

// EnableShare marks an asset public under a fresh opaque share id. With
// expireDays > 0 the share auto-expires; the redis key's TTL drives the
// expired-key listener that flips the asset back to private.
func EnableShare(userID, assetID uint64, expireDays int) (string, error) {
	var shareID string
	err := repo.Db.Transaction(func(tx *gorm.DB) error {
		asset, err := getAsset(tx, userID, assetID)
		if err != nil {
			return err
		}
		if asset.IsDeleted {
			return fmt.Errorf("asset %d is trashed: %w", assetID, ErrPreconditionFailed)
		}
		if asset.IsPublic && asset.ShareID != nil {
			if asset.ShareExpireAt == nil || time.Now().Before(*asset.ShareExpireAt) {
				return fmt.Errorf("share already exists: %w", ErrConflict)
			}
		}
		shareID = utils.GetToken()
		updates := map[string]interface{}{
			"is_public":       true,
			"share_id":        shareID,
			"share_expire_at": nil,
		}
		var expireAt *time.Time
		if expireDays > 0 {
			t := time.Now().Add(time.Duration(expireDays) * 24 * time.Hour)
			expireAt = &t
			updates["share_expire_at"] = expireAt
		}
		if err := tx.Model(&model.Asset{}).Where("id = ?", assetID).Updates(updates).Error; err != nil {
			return err
		}
		if expireAt != nil && repo.Redis != nil {
			entry := shareCacheEntry{AssetID: assetID, ExpireAt: *expireAt}
			value, _ := json.Marshal(entry)
			repo.Redis.Set(context.Background(), "share:"+shareID, value, time.Until(*expireAt))
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return shareID, nil
}

// DisableShare flips an asset back to private.
func DisableShare(userID, assetID uint64) error {
	return repo.Db.Transaction(func(tx *gorm.DB) error {
		asset, err := getAsset(tx, userID, assetID)
		if err != nil {
			return err
		}
		if asset.ShareID != nil && repo.Redis != nil {
			repo.Redis.Del(context.Background(), "share:"+*asset.ShareID)
		}
		return tx.Model(&model.Asset{}).
			Where("id = ?", assetID).
			Updates(map[string]interface{}{
				"is_public":       false,
				"share_id":        nil,
				"share_expire_at": nil,
			}).Error
	})
}

// resolveShare loads the public, non-expired asset behind a share id.
// Expiry is also enforced lazily for the gap before the listener fires.
func resolveShare(shareID string) (*model.Asset, error) {
	var asset model.Asset
	if err := repo.Db.Where("share_id = ? AND is_public = 1 AND is_deleted = 0", shareID).
		First(&asset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("share %s: %w", shareID, ErrNotFound)
		}
		return nil, err
	}
	if asset.ShareExpireAt != nil && time.Now().After(*asset.ShareExpireAt) {
		_ = repo.Db.Model(&model.Asset{}).
			Where("id = ?", asset.ID).
			Updates(map[string]interface{}{
				"is_public":       false,
				"share_id":        nil,
				"share_expire_at": nil,
			}).Error
		return nil, fmt.Errorf("share %s expired: %w", shareID, ErrNotFound)
	}
	return &asset, nil
}

// ShareDownloadURL is the one unauthenticated read path: it resolves a
// share id, bumps the download counter store-side and returns a presigned
// download URL.
func ShareDownloadURL(ctx context.Context, shareID string) (string, *model.Asset, error) {
	if repo.Redis != nil {
		if val, err := repo.Redis.Get(context.Background(), "share:"+shareID).Result(); err == nil {
			var entry shareCacheEntry
			if json.Unmarshal([]byte(val), &entry) == nil && time.Now().After(entry.ExpireAt) {
				return "", nil, fmt.Errorf("share %s expired: %w", shareID, ErrNotFound)
			}
		} else if err != redis.Nil {
			// Redis down is not fatal for public reads.
			_ = err
		}
	}
	asset, err := resolveShare(shareID)
	if err != nil {
		return "", nil, err
	}
	obj, err := GetContentByHash(repo.Db, asset.Hash)
	if err != nil {
		return "", nil, err
	}
	url, err := presignedContentURL(ctx, obj.BucketName, obj.ObjectName, asset.Name, "attachment")
	if err != nil {
		return "", nil, err
	}
	if err := repo.Db.Model(&model.Asset{}).
		Where("id = ?", asset.ID).
		UpdateColumn("download_count", gorm.Expr("download_count + 1")).Error; err != nil {
		return "", nil, err
	}
	asset.DownloadCount++
	return url, asset, nil
}
