package service

import (
	"SkyVault/config"
	"SkyVault/internal/storage"
	"SkyVault/model"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"

	"golang.org/x/net/context"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BuildContentKey derives the blob-store key for a content hash.
func BuildContentKey(hash string) string {
	return fmt.Sprintf("content/%s", hash)
}

// ValidContentHash reports whether hash is a sha256 hex digest. The hash
// becomes part of the object key, so anything but hex must be refused
// before it can reach a presigned URL.
func ValidContentHash(hash string) bool {
	raw, err := hex.DecodeString(hash)
	return err == nil && len(raw) == sha256.Size
}

// GetContentByHash finds a content object by hash.
func GetContentByHash(db *gorm.DB, hash string) (*model.ContentObject, error) {
	var obj model.ContentObject
	if err := db.Where("hash = ?", hash).First(&obj).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("content %s: %w", hash, ErrNotFound)
		}
		return nil, err
	}
	return &obj, nil
}

// LinkOrCreateContent inserts a content object at ref_count 1, or bumps the
// ref count of the existing row for the same hash. The upsert is a single
// statement so concurrent first uploads of identical content serialize in
// the store instead of racing on a read-then-write.
func LinkOrCreateContent(tx *gorm.DB, hash string, size int64) (*model.ContentObject, bool, error) {
	obj := model.ContentObject{
		Hash:       hash,
		BucketName: config.AppConfig.BucketName,
		ObjectName: BuildContentKey(hash),
		Size:       size,
		RefCount:   1,
	}
	res := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "hash"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"ref_count": gorm.Expr("ref_count + 1"),
		}),
	}).Create(&obj)
	if res.Error != nil {
		return nil, false, res.Error
	}
	// MySQL reports 1 affected row for a fresh insert, 2 for the
	// duplicate-key update.
	created := res.RowsAffected == 1

	stored, err := GetContentByHash(tx, hash)
	if err != nil {
		return nil, false, err
	}
	if !created && size > 0 && stored.Size > 0 && stored.Size != size {
		return nil, false, fmt.Errorf("size mismatch for %s: %w", hash, ErrInvalidArgument)
	}
	return stored, created, nil
}

// ConfirmBacking verifies the blob store holds bytes at the content key.
// Guards against clients that requested an upload URL and never used it.
func ConfirmBacking(ctx context.Context, obj *model.ContentObject) error {
	if storage.Default == nil {
		return fmt.Errorf("storage not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	_, exists, err := storage.Default.StatObject(ctx, obj.BucketName, obj.ObjectName)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("backing object %s: %w", obj.ObjectName, ErrNotFound)
	}
	return nil
}

// BlobRef identifies a blob whose metadata row was purged; the actual
// object delete runs after the transaction commits.
type BlobRef struct {
	Bucket string
	Object string
}

// ReleaseContent decrements the ref count of a content object and, when it
// reaches zero, deletes the row within the same transaction. It returns the
// blob reference to delete after commit, or nil if references remain.
func ReleaseContent(tx *gorm.DB, hash string) (*BlobRef, error) {
	obj, err := GetContentByHash(tx, hash)
	if err != nil {
		return nil, err
	}
	// The guarded update takes the row lock; concurrent releases of the
	// last two references serialize here.
	res := tx.Model(&model.ContentObject{}).
		Where("hash = ? AND ref_count > 0", hash).
		UpdateColumn("ref_count", gorm.Expr("ref_count - 1"))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("content %s already released: %w", hash, ErrConflict)
	}
	del := tx.Where("hash = ? AND ref_count = 0", hash).Delete(&model.ContentObject{})
	if del.Error != nil {
		return nil, del.Error
	}
	if del.RowsAffected == 0 {
		return nil, nil
	}
	return &BlobRef{Bucket: obj.BucketName, Object: obj.ObjectName}, nil
}

// DeleteBlobs removes purged blobs from the object store. Best effort: the
// metadata delete has already committed, so a failure here leaves an orphan
// blob rather than a dangling reference.
func DeleteBlobs(ctx context.Context, refs []BlobRef) {
	if storage.Default == nil || len(refs) == 0 {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for _, ref := range refs {
		if err := storage.Default.RemoveObject(ctx, ref.Bucket, ref.Object); err != nil {
			log.Printf("blob cleanup failed for %s/%s: %v", ref.Bucket, ref.Object, err)
		}
	}
}
