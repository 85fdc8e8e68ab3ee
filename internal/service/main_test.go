package service_test

import (
	"SkyVault/config"
	"SkyVault/internal/repo"
	"SkyVault/internal/service"
	"SkyVault/internal/storage"
	"SkyVault/model"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"golang.org/x/net/context"
)

// ensureTestBucket ensures the test bucket exists.
func ensureTestBucket() {
	ctx := context.Background()
	exists, err := storage.Minio.Client.BucketExists(ctx, storage.Minio.Bucket)
	if err != nil {
		panic(err)
	}
	if !exists {
		err = storage.Minio.Client.MakeBucket(ctx, storage.Minio.Bucket, minio.MakeBucketOptions{})
		if err != nil {
			panic(err)
		}
	}
}

// TestMain sets up the test environment.
func TestMain(m *testing.M) {
	config.InitConfig()
	repo.InitMysqlTest()
	storage.InitMinio()
	repo.InitRedis()

	ensureTestBucket()
	cleanupAllTables()

	code := m.Run()
	os.Exit(code)
}

func cleanupAllTables() {
	repo.Db.Exec("SET FOREIGN_KEY_CHECKS = 0")
	tables := []string{
		"rate_window",
		"fetch_task",
		"asset",
		"folder",
		"content_object",
		"quota",
		"user_db",
	}
	for _, table := range tables {
		repo.Db.Exec("DELETE FROM " + table)
	}
	repo.Db.Exec("SET FOREIGN_KEY_CHECKS = 1")
}

func cleanTables(t *testing.T) {
	t.Helper()
	repo.Db.Exec("SET FOREIGN_KEY_CHECKS = 0")
	tables := []string{"rate_window", "fetch_task", "asset", "folder", "content_object", "quota", "user_db"}
	for _, table := range tables {
		if err := repo.Db.Exec("DELETE FROM " + table).Error; err != nil {
			t.Fatalf("clean %s failed: %v", table, err)
		}
	}
	repo.Db.Exec("SET FOREIGN_KEY_CHECKS = 1")
}

func createTestUser(t *testing.T, prefix string) *model.User {
	t.Helper()
	suffix := time.Now().UnixNano()
	user := &model.User{
		UserName: fmt.Sprintf("%s_%d", prefix, suffix),
		Password: "123456",
		Email:    fmt.Sprintf("%s_%d@test.com", prefix, suffix),
		IsActive: true,
	}
	if err := service.CreateUser(user); err != nil {
		t.Fatal(err)
	}
	return user
}

// putTestContent stores data under its content key and returns the hash.
// ConfirmUpload checks for backing bytes on the fresh-content path, so tests
// must stage the blob the way a presigned PUT would.
func putTestContent(t *testing.T, data []byte) string {
	t.Helper()
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	err := storage.Default.PutObject(
		context.Background(),
		config.AppConfig.BucketName,
		service.BuildContentKey(hash),
		bytes.NewReader(data),
		int64(len(data)),
		storage.PutOptions{ContentType: "application/octet-stream"},
	)
	if err != nil {
		t.Fatalf("put test content failed: %v", err)
	}
	return hash
}

func uploadTestAsset(t *testing.T, userID uint64, name string, data []byte, folderID *uint64) *model.Asset {
	t.Helper()
	hash := putTestContent(t, data)
	asset, err := service.ConfirmUpload(context.Background(), userID, name, hash, int64(len(data)), folderID)
	if err != nil {
		t.Fatalf("upload %s failed: %v", name, err)
	}
	return asset
}

func usedBytes(t *testing.T, userID uint64) int64 {
	t.Helper()
	quota, err := service.GetUsage(userID)
	if err != nil {
		t.Fatalf("get usage failed: %v", err)
	}
	return quota.UsedBytes
}

func contentRefCount(t *testing.T, hash string) (int64, bool) {
	t.Helper()
	var obj model.ContentObject
	err := repo.Db.Where("hash = ?", hash).First(&obj).Error
	if err != nil {
		return 0, false
	}
	return obj.RefCount, true
}

func setQuotaLimit(t *testing.T, userID uint64, limitBytes int64) {
	t.Helper()
	if _, err := service.GetOrCreateQuota(repo.Db, userID); err != nil {
		t.Fatal(err)
	}
	if err := repo.Db.Model(&model.Quota{}).
		Where("user_id = ?", userID).
		Update("limit_bytes", limitBytes).Error; err != nil {
		t.Fatal(err)
	}
}

func setRateLimit(t *testing.T, userID uint64, limit int) {
	t.Helper()
	if _, err := service.GetOrCreateQuota(repo.Db, userID); err != nil {
		t.Fatal(err)
	}
	if err := repo.Db.Model(&model.Quota{}).
		Where("user_id = ?", userID).
		Update("rate_limit", limit).Error; err != nil {
		t.Fatal(err)
	}
}
