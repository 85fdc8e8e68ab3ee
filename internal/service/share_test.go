package service_test

import (
	"SkyVault/internal/repo"
	"SkyVault/internal/service"
	"SkyVault/model"
	"errors"
	"testing"
	"time"

	"golang.org/x/net/context"
)

func TestShareLifecycle(t *testing.T) {
	cleanTables(t)
	user := createTestUser(t, "share")

	asset := uploadTestAsset(t, user.ID, "shared.txt", []byte("shared content"), nil)

	shareID, err := service.EnableShare(user.ID, asset.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if shareID == "" {
		t.Fatal("share id empty")
	}

	// Enabling again while the share is live is a conflict.
	if _, err := service.EnableShare(user.ID, asset.ID, 0); !errors.Is(err, service.ErrConflict) {
		t.Fatalf("expect ErrConflict, got %v", err)
	}

	url, got, err := service.ShareDownloadURL(context.Background(), shareID)
	if err != nil {
		t.Fatal(err)
	}
	if url == "" {
		t.Fatal("expect presigned url")
	}
	if got.ID != asset.ID {
		t.Fatalf("resolved wrong asset %d", got.ID)
	}
	if got.DownloadCount != 1 {
		t.Fatalf("download counter should be 1, got %d", got.DownloadCount)
	}

	if err := service.DisableShare(user.ID, asset.ID); err != nil {
		t.Fatal(err)
	}
	if _, _, err := service.ShareDownloadURL(context.Background(), shareID); !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("disabled share must not resolve, got %v", err)
	}
}

func TestShareExpiryEnforcedLazily(t *testing.T) {
	cleanTables(t)
	user := createTestUser(t, "share_expiry")

	asset := uploadTestAsset(t, user.ID, "expiring.txt", []byte("soon gone"), nil)
	shareID, err := service.EnableShare(user.ID, asset.ID, 7)
	if err != nil {
		t.Fatal(err)
	}

	// Age the share past its expiry directly in the store.
	past := time.Now().Add(-time.Hour)
	if err := repo.Db.Model(&model.Asset{}).
		Where("id = ?", asset.ID).
		Update("share_expire_at", &past).Error; err != nil {
		t.Fatal(err)
	}
	repo.Redis.Del(context.Background(), "share:"+shareID)

	if _, _, err := service.ShareDownloadURL(context.Background(), shareID); !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("expired share must not resolve, got %v", err)
	}

	// The lazy check also flipped the asset private.
	var stored model.Asset
	if err := repo.Db.Where("id = ?", asset.ID).First(&stored).Error; err != nil {
		t.Fatal(err)
	}
	if stored.IsPublic || stored.ShareID != nil {
		t.Fatal("expired asset should be private again")
	}
}

func TestShareTrashedAssetRejected(t *testing.T) {
	cleanTables(t)
	user := createTestUser(t, "share_trashed")

	asset := uploadTestAsset(t, user.ID, "trashed.txt", []byte("bin fodder"), nil)
	if err := service.TrashAsset(user.ID, asset.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := service.EnableShare(user.ID, asset.ID, 0); !errors.Is(err, service.ErrPreconditionFailed) {
		t.Fatalf("sharing a trashed asset must fail, got %v", err)
	}
}
