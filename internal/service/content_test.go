package service_test

import (
	"SkyVault/internal/repo"
	"SkyVault/internal/service"
	"SkyVault/model"
	"errors"
	"fmt"
	"sync"
	"testing"

	"golang.org/x/net/context"
	"gorm.io/gorm"
)

func TestBuildContentKey(t *testing.T) {
	got := service.BuildContentKey("abc123")
	if got != "content/abc123" {
		t.Fatalf("expect content/abc123, got %s", got)
	}
}

// Two uploads of identical bytes must share one content row with ref count 2,
// and each release must drop exactly one reference.
func TestDedupSharedContent(t *testing.T) {
	cleanTables(t)
	userA := createTestUser(t, "dedup_a")
	userB := createTestUser(t, "dedup_b")

	data := []byte("same bytes either way")
	assetA := uploadTestAsset(t, userA.ID, "a.bin", data, nil)
	assetB := uploadTestAsset(t, userB.ID, "b.bin", data, nil)

	if assetA.Hash != assetB.Hash {
		t.Fatalf("hashes differ: %s vs %s", assetA.Hash, assetB.Hash)
	}
	var count int64
	repo.Db.Model(&model.ContentObject{}).Where("hash = ?", assetA.Hash).Count(&count)
	if count != 1 {
		t.Fatalf("expect 1 content row, got %d", count)
	}
	refs, ok := contentRefCount(t, assetA.Hash)
	if !ok || refs != 2 {
		t.Fatalf("expect ref count 2, got %d (found=%v)", refs, ok)
	}

	if err := service.PurgeAsset(context.Background(), userA.ID, assetA.ID); err != nil {
		t.Fatalf("purge A failed: %v", err)
	}
	refs, ok = contentRefCount(t, assetA.Hash)
	if !ok || refs != 1 {
		t.Fatalf("after first purge expect ref 1, got %d (found=%v)", refs, ok)
	}

	if err := service.PurgeAsset(context.Background(), userB.ID, assetB.ID); err != nil {
		t.Fatalf("purge B failed: %v", err)
	}
	if _, ok := contentRefCount(t, assetA.Hash); ok {
		t.Fatal("content row should be gone after last release")
	}
}

// Uploading a known hash with a different declared size must be rejected
// rather than silently linking to the wrong bytes.
func TestLinkSizeMismatch(t *testing.T) {
	cleanTables(t)
	user := createTestUser(t, "mismatch")

	data := []byte("sized content")
	asset := uploadTestAsset(t, user.ID, "orig.bin", data, nil)

	_, err := service.ConfirmUpload(context.Background(), user.ID, "liar.bin", asset.Hash, int64(len(data))+7, nil)
	if !errors.Is(err, service.ErrInvalidArgument) {
		t.Fatalf("expect ErrInvalidArgument, got %v", err)
	}
	refs, _ := contentRefCount(t, asset.Hash)
	if refs != 1 {
		t.Fatalf("failed link must not change ref count, got %d", refs)
	}
}

// N concurrent purges of assets sharing one content must release exactly N
// references with no double free and no negative usage.
func TestConcurrentPurgeNoDoubleFree(t *testing.T) {
	cleanTables(t)
	user := createTestUser(t, "conc_purge")

	const n = 8
	data := []byte("shared blob for concurrent purge")
	assets := make([]*model.Asset, n)
	for i := 0; i < n; i++ {
		assets[i] = uploadTestAsset(t, user.ID, fmt.Sprintf("copy_%d.bin", i), data, nil)
	}
	refs, _ := contentRefCount(t, assets[0].Hash)
	if refs != n {
		t.Fatalf("expect ref count %d, got %d", n, refs)
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			errs <- service.PurgeAsset(context.Background(), user.ID, id)
		}(assets[i].ID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent purge failed: %v", err)
		}
	}

	if _, ok := contentRefCount(t, assets[0].Hash); ok {
		t.Fatal("content row should be gone")
	}
	if used := usedBytes(t, user.ID); used != 0 {
		t.Fatalf("usage should be fully refunded, got %d", used)
	}
}

// N concurrent first uploads of one fresh hash must collapse into a single
// content row at ref count N; the insert-or-increment must never race into
// duplicate rows or lost increments.
func TestConcurrentFirstUploadSingleRow(t *testing.T) {
	cleanTables(t)
	user := createTestUser(t, "conc_link")

	const n = 8
	data := []byte("shared blob for concurrent link")
	hash := putTestContent(t, data)

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := service.ConfirmUpload(context.Background(), user.ID,
				fmt.Sprintf("copy_%d.bin", i), hash, int64(len(data)), nil)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent upload failed: %v", err)
		}
	}

	var count int64
	repo.Db.Model(&model.ContentObject{}).Where("hash = ?", hash).Count(&count)
	if count != 1 {
		t.Fatalf("expect 1 content row, got %d", count)
	}
	refs, ok := contentRefCount(t, hash)
	if !ok || refs != n {
		t.Fatalf("expect ref count %d, got %d (found=%v)", n, refs, ok)
	}
	if used := usedBytes(t, user.ID); used != int64(n*len(data)) {
		t.Fatalf("expect usage %d, got %d", n*len(data), used)
	}
}

// A release of an unknown hash must fail instead of inventing a negative
// counter.
func TestReleaseUnknownContent(t *testing.T) {
	cleanTables(t)

	err := repo.Db.Transaction(func(tx *gorm.DB) error {
		_, err := service.ReleaseContent(tx, "deadbeef")
		return err
	})
	if !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("expect ErrNotFound, got %v", err)
	}
}
