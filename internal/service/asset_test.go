package service_test

import (
	"SkyVault/internal/dto"
	"SkyVault/internal/repo"
	"SkyVault/internal/service"
	"SkyVault/model"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"golang.org/x/net/context"
)

func TestConfirmUploadChargesDeclaredSize(t *testing.T) {
	cleanTables(t)
	user := createTestUser(t, "upload_charge")

	data := []byte("charged bytes")
	asset := uploadTestAsset(t, user.ID, "file.bin", data, nil)
	if asset.Size != int64(len(data)) {
		t.Fatalf("expect size %d, got %d", len(data), asset.Size)
	}
	if used := usedBytes(t, user.ID); used != int64(len(data)) {
		t.Fatalf("expect usage %d, got %d", len(data), used)
	}
}

func TestConfirmUploadNameConflict(t *testing.T) {
	cleanTables(t)
	user := createTestUser(t, "upload_conflict")

	uploadTestAsset(t, user.ID, "same.txt", []byte("one"), nil)
	hash := putTestContent(t, []byte("two"))
	_, err := service.ConfirmUpload(context.Background(), user.ID, "same.txt", hash, 3, nil)
	if !errors.Is(err, service.ErrConflict) {
		t.Fatalf("expect ErrConflict, got %v", err)
	}
	if used := usedBytes(t, user.ID); used != 3 {
		t.Fatalf("failed upload must not charge, got %d", used)
	}
}

func TestConfirmUploadIntoTrashedFolder(t *testing.T) {
	cleanTables(t)
	user := createTestUser(t, "upload_trashed")

	folder, err := service.CreateFolder(user.ID, nil, "doomed")
	if err != nil {
		t.Fatal(err)
	}
	if err := service.CascadeTrash(user.ID, folder.ID); err != nil {
		t.Fatal(err)
	}
	hash := putTestContent(t, []byte("late"))
	_, err = service.ConfirmUpload(context.Background(), user.ID, "late.txt", hash, 4, &folder.ID)
	if !errors.Is(err, service.ErrPreconditionFailed) {
		t.Fatalf("expect ErrPreconditionFailed, got %v", err)
	}
}

// The hash ends up inside an object key and a presigned URL, so anything but
// a hex digest must be refused at the door.
func TestUploadRejectsMalformedHash(t *testing.T) {
	cleanTables(t)
	user := createTestUser(t, "bad_hash")

	cases := []struct {
		name string
		hash string
	}{
		{"too short", "abc123"},
		{"non hex", strings.Repeat("zx", 32)},
		{"path traversal", strings.Repeat("./", 32)},
		{"embedded slash", strings.Repeat("a", 56) + "/escape."},
	}
	for _, tc := range cases {
		_, err := service.ConfirmUpload(context.Background(), user.ID, "f.bin", tc.hash, 4, nil)
		if !errors.Is(err, service.ErrInvalidArgument) {
			t.Fatalf("%s: confirm must reject, got %v", tc.name, err)
		}
		_, err = service.InitUpload(context.Background(), user.ID, &dto.UploadInitRequest{
			FileName: "f.bin",
			Size:     4,
			Hash:     tc.hash,
		})
		if !errors.Is(err, service.ErrInvalidArgument) {
			t.Fatalf("%s: init must reject before presigning, got %v", tc.name, err)
		}
	}
}

// A new active asset may take the name while the original sits in the trash;
// restoring the original must then conflict instead of duplicating the name.
func TestRestoreAssetNameTaken(t *testing.T) {
	cleanTables(t)
	user := createTestUser(t, "restore_taken")

	orig := uploadTestAsset(t, user.ID, "report.pdf", []byte("first draft"), nil)
	if err := service.TrashAsset(user.ID, orig.ID); err != nil {
		t.Fatal(err)
	}
	uploadTestAsset(t, user.ID, "report.pdf", []byte("second draft"), nil)

	if err := service.RestoreAsset(user.ID, orig.ID); !errors.Is(err, service.ErrConflict) {
		t.Fatalf("expect ErrConflict, got %v", err)
	}
	var a model.Asset
	if err := repo.Db.Where("id = ?", orig.ID).First(&a).Error; err != nil {
		t.Fatal(err)
	}
	if !a.IsDeleted {
		t.Fatal("failed restore must leave the asset trashed")
	}
}

func TestConfirmUploadUnbackedContent(t *testing.T) {
	cleanTables(t)
	user := createTestUser(t, "upload_unbacked")

	// A hash nobody ever PUT to the blob store.
	sum := sha256.Sum256([]byte("never uploaded"))
	hash := hex.EncodeToString(sum[:])
	_, err := service.ConfirmUpload(context.Background(), user.ID, "ghost.bin", hash, 14, nil)
	if !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("expect ErrNotFound for unbacked content, got %v", err)
	}
	if _, ok := contentRefCount(t, hash); ok {
		t.Fatal("failed confirm must roll back the content row")
	}
	if used := usedBytes(t, user.ID); used != 0 {
		t.Fatalf("failed confirm must not charge, got %d", used)
	}
}

func TestFastUploadPaths(t *testing.T) {
	cleanTables(t)
	user := createTestUser(t, "fast_upload")

	data := []byte("instant material")
	existing := uploadTestAsset(t, user.ID, "orig.bin", data, nil)

	// Known, backed hash links instantly.
	resp, err := service.FastUpload(context.Background(), user.ID, &dto.UploadInitRequest{
		FileName: "copy.bin",
		Size:     int64(len(data)),
		Hash:     existing.Hash,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Instant || resp.AssetID == 0 {
		t.Fatalf("expect instant link, got %+v", resp)
	}
	refs, _ := contentRefCount(t, existing.Hash)
	if refs != 2 {
		t.Fatalf("instant link must bump ref count, got %d", refs)
	}

	// Unknown hash reports need_upload.
	sum := sha256.Sum256([]byte("unknown"))
	resp, err = service.FastUpload(context.Background(), user.ID, &dto.UploadInitRequest{
		FileName: "new.bin",
		Size:     7,
		Hash:     hex.EncodeToString(sum[:]),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.NeedUpload || resp.Reason != "hash_not_found" {
		t.Fatalf("expect hash_not_found, got %+v", resp)
	}

	// Wrong declared size is refused.
	resp, err = service.FastUpload(context.Background(), user.ID, &dto.UploadInitRequest{
		FileName: "wrong.bin",
		Size:     int64(len(data)) + 1,
		Hash:     existing.Hash,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.NeedUpload || resp.Reason != "size_mismatch" {
		t.Fatalf("expect size_mismatch, got %+v", resp)
	}
}

func TestInitUploadPresignsForNewContent(t *testing.T) {
	cleanTables(t)
	user := createTestUser(t, "init_upload")

	sum := sha256.Sum256([]byte("fresh bytes"))
	resp, err := service.InitUpload(context.Background(), user.ID, &dto.UploadInitRequest{
		FileName: "fresh.bin",
		Size:     11,
		Hash:     hex.EncodeToString(sum[:]),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.NeedUpload || resp.UploadURL == "" {
		t.Fatalf("expect presigned upload URL, got %+v", resp)
	}
}

func TestTrashRestorePurgeAssetConservation(t *testing.T) {
	cleanTables(t)
	user := createTestUser(t, "conservation")

	data := []byte("conserved bytes")
	asset := uploadTestAsset(t, user.ID, "c.bin", data, nil)
	size := int64(len(data))

	if err := service.TrashAsset(user.ID, asset.ID); err != nil {
		t.Fatal(err)
	}
	if used := usedBytes(t, user.ID); used != size {
		t.Fatalf("trash keeps bytes charged, got %d", used)
	}

	if err := service.RestoreAsset(user.ID, asset.ID); err != nil {
		t.Fatal(err)
	}
	if err := service.RestoreAsset(user.ID, asset.ID); !errors.Is(err, service.ErrPreconditionFailed) {
		t.Fatalf("restoring an active asset must fail, got %v", err)
	}

	if err := service.TrashAsset(user.ID, asset.ID); err != nil {
		t.Fatal(err)
	}
	if err := service.PurgeAsset(context.Background(), user.ID, asset.ID); err != nil {
		t.Fatal(err)
	}
	if used := usedBytes(t, user.ID); used != 0 {
		t.Fatalf("purge must refund, got %d", used)
	}
	if err := service.PurgeAsset(context.Background(), user.ID, asset.ID); !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("second purge must be ErrNotFound, got %v", err)
	}
}

func TestRestoreAssetInTrashedFolder(t *testing.T) {
	cleanTables(t)
	user := createTestUser(t, "restore_blocked")

	folder, _ := service.CreateFolder(user.ID, nil, "home")
	asset := uploadTestAsset(t, user.ID, "a.txt", []byte("x"), &folder.ID)

	if err := service.CascadeTrash(user.ID, folder.ID); err != nil {
		t.Fatal(err)
	}
	err := service.RestoreAsset(user.ID, asset.ID)
	if !errors.Is(err, service.ErrPreconditionFailed) {
		t.Fatalf("restore into trashed folder must fail, got %v", err)
	}
}

func TestMoveAssetsToTrashedFolder(t *testing.T) {
	cleanTables(t)
	user := createTestUser(t, "move_blocked")

	target, _ := service.CreateFolder(user.ID, nil, "target")
	asset := uploadTestAsset(t, user.ID, "m.txt", []byte("m"), nil)

	if err := service.CascadeTrash(user.ID, target.ID); err != nil {
		t.Fatal(err)
	}
	err := service.MoveAssets(user.ID, []uint64{asset.ID}, &target.ID)
	if !errors.Is(err, service.ErrPreconditionFailed) {
		t.Fatalf("move into trashed folder must fail, got %v", err)
	}
}

func TestListAndSearchAssets(t *testing.T) {
	cleanTables(t)
	user := createTestUser(t, "listing")

	folder, _ := service.CreateFolder(user.ID, nil, "pics")
	uploadTestAsset(t, user.ID, "report.pdf", []byte("r"), nil)
	uploadTestAsset(t, user.ID, "holiday.jpg", []byte("h"), &folder.ID)
	trashed := uploadTestAsset(t, user.ID, "old_report.pdf", []byte("o"), nil)
	if err := service.TrashAsset(user.ID, trashed.ID); err != nil {
		t.Fatal(err)
	}

	assets, total, err := service.ListAssets(user.ID, &dto.AssetListRequest{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(assets) != 1 || assets[0].Name != "report.pdf" {
		t.Fatalf("root listing wrong: total=%d assets=%v", total, assets)
	}

	assets, total, err = service.ListAssets(user.ID, &dto.AssetListRequest{FolderID: &folder.ID, Page: 1, PageSize: 10})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || assets[0].Name != "holiday.jpg" {
		t.Fatalf("folder listing wrong: total=%d", total)
	}

	assets, total, err = service.SearchAssets(user.ID, &dto.AssetSearchRequest{Query: "report", Page: 1, PageSize: 10})
	if err != nil {
		t.Fatal(err)
	}
	// Trashed assets stay out of search results.
	if total != 1 || assets[0].Name != "report.pdf" {
		t.Fatalf("search wrong: total=%d", total)
	}

	folders, assetsInTrash, err := service.ListTrash(user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(folders) != 0 || len(assetsInTrash) != 1 {
		t.Fatalf("trash listing wrong: %d folders, %d assets", len(folders), len(assetsInTrash))
	}
}
