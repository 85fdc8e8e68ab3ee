package service_test

import (
	"SkyVault/internal/service"
	"errors"
	"strings"
	"testing"

	"golang.org/x/net/context"
)

func TestGetContentType(t *testing.T) {
	cases := map[string]string{
		"photo.JPG":   "image/jpeg",
		"doc.pdf":     "application/pdf",
		"notes.txt":   "text/plain; charset=utf-8",
		"archive.zip": "application/zip",
		"mystery":     "application/octet-stream",
	}
	for name, want := range cases {
		if got := service.GetContentType(name); got != want {
			t.Fatalf("%s: expect %s, got %s", name, want, got)
		}
	}
}

func TestAssetDownloadURL(t *testing.T) {
	cleanTables(t)
	user := createTestUser(t, "dl_url")

	asset := uploadTestAsset(t, user.ID, "report.pdf", []byte("pdf bytes"), nil)
	url, err := service.AssetDownloadURL(context.Background(), user.ID, asset.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(url, service.BuildContentKey(asset.Hash)) {
		t.Fatalf("url should address the content key: %s", url)
	}

	if err := service.TrashAsset(user.ID, asset.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := service.AssetDownloadURL(context.Background(), user.ID, asset.ID); !errors.Is(err, service.ErrPreconditionFailed) {
		t.Fatalf("trashed asset must not presign, got %v", err)
	}

	// Another user's asset is invisible.
	other := createTestUser(t, "dl_other")
	if _, err := service.AssetPreviewURL(context.Background(), other.ID, asset.ID); !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("cross-user access must be ErrNotFound, got %v", err)
	}
}
