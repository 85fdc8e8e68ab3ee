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

func TestQuotaLazyCreation(t *testing.T) {
	cleanTables(t)
	user := createTestUser(t, "quota_lazy")

	quota, err := service.GetOrCreateQuota(repo.Db, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if quota.UsedBytes != 0 {
		t.Fatalf("fresh quota should start at 0, got %d", quota.UsedBytes)
	}
	if quota.LimitBytes <= 0 {
		t.Fatalf("fresh quota should carry the default limit, got %d", quota.LimitBytes)
	}

	again, err := service.GetOrCreateQuota(repo.Db, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != quota.ID {
		t.Fatal("second call must reuse the same quota row")
	}
}

func TestQuotaRejectsOverLimit(t *testing.T) {
	cleanTables(t)
	user := createTestUser(t, "quota_limit")
	setQuotaLimit(t, user.ID, 100)

	data := make([]byte, 101)
	hash := putTestContent(t, data)
	_, err := service.ConfirmUpload(context.Background(), user.ID, "big.bin", hash, int64(len(data)), nil)
	if !errors.Is(err, service.ErrQuotaExceeded) {
		t.Fatalf("expect ErrQuotaExceeded, got %v", err)
	}
	if used := usedBytes(t, user.ID); used != 0 {
		t.Fatalf("rejected upload must not charge, got %d", used)
	}
	if _, ok := contentRefCount(t, hash); ok {
		t.Fatal("rejected upload must roll back the content link")
	}
}

// Two users with the same 1 GiB limit each fit a 500 MiB declared upload;
// the second upload of either user must be rejected.
func TestQuotaPerUserIndependence(t *testing.T) {
	cleanTables(t)
	userA := createTestUser(t, "quota_ind_a")
	userB := createTestUser(t, "quota_ind_b")
	const limit = int64(1 << 30)
	const half = int64(500 << 20)
	setQuotaLimit(t, userA.ID, limit)
	setQuotaLimit(t, userB.ID, limit)

	// Declared sizes drive accounting; no physical bytes needed here.
	if err := service.CheckQuota(repo.Db, userA.ID, half); err != nil {
		t.Fatalf("first half should fit: %v", err)
	}
	if err := service.AdjustUsage(repo.Db, userA.ID, half); err != nil {
		t.Fatal(err)
	}
	if err := service.CheckQuota(repo.Db, userA.ID, half); err != nil {
		t.Fatalf("second half should still fit: %v", err)
	}
	if err := service.AdjustUsage(repo.Db, userA.ID, half); err != nil {
		t.Fatal(err)
	}
	if err := service.CheckQuota(repo.Db, userA.ID, half); !errors.Is(err, service.ErrQuotaExceeded) {
		t.Fatalf("third half must exceed, got %v", err)
	}

	// User B is untouched by A's consumption.
	if err := service.CheckQuota(repo.Db, userB.ID, half); err != nil {
		t.Fatalf("user B should have full headroom: %v", err)
	}
	if used := usedBytes(t, userB.ID); used != 0 {
		t.Fatalf("user B usage should be 0, got %d", used)
	}
}

func TestAdjustUsageClampsAtZero(t *testing.T) {
	cleanTables(t)
	user := createTestUser(t, "quota_clamp")

	if err := service.AdjustUsage(repo.Db, user.ID, -500); err != nil {
		t.Fatal(err)
	}
	if used := usedBytes(t, user.ID); used != 0 {
		t.Fatalf("usage must clamp at zero, got %d", used)
	}
}

func TestRateLimitWindowBoundary(t *testing.T) {
	cleanTables(t)
	user := createTestUser(t, "rate_boundary")
	setRateLimit(t, user.ID, 2)

	window := time.Second
	base := time.Now().Truncate(window)

	if err := service.AllowRequest(repo.Db, user.ID, base); err != nil {
		t.Fatalf("first request should pass: %v", err)
	}
	if err := service.AllowRequest(repo.Db, user.ID, base.Add(100*time.Millisecond)); err != nil {
		t.Fatalf("second request should pass: %v", err)
	}
	err := service.AllowRequest(repo.Db, user.ID, base.Add(200*time.Millisecond))
	if !errors.Is(err, service.ErrRateLimited) {
		t.Fatalf("third request must be limited, got %v", err)
	}

	// The next window starts fresh.
	if err := service.AllowRequest(repo.Db, user.ID, base.Add(window)); err != nil {
		t.Fatalf("request in new window should pass: %v", err)
	}

	var row model.RateWindow
	if err := repo.Db.Where("user_id = ? AND window_start = ?", user.ID, base).First(&row).Error; err != nil {
		t.Fatal(err)
	}
	if row.Count != 2 {
		t.Fatalf("rejected request must not consume budget, count = %d", row.Count)
	}
}

func TestRateLimitSweepsStaleWindows(t *testing.T) {
	cleanTables(t)
	user := createTestUser(t, "rate_sweep")
	setRateLimit(t, user.ID, 10)

	window := time.Second
	old := time.Now().Truncate(window).Add(-2 * time.Hour)
	if err := repo.Db.Create(&model.RateWindow{UserID: user.ID, WindowStart: old, Count: 3}).Error; err != nil {
		t.Fatal(err)
	}

	if err := service.AllowRequest(repo.Db, user.ID, time.Now()); err != nil {
		t.Fatal(err)
	}

	var count int64
	repo.Db.Model(&model.RateWindow{}).
		Where("user_id = ? AND window_start = ?", user.ID, old).
		Count(&count)
	if count != 0 {
		t.Fatal("stale window row should have been swept")
	}
}

func TestIsAdmissionError(t *testing.T) {
	if !service.IsAdmissionError(service.ErrQuotaExceeded) {
		t.Fatal("quota errors are admission errors")
	}
	if !service.IsAdmissionError(service.ErrRateLimited) {
		t.Fatal("rate errors are admission errors")
	}
	if service.IsAdmissionError(service.ErrNotFound) {
		t.Fatal("not-found is not an admission error")
	}
}
