package service

import (
	"SkyVault/config"
	"SkyVault/model"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetOrCreateQuota returns the user's quota row, creating it lazily with the
// configured defaults. The insert ignores the duplicate-key race.
func GetOrCreateQuota(db *gorm.DB, userID uint64) (*model.Quota, error) {
	quota := model.Quota{
		UserID:     userID,
		UsedBytes:  0,
		LimitBytes: config.AppConfig.QuotaBytesDefault,
		RateLimit:  config.AppConfig.RateLimitDefault,
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&quota).Error; err != nil {
		return nil, err
	}
	var stored model.Quota
	if err := db.Where("user_id = ?", userID).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// CheckQuota fails with ErrQuotaExceeded if charging delta more bytes would
// push the user past their limit.
func CheckQuota(db *gorm.DB, userID uint64, delta int64) error {
	quota, err := GetOrCreateQuota(db, userID)
	if err != nil {
		return err
	}
	if delta > 0 && quota.UsedBytes+delta > quota.LimitBytes {
		return fmt.Errorf("used %d + %d exceeds limit %d: %w",
			quota.UsedBytes, delta, quota.LimitBytes, ErrQuotaExceeded)
	}
	return nil
}

// AdjustUsage charges or refunds bytes on the user's quota row. The update is
// a store-side expression clamped at zero, so concurrent adjustments never
// lose updates and accounting drift cannot push usage negative.
func AdjustUsage(db *gorm.DB, userID uint64, delta int64) error {
	if delta == 0 {
		return nil
	}
	if _, err := GetOrCreateQuota(db, userID); err != nil {
		return err
	}
	return db.Model(&model.Quota{}).
		Where("user_id = ?", userID).
		UpdateColumn("used_bytes", gorm.Expr("GREATEST(0, used_bytes + ?)", delta)).Error
}

// AllowRequest applies the fixed-window rate limit for one request at time
// now. Counting is aligned to window boundaries; a burst straddling a
// boundary can briefly pass up to twice the limit, which is accepted.
func AllowRequest(db *gorm.DB, userID uint64, now time.Time) error {
	quota, err := GetOrCreateQuota(db, userID)
	if err != nil {
		return err
	}
	window := config.AppConfig.RateWindow
	if window <= 0 {
		window = time.Second
	}
	limit := quota.RateLimit
	if limit <= 0 {
		return fmt.Errorf("rate limit %d allows nothing: %w", limit, ErrRateLimited)
	}
	windowStart := now.Truncate(window)

	// Guarded increment: only succeeds while the window has headroom, so
	// the counter never passes the limit and a rejected request does not
	// consume budget.
	res := db.Model(&model.RateWindow{}).
		Where("user_id = ? AND window_start = ? AND count < ?", userID, windowStart, limit).
		UpdateColumn("count", gorm.Expr("count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Either the window row does not exist yet or it is full.
		row := model.RateWindow{UserID: userID, WindowStart: windowStart, Count: 1}
		ins := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "window_start"}},
			DoNothing: true,
		}).Create(&row)
		if ins.Error != nil {
			return ins.Error
		}
		if ins.RowsAffected == 0 {
			// Row appeared concurrently; retry the guarded increment once.
			retry := db.Model(&model.RateWindow{}).
				Where("user_id = ? AND window_start = ? AND count < ?", userID, windowStart, limit).
				UpdateColumn("count", gorm.Expr("count + 1"))
			if retry.Error != nil {
				return retry.Error
			}
			if retry.RowsAffected == 0 {
				return fmt.Errorf("%d requests in window: %w", limit, ErrRateLimited)
			}
		}
	}

	sweepRateWindows(db, userID, windowStart, window)
	return nil
}

// sweepRateWindows opportunistically drops this user's stale window rows to
// bound table growth. Failures are ignored; the next request retries.
func sweepRateWindows(db *gorm.DB, userID uint64, windowStart time.Time, window time.Duration) {
	factor := config.AppConfig.RateSweepFactor
	if factor <= 0 {
		factor = 60
	}
	horizon := windowStart.Add(-time.Duration(factor) * window)
	_ = db.Where("user_id = ? AND window_start < ?", userID, horizon).
		Delete(&model.RateWindow{}).Error
}

// IsAdmissionError reports whether err is one of the admission-control kinds.
func IsAdmissionError(err error) bool {
	return errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrRateLimited)
}
