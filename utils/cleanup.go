package utils

import (
	"context"
	"time"

	"github.com/vnkhanh/e-learning-backend/models"
	"gorm.io/gorm"
)

const cleanupInterval = 6 * time.Hour

// CleanupReadNotifications xóa các thông báo đã đọc trước thời điểm before
func CleanupReadNotifications(ctx context.Context, db *gorm.DB, before time.Time) (int64, error) {
	result := db.WithContext(ctx).
		Where("is_read = ? AND read_at < ?", true, before).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}

// StartCleanupJob chạy cleanup ngay khi khởi động rồi mỗi 6 giờ, dừng khi ctx bị hủy
func StartCleanupJob(ctx context.Context, db *gorm.DB, log *Logger, retention time.Duration) {
	run := func() {
		n, err := CleanupReadNotifications(ctx, db, time.Now().Add(-retention))
		if err != nil {
			log.Error("notification cleanup failed", "error", err)
			return
		}
		if n > 0 {
			log.Info("notification cleanup done", "deleted", n)
		}
	}

	run()
	ticker := time.NewTicker(cleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run()
			}
		}
	}()
	log.Info("cleanup job started", "interval", cleanupInterval, "retention", retention)
}
