package services

import (
	"time"

	"github.com/vnkhanh/e-learning-backend/utils"
	"gorm.io/gorm"
)

// Options là các tham số nghiệp vụ đọc từ config
type Options struct {
	// Múi giờ dùng để chia ngày khi tính streak và thống kê theo tháng
	Location *time.Location
	// Mục tiêu số giờ học mỗi tuần hiển thị trên dashboard
	WeeklyGoalHours float64
	// Bắt buộc hoàn thành 100% bài học trước khi đánh dấu hoàn thành khóa học
	RequireFullProgress bool
	Buckets             Buckets
	Now                 func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.WeeklyGoalHours <= 0 {
		o.WeeklyGoalHours = 10
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	o.Buckets = o.Buckets.withDefaults()
	return o
}

type Services struct {
	Catalog        *CatalogService
	Enrollment     *EnrollmentService
	AccessRequests *AccessRequestService
	Progress       *ProgressService
	Metrics        *MetricsService
	Users          *UserService
	Notifications  *NotificationService
	Uploads        *UploadService
}

func New(db *gorm.DB, log *utils.Logger, opts Options, notifier Notifier, storage ObjectStorage) *Services {
	opts = opts.withDefaults()
	if notifier == nil {
		notifier = nopNotifier{}
	}

	notifications := NewNotificationService(db, log, notifier)
	gate := NewEnrollmentService(db, log, opts.Now)

	return &Services{
		Catalog:        NewCatalogService(db, log, gate),
		Enrollment:     gate,
		AccessRequests: NewAccessRequestService(db, log, notifications, opts.Now),
		Progress:       NewProgressService(db, log, gate, notifications, opts.RequireFullProgress, opts.Now),
		Metrics:        NewMetricsService(db, log, opts.Location, opts.WeeklyGoalHours, opts.Now),
		Users:          NewUserService(db, log),
		Notifications:  notifications,
		Uploads:        NewUploadService(storage, opts.Buckets, log),
	}
}
