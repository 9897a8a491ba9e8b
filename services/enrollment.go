package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/vnkhanh/e-learning-backend/models"
	"github.com/vnkhanh/e-learning-backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccessReason string

const (
	ReasonAdmin                 AccessReason = "admin"
	ReasonEnrolled              AccessReason = "enrolled"
	ReasonAutoEnrolled          AccessReason = "auto_enrolled"
	ReasonRequiresAccessRequest AccessReason = "requires_access_request"
)

type AccessDecision struct {
	Allowed        bool               `json:"allowed"`
	Reason         AccessReason       `json:"reason"`
	PendingRequest bool               `json:"pending_request"`
	Enrollment     *models.Enrollment `json:"enrollment,omitempty"`
}

// EnrollmentService quyết định user có được xem nội dung khóa học hay không
type EnrollmentService struct {
	db  *gorm.DB
	log *utils.Logger
	now func() time.Time
}

func NewEnrollmentService(db *gorm.DB, log *utils.Logger, now func() time.Time) *EnrollmentService {
	return &EnrollmentService{db: db, log: log.With("service", "EnrollmentService"), now: now}
}

// CanAccess: khóa free thì tự ghi danh ở lần truy cập đầu, khóa private chỉ cho qua khi đã có enrollment
func (s *EnrollmentService) CanAccess(ctx context.Context, sess Session, courseID uuid.UUID) (*AccessDecision, error) {
	if err := sess.require(); err != nil {
		return nil, err
	}
	course, err := loadVisibleCourse(ctx, s.db, sess, courseID)
	if err != nil {
		return nil, err
	}
	if sess.IsAdmin() {
		return &AccessDecision{Allowed: true, Reason: ReasonAdmin}, nil
	}

	enrollment, err := findEnrollment(ctx, s.db, sess.UserID, courseID)
	if err != nil {
		return nil, err
	}
	if enrollment != nil {
		return &AccessDecision{Allowed: true, Reason: ReasonEnrolled, Enrollment: enrollment}, nil
	}

	if course.CourseType == models.CoursePrivate {
		pending, err := hasPendingRequest(ctx, s.db, sess.UserID, courseID)
		if err != nil {
			return nil, err
		}
		return &AccessDecision{Allowed: false, Reason: ReasonRequiresAccessRequest, PendingRequest: pending}, nil
	}

	enrollment, created, err := ensureEnrollment(ctx, s.db, sess.UserID, courseID, s.now())
	if err != nil {
		return nil, err
	}
	reason := ReasonEnrolled
	if created {
		reason = ReasonAutoEnrolled
		s.log.Info("auto enrolled", "user_id", sess.UserID, "course_id", courseID)
	}
	return &AccessDecision{Allowed: true, Reason: reason, Enrollment: enrollment}, nil
}

// Enroll ghi danh chủ động. Gọi lại nhiều lần vẫn trả về cùng một enrollment.
func (s *EnrollmentService) Enroll(ctx context.Context, sess Session, courseID uuid.UUID) (*models.Enrollment, error) {
	if err := sess.require(); err != nil {
		return nil, err
	}
	course, err := loadVisibleCourse(ctx, s.db, sess, courseID)
	if err != nil {
		return nil, err
	}

	if course.CourseType == models.CoursePrivate {
		enrollment, err := findEnrollment(ctx, s.db, sess.UserID, courseID)
		if err != nil {
			return nil, err
		}
		if enrollment == nil {
			return nil, ErrAccessRequestRequired
		}
		return enrollment, nil
	}

	enrollment, _, err := ensureEnrollment(ctx, s.db, sess.UserID, courseID, s.now())
	return enrollment, err
}

// loadVisibleCourse trả ErrNotFound khi khóa học chưa publish và người gọi không phải admin
func loadVisibleCourse(ctx context.Context, db *gorm.DB, sess Session, courseID uuid.UUID) (*models.Course, error) {
	var course models.Course
	if err := db.WithContext(ctx).First(&course, "id = ?", courseID).Error; err != nil {
		return nil, storageErr(err)
	}
	if !course.IsPublished && !sess.IsAdmin() {
		return nil, ErrNotFound
	}
	return &course, nil
}

func findEnrollment(ctx context.Context, db *gorm.DB, userID, courseID uuid.UUID) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&enrollment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr(err)
	}
	return &enrollment, nil
}

func hasPendingRequest(ctx context.Context, db *gorm.DB, userID, courseID uuid.UUID) (bool, error) {
	var count int64
	if err := db.WithContext(ctx).Model(&models.AccessRequest{}).
		Where("user_id = ? AND course_id = ? AND status = ?", userID, courseID, models.RequestPending).
		Count(&count).Error; err != nil {
		return false, storageErr(err)
	}
	return count > 0, nil
}

// ensureEnrollment tạo enrollment nếu chưa có. Unique index (user_id, course_id) + ON CONFLICT DO NOTHING
// đảm bảo các request đồng thời chỉ tạo đúng một bản ghi. created = true nếu bản ghi do lời gọi này tạo.
func ensureEnrollment(ctx context.Context, db *gorm.DB, userID, courseID uuid.UUID, now time.Time) (*models.Enrollment, bool, error) {
	enrollment := models.Enrollment{
		UserID:     userID,
		CourseID:   courseID,
		EnrolledAt: now,
	}
	res := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&enrollment)
	if res.Error != nil {
		return nil, false, storageErr(res.Error)
	}
	if res.RowsAffected == 1 {
		return &enrollment, true, nil
	}

	existing, err := findEnrollment(ctx, db, userID, courseID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, ErrStorageFailure
	}
	return existing, false, nil
}
