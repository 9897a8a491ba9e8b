package services

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/vnkhanh/e-learning-backend/models"
	"github.com/vnkhanh/e-learning-backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Progress là tiến độ của một user trong một khóa học
type Progress struct {
	TotalLessons     int `json:"total_lessons"`
	CompletedLessons int `json:"completed_lessons"`
	Percentage       int `json:"percentage"`
}

// NewProgress tính phần trăm làm tròn, bằng 0 khi khóa học chưa có bài học
func NewProgress(total, completed int) Progress {
	if completed > total {
		completed = total
	}
	p := Progress{TotalLessons: total, CompletedLessons: completed}
	if total > 0 {
		p.Percentage = int(math.Round(100 * float64(completed) / float64(total)))
	}
	return p
}

type EnrolledCourse struct {
	models.Enrollment
	Progress Progress `json:"progress"`
}

type ProgressService struct {
	db                  *gorm.DB
	log                 *utils.Logger
	gate                *EnrollmentService
	notifications       *NotificationService
	requireFullProgress bool
	now                 func() time.Time
}

func NewProgressService(db *gorm.DB, log *utils.Logger, gate *EnrollmentService, notifications *NotificationService, requireFullProgress bool, now func() time.Time) *ProgressService {
	return &ProgressService{
		db:                  db,
		log:                 log.With("service", "ProgressService"),
		gate:                gate,
		notifications:       notifications,
		requireFullProgress: requireFullProgress,
		now:                 now,
	}
}

func (s *ProgressService) CourseProgress(ctx context.Context, sess Session, courseID uuid.UUID) (*Progress, error) {
	if err := sess.require(); err != nil {
		return nil, err
	}
	if _, err := loadVisibleCourse(ctx, s.db, sess, courseID); err != nil {
		return nil, err
	}
	p, err := courseProgress(ctx, s.db, sess.UserID, courseID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func courseProgress(ctx context.Context, db *gorm.DB, userID, courseID uuid.UUID) (Progress, error) {
	lessonIDs, err := courseLessonIDs(ctx, db, courseID)
	if err != nil {
		return Progress{}, err
	}
	if len(lessonIDs) == 0 {
		return NewProgress(0, 0), nil
	}

	var completed int64
	if err := db.WithContext(ctx).Model(&models.LessonProgress{}).
		Where("user_id = ? AND lesson_id IN ?", userID, lessonIDs).
		Distinct("lesson_id").
		Count(&completed).Error; err != nil {
		return Progress{}, storageErr(err)
	}
	return NewProgress(len(lessonIDs), int(completed)), nil
}

func courseLessonIDs(ctx context.Context, db *gorm.DB, courseID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := db.WithContext(ctx).Model(&models.Lesson{}).
		Joins("JOIN modules ON modules.id = lessons.module_id").
		Where("modules.course_id = ?", courseID).
		Pluck("lessons.id", &ids).Error; err != nil {
		return nil, storageErr(err)
	}
	return ids, nil
}

// MarkLessonComplete ghi nhận hoàn thành bài học. Gọi lại với bài đã hoàn thành không tạo thêm bản ghi.
func (s *ProgressService) MarkLessonComplete(ctx context.Context, sess Session, lessonID uuid.UUID) (*models.LessonProgress, error) {
	if err := sess.require(); err != nil {
		return nil, err
	}

	var courseIDs []uuid.UUID
	if err := s.db.WithContext(ctx).Model(&models.Lesson{}).
		Joins("JOIN modules ON modules.id = lessons.module_id").
		Where("lessons.id = ?", lessonID).
		Pluck("modules.course_id", &courseIDs).Error; err != nil {
		return nil, storageErr(err)
	}
	if len(courseIDs) == 0 {
		return nil, ErrNotFound
	}

	decision, err := s.gate.CanAccess(ctx, sess, courseIDs[0])
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, ErrForbidden
	}

	row := models.LessonProgress{
		UserID:      sess.UserID,
		LessonID:    lessonID,
		CompletedAt: s.now(),
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return nil, storageErr(err)
	}

	var stored models.LessonProgress
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND lesson_id = ?", sess.UserID, lessonID).
		First(&stored).Error; err != nil {
		return nil, storageErr(err)
	}
	return &stored, nil
}

// CompleteCourse đánh dấu hoàn thành khóa học. Lần đánh dấu đầu tiên được giữ lại.
func (s *ProgressService) CompleteCourse(ctx context.Context, sess Session, courseID uuid.UUID) (*models.Enrollment, error) {
	if err := sess.require(); err != nil {
		return nil, err
	}
	course, err := loadVisibleCourse(ctx, s.db, sess, courseID)
	if err != nil {
		return nil, err
	}
	enrollment, err := findEnrollment(ctx, s.db, sess.UserID, courseID)
	if err != nil {
		return nil, err
	}
	if enrollment == nil {
		return nil, ErrNotEnrolled
	}
	if enrollment.CompletedAt != nil {
		return enrollment, nil
	}

	if s.requireFullProgress {
		p, err := courseProgress(ctx, s.db, sess.UserID, courseID)
		if err != nil {
			return nil, err
		}
		if p.CompletedLessons < p.TotalLessons {
			return nil, ErrCourseIncomplete
		}
	}

	now := s.now()
	res := s.db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("id = ? AND completed_at IS NULL", enrollment.ID).
		Update("completed_at", now)
	if res.Error != nil {
		return nil, storageErr(res.Error)
	}
	if res.RowsAffected == 0 {
		// một request khác đã đánh dấu trước
		return findEnrollment(ctx, s.db, sess.UserID, courseID)
	}
	enrollment.CompletedAt = &now

	s.log.Info("course completed", "user_id", sess.UserID, "course_id", courseID)
	if s.notifications != nil {
		if _, err := s.notifications.deliver(ctx, []uuid.UUID{sess.UserID}, NotificationInput{
			Title:           "Course completed",
			Message:         "Congratulations! You completed " + course.Title + ".",
			Type:            models.NotificationSuccess,
			Category:        models.CategoryAchievement,
			RelatedEntityID: &course.ID,
		}); err != nil {
			s.log.Warn("failed to send completion notification", "error", err)
		}
	}
	return enrollment, nil
}

// CompletedLessonIDs trả danh sách bài học user đã hoàn thành trong khóa học
func (s *ProgressService) CompletedLessonIDs(ctx context.Context, sess Session, courseID uuid.UUID) ([]uuid.UUID, error) {
	if err := sess.require(); err != nil {
		return nil, err
	}
	if _, err := loadVisibleCourse(ctx, s.db, sess, courseID); err != nil {
		return nil, err
	}
	lessonIDs, err := courseLessonIDs(ctx, s.db, courseID)
	if err != nil {
		return nil, err
	}
	ids := []uuid.UUID{}
	if len(lessonIDs) == 0 {
		return ids, nil
	}
	if err := s.db.WithContext(ctx).Model(&models.LessonProgress{}).
		Where("user_id = ? AND lesson_id IN ?", sess.UserID, lessonIDs).
		Pluck("lesson_id", &ids).Error; err != nil {
		return nil, storageErr(err)
	}
	return ids, nil
}

// EnrolledCourses trả các khóa đã ghi danh kèm tiến độ, mới nhất trước
func (s *ProgressService) EnrolledCourses(ctx context.Context, sess Session) ([]EnrolledCourse, error) {
	if err := sess.require(); err != nil {
		return nil, err
	}

	var enrollments []models.Enrollment
	if err := s.db.WithContext(ctx).
		Preload("Course.Category").
		Where("user_id = ?", sess.UserID).
		Order("enrolled_at DESC").
		Find(&enrollments).Error; err != nil {
		return nil, storageErr(err)
	}

	courseIDs := make([]uuid.UUID, 0, len(enrollments))
	for _, e := range enrollments {
		courseIDs = append(courseIDs, e.CourseID)
	}
	progress, err := progressByCourse(ctx, s.db, sess.UserID, courseIDs)
	if err != nil {
		return nil, err
	}

	out := make([]EnrolledCourse, 0, len(enrollments))
	for _, e := range enrollments {
		out = append(out, EnrolledCourse{Enrollment: e, Progress: progress[e.CourseID]})
	}
	return out, nil
}

type lessonCourseRow struct {
	LessonID uuid.UUID
	CourseID uuid.UUID
}

func lessonsOfCourses(ctx context.Context, db *gorm.DB, courseIDs []uuid.UUID) ([]lessonCourseRow, error) {
	var rows []lessonCourseRow
	query := db.WithContext(ctx).Model(&models.Lesson{}).
		Select("lessons.id AS lesson_id, modules.course_id AS course_id").
		Joins("JOIN modules ON modules.id = lessons.module_id")
	if courseIDs != nil {
		if len(courseIDs) == 0 {
			return rows, nil
		}
		query = query.Where("modules.course_id IN ?", courseIDs)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, storageErr(err)
	}
	return rows, nil
}

// progressByCourse tính tiến độ cho nhiều khóa học với hai truy vấn thay vì N+1
func progressByCourse(ctx context.Context, db *gorm.DB, userID uuid.UUID, courseIDs []uuid.UUID) (map[uuid.UUID]Progress, error) {
	out := make(map[uuid.UUID]Progress, len(courseIDs))
	for _, id := range courseIDs {
		out[id] = NewProgress(0, 0)
	}
	if len(courseIDs) == 0 {
		return out, nil
	}

	rows, err := lessonsOfCourses(ctx, db, courseIDs)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return out, nil
	}
	lessonIDs := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		lessonIDs = append(lessonIDs, r.LessonID)
	}

	var done []uuid.UUID
	if err := db.WithContext(ctx).Model(&models.LessonProgress{}).
		Where("user_id = ? AND lesson_id IN ?", userID, lessonIDs).
		Pluck("lesson_id", &done).Error; err != nil {
		return nil, storageErr(err)
	}
	doneSet := make(map[uuid.UUID]struct{}, len(done))
	for _, id := range done {
		doneSet[id] = struct{}{}
	}

	totals := make(map[uuid.UUID]int)
	completed := make(map[uuid.UUID]int)
	for _, r := range rows {
		totals[r.CourseID]++
		if _, ok := doneSet[r.LessonID]; ok {
			completed[r.CourseID]++
		}
	}
	for id := range out {
		out[id] = NewProgress(totals[id], completed[id])
	}
	return out, nil
}
