// Package testutil dựng database SQLite tạm và dữ liệu mẫu cho test.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vnkhanh/e-learning-backend/config"
	"github.com/vnkhanh/e-learning-backend/models"
)

// NewDB mở một file SQLite riêng cho mỗi test và migrate toàn bộ models.
// Chỉ một connection để các goroutine trong test không tranh chấp khóa file.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_foreign_keys=on&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, config.Migrate(db))
	return db
}

type CourseOpts struct {
	Title     string
	Type      models.CourseType
	Published bool
	Category  *uuid.UUID
}

func SeedCourse(t testing.TB, db *gorm.DB, opts CourseOpts) *models.Course {
	t.Helper()
	if opts.Title == "" {
		opts.Title = "Course " + uuid.NewString()[:6]
	}
	if opts.Type == "" {
		opts.Type = models.CourseFree
	}
	course := &models.Course{
		Title:       opts.Title,
		CourseType:  opts.Type,
		IsPublished: opts.Published,
		CategoryID:  opts.Category,
	}
	require.NoError(t, db.Create(course).Error)
	return course
}

func SeedModule(t testing.TB, db *gorm.DB, courseID uuid.UUID, order int) *models.Module {
	t.Helper()
	module := &models.Module{CourseID: courseID, Title: "Module", OrderIndex: order}
	require.NoError(t, db.Create(module).Error)
	return module
}

func SeedLesson(t testing.TB, db *gorm.DB, moduleID uuid.UUID, order, minutes int) *models.Lesson {
	t.Helper()
	video := "https://youtu.be/example"
	lesson := &models.Lesson{
		ModuleID:        moduleID,
		Title:           "Lesson",
		OrderIndex:      order,
		DurationMinutes: minutes,
		VideoURL:        &video,
		VideoType:       models.VideoYouTube,
	}
	require.NoError(t, db.Create(lesson).Error)
	return lesson
}

func SeedUser(t testing.TB, db *gorm.DB, role models.Role, firstName string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	name := firstName
	require.NoError(t, db.Create(&models.Profile{UserID: id, FirstName: &name}).Error)
	require.NoError(t, db.Create(&models.UserRole{UserID: id, Role: role}).Error)
	return id
}

func SeedCompletion(t testing.TB, db *gorm.DB, userID, lessonID uuid.UUID, at time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&models.LessonProgress{UserID: userID, LessonID: lessonID, CompletedAt: at}).Error)
}

func SeedEnrollment(t testing.TB, db *gorm.DB, userID, courseID uuid.UUID, at time.Time) *models.Enrollment {
	t.Helper()
	e := &models.Enrollment{UserID: userID, CourseID: courseID, EnrolledAt: at}
	require.NoError(t, db.Create(e).Error)
	return e
}
