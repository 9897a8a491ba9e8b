package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnkhanh/e-learning-backend/internal/testutil"
	"github.com/vnkhanh/e-learning-backend/models"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestCategories(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.admin(t)

	cat, err := e.svc.Catalog.CreateCategory(ctx, admin, CategoryInput{Name: strPtr("Lập trình Go")})
	require.NoError(t, err)
	assert.Equal(t, "lap-trinh-go", cat.Slug)

	_, err = e.svc.Catalog.CreateCategory(ctx, admin, CategoryInput{Name: strPtr("Lập trình Go")})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = e.svc.Catalog.CreateCategory(ctx, e.student(t), CategoryInput{Name: strPtr("Other")})
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := e.svc.Catalog.UpdateCategory(ctx, admin, cat.ID, CategoryInput{Slug: strPtr("Go Lang")})
	require.NoError(t, err)
	assert.Equal(t, "go-lang", updated.Slug)

	course := testutil.SeedCourse(t, e.db, testutil.CourseOpts{Published: true, Category: &cat.ID})
	require.NoError(t, e.svc.Catalog.DeleteCategory(ctx, admin, cat.ID))

	var reloaded models.Course
	require.NoError(t, e.db.First(&reloaded, "id = ?", course.ID).Error)
	assert.Nil(t, reloaded.CategoryID)

	assert.ErrorIs(t, e.svc.Catalog.DeleteCategory(ctx, admin, cat.ID), ErrNotFound)
}

func TestListPublishedCourses(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.admin(t)
	cat, err := e.svc.Catalog.CreateCategory(ctx, admin, CategoryInput{Name: strPtr("Design")})
	require.NoError(t, err)

	testutil.SeedCourse(t, e.db, testutil.CourseOpts{Title: "Figma basics", Published: true, Category: &cat.ID})
	testutil.SeedCourse(t, e.db, testutil.CourseOpts{Title: "Go", Published: true})
	testutil.SeedCourse(t, e.db, testutil.CourseOpts{Title: "Draft", Published: false})

	all, err := e.svc.Catalog.ListPublishedCourses(ctx, CourseFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	design, err := e.svc.Catalog.ListPublishedCourses(ctx, CourseFilter{CategorySlug: "design"})
	require.NoError(t, err)
	require.Len(t, design, 1)
	assert.Equal(t, "Figma basics", design[0].Title)
	require.NotNil(t, design[0].Category)

	search, err := e.svc.Catalog.ListPublishedCourses(ctx, CourseFilter{Search: "figma"})
	require.NoError(t, err)
	assert.Len(t, search, 1)

	everything, err := e.svc.Catalog.ListAllCourses(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, everything, 3)
}

func TestCourseCRUD(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.admin(t)

	private := models.CoursePrivate
	published := true
	course, err := e.svc.Catalog.CreateCourse(ctx, admin, CourseInput{
		Title:       strPtr("  Kubernetes  "),
		CourseType:  &private,
		IsPublished: &published,
	})
	require.NoError(t, err)
	assert.Equal(t, "Kubernetes", course.Title)
	assert.Equal(t, models.CoursePrivate, course.CourseType)

	bad := models.CourseType("paid")
	_, err = e.svc.Catalog.UpdateCourse(ctx, admin, course.ID, CourseInput{CourseType: &bad})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	missing := uuid.New()
	_, err = e.svc.Catalog.UpdateCourse(ctx, admin, course.ID, CourseInput{CategoryID: &missing})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	updated, err := e.svc.Catalog.UpdateCourse(ctx, admin, course.ID, CourseInput{DurationMinutes: intPtr(120)})
	require.NoError(t, err)
	assert.Equal(t, 120, updated.DurationMinutes)
	assert.Equal(t, "Kubernetes", updated.Title)

	m := testutil.SeedModule(t, e.db, course.ID, 0)
	l := testutil.SeedLesson(t, e.db, m.ID, 0, 10)
	sess := e.student(t)
	testutil.SeedEnrollment(t, e.db, sess.UserID, course.ID, fixedNow)
	testutil.SeedCompletion(t, e.db, sess.UserID, l.ID, fixedNow)

	require.NoError(t, e.svc.Catalog.DeleteCourse(ctx, admin, course.ID))
	var n int64
	require.NoError(t, e.db.Model(&models.Lesson{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, e.db.Model(&models.Enrollment{}).Count(&n).Error)
	assert.Zero(t, n)
	assert.ErrorIs(t, e.svc.Catalog.DeleteCourse(ctx, admin, course.ID), ErrNotFound)
}

func TestModulesAndLessons(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.admin(t)
	course := e.course(t, models.CourseFree)

	m1, err := e.svc.Catalog.CreateModule(ctx, admin, course.ID, ModuleInput{Title: strPtr("Intro")})
	require.NoError(t, err)
	m2, err := e.svc.Catalog.CreateModule(ctx, admin, course.ID, ModuleInput{Title: strPtr("Advanced")})
	require.NoError(t, err)
	assert.Equal(t, 0, m1.OrderIndex)
	assert.Equal(t, 1, m2.OrderIndex)

	_, err = e.svc.Catalog.CreateModule(ctx, admin, course.ID, ModuleInput{Title: strPtr("Dup"), OrderIndex: intPtr(1)})
	assert.ErrorIs(t, err, ErrConflict)

	require.NoError(t, e.svc.Catalog.ReorderModules(ctx, admin, course.ID, []uuid.UUID{m2.ID, m1.ID}))
	err = e.svc.Catalog.ReorderModules(ctx, admin, course.ID, []uuid.UUID{m2.ID, m2.ID})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	l1, err := e.svc.Catalog.CreateLesson(ctx, admin, m1.ID, LessonInput{
		Title:     strPtr("Hello"),
		Materials: &[]models.Material{{Name: "Slides", URL: "https://cdn/slides.pdf"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, l1.OrderIndex)
	l2, err := e.svc.Catalog.CreateLesson(ctx, admin, m1.ID, LessonInput{Title: strPtr("World")})
	require.NoError(t, err)
	assert.Equal(t, 1, l2.OrderIndex)

	_, err = e.svc.Catalog.CreateLesson(ctx, admin, m1.ID, LessonInput{
		Title:     strPtr("Broken"),
		Materials: &[]models.Material{{Name: "", URL: "x"}},
	})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	upload := models.VideoUpload
	updated, err := e.svc.Catalog.UpdateLesson(ctx, admin, l2.ID, LessonInput{VideoType: &upload, DurationMinutes: intPtr(12)})
	require.NoError(t, err)
	assert.Equal(t, models.VideoUpload, updated.VideoType)

	details, err := e.svc.Catalog.CourseDetails(ctx, admin, course.ID)
	require.NoError(t, err)
	require.Len(t, details.Modules, 2)
	assert.Equal(t, m2.ID, details.Modules[0].ID)
	require.Len(t, details.Modules[1].Lessons, 2)
	assert.Equal(t, l1.ID, details.Modules[1].Lessons[0].ID)
	require.Len(t, details.Modules[1].Lessons[0].Materials, 1)

	require.NoError(t, e.svc.Catalog.DeleteModule(ctx, admin, m1.ID))
	var n int64
	require.NoError(t, e.db.Model(&models.Lesson{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestCourseDetails_HidesContentWithoutAccess(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sess := e.student(t)
	course := e.course(t, models.CoursePrivate)
	m := testutil.SeedModule(t, e.db, course.ID, 0)
	lesson := testutil.SeedLesson(t, e.db, m.ID, 0, 10)

	details, err := e.svc.Catalog.CourseDetails(ctx, sess, course.ID)
	require.NoError(t, err)
	assert.False(t, details.HasAccess)
	assert.Nil(t, details.Modules[0].Lessons[0].VideoURL)

	_, err = e.svc.Catalog.Lesson(ctx, sess, lesson.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	testutil.SeedEnrollment(t, e.db, sess.UserID, course.ID, fixedNow)
	details, err = e.svc.Catalog.CourseDetails(ctx, sess, course.ID)
	require.NoError(t, err)
	assert.True(t, details.HasAccess)
	assert.NotNil(t, details.Modules[0].Lessons[0].VideoURL)

	got, err := e.svc.Catalog.Lesson(ctx, sess, lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, lesson.ID, got.ID)
}
