package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnkhanh/e-learning-backend/internal/testutil"
	"github.com/vnkhanh/e-learning-backend/models"
)

func TestNewProgress(t *testing.T) {
	cases := []struct {
		total, completed int
		want             int
	}{
		{0, 0, 0},
		{5, 2, 40},
		{3, 1, 33},
		{3, 2, 67},
		{4, 4, 100},
		{2, 5, 100},
	}
	for _, tc := range cases {
		p := NewProgress(tc.total, tc.completed)
		assert.Equal(t, tc.want, p.Percentage, "total=%d completed=%d", tc.total, tc.completed)
		assert.LessOrEqual(t, p.CompletedLessons, p.TotalLessons)
	}
}

// 2 module: A có 3 bài (xong 2), B có 2 bài (xong 0) -> 5/2/40
func seedTwoModuleCourse(t *testing.T, e *env, sess Session) (*models.Course, []*models.Lesson) {
	course := e.course(t, models.CourseFree)
	a := testutil.SeedModule(t, e.db, course.ID, 0)
	b := testutil.SeedModule(t, e.db, course.ID, 1)
	lessons := []*models.Lesson{
		testutil.SeedLesson(t, e.db, a.ID, 0, 30),
		testutil.SeedLesson(t, e.db, a.ID, 1, 30),
		testutil.SeedLesson(t, e.db, a.ID, 2, 30),
		testutil.SeedLesson(t, e.db, b.ID, 0, 15),
		testutil.SeedLesson(t, e.db, b.ID, 1, 15),
	}
	testutil.SeedEnrollment(t, e.db, sess.UserID, course.ID, fixedNow)
	testutil.SeedCompletion(t, e.db, sess.UserID, lessons[0].ID, fixedNow)
	testutil.SeedCompletion(t, e.db, sess.UserID, lessons[1].ID, fixedNow)
	return course, lessons
}

func TestCourseProgress(t *testing.T) {
	e := newEnv(t)
	sess := e.student(t)
	course, _ := seedTwoModuleCourse(t, e, sess)

	p, err := e.svc.Progress.CourseProgress(context.Background(), sess, course.ID)
	require.NoError(t, err)
	assert.Equal(t, Progress{TotalLessons: 5, CompletedLessons: 2, Percentage: 40}, *p)

	empty := e.course(t, models.CourseFree)
	p, err = e.svc.Progress.CourseProgress(context.Background(), sess, empty.ID)
	require.NoError(t, err)
	assert.Equal(t, Progress{}, *p)
}

func TestMarkLessonComplete_Idempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sess := e.student(t)
	course, lessons := seedTwoModuleCourse(t, e, sess)

	first, err := e.svc.Progress.MarkLessonComplete(ctx, sess, lessons[3].ID)
	require.NoError(t, err)
	second, err := e.svc.Progress.MarkLessonComplete(ctx, sess, lessons[3].ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var n int64
	require.NoError(t, e.db.Model(&models.LessonProgress{}).Where("user_id = ? AND lesson_id = ?", sess.UserID, lessons[3].ID).Count(&n).Error)
	assert.EqualValues(t, 1, n)

	p, err := e.svc.Progress.CourseProgress(ctx, sess, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 60, p.Percentage)
}

func TestMarkLessonComplete_GatedByAccess(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sess := e.student(t)

	private := e.course(t, models.CoursePrivate)
	m := testutil.SeedModule(t, e.db, private.ID, 0)
	lesson := testutil.SeedLesson(t, e.db, m.ID, 0, 10)

	_, err := e.svc.Progress.MarkLessonComplete(ctx, sess, lesson.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = e.svc.Progress.MarkLessonComplete(ctx, sess, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	// khóa free: hoàn thành bài học sẽ tự ghi danh
	free := e.course(t, models.CourseFree)
	fm := testutil.SeedModule(t, e.db, free.ID, 0)
	fl := testutil.SeedLesson(t, e.db, fm.ID, 0, 10)
	_, err = e.svc.Progress.MarkLessonComplete(ctx, sess, fl.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, e.enrollmentCount(t, sess.UserID, free.ID))
}

func TestCompleteCourse(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sess := e.student(t)
	course, _ := seedTwoModuleCourse(t, e, sess)

	enrollment, err := e.svc.Progress.CompleteCourse(ctx, sess, course.ID)
	require.NoError(t, err)
	require.NotNil(t, enrollment.CompletedAt)
	assert.True(t, enrollment.CompletedAt.Equal(fixedNow))

	again, err := e.svc.Progress.CompleteCourse(ctx, sess, course.ID)
	require.NoError(t, err)
	assert.True(t, again.CompletedAt.Equal(*enrollment.CompletedAt))

	var notes int64
	require.NoError(t, e.db.Model(&models.Notification{}).
		Where("user_id = ? AND category = ?", sess.UserID, models.CategoryAchievement).Count(&notes).Error)
	assert.EqualValues(t, 1, notes)

	other := e.course(t, models.CourseFree)
	_, err = e.svc.Progress.CompleteCourse(ctx, sess, other.ID)
	assert.ErrorIs(t, err, ErrNotEnrolled)
}

func TestCompleteCourse_RequireFullProgress(t *testing.T) {
	e := newEnv(t, func(o *Options) { o.RequireFullProgress = true })
	ctx := context.Background()
	sess := e.student(t)
	course, lessons := seedTwoModuleCourse(t, e, sess)

	_, err := e.svc.Progress.CompleteCourse(ctx, sess, course.ID)
	assert.ErrorIs(t, err, ErrCourseIncomplete)

	for _, l := range lessons[2:] {
		_, err := e.svc.Progress.MarkLessonComplete(ctx, sess, l.ID)
		require.NoError(t, err)
	}
	enrollment, err := e.svc.Progress.CompleteCourse(ctx, sess, course.ID)
	require.NoError(t, err)
	assert.NotNil(t, enrollment.CompletedAt)
}

func TestEnrolledCoursesAndCompletedLessons(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sess := e.student(t)
	course, lessons := seedTwoModuleCourse(t, e, sess)
	empty := e.course(t, models.CourseFree)
	testutil.SeedEnrollment(t, e.db, sess.UserID, empty.ID, fixedNow.Add(-48*time.Hour))

	enrolled, err := e.svc.Progress.EnrolledCourses(ctx, sess)
	require.NoError(t, err)
	require.Len(t, enrolled, 2)
	assert.Equal(t, course.ID, enrolled[0].CourseID)
	assert.Equal(t, 40, enrolled[0].Progress.Percentage)
	require.NotNil(t, enrolled[0].Course)
	assert.Equal(t, course.Title, enrolled[0].Course.Title)
	assert.Equal(t, 0, enrolled[1].Progress.Percentage)

	ids, err := e.svc.Progress.CompletedLessonIDs(ctx, sess, course.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{lessons[0].ID, lessons[1].ID}, ids)

	draft := testutil.SeedCourse(t, e.db, testutil.CourseOpts{Published: false})
	_, err = e.svc.Progress.CompletedLessonIDs(ctx, sess, draft.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.svc.Progress.CompletedLessonIDs(ctx, sess, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
