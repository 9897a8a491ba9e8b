package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/vnkhanh/e-learning-backend/internal/testutil"
	"github.com/vnkhanh/e-learning-backend/models"
)

func TestCalculateStreak(t *testing.T) {
	now := fixedNow
	day := func(offset int, hour int) time.Time {
		return time.Date(now.Year(), now.Month(), now.Day()+offset, hour, 0, 0, 0, time.UTC)
	}

	cases := []struct {
		name  string
		times []time.Time
		want  int
	}{
		{"empty", nil, 0},
		{"today and yesterday", []time.Time{day(0, 8), day(-1, 20)}, 2},
		{"several completions same day", []time.Time{day(0, 1), day(0, 2), day(0, 3)}, 1},
		{"today empty starts from yesterday", []time.Time{day(-1, 9), day(-2, 9)}, 2},
		{"gap ends the walk", []time.Time{day(0, 9), day(-1, 9), day(-3, 9), day(-4, 9)}, 2},
		{"last completion two days ago", []time.Time{day(-2, 9)}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CalculateStreak(tc.times, now, time.UTC))
		})
	}
}

func TestCalculateStreak_UsesConfiguredTimezone(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	// 18/03 20:00 UTC = 19/03 03:00 ICT
	now := time.Date(2026, 3, 18, 20, 0, 0, 0, time.UTC)
	completions := []time.Time{
		time.Date(2026, 3, 18, 18, 0, 0, 0, time.UTC), // 19/03 ICT
		time.Date(2026, 3, 18, 1, 0, 0, 0, time.UTC),  // 18/03 ICT
	}
	assert.Equal(t, 2, CalculateStreak(completions, now, loc))
	assert.Equal(t, 1, CalculateStreak(completions, now, time.UTC))
}

func TestRoundOneDecimal(t *testing.T) {
	assert.Equal(t, 1.5, minutesToHours(90))
	assert.Equal(t, 0.0, minutesToHours(0))
	assert.Equal(t, 0.3, minutesToHours(20))
}

func TestStudentMetrics(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sess := e.student(t)

	a := e.course(t, models.CourseFree)
	am := testutil.SeedModule(t, e.db, a.ID, 0)
	l1 := testutil.SeedLesson(t, e.db, am.ID, 0, 60)
	l2 := testutil.SeedLesson(t, e.db, am.ID, 1, 30)
	l3 := testutil.SeedLesson(t, e.db, am.ID, 2, 45)

	b := e.course(t, models.CourseFree)
	bm := testutil.SeedModule(t, e.db, b.ID, 0)
	l4 := testutil.SeedLesson(t, e.db, bm.ID, 0, 90)

	testutil.SeedEnrollment(t, e.db, sess.UserID, a.ID, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	eb := testutil.SeedEnrollment(t, e.db, sess.UserID, b.ID, time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC))
	require.NoError(t, e.db.Model(eb).Update("completed_at", time.Date(2026, 3, 17, 12, 0, 0, 0, time.UTC)).Error)

	testutil.SeedCompletion(t, e.db, sess.UserID, l1.ID, time.Date(2026, 3, 18, 8, 0, 0, 0, time.UTC))
	testutil.SeedCompletion(t, e.db, sess.UserID, l2.ID, time.Date(2026, 3, 17, 9, 0, 0, 0, time.UTC))
	testutil.SeedCompletion(t, e.db, sess.UserID, l3.ID, time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC))
	testutil.SeedCompletion(t, e.db, sess.UserID, l4.ID, time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC))

	m, err := e.svc.Metrics.StudentMetrics(ctx, sess)
	require.NoError(t, err)

	assert.Equal(t, 2, m.EnrolledCourses)
	assert.Equal(t, 1, m.CompletedCourses)
	assert.Equal(t, 1, m.CertificatesEarned)
	assert.Equal(t, 4, m.CompletedLessons)
	assert.Equal(t, 3.8, m.TotalStudyTimeHours)
	assert.Equal(t, 2, m.CurrentStreak)
	assert.Equal(t, 10.0, m.WeeklyGoalHours)
	assert.Equal(t, 1.5, m.WeeklyStudiedHours)
	assert.Equal(t, 2.3, m.MonthlyStudiedHours)
	assert.False(t, m.Degraded)

	require.Len(t, m.MonthlyProgress, 6)
	assert.Equal(t, "2025-10", m.MonthlyProgress[0].Month)
	assert.Equal(t, MonthlyHours{Month: "2026-02", Hours: 1.5}, m.MonthlyProgress[4])
	assert.Equal(t, MonthlyHours{Month: "2026-03", Hours: 2.3}, m.MonthlyProgress[5])

	require.Len(t, m.RecentActivity, 5)
	assert.Equal(t, ActivityLessonCompleted, m.RecentActivity[0].Type)
	assert.Equal(t, ActivityCourseCompleted, m.RecentActivity[1].Type)
	assert.Equal(t, b.Title, m.RecentActivity[1].CourseTitle)
	assert.Equal(t, ActivityLessonCompleted, m.RecentActivity[2].Type)
	assert.Equal(t, ActivityEnrolled, m.RecentActivity[4].Type)
	for i := 1; i < len(m.RecentActivity); i++ {
		assert.False(t, m.RecentActivity[i].Timestamp.After(m.RecentActivity[i-1].Timestamp))
	}
}

func TestStudentMetrics_NewUserIsZero(t *testing.T) {
	e := newEnv(t)
	m, err := e.svc.Metrics.StudentMetrics(context.Background(), e.student(t))
	require.NoError(t, err)
	assert.Zero(t, m.CurrentStreak)
	assert.Zero(t, m.TotalStudyTimeHours)
	assert.Empty(t, m.RecentActivity)
	assert.Len(t, m.MonthlyProgress, 6)
}

func TestDegradedMetrics(t *testing.T) {
	e := newEnv(t)
	m := e.svc.Metrics.Degraded()
	assert.True(t, m.Degraded)
	assert.Equal(t, 10.0, m.WeeklyGoalHours)
	assert.Len(t, m.MonthlyProgress, 6)
	assert.NotNil(t, m.RecentActivity)
}

func seedAdminScenario(t *testing.T, e *env) (*models.Course, Session) {
	s1 := e.student(t)
	s2 := e.student(t)
	course := e.course(t, models.CourseFree)
	m := testutil.SeedModule(t, e.db, course.ID, 0)
	l1 := testutil.SeedLesson(t, e.db, m.ID, 0, 30)
	l2 := testutil.SeedLesson(t, e.db, m.ID, 1, 30)

	e1 := testutil.SeedEnrollment(t, e.db, s1.UserID, course.ID, fixedNow.Add(-2*time.Hour))
	require.NoError(t, e.db.Model(e1).Update("completed_at", fixedNow.Add(-time.Hour)).Error)
	testutil.SeedEnrollment(t, e.db, s2.UserID, course.ID, fixedNow.Add(-3*24*time.Hour))
	testutil.SeedCompletion(t, e.db, s1.UserID, l1.ID, fixedNow.Add(-90*time.Minute))
	testutil.SeedCompletion(t, e.db, s1.UserID, l2.ID, fixedNow.Add(-80*time.Minute))
	return course, s1
}

func TestAdminMetrics(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.admin(t)
	course, s1 := seedAdminScenario(t, e)

	m, err := e.svc.Metrics.AdminMetrics(ctx, admin)
	require.NoError(t, err)

	assert.Equal(t, 3, m.TotalUsers)
	assert.Equal(t, 1, m.TotalCourses)
	assert.Equal(t, 1, m.PublishedCourses)
	assert.Equal(t, 2, m.TotalLessons)
	assert.Equal(t, 2, m.TotalEnrollments)
	assert.Equal(t, 1, m.CompletedEnrollments)
	assert.Equal(t, 1.0, m.TotalStudyHours)
	assert.Equal(t, 1, m.ActiveUsers)

	require.Len(t, m.EnrollmentsByDay, 7)
	assert.Equal(t, "2026-03-18", m.EnrollmentsByDay[6].Date)
	assert.Equal(t, 1, m.EnrollmentsByDay[6].Count)
	assert.Equal(t, 1, m.EnrollmentsByDay[3].Count)

	require.Len(t, m.RecentEnrollments, 2)
	assert.Equal(t, s1.UserID, m.RecentEnrollments[0].UserID)
	assert.Equal(t, course.Title, m.RecentEnrollments[0].CourseTitle)

	require.Len(t, m.CourseStats, 1)
	assert.Equal(t, 2, m.CourseStats[0].Enrollments)
	assert.Equal(t, 50.0, m.CourseStats[0].CompletionRate)
	assert.Equal(t, 50.0, m.CourseStats[0].AverageProgress)

	require.Len(t, m.UserProgress, 3)
	assert.Equal(t, s1.UserID, m.UserProgress[0].UserID)
	assert.Equal(t, 2, m.UserProgress[0].CompletedLessons)
	assert.Equal(t, 1.0, m.UserProgress[0].StudyHours)

	_, err = e.svc.Metrics.AdminMetrics(ctx, s1)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestExportAdminMetrics(t *testing.T) {
	e := newEnv(t)
	admin := e.admin(t)
	course, _ := seedAdminScenario(t, e)

	data, err := e.svc.Metrics.ExportAdminMetrics(context.Background(), admin)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetOverview, sheetCourses, sheetStudents}, f.GetSheetList())
	title, err := f.GetCellValue(sheetCourses, "A2")
	require.NoError(t, err)
	assert.Equal(t, course.Title, title)

	rows, err := f.GetRows(sheetStudents)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}
