package services

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/vnkhanh/e-learning-backend/models"
	"github.com/vnkhanh/e-learning-backend/utils"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	recentActivityLimit = 5
	monthlyProgressSpan = 6
)

type ActivityType string

const (
	ActivityEnrolled        ActivityType = "enrolled"
	ActivityCourseCompleted ActivityType = "course_completed"
	ActivityLessonCompleted ActivityType = "lesson_completed"
)

type Activity struct {
	Type        ActivityType `json:"type"`
	Title       string       `json:"title"`
	CourseID    uuid.UUID    `json:"course_id"`
	CourseTitle string       `json:"course_title"`
	Timestamp   time.Time    `json:"timestamp"`
}

type MonthlyHours struct {
	Month string  `json:"month"` // YYYY-MM
	Hours float64 `json:"hours"`
}

type StudentMetrics struct {
	EnrolledCourses     int            `json:"enrolled_courses"`
	CompletedCourses    int            `json:"completed_courses"`
	CompletedLessons    int            `json:"completed_lessons"`
	CertificatesEarned  int            `json:"certificates_earned"`
	TotalStudyTimeHours float64        `json:"total_study_time_hours"`
	CurrentStreak       int            `json:"current_streak"`
	WeeklyGoalHours     float64        `json:"weekly_goal_hours"`
	WeeklyStudiedHours  float64        `json:"weekly_studied_hours"`
	MonthlyStudiedHours float64        `json:"monthly_studied_hours"`
	MonthlyProgress     []MonthlyHours `json:"monthly_progress"`
	RecentActivity      []Activity     `json:"recent_activity"`
	Degraded            bool           `json:"degraded"`
}

// completionRow là một LessonProgress kèm thông tin bài học và khóa học
type completionRow struct {
	ID              uuid.UUID
	LessonID        uuid.UUID
	CompletedAt     time.Time
	DurationMinutes int
	LessonTitle     string
	CourseID        uuid.UUID
	CourseTitle     string
}

// MetricsService tổng hợp số liệu dashboard; mỗi lần gọi đều tính lại từ dữ liệu gốc
type MetricsService struct {
	db         *gorm.DB
	log        *utils.Logger
	loc        *time.Location
	weeklyGoal float64
	now        func() time.Time
}

func NewMetricsService(db *gorm.DB, log *utils.Logger, loc *time.Location, weeklyGoal float64, now func() time.Time) *MetricsService {
	if loc == nil {
		loc = time.UTC
	}
	return &MetricsService{
		db:         db,
		log:        log.With("service", "MetricsService"),
		loc:        loc,
		weeklyGoal: weeklyGoal,
		now:        now,
	}
}

func (s *MetricsService) StudentMetrics(ctx context.Context, sess Session) (*StudentMetrics, error) {
	if err := sess.require(); err != nil {
		return nil, err
	}

	var (
		enrollments []models.Enrollment
		completions []completionRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := s.db.WithContext(gctx).
			Preload("Course", func(db *gorm.DB) *gorm.DB { return db.Select("id", "title") }).
			Where("user_id = ?", sess.UserID).
			Find(&enrollments).Error
		return storageErr(err)
	})
	g.Go(func() error {
		err := s.db.WithContext(gctx).Model(&models.LessonProgress{}).
			Select(`lesson_progress.id AS id, lesson_progress.lesson_id AS lesson_id,
				lesson_progress.completed_at AS completed_at, lessons.duration_minutes AS duration_minutes,
				lessons.title AS lesson_title, courses.id AS course_id, courses.title AS course_title`).
			Joins("JOIN lessons ON lessons.id = lesson_progress.lesson_id").
			Joins("JOIN modules ON modules.id = lessons.module_id").
			Joins("JOIN courses ON courses.id = modules.course_id").
			Where("lesson_progress.user_id = ?", sess.UserID).
			Scan(&completions).Error
		return storageErr(err)
	})
	if err := g.Wait(); err != nil {
		s.log.Warn("failed to load student metrics", "user_id", sess.UserID, "error", err)
		return nil, err
	}

	return s.summarize(enrollments, completions), nil
}

func (s *MetricsService) summarize(enrollments []models.Enrollment, completions []completionRow) *StudentMetrics {
	now := s.now().In(s.loc)
	m := &StudentMetrics{
		EnrolledCourses:  len(enrollments),
		CompletedLessons: len(completions),
		WeeklyGoalHours:  s.weeklyGoal,
	}
	for _, e := range enrollments {
		if e.CompletedAt != nil {
			m.CompletedCourses++
		}
	}
	m.CertificatesEarned = m.CompletedCourses

	weekStart := now.Add(-7 * 24 * time.Hour)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
	var totalMin, weekMin, monthMin int
	times := make([]time.Time, 0, len(completions))
	for _, c := range completions {
		totalMin += c.DurationMinutes
		if !c.CompletedAt.Before(weekStart) {
			weekMin += c.DurationMinutes
		}
		if !c.CompletedAt.Before(monthStart) {
			monthMin += c.DurationMinutes
		}
		times = append(times, c.CompletedAt)
	}
	m.TotalStudyTimeHours = minutesToHours(totalMin)
	m.WeeklyStudiedHours = minutesToHours(weekMin)
	m.MonthlyStudiedHours = minutesToHours(monthMin)
	m.CurrentStreak = CalculateStreak(times, now, s.loc)
	m.MonthlyProgress = monthlyProgress(completions, now, s.loc, monthlyProgressSpan)
	m.RecentActivity = recentActivity(enrollments, completions, recentActivityLimit)
	return m
}

// Degraded trả bộ số liệu rỗng khi không đọc được dữ liệu
func (s *MetricsService) Degraded() *StudentMetrics {
	now := s.now().In(s.loc)
	return &StudentMetrics{
		WeeklyGoalHours: s.weeklyGoal,
		MonthlyProgress: monthlyProgress(nil, now, s.loc, monthlyProgressSpan),
		RecentActivity:  []Activity{},
		Degraded:        true,
	}
}

// CalculateStreak đếm số ngày liên tiếp có ít nhất một bài học hoàn thành, đi lùi từ hôm nay.
// Nếu hôm nay chưa học thì bắt đầu đếm từ hôm qua.
func CalculateStreak(completions []time.Time, now time.Time, loc *time.Location) int {
	if len(completions) == 0 {
		return 0
	}
	if loc == nil {
		loc = time.UTC
	}
	days := make(map[string]struct{}, len(completions))
	for _, t := range completions {
		days[dayKey(t.In(loc))] = struct{}{}
	}

	local := now.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	if _, ok := days[dayKey(day)]; !ok {
		day = day.AddDate(0, 0, -1)
	}
	streak := 0
	for {
		if _, ok := days[dayKey(day)]; !ok {
			return streak
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func minutesToHours(minutes int) float64 {
	return roundOneDecimal(float64(minutes) / 60)
}

func roundOneDecimal(v float64) float64 {
	return math.Round(v*10) / 10
}

// monthlyProgress trả số giờ học của n tháng gần nhất, tháng cũ nhất đứng trước
func monthlyProgress(completions []completionRow, now time.Time, loc *time.Location, n int) []MonthlyHours {
	minutes := make(map[string]int)
	for _, c := range completions {
		minutes[c.CompletedAt.In(loc).Format("2006-01")] += c.DurationMinutes
	}
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	out := make([]MonthlyHours, 0, n)
	for i := n - 1; i >= 0; i-- {
		key := first.AddDate(0, -i, 0).Format("2006-01")
		out = append(out, MonthlyHours{Month: key, Hours: minutesToHours(minutes[key])})
	}
	return out
}

func recentActivity(enrollments []models.Enrollment, completions []completionRow, limit int) []Activity {
	items := make([]Activity, 0, len(enrollments)*2+len(completions))
	for _, e := range enrollments {
		title := ""
		if e.Course != nil {
			title = e.Course.Title
		}
		items = append(items, Activity{
			Type:        ActivityEnrolled,
			Title:       title,
			CourseID:    e.CourseID,
			CourseTitle: title,
			Timestamp:   e.EnrolledAt,
		})
		if e.CompletedAt != nil {
			items = append(items, Activity{
				Type:        ActivityCourseCompleted,
				Title:       title,
				CourseID:    e.CourseID,
				CourseTitle: title,
				Timestamp:   *e.CompletedAt,
			})
		}
	}
	for _, c := range completions {
		items = append(items, Activity{
			Type:        ActivityLessonCompleted,
			Title:       c.LessonTitle,
			CourseID:    c.CourseID,
			CourseTitle: c.CourseTitle,
			Timestamp:   c.CompletedAt,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}
