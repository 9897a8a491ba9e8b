package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/vnkhanh/e-learning-backend/models"
	"golang.org/x/sync/errgroup"
)

const (
	activeUserWindow       = 30 * 24 * time.Hour
	recentEnrollmentsLimit = 10
	enrollmentsByDayWindow = 7
)

type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type RecentEnrollment struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	UserName    string    `json:"user_name"`
	CourseID    uuid.UUID `json:"course_id"`
	CourseTitle string    `json:"course_title"`
	EnrolledAt  time.Time `json:"enrolled_at"`
}

type CourseStat struct {
	CourseID        uuid.UUID `json:"course_id"`
	Title           string    `json:"title"`
	IsPublished     bool      `json:"is_published"`
	TotalLessons    int       `json:"total_lessons"`
	Enrollments     int       `json:"enrollments"`
	Completions     int       `json:"completions"`
	CompletionRate  float64   `json:"completion_rate"`
	AverageProgress float64   `json:"average_progress"`
}

type UserProgress struct {
	UserID           uuid.UUID  `json:"user_id"`
	Name             string     `json:"name"`
	EnrolledCourses  int        `json:"enrolled_courses"`
	CompletedCourses int        `json:"completed_courses"`
	CompletedLessons int        `json:"completed_lessons"`
	StudyHours       float64    `json:"study_hours"`
	LastActivity     *time.Time `json:"last_activity,omitempty"`
}

type AdminMetrics struct {
	TotalUsers           int                `json:"total_users"`
	TotalCourses         int                `json:"total_courses"`
	PublishedCourses     int                `json:"published_courses"`
	TotalLessons         int                `json:"total_lessons"`
	TotalEnrollments     int                `json:"total_enrollments"`
	CompletedEnrollments int                `json:"completed_enrollments"`
	TotalStudyHours      float64            `json:"total_study_hours"`
	ActiveUsers          int                `json:"active_users"`
	EnrollmentsByDay     []DailyCount       `json:"enrollments_by_day"`
	RecentEnrollments    []RecentEnrollment `json:"recent_enrollments"`
	CourseStats          []CourseStat       `json:"course_stats"`
	UserProgress         []UserProgress     `json:"user_progress"`
	GeneratedAt          time.Time          `json:"generated_at"`
}

type lessonMeta struct {
	LessonID        uuid.UUID
	CourseID        uuid.UUID
	DurationMinutes int
}

type progressMeta struct {
	UserID      uuid.UUID
	LessonID    uuid.UUID
	CompletedAt time.Time
}

// AdminMetrics tải song song các bảng rồi tổng hợp trong bộ nhớ
func (s *MetricsService) AdminMetrics(ctx context.Context, sess Session) (*AdminMetrics, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}

	var (
		profiles    []models.Profile
		courses     []models.Course
		lessons     []lessonMeta
		enrollments []models.Enrollment
		progress    []progressMeta
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return storageErr(s.db.WithContext(gctx).Find(&profiles).Error)
	})
	g.Go(func() error {
		return storageErr(s.db.WithContext(gctx).Select("id", "title", "is_published").Order("created_at").Find(&courses).Error)
	})
	g.Go(func() error {
		return storageErr(s.db.WithContext(gctx).Model(&models.Lesson{}).
			Select("lessons.id AS lesson_id, modules.course_id AS course_id, lessons.duration_minutes AS duration_minutes").
			Joins("JOIN modules ON modules.id = lessons.module_id").
			Scan(&lessons).Error)
	})
	g.Go(func() error {
		return storageErr(s.db.WithContext(gctx).Order("enrolled_at DESC").Find(&enrollments).Error)
	})
	g.Go(func() error {
		return storageErr(s.db.WithContext(gctx).Model(&models.LessonProgress{}).
			Select("user_id, lesson_id, completed_at").
			Scan(&progress).Error)
	})
	if err := g.Wait(); err != nil {
		s.log.Error("failed to load admin metrics", "error", err)
		return nil, err
	}

	return s.aggregateAdmin(profiles, courses, lessons, enrollments, progress), nil
}

func (s *MetricsService) aggregateAdmin(profiles []models.Profile, courses []models.Course, lessons []lessonMeta, enrollments []models.Enrollment, progress []progressMeta) *AdminMetrics {
	now := s.now().In(s.loc)
	out := &AdminMetrics{
		TotalUsers:       len(profiles),
		TotalCourses:     len(courses),
		TotalLessons:     len(lessons),
		TotalEnrollments: len(enrollments),
		GeneratedAt:      now,
	}

	names := make(map[uuid.UUID]string, len(profiles))
	for i := range profiles {
		names[profiles[i].UserID] = profiles[i].DisplayName()
	}
	titles := make(map[uuid.UUID]string, len(courses))
	for _, c := range courses {
		titles[c.ID] = c.Title
		if c.IsPublished {
			out.PublishedCourses++
		}
	}

	lessonByID := make(map[uuid.UUID]lessonMeta, len(lessons))
	lessonsPerCourse := make(map[uuid.UUID]int)
	for _, l := range lessons {
		lessonByID[l.LessonID] = l
		lessonsPerCourse[l.CourseID]++
	}

	// số bài đã xong theo (user, course)
	type userCourse struct{ user, course uuid.UUID }
	doneByUserCourse := make(map[userCourse]int)
	users := make(map[uuid.UUID]*UserProgress)
	userOf := func(id uuid.UUID) *UserProgress {
		u, ok := users[id]
		if !ok {
			name, found := names[id]
			if !found {
				name = "N/A"
			}
			u = &UserProgress{UserID: id, Name: name}
			users[id] = u
		}
		return u
	}
	for i := range profiles {
		userOf(profiles[i].UserID)
	}

	activeSince := now.Add(-activeUserWindow)
	active := make(map[uuid.UUID]struct{})
	totalMinutes := 0
	userMinutes := make(map[uuid.UUID]int)
	for _, p := range progress {
		meta, ok := lessonByID[p.LessonID]
		if !ok {
			continue
		}
		totalMinutes += meta.DurationMinutes
		userMinutes[p.UserID] += meta.DurationMinutes
		doneByUserCourse[userCourse{p.UserID, meta.CourseID}]++

		u := userOf(p.UserID)
		u.CompletedLessons++
		if u.LastActivity == nil || p.CompletedAt.After(*u.LastActivity) {
			t := p.CompletedAt
			u.LastActivity = &t
		}
		if !p.CompletedAt.Before(activeSince) {
			active[p.UserID] = struct{}{}
		}
	}
	out.TotalStudyHours = minutesToHours(totalMinutes)
	out.ActiveUsers = len(active)

	stats := make(map[uuid.UUID]*CourseStat, len(courses))
	progressSum := make(map[uuid.UUID]int)
	for _, c := range courses {
		stats[c.ID] = &CourseStat{CourseID: c.ID, Title: c.Title, IsPublished: c.IsPublished, TotalLessons: lessonsPerCourse[c.ID]}
	}

	firstDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc).AddDate(0, 0, -(enrollmentsByDayWindow - 1))
	perDay := make(map[string]int)
	for _, e := range enrollments {
		if e.CompletedAt != nil {
			out.CompletedEnrollments++
		}
		if !e.EnrolledAt.Before(firstDay) {
			perDay[dayKey(e.EnrolledAt.In(s.loc))]++
		}

		u := userOf(e.UserID)
		u.EnrolledCourses++
		if e.CompletedAt != nil {
			u.CompletedCourses++
		}

		if st, ok := stats[e.CourseID]; ok {
			st.Enrollments++
			if e.CompletedAt != nil {
				st.Completions++
			}
			p := NewProgress(st.TotalLessons, doneByUserCourse[userCourse{e.UserID, e.CourseID}])
			progressSum[e.CourseID] += p.Percentage
		}

		if len(out.RecentEnrollments) < recentEnrollmentsLimit {
			name, ok := names[e.UserID]
			if !ok {
				name = "N/A"
			}
			out.RecentEnrollments = append(out.RecentEnrollments, RecentEnrollment{
				ID:          e.ID,
				UserID:      e.UserID,
				UserName:    name,
				CourseID:    e.CourseID,
				CourseTitle: titles[e.CourseID],
				EnrolledAt:  e.EnrolledAt,
			})
		}
	}
	if out.RecentEnrollments == nil {
		out.RecentEnrollments = []RecentEnrollment{}
	}

	out.EnrollmentsByDay = make([]DailyCount, 0, enrollmentsByDayWindow)
	for i := 0; i < enrollmentsByDayWindow; i++ {
		key := dayKey(firstDay.AddDate(0, 0, i))
		out.EnrollmentsByDay = append(out.EnrollmentsByDay, DailyCount{Date: key, Count: perDay[key]})
	}

	out.CourseStats = make([]CourseStat, 0, len(courses))
	for _, c := range courses {
		st := stats[c.ID]
		if st.Enrollments > 0 {
			st.CompletionRate = roundOneDecimal(100 * float64(st.Completions) / float64(st.Enrollments))
			st.AverageProgress = roundOneDecimal(float64(progressSum[c.ID]) / float64(st.Enrollments))
		}
		out.CourseStats = append(out.CourseStats, *st)
	}

	out.UserProgress = make([]UserProgress, 0, len(users))
	for id, u := range users {
		u.StudyHours = minutesToHours(userMinutes[id])
		out.UserProgress = append(out.UserProgress, *u)
	}
	sort.Slice(out.UserProgress, func(i, j int) bool {
		a, b := out.UserProgress[i], out.UserProgress[j]
		if a.CompletedLessons != b.CompletedLessons {
			return a.CompletedLessons > b.CompletedLessons
		}
		return a.UserID.String() < b.UserID.String()
	})
	return out
}
