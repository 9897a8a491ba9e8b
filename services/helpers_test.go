package services

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vnkhanh/e-learning-backend/internal/testutil"
	"github.com/vnkhanh/e-learning-backend/models"
	"github.com/vnkhanh/e-learning-backend/utils"
)

type pushedEvent struct {
	UserID  uuid.UUID
	Event   string
	Payload interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []pushedEvent
}

func (r *recordingNotifier) NotifyUser(userID uuid.UUID, event string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, pushedEvent{UserID: userID, Event: event, Payload: payload})
}

func (r *recordingNotifier) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

type fakeStorage struct {
	uploads map[string][]byte
	deleted []string
	err     error
}

func (f *fakeStorage) Upload(bucket, path string, data []byte, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.uploads == nil {
		f.uploads = map[string][]byte{}
	}
	f.uploads[bucket+"/"+path] = data
	return utils.PublicObjectURL("https://project.supabase.co", bucket, path), nil
}

func (f *fakeStorage) Delete(bucket, path string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, bucket+"/"+path)
	return nil
}

// fixedNow: 2026-03-18 10:00 UTC (thứ Tư)
var fixedNow = time.Date(2026, 3, 18, 10, 0, 0, 0, time.UTC)

type env struct {
	db       *gorm.DB
	svc      *Services
	notifier *recordingNotifier
	storage  *fakeStorage
}

func newEnv(t *testing.T, mutate ...func(*Options)) *env {
	t.Helper()
	db := testutil.NewDB(t)
	notifier := &recordingNotifier{}
	storage := &fakeStorage{}
	opts := Options{Now: func() time.Time { return fixedNow }}
	for _, m := range mutate {
		m(&opts)
	}
	return &env{
		db:       db,
		svc:      New(db, utils.NopLogger(), opts, notifier, storage),
		notifier: notifier,
		storage:  storage,
	}
}

func (e *env) student(t *testing.T) Session {
	return Session{UserID: testutil.SeedUser(t, e.db, models.RoleStudent, "Student"), Role: models.RoleStudent}
}

func (e *env) admin(t *testing.T) Session {
	return Session{UserID: testutil.SeedUser(t, e.db, models.RoleAdmin, "Admin"), Role: models.RoleAdmin}
}

func (e *env) course(t *testing.T, typ models.CourseType) *models.Course {
	return testutil.SeedCourse(t, e.db, testutil.CourseOpts{Type: typ, Published: true})
}

func (e *env) enrollmentCount(t *testing.T, userID, courseID uuid.UUID) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(&models.Enrollment{}).Where("user_id = ? AND course_id = ?", userID, courseID).Count(&n).Error; err != nil {
		t.Fatalf("count enrollments: %v", err)
	}
	return n
}
