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

func TestResolveRole_ProvisionsStudentOnFirstSight(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id := uuid.New()

	role, err := e.svc.Users.ResolveRole(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, role)

	// gọi lần 2 không tạo thêm bản ghi
	role, err = e.svc.Users.ResolveRole(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, role)

	var n int64
	require.NoError(t, e.db.Model(&models.Profile{}).Where("user_id = ?", id).Count(&n).Error)
	assert.EqualValues(t, 1, n)

	_, err = e.svc.Users.ResolveRole(ctx, uuid.Nil)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	admin := e.admin(t)
	role, err = e.svc.Users.ResolveRole(ctx, admin.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)
}

func TestUserUpdate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.admin(t)
	student := e.student(t)

	me, err := e.svc.Users.UpdateMe(ctx, student, UserUpdate{
		FirstName: strPtr("  Lan "),
		Role:      rolePtr(models.RoleAdmin),
	})
	require.NoError(t, err)
	require.NotNil(t, me.FirstName)
	assert.Equal(t, "Lan", *me.FirstName)
	assert.Equal(t, models.RoleStudent, me.Role)

	promoted, err := e.svc.Users.Update(ctx, admin, student.UserID, UserUpdate{Role: rolePtr(models.RoleAdmin)})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, promoted.Role)

	_, err = e.svc.Users.Update(ctx, admin, admin.UserID, UserUpdate{Role: rolePtr(models.RoleStudent)})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = e.svc.Users.Update(ctx, admin, student.UserID, UserUpdate{Role: rolePtr("moderator")})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = e.svc.Users.Update(ctx, admin, uuid.New(), UserUpdate{FirstName: strPtr("x")})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.svc.Users.Update(ctx, Session{UserID: uuid.New(), Role: models.RoleStudent}, student.UserID, UserUpdate{})
	assert.ErrorIs(t, err, ErrForbidden)

	list, err := e.svc.Users.List(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestUserDelete_RemovesOwnedData(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.admin(t)
	student := e.student(t)

	course := e.course(t, models.CourseFree)
	m := testutil.SeedModule(t, e.db, course.ID, 0)
	l := testutil.SeedLesson(t, e.db, m.ID, 0, 5)
	testutil.SeedEnrollment(t, e.db, student.UserID, course.ID, fixedNow)
	testutil.SeedCompletion(t, e.db, student.UserID, l.ID, fixedNow)
	_, err := e.svc.Notifications.Send(ctx, admin, ScopeSingle, student.UserID, NotificationInput{Title: "t", Message: "m"})
	require.NoError(t, err)

	assert.ErrorIs(t, e.svc.Users.Delete(ctx, admin, admin.UserID), ErrInvalidArgument)
	require.NoError(t, e.svc.Users.Delete(ctx, admin, student.UserID))

	for _, m := range []interface{}{&models.Notification{}, &models.LessonProgress{}, &models.Enrollment{}, &models.UserRole{}, &models.Profile{}} {
		var n int64
		require.NoError(t, e.db.Model(m).Where("user_id = ?", student.UserID).Count(&n).Error)
		assert.Zero(t, n)
	}
	assert.ErrorIs(t, e.svc.Users.Delete(ctx, admin, student.UserID), ErrNotFound)
}

func TestEnsureAdmin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	student := e.student(t)

	require.NoError(t, e.svc.Users.EnsureAdmin(ctx, student.UserID, "", ""))
	role, err := e.svc.Users.ResolveRole(ctx, student.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)

	fresh := uuid.New()
	require.NoError(t, e.svc.Users.EnsureAdmin(ctx, fresh, "Root", "Admin"))
	me, err := e.svc.Users.Me(ctx, Session{UserID: fresh, Role: models.RoleAdmin})
	require.NoError(t, err)
	require.NotNil(t, me.FirstName)
	assert.Equal(t, "Root", *me.FirstName)
	assert.Equal(t, models.RoleAdmin, me.Role)
}

func rolePtr(r models.Role) *models.Role { return &r }
