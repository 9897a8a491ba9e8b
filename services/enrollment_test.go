package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnkhanh/e-learning-backend/internal/testutil"
	"github.com/vnkhanh/e-learning-backend/models"
)

func TestCanAccess_FreeCourseAutoEnrollsExactlyOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sess := e.student(t)
	course := e.course(t, models.CourseFree)

	var wg sync.WaitGroup
	decisions := make([]*AccessDecision, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decisions[i], errs[i] = e.svc.Enrollment.CanAccess(ctx, sess, course.ID)
		}(i)
	}
	wg.Wait()

	auto := 0
	for i := range decisions {
		require.NoError(t, errs[i])
		assert.True(t, decisions[i].Allowed)
		require.NotNil(t, decisions[i].Enrollment)
		if decisions[i].Reason == ReasonAutoEnrolled {
			auto++
		} else {
			assert.Equal(t, ReasonEnrolled, decisions[i].Reason)
		}
	}
	assert.Equal(t, 1, auto)
	assert.Equal(t, decisions[0].Enrollment.ID, decisions[1].Enrollment.ID)
	assert.EqualValues(t, 1, e.enrollmentCount(t, sess.UserID, course.ID))
}

func TestCanAccess_PrivateCourseWithoutEnrollment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sess := e.student(t)
	course := e.course(t, models.CoursePrivate)

	decision, err := e.svc.Enrollment.CanAccess(ctx, sess, course.ID)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonRequiresAccessRequest, decision.Reason)
	assert.False(t, decision.PendingRequest)
	assert.EqualValues(t, 0, e.enrollmentCount(t, sess.UserID, course.ID))

	_, err = e.svc.AccessRequests.Create(ctx, sess, course.ID, "please")
	require.NoError(t, err)

	decision, err = e.svc.Enrollment.CanAccess(ctx, sess, course.ID)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.True(t, decision.PendingRequest)
}

func TestCanAccess_PrivateCourseEnrolled(t *testing.T) {
	e := newEnv(t)
	sess := e.student(t)
	course := e.course(t, models.CoursePrivate)
	testutil.SeedEnrollment(t, e.db, sess.UserID, course.ID, fixedNow)

	decision, err := e.svc.Enrollment.CanAccess(context.Background(), sess, course.ID)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, ReasonEnrolled, decision.Reason)
}

func TestCanAccess_AdminBypassesGate(t *testing.T) {
	e := newEnv(t)
	admin := e.admin(t)
	course := testutil.SeedCourse(t, e.db, testutil.CourseOpts{Type: models.CoursePrivate})

	decision, err := e.svc.Enrollment.CanAccess(context.Background(), admin, course.ID)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, ReasonAdmin, decision.Reason)
	assert.EqualValues(t, 0, e.enrollmentCount(t, admin.UserID, course.ID))
}

func TestCanAccess_Errors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sess := e.student(t)
	draft := testutil.SeedCourse(t, e.db, testutil.CourseOpts{Published: false})

	_, err := e.svc.Enrollment.CanAccess(ctx, sess, draft.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.svc.Enrollment.CanAccess(ctx, sess, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.svc.Enrollment.CanAccess(ctx, Session{}, draft.ID)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestEnroll(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sess := e.student(t)
	free := e.course(t, models.CourseFree)
	private := e.course(t, models.CoursePrivate)

	first, err := e.svc.Enrollment.Enroll(ctx, sess, free.ID)
	require.NoError(t, err)
	second, err := e.svc.Enrollment.Enroll(ctx, sess, free.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.EnrolledAt.Equal(fixedNow))

	_, err = e.svc.Enrollment.Enroll(ctx, sess, private.ID)
	assert.ErrorIs(t, err, ErrAccessRequestRequired)
}
