package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/ecolearn/ecolearn-api/internal/models"
)

var dashboardClock = time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)

type dashboardFixture struct {
	fixtures
	svc     *dashboardService
	cache   *miniredis.Miniredis
	owner   models.User
	pupil   models.Student
	classID uint
}

func newDashboardFixture(t *testing.T) dashboardFixture {
	f := newFixtures(t)
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc := NewDashboardService(f.assignments, f.submissions, f.students, f.classes, client, time.Minute, testLogger()).(*dashboardService)
	svc.now = func() time.Time { return dashboardClock }

	owner := f.teacher(t, "owner@school.test")
	class := f.class(t, owner.ID, "7A")
	pupil := f.student(t, "Hana", "hana@school.test", ptrUint(class.ID))

	return dashboardFixture{fixtures: f, svc: svc, cache: server, owner: owner, pupil: pupil, classID: class.ID}
}

func (fx dashboardFixture) grade(t *testing.T, submission models.Submission, score float64, letter string) {
	t.Helper()
	stored, err := fx.submissions.GetByID(context.Background(), submission.ID)
	require.NoError(t, err)
	stored.Status = models.SubmissionStatusGraded
	stored.Score = &score
	stored.LetterGrade = letter
	require.NoError(t, fx.submissions.Update(context.Background(), &stored))
}

func TestStudentDashboardSummary(t *testing.T) {
	fx := newDashboardFixture(t)
	ctx := context.Background()
	future := dashboardClock.Add(72 * time.Hour)
	past := dashboardClock.Add(-24 * time.Hour)

	graded := fx.assignment(t, fx.owner.ID, ptrUint(fx.classID), future, func(a *models.Assignment) { a.MaxPoints = 50 })
	submitted := fx.assignment(t, fx.owner.ID, ptrUint(fx.classID), future)
	fx.assignment(t, fx.owner.ID, ptrUint(fx.classID), past)
	fx.assignment(t, fx.owner.ID, nil, future)

	otherClass := fx.class(t, fx.owner.ID, "7B")
	fx.assignment(t, fx.owner.ID, ptrUint(otherClass.ID), future)
	fx.assignment(t, fx.owner.ID, ptrUint(fx.classID), future, func(a *models.Assignment) {
		a.Status = models.AssignmentStatusDraft
	})

	fx.grade(t, fx.submission(t, graded.ID, fx.pupil.ID, "graded work"), 45, "A+")
	fx.submission(t, submitted.ID, fx.pupil.ID, "waiting")

	dashboard, err := fx.svc.Student(ctx, studentActor(fx.pupil, 21))
	require.NoError(t, err)

	summary := dashboard.Summary
	require.Equal(t, 4, summary.TotalAssignments)
	require.Equal(t, 2, summary.Submitted)
	require.Equal(t, 1, summary.Graded)
	require.Equal(t, 2, summary.Pending)
	require.Equal(t, 1, summary.Overdue)
	require.InDelta(t, 90.0, summary.AveragePercentage, 0.001)
	require.Equal(t, "A+", summary.AverageLetter)
	require.InDelta(t, 50.0, summary.CompletionRate, 0.001)
	require.Len(t, dashboard.Pending, 3)
	require.Len(t, dashboard.RecentSubmissions, 2)
}

func TestStudentDashboardIsCachedUntilInvalidated(t *testing.T) {
	fx := newDashboardFixture(t)
	ctx := context.Background()
	actor := studentActor(fx.pupil, 21)
	fx.assignment(t, fx.owner.ID, ptrUint(fx.classID), dashboardClock.Add(time.Hour))

	first, err := fx.svc.Student(ctx, actor)
	require.NoError(t, err)
	require.Equal(t, 1, first.Summary.TotalAssignments)
	require.True(t, fx.cache.Exists(dashboardCacheKey(fx.pupil.ID)))

	fx.assignment(t, fx.owner.ID, ptrUint(fx.classID), dashboardClock.Add(2*time.Hour))

	cached, err := fx.svc.Student(ctx, actor)
	require.NoError(t, err)
	require.Equal(t, 1, cached.Summary.TotalAssignments)

	fx.svc.Invalidate(ctx, fx.pupil.ID)
	require.False(t, fx.cache.Exists(dashboardCacheKey(fx.pupil.ID)))

	fresh, err := fx.svc.Student(ctx, actor)
	require.NoError(t, err)
	require.Equal(t, 2, fresh.Summary.TotalAssignments)
}

func TestStudentDashboardRequiresStudent(t *testing.T) {
	fx := newDashboardFixture(t)

	_, err := fx.svc.Student(context.Background(), teacherActor(fx.owner))
	require.ErrorIs(t, err, ErrStudentAccountNeeded)
}

func TestTeacherDashboard(t *testing.T) {
	fx := newDashboardFixture(t)
	ctx := context.Background()
	future := dashboardClock.Add(48 * time.Hour)

	first := fx.assignment(t, fx.owner.ID, ptrUint(fx.classID), future)
	second := fx.assignment(t, fx.owner.ID, ptrUint(fx.classID), future)
	fx.assignment(t, fx.owner.ID, ptrUint(fx.classID), future, func(a *models.Assignment) {
		a.Status = models.AssignmentStatusDraft
	})

	fx.grade(t, fx.submission(t, first.ID, fx.pupil.ID, "done"), 95, "A+")
	fx.submission(t, second.ID, fx.pupil.ID, "pending")

	other := fx.teacher(t, "other@school.test")
	otherClass := fx.class(t, other.ID, "8A")
	otherPupil := fx.student(t, "Ivo", "ivo@school.test", ptrUint(otherClass.ID))
	foreign := fx.assignment(t, other.ID, ptrUint(otherClass.ID), future)
	fx.submission(t, foreign.ID, otherPupil.ID, "elsewhere")

	dashboard, err := fx.svc.Teacher(ctx, teacherActor(fx.owner))
	require.NoError(t, err)
	require.Equal(t, 1, dashboard.Classes)
	require.EqualValues(t, 1, dashboard.Students)
	require.EqualValues(t, 3, dashboard.Assignments)
	require.EqualValues(t, 2, dashboard.PublishedAssignments)
	require.EqualValues(t, 1, dashboard.PendingGrading)
	require.Len(t, dashboard.GradeDistribution, 12)
	require.EqualValues(t, 1, dashboard.GradeDistribution["A+"])
	require.EqualValues(t, 0, dashboard.GradeDistribution["F"])
	require.Len(t, dashboard.AwaitingGrading, 1)
	require.Equal(t, "Hana", dashboard.AwaitingGrading[0].StudentName)

	admin, err := fx.svc.Teacher(ctx, adminActor())
	require.NoError(t, err)
	require.Equal(t, 2, admin.Classes)
	require.EqualValues(t, 2, admin.Students)
	require.EqualValues(t, 2, admin.PendingGrading)

	_, err = fx.svc.Teacher(ctx, studentActor(fx.pupil, 21))
	require.ErrorIs(t, err, ErrForbidden)
}
