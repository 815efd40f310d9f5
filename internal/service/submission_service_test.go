package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ecolearn/ecolearn-api/internal/dto"
	"github.com/ecolearn/ecolearn-api/internal/models"
)

var submissionClock = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

type submissionFixture struct {
	fixtures
	svc         *submissionService
	invalidator *recordingInvalidator
	owner       models.User
	pupil       models.Student
	actor       Actor
}

func newSubmissionFixture(t *testing.T) submissionFixture {
	f := newFixtures(t)
	invalidator := &recordingInvalidator{}
	svc := NewSubmissionService(SubmissionDeps{
		Submissions: f.submissions,
		Assignments: f.assignments,
		Students:    f.students,
		Validator:   testValidator(),
		Uploader:    &memoryUploader{},
		Progress:    NewProgressService(f.students, f.badges, nil, testLogger()),
		Dashboards:  invalidator,
	}, testLogger()).(*submissionService)
	svc.now = func() time.Time { return submissionClock }

	owner := f.teacher(t, "owner@school.test")
	class := f.class(t, owner.ID, "6C")
	pupil := f.student(t, "Noor", "noor@school.test", ptrUint(class.ID))

	return submissionFixture{
		fixtures:    f,
		svc:         svc,
		invalidator: invalidator,
		owner:       owner,
		pupil:       pupil,
		actor:       studentActor(pupil, 77),
	}
}

func TestSubmitCreatesAndRewards(t *testing.T) {
	fx := newSubmissionFixture(t)
	ctx := context.Background()
	assignment := fx.assignment(t, fx.owner.ID, fx.pupil.ClassID, submissionClock.Add(24*time.Hour))

	resp, created, err := fx.svc.Submit(ctx, fx.actor, dto.SubmissionCreateRequest{
		AssignmentID: assignment.ID,
		Content:      "  We planted six trees.  ",
	}, nil)
	require.NoError(t, err)
	require.True(t, created)
	require.False(t, resp.Late)
	require.Equal(t, "We planted six trees.", resp.Content)
	require.Equal(t, models.SubmissionStatusSubmitted, resp.Status)
	require.Equal(t, assignment.Title, resp.Assignment.Title)
	require.Equal(t, []uint{fx.pupil.ID}, fx.invalidator.invalidated)

	stored, err := fx.students.GetByID(ctx, fx.pupil.ID)
	require.NoError(t, err)
	require.Equal(t, PointsOnTime, stored.Points)
	require.Equal(t, 1, stored.CurrentStreak)
}

func TestResubmitReplacesWithoutExtraPoints(t *testing.T) {
	fx := newSubmissionFixture(t)
	ctx := context.Background()
	assignment := fx.assignment(t, fx.owner.ID, fx.pupil.ClassID, submissionClock.Add(24*time.Hour))

	first, _, err := fx.svc.Submit(ctx, fx.actor, dto.SubmissionCreateRequest{AssignmentID: assignment.ID, Content: "draft"}, nil)
	require.NoError(t, err)

	second, created, err := fx.svc.Submit(ctx, fx.actor, dto.SubmissionCreateRequest{AssignmentID: assignment.ID, Content: "final"}, newFileHeader(t, "poster.png", pngHeader))
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "final", second.Content)
	require.Equal(t, "https://files.test/poster.png", second.FileURL)

	stored, err := fx.students.GetByID(ctx, fx.pupil.ID)
	require.NoError(t, err)
	require.Equal(t, PointsOnTime, stored.Points)
}

func TestSubmitPastDue(t *testing.T) {
	fx := newSubmissionFixture(t)
	ctx := context.Background()
	closed := fx.assignment(t, fx.owner.ID, fx.pupil.ClassID, submissionClock.Add(-time.Hour))
	lenient := fx.assignment(t, fx.owner.ID, fx.pupil.ClassID, submissionClock.Add(-time.Hour), func(a *models.Assignment) {
		a.AllowLate = true
	})

	_, _, err := fx.svc.Submit(ctx, fx.actor, dto.SubmissionCreateRequest{AssignmentID: closed.ID, Content: "sorry"}, nil)
	require.ErrorIs(t, err, ErrAssignmentClosed)

	resp, created, err := fx.svc.Submit(ctx, fx.actor, dto.SubmissionCreateRequest{AssignmentID: lenient.ID, Content: "sorry"}, nil)
	require.NoError(t, err)
	require.True(t, created)
	require.True(t, resp.Late)

	stored, err := fx.students.GetByID(ctx, fx.pupil.ID)
	require.NoError(t, err)
	require.Equal(t, PointsLate, stored.Points)
}

func TestSubmitRejectsInvalidRequests(t *testing.T) {
	fx := newSubmissionFixture(t)
	ctx := context.Background()
	due := submissionClock.Add(24 * time.Hour)
	draft := fx.assignment(t, fx.owner.ID, fx.pupil.ClassID, due, func(a *models.Assignment) {
		a.Status = models.AssignmentStatusDraft
	})
	otherClass := fx.class(t, fx.owner.ID, "6D")
	foreign := fx.assignment(t, fx.owner.ID, ptrUint(otherClass.ID), due)
	open := fx.assignment(t, fx.owner.ID, nil, due)

	_, _, err := fx.svc.Submit(ctx, teacherActor(fx.owner), dto.SubmissionCreateRequest{AssignmentID: open.ID, Content: "x"}, nil)
	require.ErrorIs(t, err, ErrStudentAccountNeeded)

	_, _, err = fx.svc.Submit(ctx, fx.actor, dto.SubmissionCreateRequest{AssignmentID: open.ID, Content: "   "}, nil)
	require.ErrorIs(t, err, ErrSubmissionEmpty)

	_, _, err = fx.svc.Submit(ctx, fx.actor, dto.SubmissionCreateRequest{AssignmentID: draft.ID, Content: "x"}, nil)
	require.ErrorIs(t, err, ErrAssignmentNotPublished)

	_, _, err = fx.svc.Submit(ctx, fx.actor, dto.SubmissionCreateRequest{AssignmentID: foreign.ID, Content: "x"}, nil)
	require.ErrorIs(t, err, ErrForbidden)

	_, _, err = fx.svc.Submit(ctx, fx.actor, dto.SubmissionCreateRequest{AssignmentID: 4040, Content: "x"}, nil)
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestGradedSubmissionIsLocked(t *testing.T) {
	fx := newSubmissionFixture(t)
	ctx := context.Background()
	assignment := fx.assignment(t, fx.owner.ID, fx.pupil.ClassID, submissionClock.Add(24*time.Hour))

	resp, _, err := fx.svc.Submit(ctx, fx.actor, dto.SubmissionCreateRequest{AssignmentID: assignment.ID, Content: "done"}, nil)
	require.NoError(t, err)

	stored, err := fx.submissions.GetByID(ctx, resp.ID)
	require.NoError(t, err)
	stored.Status = models.SubmissionStatusGraded
	require.NoError(t, fx.submissions.Update(ctx, &stored))

	_, _, err = fx.svc.Submit(ctx, fx.actor, dto.SubmissionCreateRequest{AssignmentID: assignment.ID, Content: "again"}, nil)
	require.ErrorIs(t, err, ErrSubmissionLocked)
}

func TestSubmissionVisibility(t *testing.T) {
	fx := newSubmissionFixture(t)
	ctx := context.Background()
	assignment := fx.assignment(t, fx.owner.ID, fx.pupil.ClassID, submissionClock.Add(24*time.Hour))
	classmate := fx.student(t, "Omar", "omar@school.test", fx.pupil.ClassID)

	own, _, err := fx.svc.Submit(ctx, fx.actor, dto.SubmissionCreateRequest{AssignmentID: assignment.ID, Content: "mine"}, nil)
	require.NoError(t, err)
	theirs, _, err := fx.svc.Submit(ctx, studentActor(classmate, 78), dto.SubmissionCreateRequest{AssignmentID: assignment.ID, Content: "theirs"}, nil)
	require.NoError(t, err)

	list, err := fx.svc.List(ctx, fx.actor, dto.SubmissionFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, own.ID, list[0].ID)

	_, err = fx.svc.Get(ctx, fx.actor, theirs.ID)
	require.ErrorIs(t, err, ErrForbidden)

	staffList, err := fx.svc.List(ctx, teacherActor(fx.owner), dto.SubmissionFilter{AssignmentID: ptrUint(assignment.ID)})
	require.NoError(t, err)
	require.Len(t, staffList, 2)

	stranger := fx.teacher(t, "stranger@school.test")
	_, err = fx.svc.List(ctx, teacherActor(stranger), dto.SubmissionFilter{AssignmentID: ptrUint(assignment.ID)})
	require.ErrorIs(t, err, ErrForbidden)

	empty, err := fx.svc.List(ctx, teacherActor(stranger), dto.SubmissionFilter{})
	require.NoError(t, err)
	require.Empty(t, empty)
}
