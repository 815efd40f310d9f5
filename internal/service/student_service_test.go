package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ecolearn/ecolearn-api/internal/dto"
	"github.com/ecolearn/ecolearn-api/internal/models"
)

func newStudentFixture(t *testing.T) (fixtures, StudentService) {
	f := newFixtures(t)
	svc := NewStudentService(f.students, f.classes, testValidator(), NewActivityService(f.activity, testLogger()), testLogger())
	return f, svc
}

func TestStudentCreateAndDuplicateEmail(t *testing.T) {
	f, svc := newStudentFixture(t)
	ctx := context.Background()
	teacher := f.teacher(t, "t@school.test")
	class := f.class(t, teacher.ID, "2C")

	created, err := svc.Create(ctx, teacherActor(teacher), dto.StudentCreateRequest{Name: "Zoe", Email: "Zoe@School.test", ClassID: ptrUint(class.ID)})
	require.NoError(t, err)
	require.Equal(t, "zoe@school.test", created.Email)
	require.Equal(t, models.StudentStatusActive, created.Status)

	_, err = svc.Create(ctx, teacherActor(teacher), dto.StudentCreateRequest{Name: "Zoe Again", Email: "zoe@school.test"})
	require.ErrorIs(t, err, ErrStudentEmailTaken)

	_, err = svc.Create(ctx, teacherActor(teacher), dto.StudentCreateRequest{Name: "No Class", Email: "nc@school.test", ClassID: ptrUint(class.ID + 50)})
	require.ErrorIs(t, err, ErrClassNotFound)
}

func TestStudentGetScopesStudents(t *testing.T) {
	f, svc := newStudentFixture(t)
	ctx := context.Background()
	self := f.student(t, "Abe", "abe@school.test", nil)
	other := f.student(t, "Bea", "bea@school.test", nil)

	got, err := svc.Get(ctx, studentActor(self, 1), self.ID)
	require.NoError(t, err)
	require.Equal(t, "Abe", got.Name)

	_, err = svc.Get(ctx, studentActor(self, 1), other.ID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.List(ctx, studentActor(self, 1), dto.StudentListRequest{})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestStudentUpdateAndDelete(t *testing.T) {
	f, svc := newStudentFixture(t)
	ctx := context.Background()
	teacher := f.teacher(t, "t@school.test")
	student := f.student(t, "Cal", "cal@school.test", nil)
	f.student(t, "Dee", "dee@school.test", nil)

	_, err := svc.Update(ctx, teacherActor(teacher), student.ID, dto.StudentUpdateRequest{Email: ptrString("dee@school.test")})
	require.ErrorIs(t, err, ErrStudentEmailTaken)

	updated, err := svc.Update(ctx, teacherActor(teacher), student.ID, dto.StudentUpdateRequest{Name: ptrString("Calvin"), Status: ptrString("inactive")})
	require.NoError(t, err)
	require.Equal(t, "Calvin", updated.Name)
	require.Equal(t, models.StudentStatusInactive, updated.Status)

	require.NoError(t, svc.Delete(ctx, teacherActor(teacher), student.ID))
	_, err = svc.Get(ctx, teacherActor(teacher), student.ID)
	require.ErrorIs(t, err, ErrStudentNotFound)
	require.ErrorIs(t, svc.Delete(ctx, teacherActor(teacher), student.ID), ErrStudentNotFound)

	list, err := svc.List(ctx, adminActor(), dto.StudentListRequest{})
	require.NoError(t, err)
	require.EqualValues(t, 1, list.Pagination.TotalItems)
}

func TestStudentImportCollectsRowErrors(t *testing.T) {
	f, svc := newStudentFixture(t)
	ctx := context.Background()
	teacher := f.teacher(t, "t@school.test")
	stranger := f.teacher(t, "s@school.test")
	mine := f.class(t, teacher.ID, "4C")
	theirs := f.class(t, stranger.ID, "4D")
	f.student(t, "Old Name", "existing@school.test", nil)

	csv := strings.Join([]string{
		"\ufeffName,Email,Class_ID,Roll_Number",
		fmt.Sprintf("Ana,ANA@school.test,%d,R1", mine.ID),
		",missing@school.test,,",
		"Bob,not-an-email,,",
		"Cara,cara@school.test,abc,",
		fmt.Sprintf("Dan,dan@school.test,%d,", theirs.ID),
		"New Name,existing@school.test,,R9",
	}, "\n")

	result, err := svc.Import(ctx, teacherActor(teacher), strings.NewReader(csv))
	require.NoError(t, err)
	require.Equal(t, 1, result.Inserted)
	require.Equal(t, 1, result.Updated)
	require.Len(t, result.Errors, 4)

	rows := []int{}
	for _, rowErr := range result.Errors {
		rows = append(rows, rowErr.Row)
	}
	require.Equal(t, []int{3, 4, 5, 6}, rows)
	require.Equal(t, "name is required", result.Errors[0].Message)
	require.Equal(t, "invalid email", result.Errors[1].Message)
	require.Equal(t, "invalid class_id", result.Errors[2].Message)
	require.Equal(t, ErrForbidden.Error(), result.Errors[3].Message)

	ana, err := f.students.GetByEmail(ctx, "ana@school.test")
	require.NoError(t, err)
	require.Equal(t, mine.ID, *ana.ClassID)
	require.Equal(t, "R1", ana.RollNumber)

	existing, err := f.students.GetByEmail(ctx, "existing@school.test")
	require.NoError(t, err)
	require.Equal(t, "New Name", existing.Name)
	require.Equal(t, "R9", existing.RollNumber)
}

func TestStudentImportRequiresColumns(t *testing.T) {
	_, svc := newStudentFixture(t)

	_, err := svc.Import(context.Background(), adminActor(), strings.NewReader("name,roll_number\nAna,1\n"))
	require.ErrorIs(t, err, ErrInvalidCSV)

	_, err = svc.Import(context.Background(), adminActor(), strings.NewReader(""))
	require.ErrorIs(t, err, ErrInvalidCSV)
}

func TestStudentChangesAreScopedToOwnClasses(t *testing.T) {
	f, svc := newStudentFixture(t)
	ctx := context.Background()
	owner := f.teacher(t, "owner@school.test")
	stranger := f.teacher(t, "stranger@school.test")
	class := f.class(t, owner.ID, "6A")
	student := f.student(t, "Eka", "eka@school.test", ptrUint(class.ID))

	_, err := svc.Update(ctx, teacherActor(stranger), student.ID, dto.StudentUpdateRequest{Name: ptrString("Renamed")})
	require.ErrorIs(t, err, ErrForbidden)
	require.ErrorIs(t, svc.Delete(ctx, teacherActor(stranger), student.ID), ErrForbidden)

	result, err := svc.Import(ctx, teacherActor(stranger), strings.NewReader("name,email\nTaken Over,eka@school.test\n"))
	require.NoError(t, err)
	require.Zero(t, result.Updated)
	require.Len(t, result.Errors, 1)
	require.Equal(t, ErrForbidden.Error(), result.Errors[0].Message)

	unchanged, err := f.students.GetByID(ctx, student.ID)
	require.NoError(t, err)
	require.Equal(t, "Eka", unchanged.Name)

	updated, err := svc.Update(ctx, teacherActor(owner), student.ID, dto.StudentUpdateRequest{Name: ptrString("Eka Putri")})
	require.NoError(t, err)
	require.Equal(t, "Eka Putri", updated.Name)

	_, err = svc.Update(ctx, adminActor(), student.ID, dto.StudentUpdateRequest{RollNumber: ptrString("R7")})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, teacherActor(owner), student.ID))
}

func TestStudentImportReportsPhysicalLineNumbers(t *testing.T) {
	_, svc := newStudentFixture(t)

	csv := strings.Join([]string{
		"name,email,roll_number",
		`"Fajar",fajar@school.test,"first line`,
		`second line"`,
		"",
		",nameless@school.test,",
	}, "\n")

	result, err := svc.Import(context.Background(), adminActor(), strings.NewReader(csv))
	require.NoError(t, err)
	require.Equal(t, 1, result.Inserted)
	require.Len(t, result.Errors, 1)
	require.Equal(t, 5, result.Errors[0].Row)
	require.Equal(t, "name is required", result.Errors[0].Message)
}
