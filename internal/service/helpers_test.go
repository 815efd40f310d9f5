package service

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ecolearn/ecolearn-api/internal/database"
	"github.com/ecolearn/ecolearn-api/internal/grading"
	"github.com/ecolearn/ecolearn-api/internal/models"
	"github.com/ecolearn/ecolearn-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func ptrUint(v uint) *uint {
	return &v
}

func ptrFloat(v float64) *float64 {
	return &v
}

func ptrString(v string) *string {
	return &v
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.ConnectSQLite("")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

type fixtures struct {
	db          *gorm.DB
	users       repository.UserRepository
	classes     repository.ClassRepository
	students    repository.StudentRepository
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	badges      repository.BadgeRepository
	activity    repository.ActivityLogRepository
}

func newFixtures(t *testing.T) fixtures {
	db := newTestDB(t)
	return fixtures{
		db:          db,
		users:       repository.NewUserRepository(db),
		classes:     repository.NewClassRepository(db),
		students:    repository.NewStudentRepository(db),
		assignments: repository.NewAssignmentRepository(db),
		submissions: repository.NewSubmissionRepository(db),
		badges:      repository.NewBadgeRepository(db),
		activity:    repository.NewActivityLogRepository(db),
	}
}

func (f fixtures) teacher(t *testing.T, email string) models.User {
	t.Helper()
	user := models.User{Name: "Teacher " + email, Email: email, Username: email, PasswordHash: "x", Role: models.RoleTeacher, Active: true}
	require.NoError(t, f.users.Create(context.Background(), &user))
	return user
}

func (f fixtures) class(t *testing.T, teacherID uint, name string) models.Class {
	t.Helper()
	class := models.Class{Name: name, GradeLevel: 5, TeacherID: teacherID}
	require.NoError(t, f.classes.Create(context.Background(), &class))
	return class
}

func (f fixtures) student(t *testing.T, name, email string, classID *uint) models.Student {
	t.Helper()
	student := models.Student{Name: name, Email: email, ClassID: classID, Status: models.StudentStatusActive}
	require.NoError(t, f.students.Create(context.Background(), &student))
	return student
}

func (f fixtures) studentAccount(t *testing.T, student models.Student) models.User {
	t.Helper()
	id := student.ID
	user := models.User{Name: student.Name, Email: student.Email, Username: student.Email, PasswordHash: "x", Role: models.RoleStudent, StudentID: &id, Active: true}
	require.NoError(t, f.users.Create(context.Background(), &user))
	return user
}

func (f fixtures) assignment(t *testing.T, teacherID uint, classID *uint, due time.Time, mutate ...func(*models.Assignment)) models.Assignment {
	t.Helper()
	assignment := models.Assignment{
		ClassID:   classID,
		TeacherID: teacherID,
		Title:     "Compost Report",
		DueDate:   due,
		MaxPoints: 100,
		Status:    models.AssignmentStatusPublished,
	}
	assignment.SetRubricWeights(grading.DefaultRubricWeights())
	for _, fn := range mutate {
		fn(&assignment)
	}
	require.NoError(t, f.assignments.Create(context.Background(), &assignment))
	return assignment
}

func studentActor(student models.Student, userID uint) Actor {
	id := student.ID
	return Actor{ID: userID, Role: models.RoleStudent, StudentID: &id}
}

func teacherActor(user models.User) Actor {
	return Actor{ID: user.ID, Role: models.RoleTeacher}
}

func adminActor() Actor {
	return Actor{ID: 999, Role: models.RoleAdmin}
}

type sentNotification struct {
	StudentID uint
	Input     NotificationInput
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (r *recordingNotifier) NotifyStudent(_ context.Context, studentID uint, input NotificationInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNotification{StudentID: studentID, Input: input})
	return nil
}

func (r *recordingNotifier) ofType(kind string) []sentNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []sentNotification
	for _, item := range r.sent {
		if item.Input.Type == kind {
			matched = append(matched, item)
		}
	}
	return matched
}

type recordingInvalidator struct {
	invalidated []uint
}

func (r *recordingInvalidator) Invalidate(_ context.Context, studentID uint) {
	r.invalidated = append(r.invalidated, studentID)
}

type memoryUploader struct {
	uploads map[string][]byte
}

func (m *memoryUploader) Upload(_ context.Context, name string, reader io.Reader) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	if m.uploads == nil {
		m.uploads = map[string][]byte{}
	}
	m.uploads[name] = data
	return "https://files.test/" + name, nil
}

func newFileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(int64(len(content))+1<<20))
	return req.MultipartForm.File["file"][0]
}

var pngHeader = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func (f fixtures) submission(t *testing.T, assignmentID, studentID uint, content string) models.Submission {
	t.Helper()
	submission := models.Submission{
		AssignmentID: assignmentID,
		StudentID:    studentID,
		Content:      content,
		Status:       models.SubmissionStatusSubmitted,
	}
	require.NoError(t, f.submissions.Create(context.Background(), &submission))
	return submission
}
