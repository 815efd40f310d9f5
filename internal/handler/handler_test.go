package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ecolearn/ecolearn-api/internal/auth"
	"github.com/ecolearn/ecolearn-api/internal/config"
	"github.com/ecolearn/ecolearn-api/internal/database"
	"github.com/ecolearn/ecolearn-api/internal/handler"
	"github.com/ecolearn/ecolearn-api/internal/middleware"
	"github.com/ecolearn/ecolearn-api/internal/models"
	"github.com/ecolearn/ecolearn-api/internal/repository"
	"github.com/ecolearn/ecolearn-api/internal/router"
	"github.com/ecolearn/ecolearn-api/internal/service"
	"github.com/ecolearn/ecolearn-api/pkg/ai"
	"github.com/ecolearn/ecolearn-api/pkg/mailer"
)

const (
	testAccessSecret  = "handler-access-secret"
	testRefreshSecret = "handler-refresh-secret"
	testMaxUpload     = 1 << 20
)

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Meta    json.RawMessage   `json:"meta"`
	Details map[string]string `json:"details"`
}

type testUploader struct{}

func (testUploader) Upload(_ context.Context, name string, reader io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return "", err
	}
	return "https://files.test/" + name, nil
}

type testEnv struct {
	app           *fiber.App
	db            *gorm.DB
	users         repository.UserRepository
	classes       repository.ClassRepository
	students      repository.StudentRepository
	notifications service.NotificationService
}

type envOption func(*envOptions)

type envOptions struct {
	assistant ai.Assistant
}

func withAssistant(assistant ai.Assistant) envOption {
	return func(o *envOptions) { o.assistant = assistant }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	options := envOptions{assistant: ai.Disabled{}}
	for _, opt := range opts {
		opt(&options)
	}

	db, err := database.ConnectSQLite("")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	logger := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	classRepo := repository.NewClassRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	badgeRepo := repository.NewBadgeRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	joinCodes, err := service.NewJoinCodeGenerator("handler-salt")
	require.NoError(t, err)
	usernames, err := service.NewUsernameGenerator("handler-salt")
	require.NoError(t, err)

	activityService := service.NewActivityService(activityRepo, logger)
	notificationService := service.NewNotificationService(repository.NewNotificationRepository(db), userRepo, nil, "", nil, logger)
	dashboardService := service.NewDashboardService(assignmentRepo, submissionRepo, studentRepo, classRepo, nil, 0, logger)
	progressService := service.NewProgressService(studentRepo, badgeRepo, notificationService, logger)
	authService := service.NewAuthService(userRepo, studentRepo, service.TokenConfig{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
	}, validate, activityService, logger)
	assignmentService := service.NewAssignmentService(service.AssignmentDeps{
		Assignments:    assignmentRepo,
		Classes:        classRepo,
		Students:       studentRepo,
		Validator:      validate,
		Uploader:       testUploader{},
		Notifier:       notificationService,
		Activity:       activityService,
		MaxUploadBytes: testMaxUpload,
	}, logger)
	submissionService := service.NewSubmissionService(service.SubmissionDeps{
		Submissions:    submissionRepo,
		Assignments:    assignmentRepo,
		Students:       studentRepo,
		Validator:      validate,
		Uploader:       testUploader{},
		Progress:       progressService,
		Dashboards:     dashboardService,
		MaxUploadBytes: testMaxUpload,
	}, logger)
	gradingService := service.NewGradingService(service.GradingDeps{
		Submissions: submissionRepo,
		Validator:   validate,
		Activity:    activityService,
		Progress:    progressService,
		Notifier:    notificationService,
		Dashboards:  dashboardService,
	}, logger)
	aiService := service.NewAIGradingService(options.assistant, assignmentRepo, submissionRepo, classRepo, activityService, logger)

	cfg := config.Config{
		AppName:         "EcoLearn Test",
		AppEnv:          "test",
		JWTSecret:       testAccessSecret,
		RateLimitMax:    1000,
		RateLimitWindow: time.Minute,
	}

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:         handler.NewAuthHandler(authService, logger),
		ClassHandler:        handler.NewClassHandler(service.NewClassService(classRepo, studentRepo, joinCodes, validate, activityService, logger), logger),
		StudentHandler:      handler.NewStudentHandler(service.NewStudentService(studentRepo, classRepo, validate, activityService, logger), service.NewCredentialService(studentRepo, userRepo, classRepo, usernames, mailer.Disabled{Logger: logger}, notificationService, activityService, logger), progressService, logger),
		AssignmentHandler:   handler.NewAssignmentHandler(assignmentService, aiService, logger),
		SubmissionHandler:   handler.NewSubmissionHandler(submissionService, gradingService, aiService, logger),
		BadgeHandler:        handler.NewBadgeHandler(service.NewBadgeService(badgeRepo, validate, activityService, logger), logger),
		DashboardHandler:    handler.NewDashboardHandler(dashboardService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger, time.Second),
		ActivityHandler:     handler.NewAdminActivityHandler(activityService, logger),
		Health:              handler.HealthDependencies{DB: db},
		JWTMiddleware:       middleware.JWTProtected(testAccessSecret),
	})

	return &testEnv{
		app:           app,
		db:            db,
		users:         userRepo,
		classes:       classRepo,
		students:      studentRepo,
		notifications: notificationService,
	}
}

func (e *testEnv) account(t *testing.T, user models.User, password string) models.User {
	t.Helper()
	hash, err := service.HashPassword(password)
	require.NoError(t, err)
	user.PasswordHash = hash
	user.Active = true
	require.NoError(t, e.users.Create(context.Background(), &user))
	return user
}

func (e *testEnv) admin(t *testing.T) models.User {
	return e.account(t, models.User{Name: "Admin", Email: "admin@school.test", Username: "admin", Role: models.RoleAdmin}, "admin-pass")
}

func (e *testEnv) teacher(t *testing.T, username string) models.User {
	return e.account(t, models.User{Name: "Teacher " + username, Email: username + "@school.test", Username: username, Role: models.RoleTeacher}, "teacher-pass")
}

func (e *testEnv) class(t *testing.T, teacherID uint, name string) models.Class {
	t.Helper()
	class := models.Class{Name: name, GradeLevel: 5, TeacherID: teacherID}
	require.NoError(t, e.classes.Create(context.Background(), &class))
	return class
}

func (e *testEnv) student(t *testing.T, name string, classID *uint) (models.Student, models.User) {
	t.Helper()
	email := name + "@students.test"
	student := models.Student{Name: name, Email: email, ClassID: classID, Status: models.StudentStatusActive}
	require.NoError(t, e.students.Create(context.Background(), &student))
	id := student.ID
	user := e.account(t, models.User{Name: name, Email: email, Username: name, Role: models.RoleStudent, StudentID: &id}, "student-pass")
	return student, user
}

func tokenFor(t *testing.T, user models.User) string {
	t.Helper()
	token, _, err := auth.Issue(auth.Subject{
		UserID:    user.ID,
		Role:      user.Role,
		Name:      user.Name,
		StudentID: user.StudentID,
	}, auth.TokenTypeAccess, testAccessSecret, time.Hour, time.Now())
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(data, target))
}

// expectStatus decodes the envelope and unmarshals its data into target when
// target is non-nil.
func expectStatus(t *testing.T, resp *http.Response, status int, target interface{}) envelope {
	t.Helper()
	var body envelope
	decodeResponse(t, resp, &body)
	require.Equal(t, status, resp.StatusCode, body.Message)
	if target != nil {
		require.NoError(t, json.Unmarshal(body.Data, target))
	}
	return body
}
