package handler_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/ecolearn/ecolearn-api/internal/dto"
	"github.com/ecolearn/ecolearn-api/internal/models"
)

func idPath(prefix string, id uint) string {
	return prefix + "/" + strconv.FormatUint(uint64(id), 10)
}

func TestClassHandlerLifecycle(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.teacher(t, "rina")
	token := tokenFor(t, teacher)

	var class dto.ClassResponse
	expectStatus(t, doJSON(t, env.app, http.MethodPost, "/api/v1/classes", token, dto.ClassCreateRequest{Name: "Green Rangers", GradeLevel: 5, Section: "A"}), fiber.StatusCreated, &class)
	require.Equal(t, teacher.ID, class.TeacherID)
	require.NotEmpty(t, class.JoinCode)

	hana, hanaUser := env.student(t, "hana", nil)
	var resolved dto.ClassResponse
	expectStatus(t, doJSON(t, env.app, http.MethodGet, "/api/v1/classes/join/"+class.JoinCode, tokenFor(t, hanaUser), nil), fiber.StatusOK, &resolved)
	require.Equal(t, class.ID, resolved.ID)
	expectStatus(t, doJSON(t, env.app, http.MethodGet, "/api/v1/classes/join/NOPE42", tokenFor(t, hanaUser), nil), fiber.StatusNotFound, nil)

	var assigned struct {
		ClassID  uint  `json:"class_id"`
		Assigned int64 `json:"assigned"`
	}
	expectStatus(t, doJSON(t, env.app, http.MethodPost, idPath("/api/v1/classes", class.ID)+"/students", token, dto.ClassAssignStudentsRequest{StudentIDs: []uint{hana.ID}}), fiber.StatusOK, &assigned)
	require.EqualValues(t, 1, assigned.Assigned)

	var roster []dto.StudentResponse
	expectStatus(t, doJSON(t, env.app, http.MethodGet, idPath("/api/v1/classes", class.ID)+"/students", token, nil), fiber.StatusOK, &roster)
	require.Len(t, roster, 1)

	var leaderboard []dto.LeaderboardEntry
	expectStatus(t, doJSON(t, env.app, http.MethodGet, idPath("/api/v1/classes", class.ID)+"/leaderboard?limit=5", token, nil), fiber.StatusOK, &leaderboard)
	require.Len(t, leaderboard, 1)

	stranger := env.teacher(t, "budi")
	name := "Taken Over"
	expectStatus(t, doJSON(t, env.app, http.MethodPatch, idPath("/api/v1/classes", class.ID), tokenFor(t, stranger), dto.ClassUpdateRequest{Name: &name}), fiber.StatusForbidden, nil)

	body := expectStatus(t, doJSON(t, env.app, http.MethodPost, "/api/v1/classes", token, dto.ClassCreateRequest{Name: "X"}), fiber.StatusBadRequest, nil)
	require.Equal(t, "validation failed", body.Message)
	expectStatus(t, doJSON(t, env.app, http.MethodPost, "/api/v1/classes", tokenFor(t, hanaUser), dto.ClassCreateRequest{Name: "Student Club", GradeLevel: 5}), fiber.StatusForbidden, nil)
}

func TestStudentHandlerRosterAndCredentials(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.teacher(t, "rina")
	class := env.class(t, teacher.ID, "5A")
	token := tokenFor(t, teacher)

	var created dto.StudentResponse
	expectStatus(t, doJSON(t, env.app, http.MethodPost, "/api/v1/students", token, dto.StudentCreateRequest{Name: "Sari", Email: "Sari@Students.test", ClassID: &class.ID}), fiber.StatusCreated, &created)
	require.Equal(t, "sari@students.test", created.Email)

	expectStatus(t, doJSON(t, env.app, http.MethodPost, "/api/v1/students", token, dto.StudentCreateRequest{Name: "Sari", Email: "sari@students.test"}), fiber.StatusConflict, nil)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "roster.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("name,email\nDewi,dewi@students.test\n,missing@students.test\nSari Updated,sari@students.test\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/students/import", body)
	req.Header.Set(fiber.HeaderContentType, writer.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)

	var imported dto.StudentImportResult
	expectStatus(t, resp, fiber.StatusOK, &imported)
	require.Equal(t, 1, imported.Inserted)
	require.Equal(t, 1, imported.Updated)
	require.Len(t, imported.Errors, 1)

	listBody := expectStatus(t, doJSON(t, env.app, http.MethodGet, "/api/v1/students?page_size=1", token, nil), fiber.StatusOK, nil)
	require.NotEmpty(t, listBody.Meta)

	var credentials dto.CredentialResponse
	expectStatus(t, doJSON(t, env.app, http.MethodPost, idPath("/api/v1/students", created.ID)+"/credentials", token, nil), fiber.StatusCreated, &credentials)
	require.Equal(t, created.ID, credentials.StudentID)
	require.NotEmpty(t, credentials.Username)
	require.NotEmpty(t, credentials.Password)
	require.False(t, credentials.EmailSent)

	var tokens dto.TokenResponse
	expectStatus(t, doJSON(t, env.app, http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Identifier: credentials.Username, Password: credentials.Password}), fiber.StatusOK, &tokens)
	require.Equal(t, models.RoleStudent, tokens.Session.Role)
	require.NotNil(t, tokens.Session.ClassID)
	require.Equal(t, class.ID, *tokens.Session.ClassID)

	var progress dto.ProgressResponse
	expectStatus(t, doJSON(t, env.app, http.MethodGet, idPath("/api/v1/students", created.ID)+"/progress", token, nil), fiber.StatusOK, &progress)
	require.Equal(t, created.ID, progress.StudentID)
	require.Zero(t, progress.Points)

	var dashboard dto.StudentDashboardResponse
	expectStatus(t, doJSON(t, env.app, http.MethodGet, "/api/v1/student/dashboard", tokens.AccessToken, nil), fiber.StatusOK, &dashboard)
	require.Zero(t, dashboard.Summary.TotalAssignments)

	expectStatus(t, doJSON(t, env.app, http.MethodGet, "/api/v1/student/dashboard", token, nil), fiber.StatusForbidden, nil)
	expectStatus(t, doJSON(t, env.app, http.MethodGet, "/api/v1/teacher/dashboard", token, nil), fiber.StatusOK, nil)
}

func TestBadgeHandlerAdminOnlyWrites(t *testing.T) {
	env := newTestEnv(t)
	admin := env.admin(t)
	teacher := env.teacher(t, "rina")

	req := dto.BadgeCreateRequest{Name: "Compost Champion", Criterion: "points", Threshold: 200}

	expectStatus(t, doJSON(t, env.app, http.MethodPost, "/api/v1/badges", tokenFor(t, teacher), req), fiber.StatusForbidden, nil)

	var badge dto.BadgeResponse
	expectStatus(t, doJSON(t, env.app, http.MethodPost, "/api/v1/badges", tokenFor(t, admin), req), fiber.StatusCreated, &badge)
	require.Equal(t, "Compost Champion", badge.Name)

	expectStatus(t, doJSON(t, env.app, http.MethodPost, "/api/v1/badges", tokenFor(t, admin), req), fiber.StatusConflict, nil)

	var badges []dto.BadgeResponse
	expectStatus(t, doJSON(t, env.app, http.MethodGet, "/api/v1/badges", tokenFor(t, teacher), nil), fiber.StatusOK, &badges)
	require.Len(t, badges, 1)

	expectStatus(t, doJSON(t, env.app, http.MethodDelete, idPath("/api/v1/badges", badge.ID), tokenFor(t, admin), nil), fiber.StatusOK, nil)
	expectStatus(t, doJSON(t, env.app, http.MethodDelete, idPath("/api/v1/badges", badge.ID), tokenFor(t, admin), nil), fiber.StatusNotFound, nil)
}
