package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ecolearn/ecolearn-api/internal/auth"
	"github.com/ecolearn/ecolearn-api/internal/dto"
	"github.com/ecolearn/ecolearn-api/internal/models"
	"github.com/ecolearn/ecolearn-api/internal/repository"
)

var testTokens = TokenConfig{
	AccessSecret:  "access-secret",
	RefreshSecret: "refresh-secret",
	AccessTTL:     15 * time.Minute,
	RefreshTTL:    time.Hour,
}

func newAuthFixture(t *testing.T) (fixtures, AuthService) {
	f := newFixtures(t)
	svc := NewAuthService(f.users, f.students, testTokens, testValidator(), NewActivityService(f.activity, testLogger()), testLogger())
	return f, svc
}

func createAccount(t *testing.T, f fixtures, user models.User, password string) models.User {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	user.PasswordHash = hash
	user.Active = true
	require.NoError(t, f.users.Create(context.Background(), &user))
	return user
}

func TestLoginAcceptsEmailOrUsername(t *testing.T) {
	f, svc := newAuthFixture(t)
	ctx := context.Background()
	user := createAccount(t, f, models.User{Name: "Rina", Email: "rina@school.test", Username: "rina", Role: models.RoleTeacher}, "secret123")

	byEmail, err := svc.Login(ctx, dto.LoginRequest{Identifier: "RINA@school.test", Password: "secret123"})
	require.NoError(t, err)
	require.Equal(t, "Bearer", byEmail.TokenType)
	require.Equal(t, user.ID, byEmail.Session.UserID)
	require.Equal(t, models.RoleTeacher, byEmail.Session.Role)

	claims, err := auth.Parse(byEmail.AccessToken, testTokens.AccessSecret, auth.TokenTypeAccess)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)

	_, err = auth.Parse(byEmail.RefreshToken, testTokens.AccessSecret, auth.TokenTypeRefresh)
	require.Error(t, err)

	byUsername, err := svc.Login(ctx, dto.LoginRequest{Identifier: "rina", Password: "secret123"})
	require.NoError(t, err)
	require.Equal(t, user.ID, byUsername.Session.UserID)

	stored, err := f.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLoginAt)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f, svc := newAuthFixture(t)
	ctx := context.Background()
	user := createAccount(t, f, models.User{Name: "Rina", Email: "rina@school.test", Username: "rina", Role: models.RoleTeacher}, "secret123")

	_, err := svc.Login(ctx, dto.LoginRequest{Identifier: "rina", Password: "wrong-pass"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, dto.LoginRequest{Identifier: "nobody", Password: "secret123"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, dto.LoginRequest{Identifier: "rina", Password: ""})
	require.Error(t, err)

	user.Active = false
	require.NoError(t, f.users.Update(ctx, &user))
	_, err = svc.Login(ctx, dto.LoginRequest{Identifier: "rina", Password: "secret123"})
	require.ErrorIs(t, err, ErrAccountInactive)
}

func TestRefreshIssuesNewPair(t *testing.T) {
	f, svc := newAuthFixture(t)
	ctx := context.Background()
	user := createAccount(t, f, models.User{Name: "Rina", Email: "rina@school.test", Username: "rina", Role: models.RoleTeacher}, "secret123")

	login, err := svc.Login(ctx, dto.LoginRequest{Identifier: "rina", Password: "secret123"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, dto.RefreshRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	require.Equal(t, user.ID, refreshed.Session.UserID)
	require.NotEmpty(t, refreshed.AccessToken)

	_, err = svc.Refresh(ctx, dto.RefreshRequest{RefreshToken: login.AccessToken})
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = svc.Refresh(ctx, dto.RefreshRequest{RefreshToken: "garbage"})
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	user.Active = false
	require.NoError(t, f.users.Update(ctx, &user))
	_, err = svc.Refresh(ctx, dto.RefreshRequest{RefreshToken: login.RefreshToken})
	require.ErrorIs(t, err, ErrAccountInactive)
}

func TestSessionIncludesStudentClass(t *testing.T) {
	f, svc := newAuthFixture(t)
	ctx := context.Background()
	owner := f.teacher(t, "owner@school.test")
	class := f.class(t, owner.ID, "5A")
	student := f.student(t, "Hana", "hana@school.test", &class.ID)
	account := f.studentAccount(t, student)

	session, err := svc.Session(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, models.RoleStudent, session.Role)
	require.NotNil(t, session.StudentID)
	require.Equal(t, student.ID, *session.StudentID)
	require.NotNil(t, session.ClassID)
	require.Equal(t, class.ID, *session.ClassID)

	teacherSession, err := svc.Session(ctx, owner.ID)
	require.NoError(t, err)
	require.Nil(t, teacherSession.ClassID)

	_, err = svc.Session(ctx, 4242)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestCreateTeacherIsAdminOnly(t *testing.T) {
	f, svc := newAuthFixture(t)
	ctx := context.Background()
	existing := f.teacher(t, "existing@school.test")

	req := dto.TeacherCreateRequest{Name: "Budi Santoso", Email: "Budi@School.test", Password: "greenleaf42"}

	_, err := svc.CreateTeacher(ctx, teacherActor(existing), req)
	require.ErrorIs(t, err, ErrForbidden)

	created, err := svc.CreateTeacher(ctx, adminActor(), req)
	require.NoError(t, err)
	require.Equal(t, "budi@school.test", created.Email)
	require.Equal(t, "budi", created.Username)
	require.Equal(t, models.RoleTeacher, created.Role)
	require.True(t, created.Active)

	login, err := svc.Login(ctx, dto.LoginRequest{Identifier: "budi", Password: "greenleaf42"})
	require.NoError(t, err)
	require.Equal(t, created.ID, login.Session.UserID)

	_, err = svc.CreateTeacher(ctx, adminActor(), req)
	require.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.CreateTeacher(ctx, adminActor(), dto.TeacherCreateRequest{Name: "X", Email: "bad", Password: "short"})
	require.Error(t, err)

	logs, _, err := f.activity.List(ctx, repository.ActivityLogFilter{Action: "teacher.create"})
	require.NoError(t, err)
	require.Len(t, logs, 1)
}
