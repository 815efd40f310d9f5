package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ecolearn/ecolearn-api/internal/dto"
	"github.com/ecolearn/ecolearn-api/internal/models"
	"github.com/ecolearn/ecolearn-api/pkg/mailer"
)

type recordingMailer struct {
	messages []mailer.Message
	err      error
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)
	return nil
}

func newCredentialFixture(t *testing.T, mail mailer.Mailer) (fixtures, *credentialService, *recordingNotifier) {
	f := newFixtures(t)
	usernames, err := NewUsernameGenerator("credential tests")
	require.NoError(t, err)
	notifier := &recordingNotifier{}
	svc := NewCredentialService(f.students, f.users, f.classes, usernames, mail, notifier, NewActivityService(f.activity, testLogger()), testLogger()).(*credentialService)
	return f, svc, notifier
}

func TestGenerateCreatesStudentAccount(t *testing.T) {
	mail := &recordingMailer{}
	f, svc, notifier := newCredentialFixture(t, mail)
	svc.password = func() (string, error) { return "Pl4ntTr33s99", nil }
	ctx := context.Background()

	teacher := f.teacher(t, "t@school.test")
	class := f.class(t, teacher.ID, "3C")
	student := f.student(t, "Vera", "Vera@School.test", ptrUint(class.ID))

	resp, err := svc.Generate(ctx, teacherActor(teacher), student.ID, dto.CredentialRequest{SendEmail: true})
	require.NoError(t, err)
	require.Equal(t, "Pl4ntTr33s99", resp.Password)
	require.True(t, strings.HasPrefix(resp.Username, usernamePrefix))
	require.True(t, resp.EmailSent)
	require.Len(t, mail.messages, 1)
	require.Contains(t, mail.messages[0].Text, resp.Username)

	user, err := f.users.GetByStudentID(ctx, student.ID)
	require.NoError(t, err)
	require.Equal(t, models.RoleStudent, user.Role)
	require.Equal(t, resp.UserID, user.ID)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("Pl4ntTr33s99")))

	stored, err := f.students.GetByID(ctx, student.ID)
	require.NoError(t, err)
	require.Equal(t, resp.Username, stored.Username)

	require.Len(t, notifier.ofType(models.NotificationTypeCredentialsIssued), 1)
}

func TestGenerateResetsExistingAccount(t *testing.T) {
	f, svc, _ := newCredentialFixture(t, nil)
	ctx := context.Background()
	student := f.student(t, "Wes", "wes@school.test", nil)

	first, err := svc.Generate(ctx, adminActor(), student.ID, dto.CredentialRequest{})
	require.NoError(t, err)
	second, err := svc.Generate(ctx, adminActor(), student.ID, dto.CredentialRequest{SendEmail: true})
	require.NoError(t, err)

	require.Equal(t, first.UserID, second.UserID)
	require.Equal(t, first.Username, second.Username)
	require.NotEqual(t, first.Password, second.Password)
	require.False(t, second.EmailSent)

	user, err := f.users.GetByStudentID(ctx, student.ID)
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(second.Password)))
}

func TestGenerateReportsMailFailure(t *testing.T) {
	f, svc, _ := newCredentialFixture(t, &recordingMailer{err: errors.New("smtp down")})
	student := f.student(t, "Xia", "xia@school.test", nil)

	resp, err := svc.Generate(context.Background(), adminActor(), student.ID, dto.CredentialRequest{SendEmail: true})
	require.NoError(t, err)
	require.False(t, resp.EmailSent)
	require.NotEmpty(t, resp.Password)
}

func TestGenerateRequiresClassOwnership(t *testing.T) {
	f, svc, _ := newCredentialFixture(t, nil)
	ctx := context.Background()
	owner := f.teacher(t, "owner@school.test")
	stranger := f.teacher(t, "stranger@school.test")
	class := f.class(t, owner.ID, "3D")
	student := f.student(t, "Yan", "yan@school.test", ptrUint(class.ID))

	_, err := svc.Generate(ctx, teacherActor(stranger), student.ID, dto.CredentialRequest{})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Generate(ctx, studentActor(student, 1), student.ID, dto.CredentialRequest{})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Generate(ctx, teacherActor(owner), 9999, dto.CredentialRequest{})
	require.ErrorIs(t, err, ErrStudentNotFound)
}

func TestGeneratePassword(t *testing.T) {
	password, err := GeneratePassword()
	require.NoError(t, err)
	require.Len(t, password, passwordLength)
	for _, r := range password {
		require.True(t, strings.ContainsRune(passwordAlphabet, r), "unexpected rune %q", r)
	}
}
