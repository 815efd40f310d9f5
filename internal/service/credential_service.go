package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ecolearn/ecolearn-api/internal/dto"
	"github.com/ecolearn/ecolearn-api/internal/models"
	"github.com/ecolearn/ecolearn-api/internal/repository"
	"github.com/ecolearn/ecolearn-api/pkg/mailer"
)

const (
	passwordAlphabet = "abcdefghjkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	passwordLength   = 12
)

// CredentialService creates or resets student logins.
type CredentialService interface {
	Generate(ctx context.Context, actor Actor, studentID uint, req dto.CredentialRequest) (dto.CredentialResponse, error)
}

type credentialService struct {
	students  repository.StudentRepository
	users     repository.UserRepository
	classes   repository.ClassRepository
	usernames *CodeGenerator
	mailer    mailer.Mailer
	notifier  StudentNotifier
	activity  ActivityRecorder
	logger    zerolog.Logger
	password  func() (string, error)
}

// NewCredentialService wires the credential generator. mail and notifier may be nil.
func NewCredentialService(students repository.StudentRepository, users repository.UserRepository, classes repository.ClassRepository, usernames *CodeGenerator, mail mailer.Mailer, notifier StudentNotifier, activity ActivityRecorder, logger zerolog.Logger) CredentialService {
	return &credentialService{
		students:  students,
		users:     users,
		classes:   classes,
		usernames: usernames,
		mailer:    mail,
		notifier:  notifier,
		activity:  activity,
		logger:    logger.With().Str("component", "credential_service").Logger(),
		password:  GeneratePassword,
	}
}

func (s *credentialService) Generate(ctx context.Context, actor Actor, studentID uint, req dto.CredentialRequest) (dto.CredentialResponse, error) {
	if !actor.IsStaff() {
		return dto.CredentialResponse{}, ErrForbidden
	}

	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CredentialResponse{}, ErrStudentNotFound
		}
		return dto.CredentialResponse{}, err
	}

	if !actor.IsAdmin() && student.ClassID != nil {
		class, err := s.classes.GetByID(ctx, *student.ClassID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CredentialResponse{}, err
		}
		if err == nil && !actor.canManage(class.TeacherID) {
			return dto.CredentialResponse{}, ErrForbidden
		}
	}

	username, err := s.usernames.Encode(student.ID)
	if err != nil {
		return dto.CredentialResponse{}, fmt.Errorf("derive username: %w", err)
	}

	password, err := s.password()
	if err != nil {
		return dto.CredentialResponse{}, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return dto.CredentialResponse{}, err
	}

	user, err := s.users.GetByStudentID(ctx, student.ID)
	switch {
	case err == nil:
		user.Username = username
		user.PasswordHash = hash
		user.Name = student.Name
		user.Active = student.Status != models.StudentStatusArchived
		if err := s.users.Update(ctx, &user); err != nil {
			return dto.CredentialResponse{}, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		id := student.ID
		user = models.User{
			Name:         student.Name,
			Email:        strings.ToLower(student.Email),
			Username:     username,
			PasswordHash: hash,
			Role:         models.RoleStudent,
			StudentID:    &id,
			Active:       true,
		}
		if err := s.users.Create(ctx, &user); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
				return dto.CredentialResponse{}, ErrEmailTaken
			}
			return dto.CredentialResponse{}, err
		}
	default:
		return dto.CredentialResponse{}, err
	}

	if student.Username != username {
		if _, err := s.students.Update(ctx, student.ID, map[string]interface{}{"username": username}); err != nil {
			s.logger.Warn().Err(err).Uint("student_id", student.ID).Msg("failed to store username on roster")
		}
	}

	response := dto.CredentialResponse{
		StudentID: student.ID,
		UserID:    user.ID,
		Username:  username,
		Password:  password,
	}

	if req.SendEmail {
		response.EmailSent = s.deliver(ctx, student, username, password)
	}

	recordActivity(ctx, s.activity, s.logger, actor.activityActor(), "credentials.issue", "student", &student.ID, map[string]interface{}{
		"username":   username,
		"email_sent": response.EmailSent,
	})

	if s.notifier != nil {
		if err := s.notifier.NotifyStudent(ctx, student.ID, NotificationInput{
			Type:    models.NotificationTypeCredentialsIssued,
			Title:   "Login details updated",
			Message: "Your teacher issued new login details. Use them the next time you sign in.",
		}); err != nil {
			s.logger.Warn().Err(err).Uint("student_id", student.ID).Msg("failed to notify credential reset")
		}
	}

	return response, nil
}

// deliver mails the credentials; delivery failure never fails the request.
func (s *credentialService) deliver(ctx context.Context, student models.Student, username, password string) bool {
	if s.mailer == nil {
		return false
	}

	err := s.mailer.Send(ctx, mailer.Message{
		ToName:    student.Name,
		ToAddress: student.Email,
		Subject:   "Your EcoLearn login",
		Text: fmt.Sprintf("Hi %s,\n\nYour EcoLearn username is %s and your password is %s.\nPlease keep them safe.\n",
			student.Name, username, password),
		HTML: fmt.Sprintf("<p>Hi %s,</p><p>Your EcoLearn username is <strong>%s</strong> and your password is <strong>%s</strong>.</p><p>Please keep them safe.</p>",
			student.Name, username, password),
	})
	if err != nil {
		s.logger.Warn().Err(err).Uint("student_id", student.ID).Msg("failed to email credentials")
		return false
	}
	return true
}

// GeneratePassword returns a random password from an alphabet without
// look-alike characters.
func GeneratePassword() (string, error) {
	limit := big.NewInt(int64(len(passwordAlphabet)))
	var builder strings.Builder
	builder.Grow(passwordLength)
	for i := 0; i < passwordLength; i++ {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		builder.WriteByte(passwordAlphabet[idx.Int64()])
	}
	return builder.String(), nil
}
