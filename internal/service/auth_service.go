package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ecolearn/ecolearn-api/internal/auth"
	"github.com/ecolearn/ecolearn-api/internal/dto"
	"github.com/ecolearn/ecolearn-api/internal/models"
	"github.com/ecolearn/ecolearn-api/internal/repository"
)

// TokenConfig carries signing secrets and lifetimes.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// AuthService authenticates accounts and issues token pairs.
type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (dto.TokenResponse, error)
	Refresh(ctx context.Context, req dto.RefreshRequest) (dto.TokenResponse, error)
	Session(ctx context.Context, userID uint) (dto.SessionResponse, error)
	CreateTeacher(ctx context.Context, actor Actor, req dto.TeacherCreateRequest) (dto.UserResponse, error)
}

type authService struct {
	users     repository.UserRepository
	students  repository.StudentRepository
	tokens    TokenConfig
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAuthService constructs the authentication service.
func NewAuthService(users repository.UserRepository, students repository.StudentRepository, tokens TokenConfig, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) AuthService {
	return &authService{
		users:     users,
		students:  students,
		tokens:    tokens,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "auth_service").Logger(),
		now:       time.Now,
	}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (dto.TokenResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.TokenResponse{}, err
	}

	user, err := s.users.GetByIdentifier(ctx, req.Identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TokenResponse{}, ErrInvalidCredentials
		}
		return dto.TokenResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Info().Uint("user_id", user.ID).Msg("rejected login with wrong password")
		return dto.TokenResponse{}, ErrInvalidCredentials
	}

	if !user.Active {
		return dto.TokenResponse{}, ErrAccountInactive
	}

	loginAt := s.now().UTC()
	user.LastLoginAt = &loginAt
	if err := s.users.Update(ctx, &user); err != nil {
		s.logger.Warn().Err(err).Uint("user_id", user.ID).Msg("failed to record last login")
	}

	return s.issuePair(ctx, user)
}

func (s *authService) Refresh(ctx context.Context, req dto.RefreshRequest) (dto.TokenResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.TokenResponse{}, err
	}

	claims, err := auth.Parse(req.RefreshToken, s.tokens.RefreshSecret, auth.TokenTypeRefresh)
	if err != nil {
		return dto.TokenResponse{}, ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TokenResponse{}, ErrInvalidRefreshToken
		}
		return dto.TokenResponse{}, err
	}

	if !user.Active {
		return dto.TokenResponse{}, ErrAccountInactive
	}

	return s.issuePair(ctx, user)
}

func (s *authService) Session(ctx context.Context, userID uint) (dto.SessionResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SessionResponse{}, ErrUserNotFound
		}
		return dto.SessionResponse{}, err
	}

	return s.session(ctx, user), nil
}

func (s *authService) CreateTeacher(ctx context.Context, actor Actor, req dto.TeacherCreateRequest) (dto.UserResponse, error) {
	if !actor.IsAdmin() {
		return dto.UserResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.UserResponse{}, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username == "" {
		username = strings.SplitN(email, "@", 2)[0]
	}

	if _, err := s.users.GetByIdentifier(ctx, email); err == nil {
		return dto.UserResponse{}, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.UserResponse{}, err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return dto.UserResponse{}, err
	}

	user := models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Role:         models.RoleTeacher,
		Active:       true,
	}

	if err := s.users.Create(ctx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return dto.UserResponse{}, ErrEmailTaken
		}
		return dto.UserResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, actor.activityActor(), "teacher.create", "user", &user.ID, map[string]interface{}{
		"username": user.Username,
		"email":    user.Email,
	})

	return dto.NewUserResponse(user), nil
}

func (s *authService) issuePair(ctx context.Context, user models.User) (dto.TokenResponse, error) {
	now := s.now()
	subject := auth.Subject{
		UserID:    user.ID,
		Role:      user.Role,
		Name:      user.Name,
		StudentID: user.StudentID,
	}

	access, expiresAt, err := auth.Issue(subject, auth.TokenTypeAccess, s.tokens.AccessSecret, s.tokens.AccessTTL, now)
	if err != nil {
		return dto.TokenResponse{}, fmt.Errorf("issue access token: %w", err)
	}

	refresh, _, err := auth.Issue(subject, auth.TokenTypeRefresh, s.tokens.RefreshSecret, s.tokens.RefreshTTL, now)
	if err != nil {
		return dto.TokenResponse{}, fmt.Errorf("issue refresh token: %w", err)
	}

	return dto.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresAt:    expiresAt,
		Session:      s.session(ctx, user),
	}, nil
}

func (s *authService) session(ctx context.Context, user models.User) dto.SessionResponse {
	if user.StudentID == nil || s.students == nil {
		return dto.NewSessionResponse(user, nil)
	}

	student, err := s.students.GetByID(ctx, *user.StudentID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("user_id", user.ID).Msg("student account without roster entry")
		return dto.NewSessionResponse(user, nil)
	}
	return dto.NewSessionResponse(user, &student)
}

// HashPassword hashes a plaintext password with bcrypt's default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
