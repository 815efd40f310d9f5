package dto

import (
	"time"

	"github.com/ecolearn/ecolearn-api/internal/models"
)

// LoginRequest accepts either an email address or a username as identifier.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required,min=3,max=255"`
	Password   string `json:"password" validate:"required,min=6,max=128"`
}

// RefreshRequest exchanges a refresh token for a new token pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// SessionResponse is the canonical view of the signed in account.
type SessionResponse struct {
	UserID    uint   `json:"user_id"`
	Role      string `json:"role"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	StudentID *uint  `json:"student_id,omitempty"`
	ClassID   *uint  `json:"class_id,omitempty"`
}

// NewSessionResponse builds the session from the account and, for student
// accounts, the linked roster entry.
func NewSessionResponse(user models.User, student *models.Student) SessionResponse {
	session := SessionResponse{
		UserID:    user.ID,
		Role:      user.Role,
		Name:      user.Name,
		Email:     user.Email,
		Username:  user.Username,
		StudentID: user.StudentID,
	}
	if student != nil {
		session.ClassID = student.ClassID
	}
	return session
}

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	TokenType    string          `json:"token_type"`
	ExpiresAt    time.Time       `json:"expires_at"`
	Session      SessionResponse `json:"session"`
}

// TeacherCreateRequest is used by administrators to open teacher accounts.
type TeacherCreateRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"omitempty,alphanum,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// UserResponse serializes an account without its password hash.
type UserResponse struct {
	ID          uint       `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	Role        string     `json:"role"`
	StudentID   *uint      `json:"student_id,omitempty"`
	Active      bool       `json:"active"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewUserResponse converts a user model into a DTO.
func NewUserResponse(user models.User) UserResponse {
	return UserResponse{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		Username:    user.Username,
		Role:        user.Role,
		StudentID:   user.StudentID,
		Active:      user.Active,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
}

// CredentialRequest controls how generated credentials are delivered.
type CredentialRequest struct {
	SendEmail bool `json:"send_email"`
}

// CredentialResponse carries the plaintext password exactly once.
type CredentialResponse struct {
	StudentID uint   `json:"student_id"`
	UserID    uint   `json:"user_id"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	EmailSent bool   `json:"email_sent"`
}
