package service

import (
	"errors"

	"github.com/ecolearn/ecolearn-api/pkg/ai"
)

// ErrForbidden indicates the actor may not access the resource.
var ErrForbidden = errors.New("insufficient permissions")

// Auth errors.
var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrAccountInactive      = errors.New("account is inactive")
	ErrInvalidRefreshToken  = errors.New("invalid refresh token")
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailTaken           = errors.New("email already registered")
	ErrStudentAccountNeeded = errors.New("student account required")
)

// Class errors.
var (
	ErrClassNotFound   = errors.New("class not found")
	ErrJoinCodeInvalid = errors.New("join code invalid")
)

// Roster errors.
var (
	ErrStudentNotFound   = errors.New("student not found")
	ErrStudentEmailTaken = errors.New("student email already exists")
	ErrInvalidCSV        = errors.New("invalid csv file")
)

// Assignment errors.
var (
	ErrAssignmentNotFound      = errors.New("assignment not found")
	ErrAssignmentTitleRequired = errors.New("title is required")
	ErrInvalidDueDate          = errors.New("invalid due date")
	ErrDueDateInPast           = errors.New("due date must be in the future")
	ErrTemplateNotFound        = errors.New("assignment template not found")
	ErrAssignmentNotPublished  = errors.New("assignment is not published")
	ErrAssignmentClosed        = errors.New("assignment is past due")
)

// Submission and grading errors.
var (
	ErrSubmissionNotFound  = errors.New("submission not found")
	ErrSubmissionEmpty     = errors.New("submission requires content or a file")
	ErrSubmissionLocked    = errors.New("submission already graded")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
	ErrScoreRequired       = errors.New("score or criteria scores are required")
	ErrNegativeScore       = errors.New("score must not be negative")
	ErrScoreExceedsMax     = errors.New("score exceeds assignment max")
	ErrNothingToEvaluate   = errors.New("submission has no text to evaluate")
)

// AI assistance errors.
var (
	ErrAIUnavailable    = ai.ErrUnavailable
	ErrAIProviderFailed = errors.New("ai provider request failed")
)

// Progress errors.
var (
	ErrBadgeNotFound  = errors.New("badge not found")
	ErrBadgeNameTaken = errors.New("badge name already exists")
)

// ErrNotificationNotFound indicates the notification does not belong to the user.
var ErrNotificationNotFound = errors.New("notification not found")
