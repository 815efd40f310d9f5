package dto

import (
	"time"

	"github.com/ecolearn/ecolearn-api/internal/models"
)

// StudentListRequest defines filters for listing students.
type StudentListRequest struct {
	Page     int
	PageSize int
	Search   string
	ClassID  *uint
	Status   string
	Sort     string
}

// StudentCreateRequest adds a learner to the roster.
type StudentCreateRequest struct {
	Name       string `json:"name" validate:"required,min=1,max=255"`
	Email      string `json:"email" validate:"required,email"`
	RollNumber string `json:"roll_number" validate:"omitempty,max=32"`
	ClassID    *uint  `json:"class_id" validate:"omitempty,gt=0"`
}

// StudentUpdateRequest captures partial update payloads for students.
type StudentUpdateRequest struct {
	Name       *string `json:"name" validate:"omitempty,min=1,max=255"`
	Email      *string `json:"email" validate:"omitempty,email"`
	RollNumber *string `json:"roll_number" validate:"omitempty,max=32"`
	ClassID    *uint   `json:"class_id" validate:"omitempty,gt=0"`
	Status     *string `json:"status" validate:"omitempty,oneof=active inactive archived"`
}

// StudentResponse serializes roster data.
type StudentResponse struct {
	ID            uint       `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Username      string     `json:"username"`
	ClassID       *uint      `json:"class_id"`
	RollNumber    string     `json:"roll_number"`
	Status        string     `json:"status"`
	Points        int        `json:"points"`
	CurrentStreak int        `json:"current_streak"`
	LongestStreak int        `json:"longest_streak"`
	LastActiveOn  *time.Time `json:"last_active_on"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// NewStudentResponse converts a student model into a DTO.
func NewStudentResponse(student models.Student) StudentResponse {
	return StudentResponse{
		ID:            student.ID,
		Name:          student.Name,
		Email:         student.Email,
		Username:      student.Username,
		ClassID:       student.ClassID,
		RollNumber:    student.RollNumber,
		Status:        student.Status,
		Points:        student.Points,
		CurrentStreak: student.CurrentStreak,
		LongestStreak: student.LongestStreak,
		LastActiveOn:  student.LastActiveOn,
		CreatedAt:     student.CreatedAt,
		UpdatedAt:     student.UpdatedAt,
	}
}

// NewStudentResponseSlice converts student models into DTOs.
func NewStudentResponseSlice(students []models.Student) []StudentResponse {
	responses := make([]StudentResponse, 0, len(students))
	for _, student := range students {
		responses = append(responses, NewStudentResponse(student))
	}
	return responses
}

// StudentListResponse wraps a paginated student response.
type StudentListResponse struct {
	Items      []StudentResponse `json:"items"`
	Pagination PaginationMeta    `json:"pagination"`
}

// StudentImportError describes a CSV row that could not be imported.
type StudentImportError struct {
	Row     int    `json:"row"`
	Email   string `json:"email,omitempty"`
	Message string `json:"message"`
}

// StudentImportResult summarises a roster import.
type StudentImportResult struct {
	Inserted int                  `json:"inserted"`
	Updated  int                  `json:"updated"`
	Errors   []StudentImportError `json:"errors"`
}
