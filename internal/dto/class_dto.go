package dto

import (
	"time"

	"github.com/ecolearn/ecolearn-api/internal/models"
)

// ClassCreateRequest describes the payload for creating a class.
type ClassCreateRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=128"`
	GradeLevel  int    `json:"grade_level" validate:"required,min=1,max=12"`
	Section     string `json:"section" validate:"omitempty,max=16"`
	Description string `json:"description" validate:"omitempty,max=2000"`
	TeacherID   *uint  `json:"teacher_id" validate:"omitempty,gt=0"`
}

// ClassUpdateRequest patches class metadata.
type ClassUpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=128"`
	GradeLevel  *int    `json:"grade_level" validate:"omitempty,min=1,max=12"`
	Section     *string `json:"section" validate:"omitempty,max=16"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

// ClassAssignStudentsRequest moves students onto a class roster.
type ClassAssignStudentsRequest struct {
	StudentIDs []uint `json:"student_ids" validate:"required,min=1,dive,gt=0"`
}

// ClassResponse serializes a class.
type ClassResponse struct {
	ID           uint      `json:"id"`
	Name         string    `json:"name"`
	GradeLevel   int       `json:"grade_level"`
	Section      string    `json:"section"`
	Description  string    `json:"description"`
	TeacherID    uint      `json:"teacher_id"`
	JoinCode     string    `json:"join_code"`
	StudentCount int64     `json:"student_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewClassResponse converts a class model into a DTO.
func NewClassResponse(class models.Class, studentCount int64) ClassResponse {
	response := ClassResponse{
		ID:           class.ID,
		Name:         class.Name,
		GradeLevel:   class.GradeLevel,
		Section:      class.Section,
		Description:  class.Description,
		TeacherID:    class.TeacherID,
		StudentCount: studentCount,
		CreatedAt:    class.CreatedAt,
		UpdatedAt:    class.UpdatedAt,
	}
	if class.JoinCode != nil {
		response.JoinCode = *class.JoinCode
	}
	return response
}

// LeaderboardEntry is one ranked row of a class leaderboard.
type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	StudentID     uint   `json:"student_id"`
	Name          string `json:"name"`
	Points        int    `json:"points"`
	CurrentStreak int    `json:"current_streak"`
}
