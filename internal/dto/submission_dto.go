package dto

import (
	"time"

	"github.com/ecolearn/ecolearn-api/internal/grading"
	"github.com/ecolearn/ecolearn-api/internal/models"
)

// SubmissionCreateRequest describes the multipart payload for submission upload.
type SubmissionCreateRequest struct {
	AssignmentID uint   `form:"assignment_id" json:"assignment_id" validate:"required,gt=0"`
	Content      string `form:"content" json:"content" validate:"omitempty,max=20000"`
}

// SubmissionFilter describes query string filters for listing submissions.
type SubmissionFilter struct {
	AssignmentID *uint   `query:"assignment_id"`
	StudentID    *uint   `query:"student_id"`
	Status       *string `query:"status" validate:"omitempty,oneof=submitted graded"`
}

// GradeSubmissionRequest captures payloads for grading submissions. Score may
// be omitted when criteria scores are supplied.
type GradeSubmissionRequest struct {
	Score          *float64           `json:"score"`
	Feedback       string             `json:"feedback" validate:"omitempty,max=5000"`
	CriteriaScores map[string]float64 `json:"criteria_scores" validate:"omitempty,dive,keys,oneof=content_accuracy uniqueness relevance quality,endkeys,gte=0,lte=100"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID             uint                             `json:"id"`
	AssignmentID   uint                             `json:"assignment_id"`
	StudentID      uint                             `json:"student_id"`
	Content        string                           `json:"content"`
	FileURL        string                           `json:"file_url"`
	Status         string                           `json:"status"`
	Late           bool                             `json:"late"`
	Score          *float64                         `json:"score"`
	MaxPoints      float64                          `json:"max_points,omitempty"`
	Percentage     *float64                         `json:"percentage,omitempty"`
	LetterGrade    string                           `json:"letter_grade,omitempty"`
	Feedback       string                           `json:"feedback"`
	CriteriaScores map[string]float64               `json:"criteria_scores,omitempty"`
	AISuggestion   map[string]interface{}           `json:"ai_suggestion,omitempty"`
	GradedBy       *uint                            `json:"graded_by"`
	GradedAt       *time.Time                       `json:"graded_at"`
	History        []SubmissionGradeHistoryResponse `json:"history"`
	CreatedAt      time.Time                        `json:"created_at"`
	UpdatedAt      time.Time                        `json:"updated_at"`
	Assignment     AssignmentLite                   `json:"assignment"`
	Student        StudentLite                      `json:"student"`
}

// AssignmentLite summarizes an assignment in submission responses.
type AssignmentLite struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	DueDate   time.Time `json:"due_date"`
	MaxPoints float64   `json:"max_points"`
}

// SubmissionGradeHistoryResponse serializes grading history entries.
type SubmissionGradeHistoryResponse struct {
	Score       float64   `json:"score"`
	LetterGrade string    `json:"letter_grade"`
	Feedback    string    `json:"feedback"`
	GradedBy    uint      `json:"graded_by"`
	GradedAt    time.Time `json:"graded_at"`
}

// StudentLite summarizes a student without exposing full profile data.
type StudentLite struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:           model.ID,
		AssignmentID: model.AssignmentID,
		StudentID:    model.StudentID,
		Content:      model.Content,
		FileURL:      model.FileURL,
		Status:       model.Status,
		Late:         model.Late,
		Score:        model.Score,
		LetterGrade:  model.LetterGrade,
		Feedback:     model.Feedback,
		GradedBy:     model.GradedBy,
		GradedAt:     model.GradedAt,
		History:      []SubmissionGradeHistoryResponse{},
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}

	if len(model.CriteriaScores) > 0 {
		response.CriteriaScores = floatMapFromJSON(model.CriteriaScores)
	}

	if len(model.AISuggestion) > 0 {
		response.AISuggestion = metadataFromJSON(model.AISuggestion)
	}

	if model.Assignment.ID != 0 {
		maxPoints := model.Assignment.EffectiveMaxPoints()
		response.MaxPoints = maxPoints
		response.Assignment = AssignmentLite{
			ID:        model.Assignment.ID,
			Title:     model.Assignment.Title,
			DueDate:   model.Assignment.DueDate,
			MaxPoints: maxPoints,
		}
		if model.Score != nil {
			if pct, ok := grading.Percentage(*model.Score, maxPoints); ok {
				response.Percentage = &pct
			}
		}
	}

	if model.Student.ID != 0 {
		response.Student = StudentLite{
			ID:    model.Student.ID,
			Name:  model.Student.Name,
			Email: model.Student.Email,
		}
	}

	for _, entry := range model.History {
		response.History = append(response.History, SubmissionGradeHistoryResponse{
			Score:       entry.Score,
			LetterGrade: entry.LetterGrade,
			Feedback:    entry.Feedback,
			GradedBy:    entry.GradedBy,
			GradedAt:    entry.GradedAt,
		})
	}

	return response
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(items []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(items))
	for _, submission := range items {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}

// AISuggestionResponse is a rubric evaluation proposed by the AI provider.
type AISuggestionResponse struct {
	SubmissionID       uint               `json:"submission_id"`
	CriteriaScores     map[string]float64 `json:"criteria_scores"`
	WeightedPercentage float64            `json:"weighted_percentage"`
	SuggestedScore     float64            `json:"suggested_score"`
	LetterGrade        string             `json:"letter_grade"`
	Feedback           string             `json:"feedback"`
	Model              string             `json:"model"`
	GeneratedAt        time.Time          `json:"generated_at"`
}

// LetterGradeResponse exposes the grade calculator.
type LetterGradeResponse struct {
	Score       float64  `json:"score"`
	MaxPoints   float64  `json:"max_points"`
	Percentage  *float64 `json:"percentage"`
	LetterGrade string   `json:"letter_grade"`
}
