package models

import (
	"time"

	"gorm.io/datatypes"
)

// Submission represents a student's work for an assignment.
type Submission struct {
	ID             uint                     `gorm:"primaryKey" json:"id"`
	AssignmentID   uint                     `gorm:"index;not null" json:"assignment_id"`
	StudentID      uint                     `gorm:"index;not null" json:"student_id"`
	Content        string                   `gorm:"type:text" json:"content"`
	FileURL        string                   `gorm:"size:512" json:"file_url"`
	Status         string                   `gorm:"size:32;not null" json:"status"`
	Late           bool                     `gorm:"not null;default:false" json:"late"`
	Score          *float64                 `json:"score"`
	LetterGrade    string                   `gorm:"size:4" json:"letter_grade"`
	Feedback       string                   `gorm:"type:text" json:"feedback"`
	CriteriaScores datatypes.JSONMap        `gorm:"type:json" json:"criteria_scores"`
	AISuggestion   datatypes.JSONMap        `gorm:"type:json" json:"ai_suggestion"`
	GradedBy       *uint                    `json:"graded_by"`
	GradedAt       *time.Time               `json:"graded_at"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
	Assignment     Assignment               `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"assignment"`
	Student        Student                  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
	History        []SubmissionGradeHistory `json:"history"`
}

const (
	// SubmissionStatusSubmitted indicates the submission has been uploaded but not graded.
	SubmissionStatusSubmitted = "submitted"
	// SubmissionStatusGraded indicates the submission has been evaluated.
	SubmissionStatusGraded = "graded"
)

// IsGraded reports whether the submission has a final grade.
func (s Submission) IsGraded() bool {
	return s.Status == SubmissionStatusGraded
}

// SubmissionGradeHistory keeps every grade a submission received.
type SubmissionGradeHistory struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID uint      `gorm:"index;not null" json:"submission_id"`
	Score        float64   `gorm:"not null" json:"score"`
	LetterGrade  string    `gorm:"size:4" json:"letter_grade"`
	Feedback     string    `gorm:"type:text" json:"feedback"`
	GradedBy     uint      `gorm:"not null" json:"graded_by"`
	GradedAt     time.Time `gorm:"not null" json:"graded_at"`
}
