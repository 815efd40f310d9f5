package models

import (
	"time"

	"github.com/ecolearn/ecolearn-api/internal/grading"
)

// Assignment status values.
const (
	AssignmentStatusDraft     = "draft"
	AssignmentStatusPublished = "published"
)

// Assignment is a task a teacher sets for a class.
type Assignment struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	ClassID               *uint     `gorm:"index" json:"class_id"`
	TeacherID             uint      `gorm:"index;not null" json:"teacher_id"`
	Title                 string    `gorm:"size:255;not null" json:"title"`
	Description           string    `gorm:"type:text" json:"description"`
	Category              string    `gorm:"size:64" json:"category"`
	DueDate               time.Time `gorm:"not null" json:"due_date"`
	MaxPoints             float64   `gorm:"not null;default:100" json:"max_points"`
	WeightContentAccuracy int       `gorm:"not null;default:0" json:"weight_content_accuracy"`
	WeightUniqueness      int       `gorm:"not null;default:0" json:"weight_uniqueness"`
	WeightRelevance       int       `gorm:"not null;default:0" json:"weight_relevance"`
	WeightQuality         int       `gorm:"not null;default:0" json:"weight_quality"`
	Status                string    `gorm:"size:16;index;not null;default:draft" json:"status"`
	AllowLate             bool      `gorm:"not null;default:false" json:"allow_late"`
	FileURL               string    `gorm:"size:512" json:"file_url"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
	Class                 *Class    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"-"`
}

// IsPastDue returns true when the assignment deadline has already passed.
func (a Assignment) IsPastDue(reference time.Time) bool {
	return reference.After(a.DueDate)
}

// IsPublished reports whether students can see and submit the assignment.
func (a Assignment) IsPublished() bool {
	return a.Status == AssignmentStatusPublished
}

// EffectiveMaxPoints falls back to the default maximum when none is stored.
func (a Assignment) EffectiveMaxPoints() float64 {
	if a.MaxPoints <= 0 {
		return grading.DefaultMaxPoints
	}
	return a.MaxPoints
}

// RubricWeights returns the stored criterion weights.
func (a Assignment) RubricWeights() grading.RubricWeights {
	return grading.RubricWeights{
		ContentAccuracy: a.WeightContentAccuracy,
		Uniqueness:      a.WeightUniqueness,
		Relevance:       a.WeightRelevance,
		Quality:         a.WeightQuality,
	}
}

// SetRubricWeights stores the criterion weights.
func (a *Assignment) SetRubricWeights(weights grading.RubricWeights) {
	a.WeightContentAccuracy = weights.ContentAccuracy
	a.WeightUniqueness = weights.Uniqueness
	a.WeightRelevance = weights.Relevance
	a.WeightQuality = weights.Quality
}
