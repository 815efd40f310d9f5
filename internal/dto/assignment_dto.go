package dto

import (
	"time"

	"github.com/ecolearn/ecolearn-api/internal/grading"
	"github.com/ecolearn/ecolearn-api/internal/models"
)

const isoLayout = time.RFC3339

// RubricWeightFields are the flat multipart form fields for rubric weights.
type RubricWeightFields struct {
	WeightContentAccuracy *int `form:"weight_content_accuracy" json:"-"`
	WeightUniqueness      *int `form:"weight_uniqueness" json:"-"`
	WeightRelevance       *int `form:"weight_relevance" json:"-"`
	WeightQuality         *int `form:"weight_quality" json:"-"`
}

func (f RubricWeightFields) weights() (grading.RubricWeights, bool) {
	if f.WeightContentAccuracy == nil && f.WeightUniqueness == nil && f.WeightRelevance == nil && f.WeightQuality == nil {
		return grading.RubricWeights{}, false
	}
	deref := func(value *int) int {
		if value == nil {
			return 0
		}
		return *value
	}
	return grading.RubricWeights{
		ContentAccuracy: deref(f.WeightContentAccuracy),
		Uniqueness:      deref(f.WeightUniqueness),
		Relevance:       deref(f.WeightRelevance),
		Quality:         deref(f.WeightQuality),
	}, true
}

// AssignmentCreateRequest describes the payload for creating a new assignment.
// Blank fields are filled from the template when TemplateKey is set.
type AssignmentCreateRequest struct {
	RubricWeightFields
	ClassID       *uint                  `form:"class_id" json:"class_id" validate:"omitempty,gt=0"`
	TemplateKey   string                 `form:"template_key" json:"template_key" validate:"omitempty,max=64"`
	Title         string                 `form:"title" json:"title" validate:"omitempty,min=3,max=255"`
	Description   string                 `form:"description" json:"description" validate:"omitempty,max=10000"`
	Category      string                 `form:"category" json:"category" validate:"omitempty,max=64"`
	DueDate       string                 `form:"due_date" json:"due_date" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	MaxPoints     *float64               `form:"max_points" json:"max_points" validate:"omitempty,gt=0,lte=1000"`
	RubricWeights *grading.RubricWeights `form:"-" json:"rubric_weights"`
	AllowLate     bool                   `form:"allow_late" json:"allow_late"`
	Publish       bool                   `form:"publish" json:"publish"`
}

// Weights returns the submitted rubric weights, preferring the JSON object
// over the flat form fields.
func (r AssignmentCreateRequest) Weights() (grading.RubricWeights, bool) {
	if r.RubricWeights != nil {
		return *r.RubricWeights, true
	}
	return r.RubricWeightFields.weights()
}

// AssignmentUpdateRequest describes the payload for updating an assignment.
type AssignmentUpdateRequest struct {
	RubricWeightFields
	ClassID       *uint                  `form:"class_id" json:"class_id" validate:"omitempty,gt=0"`
	Title         *string                `form:"title" json:"title" validate:"omitempty,min=3,max=255"`
	Description   *string                `form:"description" json:"description" validate:"omitempty,max=10000"`
	Category      *string                `form:"category" json:"category" validate:"omitempty,max=64"`
	DueDate       *string                `form:"due_date" json:"due_date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	MaxPoints     *float64               `form:"max_points" json:"max_points" validate:"omitempty,gt=0,lte=1000"`
	RubricWeights *grading.RubricWeights `form:"-" json:"rubric_weights"`
	AllowLate     *bool                  `form:"allow_late" json:"allow_late"`
}

// Weights mirrors AssignmentCreateRequest.Weights.
func (r AssignmentUpdateRequest) Weights() (grading.RubricWeights, bool) {
	if r.RubricWeights != nil {
		return *r.RubricWeights, true
	}
	return r.RubricWeightFields.weights()
}

// AssignmentListRequest defines filters for listing assignments.
type AssignmentListRequest struct {
	Page     int
	PageSize int
	ClassID  *uint
	Status   string
	Search   string
	Sort     string
}

// AssignmentResponse is the serialized representation returned to API clients.
type AssignmentResponse struct {
	ID               uint                     `json:"id"`
	ClassID          *uint                    `json:"class_id"`
	TeacherID        uint                     `json:"teacher_id"`
	Title            string                   `json:"title"`
	Description      string                   `json:"description"`
	Category         string                   `json:"category"`
	DueDate          time.Time                `json:"due_date"`
	MaxPoints        float64                  `json:"max_points"`
	RubricWeights    grading.RubricWeights    `json:"rubric_weights"`
	RubricValidation grading.RubricValidation `json:"rubric_validation"`
	Status           string                   `json:"status"`
	AllowLate        bool                     `json:"allow_late"`
	FileURL          string                   `json:"file_url"`
	CreatedAt        time.Time                `json:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at"`
}

// NewAssignmentResponse converts a model into a DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	weights := model.RubricWeights()
	return AssignmentResponse{
		ID:               model.ID,
		ClassID:          model.ClassID,
		TeacherID:        model.TeacherID,
		Title:            model.Title,
		Description:      model.Description,
		Category:         model.Category,
		DueDate:          model.DueDate,
		MaxPoints:        model.EffectiveMaxPoints(),
		RubricWeights:    weights,
		RubricValidation: grading.ValidateRubricWeights(weights),
		Status:           model.Status,
		AllowLate:        model.AllowLate,
		FileURL:          model.FileURL,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}

// NewAssignmentResponseSlice converts a slice of models into DTOs.
func NewAssignmentResponseSlice(assignments []models.Assignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewAssignmentResponse(assignment))
	}

	return responses
}

// AssignmentTemplateResponse is one entry of the static template table.
type AssignmentTemplateResponse struct {
	Key           string                `json:"key"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Category      string                `json:"category"`
	MaxPoints     float64               `json:"max_points"`
	RubricWeights grading.RubricWeights `json:"rubric_weights"`
}

// GenerateAnswerRequest asks the AI provider for a model answer.
type GenerateAnswerRequest struct {
	AssignmentID uint `json:"assignment_id" validate:"required,gt=0"`
}

// GeneratedAnswerResponse carries the generated model answer.
type GeneratedAnswerResponse struct {
	AssignmentID uint      `json:"assignment_id"`
	Answer       string    `json:"answer"`
	Model        string    `json:"model"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// FormatDueDate renders a due date in the wire layout.
func FormatDueDate(t time.Time) string {
	return t.UTC().Format(isoLayout)
}
