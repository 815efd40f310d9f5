package ai

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when no AI provider is configured.
var ErrUnavailable = errors.New("ai assistance unavailable")

// RubricInput contains the artefacts needed to score a submission against the rubric.
type RubricInput struct {
	AssignmentTitle       string
	AssignmentDescription string
	Category              string
	MaxPoints             float64
	Weights               map[string]int
	SubmissionContent     string
}

// RubricEvaluation holds per-criterion percentages proposed by the model.
type RubricEvaluation struct {
	CriteriaScores map[string]float64 `json:"criteria_scores"`
	Feedback       string             `json:"feedback"`
	Model          string             `json:"model"`
}

// AnswerInput describes the assignment a model answer is requested for.
type AnswerInput struct {
	Title       string
	Description string
	Category    string
	GradeLevel  int
}

// Answer is a generated model answer.
type Answer struct {
	Text  string `json:"answer"`
	Model string `json:"model"`
}

// Assistant describes an AI model that helps teachers grade and plan work.
type Assistant interface {
	EvaluateRubric(ctx context.Context, input RubricInput) (RubricEvaluation, error)
	GenerateAnswer(ctx context.Context, input AnswerInput) (Answer, error)
}

// Disabled is the Assistant used when no provider credentials are configured.
type Disabled struct{}

// EvaluateRubric always reports ErrUnavailable.
func (Disabled) EvaluateRubric(context.Context, RubricInput) (RubricEvaluation, error) {
	return RubricEvaluation{}, ErrUnavailable
}

// GenerateAnswer always reports ErrUnavailable.
func (Disabled) GenerateAnswer(context.Context, AnswerInput) (Answer, error) {
	return Answer{}, ErrUnavailable
}
