package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ecolearn/ecolearn-api/internal/dto"
	"github.com/ecolearn/ecolearn-api/internal/grading"
	"github.com/ecolearn/ecolearn-api/internal/observability"
	"github.com/ecolearn/ecolearn-api/internal/repository"
	"github.com/ecolearn/ecolearn-api/pkg/ai"
)

// AIGradingService proposes rubric scores and model answers. It never grades.
type AIGradingService interface {
	GenerateAnswer(ctx context.Context, actor Actor, assignmentID uint) (dto.GeneratedAnswerResponse, error)
	Suggest(ctx context.Context, actor Actor, submissionID uint) (dto.AISuggestionResponse, error)
}

type aiGradingService struct {
	assistant   ai.Assistant
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	classes     repository.ClassRepository
	activity    ActivityRecorder
	tracer      trace.Tracer
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAIGradingService wires the AI assistant. A nil assistant disables the feature.
func NewAIGradingService(assistant ai.Assistant, assignments repository.AssignmentRepository, submissions repository.SubmissionRepository, classes repository.ClassRepository, activity ActivityRecorder, logger zerolog.Logger) AIGradingService {
	if assistant == nil {
		assistant = ai.Disabled{}
	}
	return &aiGradingService{
		assistant:   assistant,
		assignments: assignments,
		submissions: submissions,
		classes:     classes,
		activity:    activity,
		tracer:      otel.Tracer("github.com/ecolearn/ecolearn-api/internal/service/ai_grading"),
		logger:      logger.With().Str("component", "ai_grading_service").Logger(),
		now:         time.Now,
	}
}

func (s *aiGradingService) GenerateAnswer(ctx context.Context, actor Actor, assignmentID uint) (dto.GeneratedAnswerResponse, error) {
	if !actor.IsStaff() {
		return dto.GeneratedAnswerResponse{}, ErrForbidden
	}

	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GeneratedAnswerResponse{}, ErrAssignmentNotFound
		}
		return dto.GeneratedAnswerResponse{}, err
	}
	if !actor.canManage(assignment.TeacherID) {
		return dto.GeneratedAnswerResponse{}, ErrForbidden
	}

	input := ai.AnswerInput{
		Title:       assignment.Title,
		Description: assignment.Description,
		Category:    assignment.Category,
	}
	if assignment.ClassID != nil && s.classes != nil {
		if class, err := s.classes.GetByID(ctx, *assignment.ClassID); err == nil {
			input.GradeLevel = class.GradeLevel
		}
	}

	started := time.Now()
	answer, err := s.assistant.GenerateAnswer(ctx, input)
	observeAIRequest("generate_answer", started, err)
	if err != nil {
		return dto.GeneratedAnswerResponse{}, s.wrapProviderError(err, "generate_answer")
	}

	recordActivity(ctx, s.activity, s.logger, actor.activityActor(), "assignment.generate_answer", "assignment", &assignment.ID, map[string]interface{}{
		"model": answer.Model,
	})

	return dto.GeneratedAnswerResponse{
		AssignmentID: assignment.ID,
		Answer:       answer.Text,
		Model:        answer.Model,
		GeneratedAt:  s.now().UTC(),
	}, nil
}

// Suggest asks the provider for rubric scores and stores them on the
// submission as a suggestion. The grade itself is left untouched.
func (s *aiGradingService) Suggest(ctx context.Context, actor Actor, submissionID uint) (dto.AISuggestionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.ai_suggest", trace.WithAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
	))
	defer span.End()

	if !actor.IsStaff() {
		return dto.AISuggestionResponse{}, ErrForbidden
	}

	submission, err := loadSubmission(ctx, s.submissions, submissionID)
	if err != nil {
		return dto.AISuggestionResponse{}, err
	}
	if !actor.canManage(submission.Assignment.TeacherID) {
		return dto.AISuggestionResponse{}, ErrForbidden
	}

	if strings.TrimSpace(submission.Content) == "" {
		return dto.AISuggestionResponse{}, ErrNothingToEvaluate
	}

	assignment := submission.Assignment
	weights := assignment.RubricWeights()
	maxPoints := assignment.EffectiveMaxPoints()

	started := time.Now()
	evaluation, err := s.assistant.EvaluateRubric(ctx, ai.RubricInput{
		AssignmentTitle:       assignment.Title,
		AssignmentDescription: assignment.Description,
		Category:              assignment.Category,
		MaxPoints:             maxPoints,
		Weights:               weights.ByCriterion(),
		SubmissionContent:     submission.Content,
	})
	observeAIRequest("evaluate_rubric", started, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluation_failed")
		return dto.AISuggestionResponse{}, s.wrapProviderError(err, "evaluate_rubric")
	}

	percentage := grading.WeightedPercentage(grading.CriterionScores(evaluation.CriteriaScores), weights)
	suggested := math.Round(percentage/100*maxPoints*100) / 100
	letter := grading.ScoreToGrade(suggested, maxPoints)
	generatedAt := s.now().UTC()

	criteria := map[string]interface{}{}
	for key, value := range evaluation.CriteriaScores {
		criteria[key] = value
	}
	submission.AISuggestion = datatypes.JSONMap{
		"criteria_scores":     criteria,
		"weighted_percentage": percentage,
		"suggested_score":     suggested,
		"letter_grade":        letter.String(),
		"feedback":            evaluation.Feedback,
		"model":               evaluation.Model,
		"generated_at":        generatedAt.Format(time.RFC3339),
	}

	if err := s.submissions.Update(ctx, &submission); err != nil {
		span.RecordError(err)
		return dto.AISuggestionResponse{}, err
	}

	span.SetAttributes(
		attribute.Float64("grading.suggested_score", suggested),
		attribute.String("grading.letter", letter.String()),
	)

	return dto.AISuggestionResponse{
		SubmissionID:       submission.ID,
		CriteriaScores:     evaluation.CriteriaScores,
		WeightedPercentage: percentage,
		SuggestedScore:     suggested,
		LetterGrade:        letter.String(),
		Feedback:           evaluation.Feedback,
		Model:              evaluation.Model,
		GeneratedAt:        generatedAt,
	}, nil
}

func (s *aiGradingService) wrapProviderError(err error, operation string) error {
	if errors.Is(err, ai.ErrUnavailable) {
		return ErrAIUnavailable
	}
	s.logger.Error().Err(err).Str("operation", operation).Msg("ai provider request failed")
	return fmt.Errorf("%w: %v", ErrAIProviderFailed, err)
}

func observeAIRequest(operation string, started time.Time, err error) {
	outcome := "ok"
	switch {
	case errors.Is(err, ai.ErrUnavailable):
		return
	case err != nil:
		outcome = "error"
	}
	observability.AIRequests().WithLabelValues(operation, outcome).Observe(time.Since(started).Seconds())
}
