package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/ecolearn/ecolearn-api/internal/dto"
	"github.com/ecolearn/ecolearn-api/internal/grading"
	"github.com/ecolearn/ecolearn-api/internal/models"
	"github.com/ecolearn/ecolearn-api/internal/observability"
	"github.com/ecolearn/ecolearn-api/internal/repository"
)

const scoreTolerance = 1e-9

// GradingService encapsulates grading workflows for teachers and administrators.
type GradingService interface {
	Grade(ctx context.Context, actor Actor, submissionID uint, payload dto.GradeSubmissionRequest) (dto.SubmissionResponse, error)
	Letter(score, maxPoints float64) dto.LetterGradeResponse
}

// GradingDeps groups the collaborators of the grading service.
type GradingDeps struct {
	Submissions repository.SubmissionRepository
	Validator   *validator.Validate
	Activity    ActivityRecorder
	Progress    ProgressRecorder
	Notifier    StudentNotifier
	Dashboards  DashboardInvalidator
}

type gradingService struct {
	repo       repository.SubmissionRepository
	validator  *validator.Validate
	activity   ActivityRecorder
	progress   ProgressRecorder
	notifier   StudentNotifier
	dashboards DashboardInvalidator
	sanitizer  *bluemonday.Policy
	tracer     trace.Tracer
	logger     zerolog.Logger
	now        func() time.Time
}

// NewGradingService constructs the grading service.
func NewGradingService(deps GradingDeps, logger zerolog.Logger) GradingService {
	return &gradingService{
		repo:       deps.Submissions,
		validator:  deps.Validator,
		activity:   deps.Activity,
		progress:   deps.Progress,
		notifier:   deps.Notifier,
		dashboards: deps.Dashboards,
		sanitizer:  bluemonday.UGCPolicy(),
		tracer:     otel.Tracer("github.com/ecolearn/ecolearn-api/internal/service/grading"),
		logger:     logger.With().Str("component", "grading_service").Logger(),
		now:        time.Now,
	}
}

func (s *gradingService) Grade(ctx context.Context, actor Actor, submissionID uint, payload dto.GradeSubmissionRequest) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.update", trace.WithAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
		attribute.Int64("grading.actor_id", int64(actor.ID)),
	))
	defer span.End()

	fail := func(err error, status string) (dto.SubmissionResponse, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
		return dto.SubmissionResponse{}, err
	}

	if !actor.IsStaff() {
		return fail(ErrForbidden, "forbidden")
	}

	if err := s.validator.Struct(payload); err != nil {
		return fail(err, "validation_failed")
	}

	submission, err := loadSubmission(ctx, s.repo, submissionID)
	if err != nil {
		if errors.Is(err, ErrSubmissionNotFound) {
			return fail(err, "submission_not_found")
		}
		return fail(err, "submission_lookup_failed")
	}

	if !actor.canManage(submission.Assignment.TeacherID) {
		return fail(ErrForbidden, "forbidden")
	}

	maxPoints := submission.Assignment.EffectiveMaxPoints()

	var score float64
	switch {
	case payload.Score != nil:
		score = *payload.Score
	case len(payload.CriteriaScores) > 0:
		pct := grading.WeightedPercentage(grading.CriterionScores(payload.CriteriaScores), submission.Assignment.RubricWeights())
		score = math.Round(pct/100*maxPoints*100) / 100
	default:
		return fail(ErrScoreRequired, "score_missing")
	}

	if math.IsNaN(score) || score < 0 {
		return fail(ErrNegativeScore, "score_negative")
	}
	if score > maxPoints+scoreTolerance {
		return fail(ErrScoreExceedsMax, "score_exceeds_max")
	}

	feedback := strings.TrimSpace(s.sanitizer.Sanitize(payload.Feedback))
	currentFeedback := strings.TrimSpace(submission.Feedback)

	idempotent := submission.IsGraded() &&
		submission.Score != nil &&
		math.Abs(*submission.Score-score) < 1e-6 &&
		currentFeedback == feedback &&
		submission.GradedBy != nil && *submission.GradedBy == actor.ID
	if idempotent {
		span.SetAttributes(attribute.Bool("grading.idempotent", true))
		return dto.NewSubmissionResponse(submission), nil
	}

	letter := grading.ScoreToGrade(score, maxPoints)
	gradedAt := s.now().UTC()
	gradedBy := actor.ID

	submission.Score = &score
	submission.LetterGrade = letter.String()
	submission.Feedback = feedback
	submission.Status = models.SubmissionStatusGraded
	submission.GradedAt = &gradedAt
	submission.GradedBy = &gradedBy
	if len(payload.CriteriaScores) > 0 {
		criteria := datatypes.JSONMap{}
		for key, value := range payload.CriteriaScores {
			criteria[key] = value
		}
		submission.CriteriaScores = criteria
	}

	if err := s.repo.Update(ctx, &submission); err != nil {
		return fail(err, "submission_update_failed")
	}

	history := models.SubmissionGradeHistory{
		SubmissionID: submission.ID,
		Score:        score,
		LetterGrade:  letter.String(),
		Feedback:     feedback,
		GradedBy:     actor.ID,
		GradedAt:     gradedAt,
	}
	if err := s.repo.CreateHistory(ctx, &history); err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to persist grading history")
		span.RecordError(err)
	}

	observability.GradesIssued().WithLabelValues(letter.String()).Inc()

	recordActivity(ctx, s.activity, s.logger, actor.activityActor(), "submission.graded", "submission", &submission.ID, map[string]interface{}{
		"student_id":    submission.StudentID,
		"assignment_id": submission.AssignmentID,
		"score":         score,
		"letter_grade":  letter.String(),
	})

	percentage, _ := grading.Percentage(score, maxPoints)
	if s.progress != nil {
		if err := s.progress.RecordGrade(ctx, submission, percentage); err != nil {
			s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to record grade progress")
		}
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyStudent(ctx, submission.StudentID, NotificationInput{
			Type:    models.NotificationTypeSubmissionGraded,
			Title:   "Assignment graded",
			Message: submission.Assignment.Title + " was graded: " + letter.String(),
		}); err != nil {
			s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to notify grade")
		}
	}

	if s.dashboards != nil {
		s.dashboards.Invalidate(ctx, submission.StudentID)
	}

	span.SetAttributes(
		attribute.Float64("grading.score", score),
		attribute.String("grading.letter", letter.String()),
	)

	graded, err := loadSubmission(ctx, s.repo, submission.ID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to reload graded submission")
		return dto.NewSubmissionResponse(submission), nil
	}

	return dto.NewSubmissionResponse(graded), nil
}

// Letter exposes the grade calculator.
func (s *gradingService) Letter(score, maxPoints float64) dto.LetterGradeResponse {
	response := dto.LetterGradeResponse{
		Score:       score,
		MaxPoints:   maxPoints,
		LetterGrade: grading.ScoreToGrade(score, maxPoints).String(),
	}
	if pct, ok := grading.Percentage(score, maxPoints); ok {
		rounded := math.Round(pct*100) / 100
		response.Percentage = &rounded
	}
	return response
}
