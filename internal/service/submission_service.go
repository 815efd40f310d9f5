package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ecolearn/ecolearn-api/internal/dto"
	"github.com/ecolearn/ecolearn-api/internal/models"
	"github.com/ecolearn/ecolearn-api/internal/repository"
)

// SubmissionService orchestrates submission workflows.
type SubmissionService interface {
	List(ctx context.Context, actor Actor, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.SubmissionResponse, error)
	Submit(ctx context.Context, actor Actor, payload dto.SubmissionCreateRequest, file *multipart.FileHeader) (dto.SubmissionResponse, bool, error)
}

// SubmissionDeps groups the collaborators of the submission service.
type SubmissionDeps struct {
	Submissions    repository.SubmissionRepository
	Assignments    repository.AssignmentRepository
	Students       repository.StudentRepository
	Validator      *validator.Validate
	Uploader       FileUploader
	Progress       ProgressRecorder
	Dashboards     DashboardInvalidator
	MaxUploadBytes int64
}

type submissionService struct {
	submissions repository.SubmissionRepository
	assignments repository.AssignmentRepository
	students    repository.StudentRepository
	validator   *validator.Validate
	uploader    FileUploader
	progress    ProgressRecorder
	dashboards  DashboardInvalidator
	maxUpload   int64
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance.
func NewSubmissionService(deps SubmissionDeps, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		submissions: deps.Submissions,
		assignments: deps.Assignments,
		students:    deps.Students,
		validator:   deps.Validator,
		uploader:    deps.Uploader,
		progress:    deps.Progress,
		dashboards:  deps.Dashboards,
		maxUpload:   deps.MaxUploadBytes,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

func (s *submissionService) List(ctx context.Context, actor Actor, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	repoFilter := repository.SubmissionFilter{
		AssignmentID: filter.AssignmentID,
		StudentID:    filter.StudentID,
		Status:       filter.Status,
	}

	switch {
	case actor.IsStudent():
		if actor.StudentID == nil {
			return nil, ErrStudentAccountNeeded
		}
		repoFilter.StudentID = actor.StudentID
	case actor.IsAdmin():
	case actor.IsStaff():
		if filter.AssignmentID != nil {
			assignment, err := s.assignments.GetByID(ctx, *filter.AssignmentID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, ErrAssignmentNotFound
				}
				return nil, err
			}
			if !actor.canManage(assignment.TeacherID) {
				return nil, ErrForbidden
			}
			break
		}
		teacherID := actor.ID
		assignments, _, err := s.assignments.List(ctx, repository.AssignmentFilter{TeacherID: &teacherID})
		if err != nil {
			return nil, err
		}
		ids := make([]uint, 0, len(assignments))
		for _, assignment := range assignments {
			ids = append(ids, assignment.ID)
		}
		repoFilter.AssignmentIDs = ids
	default:
		return nil, ErrForbidden
	}

	submissions, err := s.submissions.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *submissionService) Get(ctx context.Context, actor Actor, id uint) (dto.SubmissionResponse, error) {
	submission, err := loadSubmission(ctx, s.submissions, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if err := authorizeSubmission(actor, submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}

// Submit stores a student's work. The boolean result is true when a new
// submission was created and false when an ungraded one was replaced.
func (s *submissionService) Submit(ctx context.Context, actor Actor, payload dto.SubmissionCreateRequest, file *multipart.FileHeader) (dto.SubmissionResponse, bool, error) {
	if !actor.IsStudent() || actor.StudentID == nil {
		return dto.SubmissionResponse{}, false, ErrStudentAccountNeeded
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, false, err
	}

	content := strings.TrimSpace(payload.Content)
	if content == "" && file == nil {
		return dto.SubmissionResponse{}, false, ErrSubmissionEmpty
	}

	assignment, err := s.assignments.GetByID(ctx, payload.AssignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, false, ErrAssignmentNotFound
		}
		return dto.SubmissionResponse{}, false, err
	}

	if !assignment.IsPublished() {
		return dto.SubmissionResponse{}, false, ErrAssignmentNotPublished
	}
	if err := canStudentSee(ctx, s.students, actor, assignment); err != nil {
		return dto.SubmissionResponse{}, false, err
	}

	late := assignment.IsPastDue(s.now())
	if late && !assignment.AllowLate {
		return dto.SubmissionResponse{}, false, ErrAssignmentClosed
	}

	studentID := *actor.StudentID
	existing, err := s.submissions.GetByAssignmentAndStudent(ctx, assignment.ID, studentID)
	found := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.SubmissionResponse{}, false, err
	}
	if found && existing.IsGraded() {
		return dto.SubmissionResponse{}, false, ErrSubmissionLocked
	}

	fileURL := ""
	if file != nil {
		fileURL, err = uploadAttachment(ctx, s.uploader, file, s.maxUpload)
		if err != nil {
			return dto.SubmissionResponse{}, false, err
		}
	}

	var submission models.Submission
	if found {
		submission = existing
		if content != "" {
			submission.Content = content
		}
		if fileURL != "" {
			submission.FileURL = fileURL
		}
		submission.Late = late
		submission.Status = models.SubmissionStatusSubmitted
		if err := s.submissions.Update(ctx, &submission); err != nil {
			return dto.SubmissionResponse{}, false, err
		}
	} else {
		submission = models.Submission{
			AssignmentID: assignment.ID,
			StudentID:    studentID,
			Content:      content,
			FileURL:      fileURL,
			Status:       models.SubmissionStatusSubmitted,
			Late:         late,
		}
		if err := s.submissions.Create(ctx, &submission); err != nil {
			return dto.SubmissionResponse{}, false, err
		}

		if s.progress != nil {
			if err := s.progress.RecordSubmission(ctx, submission); err != nil {
				s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to record submission progress")
			}
		}
	}

	if s.dashboards != nil {
		s.dashboards.Invalidate(ctx, studentID)
	}

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("assignment_id", assignment.ID).
		Bool("late", late).
		Bool("resubmission", found).
		Msg("submission stored")

	stored, err := loadSubmission(ctx, s.submissions, submission.ID)
	if err != nil {
		return dto.SubmissionResponse{}, false, fmt.Errorf("reload submission: %w", err)
	}

	return dto.NewSubmissionResponse(stored), !found, nil
}

func loadSubmission(ctx context.Context, repo repository.SubmissionRepository, id uint) (models.Submission, error) {
	submission, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, ErrSubmissionNotFound
		}
		return models.Submission{}, err
	}
	return submission, nil
}

// authorizeSubmission lets students read their own work and staff read work
// for assignments they own.
func authorizeSubmission(actor Actor, submission models.Submission) error {
	switch {
	case actor.IsStudent():
		if actor.StudentID == nil || *actor.StudentID != submission.StudentID {
			return ErrForbidden
		}
		return nil
	case actor.IsStaff():
		if !actor.canManage(submission.Assignment.TeacherID) {
			return ErrForbidden
		}
		return nil
	default:
		return ErrForbidden
	}
}
