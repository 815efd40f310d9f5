package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ecolearn/ecolearn-api/internal/dto"
	"github.com/ecolearn/ecolearn-api/internal/grading"
	"github.com/ecolearn/ecolearn-api/internal/models"
	"github.com/ecolearn/ecolearn-api/internal/repository"
)

// AssignmentService exposes assignment domain use cases.
type AssignmentService interface {
	List(ctx context.Context, actor Actor, req dto.AssignmentListRequest) ([]dto.AssignmentResponse, dto.PaginationMeta, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.AssignmentResponse, error)
	Templates() []dto.AssignmentTemplateResponse
	ValidateRubric(weights grading.RubricWeights) grading.RubricValidation
	Create(ctx context.Context, actor Actor, payload dto.AssignmentCreateRequest, file *multipart.FileHeader) (dto.AssignmentResponse, error)
	Update(ctx context.Context, actor Actor, id uint, payload dto.AssignmentUpdateRequest, file *multipart.FileHeader) (dto.AssignmentResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
	Publish(ctx context.Context, actor Actor, id uint) (dto.AssignmentResponse, error)
}

type assignmentService struct {
	repo      repository.AssignmentRepository
	classes   repository.ClassRepository
	students  repository.StudentRepository
	validator *validator.Validate
	uploader  FileUploader
	notifier  StudentNotifier
	activity  ActivityRecorder
	sanitizer *bluemonday.Policy
	maxUpload int64
	logger    zerolog.Logger
	now       func() time.Time
}

// AssignmentDeps groups the collaborators of the assignment service.
type AssignmentDeps struct {
	Assignments    repository.AssignmentRepository
	Classes        repository.ClassRepository
	Students       repository.StudentRepository
	Validator      *validator.Validate
	Uploader       FileUploader
	Notifier       StudentNotifier
	Activity       ActivityRecorder
	MaxUploadBytes int64
}

// NewAssignmentService builds a new assignment service.
func NewAssignmentService(deps AssignmentDeps, logger zerolog.Logger) AssignmentService {
	return &assignmentService{
		repo:      deps.Assignments,
		classes:   deps.Classes,
		students:  deps.Students,
		validator: deps.Validator,
		uploader:  deps.Uploader,
		notifier:  deps.Notifier,
		activity:  deps.Activity,
		sanitizer: bluemonday.UGCPolicy(),
		maxUpload: deps.MaxUploadBytes,
		logger:    logger.With().Str("component", "assignment_service").Logger(),
		now:       time.Now,
	}
}

func (s *assignmentService) List(ctx context.Context, actor Actor, req dto.AssignmentListRequest) ([]dto.AssignmentResponse, dto.PaginationMeta, error) {
	page, pageSize := normalizePage(req.Page, req.PageSize)
	filter := repository.AssignmentFilter{
		Status:   strings.ToLower(strings.TrimSpace(req.Status)),
		Search:   strings.TrimSpace(req.Search),
		Sort:     req.Sort,
		Page:     page,
		PageSize: pageSize,
	}
	if req.ClassID != nil {
		filter.ClassIDs = []uint{*req.ClassID}
	}

	switch {
	case actor.IsStudent():
		classIDs, err := s.studentClassIDs(ctx, actor)
		if err != nil {
			return nil, dto.PaginationMeta{}, err
		}
		if req.ClassID != nil && (len(classIDs) == 0 || classIDs[0] != *req.ClassID) {
			return []dto.AssignmentResponse{}, dto.NewPaginationMeta(page, pageSize, 0), nil
		}
		filter.ClassIDs = classIDs
		filter.IncludeUnassigned = true
		filter.Status = models.AssignmentStatusPublished
	case actor.IsAdmin():
	case actor.IsStaff():
		teacherID := actor.ID
		filter.TeacherID = &teacherID
	default:
		return nil, dto.PaginationMeta{}, ErrForbidden
	}

	assignments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, dto.PaginationMeta{}, err
	}

	return dto.NewAssignmentResponseSlice(assignments), dto.NewPaginationMeta(page, pageSize, total), nil
}

func (s *assignmentService) Get(ctx context.Context, actor Actor, id uint) (dto.AssignmentResponse, error) {
	assignment, err := s.find(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	if err := s.authorizeView(ctx, actor, assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Templates() []dto.AssignmentTemplateResponse {
	return AssignmentTemplates()
}

// ValidateRubric reports the total of the weights as they would be stored.
func (s *assignmentService) ValidateRubric(weights grading.RubricWeights) grading.RubricValidation {
	return grading.ValidateRubricWeights(weights.Clamped())
}

func (s *assignmentService) Create(ctx context.Context, actor Actor, payload dto.AssignmentCreateRequest, file *multipart.FileHeader) (dto.AssignmentResponse, error) {
	if !actor.IsStaff() {
		return dto.AssignmentResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	template := dto.AssignmentTemplateResponse{}
	if key := strings.TrimSpace(payload.TemplateKey); key != "" {
		found, ok := findTemplate(key)
		if !ok {
			return dto.AssignmentResponse{}, ErrTemplateNotFound
		}
		template = found
	}

	title := strings.TrimSpace(payload.Title)
	if title == "" {
		title = template.Title
	}
	if title == "" {
		return dto.AssignmentResponse{}, ErrAssignmentTitleRequired
	}

	description := payload.Description
	if strings.TrimSpace(description) == "" {
		description = template.Description
	}

	category := strings.TrimSpace(payload.Category)
	if category == "" {
		category = template.Category
	}

	dueDate, err := s.parseDueDate(payload.DueDate)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	if err := s.checkClass(ctx, actor, payload.ClassID); err != nil {
		return dto.AssignmentResponse{}, err
	}

	maxPoints := grading.DefaultMaxPoints
	switch {
	case payload.MaxPoints != nil:
		maxPoints = *payload.MaxPoints
	case template.MaxPoints > 0:
		maxPoints = template.MaxPoints
	}

	weights, provided := payload.Weights()
	switch {
	case provided:
		weights = weights.Clamped()
	case !template.RubricWeights.IsZero():
		weights = template.RubricWeights
	default:
		weights = grading.DefaultRubricWeights()
	}

	assignment := models.Assignment{
		ClassID:     payload.ClassID,
		TeacherID:   actor.ID,
		Title:       title,
		Description: s.sanitizer.Sanitize(description),
		Category:    category,
		DueDate:     dueDate,
		MaxPoints:   maxPoints,
		Status:      models.AssignmentStatusDraft,
		AllowLate:   payload.AllowLate,
	}
	assignment.SetRubricWeights(weights)
	if payload.Publish {
		assignment.Status = models.AssignmentStatusPublished
	}

	if file != nil {
		url, err := uploadAttachment(ctx, s.uploader, file, s.maxUpload)
		if err != nil {
			return dto.AssignmentResponse{}, err
		}
		assignment.FileURL = url
	}

	if err := s.repo.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	validation := grading.ValidateRubricWeights(weights)
	if !validation.Valid {
		s.logger.Info().Uint("assignment_id", assignment.ID).Int("rubric_total", validation.Total).Msg("assignment saved with rubric weights not totalling 100")
	}

	recordActivity(ctx, s.activity, s.logger, actor.activityActor(), "assignment.create", "assignment", &assignment.ID, map[string]interface{}{
		"title":        assignment.Title,
		"class_id":     assignment.ClassID,
		"template_key": payload.TemplateKey,
		"rubric_total": validation.Total,
		"published":    assignment.IsPublished(),
	})

	if assignment.IsPublished() {
		s.notifyPublished(ctx, assignment)
	}

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Update(ctx context.Context, actor Actor, id uint, payload dto.AssignmentUpdateRequest, file *multipart.FileHeader) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment, err := s.managed(ctx, actor, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	changes := map[string]interface{}{}
	if payload.ClassID != nil {
		if err := s.checkClass(ctx, actor, payload.ClassID); err != nil {
			return dto.AssignmentResponse{}, err
		}
		assignment.ClassID = payload.ClassID
		changes["class_id"] = *payload.ClassID
	}
	if payload.Title != nil {
		title := strings.TrimSpace(*payload.Title)
		if title == "" {
			return dto.AssignmentResponse{}, ErrAssignmentTitleRequired
		}
		assignment.Title = title
		changes["title"] = title
	}
	if payload.Description != nil {
		assignment.Description = s.sanitizer.Sanitize(*payload.Description)
		changes["description"] = true
	}
	if payload.Category != nil {
		assignment.Category = strings.TrimSpace(*payload.Category)
		changes["category"] = assignment.Category
	}
	if payload.DueDate != nil {
		dueDate, err := s.parseDueDate(*payload.DueDate)
		if err != nil {
			return dto.AssignmentResponse{}, err
		}
		assignment.DueDate = dueDate
		changes["due_date"] = dto.FormatDueDate(dueDate)
	}
	if payload.MaxPoints != nil {
		assignment.MaxPoints = *payload.MaxPoints
		changes["max_points"] = assignment.MaxPoints
	}
	if weights, ok := payload.Weights(); ok {
		weights = weights.Clamped()
		assignment.SetRubricWeights(weights)
		changes["rubric_total"] = weights.Total()
	}
	if payload.AllowLate != nil {
		assignment.AllowLate = *payload.AllowLate
		changes["allow_late"] = assignment.AllowLate
	}

	if file != nil {
		url, err := uploadAttachment(ctx, s.uploader, file, s.maxUpload)
		if err != nil {
			return dto.AssignmentResponse{}, err
		}
		assignment.FileURL = url
		changes["file"] = true
	}

	if len(changes) == 0 {
		return dto.NewAssignmentResponse(assignment), nil
	}

	if err := s.repo.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, actor.activityActor(), "assignment.update", "assignment", &assignment.ID, changes)

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Delete(ctx context.Context, actor Actor, id uint) error {
	assignment, err := s.managed(ctx, actor, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, assignment.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		return err
	}

	recordActivity(ctx, s.activity, s.logger, actor.activityActor(), "assignment.delete", "assignment", &assignment.ID, map[string]interface{}{
		"title": assignment.Title,
	})
	return nil
}

// Publish makes the assignment visible to students. Publishing an already
// published assignment is a no-op.
func (s *assignmentService) Publish(ctx context.Context, actor Actor, id uint) (dto.AssignmentResponse, error) {
	assignment, err := s.managed(ctx, actor, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	if assignment.IsPublished() {
		return dto.NewAssignmentResponse(assignment), nil
	}

	assignment.Status = models.AssignmentStatusPublished
	if err := s.repo.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	validation := grading.ValidateRubricWeights(assignment.RubricWeights())
	recordActivity(ctx, s.activity, s.logger, actor.activityActor(), "assignment.publish", "assignment", &assignment.ID, map[string]interface{}{
		"rubric_total": validation.Total,
		"rubric_valid": validation.Valid,
	})

	s.notifyPublished(ctx, assignment)

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) notifyPublished(ctx context.Context, assignment models.Assignment) {
	if s.notifier == nil || s.students == nil {
		return
	}

	filter := repository.StudentFilter{Status: models.StudentStatusActive, ClassID: assignment.ClassID}
	students, _, err := s.students.List(ctx, filter)
	if err != nil {
		s.logger.Warn().Err(err).Uint("assignment_id", assignment.ID).Msg("failed to list students for publish notification")
		return
	}

	message := fmt.Sprintf("%s is due %s.", assignment.Title, assignment.DueDate.UTC().Format("Jan 2, 2006"))
	for _, student := range students {
		if err := s.notifier.NotifyStudent(ctx, student.ID, NotificationInput{
			Type:    models.NotificationTypeAssignmentPublished,
			Title:   "New assignment",
			Message: message,
		}); err != nil {
			s.logger.Warn().Err(err).Uint("student_id", student.ID).Msg("failed to notify published assignment")
		}
	}
}

func (s *assignmentService) parseDueDate(raw string) (time.Time, error) {
	dueDate, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, ErrInvalidDueDate
	}
	if !dueDate.After(s.now()) {
		return time.Time{}, ErrDueDateInPast
	}
	return dueDate.UTC(), nil
}

func (s *assignmentService) checkClass(ctx context.Context, actor Actor, classID *uint) error {
	if classID == nil {
		return nil
	}

	class, err := s.classes.GetByID(ctx, *classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClassNotFound
		}
		return err
	}

	if !actor.canManage(class.TeacherID) {
		return ErrForbidden
	}
	return nil
}

func (s *assignmentService) find(ctx context.Context, id uint) (models.Assignment, error) {
	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, err
	}
	return assignment, nil
}

func (s *assignmentService) managed(ctx context.Context, actor Actor, id uint) (models.Assignment, error) {
	if !actor.IsStaff() {
		return models.Assignment{}, ErrForbidden
	}

	assignment, err := s.find(ctx, id)
	if err != nil {
		return models.Assignment{}, err
	}

	if !actor.canManage(assignment.TeacherID) {
		return models.Assignment{}, ErrForbidden
	}
	return assignment, nil
}

func (s *assignmentService) authorizeView(ctx context.Context, actor Actor, assignment models.Assignment) error {
	switch {
	case actor.IsStaff():
		return nil
	case actor.IsStudent():
		return canStudentSee(ctx, s.students, actor, assignment)
	default:
		return ErrForbidden
	}
}

func (s *assignmentService) studentClassIDs(ctx context.Context, actor Actor) ([]uint, error) {
	if actor.StudentID == nil {
		return nil, ErrStudentAccountNeeded
	}
	student, err := s.students.GetByID(ctx, *actor.StudentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	if student.ClassID == nil {
		return []uint{}, nil
	}
	return []uint{*student.ClassID}, nil
}

// canStudentSee reports whether a student may view an assignment: it must be
// published and either set for the student's class or for every class.
// Unpublished assignments are reported as missing.
func canStudentSee(ctx context.Context, students repository.StudentRepository, actor Actor, assignment models.Assignment) error {
	if actor.StudentID == nil {
		return ErrStudentAccountNeeded
	}
	if !assignment.IsPublished() {
		return ErrAssignmentNotFound
	}
	if assignment.ClassID == nil {
		return nil
	}

	student, err := students.GetByID(ctx, *actor.StudentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotFound
		}
		return err
	}
	if student.ClassID == nil || *student.ClassID != *assignment.ClassID {
		return ErrForbidden
	}
	return nil
}
