package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ecolearn/ecolearn-api/internal/dto"
	"github.com/ecolearn/ecolearn-api/internal/models"
	"github.com/ecolearn/ecolearn-api/internal/repository"
)

const (
	defaultLeaderboardSize = 10
	maxLeaderboardSize     = 50
)

// ClassService manages classes, their rosters and leaderboards.
type ClassService interface {
	List(ctx context.Context, actor Actor) ([]dto.ClassResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.ClassResponse, error)
	Resolve(ctx context.Context, code string) (dto.ClassResponse, error)
	Create(ctx context.Context, actor Actor, req dto.ClassCreateRequest) (dto.ClassResponse, error)
	Update(ctx context.Context, actor Actor, id uint, req dto.ClassUpdateRequest) (dto.ClassResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
	Roster(ctx context.Context, actor Actor, id uint) ([]dto.StudentResponse, error)
	AssignStudents(ctx context.Context, actor Actor, id uint, req dto.ClassAssignStudentsRequest) (int64, error)
	Leaderboard(ctx context.Context, actor Actor, id uint, limit int) ([]dto.LeaderboardEntry, error)
}

type classService struct {
	classes   repository.ClassRepository
	students  repository.StudentRepository
	codes     *CodeGenerator
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewClassService constructs the class service.
func NewClassService(classes repository.ClassRepository, students repository.StudentRepository, codes *CodeGenerator, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) ClassService {
	return &classService{
		classes:   classes,
		students:  students,
		codes:     codes,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "class_service").Logger(),
	}
}

func (s *classService) List(ctx context.Context, actor Actor) ([]dto.ClassResponse, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}

	filter := repository.ClassFilter{}
	if !actor.IsAdmin() {
		teacherID := actor.ID
		filter.TeacherID = &teacherID
	}

	summaries, err := s.classes.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ClassResponse, 0, len(summaries))
	for _, summary := range summaries {
		responses = append(responses, dto.NewClassResponse(summary.Class, summary.StudentCount))
	}
	return responses, nil
}

func (s *classService) Get(ctx context.Context, actor Actor, id uint) (dto.ClassResponse, error) {
	class, err := s.managedClass(ctx, actor, id)
	if err != nil {
		return dto.ClassResponse{}, err
	}
	return s.response(ctx, class)
}

// Resolve looks a class up by its join code.
func (s *classService) Resolve(ctx context.Context, code string) (dto.ClassResponse, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if _, err := s.codes.Decode(code); err != nil {
		return dto.ClassResponse{}, ErrJoinCodeInvalid
	}

	class, err := s.classes.GetByJoinCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ClassResponse{}, ErrJoinCodeInvalid
		}
		return dto.ClassResponse{}, err
	}
	return s.response(ctx, class)
}

func (s *classService) Create(ctx context.Context, actor Actor, req dto.ClassCreateRequest) (dto.ClassResponse, error) {
	if !actor.IsStaff() {
		return dto.ClassResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.ClassResponse{}, err
	}

	teacherID := actor.ID
	if req.TeacherID != nil {
		if !actor.IsAdmin() && *req.TeacherID != actor.ID {
			return dto.ClassResponse{}, ErrForbidden
		}
		teacherID = *req.TeacherID
	}

	class := models.Class{
		Name:        strings.TrimSpace(req.Name),
		GradeLevel:  req.GradeLevel,
		Section:     strings.TrimSpace(req.Section),
		Description: strings.TrimSpace(req.Description),
		TeacherID:   teacherID,
	}

	if err := s.classes.Create(ctx, &class); err != nil {
		return dto.ClassResponse{}, err
	}

	// the join code is derived from the id, so it can only be set after insert
	code, err := s.codes.Encode(class.ID)
	if err != nil {
		return dto.ClassResponse{}, fmt.Errorf("derive join code: %w", err)
	}
	class.JoinCode = &code
	if err := s.classes.Update(ctx, &class); err != nil {
		return dto.ClassResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, actor.activityActor(), "class.create", "class", &class.ID, map[string]interface{}{
		"name":        class.Name,
		"grade_level": class.GradeLevel,
		"teacher_id":  class.TeacherID,
	})

	return dto.NewClassResponse(class, 0), nil
}

func (s *classService) Update(ctx context.Context, actor Actor, id uint, req dto.ClassUpdateRequest) (dto.ClassResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ClassResponse{}, err
	}

	class, err := s.managedClass(ctx, actor, id)
	if err != nil {
		return dto.ClassResponse{}, err
	}

	changes := map[string]interface{}{}
	if req.Name != nil {
		class.Name = strings.TrimSpace(*req.Name)
		changes["name"] = class.Name
	}
	if req.GradeLevel != nil {
		class.GradeLevel = *req.GradeLevel
		changes["grade_level"] = class.GradeLevel
	}
	if req.Section != nil {
		class.Section = strings.TrimSpace(*req.Section)
		changes["section"] = class.Section
	}
	if req.Description != nil {
		class.Description = strings.TrimSpace(*req.Description)
		changes["description"] = true
	}

	if len(changes) == 0 {
		return s.response(ctx, class)
	}

	if err := s.classes.Update(ctx, &class); err != nil {
		return dto.ClassResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, actor.activityActor(), "class.update", "class", &class.ID, changes)

	return s.response(ctx, class)
}

func (s *classService) Delete(ctx context.Context, actor Actor, id uint) error {
	class, err := s.managedClass(ctx, actor, id)
	if err != nil {
		return err
	}

	if err := s.classes.Delete(ctx, class.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClassNotFound
		}
		return err
	}

	recordActivity(ctx, s.activity, s.logger, actor.activityActor(), "class.delete", "class", &class.ID, map[string]interface{}{
		"name": class.Name,
	})
	return nil
}

func (s *classService) Roster(ctx context.Context, actor Actor, id uint) ([]dto.StudentResponse, error) {
	class, err := s.managedClass(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	students, _, err := s.students.List(ctx, repository.StudentFilter{ClassID: &class.ID, Sort: "name"})
	if err != nil {
		return nil, err
	}
	return dto.NewStudentResponseSlice(students), nil
}

func (s *classService) AssignStudents(ctx context.Context, actor Actor, id uint, req dto.ClassAssignStudentsRequest) (int64, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, err
	}

	class, err := s.managedClass(ctx, actor, id)
	if err != nil {
		return 0, err
	}

	updated, err := s.classes.AssignStudents(ctx, class.ID, req.StudentIDs)
	if err != nil {
		return 0, err
	}

	recordActivity(ctx, s.activity, s.logger, actor.activityActor(), "class.assign_students", "class", &class.ID, map[string]interface{}{
		"student_ids": req.StudentIDs,
		"updated":     updated,
	})

	return updated, nil
}

// Leaderboard ranks a class by points. Students may only view their own class.
func (s *classService) Leaderboard(ctx context.Context, actor Actor, id uint, limit int) ([]dto.LeaderboardEntry, error) {
	class, err := s.classes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		return nil, err
	}

	switch {
	case actor.IsStudent():
		if actor.StudentID == nil {
			return nil, ErrForbidden
		}
		student, err := s.students.GetByID(ctx, *actor.StudentID)
		if err != nil || student.ClassID == nil || *student.ClassID != class.ID {
			return nil, ErrForbidden
		}
	case !actor.canManage(class.TeacherID):
		return nil, ErrForbidden
	}

	if limit <= 0 {
		limit = defaultLeaderboardSize
	}
	if limit > maxLeaderboardSize {
		limit = maxLeaderboardSize
	}

	students, err := s.students.Leaderboard(ctx, class.ID, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]dto.LeaderboardEntry, 0, len(students))
	for idx, student := range students {
		entries = append(entries, dto.LeaderboardEntry{
			Rank:          idx + 1,
			StudentID:     student.ID,
			Name:          student.Name,
			Points:        student.Points,
			CurrentStreak: student.CurrentStreak,
		})
	}
	return entries, nil
}

// managedClass loads a class the actor is allowed to manage.
func (s *classService) managedClass(ctx context.Context, actor Actor, id uint) (models.Class, error) {
	if !actor.IsStaff() {
		return models.Class{}, ErrForbidden
	}

	class, err := s.classes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Class{}, ErrClassNotFound
		}
		return models.Class{}, err
	}

	if !actor.canManage(class.TeacherID) {
		return models.Class{}, ErrForbidden
	}
	return class, nil
}

func (s *classService) response(ctx context.Context, class models.Class) (dto.ClassResponse, error) {
	count, err := s.classes.CountStudents(ctx, class.ID)
	if err != nil {
		return dto.ClassResponse{}, err
	}
	return dto.NewClassResponse(class, count), nil
}
