package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ecolearn/ecolearn-api/internal/dto"
	"github.com/ecolearn/ecolearn-api/internal/models"
	"github.com/ecolearn/ecolearn-api/internal/repository"
)

// StudentService manages the student roster.
type StudentService interface {
	List(ctx context.Context, actor Actor, req dto.StudentListRequest) (dto.StudentListResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.StudentResponse, error)
	Create(ctx context.Context, actor Actor, req dto.StudentCreateRequest) (dto.StudentResponse, error)
	Update(ctx context.Context, actor Actor, id uint, req dto.StudentUpdateRequest) (dto.StudentResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
	Import(ctx context.Context, actor Actor, reader io.Reader) (dto.StudentImportResult, error)
}

type studentService struct {
	students  repository.StudentRepository
	classes   repository.ClassRepository
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewStudentService constructs the roster service.
func NewStudentService(students repository.StudentRepository, classes repository.ClassRepository, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) StudentService {
	return &studentService{
		students:  students,
		classes:   classes,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "student_service").Logger(),
	}
}

func (s *studentService) List(ctx context.Context, actor Actor, req dto.StudentListRequest) (dto.StudentListResponse, error) {
	if !actor.IsStaff() {
		return dto.StudentListResponse{}, ErrForbidden
	}

	page, pageSize := normalizePage(req.Page, req.PageSize)
	filter := repository.StudentFilter{
		Search:   strings.TrimSpace(req.Search),
		ClassID:  req.ClassID,
		Status:   strings.ToLower(strings.TrimSpace(req.Status)),
		Sort:     req.Sort,
		Page:     page,
		PageSize: pageSize,
	}

	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return dto.StudentListResponse{}, err
	}

	return dto.StudentListResponse{
		Items:      dto.NewStudentResponseSlice(students),
		Pagination: dto.NewPaginationMeta(page, pageSize, total),
	}, nil
}

func (s *studentService) Get(ctx context.Context, actor Actor, id uint) (dto.StudentResponse, error) {
	if actor.IsStudent() {
		if actor.StudentID == nil || *actor.StudentID != id {
			return dto.StudentResponse{}, ErrForbidden
		}
	} else if !actor.IsStaff() {
		return dto.StudentResponse{}, ErrForbidden
	}

	student, err := s.find(ctx, id)
	if err != nil {
		return dto.StudentResponse{}, err
	}
	return dto.NewStudentResponse(student), nil
}

func (s *studentService) Create(ctx context.Context, actor Actor, req dto.StudentCreateRequest) (dto.StudentResponse, error) {
	if !actor.IsStaff() {
		return dto.StudentResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.StudentResponse{}, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.students.GetByEmail(ctx, email); err == nil {
		return dto.StudentResponse{}, ErrStudentEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.StudentResponse{}, err
	}

	if err := s.checkClass(ctx, actor, req.ClassID); err != nil {
		return dto.StudentResponse{}, err
	}

	student := models.Student{
		Name:       strings.TrimSpace(req.Name),
		Email:      email,
		RollNumber: strings.TrimSpace(req.RollNumber),
		ClassID:    req.ClassID,
		Status:     models.StudentStatusActive,
	}

	if err := s.students.Create(ctx, &student); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return dto.StudentResponse{}, ErrStudentEmailTaken
		}
		return dto.StudentResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, actor.activityActor(), "student.create", "student", &student.ID, map[string]interface{}{
		"email":    student.Email,
		"class_id": student.ClassID,
	})

	return dto.NewStudentResponse(student), nil
}

func (s *studentService) Update(ctx context.Context, actor Actor, id uint, req dto.StudentUpdateRequest) (dto.StudentResponse, error) {
	if !actor.IsStaff() {
		return dto.StudentResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.StudentResponse{}, err
	}

	current, err := s.find(ctx, id)
	if err != nil {
		return dto.StudentResponse{}, err
	}
	if err := s.authorizeStudent(ctx, actor, current); err != nil {
		return dto.StudentResponse{}, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != strings.ToLower(current.Email) {
			existing, err := s.students.GetByEmail(ctx, email)
			if err == nil && existing.ID != id {
				return dto.StudentResponse{}, ErrStudentEmailTaken
			}
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.StudentResponse{}, err
			}
			updates["email"] = email
		}
	}
	if req.RollNumber != nil {
		updates["roll_number"] = strings.TrimSpace(*req.RollNumber)
	}
	if req.ClassID != nil {
		if err := s.checkClass(ctx, actor, req.ClassID); err != nil {
			return dto.StudentResponse{}, err
		}
		updates["class_id"] = *req.ClassID
	}
	if req.Status != nil {
		updates["status"] = strings.ToLower(*req.Status)
	}

	if len(updates) == 0 {
		return dto.NewStudentResponse(current), nil
	}

	updated, err := s.students.Update(ctx, id, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StudentResponse{}, ErrStudentNotFound
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return dto.StudentResponse{}, ErrStudentEmailTaken
		}
		return dto.StudentResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, actor.activityActor(), "student.update", "student", &id, updates)

	return dto.NewStudentResponse(updated), nil
}

func (s *studentService) Delete(ctx context.Context, actor Actor, id uint) error {
	if !actor.IsStaff() {
		return ErrForbidden
	}

	student, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorizeStudent(ctx, actor, student); err != nil {
		return err
	}

	if err := s.students.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotFound
		}
		return err
	}

	recordActivity(ctx, s.activity, s.logger, actor.activityActor(), "student.delete", "student", &id, nil)
	return nil
}

// Import upserts roster rows from a CSV file keyed by email. Row level
// problems are collected and never abort the batch.
func (s *studentService) Import(ctx context.Context, actor Actor, reader io.Reader) (dto.StudentImportResult, error) {
	if !actor.IsStaff() {
		return dto.StudentImportResult{}, ErrForbidden
	}

	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	header, err := csvReader.Read()
	if err != nil {
		return dto.StudentImportResult{}, fmt.Errorf("%w: missing header", ErrInvalidCSV)
	}

	columns := map[string]int{}
	for idx, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		columns[key] = idx
	}
	for _, required := range []string{"name", "email"} {
		if _, ok := columns[required]; !ok {
			return dto.StudentImportResult{}, fmt.Errorf("%w: missing %s column", ErrInvalidCSV, required)
		}
	}

	result := dto.StudentImportResult{Errors: []dto.StudentImportError{}}
	allowedClasses := map[uint]error{}

	for {
		record, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return result, err
			}
			result.Errors = append(result.Errors, dto.StudentImportError{Row: parseErr.StartLine, Message: "malformed row"})
			continue
		}
		// rows are reported by the physical line they start on
		row, _ := csvReader.FieldPos(0)

		field := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		name := field("name")
		email := strings.ToLower(field("email"))
		if name == "" {
			result.Errors = append(result.Errors, dto.StudentImportError{Row: row, Email: email, Message: "name is required"})
			continue
		}
		if err := s.validator.Var(email, "required,email"); err != nil {
			result.Errors = append(result.Errors, dto.StudentImportError{Row: row, Email: email, Message: "invalid email"})
			continue
		}

		var classID *uint
		if raw := field("class_id"); raw != "" {
			parsed, err := strconv.ParseUint(raw, 10, 64)
			if err != nil || parsed == 0 {
				result.Errors = append(result.Errors, dto.StudentImportError{Row: row, Email: email, Message: "invalid class_id"})
				continue
			}
			id := uint(parsed)
			classErr, seen := allowedClasses[id]
			if !seen {
				classErr = s.checkClass(ctx, actor, &id)
				allowedClasses[id] = classErr
			}
			if classErr != nil {
				result.Errors = append(result.Errors, dto.StudentImportError{Row: row, Email: email, Message: classErr.Error()})
				continue
			}
			classID = &id
		}

		rollNumber := field("roll_number")

		existing, err := s.students.GetByEmail(ctx, email)
		switch {
		case err == nil:
			if err := s.authorizeStudent(ctx, actor, existing); err != nil {
				result.Errors = append(result.Errors, dto.StudentImportError{Row: row, Email: email, Message: err.Error()})
				continue
			}
			updates := map[string]interface{}{"name": name}
			if rollNumber != "" {
				updates["roll_number"] = rollNumber
			}
			if classID != nil {
				updates["class_id"] = *classID
			}
			if _, err := s.students.Update(ctx, existing.ID, updates); err != nil {
				result.Errors = append(result.Errors, dto.StudentImportError{Row: row, Email: email, Message: "failed to update student"})
				continue
			}
			result.Updated++
		case errors.Is(err, gorm.ErrRecordNotFound):
			student := models.Student{
				Name:       name,
				Email:      email,
				RollNumber: rollNumber,
				ClassID:    classID,
				Status:     models.StudentStatusActive,
			}
			if err := s.students.Create(ctx, &student); err != nil {
				message := "failed to create student"
				if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
					message = ErrStudentEmailTaken.Error()
				}
				result.Errors = append(result.Errors, dto.StudentImportError{Row: row, Email: email, Message: message})
				continue
			}
			result.Inserted++
		default:
			return result, err
		}
	}

	recordActivity(ctx, s.activity, s.logger, actor.activityActor(), "student.import", "student", nil, map[string]interface{}{
		"inserted": result.Inserted,
		"updated":  result.Updated,
		"errors":   len(result.Errors),
	})

	s.logger.Info().
		Int("inserted", result.Inserted).
		Int("updated", result.Updated).
		Int("errors", len(result.Errors)).
		Msg("roster import finished")

	return result, nil
}

func (s *studentService) find(ctx context.Context, id uint) (models.Student, error) {
	student, err := s.students.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Student{}, ErrStudentNotFound
		}
		return models.Student{}, err
	}
	return student, nil
}

// authorizeStudent lets teachers change students that are unassigned or sit
// in one of their own classes. Admins may change anyone.
func (s *studentService) authorizeStudent(ctx context.Context, actor Actor, student models.Student) error {
	if actor.IsAdmin() || student.ClassID == nil {
		return nil
	}

	class, err := s.classes.GetByID(ctx, *student.ClassID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if !actor.canManage(class.TeacherID) {
		return ErrForbidden
	}
	return nil
}

// checkClass verifies the class exists and the actor may enrol students in it.
func (s *studentService) checkClass(ctx context.Context, actor Actor, classID *uint) error {
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
