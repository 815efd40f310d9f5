package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ecolearn/ecolearn-api/internal/models"
)

// SubmissionFilter allows narrowing submission queries.
type SubmissionFilter struct {
	AssignmentID  *uint
	StudentID     *uint
	Status        *string
	AssignmentIDs []uint
	Limit         int
}

// GradeCount is the number of graded submissions per letter grade.
type GradeCount struct {
	LetterGrade string
	Total       int64
}

// SubmissionRepository defines data operations for submissions.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID uint) (models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	Update(ctx context.Context, submission *models.Submission) error
	CreateHistory(ctx context.Context, history *models.SubmissionGradeHistory) error
	CountByStatus(ctx context.Context, assignmentIDs []uint, status string) (int64, error)
	GradeDistribution(ctx context.Context, assignmentIDs []uint) ([]GradeCount, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("Assignment").
		Preload("Student")
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.baseQuery(ctx)

	if filter.AssignmentID != nil {
		query = query.Where("assignment_id = ?", *filter.AssignmentID)
	}

	if filter.AssignmentIDs != nil {
		query = query.Where("assignment_id IN ?", append([]uint{0}, filter.AssignmentIDs...))
	}

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var submissions []models.Submission
	if err := query.Order("created_at DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).
		Preload("History", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("graded_at DESC")
		}).
		First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).
		Where("assignment_id = ?", assignmentID).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Omit("Assignment", "Student", "History").Create(submission).Error
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Omit("Assignment", "Student", "History").Save(submission).Error
}

func (r *submissionRepository) CreateHistory(ctx context.Context, history *models.SubmissionGradeHistory) error {
	return r.db.WithContext(ctx).Create(history).Error
}

func (r *submissionRepository) CountByStatus(ctx context.Context, assignmentIDs []uint, status string) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Submission{}).Where("status = ?", status)
	if assignmentIDs != nil {
		query = query.Where("assignment_id IN ?", append([]uint{0}, assignmentIDs...))
	}
	var total int64
	err := query.Count(&total).Error
	return total, err
}

func (r *submissionRepository) GradeDistribution(ctx context.Context, assignmentIDs []uint) ([]GradeCount, error) {
	query := r.db.WithContext(ctx).Model(&models.Submission{}).
		Select("letter_grade, COUNT(*) AS total").
		Where("status = ?", models.SubmissionStatusGraded)
	if assignmentIDs != nil {
		query = query.Where("assignment_id IN ?", append([]uint{0}, assignmentIDs...))
	}

	var rows []GradeCount
	if err := query.Group("letter_grade").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
