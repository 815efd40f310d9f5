package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/ecolearn/ecolearn-api/internal/models"
)

// StudentFilter defines filters for roster listings.
type StudentFilter struct {
	Search   string
	ClassID  *uint
	Status   string
	Sort     string
	Page     int
	PageSize int
}

// StudentRepository exposes persistence helpers for roster management.
type StudentRepository interface {
	List(ctx context.Context, filter StudentFilter) ([]models.Student, int64, error)
	GetByID(ctx context.Context, id uint) (models.Student, error)
	GetByEmail(ctx context.Context, email string) (models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Save(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, id uint, updates map[string]interface{}) (models.Student, error)
	SoftDelete(ctx context.Context, id uint) error
	Leaderboard(ctx context.Context, classID uint, limit int) ([]models.Student, error)
	Count(ctx context.Context, classIDs []uint) (int64, error)
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository constructs a student repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) List(ctx context.Context, filter StudentFilter) ([]models.Student, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Student{})

	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(username) LIKE ? OR LOWER(roll_number) LIKE ?", like, like, like, like)
	}

	if filter.ClassID != nil {
		query = query.Where("class_id = ?", *filter.ClassID)
	}

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = paginate(query.Order(normalizeStudentSort(filter.Sort)), filter.Page, filter.PageSize)

	var students []models.Student
	if err := query.Find(&students).Error; err != nil {
		return nil, 0, err
	}

	return students, total, nil
}

func (r *studentRepository) GetByID(ctx context.Context, id uint) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).First(&student, id).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

func (r *studentRepository) GetByEmail(ctx context.Context, email string) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(&student).Error; err != nil {
		return models.Student{}, err
	}
	return student, nil
}

func (r *studentRepository) Create(ctx context.Context, student *models.Student) error {
	return r.db.WithContext(ctx).Create(student).Error
}

func (r *studentRepository) Save(ctx context.Context, student *models.Student) error {
	return r.db.WithContext(ctx).Save(student).Error
}

func (r *studentRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) (models.Student, error) {
	result := r.db.WithContext(ctx).Model(&models.Student{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return models.Student{}, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Student{}, gorm.ErrRecordNotFound
	}

	return r.GetByID(ctx, id)
}

// SoftDelete archives the student and hides it from default queries.
func (r *studentRepository) SoftDelete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		update := tx.Model(&models.Student{}).
			Where("id = ?", id).
			Update("status", models.StudentStatusArchived)
		if update.Error != nil {
			return update.Error
		}

		if update.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return tx.Delete(&models.Student{}, id).Error
	})
}

func (r *studentRepository) Leaderboard(ctx context.Context, classID uint, limit int) ([]models.Student, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	var students []models.Student
	if err := r.db.WithContext(ctx).
		Where("class_id = ?", classID).
		Where("status = ?", models.StudentStatusActive).
		Order("points DESC, name ASC").
		Limit(limit).
		Find(&students).Error; err != nil {
		return nil, err
	}
	return students, nil
}

// Count returns the number of students in the given classes. A nil slice counts everyone.
func (r *studentRepository) Count(ctx context.Context, classIDs []uint) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Student{})
	if classIDs != nil {
		if len(classIDs) == 0 {
			return 0, nil
		}
		query = query.Where("class_id IN ?", classIDs)
	}
	var total int64
	err := query.Count(&total).Error
	return total, err
}

func normalizeStudentSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "name", "name:asc":
		return "name ASC"
	case "-name", "name:desc":
		return "name DESC"
	case "points", "points:asc":
		return "points ASC"
	case "-points", "points:desc":
		return "points DESC"
	case "created_at", "created_at:asc":
		return "created_at ASC"
	default:
		return "created_at DESC"
	}
}
