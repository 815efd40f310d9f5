package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ecolearn/ecolearn-api/internal/models"
)

// ClassFilter narrows class listings.
type ClassFilter struct {
	TeacherID *uint
}

// ClassSummary pairs a class with its roster size.
type ClassSummary struct {
	models.Class
	StudentCount int64
}

// ClassRepository persists classes and roster membership.
type ClassRepository interface {
	List(ctx context.Context, filter ClassFilter) ([]ClassSummary, error)
	GetByID(ctx context.Context, id uint) (models.Class, error)
	GetByJoinCode(ctx context.Context, code string) (models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id uint) error
	AssignStudents(ctx context.Context, classID uint, studentIDs []uint) (int64, error)
	CountStudents(ctx context.Context, classID uint) (int64, error)
}

type classRepository struct {
	db *gorm.DB
}

// NewClassRepository constructs the class repository.
func NewClassRepository(db *gorm.DB) ClassRepository {
	return &classRepository{db: db}
}

func (r *classRepository) List(ctx context.Context, filter ClassFilter) ([]ClassSummary, error) {
	query := r.db.WithContext(ctx).Model(&models.Class{})
	if filter.TeacherID != nil {
		query = query.Where("teacher_id = ?", *filter.TeacherID)
	}

	var classes []models.Class
	if err := query.Order("grade_level ASC, name ASC").Find(&classes).Error; err != nil {
		return nil, err
	}

	if len(classes) == 0 {
		return []ClassSummary{}, nil
	}

	ids := make([]uint, 0, len(classes))
	for _, class := range classes {
		ids = append(ids, class.ID)
	}

	type countRow struct {
		ClassID uint
		Total   int64
	}
	var rows []countRow
	if err := r.db.WithContext(ctx).Model(&models.Student{}).
		Select("class_id, COUNT(*) AS total").
		Where("class_id IN ?", ids).
		Group("class_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[uint]int64, len(rows))
	for _, row := range rows {
		counts[row.ClassID] = row.Total
	}

	summaries := make([]ClassSummary, 0, len(classes))
	for _, class := range classes {
		summaries = append(summaries, ClassSummary{Class: class, StudentCount: counts[class.ID]})
	}
	return summaries, nil
}

func (r *classRepository) GetByID(ctx context.Context, id uint) (models.Class, error) {
	var class models.Class
	if err := r.db.WithContext(ctx).First(&class, id).Error; err != nil {
		return models.Class{}, err
	}
	return class, nil
}

func (r *classRepository) GetByJoinCode(ctx context.Context, code string) (models.Class, error) {
	var class models.Class
	if err := r.db.WithContext(ctx).Where("join_code = ?", code).First(&class).Error; err != nil {
		return models.Class{}, err
	}
	return class, nil
}

func (r *classRepository) Create(ctx context.Context, class *models.Class) error {
	return r.db.WithContext(ctx).Create(class).Error
}

func (r *classRepository) Update(ctx context.Context, class *models.Class) error {
	return r.db.WithContext(ctx).Save(class).Error
}

// Delete removes the class and detaches its students from it.
func (r *classRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Student{}).Where("class_id = ?", id).Update("class_id", nil).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Class{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *classRepository) AssignStudents(ctx context.Context, classID uint, studentIDs []uint) (int64, error) {
	if len(studentIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Model(&models.Student{}).
		Where("id IN ?", studentIDs).
		Update("class_id", classID)
	return result.RowsAffected, result.Error
}

func (r *classRepository) CountStudents(ctx context.Context, classID uint) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Student{}).Where("class_id = ?", classID).Count(&total).Error
	return total, err
}
