package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ecolearn/ecolearn-api/internal/models"
)

// StudentMetrics aggregates the values badge criteria are compared against.
type StudentMetrics struct {
	Points        int
	LongestStreak int
	Submissions   int64
	PerfectScores int64
}

// BadgeRepository persists badges, awards and the point ledger.
type BadgeRepository interface {
	List(ctx context.Context) ([]models.Badge, error)
	GetByID(ctx context.Context, id uint) (models.Badge, error)
	Create(ctx context.Context, badge *models.Badge) error
	Update(ctx context.Context, badge *models.Badge) error
	Delete(ctx context.Context, id uint) error
	ListAwarded(ctx context.Context, studentID uint) ([]models.StudentBadge, error)
	Award(ctx context.Context, award *models.StudentBadge) (bool, error)
	AppendLedger(ctx context.Context, entry *models.PointLedgerEntry) error
	ListLedger(ctx context.Context, studentID uint, limit int) ([]models.PointLedgerEntry, error)
	SumLedgerForSubmission(ctx context.Context, submissionID uint, reason string) (int, error)
	Metrics(ctx context.Context, studentID uint) (StudentMetrics, error)
}

type badgeRepository struct {
	db *gorm.DB
}

// NewBadgeRepository constructs the badge repository.
func NewBadgeRepository(db *gorm.DB) BadgeRepository {
	return &badgeRepository{db: db}
}

func (r *badgeRepository) List(ctx context.Context) ([]models.Badge, error) {
	var badges []models.Badge
	if err := r.db.WithContext(ctx).Order("criterion ASC").Order("threshold ASC").Find(&badges).Error; err != nil {
		return nil, err
	}
	return badges, nil
}

func (r *badgeRepository) GetByID(ctx context.Context, id uint) (models.Badge, error) {
	var badge models.Badge
	if err := r.db.WithContext(ctx).First(&badge, id).Error; err != nil {
		return models.Badge{}, err
	}
	return badge, nil
}

func (r *badgeRepository) Create(ctx context.Context, badge *models.Badge) error {
	return r.db.WithContext(ctx).Create(badge).Error
}

func (r *badgeRepository) Update(ctx context.Context, badge *models.Badge) error {
	return r.db.WithContext(ctx).Save(badge).Error
}

func (r *badgeRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("badge_id = ?", id).Delete(&models.StudentBadge{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Badge{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *badgeRepository) ListAwarded(ctx context.Context, studentID uint) ([]models.StudentBadge, error) {
	var awards []models.StudentBadge
	if err := r.db.WithContext(ctx).
		Preload("Badge").
		Where("student_id = ?", studentID).
		Order("awarded_at ASC").
		Find(&awards).Error; err != nil {
		return nil, err
	}
	return awards, nil
}

// Award inserts the award unless the student already holds the badge. The
// boolean reports whether a new row was written.
func (r *badgeRepository) Award(ctx context.Context, award *models.StudentBadge) (bool, error) {
	result := r.db.WithContext(ctx).
		Omit("Badge").
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(award)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *badgeRepository) AppendLedger(ctx context.Context, entry *models.PointLedgerEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		return tx.Model(&models.Student{}).
			Where("id = ?", entry.StudentID).
			UpdateColumn("points", gorm.Expr("points + ?", entry.Points)).Error
	})
}

func (r *badgeRepository) ListLedger(ctx context.Context, studentID uint, limit int) ([]models.PointLedgerEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	var entries []models.PointLedgerEntry
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *badgeRepository) SumLedgerForSubmission(ctx context.Context, submissionID uint, reason string) (int, error) {
	var total int
	err := r.db.WithContext(ctx).Model(&models.PointLedgerEntry{}).
		Select("COALESCE(SUM(points), 0)").
		Where("submission_id = ? AND reason = ?", submissionID, reason).
		Scan(&total).Error
	return total, err
}

func (r *badgeRepository) Metrics(ctx context.Context, studentID uint) (StudentMetrics, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).Select("id", "points", "longest_streak").First(&student, studentID).Error; err != nil {
		return StudentMetrics{}, err
	}

	metrics := StudentMetrics{Points: student.Points, LongestStreak: student.LongestStreak}

	if err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("student_id = ?", studentID).
		Count(&metrics.Submissions).Error; err != nil {
		return StudentMetrics{}, err
	}

	if err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Joins("JOIN assignments ON assignments.id = submissions.assignment_id").
		Where("submissions.student_id = ? AND submissions.status = ?", studentID, models.SubmissionStatusGraded).
		Where("submissions.score >= assignments.max_points").
		Count(&metrics.PerfectScores).Error; err != nil {
		return StudentMetrics{}, err
	}

	return metrics, nil
}
