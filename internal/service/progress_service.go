package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ecolearn/ecolearn-api/internal/dto"
	"github.com/ecolearn/ecolearn-api/internal/models"
	"github.com/ecolearn/ecolearn-api/internal/observability"
	"github.com/ecolearn/ecolearn-api/internal/repository"
)

// Point values granted for submissions.
const (
	PointsOnTime       = 5
	PointsLate         = 2
	maxGradePoints     = 10
	recentLedgerLength = 10
)

// ProgressRecorder is the part of the progress service other services call.
type ProgressRecorder interface {
	RecordSubmission(ctx context.Context, submission models.Submission) error
	RecordGrade(ctx context.Context, submission models.Submission, percentage float64) error
}

// ProgressService tracks points, streaks and badges.
type ProgressService interface {
	ProgressRecorder
	Get(ctx context.Context, actor Actor, studentID uint) (dto.ProgressResponse, error)
}

type progressService struct {
	students repository.StudentRepository
	badges   repository.BadgeRepository
	notifier StudentNotifier
	logger   zerolog.Logger
	now      func() time.Time
}

// NewProgressService wires the progress tracker. notifier may be nil.
func NewProgressService(students repository.StudentRepository, badges repository.BadgeRepository, notifier StudentNotifier, logger zerolog.Logger) ProgressService {
	return &progressService{
		students: students,
		badges:   badges,
		notifier: notifier,
		logger:   logger.With().Str("component", "progress_service").Logger(),
		now:      time.Now,
	}
}

// RecordSubmission grants submission points and advances the streak. It must
// be called once per submission; resubmissions are not rewarded again.
func (s *progressService) RecordSubmission(ctx context.Context, submission models.Submission) error {
	student, err := s.students.GetByID(ctx, submission.StudentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotFound
		}
		return err
	}

	today := truncateDay(s.now())
	current, longest := nextStreak(student.CurrentStreak, student.LongestStreak, student.LastActiveOn, today)
	if _, err := s.students.Update(ctx, student.ID, map[string]interface{}{
		"current_streak": current,
		"longest_streak": longest,
		"last_active_on": today,
	}); err != nil {
		return fmt.Errorf("update streak: %w", err)
	}

	points, reason := PointsOnTime, models.PointReasonSubmitted
	if submission.Late {
		points, reason = PointsLate, models.PointReasonLate
	}

	if err := s.appendLedger(ctx, student.ID, submission.ID, points, reason); err != nil {
		return err
	}

	return s.evaluateBadges(ctx, student.ID, current)
}

// RecordGrade grants round(percentage/10) points, clamped to [0,10]. A
// regrade only grants or removes the difference against what the submission
// already earned.
func (s *progressService) RecordGrade(ctx context.Context, submission models.Submission, percentage float64) error {
	target := GradePoints(percentage)

	granted, err := s.badges.SumLedgerForSubmission(ctx, submission.ID, models.PointReasonGraded)
	if err != nil {
		return err
	}

	delta := target - granted
	if delta != 0 {
		if err := s.appendLedger(ctx, submission.StudentID, submission.ID, delta, models.PointReasonGraded); err != nil {
			return err
		}
	}

	student, err := s.students.GetByID(ctx, submission.StudentID)
	if err != nil {
		return err
	}

	return s.evaluateBadges(ctx, submission.StudentID, student.CurrentStreak)
}

func (s *progressService) Get(ctx context.Context, actor Actor, studentID uint) (dto.ProgressResponse, error) {
	if actor.IsStudent() && (actor.StudentID == nil || *actor.StudentID != studentID) {
		return dto.ProgressResponse{}, ErrForbidden
	}

	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProgressResponse{}, ErrStudentNotFound
		}
		return dto.ProgressResponse{}, err
	}

	awards, err := s.badges.ListAwarded(ctx, studentID)
	if err != nil {
		return dto.ProgressResponse{}, err
	}

	ledger, err := s.badges.ListLedger(ctx, studentID, recentLedgerLength)
	if err != nil {
		return dto.ProgressResponse{}, err
	}

	return dto.NewProgressResponse(student, awards, ledger), nil
}

func (s *progressService) appendLedger(ctx context.Context, studentID, submissionID uint, points int, reason string) error {
	entry := models.PointLedgerEntry{
		StudentID:    studentID,
		SubmissionID: &submissionID,
		Points:       points,
		Reason:       reason,
	}
	if err := s.badges.AppendLedger(ctx, &entry); err != nil {
		return fmt.Errorf("append ledger: %w", err)
	}
	observability.PointsAwarded().WithLabelValues(reason).Add(math.Abs(float64(points)))
	return nil
}

func (s *progressService) evaluateBadges(ctx context.Context, studentID uint, currentStreak int) error {
	badges, err := s.badges.List(ctx)
	if err != nil {
		return err
	}
	if len(badges) == 0 {
		return nil
	}

	metrics, err := s.badges.Metrics(ctx, studentID)
	if err != nil {
		return err
	}
	if currentStreak > metrics.LongestStreak {
		metrics.LongestStreak = currentStreak
	}

	for _, badge := range badges {
		if !badgeEarned(badge, metrics) {
			continue
		}

		awarded, err := s.badges.Award(ctx, &models.StudentBadge{
			StudentID: studentID,
			BadgeID:   badge.ID,
			AwardedAt: s.now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("award badge %d: %w", badge.ID, err)
		}
		if !awarded {
			continue
		}

		observability.BadgesAwarded().Inc()
		s.logger.Info().Uint("student_id", studentID).Str("badge", badge.Name).Msg("badge awarded")

		if s.notifier != nil {
			if err := s.notifier.NotifyStudent(ctx, studentID, NotificationInput{
				Type:    models.NotificationTypeBadgeAwarded,
				Title:   "New badge unlocked",
				Message: fmt.Sprintf("You earned the %s badge.", badge.Name),
			}); err != nil {
				s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("failed to notify badge award")
			}
		}
	}

	return nil
}

func badgeEarned(badge models.Badge, metrics repository.StudentMetrics) bool {
	if badge.Threshold <= 0 {
		return false
	}

	switch badge.Criterion {
	case models.BadgeCriterionPoints:
		return metrics.Points >= badge.Threshold
	case models.BadgeCriterionStreak:
		return metrics.LongestStreak >= badge.Threshold
	case models.BadgeCriterionSubmissions:
		return metrics.Submissions >= int64(badge.Threshold)
	case models.BadgeCriterionPerfectScore:
		return metrics.PerfectScores >= int64(badge.Threshold)
	default:
		return false
	}
}

// GradePoints converts a percentage into grade points.
func GradePoints(percentage float64) int {
	if math.IsNaN(percentage) {
		return 0
	}
	points := int(math.Round(percentage / 10))
	if points < 0 {
		return 0
	}
	if points > maxGradePoints {
		return maxGradePoints
	}
	return points
}

// nextStreak applies the calendar day streak rules: activity on the same day
// keeps the streak, the next day extends it and any gap restarts it at 1.
func nextStreak(current, longest int, lastActive *time.Time, today time.Time) (int, int) {
	switch {
	case lastActive == nil:
		current = 1
	default:
		last := truncateDay(*lastActive)
		switch {
		case last.Equal(today):
			if current == 0 {
				current = 1
			}
		case last.AddDate(0, 0, 1).Equal(today):
			current++
		default:
			current = 1
		}
	}

	if current > longest {
		longest = current
	}
	return current, longest
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
