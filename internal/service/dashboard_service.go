package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ecolearn/ecolearn-api/internal/dto"
	"github.com/ecolearn/ecolearn-api/internal/grading"
	"github.com/ecolearn/ecolearn-api/internal/models"
	"github.com/ecolearn/ecolearn-api/internal/observability"
	"github.com/ecolearn/ecolearn-api/internal/repository"
)

const (
	recentSubmissionLimit = 5
	awaitingGradingLimit  = 10
)

// DashboardInvalidator drops cached dashboards after their inputs change.
type DashboardInvalidator interface {
	Invalidate(ctx context.Context, studentID uint)
}

// DashboardService produces aggregated dashboards for students and staff.
type DashboardService interface {
	DashboardInvalidator
	Student(ctx context.Context, actor Actor) (dto.StudentDashboardResponse, error)
	Teacher(ctx context.Context, actor Actor) (dto.TeacherDashboardResponse, error)
}

type dashboardService struct {
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	students    repository.StudentRepository
	classes     repository.ClassRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewDashboardService builds the dashboard aggregator. cache may be nil.
func NewDashboardService(assignments repository.AssignmentRepository, submissions repository.SubmissionRepository, students repository.StudentRepository, classes repository.ClassRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) DashboardService {
	return &dashboardService{
		assignments: assignments,
		submissions: submissions,
		students:    students,
		classes:     classes,
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "dashboard_service").Logger(),
		now:         time.Now,
	}
}

func dashboardCacheKey(studentID uint) string {
	return fmt.Sprintf("dashboard:student:%d", studentID)
}

func (s *dashboardService) Student(ctx context.Context, actor Actor) (dto.StudentDashboardResponse, error) {
	if !actor.IsStudent() || actor.StudentID == nil {
		return dto.StudentDashboardResponse{}, ErrStudentAccountNeeded
	}
	studentID := *actor.StudentID
	cacheKey := dashboardCacheKey(studentID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.StudentDashboardResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				observability.DashboardCache().WithLabelValues("hit").Inc()
				s.logger.Debug().Uint("student_id", studentID).Msg("dashboard cache hit")
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
		}
		observability.DashboardCache().WithLabelValues("miss").Inc()
	}

	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StudentDashboardResponse{}, ErrStudentNotFound
		}
		return dto.StudentDashboardResponse{}, err
	}

	classIDs := []uint{}
	if student.ClassID != nil {
		classIDs = append(classIDs, *student.ClassID)
	}

	assignments, _, err := s.assignments.List(ctx, repository.AssignmentFilter{
		ClassIDs:          classIDs,
		IncludeUnassigned: true,
		Status:            models.AssignmentStatusPublished,
	})
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{StudentID: &studentID})
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	response := s.buildStudentResponse(student, assignments, submissions)

	if s.cache != nil && s.cacheTTL > 0 {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
			}
		}
	}

	return response, nil
}

func (s *dashboardService) Invalidate(ctx context.Context, studentID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, dashboardCacheKey(studentID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("failed to invalidate dashboard cache")
	}
}

func (s *dashboardService) buildStudentResponse(student models.Student, assignments []models.Assignment, submissions []models.Submission) dto.StudentDashboardResponse {
	now := s.now()
	submissionByAssignment := map[uint]models.Submission{}
	for _, submission := range submissions {
		if _, exists := submissionByAssignment[submission.AssignmentID]; !exists {
			submissionByAssignment[submission.AssignmentID] = submission
		}
	}

	summary := dto.ProgressSummary{}
	pending := make([]dto.AssignmentProgress, 0)
	var percentageTotal float64
	var gradedCount int

	for _, assignment := range assignments {
		summary.TotalAssignments++
		submission, submitted := submissionByAssignment[assignment.ID]
		pastDue := assignment.IsPastDue(now)
		maxPoints := assignment.EffectiveMaxPoints()

		item := dto.AssignmentProgress{
			AssignmentID: assignment.ID,
			Title:        assignment.Title,
			DueDate:      assignment.DueDate,
			FileURL:      assignment.FileURL,
			Status:       "pending",
			MaxPoints:    maxPoints,
			UpdatedAt:    assignment.UpdatedAt,
		}

		if submitted {
			submissionID := submission.ID
			item.SubmissionID = &submissionID
			item.SubmissionURL = submission.FileURL
			item.Feedback = submission.Feedback
			item.Late = submission.Late
			item.UpdatedAt = submission.UpdatedAt
			summary.Submitted++

			if submission.IsGraded() {
				item.Status = models.SubmissionStatusGraded
				item.Score = submission.Score
				item.LetterGrade = submission.LetterGrade
				summary.Graded++
				if submission.Score != nil {
					if pct, ok := grading.Percentage(*submission.Score, maxPoints); ok {
						percentageTotal += pct
						gradedCount++
					}
				}
				continue
			}
			item.Status = models.SubmissionStatusSubmitted
		} else {
			summary.Pending++
			if pastDue {
				summary.Overdue++
				item.Overdue = true
			}
		}

		pending = append(pending, item)
	}

	if gradedCount > 0 {
		average := percentageTotal / float64(gradedCount)
		summary.AveragePercentage = math.Round(average*100) / 100
		summary.AverageLetter = grading.PercentageToGrade(average).String()
	}

	if summary.TotalAssignments > 0 {
		rate := float64(summary.Submitted) / float64(summary.TotalAssignments) * 100
		summary.CompletionRate = math.Round(rate*100) / 100
	}

	return dto.StudentDashboardResponse{
		Summary:           summary,
		Pending:           pending,
		RecentSubmissions: submissionActivities(submissions, recentSubmissionLimit),
		Progress: dto.DashboardProgress{
			Points:        student.Points,
			CurrentStreak: student.CurrentStreak,
			LongestStreak: student.LongestStreak,
		},
	}
}

func (s *dashboardService) Teacher(ctx context.Context, actor Actor) (dto.TeacherDashboardResponse, error) {
	if !actor.IsStaff() {
		return dto.TeacherDashboardResponse{}, ErrForbidden
	}

	classFilter := repository.ClassFilter{}
	assignmentFilter := repository.AssignmentFilter{}
	if !actor.IsAdmin() {
		teacherID := actor.ID
		classFilter.TeacherID = &teacherID
		assignmentFilter.TeacherID = &teacherID
	}

	classes, err := s.classes.List(ctx, classFilter)
	if err != nil {
		return dto.TeacherDashboardResponse{}, err
	}

	var classIDs []uint
	if !actor.IsAdmin() {
		classIDs = make([]uint, 0, len(classes))
		for _, class := range classes {
			classIDs = append(classIDs, class.ID)
		}
	}

	students, err := s.students.Count(ctx, classIDs)
	if err != nil {
		return dto.TeacherDashboardResponse{}, err
	}

	assignments, total, err := s.assignments.List(ctx, assignmentFilter)
	if err != nil {
		return dto.TeacherDashboardResponse{}, err
	}

	var assignmentIDs []uint
	if !actor.IsAdmin() {
		assignmentIDs = make([]uint, 0, len(assignments))
	}
	var published int64
	for _, assignment := range assignments {
		if assignment.IsPublished() {
			published++
		}
		if assignmentIDs != nil {
			assignmentIDs = append(assignmentIDs, assignment.ID)
		}
	}

	pendingGrading, err := s.submissions.CountByStatus(ctx, assignmentIDs, models.SubmissionStatusSubmitted)
	if err != nil {
		return dto.TeacherDashboardResponse{}, err
	}

	counts, err := s.submissions.GradeDistribution(ctx, assignmentIDs)
	if err != nil {
		return dto.TeacherDashboardResponse{}, err
	}

	distribution := make(map[string]int64, len(grading.Ladder)+1)
	for _, grade := range grading.Grades() {
		distribution[grade.String()] = 0
	}
	for _, count := range counts {
		if count.LetterGrade == "" {
			continue
		}
		distribution[count.LetterGrade] += count.Total
	}

	status := models.SubmissionStatusSubmitted
	awaiting, err := s.submissions.List(ctx, repository.SubmissionFilter{
		AssignmentIDs: assignmentIDs,
		Status:        &status,
		Limit:         awaitingGradingLimit,
	})
	if err != nil {
		return dto.TeacherDashboardResponse{}, err
	}

	return dto.TeacherDashboardResponse{
		Classes:              len(classes),
		Students:             students,
		Assignments:          total,
		PublishedAssignments: published,
		PendingGrading:       pendingGrading,
		GradeDistribution:    distribution,
		AwaitingGrading:      submissionActivities(awaiting, awaitingGradingLimit),
	}, nil
}

func submissionActivities(submissions []models.Submission, limit int) []dto.SubmissionActivity {
	size := len(submissions)
	if size > limit {
		size = limit
	}

	activities := make([]dto.SubmissionActivity, 0, size)
	for _, submission := range submissions[:size] {
		activities = append(activities, dto.SubmissionActivity{
			SubmissionID:   submission.ID,
			AssignmentID:   submission.AssignmentID,
			AssignmentName: submission.Assignment.Title,
			StudentID:      submission.StudentID,
			StudentName:    submission.Student.Name,
			Status:         submission.Status,
			Score:          submission.Score,
			LetterGrade:    submission.LetterGrade,
			Feedback:       submission.Feedback,
			CreatedAt:      submission.CreatedAt,
			UpdatedAt:      submission.UpdatedAt,
		})
	}
	return activities
}
