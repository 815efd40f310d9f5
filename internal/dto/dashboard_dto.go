package dto

import "time"

// StudentDashboardResponse aggregates assignment progress for a student.
type StudentDashboardResponse struct {
	Summary           ProgressSummary      `json:"summary"`
	Pending           []AssignmentProgress `json:"pending_assignments"`
	RecentSubmissions []SubmissionActivity `json:"recent_submissions"`
	Progress          DashboardProgress    `json:"progress"`
}

// ProgressSummary captures aggregated statistics for the dashboard.
type ProgressSummary struct {
	TotalAssignments  int     `json:"total_assignments"`
	Submitted         int     `json:"submitted"`
	Graded            int     `json:"graded"`
	Pending           int     `json:"pending"`
	Overdue           int     `json:"overdue"`
	AveragePercentage float64 `json:"average_percentage"`
	AverageLetter     string  `json:"average_letter"`
	CompletionRate    float64 `json:"completion_rate"`
}

// DashboardProgress is the gamification strip shown on the dashboard.
type DashboardProgress struct {
	Points        int `json:"points"`
	CurrentStreak int `json:"current_streak"`
	LongestStreak int `json:"longest_streak"`
}

// AssignmentProgress describes the state of a single assignment relative to a student.
type AssignmentProgress struct {
	AssignmentID  uint      `json:"assignment_id"`
	Title         string    `json:"title"`
	DueDate       time.Time `json:"due_date"`
	FileURL       string    `json:"file_url"`
	Status        string    `json:"status"`
	SubmissionID  *uint     `json:"submission_id"`
	SubmissionURL string    `json:"submission_url"`
	Score         *float64  `json:"score"`
	MaxPoints     float64   `json:"max_points"`
	LetterGrade   string    `json:"letter_grade,omitempty"`
	Feedback      string    `json:"feedback"`
	Late          bool      `json:"late"`
	UpdatedAt     time.Time `json:"updated_at"`
	Overdue       bool      `json:"overdue"`
}

// SubmissionActivity details recent submission events.
type SubmissionActivity struct {
	SubmissionID   uint      `json:"submission_id"`
	AssignmentID   uint      `json:"assignment_id"`
	AssignmentName string    `json:"assignment_name"`
	StudentID      uint      `json:"student_id,omitempty"`
	StudentName    string    `json:"student_name,omitempty"`
	Status         string    `json:"status"`
	Score          *float64  `json:"score"`
	LetterGrade    string    `json:"letter_grade,omitempty"`
	Feedback       string    `json:"feedback"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TeacherDashboardResponse aggregates class level metrics for staff.
type TeacherDashboardResponse struct {
	Classes              int                  `json:"classes"`
	Students             int64                `json:"students"`
	Assignments          int64                `json:"assignments"`
	PublishedAssignments int64                `json:"published_assignments"`
	PendingGrading       int64                `json:"pending_grading"`
	GradeDistribution    map[string]int64     `json:"grade_distribution"`
	AwaitingGrading      []SubmissionActivity `json:"awaiting_grading"`
}
