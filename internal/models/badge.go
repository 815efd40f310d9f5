package models

import "time"

// Badge criteria.
const (
	BadgeCriterionPoints       = "points"
	BadgeCriterionStreak       = "streak"
	BadgeCriterionSubmissions  = "submissions"
	BadgeCriterionPerfectScore = "perfect_score"
)

// Badge is an achievement students unlock once a metric reaches the threshold.
type Badge struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:128;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Icon        string    `gorm:"size:64" json:"icon"`
	Criterion   string    `gorm:"size:32;not null" json:"criterion"`
	Threshold   int       `gorm:"not null" json:"threshold"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StudentBadge records a badge awarded to a student.
type StudentBadge struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StudentID uint      `gorm:"uniqueIndex:idx_student_badge;not null" json:"student_id"`
	BadgeID   uint      `gorm:"uniqueIndex:idx_student_badge;not null" json:"badge_id"`
	AwardedAt time.Time `gorm:"not null" json:"awarded_at"`
	Badge     Badge     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"badge"`
}

// PointLedgerEntry is an append-only record of points granted to a student.
type PointLedgerEntry struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	StudentID    uint      `gorm:"index;not null" json:"student_id"`
	SubmissionID *uint     `gorm:"index" json:"submission_id"`
	Points       int       `gorm:"not null" json:"points"`
	Reason       string    `gorm:"size:64;not null" json:"reason"`
	CreatedAt    time.Time `json:"created_at"`
}

// Point ledger reasons.
const (
	PointReasonSubmitted = "submission.on_time"
	PointReasonLate      = "submission.late"
	PointReasonGraded    = "submission.graded"
)
