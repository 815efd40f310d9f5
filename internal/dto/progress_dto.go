package dto

import (
	"time"

	"github.com/ecolearn/ecolearn-api/internal/models"
)

// BadgeCreateRequest defines a new achievement.
type BadgeCreateRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=128"`
	Description string `json:"description" validate:"omitempty,max=2000"`
	Icon        string `json:"icon" validate:"omitempty,max=64"`
	Criterion   string `json:"criterion" validate:"required,oneof=points streak submissions perfect_score"`
	Threshold   int    `json:"threshold" validate:"required,gt=0"`
}

// BadgeUpdateRequest patches an achievement.
type BadgeUpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=128"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Icon        *string `json:"icon" validate:"omitempty,max=64"`
	Criterion   *string `json:"criterion" validate:"omitempty,oneof=points streak submissions perfect_score"`
	Threshold   *int    `json:"threshold" validate:"omitempty,gt=0"`
}

// BadgeResponse serializes a badge definition.
type BadgeResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Criterion   string `json:"criterion"`
	Threshold   int    `json:"threshold"`
}

// NewBadgeResponse converts a badge model into a DTO.
func NewBadgeResponse(badge models.Badge) BadgeResponse {
	return BadgeResponse{
		ID:          badge.ID,
		Name:        badge.Name,
		Description: badge.Description,
		Icon:        badge.Icon,
		Criterion:   badge.Criterion,
		Threshold:   badge.Threshold,
	}
}

// AwardedBadgeResponse is a badge a student holds.
type AwardedBadgeResponse struct {
	BadgeResponse
	AwardedAt time.Time `json:"awarded_at"`
}

// LedgerEntryResponse is one point ledger row.
type LedgerEntryResponse struct {
	Points       int       `json:"points"`
	Reason       string    `json:"reason"`
	SubmissionID *uint     `json:"submission_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ProgressResponse summarises a student's gamification state.
type ProgressResponse struct {
	StudentID     uint                   `json:"student_id"`
	Points        int                    `json:"points"`
	CurrentStreak int                    `json:"current_streak"`
	LongestStreak int                    `json:"longest_streak"`
	LastActiveOn  *time.Time             `json:"last_active_on"`
	Badges        []AwardedBadgeResponse `json:"badges"`
	RecentLedger  []LedgerEntryResponse  `json:"recent_ledger"`
}

// NewProgressResponse assembles progress from the student, awards and ledger.
func NewProgressResponse(student models.Student, awards []models.StudentBadge, ledger []models.PointLedgerEntry) ProgressResponse {
	response := ProgressResponse{
		StudentID:     student.ID,
		Points:        student.Points,
		CurrentStreak: student.CurrentStreak,
		LongestStreak: student.LongestStreak,
		LastActiveOn:  student.LastActiveOn,
		Badges:        make([]AwardedBadgeResponse, 0, len(awards)),
		RecentLedger:  make([]LedgerEntryResponse, 0, len(ledger)),
	}
	for _, award := range awards {
		response.Badges = append(response.Badges, AwardedBadgeResponse{
			BadgeResponse: NewBadgeResponse(award.Badge),
			AwardedAt:     award.AwardedAt,
		})
	}
	for _, entry := range ledger {
		response.RecentLedger = append(response.RecentLedger, LedgerEntryResponse{
			Points:       entry.Points,
			Reason:       entry.Reason,
			SubmissionID: entry.SubmissionID,
			CreatedAt:    entry.CreatedAt,
		})
	}
	return response
}
