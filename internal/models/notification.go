package models

import "time"

// Notification types.
const (
	NotificationTypeAssignmentPublished = "assignment.published"
	NotificationTypeSubmissionGraded    = "submission.graded"
	NotificationTypeBadgeAwarded        = "badge.awarded"
	NotificationTypeCredentialsIssued   = "credentials.issued"
)

// Notification is an in-app message delivered to a single account.
type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	Type      string     `gorm:"size:64;not null" json:"type"`
	Title     string     `gorm:"size:255" json:"title"`
	Message   string     `gorm:"type:text" json:"message"`
	Read      bool       `gorm:"not null;default:false" json:"read"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
