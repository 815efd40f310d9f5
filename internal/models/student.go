package models

import (
	"time"

	"gorm.io/gorm"
)

// Student status values.
const (
	StudentStatusActive   = "active"
	StudentStatusInactive = "inactive"
	StudentStatusArchived = "archived"
)

// Student represents a learner on a class roster.
type Student struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Name          string         `gorm:"size:255;not null" json:"name"`
	Email         string         `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Username      string         `gorm:"size:64;index" json:"username"`
	ClassID       *uint          `gorm:"index" json:"class_id"`
	RollNumber    string         `gorm:"size:32" json:"roll_number"`
	Status        string         `gorm:"size:16;not null;default:active" json:"status"`
	Points        int            `gorm:"not null;default:0" json:"points"`
	CurrentStreak int            `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak int            `gorm:"not null;default:0" json:"longest_streak"`
	LastActiveOn  *time.Time     `json:"last_active_on"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
	Class         *Class         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"class,omitempty"`
}
