package models

import "time"

// Class groups students under a teacher.
type Class struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:128;not null" json:"name"`
	GradeLevel  int       `gorm:"not null" json:"grade_level"`
	Section     string    `gorm:"size:16" json:"section"`
	Description string    `gorm:"type:text" json:"description"`
	TeacherID   uint      `gorm:"index;not null" json:"teacher_id"`
	JoinCode    *string   `gorm:"size:32;uniqueIndex" json:"join_code"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Students    []Student `json:"-"`
}
