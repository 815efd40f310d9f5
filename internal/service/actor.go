package service

import "github.com/ecolearn/ecolearn-api/internal/models"

// Actor is the authenticated account performing a request.
type Actor struct {
	ID        uint
	Role      string
	StudentID *uint
}

// IsAdmin reports whether the actor administers the whole school.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// IsStaff reports whether the actor is a teacher or an administrator.
func (a Actor) IsStaff() bool {
	return a.Role == models.RoleAdmin || a.Role == models.RoleTeacher
}

// IsStudent reports whether the actor is a student account.
func (a Actor) IsStudent() bool {
	return a.Role == models.RoleStudent
}

// canManage reports whether the actor may change a resource owned by teacherID.
func (a Actor) canManage(teacherID uint) bool {
	return a.IsAdmin() || (a.Role == models.RoleTeacher && a.ID == teacherID)
}

// activityActor converts the actor for audit entries.
func (a Actor) activityActor() ActivityActor {
	return ActivityActor{ID: a.ID, Role: a.Role}
}
