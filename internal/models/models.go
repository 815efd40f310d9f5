package models

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Class{},
		&Student{},
		&Assignment{},
		&Submission{},
		&SubmissionGradeHistory{},
		&Badge{},
		&StudentBadge{},
		&PointLedgerEntry{},
		&ActivityLog{},
		&Notification{},
	}
}
