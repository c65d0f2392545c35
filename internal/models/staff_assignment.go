package models

import "time"

// AssignmentType describes the role of a staff member on a subject.
type AssignmentType string

const (
	AssignmentPrimary   AssignmentType = "primary"
	AssignmentSecondary AssignmentType = "secondary"
	AssignmentAssistant AssignmentType = "assistant"
)

// StaffAssignment links a staff member to a subject within a batch.
// Unique per (staff, subject, batch); only active rows feed the allocator.
type StaffAssignment struct {
	ID             string         `db:"id" json:"id"`
	StaffID        string         `db:"staff_id" json:"staff_id"`
	SubjectID      string         `db:"subject_id" json:"subject_id"`
	BatchID        string         `db:"batch_id" json:"batch_id"`
	AssignmentType AssignmentType `db:"assignment_type" json:"assignment_type"`
	Active         bool           `db:"active" json:"active"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// StaffAssignmentDetail enriches assignments with descriptive fields.
type StaffAssignmentDetail struct {
	StaffAssignment
	StaffName   string `db:"staff_name" json:"staff_name"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	BatchName   string `db:"batch_name" json:"batch_name"`
}
