package models

import "time"

// Batch is a student cohort sharing one weekly timetable, e.g. "Y1S1".
// The four clock bounds define the allocation search window per day class.
type Batch struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	AcademicYear int       `db:"academic_year" json:"academic_year"`
	Semester     int       `db:"semester" json:"semester"`
	StartDate    time.Time `db:"start_date" json:"start_date"`
	EndDate      time.Time `db:"end_date" json:"end_date"`
	WeekdayStart string    `db:"weekday_start" json:"weekday_start"`
	WeekdayEnd   string    `db:"weekday_end" json:"weekday_end"`
	WeekendStart string    `db:"weekend_start" json:"weekend_start"`
	WeekendEnd   string    `db:"weekend_end" json:"weekend_end"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// BatchFilter captures supported filters for listing batches.
type BatchFilter struct {
	AcademicYear int
	Semester     int
	Active       *bool
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
