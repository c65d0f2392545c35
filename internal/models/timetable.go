package models

import "time"

// TimetableSlot is one scheduled 1-hour occupation of a subject component.
// Unique per (batch, day_of_week, start_time, component_type). Clock values
// are zero-padded "HH:MM" strings so lexical order matches temporal order.
type TimetableSlot struct {
	ID            string        `db:"id" json:"id"`
	BatchID       string        `db:"batch_id" json:"batch_id"`
	SubjectID     string        `db:"subject_id" json:"subject_id"`
	ComponentType ComponentType `db:"component_type" json:"component_type"`
	DayOfWeek     string        `db:"day_of_week" json:"day_of_week"`
	StartTime     string        `db:"start_time" json:"start_time"`
	EndTime       string        `db:"end_time" json:"end_time"`
	RoomID        string        `db:"room_id" json:"room_id"`
	StaffID       string        `db:"staff_id" json:"staff_id"`
	Duration      int           `db:"duration" json:"duration"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// Movable reports whether the repair step may relocate this slot.
// Lectures are anchors and never move.
func (t TimetableSlot) Movable() bool {
	return t.ComponentType == ComponentTutorial || t.ComponentType == ComponentLab
}

// TimetableSlotDetail joins descriptive fields for read endpoints and exports.
type TimetableSlotDetail struct {
	TimetableSlot
	SubjectCode string `db:"subject_code" json:"subject_code"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	BatchName   string `db:"batch_name" json:"batch_name"`
	RoomName    string `db:"room_name" json:"room_name"`
	StaffName   string `db:"staff_name" json:"staff_name"`
}

// TimetableFilter captures supported filters for listing slots.
type TimetableFilter struct {
	BatchID   string
	StaffID   string
	RoomID    string
	DayOfWeek string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
