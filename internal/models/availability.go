package models

import "time"

// Weekday enumerates scheduling days; values match the persisted strings.
const (
	Monday    = "monday"
	Tuesday   = "tuesday"
	Wednesday = "wednesday"
	Thursday  = "thursday"
	Friday    = "friday"
	Saturday  = "saturday"
	Sunday    = "sunday"
)

// WeekDays lists days in allocator iteration order, Monday first.
var WeekDays = []string{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Availability is a staff member's single declared window for one weekday.
// Unique per (staff, day_of_week). Clock values are "HH:MM".
type Availability struct {
	ID        string    `db:"id" json:"id"`
	StaffID   string    `db:"staff_id" json:"staff_id"`
	DayOfWeek string    `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	Available bool      `db:"available" json:"available"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Covers reports whether the window fully contains [start, end).
func (a Availability) Covers(start, end string) bool {
	return a.Available && a.StartTime <= start && a.EndTime >= end
}
