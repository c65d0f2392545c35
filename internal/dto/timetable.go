package dto

// WeeklyEntry is a single slot inside a weekly grid view.
type WeeklyEntry struct {
	ID            string `json:"id"`
	Subject       string `json:"subject"`
	SubjectCode   string `json:"subject_code,omitempty"`
	Batch         string `json:"batch,omitempty"`
	ComponentType string `json:"component_type"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Room          string `json:"room,omitempty"`
	Staff         string `json:"staff,omitempty"`
}

// WeeklySchedule maps day-of-week to its ordered slot entries. Every day is
// present, empty days as empty lists.
type WeeklySchedule map[string][]WeeklyEntry

// BatchWeeklyResponse is the weekly grid for one batch.
type BatchWeeklyResponse struct {
	BatchID        string         `json:"batch_id"`
	WeeklySchedule WeeklySchedule `json:"weekly_schedule"`
}

// StaffWeeklyResponse is the weekly teaching grid for one staff member.
type StaffWeeklyResponse struct {
	StaffID        string         `json:"staff_id"`
	WeeklySchedule WeeklySchedule `json:"weekly_schedule"`
	Workload       StaffWorkload  `json:"workload"`
}

// StaffWorkload aggregates teaching load for a staff member.
type StaffWorkload struct {
	TotalHours   float64 `json:"total_hours"`
	TotalClasses int     `json:"total_classes"`
}
