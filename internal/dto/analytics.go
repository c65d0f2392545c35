package dto

import "github.com/campuskit/timetable-api/internal/models"

// AnalyticsOverview holds system-wide entity counts.
type AnalyticsOverview struct {
	TotalBatches    int `json:"total_batches"`
	TotalSubjects   int `json:"total_subjects"`
	TotalStaff      int `json:"total_staff"`
	TotalStudents   int `json:"total_students"`
	TotalTimetables int `json:"total_timetables"`
	TotalRooms      int `json:"total_rooms"`
}

// BatchSlotCount is one batch's scheduled slot total.
type BatchSlotCount struct {
	BatchID   string `db:"batch_id" json:"batch_id"`
	BatchName string `db:"batch_name" json:"batch_name"`
	SlotCount int    `db:"slot_count" json:"slot_count"`
}

// StaffUtilization aggregates one staff member's weekly teaching load.
type StaffUtilization struct {
	StaffID      string  `db:"staff_id" json:"staff_id"`
	StaffName    string  `db:"staff_name" json:"staff_name"`
	TotalClasses int     `db:"total_classes" json:"total_classes"`
	TotalHours   float64 `db:"total_hours" json:"total_hours"`
}

// ConflictStats aggregates detected conflicts across active batches.
type ConflictStats struct {
	TotalConflicts int            `json:"total_conflicts"`
	ConflictTypes  map[string]int `json:"conflict_types"`
}

// AnalyticsResponse is the admin analytics payload.
type AnalyticsResponse struct {
	Overview         AnalyticsOverview  `json:"overview"`
	BatchSlots       []BatchSlotCount   `json:"batch_slots"`
	StaffUtilization []StaffUtilization `json:"staff_utilization"`
	RecentActivities []models.AuditLog  `json:"recent_activities"`
	Conflicts        ConflictStats      `json:"conflicts"`
}
