package models

// ConflictType classifies scheduling conflicts and failures.
type ConflictType string

const (
	ConflictTimeOverlap      ConflictType = "TIME_OVERLAP"
	ConflictStaff            ConflictType = "STAFF_CONFLICT"
	ConflictRoom             ConflictType = "ROOM_CONFLICT"
	ConflictNoStaff          ConflictType = "NO_STAFF"
	ConflictSchedulingFailed ConflictType = "SCHEDULING_FAILED"
	ConflictComponentFailed  ConflictType = "COMPONENT_SCHEDULING_FAILED"
)

// Conflict is a transient record produced by the detector or the allocator.
// It is surfaced to callers and consumed by the resolver, never persisted.
type Conflict struct {
	Type      ConflictType `json:"type"`
	Message   string       `json:"message"`
	SlotID    string       `json:"slot_id,omitempty"`
	OtherID   string       `json:"other_id,omitempty"`
	BatchID   string       `json:"batch_id,omitempty"`
	SubjectID string       `json:"subject_id,omitempty"`
	Component string       `json:"component,omitempty"`
	StaffID   string       `json:"staff_id,omitempty"`
	RoomID    string       `json:"room_id,omitempty"`
	DayOfWeek string       `json:"day_of_week,omitempty"`
	TimeRange string       `json:"time_range,omitempty"`
}
