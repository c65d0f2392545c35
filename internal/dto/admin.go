package dto

import "github.com/campuskit/timetable-api/internal/models"

// CreateBatchRequest creates a batch, optionally with its subjects in one unit.
type CreateBatchRequest struct {
	Name         string                 `json:"name" validate:"required,max=20"`
	AcademicYear int                    `json:"academicYear" validate:"required,min=2000"`
	Semester     int                    `json:"semester" validate:"required,min=1,max=2"`
	StartDate    string                 `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate      string                 `json:"endDate" validate:"required,datetime=2006-01-02"`
	WeekdayStart string                 `json:"weekdayStart" validate:"omitempty,len=5"`
	WeekdayEnd   string                 `json:"weekdayEnd" validate:"omitempty,len=5"`
	WeekendStart string                 `json:"weekendStart" validate:"omitempty,len=5"`
	WeekendEnd   string                 `json:"weekendEnd" validate:"omitempty,len=5"`
	Subjects     []CreateSubjectRequest `json:"subjects" validate:"omitempty,dive"`
}

// CreateSubjectRequest creates one subject for a batch. Durations are minutes;
// zero disables the component, otherwise 60-120 inclusive.
type CreateSubjectRequest struct {
	Code             string `json:"code" validate:"required,max=20"`
	Name             string `json:"name" validate:"required,max=100"`
	Credits          int    `json:"credits" validate:"omitempty,min=1,max=10"`
	LectureDuration  int    `json:"lectureDuration" validate:"omitempty,min=60,max=120"`
	TutorialDuration int    `json:"tutorialDuration" validate:"omitempty,min=60,max=120"`
	LabDuration      int    `json:"labDuration" validate:"omitempty,min=60,max=120"`
}

// CreateBatchResponse returns the created batch with its subjects.
type CreateBatchResponse struct {
	Message  string           `json:"message"`
	Batch    *models.Batch    `json:"batch"`
	Subjects []models.Subject `json:"subjects"`
}

// AssignStaffRequest replaces the staff assignments of a batch.
type AssignStaffRequest struct {
	BatchID     string                   `json:"batchId" validate:"required"`
	Assignments []StaffAssignmentRequest `json:"assignments" validate:"required,min=1,dive"`
}

// StaffAssignmentRequest is one staff-subject link inside AssignStaffRequest.
type StaffAssignmentRequest struct {
	StaffID        string `json:"staffId" validate:"required"`
	SubjectID      string `json:"subjectId" validate:"required"`
	AssignmentType string `json:"assignmentType" validate:"omitempty,oneof=primary secondary assistant"`
}

// SetAvailabilityRequest replaces a staff member's weekly availability.
type SetAvailabilityRequest struct {
	StaffID string               `json:"staffId" validate:"required"`
	Windows []AvailabilityWindow `json:"availability" validate:"required,dive"`
}

// AvailabilityWindow is one declared free window per weekday.
type AvailabilityWindow struct {
	DayOfWeek string `json:"dayOfWeek" validate:"required,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	StartTime string `json:"startTime" validate:"required,len=5"`
	EndTime   string `json:"endTime" validate:"required,len=5"`
}

// CreateRoomRequest creates a bookable room.
type CreateRoomRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	RoomType string `json:"roomType" validate:"omitempty,oneof=classroom lab auditorium seminar"`
	Capacity int    `json:"capacity" validate:"required,min=1"`
	Building string `json:"building" validate:"omitempty,max=100"`
}

// StaffScheduleResponse is the consolidated scheduling view for one staff member.
type StaffScheduleResponse struct {
	StaffID          string                         `json:"staff_id"`
	Assignments      []models.StaffAssignmentDetail `json:"assignments"`
	Availability     []models.Availability          `json:"availability"`
	TeachingSchedule []models.TimetableSlotDetail   `json:"teaching_schedule"`
	Workload         StaffWorkload                  `json:"workload"`
}
