package models

import "time"

// ComponentType enumerates the teaching activities a subject decomposes into.
type ComponentType string

const (
	ComponentLecture  ComponentType = "lecture"
	ComponentTutorial ComponentType = "tutorial"
	ComponentLab      ComponentType = "lab"
)

// ComponentPrecedence orders components by scheduling priority.
var ComponentPrecedence = []ComponentType{ComponentLecture, ComponentTutorial, ComponentLab}

// Subject represents an academic subject owned by a batch. Component
// durations are minutes in [60, 120]; zero means the component is not taught.
type Subject struct {
	ID               string    `db:"id" json:"id"`
	BatchID          string    `db:"batch_id" json:"batch_id"`
	Code             string    `db:"code" json:"code"`
	Name             string    `db:"name" json:"name"`
	Credits          int       `db:"credits" json:"credits"`
	LectureDuration  int       `db:"lecture_duration" json:"lecture_duration"`
	TutorialDuration int       `db:"tutorial_duration" json:"tutorial_duration"`
	LabDuration      int       `db:"lab_duration" json:"lab_duration"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// ComponentDuration returns the configured duration for the component type.
func (s Subject) ComponentDuration(component ComponentType) int {
	switch component {
	case ComponentLecture:
		return s.LectureDuration
	case ComponentTutorial:
		return s.TutorialDuration
	case ComponentLab:
		return s.LabDuration
	default:
		return 0
	}
}

// TotalHours sums all component durations in hours.
func (s Subject) TotalHours() float64 {
	return float64(s.LectureDuration+s.TutorialDuration+s.LabDuration) / 60
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	BatchID   string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
