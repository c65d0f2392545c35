package dto

import "github.com/campuskit/timetable-api/internal/models"

// GenerateTimetableRequest asks the engine to build a batch timetable.
type GenerateTimetableRequest struct {
	BatchID         string `json:"batchId" validate:"required"`
	ForceRegenerate bool   `json:"forceRegenerate"`
}

// GenerationResult is the structured outcome of one generation run.
// Business-rule failures (no subjects, timetable exists) arrive here with
// Success=false rather than as transport errors.
type GenerationResult struct {
	Success    bool                   `json:"success"`
	Message    string                 `json:"message"`
	Slots      []models.TimetableSlot `json:"slots,omitempty"`
	TotalSlots int                    `json:"total_slots"`
	Conflicts  []models.Conflict      `json:"conflicts,omitempty"`
}

// BatchGenerationOutcome pairs a batch with its generation result.
type BatchGenerationOutcome struct {
	BatchID   string           `json:"batch_id"`
	BatchName string           `json:"batch_name"`
	Result    GenerationResult `json:"result"`
}

// GenerateAllResult aggregates a sequential multi-batch generation run.
type GenerateAllResult struct {
	Message string                   `json:"message"`
	Results []BatchGenerationOutcome `json:"results"`
}

// ConflictReport lists conflicts detected for a batch.
type ConflictReport struct {
	BatchID        string            `json:"batch_id"`
	Conflicts      []models.Conflict `json:"conflicts"`
	TotalConflicts int               `json:"total_conflicts"`
	Message        string            `json:"message,omitempty"`
}

// ResolveConflictsRequest triggers detection and optional auto-repair.
type ResolveConflictsRequest struct {
	BatchID     string `json:"batchId" validate:"required"`
	AutoResolve bool   `json:"autoResolve"`
}

// ResolutionResult summarises an auto-resolution pass.
type ResolutionResult struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ResolvedCount  int    `json:"resolved_count"`
	TotalConflicts int    `json:"total_conflicts"`
}
