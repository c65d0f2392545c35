package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/timetable-api/internal/dto"
	"github.com/campuskit/timetable-api/internal/models"
	"github.com/campuskit/timetable-api/internal/service"
	appErrors "github.com/campuskit/timetable-api/pkg/errors"
	"github.com/campuskit/timetable-api/pkg/response"
)

// TimetableHandler exposes generation, conflict, view, and export endpoints.
type TimetableHandler struct {
	scheduler  *service.SchedulingService
	conflicts  *service.ConflictService
	timetables *service.TimetableService
	exports    *service.ExportService
	metrics    *service.MetricsService
}

// NewTimetableHandler constructs TimetableHandler.
func NewTimetableHandler(
	scheduler *service.SchedulingService,
	conflicts *service.ConflictService,
	timetables *service.TimetableService,
	exports *service.ExportService,
	metrics *service.MetricsService,
) *TimetableHandler {
	return &TimetableHandler{
		scheduler:  scheduler,
		conflicts:  conflicts,
		timetables: timetables,
		exports:    exports,
		metrics:    metrics,
	}
}

// Generate godoc
// @Summary Generate timetable for a batch
// @Description Builds a conflict-free timetable; set forceRegenerate to replace an existing one
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generate payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetable/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}

	start := time.Now()
	result, err := h.scheduler.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.ObserveGeneration(result.Success, result.TotalSlots, time.Since(start))
		h.metrics.RecordConflicts(countByType(result.Conflicts))
	}
	if result.Success {
		h.timetables.Invalidate(c.Request.Context(), req.BatchID)
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// GenerateAll godoc
// @Summary Generate timetables for all active batches
// @Description Runs sequential generation ordered by academic year and semester
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body map[string]bool false "Force flag"
// @Success 200 {object} response.Envelope
// @Router /timetable/generate-all [post]
func (h *TimetableHandler) GenerateAll(c *gin.Context) {
	var payload struct {
		ForceRegenerate bool `json:"forceRegenerate"`
	}
	// Body is optional; an empty request generates without force.
	_ = c.ShouldBindJSON(&payload)

	start := time.Now()
	result, err := h.scheduler.GenerateAll(c.Request.Context(), payload.ForceRegenerate)
	if err != nil {
		response.Error(c, err)
		return
	}

	for _, outcome := range result.Results {
		if h.metrics != nil {
			h.metrics.ObserveGeneration(outcome.Result.Success, outcome.Result.TotalSlots, time.Since(start))
		}
		if outcome.Result.Success {
			h.timetables.Invalidate(c.Request.Context(), outcome.BatchID)
		}
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List timetable slots
// @Tags Timetable
// @Produce json
// @Param batchId query string false "Filter by batch"
// @Param staffId query string false "Filter by staff"
// @Param roomId query string false "Filter by room"
// @Param day query string false "Filter by weekday"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /timetable [get]
func (h *TimetableHandler) List(c *gin.Context) {
	var filter models.TimetableFilter
	filter.BatchID = c.Query("batchId")
	filter.StaffID = c.Query("staffId")
	filter.RoomID = c.Query("roomId")
	filter.DayOfWeek = c.Query("day")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	slots, pagination, err := h.timetables.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, pagination)
}

// BatchWeekly godoc
// @Summary Get weekly timetable for a batch
// @Description Returns slots grouped by weekday; every weekday is present even when empty
// @Tags Timetable
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetable/batch/{id} [get]
func (h *TimetableHandler) BatchWeekly(c *gin.Context) {
	view, err := h.timetables.BatchWeekly(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// StaffWeekly godoc
// @Summary Get weekly teaching schedule for a staff member
// @Description Returns slots grouped by weekday plus weekly workload hours
// @Tags Timetable
// @Produce json
// @Param id path string true "Staff user ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetable/staff/{id} [get]
func (h *TimetableHandler) StaffWeekly(c *gin.Context) {
	view, err := h.timetables.StaffWeekly(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Conflicts godoc
// @Summary Detect conflicts for a batch
// @Description Scans the persisted batch timetable for time, staff, and room overlaps
// @Tags Timetable
// @Produce json
// @Param batchId path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetable/conflicts/{batchId} [get]
func (h *TimetableHandler) Conflicts(c *gin.Context) {
	report, err := h.conflicts.Report(c.Request.Context(), c.Param("batchId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordConflicts(countByType(report.Conflicts))
	}

	response.JSON(c, http.StatusOK, report, nil)
}

// Resolve godoc
// @Summary Auto-resolve conflicts for a batch
// @Description Shifts or rebooks conflicting slots; staff conflicts stay for manual review
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.ResolveConflictsRequest true "Resolve payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetable/conflicts/resolve [post]
func (h *TimetableHandler) Resolve(c *gin.Context) {
	var req dto.ResolveConflictsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid resolve payload"))
		return
	}

	result, err := h.conflicts.AutoResolve(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordResolved(result.ResolvedCount)
	}
	if result.ResolvedCount > 0 {
		h.timetables.Invalidate(c.Request.Context(), req.BatchID)
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// Export godoc
// @Summary Export batch timetable
// @Description Streams the timetable as CSV, PDF, or ICS
// @Tags Timetable
// @Produce octet-stream
// @Param batchId path string true "Batch ID"
// @Param format query string false "Export format (csv, pdf, ics)" default(csv)
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /timetable/export/{batchId} [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))

	file, err := h.exports.Export(c.Request.Context(), c.Param("batchId"), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Payload)
}

func countByType(conflicts []models.Conflict) map[string]int {
	counts := make(map[string]int, len(conflicts))
	for _, conflict := range conflicts {
		counts[string(conflict.Type)]++
	}
	return counts
}
