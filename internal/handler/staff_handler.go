package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/timetable-api/internal/dto"
	"github.com/campuskit/timetable-api/internal/service"
	appErrors "github.com/campuskit/timetable-api/pkg/errors"
	"github.com/campuskit/timetable-api/pkg/response"
)

// StaffHandler exposes staff assignment, availability, and schedule endpoints.
type StaffHandler struct {
	staff *service.StaffService
}

// NewStaffHandler constructs StaffHandler.
func NewStaffHandler(staff *service.StaffService) *StaffHandler {
	return &StaffHandler{staff: staff}
}

// Assign godoc
// @Summary Assign staff to batch subjects
// @Description Replaces the staff assignments of a batch in one transaction
// @Tags Staff
// @Accept json
// @Produce json
// @Param payload body dto.AssignStaffRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /staff/assign [post]
func (h *StaffHandler) Assign(c *gin.Context) {
	var req dto.AssignStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}

	if err := h.staff.AssignStaff(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": "staff assignments updated"}, nil)
}

// SetAvailability godoc
// @Summary Set staff availability windows
// @Description Replaces a staff member's weekly availability declaration
// @Tags Staff
// @Accept json
// @Produce json
// @Param payload body dto.SetAvailabilityRequest true "Availability payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /staff/availability [post]
func (h *StaffHandler) SetAvailability(c *gin.Context) {
	var req dto.SetAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability payload"))
		return
	}

	if err := h.staff.SetAvailability(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": "availability updated"}, nil)
}

// Schedule godoc
// @Summary Get consolidated staff schedule
// @Description Returns assignments, availability, teaching slots, and weekly workload
// @Tags Staff
// @Produce json
// @Param id path string true "Staff user ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /staff/{id}/schedule [get]
func (h *StaffHandler) Schedule(c *gin.Context) {
	schedule, err := h.staff.Schedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}
