package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/timetable-api/internal/service"
	"github.com/campuskit/timetable-api/pkg/response"
)

// AnalyticsHandler exposes the admin dashboard endpoints.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
	audits    *service.AuditService
}

// NewAnalyticsHandler constructs AnalyticsHandler.
func NewAnalyticsHandler(analytics *service.AnalyticsService, audits *service.AuditService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, audits: audits}
}

// Dashboard godoc
// @Summary Admin analytics dashboard
// @Description Entity counts, conflict statistics across active batches, and recent activity
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/dashboard [get]
func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.analytics.Dashboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard, nil)
}

// AuditTrail godoc
// @Summary Recent audit log entries
// @Tags Analytics
// @Produce json
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Router /analytics/audit [get]
func (h *AnalyticsHandler) AuditTrail(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	entries, err := h.audits.Recent(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
