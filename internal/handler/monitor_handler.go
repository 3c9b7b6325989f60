package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/invigilo/invigilo-backend/internal/response"
	"github.com/invigilo/invigilo-backend/internal/service"
)

// MonitorHandler serves the proctor dashboard REST endpoints. Live deltas go
// over the WebSocket stream; these endpoints cover snapshot loads and the
// admin interventions.
type MonitorHandler struct {
	monitorService    *service.MonitorService
	violationService  *service.ViolationService
	submissionService *service.SubmissionService
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(
	monitorService *service.MonitorService,
	violationService *service.ViolationService,
	submissionService *service.SubmissionService,
) *MonitorHandler {
	return &MonitorHandler{
		monitorService:    monitorService,
		violationService:  violationService,
		submissionService: submissionService,
	}
}

// GetSnapshot godoc
// GET /api/v1/admin/exams/:exam_id/monitor
// Full dashboard snapshot: active attempts, batches, violation totals.
func (h *MonitorHandler) GetSnapshot(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	snapshot, err := h.monitorService.GetExamSnapshot(c.Request.Context(), examID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, snapshot)
}

// ListViolations godoc
// GET /api/v1/admin/sessions/:session_id/violations
func (h *MonitorHandler) ListViolations(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	violations, err := h.violationService.History(c.Request.Context(), sessionID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if violations == nil {
		violations = []model.Violation{}
	}

	response.Success(c, http.StatusOK, gin.H{"violations": violations})
}

// GetAuditTrail godoc
// GET /api/v1/admin/sessions/:session_id/audit
// Paginated audit trail of an attempt, newest first.
func (h *MonitorHandler) GetAuditTrail(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "50"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}

	events, total, err := h.monitorService.AuditTrail(c.Request.Context(), sessionID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if events == nil {
		events = []model.AuditEvent{}
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"events": events}, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	})
}

// ForceSubmit godoc
// POST /api/v1/admin/sessions/:session_id/force-submit
// Administrator intervention: finalizes the attempt immediately.
func (h *MonitorHandler) ForceSubmit(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	snap, err := h.submissionService.Finalize(c.Request.Context(), sessionID, model.SubmissionTypeAdminForce, adminActor(c))
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submission": snap})
}

// GetResult godoc
// GET /api/v1/admin/sessions/:session_id/result
// Returns the immutable result snapshot of a finalized attempt.
func (h *MonitorHandler) GetResult(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	snap, err := h.submissionService.GetResult(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submission": snap})
}
