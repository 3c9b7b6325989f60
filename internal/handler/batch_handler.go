package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/middleware"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/invigilo/invigilo-backend/internal/response"
	"github.com/invigilo/invigilo-backend/internal/service"
)

// BatchHandler handles admin batch control endpoints.
type BatchHandler struct {
	batchService *service.BatchService
}

// NewBatchHandler creates a new BatchHandler.
func NewBatchHandler(batchService *service.BatchService) *BatchHandler {
	return &BatchHandler{batchService: batchService}
}

func failBatchErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrBatchNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrBatchNotFound)
	case errors.Is(err, service.ErrBatchLocked):
		response.Fail(c, http.StatusConflict, response.ErrBatchLocked)
	case errors.Is(err, service.ErrBatchFull):
		response.Fail(c, http.StatusConflict, response.ErrBatchFull)
	case errors.Is(err, service.ErrBatchNotActive):
		response.Fail(c, http.StatusConflict, response.ErrBatchNotActive)
	case errors.Is(err, service.ErrAnotherBatchActive):
		response.Fail(c, http.StatusConflict, response.ErrBatchConflict)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

func adminActor(c *gin.Context) string {
	if claims := middleware.GetClaims(c); claims != nil {
		return fmt.Sprintf("admin:%d", claims.AdminID)
	}
	return "admin:unknown"
}

// List godoc
// GET /api/v1/admin/exams/:exam_id/batches
func (h *BatchHandler) List(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	batches, err := h.batchService.ListBatches(c.Request.Context(), examID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if batches == nil {
		batches = []model.Batch{}
	}

	response.Success(c, http.StatusOK, gin.H{"batches": batches})
}

// Start godoc
// POST /api/v1/admin/batches/:batch_id/start
// Activates a batch; refused while another batch holds the exam.
func (h *BatchHandler) Start(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("batch_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	batch, err := h.batchService.Start(c.Request.Context(), batchID, adminActor(c))
	if err != nil {
		failBatchErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"batch": batch})
}

// Complete godoc
// POST /api/v1/admin/batches/:batch_id/complete
// Seals the batch permanently and frees the exam for the next one.
func (h *BatchHandler) Complete(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("batch_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	batch, err := h.batchService.Complete(c.Request.Context(), batchID, adminActor(c))
	if err != nil {
		failBatchErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"batch": batch})
}

// AddStudent godoc
// POST /api/v1/admin/batches/:batch_id/students
// Reserves one seat in the batch.
func (h *BatchHandler) AddStudent(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("batch_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	batch, err := h.batchService.AddStudent(c.Request.Context(), batchID, adminActor(c))
	if err != nil {
		failBatchErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"batch": batch})
}
