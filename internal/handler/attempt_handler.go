package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/invigilo/invigilo-backend/internal/response"
	"github.com/invigilo/invigilo-backend/internal/service"
	"github.com/invigilo/invigilo-backend/internal/validator"
)

// HeaderAttemptToken carries the opaque attempt token on every attempt call.
const HeaderAttemptToken = "X-Attempt-Token"

// AttemptHandler handles the student-facing attempt endpoints. The attempt
// token is the sole capability: there is no student login in front of these.
type AttemptHandler struct {
	sessionService    *service.SessionService
	answerService     *service.AnswerService
	violationService  *service.ViolationService
	submissionService *service.SubmissionService
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(
	sessionService *service.SessionService,
	answerService *service.AnswerService,
	violationService *service.ViolationService,
	submissionService *service.SubmissionService,
) *AttemptHandler {
	return &AttemptHandler{
		sessionService:    sessionService,
		answerService:     answerService,
		violationService:  violationService,
		submissionService: submissionService,
	}
}

// failAttemptErr maps attempt service errors to response codes.
func failAttemptErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
	case errors.Is(err, service.ErrSessionExpired):
		response.Fail(c, http.StatusGone, response.ErrSessionExpired)
	case errors.Is(err, service.ErrSessionDenied):
		response.Fail(c, http.StatusForbidden, response.ErrSessionDenied)
	case errors.Is(err, service.ErrAlreadySubmitted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
	case errors.Is(err, service.ErrExamNotAvailable):
		response.Fail(c, http.StatusNotFound, response.ErrExamNotAvailable)
	case errors.Is(err, service.ErrExamWindowClosed):
		response.Fail(c, http.StatusForbidden, response.ErrExamWindowClosed)
	case errors.Is(err, service.ErrBatchNotActive):
		response.Fail(c, http.StatusForbidden, response.ErrBatchNotActive)
	case errors.Is(err, service.ErrBatchLocked):
		response.Fail(c, http.StatusForbidden, response.ErrBatchLocked)
	case errors.Is(err, service.ErrBatchFull):
		response.Fail(c, http.StatusConflict, response.ErrBatchFull)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

func attemptToken(c *gin.Context) (string, bool) {
	token := c.GetHeader(HeaderAttemptToken)
	if token == "" {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return "", false
	}
	return token, true
}

// Create godoc
// POST /api/v1/attempts
// Starts a new attempt or resumes the student's live one.
func (h *AttemptHandler) Create(c *gin.Context) {
	var req model.CreateAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess, err := h.sessionService.Create(c.Request.Context(), &req, c.ClientIP())
	if err != nil {
		failAttemptErr(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"session": sess})
}

// Validate godoc
// POST /api/v1/attempts/validate
// Revalidates the token and client binding; returns the refreshed session.
func (h *AttemptHandler) Validate(c *gin.Context) {
	token, ok := attemptToken(c)
	if !ok {
		return
	}

	var req model.ValidateAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess, err := h.sessionService.Validate(c.Request.Context(), token, req.Fingerprint, c.ClientIP())
	if err != nil {
		failAttemptErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": sess})
}

// Heartbeat godoc
// POST /api/v1/attempts/heartbeat
// Re-syncs the client clock; safe to call redundantly.
func (h *AttemptHandler) Heartbeat(c *gin.Context) {
	token, ok := attemptToken(c)
	if !ok {
		return
	}

	hb, err := h.sessionService.Heartbeat(c.Request.Context(), token)
	if err != nil {
		failAttemptErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, hb)
}

// SaveAnswer godoc
// PUT /api/v1/attempts/answers/:question_id
// Autosaves one answer; idempotent per question, last write wins.
func (h *AttemptHandler) SaveAnswer(c *gin.Context) {
	token, ok := attemptToken(c)
	if !ok {
		return
	}

	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess, err := h.sessionService.Resolve(c.Request.Context(), token)
	if err != nil {
		failAttemptErr(c, err)
		return
	}

	if err := h.answerService.Save(c.Request.Context(), sess, questionID, &req); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"saved":             true,
		"remaining_seconds": sess.RemainingTime(time.Now()).Seconds(),
	})
}

// ReportViolation godoc
// POST /api/v1/attempts/violations
// Records an integrity violation and returns the warn/terminate receipt.
func (h *AttemptHandler) ReportViolation(c *gin.Context) {
	token, ok := attemptToken(c)
	if !ok {
		return
	}

	var req model.ReportViolationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	receipt, err := h.violationService.Record(c.Request.Context(), token, &req, c.ClientIP())
	if err != nil {
		failAttemptErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, receipt)
}

// Submit godoc
// POST /api/v1/attempts/submit
// Finalizes the attempt and returns the immutable result snapshot.
func (h *AttemptHandler) Submit(c *gin.Context) {
	token, ok := attemptToken(c)
	if !ok {
		return
	}

	snap, err := h.sessionService.Submit(c.Request.Context(), token)
	if err != nil {
		failAttemptErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submission": snap})
}

// GetState godoc
// GET /api/v1/attempts/state
// Returns the session plus current answers so a reloaded client can resume.
func (h *AttemptHandler) GetState(c *gin.Context) {
	token, ok := attemptToken(c)
	if !ok {
		return
	}

	sess, err := h.sessionService.Resolve(c.Request.Context(), token)
	if err != nil {
		failAttemptErr(c, err)
		return
	}

	answers, err := h.answerService.State(c.Request.Context(), sess.ID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if answers == nil {
		answers = []model.Answer{}
	}

	response.Success(c, http.StatusOK, gin.H{
		"session": sess,
		"answers": answers,
	})
}

// GetResult godoc
// GET /api/v1/attempts/result
// Returns the student's own result snapshot after the attempt closed, no
// matter how it closed. 404 while the attempt is still running.
func (h *AttemptHandler) GetResult(c *gin.Context) {
	token, ok := attemptToken(c)
	if !ok {
		return
	}

	sess, err := h.sessionService.Find(c.Request.Context(), token)
	if err != nil {
		failAttemptErr(c, err)
		return
	}

	snap, err := h.submissionService.GetResult(c.Request.Context(), sess.ID)
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
