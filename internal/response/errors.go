package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrAdminOnly          ErrCode = "ADMIN_ACCESS_ONLY"
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation ErrCode = "VALIDATION_ERROR"
	ErrInvalidID  ErrCode = "INVALID_ID"

	// ─── Attempt lifecycle ─────────────────────────────────────────────
	ErrSessionNotFound  ErrCode = "SESSION_NOT_FOUND"
	ErrSessionExpired   ErrCode = "SESSION_EXPIRED"
	ErrSessionDenied    ErrCode = "SESSION_DENIED"
	ErrAlreadySubmitted ErrCode = "ALREADY_SUBMITTED"
	ErrExamWindowClosed ErrCode = "EXAM_WINDOW_CLOSED"
	ErrExamNotAvailable ErrCode = "EXAM_NOT_AVAILABLE"

	// ─── Batches ───────────────────────────────────────────────────────
	ErrBatchLocked      ErrCode = "BATCH_LOCKED"
	ErrBatchFull        ErrCode = "BATCH_FULL"
	ErrBatchNotActive   ErrCode = "BATCH_NOT_ACTIVE"
	ErrBatchConflict    ErrCode = "ANOTHER_BATCH_ACTIVE"
	ErrBatchNotFound    ErrCode = "BATCH_NOT_FOUND"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
// SESSION_DENIED is deliberately vague: revealing which binding check failed
// would help session-hijack probing.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrAdminOnly:
		return "This resource is restricted to administrators."
	case ErrInvalidCredentials:
		return "Invalid email or password."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."

	// ─── Attempt lifecycle ─────────────────────────────────────────────
	case ErrSessionNotFound:
		return "No exam attempt was found for this token."
	case ErrSessionExpired:
		return "Your exam time has ended. The attempt was submitted automatically."
	case ErrSessionDenied:
		return "This attempt could not be validated from the current device."
	case ErrAlreadySubmitted:
		return "This attempt has already been submitted."
	case ErrExamWindowClosed:
		return "This exam is not open at the moment."
	case ErrExamNotAvailable:
		return "This exam is currently not available."

	// ─── Batches ───────────────────────────────────────────────────────
	case ErrBatchLocked:
		return "This batch is locked and can no longer be changed."
	case ErrBatchFull:
		return "This batch is at capacity."
	case ErrBatchNotActive:
		return "This batch is not currently running."
	case ErrBatchConflict:
		return "Another batch is already running for this exam."
	case ErrBatchNotFound:
		return "Batch not found."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
