package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Exam-specific ─────────────────────────────────────────────────
	ErrSessionClosed          ErrCode = "SESSION_CLOSED"
	ErrSessionNotCompleted    ErrCode = "SESSION_NOT_COMPLETED"
	ErrQuestionNotInSession   ErrCode = "QUESTION_NOT_IN_SESSION"
	ErrInsufficientPool       ErrCode = "INSUFFICIENT_QUESTION_POOL"
	ErrCertificateUnavailable ErrCode = "CERTIFICATE_NOT_AVAILABLE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid identifier format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Exam-specific ─────────────────────────────────────────────────
	case ErrSessionClosed:
		return "This exam session is already completed."
	case ErrSessionNotCompleted:
		return "This exam session is still in progress."
	case ErrQuestionNotInSession:
		return "The question does not belong to this exam session."
	case ErrInsufficientPool:
		return "Not enough active questions to assemble an exam."
	case ErrCertificateUnavailable:
		return "Certificate is not available for this session."

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
