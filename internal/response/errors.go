package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden             ErrCode = "FORBIDDEN"
	ErrParticipantAccessOnly ErrCode = "PARTICIPANT_ACCESS_ONLY"
	ErrAdminAccessOnly       ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrConflict        ErrCode = "CONFLICT"
	ErrActionForbidden ErrCode = "ACTION_FORBIDDEN"

	// ─── Challenge/Session-specific ────────────────────────────────────
	ErrChallengeNotAvailable ErrCode = "CHALLENGE_NOT_AVAILABLE"
	ErrInvalidEntryToken     ErrCode = "INVALID_ENTRY_TOKEN"
	ErrChallengeNotPublished ErrCode = "CHALLENGE_NOT_PUBLISHED"
	ErrNotChallengeAuthor    ErrCode = "NOT_CHALLENGE_AUTHOR"
	ErrNoQuestions           ErrCode = "NO_QUESTIONS"
	ErrNoProblem             ErrCode = "NO_CODING_PROBLEM"
	ErrChallengeNotDraft     ErrCode = "CHALLENGE_NOT_DRAFT"
	ErrSessionTerminated     ErrCode = "SESSION_TERMINATED"
	ErrEventEnded            ErrCode = "EVENT_ENDED"

	// ─── Execution ─────────────────────────────────────────────────────
	ErrExecutionFailed ErrCode = "EXECUTION_FAILED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrSessionActive:
		return "You are already logged in on another device."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrParticipantAccessOnly:
		return "This resource is restricted to participants."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "The ID format is invalid."
	case ErrInvalidPayload:
		return "The request payload is invalid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "The resource already exists."
	case ErrActionForbidden:
		return "This action is not allowed."

	// ─── Challenge/Session-specific ────────────────────────────────────
	case ErrChallengeNotAvailable:
		return "This challenge is not currently available."
	case ErrInvalidEntryToken:
		return "The challenge entry token is invalid."
	case ErrChallengeNotPublished:
		return "This challenge has not been published."
	case ErrNotChallengeAuthor:
		return "You are not the author of this challenge."
	case ErrNoQuestions:
		return "This challenge has no questions."
	case ErrNoProblem:
		return "This challenge has no coding problem."
	case ErrChallengeNotDraft:
		return "This challenge is not in DRAFT status."
	case ErrSessionTerminated:
		return "This session has already ended."
	case ErrEventEnded:
		return "This event has ended."

	// ─── Execution ─────────────────────────────────────────────────────
	case ErrExecutionFailed:
		return "The code execution service could not evaluate the submission."

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
