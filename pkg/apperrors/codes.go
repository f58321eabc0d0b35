package apperrors

// ErrorCode is the machine-readable error classification returned to clients.
type ErrorCode string

const (
	// System level
	CodeInternalError        ErrorCode = "INTERNAL_ERROR"
	CodeDatabaseError        ErrorCode = "DATABASE_ERROR"
	CodeExternalServiceError ErrorCode = "EXTERNAL_SERVICE_ERROR"

	// Generic business logic
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeAlreadyExists    ErrorCode = "ALREADY_EXISTS"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeConflict         ErrorCode = "CONFLICT"
	CodeInvalidStatus    ErrorCode = "INVALID_STATUS"
	CodeInvalidOperation ErrorCode = "INVALID_OPERATION"

	// Payment / ledger specific
	CodeSignatureInvalid ErrorCode = "SIGNATURE_INVALID"
	CodeAmountMismatch   ErrorCode = "AMOUNT_MISMATCH"
	CodePartialFailure   ErrorCode = "PARTIAL_FAILURE"
	CodeExhaustedRetries ErrorCode = "EXHAUSTED_RETRIES"
	CodeDuplicateRecord  ErrorCode = "DUPLICATE_RECORD"
	CodeWindowExpired    ErrorCode = "WINDOW_EXPIRED"

	// Auth
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeForbidden          ErrorCode = "FORBIDDEN"
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	CodeInvalidToken       ErrorCode = "INVALID_TOKEN"
)
