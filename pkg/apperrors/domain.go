package apperrors

import (
	"net/http"
)

/*
Factories and predefined variables for the ledger domain. Repositories return
their own sentinel errors; services translate them into these so handlers only
ever deal with AppError.
*/

// ErrNotFound converts a repository not-found sentinel into a 404.
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrConflict is the generic 409 factory.
func ErrConflict(err error, domain, message string) *AppError {
	return Wrap(err, CodeConflict, domain, message, http.StatusConflict)
}

// ErrInvalidOperation flags an operation not allowed in the current state.
func ErrInvalidOperation(domain, message string) *AppError {
	return New(CodeInvalidOperation, domain, message, http.StatusBadRequest)
}

// --- Payment callbacks ---

// ErrSignatureInvalid - inbound callback failed MD5 signature verification.
var ErrSignatureInvalid = New(
	CodeSignatureInvalid,
	"payment",
	"Callback signature verification failed",
	http.StatusBadRequest,
)

// ErrAmountMismatch - channel-reported amount differs from the order amount.
var ErrAmountMismatch = New(
	CodeAmountMismatch,
	"payment",
	"Payment amount does not match",
	http.StatusBadRequest,
)

// ErrGatewayUnavailable - the refund API of the payment channel failed.
var ErrGatewayUnavailable = New(
	CodeExternalServiceError,
	"payment",
	"Payment provider error",
	http.StatusServiceUnavailable,
)

// --- Licenses & refunds ---

// ErrLicenseNotFound - no license matches the supplied access code.
var ErrLicenseNotFound = New(
	CodeNotFound,
	"license",
	"Access code not found",
	http.StatusNotFound,
)

// ErrOrderNotFound - no order matches the supplied order number.
var ErrOrderNotFound = New(
	CodeNotFound,
	"order",
	"Order not found",
	http.StatusNotFound,
)

// ErrAlreadyRefunded - the license was refunded by an earlier request.
var ErrAlreadyRefunded = New(
	CodeConflict,
	"refund",
	"Access code has already been refunded",
	http.StatusConflict,
)

// ErrRefundWindowExpired - purchase is older than the configured refund window.
var ErrRefundWindowExpired = New(
	CodeWindowExpired,
	"refund",
	"Refund window has expired for this purchase",
	http.StatusConflict,
)

// ErrDuplicateLicense - more than one license row matches a unique business key.
// Reported instead of silently picking the first match.
var ErrDuplicateLicense = New(
	CodeDuplicateRecord,
	"license",
	"Duplicate license records detected for access code",
	http.StatusConflict,
)

// ErrLicenseExists - the order already has an issued license (1:1 rule).
var ErrLicenseExists = New(
	CodeAlreadyExists,
	"license",
	"Order already has an issued access code",
	http.StatusConflict,
)

// ErrExhaustedRetries - the code generator hit its collision retry bound.
var ErrExhaustedRetries = New(
	CodeExhaustedRetries,
	"license",
	"Failed to generate a unique access code",
	http.StatusInternalServerError,
)

// ErrPartialFailure wraps the cause of a half-applied refund: the license row
// was updated but the order row was not. Distinct from total failure so it can
// alert in production; the audit record for the attempt carries a partial flag.
func ErrPartialFailure(err error) *AppError {
	return Wrap(err, CodePartialFailure, "refund",
		"Refund partially applied: license updated, order update failed",
		http.StatusInternalServerError)
}

// --- Auth ---

// ErrInvalidCredentials - wrong admin login or password.
var ErrInvalidCredentials = New(
	CodeInvalidCredentials,
	"auth",
	"Invalid login or password",
	http.StatusUnauthorized,
)

// ErrInvalidToken - missing, malformed or expired JWT.
var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)
