package models

// OrderStatus is set once, on a successfully verified payment callback.
type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
	OrderStatusPaid    OrderStatus = "paid"
)

// RefundStatus on the order side. Reset writes "none" rather than removing the
// field, so the cleared state is explicit and queryable.
type RefundStatus string

const (
	RefundStatusNone     RefundStatus = "none"
	RefundStatusRefunded RefundStatus = "refunded"
)

// LicenseStatus mirrors the linked order's refund state.
type LicenseStatus string

const (
	LicenseStatusActive   LicenseStatus = "active"
	LicenseStatusRefunded LicenseStatus = "refunded"
)

// AuditOutcome classifies one refund or reset attempt in the audit trail.
type AuditOutcome string

const (
	AuditOutcomeSuccess  AuditOutcome = "success"
	AuditOutcomeConflict AuditOutcome = "conflict"
	AuditOutcomePartial  AuditOutcome = "partial"
	AuditOutcomeFailed   AuditOutcome = "failed"
)
