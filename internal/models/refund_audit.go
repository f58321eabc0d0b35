package models

// RefundAudit is an append-only record of one refund or reset attempt,
// including failed attempts. Never updated or deleted; divergence between
// orders and licenses is reconstructed from this trail.
type RefundAudit struct {
	BaseModel

	Code      string       `gorm:"size:16;index;not null" json:"code"`
	OrderNo   string       `gorm:"size:64;index;not null" json:"order_no"`
	Amount    string       `gorm:"size:16" json:"amount"`
	Reason    string       `gorm:"type:text" json:"reason"`
	RequestID string       `gorm:"size:64" json:"request_id"`
	Operation string       `gorm:"size:16;not null" json:"operation"` // refund | reset
	Outcome   AuditOutcome `gorm:"size:16;not null" json:"outcome"`
	RefundNo  string       `gorm:"size:64" json:"refund_no,omitempty"`
	Detail    string       `gorm:"type:text" json:"detail,omitempty"`
}

func (RefundAudit) TableName() string { return "refund_audits" }
