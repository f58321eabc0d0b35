package models

import (
	"time"
)

// Order is one payment transaction reported by the payment channel.
// Amount is kept as the channel's decimal string and compared exactly;
// parsing it into a float would reintroduce the mismatch bugs this service
// exists to prevent.
type Order struct {
	BaseModel

	OrderNo       string      `gorm:"size:64;uniqueIndex;not null" json:"order_no"`
	TransactionID string      `gorm:"size:64" json:"transaction_id"`
	Amount        string      `gorm:"size:16;not null" json:"amount"`
	Status        OrderStatus `gorm:"size:16;not null;default:'pending'" json:"status"`
	BuyerEmail    string      `gorm:"size:128" json:"buyer_email,omitempty"`
	PaidAt        *time.Time  `json:"paid_at,omitempty"`

	// Refund metadata, present iff RefundStatus = refunded. Mutated only by
	// the reconciliation service.
	RefundStatus RefundStatus `gorm:"size:16;not null;default:'none'" json:"refund_status"`
	RefundAmount string       `gorm:"size:16" json:"refund_amount,omitempty"`
	RefundNo     string       `gorm:"size:64" json:"refund_no,omitempty"`
	RefundedAt   *time.Time   `json:"refunded_at,omitempty"`
}

func (Order) TableName() string { return "orders" }
