package models

import (
	"time"

	"gorm.io/datatypes"
)

// License is an issued access code granting a software entitlement.
// Exactly one license exists per order; the unique index on OrderNo enforces
// the cardinality at the store level, issuance enforces it in application code.
type License struct {
	BaseModel

	Code    string        `gorm:"size:16;uniqueIndex;not null" json:"code"`
	OrderNo string        `gorm:"size:64;uniqueIndex;not null" json:"order_no"`
	Status  LicenseStatus `gorm:"size:16;not null;default:'active'" json:"status"`

	// Product entitlements snapshotted at purchase time.
	Features datatypes.JSON `json:"features,omitempty"`

	PurchaseDate time.Time  `gorm:"not null" json:"purchase_date"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"` // nil means perpetual

	// Redemption bookkeeping, updated outside this service.
	UsageCount     int        `gorm:"not null;default:0" json:"usage_count"`
	LastUsedAt     *time.Time `json:"last_used_at,omitempty"`
	LastUsedDevice string     `gorm:"size:128" json:"last_used_device,omitempty"`

	// Refund metadata mirroring the linked order.
	RefundNo   string     `gorm:"size:64" json:"refund_no,omitempty"`
	RefundedAt *time.Time `json:"refunded_at,omitempty"`
}

func (License) TableName() string { return "licenses" }
