package repositories

import (
	"license_ledger/internal/models"

	"gorm.io/gorm"
)

// AuditRepository is append-only. There are intentionally no update or delete
// methods; the trail is the forensic record of every refund attempt.
type AuditRepository interface {
	Append(db *gorm.DB, record *models.RefundAudit) error
	ListByOrderNo(db *gorm.DB, orderNo string) ([]models.RefundAudit, error)
	ListByCode(db *gorm.DB, code string) ([]models.RefundAudit, error)
}

type AuditRepositoryImpl struct{}

func NewAuditRepository() AuditRepository {
	return &AuditRepositoryImpl{}
}

func (r *AuditRepositoryImpl) Append(db *gorm.DB, record *models.RefundAudit) error {
	return db.Create(record).Error
}

func (r *AuditRepositoryImpl) ListByOrderNo(db *gorm.DB, orderNo string) ([]models.RefundAudit, error) {
	var records []models.RefundAudit
	err := db.Where("order_no = ?", orderNo).Order("created_at ASC").Find(&records).Error
	return records, err
}

func (r *AuditRepositoryImpl) ListByCode(db *gorm.DB, code string) ([]models.RefundAudit, error) {
	var records []models.RefundAudit
	err := db.Where("code = ?", code).Order("created_at ASC").Find(&records).Error
	return records, err
}
