package repositories

import (
	"time"

	"license_ledger/internal/models"

	"gorm.io/gorm"
)

type LicenseRepository interface {
	Create(db *gorm.DB, license *models.License) error
	FindByCode(db *gorm.DB, code string) ([]models.License, error)
	FindByOrderNo(db *gorm.DB, orderNo string) ([]models.License, error)
	// MarkRefunded performs a compare-and-swap on status; it reports whether
	// this caller won the transition.
	MarkRefunded(db *gorm.DB, code, refundNo string, refundedAt time.Time) (bool, error)
	ResetToActive(db *gorm.DB, code string) error
}

type LicenseRepositoryImpl struct{}

func NewLicenseRepository() LicenseRepository {
	return &LicenseRepositoryImpl{}
}

func (r *LicenseRepositoryImpl) Create(db *gorm.DB, license *models.License) error {
	return db.Create(license).Error
}

func (r *LicenseRepositoryImpl) FindByCode(db *gorm.DB, code string) ([]models.License, error) {
	var licenses []models.License
	err := db.Where("code = ?", code).Find(&licenses).Error
	return licenses, err
}

func (r *LicenseRepositoryImpl) FindByOrderNo(db *gorm.DB, orderNo string) ([]models.License, error) {
	var licenses []models.License
	err := db.Where("order_no = ?", orderNo).Find(&licenses).Error
	return licenses, err
}

// MarkRefunded is the concurrency guard for refunds: the UPDATE is keyed on
// the current status, so of two concurrent refund requests for the same code
// exactly one sees RowsAffected = 1.
func (r *LicenseRepositoryImpl) MarkRefunded(db *gorm.DB, code, refundNo string, refundedAt time.Time) (bool, error) {
	result := db.Model(&models.License{}).
		Where("code = ? AND status = ?", code, models.LicenseStatusActive).
		Updates(map[string]interface{}{
			"status":      models.LicenseStatusRefunded,
			"refund_no":   refundNo,
			"refunded_at": refundedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ResetToActive clears refund metadata. Idempotent: a second reset updates
// the row to the values it already has.
func (r *LicenseRepositoryImpl) ResetToActive(db *gorm.DB, code string) error {
	return db.Model(&models.License{}).
		Where("code = ?", code).
		Updates(map[string]interface{}{
			"status":      models.LicenseStatusActive,
			"refund_no":   "",
			"refunded_at": nil,
		}).Error
}
