package services

import (
	"license_ledger/internal/email"
)

// ServiceContainer holds every service of the application.
type ServiceContainer struct {
	CallbackService       CallbackService
	ReconciliationService ReconciliationService
	IssuanceService       IssuanceService
	EmailService          email.Provider
}
