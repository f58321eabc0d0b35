package app

import (
	"context"
	"fmt"
	"time"

	"license_ledger/internal/config"
	"license_ledger/internal/email"
	"license_ledger/internal/handlers"
	"license_ledger/internal/lock"
	"license_ledger/internal/logger"
	"license_ledger/internal/middleware"
	"license_ledger/internal/models"
	"license_ledger/internal/repositories"
	"license_ledger/internal/routes"
	"license_ledger/internal/services"
	"license_ledger/internal/services/payment"
	"license_ledger/internal/validator"
	"license_ledger/internal/workers"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	logger.Info("Connecting to database...")
	gormDB, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")

	if err := gormDB.AutoMigrate(
		&models.Order{},
		&models.License{},
		&models.RefundAudit{},
	); err != nil {
		logger.Fatal("Failed to migrate database schema", "error", err)
	}

	ginRouter := SetupRouter(cfg, gormDB)

	worker := workers.NewReconciliationWorker(gormDB,
		time.Duration(cfg.Worker.SweepIntervalMinutes)*time.Minute)
	worker.Start(context.Background())

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Server starting", "address", address)
	if err := ginRouter.Run(address); err != nil {
		logger.Fatal("Server startup error", "error", err)
	}
}

// SetupRouter builds the full gin engine with production wiring.
func SetupRouter(cfg *config.Config, gormDB *gorm.DB) *gin.Engine {
	return SetupRouterWithServices(gormDB, InitializeServices(cfg))
}

// SetupRouterWithServices builds the engine around a prepared service
// container. Tests use it to swap in the mock gateway and email provider and
// their own (sqlite) DB handle.
func SetupRouterWithServices(gormDB *gorm.DB, serviceContainer *services.ServiceContainer) *gin.Engine {
	appHandlers := initializeHandlers(serviceContainer)

	ginRouter := initializeGinRouter(gormDB)
	routes.RegisterRoutes(ginRouter, appHandlers)

	return ginRouter
}

// InitializeServices wires repositories, external clients and services.
func InitializeServices(cfg *config.Config) *services.ServiceContainer {
	var emailService email.Provider
	if cfg.Email.Enabled {
		smtp, err := email.NewSMTPProvider(email.Config{
			Host:      cfg.Email.SMTPHost,
			Port:      cfg.Email.SMTPPort,
			Username:  cfg.Email.SMTPUsername,
			Password:  cfg.Email.SMTPPassword,
			FromEmail: cfg.Email.FromEmail,
			FromName:  cfg.Email.FromName,
		})
		if err != nil {
			logger.Fatal("Failed to initialize SMTP provider", "error", err)
		}
		emailService = smtp
	} else {
		logger.Warn("Email delivery disabled, using mock provider")
		emailService = &MockEmailProvider{}
	}

	var redisClient *rd.Client
	if cfg.Redis.Addr != "" {
		redisClient = rd.NewClient(&rd.Options{
			Addr: cfg.Redis.Addr,
			DB:   cfg.Redis.DB,
		})
		logger.Info("Redis advisory lock enabled", "addr", cfg.Redis.Addr)
	} else {
		logger.Warn("REDIS_ADDR not set, refund locking relies on conditional updates only")
	}

	orderRepo := repositories.NewOrderRepository()
	licenseRepo := repositories.NewLicenseRepository()
	auditRepo := repositories.NewAuditRepository()

	gateway := payment.NewZPayGateway(cfg.ZPay.MerchantID, cfg.ZPay.Key, cfg.ZPay.GatewayURL)
	locker := lock.NewCodeLocker(redisClient)

	issuanceService := services.NewIssuanceService(licenseRepo)
	reconciliationService := services.NewReconciliationService(
		orderRepo, licenseRepo, auditRepo, gateway, locker, cfg.ZPay.RefundWindow)
	callbackService := services.NewCallbackService(
		orderRepo, licenseRepo, issuanceService, emailService,
		cfg.ZPay.MerchantID, cfg.ZPay.Key, cfg.ZPay.ProductPrice)

	return &services.ServiceContainer{
		CallbackService:       callbackService,
		ReconciliationService: reconciliationService,
		IssuanceService:       issuanceService,
		EmailService:          emailService,
	}
}

func initializeHandlers(container *services.ServiceContainer) *handlers.AppHandlers {
	customValidator := validator.New()
	baseHandler := handlers.NewBaseHandler(customValidator)

	orderRepo := repositories.NewOrderRepository()
	licenseRepo := repositories.NewLicenseRepository()
	auditRepo := repositories.NewAuditRepository()

	return &handlers.AppHandlers{
		CallbackHandler: handlers.NewCallbackHandler(baseHandler, container.CallbackService),
		RefundHandler:   handlers.NewRefundHandler(baseHandler, container.ReconciliationService),
		AdminHandler: handlers.NewAdminHandler(baseHandler, container.ReconciliationService,
			orderRepo, licenseRepo, auditRepo),
	}
}

func initializeGinRouter(db *gorm.DB) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.DBMiddleware(db))
	return router
}
