package helpers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"license_ledger/internal/app"
	"license_ledger/internal/config"
	"license_ledger/internal/lock"
	"license_ledger/internal/models"
	"license_ledger/internal/repositories"
	"license_ledger/internal/services"
	"license_ledger/internal/services/payment"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Credentials and channel settings shared by all integration tests.
const (
	MerchantID    = "1000"
	ZPayKey       = "integration-test-secret"
	ProductPrice  = "48.00"
	AdminLogin    = "admin"
	AdminPassword = "password123"
)

var dbSeq atomic.Int64

// TestServer runs the full HTTP stack against a dedicated in-memory store,
// with the payment gateway and email delivery replaced by recording mocks.
type TestServer struct {
	Server  *httptest.Server
	DB      *gorm.DB
	Gateway *app.MockGateway
	Email   *app.MockEmailProvider
}

func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	os.Setenv("DATABASE_URL", "sqlite://in-memory")
	os.Setenv("SERVER_ENV", "test")
	config.LoadConfig()
	cfg := config.GetConfig()
	cfg.ZPay.MerchantID = MerchantID
	cfg.ZPay.Key = ZPayKey
	cfg.ZPay.ProductPrice = ProductPrice
	cfg.ZPay.RefundWindow = 7
	cfg.Admin.Login = AdminLogin

	// MinCost keeps per-test server startup cheap.
	hash, err := bcrypt.GenerateFromPassword([]byte(AdminPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash admin password: %v", err)
	}
	cfg.Admin.PasswordHash = string(hash)

	dsn := fmt.Sprintf("file:integration_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&models.Order{}, &models.License{}, &models.RefundAudit{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	gateway := &app.MockGateway{}
	mail := &app.MockEmailProvider{}

	orderRepo := repositories.NewOrderRepository()
	licenseRepo := repositories.NewLicenseRepository()
	auditRepo := repositories.NewAuditRepository()
	issuance := services.NewIssuanceService(licenseRepo)

	container := &services.ServiceContainer{
		CallbackService: services.NewCallbackService(
			orderRepo, licenseRepo, issuance, mail,
			cfg.ZPay.MerchantID, cfg.ZPay.Key, cfg.ZPay.ProductPrice),
		ReconciliationService: services.NewReconciliationService(
			orderRepo, licenseRepo, auditRepo, gateway,
			lock.NewCodeLocker(nil), cfg.ZPay.RefundWindow),
		IssuanceService: issuance,
		EmailService:    mail,
	}

	router := app.SetupRouterWithServices(db, container)
	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:  server,
		DB:      db,
		Gateway: gateway,
		Email:   mail,
	}
	t.Cleanup(ts.Close)
	return ts
}

func (ts *TestServer) Close() {
	ts.Server.Close()
	if sqlDB, err := ts.DB.DB(); err == nil {
		sqlDB.Close()
	}
}

// SendRequest performs a JSON request and returns the response with its body
// read out as a string.
func (ts *TestServer) SendRequest(t *testing.T, method, path, token string, body interface{}) (*http.Response, string) {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, reqBody)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := ts.Server.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return res, string(resBody)
}

// SendForm posts url-encoded parameters the way the payment channel does.
func (ts *TestServer) SendForm(t *testing.T, path string, params map[string]string) (*http.Response, string) {
	t.Helper()

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}

	res, err := ts.Server.Client().Post(ts.Server.URL+path,
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("form request failed: %v", err)
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return res, string(resBody)
}

// SignedCallbackParams builds a payment notification the verifier accepts.
func SignedCallbackParams(orderNo string, overrides map[string]string) map[string]string {
	params := map[string]string{
		"pid":            MerchantID,
		"out_trade_no":   orderNo,
		"money":          ProductPrice,
		"trade_status":   "TRADE_SUCCESS",
		"transaction_id": "TX-" + orderNo,
		"email":          "buyer@example.com",
	}
	for k, v := range overrides {
		params[k] = v
	}
	params["sign"] = payment.Sign(params, ZPayKey)
	params["sign_type"] = "MD5"
	return params
}
