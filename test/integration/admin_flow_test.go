package integration_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"license_ledger/internal/models"
	"license_ledger/test/helpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminLogin_WrongPassword(t *testing.T) {
	ts := helpers.NewTestServer(t)

	res, body := ts.SendRequest(t, http.MethodPost, "/api/v1/admin/auth/login", "", map[string]interface{}{
		"login":    helpers.AdminLogin,
		"password": "not-the-password",
	})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Contains(t, body, "INVALID_CREDENTIALS")
}

func TestAdminReset_RequiresToken(t *testing.T) {
	ts := helpers.NewTestServer(t)

	res, _ := ts.SendRequest(t, http.MethodPost, "/api/v1/admin/reset", "", map[string]interface{}{
		"access_code": "ABC123DEF456",
		"reason":      "no token",
	})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res, _ = ts.SendRequest(t, http.MethodPost, "/api/v1/admin/reset", "garbage-token", map[string]interface{}{
		"access_code": "ABC123DEF456",
		"reason":      "bad token",
	})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestAdminReset_RestoresRefundedPurchase(t *testing.T) {
	ts := helpers.NewTestServer(t)
	code := helpers.PayOrder(t, ts, "ORD-admin-1")

	res, _ := ts.SendRequest(t, http.MethodPost, "/api/v1/refunds", "",
		map[string]interface{}{"access_code": code})
	require.Equal(t, http.StatusOK, res.StatusCode)

	token := helpers.LoginAdmin(t, ts)
	res, body := ts.SendRequest(t, http.MethodPost, "/api/v1/admin/reset", token, map[string]interface{}{
		"access_code": code,
		"reason":      "refund issued in error",
	})
	require.Equal(t, http.StatusOK, res.StatusCode, body)

	var parsed struct {
		Success bool `json:"success"`
		Data    struct {
			AlreadyActive bool `json:"already_active"`
			License       struct {
				Status string `json:"status"`
			} `json:"license"`
			Order struct {
				RefundStatus string `json:"refund_status"`
			} `json:"order"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &parsed))
	assert.True(t, parsed.Success)
	assert.False(t, parsed.Data.AlreadyActive)
	assert.Equal(t, string(models.LicenseStatusActive), parsed.Data.License.Status)
	assert.Equal(t, string(models.RefundStatusNone), parsed.Data.Order.RefundStatus)

	// Refund plus reset, both on the record.
	var audits []models.RefundAudit
	require.NoError(t, ts.DB.Where("code = ?", code).Order("created_at ASC").Find(&audits).Error)
	require.Len(t, audits, 2)
	assert.Equal(t, "refund", audits[0].Operation)
	assert.Equal(t, "reset", audits[1].Operation)
	assert.Equal(t, "refund issued in error", audits[1].Reason)

	// The restored purchase is refundable again.
	res, _ = ts.SendRequest(t, http.MethodPost, "/api/v1/refunds", "",
		map[string]interface{}{"access_code": code})
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestAdminReset_ByOrderNo_Idempotent(t *testing.T) {
	ts := helpers.NewTestServer(t)
	code := helpers.PayOrder(t, ts, "ORD-admin-2")
	token := helpers.LoginAdmin(t, ts)

	res, _ := ts.SendRequest(t, http.MethodPost, "/api/v1/refunds", "",
		map[string]interface{}{"access_code": code})
	require.Equal(t, http.StatusOK, res.StatusCode)

	reset := map[string]interface{}{"order_no": "ORD-admin-2", "reason": "support ticket"}
	res, body := ts.SendRequest(t, http.MethodPost, "/api/v1/admin/reset", token, reset)
	require.Equal(t, http.StatusOK, res.StatusCode, body)
	assert.Contains(t, body, `"already_active":false`)

	res, body = ts.SendRequest(t, http.MethodPost, "/api/v1/admin/reset", token, reset)
	require.Equal(t, http.StatusOK, res.StatusCode, body)
	assert.Contains(t, body, `"already_active":true`)
}

func TestAdminInspectOrder(t *testing.T) {
	ts := helpers.NewTestServer(t)
	code := helpers.PayOrder(t, ts, "ORD-admin-3")
	token := helpers.LoginAdmin(t, ts)

	res, _ := ts.SendRequest(t, http.MethodPost, "/api/v1/refunds", "",
		map[string]interface{}{"access_code": code})
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, body := ts.SendRequest(t, http.MethodGet, "/api/v1/admin/orders/ORD-admin-3", token, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, body)

	var parsed struct {
		Success bool `json:"success"`
		Order   struct {
			OrderNo      string `json:"order_no"`
			RefundStatus string `json:"refund_status"`
		} `json:"order"`
		Licenses []struct {
			Code   string `json:"code"`
			Status string `json:"status"`
		} `json:"licenses"`
		Audits []struct {
			Operation string `json:"operation"`
			Outcome   string `json:"outcome"`
		} `json:"audits"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &parsed))
	assert.True(t, parsed.Success)
	assert.Equal(t, "ORD-admin-3", parsed.Order.OrderNo)
	assert.Equal(t, string(models.RefundStatusRefunded), parsed.Order.RefundStatus)
	require.Len(t, parsed.Licenses, 1)
	assert.Equal(t, code, parsed.Licenses[0].Code)
	require.Len(t, parsed.Audits, 1)
	assert.Equal(t, "refund", parsed.Audits[0].Operation)

	res, _ = ts.SendRequest(t, http.MethodGet, "/api/v1/admin/orders/ORD-missing", token, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}
