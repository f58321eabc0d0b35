package helpers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"license_ledger/internal/models"

	"github.com/stretchr/testify/require"
)

// PayOrder drives a signed payment callback through the API and returns the
// issued access code.
func PayOrder(t *testing.T, ts *TestServer, orderNo string) string {
	t.Helper()

	res, body := ts.SendForm(t, "/api/v1/zpay/callback", SignedCallbackParams(orderNo, nil))
	require.Equal(t, http.StatusOK, res.StatusCode, "callback failed: %s", body)

	var parsed struct {
		AccessCode string `json:"access_code"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &parsed))
	require.NotEmpty(t, parsed.AccessCode)
	return parsed.AccessCode
}

// LoginAdmin authenticates with the fixture credentials and returns the token.
func LoginAdmin(t *testing.T, ts *TestServer) string {
	t.Helper()

	res, body := ts.SendRequest(t, http.MethodPost, "/api/v1/admin/auth/login", "", map[string]interface{}{
		"login":    AdminLogin,
		"password": AdminPassword,
	})
	require.Equal(t, http.StatusOK, res.StatusCode, "admin login failed: %s", body)

	var parsed struct {
		Token string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &parsed))
	require.NotEmpty(t, parsed.Token)
	return parsed.Token
}

// AgePurchase backdates a license's purchase so the refund window has closed.
func AgePurchase(t *testing.T, ts *TestServer, code string, age time.Duration) {
	t.Helper()

	result := ts.DB.Model(&models.License{}).
		Where("code = ?", code).
		Update("purchase_date", time.Now().Add(-age))
	require.NoError(t, result.Error)
	require.EqualValues(t, 1, result.RowsAffected)
}
