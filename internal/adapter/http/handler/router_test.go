package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"mini-ledger/internal/adapter/storage/memory"
	"mini-ledger/internal/core/ports"
	"mini-ledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() *gin.Engine {
	store := memory.NewStore()
	svc := service.NewLedgerService(store, nil, 0, zerolog.Nop())
	return SetupRouter(RouterDeps{
		LedgerSvc:      svc,
		HealthCheckers: []ports.HealthChecker{store},
		Logger:         zerolog.Nop(),
	})
}

func do(t *testing.T, r http.Handler, method, path string, body any) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp map[string]interface{}
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w.Code, resp
}

func balanceOf(t *testing.T, r http.Handler, id uuid.UUID) string {
	t.Helper()
	code, resp := do(t, r, http.MethodGet, "/api/v1/accounts/"+id.String(), nil)
	require.Equal(t, http.StatusOK, code)
	return resp["data"].(map[string]interface{})["balance"].(string)
}

func TestRouter_LedgerFlow(t *testing.T) {
	r := newTestRouter()
	alice, bob := uuid.New(), uuid.New()

	for _, id := range []uuid.UUID{alice, bob} {
		code, _ := do(t, r, http.MethodPost, "/api/v1/accounts", map[string]string{"id": id.String(), "currency": "USD"})
		require.Equal(t, http.StatusCreated, code)
	}

	code, resp := do(t, r, http.MethodPost, "/api/v1/accounts", map[string]string{"id": alice.String(), "currency": "USD"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "LDG_002", resp["error_code"])

	deposit := map[string]string{"amount": "50", "idempotency_key": "dep-1"}
	code, first := do(t, r, http.MethodPost, "/api/v1/accounts/"+alice.String()+"/deposits", deposit)
	require.Equal(t, http.StatusCreated, code)
	code, again := do(t, r, http.MethodPost, "/api/v1/accounts/"+alice.String()+"/deposits", deposit)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, first["data"], again["data"])
	assert.Equal(t, "50", balanceOf(t, r, alice))

	transfer := map[string]string{
		"from_account_id": alice.String(),
		"to_account_id":   bob.String(),
		"amount":          "30",
		"idempotency_key": "xfer-1",
	}
	code, resp = do(t, r, http.MethodPost, "/api/v1/transfers", transfer)
	require.Equal(t, http.StatusCreated, code)
	txs := resp["data"].(map[string]interface{})["transactions"].([]interface{})
	require.Len(t, txs, 2)
	assert.Equal(t, "-30", txs[0].(map[string]interface{})["amount"])
	assert.Equal(t, "30", txs[1].(map[string]interface{})["amount"])

	code, _ = do(t, r, http.MethodPost, "/api/v1/transfers", transfer)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "20", balanceOf(t, r, alice))
	assert.Equal(t, "30", balanceOf(t, r, bob))

	code, resp = do(t, r, http.MethodPost, "/api/v1/accounts/"+alice.String()+"/withdrawals",
		map[string]string{"amount": "100", "idempotency_key": "wd-1"})
	assert.Equal(t, http.StatusPaymentRequired, code)
	assert.Equal(t, "LDG_004", resp["error_code"])
	assert.Equal(t, "20", balanceOf(t, r, alice))

	code, resp = do(t, r, http.MethodGet, "/api/v1/accounts/"+alice.String()+"/transactions", nil)
	require.Equal(t, http.StatusOK, code)
	items := resp["data"].(map[string]interface{})["items"].([]interface{})
	require.Len(t, items, 2)
	assert.Equal(t, float64(1), items[0].(map[string]interface{})["account_version"])
	assert.Equal(t, float64(2), items[1].(map[string]interface{})["account_version"])
}

func TestRouter_UnknownAccount(t *testing.T) {
	r := newTestRouter()

	code, resp := do(t, r, http.MethodPost, "/api/v1/accounts/"+uuid.NewString()+"/deposits",
		map[string]string{"amount": "1", "idempotency_key": "k"})

	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "LDG_001", resp["error_code"])
	assert.NotEmpty(t, resp["request_id"])
}

func TestRouter_RequestIDEchoed(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/"+uuid.NewString(), nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
	assert.Contains(t, w.Body.String(), `"request_id":"req-123"`)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	r := newTestRouter()

	code, resp := do(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", resp["status"])
	assert.Contains(t, resp["dependencies"], "memory")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ledger_http_requests_total")
}
