package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kharcha-app/kharcha/internal/ledger"
	"github.com/kharcha-app/kharcha/internal/storage"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })

	return NewServer(store, ledger.New(store), Config{JWTSecret: testSecret})
}

func signToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func doRequest(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func createAccount(t *testing.T, s *Server, token, name, accountType string) {
	t.Helper()
	w := doRequest(t, s, http.MethodPost, "/api/v1/accounts", token, map[string]any{
		"name": name,
		"type": accountType,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	w := doRequest(t, s, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name  string
		token string
	}{
		{name: "missing token", token: ""},
		{name: "garbage token", token: "not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, s, http.MethodGet, "/api/v1/transactions", tt.token, nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAuthRejectsWrongSecret(t *testing.T) {
	s := newTestServer(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user-1"})
	signed, err := token.SignedString([]byte("some-other-secret"))
	require.NoError(t, err)

	w := doRequest(t, s, http.MethodGet, "/api/v1/transactions", signed, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateTransaction(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, "user-1")
	createAccount(t, s, token, "Checking", "Bank")

	w := doRequest(t, s, http.MethodPost, "/api/v1/transactions", token, map[string]any{
		"type":     "Expense",
		"amount":   "500",
		"category": "Groceries",
		"source":   "Checking",
		"date":     "2024-03-15T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decodeBody(t, w)
	assert.NotEmpty(t, body["id"])
	assert.Equal(t, "Expense", body["type"])
	assert.Equal(t, []any{"Checking"}, body["involvedAccounts"])

	// The account balance reflects the committed delta.
	w = doRequest(t, s, http.MethodGet, "/api/v1/accounts", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var accounts []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accounts))
	require.Len(t, accounts, 1)
	assert.Equal(t, "-500", accounts[0]["balance"])
}

func TestCreateTransactionValidation(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, "user-1")

	w := doRequest(t, s, http.MethodPost, "/api/v1/transactions", token, map[string]any{
		"type":     "Expense",
		"amount":   "0",
		"category": "Groceries",
		"source":   "Checking",
		"date":     "2024-03-15T00:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := decodeBody(t, w)
	assert.Contains(t, body["error"], "amount")
}

func TestUpdateMissingTransaction(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, "user-1")

	w := doRequest(t, s, http.MethodPut, "/api/v1/transactions/no-such-id", token, map[string]any{
		"type":     "Expense",
		"amount":   "10",
		"category": "Groceries",
		"source":   "Checking",
		"date":     "2024-03-15T00:00:00Z",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteTransactions(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, "user-1")
	createAccount(t, s, token, "Checking", "Bank")

	w := doRequest(t, s, http.MethodPost, "/api/v1/transactions", token, map[string]any{
		"type":     "Expense",
		"amount":   "500",
		"category": "Groceries",
		"source":   "Checking",
		"date":     "2024-03-15T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeBody(t, w)["id"].(string)

	w = doRequest(t, s, http.MethodPost, "/api/v1/transactions/delete", token, map[string]any{
		"ids": []string{id},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// A batch with a missing id fails and deletes nothing.
	w = doRequest(t, s, http.MethodPost, "/api/v1/transactions/delete", token, map[string]any{
		"ids": []string{id},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDuplicateAccountName(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, "user-1")
	createAccount(t, s, token, "Checking", "Bank")

	w := doRequest(t, s, http.MethodPost, "/api/v1/accounts", token, map[string]any{
		"name": "Checking",
		"type": "Wallet",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSecondSplitwiseAccountRejected(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, "user-1")
	createAccount(t, s, token, "Splitwise", "Splitwise")

	w := doRequest(t, s, http.MethodPost, "/api/v1/accounts", token, map[string]any{
		"name": "Another",
		"type": "Splitwise",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdjustBalance(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, "user-1")
	createAccount(t, s, token, "Checking", "Bank")

	w := doRequest(t, s, http.MethodPost, "/api/v1/adjustments", token, map[string]any{
		"account":    "Checking",
		"difference": "250",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decodeBody(t, w)
	assert.Equal(t, "Income", body["type"])
	assert.Equal(t, "Income Adjustment", body["category"])
	assert.Equal(t, "Balance adjustment for Checking.", body["notes"])

	// Zero difference is a no-op.
	w = doRequest(t, s, http.MethodPost, "/api/v1/adjustments", token, map[string]any{
		"account":    "Checking",
		"difference": "0",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["adjusted"])

	// Unknown account.
	w = doRequest(t, s, http.MethodPost, "/api/v1/adjustments", token, map[string]any{
		"account":    "Nope",
		"difference": "10",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMonthlyAnalytics(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, "user-1")
	createAccount(t, s, token, "Checking", "Bank")

	w := doRequest(t, s, http.MethodPost, "/api/v1/transactions", token, map[string]any{
		"type":        "Expense",
		"amount":      "100",
		"splitAmount": "30",
		"category":    "Dining",
		"source":      "Checking",
		"date":        "2024-03-15T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doRequest(t, s, http.MethodGet, "/api/v1/analytics/monthly/2024-03", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "2024-03", body["period"])
	assert.Equal(t, "70", body["totalExpense"])
	assert.Equal(t, float64(1), body["numExpenseTransactions"])

	w = doRequest(t, s, http.MethodGet, "/api/v1/analytics/daily/2024-03-15", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "70", decodeBody(t, w)["totalExpense"])

	w = doRequest(t, s, http.MethodGet, "/api/v1/analytics/monthly?from=2024-01&to=2024-12", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var months []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &months))
	require.Len(t, months, 1)
	assert.Equal(t, "2024-03", months[0]["period"])

	// Range endpoints are required.
	w = doRequest(t, s, http.MethodGet, "/api/v1/analytics/monthly", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListTransactionsEndpoint(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, "user-1")
	createAccount(t, s, token, "Checking", "Bank")

	for _, date := range []string{"2024-03-01T00:00:00Z", "2024-03-02T00:00:00Z", "2024-03-03T00:00:00Z"} {
		w := doRequest(t, s, http.MethodPost, "/api/v1/transactions", token, map[string]any{
			"type":     "Expense",
			"amount":   "10",
			"category": "Groceries",
			"source":   "Checking",
			"date":     date,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := doRequest(t, s, http.MethodGet, "/api/v1/transactions?limit=2", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["hasMore"])
	assert.Len(t, body["items"], 2)
	assert.NotEmpty(t, body["nextCursor"])

	w = doRequest(t, s, http.MethodGet, "/api/v1/transactions?limit=abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Other users see nothing.
	other := signToken(t, "user-2")
	w = doRequest(t, s, http.MethodGet, "/api/v1/transactions", other, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeBody(t, w)["items"])
}
