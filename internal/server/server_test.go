package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"staking-ledger-go/internal/api"
	"staking-ledger-go/internal/database"
	"staking-ledger-go/internal/models"
	"staking-ledger-go/internal/prices"
	"staking-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAuth = models.AuthConfig{
	JWTSecret:      "test-secret",
	JWTIssuer:      "staking-ledger-test",
	AdminSecretKey: "job-secret",
}

func setupTestServer(t *testing.T) http.Handler {
	t.Helper()

	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	assets := models.NewAssetSet([]models.Asset{
		{Symbol: "ETH", Network: "ethereum-mainnet", Precision: 18},
		{Symbol: "USDT", Network: "ethereum-mainnet", Precision: 6},
	})
	feed := prices.NewStaticFeed(map[string]decimal.Decimal{
		"ETH":  decimal.NewFromInt(3500),
		"USDT": decimal.NewFromInt(1),
	})
	ledger := api.NewLedgerService(db, assets, feed)
	return New(ledger, models.ServerConfig{Addr: ":0"}, testAuth).Handler()
}

func token(t *testing.T, userId, role string) string {
	t.Helper()
	tok, err := GenerateToken(testAuth, userId, userId+"@example.com", role, time.Hour)
	require.NoError(t, err)
	return tok
}

func do(t *testing.T, h http.Handler, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	h := setupTestServer(t)
	rec := do(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuthRequired(t *testing.T) {
	h := setupTestServer(t)

	rec := do(t, h, http.MethodGet, "/v1/balances", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Kind)

	rec = do(t, h, http.MethodGet, "/v1/balances", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other := models.AuthConfig{JWTSecret: "other-secret", JWTIssuer: testAuth.JWTIssuer}
	forged, err := GenerateToken(other, "u1", "u1@example.com", models.RoleAdmin, time.Hour)
	require.NoError(t, err)
	rec = do(t, h, http.MethodGet, "/v1/balances", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	h := setupTestServer(t)
	rec := do(t, h, http.MethodGet, "/v1/admin/deposits", token(t, "u1", models.RoleUser), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decodeError(t, rec).Kind)
}

func TestDepositApproveAndBalance(t *testing.T) {
	h := setupTestServer(t)
	user := token(t, "u1", models.RoleUser)
	admin := token(t, "admin-1", models.RoleAdmin)

	rec := do(t, h, http.MethodPost, "/v1/deposits", user, M{"currency": "ETH", "amount": "10", "tx_hash": "0xabc"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var deposit models.Deposit
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &deposit))
	assert.Equal(t, models.DepositPending, deposit.Status)

	rec = do(t, h, http.MethodPost, "/v1/admin/deposits/"+deposit.Id+"/approve", admin, M{"notes": "ok"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/v1/admin/deposits/"+deposit.Id+"/approve", admin, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_processed", decodeError(t, rec).Kind)

	rec = do(t, h, http.MethodGet, "/v1/balances", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var balances []models.Balance
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &balances))
	require.Len(t, balances, 1)
	assert.True(t, balances[0].Available.Equal(decimal.NewFromInt(10)))
}

func TestUnknownFieldsRejected(t *testing.T) {
	h := setupTestServer(t)
	rec := do(t, h, http.MethodPost, "/v1/deposits", token(t, "u1", models.RoleUser), M{"currency": "ETH", "amount": "1", "bonus": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_input", decodeError(t, rec).Kind)
}

func TestWithdrawalInsufficientFunds(t *testing.T) {
	h := setupTestServer(t)
	user := token(t, "u1", models.RoleUser)
	admin := token(t, "admin-1", models.RoleAdmin)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/v1/balances", user, nil).Code)

	rec := do(t, h, http.MethodPost, "/v1/admin/users/u1/deposits", admin, M{"currency": "USDT", "amount": "150", "auto_approve": true})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/v1/withdrawals", user, M{
		"withdrawal_type": "balance",
		"currency":        "USDT",
		"amount":          "200",
		"wallet_address":  "0xdead",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "insufficient_funds", decodeError(t, rec).Kind)

	rec = do(t, h, http.MethodGet, "/v1/withdrawals", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestStakeCancelIsAdminOnly(t *testing.T) {
	h := setupTestServer(t)
	admin := token(t, "admin-1", models.RoleAdmin)
	user := token(t, "u1", models.RoleUser)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/v1/balances", user, nil).Code)

	rec := do(t, h, http.MethodPost, "/v1/admin/users/u1/deposits", admin, M{"currency": "ETH", "amount": "5", "auto_approve": true})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = do(t, h, http.MethodPost, "/v1/admin/plans", admin, M{"name": "Flex", "currency": "ETH", "apy": "4", "lockup_days": 0, "min_stake": "0"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var plan models.StakingPlan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))

	rec = do(t, h, http.MethodPost, "/v1/stakes", user, M{"plan_id": plan.Id, "amount": "2"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var stake models.Stake
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stake))

	rec = do(t, h, http.MethodPost, "/v1/stakes/"+stake.Id+"/cancel", user, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, h, http.MethodPost, "/v1/admin/stakes/"+stake.Id+"/cancel", user, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodDelete, "/v1/admin/plans/"+plan.Id, admin, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "plan_in_use", decodeError(t, rec).Kind)

	rec = do(t, h, http.MethodPost, "/v1/admin/stakes/"+stake.Id+"/cancel", admin, M{"reason": "support"})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/v1/balances", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var balances []models.Balance
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &balances))
	require.Len(t, balances, 1)
	assert.True(t, balances[0].Available.Equal(decimal.NewFromInt(5)), balances[0].Available.String())
}

func TestJobEndpoints(t *testing.T) {
	h := setupTestServer(t)

	rec := do(t, h, http.MethodPost, "/v1/jobs/withdrawal-conditions", "wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/jobs/withdrawal-conditions", token(t, "u1", models.RoleUser), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/jobs/withdrawal-conditions", testAuth.AdminSecretKey, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sweep models.SweepResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sweep))
	assert.Equal(t, 0, sweep.Checked)

	rec = do(t, h, http.MethodPost, "/v1/jobs/rewards", token(t, "u1", models.RoleUser), nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(t, h, http.MethodPost, "/v1/jobs/rewards", testAuth.AdminSecretKey, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{store.ErrNotFound, http.StatusNotFound, "not_found"},
		{store.ErrInvalidAmount, http.StatusBadRequest, "invalid_input"},
		{store.ErrBelowMinimum, http.StatusBadRequest, "below_minimum"},
		{store.ErrPlanInactive, http.StatusBadRequest, "plan_inactive"},
		{store.ErrUnauthorized, http.StatusForbidden, "forbidden"},
		{store.ErrDependencyUnavailable, http.StatusServiceUnavailable, "dependency_unavailable"},
		{&store.PartialFailureError{Op: "x", Cause: store.ErrInsufficientFunds}, http.StatusInternalServerError, "partial_failure"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		status, kind := classify(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.kind, kind, tt.err.Error())
	}
}

func TestWriteErrorFlagsReconciliation(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/x", nil)
	writeError(rec, req, &store.PartialFailureError{Op: "credit_deposit", Cause: errors.New("disk"), RollbackErr: errors.New("disk")})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.True(t, body.ReconciliationRequired)
	assert.Equal(t, "partial_failure", body.Kind)
}

func TestParseTokenDefaults(t *testing.T) {
	tok, err := GenerateToken(testAuth, "u9", "u9@example.com", "", time.Hour)
	require.NoError(t, err)
	claims, err := ParseToken(testAuth, tok)
	require.NoError(t, err)
	assert.Equal(t, "u9", claims.UserID)
	assert.Equal(t, models.RoleUser, claims.Role)

	expired, err := GenerateToken(testAuth, "u9", "u9@example.com", "", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(testAuth, expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
