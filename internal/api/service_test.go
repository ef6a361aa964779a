package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"taskona-ledger-go/internal/database"
	"taskona-ledger-go/internal/models"
	"taskona-ledger-go/internal/money"
	"taskona-ledger-go/internal/settlement"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testPaystackSecret = "sk_test_taskona"

type testServer struct {
	handler http.Handler
	auth    *Authenticator
	engine  *settlement.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "ledger.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 2,
		PingTimeout:  time.Second,
		TxTimeout:    5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	registry := prometheus.NewRegistry()
	engine, err := settlement.NewEngine(db, models.LedgerPolicy{
		WelcomeBonus:      money.FromNaira(1500),
		ReferralBonus:     money.FromNaira(300),
		ActivationFee:     money.FromNaira(1000),
		WithdrawalMin:     money.FromNaira(1000),
		WithdrawalMax:     money.FromNaira(100000),
		WithdrawalFee:     money.FromNaira(50),
		RequireActivation: true,
		AutoPayReferral:   true,
		Timezone:          "Africa/Lagos",
		StreakRewards: []models.StreakReward{
			{Day: 1, BaseAmount: money.FromNaira(50)},
			{Day: 2, BaseAmount: money.FromNaira(60)},
		},
	}, settlement.WithMetrics(settlement.NewMetrics(registry)))
	require.NoError(t, err)

	auth, err := NewAuthenticator("jwt-test-secret", time.Second)
	require.NoError(t, err)

	svc, err := NewLedgerService(Config{
		Engine:         engine,
		DB:             db,
		Auth:           auth,
		PaystackSecret: testPaystackSecret,
		Gatherer:       registry,
	})
	require.NoError(t, err)

	return &testServer{handler: svc.Handler(), auth: auth, engine: engine}
}

func (ts *testServer) token(t *testing.T, userId, role string) string {
	t.Helper()
	token, err := ts.auth.Issue(userId, role, time.Hour)
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) webhook(t *testing.T, event models.PaystackEvent) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/paystack", bytes.NewReader(payload))
	req.Header.Set(PaystackSignatureHeader, sign(payload))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) register(t *testing.T, userId, referralCode string) models.AccountView {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/v1/accounts", ts.token(t, userId, ""),
		models.RegisterRequest{Email: userId + "@example.com", ReferralCode: referralCode}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var view models.AccountView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	return view
}

func (ts *testServer) balance(t *testing.T, userId string) decimal.Decimal {
	t.Helper()
	rec := ts.do(t, http.MethodGet, "/v1/accounts/me", ts.token(t, userId, ""), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view models.AccountView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	return view.Balance
}

func sign(body []byte) string {
	mac := hmac.New(sha512.New, []byte(testPaystackSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func charge(userId, purpose, reference string, kobo int64) models.PaystackEvent {
	return models.PaystackEvent{
		Event: models.PaystackChargeSuccess,
		Data: models.PaystackCharge{
			Reference: reference,
			Status:    "success",
			Amount:    kobo,
			Currency:  "NGN",
			Metadata:  models.PaystackMetadata{UserId: userId, Purpose: purpose},
		},
	}
}

func decodeAck(t *testing.T, rec *httptest.ResponseRecorder) webhookAck {
	t.Helper()
	var ack webhookAck
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
	return ack
}

func requireNaira(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	require.True(t, got.Equal(decimal.NewFromInt(want)), "want %d, got %s", want, got)
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/healthz", "", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/metrics", "", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthentication(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/v1/accounts/me", "", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodGet, "/v1/accounts/me", "not-a-jwt", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	other, err := NewAuthenticator("some-other-secret", time.Second)
	require.NoError(t, err)
	forged, err := other.Issue("alice", RoleAdmin, time.Hour)
	require.NoError(t, err)
	rec = ts.do(t, http.MethodGet, "/v1/accounts/me", forged, nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	expired, err := ts.auth.Issue("alice", "", -time.Hour)
	require.NoError(t, err)
	rec = ts.do(t, http.MethodGet, "/v1/accounts/me", expired, nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodGet, "/v1/admin/withdrawals", ts.token(t, "alice", ""), nil, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodGet, "/v1/admin/withdrawals", ts.token(t, "ops", RoleAdmin), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterAndAccount(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/v1/accounts/me", ts.token(t, "alice", ""), nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	alice := ts.register(t, "alice", "")
	require.Equal(t, "alice", alice.UserId)
	require.False(t, alice.IsActivated)
	requireNaira(t, 0, alice.Balance)

	rec = ts.do(t, http.MethodPost, "/v1/accounts", ts.token(t, "alice", ""), models.RegisterRequest{}, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	var problem models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, "account_exists", problem.Code)

	rec = ts.do(t, http.MethodPost, "/v1/accounts", ts.token(t, "bob", ""),
		models.RegisterRequest{ReferralCode: "TSKNOPE"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	ts.register(t, "bob", alice.ReferralCode)
	rec = ts.do(t, http.MethodGet, "/v1/referrals", ts.token(t, "alice", ""), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var referrals []models.ReferralRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &referrals))
	require.Len(t, referrals, 1)
	require.Equal(t, "bob", referrals[0].ReferredId)
}

func TestPaystackWebhook(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.register(t, "alice", "")
	ts.register(t, "bob", alice.ReferralCode)

	// Unsigned deliveries never reach the ledger.
	payload, err := json.Marshal(charge("bob", models.PaymentPurposeTopUp, "PSK-forged", 100000))
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/paystack", bytes.NewReader(payload))
	req.Header.Set(PaystackSignatureHeader, hex.EncodeToString([]byte("bogus")))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.webhook(t, charge("bob", models.PaymentPurposeActivation, "PSK-under", 500))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "underpaid", decodeAck(t, rec).Code)

	rec = ts.webhook(t, charge("bob", models.PaymentPurposeActivation, "PSK-act", 100000))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "settled", decodeAck(t, rec).Status)
	requireNaira(t, 1500, ts.balance(t, "bob"))
	// Activation pays the referrer.
	requireNaira(t, 300, ts.balance(t, "alice"))

	rec = ts.webhook(t, charge("bob", models.PaymentPurposeActivation, "PSK-act", 100000))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "duplicate", decodeAck(t, rec).Status)

	rec = ts.webhook(t, charge("bob", models.PaymentPurposeTopUp, "PSK-top", 250000))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.webhook(t, charge("bob", models.PaymentPurposeTopUp, "PSK-top", 250000))
	require.Equal(t, "duplicate", decodeAck(t, rec).Status)
	requireNaira(t, 4000, ts.balance(t, "bob"))

	// Same reference, different amount.
	rec = ts.webhook(t, charge("bob", models.PaymentPurposeTopUp, "PSK-top", 999900))
	require.Equal(t, http.StatusOK, rec.Code)
	ack := decodeAck(t, rec)
	require.Equal(t, "rejected", ack.Status)
	require.Equal(t, "idempotency_conflict", ack.Code)

	rec = ts.webhook(t, charge("ghost", models.PaymentPurposeTopUp, "PSK-ghost", 1000))
	require.Equal(t, "account_not_found", decodeAck(t, rec).Code)

	event := charge("bob", models.PaymentPurposeTopUp, "PSK-x", 1000)
	event.Event = "transfer.success"
	rec = ts.webhook(t, event)
	require.Equal(t, "ignored", decodeAck(t, rec).Status)
	requireNaira(t, 4000, ts.balance(t, "bob"))
}

func TestWithdrawalLifecycle(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice", "")
	userToken := ts.token(t, "alice", "")
	adminToken := ts.token(t, "ops", RoleAdmin)

	body := models.WithdrawalRequestBody{
		Amount: decimal.NewFromInt(2000),
		Bank:   models.BankDetails{BankName: "GTBank", AccountNumber: "0123456789", AccountName: "Alice A"},
	}

	rec := ts.do(t, http.MethodPost, "/v1/withdrawals", userToken, body, nil)
	require.Equal(t, http.StatusConflict, rec.Code, "inactive accounts cannot withdraw")

	require.Equal(t, http.StatusOK, ts.webhook(t, charge("alice", models.PaymentPurposeActivation, "PSK-act", 100000)).Code)
	require.Equal(t, http.StatusOK, ts.webhook(t, charge("alice", models.PaymentPurposeTopUp, "PSK-top", 500000)).Code)
	requireNaira(t, 6500, ts.balance(t, "alice"))

	headers := map[string]string{IdempotencyKeyHeader: "wd-1"}
	rec = ts.do(t, http.MethodPost, "/v1/withdrawals", userToken, body, headers)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created models.SettlementResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.WithdrawalId)
	requireNaira(t, 4450, created.NewBalance)

	rec = ts.do(t, http.MethodPost, "/v1/withdrawals", userToken, body, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	var replayed models.SettlementResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &replayed))
	require.True(t, replayed.Replayed)
	require.Equal(t, created.WithdrawalId, replayed.WithdrawalId)
	requireNaira(t, 4450, ts.balance(t, "alice"))

	small := body
	small.Amount = decimal.NewFromInt(10)
	rec = ts.do(t, http.MethodPost, "/v1/withdrawals", userToken, small, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/v1/admin/withdrawals?status=pending", adminToken, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var queue []models.WithdrawalRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &queue))
	require.Len(t, queue, 1)
	requireNaira(t, 2050, queue[0].Total)

	rec = ts.do(t, http.MethodGet, "/v1/withdrawals/"+created.WithdrawalId, ts.token(t, "mallory", ""), nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	path := "/v1/admin/withdrawals/" + created.WithdrawalId
	rec = ts.do(t, http.MethodPost, path+"/reject", adminToken, nil, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	requireNaira(t, 6500, ts.balance(t, "alice"))

	rec = ts.do(t, http.MethodPost, path+"/reject", adminToken, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodPost, path+"/approve", adminToken, nil, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	requireNaira(t, 6500, ts.balance(t, "alice"))

	rec = ts.do(t, http.MethodGet, "/v1/withdrawals/"+created.WithdrawalId, userToken, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var record models.WithdrawalRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	require.Equal(t, models.WithdrawalFailed, record.Status)

	rec = ts.do(t, http.MethodGet, "/v1/admin/accounts/alice/reconcile", adminToken, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"balanced":true`)
}

func TestStreakAndRewards(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice", "")
	userToken := ts.token(t, "alice", "")
	adminToken := ts.token(t, "ops", RoleAdmin)
	require.Equal(t, http.StatusOK, ts.webhook(t, charge("alice", models.PaymentPurposeActivation, "PSK-act", 100000)).Code)

	rec := ts.do(t, http.MethodPost, "/v1/streak/claim", userToken, nil, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var claimed models.SettlementResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &claimed))
	require.Equal(t, 1, claimed.StreakDay)
	requireNaira(t, 50, claimed.Amount)

	rec = ts.do(t, http.MethodPost, "/v1/streak/claim", userToken, nil, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "already_claimed_today")

	rec = ts.do(t, http.MethodGet, "/v1/streak", userToken, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view settlement.StreakView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.True(t, view.ClaimedToday)
	require.Equal(t, 2, view.NextStreak)

	task := models.TaskRewardRequest{UserId: "alice", TaskId: "survey-7", Amount: decimal.NewFromInt(120)}
	rec = ts.do(t, http.MethodPost, "/v1/admin/tasks/rewards", userToken, task, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	rec = ts.do(t, http.MethodPost, "/v1/admin/tasks/rewards", adminToken, task, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = ts.do(t, http.MethodPost, "/v1/admin/tasks/rewards", adminToken, task, nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	task.Amount = decimal.RequireFromString("1.005")
	task.TaskId = "survey-8"
	rec = ts.do(t, http.MethodPost, "/v1/admin/tasks/rewards", adminToken, task, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	requireNaira(t, 1670, ts.balance(t, "alice"))

	rec = ts.do(t, http.MethodGet, "/v1/accounts/me/entries?limit=2", userToken, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []models.EntryRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	require.Equal(t, models.KindTaskReward, entries[0].Kind)

	rec = ts.do(t, http.MethodGet, "/v1/accounts/me/entries?limit=abc", userToken, nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind settlement.Kind
		want int
	}{
		{settlement.KindValidation, http.StatusBadRequest},
		{settlement.KindNotFound, http.StatusNotFound},
		{settlement.KindPrecondition, http.StatusConflict},
		{settlement.KindConflict, http.StatusConflict},
		{settlement.KindRetryable, http.StatusServiceUnavailable},
		{settlement.KindInvariant, http.StatusInternalServerError},
		{settlement.KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			require.Equal(t, tt.want, statusFor(tt.kind))
		})
	}
}
