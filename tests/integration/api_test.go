package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	httpHandler "paylite-payment-service/internal/adapter/http/handler"
	redisStorage "paylite-payment-service/internal/adapter/storage/redis"
	"paylite-payment-service/internal/service"
	"paylite-payment-service/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAPIKey        = "pk_test_abc123"
	testWebhookSecret = "whsec_integration_secret"
)

// testApp builds a full application stack: real HTTP layer, middleware,
// handlers and services, miniredis for the Redis stores, and in-memory
// postgres repos with commit/rollback semantics.
type testApp struct {
	server      *httptest.Server
	redis       *miniredis.Miniredis
	paymentRepo *inMemoryPaymentRepo
	idemRepo    *inMemoryIdempotencyRepo
	eventRepo   *inMemoryWebhookEventRepo
	sigSvc      *service.HMACSignatureService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)

	paymentRepo := newInMemoryPaymentRepo()
	idemRepo := newInMemoryIdempotencyRepo()
	eventRepo := newInMemoryWebhookEventRepo()
	transactor := newInMemoryTransactor()

	sigSvc := service.NewHMACSignatureService()
	idGen := service.NewUUIDGenerator()
	log := logger.New("debug", false)

	idempotencySvc := service.NewIdempotencyService(idemRepo, idempotencyCache, log)
	paymentSvc := service.NewPaymentService(paymentRepo, idempotencySvc, idGen, transactor, log)
	webhookSvc := service.NewWebhookService(eventRepo, paymentSvc, sigSvc, transactor, testWebhookSecret, log)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		PaymentSvc: paymentSvc,
		WebhookSvc: webhookSvc,
		APIKeys:    map[string]string{testAPIKey: "integration-client"},
		Logger:     log,
	})

	return &testApp{
		server:      httptest.NewServer(router),
		redis:       mr,
		paymentRepo: paymentRepo,
		idemRepo:    idemRepo,
		eventRepo:   eventRepo,
		sigSvc:      sigSvc,
	}
}

func (a *testApp) close() {
	a.server.Close()
	a.redis.Close()
}

func (a *testApp) createPayment(t *testing.T, body, idempotencyKey string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, a.server.URL+"/api/v1/payments", bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testAPIKey)
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func (a *testApp) deliverWebhook(t *testing.T, body, signature string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, a.server.URL+"/api/v1/webhooks/psp", bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-PSP-Signature", signature)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeData(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &envelope))
	data, _ := envelope["data"].(map[string]interface{})
	return data
}

// --- Integration Tests ---

func TestIntegration_HealthCheck(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp, err := http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	// No health checkers registered, so the fan-out is trivially healthy.
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIntegration_Metrics(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp, err := http.Get(app.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIntegration_CreatePayment_Lifecycle(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	body := `{"amount":100.50,"currency":"USD","customer_email":"a@b.com","reference":"order-1"}`

	// First execution creates a PENDING payment.
	resp := app.createPayment(t, body, "idem-1")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := decodeData(t, resp)
	paymentID := data["payment_id"].(string)
	assert.Contains(t, paymentID, "pl_")
	assert.Equal(t, "PENDING", data["status"])
	assert.Equal(t, 1, app.paymentRepo.count())

	// Replay with the identical body returns the original result, creates nothing.
	resp = app.createPayment(t, body, "idem-1")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data = decodeData(t, resp)
	assert.Equal(t, paymentID, data["payment_id"])
	assert.Equal(t, 1, app.paymentRepo.count())

	// Same key with a different body is a conflict, still nothing new.
	resp = app.createPayment(t, `{"amount":999.99,"currency":"USD","customer_email":"a@b.com","reference":"order-1"}`, "idem-1")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 1, app.paymentRepo.count())

	// A different key creates a second payment.
	resp = app.createPayment(t, body, "idem-2")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 2, app.paymentRepo.count())
}

func TestIntegration_CreatePayment_EquivalentAmountEncodings(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp := app.createPayment(t, `{"amount":100.50,"currency":"USD","customer_email":"a@b.com","reference":"order-1"}`, "idem-1")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := decodeData(t, resp)
	paymentID := data["payment_id"].(string)

	// 100.500 is numerically equal, so this is a replay, not a conflict.
	resp = app.createPayment(t, `{"amount":100.500,"currency":"USD","customer_email":"a@b.com","reference":"order-1"}`, "idem-1")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data = decodeData(t, resp)
	assert.Equal(t, paymentID, data["payment_id"])
	assert.Equal(t, 1, app.paymentRepo.count())
}

func TestIntegration_CreatePayment_MissingIdempotencyKey(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp := app.createPayment(t, `{"amount":100.50,"currency":"USD","customer_email":"a@b.com","reference":"order-1"}`, "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIntegration_CreatePayment_RequiresAPIKey(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	req, err := http.NewRequest(http.MethodPost, app.server.URL+"/api/v1/payments",
		bytes.NewBufferString(`{"amount":100.50,"currency":"USD","customer_email":"a@b.com","reference":"order-1"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", "idem-1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestIntegration_GetPayment(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp := app.createPayment(t, `{"amount":42.00,"currency":"EUR","customer_email":"a@b.com","reference":"order-42"}`, "idem-42")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	paymentID := decodeData(t, resp)["payment_id"].(string)

	req, err := http.NewRequest(http.MethodGet, app.server.URL+"/api/v1/payments/"+paymentID, nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", testAPIKey)
	getResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, getResp.StatusCode)
	data := decodeData(t, getResp)
	assert.Equal(t, "EUR", data["currency"])
	assert.Equal(t, "PENDING", data["status"])

	// Unknown ID is a 404.
	req, err = http.NewRequest(http.MethodGet, app.server.URL+"/api/v1/payments/pl_missing", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", testAPIKey)
	missResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer missResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, missResp.StatusCode)
}

func TestIntegration_Webhook_Reconciliation(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp := app.createPayment(t, `{"amount":100.50,"currency":"USD","customer_email":"a@b.com","reference":"order-1"}`, "idem-1")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	paymentID := decodeData(t, resp)["payment_id"].(string)

	webhookBody := `{"payment_id":"` + paymentID + `","event":"payment.succeeded"}`
	sig := app.sigSvc.Sign(testWebhookSecret, []byte(webhookBody))

	// First delivery applies the transition and records the event.
	wResp := app.deliverWebhook(t, webhookBody, sig)
	require.Equal(t, http.StatusOK, wResp.StatusCode)
	data := decodeData(t, wResp)
	assert.Equal(t, "SUCCESS", data["status"])
	assert.Equal(t, 1, app.eventRepo.count())

	p, err := app.paymentRepo.GetByPaymentID(context.Background(), paymentID)
	require.NoError(t, err)
	assert.Equal(t, "SUCCEEDED", string(p.Status))

	// Redelivery is acknowledged without a second record or transition.
	wResp = app.deliverWebhook(t, webhookBody, sig)
	require.Equal(t, http.StatusOK, wResp.StatusCode)
	wResp.Body.Close()
	assert.Equal(t, 1, app.eventRepo.count())

	// A cross-terminal event is rejected and leaves no record.
	failedBody := `{"payment_id":"` + paymentID + `","event":"payment.failed"}`
	failedSig := app.sigSvc.Sign(testWebhookSecret, []byte(failedBody))
	wResp = app.deliverWebhook(t, failedBody, failedSig)
	assert.Equal(t, http.StatusConflict, wResp.StatusCode)
	wResp.Body.Close()
	assert.Equal(t, 1, app.eventRepo.count())

	p, err = app.paymentRepo.GetByPaymentID(context.Background(), paymentID)
	require.NoError(t, err)
	assert.Equal(t, "SUCCEEDED", string(p.Status))
}

func TestIntegration_Webhook_TamperedSignature(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp := app.createPayment(t, `{"amount":100.50,"currency":"USD","customer_email":"a@b.com","reference":"order-1"}`, "idem-1")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	paymentID := decodeData(t, resp)["payment_id"].(string)

	signedBody := `{"payment_id":"` + paymentID + `","event":"payment.succeeded"}`
	sig := app.sigSvc.Sign(testWebhookSecret, []byte(signedBody))

	// Body altered after signing: rejected before any processing.
	tamperedBody := `{"payment_id":"` + paymentID + `","event":"payment.failed"}`
	wResp := app.deliverWebhook(t, tamperedBody, sig)
	defer wResp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, wResp.StatusCode)
	assert.Equal(t, 0, app.eventRepo.count())

	// Missing signature is rejected the same way.
	wResp2 := app.deliverWebhook(t, signedBody, "")
	defer wResp2.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, wResp2.StatusCode)
}

func TestIntegration_Webhook_UnknownEvent(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp := app.createPayment(t, `{"amount":100.50,"currency":"USD","customer_email":"a@b.com","reference":"order-1"}`, "idem-1")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	paymentID := decodeData(t, resp)["payment_id"].(string)

	body := `{"payment_id":"` + paymentID + `","event":"payment.refunded"}`
	sig := app.sigSvc.Sign(testWebhookSecret, []byte(body))
	wResp := app.deliverWebhook(t, body, sig)
	defer wResp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, wResp.StatusCode)
	assert.Equal(t, 0, app.eventRepo.count())
}

func TestIntegration_Webhook_UnknownPayment(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	body := `{"payment_id":"pl_missing","event":"payment.succeeded"}`
	sig := app.sigSvc.Sign(testWebhookSecret, []byte(body))
	wResp := app.deliverWebhook(t, body, sig)
	defer wResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, wResp.StatusCode)
	assert.Equal(t, 0, app.eventRepo.count())
}
