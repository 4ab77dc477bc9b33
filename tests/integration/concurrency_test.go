package integration

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests drive the real HTTP stack from many goroutines to exercise the
// insert races that production resolves with unique constraints: exactly one
// payment per idempotency key and exactly one record per webhook event,
// regardless of interleaving.

func TestConcurrency_SameIdempotencyKey_CreatesOnePayment(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	const workers = 20
	body := `{"amount":100.50,"currency":"USD","customer_email":"a@b.com","reference":"order-1"}`

	var wg sync.WaitGroup
	statuses := make([]int, workers)
	paymentIDs := make([]string, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp := app.createPayment(t, body, "idem-race")
			statuses[i] = resp.StatusCode
			if resp.StatusCode == http.StatusCreated {
				data := decodeData(t, resp)
				paymentIDs[i], _ = data["payment_id"].(string)
			} else {
				resp.Body.Close()
			}
		}(i)
	}
	wg.Wait()

	// Every caller sees the same successful outcome.
	for i := 0; i < workers; i++ {
		assert.Equal(t, http.StatusCreated, statuses[i], "request %d", i)
	}

	first := paymentIDs[0]
	require.NotEmpty(t, first)
	for i := 1; i < workers; i++ {
		assert.Equal(t, first, paymentIDs[i], "request %d got a different payment", i)
	}

	assert.Equal(t, 1, app.paymentRepo.count())
	assert.Equal(t, 1, app.idemRepo.count())
}

func TestConcurrency_DistinctKeys_CreateDistinctPayments(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	const workers = 10
	body := `{"amount":100.50,"currency":"USD","customer_email":"a@b.com","reference":"order-1"}`

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp := app.createPayment(t, body, "idem-"+string(rune('a'+i)))
			assert.Equal(t, http.StatusCreated, resp.StatusCode)
			resp.Body.Close()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, workers, app.paymentRepo.count())
	assert.Equal(t, workers, app.idemRepo.count())
}

func TestConcurrency_SameWebhookEvent_RecordsOnce(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp := app.createPayment(t, `{"amount":100.50,"currency":"USD","customer_email":"a@b.com","reference":"order-1"}`, "idem-1")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	paymentID := decodeData(t, resp)["payment_id"].(string)

	body := `{"payment_id":"` + paymentID + `","event":"payment.succeeded"}`
	sig := app.sigSvc.Sign(testWebhookSecret, []byte(body))

	const workers = 20
	var wg sync.WaitGroup
	statuses := make([]int, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			wResp := app.deliverWebhook(t, body, sig)
			statuses[i] = wResp.StatusCode
			wResp.Body.Close()
		}(i)
	}
	wg.Wait()

	// Every delivery is acknowledged; only one left a record.
	for i := 0; i < workers; i++ {
		assert.Equal(t, http.StatusOK, statuses[i], "delivery %d", i)
	}
	assert.Equal(t, 1, app.eventRepo.count())

	p, err := app.paymentRepo.GetByPaymentID(context.Background(), paymentID)
	require.NoError(t, err)
	assert.Equal(t, "SUCCEEDED", string(p.Status))
}
