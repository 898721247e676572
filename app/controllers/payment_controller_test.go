package controllers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/ResumeFox/internal/pkg/credits"
)

const testWebhookSecret = "whsec_test"

type fakeSettlement struct {
	outcome credits.SettleOutcome
	err     error
	calls   int
	last    *credits.RazorpayWebhookEvent
}

func (f *fakeSettlement) Settle(_ context.Context, event *credits.RazorpayWebhookEvent) (credits.SettleOutcome, error) {
	f.calls++
	f.last = event
	return f.outcome, f.err
}

func newWebhookApp(t *testing.T, fake *fakeSettlement) *fiber.App {
	t.Helper()
	t.Setenv("RAZORPAY_WEBHOOK_SECRET", testWebhookSecret)

	orig := newSettlementService
	newSettlementService = func() settlementService { return fake }
	t.Cleanup(func() { newSettlementService = orig })

	app := fiber.New()
	app.Post("/webhooks/razorpay", HandleRazorpayWebhook)
	return app
}

func signBody(body string) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func capturedWebhookBody(paymentID string) string {
	return `{"entity":"event","event":"payment.captured","payload":{"payment":{"entity":{` +
		`"id":"` + paymentID + `","order_id":"order_1","amount":19900,"currency":"INR",` +
		`"method":"upi","status":"captured","notes":{"user_id":"7","plan":"basic"}}}}}`
}

func postWebhook(t *testing.T, app *fiber.App, body, signature string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/razorpay", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Razorpay-Signature", signature)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]interface{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func TestWebhookTamperedBodyNeverReachesSettlement(t *testing.T) {
	fake := &fakeSettlement{}
	app := newWebhookApp(t, fake)

	// Signature was computed over a different body.
	original := capturedWebhookBody("pay_sig")
	tampered := strings.Replace(original, `"amount":19900`, `"amount":1`, 1)

	resp, body := postWebhook(t, app, tampered, signBody(original))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid_signature", body["error"])
	assert.Zero(t, fake.calls)
}

func TestWebhookMissingSignatureRejected(t *testing.T) {
	fake := &fakeSettlement{}
	app := newWebhookApp(t, fake)

	resp, _ := postWebhook(t, app, capturedWebhookBody("pay_nosig"), "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, fake.calls)
}

func TestWebhookReplayAcknowledgedAsDuplicate(t *testing.T) {
	fake := &fakeSettlement{outcome: credits.SettleOutcomeIgnored, err: credits.ErrDuplicateSettlement}
	app := newWebhookApp(t, fake)

	body := capturedWebhookBody("pay_dup")
	resp, decoded := postWebhook(t, app, body, signBody(body))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decoded["duplicate"])
	assert.Equal(t, 1, fake.calls)
	require.NotNil(t, fake.last)
	assert.Equal(t, "pay_dup", fake.last.GatewayPaymentID)
}

func TestWebhookAuthenticButMalformedBodyAcknowledged(t *testing.T) {
	fake := &fakeSettlement{}
	app := newWebhookApp(t, fake)

	body := `{"event":`
	resp, decoded := postWebhook(t, app, body, signBody(body))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decoded["ignored"])
	assert.Zero(t, fake.calls)
}

func TestWebhookUnhandledEventAcknowledged(t *testing.T) {
	fake := &fakeSettlement{}
	app := newWebhookApp(t, fake)

	body := `{"entity":"event","event":"invoice.paid","payload":{}}`
	resp, decoded := postWebhook(t, app, body, signBody(body))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decoded["ignored"])
	assert.Zero(t, fake.calls)
}

func TestWebhookTransientStoreFailureReturns500(t *testing.T) {
	fake := &fakeSettlement{outcome: credits.SettleOutcomeIgnored, err: errors.New("connection reset")}
	app := newWebhookApp(t, fake)

	body := capturedWebhookBody("pay_transient")
	resp, decoded := postWebhook(t, app, body, signBody(body))
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "settlement_failed", decoded["error"])
	assert.Equal(t, 1, fake.calls)
}
