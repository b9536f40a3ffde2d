package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"festival-system/internal/config"
	"festival-system/internal/logger"
)

const testSigningSecret = "whsec_test_secret"

// signPayload собирает заголовок stripe-signature по документированной схеме
// t=<ts>,v1=<hmac-sha256("<ts>.<payload>")>.
func signPayload(t *testing.T, payload []byte, secret string, ts time.Time) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d", ts.Unix())))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func newTestClient() *Client {
	log := logger.New(&config.LoggerConfig{Level: "error", Format: "json"})
	return NewClient(&config.StripeConfig{APIKey: "sk_test", SigningSecret: testSigningSecret, Currency: "usd"}, log)
}

func chargeSucceededPayload() []byte {
	return []byte(`{
		"id": "evt_1",
		"api_version": "2023-10-16",
		"type": "charge.succeeded",
		"data": {
			"object": {
				"id": "ch_1",
				"object": "charge",
				"payment_intent": "pi_123",
				"metadata": {"accountId": "abc", "TICKET": "2"}
			}
		}
	}`)
}

func TestVerifyWebhook_ChargeSucceeded(t *testing.T) {
	c := newTestClient()
	payload := chargeSucceededPayload()
	header := signPayload(t, payload, testSigningSecret, time.Now())

	event, err := c.VerifyWebhook(payload, header)
	if err != nil {
		t.Fatalf("expected verified event, got %v", err)
	}
	if event.Type != EventTypeChargeSucceeded {
		t.Fatalf("unexpected type: %s", event.Type)
	}
	if event.Charge == nil || event.Charge.PaymentIntentID != "pi_123" {
		t.Fatalf("unexpected charge: %+v", event.Charge)
	}
	if event.Charge.Metadata["TICKET"] != "2" {
		t.Fatalf("metadata not carried: %+v", event.Charge.Metadata)
	}
}

func TestVerifyWebhook_BadSignature(t *testing.T) {
	c := newTestClient()
	payload := chargeSucceededPayload()
	header := signPayload(t, payload, "whsec_wrong", time.Now())

	if _, err := c.VerifyWebhook(payload, header); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestVerifyWebhook_StaleTimestamp(t *testing.T) {
	c := newTestClient()
	payload := chargeSucceededPayload()
	header := signPayload(t, payload, testSigningSecret, time.Now().Add(-time.Hour))

	if _, err := c.VerifyWebhook(payload, header); err == nil {
		t.Fatalf("expected tolerance error")
	}
}

func TestVerifyWebhook_OtherEventType(t *testing.T) {
	c := newTestClient()
	payload := []byte(`{"id": "evt_2", "api_version": "2023-10-16", "type": "payment_intent.created", "data": {"object": {}}}`)
	header := signPayload(t, payload, testSigningSecret, time.Now())

	event, err := c.VerifyWebhook(payload, header)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Type != "payment_intent.created" || event.Charge != nil {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestVerifyWebhook_MissingPaymentIntent(t *testing.T) {
	c := newTestClient()
	payload := []byte(`{
		"id": "evt_3",
		"type": "charge.succeeded",
		"data": {"object": {"id": "ch_2", "object": "charge", "metadata": {}}}
	}`)
	header := signPayload(t, payload, testSigningSecret, time.Now())

	if _, err := c.VerifyWebhook(payload, header); err == nil {
		t.Fatalf("expected error for missing payment intent")
	}
}
