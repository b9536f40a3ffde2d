package payments

import (
	"context"
	"encoding/json"
	"fmt"

	"festival-system/internal/config"
	"festival-system/internal/logger"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// EventTypeChargeSucceeded — единственный тип вебхука, который мы обрабатываем.
const EventTypeChargeSucceeded = "charge.succeeded"

// WebhookEvent — проверенное и разобранное уведомление процессора.
type WebhookEvent struct {
	Type   string
	Charge *ChargeSucceeded
}

// ChargeSucceeded содержит данные успешного платежа, нужные для фиксации покупок.
type ChargeSucceeded struct {
	PaymentIntentID string
	Metadata        map[string]string
}

// Client оборачивает Stripe SDK: создание платёжных намерений и проверка вебхуков.
type Client struct {
	api           *client.API
	currency      string
	signingSecret string
	log           *logger.Logger
}

// NewClient создаёт клиента Stripe.
func NewClient(cfg *config.StripeConfig, log *logger.Logger) *Client {
	api := &client.API{}
	api.Init(cfg.APIKey, nil)

	return &Client{
		api:           api,
		currency:      cfg.Currency,
		signingSecret: cfg.SigningSecret,
		log:           log,
	}
}

// CreatePaymentIntent создаёт платёжное намерение на сумму в центах.
// Метаданные — единственное место, где процессор хранит состав заказа,
// поэтому они обязаны полностью описывать покупку.
func (c *Client) CreatePaymentIntent(ctx context.Context, amountCents int64, metadata map[string]string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(c.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for key, value := range metadata {
		params.AddMetadata(key, value)
	}

	intent, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create payment intent: %w", err)
	}
	if intent.ClientSecret == "" {
		return "", fmt.Errorf("payment intent %s has no client secret", intent.ID)
	}

	c.log.WithField("payment_intent", intent.ID).Info("Payment intent created")

	return intent.ClientSecret, nil
}

// VerifyWebhook проверяет подпись уведомления и разбирает полезную нагрузку.
// Непроверенное или повреждённое уведомление возвращает ошибку до любого
// обращения к содержимому.
func (c *Client) VerifyWebhook(payload []byte, signatureHeader string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signatureHeader, c.signingSecret)
	if err != nil {
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}

	result := &WebhookEvent{Type: string(event.Type)}
	if result.Type != EventTypeChargeSucceeded {
		return result, nil
	}

	var charge stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
		return nil, fmt.Errorf("failed to decode charge payload: %w", err)
	}

	paymentIntentID := ""
	if charge.PaymentIntent != nil {
		paymentIntentID = charge.PaymentIntent.ID
	}
	if paymentIntentID == "" {
		return nil, fmt.Errorf("charge %s has no payment intent reference", charge.ID)
	}

	result.Charge = &ChargeSucceeded{
		PaymentIntentID: paymentIntentID,
		Metadata:        charge.Metadata,
	}

	return result, nil
}
