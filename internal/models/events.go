package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType описывает тип доменного события для Kafka.
type EventType string

const (
	EventTypePurchaseRecorded  EventType = "purchase.recorded"
	EventTypeFulfillmentFailed EventType = "purchase.fulfillment_failed"
	EventTypeAttendeesCreated  EventType = "registration.attendees_created"
	EventTypeAccountRegistered EventType = "registration.account_registered"
)

// Event представляет доменное событие, публикуемое в Kafka.
type Event struct {
	ID        uuid.UUID   `json:"id"`
	Type      EventType   `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// PurchaseRecordedPayload — данные события об успешной фиксации покупок.
type PurchaseRecordedPayload struct {
	PaymentIntentID string         `json:"payment_intent_id"`
	AccountID       *uuid.UUID     `json:"account_id,omitempty"`
	Counts          map[string]int `json:"counts"`
}

// FulfillmentFailedPayload — данные события о сорванной фиксации платежа.
// Платёж уже прошёл, поэтому событие обрабатывается поддержкой (возврат средств).
type FulfillmentFailedPayload struct {
	PaymentIntentID string `json:"payment_intent_id"`
	PurchaseTypeID  string `json:"purchase_type_id"`
	Reason          string `json:"reason"`
}

// AttendeesCreatedPayload — данные события о регистрации участников.
type AttendeesCreatedPayload struct {
	AccountID  uuid.UUID `json:"account_id"`
	FestivalID uuid.UUID `json:"festival_id"`
	Count      int       `json:"count"`
}
