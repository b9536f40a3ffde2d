package models

import (
	"time"

	"github.com/google/uuid"
)

// Purchase представляет оплаченную единицу покупки. Одна строка — одна единица:
// каждая единица адресуется и передаётся отдельно, количества нет.
// Строки создаются только после успешного платежа и никогда не изменяются.
type Purchase struct {
	PurchaseID          uuid.UUID  `json:"purchase_id" db:"purchase_id"`
	PurchaseTypeID      string     `json:"purchase_type_id" db:"purchase_type_id"`
	OwnedByAccountID    *uuid.UUID `json:"owned_by_account_id,omitempty" db:"owned_by_account_id"`
	StripePaymentIntent string     `json:"stripe_payment_intent" db:"stripe_payment_intent"`
	PurchasedOn         time.Time  `json:"purchased_on" db:"purchased_on"`
}

// PurchaseLine представляет строку расчёта стоимости.
type PurchaseLine struct {
	PurchaseTypeID       string `json:"purchase_type_id"`
	Description          string `json:"description"`
	Quantity             int    `json:"quantity"`
	UnitPriceCents       int64  `json:"unit_price_cents"`
	DiscountedPriceCents int64  `json:"discounted_price_cents"` // итог по строке после скидок
}

// CreateIntentRequest описывает запрос на создание платёжного намерения.
// Количества приходят как числа JSON и до расчёта проходят санитизацию.
type CreateIntentRequest struct {
	Purchases     map[string]float64 `json:"purchases"`
	DiscountCodes []string           `json:"discount_codes"`
}

// CreateIntentResponse возвращает client secret платёжного процессора.
type CreateIntentResponse struct {
	StripeClientSecret string `json:"stripe_client_secret"`
}

// AttendeeInput описывает участника в запросе на создание.
type AttendeeInput struct {
	Name           string  `json:"name"`
	Age            *int    `json:"age,omitempty"`
	Diet           *string `json:"diet,omitempty"`
	DiscordHandle  *string `json:"discord_handle,omitempty"`
	TwitterHandle  *string `json:"twitter_handle,omitempty"`
	PlanningToCamp bool    `json:"planning_to_camp"`
	Notes          string  `json:"notes"`
}

// CreateAttendeesRequest описывает пакетное создание участников.
type CreateAttendeesRequest struct {
	FestivalID uuid.UUID       `json:"festival_id"`
	Attendees  []AttendeeInput `json:"attendees"`
}

// Attendee представляет участника фестиваля, привязанного к аккаунту.
type Attendee struct {
	AttendeeID          uuid.UUID `json:"attendee_id" db:"attendee_id"`
	FestivalID          uuid.UUID `json:"festival_id" db:"festival_id"`
	AssociatedAccountID uuid.UUID `json:"associated_account_id" db:"associated_account_id"`
	Name                string    `json:"name" db:"name"`
	Age                 *int      `json:"age,omitempty" db:"age"`
	Diet                *string   `json:"diet,omitempty" db:"diet"`
	DiscordHandle       *string   `json:"discord_handle,omitempty" db:"discord_handle"`
	TwitterHandle       *string   `json:"twitter_handle,omitempty" db:"twitter_handle"`
	PlanningToCamp      bool      `json:"planning_to_camp" db:"planning_to_camp"`
	Notes               string    `json:"notes" db:"notes"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
}

// SalesSummaryLine агрегирует продажи по типу покупки.
type SalesSummaryLine struct {
	PurchaseTypeID string `json:"purchase_type_id"`
	Description    string `json:"description"`
	SoldCount      int    `json:"sold_count"`
	MaxAvailable   *int   `json:"max_available,omitempty"`
	RevenueCents   int64  `json:"revenue_cents"`
}
