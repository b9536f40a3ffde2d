package models

import (
	"time"

	"github.com/google/uuid"
)

// PurchaseType представляет покупаемую позицию (билет, автобус, инвентарь).
// Справочные данные, загружаются один раз на старте процесса.
type PurchaseType struct {
	PurchaseTypeID string    `json:"purchase_type_id" db:"purchase_type_id"`
	Description    string    `json:"description" db:"description"`
	PriceInCents   int64     `json:"price_in_cents" db:"price_in_cents"`
	MaxAvailable   *int      `json:"max_available,omitempty" db:"max_available"`     // nil = без глобального лимита
	MaxPerAccount  *int      `json:"max_per_account,omitempty" db:"max_per_account"` // nil = без лимита на аккаунт
	FestivalID     uuid.UUID `json:"festival_id" db:"festival_id"`
}

// Festival представляет фестиваль.
type Festival struct {
	FestivalID   uuid.UUID `json:"festival_id" db:"festival_id"`
	FestivalName string    `json:"festival_name" db:"festival_name"`
	StartDate    time.Time `json:"start_date" db:"start_date"`
	EndDate      time.Time `json:"end_date" db:"end_date"`
	SalesAreOpen bool      `json:"sales_are_open" db:"sales_are_open"`
}

// DiscountType описывает тип скидки.
type DiscountType string

const (
	DiscountTypeFixed   DiscountType = "fixed"   // фиксированная сумма в центах
	DiscountTypePercent DiscountType = "percent" // процент от строки заказа
)

// Discount представляет скидку, привязанную к типу покупки.
// Коды сравниваются без учёта регистра.
type Discount struct {
	DiscountID     string       `json:"discount_id" db:"discount_id"`
	DiscountCode   string       `json:"discount_code" db:"discount_code"`
	DiscountType   DiscountType `json:"discount_type" db:"discount_type"`
	Amount         int64        `json:"amount" db:"amount"` // центы для fixed, проценты (0-100) для percent
	PurchaseTypeID string       `json:"purchase_type_id" db:"purchase_type_id"`
}
