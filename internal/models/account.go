package models

import (
	"time"

	"github.com/google/uuid"
)

// Account представляет учётную запись в системе.
type Account struct {
	AccountID             uuid.UUID `json:"account_id" db:"account_id"`
	EmailAddress          string    `json:"email_address" db:"email_address"`
	PasswordHash          string    `json:"-" db:"password_hash"`
	IsSeedAccount         bool      `json:"is_seed_account" db:"is_seed_account"`
	IsApplicationAccepted *bool     `json:"is_application_accepted,omitempty" db:"is_application_accepted"`
	AccountNotes          string    `json:"-" db:"account_notes"`
	CreatedAt             time.Time `json:"created_at" db:"created_at"`
}

// InviteCode представляет инвайт-код, выдаваемый аккаунтам.
type InviteCode struct {
	Code               string     `json:"code" db:"code"`
	FestivalID         uuid.UUID  `json:"festival_id" db:"festival_id"`
	CreatedByAccountID uuid.UUID  `json:"created_by_account_id" db:"created_by_account_id"`
	UsedByAccountID    *uuid.UUID `json:"used_by_account_id,omitempty" db:"used_by_account_id"`
}

// SignupRequest описывает запрос на регистрацию.
type SignupRequest struct {
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
	InviteCode   string `json:"invite_code"`
}

// LoginRequest описывает запрос на вход.
type LoginRequest struct {
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
}

// AuthResponse возвращает JWT после регистрации или входа.
type AuthResponse struct {
	Jwt string `json:"jwt"`
}

// SubmitInviteCodeRequest описывает применение инвайт-кода к существующему аккаунту.
type SubmitInviteCodeRequest struct {
	InviteCode string `json:"invite_code"`
}

// AccountInfo агрегирует данные аккаунта для личного кабинета.
type AccountInfo struct {
	AccountID         uuid.UUID    `json:"account_id"`
	EmailAddress      string       `json:"email_address"`
	AllowedToPurchase bool         `json:"allowed_to_purchase"`
	InviteCodes       []InviteCode `json:"invite_codes"`
	Purchases         []Purchase   `json:"purchases"`
}
