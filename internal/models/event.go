package models

import (
	"time"

	"github.com/google/uuid"
)

// FestivalEvent представляет событие в расписании фестиваля.
type FestivalEvent struct {
	EventID            uuid.UUID  `json:"event_id" db:"event_id"`
	Name               string     `json:"name" db:"name"`
	Description        string     `json:"description" db:"description"`
	StartDatetime      time.Time  `json:"start_datetime" db:"start_datetime"`
	EndDatetime        *time.Time `json:"end_datetime,omitempty" db:"end_datetime"`
	PlaintextLocation  *string    `json:"plaintext_location,omitempty" db:"plaintext_location"`
	CreatedByAccountID uuid.UUID  `json:"created_by_account_id" db:"created_by_account_id"`
	Bookmarked         bool       `json:"bookmarked"`
}

// SaveEventRequest описывает создание или обновление события.
type SaveEventRequest struct {
	Name              string     `json:"name"`
	Description       string     `json:"description"`
	StartDatetime     time.Time  `json:"start_datetime"`
	EndDatetime       *time.Time `json:"end_datetime,omitempty"`
	PlaintextLocation *string    `json:"plaintext_location,omitempty"`
}
