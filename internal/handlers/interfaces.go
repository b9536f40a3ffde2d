package handlers

import (
	"context"

	"festival-system/internal/models"
	"festival-system/internal/payments"
	"festival-system/internal/services"

	"github.com/google/uuid"
)

// ----- Auth -----

type AuthService interface {
	Signup(ctx context.Context, req *models.SignupRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error)
	SubmitInviteCode(ctx context.Context, accountID uuid.UUID, code string) error
	AccountInfo(ctx context.Context, accountID uuid.UUID) (*models.AccountInfo, error)
}

type TokenParser interface {
	ParseToken(token string) (*services.AuthClaims, error)
}

// ----- Purchases -----

type PurchaseService interface {
	CreateIntent(ctx context.Context, accountID uuid.UUID, counts map[string]float64, discountCodes []string) (string, error)
	RecordFulfillment(ctx context.Context, paymentIntentID string, metadata map[string]string) error
}

type WebhookVerifier interface {
	VerifyWebhook(payload []byte, signatureHeader string) (*payments.WebhookEvent, error)
}

type AttendeeService interface {
	CreateAttendees(ctx context.Context, accountID uuid.UUID, req *models.CreateAttendeesRequest) ([]models.Attendee, error)
	ListAttendees(ctx context.Context, accountID uuid.UUID) ([]models.Attendee, error)
}

// ----- Events -----

type EventService interface {
	ListEvents(ctx context.Context, accountID uuid.UUID) ([]models.FestivalEvent, error)
	CreateEvent(ctx context.Context, accountID uuid.UUID, req *models.SaveEventRequest) (*models.FestivalEvent, error)
	UpdateEvent(ctx context.Context, accountID uuid.UUID, isAdmin bool, eventID uuid.UUID, req *models.SaveEventRequest) (*models.FestivalEvent, error)
	DeleteEvent(ctx context.Context, accountID uuid.UUID, isAdmin bool, eventID uuid.UUID) error
	Bookmark(ctx context.Context, accountID uuid.UUID, eventID uuid.UUID) error
	Unbookmark(ctx context.Context, accountID uuid.UUID, eventID uuid.UUID) error
}

// ----- Pages -----

type PageService interface {
	ListPages(ctx context.Context, isAuthenticated, isAdmin bool) ([]models.Page, error)
	GetPage(ctx context.Context, pageID string, isAuthenticated, isAdmin bool) (*models.Page, error)
	UpsertPage(ctx context.Context, req *models.UpsertPageRequest) (*models.Page, error)
}

// ----- Admin -----

type FestivalService interface {
	SetSalesOpen(ctx context.Context, festivalID uuid.UUID, open bool) (*models.Festival, error)
}

type SalesReportProvider interface {
	FestivalSummary(ctx context.Context, festivalID uuid.UUID) (*services.SalesReport, error)
	OverallSummary(ctx context.Context) (*services.SalesReport, error)
}

// ----- Health -----

type DBHealth interface {
	Health() error
}

type RedisHealth interface {
	Health(ctx context.Context) error
}
