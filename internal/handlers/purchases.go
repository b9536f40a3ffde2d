package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"festival-system/internal/logger"
	"festival-system/internal/models"
	"festival-system/internal/payments"
)

// Вебхуки процессора ограничены по размеру тела: защищает разбор подписи.
const maxWebhookBodyBytes = 65536

// PurchaseHandler обслуживает создание платёжных намерений, вебхук
// процессора и создание участников.
type PurchaseHandler struct {
	purchaseService PurchaseService
	attendeeService AttendeeService
	verifier        WebhookVerifier
	log             *logger.Logger
}

// NewPurchaseHandler создаёт обработчик покупок.
func NewPurchaseHandler(purchaseService PurchaseService, attendeeService AttendeeService, verifier WebhookVerifier, log *logger.Logger) *PurchaseHandler {
	return &PurchaseHandler{
		purchaseService: purchaseService,
		attendeeService: attendeeService,
		verifier:        verifier,
		log:             log,
	}
}

// CreateIntent создаёт платёжное намерение для набора покупок.
func (h *PurchaseHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req models.CreateIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	clientSecret, err := h.purchaseService.CreateIntent(r.Context(), claims.AccountID, req.Purchases, req.DiscountCodes)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create payment intent")
		return
	}

	writeJSONResponse(w, http.StatusOK, models.CreateIntentResponse{StripeClientSecret: clientSecret})
}

// Record обрабатывает вебхук платёжного процессора. Подпись проверяется до
// любого обращения к содержимому; события кроме успешного платежа
// подтверждаются без действий.
func (h *PurchaseHandler) Record(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	event, err := h.verifier.VerifyWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.log.WithError(err).Warn("Webhook verification failed")
		writeErrorResponse(w, http.StatusBadRequest, "Webhook verification failed")
		return
	}

	if event.Type != payments.EventTypeChargeSucceeded {
		h.log.WithField("event_type", event.Type).Debug("Ignoring webhook event")
		writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if err := h.purchaseService.RecordFulfillment(r.Context(), event.Charge.PaymentIntentID, event.Charge.Metadata); err != nil {
		writeServiceError(w, h.log, err, "Failed to record fulfillment")
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "recorded"})
}

// ListAttendees возвращает участников текущего аккаунта.
func (h *PurchaseHandler) ListAttendees(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	attendees, err := h.attendeeService.ListAttendees(r.Context(), claims.AccountID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list attendees")
		return
	}

	writeJSONResponse(w, http.StatusOK, attendees)
}

// CreateAttendees создаёт участников пачкой.
func (h *PurchaseHandler) CreateAttendees(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req models.CreateAttendeesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	attendees, err := h.attendeeService.CreateAttendees(r.Context(), claims.AccountID, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create attendees")
		return
	}

	writeJSONResponse(w, http.StatusCreated, attendees)
}
