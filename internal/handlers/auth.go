package handlers

import (
	"encoding/json"
	"net/http"

	"festival-system/internal/logger"
	"festival-system/internal/models"
)

// AuthHandler обслуживает регистрацию, вход и личный кабинет.
type AuthHandler struct {
	authService AuthService
	log         *logger.Logger
}

// NewAuthHandler создаёт обработчик аутентификации.
func NewAuthHandler(authService AuthService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		log:         log,
	}
}

// Signup регистрирует аккаунт и возвращает JWT.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.authService.Signup(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to sign up")
		return
	}

	writeJSONResponse(w, http.StatusCreated, resp)
}

// Login проверяет пароль и возвращает JWT.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to log in")
		return
	}

	writeJSONResponse(w, http.StatusOK, resp)
}

// Account возвращает данные личного кабинета.
func (h *AuthHandler) Account(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	info, err := h.authService.AccountInfo(r.Context(), claims.AccountID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load account")
		return
	}

	writeJSONResponse(w, http.StatusOK, info)
}

// SubmitInviteCode применяет инвайт-код к текущему аккаунту.
func (h *AuthHandler) SubmitInviteCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req models.SubmitInviteCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.authService.SubmitInviteCode(r.Context(), claims.AccountID, req.InviteCode); err != nil {
		writeServiceError(w, h.log, err, "Failed to claim invite code")
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "claimed"})
}
