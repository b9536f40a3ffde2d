package handlers

import (
	"encoding/json"
	"net/http"

	"festival-system/internal/logger"
	"festival-system/internal/models"
)

// PageHandler обслуживает информационные страницы.
type PageHandler struct {
	pageService PageService
	log         *logger.Logger
}

// NewPageHandler создаёт обработчик страниц.
func NewPageHandler(pageService PageService, log *logger.Logger) *PageHandler {
	return &PageHandler{
		pageService: pageService,
		log:         log,
	}
}

// HandlePages диспетчеризует /api/pages: чтение доступно всем с учётом
// уровня страницы, запись только администраторам.
func (h *PageHandler) HandlePages(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listPages(w, r)
	case http.MethodPost:
		h.upsertPage(w, r)
	default:
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// GetPage возвращает одну страницу по /api/pages/{id}.
func (h *PageHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	pageID, err := extractSlugFromPath(r.URL.Path, "/api/pages/")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid page ID")
		return
	}

	isAuthenticated, isAdmin := h.callerLevel(r)
	page, err := h.pageService.GetPage(r.Context(), pageID, isAuthenticated, isAdmin)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load page")
		return
	}

	writeJSONResponse(w, http.StatusOK, page)
}

func (h *PageHandler) listPages(w http.ResponseWriter, r *http.Request) {
	isAuthenticated, isAdmin := h.callerLevel(r)
	pages, err := h.pageService.ListPages(r.Context(), isAuthenticated, isAdmin)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list pages")
		return
	}

	writeJSONResponse(w, http.StatusOK, pages)
}

func (h *PageHandler) upsertPage(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok || !claims.IsAdmin {
		writeErrorResponse(w, http.StatusForbidden, "Admin access required")
		return
	}

	var req models.UpsertPageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	page, err := h.pageService.UpsertPage(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to save page")
		return
	}

	writeJSONResponse(w, http.StatusOK, page)
}

func (h *PageHandler) callerLevel(r *http.Request) (isAuthenticated, isAdmin bool) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		return false, false
	}
	return true, claims.IsAdmin
}
