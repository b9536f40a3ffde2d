package handlers

import (
	"encoding/json"
	"net/http"

	"festival-system/internal/logger"

	"github.com/google/uuid"
)

// AdminHandler обслуживает административные операции.
type AdminHandler struct {
	festivalService FestivalService
	reports         SalesReportProvider
	log             *logger.Logger
}

// NewAdminHandler создаёт обработчик административных операций.
func NewAdminHandler(festivalService FestivalService, reports SalesReportProvider, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		festivalService: festivalService,
		reports:         reports,
		log:             log,
	}
}

// SetSalesRequest описывает переключение флага продаж.
type SetSalesRequest struct {
	SalesAreOpen bool `json:"sales_are_open"`
}

// SetFestivalSales переключает флаг продаж по /api/admin/festivals/{id}/sales.
func (h *AdminHandler) SetFestivalSales(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	festivalID, err := extractUUIDFromPath(r.URL.Path, "/api/admin/festivals/")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid festival ID")
		return
	}

	var req SetSalesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	festival, err := h.festivalService.SetSalesOpen(r.Context(), festivalID, req.SalesAreOpen)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to update sales flag")
		return
	}

	writeJSONResponse(w, http.StatusOK, festival)
}

// SalesSummary возвращает сводку продаж: по фестивалю при ?festival_id=, иначе общую.
func (h *AdminHandler) SalesSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if raw := r.URL.Query().Get("festival_id"); raw != "" {
		festivalID, err := uuid.Parse(raw)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "Invalid festival ID")
			return
		}

		report, err := h.reports.FestivalSummary(r.Context(), festivalID)
		if err != nil {
			writeServiceError(w, h.log, err, "Failed to build sales summary")
			return
		}
		writeJSONResponse(w, http.StatusOK, report)
		return
	}

	report, err := h.reports.OverallSummary(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to build sales summary")
		return
	}

	writeJSONResponse(w, http.StatusOK, report)
}
