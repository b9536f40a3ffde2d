package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"festival-system/internal/logger"
	"festival-system/internal/models"
)

// EventHandler обслуживает расписание событий и закладки.
type EventHandler struct {
	eventService EventService
	log          *logger.Logger
}

// NewEventHandler создаёт обработчик расписания.
func NewEventHandler(eventService EventService, log *logger.Logger) *EventHandler {
	return &EventHandler{
		eventService: eventService,
		log:          log,
	}
}

// HandleEvents диспетчеризует /api/events.
func (h *EventHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listEvents(w, r)
	case http.MethodPost:
		h.createEvent(w, r)
	default:
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// HandleEventByID диспетчеризует /api/events/{id} и /api/events/{id}/bookmark.
func (h *EventHandler) HandleEventByID(w http.ResponseWriter, r *http.Request) {
	eventID, err := extractUUIDFromPath(r.URL.Path, "/api/events/")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid event ID")
		return
	}

	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	if strings.HasSuffix(r.URL.Path, "/bookmark") {
		switch r.Method {
		case http.MethodPost:
			if err := h.eventService.Bookmark(r.Context(), claims.AccountID, eventID); err != nil {
				writeServiceError(w, h.log, err, "Failed to bookmark event")
				return
			}
			writeJSONResponse(w, http.StatusOK, map[string]string{"status": "bookmarked"})
		case http.MethodDelete:
			if err := h.eventService.Unbookmark(r.Context(), claims.AccountID, eventID); err != nil {
				writeServiceError(w, h.log, err, "Failed to remove bookmark")
				return
			}
			writeJSONResponse(w, http.StatusOK, map[string]string{"status": "removed"})
		default:
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req models.SaveEventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		event, err := h.eventService.UpdateEvent(r.Context(), claims.AccountID, claims.IsAdmin, eventID, &req)
		if err != nil {
			writeServiceError(w, h.log, err, "Failed to update event")
			return
		}
		writeJSONResponse(w, http.StatusOK, event)
	case http.MethodDelete:
		if err := h.eventService.DeleteEvent(r.Context(), claims.AccountID, claims.IsAdmin, eventID); err != nil {
			writeServiceError(w, h.log, err, "Failed to delete event")
			return
		}
		writeJSONResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *EventHandler) listEvents(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	events, err := h.eventService.ListEvents(r.Context(), claims.AccountID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list events")
		return
	}

	writeJSONResponse(w, http.StatusOK, events)
}

func (h *EventHandler) createEvent(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req models.SaveEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	event, err := h.eventService.CreateEvent(r.Context(), claims.AccountID, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create event")
		return
	}

	writeJSONResponse(w, http.StatusCreated, event)
}
