package handlers

import (
	"errors"
	"net/http"

	"festival-system/internal/apperror"
	"festival-system/internal/logger"
	"festival-system/internal/services"
)

func writeServiceError(w http.ResponseWriter, log *logger.Logger, err error, internalMessage string) {
	var rejection *services.Rejection
	if errors.As(err, &rejection) {
		// Отказ в покупке всегда 401, клиент различает причины по reason.
		writeJSONResponse(w, http.StatusUnauthorized, ErrorResponse{
			Error:   http.StatusText(http.StatusUnauthorized),
			Message: rejection.Error(),
			Reason:  string(rejection.Kind),
		})
		return
	}

	switch {
	case apperror.Is(err, apperror.KindNotFound):
		writeErrorResponse(w, http.StatusNotFound, err.Error())
	case apperror.Is(err, apperror.KindValidation):
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
	case apperror.Is(err, apperror.KindConflict):
		writeErrorResponse(w, http.StatusConflict, err.Error())
	case apperror.Is(err, apperror.KindUnauthorized):
		writeErrorResponse(w, http.StatusUnauthorized, err.Error())
	case apperror.Is(err, apperror.KindForbidden):
		writeErrorResponse(w, http.StatusForbidden, err.Error())
	default:
		if log != nil {
			log.WithError(err).Error(internalMessage)
		}
		writeErrorResponse(w, http.StatusInternalServerError, internalMessage)
	}
}
