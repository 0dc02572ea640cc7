package handlers

import (
	"net/http"

	"orders-dashboard/internal/apperror"
	"orders-dashboard/internal/logger"
)

// loginPath куда клиент переходит при отказе хранилища в авторизации
const loginPath = "/login"

func writeServiceError(w http.ResponseWriter, log *logger.Logger, err error, internalMessage string) {
	switch {
	case apperror.Is(err, apperror.KindNotFound):
		writeErrorResponse(w, http.StatusNotFound, err.Error())
	case apperror.Is(err, apperror.KindValidation):
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
	case apperror.Is(err, apperror.KindConflict):
		writeErrorResponse(w, http.StatusConflict, err.Error())
	case apperror.Is(err, apperror.KindUnauthorized):
		writeJSONResponse(w, http.StatusUnauthorized, ErrorResponse{
			Error:    http.StatusText(http.StatusUnauthorized),
			Message:  err.Error(),
			Redirect: loginPath,
		})
	case apperror.Is(err, apperror.KindUnavailable):
		if log != nil {
			log.WithError(err).Warn(internalMessage)
		}
		writeErrorResponse(w, http.StatusServiceUnavailable, err.Error())
	default:
		if log != nil {
			log.WithError(err).Error(internalMessage)
		}
		writeErrorResponse(w, http.StatusInternalServerError, internalMessage)
	}
}
