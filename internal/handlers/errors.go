package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"weddingrsvp/internal/service"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// respondWithError writes a JSON error body. err, when set, is logged with
// logMsg (or userMsg) and never shown to the client.
func respondWithError(w http.ResponseWriter, logger *zap.Logger, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		logger.Error(logMsg, zap.Int("status", status), zap.Error(err))
	}
	WriteJSON(w, status, errorResponse{Error: userMsg})
}

// writeServiceError maps a service error onto an HTTP status
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var (
		verr *service.ValidationError
		serr *service.StorageError
	)
	switch {
	case errors.As(err, &verr):
		WriteJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: verr.Message, Field: verr.Field})
	case errors.Is(err, service.ErrInvalidRequest):
		WriteJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrGuestNotFound), errors.Is(err, service.ErrFamilyNotFound):
		WriteJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidToken):
		WriteJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	case errors.As(err, &serr):
		respondWithError(w, logger, http.StatusInternalServerError, "Internal server error", "storage failure during "+serr.Op, serr.Err)
	default:
		respondWithError(w, logger, http.StatusInternalServerError, "Internal server error", "", err)
	}
}

// badRequest reports a body that could not be decoded
func badRequest(w http.ResponseWriter, logger *zap.Logger, err error) {
	writeServiceError(w, logger, fmt.Errorf("%w: %v", service.ErrInvalidRequest, err))
}
