package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"chorequest/internal/analytics"
	"chorequest/internal/logger"
	"chorequest/internal/service"
)

// writeJSON writes v as a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondWithError logs err, if any, and writes a JSON error body
func respondWithError(w http.ResponseWriter, log *logger.Logger, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		if status >= http.StatusInternalServerError {
			log.Error(logMsg, zap.Int("status", status), zap.Error(err))
		} else {
			log.Warn(logMsg, zap.Int("status", status), zap.Error(err))
		}
	}

	writeJSON(w, status, map[string]string{"error": userMsg})
}

// respondWithServiceError maps errors from the insights services to statuses
func respondWithServiceError(w http.ResponseWriter, log *logger.Logger, err error) {
	var cfgErr *analytics.ConfigurationError
	switch {
	case errors.As(err, &cfgErr):
		respondWithError(w, log, http.StatusUnprocessableEntity, cfgErr.Error(), "family configuration rejected", err)
	case errors.Is(err, service.ErrFamilyNotFound):
		respondWithError(w, log, http.StatusNotFound, ErrFamilyNotFound, "", err)
	case errors.Is(err, context.DeadlineExceeded):
		respondWithError(w, log, http.StatusGatewayTimeout, ErrTimeout, "", err)
	default:
		respondWithError(w, log, http.StatusInternalServerError, ErrInternalServerError, "insights request failed", err)
	}
}
