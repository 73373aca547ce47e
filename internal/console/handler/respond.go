package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/xela07ax/servicemap-console/internal/domain"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor раскладывает доменные ошибки по HTTP-кодам
func statusFor(err error) (int, string) {
	var pe *domain.ParseError
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &mbe):
		return http.StatusRequestEntityTooLarge, "upload_too_large"
	case errors.As(err, &pe):
		return http.StatusBadRequest, "parse_error"
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return http.StatusBadRequest, "unsupported_format"
	case errors.Is(err, domain.ErrInvalidThresholds), errors.Is(err, domain.ErrInvalidQuery):
		return http.StatusBadRequest, "invalid_parameters"
	case errors.Is(err, domain.ErrNoRecords):
		return http.StatusUnprocessableEntity, "no_records"
	case errors.Is(err, domain.ErrEmptyDataset):
		return http.StatusNotFound, "empty_dataset"
	case errors.Is(err, domain.ErrDatasetNotFound):
		return http.StatusNotFound, "dataset_not_found"
	case errors.Is(err, domain.ErrUnknownService):
		return http.StatusNotFound, "unknown_service"
	case errors.Is(err, domain.ErrUndefinedMean):
		return http.StatusUnprocessableEntity, "undefined_mean"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "unauthorized"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
		// Внутренние детали наружу не отдаем
		writeJSON(w, status, errorResponse{Error: code})
		return
	}
	writeJSON(w, status, errorResponse{Error: code, Details: err.Error()})
}
