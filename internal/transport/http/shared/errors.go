package shared

import (
	"errors"
	"log/slog"
	"net/http"

	"appraisal/internal/domain/appraisal"
	"appraisal/internal/transport/http/api"
)

// FailDomain writes the envelope for an error returned by the appraisal or
// catalog services.
func FailDomain(w http.ResponseWriter, err error, requestID string) {
	var (
		notFound    *appraisal.NotFoundError
		invalidRole *appraisal.InvalidRoleError
		validation  *appraisal.ValidationError
		storeErr    *appraisal.StoreError
	)
	switch {
	case errors.As(err, &validation):
		FailValidation(w, requestID, validation.Issues)
	case errors.As(err, &invalidRole):
		api.Fail(w, http.StatusBadRequest, "invalid_role", invalidRole.Error(), requestID)
	case errors.As(err, &notFound):
		api.Fail(w, http.StatusNotFound, "not_found", notFound.Error(), requestID)
	case errors.Is(err, appraisal.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "resource not found", requestID)
	case errors.As(err, &storeErr):
		slog.Warn("store operation failed", "op", storeErr.Op, "err", storeErr.Err, "requestId", requestID)
		api.Fail(w, http.StatusBadGateway, "store_error", "storage backend failed", requestID)
	default:
		slog.Error("unhandled service error", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", requestID)
	}
}

// FailPayload reports a body that could not be decoded.
func FailPayload(w http.ResponseWriter, err error, requestID string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", requestID)
		return
	}
	api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
}
