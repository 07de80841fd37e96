package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/sobia-kanwal/closet-on-wheels/internal/catalog"
	"github.com/sobia-kanwal/closet-on-wheels/internal/checkout"
	"github.com/sobia-kanwal/closet-on-wheels/internal/orders"
	"github.com/sobia-kanwal/closet-on-wheels/internal/store"
	"github.com/sobia-kanwal/closet-on-wheels/pkg/circuitbreaker"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleError converts errors from the core packages into HTTP statuses.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *checkout.ValidationError

	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   verr.Fields[verr.First],
			Code:    "validation_failed",
			Details: verr,
		})
	case errors.Is(err, catalog.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", err.Error())
	case errors.Is(err, orders.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "order_not_found", err.Error())
	case errors.Is(err, catalog.ErrInvalidProduct):
		respondError(w, http.StatusUnprocessableEntity, "invalid_product", err.Error())
	case errors.Is(err, catalog.ErrInvalidStatus):
		respondError(w, http.StatusBadRequest, "invalid_status", err.Error())
	case errors.Is(err, orders.ErrIllegalTransition):
		respondError(w, http.StatusConflict, "illegal_transition", err.Error())
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusConflict, "empty_cart", err.Error())
	case errors.Is(err, checkout.ErrSubmissionFailed):
		respondError(w, http.StatusServiceUnavailable, "submission_failed", checkout.ErrSubmissionFailed.Error())
	case errors.Is(err, circuitbreaker.ErrOpen), store.IsPersistenceError(err):
		respondError(w, http.StatusServiceUnavailable, "storage_unavailable", "storage is temporarily unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		loggerFrom(r).Error().Err(err).Msg("unhandled error")
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func productIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
