package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sobia-kanwal/closet-on-wheels/internal/cart"
	"github.com/sobia-kanwal/closet-on-wheels/internal/checkout"
	"github.com/sobia-kanwal/closet-on-wheels/internal/domain"
	"github.com/sobia-kanwal/closet-on-wheels/internal/pricing"
)

type CheckoutHandler struct {
	loader   *cart.Loader
	pipeline *checkout.Pipeline
	timeout  time.Duration
}

func NewCheckoutHandler(loader *cart.Loader, pipeline *checkout.Pipeline, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		loader:   loader,
		pipeline: pipeline,
		timeout:  timeout,
	}
}

type TotalsResponseDTO struct {
	Items         []domain.LineItem    `json:"items"`
	PaymentMethod domain.PaymentMethod `json:"payment_method,omitempty"`
	pricing.Totals
}

// GET /api/v1/checkout?payment_method=
func (h *CheckoutHandler) Totals(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	engine, err := h.loader.Open(ctx, ownerFrom(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := h.pipeline.Begin(engine); err != nil {
		handleError(w, r, err)
		return
	}

	method := domain.PaymentMethod(r.URL.Query().Get("payment_method"))
	respondJSON(w, http.StatusOK, TotalsResponseDTO{
		Items:         engine.Cart(),
		PaymentMethod: method,
		Totals:        h.pipeline.Preview(engine, method),
	})
}

// POST /api/v1/checkout
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var form checkout.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	engine, err := h.loader.Open(ctx, ownerFrom(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}

	res, err := h.pipeline.Submit(ctx, engine, form)
	if err != nil {
		if errors.Is(err, checkout.ErrSubmissionFailed) {
			respondJSON(w, http.StatusServiceUnavailable, ErrorResponse{
				Error:   checkout.ErrSubmissionFailed.Error(),
				Code:    "submission_failed",
				Details: res,
			})
			return
		}
		handleError(w, r, err)
		return
	}
	if res.Errors != nil {
		handleError(w, r, res.Errors)
		return
	}

	respondJSON(w, http.StatusCreated, res)
}
