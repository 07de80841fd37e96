package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sobia-kanwal/closet-on-wheels/internal/domain"
	"github.com/sobia-kanwal/closet-on-wheels/internal/orders"
)

type OrdersHandler struct {
	repo    orders.Repository
	timeout time.Duration
}

func NewOrdersHandler(repo orders.Repository, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		repo:    repo,
		timeout: timeout,
	}
}

type UpdateOrderStatusRequestDTO struct {
	Status string `json:"status"`
}

// GET /api/v1/orders
func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	list, err := h.repo.ListByOwner(ctx, ownerFrom(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	if list == nil {
		list = []*domain.Order{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"orders": list})
}

// GET /api/v1/orders/{order_id}
//
// Orders of other shoppers are reported as not found.
func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	order, err := h.repo.Get(ctx, chi.URLParam(r, "order_id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	if order.Owner != ownerFrom(r.Context()) {
		handleError(w, r, orders.ErrOrderNotFound)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// PUT /api/v1/admin/orders/{order_id}/status
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateOrderStatusRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	status := domain.OrderStatus(req.Status)
	if !status.Valid() {
		respondError(w, http.StatusBadRequest, "invalid_status", "unknown order status")
		return
	}

	orderID := chi.URLParam(r, "order_id")
	order, err := h.repo.UpdateStatus(ctx, orderID, status)
	if err != nil {
		handleError(w, r, err)
		return
	}
	loggerFrom(r).Info().Str("order_id", orderID).Str("status", req.Status).Msg("order status changed")
	respondJSON(w, http.StatusOK, order)
}
