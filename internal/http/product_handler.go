package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sobia-kanwal/closet-on-wheels/internal/catalog"
	"github.com/sobia-kanwal/closet-on-wheels/internal/domain"
)

type ProductHandler struct {
	catalog catalog.Repository
	timeout time.Duration
}

func NewProductHandler(repo catalog.Repository, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		catalog: repo,
		timeout: timeout,
	}
}

type SetStatusRequestDTO struct {
	Status string `json:"status"`
}

type LenderProductRequestDTO struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
}

// GET /api/v1/products?category=
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.List(ctx, catalog.Filter{Category: r.URL.Query().Get("category")})
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"products": products})
}

// GET /api/v1/products/{product_id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := productIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	p, err := h.catalog.Get(ctx, id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// PUT /api/v1/admin/products/{product_id}/status
func (h *ProductHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := productIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	var req SetStatusRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	p, err := h.catalog.SetStatus(ctx, id, domain.ProductStatus(req.Status))
	if err != nil {
		handleError(w, r, err)
		return
	}
	loggerFrom(r).Info().Int64("product_id", id).Str("status", req.Status).Msg("product status changed")
	respondJSON(w, http.StatusOK, p)
}

// POST /api/v1/lender/products
//
// The product is stored inactive and only shows up once a moderator activates it.
func (h *ProductHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req LenderProductRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	p, err := h.catalog.Create(ctx, domain.Product{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	loggerFrom(r).Info().
		Int64("product_id", p.ID).
		Str("lender", ownerFrom(r.Context())).
		Msg("product submitted for review")
	respondJSON(w, http.StatusCreated, p)
}
