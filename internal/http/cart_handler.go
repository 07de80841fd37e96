package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sobia-kanwal/closet-on-wheels/internal/cart"
	"github.com/sobia-kanwal/closet-on-wheels/internal/catalog"
	"github.com/sobia-kanwal/closet-on-wheels/internal/domain"
)

type CartHandler struct {
	loader  *cart.Loader
	catalog catalog.Repository
	timeout time.Duration
}

func NewCartHandler(loader *cart.Loader, repo catalog.Repository, timeout time.Duration) *CartHandler {
	return &CartHandler{
		loader:  loader,
		catalog: repo,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
}

type CartResponseDTO struct {
	Items []domain.LineItem `json:"items"`
	Count int               `json:"count"`
	Total decimal.Decimal   `json:"total"`
}

type WishlistResponseDTO struct {
	Items []domain.WishlistItem `json:"items"`
	Count int                   `json:"count"`
}

type MoveToCartResponseDTO struct {
	Cart     CartResponseDTO     `json:"cart"`
	Wishlist WishlistResponseDTO `json:"wishlist"`
}

func cartResponse(e *cart.Engine) CartResponseDTO {
	return CartResponseDTO{Items: e.Cart(), Count: e.CartCount(), Total: e.CartTotal()}
}

func wishlistResponse(e *cart.Engine) WishlistResponseDTO {
	return WishlistResponseDTO{Items: e.Wishlist(), Count: e.WishlistCount()}
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	engine, err := h.loader.Open(ctx, ownerFrom(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(engine))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}

	product, err := h.catalog.Get(ctx, req.ProductID)
	if err != nil {
		handleError(w, r, err)
		return
	}

	engine, err := h.loader.Open(ctx, ownerFrom(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	_, err = engine.AddToCart(ctx, *product)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, cartResponse(engine))
}

// PUT /api/v1/cart/items/{product_id}
//
// Body fields quantity and rental_days are optional and loosely typed; each given one is
// clamped to a positive integer.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := productIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	var u cart.Update
	if v, ok := body["quantity"]; ok {
		q := cart.CoerceCount(v)
		u.Quantity = &q
	}
	if v, ok := body["rental_days"]; ok {
		d := cart.CoerceCount(v)
		u.RentalDays = &d
	}
	if u.Quantity == nil && u.RentalDays == nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "quantity or rental_days is required")
		return
	}

	engine, err := h.loader.Open(ctx, ownerFrom(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	_, err = engine.UpdateCartItem(ctx, productID, u)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(engine))
}

// DELETE /api/v1/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := productIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	engine, err := h.loader.Open(ctx, ownerFrom(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	_, err = engine.RemoveFromCart(ctx, productID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(engine))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	engine, err := h.loader.Open(ctx, ownerFrom(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := engine.ClearCart(ctx); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(engine))
}

// GET /api/v1/wishlist
func (h *CartHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	engine, err := h.loader.Open(ctx, ownerFrom(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, wishlistResponse(engine))
}

// POST /api/v1/wishlist/items
func (h *CartHandler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}

	product, err := h.catalog.Get(ctx, req.ProductID)
	if err != nil {
		handleError(w, r, err)
		return
	}

	engine, err := h.loader.Open(ctx, ownerFrom(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	_, err = engine.AddToWishlist(ctx, *product)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, wishlistResponse(engine))
}

// DELETE /api/v1/wishlist/items/{product_id}
func (h *CartHandler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := productIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	engine, err := h.loader.Open(ctx, ownerFrom(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	_, err = engine.RemoveFromWishlist(ctx, productID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, wishlistResponse(engine))
}

// DELETE /api/v1/wishlist
func (h *CartHandler) ClearWishlist(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	engine, err := h.loader.Open(ctx, ownerFrom(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := engine.ClearWishlist(ctx); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, wishlistResponse(engine))
}

// POST /api/v1/wishlist/items/{product_id}/move-to-cart
func (h *CartHandler) MoveToCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := productIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	engine, err := h.loader.Open(ctx, ownerFrom(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}

	// a product that was hidden after being wished for can still move, priced as it was wished
	var product domain.Product
	p, err := h.catalog.Get(ctx, productID)
	switch {
	case err == nil:
		product = *p
	case errors.Is(err, catalog.ErrProductNotFound):
		found := wishedProduct(engine.Wishlist(), productID)
		if found == nil {
			handleError(w, r, err)
			return
		}
		product = *found
	default:
		handleError(w, r, err)
		return
	}

	_, _, err = engine.AddToCartAndRemoveFromWishlist(ctx, product)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, MoveToCartResponseDTO{
		Cart:     cartResponse(engine),
		Wishlist: wishlistResponse(engine),
	})
}

func wishedProduct(items []domain.WishlistItem, productID int64) *domain.Product {
	for _, item := range items {
		if item.ProductID == productID {
			p := item.Product()
			return &p
		}
	}
	return nil
}
