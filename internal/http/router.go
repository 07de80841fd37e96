package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type Handlers struct {
	Products *ProductHandler
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Orders   *OrdersHandler
}

type RouterConfig struct {
	AdminAPIKey    string
	RequestTimeout time.Duration
}

func NewRouter(h Handlers, cfg RouterConfig, logger zerolog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", h.Products.List)
		r.Get("/products/{product_id}", h.Products.Get)

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminMiddleware(cfg.AdminAPIKey))
			r.Put("/products/{product_id}/status", h.Products.SetStatus)
			r.Put("/orders/{order_id}/status", h.Orders.UpdateStatus)
		})

		r.Group(func(r chi.Router) {
			r.Use(OwnerMiddleware)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.Cart.GetCart)
				r.Delete("/", h.Cart.ClearCart)
				r.Post("/items", h.Cart.AddItem)
				r.Put("/items/{product_id}", h.Cart.UpdateItem)
				r.Delete("/items/{product_id}", h.Cart.RemoveItem)
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", h.Cart.GetWishlist)
				r.Delete("/", h.Cart.ClearWishlist)
				r.Post("/items", h.Cart.AddToWishlist)
				r.Delete("/items/{product_id}", h.Cart.RemoveFromWishlist)
				r.Post("/items/{product_id}/move-to-cart", h.Cart.MoveToCart)
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Get("/", h.Checkout.Totals)
				r.Post("/", h.Checkout.Submit)
			})

			r.Get("/orders", h.Orders.List)
			r.Get("/orders/{order_id}", h.Orders.Get)
		})
	})

	return r
}
