// Package handler exposes the order core over HTTP.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/iamvazu/smokesignalbbq-sub001/internal/domain/auth"
	"github.com/iamvazu/smokesignalbbq-sub001/internal/domain/discount"
	"github.com/iamvazu/smokesignalbbq-sub001/internal/domain/order"
)

// Handler wires the HTTP routes to the domain services.
type Handler struct {
	orders    *order.Service
	discounts discount.Resolver
	apikeys   auth.Repository
	pepper    []byte
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	orders *order.Service,
	discounts discount.Resolver,
	apikeys auth.Repository,
	pepper []byte,
) *Handler {
	return &Handler{
		orders:    orders,
		discounts: discounts,
		apikeys:   apikeys,
		pepper:    pepper,
	}
}

// Routes returns the API router. Checkout and discount preview are public;
// order listing, detail, and status updates are admin-only behind API key
// auth.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/orders", h.createOrder)
	r.Get("/discounts/validate/{code}", h.validateDiscount)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAPIKey)
		r.Get("/orders", h.listOrders)
		r.Get("/orders/{id}", h.getOrder)
		r.Put("/orders/{id}", h.updateOrder)
	})

	return r
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zctx.From(r.Context()).Error("encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	respondJSON(w, r, status, errorResponse{Code: status, Message: message})
}
