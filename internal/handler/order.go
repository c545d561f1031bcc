package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iamvazu/smokesignalbbq-sub001/internal/domain/catalog"
	"github.com/iamvazu/smokesignalbbq-sub001/internal/domain/discount"
	"github.com/iamvazu/smokesignalbbq-sub001/internal/domain/order"
)

type orderItemRequest struct {
	ProductID string  `json:"productId,omitempty"`
	ComboID   string  `json:"comboId,omitempty"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type createOrderRequest struct {
	CustomerName  string             `json:"customerName"`
	CustomerPhone string             `json:"customerPhone"`
	AddressLine1  string             `json:"addressLine1"`
	City          string             `json:"city"`
	Items         []orderItemRequest `json:"items"`
	TotalAmount   float64            `json:"totalAmount"`
	DeliveryFee   float64            `json:"deliveryFee"`
	TaxAmount     float64            `json:"taxAmount"`
	PaymentMethod string             `json:"paymentMethod"`
	DiscountCode  string             `json:"discountCode,omitempty"`
}

type customerResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
}

type addressResponse struct {
	ID           string    `json:"id"`
	CustomerID   string    `json:"customerId"`
	AddressLine1 string    `json:"addressLine1"`
	City         string    `json:"city"`
	CreatedAt    time.Time `json:"createdAt"`
}

type orderItemResponse struct {
	ID        string  `json:"id"`
	ProductID string  `json:"productId,omitempty"`
	ComboID   string  `json:"comboId,omitempty"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type paymentResponse struct {
	ID        string    `json:"id"`
	Amount    float64   `json:"amount"`
	Method    string    `json:"method"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type orderResponse struct {
	ID             string              `json:"id"`
	Customer       customerResponse    `json:"customer"`
	Address        addressResponse     `json:"address"`
	Items          []orderItemResponse `json:"items"`
	Payments       []paymentResponse   `json:"payments,omitempty"`
	TotalAmount    float64             `json:"totalAmount"`
	DeliveryFee    float64             `json:"deliveryFee"`
	TaxAmount      float64             `json:"taxAmount"`
	DiscountAmount float64             `json:"discountAmount"`
	DiscountCode   string              `json:"discountCode,omitempty"`
	PaymentMethod  string              `json:"paymentMethod"`
	PaymentStatus  string              `json:"paymentStatus"`
	OrderStatus    string              `json:"orderStatus"`
	DeliveryStatus string              `json:"deliveryStatus"`
	CreatedAt      time.Time           `json:"createdAt"`
}

type updateOrderRequest struct {
	OrderStatus    *string `json:"orderStatus"`
	PaymentStatus  *string `json:"paymentStatus"`
	DeliveryStatus *string `json:"deliveryStatus"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}

	items := make([]order.CartItemInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.CartItemInput{
			ProductID: item.ProductID,
			ComboID:   item.ComboID,
			Quantity:  item.Quantity,
			Price:     decimal.NewFromFloat(item.Price),
		}
	}

	o, err := h.orders.PlaceOrder(r.Context(), order.CartInput{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		AddressLine1:  req.AddressLine1,
		City:          req.City,
		Items:         items,
		TotalAmount:   decimal.NewFromFloat(req.TotalAmount),
		DeliveryFee:   decimal.NewFromFloat(req.DeliveryFee),
		TaxAmount:     decimal.NewFromFloat(req.TaxAmount),
		PaymentMethod: req.PaymentMethod,
		DiscountCode:  req.DiscountCode,
	})
	if err != nil {
		h.mapCheckoutError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusCreated, toOrderResponse(o))
}

// mapCheckoutError converts domain errors into client responses. Price
// mismatches are logged with both totals for fraud review, but the client
// only ever sees a generic message.
func (h *Handler) mapCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *order.ValidationError
	if errors.As(err, &vErr) {
		respondError(w, r, http.StatusBadRequest, vErr.Error())
		return
	}

	var nfErr *order.ItemNotFoundError
	if errors.As(err, &nfErr) {
		respondError(w, r, http.StatusBadRequest, nfErr.Error())
		return
	}

	var pmErr *order.PriceMismatchError
	if errors.As(err, &pmErr) {
		zctx.From(r.Context()).Warn("checkout total mismatch",
			zap.String("declared_total", pmErr.Declared.String()),
			zap.String("computed_total", pmErr.Computed.String()),
		)
		respondError(w, r, http.StatusBadRequest, "total mismatch, refresh cart")
		return
	}

	switch {
	case errors.Is(err, discount.ErrInvalid),
		errors.Is(err, discount.ErrExpired),
		errors.Is(err, discount.ErrExhausted),
		errors.Is(err, discount.ErrNotFirstOrder):
		respondError(w, r, http.StatusBadRequest, err.Error())
	default:
		zctx.From(r.Context()).Error("checkout failed", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "failed to create order")
	}
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context())
	if err != nil {
		zctx.From(r.Context()).Error("list orders", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "failed to fetch orders")
		return
	}

	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	respondJSON(w, r, http.StatusOK, out)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "order not found")
			return
		}
		zctx.From(r.Context()).Error("get order", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "failed to fetch order details")
		return
	}

	respondJSON(w, r, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), id, order.StatusUpdateInput{
		OrderStatus:    req.OrderStatus,
		PaymentStatus:  req.PaymentStatus,
		DeliveryStatus: req.DeliveryStatus,
	})
	if err != nil {
		var vErr *order.ValidationError
		switch {
		case errors.As(err, &vErr):
			respondError(w, r, http.StatusBadRequest, vErr.Error())
		case errors.Is(err, order.ErrNotFound):
			respondError(w, r, http.StatusNotFound, "order not found")
		default:
			zctx.From(r.Context()).Error("update order", zap.Error(err))
			respondError(w, r, http.StatusInternalServerError, "failed to update order")
		}
		return
	}

	respondJSON(w, r, http.StatusOK, toOrderResponse(o))
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = orderItemResponse{
			ID:       item.ID,
			Quantity: item.Quantity,
			Price:    item.Price.InexactFloat64(),
		}
		switch item.Ref.Kind {
		case catalog.KindCombo:
			items[i].ComboID = item.Ref.ID
		default:
			items[i].ProductID = item.Ref.ID
		}
	}

	payments := make([]paymentResponse, len(o.Payments))
	for i, p := range o.Payments {
		payments[i] = paymentResponse{
			ID:        p.ID,
			Amount:    p.Amount.InexactFloat64(),
			Method:    p.Method,
			Status:    string(p.Status),
			CreatedAt: p.CreatedAt,
		}
	}

	return orderResponse{
		ID: o.ID,
		Customer: customerResponse{
			ID:        o.Customer.ID,
			Name:      o.Customer.Name,
			Phone:     o.Customer.Phone,
			CreatedAt: o.Customer.CreatedAt,
		},
		Address: addressResponse{
			ID:           o.Address.ID,
			CustomerID:   o.Address.CustomerID,
			AddressLine1: o.Address.AddressLine1,
			City:         o.Address.City,
			CreatedAt:    o.Address.CreatedAt,
		},
		Items:          items,
		Payments:       payments,
		TotalAmount:    o.TotalAmount.InexactFloat64(),
		DeliveryFee:    o.DeliveryFee.InexactFloat64(),
		TaxAmount:      o.TaxAmount.InexactFloat64(),
		DiscountAmount: o.DiscountAmount.InexactFloat64(),
		DiscountCode:   o.DiscountCode,
		PaymentMethod:  o.PaymentMethod,
		PaymentStatus:  string(o.PaymentStatus),
		OrderStatus:    string(o.OrderStatus),
		DeliveryStatus: string(o.DeliveryStatus),
		CreatedAt:      o.CreatedAt,
	}
}
