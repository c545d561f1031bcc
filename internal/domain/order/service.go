package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"

	"github.com/iamvazu/smokesignalbbq-sub001/internal/domain/catalog"
	"github.com/iamvazu/smokesignalbbq-sub001/internal/domain/discount"
)

// ErrNotFound is returned when an order id does not exist.
var ErrNotFound = errors.New("order not found")

// ItemNotFoundError indicates a cart line referencing a catalog entry that
// does not exist. The whole checkout is rejected rather than dropping the
// line, so the customer never pays a total they did not see.
type ItemNotFoundError struct {
	Ref catalog.ItemRef
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item %s not found", e.Ref)
}

// CreateOrderParams is the fully validated, fully priced unit of work handed
// to the store. The store executes it as one transaction.
type CreateOrderParams struct {
	CustomerName  string
	CustomerPhone string
	AddressLine1  string
	City          string
	Items         []PricedItem
	Totals        Totals
	PaymentMethod string
	// DiscountCode, when non-empty, must be redeemed inside the same
	// transaction with a compare-and-increment against its usage limit.
	// FirstOrderOnly additionally requires the resolved customer to have no
	// prior orders.
	DiscountCode   string
	FirstOrderOnly bool
}

// StatusUpdate carries the optional status changes of an admin update. Nil
// fields are left untouched.
type StatusUpdate struct {
	OrderStatus    *Status
	PaymentStatus  *PaymentStatus
	DeliveryStatus *DeliveryStatus
}

// StatusUpdateInput is the raw admin payload before enum validation.
type StatusUpdateInput struct {
	OrderStatus    *string
	PaymentStatus  *string
	DeliveryStatus *string
}

// Store defines the persistence operations for the checkout core.
//
// CreateOrder must run customer resolution, discount redemption, and
// address/order/item inserts atomically: on any failure nothing is written.
// It returns discount.ErrExhausted when the code's usage limit is hit at
// commit time and discount.ErrNotFirstOrder when a first-order-only code is
// used by a customer with prior orders.
type Store interface {
	CreateOrder(ctx context.Context, params CreateOrderParams) (*Order, error)
	ListOrders(ctx context.Context) ([]Order, error)
	GetOrder(ctx context.Context, id string) (*Order, error)
	UpdateStatus(ctx context.Context, id string, update StatusUpdate) (*Order, error)
}

// Service encapsulates the checkout and status-transition business logic.
type Service struct {
	catalog    catalog.Resolver
	discounts  discount.Resolver
	store      Store
	reconciler Reconciler
	now        func() time.Time
}

// NewService creates a Service with the required domain dependencies.
func NewService(
	cat catalog.Resolver,
	discounts discount.Resolver,
	store Store,
	reconciler Reconciler,
) *Service {
	return &Service{
		catalog:    cat,
		discounts:  discounts,
		store:      store,
		reconciler: reconciler,
		now:        time.Now,
	}
}

// PlaceOrder validates the cart, resolves authoritative prices, applies an
// optional discount, reconciles totals against the client's claim, and
// persists the order atomically.
//
// Catalog lookups happen outside the transaction (read-only); everything that
// mutates state runs inside the store's single transaction.
func (s *Service) PlaceOrder(ctx context.Context, in CartInput) (*Order, error) {
	cart, err := ValidateCart(in)
	if err != nil {
		return nil, err
	}

	// Resolve authoritative unit prices. Client-declared prices are ignored
	// from this point on.
	priced := make([]PricedItem, len(cart.Items))
	for i, item := range cart.Items {
		price, err := s.catalog.Price(ctx, item.Ref)
		if err != nil {
			if errors.Is(err, catalog.ErrItemNotFound) {
				return nil, &ItemNotFoundError{Ref: item.Ref}
			}
			return nil, errors.Wrapf(err, "resolve price for %s", item.Ref)
		}
		priced[i] = PricedItem{Ref: item.Ref, Quantity: item.Quantity, Price: price}
	}

	// A client-supplied code that fails validation fails the whole checkout.
	// Silently dropping it would change the total the client expects.
	var disc *discount.Code
	code := discount.Normalize(cart.DiscountCode)
	if code != "" {
		disc, err = s.discounts.FindByCode(ctx, code)
		if err != nil {
			if errors.Is(err, discount.ErrInvalid) {
				return nil, discount.ErrInvalid
			}
			return nil, errors.Wrapf(err, "resolve discount code %s", code)
		}
		if err := disc.Validate(s.now()); err != nil {
			return nil, err
		}
	}

	totals, err := s.reconciler.Reconcile(priced, disc, cart.DeliveryFee, cart.DeclaredTotal)
	if err != nil {
		return nil, err
	}

	params := CreateOrderParams{
		CustomerName:  cart.CustomerName,
		CustomerPhone: cart.CustomerPhone,
		AddressLine1:  cart.AddressLine1,
		City:          cart.City,
		Items:         priced,
		Totals:        totals,
		PaymentMethod: cart.PaymentMethod,
	}
	if disc != nil {
		params.DiscountCode = disc.Code
		params.FirstOrderOnly = disc.FirstOrderOnly
	}

	o, err := s.store.CreateOrder(ctx, params)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// List returns all orders, newest first, with customer/address/items nested.
func (s *Service) List(ctx context.Context) ([]Order, error) {
	return s.store.ListOrders(ctx)
}

// Get returns a single order with items, customer, address, and payment
// history.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.store.GetOrder(ctx, id)
}

// UpdateStatus validates the requested enum values and applies them to the
// order row. Transitions are not constrained beyond enum membership.
func (s *Service) UpdateStatus(ctx context.Context, id string, in StatusUpdateInput) (*Order, error) {
	var update StatusUpdate
	if in.OrderStatus != nil {
		st, err := ParseStatus(*in.OrderStatus)
		if err != nil {
			return nil, &ValidationError{Field: "orderStatus", Reason: err.Error()}
		}
		update.OrderStatus = &st
	}
	if in.PaymentStatus != nil {
		st, err := ParsePaymentStatus(*in.PaymentStatus)
		if err != nil {
			return nil, &ValidationError{Field: "paymentStatus", Reason: err.Error()}
		}
		update.PaymentStatus = &st
	}
	if in.DeliveryStatus != nil {
		st, err := ParseDeliveryStatus(*in.DeliveryStatus)
		if err != nil {
			return nil, &ValidationError{Field: "deliveryStatus", Reason: err.Error()}
		}
		update.DeliveryStatus = &st
	}
	if update.OrderStatus == nil && update.PaymentStatus == nil && update.DeliveryStatus == nil {
		return nil, &ValidationError{Field: "body", Reason: "no status fields to update"}
	}

	return s.store.UpdateStatus(ctx, id, update)
}
