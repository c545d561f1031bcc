// Package order implements the checkout core: cart validation, server-side
// total reconciliation, discount application, and the persisted order model.
package order

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/iamvazu/smokesignalbbq-sub001/internal/domain/catalog"
)

// Customer is created lazily on a customer's first order and keyed by phone.
type Customer struct {
	ID        string
	Name      string
	Phone     string
	CreatedAt time.Time
}

// Address is a per-order delivery snapshot. Addresses are never reused across
// orders; a fresh row is written on every checkout.
type Address struct {
	ID           string
	CustomerID   string
	AddressLine1 string
	City         string
	CreatedAt    time.Time
}

// Item is a single persisted order line. Price is the authoritative catalog
// unit price at order time and never changes afterwards.
type Item struct {
	ID       string
	OrderID  string
	Ref      catalog.ItemRef
	Quantity int
	Price    decimal.Decimal
}

// Payment is a recorded payment attempt against an order. Payments are
// recorded, not processed, by this subsystem.
type Payment struct {
	ID        string
	OrderID   string
	Amount    decimal.Decimal
	Method    string
	Status    PaymentStatus
	CreatedAt time.Time
}

// Order is the persisted checkout result. Status fields are the only mutable
// part after creation.
type Order struct {
	ID             string
	Customer       Customer
	Address        Address
	Items          []Item
	Payments       []Payment
	TotalAmount    decimal.Decimal
	DeliveryFee    decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	DiscountCode   string
	PaymentMethod  string
	PaymentStatus  PaymentStatus
	OrderStatus    Status
	DeliveryStatus DeliveryStatus
	CreatedAt      time.Time
}

// Status is the admin-managed order lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusPreparing  Status = "preparing"
	StatusDispatched Status = "dispatched"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// PaymentStatus tracks the recorded payment state of an order.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// DeliveryStatus tracks the courier-side state of an order.
type DeliveryStatus string

const (
	DeliveryPending        DeliveryStatus = "pending"
	DeliveryAssigned       DeliveryStatus = "assigned"
	DeliveryOutForDelivery DeliveryStatus = "out_for_delivery"
	DeliveryDelivered      DeliveryStatus = "delivered"
)

var orderStatuses = map[Status]struct{}{
	StatusPending:    {},
	StatusConfirmed:  {},
	StatusPreparing:  {},
	StatusDispatched: {},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

var paymentStatuses = map[PaymentStatus]struct{}{
	PaymentPending:  {},
	PaymentPaid:     {},
	PaymentFailed:   {},
	PaymentRefunded: {},
}

var deliveryStatuses = map[DeliveryStatus]struct{}{
	DeliveryPending:        {},
	DeliveryAssigned:       {},
	DeliveryOutForDelivery: {},
	DeliveryDelivered:      {},
}

// ParseStatus validates enum membership. Admin transitions are deliberately
// unconstrained beyond membership: any known status can be set directly.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := orderStatuses[st]; !ok {
		return "", errors.Errorf("unknown order status %q", s)
	}
	return st, nil
}

// ParsePaymentStatus validates enum membership.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	st := PaymentStatus(s)
	if _, ok := paymentStatuses[st]; !ok {
		return "", errors.Errorf("unknown payment status %q", s)
	}
	return st, nil
}

// ParseDeliveryStatus validates enum membership.
func ParseDeliveryStatus(s string) (DeliveryStatus, error) {
	st := DeliveryStatus(s)
	if _, ok := deliveryStatuses[st]; !ok {
		return "", errors.Errorf("unknown delivery status %q", s)
	}
	return st, nil
}
