package order

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/iamvazu/smokesignalbbq-sub001/internal/domain/catalog"
)

const maxCartItems = 50

var phonePattern = regexp.MustCompile(`^[0-9+]{10,15}$`)

// ValidationError reports a structurally invalid cart field. It is local to
// cart validation and never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// CartItemInput is one raw line item from the client. At most one of
// ProductID/ComboID may be set. Price is the client's claimed unit price; it
// is validated for shape only and never used for pricing.
type CartItemInput struct {
	ProductID string
	ComboID   string
	Quantity  int
	Price     decimal.Decimal
}

// CartInput is the untrusted checkout payload.
type CartInput struct {
	CustomerName  string
	CustomerPhone string
	AddressLine1  string
	City          string
	Items         []CartItemInput
	TotalAmount   decimal.Decimal
	DeliveryFee   decimal.Decimal
	TaxAmount     decimal.Decimal
	PaymentMethod string
	DiscountCode  string
}

// CartItem is a structurally valid line item with its reference resolved to
// the tagged form.
type CartItem struct {
	Ref      catalog.ItemRef
	Quantity int
}

// Cart is the trusted-shape output of validation. Prices carried here are
// still candidates; authoritative pricing happens during reconciliation.
type Cart struct {
	CustomerName  string
	CustomerPhone string
	AddressLine1  string
	City          string
	Items         []CartItem
	DeclaredTotal decimal.Decimal
	DeliveryFee   decimal.Decimal
	TaxAmount     decimal.Decimal
	PaymentMethod string
	DiscountCode  string
}

// ValidateCart checks the payload shape and returns a typed cart. It has no
// side effects and performs no catalog lookups.
func ValidateCart(in CartInput) (*Cart, error) {
	if l := len(in.CustomerName); l < 2 || l > 100 {
		return nil, &ValidationError{Field: "customerName", Reason: "length must be between 2 and 100"}
	}
	if !phonePattern.MatchString(in.CustomerPhone) {
		return nil, &ValidationError{Field: "customerPhone", Reason: "must be 10-15 digits"}
	}
	if len(in.AddressLine1) < 5 {
		return nil, &ValidationError{Field: "addressLine1", Reason: "too short"}
	}
	if len(in.City) < 2 {
		return nil, &ValidationError{Field: "city", Reason: "too short"}
	}
	if len(in.Items) == 0 {
		return nil, &ValidationError{Field: "items", Reason: "at least one item required"}
	}
	if len(in.Items) > maxCartItems {
		return nil, &ValidationError{Field: "items", Reason: fmt.Sprintf("at most %d items allowed", maxCartItems)}
	}
	if in.PaymentMethod == "" {
		return nil, &ValidationError{Field: "paymentMethod", Reason: "required"}
	}
	if !in.TotalAmount.IsPositive() {
		return nil, &ValidationError{Field: "totalAmount", Reason: "must be positive"}
	}
	if in.DeliveryFee.IsNegative() {
		return nil, &ValidationError{Field: "deliveryFee", Reason: "must not be negative"}
	}
	if in.TaxAmount.IsNegative() {
		return nil, &ValidationError{Field: "taxAmount", Reason: "must not be negative"}
	}

	items := make([]CartItem, len(in.Items))
	for i, item := range in.Items {
		ref, err := itemRef(item)
		if err != nil {
			return nil, err
		}
		if item.Quantity < 1 || item.Quantity > maxCartItems {
			return nil, &ValidationError{
				Field:  fmt.Sprintf("items[%d].quantity", i),
				Reason: fmt.Sprintf("must be between 1 and %d", maxCartItems),
			}
		}
		if item.Price.IsNegative() {
			return nil, &ValidationError{
				Field:  fmt.Sprintf("items[%d].price", i),
				Reason: "must not be negative",
			}
		}
		items[i] = CartItem{Ref: ref, Quantity: item.Quantity}
	}

	return &Cart{
		CustomerName:  in.CustomerName,
		CustomerPhone: in.CustomerPhone,
		AddressLine1:  in.AddressLine1,
		City:          in.City,
		Items:         items,
		DeclaredTotal: in.TotalAmount,
		DeliveryFee:   in.DeliveryFee,
		TaxAmount:     in.TaxAmount,
		PaymentMethod: in.PaymentMethod,
		DiscountCode:  in.DiscountCode,
	}, nil
}

// itemRef maps the two optional id fields onto the tagged ItemRef. Exactly
// one id must be set and it must be a canonical UUID.
func itemRef(item CartItemInput) (catalog.ItemRef, error) {
	var ref catalog.ItemRef
	switch {
	case item.ProductID != "" && item.ComboID != "":
		return ref, &ValidationError{Field: "items", Reason: "item cannot reference both a product and a combo"}
	case item.ProductID != "":
		ref = catalog.ProductRef(item.ProductID)
	case item.ComboID != "":
		ref = catalog.ComboRef(item.ComboID)
	default:
		return ref, &ValidationError{Field: "items", Reason: "item must reference a product or a combo"}
	}
	if err := ref.Validate(); err != nil {
		return ref, &ValidationError{Field: "items", Reason: err.Error()}
	}
	return ref, nil
}
