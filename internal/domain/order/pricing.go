package order

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iamvazu/smokesignalbbq-sub001/internal/domain/catalog"
	"github.com/iamvazu/smokesignalbbq-sub001/internal/domain/discount"
)

// PricedItem is a cart line with its authoritative catalog unit price.
type PricedItem struct {
	Ref      catalog.ItemRef
	Quantity int
	Price    decimal.Decimal
}

// Totals holds the server-side reconciled amounts for an order, rounded to
// the integer currency unit where the persisted model requires it.
type Totals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	DeliveryFee    decimal.Decimal
	Total          decimal.Decimal
}

// PriceMismatchError is the anti-tampering rejection: the client-declared
// total does not match the server-computed one within tolerance. Both values
// are carried for fraud-review logging; the client response must not include
// them.
type PriceMismatchError struct {
	Declared decimal.Decimal
	Computed decimal.Decimal
}

func (e *PriceMismatchError) Error() string {
	return fmt.Sprintf("declared total %s does not match computed total %s", e.Declared, e.Computed)
}

// Reconciler recomputes order totals from authoritative prices and compares
// them against the client's claim.
type Reconciler struct {
	// TaxRate is the flat tax rate applied to the discounted subtotal.
	TaxRate decimal.Decimal
	// Tolerance is the allowed absolute difference, in integer currency
	// units, between declared and computed totals.
	Tolerance decimal.Decimal
}

// Reconcile computes subtotal, discount, tax, and total for the priced items.
// The discount (when present) applies to the subtotal before tax. The final
// total is rounded to the integer currency unit and compared against the
// declared total; a difference beyond Tolerance yields PriceMismatchError.
func (r Reconciler) Reconcile(items []PricedItem, disc *discount.Code, deliveryFee, declaredTotal decimal.Decimal) (Totals, error) {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	discountAmount := decimal.Zero
	if disc != nil {
		amount, err := disc.Amount(subtotal)
		if err != nil {
			return Totals{}, err
		}
		discountAmount = amount
	}

	discounted := subtotal.Sub(discountAmount)
	if discounted.IsNegative() {
		discounted = decimal.Zero
	}

	tax := discounted.Mul(r.TaxRate)
	total := discounted.Add(tax).Add(deliveryFee).Round(0)

	if total.Sub(declaredTotal.Round(0)).Abs().GreaterThan(r.Tolerance) {
		return Totals{}, &PriceMismatchError{Declared: declaredTotal, Computed: total}
	}

	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		TaxAmount:      tax.Round(0),
		DeliveryFee:    deliveryFee,
		Total:          total,
	}, nil
}
