// Package discount holds the discount-code rules and their validation chain.
package discount

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported discount strategies.
type Type string

const (
	// TypePercentage applies a percentage-based discount to the subtotal.
	TypePercentage Type = "percentage"
	// TypeFixed applies a fixed monetary discount capped at the subtotal.
	TypeFixed Type = "fixed"
)

var (
	// ErrInvalid is returned when a code is unknown or inactive.
	ErrInvalid = errors.New("invalid discount code")
	// ErrExpired is returned when a code is past its expiry date.
	ErrExpired = errors.New("discount code expired")
	// ErrExhausted is returned when a code has reached its usage limit.
	ErrExhausted = errors.New("discount code usage limit reached")
	// ErrNotFirstOrder is returned when a first-order-only code is used by a
	// customer with prior orders.
	ErrNotFirstOrder = errors.New("discount code valid for first order only")
)

// Code is a discount-code rule as stored in the ledger. UsedCount is mutated
// only by the repository's conditional redeem; everything else is immutable
// from this subsystem's point of view.
type Code struct {
	ID             string
	Code           string
	Type           Type
	Value          decimal.Decimal
	ExpiryDate     time.Time
	UsageLimit     *int
	UsedCount      int
	FirstOrderOnly bool
	Active         bool
}

// Normalize upper-cases a client-supplied code so lookups and ledger rows
// agree on a single canonical form.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate runs the eligibility chain: active, not expired, within usage
// limit. First-order eligibility is not checked here; it needs the resolved
// customer and is enforced inside the checkout transaction.
func (c *Code) Validate(now time.Time) error {
	if !c.Active {
		return ErrInvalid
	}
	if now.After(c.ExpiryDate) {
		return ErrExpired
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return ErrExhausted
	}
	return nil
}

// Amount computes the discount for the given subtotal. Percentage codes take
// value% of the subtotal; fixed codes are capped at the subtotal so the
// discounted amount never goes negative.
func (c *Code) Amount(subtotal decimal.Decimal) (decimal.Decimal, error) {
	switch c.Type {
	case TypePercentage:
		return subtotal.Mul(c.Value).Div(hundred).Round(2), nil
	case TypeFixed:
		return decimal.Min(c.Value, subtotal).Round(2), nil
	default:
		return decimal.Zero, errors.Errorf("unsupported discount type: %q", c.Type)
	}
}

var hundred = decimal.NewFromInt(100)

// Resolver looks up a discount code by its normalized form.
// Implementations return ErrInvalid when no such code exists.
type Resolver interface {
	FindByCode(ctx context.Context, code string) (*Code, error)
}
