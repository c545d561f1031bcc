// Package catalog defines the read-only view of the product/combo catalog
// consumed by the order core. The catalog itself is owned by a separate
// service; only authoritative price resolution is needed here.
package catalog

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrItemNotFound is returned when an item reference does not resolve to a
// catalog entry.
var ErrItemNotFound = errors.New("catalog item not found")

// ItemKind distinguishes the two catalog namespaces an order line can
// reference.
type ItemKind string

const (
	KindProduct ItemKind = "product"
	KindCombo   ItemKind = "combo"
)

// ItemRef identifies a single purchasable catalog entry. Using a kind+id pair
// instead of two nullable columns makes "neither or both set" unrepresentable.
type ItemRef struct {
	Kind ItemKind
	ID   string
}

// ProductRef returns an ItemRef pointing at a product.
func ProductRef(id string) ItemRef {
	return ItemRef{Kind: KindProduct, ID: id}
}

// ComboRef returns an ItemRef pointing at a combo.
func ComboRef(id string) ItemRef {
	return ItemRef{Kind: KindCombo, ID: id}
}

// Validate checks that the reference has a known kind and a canonical UUID id.
func (r ItemRef) Validate() error {
	switch r.Kind {
	case KindProduct, KindCombo:
	default:
		return errors.Errorf("unknown item kind %q", r.Kind)
	}
	if _, err := uuid.Parse(r.ID); err != nil {
		return errors.Wrapf(err, "malformed %s id %q", r.Kind, r.ID)
	}
	return nil
}

func (r ItemRef) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}

// Resolver resolves the authoritative current unit price for an item.
// Implementations return ErrItemNotFound when the reference does not exist
// or is inactive.
type Resolver interface {
	Price(ctx context.Context, ref ItemRef) (decimal.Decimal, error)
}
