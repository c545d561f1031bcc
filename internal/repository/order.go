package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iamvazu/smokesignalbbq-sub001/internal/domain/catalog"
	"github.com/iamvazu/smokesignalbbq-sub001/internal/domain/discount"
	"github.com/iamvazu/smokesignalbbq-sub001/internal/domain/order"
)

const (
	// The no-op DO UPDATE makes ON CONFLICT return the surviving row, so
	// concurrent first orders from the same phone converge on one customer.
	// The stored name is kept; later checkouts do not rename the customer.
	upsertCustomerSQL = `INSERT INTO customers (id, name, phone) VALUES ($1, $2, $3)
		ON CONFLICT (phone) DO UPDATE SET phone = EXCLUDED.phone
		RETURNING id, name, phone, created_at`

	countCustomerOrdersSQL = `SELECT count(*) FROM orders WHERE customer_id = $1`

	insertAddressSQL = `INSERT INTO addresses (id, customer_id, address_line1, city)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	insertOrderSQL = `INSERT INTO orders (id, customer_id, address_id, total_amount,
		delivery_fee, tax_amount, discount_amount, discount_code, payment_method)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING payment_status, order_status, delivery_status, created_at`

	insertOrderItemSQL = `INSERT INTO order_items (id, order_id, product_id, combo_id, quantity, price)
		VALUES ($1, $2, $3, $4, $5, $6)`

	selectOrderSQL = `SELECT o.id, o.total_amount, o.delivery_fee, o.tax_amount,
		o.discount_amount, o.discount_code, o.payment_method,
		o.payment_status, o.order_status, o.delivery_status, o.created_at,
		c.id, c.name, c.phone, c.created_at,
		a.id, a.customer_id, a.address_line1, a.city, a.created_at
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		JOIN addresses a ON a.id = o.address_id`

	listOrdersSQL = selectOrderSQL + ` ORDER BY o.created_at DESC`

	getOrderSQL = selectOrderSQL + ` WHERE o.id = $1`

	listOrderItemsSQL = `SELECT id, order_id, product_id, combo_id, quantity, price
		FROM order_items WHERE order_id = ANY($1) ORDER BY id`

	listPaymentsSQL = `SELECT id, order_id, amount, method, status, created_at
		FROM payments WHERE order_id = $1 ORDER BY created_at`

	updateOrderStatusSQL = `UPDATE orders SET
		order_status = COALESCE($2, order_status),
		payment_status = COALESCE($3, payment_status),
		delivery_status = COALESCE($4, delivery_status)
		WHERE id = $1`
)

var _ order.Store = (*OrderRepository)(nil)

// OrderRepository implements order.Store backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// CreateOrder materializes customer, address, order, and order items in one
// transaction. Discount redemption, when requested, happens in the same
// transaction via a conditional increment, so usage limits hold under
// concurrent checkouts and a failed redemption rolls everything back.
func (r *OrderRepository) CreateOrder(ctx context.Context, params order.CreateOrderParams) (*order.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning checkout transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var customer order.Customer
	err = tx.QueryRow(ctx, upsertCustomerSQL,
		uuid.NewString(), params.CustomerName, params.CustomerPhone,
	).Scan(&customer.ID, &customer.Name, &customer.Phone, &customer.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("resolving customer by phone: %w", err)
	}

	if params.DiscountCode != "" {
		if params.FirstOrderOnly {
			var priorOrders int64
			if err := tx.QueryRow(ctx, countCustomerOrdersSQL, customer.ID).Scan(&priorOrders); err != nil {
				return nil, fmt.Errorf("counting prior orders: %w", err)
			}
			if priorOrders > 0 {
				return nil, discount.ErrNotFirstOrder
			}
		}
		if err := redeemDiscount(ctx, tx, params.DiscountCode); err != nil {
			return nil, err
		}
	}

	address := order.Address{
		ID:           uuid.NewString(),
		CustomerID:   customer.ID,
		AddressLine1: params.AddressLine1,
		City:         params.City,
	}
	err = tx.QueryRow(ctx, insertAddressSQL,
		address.ID, address.CustomerID, address.AddressLine1, address.City,
	).Scan(&address.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating address: %w", err)
	}

	o := &order.Order{
		ID:             uuid.NewString(),
		Customer:       customer,
		Address:        address,
		TotalAmount:    params.Totals.Total,
		DeliveryFee:    params.Totals.DeliveryFee,
		TaxAmount:      params.Totals.TaxAmount,
		DiscountAmount: params.Totals.DiscountAmount,
		DiscountCode:   params.DiscountCode,
		PaymentMethod:  params.PaymentMethod,
	}
	var paymentStatus, orderStatus, deliveryStatus string
	err = tx.QueryRow(ctx, insertOrderSQL,
		o.ID, customer.ID, address.ID, o.TotalAmount,
		o.DeliveryFee, o.TaxAmount, o.DiscountAmount, o.DiscountCode, o.PaymentMethod,
	).Scan(&paymentStatus, &orderStatus, &deliveryStatus, &o.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	o.OrderStatus = order.Status(orderStatus)
	o.DeliveryStatus = order.DeliveryStatus(deliveryStatus)

	o.Items = make([]order.Item, len(params.Items))
	for i, item := range params.Items {
		rec := order.Item{
			ID:       uuid.NewString(),
			OrderID:  o.ID,
			Ref:      item.Ref,
			Quantity: item.Quantity,
			Price:    item.Price,
		}
		productID, comboID := refColumns(item.Ref)
		_, err = tx.Exec(ctx, insertOrderItemSQL,
			rec.ID, rec.OrderID, productID, comboID, rec.Quantity, rec.Price,
		)
		if err != nil {
			return nil, fmt.Errorf("creating order item %s: %w", item.Ref, err)
		}
		o.Items[i] = rec
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing checkout transaction: %w", err)
	}

	return o, nil
}

// ListOrders returns all orders newest first with nested customer, address,
// and items.
func (r *OrderRepository) ListOrders(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, len(orders))
	index := make(map[string]*order.Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = &orders[i]
	}

	itemRows, err := r.pool.Query(ctx, listOrderItemsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("loading order items: %w", err)
	}
	items, err := pgx.CollectRows(itemRows, scanOrderItem)
	if err != nil {
		return nil, fmt.Errorf("loading order items: %w", err)
	}
	for _, item := range items {
		if o, ok := index[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}

	return orders, nil
}

// GetOrder returns a single order with items and payment history.
// Returns order.ErrNotFound when the id does not exist.
func (r *OrderRepository) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	itemRows, err := r.pool.Query(ctx, listOrderItemsSQL, []string{o.ID})
	if err != nil {
		return nil, fmt.Errorf("loading items for order %q: %w", id, err)
	}
	o.Items, err = pgx.CollectRows(itemRows, scanOrderItem)
	if err != nil {
		return nil, fmt.Errorf("loading items for order %q: %w", id, err)
	}

	paymentRows, err := r.pool.Query(ctx, listPaymentsSQL, o.ID)
	if err != nil {
		return nil, fmt.Errorf("loading payments for order %q: %w", id, err)
	}
	o.Payments, err = pgx.CollectRows(paymentRows, scanPayment)
	if err != nil {
		return nil, fmt.Errorf("loading payments for order %q: %w", id, err)
	}

	return &o, nil
}

// UpdateStatus applies the requested status changes to a single order row and
// returns the updated order. Fields left nil in the update are untouched.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, update order.StatusUpdate) (*order.Order, error) {
	var orderStatus, paymentStatus, deliveryStatus *string
	if update.OrderStatus != nil {
		s := string(*update.OrderStatus)
		orderStatus = &s
	}
	if update.PaymentStatus != nil {
		s := string(*update.PaymentStatus)
		paymentStatus = &s
	}
	if update.DeliveryStatus != nil {
		s := string(*update.DeliveryStatus)
		deliveryStatus = &s
	}

	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, orderStatus, paymentStatus, deliveryStatus)
	if err != nil {
		return nil, fmt.Errorf("updating status for order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, order.ErrNotFound
	}

	return r.GetOrder(ctx, id)
}

func refColumns(ref catalog.ItemRef) (productID, comboID *string) {
	id := ref.ID
	if ref.Kind == catalog.KindCombo {
		return nil, &id
	}
	return &id, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o              order.Order
		paymentStatus  string
		orderStatus    string
		deliveryStatus string
	)
	err := row.Scan(
		&o.ID, &o.TotalAmount, &o.DeliveryFee, &o.TaxAmount,
		&o.DiscountAmount, &o.DiscountCode, &o.PaymentMethod,
		&paymentStatus, &orderStatus, &deliveryStatus, &o.CreatedAt,
		&o.Customer.ID, &o.Customer.Name, &o.Customer.Phone, &o.Customer.CreatedAt,
		&o.Address.ID, &o.Address.CustomerID, &o.Address.AddressLine1, &o.Address.City, &o.Address.CreatedAt,
	)
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	o.OrderStatus = order.Status(orderStatus)
	o.DeliveryStatus = order.DeliveryStatus(deliveryStatus)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var (
		item      order.Item
		productID *string
		comboID   *string
		quantity  int32
		price     decimal.Decimal
	)
	err := row.Scan(&item.ID, &item.OrderID, &productID, &comboID, &quantity, &price)
	if err != nil {
		return item, err
	}
	switch {
	case productID != nil:
		item.Ref = catalog.ProductRef(*productID)
	case comboID != nil:
		item.Ref = catalog.ComboRef(*comboID)
	}
	item.Quantity = int(quantity)
	item.Price = price
	return item, nil
}

func scanPayment(row pgx.CollectableRow) (order.Payment, error) {
	var (
		p      order.Payment
		status string
		t      time.Time
	)
	err := row.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Method, &status, &t)
	p.Status = order.PaymentStatus(status)
	p.CreatedAt = t
	return p, err
}
