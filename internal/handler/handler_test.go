package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamvazu/smokesignalbbq-sub001/internal/domain/auth"
	"github.com/iamvazu/smokesignalbbq-sub001/internal/domain/catalog"
	"github.com/iamvazu/smokesignalbbq-sub001/internal/domain/discount"
	"github.com/iamvazu/smokesignalbbq-sub001/internal/domain/order"
)

// --- Mock implementations ---

type stubCatalog struct {
	prices map[string]decimal.Decimal
}

func (s *stubCatalog) Price(_ context.Context, ref catalog.ItemRef) (decimal.Decimal, error) {
	p, ok := s.prices[ref.String()]
	if !ok {
		return decimal.Zero, catalog.ErrItemNotFound
	}
	return p, nil
}

type stubDiscounts struct {
	codes map[string]*discount.Code
}

func (s *stubDiscounts) FindByCode(_ context.Context, code string) (*discount.Code, error) {
	c, ok := s.codes[code]
	if !ok {
		return nil, discount.ErrInvalid
	}
	return c, nil
}

type stubStore struct {
	lastParams *order.CreateOrderParams
	created    *order.Order
	orders     []order.Order
	err        error
}

func (s *stubStore) CreateOrder(_ context.Context, params order.CreateOrderParams) (*order.Order, error) {
	s.lastParams = &params
	if s.err != nil {
		return nil, s.err
	}
	return s.created, nil
}

func (s *stubStore) ListOrders(_ context.Context) ([]order.Order, error) {
	return s.orders, s.err
}

func (s *stubStore) GetOrder(_ context.Context, id string) (*order.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.orders {
		if s.orders[i].ID == id {
			return &s.orders[i], nil
		}
	}
	return nil, order.ErrNotFound
}

func (s *stubStore) UpdateStatus(_ context.Context, id string, update order.StatusUpdate) (*order.Order, error) {
	o, err := s.GetOrder(context.Background(), id)
	if err != nil {
		return nil, err
	}
	if update.OrderStatus != nil {
		o.OrderStatus = *update.OrderStatus
	}
	if update.PaymentStatus != nil {
		o.PaymentStatus = *update.PaymentStatus
	}
	if update.DeliveryStatus != nil {
		o.DeliveryStatus = *update.DeliveryStatus
	}
	return o, nil
}

type stubAPIKeys struct {
	byHash map[string]*auth.APIKeyInfo
}

func (s *stubAPIKeys) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	info, ok := s.byHash[hash]
	if !ok {
		return nil, errors.New("not found")
	}
	return info, nil
}

// --- Fixtures ---

const (
	testProductID = "11111111-1111-1111-1111-111111111111"
	testComboID   = "22222222-2222-2222-2222-222222222222"
	testOrderID   = "33333333-3333-3333-3333-333333333333"
	testPepper    = "test-pepper"
	testAPIKey    = "admin-key"
)

func hashKey(key string) string {
	mac := hmac.New(sha256.New, []byte(testPepper))
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

func sampleOrder() order.Order {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return order.Order{
		ID: testOrderID,
		Customer: order.Customer{
			ID:        "cust-1",
			Name:      "Arjun Mehta",
			Phone:     "+919812345678",
			CreatedAt: created,
		},
		Address: order.Address{
			ID:           "addr-1",
			CustomerID:   "cust-1",
			AddressLine1: "14 MG Road",
			City:         "Bengaluru",
			CreatedAt:    created,
		},
		Items: []order.Item{{
			ID:       "item-1",
			OrderID:  testOrderID,
			Ref:      catalog.ProductRef(testProductID),
			Quantity: 2,
			Price:    decimal.NewFromInt(180),
		}},
		TotalAmount:    decimal.NewFromInt(465),
		DeliveryFee:    decimal.NewFromInt(40),
		TaxAmount:      decimal.NewFromInt(65),
		PaymentMethod:  "cod",
		PaymentStatus:  order.PaymentPending,
		OrderStatus:    order.StatusPending,
		DeliveryStatus: order.DeliveryPending,
		CreatedAt:      created,
	}
}

type fixture struct {
	handler *Handler
	store   *stubStore
	router  http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cat := &stubCatalog{prices: map[string]decimal.Decimal{
		catalog.ProductRef(testProductID).String(): decimal.NewFromInt(180),
		catalog.ComboRef(testComboID).String():     decimal.NewFromInt(340),
	}}
	discounts := &stubDiscounts{codes: map[string]*discount.Code{
		"WELCOME10": {
			ID:             "disc-1",
			Code:           "WELCOME10",
			Type:           discount.TypePercentage,
			Value:          decimal.NewFromInt(10),
			ExpiryDate:     time.Now().Add(24 * time.Hour),
			FirstOrderOnly: true,
			Active:         true,
		},
		"EXPIRED": {
			ID:         "disc-2",
			Code:       "EXPIRED",
			Type:       discount.TypeFixed,
			Value:      decimal.NewFromInt(50),
			ExpiryDate: time.Now().Add(-24 * time.Hour),
			Active:     true,
		},
	}}
	sample := sampleOrder()
	store := &stubStore{created: &sample, orders: []order.Order{sample}}
	apikeys := &stubAPIKeys{byHash: map[string]*auth.APIKeyInfo{
		hashKey(testAPIKey): {ID: "key-1", KeyHash: hashKey(testAPIKey), Name: "admin"},
	}}

	svc := order.NewService(cat, discounts, store, order.Reconciler{
		TaxRate:   decimal.NewFromFloat(0.18),
		Tolerance: decimal.NewFromInt(1),
	})
	h := NewHandler(svc, discounts, apikeys, []byte(testPepper))

	return &fixture{handler: h, store: store, router: h.Routes()}
}

func (f *fixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func validOrderBody() map[string]any {
	return map[string]any{
		"customerName":  "Arjun Mehta",
		"customerPhone": "+919812345678",
		"addressLine1":  "14 MG Road",
		"city":          "Bengaluru",
		"items": []map[string]any{
			{"productId": testProductID, "quantity": 2, "price": 180},
		},
		"totalAmount":   465,
		"deliveryFee":   40,
		"taxAmount":     65,
		"paymentMethod": "cod",
	}
}

// --- Tests ---

func TestCreateOrder_Success(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/orders", validOrderBody(), nil)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, testOrderID, resp.ID)
	assert.Equal(t, "Arjun Mehta", resp.Customer.Name)
	assert.InDelta(t, 465, resp.TotalAmount, 0.001)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, testProductID, resp.Items[0].ProductID)

	// Server-side totals reach the store, not the client-declared ones.
	require.NotNil(t, f.store.lastParams)
	assert.True(t, f.store.lastParams.Totals.Total.Equal(decimal.NewFromInt(465)))
}

func TestCreateOrder_TamperedTotal(t *testing.T) {
	f := newFixture(t)

	body := validOrderBody()
	body["totalAmount"] = 300

	rec := f.do(t, http.MethodPost, "/orders", body, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	// The response never leaks the computed total.
	assert.Equal(t, "total mismatch, refresh cart", resp.Message)
	assert.NotContains(t, rec.Body.String(), "465")
}

func TestCreateOrder_ClientPriceIgnored(t *testing.T) {
	f := newFixture(t)

	body := validOrderBody()
	body["items"] = []map[string]any{
		{"productId": testProductID, "quantity": 2, "price": 1},
	}

	rec := f.do(t, http.MethodPost, "/orders", body, nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, f.store.lastParams)
	assert.True(t, f.store.lastParams.Items[0].Price.Equal(decimal.NewFromInt(180)))
}

func TestCreateOrder_ValidationError(t *testing.T) {
	f := newFixture(t)

	body := validOrderBody()
	body["customerPhone"] = "12"

	rec := f.do(t, http.MethodPost, "/orders", body, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "customerPhone")
}

func TestCreateOrder_UnknownItem(t *testing.T) {
	f := newFixture(t)

	body := validOrderBody()
	body["items"] = []map[string]any{
		{"productId": "99999999-9999-9999-9999-999999999999", "quantity": 1, "price": 100},
	}

	rec := f.do(t, http.MethodPost, "/orders", body, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "not found")
}

func TestCreateOrder_UnknownDiscount(t *testing.T) {
	f := newFixture(t)

	body := validOrderBody()
	body["discountCode"] = "NOPE"

	rec := f.do(t, http.MethodPost, "/orders", body, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid discount code")
}

func TestCreateOrder_ExpiredDiscount(t *testing.T) {
	f := newFixture(t)

	body := validOrderBody()
	body["discountCode"] = "expired"

	rec := f.do(t, http.MethodPost, "/orders", body, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "expired")
}

func TestCreateOrder_ExhaustedDiscountFromStore(t *testing.T) {
	f := newFixture(t)
	f.store.err = discount.ErrExhausted

	body := validOrderBody()
	body["discountCode"] = "welcome10"
	// 10% off 360 pre-tax: round(324 + 58.32 + 40) = 422.
	body["totalAmount"] = 422

	rec := f.do(t, http.MethodPost, "/orders", body, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "usage limit")
}

func TestCreateOrder_MalformedBody(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrder_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.store.err = errors.New("connection reset")

	rec := f.do(t, http.MethodPost, "/orders", validOrderBody(), nil)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestValidateDiscount(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/discounts/validate/welcome10", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp discountResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "WELCOME10", resp.Code)
	assert.Equal(t, "percentage", resp.Type)
	assert.InDelta(t, 10, resp.Value, 0.001)
	assert.True(t, resp.IsFirstOrderOnly)
}

func TestValidateDiscount_Unknown(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/discounts/validate/NOPE", nil, nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidateDiscount_Expired(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/discounts/validate/EXPIRED", nil, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "expired")
}

func adminHeaders() map[string]string {
	return map[string]string{apiKeyHeader: testAPIKey}
}

func TestListOrders_RequiresAPIKey(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/orders", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/orders", nil, map[string]string{apiKeyHeader: "wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListOrders(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/orders", nil, adminHeaders())

	require.Equal(t, http.StatusOK, rec.Code)

	var resp []orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, testOrderID, resp[0].ID)
}

func TestGetOrder(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, fmt.Sprintf("/orders/%s", testOrderID), nil, adminHeaders())

	require.Equal(t, http.StatusOK, rec.Code)

	var resp orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, testOrderID, resp.ID)
	assert.Equal(t, "pending", resp.OrderStatus)
}

func TestGetOrder_NotFound(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/orders/0000", nil, adminHeaders())

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateOrder(t *testing.T) {
	f := newFixture(t)

	body := map[string]any{"orderStatus": "confirmed", "paymentStatus": "paid"}
	rec := f.do(t, http.MethodPut, fmt.Sprintf("/orders/%s", testOrderID), body, adminHeaders())

	require.Equal(t, http.StatusOK, rec.Code)

	var resp orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "confirmed", resp.OrderStatus)
	assert.Equal(t, "paid", resp.PaymentStatus)
}

func TestUpdateOrder_UnknownStatus(t *testing.T) {
	f := newFixture(t)

	body := map[string]any{"orderStatus": "teleported"}
	rec := f.do(t, http.MethodPut, fmt.Sprintf("/orders/%s", testOrderID), body, adminHeaders())

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
