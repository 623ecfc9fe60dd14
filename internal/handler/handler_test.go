package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/fashion-store/internal/domain/auth"
	"github.com/xenking/fashion-store/internal/domain/cart"
	"github.com/xenking/fashion-store/internal/domain/catalog"
	"github.com/xenking/fashion-store/internal/domain/coupon"
	"github.com/xenking/fashion-store/internal/domain/order"
)

const (
	testPepper   = "test-pepper"
	customerKey  = "customer-key"
	adminAPIKey  = "admin-key"
	customerUser = "u1"
)

type stubCartService struct {
	view        *cart.View
	created     bool
	err         error
	updateCalls int
	updatedQty  int
}

func (s *stubCartService) Get(_ context.Context, _ string) (*cart.View, error) {
	return s.view, s.err
}

func (s *stubCartService) AddItem(_ context.Context, _, _ string, _ int) (*cart.View, bool, error) {
	return s.view, s.created, s.err
}

func (s *stubCartService) UpdateItemQuantity(_ context.Context, _, _ string, quantity int) (*cart.View, bool, error) {
	s.updateCalls++
	s.updatedQty = quantity
	return s.view, false, s.err
}

func (s *stubCartService) RemoveItem(_ context.Context, _, _ string) (*cart.View, error) {
	return s.view, s.err
}

func (s *stubCartService) Clear(_ context.Context, _ string) error {
	return s.err
}

func (s *stubCartService) ApplyDiscount(_ context.Context, _, _ string) (*cart.View, error) {
	return s.view, s.err
}

func (s *stubCartService) RemoveDiscount(_ context.Context, _ string) (*cart.View, error) {
	return s.view, s.err
}

type stubOrderService struct {
	order   *order.Order
	orders  []order.Order
	err     error
	userRef string
}

func (s *stubOrderService) Checkout(_ context.Context, userRef string, _ order.CheckoutRequest) (*order.Order, error) {
	s.userRef = userRef
	return s.order, s.err
}

func (s *stubOrderService) Get(_ context.Context, _, _ string) (*order.Order, error) {
	return s.order, s.err
}

func (s *stubOrderService) ListByUser(_ context.Context, _ string) ([]order.Order, error) {
	return s.orders, s.err
}

func (s *stubOrderService) UpdateStatus(_ context.Context, _ string, _ order.Status, _ string) (*order.Order, error) {
	return s.order, s.err
}

type stubValidator struct {
	discount *coupon.Discount
	err      error
}

func (s *stubValidator) Validate(_ context.Context, _ string, _ decimal.Decimal, _ int) (*coupon.Discount, error) {
	return s.discount, s.err
}

type stubVariantRepo struct {
	variants []catalog.Variant
	err      error
}

func (s *stubVariantRepo) List(_ context.Context) ([]catalog.Variant, error) {
	return s.variants, s.err
}

func (s *stubVariantRepo) GetByID(_ context.Context, _ string) (*catalog.Variant, error) {
	return nil, catalog.ErrVariantNotFound
}

type stubKeyRepo struct {
	keys map[string]*auth.APIKeyInfo
}

func (s *stubKeyRepo) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	info, ok := s.keys[hash]
	if !ok {
		return nil, auth.ErrKeyNotFound
	}
	return info, nil
}

func keyHash(key string) string {
	mac := hmac.New(sha256.New, []byte(testPepper))
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

func testSecurity() *SecurityHandler {
	repo := &stubKeyRepo{keys: map[string]*auth.APIKeyInfo{
		keyHash(customerKey): {
			ID: "default", KeyHash: keyHash(customerKey),
			UserRef: customerUser, Scopes: []string{},
		},
		keyHash(adminAPIKey): {
			ID: "admin", KeyHash: keyHash(adminAPIKey),
			UserRef: "admin-user", Scopes: []string{"admin"},
		},
	}}
	return NewSecurityHandler(repo, []byte(testPepper))
}

func testServer(t *testing.T, carts CartService, orders OrderService, validator DiscountValidator, variants catalog.Repository) *httptest.Server {
	t.Helper()
	if carts == nil {
		carts = &stubCartService{}
	}
	if orders == nil {
		orders = &stubOrderService{}
	}
	if validator == nil {
		validator = &stubValidator{}
	}
	if variants == nil {
		variants = &stubVariantRepo{}
	}
	h := NewHandler(carts, orders, validator, variants)
	srv := httptest.NewServer(h.Routes(testSecurity()))
	t.Cleanup(srv.Close)
	return srv
}

func doRequest(t *testing.T, method, url, apiKey, body string) *http.Response {
	t.Helper()

	var r *strings.Reader
	if body == "" {
		r = strings.NewReader("")
	} else {
		r = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func emptyView() *cart.View {
	return &cart.View{
		Cart: cart.Cart{ID: "cart-1", UserRef: customerUser, DiscountAmount: decimal.Zero},
		Totals: cart.Totals{
			Subtotal: decimal.Zero,
			Discount: decimal.Zero,
			Total:    decimal.Zero,
		},
	}
}

func TestMissingAPIKey(t *testing.T) {
	srv := testServer(t, nil, nil, nil, nil)

	resp := doRequest(t, http.MethodGet, srv.URL+"/cart", "", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestInvalidAPIKey(t *testing.T) {
	srv := testServer(t, nil, nil, nil, nil)

	resp := doRequest(t, http.MethodGet, srv.URL+"/cart", "wrong-key", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestListProducts(t *testing.T) {
	variants := &stubVariantRepo{variants: []catalog.Variant{
		{
			ID: "v1", ProductID: "classic-tee", ProductName: "Classic Cotton Tee",
			SKU: "classic-tee-M-black", Size: "M", Color: "black",
			Price: decimal.RequireFromString("24.99"), Stock: 10,
		},
	}}
	srv := testServer(t, nil, nil, nil, variants)

	resp := doRequest(t, http.MethodGet, srv.URL+"/products", customerKey, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeBody[[]VariantResponse](t, resp)
	require.Len(t, out, 1)
	assert.Equal(t, "classic-tee-M-black", out[0].SKU)
}

func TestAddCartItem_Created(t *testing.T) {
	carts := &stubCartService{view: emptyView(), created: true}
	srv := testServer(t, carts, nil, nil, nil)

	resp := doRequest(t, http.MethodPost, srv.URL+"/cart/add", customerKey,
		`{"variant_id":"v1","quantity":2}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestAddCartItem_Merged(t *testing.T) {
	carts := &stubCartService{view: emptyView(), created: false}
	srv := testServer(t, carts, nil, nil, nil)

	resp := doRequest(t, http.MethodPost, srv.URL+"/cart/add", customerKey,
		`{"variant_id":"v1","quantity":1}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAddCartItem_BadBody(t *testing.T) {
	srv := testServer(t, &stubCartService{view: emptyView()}, nil, nil, nil)

	resp := doRequest(t, http.MethodPost, srv.URL+"/cart/add", customerKey,
		`{"variant_id":"","quantity":0}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateCartItem_MissingQuantity(t *testing.T) {
	carts := &stubCartService{view: emptyView()}
	srv := testServer(t, carts, nil, nil, nil)

	resp := doRequest(t, http.MethodPut, srv.URL+"/cart/items/i1", customerKey, `{}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
	assert.Zero(t, carts.updateCalls)
}

func TestUpdateCartItem_ZeroRemovesLine(t *testing.T) {
	carts := &stubCartService{view: emptyView()}
	srv := testServer(t, carts, nil, nil, nil)

	resp := doRequest(t, http.MethodPut, srv.URL+"/cart/items/i1", customerKey,
		`{"quantity":0}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, carts.updateCalls)
	assert.Equal(t, 0, carts.updatedQty)
}

func TestAddCartItem_InsufficientStock(t *testing.T) {
	carts := &stubCartService{err: &catalog.InsufficientStockError{
		VariantID: "v1", Requested: 6, Available: 5,
	}}
	srv := testServer(t, carts, nil, nil, nil)

	resp := doRequest(t, http.MethodPost, srv.URL+"/cart/add", customerKey,
		`{"variant_id":"v1","quantity":6}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	out := decodeBody[ErrorResponse](t, resp)
	assert.Equal(t, "insufficient_stock", out.Code)
}

func TestApplyDiscount_Invalid(t *testing.T) {
	carts := &stubCartService{err: coupon.ErrInvalidCoupon}
	srv := testServer(t, carts, nil, nil, nil)

	resp := doRequest(t, http.MethodPost, srv.URL+"/cart/apply-discount", customerKey,
		`{"code":"BOGUS"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	out := decodeBody[ErrorResponse](t, resp)
	assert.Equal(t, "invalid_coupon", out.Code)
}

func TestClearCart(t *testing.T) {
	srv := testServer(t, &stubCartService{view: emptyView()}, nil, nil, nil)

	resp := doRequest(t, http.MethodDelete, srv.URL+"/cart/clear", customerKey, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeBody[CartResponse](t, resp)
	assert.Empty(t, out.Items)
}

func TestValidateDiscount(t *testing.T) {
	carts := &stubCartService{view: emptyView()}
	validator := &stubValidator{discount: &coupon.Discount{
		Code:   "SAVE10",
		Amount: decimal.NewFromInt(10),
	}}
	srv := testServer(t, carts, nil, validator, nil)

	resp := doRequest(t, http.MethodPost, srv.URL+"/discounts/validate", customerKey,
		`{"code":"SAVE10"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeBody[ValidateDiscountResponse](t, resp)
	assert.Equal(t, "SAVE10", out.Code)
}

func TestCreateOrder(t *testing.T) {
	orders := &stubOrderService{order: &order.Order{
		ID:          "o1",
		OrderNumber: "ORD-9F2C41D08A3B",
		UserRef:     customerUser,
		Status:      order.StatusPending,
		TotalAmount: decimal.RequireFromString("117.60"),
	}}
	srv := testServer(t, nil, orders, nil, nil)

	resp := doRequest(t, http.MethodPost, srv.URL+"/orders/create-from-cart", customerKey,
		`{"shipping":{"address":"1 Main St","city":"Portland","state":"OR","zip":"97201","country":"US"}}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	out := decodeBody[OrderResponse](t, resp)
	assert.Equal(t, "ORD-9F2C41D08A3B", out.OrderNumber)
	assert.Equal(t, customerUser, orders.userRef)
}

func TestCreateOrder_EmptyCart(t *testing.T) {
	orders := &stubOrderService{err: order.ErrEmptyCart}
	srv := testServer(t, nil, orders, nil, nil)

	resp := doRequest(t, http.MethodPost, srv.URL+"/orders/create-from-cart", customerKey,
		`{"shipping":{"address":"1 Main St","city":"Portland","state":"OR","zip":"97201","country":"US"}}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	out := decodeBody[ErrorResponse](t, resp)
	assert.Equal(t, "empty_cart", out.Code)
}

func TestGetOrder_NotFound(t *testing.T) {
	orders := &stubOrderService{err: order.ErrNotFound}
	srv := testServer(t, nil, orders, nil, nil)

	resp := doRequest(t, http.MethodGet, srv.URL+"/orders/nope", customerKey, "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateOrderStatus_RequiresAdminScope(t *testing.T) {
	srv := testServer(t, nil, &stubOrderService{order: &order.Order{ID: "o1"}}, nil, nil)

	resp := doRequest(t, http.MethodPut, srv.URL+"/orders/o1/update-status", customerKey,
		`{"status":"shipped"}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestUpdateOrderStatus_Admin(t *testing.T) {
	orders := &stubOrderService{order: &order.Order{
		ID:     "o1",
		Status: order.StatusShipped,
	}}
	srv := testServer(t, nil, orders, nil, nil)

	resp := doRequest(t, http.MethodPut, srv.URL+"/orders/o1/update-status", adminAPIKey,
		`{"status":"shipped","tracking_number":"TRK123"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeBody[OrderResponse](t, resp)
	assert.Equal(t, "shipped", out.Status)
}

func TestOrderTracking(t *testing.T) {
	orders := &stubOrderService{order: &order.Order{
		ID:             "o1",
		OrderNumber:    "ORD-9F2C41D08A3B",
		Status:         order.StatusShipped,
		TrackingNumber: "TRK123",
	}}
	srv := testServer(t, nil, orders, nil, nil)

	resp := doRequest(t, http.MethodGet, srv.URL+"/orders/o1/tracking", customerKey, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeBody[TrackingResponse](t, resp)
	assert.Equal(t, "TRK123", out.TrackingNumber)
	assert.Equal(t, "shipped", out.Status)
}
