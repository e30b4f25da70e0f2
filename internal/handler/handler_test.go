package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/pricing"
	"github.com/xenking/storefront/internal/domain/product"
)

// --- Mock implementations ---

type mockProductRepo struct {
	products []product.Product
	listErr  error
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	return m.products, m.listErr
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	for i := range m.products {
		if m.products[i].ID == id {
			p := m.products[i]
			return &p, nil
		}
	}
	return nil, product.ErrNotFound
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, err := m.GetByID(context.Background(), id); err == nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

type mockOrderRepo struct {
	mu      sync.Mutex
	byID    map[string]*order.Order
	listErr error
}

func newOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{byID: make(map[string]*order.Order)}
}

func (m *mockOrderRepo) Create(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.byID[o.ID] = &cp
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) GetByTrackingID(_ context.Context, trackingID string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.byID {
		if o.TrackingID == trackingID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, order.ErrNotFound
}

func (m *mockOrderRepo) List(_ context.Context, f order.Filter) ([]order.Order, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []order.Order
	for _, o := range m.byID {
		if f.Status == "" || o.Status == f.Status {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id string, from, to order.Status) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	if o.Status != from {
		return nil, order.ErrStatusConflict
	}
	o.Status = to
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) AppendNote(_ context.Context, id string, n order.Note) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	o.Notes = append(o.Notes, n)
	cp := *o
	return &cp, nil
}

type mockAPIKeyRepo struct {
	keys map[string]*auth.APIKeyInfo
	err  error
}

func (m *mockAPIKeyRepo) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	info, ok := m.keys[hash]
	if !ok {
		return nil, auth.ErrUnauthorized
	}
	return info, nil
}

func (m *mockAPIKeyRepo) Create(_ context.Context, info auth.APIKeyInfo) error {
	m.keys[info.KeyHash] = &info
	return nil
}

// --- Helpers ---

var testPepper = []byte("pepper")

const (
	adminKey    = "admin-secret"
	readOnlyKey = "reader-secret"
)

type testServer struct {
	mux      *http.ServeMux
	orders   *mockOrderRepo
	products *mockProductRepo
	keys     *mockAPIKeyRepo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	products := &mockProductRepo{products: []product.Product{
		{ID: "mug", Name: "Photo Mug", Price: decimal.NewFromInt(500), Stock: 10, ImageURL: "img/mug.jpg", Category: "mugs"},
		{ID: "wallet", Name: "Leather Wallet", Price: decimal.RequireFromString("450.75"), Stock: 3, ImageURL: "https://cdn.example/w.jpg", Category: "wallets"},
	}}
	orders := newOrderRepo()
	keys := &mockAPIKeyRepo{keys: make(map[string]*auth.APIKeyInfo)}
	require.NoError(t, keys.Create(context.Background(), auth.APIKeyInfo{
		ID: "1", KeyHash: auth.Hash(testPepper, adminKey), Name: "ops", Scopes: []string{auth.ScopeOrders},
	}))
	require.NoError(t, keys.Create(context.Background(), auth.APIKeyInfo{
		ID: "2", KeyHash: auth.Hash(testPepper, readOnlyKey), Name: "reports", Scopes: []string{"reports:read"},
	}))

	builder := order.NewBuilder(pricing.DefaultPolicy())
	h, err := NewHandler(HandlerConfig{
		TrackingBaseURL: "https://shop.example/track/",
		ImageBaseURL:    "https://cdn.example/",
	}, products, order.NewService(products, orders, builder), builder, nil)
	require.NoError(t, err)

	mux := http.NewServeMux()
	h.Register(mux, NewSecurityHandler(keys, testPepper).Require(auth.ScopeOrders))
	return &testServer{mux: mux, orders: orders, products: products, keys: keys}
}

func (s *testServer) do(t *testing.T, method, path, key string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	if key != "" {
		req.Header.Set(APIKeyHeader, key)
	}
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)
	return w
}

func mugPayload(qty int) order.Payload {
	return order.Payload{
		CustomerName: "Rahim Uddin",
		Phone:        "01712345678",
		District:     "Dhaka",
		Thana:        "Mirpur",
		Address:      "House 1, Road 2",
		Items: []order.Item{{
			ProductID: "mug",
			Name:      "Photo Mug",
			UnitPrice: decimal.NewFromInt(500),
			Quantity:  qty,
		}},
		Subtotal:    decimal.NewFromInt(int64(500 * qty)),
		DeliveryFee: decimal.NewFromInt(60),
		PaymentInfo: order.PaymentInfo{Method: order.PaymentCOD},
	}
}

func (s *testServer) place(t *testing.T) (string, *order.Order) {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/orders", "", mugPayload(2))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp placeOrderResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	o, err := s.orders.GetByTrackingID(context.Background(), resp.TrackingID)
	require.NoError(t, err)
	return resp.TrackingID, o
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apiError {
	t.Helper()
	var e apiError
	require.NoError(t, json.NewDecoder(w.Body).Decode(&e))
	assert.Equal(t, w.Code, e.Code)
	return e
}

// --- Tests ---

func TestPlaceOrder(t *testing.T) {
	s := newTestServer(t)
	trackingID, o := s.place(t)

	assert.True(t, strings.HasPrefix(trackingID, "TRK-"))
	assert.Equal(t, order.StatusPending, o.Status)
	assert.True(t, o.Total.Equal(decimal.NewFromInt(1060)))
}

func TestPlaceOrder_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		body    any
		code    int
		message string
	}{
		{
			name:    "malformed body",
			body:    "{not json",
			code:    http.StatusBadRequest,
			message: "malformed request body",
		},
		{
			name: "invalid phone",
			body: func() order.Payload {
				p := mugPayload(1)
				p.Subtotal = decimal.NewFromInt(500)
				p.Phone = "12345"
				return p
			}(),
			code:    http.StatusBadRequest,
			message: "phone",
		},
		{
			name: "price mismatch",
			body: func() order.Payload {
				p := mugPayload(1)
				p.Items[0].UnitPrice = decimal.NewFromInt(1)
				p.Subtotal = decimal.NewFromInt(1)
				return p
			}(),
			code:    http.StatusUnprocessableEntity,
			message: "costs 500",
		},
		{
			name: "totals mismatch",
			body: func() order.Payload {
				p := mugPayload(2)
				p.DeliveryFee = decimal.NewFromInt(120)
				return p
			}(),
			code:    http.StatusUnprocessableEntity,
			message: "deliveryFee mismatch",
		},
		{
			name:    "out of stock",
			body:    mugPayload(11),
			code:    http.StatusUnprocessableEntity,
			message: "in stock",
		},
		{
			name: "unknown product",
			body: func() order.Payload {
				p := mugPayload(1)
				p.Subtotal = decimal.NewFromInt(500)
				p.Items[0].ProductID = "ghost"
				return p
			}(),
			code:    http.StatusUnprocessableEntity,
			message: "product ghost not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			w := s.do(t, http.MethodPost, "/api/orders", "", tt.body)
			require.Equal(t, tt.code, w.Code, w.Body.String())
			assert.Contains(t, decodeError(t, w).Message, tt.message)
			assert.Empty(t, s.orders.byID, "rejected orders must not be stored")
		})
	}
}

func TestTrackOrder(t *testing.T) {
	s := newTestServer(t)
	trackingID, _ := s.place(t)

	w := s.do(t, http.MethodGet, "/api/orders/track/"+strings.ToLower(trackingID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got order.Order
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, trackingID, got.TrackingID)
	assert.Equal(t, order.StatusPending, got.Status)

	w = s.do(t, http.MethodGet, "/api/orders/track/TRK-0000000000", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTrackingQR(t *testing.T) {
	s := newTestServer(t)
	trackingID, _ := s.place(t)

	w := s.do(t, http.MethodGet, "/api/orders/track/"+trackingID+"/qr", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	w = s.do(t, http.MethodGet, "/api/orders/track/TRK-0000000000/qr", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminRoutes_Auth(t *testing.T) {
	s := newTestServer(t)
	_, o := s.place(t)

	tests := []struct {
		name string
		key  string
		code int
	}{
		{"missing key", "", http.StatusUnauthorized},
		{"unknown key", "guess", http.StatusUnauthorized},
		{"missing scope", readOnlyKey, http.StatusForbidden},
		{"admin", adminKey, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodGet, "/api/orders/"+o.ID, tt.key, nil)
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestAdminRoutes_RepositoryError(t *testing.T) {
	s := newTestServer(t)
	s.keys.err = errors.New("db down")

	w := s.do(t, http.MethodGet, "/api/orders", adminKey, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", decodeError(t, w).Message)
}

func TestUpdateStatus(t *testing.T) {
	s := newTestServer(t)
	_, o := s.place(t)
	path := "/api/orders/" + o.ID + "/status"

	w := s.do(t, http.MethodPatch, path, adminKey, statusRequest{Status: "shipped"})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, decodeError(t, w).Message, "pending")

	stored, _ := s.orders.GetByID(context.Background(), o.ID)
	assert.Equal(t, order.StatusPending, stored.Status, "illegal transition must not write")

	w = s.do(t, http.MethodPatch, path, adminKey, statusRequest{Status: "Confirmed"})
	require.Equal(t, http.StatusOK, w.Code)
	var got order.Order
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, order.StatusConfirmed, got.Status)

	w = s.do(t, http.MethodPatch, path, adminKey, statusRequest{Status: "lost"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPatch, "/api/orders/missing/status", adminKey, statusRequest{Status: "confirmed"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateStatus_Cancelled(t *testing.T) {
	s := newTestServer(t)
	_, o := s.place(t)
	path := "/api/orders/" + o.ID + "/status"

	w := s.do(t, http.MethodPatch, path, adminKey, statusRequest{Status: "cancelled"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPatch, path, adminKey, statusRequest{Status: "confirmed"})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, decodeError(t, w).Message, "can no longer change")
}

func TestAppendNote(t *testing.T) {
	s := newTestServer(t)
	_, o := s.place(t)
	path := "/api/orders/" + o.ID + "/notes"

	w := s.do(t, http.MethodPost, path, adminKey, noteRequest{Text: "  called customer  "})
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodPost, path, adminKey, noteRequest{Text: "confirmed address"})
	require.Equal(t, http.StatusOK, w.Code)

	var got order.Order
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	require.Len(t, got.Notes, 2)
	assert.Equal(t, "called customer", got.Notes[0].Text)

	w = s.do(t, http.MethodPost, path, adminKey, noteRequest{Text: "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListOrders(t *testing.T) {
	s := newTestServer(t)
	_, first := s.place(t)
	s.place(t)
	_, err := s.orders.UpdateStatus(context.Background(), first.ID, order.StatusPending, order.StatusConfirmed)
	require.NoError(t, err)

	var all []order.Order
	w := s.do(t, http.MethodGet, "/api/orders", adminKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&all))
	assert.Len(t, all, 2)

	var confirmed []order.Order
	w = s.do(t, http.MethodGet, "/api/orders?status=confirmed", adminKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&confirmed))
	require.Len(t, confirmed, 1)
	assert.Equal(t, first.ID, confirmed[0].ID)

	w = s.do(t, http.MethodGet, "/api/orders?status=lost", adminKey, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/orders?limit=x", adminKey, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/orders?status=delivered", adminKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestListOrders_Error(t *testing.T) {
	s := newTestServer(t)
	s.orders.listErr = errors.New("db down")

	w := s.do(t, http.MethodGet, "/api/orders", adminKey, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestProducts(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ps []product.Product
	require.NoError(t, json.NewDecoder(w.Body).Decode(&ps))
	require.Len(t, ps, 2)
	assert.Equal(t, "https://cdn.example/img/mug.jpg", ps[0].ImageURL)
	assert.Equal(t, "https://cdn.example/w.jpg", ps[1].ImageURL)

	w = s.do(t, http.MethodGet, "/api/products/wallet", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var p product.Product
	require.NoError(t, json.NewDecoder(w.Body).Decode(&p))
	assert.True(t, p.Price.Equal(decimal.RequireFromString("450.75")))

	w = s.do(t, http.MethodGet, "/api/products/ghost", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	s.products.listErr = errors.New("db down")
	w = s.do(t, http.MethodGet, "/api/products", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestListRegions(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/regions", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var regions []pricing.Region
	require.NoError(t, json.NewDecoder(w.Body).Decode(&regions))
	assert.Len(t, regions, len(pricing.Districts()))

	homes := 0
	for _, r := range regions {
		if r.Home {
			homes++
			assert.Equal(t, "Dhaka", r.District)
			assert.True(t, r.Fee.Equal(decimal.NewFromInt(60)))
		}
	}
	assert.Equal(t, 1, homes)
}

func TestQuote(t *testing.T) {
	s := newTestServer(t)

	t.Run("cash on delivery", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/quote", "", quoteRequest{
			Items:    []quoteItem{{ProductID: "mug", Quantity: 2}},
			District: "dhaka",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var b pricing.Breakdown
		require.NoError(t, json.NewDecoder(w.Body).Decode(&b))
		assert.True(t, b.Subtotal.Equal(decimal.NewFromInt(1000)))
		assert.True(t, b.DeliveryFee.Equal(decimal.NewFromInt(60)))
		assert.True(t, b.Advance.IsZero())
		assert.True(t, b.Remaining.Equal(decimal.NewFromInt(1060)))
	})

	t.Run("customized wallet", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/quote", "", quoteRequest{
			Items: []quoteItem{{
				ProductID:     "wallet",
				Quantity:      2,
				Customization: &cart.Customization{CustomText: "R.U."},
			}},
			District:      "Sylhet",
			PaymentMethod: order.PaymentBkash,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var b pricing.Breakdown
		require.NoError(t, json.NewDecoder(w.Body).Decode(&b))
		assert.True(t, b.Subtotal.Equal(decimal.NewFromInt(900)))
		assert.True(t, b.DeliveryFee.Equal(decimal.NewFromInt(120)))
		assert.True(t, b.Advance.Equal(decimal.NewFromInt(510)))
	})

	tests := []struct {
		name string
		req  quoteRequest
		code int
	}{
		{"empty", quoteRequest{District: "Dhaka"}, http.StatusBadRequest},
		{"bad quantity", quoteRequest{Items: []quoteItem{{ProductID: "mug"}}, District: "Dhaka"}, http.StatusBadRequest},
		{"unknown product", quoteRequest{Items: []quoteItem{{ProductID: "ghost", Quantity: 1}}, District: "Dhaka"}, http.StatusUnprocessableEntity},
		{"unknown district", quoteRequest{Items: []quoteItem{{ProductID: "mug", Quantity: 1}}, District: "Atlantis"}, http.StatusBadRequest},
		{"missing district", quoteRequest{Items: []quoteItem{{ProductID: "mug", Quantity: 1}}}, http.StatusBadRequest},
		{"bad method", quoteRequest{Items: []quoteItem{{ProductID: "mug", Quantity: 1}}, District: "Dhaka", PaymentMethod: "card"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/quote", "", tt.req)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}
}

func TestMapOrderError(t *testing.T) {
	tests := []struct {
		err    error
		code   int
		reason string
	}{
		{&order.ValidationError{Code: order.CodeEmptyCart}, http.StatusBadRequest, order.CodeEmptyCart},
		{errors.Wrap(order.ErrNotFound, "get"), http.StatusNotFound, "not_found"},
		{&order.IllegalTransitionError{From: order.StatusPending, To: order.StatusShipped}, http.StatusConflict, "illegal_transition"},
		{order.ErrStatusConflict, http.StatusConflict, "status_conflict"},
		{&order.OutOfStockError{ProductID: "mug"}, http.StatusUnprocessableEntity, "out_of_stock"},
		{&order.TotalsMismatchError{Field: "subtotal"}, http.StatusUnprocessableEntity, "totals_mismatch"},
		{errors.Wrap(errors.New("boom"), "create order"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			code, reason := mapOrderError(tt.err)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.reason, reason)
		})
	}
}
