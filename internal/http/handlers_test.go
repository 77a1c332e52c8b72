package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"checkngo/internal/domain"
	"checkngo/internal/idempotency"
	"checkngo/internal/inventory"
	"checkngo/internal/metrics"
	"checkngo/internal/repository"
	"checkngo/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupServer(t *testing.T, token string) (*Server, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := inventory.NewEngine(store, inventory.Options{ConflictRetries: 3}, log)
	s := NewServer(Deps{
		Products:     service.NewProductService(store, store),
		Checkout:     service.NewCheckoutService(store, store, engine, service.CheckoutOptions{}, log),
		Idempotency:  idempotency.NewMemoryStore(0),
		Metrics:      metrics.NewServerMetrics("test"),
		BreakerState: func() string { return "closed" },
		AdminToken:   token,
		Logger:       log,
	})
	return s, store
}

func seedCatalog(t *testing.T, store *repository.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	if err := store.PutStore(ctx, domain.Store{ID: 1, Name: "store one"}); err != nil {
		t.Fatal(err)
	}
	for _, p := range []domain.Product{
		{Title: "Apple Juice", Price: decimal.RequireFromString("10.00"), Stock: 5},
		{Title: "Banana Chips", Price: decimal.RequireFromString("5.005"), Stock: 1},
	} {
		p := p
		if err := store.Create(ctx, &p); err != nil {
			t.Fatal(err)
		}
	}
}

func doJSON(t *testing.T, s *Server, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func stockOf(t *testing.T, store *repository.MemoryStore, id int64) int64 {
	t.Helper()
	p, err := store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return p.Stock
}

func checkoutBody(phone string, items ...map[string]any) map[string]any {
	return map[string]any{
		"store_name":     "store-one",
		"customer_name":  "john doe",
		"customer_phone": phone,
		"payment_method": "cash",
		"items":          items,
	}
}

func TestProductFlow(t *testing.T) {
	s, _ := setupServer(t, "")
	// create
	w := doJSON(t, s, http.MethodPost, "/api/v1/products", map[string]any{
		"title": "Aspirin", "sku": "S1", "price": "10.50", "stock": 5, "category": "pharmacy",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create code %v: %s", w.Code, w.Body)
	}
	// get
	w = doJSON(t, s, http.MethodGet, "/api/v1/products/1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get code %v", w.Code)
	}
	if p := decode[domain.Product](t, w); !p.Price.Equal(decimal.RequireFromString("10.5")) {
		t.Fatalf("price %s", p.Price)
	}
	// update
	w = doJSON(t, s, http.MethodPut, "/api/v1/products/1", map[string]any{
		"title": "Aspirin Forte", "price": 12, "stock": 7,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update code %v", w.Code)
	}
	// list
	w = doJSON(t, s, http.MethodGet, "/api/v1/products?q=forte&max_price=20", nil)
	if w.Code != http.StatusOK || len(decode[[]domain.Product](t, w)) != 1 {
		t.Fatalf("list code %v: %s", w.Code, w.Body)
	}
	w = doJSON(t, s, http.MethodGet, "/api/v1/products?min_price=abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad min_price code %v", w.Code)
	}
	// search
	w = doJSON(t, s, http.MethodGet, "/api/v1/products/search?q=asp", nil)
	if w.Code != http.StatusOK || len(decode[[]domain.Product](t, w)) != 1 {
		t.Fatalf("search code %v: %s", w.Code, w.Body)
	}
	// delete
	w = doJSON(t, s, http.MethodDelete, "/api/v1/products/1", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete code %v", w.Code)
	}
	w = doJSON(t, s, http.MethodGet, "/api/v1/products/1", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after delete code %v", w.Code)
	}
}

func TestProductValidation(t *testing.T) {
	s, _ := setupServer(t, "")

	w := doJSON(t, s, http.MethodPost, "/api/v1/products", map[string]any{"price": 1, "stock": -2})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("code %v", w.Code)
	}
	resp := decode[errorResponse](t, w)
	joined := strings.Join(resp.Messages, "|")
	if !strings.Contains(joined, "title is required") || !strings.Contains(joined, "stock must be at least 0") {
		t.Fatalf("unexpected messages: %v", resp.Messages)
	}

	w = doJSON(t, s, http.MethodPost, "/api/v1/products", map[string]any{"title": "X", "price": "-1"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("negative price code %v", w.Code)
	}

	w = doJSON(t, s, http.MethodGet, "/api/v1/products/abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad id code %v", w.Code)
	}
}

func TestSetStock(t *testing.T) {
	s, store := setupServer(t, "")
	seedCatalog(t, store)

	w := doJSON(t, s, http.MethodPut, "/api/v1/products/1/stock", map[string]any{"stock": 9})
	if w.Code != http.StatusOK || stockOf(t, store, 1) != 9 {
		t.Fatalf("unconditional code %v", w.Code)
	}
	w = doJSON(t, s, http.MethodPut, "/api/v1/products/1/stock", map[string]any{"stock": 4, "expected_stock": 5})
	if w.Code != http.StatusConflict {
		t.Fatalf("stale expected_stock code %v", w.Code)
	}
	w = doJSON(t, s, http.MethodPut, "/api/v1/products/1/stock", map[string]any{"stock": 4, "expected_stock": 9})
	if w.Code != http.StatusOK || stockOf(t, store, 1) != 4 {
		t.Fatalf("conditional code %v", w.Code)
	}
	w = doJSON(t, s, http.MethodPut, "/api/v1/products/1/stock", map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing stock code %v", w.Code)
	}
}

func TestStores(t *testing.T) {
	s, store := setupServer(t, "")
	seedCatalog(t, store)

	w := doJSON(t, s, http.MethodGet, "/api/v1/stores", nil)
	if w.Code != http.StatusOK || len(decode[[]domain.Store](t, w)) != 1 {
		t.Fatalf("list stores code %v", w.Code)
	}
	w = doJSON(t, s, http.MethodGet, "/api/v1/stores/Store-One", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get store code %v", w.Code)
	}
	w = doJSON(t, s, http.MethodGet, "/api/v1/stores/nowhere", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing store code %v", w.Code)
	}
}

func TestAdminAuth(t *testing.T) {
	s, store := setupServer(t, "s3cret")
	seedCatalog(t, store)

	w := doJSON(t, s, http.MethodDelete, "/api/v1/products/1", nil)
	if w.Code != http.StatusUnauthorized || decode[errorResponse](t, w).Error != "Authorization token required" {
		t.Fatalf("no token: %v %s", w.Code, w.Body)
	}
	w = doJSON(t, s, http.MethodDelete, "/api/v1/products/1", nil, "Authorization", "Bearer nope")
	if w.Code != http.StatusUnauthorized || decode[errorResponse](t, w).Error != "Invalid authentication token" {
		t.Fatalf("bad token: %v %s", w.Code, w.Body)
	}
	// чтение открыто
	w = doJSON(t, s, http.MethodGet, "/api/v1/products/1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("public read code %v", w.Code)
	}
	w = doJSON(t, s, http.MethodDelete, "/api/v1/products/1", nil, "Authorization", "Bearer s3cret")
	if w.Code != http.StatusNoContent {
		t.Fatalf("valid token code %v", w.Code)
	}
}

func TestCheckoutFlow(t *testing.T) {
	s, store := setupServer(t, "")
	seedCatalog(t, store)

	w := doJSON(t, s, http.MethodPost, "/api/v1/checkout", checkoutBody("9876543210",
		map[string]any{"product_id": 1, "quantity": 2},
		map[string]any{"product_id": 2, "quantity": 1},
	))
	if w.Code != http.StatusCreated {
		t.Fatalf("checkout code %v: %s", w.Code, w.Body)
	}
	bill := decode[domain.Bill](t, w)
	if !bill.Total.Equal(decimal.NewFromInt(26)) || bill.StoreName != "Store One" || bill.CustomerName != "John Doe" {
		t.Fatalf("unexpected bill: %+v", bill)
	}
	if stockOf(t, store, 1) != 3 || stockOf(t, store, 2) != 0 {
		t.Fatalf("stock not decremented")
	}
}

func TestCheckoutValidationFailed(t *testing.T) {
	s, store := setupServer(t, "")
	seedCatalog(t, store)

	w := doJSON(t, s, http.MethodPost, "/api/v1/checkout", checkoutBody("12345",
		map[string]any{"product_id": 1, "quantity": 1},
	))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("code %v", w.Code)
	}
	resp := decode[abortResponse](t, w)
	if resp.Error != "validation_failed" || len(resp.Messages) != 1 || resp.Messages[0] != "Phone number must be 10 digits." {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if stockOf(t, store, 1) != 5 {
		t.Fatalf("validation failure must not touch stock")
	}
}

func TestCheckoutRejectsNegativeDuplicateLine(t *testing.T) {
	s, store := setupServer(t, "")
	seedCatalog(t, store)

	w := doJSON(t, s, http.MethodPost, "/api/v1/checkout", checkoutBody("9876543210",
		map[string]any{"product_id": 1, "quantity": 3},
		map[string]any{"product_id": 1, "quantity": -2},
	))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("code %v: %s", w.Code, w.Body)
	}
	resp := decode[abortResponse](t, w)
	if len(resp.Messages) != 1 || resp.Messages[0] != "Quantity for product 1 must be at least 1." {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if stockOf(t, store, 1) != 5 {
		t.Fatalf("rejected cart must not touch stock")
	}
}

func TestCheckoutPartialFailure(t *testing.T) {
	s, store := setupServer(t, "")
	seedCatalog(t, store)

	w := doJSON(t, s, http.MethodPost, "/api/v1/checkout", checkoutBody("9876543210",
		map[string]any{"product_id": 1, "quantity": 2},
		map[string]any{"product_id": 2, "quantity": 2, "title": "Banana Chips"},
	))
	if w.Code != http.StatusConflict {
		t.Fatalf("code %v: %s", w.Code, w.Body)
	}
	resp := decode[abortResponse](t, w)
	if resp.Error != "stock_conflict" || resp.RolledBack || len(resp.Lines) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if f := resp.Lines[1].Failure; f == nil || f.Kind != inventory.FailInsufficientStock || f.Available != 1 {
		t.Fatalf("unexpected failure: %+v", resp.Lines[1])
	}
	if stockOf(t, store, 1) != 3 {
		t.Fatalf("first line should stay decremented, got %d", stockOf(t, store, 1))
	}
}

func TestCheckoutIdempotencyKey(t *testing.T) {
	s, store := setupServer(t, "")
	seedCatalog(t, store)
	body := checkoutBody("9876543210", map[string]any{"product_id": 1, "quantity": 1})

	w1 := doJSON(t, s, http.MethodPost, "/api/v1/checkout", body, "Idempotency-Key", "k-1")
	w2 := doJSON(t, s, http.MethodPost, "/api/v1/checkout", body, "Idempotency-Key", "k-1")
	if w1.Code != http.StatusCreated || w2.Code != http.StatusCreated {
		t.Fatalf("codes %v %v", w1.Code, w2.Code)
	}
	if w2.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("second response must be a replay")
	}
	if decode[domain.Bill](t, w1).ID != decode[domain.Bill](t, w2).ID {
		t.Fatalf("replay returned a different bill")
	}
	if stockOf(t, store, 1) != 4 {
		t.Fatalf("stock decremented twice: %d", stockOf(t, store, 1))
	}
}

func TestBillPreview(t *testing.T) {
	s, store := setupServer(t, "")
	seedCatalog(t, store)

	w := doJSON(t, s, http.MethodPost, "/api/v1/bills/preview", map[string]any{
		"payment_method": "card",
		"items":          []map[string]any{{"product_id": 1, "quantity": 2}, {"product_id": 2, "quantity": 1}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("code %v: %s", w.Code, w.Body)
	}
	if bill := decode[domain.Bill](t, w); !bill.Total.Equal(decimal.RequireFromString("25.01")) {
		t.Fatalf("total %s", bill.Total)
	}
	if stockOf(t, store, 1) != 5 {
		t.Fatalf("preview must not touch stock")
	}

	w = doJSON(t, s, http.MethodPost, "/api/v1/bills/preview", map[string]any{"items": []any{}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty cart code %v", w.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s, _ := setupServer(t, "")

	w := doJSON(t, s, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health code %v", w.Code)
	}
	if h := decode[map[string]string](t, w); h["store_breaker"] != "closed" {
		t.Fatalf("unexpected health: %v", h)
	}

	w = doJSON(t, s, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "checkngo_test_http_requests_total") {
		t.Fatalf("metrics code %v", w.Code)
	}
}
