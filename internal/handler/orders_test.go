package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/packline/api/internal/auth"
	"github.com/packline/api/internal/database"
	"github.com/packline/api/internal/enum"
	"github.com/packline/api/internal/handler"
	"github.com/packline/api/internal/middleware"
	"github.com/packline/api/internal/service"
)

// --- Mocks ---

type mockImporter struct {
	importFn func(ctx context.Context, imp service.OrderImport) (service.ImportResult, error)
}

func (m *mockImporter) ImportOrder(ctx context.Context, imp service.OrderImport) (service.ImportResult, error) {
	return m.importFn(ctx, imp)
}

type mockReader struct {
	listFn func(ctx context.Context, status string, limit, offset int32) ([]service.OrderOverview, error)
	getFn  func(ctx context.Context, orderID uuid.UUID) (service.OrderDetail, error)
}

func (m *mockReader) ListOrders(ctx context.Context, status string, limit, offset int32) ([]service.OrderOverview, error) {
	return m.listFn(ctx, status, limit, offset)
}
func (m *mockReader) GetOrderDetail(ctx context.Context, orderID uuid.UUID) (service.OrderDetail, error) {
	return m.getFn(ctx, orderID)
}

type mockCloser struct {
	finalizeFn func(ctx context.Context, orderID uuid.UUID, actor string) (database.Order, error)
	cancelFn   func(ctx context.Context, orderID uuid.UUID, actor string) (database.Order, error)
}

func (m *mockCloser) FinalizeOrder(ctx context.Context, orderID uuid.UUID, actor string) (database.Order, error) {
	return m.finalizeFn(ctx, orderID, actor)
}
func (m *mockCloser) CancelOrder(ctx context.Context, orderID uuid.UUID, actor string) (database.Order, error) {
	return m.cancelFn(ctx, orderID, actor)
}

// --- Test helpers ---

const testJWTSecret = "test-secret-for-orders"

func setupOrderRouter(imp *mockImporter, rd *mockReader, cl *mockCloser) *chi.Mux {
	h := handler.NewOrderHandler(imp, rd, cl)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.Import)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Post("/{id}/finalize", h.Finalize)
		r.Delete("/{id}", h.Cancel)
	})
	return r
}

func doAuthRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	token, err := auth.GenerateToken(testJWTSecret, uuid.New(), "Dana Wells", "ADMIN")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func testOrder(id uuid.UUID) database.Order {
	return database.Order{
		ID:              id,
		QuoteRef:        "Q-2024-0042",
		CustomerName:    "Acme Fabrication",
		Salesperson:     "Dana Wells",
		ShippingMethod:  enum.ShippingFreight,
		PackagingMethod: enum.PackagingPallet,
		Status:          enum.OrderStatusInProgress,
		StartedAt:       time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC),
	}
}

// --- Tests ---

func TestImportEndpoint(t *testing.T) {
	orderID := uuid.New()
	imp := &mockImporter{
		importFn: func(ctx context.Context, o service.OrderImport) (service.ImportResult, error) {
			if o.QuoteRef != "Q-2024-0042" || len(o.Items) != 1 {
				t.Errorf("unexpected import payload: %+v", o)
			}
			return service.ImportResult{
				Order: testOrder(orderID),
				Items: []database.OrderItem{{ID: uuid.New(), OrderID: orderID, Position: 1, ProductRef: "SKU-4410", QuantityRequested: 12}},
			}, nil
		},
	}
	router := setupOrderRouter(imp, nil, nil)

	body := map[string]interface{}{
		"quote_ref":        "Q-2024-0042",
		"customer_name":    "Acme Fabrication",
		"salesperson":      "Dana Wells",
		"shipping_method":  "FREIGHT",
		"packaging_method": "PALLET",
		"items": []map[string]interface{}{
			{"product_ref": "SKU-4410", "quantity": 12},
		},
	}
	rr := doAuthRequest(t, router, "POST", "/orders", body)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["quote_ref"] != "Q-2024-0042" {
		t.Errorf("quote_ref = %v", resp["quote_ref"])
	}
	if resp["progress"] != float64(0) {
		t.Errorf("progress = %v, want 0", resp["progress"])
	}
}

func TestImportEndpointIncompatiblePackaging(t *testing.T) {
	imp := &mockImporter{
		importFn: func(ctx context.Context, o service.OrderImport) (service.ImportResult, error) {
			return service.ImportResult{}, service.ErrIncompatiblePackaging
		},
	}
	router := setupOrderRouter(imp, nil, nil)

	rr := doAuthRequest(t, router, "POST", "/orders", map[string]interface{}{
		"quote_ref": "Q-1", "shipping_method": "PARCEL", "packaging_method": "PALLET",
		"items": []map[string]interface{}{{"product_ref": "X", "quantity": 1}},
	})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestImportEndpointDuplicateQuote(t *testing.T) {
	imp := &mockImporter{
		importFn: func(ctx context.Context, o service.OrderImport) (service.ImportResult, error) {
			return service.ImportResult{}, service.ErrQuoteRefTaken
		},
	}
	router := setupOrderRouter(imp, nil, nil)

	rr := doAuthRequest(t, router, "POST", "/orders", map[string]interface{}{
		"quote_ref": "Q-1", "shipping_method": "PICKUP", "packaging_method": "BOX",
		"items": []map[string]interface{}{{"product_ref": "X", "quantity": 1}},
	})

	if rr.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rr.Code)
	}
}

func TestListEndpoint(t *testing.T) {
	rd := &mockReader{
		listFn: func(ctx context.Context, status string, limit, offset int32) ([]service.OrderOverview, error) {
			if status != "IN_PROGRESS" {
				t.Errorf("status filter = %q", status)
			}
			return []service.OrderOverview{
				{Order: testOrder(uuid.New()), TotalItems: 3, Progress: 66, ElapsedMinutes: 45},
			}, nil
		},
	}
	router := setupOrderRouter(nil, rd, nil)

	rr := doAuthRequest(t, router, "GET", "/orders?status=IN_PROGRESS", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	resp := decodeResponse(t, rr)
	orders, ok := resp["orders"].([]interface{})
	if !ok || len(orders) != 1 {
		t.Fatalf("orders = %v", resp["orders"])
	}
	first := orders[0].(map[string]interface{})
	if first["progress"] != float64(66) || first["total_items"] != float64(3) {
		t.Errorf("overview = %v", first)
	}
}

func TestListEndpointInvalidStatus(t *testing.T) {
	rd := &mockReader{
		listFn: func(ctx context.Context, status string, limit, offset int32) ([]service.OrderOverview, error) {
			return nil, service.ErrInvalidStatusFilter
		},
	}
	router := setupOrderRouter(nil, rd, nil)

	rr := doAuthRequest(t, router, "GET", "/orders?status=BOGUS", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestGetEndpoint(t *testing.T) {
	orderID := uuid.New()
	rd := &mockReader{
		getFn: func(ctx context.Context, id uuid.UUID) (service.OrderDetail, error) {
			if id != orderID {
				return service.OrderDetail{}, service.ErrOrderNotFound
			}
			return service.OrderDetail{
				Order: testOrder(orderID),
				Items: []database.OrderItem{
					{ID: uuid.New(), OrderID: orderID, Position: 1, ProductRef: "SKU-4410", QuantityRequested: 12, Picked: true},
					{ID: uuid.New(), OrderID: orderID, Position: 2, ProductRef: "SKU-0077", QuantityRequested: 4},
				},
				Progress:       50,
				ElapsedMinutes: 30,
			}, nil
		},
	}
	router := setupOrderRouter(nil, rd, nil)

	rr := doAuthRequest(t, router, "GET", "/orders/"+orderID.String(), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	resp := decodeResponse(t, rr)
	if resp["progress"] != float64(50) {
		t.Errorf("progress = %v", resp["progress"])
	}
	items := resp["items"].([]interface{})
	if len(items) != 2 {
		t.Fatalf("items = %d", len(items))
	}
	first := items[0].(map[string]interface{})
	if first["status"] != "PICKED" {
		t.Errorf("item status = %v, want PICKED", first["status"])
	}
	second := items[1].(map[string]interface{})
	if second["status"] != "PENDING" {
		t.Errorf("item status = %v, want PENDING", second["status"])
	}
}

func TestGetEndpointNotFound(t *testing.T) {
	rd := &mockReader{
		getFn: func(ctx context.Context, id uuid.UUID) (service.OrderDetail, error) {
			return service.OrderDetail{}, service.ErrOrderNotFound
		},
	}
	router := setupOrderRouter(nil, rd, nil)

	rr := doAuthRequest(t, router, "GET", "/orders/"+uuid.NewString(), nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestFinalizeEndpoint(t *testing.T) {
	orderID := uuid.New()
	cl := &mockCloser{
		finalizeFn: func(ctx context.Context, id uuid.UUID, actor string) (database.Order, error) {
			if actor != "Dana Wells" {
				t.Errorf("actor = %q, want name from token", actor)
			}
			o := testOrder(id)
			o.Status = enum.OrderStatusFinalized
			return o, nil
		},
	}
	router := setupOrderRouter(nil, nil, cl)

	rr := doAuthRequest(t, router, "POST", "/orders/"+orderID.String()+"/finalize", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	resp := decodeResponse(t, rr)
	if resp["status"] != enum.OrderStatusFinalized {
		t.Errorf("status = %v", resp["status"])
	}
}

func TestFinalizeEndpointIncomplete(t *testing.T) {
	cl := &mockCloser{
		finalizeFn: func(ctx context.Context, id uuid.UUID, actor string) (database.Order, error) {
			return database.Order{}, &service.IncompleteOrderError{Progress: 66}
		},
	}
	router := setupOrderRouter(nil, nil, cl)

	rr := doAuthRequest(t, router, "POST", "/orders/"+uuid.NewString()+"/finalize", nil)
	if rr.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rr.Code)
	}
	resp := decodeResponse(t, rr)
	if resp["error"] != "order is only 66% picked, cannot finalize" {
		t.Errorf("error = %v", resp["error"])
	}
}

func TestCancelEndpoint(t *testing.T) {
	cl := &mockCloser{
		cancelFn: func(ctx context.Context, id uuid.UUID, actor string) (database.Order, error) {
			o := testOrder(id)
			o.Status = enum.OrderStatusCancelled
			return o, nil
		},
	}
	router := setupOrderRouter(nil, nil, cl)

	rr := doAuthRequest(t, router, "DELETE", "/orders/"+uuid.NewString(), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestCancelEndpointClosed(t *testing.T) {
	cl := &mockCloser{
		cancelFn: func(ctx context.Context, id uuid.UUID, actor string) (database.Order, error) {
			return database.Order{}, service.ErrOrderClosed
		},
	}
	router := setupOrderRouter(nil, nil, cl)

	rr := doAuthRequest(t, router, "DELETE", "/orders/"+uuid.NewString(), nil)
	if rr.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rr.Code)
	}
}

func TestUnauthenticatedRequestRejected(t *testing.T) {
	router := setupOrderRouter(nil, &mockReader{
		listFn: func(ctx context.Context, status string, limit, offset int32) ([]service.OrderOverview, error) {
			t.Fatal("handler should not be called")
			return nil, nil
		},
	}, nil)

	req := httptest.NewRequest("GET", "/orders", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}
