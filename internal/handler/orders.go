package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/packline/api/internal/database"
	"github.com/packline/api/internal/middleware"
	"github.com/packline/api/internal/service"
	"github.com/shopspring/decimal"
)

// OrderImporter defines the service methods needed by the import endpoint.
// Satisfied by *service.ImportService; narrow interface for testability.
type OrderImporter interface {
	ImportOrder(ctx context.Context, imp service.OrderImport) (service.ImportResult, error)
}

// OrderReader defines the service methods needed by the read endpoints.
// Satisfied by *service.OrderService.
type OrderReader interface {
	ListOrders(ctx context.Context, status string, limit, offset int32) ([]service.OrderOverview, error)
	GetOrderDetail(ctx context.Context, orderID uuid.UUID) (service.OrderDetail, error)
}

// OrderCloser defines the service methods needed by finalize/cancel.
// Satisfied by *service.FulfillmentService.
type OrderCloser interface {
	FinalizeOrder(ctx context.Context, orderID uuid.UUID, actor string) (database.Order, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID, actor string) (database.Order, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	importer OrderImporter
	reader   OrderReader
	closer   OrderCloser
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(importer OrderImporter, reader OrderReader, closer OrderCloser) *OrderHandler {
	return &OrderHandler{importer: importer, reader: reader, closer: closer}
}

// --- Request / Response types ---

type importOrderRequest struct {
	QuoteRef        string              `json:"quote_ref"`
	CustomerName    string              `json:"customer_name"`
	Salesperson     string              `json:"salesperson"`
	ShippingMethod  string              `json:"shipping_method"`
	PackagingMethod string              `json:"packaging_method"`
	Notes           string              `json:"notes"`
	Items           []importItemRequest `json:"items"`
}

type importItemRequest struct {
	ProductRef string `json:"product_ref"`
	Quantity   int32  `json:"quantity"`
	UnitPrice  string `json:"unit_price"`
}

type orderResponse struct {
	ID              uuid.UUID  `json:"id"`
	QuoteRef        string     `json:"quote_ref"`
	CustomerName    string     `json:"customer_name"`
	Salesperson     string     `json:"salesperson"`
	ShippingMethod  string     `json:"shipping_method"`
	PackagingMethod string     `json:"packaging_method"`
	Notes           *string    `json:"notes"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       time.Time  `json:"started_at"`
	FinalizedAt     *time.Time `json:"finalized_at"`
}

type orderOverviewResponse struct {
	orderResponse
	TotalItems     int   `json:"total_items"`
	Progress       int   `json:"progress"`
	ElapsedMinutes int64 `json:"elapsed_minutes"`
}

type orderDetailResponse struct {
	orderResponse
	Items          []itemResponse `json:"items"`
	Progress       int            `json:"progress"`
	ElapsedMinutes int64          `json:"elapsed_minutes"`
}

type itemResponse struct {
	ID                    uuid.UUID  `json:"id"`
	Position              int32      `json:"position"`
	ProductRef            string     `json:"product_ref"`
	QuantityRequested     int32      `json:"quantity_requested"`
	QuantityFulfilled     int32      `json:"quantity_fulfilled"`
	UnitPrice             *string    `json:"unit_price"`
	Status                string     `json:"status"`
	PickedBy              *string    `json:"picked_by"`
	PickedAt              *time.Time `json:"picked_at"`
	RoutedBy              *string    `json:"routed_by"`
	RoutedAt              *time.Time `json:"routed_at"`
	PurchaseConfirmed     bool       `json:"purchase_confirmed"`
	ConfirmedBy           *string    `json:"confirmed_by"`
	ConfirmedAt           *time.Time `json:"confirmed_at"`
	SubstituteDescription *string    `json:"substitute_description"`
}

// orderListResponse wraps a list of orders with pagination metadata.
type orderListResponse struct {
	Orders []orderOverviewResponse `json:"orders"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
}

// --- Handlers ---

// Import handles POST /orders: a quote handed over from sales becomes a
// pickable order.
func (h *OrderHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req importOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	items := make([]service.ItemImport, len(req.Items))
	for i, it := range req.Items {
		items[i] = service.ItemImport{
			ProductRef: it.ProductRef,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
		}
	}

	result, err := h.importer.ImportOrder(r.Context(), service.OrderImport{
		QuoteRef:        req.QuoteRef,
		CustomerName:    req.CustomerName,
		Salesperson:     req.Salesperson,
		ShippingMethod:  req.ShippingMethod,
		PackagingMethod: req.PackagingMethod,
		Notes:           req.Notes,
		Items:           items,
	})
	if err != nil {
		writeServiceError(w, err, "import order")
		return
	}

	itemResps := make([]itemResponse, len(result.Items))
	for i, it := range result.Items {
		itemResps[i] = dbItemToResponse(it)
	}

	writeJSON(w, http.StatusCreated, orderDetailResponse{
		orderResponse:  dbOrderToResponse(result.Order),
		Items:          itemResps,
		Progress:       0,
		ElapsedMinutes: 0,
	})
}

// List handles GET /orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	overviews, err := h.reader.ListOrders(r.Context(), r.URL.Query().Get("status"), int32(limit), int32(offset))
	if err != nil {
		writeServiceError(w, err, "list orders")
		return
	}

	resp := make([]orderOverviewResponse, len(overviews))
	for i, ov := range overviews {
		resp[i] = orderOverviewResponse{
			orderResponse:  dbOrderToResponse(ov.Order),
			TotalItems:     ov.TotalItems,
			Progress:       ov.Progress,
			ElapsedMinutes: ov.ElapsedMinutes,
		}
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Orders: resp,
		Limit:  limit,
		Offset: offset,
	})
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	detail, err := h.reader.GetOrderDetail(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, err, "get order")
		return
	}

	items := make([]itemResponse, len(detail.Items))
	for i, it := range detail.Items {
		items[i] = dbItemToResponse(it)
	}

	writeJSON(w, http.StatusOK, orderDetailResponse{
		orderResponse:  dbOrderToResponse(detail.Order),
		Items:          items,
		Progress:       detail.Progress,
		ElapsedMinutes: detail.ElapsedMinutes,
	})
}

// Finalize handles POST /orders/{id}/finalize.
func (h *OrderHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	order, err := h.closer.FinalizeOrder(r.Context(), orderID, claims.Name)
	if err != nil {
		writeServiceError(w, err, "finalize order")
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(order))
}

// Cancel handles DELETE /orders/{id}.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	order, err := h.closer.CancelOrder(r.Context(), orderID, claims.Name)
	if err != nil {
		writeServiceError(w, err, "cancel order")
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(order))
}

// --- Helpers ---

// writeServiceError maps service errors to HTTP status codes. Unknown errors
// are logged and hidden behind a generic 500.
func writeServiceError(w http.ResponseWriter, err error, op string) {
	var incomplete *service.IncompleteOrderError
	switch {
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrItemNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})

	case errors.As(err, &incomplete),
		errors.Is(err, service.ErrAlreadyPicked),
		errors.Is(err, service.ErrAlreadyRouted),
		errors.Is(err, service.ErrOrderClosed),
		errors.Is(err, service.ErrStateChanged),
		errors.Is(err, service.ErrQuoteRefTaken):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})

	case errors.Is(err, service.ErrEmptyItems),
		errors.Is(err, service.ErrEmptyQuoteRef),
		errors.Is(err, service.ErrEmptyProductRef),
		errors.Is(err, service.ErrEmptySubstitute),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidStatusFilter),
		errors.Is(err, service.ErrInvalidShipping),
		errors.Is(err, service.ErrInvalidPackaging),
		errors.Is(err, service.ErrIncompatiblePackaging),
		errors.Is(err, service.ErrInvalidUnitPrice):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})

	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func dbOrderToResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:              o.ID,
		QuoteRef:        o.QuoteRef,
		CustomerName:    o.CustomerName,
		Salesperson:     o.Salesperson,
		ShippingMethod:  o.ShippingMethod,
		PackagingMethod: o.PackagingMethod,
		Status:          o.Status,
		CreatedAt:       o.CreatedAt,
		StartedAt:       o.StartedAt,
	}
	if o.Notes.Valid {
		resp.Notes = &o.Notes.String
	}
	if o.FinalizedAt.Valid {
		resp.FinalizedAt = &o.FinalizedAt.Time
	}
	return resp
}

func dbItemToResponse(item database.OrderItem) itemResponse {
	resp := itemResponse{
		ID:                item.ID,
		Position:          item.Position,
		ProductRef:        item.ProductRef,
		QuantityRequested: item.QuantityRequested,
		QuantityFulfilled: item.QuantityFulfilled,
		Status:            service.StateOf(item).Status,
		PurchaseConfirmed: item.PurchaseConfirmed,
	}

	if item.UnitPrice.Valid {
		s := numericToString(item.UnitPrice)
		resp.UnitPrice = &s
	}
	if item.PickedBy.Valid {
		resp.PickedBy = &item.PickedBy.String
	}
	if item.PickedAt.Valid {
		resp.PickedAt = &item.PickedAt.Time
	}
	if item.RoutedBy.Valid {
		resp.RoutedBy = &item.RoutedBy.String
	}
	if item.RoutedAt.Valid {
		resp.RoutedAt = &item.RoutedAt.Time
	}
	if item.ConfirmedBy.Valid {
		resp.ConfirmedBy = &item.ConfirmedBy.String
	}
	if item.ConfirmedAt.Valid {
		resp.ConfirmedAt = &item.ConfirmedAt.Time
	}
	if item.SubstituteDescription.Valid {
		resp.SubstituteDescription = &item.SubstituteDescription.String
	}
	return resp
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}
