package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/packline/api/internal/database"
	"github.com/packline/api/internal/middleware"
)

// ItemServicer defines the service methods needed by item handlers.
// Satisfied by *service.FulfillmentService.
type ItemServicer interface {
	PickItem(ctx context.Context, orderID, itemID uuid.UUID, actor string) (database.OrderItem, error)
	RouteItem(ctx context.Context, orderID, itemID uuid.UUID, actor string) (database.OrderItem, error)
	UnrouteItem(ctx context.Context, orderID, itemID uuid.UUID, actor string) (database.OrderItem, error)
	ConfirmPurchase(ctx context.Context, orderID, itemID uuid.UUID, actor string) (database.OrderItem, error)
	UnconfirmPurchase(ctx context.Context, orderID, itemID uuid.UUID, actor string) (database.OrderItem, error)
	SubstituteItem(ctx context.Context, orderID, itemID uuid.UUID, actor, description string) (database.OrderItem, error)
}

// ItemHandler handles item transition endpoints.
type ItemHandler struct {
	svc ItemServicer
}

// NewItemHandler creates a new ItemHandler.
func NewItemHandler(svc ItemServicer) *ItemHandler {
	return &ItemHandler{svc: svc}
}

// RegisterRoutes registers item endpoints on the given Chi router.
// Expected to be mounted at /orders/{id}/items.
func (h *ItemHandler) RegisterRoutes(r chi.Router) {
	r.Post("/{itemID}/pick", h.Pick)
	r.Post("/{itemID}/route", h.Route)
	r.Post("/{itemID}/unroute", h.Unroute)
	r.Post("/{itemID}/confirm-purchase", h.ConfirmPurchase)
	r.Post("/{itemID}/unconfirm-purchase", h.UnconfirmPurchase)
	r.Post("/{itemID}/substitute", h.Substitute)
}

type substituteRequest struct {
	Description string `json:"description"`
}

type transitionFunc func(ctx context.Context, orderID, itemID uuid.UUID, actor string) (database.OrderItem, error)

// Pick handles POST /orders/{id}/items/{itemID}/pick.
func (h *ItemHandler) Pick(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "pick item", h.svc.PickItem)
}

// Route handles POST /orders/{id}/items/{itemID}/route.
func (h *ItemHandler) Route(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "route item", h.svc.RouteItem)
}

// Unroute handles POST /orders/{id}/items/{itemID}/unroute.
func (h *ItemHandler) Unroute(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "unroute item", h.svc.UnrouteItem)
}

// ConfirmPurchase handles POST /orders/{id}/items/{itemID}/confirm-purchase.
func (h *ItemHandler) ConfirmPurchase(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "confirm purchase", h.svc.ConfirmPurchase)
}

// UnconfirmPurchase handles POST /orders/{id}/items/{itemID}/unconfirm-purchase.
func (h *ItemHandler) UnconfirmPurchase(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "unconfirm purchase", h.svc.UnconfirmPurchase)
}

// Substitute handles POST /orders/{id}/items/{itemID}/substitute.
func (h *ItemHandler) Substitute(w http.ResponseWriter, r *http.Request) {
	var req substituteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	h.transition(w, r, "substitute item", func(ctx context.Context, orderID, itemID uuid.UUID, actor string) (database.OrderItem, error) {
		return h.svc.SubstituteItem(ctx, orderID, itemID, actor, req.Description)
	})
}

// transition runs the shared parse/authenticate/respond shape around a single
// item state change.
func (h *ItemHandler) transition(w http.ResponseWriter, r *http.Request, op string, fn transitionFunc) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	item, err := fn(r.Context(), orderID, itemID, claims.Name)
	if err != nil {
		writeServiceError(w, err, op)
		return
	}

	writeJSON(w, http.StatusOK, dbItemToResponse(item))
}
