package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/packline/api/internal/database"
	"github.com/packline/api/internal/enum"
)

// OrderReadStore is the read surface for the dashboard views.
type OrderReadStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListOrderSummaries(ctx context.Context, arg database.ListOrdersParams) ([]database.OrderSummary, error)
}

// OrderService serves the read side: order lists for the dashboard and the
// full pick list for a single order.
type OrderService struct {
	store OrderReadStore
}

func NewOrderService(store OrderReadStore) *OrderService {
	return &OrderService{store: store}
}

// OrderOverview is one row of the dashboard list.
type OrderOverview struct {
	Order          database.Order
	TotalItems     int
	Progress       int
	ElapsedMinutes int64
}

// OrderDetail is an order with its items in pick-list order.
type OrderDetail struct {
	Order          database.Order
	Items          []database.OrderItem
	Progress       int
	ElapsedMinutes int64
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

func (s *OrderService) ListOrders(ctx context.Context, status string, limit, offset int32) ([]OrderOverview, error) {
	var filter pgtype.Text
	if status != "" {
		if !enum.ValidOrderStatus(status) {
			return nil, ErrInvalidStatusFilter
		}
		filter = pgtype.Text{String: status, Valid: true}
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	summaries, err := s.store.ListOrderSummaries(ctx, database.ListOrdersParams{
		Status: filter,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	now := time.Now().UTC()
	overviews := make([]OrderOverview, 0, len(summaries))
	for _, sum := range summaries {
		progress := 0
		if sum.TotalItems > 0 {
			progress = int(sum.PickedItems * 100 / sum.TotalItems)
		}
		overviews = append(overviews, OrderOverview{
			Order:          sum.Order,
			TotalItems:     int(sum.TotalItems),
			Progress:       progress,
			ElapsedMinutes: ElapsedMinutes(sum.Order, now),
		})
	}
	return overviews, nil
}

func (s *OrderService) GetOrderDetail(ctx context.Context, orderID uuid.UUID) (OrderDetail, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return OrderDetail{}, ErrOrderNotFound
		}
		return OrderDetail{}, fmt.Errorf("load order: %w", err)
	}

	items, err := s.store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return OrderDetail{}, fmt.Errorf("load items: %w", err)
	}

	return OrderDetail{
		Order:          order,
		Items:          items,
		Progress:       Progress(items),
		ElapsedMinutes: ElapsedMinutes(order, time.Now().UTC()),
	}, nil
}
