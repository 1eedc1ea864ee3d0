package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/packline/api/internal/database"
	"github.com/packline/api/internal/enum"
)

// FulfillmentStore defines the DB methods the fulfillment use cases need.
// Satisfied by *database.Queries; narrow interface for testability.
type FulfillmentStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetOrderItem(ctx context.Context, id uuid.UUID) (database.OrderItem, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	UpdateItemState(ctx context.Context, arg database.UpdateItemStateParams) (database.OrderItem, error)
	FinalizeOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	CancelOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
}

// Publisher pushes a typed event to every dashboard viewer of a group.
// Fire-and-forget: implementations must not block and the use cases never
// observe a publish failure.
type Publisher interface {
	Publish(group, eventType string, payload any)
}

// FulfillmentService runs the operator use cases. Every state change follows
// the same shape: load, run the transition guard, write conditionally keyed
// on the pre-transition flags, then publish. There is no aggregate lock; the
// conditional write is the only concurrency control.
type FulfillmentService struct {
	store FulfillmentStore
	pub   Publisher
}

func NewFulfillmentService(store FulfillmentStore, pub Publisher) *FulfillmentService {
	return &FulfillmentService{store: store, pub: pub}
}

// PickItem marks an item picked, fulfilling its full requested quantity.
// A racing second picker receives ErrAlreadyPicked, same as a sequential one.
func (s *FulfillmentService) PickItem(ctx context.Context, orderID, itemID uuid.UUID, actor string) (database.OrderItem, error) {
	item, err := s.loadItem(ctx, orderID, itemID)
	if err != nil {
		return database.OrderItem{}, err
	}

	next, err := StateOf(item).MarkPicked(actor, time.Now().UTC())
	if err != nil {
		return database.OrderItem{}, err
	}

	updated, err := s.store.UpdateItemState(ctx, updateParams(item, next))
	if err != nil {
		return database.OrderItem{}, s.lostUpdate(ctx, itemID, err, func(st ItemState) error {
			_, gerr := st.MarkPicked(actor, time.Now().UTC())
			return gerr
		})
	}

	s.pub.Publish(enum.GroupActiveOrders, enum.EventItemPicked, ItemPickedEvent{
		OrderID:           updated.OrderID,
		ItemID:            updated.ID,
		ProductRef:        updated.ProductRef,
		QuantityFulfilled: updated.QuantityFulfilled,
		Progress:          s.progressOf(ctx, orderID),
		Actor:             actor,
		Timestamp:         updated.PickedAt.Time,
	})
	return updated, nil
}

// RouteItem flags an out-of-stock item for the purchasing desk.
func (s *FulfillmentService) RouteItem(ctx context.Context, orderID, itemID uuid.UUID, actor string) (database.OrderItem, error) {
	item, err := s.loadItem(ctx, orderID, itemID)
	if err != nil {
		return database.OrderItem{}, err
	}

	next, err := StateOf(item).RouteToPurchasing(actor, time.Now().UTC())
	if err != nil {
		return database.OrderItem{}, err
	}

	updated, err := s.store.UpdateItemState(ctx, updateParams(item, next))
	if err != nil {
		return database.OrderItem{}, s.lostUpdate(ctx, itemID, err, func(st ItemState) error {
			_, gerr := st.RouteToPurchasing(actor, time.Now().UTC())
			return gerr
		})
	}

	s.pub.Publish(enum.GroupActiveOrders, enum.EventItemRouted, ItemRoutedEvent{
		OrderID:    updated.OrderID,
		ItemID:     updated.ID,
		ProductRef: updated.ProductRef,
		Actor:      actor,
		Timestamp:  updated.RoutedAt.Time,
	})
	return updated, nil
}

// UnrouteItem returns a routed item to the picking queue. Unrouting an item
// that is not routed is a no-op and publishes nothing.
func (s *FulfillmentService) UnrouteItem(ctx context.Context, orderID, itemID uuid.UUID, actor string) (database.OrderItem, error) {
	item, err := s.loadItem(ctx, orderID, itemID)
	if err != nil {
		return database.OrderItem{}, err
	}

	prior := StateOf(item)
	next := prior.UnrouteFromPurchasing()
	if next == prior {
		return item, nil
	}

	updated, err := s.store.UpdateItemState(ctx, updateParams(item, next))
	if err != nil {
		return database.OrderItem{}, s.lostUpdate(ctx, itemID, err, func(st ItemState) error {
			return nil
		})
	}

	s.pub.Publish(enum.GroupActiveOrders, enum.EventItemUnrouted, ItemUnroutedEvent{
		OrderID:   updated.OrderID,
		ItemID:    updated.ID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
	})
	return updated, nil
}

// ConfirmPurchase records procurement's acknowledgement on a routed item.
// On an unrouted item it is an idempotent no-op.
func (s *FulfillmentService) ConfirmPurchase(ctx context.Context, orderID, itemID uuid.UUID, actor string) (database.OrderItem, error) {
	return s.togglePurchase(ctx, orderID, itemID, actor, true)
}

func (s *FulfillmentService) UnconfirmPurchase(ctx context.Context, orderID, itemID uuid.UUID, actor string) (database.OrderItem, error) {
	return s.togglePurchase(ctx, orderID, itemID, actor, false)
}

func (s *FulfillmentService) togglePurchase(ctx context.Context, orderID, itemID uuid.UUID, actor string, confirmed bool) (database.OrderItem, error) {
	item, err := s.loadItem(ctx, orderID, itemID)
	if err != nil {
		return database.OrderItem{}, err
	}

	prior := StateOf(item)
	var next ItemState
	if confirmed {
		next = prior.ConfirmPurchase(actor, time.Now().UTC())
	} else {
		next = prior.UnconfirmPurchase()
	}
	if next == prior {
		return item, nil
	}

	updated, err := s.store.UpdateItemState(ctx, updateParams(item, next))
	if err != nil {
		return database.OrderItem{}, s.lostUpdate(ctx, itemID, err, func(st ItemState) error {
			return nil
		})
	}

	s.pub.Publish(enum.GroupActiveOrders, enum.EventItemPurchaseConfirmed, ItemPurchaseConfirmedEvent{
		OrderID:   updated.OrderID,
		ItemID:    updated.ID,
		Confirmed: confirmed,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
	})
	return updated, nil
}

// SubstituteItem records an alternative product and counts the item picked.
// Re-substituting overwrites the description (last write wins).
func (s *FulfillmentService) SubstituteItem(ctx context.Context, orderID, itemID uuid.UUID, actor, description string) (database.OrderItem, error) {
	item, err := s.loadItem(ctx, orderID, itemID)
	if err != nil {
		return database.OrderItem{}, err
	}

	next, err := StateOf(item).Substitute(actor, description, time.Now().UTC())
	if err != nil {
		return database.OrderItem{}, err
	}

	updated, err := s.store.UpdateItemState(ctx, updateParams(item, next))
	if err != nil {
		return database.OrderItem{}, s.lostUpdate(ctx, itemID, err, func(st ItemState) error {
			_, gerr := st.Substitute(actor, description, time.Now().UTC())
			return gerr
		})
	}

	s.pub.Publish(enum.GroupActiveOrders, enum.EventItemSubstituted, ItemSubstitutedEvent{
		OrderID:               updated.OrderID,
		ItemID:                updated.ID,
		SubstituteDescription: updated.SubstituteDescription.String,
		Progress:              s.progressOf(ctx, orderID),
		Actor:                 actor,
		Timestamp:             updated.PickedAt.Time,
	})
	return updated, nil
}

// FinalizeOrder closes an order once every item is picked. The completeness
// check runs twice: once against fresh rows to produce a useful
// IncompleteOrderError, and again inside the conditional UPDATE so a stale
// read can never finalize a racing order.
func (s *FulfillmentService) FinalizeOrder(ctx context.Context, orderID uuid.UUID, actor string) (database.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("load order: %w", err)
	}
	if order.Status != enum.OrderStatusInProgress {
		return database.Order{}, ErrOrderClosed
	}

	items, err := s.store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return database.Order{}, fmt.Errorf("load items: %w", err)
	}
	if p := Progress(items); p < 100 {
		return database.Order{}, &IncompleteOrderError{Progress: p}
	}

	updated, err := s.store.FinalizeOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Raced with a cancel or another finalize; items never leave a
			// terminal state, so completeness cannot have regressed.
			return database.Order{}, ErrOrderClosed
		}
		return database.Order{}, fmt.Errorf("finalize order: %w", err)
	}

	s.pub.Publish(enum.GroupActiveOrders, enum.EventOrderFinalized, OrderFinalizedEvent{
		OrderID:        updated.ID,
		ElapsedMinutes: ElapsedMinutes(updated, time.Now().UTC()),
	})
	return updated, nil
}

// CancelOrder abandons an order while it is still IN_PROGRESS.
func (s *FulfillmentService) CancelOrder(ctx context.Context, orderID uuid.UUID, actor string) (database.Order, error) {
	if _, err := s.store.GetOrder(ctx, orderID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("load order: %w", err)
	}

	updated, err := s.store.CancelOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderClosed
		}
		return database.Order{}, fmt.Errorf("cancel order: %w", err)
	}

	s.pub.Publish(enum.GroupActiveOrders, enum.EventOrderCancelled, OrderCancelledEvent{
		OrderID:   updated.ID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
	})
	return updated, nil
}

// --- Helpers ---

func (s *FulfillmentService) loadItem(ctx context.Context, orderID, itemID uuid.UUID) (database.OrderItem, error) {
	if _, err := s.store.GetOrder(ctx, orderID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.OrderItem{}, ErrOrderNotFound
		}
		return database.OrderItem{}, fmt.Errorf("load order: %w", err)
	}

	item, err := s.store.GetOrderItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.OrderItem{}, ErrItemNotFound
		}
		return database.OrderItem{}, fmt.Errorf("load item: %w", err)
	}
	if item.OrderID != orderID {
		return database.OrderItem{}, ErrItemNotFound
	}
	return item, nil
}

// lostUpdate translates a failed conditional write into the domain error the
// guard would raise against the winner's state, so a losing operator sees an
// ordinary "already picked"/"already routed" rather than a generic conflict.
func (s *FulfillmentService) lostUpdate(ctx context.Context, itemID uuid.UUID, cause error, guard func(ItemState) error) error {
	if !errors.Is(cause, pgx.ErrNoRows) {
		return fmt.Errorf("save item: %w", cause)
	}

	item, err := s.store.GetOrderItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrItemNotFound
		}
		return fmt.Errorf("reload item: %w", err)
	}
	if gerr := guard(StateOf(item)); gerr != nil {
		return gerr
	}
	return ErrStateChanged
}

// progressOf derives the order's progress for event payloads. Nil when the
// lookup fails; the event still ships, dashboards reconcile via a re-fetch.
func (s *FulfillmentService) progressOf(ctx context.Context, orderID uuid.UUID) *int {
	items, err := s.store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		log.Printf("ERROR: derive progress for event: %v", err)
		return nil
	}
	p := Progress(items)
	return &p
}
