package service

import (
	"time"

	"github.com/google/uuid"
)

// Event payloads pushed to the dashboard group. The stream is best-effort;
// clients that miss one reconcile by re-fetching the order, so payloads stay
// small and self-describing.

type ItemPickedEvent struct {
	OrderID           uuid.UUID `json:"order_id"`
	ItemID            uuid.UUID `json:"item_id"`
	ProductRef        string    `json:"product_ref"`
	QuantityFulfilled int32     `json:"quantity_fulfilled"`
	Progress          *int      `json:"progress,omitempty"`
	Actor             string    `json:"actor"`
	Timestamp         time.Time `json:"timestamp"`
}

type ItemRoutedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	ItemID     uuid.UUID `json:"item_id"`
	ProductRef string    `json:"product_ref"`
	Actor      string    `json:"actor"`
	Timestamp  time.Time `json:"timestamp"`
}

type ItemUnroutedEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	ItemID    uuid.UUID `json:"item_id"`
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
}

type ItemPurchaseConfirmedEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	ItemID    uuid.UUID `json:"item_id"`
	Confirmed bool      `json:"confirmed"`
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
}

type ItemSubstitutedEvent struct {
	OrderID               uuid.UUID `json:"order_id"`
	ItemID                uuid.UUID `json:"item_id"`
	SubstituteDescription string    `json:"substitute_description"`
	Progress              *int      `json:"progress,omitempty"`
	Actor                 string    `json:"actor"`
	Timestamp             time.Time `json:"timestamp"`
}

type OrderFinalizedEvent struct {
	OrderID        uuid.UUID `json:"order_id"`
	ElapsedMinutes int64     `json:"elapsed_minutes"`
}

type OrderCancelledEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
}
