package enum

// ── State machines (CHECK constrained in DB) ──

const (
	OrderStatusInProgress = "IN_PROGRESS"
	OrderStatusFinalized  = "FINALIZED"
	OrderStatusCancelled  = "CANCELLED"
)

func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusInProgress, OrderStatusFinalized, OrderStatusCancelled:
		return true
	}
	return false
}

// Derived item statuses. PICKED and SUBSTITUTED are terminal.
const (
	ItemStatusPending     = "PENDING"
	ItemStatusRouted      = "ROUTED_TO_PURCHASING"
	ItemStatusPicked      = "PICKED"
	ItemStatusSubstituted = "SUBSTITUTED"
)

// ── Shipping / packaging (compatibility table lives in the service layer) ──

const (
	ShippingParcel  = "PARCEL"
	ShippingCourier = "COURIER"
	ShippingFreight = "FREIGHT"
	ShippingPickup  = "PICKUP"
)

const (
	PackagingBox    = "BOX"
	PackagingPallet = "PALLET"
	PackagingCrate  = "CRATE"
)

func ValidShippingMethod(s string) bool {
	switch s {
	case ShippingParcel, ShippingCourier, ShippingFreight, ShippingPickup:
		return true
	}
	return false
}

func ValidPackagingMethod(s string) bool {
	switch s {
	case PackagingBox, PackagingPallet, PackagingCrate:
		return true
	}
	return false
}

const (
	UserRoleAdmin     = "ADMIN"
	UserRolePicker    = "PICKER"
	UserRolePurchaser = "PURCHASER"
)

// ── Dashboard event types ──

const (
	EventItemPicked            = "item_picked"
	EventItemRouted            = "item_routed_to_purchasing"
	EventItemUnrouted          = "item_unrouted_from_purchasing"
	EventItemPurchaseConfirmed = "item_purchase_confirmed"
	EventItemSubstituted       = "item_substituted"
	EventOrderFinalized        = "order_finalized"
	EventOrderCancelled        = "order_cancelled"
)

// GroupActiveOrders is the broadcast group every dashboard viewer joins.
const GroupActiveOrders = "active-orders"
