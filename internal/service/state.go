package service

import (
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/packline/api/internal/database"
	"github.com/packline/api/internal/enum"
)

// ItemState is the tagged fulfillment state of a single order item. Exactly
// one Status applies at a time, so combinations like picked+routed are
// unrepresentable here; the boolean columns in storage are derived from it,
// never the other way around.
type ItemState struct {
	Status string // enum.ItemStatus*
	Actor  string
	At     time.Time

	// Purchase confirmation; meaningful only while Status is ROUTED.
	Confirmed   bool
	ConfirmedBy string
	ConfirmedAt time.Time

	// Substitute description; set only when Status is SUBSTITUTED.
	SubstituteDescription string
}

// Terminal reports whether the item counts as picked for progress purposes.
func (s ItemState) Terminal() bool {
	return s.Status == enum.ItemStatusPicked || s.Status == enum.ItemStatusSubstituted
}

// MarkPicked moves the item to PICKED. A substituted item already counts as
// picked, so re-picking either terminal state fails.
func (s ItemState) MarkPicked(actor string, now time.Time) (ItemState, error) {
	if s.Terminal() {
		return s, ErrAlreadyPicked
	}
	return ItemState{Status: enum.ItemStatusPicked, Actor: actor, At: now}, nil
}

// RouteToPurchasing flags an out-of-stock item for procurement.
func (s ItemState) RouteToPurchasing(actor string, now time.Time) (ItemState, error) {
	if s.Terminal() {
		return s, ErrAlreadyPicked
	}
	if s.Status == enum.ItemStatusRouted {
		return s, ErrAlreadyRouted
	}
	return ItemState{Status: enum.ItemStatusRouted, Actor: actor, At: now}, nil
}

// UnrouteFromPurchasing returns a routed item to PENDING, dropping any
// purchase confirmation. Safe no-op in every other state.
func (s ItemState) UnrouteFromPurchasing() ItemState {
	if s.Status != enum.ItemStatusRouted {
		return s
	}
	return ItemState{Status: enum.ItemStatusPending}
}

// ConfirmPurchase records procurement's acknowledgement. Toggling while not
// routed is a no-op, not an error.
func (s ItemState) ConfirmPurchase(actor string, now time.Time) ItemState {
	if s.Status != enum.ItemStatusRouted {
		return s
	}
	s.Confirmed = true
	s.ConfirmedBy = actor
	s.ConfirmedAt = now
	return s
}

func (s ItemState) UnconfirmPurchase() ItemState {
	if s.Status != enum.ItemStatusRouted {
		return s
	}
	s.Confirmed = false
	s.ConfirmedBy = ""
	s.ConfirmedAt = time.Time{}
	return s
}

// Substitute replaces the requested product with an alternative, which
// implicitly picks the item. Re-substituting overwrites the description
// (corrections allowed), while re-picking is rejected; the asymmetry is
// deliberate.
func (s ItemState) Substitute(actor, description string, now time.Time) (ItemState, error) {
	if strings.TrimSpace(description) == "" {
		return s, ErrEmptySubstitute
	}
	return ItemState{
		Status:                enum.ItemStatusSubstituted,
		Actor:                 actor,
		At:                    now,
		SubstituteDescription: description,
	}, nil
}

// StateOf decodes an item row's flag columns into the tagged state.
// Substituted rows also carry picked=true in storage; SUBSTITUTED wins the
// tag because it is the more specific terminal state.
func StateOf(item database.OrderItem) ItemState {
	switch {
	case item.Substituted:
		return ItemState{
			Status:                enum.ItemStatusSubstituted,
			Actor:                 item.PickedBy.String,
			At:                    item.PickedAt.Time,
			SubstituteDescription: item.SubstituteDescription.String,
		}
	case item.Picked:
		return ItemState{
			Status: enum.ItemStatusPicked,
			Actor:  item.PickedBy.String,
			At:     item.PickedAt.Time,
		}
	case item.Routed:
		return ItemState{
			Status:      enum.ItemStatusRouted,
			Actor:       item.RoutedBy.String,
			At:          item.RoutedAt.Time,
			Confirmed:   item.PurchaseConfirmed,
			ConfirmedBy: item.ConfirmedBy.String,
			ConfirmedAt: item.ConfirmedAt.Time,
		}
	default:
		return ItemState{Status: enum.ItemStatusPending}
	}
}

// updateParams encodes a transition into the conditional write: new flag
// values from next, expected prior flags from the row as read. Terminal
// states fulfill the full requested quantity.
func updateParams(item database.OrderItem, next ItemState) database.UpdateItemStateParams {
	arg := database.UpdateItemStateParams{
		ID:              item.ID,
		PrevPicked:      item.Picked,
		PrevRouted:      item.Routed,
		PrevConfirmed:   item.PurchaseConfirmed,
		PrevSubstituted: item.Substituted,
	}

	switch next.Status {
	case enum.ItemStatusPicked:
		arg.Picked = true
		arg.PickedBy = pgtype.Text{String: next.Actor, Valid: true}
		arg.PickedAt = pgtype.Timestamptz{Time: next.At, Valid: true}
		arg.QuantityFulfilled = item.QuantityRequested
	case enum.ItemStatusSubstituted:
		arg.Picked = true
		arg.PickedBy = pgtype.Text{String: next.Actor, Valid: true}
		arg.PickedAt = pgtype.Timestamptz{Time: next.At, Valid: true}
		arg.Substituted = true
		arg.SubstituteDescription = pgtype.Text{String: next.SubstituteDescription, Valid: true}
		arg.QuantityFulfilled = item.QuantityRequested
	case enum.ItemStatusRouted:
		arg.Routed = true
		arg.RoutedBy = pgtype.Text{String: next.Actor, Valid: true}
		arg.RoutedAt = pgtype.Timestamptz{Time: next.At, Valid: true}
		if next.Confirmed {
			arg.PurchaseConfirmed = true
			arg.ConfirmedBy = pgtype.Text{String: next.ConfirmedBy, Valid: true}
			arg.ConfirmedAt = pgtype.Timestamptz{Time: next.ConfirmedAt, Valid: true}
		}
	}
	// PENDING leaves every flag false and fulfilled quantity at zero.
	return arg
}
