package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Order struct {
	ID              uuid.UUID
	QuoteRef        string
	CustomerName    string
	Salesperson     string
	ShippingMethod  string
	PackagingMethod string
	Notes           pgtype.Text
	Status          string
	CreatedAt       time.Time
	StartedAt       time.Time
	FinalizedAt     pgtype.Timestamptz
}

// OrderItem stores the item state machine as flag columns. The service layer
// converts rows to a tagged state value; the flags are a storage encoding,
// not the domain model.
type OrderItem struct {
	ID                    uuid.UUID
	OrderID               uuid.UUID
	Position              int32
	ProductRef            string
	QuantityRequested     int32
	QuantityFulfilled     int32
	UnitPrice             pgtype.Numeric
	Picked                bool
	PickedBy              pgtype.Text
	PickedAt              pgtype.Timestamptz
	Routed                bool
	RoutedBy              pgtype.Text
	RoutedAt              pgtype.Timestamptz
	PurchaseConfirmed     bool
	ConfirmedBy           pgtype.Text
	ConfirmedAt           pgtype.Timestamptz
	Substituted           bool
	SubstituteDescription pgtype.Text
}

type User struct {
	ID           uuid.UUID
	Username     string
	FullName     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}
