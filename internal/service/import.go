package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/packline/api/internal/database"
	"github.com/packline/api/internal/enum"
	"github.com/shopspring/decimal"
)

// TxBeginner abstracts pgxpool.Pool's transaction entry point.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ImportStore is the write surface the importer needs inside a transaction.
type ImportStore interface {
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
}

// NewImportStore builds an ImportStore bound to a transaction.
type NewImportStore func(tx pgx.Tx) ImportStore

// OrderImport is a quote handed over from the sales system. Items arrive in
// quote order and keep that order as their pick-list position.
type OrderImport struct {
	QuoteRef        string
	CustomerName    string
	Salesperson     string
	ShippingMethod  string
	PackagingMethod string
	Notes           string
	Items           []ItemImport
}

type ItemImport struct {
	ProductRef string
	Quantity   int32
	// UnitPrice is optional quote metadata, carried for reporting.
	UnitPrice string
}

type ImportResult struct {
	Order database.Order
	Items []database.OrderItem
}

// packagingByShipping is the compatibility matrix: a parcel can only leave in
// a box, freight needs a pallet or crate, customer pickup takes anything.
var packagingByShipping = map[string][]string{
	enum.ShippingParcel:  {enum.PackagingBox},
	enum.ShippingCourier: {enum.PackagingBox},
	enum.ShippingFreight: {enum.PackagingPallet, enum.PackagingCrate},
	enum.ShippingPickup:  {enum.PackagingBox, enum.PackagingPallet, enum.PackagingCrate},
}

// ImportService turns accepted quotes into pickable orders. The order header
// and all of its items land in one transaction; a half-imported order is
// never visible.
type ImportService struct {
	db       TxBeginner
	newStore NewImportStore
}

func NewImportService(db TxBeginner, newStore NewImportStore) *ImportService {
	return &ImportService{db: db, newStore: newStore}
}

func (s *ImportService) ImportOrder(ctx context.Context, imp OrderImport) (ImportResult, error) {
	prices, err := validateImport(&imp)
	if err != nil {
		return ImportResult{}, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return ImportResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	store := s.newStore(tx)

	var notes pgtype.Text
	if imp.Notes != "" {
		notes = pgtype.Text{String: imp.Notes, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		QuoteRef:        imp.QuoteRef,
		CustomerName:    imp.CustomerName,
		Salesperson:     imp.Salesperson,
		ShippingMethod:  imp.ShippingMethod,
		PackagingMethod: imp.PackagingMethod,
		Notes:           notes,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "orders_quote_ref_key" {
			return ImportResult{}, ErrQuoteRefTaken
		}
		return ImportResult{}, fmt.Errorf("create order: %w", err)
	}

	items := make([]database.OrderItem, 0, len(imp.Items))
	for i, it := range imp.Items {
		created, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:           order.ID,
			Position:          int32(i + 1),
			ProductRef:        it.ProductRef,
			QuantityRequested: it.Quantity,
			UnitPrice:         prices[i],
		})
		if err != nil {
			return ImportResult{}, fmt.Errorf("create order item %d: %w", i+1, err)
		}
		items = append(items, created)
	}

	if err := tx.Commit(ctx); err != nil {
		return ImportResult{}, fmt.Errorf("commit tx: %w", err)
	}
	return ImportResult{Order: order, Items: items}, nil
}

// validateImport normalizes the payload in place and returns the parsed unit
// prices, positionally aligned with imp.Items.
func validateImport(imp *OrderImport) ([]pgtype.Numeric, error) {
	imp.QuoteRef = strings.TrimSpace(imp.QuoteRef)
	if imp.QuoteRef == "" {
		return nil, ErrEmptyQuoteRef
	}
	if len(imp.Items) == 0 {
		return nil, ErrEmptyItems
	}

	allowed, ok := packagingByShipping[imp.ShippingMethod]
	if !ok {
		return nil, ErrInvalidShipping
	}
	if !enum.ValidPackagingMethod(imp.PackagingMethod) {
		return nil, ErrInvalidPackaging
	}
	compatible := false
	for _, p := range allowed {
		if p == imp.PackagingMethod {
			compatible = true
			break
		}
	}
	if !compatible {
		return nil, ErrIncompatiblePackaging
	}

	prices := make([]pgtype.Numeric, len(imp.Items))
	for i := range imp.Items {
		it := &imp.Items[i]
		it.ProductRef = strings.TrimSpace(it.ProductRef)
		if it.ProductRef == "" {
			return nil, ErrEmptyProductRef
		}
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if it.UnitPrice == "" {
			continue
		}
		d, err := decimal.NewFromString(it.UnitPrice)
		if err != nil || d.IsNegative() {
			return nil, ErrInvalidUnitPrice
		}
		if err := prices[i].Scan(d.String()); err != nil {
			return nil, ErrInvalidUnitPrice
		}
	}
	return prices, nil
}
