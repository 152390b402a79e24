package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/souq-labs/backend-souq/internal/geo"
	"github.com/souq-labs/backend-souq/internal/pricing"
	"github.com/souq-labs/backend-souq/internal/repo"
)

// ErrNotFound indicates the requested order could not be located.
var ErrNotFound = errors.New("order: not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("order: invalid input")

// Queries is the data access surface the order service depends on.
type Queries interface {
	GetOrderByID(ctx context.Context, id pgtype.UUID) (repo.Order, error)
	GetOrderForUser(ctx context.Context, id, userID pgtype.UUID) (repo.Order, error)
	GetOrderForSupplier(ctx context.Context, id, supplierID pgtype.UUID) (repo.Order, error)
	ListOrdersForUser(ctx context.Context, userID pgtype.UUID, limit, offset int32) ([]repo.Order, error)
	CountOrdersForUser(ctx context.Context, userID pgtype.UUID) (int64, error)
	ListOrdersForSupplier(ctx context.Context, supplierID pgtype.UUID, limit, offset int32) ([]repo.Order, error)
	CountOrdersForSupplier(ctx context.Context, supplierID pgtype.UUID) (int64, error)
	ListOrderItems(ctx context.Context, orderID pgtype.UUID) ([]repo.OrderItem, error)
	UpdateOrderTotal(ctx context.Context, id pgtype.UUID, total int64) error
	PaymentTotalForOrder(ctx context.Context, orderID pgtype.UUID) (int64, error)
	InsertPaymentReference(ctx context.Context, orderID pgtype.UUID, amount int64, reference string, recordedBy pgtype.UUID) (repo.PaymentReference, error)
	ListPaymentReferences(ctx context.Context, orderID pgtype.UUID) ([]repo.PaymentReference, error)
	GetShippingAddressForOrder(ctx context.Context, orderID pgtype.UUID) (repo.ShippingAddress, error)
	GetSupplierByID(ctx context.Context, id pgtype.UUID) (repo.Supplier, error)
	GetStatusByID(ctx context.Context, id pgtype.UUID) (repo.OrderStatus, error)
}

// Service encapsulates order totals, payments, and read models. Order item
// prices are frozen at checkout; only the delivery fee component of the total
// is ever derived again.
type Service struct {
	Q Queries
}

// ItemsTotal sums the frozen line subtotals.
func ItemsTotal(items []repo.OrderItem) pricing.Money {
	var total pricing.Money
	for _, it := range items {
		total += it.Subtotal
	}
	return total
}

// GrossTotal sums the lines at their pre-discount unit prices.
func GrossTotal(items []repo.OrderItem) pricing.Money {
	var total pricing.Money
	for _, it := range items {
		total += pricing.Money(it.Qty) * it.GrossUnitPrice
	}
	return total
}

// DeliveryFee derives the distance-based fee for the order from the store's
// delivery settings and the shipped-to coordinates. Stores with delivery fees
// disabled, or missing coordinates on either end, yield zero.
func (s *Service) DeliveryFee(ctx context.Context, order repo.Order) (pricing.Money, error) {
	if s == nil || s.Q == nil {
		return 0, errors.New("order service not configured")
	}
	supplier, err := s.Q.GetSupplierByID(ctx, order.SupplierID)
	if err != nil {
		return 0, err
	}
	cfg := geo.DeliveryConfig{
		Enabled:    supplier.EnableDeliveryFees,
		RatioPerKM: supplier.DeliveryFeeRatio,
	}
	if supplier.Latitude.Valid && supplier.Longitude.Valid {
		cfg.Origin = &geo.Point{Lat: supplier.Latitude.Float64, Lon: supplier.Longitude.Float64}
	}
	addr, err := s.Q.GetShippingAddressForOrder(ctx, order.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	var dest *geo.Point
	if addr.Latitude.Valid && addr.Longitude.Valid {
		dest = &geo.Point{Lat: addr.Latitude.Float64, Lon: addr.Longitude.Float64}
	}
	return geo.DeliveryFee(cfg, dest), nil
}

// RecomputeTotal recalculates and persists the order total: frozen item
// subtotals plus the delivery fee.
func (s *Service) RecomputeTotal(ctx context.Context, order repo.Order) (pricing.Money, error) {
	if s == nil || s.Q == nil {
		return 0, errors.New("order service not configured")
	}
	items, err := s.Q.ListOrderItems(ctx, order.ID)
	if err != nil {
		return 0, err
	}
	fee, err := s.DeliveryFee(ctx, order)
	if err != nil {
		return 0, err
	}
	total := ItemsTotal(items) + fee
	if err := s.Q.UpdateOrderTotal(ctx, order.ID, total); err != nil {
		return 0, err
	}
	return total, nil
}

// IsFullyPaid reports whether the payment ledger covers the order total.
func (s *Service) IsFullyPaid(ctx context.Context, order repo.Order) (bool, pricing.Money, error) {
	if s == nil || s.Q == nil {
		return false, 0, errors.New("order service not configured")
	}
	paid, err := s.Q.PaymentTotalForOrder(ctx, order.ID)
	if err != nil {
		return false, 0, err
	}
	return paid >= order.TotalAmount, paid, nil
}

// RecordPayment appends a payment reference to the order's ledger.
func (s *Service) RecordPayment(ctx context.Context, order repo.Order, amount pricing.Money, reference string, recordedBy pgtype.UUID) (repo.PaymentReference, error) {
	if s == nil || s.Q == nil {
		return repo.PaymentReference{}, errors.New("order service not configured")
	}
	if amount <= 0 {
		return repo.PaymentReference{}, fmt.Errorf("payment amount must be positive: %w", ErrInvalidInput)
	}
	if reference == "" {
		return repo.PaymentReference{}, fmt.Errorf("payment reference required: %w", ErrInvalidInput)
	}
	return s.Q.InsertPaymentReference(ctx, order.ID, amount, reference, recordedBy)
}

// Detail is the full read model of one order.
type Detail struct {
	Order      repo.Order
	Status     repo.OrderStatus
	Items      []repo.OrderItem
	Address    *repo.ShippingAddress
	Payments   []repo.PaymentReference
	PaidAmount pricing.Money
	FullyPaid  bool
	GrossTotal pricing.Money
}

// LoadDetail assembles the order read model.
func (s *Service) LoadDetail(ctx context.Context, order repo.Order) (Detail, error) {
	if s == nil || s.Q == nil {
		return Detail{}, errors.New("order service not configured")
	}
	detail := Detail{Order: order}

	if order.StatusID.Valid {
		status, err := s.Q.GetStatusByID(ctx, order.StatusID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return Detail{}, err
		}
		detail.Status = status
	}

	items, err := s.Q.ListOrderItems(ctx, order.ID)
	if err != nil {
		return Detail{}, err
	}
	detail.Items = items
	detail.GrossTotal = GrossTotal(items)

	addr, err := s.Q.GetShippingAddressForOrder(ctx, order.ID)
	if err == nil {
		detail.Address = &addr
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return Detail{}, err
	}

	payments, err := s.Q.ListPaymentReferences(ctx, order.ID)
	if err != nil {
		return Detail{}, err
	}
	detail.Payments = payments
	for _, p := range payments {
		detail.PaidAmount += p.Amount
	}
	detail.FullyPaid = detail.PaidAmount >= order.TotalAmount
	return detail, nil
}

// ForUser loads an order owned by the user.
func (s *Service) ForUser(ctx context.Context, orderID, userID pgtype.UUID) (repo.Order, error) {
	o, err := s.Q.GetOrderForUser(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.Order{}, ErrNotFound
		}
		return repo.Order{}, err
	}
	return o, nil
}

// ForSupplier loads an order sold by the store.
func (s *Service) ForSupplier(ctx context.Context, orderID, supplierID pgtype.UUID) (repo.Order, error) {
	o, err := s.Q.GetOrderForSupplier(ctx, orderID, supplierID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.Order{}, ErrNotFound
		}
		return repo.Order{}, err
	}
	return o, nil
}
