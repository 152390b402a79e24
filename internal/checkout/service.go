package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/souq-labs/backend-souq/internal/events"
	"github.com/souq-labs/backend-souq/internal/geo"
	"github.com/souq-labs/backend-souq/internal/notify"
	"github.com/souq-labs/backend-souq/internal/obs"
	"github.com/souq-labs/backend-souq/internal/pricing"
	"github.com/souq-labs/backend-souq/internal/repo"
	"github.com/souq-labs/backend-souq/internal/workflow"
)

// ErrEmptyCart is returned when checkout finds no purchasable cart lines.
var ErrEmptyCart = errors.New("checkout: cart is empty")

// ErrNoAddress is returned when no delivery address is available.
var ErrNoAddress = errors.New("checkout: no delivery address")

// ErrOutOfStock is returned when a cart line exceeds the remaining stock.
var ErrOutOfStock = errors.New("checkout: product out of stock")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("checkout: invalid input")

// Queries is the transactional data access surface used during checkout.
type Queries interface {
	GetCartForUserStore(ctx context.Context, userID, supplierID pgtype.UUID) (repo.Cart, error)
	ListCartItems(ctx context.Context, cartID pgtype.UUID) ([]repo.CartItemDetail, error)
	ListActiveOffersForProduct(ctx context.Context, productID pgtype.UUID, asOf pgtype.Date) ([]repo.ProductOffer, error)
	GetStatusBySlug(ctx context.Context, slug string) (repo.OrderStatus, error)
	CreateOrder(ctx context.Context, arg repo.CreateOrderParams) (repo.Order, error)
	CreateOrderItem(ctx context.Context, arg repo.CreateOrderItemParams) (repo.OrderItem, error)
	DecrementProductStock(ctx context.Context, id pgtype.UUID, qty int32) (bool, error)
	GetSavedAddress(ctx context.Context, userID pgtype.UUID) (repo.Address, error)
	CreateShippingAddress(ctx context.Context, a repo.ShippingAddress) (repo.ShippingAddress, error)
	UpdateOrderTotal(ctx context.Context, id pgtype.UUID, total int64) error
	ClearCart(ctx context.Context, cartID pgtype.UUID) error
}

// AddressInput is an explicit delivery destination supplied at checkout.
// When nil, the user's saved address is used instead.
type AddressInput struct {
	Phone        string
	AddressLine1 string
	AddressLine2 string
	City         string
	Country      string
	PostalCode   string
	Latitude     *float64
	Longitude    *float64
}

// Input collects everything one checkout needs.
type Input struct {
	UserID   pgtype.UUID
	Supplier repo.Supplier
	Notes    string
	Address  *AddressInput
}

// Result is the materialized order produced by a successful checkout.
type Result struct {
	Order       repo.Order
	Address     repo.ShippingAddress
	ItemCount   int
	ItemsTotal  pricing.Money
	DeliveryFee pricing.Money
	Total       pricing.Money
}

// Service materializes carts into orders inside a single transaction.
// Prices and the delivery fee are frozen at this moment; later catalog or
// store changes never alter an existing order.
type Service struct {
	RunTx        func(ctx context.Context, fn func(Queries) error) error
	Bus          *events.Bus
	Notify       *notify.Enqueuer
	SupportPhone string
	Logger       zerolog.Logger
	Now          func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Checkout turns the user's cart for the store into an order. The cart is
// cleared in the same transaction; notifications go out only after commit.
func (s *Service) Checkout(ctx context.Context, in Input) (Result, error) {
	if s == nil || s.RunTx == nil {
		return Result{}, errors.New("checkout service not configured")
	}
	if !in.Supplier.IsActive {
		return Result{}, fmt.Errorf("store is not accepting orders: %w", ErrInvalidInput)
	}

	start := s.now()
	var res Result
	err := s.RunTx(ctx, func(q Queries) error {
		var err error
		res, err = s.checkoutTx(ctx, q, in)
		return err
	})
	if err != nil {
		return Result{}, err
	}

	if obs.OrdersCreatedTotal != nil {
		obs.OrdersCreatedTotal.Inc()
	}
	if obs.CheckoutDuration != nil {
		obs.CheckoutDuration.Observe(time.Since(start).Seconds())
	}
	s.afterCommit(ctx, in, res)
	return res, nil
}

func (s *Service) checkoutTx(ctx context.Context, q Queries, in Input) (Result, error) {
	cart, err := q.GetCartForUserStore(ctx, in.UserID, in.Supplier.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Result{}, ErrEmptyCart
		}
		return Result{}, err
	}
	details, err := q.ListCartItems(ctx, cart.ID)
	if err != nil {
		return Result{}, err
	}
	var purchasable []repo.CartItemDetail
	for _, d := range details {
		if d.ProductIsActive && d.Qty > 0 {
			purchasable = append(purchasable, d)
		}
	}
	if len(purchasable) == 0 {
		return Result{}, ErrEmptyCart
	}

	// A missing pending status leaves the order without one rather than
	// blocking the sale; the workflow engine refuses to advance such orders
	// until an operator assigns a status.
	var statusID pgtype.UUID
	pending, err := q.GetStatusBySlug(ctx, workflow.InitialStatusSlug)
	switch {
	case err == nil:
		statusID = pending.ID
	case !errors.Is(err, pgx.ErrNoRows):
		return Result{}, fmt.Errorf("load initial order status: %w", err)
	}

	order, err := q.CreateOrder(ctx, repo.CreateOrderParams{
		UserID:       in.UserID,
		SupplierID:   in.Supplier.ID,
		StatusID:     statusID,
		CurrencyCode: in.Supplier.CurrencyCode,
		Notes:        repo.Text(in.Notes),
	})
	if err != nil {
		return Result{}, err
	}

	today := pgtype.Date{Time: s.now().UTC().Truncate(24 * time.Hour), Valid: true}
	res := Result{Order: order}
	for _, d := range purchasable {
		ok, err := q.DecrementProductStock(ctx, d.ProductID, d.Qty)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return Result{}, fmt.Errorf("%q: %w", d.ProductName, ErrOutOfStock)
		}

		unit := d.UnitPrice
		offers, err := q.ListActiveOffersForProduct(ctx, d.ProductID, today)
		if err != nil {
			return Result{}, err
		}
		if len(offers) > 0 {
			unit = pricing.DiscountedPrice(d.UnitPrice, offers[0].DiscountBps)
		}

		item, err := q.CreateOrderItem(ctx, repo.CreateOrderItemParams{
			OrderID:        order.ID,
			ProductID:      d.ProductID,
			Name:           d.ProductName,
			Qty:            d.Qty,
			UnitPrice:      unit,
			GrossUnitPrice: d.UnitPrice,
		})
		if err != nil {
			return Result{}, err
		}
		res.ItemsTotal += item.Subtotal
		res.ItemCount += int(d.Qty)
	}

	addr, err := s.resolveAddress(ctx, q, in, order.ID)
	if err != nil {
		return Result{}, err
	}
	res.Address, err = q.CreateShippingAddress(ctx, addr)
	if err != nil {
		return Result{}, err
	}

	res.DeliveryFee = s.deliveryFee(in.Supplier, res.Address)
	res.Total = res.ItemsTotal + res.DeliveryFee
	if err := q.UpdateOrderTotal(ctx, order.ID, res.Total); err != nil {
		return Result{}, err
	}
	res.Order.TotalAmount = res.Total

	if err := q.ClearCart(ctx, cart.ID); err != nil {
		return Result{}, err
	}
	return res, nil
}

func (s *Service) resolveAddress(ctx context.Context, q Queries, in Input, orderID pgtype.UUID) (repo.ShippingAddress, error) {
	if in.Address != nil {
		a := in.Address
		if a.Phone == "" || a.AddressLine1 == "" || a.City == "" {
			return repo.ShippingAddress{}, fmt.Errorf("phone, address line, and city are required: %w", ErrInvalidInput)
		}
		return repo.ShippingAddress{
			OrderID:      orderID,
			Phone:        a.Phone,
			AddressLine1: a.AddressLine1,
			AddressLine2: repo.Text(a.AddressLine2),
			City:         a.City,
			Country:      a.Country,
			PostalCode:   repo.Text(a.PostalCode),
			Latitude:     repo.Float8Ptr(a.Latitude),
			Longitude:    repo.Float8Ptr(a.Longitude),
		}, nil
	}
	saved, err := q.GetSavedAddress(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.ShippingAddress{}, ErrNoAddress
		}
		return repo.ShippingAddress{}, err
	}
	return repo.ShippingAddress{
		OrderID:      orderID,
		Phone:        saved.Phone,
		AddressLine1: saved.AddressLine1,
		AddressLine2: saved.AddressLine2,
		City:         saved.City,
		Country:      saved.Country,
		PostalCode:   saved.PostalCode,
		Latitude:     saved.Latitude,
		Longitude:    saved.Longitude,
	}, nil
}

func (s *Service) deliveryFee(supplier repo.Supplier, addr repo.ShippingAddress) pricing.Money {
	cfg := geo.DeliveryConfig{
		Enabled:    supplier.EnableDeliveryFees,
		RatioPerKM: supplier.DeliveryFeeRatio,
	}
	if supplier.Latitude.Valid && supplier.Longitude.Valid {
		cfg.Origin = &geo.Point{Lat: supplier.Latitude.Float64, Lon: supplier.Longitude.Float64}
	}
	var dest *geo.Point
	if addr.Latitude.Valid && addr.Longitude.Valid {
		dest = &geo.Point{Lat: addr.Latitude.Float64, Lon: addr.Longitude.Float64}
	}
	return geo.DeliveryFee(cfg, dest)
}

func (s *Service) afterCommit(ctx context.Context, in Input, res Result) {
	orderID := repo.UUIDString(res.Order.ID)
	if s.Bus != nil {
		_, err := s.Bus.Emit(ctx, events.TopicOrderCreated, res.Order.ID, map[string]any{
			"order_id":    orderID,
			"supplier_id": repo.UUIDString(in.Supplier.ID),
			"user_id":     repo.UUIDString(in.UserID),
			"total":       res.Total,
			"item_count":  res.ItemCount,
		})
		if err != nil {
			s.Logger.Warn().Err(err).Msg("emit order.created failed")
		}
	}
	if s.Notify == nil {
		return
	}
	summary := notify.OrderSummary{
		OrderID:   orderID,
		StoreName: in.Supplier.Name,
		ItemCount: res.ItemCount,
		Total:     res.Total,
		Currency:  res.Order.CurrencyCode,
	}
	if err := s.Notify.EnqueueWhatsApp(ctx, res.Address.Phone, notify.CustomerOrderCreated(summary)); err != nil {
		s.Logger.Warn().Err(err).Msg("enqueue customer notification failed")
	}
	if err := s.Notify.EnqueueWhatsApp(ctx, in.Supplier.Phone, notify.MerchantOrderCreated(summary)); err != nil {
		s.Logger.Warn().Err(err).Msg("enqueue merchant notification failed")
	}
	if s.SupportPhone != "" {
		if err := s.Notify.EnqueueWhatsApp(ctx, s.SupportPhone, notify.SupportOrderCreated(summary)); err != nil {
			s.Logger.Warn().Err(err).Msg("enqueue support notification failed")
		}
	}
}
