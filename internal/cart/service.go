package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/souq-labs/backend-souq/internal/pricing"
	"github.com/souq-labs/backend-souq/internal/repo"
)

// ErrNotFound indicates the requested cart or cart item could not be located.
var ErrNotFound = errors.New("cart: not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("cart: invalid input")

// Queries is the data access surface the cart service depends on.
type Queries interface {
	GetCartForUserStore(ctx context.Context, userID, supplierID pgtype.UUID) (repo.Cart, error)
	CreateCart(ctx context.Context, userID, supplierID pgtype.UUID) (repo.Cart, error)
	UpsertCartItem(ctx context.Context, cartID, productID pgtype.UUID, qty int32) (repo.CartItem, error)
	GetCartItem(ctx context.Context, itemID, cartID pgtype.UUID) (repo.CartItem, error)
	SetCartItemQty(ctx context.Context, itemID pgtype.UUID, qty int32) error
	DeleteCartItem(ctx context.Context, itemID pgtype.UUID) error
	ClearCart(ctx context.Context, cartID pgtype.UUID) error
	ListCartItems(ctx context.Context, cartID pgtype.UUID) ([]repo.CartItemDetail, error)
	GetProductForStore(ctx context.Context, id, supplierID pgtype.UUID) (repo.Product, error)
}

// OfferResolver resolves the discount applied to a product right now.
type OfferResolver interface {
	ActiveOffer(ctx context.Context, productID pgtype.UUID) (*repo.ProductOffer, error)
}

// Service encapsulates per-(user, store) cart operations. Prices are never
// stored on cart lines; they are resolved live on every read.
type Service struct {
	Q      Queries
	Offers OfferResolver
}

// EnsureCart loads or creates the cart for the (user, store) pair.
func (s *Service) EnsureCart(ctx context.Context, userID, supplierID pgtype.UUID) (repo.Cart, error) {
	if s == nil || s.Q == nil {
		return repo.Cart{}, errors.New("cart service not configured")
	}
	cart, err := s.Q.GetCartForUserStore(ctx, userID, supplierID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return repo.Cart{}, err
	}
	cart, err = s.Q.CreateCart(ctx, userID, supplierID)
	if err != nil {
		// lost a create race, the other cart wins
		if repo.IsUniqueViolation(err) {
			return s.Q.GetCartForUserStore(ctx, userID, supplierID)
		}
		return repo.Cart{}, err
	}
	return cart, nil
}

// AddItem adds qty units of the product to the user's cart for the store.
// Existing lines accumulate quantity instead of duplicating.
func (s *Service) AddItem(ctx context.Context, userID, supplierID, productID pgtype.UUID, qty int32) (repo.CartItem, error) {
	if s == nil || s.Q == nil {
		return repo.CartItem{}, errors.New("cart service not configured")
	}
	if qty <= 0 {
		return repo.CartItem{}, fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	product, err := s.Q.GetProductForStore(ctx, productID, supplierID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.CartItem{}, ErrNotFound
		}
		return repo.CartItem{}, err
	}
	if !product.IsActive {
		return repo.CartItem{}, fmt.Errorf("product is unavailable: %w", ErrInvalidInput)
	}
	if product.Stock < qty {
		return repo.CartItem{}, fmt.Errorf("insufficient stock: %w", ErrInvalidInput)
	}
	cart, err := s.EnsureCart(ctx, userID, supplierID)
	if err != nil {
		return repo.CartItem{}, err
	}
	return s.Q.UpsertCartItem(ctx, cart.ID, product.ID, qty)
}

// IncrementItem raises the line quantity by one.
func (s *Service) IncrementItem(ctx context.Context, userID, supplierID, itemID pgtype.UUID) (int32, error) {
	item, err := s.ownedItem(ctx, userID, supplierID, itemID)
	if err != nil {
		return 0, err
	}
	newQty := item.Qty + 1
	if err := s.Q.SetCartItemQty(ctx, item.ID, newQty); err != nil {
		return 0, err
	}
	return newQty, nil
}

// DecrementItem lowers the line quantity by one, removing the line at zero.
func (s *Service) DecrementItem(ctx context.Context, userID, supplierID, itemID pgtype.UUID) (int32, error) {
	item, err := s.ownedItem(ctx, userID, supplierID, itemID)
	if err != nil {
		return 0, err
	}
	newQty := item.Qty - 1
	if newQty <= 0 {
		if err := s.Q.DeleteCartItem(ctx, item.ID); err != nil {
			return 0, err
		}
		return 0, nil
	}
	if err := s.Q.SetCartItemQty(ctx, item.ID, newQty); err != nil {
		return 0, err
	}
	return newQty, nil
}

// RemoveItem deletes a cart line.
func (s *Service) RemoveItem(ctx context.Context, userID, supplierID, itemID pgtype.UUID) error {
	item, err := s.ownedItem(ctx, userID, supplierID, itemID)
	if err != nil {
		return err
	}
	return s.Q.DeleteCartItem(ctx, item.ID)
}

// Clear removes every line from the user's cart for the store.
func (s *Service) Clear(ctx context.Context, userID, supplierID pgtype.UUID) error {
	if s == nil || s.Q == nil {
		return errors.New("cart service not configured")
	}
	cart, err := s.Q.GetCartForUserStore(ctx, userID, supplierID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	return s.Q.ClearCart(ctx, cart.ID)
}

// ItemView is one priced cart line. Unavailable products stay visible but do
// not contribute to totals.
type ItemView struct {
	ID             pgtype.UUID
	ProductID      pgtype.UUID
	ProductName    string
	Qty            int32
	UnitPrice      pricing.Money
	DiscountedUnit pricing.Money
	DiscountBps    int32
	Subtotal       pricing.Money
	Available      bool
}

// View is the cart with live-resolved prices and aggregate totals.
type View struct {
	Cart    repo.Cart
	Items   []ItemView
	Summary pricing.Summary
}

// Summary loads the cart and prices every line against the current catalog.
func (s *Service) Summary(ctx context.Context, userID, supplierID pgtype.UUID) (View, error) {
	if s == nil || s.Q == nil {
		return View{}, errors.New("cart service not configured")
	}
	cart, err := s.EnsureCart(ctx, userID, supplierID)
	if err != nil {
		return View{}, err
	}
	details, err := s.Q.ListCartItems(ctx, cart.ID)
	if err != nil {
		return View{}, err
	}

	view := View{Cart: cart, Items: make([]ItemView, 0, len(details))}
	var lines []pricing.Line
	for _, d := range details {
		item := ItemView{
			ID:             d.ID,
			ProductID:      d.ProductID,
			ProductName:    d.ProductName,
			Qty:            d.Qty,
			UnitPrice:      d.UnitPrice,
			DiscountedUnit: d.UnitPrice,
			Available:      d.ProductIsActive,
		}
		if d.ProductIsActive {
			if s.Offers != nil {
				offer, err := s.Offers.ActiveOffer(ctx, d.ProductID)
				if err != nil {
					return View{}, err
				}
				if offer != nil {
					item.DiscountBps = offer.DiscountBps
					item.DiscountedUnit = pricing.DiscountedPrice(d.UnitPrice, offer.DiscountBps)
				}
			}
			lines = append(lines, pricing.Line{
				Qty:            int(d.Qty),
				UnitPrice:      item.UnitPrice,
				DiscountedUnit: item.DiscountedUnit,
			})
		}
		item.Subtotal = pricing.Money(d.Qty) * item.DiscountedUnit
		view.Items = append(view.Items, item)
	}
	view.Summary = pricing.Summarize(lines)
	return view, nil
}

func (s *Service) ownedItem(ctx context.Context, userID, supplierID, itemID pgtype.UUID) (repo.CartItem, error) {
	if s == nil || s.Q == nil {
		return repo.CartItem{}, errors.New("cart service not configured")
	}
	cart, err := s.Q.GetCartForUserStore(ctx, userID, supplierID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.CartItem{}, ErrNotFound
		}
		return repo.CartItem{}, err
	}
	item, err := s.Q.GetCartItem(ctx, itemID, cart.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.CartItem{}, ErrNotFound
		}
		return repo.CartItem{}, err
	}
	return item, nil
}
