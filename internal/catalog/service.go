package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/souq-labs/backend-souq/internal/pricing"
	"github.com/souq-labs/backend-souq/internal/repo"
)

// ErrNotFound indicates the requested product or offer could not be located.
var ErrNotFound = errors.New("catalog: not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("catalog: invalid input")

// ErrActiveOfferExists is returned when a product already carries an active offer.
var ErrActiveOfferExists = errors.New("catalog: product already has an active offer")

// Queries is the data access surface the catalog service depends on.
type Queries interface {
	GetProductByID(ctx context.Context, id pgtype.UUID) (repo.Product, error)
	GetProductForStore(ctx context.Context, id, supplierID pgtype.UUID) (repo.Product, error)
	ListProductsByStore(ctx context.Context, supplierID pgtype.UUID, limit, offset int32) ([]repo.Product, error)
	CountProductsByStore(ctx context.Context, supplierID pgtype.UUID) (int64, error)
	ListActiveOffersForProduct(ctx context.Context, productID pgtype.UUID, asOf pgtype.Date) ([]repo.ProductOffer, error)
	CreateProductOffer(ctx context.Context, arg repo.CreateProductOfferParams) (repo.ProductOffer, error)
	UpdateProductOffer(ctx context.Context, arg repo.UpdateProductOfferParams) (repo.ProductOffer, error)
	GetOfferByID(ctx context.Context, id pgtype.UUID) (repo.ProductOffer, error)
	CreatePlatformOfferAd(ctx context.Context, productID pgtype.UUID, description string, start, end pgtype.Date) (repo.PlatformOfferAd, error)
}

// Service encapsulates catalog pricing and offer management.
type Service struct {
	Q   Queries
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) today() pgtype.Date {
	return pgtype.Date{Time: s.now().UTC().Truncate(24 * time.Hour), Valid: true}
}

// PricedProduct pairs a product with its resolved offer and effective price.
type PricedProduct struct {
	Product    repo.Product
	Offer      *repo.ProductOffer
	FinalPrice pricing.Money
}

// ActiveOffer resolves the offer applied to the product today. When several
// offers overlap the highest discount wins, ties broken by earliest creation.
func (s *Service) ActiveOffer(ctx context.Context, productID pgtype.UUID) (*repo.ProductOffer, error) {
	if s == nil || s.Q == nil {
		return nil, errors.New("catalog service not configured")
	}
	offers, err := s.Q.ListActiveOffersForProduct(ctx, productID, s.today())
	if err != nil {
		return nil, err
	}
	if len(offers) == 0 {
		return nil, nil
	}
	best := offers[0]
	return &best, nil
}

// Price resolves the product's effective unit price after any active offer.
func (s *Service) Price(ctx context.Context, product repo.Product) (PricedProduct, error) {
	offer, err := s.ActiveOffer(ctx, product.ID)
	if err != nil {
		return PricedProduct{}, err
	}
	priced := PricedProduct{Product: product, FinalPrice: product.Price}
	if offer != nil {
		priced.Offer = offer
		priced.FinalPrice = pricing.DiscountedPrice(product.Price, offer.DiscountBps)
	}
	return priced, nil
}

// GetStoreProduct loads a product scoped to the store with its resolved price.
func (s *Service) GetStoreProduct(ctx context.Context, productID, supplierID pgtype.UUID) (PricedProduct, error) {
	if s == nil || s.Q == nil {
		return PricedProduct{}, errors.New("catalog service not configured")
	}
	product, err := s.Q.GetProductForStore(ctx, productID, supplierID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PricedProduct{}, ErrNotFound
		}
		return PricedProduct{}, err
	}
	if !product.IsActive {
		return PricedProduct{}, ErrNotFound
	}
	return s.Price(ctx, product)
}

// ListStoreProducts returns a page of the store's active products with
// resolved prices, plus the total count.
func (s *Service) ListStoreProducts(ctx context.Context, supplierID pgtype.UUID, limit, offset int32) ([]PricedProduct, int64, error) {
	if s == nil || s.Q == nil {
		return nil, 0, errors.New("catalog service not configured")
	}
	products, err := s.Q.ListProductsByStore(ctx, supplierID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Q.CountProductsByStore(ctx, supplierID)
	if err != nil {
		return nil, 0, err
	}
	out := make([]PricedProduct, 0, len(products))
	for _, p := range products {
		priced, err := s.Price(ctx, p)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, priced)
	}
	return out, total, nil
}

// CreateOfferInput collects the fields to create an offer on a store product.
type CreateOfferInput struct {
	ProductID   pgtype.UUID
	SupplierID  pgtype.UUID
	DiscountBps int32
	FromDate    time.Time
	ToDate      time.Time
	CreatedBy   pgtype.UUID
}

// CreateOffer creates an active offer on one of the supplier's products and
// submits a matching platform promotion for approval.
func (s *Service) CreateOffer(ctx context.Context, in CreateOfferInput) (repo.ProductOffer, error) {
	if s == nil || s.Q == nil {
		return repo.ProductOffer{}, errors.New("catalog service not configured")
	}
	if err := validateOfferWindow(in.DiscountBps, in.FromDate, in.ToDate); err != nil {
		return repo.ProductOffer{}, err
	}
	product, err := s.Q.GetProductForStore(ctx, in.ProductID, in.SupplierID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.ProductOffer{}, ErrNotFound
		}
		return repo.ProductOffer{}, err
	}

	from := pgtype.Date{Time: in.FromDate, Valid: true}
	to := pgtype.Date{Time: in.ToDate, Valid: true}
	offer, err := s.Q.CreateProductOffer(ctx, repo.CreateProductOfferParams{
		ProductID:   product.ID,
		DiscountBps: in.DiscountBps,
		FromDate:    from,
		ToDate:      to,
		IsActive:    true,
		CreatedBy:   in.CreatedBy,
	})
	if err != nil {
		if repo.IsUniqueViolation(err) {
			return repo.ProductOffer{}, ErrActiveOfferExists
		}
		return repo.ProductOffer{}, err
	}

	description := fmt.Sprintf("%s — %s off", product.Name, formatBps(in.DiscountBps))
	if _, err := s.Q.CreatePlatformOfferAd(ctx, product.ID, description, from, to); err != nil {
		return repo.ProductOffer{}, err
	}
	return offer, nil
}

// UpdateOfferInput collects the mutable fields of an offer.
type UpdateOfferInput struct {
	OfferID     pgtype.UUID
	SupplierID  pgtype.UUID
	DiscountBps int32
	FromDate    time.Time
	ToDate      time.Time
	IsActive    bool
}

// UpdateOffer rewrites an offer owned by the supplier. Reactivating an offer
// while another active one exists on the product is rejected.
func (s *Service) UpdateOffer(ctx context.Context, in UpdateOfferInput) (repo.ProductOffer, error) {
	if s == nil || s.Q == nil {
		return repo.ProductOffer{}, errors.New("catalog service not configured")
	}
	if err := validateOfferWindow(in.DiscountBps, in.FromDate, in.ToDate); err != nil {
		return repo.ProductOffer{}, err
	}
	offer, err := s.Q.GetOfferByID(ctx, in.OfferID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.ProductOffer{}, ErrNotFound
		}
		return repo.ProductOffer{}, err
	}
	if _, err := s.Q.GetProductForStore(ctx, offer.ProductID, in.SupplierID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.ProductOffer{}, ErrNotFound
		}
		return repo.ProductOffer{}, err
	}

	updated, err := s.Q.UpdateProductOffer(ctx, repo.UpdateProductOfferParams{
		ID:          offer.ID,
		DiscountBps: in.DiscountBps,
		FromDate:    pgtype.Date{Time: in.FromDate, Valid: true},
		ToDate:      pgtype.Date{Time: in.ToDate, Valid: true},
		IsActive:    in.IsActive,
	})
	if err != nil {
		if repo.IsUniqueViolation(err) {
			return repo.ProductOffer{}, ErrActiveOfferExists
		}
		return repo.ProductOffer{}, err
	}
	return updated, nil
}

func validateOfferWindow(discountBps int32, from, to time.Time) error {
	if discountBps <= 0 || discountBps >= pricing.BpsDenominator {
		return fmt.Errorf("discount must be between 0 and 100 percent exclusive: %w", ErrInvalidInput)
	}
	if from.IsZero() || to.IsZero() {
		return fmt.Errorf("offer window required: %w", ErrInvalidInput)
	}
	if to.Before(from) {
		return fmt.Errorf("offer end date precedes start date: %w", ErrInvalidInput)
	}
	return nil
}

func formatBps(bps int32) string {
	whole := bps / 100
	frac := bps % 100
	if frac == 0 {
		return fmt.Sprintf("%d%%", whole)
	}
	return fmt.Sprintf("%d.%02d%%", whole, frac)
}
