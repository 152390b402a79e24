package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const offerColumns = `
	id, product_id, discount_bps, from_date, to_date, is_active, created_by, created_at`

func scanOffer(row interface{ Scan(dest ...any) error }) (ProductOffer, error) {
	var o ProductOffer
	err := row.Scan(
		&o.ID, &o.ProductID, &o.DiscountBps, &o.FromDate, &o.ToDate,
		&o.IsActive, &o.CreatedBy, &o.CreatedAt,
	)
	return o, err
}

// CreateProductOfferParams collects the fields required to create an offer.
type CreateProductOfferParams struct {
	ProductID   pgtype.UUID
	DiscountBps int32
	FromDate    pgtype.Date
	ToDate      pgtype.Date
	IsActive    bool
	CreatedBy   pgtype.UUID
}

// CreateProductOffer inserts a new offer. The partial unique index on
// (product_id) WHERE is_active rejects a second active offer per product.
func (s *Store) CreateProductOffer(ctx context.Context, arg CreateProductOfferParams) (ProductOffer, error) {
	row := s.db.QueryRow(ctx,
		`INSERT INTO product_offers (product_id, discount_bps, from_date, to_date, is_active, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+offerColumns,
		arg.ProductID, arg.DiscountBps, arg.FromDate, arg.ToDate, arg.IsActive, arg.CreatedBy)
	return scanOffer(row)
}

// UpdateProductOfferParams collects the mutable fields of an offer.
type UpdateProductOfferParams struct {
	ID          pgtype.UUID
	DiscountBps int32
	FromDate    pgtype.Date
	ToDate      pgtype.Date
	IsActive    bool
}

// UpdateProductOffer rewrites an offer. Reactivation still goes through the
// active-offer uniqueness constraint.
func (s *Store) UpdateProductOffer(ctx context.Context, arg UpdateProductOfferParams) (ProductOffer, error) {
	row := s.db.QueryRow(ctx,
		`UPDATE product_offers
		 SET discount_bps = $2, from_date = $3, to_date = $4, is_active = $5
		 WHERE id = $1
		 RETURNING `+offerColumns,
		arg.ID, arg.DiscountBps, arg.FromDate, arg.ToDate, arg.IsActive)
	return scanOffer(row)
}

// GetOfferByID loads an offer by primary key.
func (s *Store) GetOfferByID(ctx context.Context, id pgtype.UUID) (ProductOffer, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+offerColumns+` FROM product_offers WHERE id = $1`, id)
	return scanOffer(row)
}

// ListActiveOffersForProduct returns offers that are active and whose window
// covers asOf, best discount first.
func (s *Store) ListActiveOffersForProduct(ctx context.Context, productID pgtype.UUID, asOf pgtype.Date) ([]ProductOffer, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+offerColumns+`
		 FROM product_offers
		 WHERE product_id = $1 AND is_active AND from_date <= $2 AND to_date >= $2
		 ORDER BY discount_bps DESC, created_at ASC`, productID, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ProductOffer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// DeactivateOffersForSupplier switches off every active offer on the
// supplier's products and returns the number affected.
func (s *Store) DeactivateOffersForSupplier(ctx context.Context, supplierID pgtype.UUID) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE product_offers o
		 SET is_active = FALSE
		 FROM products p
		 WHERE o.product_id = p.id AND p.supplier_id = $1 AND o.is_active`, supplierID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
