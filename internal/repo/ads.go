package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// DeactivateAdsForSupplier switches off the supplier's banner ads and
// returns the number affected.
func (s *Store) DeactivateAdsForSupplier(ctx context.Context, supplierID pgtype.UUID) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE supplier_ads SET is_active = FALSE WHERE supplier_id = $1 AND is_active`, supplierID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// UnapprovePlatformAdsForSupplier withdraws approval from platform offer ads
// attached to the supplier's products.
func (s *Store) UnapprovePlatformAdsForSupplier(ctx context.Context, supplierID pgtype.UUID) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE platform_offer_ads a
		 SET is_approved = FALSE
		 FROM products p
		 WHERE a.product_id = p.id AND p.supplier_id = $1 AND a.is_approved`, supplierID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CreatePlatformOfferAd submits a platform promotion for a discounted
// product, pending approval.
func (s *Store) CreatePlatformOfferAd(ctx context.Context, productID pgtype.UUID, description string, start, end pgtype.Date) (PlatformOfferAd, error) {
	var ad PlatformOfferAd
	err := s.db.QueryRow(ctx,
		`INSERT INTO platform_offer_ads (product_id, description, start_date, end_date, position, is_approved)
		 VALUES ($1, $2, $3, $4, 0, FALSE)
		 RETURNING id, product_id, description, start_date, end_date, position, is_approved`,
		productID, description, start, end).
		Scan(&ad.ID, &ad.ProductID, &ad.Description, &ad.StartDate, &ad.EndDate, &ad.Position, &ad.IsApproved)
	return ad, err
}
