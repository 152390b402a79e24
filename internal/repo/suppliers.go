package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const supplierColumns = `
	s.id, s.user_id, s.name, s.slug, s.phone, s.city, s.country,
	s.currency_code, COALESCE(c.symbol, s.currency_code),
	s.workflow_id, s.latitude, s.longitude,
	s.delivery_fee_ratio, s.enable_delivery_fees, s.is_active, s.created_at`

const supplierFrom = `
	FROM suppliers s
	LEFT JOIN currencies c ON c.code = s.currency_code`

func scanSupplier(row interface{ Scan(dest ...any) error }) (Supplier, error) {
	var s Supplier
	err := row.Scan(
		&s.ID, &s.UserID, &s.Name, &s.Slug, &s.Phone, &s.City, &s.Country,
		&s.CurrencyCode, &s.CurrencySymbol,
		&s.WorkflowID, &s.Latitude, &s.Longitude,
		&s.DeliveryFeeRatio, &s.EnableDeliveryFees, &s.IsActive, &s.CreatedAt,
	)
	return s, err
}

// GetStoreBySlug loads an active supplier by its public store slug.
func (s *Store) GetStoreBySlug(ctx context.Context, slug string) (Supplier, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+supplierColumns+supplierFrom+` WHERE s.slug = $1`, slug)
	return scanSupplier(row)
}

// GetSupplierByID loads a supplier by primary key.
func (s *Store) GetSupplierByID(ctx context.Context, id pgtype.UUID) (Supplier, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+supplierColumns+supplierFrom+` WHERE s.id = $1`, id)
	return scanSupplier(row)
}

// GetSupplierByUser loads the supplier owned by the given user.
func (s *Store) GetSupplierByUser(ctx context.Context, userID pgtype.UUID) (Supplier, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+supplierColumns+supplierFrom+` WHERE s.user_id = $1`, userID)
	return scanSupplier(row)
}

// SetSupplierActive flips the supplier active flag and reports whether the
// flag actually changed.
func (s *Store) SetSupplierActive(ctx context.Context, id pgtype.UUID, active bool) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE suppliers SET is_active = $2 WHERE id = $1 AND is_active <> $2`, id, active)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
