package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const productColumns = `
	id, supplier_id, category_id, name, description, price, stock, is_active, created_at`

func scanProduct(row interface{ Scan(dest ...any) error }) (Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.SupplierID, &p.CategoryID, &p.Name, &p.Description,
		&p.Price, &p.Stock, &p.IsActive, &p.CreatedAt,
	)
	return p, err
}

// GetProductByID loads a product by primary key.
func (s *Store) GetProductByID(ctx context.Context, id pgtype.UUID) (Product, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

// GetProductForStore loads a product scoped to its owning supplier.
func (s *Store) GetProductForStore(ctx context.Context, id, supplierID pgtype.UUID) (Product, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 AND supplier_id = $2`, id, supplierID)
	return scanProduct(row)
}

// ListProductsByStore returns active products for a store, newest first.
func (s *Store) ListProductsByStore(ctx context.Context, supplierID pgtype.UUID, limit, offset int32) ([]Product, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+productColumns+`
		 FROM products
		 WHERE supplier_id = $1 AND is_active
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, supplierID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DecrementProductStock atomically reserves qty units of stock. Returns
// false when the remaining stock cannot cover the quantity.
func (s *Store) DecrementProductStock(ctx context.Context, id pgtype.UUID, qty int32) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`, id, qty)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// CountProductsByStore counts active products for a store.
func (s *Store) CountProductsByStore(ctx context.Context, supplierID pgtype.UUID) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM products WHERE supplier_id = $1 AND is_active`, supplierID).Scan(&n)
	return n, err
}
