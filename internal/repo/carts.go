package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// GetCartForUserStore loads the cart keyed by (user, supplier).
func (s *Store) GetCartForUserStore(ctx context.Context, userID, supplierID pgtype.UUID) (Cart, error) {
	var c Cart
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, supplier_id, created_at
		 FROM carts WHERE user_id = $1 AND supplier_id = $2`, userID, supplierID).
		Scan(&c.ID, &c.UserID, &c.SupplierID, &c.CreatedAt)
	return c, err
}

// CreateCart inserts a cart for the (user, supplier) pair. A concurrent
// duplicate insert surfaces as a unique violation.
func (s *Store) CreateCart(ctx context.Context, userID, supplierID pgtype.UUID) (Cart, error) {
	var c Cart
	err := s.db.QueryRow(ctx,
		`INSERT INTO carts (user_id, supplier_id) VALUES ($1, $2)
		 RETURNING id, user_id, supplier_id, created_at`, userID, supplierID).
		Scan(&c.ID, &c.UserID, &c.SupplierID, &c.CreatedAt)
	return c, err
}

// UpsertCartItem adds qty to the cart line for the product, creating the row
// when absent. The unique (cart_id, product_id) constraint makes concurrent
// double-adds collapse into a single row.
func (s *Store) UpsertCartItem(ctx context.Context, cartID, productID pgtype.UUID, qty int32) (CartItem, error) {
	var it CartItem
	err := s.db.QueryRow(ctx,
		`INSERT INTO cart_items (cart_id, product_id, qty)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (cart_id, product_id)
		 DO UPDATE SET qty = cart_items.qty + EXCLUDED.qty
		 RETURNING id, cart_id, product_id, qty`, cartID, productID, qty).
		Scan(&it.ID, &it.CartID, &it.ProductID, &it.Qty)
	return it, err
}

// GetCartItem loads a cart line scoped to its cart.
func (s *Store) GetCartItem(ctx context.Context, itemID, cartID pgtype.UUID) (CartItem, error) {
	var it CartItem
	err := s.db.QueryRow(ctx,
		`SELECT id, cart_id, product_id, qty
		 FROM cart_items WHERE id = $1 AND cart_id = $2`, itemID, cartID).
		Scan(&it.ID, &it.CartID, &it.ProductID, &it.Qty)
	return it, err
}

// SetCartItemQty sets an absolute quantity on a cart line.
func (s *Store) SetCartItemQty(ctx context.Context, itemID pgtype.UUID, qty int32) error {
	_, err := s.db.Exec(ctx,
		`UPDATE cart_items SET qty = $2 WHERE id = $1`, itemID, qty)
	return err
}

// DeleteCartItem removes a cart line.
func (s *Store) DeleteCartItem(ctx context.Context, itemID pgtype.UUID) error {
	_, err := s.db.Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	return err
}

// ClearCart removes every line from the cart.
func (s *Store) ClearCart(ctx context.Context, cartID pgtype.UUID) error {
	_, err := s.db.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	return err
}

// ListCartItems returns the cart lines joined with current product state.
func (s *Store) ListCartItems(ctx context.Context, cartID pgtype.UUID) ([]CartItemDetail, error) {
	rows, err := s.db.Query(ctx,
		`SELECT ci.id, ci.cart_id, ci.product_id, ci.qty, p.name, p.price, p.is_active
		 FROM cart_items ci
		 JOIN products p ON p.id = ci.product_id
		 WHERE ci.cart_id = $1
		 ORDER BY ci.id`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CartItemDetail
	for rows.Next() {
		var d CartItemDetail
		if err := rows.Scan(&d.ID, &d.CartID, &d.ProductID, &d.Qty,
			&d.ProductName, &d.UnitPrice, &d.ProductIsActive); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
