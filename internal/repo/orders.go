package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `
	id, user_id, supplier_id, status_id, total_amount, currency_code, notes, created_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.SupplierID, &o.StatusID, &o.TotalAmount,
		&o.CurrencyCode, &o.Notes, &o.CreatedAt,
	)
	return o, err
}

// CreateOrderParams collects the fields required to create an order.
type CreateOrderParams struct {
	UserID       pgtype.UUID
	SupplierID   pgtype.UUID
	StatusID     pgtype.UUID
	CurrencyCode string
	Notes        pgtype.Text
}

// CreateOrder inserts an order shell; items, address, and total follow in
// the same transaction.
func (s *Store) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := s.db.QueryRow(ctx,
		`INSERT INTO orders (user_id, supplier_id, status_id, total_amount, currency_code, notes)
		 VALUES ($1, $2, $3, 0, $4, $5)
		 RETURNING `+orderColumns,
		arg.UserID, arg.SupplierID, arg.StatusID, arg.CurrencyCode, arg.Notes)
	return scanOrder(row)
}

// CreateOrderItemParams collects an immutable order line.
type CreateOrderItemParams struct {
	OrderID        pgtype.UUID
	ProductID      pgtype.UUID
	Name           string
	Qty            int32
	UnitPrice      int64
	GrossUnitPrice int64
}

// CreateOrderItem inserts one order line with prices frozen at order time.
func (s *Store) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	var it OrderItem
	err := s.db.QueryRow(ctx,
		`INSERT INTO order_items (order_id, product_id, name, qty, unit_price, gross_unit_price, subtotal)
		 VALUES ($1, $2, $3, $4, $5, $6, $4::int * $5)
		 RETURNING id, order_id, product_id, name, qty, unit_price, gross_unit_price, subtotal`,
		arg.OrderID, arg.ProductID, arg.Name, arg.Qty, arg.UnitPrice, arg.GrossUnitPrice).
		Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.Qty,
			&it.UnitPrice, &it.GrossUnitPrice, &it.Subtotal)
	return it, err
}

// ListOrderItems returns the order lines in insertion order.
func (s *Store) ListOrderItems(ctx context.Context, orderID pgtype.UUID) ([]OrderItem, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, order_id, product_id, name, qty, unit_price, gross_unit_price, subtotal
		 FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.Qty,
			&it.UnitPrice, &it.GrossUnitPrice, &it.Subtotal); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// GetOrderByID loads an order by primary key.
func (s *Store) GetOrderByID(ctx context.Context, id pgtype.UUID) (Order, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

// GetOrderForUser loads an order scoped to its owner.
func (s *Store) GetOrderForUser(ctx context.Context, id, userID pgtype.UUID) (Order, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2`, id, userID)
	return scanOrder(row)
}

// GetOrderForSupplier loads an order scoped to the selling store.
func (s *Store) GetOrderForSupplier(ctx context.Context, id, supplierID pgtype.UUID) (Order, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND supplier_id = $2`, id, supplierID)
	return scanOrder(row)
}

// ListOrdersForUser returns a page of the user's orders, newest first.
func (s *Store) ListOrdersForUser(ctx context.Context, userID pgtype.UUID, limit, offset int32) ([]Order, error) {
	return s.listOrders(ctx,
		`SELECT `+orderColumns+`
		 FROM orders WHERE user_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
}

// CountOrdersForUser counts the user's orders.
func (s *Store) CountOrdersForUser(ctx context.Context, userID pgtype.UUID) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

// ListOrdersForSupplier returns a page of the store's orders, newest first.
func (s *Store) ListOrdersForSupplier(ctx context.Context, supplierID pgtype.UUID, limit, offset int32) ([]Order, error) {
	return s.listOrders(ctx,
		`SELECT `+orderColumns+`
		 FROM orders WHERE supplier_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, supplierID, limit, offset)
}

// CountOrdersForSupplier counts the store's orders.
func (s *Store) CountOrdersForSupplier(ctx context.Context, supplierID pgtype.UUID) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE supplier_id = $1`, supplierID).Scan(&n)
	return n, err
}

func (s *Store) listOrders(ctx context.Context, sql string, args ...any) ([]Order, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// UpdateOrderTotal persists a recomputed order total.
func (s *Store) UpdateOrderTotal(ctx context.Context, id pgtype.UUID, total int64) error {
	_, err := s.db.Exec(ctx, `UPDATE orders SET total_amount = $2 WHERE id = $1`, id, total)
	return err
}

// UpdateOrderStatus sets the pipeline status of an order.
func (s *Store) UpdateOrderStatus(ctx context.Context, id, statusID pgtype.UUID) error {
	_, err := s.db.Exec(ctx, `UPDATE orders SET status_id = $2 WHERE id = $1`, id, statusID)
	return err
}

// PaymentTotalForOrder sums the order's payment reference ledger.
func (s *Store) PaymentTotalForOrder(ctx context.Context, orderID pgtype.UUID) (int64, error) {
	var total int64
	err := s.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payment_references WHERE order_id = $1`, orderID).
		Scan(&total)
	return total, err
}

// InsertPaymentReference appends one payment to the order's ledger.
func (s *Store) InsertPaymentReference(ctx context.Context, orderID pgtype.UUID, amount int64, reference string, recordedBy pgtype.UUID) (PaymentReference, error) {
	var p PaymentReference
	err := s.db.QueryRow(ctx,
		`INSERT INTO payment_references (order_id, amount, reference_number, recorded_by)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, order_id, amount, reference_number, recorded_by, created_at`,
		orderID, amount, reference, recordedBy).
		Scan(&p.ID, &p.OrderID, &p.Amount, &p.ReferenceNumber, &p.RecordedBy, &p.CreatedAt)
	return p, err
}

// ListPaymentReferences returns the ledger, newest first.
func (s *Store) ListPaymentReferences(ctx context.Context, orderID pgtype.UUID) ([]PaymentReference, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, order_id, amount, reference_number, recorded_by, created_at
		 FROM payment_references WHERE order_id = $1 ORDER BY created_at DESC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PaymentReference
	for rows.Next() {
		var p PaymentReference
		if err := rows.Scan(&p.ID, &p.OrderID, &p.Amount, &p.ReferenceNumber, &p.RecordedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateShippingAddress snapshots the delivery destination for an order.
func (s *Store) CreateShippingAddress(ctx context.Context, a ShippingAddress) (ShippingAddress, error) {
	err := s.db.QueryRow(ctx,
		`INSERT INTO shipping_addresses
		 (order_id, phone, address_line1, address_line2, city, country, postal_code, latitude, longitude)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		a.OrderID, a.Phone, a.AddressLine1, a.AddressLine2, a.City, a.Country,
		a.PostalCode, a.Latitude, a.Longitude).
		Scan(&a.ID)
	return a, err
}

// GetShippingAddressForOrder loads the delivery snapshot of an order.
func (s *Store) GetShippingAddressForOrder(ctx context.Context, orderID pgtype.UUID) (ShippingAddress, error) {
	var a ShippingAddress
	err := s.db.QueryRow(ctx,
		`SELECT id, order_id, phone, address_line1, address_line2, city, country, postal_code, latitude, longitude
		 FROM shipping_addresses WHERE order_id = $1`, orderID).
		Scan(&a.ID, &a.OrderID, &a.Phone, &a.AddressLine1, &a.AddressLine2,
			&a.City, &a.Country, &a.PostalCode, &a.Latitude, &a.Longitude)
	return a, err
}

// GetSavedAddress loads the user's saved default address.
func (s *Store) GetSavedAddress(ctx context.Context, userID pgtype.UUID) (Address, error) {
	var a Address
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, phone, address_line1, address_line2, city, country, postal_code, latitude, longitude
		 FROM addresses WHERE user_id = $1`, userID).
		Scan(&a.ID, &a.UserID, &a.Phone, &a.AddressLine1, &a.AddressLine2,
			&a.City, &a.Country, &a.PostalCode, &a.Latitude, &a.Longitude)
	return a, err
}
