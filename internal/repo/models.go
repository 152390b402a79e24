package repo

import (
	"github.com/jackc/pgx/v5/pgtype"
)

// Supplier is a store owner on the platform.
type Supplier struct {
	ID                 pgtype.UUID
	UserID             pgtype.UUID
	Name               string
	Slug               string
	Phone              string
	City               string
	Country            string
	CurrencyCode       string
	CurrencySymbol     string
	WorkflowID         pgtype.UUID
	Latitude           pgtype.Float8
	Longitude          pgtype.Float8
	DeliveryFeeRatio   int64
	EnableDeliveryFees bool
	IsActive           bool
	CreatedAt          pgtype.Timestamptz
}

// Product is a catalog entry owned by a single supplier.
type Product struct {
	ID          pgtype.UUID
	SupplierID  pgtype.UUID
	CategoryID  pgtype.UUID
	Name        string
	Description string
	Price       int64
	Stock       int32
	IsActive    bool
	CreatedAt   pgtype.Timestamptz
}

// ProductOffer is a time-boxed discount attached to a product.
type ProductOffer struct {
	ID          pgtype.UUID
	ProductID   pgtype.UUID
	DiscountBps int32
	FromDate    pgtype.Date
	ToDate      pgtype.Date
	IsActive    bool
	CreatedBy   pgtype.UUID
	CreatedAt   pgtype.Timestamptz
}

// Cart is the per-(user, store) shopping cart.
type Cart struct {
	ID         pgtype.UUID
	UserID     pgtype.UUID
	SupplierID pgtype.UUID
	CreatedAt  pgtype.Timestamptz
}

// CartItem is one product line in a cart.
type CartItem struct {
	ID        pgtype.UUID
	CartID    pgtype.UUID
	ProductID pgtype.UUID
	Qty       int32
}

// CartItemDetail joins a cart line with the current catalog state of its
// product.
type CartItemDetail struct {
	CartItem
	ProductName     string
	UnitPrice       int64
	ProductIsActive bool
}

// Order is the persisted snapshot of a completed checkout.
type Order struct {
	ID           pgtype.UUID
	UserID       pgtype.UUID
	SupplierID   pgtype.UUID
	StatusID     pgtype.UUID
	TotalAmount  int64
	CurrencyCode string
	Notes        pgtype.Text
	CreatedAt    pgtype.Timestamptz
}

// OrderItem is an immutable order line with prices frozen at checkout.
type OrderItem struct {
	ID             pgtype.UUID
	OrderID        pgtype.UUID
	ProductID      pgtype.UUID
	Name           string
	Qty            int32
	UnitPrice      int64
	GrossUnitPrice int64
	Subtotal       int64
}

// PaymentReference is one entry in the append-only payment ledger of an order.
type PaymentReference struct {
	ID              pgtype.UUID
	OrderID         pgtype.UUID
	Amount          int64
	ReferenceNumber string
	RecordedBy      pgtype.UUID
	CreatedAt       pgtype.Timestamptz
}

// ShippingAddress is the delivery destination snapshotted at order time.
type ShippingAddress struct {
	ID           pgtype.UUID
	OrderID      pgtype.UUID
	Phone        string
	AddressLine1 string
	AddressLine2 pgtype.Text
	City         string
	Country      string
	PostalCode   pgtype.Text
	Latitude     pgtype.Float8
	Longitude    pgtype.Float8
}

// Address is a user's saved default address.
type Address struct {
	ID           pgtype.UUID
	UserID       pgtype.UUID
	Phone        string
	AddressLine1 string
	AddressLine2 pgtype.Text
	City         string
	Country      string
	PostalCode   pgtype.Text
	Latitude     pgtype.Float8
	Longitude    pgtype.Float8
}

// OrderStatus is a shared, sluggable status definition.
type OrderStatus struct {
	ID          pgtype.UUID
	Name        string
	Slug        string
	Description pgtype.Text
	IsTerminal  bool
}

// OrderWorkflow is a named pipeline of steps assignable to suppliers.
type OrderWorkflow struct {
	ID        pgtype.UUID
	Name      string
	IsDefault bool
}

// WorkflowStep ties a status into a workflow at a given priority.
type WorkflowStep struct {
	ID              pgtype.UUID
	WorkflowID      pgtype.UUID
	StatusID        pgtype.UUID
	Priority        int32
	RequiresPayment bool
}

// WorkflowStepDetail joins a step with its status for display.
type WorkflowStepDetail struct {
	WorkflowStep
	StatusName string
	StatusSlug string
}

// SupplierAd is a store-owned promotional banner.
type SupplierAd struct {
	ID         pgtype.UUID
	SupplierID pgtype.UUID
	Title      pgtype.Text
	ProductID  pgtype.UUID
	IsActive   bool
	CreatedAt  pgtype.Timestamptz
}

// PlatformOfferAd is a platform-level promotion awaiting approval.
type PlatformOfferAd struct {
	ID          pgtype.UUID
	ProductID   pgtype.UUID
	Description string
	StartDate   pgtype.Date
	EndDate     pgtype.Date
	Position    int32
	IsApproved  bool
}

// DomainEvent is a persisted record of something that happened.
type DomainEvent struct {
	ID          pgtype.UUID
	Topic       string
	AggregateID pgtype.UUID
	Payload     []byte
	OccurredAt  pgtype.Timestamptz
}
