package order

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/souq-labs/backend-souq/internal/repo"
)

type fakeQueries struct {
	orders    map[pgtype.UUID]repo.Order
	items     map[pgtype.UUID][]repo.OrderItem
	payments  map[pgtype.UUID][]repo.PaymentReference
	addresses map[pgtype.UUID]repo.ShippingAddress
	suppliers map[pgtype.UUID]repo.Supplier
	statuses  map[pgtype.UUID]repo.OrderStatus
	totals    map[pgtype.UUID]int64
}

func newFakeQueries() *fakeQueries {
	return &fakeQueries{
		orders:    map[pgtype.UUID]repo.Order{},
		items:     map[pgtype.UUID][]repo.OrderItem{},
		payments:  map[pgtype.UUID][]repo.PaymentReference{},
		addresses: map[pgtype.UUID]repo.ShippingAddress{},
		suppliers: map[pgtype.UUID]repo.Supplier{},
		statuses:  map[pgtype.UUID]repo.OrderStatus{},
		totals:    map[pgtype.UUID]int64{},
	}
}

func (f *fakeQueries) GetOrderByID(_ context.Context, id pgtype.UUID) (repo.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return repo.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (f *fakeQueries) GetOrderForUser(_ context.Context, id, userID pgtype.UUID) (repo.Order, error) {
	o, ok := f.orders[id]
	if !ok || !repo.UUIDEqual(o.UserID, userID) {
		return repo.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (f *fakeQueries) GetOrderForSupplier(_ context.Context, id, supplierID pgtype.UUID) (repo.Order, error) {
	o, ok := f.orders[id]
	if !ok || !repo.UUIDEqual(o.SupplierID, supplierID) {
		return repo.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (f *fakeQueries) ListOrdersForUser(_ context.Context, userID pgtype.UUID, _, _ int32) ([]repo.Order, error) {
	var out []repo.Order
	for _, o := range f.orders {
		if repo.UUIDEqual(o.UserID, userID) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeQueries) CountOrdersForUser(ctx context.Context, userID pgtype.UUID) (int64, error) {
	out, _ := f.ListOrdersForUser(ctx, userID, 0, 0)
	return int64(len(out)), nil
}

func (f *fakeQueries) ListOrdersForSupplier(_ context.Context, supplierID pgtype.UUID, _, _ int32) ([]repo.Order, error) {
	var out []repo.Order
	for _, o := range f.orders {
		if repo.UUIDEqual(o.SupplierID, supplierID) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeQueries) CountOrdersForSupplier(ctx context.Context, supplierID pgtype.UUID) (int64, error) {
	out, _ := f.ListOrdersForSupplier(ctx, supplierID, 0, 0)
	return int64(len(out)), nil
}

func (f *fakeQueries) ListOrderItems(_ context.Context, orderID pgtype.UUID) ([]repo.OrderItem, error) {
	return f.items[orderID], nil
}

func (f *fakeQueries) UpdateOrderTotal(_ context.Context, id pgtype.UUID, total int64) error {
	f.totals[id] = total
	if o, ok := f.orders[id]; ok {
		o.TotalAmount = total
		f.orders[id] = o
	}
	return nil
}

func (f *fakeQueries) PaymentTotalForOrder(_ context.Context, orderID pgtype.UUID) (int64, error) {
	var total int64
	for _, p := range f.payments[orderID] {
		total += p.Amount
	}
	return total, nil
}

func (f *fakeQueries) InsertPaymentReference(_ context.Context, orderID pgtype.UUID, amount int64, reference string, recordedBy pgtype.UUID) (repo.PaymentReference, error) {
	p := repo.PaymentReference{
		ID:              repo.NewUUID(),
		OrderID:         orderID,
		Amount:          amount,
		ReferenceNumber: reference,
		RecordedBy:      recordedBy,
	}
	f.payments[orderID] = append(f.payments[orderID], p)
	return p, nil
}

func (f *fakeQueries) ListPaymentReferences(_ context.Context, orderID pgtype.UUID) ([]repo.PaymentReference, error) {
	return f.payments[orderID], nil
}

func (f *fakeQueries) GetShippingAddressForOrder(_ context.Context, orderID pgtype.UUID) (repo.ShippingAddress, error) {
	a, ok := f.addresses[orderID]
	if !ok {
		return repo.ShippingAddress{}, pgx.ErrNoRows
	}
	return a, nil
}

func (f *fakeQueries) GetSupplierByID(_ context.Context, id pgtype.UUID) (repo.Supplier, error) {
	s, ok := f.suppliers[id]
	if !ok {
		return repo.Supplier{}, pgx.ErrNoRows
	}
	return s, nil
}

func (f *fakeQueries) GetStatusByID(_ context.Context, id pgtype.UUID) (repo.OrderStatus, error) {
	s, ok := f.statuses[id]
	if !ok {
		return repo.OrderStatus{}, pgx.ErrNoRows
	}
	return s, nil
}

func coord(v float64) pgtype.Float8 {
	return pgtype.Float8{Float64: v, Valid: true}
}

func seedOrder(f *fakeQueries, supplier repo.Supplier, itemSubtotals ...int64) repo.Order {
	o := repo.Order{
		ID:           repo.NewUUID(),
		UserID:       repo.NewUUID(),
		SupplierID:   supplier.ID,
		CurrencyCode: supplier.CurrencyCode,
	}
	f.orders[o.ID] = o
	for _, sub := range itemSubtotals {
		f.items[o.ID] = append(f.items[o.ID], repo.OrderItem{
			ID:             repo.NewUUID(),
			OrderID:        o.ID,
			Qty:            1,
			UnitPrice:      sub,
			GrossUnitPrice: sub,
			Subtotal:       sub,
		})
	}
	return o
}

func TestRecomputeTotalAddsDeliveryFee(t *testing.T) {
	f := newFakeQueries()
	supplier := repo.Supplier{
		ID:                 repo.NewUUID(),
		CurrencyCode:       "YER",
		EnableDeliveryFees: true,
		DeliveryFeeRatio:   100,
		Latitude:           coord(0),
		Longitude:          coord(0),
	}
	f.suppliers[supplier.ID] = supplier
	svc := &Service{Q: f}

	o := seedOrder(f, supplier, 3000, 2000)
	// one degree of latitude is 111.194926... km away
	f.addresses[o.ID] = repo.ShippingAddress{
		OrderID:   o.ID,
		Latitude:  coord(1),
		Longitude: coord(0),
	}

	total, err := svc.RecomputeTotal(context.Background(), o)
	require.NoError(t, err)
	require.Equal(t, int64(5000+11119), total)
	require.Equal(t, total, f.totals[o.ID])
}

func TestDeliveryFeeZeroWhenDisabled(t *testing.T) {
	f := newFakeQueries()
	supplier := repo.Supplier{
		ID:               repo.NewUUID(),
		CurrencyCode:     "YER",
		DeliveryFeeRatio: 100,
		Latitude:         coord(0),
		Longitude:        coord(0),
	}
	f.suppliers[supplier.ID] = supplier
	svc := &Service{Q: f}

	o := seedOrder(f, supplier, 3000)
	f.addresses[o.ID] = repo.ShippingAddress{OrderID: o.ID, Latitude: coord(1), Longitude: coord(0)}

	fee, err := svc.DeliveryFee(context.Background(), o)
	require.NoError(t, err)
	require.Zero(t, fee)
}

func TestDeliveryFeeZeroWithoutCoordinates(t *testing.T) {
	f := newFakeQueries()
	supplier := repo.Supplier{
		ID:                 repo.NewUUID(),
		CurrencyCode:       "YER",
		EnableDeliveryFees: true,
		DeliveryFeeRatio:   100,
	}
	f.suppliers[supplier.ID] = supplier
	svc := &Service{Q: f}

	o := seedOrder(f, supplier, 3000)
	f.addresses[o.ID] = repo.ShippingAddress{OrderID: o.ID, Latitude: coord(1), Longitude: coord(0)}

	fee, err := svc.DeliveryFee(context.Background(), o)
	require.NoError(t, err)
	require.Zero(t, fee)
}

func TestDeliveryFeeZeroWithoutAddress(t *testing.T) {
	f := newFakeQueries()
	supplier := repo.Supplier{
		ID:                 repo.NewUUID(),
		CurrencyCode:       "YER",
		EnableDeliveryFees: true,
		DeliveryFeeRatio:   100,
		Latitude:           coord(0),
		Longitude:          coord(0),
	}
	f.suppliers[supplier.ID] = supplier
	svc := &Service{Q: f}

	o := seedOrder(f, supplier, 3000)

	fee, err := svc.DeliveryFee(context.Background(), o)
	require.NoError(t, err)
	require.Zero(t, fee)
}

func TestIsFullyPaidBoundary(t *testing.T) {
	f := newFakeQueries()
	supplier := repo.Supplier{ID: repo.NewUUID(), CurrencyCode: "YER"}
	f.suppliers[supplier.ID] = supplier
	svc := &Service{Q: f}

	o := seedOrder(f, supplier, 5000)
	o.TotalAmount = 5000
	f.orders[o.ID] = o

	paidOK, paid, err := svc.IsFullyPaid(context.Background(), o)
	require.NoError(t, err)
	require.False(t, paidOK)
	require.Zero(t, paid)

	_, err = svc.RecordPayment(context.Background(), o, 2500, "TRX-1", pgtype.UUID{})
	require.NoError(t, err)
	paidOK, _, err = svc.IsFullyPaid(context.Background(), o)
	require.NoError(t, err)
	require.False(t, paidOK)

	_, err = svc.RecordPayment(context.Background(), o, 2500, "TRX-2", pgtype.UUID{})
	require.NoError(t, err)
	paidOK, paid, err = svc.IsFullyPaid(context.Background(), o)
	require.NoError(t, err)
	require.True(t, paidOK)
	require.Equal(t, int64(5000), paid)
}

func TestRecordPaymentValidation(t *testing.T) {
	f := newFakeQueries()
	supplier := repo.Supplier{ID: repo.NewUUID(), CurrencyCode: "YER"}
	f.suppliers[supplier.ID] = supplier
	svc := &Service{Q: f}
	o := seedOrder(f, supplier, 5000)

	_, err := svc.RecordPayment(context.Background(), o, 0, "TRX", pgtype.UUID{})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.RecordPayment(context.Background(), o, -100, "TRX", pgtype.UUID{})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.RecordPayment(context.Background(), o, 100, "", pgtype.UUID{})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestGrossAndItemsTotals(t *testing.T) {
	items := []repo.OrderItem{
		{Qty: 2, UnitPrice: 800, GrossUnitPrice: 1000, Subtotal: 1600},
		{Qty: 1, UnitPrice: 500, GrossUnitPrice: 500, Subtotal: 500},
	}
	require.Equal(t, int64(2100), ItemsTotal(items))
	require.Equal(t, int64(2500), GrossTotal(items))
}

func TestLoadDetailAssemblesReadModel(t *testing.T) {
	f := newFakeQueries()
	supplier := repo.Supplier{ID: repo.NewUUID(), CurrencyCode: "YER"}
	f.suppliers[supplier.ID] = supplier
	svc := &Service{Q: f}

	status := repo.OrderStatus{ID: repo.NewUUID(), Name: "Pending", Slug: "pending"}
	f.statuses[status.ID] = status

	o := seedOrder(f, supplier, 2000, 1500)
	o.StatusID = status.ID
	o.TotalAmount = 3500
	f.orders[o.ID] = o
	f.addresses[o.ID] = repo.ShippingAddress{OrderID: o.ID, Phone: "0777123456", City: "Sanaa"}
	_, err := svc.RecordPayment(context.Background(), o, 3500, "TRX-9", pgtype.UUID{})
	require.NoError(t, err)

	detail, err := svc.LoadDetail(context.Background(), o)
	require.NoError(t, err)
	require.Equal(t, "Pending", detail.Status.Name)
	require.Len(t, detail.Items, 2)
	require.NotNil(t, detail.Address)
	require.Equal(t, int64(3500), detail.PaidAmount)
	require.True(t, detail.FullyPaid)
	require.Equal(t, int64(3500), detail.GrossTotal)
}
