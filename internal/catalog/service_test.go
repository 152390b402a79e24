package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/souq-labs/backend-souq/internal/repo"
)

type fakeQueries struct {
	products map[pgtype.UUID]repo.Product
	offers   []repo.ProductOffer
	ads      []repo.PlatformOfferAd
}

func newFakeQueries() *fakeQueries {
	return &fakeQueries{products: map[pgtype.UUID]repo.Product{}}
}

func (f *fakeQueries) GetProductByID(_ context.Context, id pgtype.UUID) (repo.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return repo.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (f *fakeQueries) GetProductForStore(_ context.Context, id, supplierID pgtype.UUID) (repo.Product, error) {
	p, ok := f.products[id]
	if !ok || !repo.UUIDEqual(p.SupplierID, supplierID) {
		return repo.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (f *fakeQueries) ListProductsByStore(_ context.Context, supplierID pgtype.UUID, _, _ int32) ([]repo.Product, error) {
	var out []repo.Product
	for _, p := range f.products {
		if repo.UUIDEqual(p.SupplierID, supplierID) && p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeQueries) CountProductsByStore(_ context.Context, supplierID pgtype.UUID) (int64, error) {
	items, _ := f.ListProductsByStore(context.Background(), supplierID, 0, 0)
	return int64(len(items)), nil
}

func (f *fakeQueries) ListActiveOffersForProduct(_ context.Context, productID pgtype.UUID, asOf pgtype.Date) ([]repo.ProductOffer, error) {
	var out []repo.ProductOffer
	for _, o := range f.offers {
		if !repo.UUIDEqual(o.ProductID, productID) || !o.IsActive {
			continue
		}
		if o.FromDate.Time.After(asOf.Time) || o.ToDate.Time.Before(asOf.Time) {
			continue
		}
		out = append(out, o)
	}
	// highest discount first, earliest created breaks ties
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].DiscountBps > out[i].DiscountBps ||
				(out[j].DiscountBps == out[i].DiscountBps && out[j].CreatedAt.Time.Before(out[i].CreatedAt.Time)) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (f *fakeQueries) CreateProductOffer(_ context.Context, arg repo.CreateProductOfferParams) (repo.ProductOffer, error) {
	if arg.IsActive {
		for _, o := range f.offers {
			if repo.UUIDEqual(o.ProductID, arg.ProductID) && o.IsActive {
				return repo.ProductOffer{}, &pgconn.PgError{Code: "23505"}
			}
		}
	}
	offer := repo.ProductOffer{
		ID:          repo.NewUUID(),
		ProductID:   arg.ProductID,
		DiscountBps: arg.DiscountBps,
		FromDate:    arg.FromDate,
		ToDate:      arg.ToDate,
		IsActive:    arg.IsActive,
		CreatedBy:   arg.CreatedBy,
		CreatedAt:   pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}
	f.offers = append(f.offers, offer)
	return offer, nil
}

func (f *fakeQueries) UpdateProductOffer(_ context.Context, arg repo.UpdateProductOfferParams) (repo.ProductOffer, error) {
	for i, o := range f.offers {
		if !repo.UUIDEqual(o.ID, arg.ID) {
			continue
		}
		if arg.IsActive && !o.IsActive {
			for _, other := range f.offers {
				if repo.UUIDEqual(other.ProductID, o.ProductID) && other.IsActive && !repo.UUIDEqual(other.ID, o.ID) {
					return repo.ProductOffer{}, &pgconn.PgError{Code: "23505"}
				}
			}
		}
		f.offers[i].DiscountBps = arg.DiscountBps
		f.offers[i].FromDate = arg.FromDate
		f.offers[i].ToDate = arg.ToDate
		f.offers[i].IsActive = arg.IsActive
		return f.offers[i], nil
	}
	return repo.ProductOffer{}, pgx.ErrNoRows
}

func (f *fakeQueries) GetOfferByID(_ context.Context, id pgtype.UUID) (repo.ProductOffer, error) {
	for _, o := range f.offers {
		if repo.UUIDEqual(o.ID, id) {
			return o, nil
		}
	}
	return repo.ProductOffer{}, pgx.ErrNoRows
}

func (f *fakeQueries) CreatePlatformOfferAd(_ context.Context, productID pgtype.UUID, description string, start, end pgtype.Date) (repo.PlatformOfferAd, error) {
	ad := repo.PlatformOfferAd{
		ID:          repo.NewUUID(),
		ProductID:   productID,
		Description: description,
		StartDate:   start,
		EndDate:     end,
	}
	f.ads = append(f.ads, ad)
	return ad, nil
}

func testService(q *fakeQueries) *Service {
	return &Service{Q: q, Now: func() time.Time {
		return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	}}
}

func dateAt(y int, m time.Month, d int) pgtype.Date {
	return pgtype.Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Valid: true}
}

func seedProduct(q *fakeQueries, price int64) repo.Product {
	p := repo.Product{
		ID:         repo.NewUUID(),
		SupplierID: repo.NewUUID(),
		Name:       "Yemeni Sidr Honey",
		Price:      price,
		Stock:      10,
		IsActive:   true,
	}
	q.products[p.ID] = p
	return p
}

func addOffer(q *fakeQueries, productID pgtype.UUID, bps int32, created time.Time) repo.ProductOffer {
	o := repo.ProductOffer{
		ID:          repo.NewUUID(),
		ProductID:   productID,
		DiscountBps: bps,
		FromDate:    dateAt(2025, 6, 1),
		ToDate:      dateAt(2025, 6, 30),
		IsActive:    true,
		CreatedAt:   pgtype.Timestamptz{Time: created, Valid: true},
	}
	q.offers = append(q.offers, o)
	return o
}

func TestActiveOfferPicksHighestDiscount(t *testing.T) {
	q := newFakeQueries()
	svc := testService(q)
	p := seedProduct(q, 10000)

	addOffer(q, p.ID, 1000, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	best := addOffer(q, p.ID, 2500, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC))

	offer, err := svc.ActiveOffer(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, offer)
	require.True(t, repo.UUIDEqual(offer.ID, best.ID))
}

func TestActiveOfferTieBreaksOnEarliestCreation(t *testing.T) {
	q := newFakeQueries()
	svc := testService(q)
	p := seedProduct(q, 10000)

	first := addOffer(q, p.ID, 1500, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	addOffer(q, p.ID, 1500, time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC))

	offer, err := svc.ActiveOffer(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, offer)
	require.True(t, repo.UUIDEqual(offer.ID, first.ID))
}

func TestActiveOfferIgnoresExpiredWindows(t *testing.T) {
	q := newFakeQueries()
	svc := testService(q)
	p := seedProduct(q, 10000)

	o := addOffer(q, p.ID, 2000, time.Now())
	for i := range q.offers {
		if repo.UUIDEqual(q.offers[i].ID, o.ID) {
			q.offers[i].ToDate = dateAt(2025, 6, 10)
		}
	}

	offer, err := svc.ActiveOffer(context.Background(), p.ID)
	require.NoError(t, err)
	require.Nil(t, offer)
}

func TestPriceAppliesDiscountHalfUp(t *testing.T) {
	q := newFakeQueries()
	svc := testService(q)
	p := seedProduct(q, 999)
	addOffer(q, p.ID, 2550, time.Now())

	priced, err := svc.Price(context.Background(), p)
	require.NoError(t, err)
	require.NotNil(t, priced.Offer)
	// 999 * 0.7450 = 744.255 rounds to 744
	require.Equal(t, int64(744), priced.FinalPrice)
}

func TestPriceWithoutOfferKeepsBasePrice(t *testing.T) {
	q := newFakeQueries()
	svc := testService(q)
	p := seedProduct(q, 4200)

	priced, err := svc.Price(context.Background(), p)
	require.NoError(t, err)
	require.Nil(t, priced.Offer)
	require.Equal(t, int64(4200), priced.FinalPrice)
}

func TestCreateOfferRejectsOutOfRangeDiscount(t *testing.T) {
	q := newFakeQueries()
	svc := testService(q)
	p := seedProduct(q, 10000)

	for _, bps := range []int32{0, -5, 10000, 12000} {
		_, err := svc.CreateOffer(context.Background(), CreateOfferInput{
			ProductID:   p.ID,
			SupplierID:  p.SupplierID,
			DiscountBps: bps,
			FromDate:    time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			ToDate:      time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		})
		require.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestCreateOfferRejectsInvertedWindow(t *testing.T) {
	q := newFakeQueries()
	svc := testService(q)
	p := seedProduct(q, 10000)

	_, err := svc.CreateOffer(context.Background(), CreateOfferInput{
		ProductID:   p.ID,
		SupplierID:  p.SupplierID,
		DiscountBps: 1000,
		FromDate:    time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		ToDate:      time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateOfferRequiresOwnership(t *testing.T) {
	q := newFakeQueries()
	svc := testService(q)
	p := seedProduct(q, 10000)

	_, err := svc.CreateOffer(context.Background(), CreateOfferInput{
		ProductID:   p.ID,
		SupplierID:  repo.NewUUID(),
		DiscountBps: 1000,
		FromDate:    time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		ToDate:      time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateOfferConflictsWithExistingActive(t *testing.T) {
	q := newFakeQueries()
	svc := testService(q)
	p := seedProduct(q, 10000)
	addOffer(q, p.ID, 1000, time.Now())

	_, err := svc.CreateOffer(context.Background(), CreateOfferInput{
		ProductID:   p.ID,
		SupplierID:  p.SupplierID,
		DiscountBps: 2000,
		FromDate:    time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		ToDate:      time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, ErrActiveOfferExists)
}

func TestCreateOfferSubmitsPlatformAd(t *testing.T) {
	q := newFakeQueries()
	svc := testService(q)
	p := seedProduct(q, 10000)

	offer, err := svc.CreateOffer(context.Background(), CreateOfferInput{
		ProductID:   p.ID,
		SupplierID:  p.SupplierID,
		DiscountBps: 1500,
		FromDate:    time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		ToDate:      time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.True(t, offer.IsActive)
	require.Len(t, q.ads, 1)
	require.True(t, repo.UUIDEqual(q.ads[0].ProductID, p.ID))
	require.Contains(t, q.ads[0].Description, "15%")
	require.False(t, q.ads[0].IsApproved)
}

func TestUpdateOfferReactivationConflicts(t *testing.T) {
	q := newFakeQueries()
	svc := testService(q)
	p := seedProduct(q, 10000)

	dormant := addOffer(q, p.ID, 1000, time.Now())
	for i := range q.offers {
		if repo.UUIDEqual(q.offers[i].ID, dormant.ID) {
			q.offers[i].IsActive = false
		}
	}
	addOffer(q, p.ID, 2000, time.Now())

	_, err := svc.UpdateOffer(context.Background(), UpdateOfferInput{
		OfferID:     dormant.ID,
		SupplierID:  p.SupplierID,
		DiscountBps: 1000,
		FromDate:    time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		ToDate:      time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		IsActive:    true,
	})
	require.ErrorIs(t, err, ErrActiveOfferExists)
}
