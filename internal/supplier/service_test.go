package supplier

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/souq-labs/backend-souq/internal/events"
	"github.com/souq-labs/backend-souq/internal/repo"
)

type fakeStore struct {
	suppliers map[pgtype.UUID]repo.Supplier

	events []repo.DomainEvent

	offersDeactivated   []pgtype.UUID
	adsDeactivated      []pgtype.UUID
	platformUnapproved  []pgtype.UUID
	cascadeOfferCount   int64
	cascadeAdCount      int64
	cascadePlatformHits int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{suppliers: map[pgtype.UUID]repo.Supplier{}}
}

func (f *fakeStore) GetSupplierByID(_ context.Context, id pgtype.UUID) (repo.Supplier, error) {
	s, ok := f.suppliers[id]
	if !ok {
		return repo.Supplier{}, pgx.ErrNoRows
	}
	return s, nil
}

func (f *fakeStore) GetStoreBySlug(_ context.Context, slug string) (repo.Supplier, error) {
	for _, s := range f.suppliers {
		if s.Slug == slug {
			return s, nil
		}
	}
	return repo.Supplier{}, pgx.ErrNoRows
}

func (f *fakeStore) SetSupplierActive(_ context.Context, id pgtype.UUID, active bool) (bool, error) {
	s, ok := f.suppliers[id]
	if !ok || s.IsActive == active {
		return false, nil
	}
	s.IsActive = active
	f.suppliers[id] = s
	return true, nil
}

func (f *fakeStore) InsertDomainEvent(_ context.Context, topic string, aggregateID pgtype.UUID, payload []byte) (repo.DomainEvent, error) {
	ev := repo.DomainEvent{ID: repo.NewUUID(), Topic: topic, AggregateID: aggregateID, Payload: payload}
	f.events = append(f.events, ev)
	return ev, nil
}

func (f *fakeStore) DeactivateOffersForSupplier(_ context.Context, supplierID pgtype.UUID) (int64, error) {
	f.offersDeactivated = append(f.offersDeactivated, supplierID)
	return f.cascadeOfferCount, nil
}

func (f *fakeStore) DeactivateAdsForSupplier(_ context.Context, supplierID pgtype.UUID) (int64, error) {
	f.adsDeactivated = append(f.adsDeactivated, supplierID)
	return f.cascadeAdCount, nil
}

func (f *fakeStore) UnapprovePlatformAdsForSupplier(_ context.Context, supplierID pgtype.UUID) (int64, error) {
	f.platformUnapproved = append(f.platformUnapproved, supplierID)
	return f.cascadePlatformHits, nil
}

func (f *fakeStore) seed(active bool) repo.Supplier {
	s := repo.Supplier{
		ID:       repo.NewUUID(),
		Name:     "Bab al-Yemen Store",
		Slug:     "bab-al-yemen",
		IsActive: active,
	}
	f.suppliers[s.ID] = s
	return s
}

func wired(f *fakeStore) *Service {
	bus := &events.Bus{Store: f}
	bus.Subscribe(events.TopicSupplierDeactivated, DeactivationCascade(f, zerolog.Nop()))
	return &Service{Q: f, Bus: bus, Logger: zerolog.Nop()}
}

func TestDeactivateCascades(t *testing.T) {
	f := newFakeStore()
	f.cascadeOfferCount = 3
	f.cascadeAdCount = 1
	svc := wired(f)
	sup := f.seed(true)

	got, err := svc.Deactivate(context.Background(), sup.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)
	require.False(t, f.suppliers[sup.ID].IsActive)

	require.Len(t, f.events, 1)
	require.Equal(t, events.TopicSupplierDeactivated, f.events[0].Topic)

	require.Equal(t, []pgtype.UUID{sup.ID}, f.offersDeactivated)
	require.Equal(t, []pgtype.UUID{sup.ID}, f.adsDeactivated)
	require.Equal(t, []pgtype.UUID{sup.ID}, f.platformUnapproved)
}

func TestDeactivateIdempotent(t *testing.T) {
	f := newFakeStore()
	svc := wired(f)
	sup := f.seed(false)

	got, err := svc.Deactivate(context.Background(), sup.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)

	// already inactive: no event, no cascade
	require.Empty(t, f.events)
	require.Empty(t, f.offersDeactivated)
}

func TestDeactivateUnknownSupplier(t *testing.T) {
	f := newFakeStore()
	svc := wired(f)

	_, err := svc.Deactivate(context.Background(), repo.NewUUID())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestActivateLeavesOffersWithdrawn(t *testing.T) {
	f := newFakeStore()
	svc := wired(f)
	sup := f.seed(false)

	got, err := svc.Activate(context.Background(), sup.ID)
	require.NoError(t, err)
	require.True(t, got.IsActive)
	require.Empty(t, f.events)
	require.Empty(t, f.offersDeactivated)
}

func TestProfileBySlug(t *testing.T) {
	f := newFakeStore()
	svc := wired(f)
	sup := f.seed(true)

	got, err := svc.Profile(context.Background(), sup.Slug)
	require.NoError(t, err)
	require.Equal(t, sup.ID, got.ID)

	_, err = svc.Profile(context.Background(), "missing-store")
	require.ErrorIs(t, err, ErrNotFound)
}
