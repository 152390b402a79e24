package supplier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/souq-labs/backend-souq/internal/events"
	"github.com/souq-labs/backend-souq/internal/repo"
)

// ErrNotFound is returned when a supplier cannot be located.
var ErrNotFound = errors.New("supplier: not found")

// Queries is the data access surface of the supplier service.
type Queries interface {
	GetSupplierByID(ctx context.Context, id pgtype.UUID) (repo.Supplier, error)
	GetStoreBySlug(ctx context.Context, slug string) (repo.Supplier, error)
	SetSupplierActive(ctx context.Context, id pgtype.UUID, active bool) (bool, error)
}

// Service manages store lifecycle. Deactivation is announced on the event
// bus; the catalog side effects run as subscribers so a failing cascade
// never blocks the flag flip itself.
type Service struct {
	Q      Queries
	Bus    *events.Bus
	Logger zerolog.Logger
}

// Profile loads the public storefront profile by slug.
func (s *Service) Profile(ctx context.Context, slug string) (repo.Supplier, error) {
	sup, err := s.Q.GetStoreBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.Supplier{}, ErrNotFound
		}
		return repo.Supplier{}, err
	}
	return sup, nil
}

// Deactivate takes a store off the platform. Existing orders are untouched;
// offers and ads are withdrawn by the deactivation cascade. Idempotent.
func (s *Service) Deactivate(ctx context.Context, id pgtype.UUID) (repo.Supplier, error) {
	sup, err := s.Q.GetSupplierByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.Supplier{}, ErrNotFound
		}
		return repo.Supplier{}, err
	}
	changed, err := s.Q.SetSupplierActive(ctx, id, false)
	if err != nil {
		return repo.Supplier{}, err
	}
	sup.IsActive = false
	if !changed {
		return sup, nil
	}
	if s.Bus != nil {
		_, err := s.Bus.Emit(ctx, events.TopicSupplierDeactivated, id, map[string]any{
			"supplier_id": repo.UUIDString(id),
			"slug":        sup.Slug,
		})
		if err != nil {
			s.Logger.Warn().Err(err).
				Str("supplier_id", repo.UUIDString(id)).
				Msg("supplier.deactivated fanout incomplete")
		}
	}
	return sup, nil
}

// Activate puts a store back on the platform. Offers and ads withdrawn at
// deactivation stay off until the merchant re-enables them.
func (s *Service) Activate(ctx context.Context, id pgtype.UUID) (repo.Supplier, error) {
	sup, err := s.Q.GetSupplierByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.Supplier{}, ErrNotFound
		}
		return repo.Supplier{}, err
	}
	if _, err := s.Q.SetSupplierActive(ctx, id, true); err != nil {
		return repo.Supplier{}, err
	}
	sup.IsActive = true
	return sup, nil
}

// CascadeQueries is what the deactivation cascade needs from the store.
type CascadeQueries interface {
	DeactivateOffersForSupplier(ctx context.Context, supplierID pgtype.UUID) (int64, error)
	DeactivateAdsForSupplier(ctx context.Context, supplierID pgtype.UUID) (int64, error)
	UnapprovePlatformAdsForSupplier(ctx context.Context, supplierID pgtype.UUID) (int64, error)
}

type deactivatedPayload struct {
	SupplierID string `json:"supplier_id"`
}

// DeactivationCascade returns the subscriber that withdraws the supplier's
// offers, banner ads, and platform ad approvals when a store is deactivated.
func DeactivationCascade(q CascadeQueries, logger zerolog.Logger) events.Subscriber {
	return events.SubscriberFunc(func(ctx context.Context, ev repo.DomainEvent) error {
		var p deactivatedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", ev.Topic, err)
		}
		supplierID, err := repo.ToUUID(p.SupplierID)
		if err != nil {
			return fmt.Errorf("decode %s supplier id: %w", ev.Topic, err)
		}
		offers, err := q.DeactivateOffersForSupplier(ctx, supplierID)
		if err != nil {
			return fmt.Errorf("deactivate offers: %w", err)
		}
		ads, err := q.DeactivateAdsForSupplier(ctx, supplierID)
		if err != nil {
			return fmt.Errorf("deactivate ads: %w", err)
		}
		platform, err := q.UnapprovePlatformAdsForSupplier(ctx, supplierID)
		if err != nil {
			return fmt.Errorf("unapprove platform ads: %w", err)
		}
		logger.Info().
			Str("supplier_id", p.SupplierID).
			Int64("offers", offers).
			Int64("ads", ads).
			Int64("platform_ads", platform).
			Msg("supplier deactivation cascade applied")
		return nil
	})
}
