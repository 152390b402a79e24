package supplier

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/souq-labs/backend-souq/internal/common"
	"github.com/souq-labs/backend-souq/internal/repo"
	"github.com/souq-labs/backend-souq/internal/tenant"
)

// Handler exposes store profile and lifecycle endpoints.
type Handler struct {
	Service *Service
	Logger  zerolog.Logger
}

type storeView struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Slug           string   `json:"slug"`
	Phone          string   `json:"phone"`
	City           string   `json:"city"`
	Country        string   `json:"country"`
	CurrencyCode   string   `json:"currency_code"`
	CurrencySymbol string   `json:"currency_symbol"`
	DeliveryFees   bool     `json:"delivery_fees"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	IsActive       bool     `json:"is_active"`
}

func viewOf(s repo.Supplier) storeView {
	v := storeView{
		ID:             repo.UUIDString(s.ID),
		Name:           s.Name,
		Slug:           s.Slug,
		Phone:          s.Phone,
		City:           s.City,
		Country:        s.Country,
		CurrencyCode:   s.CurrencyCode,
		CurrencySymbol: s.CurrencySymbol,
		DeliveryFees:   s.EnableDeliveryFees,
		IsActive:       s.IsActive,
	}
	if s.Latitude.Valid {
		v.Latitude = &s.Latitude.Float64
	}
	if s.Longitude.Valid {
		v.Longitude = &s.Longitude.Float64
	}
	return v
}

// Profile handles GET /api/v1/store for the resolved tenant.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	slug, ok := tenant.From(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "STORE_REQUIRED", "store could not be resolved", nil)
		return
	}
	sup, err := h.Service.Profile(r.Context(), slug)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !sup.IsActive {
		common.JSONError(w, http.StatusNotFound, "STORE_NOT_FOUND", "store not found", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": viewOf(sup)})
}

// Deactivate handles POST /api/v1/admin/suppliers/{id}/deactivate.
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

// Activate handles POST /api/v1/admin/suppliers/{id}/activate.
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, err := repo.ToUUID(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "invalid supplier id", nil)
		return
	}
	var sup repo.Supplier
	if active {
		sup, err = h.Service.Activate(r.Context(), id)
	} else {
		sup, err = h.Service.Deactivate(r.Context(), id)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": viewOf(sup)})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "STORE_NOT_FOUND", "store not found", nil)
	default:
		h.Logger.Error().Err(err).Msg("supplier request failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
