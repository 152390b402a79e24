package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/souq-labs/backend-souq/internal/common"
	"github.com/souq-labs/backend-souq/internal/repo"
	"github.com/souq-labs/backend-souq/internal/tenant"
)

// Stores resolves the storefront supplier for checkout requests.
type Stores interface {
	GetStoreBySlug(ctx context.Context, slug string) (repo.Supplier, error)
}

// Handler exposes the checkout endpoint.
type Handler struct {
	Service  *Service
	Stores   Stores
	Logger   zerolog.Logger
	Validate *validator.Validate
}

// NewHandler constructs a Handler with a ready validator.
func NewHandler(service *Service, stores Stores, logger zerolog.Logger) *Handler {
	return &Handler{Service: service, Stores: stores, Logger: logger, Validate: validator.New()}
}

type addressPayload struct {
	Phone        string   `json:"phone" validate:"required"`
	AddressLine1 string   `json:"address_line1" validate:"required"`
	AddressLine2 string   `json:"address_line2"`
	City         string   `json:"city" validate:"required"`
	Country      string   `json:"country"`
	PostalCode   string   `json:"postal_code"`
	Latitude     *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude    *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
}

type checkoutPayload struct {
	Notes   string          `json:"notes"`
	Address *addressPayload `json:"address"`
}

// Checkout handles POST /api/v1/checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	raw, ok := common.UserID(r.Context())
	if !ok || raw == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return
	}
	userID, err := repo.ToUUID(raw)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return
	}
	slug, ok := tenant.From(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "STORE_REQUIRED", "store could not be resolved", nil)
		return
	}
	supplier, err := h.Stores.GetStoreBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "STORE_NOT_FOUND", "store not found", nil)
			return
		}
		h.writeError(w, err)
		return
	}

	var payload checkoutPayload
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "INVALID_JSON", "malformed request body", nil)
			return
		}
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "invalid checkout payload", nil)
		return
	}

	in := Input{UserID: userID, Supplier: supplier, Notes: payload.Notes}
	if payload.Address != nil {
		in.Address = &AddressInput{
			Phone:        payload.Address.Phone,
			AddressLine1: payload.Address.AddressLine1,
			AddressLine2: payload.Address.AddressLine2,
			City:         payload.Address.City,
			Country:      payload.Address.Country,
			PostalCode:   payload.Address.PostalCode,
			Latitude:     payload.Address.Latitude,
			Longitude:    payload.Address.Longitude,
		}
	}

	res, err := h.Service.Checkout(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{
		"data": map[string]any{
			"order_id":      repo.UUIDString(res.Order.ID),
			"item_count":    res.ItemCount,
			"items_total":   res.ItemsTotal,
			"delivery_fee":  res.DeliveryFee,
			"total_amount":  res.Total,
			"currency_code": res.Order.CurrencyCode,
		},
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusUnprocessableEntity, "EMPTY_CART", "cart has no purchasable items", nil)
	case errors.Is(err, ErrNoAddress):
		common.JSONError(w, http.StatusUnprocessableEntity, "NO_ADDRESS", "no delivery address on file; provide one", nil)
	case errors.Is(err, ErrOutOfStock):
		common.JSONError(w, http.StatusConflict, "OUT_OF_STOCK", err.Error(), nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", err.Error(), nil)
	default:
		h.Logger.Error().Err(err).Msg("checkout failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
