package cart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/souq-labs/backend-souq/internal/common"
	"github.com/souq-labs/backend-souq/internal/repo"
	"github.com/souq-labs/backend-souq/internal/tenant"
)

// Stores resolves the storefront supplier for cart requests.
type Stores interface {
	GetStoreBySlug(ctx context.Context, slug string) (repo.Supplier, error)
}

// Handler exposes the authenticated cart endpoints.
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

type itemJSON struct {
	ID             string `json:"id"`
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	Qty            int32  `json:"qty"`
	UnitPrice      int64  `json:"unit_price"`
	DiscountedUnit int64  `json:"discounted_unit_price"`
	DiscountBps    int32  `json:"discount_bps,omitempty"`
	Subtotal       int64  `json:"subtotal"`
	Available      bool   `json:"available"`
}

func cartJSON(v View) map[string]any {
	items := make([]itemJSON, 0, len(v.Items))
	for _, it := range v.Items {
		items = append(items, itemJSON{
			ID:             repo.UUIDString(it.ID),
			ProductID:      repo.UUIDString(it.ProductID),
			Name:           it.ProductName,
			Qty:            it.Qty,
			UnitPrice:      it.UnitPrice,
			DiscountedUnit: it.DiscountedUnit,
			DiscountBps:    it.DiscountBps,
			Subtotal:       it.Subtotal,
			Available:      it.Available,
		})
	}
	return map[string]any{
		"id":         repo.UUIDString(v.Cart.ID),
		"items":      items,
		"item_count": v.Summary.ItemCount,
		"gross":      v.Summary.Gross,
		"discount":   v.Summary.Discount,
		"total":      v.Summary.Discounted,
	}
}

// Get handles GET /api/v1/cart.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, store, ok := h.resolve(w, r)
	if !ok {
		return
	}
	view, err := h.Service.Summary(r.Context(), userID, store.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": cartJSON(view)})
}

type addItemPayload struct {
	ProductID string `json:"product_id" validate:"required,uuid4"`
	Qty       int32  `json:"qty" validate:"required,gte=1"`
}

// AddItem handles POST /api/v1/cart/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, store, ok := h.resolve(w, r)
	if !ok {
		return
	}
	var payload addItemPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_JSON", "malformed request body", nil)
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "invalid cart payload", nil)
		return
	}
	productID, err := repo.ToUUID(payload.ProductID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "invalid product id", nil)
		return
	}
	if _, err := h.Service.AddItem(r.Context(), userID, store.ID, productID, payload.Qty); err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.Service.Summary(r.Context(), userID, store.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": cartJSON(view)})
}

// IncrementItem handles POST /api/v1/cart/items/{itemID}/increment.
func (h *Handler) IncrementItem(w http.ResponseWriter, r *http.Request) {
	h.adjustItem(w, r, h.Service.IncrementItem)
}

// DecrementItem handles POST /api/v1/cart/items/{itemID}/decrement.
func (h *Handler) DecrementItem(w http.ResponseWriter, r *http.Request) {
	h.adjustItem(w, r, h.Service.DecrementItem)
}

func (h *Handler) adjustItem(w http.ResponseWriter, r *http.Request, fn func(context.Context, pgtype.UUID, pgtype.UUID, pgtype.UUID) (int32, error)) {
	userID, store, ok := h.resolve(w, r)
	if !ok {
		return
	}
	itemID, err := repo.ToUUID(chi.URLParam(r, "itemID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "invalid item id", nil)
		return
	}
	if _, err := fn(r.Context(), userID, store.ID, itemID); err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.Service.Summary(r.Context(), userID, store.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": cartJSON(view)})
}

// RemoveItem handles DELETE /api/v1/cart/items/{itemID}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, store, ok := h.resolve(w, r)
	if !ok {
		return
	}
	itemID, err := repo.ToUUID(chi.URLParam(r, "itemID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "invalid item id", nil)
		return
	}
	if err := h.Service.RemoveItem(r.Context(), userID, store.ID, itemID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Clear handles DELETE /api/v1/cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, store, ok := h.resolve(w, r)
	if !ok {
		return
	}
	if err := h.Service.Clear(r.Context(), userID, store.ID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (pgtype.UUID, repo.Supplier, bool) {
	raw, ok := common.UserID(r.Context())
	if !ok || raw == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return pgtype.UUID{}, repo.Supplier{}, false
	}
	userID, err := repo.ToUUID(raw)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return pgtype.UUID{}, repo.Supplier{}, false
	}
	slug, ok := tenant.From(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "STORE_REQUIRED", "store could not be resolved", nil)
		return pgtype.UUID{}, repo.Supplier{}, false
	}
	store, err := h.Stores.GetStoreBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "STORE_NOT_FOUND", "store not found", nil)
			return pgtype.UUID{}, repo.Supplier{}, false
		}
		h.writeError(w, err)
		return pgtype.UUID{}, repo.Supplier{}, false
	}
	if !store.IsActive {
		common.JSONError(w, http.StatusNotFound, "STORE_NOT_FOUND", "store not found", nil)
		return pgtype.UUID{}, repo.Supplier{}, false
	}
	return userID, store, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "resource not found", nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", err.Error(), nil)
	default:
		h.Logger.Error().Err(err).Msg("cart request failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
