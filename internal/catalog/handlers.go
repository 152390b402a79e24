package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/souq-labs/backend-souq/internal/common"
	"github.com/souq-labs/backend-souq/internal/repo"
	"github.com/souq-labs/backend-souq/internal/tenant"
)

const dateLayout = "2006-01-02"

// Stores resolves suppliers for storefront and merchant requests.
type Stores interface {
	GetStoreBySlug(ctx context.Context, slug string) (repo.Supplier, error)
	GetSupplierByUser(ctx context.Context, userID pgtype.UUID) (repo.Supplier, error)
}

// Handler exposes storefront catalog and merchant offer endpoints.
type Handler struct {
	Service  *Service
	Stores   Stores
	Logger   zerolog.Logger
	Validate *validator.Validate
}

// NewHandler constructs a Handler with a ready validator.
func NewHandler(service *Service, stores Stores, logger zerolog.Logger) *Handler {
	return &Handler{
		Service:  service,
		Stores:   stores,
		Logger:   logger,
		Validate: validator.New(),
	}
}

type productView struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	Price          int64  `json:"price"`
	FinalPrice     int64  `json:"final_price"`
	DiscountBps    int32  `json:"discount_bps,omitempty"`
	OfferEndsAt    string `json:"offer_ends_at,omitempty"`
	Stock          int32  `json:"stock"`
	CurrencyCode   string `json:"currency_code"`
	CurrencySymbol string `json:"currency_symbol"`
}

func toProductView(p PricedProduct, store repo.Supplier) productView {
	view := productView{
		ID:             repo.UUIDString(p.Product.ID),
		Name:           p.Product.Name,
		Description:    p.Product.Description,
		Price:          p.Product.Price,
		FinalPrice:     p.FinalPrice,
		Stock:          p.Product.Stock,
		CurrencyCode:   store.CurrencyCode,
		CurrencySymbol: store.CurrencySymbol,
	}
	if p.Offer != nil {
		view.DiscountBps = p.Offer.DiscountBps
		if p.Offer.ToDate.Valid {
			view.OfferEndsAt = p.Offer.ToDate.Time.Format(dateLayout)
		}
	}
	return view
}

// Products handles GET /api/v1/products for the resolved store.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	store, ok := h.resolveStore(w, r)
	if !ok {
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	offset := int32((page - 1) * perPage)
	items, total, err := h.Service.ListStoreProducts(r.Context(), store.ID, int32(perPage), offset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	views := make([]productView, 0, len(items))
	for _, item := range items {
		views = append(views, toProductView(item, store))
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       views,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

// ProductDetail handles GET /api/v1/products/{productID}.
func (h *Handler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	store, ok := h.resolveStore(w, r)
	if !ok {
		return
	}
	productID, err := repo.ToUUID(chi.URLParam(r, "productID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "invalid product id", nil)
		return
	}
	priced, err := h.Service.GetStoreProduct(r.Context(), productID, store.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toProductView(priced, store)})
}

type offerPayload struct {
	ProductID   string `json:"product_id" validate:"required,uuid4"`
	DiscountBps int32  `json:"discount_bps" validate:"required,gt=0,lt=10000"`
	FromDate    string `json:"from_date" validate:"required"`
	ToDate      string `json:"to_date" validate:"required"`
	IsActive    *bool  `json:"is_active"`
}

type offerView struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	DiscountBps int32  `json:"discount_bps"`
	FromDate    string `json:"from_date"`
	ToDate      string `json:"to_date"`
	IsActive    bool   `json:"is_active"`
}

func toOfferView(o repo.ProductOffer) offerView {
	view := offerView{
		ID:          repo.UUIDString(o.ID),
		ProductID:   repo.UUIDString(o.ProductID),
		DiscountBps: o.DiscountBps,
		IsActive:    o.IsActive,
	}
	if o.FromDate.Valid {
		view.FromDate = o.FromDate.Time.Format(dateLayout)
	}
	if o.ToDate.Valid {
		view.ToDate = o.ToDate.Time.Format(dateLayout)
	}
	return view
}

// CreateOffer handles POST /api/v1/merchant/offers.
func (h *Handler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	supplier, ok := h.resolveMerchant(w, r)
	if !ok {
		return
	}
	payload, from, to, ok := h.decodeOfferPayload(w, r)
	if !ok {
		return
	}
	productID, err := repo.ToUUID(payload.ProductID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "invalid product id", nil)
		return
	}
	userID, _ := common.UserID(r.Context())
	createdBy, _ := repo.ToUUID(userID)

	offer, err := h.Service.CreateOffer(r.Context(), CreateOfferInput{
		ProductID:   productID,
		SupplierID:  supplier.ID,
		DiscountBps: payload.DiscountBps,
		FromDate:    from,
		ToDate:      to,
		CreatedBy:   createdBy,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": toOfferView(offer)})
}

// UpdateOffer handles PATCH /api/v1/merchant/offers/{offerID}.
func (h *Handler) UpdateOffer(w http.ResponseWriter, r *http.Request) {
	supplier, ok := h.resolveMerchant(w, r)
	if !ok {
		return
	}
	offerID, err := repo.ToUUID(chi.URLParam(r, "offerID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "invalid offer id", nil)
		return
	}
	payload, from, to, ok := h.decodeOfferPayload(w, r)
	if !ok {
		return
	}
	active := true
	if payload.IsActive != nil {
		active = *payload.IsActive
	}
	offer, err := h.Service.UpdateOffer(r.Context(), UpdateOfferInput{
		OfferID:     offerID,
		SupplierID:  supplier.ID,
		DiscountBps: payload.DiscountBps,
		FromDate:    from,
		ToDate:      to,
		IsActive:    active,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toOfferView(offer)})
}

func (h *Handler) decodeOfferPayload(w http.ResponseWriter, r *http.Request) (offerPayload, time.Time, time.Time, bool) {
	var payload offerPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_JSON", "malformed request body", nil)
		return payload, time.Time{}, time.Time{}, false
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "invalid offer payload", validationDetails(err))
		return payload, time.Time{}, time.Time{}, false
	}
	from, err := time.Parse(dateLayout, payload.FromDate)
	if err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "from_date must be YYYY-MM-DD", nil)
		return payload, time.Time{}, time.Time{}, false
	}
	to, err := time.Parse(dateLayout, payload.ToDate)
	if err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "to_date must be YYYY-MM-DD", nil)
		return payload, time.Time{}, time.Time{}, false
	}
	return payload, from, to, true
}

func (h *Handler) resolveStore(w http.ResponseWriter, r *http.Request) (repo.Supplier, bool) {
	slug, ok := tenant.From(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "STORE_REQUIRED", "store could not be resolved", nil)
		return repo.Supplier{}, false
	}
	store, err := h.Stores.GetStoreBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "STORE_NOT_FOUND", "store not found", nil)
			return repo.Supplier{}, false
		}
		h.writeError(w, err)
		return repo.Supplier{}, false
	}
	if !store.IsActive {
		common.JSONError(w, http.StatusNotFound, "STORE_NOT_FOUND", "store not found", nil)
		return repo.Supplier{}, false
	}
	return store, true
}

func (h *Handler) resolveMerchant(w http.ResponseWriter, r *http.Request) (repo.Supplier, bool) {
	userID, ok := common.UserID(r.Context())
	if !ok || userID == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return repo.Supplier{}, false
	}
	uid, err := repo.ToUUID(userID)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return repo.Supplier{}, false
	}
	supplier, err := h.Stores.GetSupplierByUser(r.Context(), uid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "no store attached to this account", nil)
			return repo.Supplier{}, false
		}
		h.writeError(w, err)
		return repo.Supplier{}, false
	}
	return supplier, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "resource not found", nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", err.Error(), nil)
	case errors.Is(err, ErrActiveOfferExists):
		common.JSONError(w, http.StatusConflict, "OFFER_CONFLICT", "product already has an active offer", nil)
	default:
		h.Logger.Error().Err(err).Msg("catalog request failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}

func validationDetails(err error) any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return fields
}
