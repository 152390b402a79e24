package order

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/souq-labs/backend-souq/internal/common"
	"github.com/souq-labs/backend-souq/internal/events"
	"github.com/souq-labs/backend-souq/internal/notify"
	"github.com/souq-labs/backend-souq/internal/repo"
	"github.com/souq-labs/backend-souq/internal/workflow"
)

// MerchantStores resolves the store owned by the authenticated merchant.
type MerchantStores interface {
	GetSupplierByUser(ctx context.Context, userID pgtype.UUID) (repo.Supplier, error)
}

// MerchantHandler exposes the store-side order management endpoints.
type MerchantHandler struct {
	Service  *Service
	Engine   *workflow.Engine
	Stores   MerchantStores
	Bus      *events.Bus
	Notify   *notify.Enqueuer
	Logger   zerolog.Logger
	Validate *validator.Validate
}

// NewMerchantHandler constructs a MerchantHandler with a ready validator.
func NewMerchantHandler(service *Service, engine *workflow.Engine, stores MerchantStores, bus *events.Bus, notifier *notify.Enqueuer, logger zerolog.Logger) *MerchantHandler {
	return &MerchantHandler{
		Service:  service,
		Engine:   engine,
		Stores:   stores,
		Bus:      bus,
		Notify:   notifier,
		Logger:   logger,
		Validate: validator.New(),
	}
}

// List handles GET /api/v1/merchant/orders.
func (h *MerchantHandler) List(w http.ResponseWriter, r *http.Request) {
	supplier, ok := h.resolveMerchant(w, r)
	if !ok {
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	offset := int32((page - 1) * perPage)

	orders, err := h.Service.Q.ListOrdersForSupplier(r.Context(), supplier.ID, int32(perPage), offset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	total, err := h.Service.Q.CountOrdersForSupplier(r.Context(), supplier.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	items := make([]orderListItem, 0, len(orders))
	for _, o := range orders {
		items = append(items, listItemJSON(o))
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       items,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

// Detail handles GET /api/v1/merchant/orders/{orderID}.
func (h *MerchantHandler) Detail(w http.ResponseWriter, r *http.Request) {
	supplier, ok := h.resolveMerchant(w, r)
	if !ok {
		return
	}
	o, ok := h.loadOrder(w, r, supplier)
	if !ok {
		return
	}
	detail, err := h.Service.LoadDetail(r.Context(), o)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": detailJSON(detail)})
}

type recordPaymentPayload struct {
	Amount          int64  `json:"amount" validate:"required,gt=0"`
	ReferenceNumber string `json:"reference_number" validate:"required"`
}

// RecordPayment handles POST /api/v1/merchant/orders/{orderID}/payments.
func (h *MerchantHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	supplier, ok := h.resolveMerchant(w, r)
	if !ok {
		return
	}
	o, ok := h.loadOrder(w, r, supplier)
	if !ok {
		return
	}
	var payload recordPaymentPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_JSON", "malformed request body", nil)
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "invalid payment payload", nil)
		return
	}
	recordedBy := pgtype.UUID{}
	if raw, ok := common.UserID(r.Context()); ok {
		recordedBy, _ = repo.ToUUID(raw)
	}
	payment, err := h.Service.RecordPayment(r.Context(), o, payload.Amount, payload.ReferenceNumber, recordedBy)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.emit(r.Context(), events.TopicOrderPaymentLogged, o.ID, map[string]any{
		"order_id": repo.UUIDString(o.ID),
		"amount":   payment.Amount,
	})

	fullyPaid, paid, err := h.Service.IsFullyPaid(r.Context(), o)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{
		"data": map[string]any{
			"id":          repo.UUIDString(payment.ID),
			"amount":      payment.Amount,
			"paid_amount": paid,
			"fully_paid":  fullyPaid,
		},
	})
}

// Advance handles POST /api/v1/merchant/orders/{orderID}/advance. Refusals
// come back as 200 with ok=false so storefront UIs can show the message.
func (h *MerchantHandler) Advance(w http.ResponseWriter, r *http.Request) {
	supplier, ok := h.resolveMerchant(w, r)
	if !ok {
		return
	}
	o, ok := h.loadOrder(w, r, supplier)
	if !ok {
		return
	}
	result, err := h.Engine.MoveToNext(r.Context(), o)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if result.OK {
		h.afterTransition(r.Context(), o, supplier, result)
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{"ok": result.OK, "message": result.Message},
	})
}

type overridePayload struct {
	StatusID string `json:"status_id" validate:"required,uuid4"`
}

// OverrideStatus handles POST /api/v1/merchant/orders/{orderID}/status.
// Restricted to administrators at the routing layer; skips workflow gates.
func (h *MerchantHandler) OverrideStatus(w http.ResponseWriter, r *http.Request) {
	supplier, ok := h.resolveMerchant(w, r)
	if !ok {
		return
	}
	o, ok := h.loadOrder(w, r, supplier)
	if !ok {
		return
	}
	var payload overridePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_JSON", "malformed request body", nil)
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "invalid status payload", nil)
		return
	}
	statusID, err := repo.ToUUID(payload.StatusID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "invalid status id", nil)
		return
	}
	result, err := h.Engine.Override(r.Context(), o, statusID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if result.OK {
		h.afterTransition(r.Context(), o, supplier, result)
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{"ok": result.OK, "message": result.Message},
	})
}

// Steps handles GET /api/v1/merchant/workflow.
func (h *MerchantHandler) Steps(w http.ResponseWriter, r *http.Request) {
	supplier, ok := h.resolveMerchant(w, r)
	if !ok {
		return
	}
	steps, err := h.Engine.Steps(r.Context(), supplier.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	type stepJSON struct {
		StatusID        string `json:"status_id"`
		StatusName      string `json:"status_name"`
		StatusSlug      string `json:"status_slug"`
		Priority        int32  `json:"priority"`
		RequiresPayment bool   `json:"requires_payment"`
	}
	out := make([]stepJSON, 0, len(steps))
	for _, st := range steps {
		out = append(out, stepJSON{
			StatusID:        repo.UUIDString(st.StatusID),
			StatusName:      st.StatusName,
			StatusSlug:      st.StatusSlug,
			Priority:        st.Priority,
			RequiresPayment: st.RequiresPayment,
		})
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

func (h *MerchantHandler) afterTransition(ctx context.Context, o repo.Order, supplier repo.Supplier, result workflow.Result) {
	h.emit(ctx, events.TopicOrderStatusChanged, o.ID, map[string]any{
		"order_id":    repo.UUIDString(o.ID),
		"status_id":   repo.UUIDString(result.NewStatus.ID),
		"status_slug": result.NewStatus.Slug,
	})
	if h.Notify == nil {
		return
	}
	addr, err := h.Service.Q.GetShippingAddressForOrder(ctx, o.ID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			h.Logger.Warn().Err(err).Msg("load shipping address for notification failed")
		}
		return
	}
	message := notify.CustomerStatusChanged(notify.OrderSummary{
		OrderID:    repo.UUIDString(o.ID),
		StoreName:  supplier.Name,
		StatusName: result.NewStatus.Name,
	})
	if err := h.Notify.EnqueueWhatsApp(ctx, addr.Phone, message); err != nil {
		h.Logger.Warn().Err(err).Msg("enqueue status notification failed")
	}
}

func (h *MerchantHandler) emit(ctx context.Context, topic string, aggregateID pgtype.UUID, payload any) {
	if h.Bus == nil {
		return
	}
	if _, err := h.Bus.Emit(ctx, topic, aggregateID, payload); err != nil {
		h.Logger.Warn().Err(err).Str("topic", topic).Msg("emit event failed")
	}
}

func (h *MerchantHandler) loadOrder(w http.ResponseWriter, r *http.Request, supplier repo.Supplier) (repo.Order, bool) {
	orderID, err := repo.ToUUID(chi.URLParam(r, "orderID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "invalid order id", nil)
		return repo.Order{}, false
	}
	o, err := h.Service.ForSupplier(r.Context(), orderID, supplier.ID)
	if err != nil {
		h.writeError(w, err)
		return repo.Order{}, false
	}
	return o, true
}

func (h *MerchantHandler) resolveMerchant(w http.ResponseWriter, r *http.Request) (repo.Supplier, bool) {
	raw, ok := common.UserID(r.Context())
	if !ok || raw == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return repo.Supplier{}, false
	}
	userID, err := repo.ToUUID(raw)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return repo.Supplier{}, false
	}
	supplier, err := h.Stores.GetSupplierByUser(r.Context(), userID)
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

func (h *MerchantHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", err.Error(), nil)
	default:
		h.Logger.Error().Err(err).Msg("merchant order request failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
