package order

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/souq-labs/backend-souq/internal/common"
	"github.com/souq-labs/backend-souq/internal/repo"
)

// Handler exposes the customer-facing order endpoints.
type Handler struct {
	Service *Service
	Logger  zerolog.Logger
}

type orderListItem struct {
	ID           string `json:"id"`
	TotalAmount  int64  `json:"total_amount"`
	CurrencyCode string `json:"currency_code"`
	StatusID     string `json:"status_id,omitempty"`
	CreatedAt    string `json:"created_at"`
}

type itemJSON struct {
	ID             string `json:"id"`
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	Qty            int32  `json:"qty"`
	UnitPrice      int64  `json:"unit_price"`
	GrossUnitPrice int64  `json:"gross_unit_price"`
	Subtotal       int64  `json:"subtotal"`
}

type paymentJSON struct {
	ID              string `json:"id"`
	Amount          int64  `json:"amount"`
	ReferenceNumber string `json:"reference_number"`
	CreatedAt       string `json:"created_at"`
}

type addressJSON struct {
	Phone        string   `json:"phone"`
	AddressLine1 string   `json:"address_line1"`
	AddressLine2 string   `json:"address_line2,omitempty"`
	City         string   `json:"city"`
	Country      string   `json:"country"`
	PostalCode   string   `json:"postal_code,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
}

func listItemJSON(o repo.Order) orderListItem {
	item := orderListItem{
		ID:           repo.UUIDString(o.ID),
		TotalAmount:  o.TotalAmount,
		CurrencyCode: o.CurrencyCode,
	}
	if o.StatusID.Valid {
		item.StatusID = repo.UUIDString(o.StatusID)
	}
	if o.CreatedAt.Valid {
		item.CreatedAt = o.CreatedAt.Time.Format("2006-01-02T15:04:05Z07:00")
	}
	return item
}

func detailJSON(d Detail) map[string]any {
	items := make([]itemJSON, 0, len(d.Items))
	for _, it := range d.Items {
		items = append(items, itemJSON{
			ID:             repo.UUIDString(it.ID),
			ProductID:      repo.UUIDString(it.ProductID),
			Name:           it.Name,
			Qty:            it.Qty,
			UnitPrice:      it.UnitPrice,
			GrossUnitPrice: it.GrossUnitPrice,
			Subtotal:       it.Subtotal,
		})
	}
	payments := make([]paymentJSON, 0, len(d.Payments))
	for _, p := range d.Payments {
		pj := paymentJSON{
			ID:              repo.UUIDString(p.ID),
			Amount:          p.Amount,
			ReferenceNumber: p.ReferenceNumber,
		}
		if p.CreatedAt.Valid {
			pj.CreatedAt = p.CreatedAt.Time.Format("2006-01-02T15:04:05Z07:00")
		}
		payments = append(payments, pj)
	}

	body := map[string]any{
		"id":            repo.UUIDString(d.Order.ID),
		"total_amount":  d.Order.TotalAmount,
		"gross_total":   d.GrossTotal,
		"currency_code": d.Order.CurrencyCode,
		"items":         items,
		"payments":      payments,
		"paid_amount":   d.PaidAmount,
		"fully_paid":    d.FullyPaid,
	}
	if d.Order.Notes.Valid {
		body["notes"] = d.Order.Notes.String
	}
	if d.Status.ID.Valid {
		body["status"] = map[string]any{
			"id":   repo.UUIDString(d.Status.ID),
			"name": d.Status.Name,
			"slug": d.Status.Slug,
		}
	}
	if d.Address != nil {
		aj := addressJSON{
			Phone:        d.Address.Phone,
			AddressLine1: d.Address.AddressLine1,
			City:         d.Address.City,
			Country:      d.Address.Country,
		}
		if d.Address.AddressLine2.Valid {
			aj.AddressLine2 = d.Address.AddressLine2.String
		}
		if d.Address.PostalCode.Valid {
			aj.PostalCode = d.Address.PostalCode.String
		}
		if d.Address.Latitude.Valid {
			lat := d.Address.Latitude.Float64
			aj.Latitude = &lat
		}
		if d.Address.Longitude.Valid {
			lon := d.Address.Longitude.Float64
			aj.Longitude = &lon
		}
		body["shipping_address"] = aj
	}
	return body
}

// List handles GET /api/v1/orders.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	offset := int32((page - 1) * perPage)

	orders, err := h.Service.Q.ListOrdersForUser(r.Context(), userID, int32(perPage), offset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	total, err := h.Service.Q.CountOrdersForUser(r.Context(), userID)
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

// Detail handles GET /api/v1/orders/{orderID}.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	orderID, err := repo.ToUUID(chi.URLParam(r, "orderID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "invalid order id", nil)
		return
	}
	o, err := h.Service.ForUser(r.Context(), orderID, userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	detail, err := h.Service.LoadDetail(r.Context(), o)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": detailJSON(detail)})
}

func authedUser(w http.ResponseWriter, r *http.Request) (pgtype.UUID, bool) {
	raw, ok := common.UserID(r.Context())
	if !ok || raw == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return pgtype.UUID{}, false
	}
	userID, err := repo.ToUUID(raw)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return pgtype.UUID{}, false
	}
	return userID, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", err.Error(), nil)
	default:
		h.Logger.Error().Err(err).Msg("order request failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
