package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/pricing"
)

// qrSize is the edge length in pixels of tracking QR codes.
const qrSize = 256

type placeOrderResponse struct {
	TrackingID string `json:"trackingId"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type noteRequest struct {
	Text string `json:"text"`
}

// PlaceOrder validates and persists a new order, answering with its
// tracking identifier.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var p order.Payload
	if !decode(w, r, &p) {
		return
	}

	o, err := h.orders.Place(r.Context(), p)
	if err != nil {
		h.rejectOrder(w, r, "place", err)
		return
	}
	h.metrics.orderPlaced(r.Context(), o)
	zctx.From(r.Context()).Info("Order placed",
		zap.String("order_id", o.ID),
		zap.String("tracking_id", o.TrackingID),
		zap.String("total", o.Total.String()),
	)
	writeJSON(w, http.StatusCreated, placeOrderResponse{TrackingID: o.TrackingID})
}

// TrackOrder returns an order by its customer-facing tracking identifier.
func (h *Handler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Track(r.Context(), r.PathValue("trackingId"))
	if err != nil {
		h.rejectOrder(w, r, "track", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// TrackingQR renders a PNG QR code pointing at the tracking page of an
// existing order.
func (h *Handler) TrackingQR(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Track(r.Context(), r.PathValue("trackingId"))
	if err != nil {
		h.rejectOrder(w, r, "track", err)
		return
	}
	png, err := qrcode.Encode(h.trackingURL(o.TrackingID), qrcode.Medium, qrSize)
	if err != nil {
		writeInternal(w, r, errors.Wrap(err, "encode qr"))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// GetOrder returns the full order for staff.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.rejectOrder(w, r, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// ListOrders returns recent orders, optionally filtered by ?status=.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := order.Filter{}
	if s := q.Get("status"); s != "" {
		st, err := order.ParseStatus(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.Status = st
	}
	for name, dst := range map[string]*int{"limit": &f.Limit, "offset": &f.Offset} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid "+name)
			return
		}
		*dst = n
	}

	orders, err := h.orders.List(r.Context(), f)
	if err != nil {
		h.rejectOrder(w, r, "list", err)
		return
	}
	if orders == nil {
		orders = []order.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

// UpdateStatus applies a staff-requested status change after the store has
// re-validated it against the status machine.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decode(w, r, &req) {
		return
	}
	st, err := order.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), r.PathValue("id"), st)
	if err != nil {
		h.rejectOrder(w, r, "update_status", err)
		return
	}
	h.metrics.statusChanged(r.Context(), o.Status)
	zctx.From(r.Context()).Info("Order status changed",
		zap.String("order_id", o.ID),
		zap.String("status", string(o.Status)),
	)
	writeJSON(w, http.StatusOK, o)
}

// AppendNote adds a staff note to an order.
func (h *Handler) AppendNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if !decode(w, r, &req) {
		return
	}
	o, err := h.orders.AppendNote(r.Context(), r.PathValue("id"), req.Text)
	if err != nil {
		h.rejectOrder(w, r, "append_note", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) trackingURL(id string) string {
	if h.trackingBaseURL == "" {
		return id
	}
	return h.trackingBaseURL + "/" + id
}

// rejectOrder writes the response for a failed order operation and counts
// client-caused rejections.
func (h *Handler) rejectOrder(w http.ResponseWriter, r *http.Request, op string, err error) {
	code, reason := mapOrderError(err)
	if code == http.StatusInternalServerError {
		writeInternal(w, r, err)
		return
	}
	if code != http.StatusNotFound {
		h.metrics.orderRejected(r.Context(), op, reason)
	}
	writeError(w, code, err.Error())
}

// mapOrderError converts domain errors to an HTTP status and a short reason
// used as a metric attribute.
func mapOrderError(err error) (int, string) {
	var ve *order.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ve.Code
	}

	switch {
	case errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, order.ErrIllegalTransition):
		return http.StatusConflict, "illegal_transition"
	case errors.Is(err, order.ErrStatusConflict):
		return http.StatusConflict, "status_conflict"
	case errors.Is(err, order.ErrUnknownStatus):
		return http.StatusBadRequest, "unknown_status"
	case errors.Is(err, order.ErrEmptyNote):
		return http.StatusBadRequest, "empty_note"
	case errors.Is(err, pricing.ErrUnknownDistrict), errors.Is(err, pricing.ErrDistrictRequired):
		return http.StatusBadRequest, "district"
	}

	var (
		pnf *order.ProductNotFoundError
		pm  *order.PriceMismatchError
		oos *order.OutOfStockError
		tm  *order.TotalsMismatchError
	)
	switch {
	case errors.As(err, &pnf):
		return http.StatusUnprocessableEntity, "product_not_found"
	case errors.As(err, &pm):
		return http.StatusUnprocessableEntity, "price_mismatch"
	case errors.As(err, &oos):
		return http.StatusUnprocessableEntity, "out_of_stock"
	case errors.As(err, &tm):
		return http.StatusUnprocessableEntity, "totals_mismatch"
	}
	return http.StatusInternalServerError, "internal"
}
