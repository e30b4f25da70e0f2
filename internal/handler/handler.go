// Package handler serves the order store REST API.
package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// maxBodyBytes bounds request bodies. An order with images refs and notes
// stays far below it.
const maxBodyBytes = 1 << 20

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// TrackingBaseURL is joined with a tracking ID to form the public tracking
	// page encoded in QR codes. When empty the bare tracking ID is encoded.
	TrackingBaseURL string
	// ImageBaseURL is prepended to relative product image paths.
	ImageBaseURL string
}

// Handler serves orders, catalog and pricing endpoints.
type Handler struct {
	products        product.Repository
	orders          *order.Service
	builder         *order.Builder
	metrics         *metrics
	trackingBaseURL string
	imageBaseURL    string
}

// NewHandler constructs a Handler. A nil meter disables metrics.
func NewHandler(
	cfg HandlerConfig,
	products product.Repository,
	orders *order.Service,
	builder *order.Builder,
	meter metric.Meter,
) (*Handler, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("")
	}
	m, err := newMetrics(meter)
	if err != nil {
		return nil, errors.Wrap(err, "metrics")
	}
	return &Handler{
		products:        products,
		orders:          orders,
		builder:         builder,
		metrics:         m,
		trackingBaseURL: strings.TrimRight(cfg.TrackingBaseURL, "/"),
		imageBaseURL:    strings.TrimRight(cfg.ImageBaseURL, "/"),
	}, nil
}

// Register mounts the API on mux. Staff routes are wrapped with admin.
func (h *Handler) Register(mux *http.ServeMux, admin httpmiddleware.Middleware) {
	mux.HandleFunc("POST /api/orders", h.PlaceOrder)
	mux.HandleFunc("GET /api/orders/track/{trackingId}", h.TrackOrder)
	mux.HandleFunc("GET /api/orders/track/{trackingId}/qr", h.TrackingQR)

	mux.Handle("GET /api/orders", admin(http.HandlerFunc(h.ListOrders)))
	mux.Handle("GET /api/orders/{id}", admin(http.HandlerFunc(h.GetOrder)))
	mux.Handle("PATCH /api/orders/{id}/status", admin(http.HandlerFunc(h.UpdateStatus)))
	mux.Handle("POST /api/orders/{id}/notes", admin(http.HandlerFunc(h.AppendNote)))

	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)
	mux.HandleFunc("GET /api/regions", h.ListRegions)
	mux.HandleFunc("POST /api/quote", h.Quote)
}

// apiError is the error body of every non-2xx response.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, apiError{Code: code, Message: message})
}

// writeInternal logs err with the request logger and hides it from the client.
func writeInternal(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}
