package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/pricing"
	"github.com/xenking/storefront/internal/domain/product"
)

type quoteItem struct {
	ProductID     string              `json:"productId"`
	Quantity      int                 `json:"quantity"`
	Customization *cart.Customization `json:"customization,omitempty"`
}

type quoteRequest struct {
	Items         []quoteItem         `json:"items"`
	District      string              `json:"district"`
	PaymentMethod order.PaymentMethod `json:"paymentMethod"`
}

// ListProducts returns the catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeInternal(w, r, errors.Wrap(err, "list products"))
		return
	}
	out := make([]product.Product, len(products))
	for i, p := range products {
		out[i] = h.withImageURL(p)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetProduct returns one catalog record.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if errors.Is(err, product.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeInternal(w, r, errors.Wrap(err, "get product"))
		return
	}
	writeJSON(w, http.StatusOK, h.withImageURL(*p))
}

// ListRegions returns every deliverable district with its fee.
func (h *Handler) ListRegions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.builder.Policy().Regions())
}

// Quote prices a prospective order at catalog prices so a client can show
// the same totals the store will enforce.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "cart is empty")
		return
	}

	ids := make([]string, 0, len(req.Items))
	for _, it := range req.Items {
		if it.ProductID == "" || it.Quantity < 1 {
			writeError(w, http.StatusBadRequest, "invalid item "+it.ProductID)
			return
		}
		ids = append(ids, it.ProductID)
	}
	fetched, err := h.products.GetByIDs(r.Context(), ids)
	if err != nil {
		writeInternal(w, r, errors.Wrap(err, "get products"))
		return
	}
	prices := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		prices[p.ID] = p
	}

	items := make([]order.Item, len(req.Items))
	for i, it := range req.Items {
		p, ok := prices[it.ProductID]
		if !ok {
			writeError(w, http.StatusUnprocessableEntity, (&order.ProductNotFoundError{ProductID: it.ProductID}).Error())
			return
		}
		items[i] = order.Item{
			ProductID:     p.ID,
			Name:          p.Name,
			UnitPrice:     pricing.Floor(p.Price),
			Quantity:      it.Quantity,
			Customization: it.Customization,
		}
	}

	method := order.PaymentMethod(strings.ToLower(strings.TrimSpace(string(req.PaymentMethod))))
	if method == "" {
		method = order.PaymentCOD
	}
	if !method.Valid() {
		writeError(w, http.StatusBadRequest, "unsupported payment method "+string(method))
		return
	}

	quote, err := h.builder.Quote(items, req.District, method)
	if err != nil {
		code, _ := mapOrderError(err)
		if code == http.StatusInternalServerError {
			writeInternal(w, r, err)
			return
		}
		writeError(w, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (h *Handler) withImageURL(p product.Product) product.Product {
	if h.imageBaseURL == "" || p.ImageURL == "" || strings.Contains(p.ImageURL, "://") {
		return p
	}
	p.ImageURL = h.imageBaseURL + "/" + strings.TrimLeft(p.ImageURL, "/")
	return p
}
