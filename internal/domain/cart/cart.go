// Package cart holds the shopping cart aggregate and its persisted store.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/pricing"
	"github.com/xenking/storefront/internal/domain/product"
)

// LineKey identifies a cart line: the product plus its customization
// fingerprint.
type LineKey string

// KeyFor returns the line key for productID personalized with c.
func KeyFor(productID string, c *Customization) LineKey {
	return LineKey(productID + "|" + c.Fingerprint())
}

// Line is one product, optionally customized, with a quantity of at least one.
type Line struct {
	ProductID     string          `json:"productId"`
	Name          string          `json:"name"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	Quantity      int             `json:"quantity"`
	ImageURL      string          `json:"imageUrl,omitempty"`
	Customization *Customization  `json:"customization,omitempty"`
}

// Key returns the identity of the line.
func (l Line) Key() LineKey {
	return KeyFor(l.ProductID, l.Customization)
}

// Total returns unit price × quantity.
func (l Line) Total() decimal.Decimal {
	return pricing.LineTotal(l.UnitPrice, l.Quantity)
}

// Customized reports whether the line carries a personalization.
func (l Line) Customized() bool {
	return !l.Customization.IsEmpty()
}

func (l Line) clone() Line {
	l.Customization = l.Customization.clone()
	return l
}

// Item is an "add to cart" request.
type Item struct {
	ProductID     string
	Name          string
	UnitPrice     decimal.Decimal
	ImageURL      string
	Customization *Customization
}

// ItemFromProduct builds an add request for a catalog product.
func ItemFromProduct(p product.Product, c *Customization) Item {
	return Item{
		ProductID:     p.ID,
		Name:          p.Name,
		UnitPrice:     p.Price,
		ImageURL:      p.ImageURL,
		Customization: c,
	}
}

// Cart is an ordered list of lines. Totals are derived on every call.
type Cart struct {
	Lines []Line `json:"lines"`
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// TotalItems returns the sum of line quantities.
func (c Cart) TotalItems() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// TotalPrice returns the cart subtotal.
func (c Cart) TotalPrice() decimal.Decimal {
	return pricing.Subtotal(c.PricingLines())
}

// PricingLines projects the cart for the pricing calculator.
func (c Cart) PricingLines() []pricing.Line {
	out := make([]pricing.Line, len(c.Lines))
	for i, l := range c.Lines {
		out[i] = pricing.Line{UnitPrice: l.UnitPrice, Quantity: l.Quantity}
	}
	return out
}

// HasCustomized reports whether any line is personalized.
func (c Cart) HasCustomized() bool {
	for _, l := range c.Lines {
		if l.Customized() {
			return true
		}
	}
	return false
}

// Line returns the line stored under key.
func (c Cart) Line(key LineKey) (Line, bool) {
	for _, l := range c.Lines {
		if l.Key() == key {
			return l, true
		}
	}
	return Line{}, false
}

func (c Cart) clone() Cart {
	out := Cart{Lines: make([]Line, len(c.Lines))}
	for i, l := range c.Lines {
		out.Lines[i] = l.clone()
	}
	return out
}
