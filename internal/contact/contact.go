// Package contact builds prefilled messaging deep links used for manual
// follow-up with customers.
package contact

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
)

// ErrInvalidNumber is returned for a shop number without digits.
var ErrInvalidNumber = errors.New("invalid messaging number")

const linkBase = "https://wa.me/"

// Link returns a chat deep link to number with text prefilled. Local
// Bangladeshi numbers (01XXXXXXXXX) get the 88 country code.
func Link(number, text string) (string, error) {
	digits := Digits(number)
	if digits == "" {
		return "", errors.Wrapf(ErrInvalidNumber, "%q", number)
	}
	if strings.HasPrefix(digits, "01") && len(digits) == 11 {
		digits = "88" + digits
	}

	u := linkBase + digits
	if text != "" {
		u += "?text=" + url.QueryEscape(text)
	}
	return u, nil
}

// Digits strips everything but ASCII digits from s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// OrderMessage summarizes an order for a customer-to-shop chat.
func OrderMessage(o *order.Order, trackURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi! I placed order %s.\n", o.TrackingID)
	for _, it := range o.Items {
		fmt.Fprintf(&b, "- %s x%d = %s\n", it.Name, it.Quantity, it.Total().StringFixed(0))
		if c := it.Customization; !c.IsEmpty() && c.CustomText != "" {
			fmt.Fprintf(&b, "  text: %q\n", c.CustomText)
		}
	}
	fmt.Fprintf(&b, "Total: %s (delivery %s)\n", o.Subtotal.Add(o.DeliveryFee).StringFixed(0), o.DeliveryFee.StringFixed(0))
	if o.AdvancePayment.IsPositive() {
		fmt.Fprintf(&b, "Advance paid: %s via %s (ref %s)\n",
			o.AdvancePayment.StringFixed(0), o.PaymentInfo.Method, o.PaymentInfo.TransactionRef)
	}
	fmt.Fprintf(&b, "Due on delivery: %s", o.Remaining().StringFixed(0))
	if trackURL != "" {
		fmt.Fprintf(&b, "\nTrack: %s", trackURL)
	}
	return b.String()
}

// ProductMessage asks the shop about a product.
func ProductMessage(p product.Product, productURL string) string {
	msg := fmt.Sprintf("Hi! I'm interested in %s (%s).", p.Name, p.Price.StringFixed(0))
	if productURL != "" {
		msg += " " + productURL
	}
	return msg
}
