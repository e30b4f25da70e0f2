package pricing

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrDistrictRequired is returned when no delivery district was chosen.
	ErrDistrictRequired = errors.New("delivery district required")
	// ErrUnknownDistrict is returned for a district outside the region catalog.
	ErrUnknownDistrict = errors.New("unknown delivery district")
)

// Method values that affect advance payment. They mirror order.PaymentMethod
// without importing it.
const (
	MethodCashOnDelivery = "cod"
)

// Policy holds the business constants used to price an order.
type Policy struct {
	// HomeDistrict is charged HomeFee; every other known district pays OutsideFee.
	HomeDistrict string
	HomeFee      decimal.Decimal
	OutsideFee   decimal.Decimal
	// FreeDeliveryThreshold zeroes the delivery fee when the subtotal reaches
	// it. Zero disables free delivery.
	FreeDeliveryThreshold decimal.Decimal
	// AdvancePercent of the order total is collected up front for orders that
	// contain customized items.
	AdvancePercent int
	// Districts is the region catalog. Empty means Districts().
	Districts []string
}

// DefaultPolicy returns the storefront's standard pricing constants.
func DefaultPolicy() Policy {
	return Policy{
		HomeDistrict:   "Dhaka",
		HomeFee:        decimal.NewFromInt(60),
		OutsideFee:     decimal.NewFromInt(120),
		AdvancePercent: 50,
	}
}

// Breakdown is the canonical price summary of an order.
//
// Remaining = Subtotal + DeliveryFee - Advance.
type Breakdown struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	Total       decimal.Decimal `json:"total"`
	Advance     decimal.Decimal `json:"advance"`
	Remaining   decimal.Decimal `json:"remaining"`
}

// Region is a delivery district with its fee.
type Region struct {
	District string          `json:"district"`
	Fee      decimal.Decimal `json:"fee"`
	Home     bool            `json:"home"`
}

// District returns the canonical spelling of name, or false when the
// district is not in the region catalog.
func (p Policy) District(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	for _, d := range p.districts() {
		if strings.EqualFold(d, name) {
			return d, true
		}
	}
	return "", false
}

// Regions lists every district with the fee charged for it.
func (p Policy) Regions() []Region {
	districts := p.districts()
	out := make([]Region, 0, len(districts))
	for _, d := range districts {
		home := strings.EqualFold(d, p.HomeDistrict)
		fee := p.OutsideFee
		if home {
			fee = p.HomeFee
		}
		out = append(out, Region{District: d, Fee: Floor(fee), Home: home})
	}
	return out
}

// DeliveryFee returns the flat fee for district, or zero when subtotal meets
// the free delivery threshold.
func (p Policy) DeliveryFee(district string, subtotal decimal.Decimal) (decimal.Decimal, error) {
	if strings.TrimSpace(district) == "" {
		return decimal.Zero, ErrDistrictRequired
	}
	d, ok := p.District(district)
	if !ok {
		return decimal.Zero, errors.Wrapf(ErrUnknownDistrict, "%q", district)
	}

	if p.FreeDeliveryThreshold.IsPositive() && Floor(subtotal).GreaterThanOrEqual(Floor(p.FreeDeliveryThreshold)) {
		return decimal.Zero, nil
	}
	if strings.EqualFold(d, p.HomeDistrict) {
		return Floor(p.HomeFee), nil
	}
	return Floor(p.OutsideFee), nil
}

// RequiredAdvance returns the amount that must be prepaid.
//
// Customized orders prepay AdvancePercent of the total regardless of method.
// Other orders prepay the delivery fee when paying by mobile wallet and
// nothing when paying cash on delivery.
func (p Policy) RequiredAdvance(total, deliveryFee decimal.Decimal, customized bool, method string) decimal.Decimal {
	switch {
	case customized:
		pct := decimal.NewFromInt(int64(p.AdvancePercent))
		return Floor(Floor(total).Mul(pct).Div(decimal.NewFromInt(100)))
	case method == MethodCashOnDelivery || method == "":
		return decimal.Zero
	default:
		return Floor(deliveryFee)
	}
}

// Quote prices lines for delivery to district.
func (p Policy) Quote(lines []Line, district string, customized bool, method string) (Breakdown, error) {
	subtotal := Subtotal(lines)
	fee, err := p.DeliveryFee(district, subtotal)
	if err != nil {
		return Breakdown{}, err
	}

	total := subtotal.Add(fee)
	split := AdvanceSplit(total, p.RequiredAdvance(total, fee, customized, method))
	return Breakdown{
		Subtotal:    subtotal,
		DeliveryFee: fee,
		Total:       total,
		Advance:     split.Advance,
		Remaining:   split.Remaining,
	}, nil
}

func (p Policy) districts() []string {
	if len(p.Districts) > 0 {
		return p.Districts
	}
	return Districts()
}
