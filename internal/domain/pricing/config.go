package pricing

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Config is the loadable form of Policy. The storefront and the order store
// must agree on it or every order fails the store's totals check.
type Config struct {
	HomeDistrict          string `default:"Dhaka" usage:"District charged the home delivery fee" flag:"home-district"`
	HomeFee               int64  `default:"60" usage:"Delivery fee inside the home district" flag:"home-fee"`
	OutsideFee            int64  `default:"120" usage:"Delivery fee outside the home district" flag:"outside-fee"`
	FreeDeliveryThreshold int64  `default:"0" usage:"Subtotal from which delivery is free; 0 disables" flag:"free-delivery-threshold"`
	AdvancePercent        int    `default:"50" usage:"Share of the total prepaid for customized orders" flag:"advance-percent"`
}

// Policy converts c into a Policy over the built-in district catalog.
func (c Config) Policy() Policy {
	return Policy{
		HomeDistrict:          c.HomeDistrict,
		HomeFee:               decimal.NewFromInt(c.HomeFee),
		OutsideFee:            decimal.NewFromInt(c.OutsideFee),
		FreeDeliveryThreshold: decimal.NewFromInt(c.FreeDeliveryThreshold),
		AdvancePercent:        c.AdvancePercent,
	}
}

// Validate rejects settings no order could be priced with.
func (c Config) Validate() error {
	if c.AdvancePercent < 0 || c.AdvancePercent > 100 {
		return errors.Errorf("advance percent %d out of range [0, 100]", c.AdvancePercent)
	}
	if c.HomeFee < 0 || c.OutsideFee < 0 || c.FreeDeliveryThreshold < 0 {
		return errors.New("delivery fees and threshold must not be negative")
	}
	if _, ok := c.Policy().District(c.HomeDistrict); !ok {
		return errors.Errorf("home district %q is not a known district", c.HomeDistrict)
	}
	return nil
}
