package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/checkout"
	"github.com/xenking/storefront/internal/domain/order"
)

func (c *cli) checkout(ctx context.Context, args []string) error {
	var (
		details order.CustomerDetails
		payment order.PaymentChoice
		method  string
	)
	if _, err := subcommand("checkout", args, func(fs *flag.FlagSet) {
		fs.StringVar(&details.Name, "name", "", "customer name")
		fs.StringVar(&details.Phone, "phone", "", "mobile number, 01XXXXXXXXX")
		fs.StringVar(&details.District, "district", "", "delivery district")
		fs.StringVar(&details.Thana, "thana", "", "delivery thana")
		fs.StringVar(&details.Address, "address", "", "street address")
		fs.StringVar(&details.SpecialInstructions, "note", "", "delivery instructions")
		fs.StringVar(&method, "pay", string(order.PaymentCOD), "payment method (cod, bkash, nagad, rocket)")
		fs.StringVar(&payment.TransactionRef, "txn", "", "mobile payment transaction reference")
	}); err != nil {
		return err
	}
	payment.Method = order.PaymentMethod(method)

	store, err := c.openCart(ctx)
	if err != nil {
		return err
	}
	svc := checkout.NewService(checkout.Config{
		ShopNumber:      c.cfg.ShopNumber,
		TrackingBaseURL: c.cfg.TrackingBaseURL,
	}, store, c.builder(), c.client, checkout.NewLogNotifier(c.lg), c.lg)

	receipt, err := svc.Submit(ctx, details, payment)
	if err != nil {
		var ve *order.ValidationError
		if errors.As(err, &ve) {
			return errors.Errorf("check your details: %v", ve)
		}
		return err
	}

	p := receipt.Payload
	fmt.Fprintf(c.out, "Order placed. Tracking code: %s\n", receipt.TrackingID)
	fmt.Fprintf(c.out, "Total %s, delivery %s, due on delivery %s\n", money(p.Total()), money(p.DeliveryFee), money(p.Remaining()))
	if p.AdvancePayment.IsPositive() {
		fmt.Fprintf(c.out, "Advance %s via %s\n", money(p.AdvancePayment), p.PaymentInfo.Method)
	}
	if receipt.TrackingURL != "" {
		fmt.Fprintf(c.out, "Track: %s\n", receipt.TrackingURL)
	}
	if receipt.ContactLink != "" {
		fmt.Fprintf(c.out, "Message the shop: %s\n", receipt.ContactLink)
	}
	return nil
}
