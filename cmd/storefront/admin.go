package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/admin"
	"github.com/xenking/storefront/internal/domain/order"
)

func (c *cli) admin(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.Wrap(errUsage, "admin: missing subcommand")
	}
	if c.cfg.APIKey == "" {
		return errors.New("admin commands need STOREFRONT_API_KEY")
	}
	console := admin.NewConsole(c.client, c.lg)

	sub, rest := args[0], args[1:]
	switch sub {
	case "list":
		var status string
		if _, err := subcommand("admin list", rest, func(fs *flag.FlagSet) {
			fs.StringVar(&status, "status", "", "only orders in this status")
		}); err != nil {
			return err
		}
		orders, err := console.List(ctx, order.Status(strings.ToLower(status)))
		if err != nil {
			return err
		}
		return c.printOrders(orders)
	case "show":
		if len(rest) != 1 {
			return errors.Wrap(errUsage, "admin show <order-id>")
		}
		o, err := console.Order(ctx, rest[0])
		if err != nil {
			return err
		}
		return c.printOrder(console, o)
	case "status":
		if len(rest) != 2 {
			return errors.Wrap(errUsage, "admin status <order-id> <status>")
		}
		status, err := order.ParseStatus(rest[1])
		if err != nil {
			return err
		}
		o, err := console.Transition(ctx, rest[0], status)
		if err != nil {
			return err
		}
		return c.printOrder(console, o)
	case "note":
		if len(rest) < 2 {
			return errors.Wrap(errUsage, "admin note <order-id> <text>")
		}
		o, err := console.AddNote(ctx, rest[0], strings.TrimSpace(strings.Join(rest[1:], " ")))
		if err != nil {
			return err
		}
		return c.printOrder(console, o)
	default:
		return errors.Wrapf(errUsage, "admin: unknown subcommand %q", sub)
	}
}

func (c *cli) printOrders(orders []order.Order) error {
	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTRACKING\tSTATUS\tCUSTOMER\tDISTRICT\tITEMS\tTOTAL\tPLACED")
	for _, o := range orders {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			o.ID, o.TrackingID, o.Status, o.CustomerName, o.District,
			o.TotalItems(), money(o.Total), o.CreatedAt.Local().Format("02 Jan 15:04"))
	}
	return w.Flush()
}

func (c *cli) printOrder(console *admin.Console, o *order.Order) error {
	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Order\t%s (%s)\n", o.ID, o.TrackingID)
	fmt.Fprintf(w, "Status\t%s\n", o.Status)
	fmt.Fprintf(w, "Customer\t%s, %s\n", o.CustomerName, o.Phone)
	fmt.Fprintf(w, "Address\t%s, %s, %s\n", o.Address, o.Thana, o.District)
	for _, it := range o.Items {
		fmt.Fprintf(w, "Item\t%s x%d = %s %s\n", it.Name, it.Quantity, money(it.Total()), describe(it.Customization))
	}
	fmt.Fprintf(w, "Total\t%s (delivery %s)\n", money(o.Total), money(o.DeliveryFee))
	fmt.Fprintf(w, "Payment\t%s, advance %s %s\n", o.PaymentInfo.Method, money(o.AdvancePayment), o.PaymentInfo.TransactionRef)
	fmt.Fprintf(w, "Due\t%s\n", money(o.Remaining()))
	if o.SpecialInstructions != "" {
		fmt.Fprintf(w, "Instructions\t%s\n", o.SpecialInstructions)
	}
	for _, n := range o.Notes {
		fmt.Fprintf(w, "Note\t%s %s\n", n.CreatedAt.Local().Format("02 Jan 15:04"), n.Text)
	}
	if next := console.Actions(o); len(next) > 0 {
		names := make([]string, len(next))
		for i, s := range next {
			names[i] = string(s)
		}
		fmt.Fprintf(w, "Next\t%s\n", strings.Join(names, ", "))
	}
	return w.Flush()
}
