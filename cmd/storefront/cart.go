package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/contact"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/order"
)

// listFlag collects a repeatable string flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func (c *cli) products(ctx context.Context) error {
	products, err := c.client.ListProducts(ctx)
	if err != nil {
		return errors.Wrap(err, "list products")
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tSTOCK\tCATEGORY")
	for _, p := range products {
		stock := strconv.Itoa(p.Stock)
		if p.Stock <= 0 {
			stock = "sold out"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, money(p.Price), stock, p.Category)
	}
	return w.Flush()
}

func (c *cli) cartCmd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.Wrap(errUsage, "cart: missing subcommand")
	}
	store, err := c.openCart(ctx)
	if err != nil {
		return err
	}

	sub, rest := args[0], args[1:]
	switch sub {
	case "ls":
		return c.printCart(store.Snapshot())
	case "add":
		return c.cartAdd(ctx, store, rest)
	case "qty":
		if len(rest) != 2 {
			return errors.Wrap(errUsage, "cart qty <line> <quantity>")
		}
		key, err := lineKey(store, rest[0])
		if err != nil {
			return err
		}
		qty, err := strconv.Atoi(rest[1])
		if err != nil {
			return errors.Wrapf(errUsage, "quantity %q", rest[1])
		}
		if err := store.UpdateQuantity(ctx, key, qty); err != nil {
			return err
		}
	case "rm":
		if len(rest) != 1 {
			return errors.Wrap(errUsage, "cart rm <line>")
		}
		key, err := lineKey(store, rest[0])
		if err != nil {
			return err
		}
		if err := store.Remove(ctx, key); err != nil {
			return err
		}
	case "clear":
		if err := store.Clear(ctx); err != nil {
			return err
		}
	default:
		return errors.Wrapf(errUsage, "cart: unknown subcommand %q", sub)
	}
	return c.printCart(store.Snapshot())
}

func (c *cli) cartAdd(ctx context.Context, store *cart.Store, args []string) error {
	var (
		custom cart.Customization
		images listFlag
	)
	fs, err := subcommand("cart add", args, func(fs *flag.FlagSet) {
		fs.IntVar(&custom.Quantity, "qty", 1, "quantity to add")
		fs.StringVar(&custom.Size, "size", "", "size")
		fs.StringVar(&custom.Color, "color", "", "color")
		fs.StringVar(&custom.PrintArea, "print-area", "", "print area")
		fs.StringVar(&custom.CustomText, "text", "", "text printed on the product")
		fs.StringVar(&custom.SpecialInstructions, "note", "", "instructions for this item")
		fs.Var(&images, "image", "uploaded image reference (repeatable)")
	})
	if err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.Wrap(errUsage, "cart add [flags] <product-id>")
	}
	custom.UploadedImageRefs = images

	p, err := c.client.GetProduct(ctx, fs.Arg(0))
	if err != nil {
		return errors.Wrap(err, "get product")
	}
	if !p.InStock(max(custom.Quantity, 1)) {
		return errors.Errorf("%s: only %d in stock", p.Name, p.Stock)
	}
	if _, err := store.Add(ctx, cart.ItemFromProduct(*p, &custom)); err != nil {
		return err
	}
	return c.printCart(store.Snapshot())
}

// lineKey resolves a 1-based line number as shown by "cart ls".
func lineKey(store *cart.Store, arg string) (cart.LineKey, error) {
	n, err := strconv.Atoi(arg)
	lines := store.Lines()
	if err != nil || n < 1 || n > len(lines) {
		return "", errors.Wrapf(errUsage, "no cart line %q", arg)
	}
	return lines[n-1].Key(), nil
}

func (c *cli) printCart(ct cart.Cart) error {
	if ct.IsEmpty() {
		_, err := fmt.Fprintln(c.out, "Cart is empty")
		return err
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tPRODUCT\tQTY\tUNIT\tTOTAL\tCUSTOMIZATION")
	for i, l := range ct.Lines {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\n",
			i+1, l.Name, l.Quantity, money(l.UnitPrice), money(l.Total()), describe(l.Customization))
	}
	fmt.Fprintf(w, "\t%d items\t\t\t%s\t\n", ct.TotalItems(), money(ct.TotalPrice()))
	return w.Flush()
}

func describe(c *cart.Customization) string {
	if c.IsEmpty() {
		return "-"
	}
	var parts []string
	add := func(name, v string) {
		if v != "" {
			parts = append(parts, name+"="+v)
		}
	}
	add("size", c.Size)
	add("color", c.Color)
	add("area", c.PrintArea)
	if c.CustomText != "" {
		add("text", strconv.Quote(c.CustomText))
	}
	if n := len(c.UploadedImageRefs); n > 0 {
		parts = append(parts, fmt.Sprintf("%d images", n))
	}
	if c.SpecialInstructions != "" {
		parts = append(parts, "note")
	}
	return strings.Join(parts, " ")
}

func (c *cli) quote(ctx context.Context, args []string) error {
	var district, method string
	if _, err := subcommand("quote", args, func(fs *flag.FlagSet) {
		fs.StringVar(&district, "district", "", "delivery district")
		fs.StringVar(&method, "pay", string(order.PaymentCOD), "payment method (cod, bkash, nagad, rocket)")
	}); err != nil {
		return err
	}
	store, err := c.openCart(ctx)
	if err != nil {
		return err
	}

	ct := store.Snapshot()
	if ct.IsEmpty() {
		return errors.New("cart is empty")
	}
	b, err := c.builder().Policy().Quote(ct.PricingLines(), district, ct.HasCustomized(), method)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "Subtotal\t%s\t\n", money(b.Subtotal))
	fmt.Fprintf(w, "Delivery\t%s\t\n", money(b.DeliveryFee))
	fmt.Fprintf(w, "Total\t%s\t\n", money(b.Total))
	if b.Advance.IsPositive() {
		fmt.Fprintf(w, "Advance\t%s\t\n", money(b.Advance))
	}
	fmt.Fprintf(w, "On delivery\t%s\t\n", money(b.Remaining))
	return w.Flush()
}

func (c *cli) contact(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.Wrap(errUsage, "contact <product-id>")
	}
	p, err := c.client.GetProduct(ctx, args[0])
	if err != nil {
		return errors.Wrap(err, "get product")
	}

	var productURL string
	if c.cfg.ProductBaseURL != "" {
		productURL = strings.TrimRight(c.cfg.ProductBaseURL, "/") + "/" + p.ID
	}
	link, err := contact.Link(c.cfg.ShopNumber, contact.ProductMessage(*p, productURL))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, link)
	return err
}
