package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/storeclient"
	"github.com/xenking/storefront/internal/tracking"
)

func (c *cli) track(ctx context.Context, args []string) error {
	var (
		watch    bool
		interval time.Duration
		lang     string
	)
	fs, err := subcommand("track", args, func(fs *flag.FlagSet) {
		fs.BoolVar(&watch, "watch", false, "keep polling until the order is final")
		fs.DurationVar(&interval, "interval", tracking.DefaultInterval, "polling interval with -watch")
		fs.StringVar(&lang, "lang", c.cfg.Lang, "label language (en, bn)")
	})
	if err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.Wrap(errUsage, "track [flags] <tracking-id>")
	}
	c.cfg.Lang = lang
	id := fs.Arg(0)
	resolver := tracking.NewResolver(c.client)

	if !watch {
		o, err := resolver.Resolve(ctx, id)
		if err != nil {
			return trackError(err)
		}
		return c.printView(tracking.NewView(o, c.cfg.lang()))
	}

	var last tracking.View
	for u := range resolver.Poll(ctx, id, interval) {
		if u.Err != nil {
			if errors.Is(u.Err, tracking.ErrNotFound) {
				return trackError(u.Err)
			}
			c.lg.Warn("Tracking refresh failed", zap.String("tracking_id", id), zap.Error(u.Err))
			continue
		}
		v := tracking.NewView(u.Order, c.cfg.lang())
		if v.Status == last.Status {
			continue
		}
		if last.Status != "" {
			fmt.Fprintln(c.out)
		}
		last = v
		if err := c.printView(v); err != nil {
			return err
		}
	}
	return nil
}

func trackError(err error) error {
	var te *storeclient.TransportError
	switch {
	case errors.Is(err, tracking.ErrNotFound):
		return errors.New("no order with that tracking code")
	case errors.As(err, &te):
		return errors.Wrap(err, "order store unreachable")
	default:
		return err
	}
}

func (c *cli) printView(v tracking.View) error {
	fmt.Fprintf(c.out, "%s  %s\n", v.TrackingID, v.Label)
	for _, s := range v.Steps {
		mark := "[ ]"
		if s.Done {
			mark = "[x]"
		}
		fmt.Fprintf(c.out, "  %s %s\n", mark, s.Label)
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	for _, it := range v.Items {
		fmt.Fprintf(w, "  %s\tx%d\t%s\n", it.Name, it.Quantity, money(it.Total()))
	}
	fmt.Fprintf(w, "  Delivery to %s\t\t%s\n", strings.Trim(v.Destination, ", "), money(v.DeliveryFee))
	if v.Advance.IsPositive() {
		fmt.Fprintf(w, "  Advance paid (%s)\t\t%s\n", v.Payment, money(v.Advance))
	}
	fmt.Fprintf(w, "  Due on delivery\t\t%s\n", money(v.Remaining))
	fmt.Fprintf(w, "  Placed\t\t%s\n", v.PlacedAt.Local().Format("2 Jan 2006 15:04"))
	return w.Flush()
}
