// Command storefront is the customer and staff client of the order store.
// The cart lives in a local blob bucket and survives between runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/storage/blobstore"
	"github.com/xenking/storefront/internal/storeclient"
)

const usage = `usage: storefront [-v] <command> [args]

commands:
  products                       list the catalog
  cart ls|add|qty|rm|clear       manage the local cart
  quote                          price the cart for a district
  checkout                       place an order from the cart
  track <tracking-id>            show delivery progress
  admin list|show|status|note    staff order management
  contact <product-id>           chat link asking about a product
`

// errUsage reports a malformed command line.
var errUsage = errors.New("invalid usage")

// cli carries what every command needs. Commands open the cart lazily so
// catalog and admin commands never touch local storage.
type cli struct {
	cfg    *Config
	lg     *zap.Logger
	client *storeclient.Client
	out    io.Writer

	bucket *blobstore.Store
	cart   *cart.Store
}

func main() {
	fs := flag.NewFlagSet("storefront", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	verbose := fs.Bool("v", false, "verbose logging")
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	lg, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = lg.Sync() }()

	cfg, err := loadConfig()
	if err != nil {
		lg.Error("Failed to load config", zap.Error(err))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	c, err := newCLI(cfg, lg, os.Stdout)
	if err != nil {
		lg.Error("Failed to create client", zap.Error(err))
		os.Exit(1)
	}
	defer c.close()

	if err := c.run(ctx, fs.Args()); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "%v\n\n%s", err, usage)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

func newCLI(cfg *Config, lg *zap.Logger, out io.Writer) (*cli, error) {
	client, err := storeclient.New(cfg.APIURL,
		storeclient.WithAPIKey(cfg.APIKey),
		storeclient.WithTimeout(cfg.Timeout),
	)
	if err != nil {
		return nil, err
	}
	return &cli{cfg: cfg, lg: lg, client: client, out: out}, nil
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.Wrap(errUsage, "missing command")
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "products":
		return c.products(ctx)
	case "cart":
		return c.cartCmd(ctx, rest)
	case "quote":
		return c.quote(ctx, rest)
	case "checkout":
		return c.checkout(ctx, rest)
	case "track":
		return c.track(ctx, rest)
	case "admin":
		return c.admin(ctx, rest)
	case "contact":
		return c.contact(ctx, rest)
	default:
		return errors.Wrapf(errUsage, "unknown command %q", cmd)
	}
}

// openCart restores the persisted cart on first use.
func (c *cli) openCart(ctx context.Context) (*cart.Store, error) {
	if c.cart != nil {
		return c.cart, nil
	}
	bucket, err := blobstore.Open(ctx, c.cfg.CartURL)
	if err != nil {
		return nil, errors.Wrap(err, "open cart storage")
	}
	c.bucket = bucket
	c.cart = cart.NewStore(bucket, c.lg)
	c.cart.Load(ctx)
	return c.cart, nil
}

func (c *cli) close() {
	if c.cart != nil {
		c.cart.Dispose()
	}
	if c.bucket != nil {
		if err := c.bucket.Close(); err != nil {
			c.lg.Warn("Close cart storage", zap.Error(err))
		}
	}
}

func (c *cli) builder() *order.Builder {
	return order.NewBuilder(c.cfg.Pricing.Policy())
}

// subcommand parses the flags of one command. Flag errors are usage errors.
func subcommand(name string, args []string, define func(fs *flag.FlagSet)) (*flag.FlagSet, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if define != nil {
		define(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, errors.Wrapf(errUsage, "%s: %v", name, err)
	}
	return fs, nil
}
