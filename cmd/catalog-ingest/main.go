// Command catalog-ingest loads gzipped JSON-lines product feeds into the
// catalog. Feeds are given in priority order; a later feed overrides
// products of earlier ones.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		batchSize   int
		capacity    uint
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&batchSize, "batch-size", 500, "products per upsert batch")
	flag.UintVar(&capacity, "capacity", 1_000_000, "expected products per feed, sizes the bloom filters")
	flag.Parse()

	feeds := flag.Args()
	if len(feeds) == 0 {
		slog.Error("usage: catalog-ingest [flags] feed1.jsonl.gz [feed2.jsonl.gz ...]")
		os.Exit(2)
	}
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, feeds, batchSize, capacity); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, databaseURL string, feeds []string, batchSize int, capacity uint) error {
	for _, f := range feeds {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	stats, err := newIngester(postgres.NewProductRepository(pool), batchSize, capacity).run(ctx, feeds)
	slog.Info("ingest stats",
		slog.Int("read", stats.Read),
		slog.Int("skipped", stats.Skipped),
		slog.Int("contested", stats.Contested),
		slog.Int64("written", stats.Written),
	)
	return err
}
