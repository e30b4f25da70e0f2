package main

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/product"
)

const (
	bloomFPR      = 0.001
	progressEvery = 100_000
	maxLineBytes  = 1 << 20
)

// upserter is the catalog write side of postgres.ProductRepository.
type upserter interface {
	Upsert(ctx context.Context, products []product.Product) (int64, error)
}

// Stats summarizes one ingest run.
type Stats struct {
	Read      int
	Skipped   int
	Written   int64
	Contested int
}

// ingester loads gzipped JSON-lines product feeds. Feeds are ordered by
// priority: when several feeds carry the same product ID, the last feed
// wins.
//
// Pass 1 builds a bloom filter of IDs per feed. In pass 2 a record is
// written immediately when no later feed can contain its ID (bloom filters
// have no false negatives). Otherwise it is held back as contested, and the
// winner among contested records is resolved exactly at the end.
type ingester struct {
	repo      upserter
	batchSize int
	capacity  uint

	mu        sync.Mutex
	contested map[string]contestedRecord
	// overriding holds IDs written directly that an earlier feed may also
	// carry. A contested record whose ID is here has already lost.
	overriding map[string]struct{}
	stats      Stats
}

type contestedRecord struct {
	feed int
	p    product.Product
}

func newIngester(repo upserter, batchSize int, capacity uint) *ingester {
	if batchSize <= 0 {
		batchSize = 500
	}
	if capacity == 0 {
		capacity = 1_000_000
	}
	return &ingester{
		repo:       repo,
		batchSize:  batchSize,
		capacity:   capacity,
		contested:  make(map[string]contestedRecord),
		overriding: make(map[string]struct{}),
	}
}

func (in *ingester) run(ctx context.Context, feeds []string) (Stats, error) {
	slog.Info("pass 1: building bloom filters", slog.Int("feeds", len(feeds)))
	filters, err := in.buildFilters(ctx, feeds)
	if err != nil {
		return in.stats, errors.Wrap(err, "build bloom filters")
	}

	slog.Info("pass 2: writing products")
	if err := in.write(ctx, feeds, filters); err != nil {
		return in.stats, errors.Wrap(err, "write products")
	}

	if err := in.resolve(ctx); err != nil {
		return in.stats, errors.Wrap(err, "resolve contested products")
	}
	return in.stats, nil
}

func (in *ingester) buildFilters(ctx context.Context, feeds []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(feeds))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range feeds {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(in.capacity, bloomFPR)
			var count int
			err := streamFeed(ctx, path, func(p product.Product) {
				filter.AddString(p.ID)
				count++
			}, nil)
			if err != nil {
				return errors.Wrapf(err, "feed %d", i+1)
			}
			slog.Info("pass 1 complete", slog.Int("feed", i+1), slog.Int("products", count))
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

func (in *ingester) write(ctx context.Context, feeds []string, filters []*bloom.BloomFilter) error {
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range feeds {
		g.Go(func() error {
			return in.writeFeed(ctx, i, path, filters)
		})
	}
	return g.Wait()
}

func (in *ingester) writeFeed(ctx context.Context, idx int, path string, filters []*bloom.BloomFilter) error {
	batch := make([]product.Product, 0, in.batchSize)
	var (
		read, skipped, held int
		written             int64
		writeErr            error
	)
	flush := func() {
		if len(batch) == 0 || writeErr != nil {
			return
		}
		n, err := in.repo.Upsert(ctx, batch)
		written += n
		writeErr = err
		batch = batch[:0]
	}

	err := streamFeed(ctx, path, func(p product.Product) {
		read++
		if read%progressEvery == 0 {
			slog.Info("pass 2 progress", slog.Int("feed", idx+1), slog.Int("products", read))
		}
		if laterMayContain(filters, idx, p.ID) {
			in.hold(idx, p)
			held++
			return
		}
		if earlierMayContain(filters, idx, p.ID) {
			in.markOverriding(p.ID)
		}
		batch = append(batch, p)
		if len(batch) == in.batchSize {
			flush()
		}
	}, func(line string, err error) {
		skipped++
		slog.Warn("skipping record",
			slog.Int("feed", idx+1),
			slog.String("error", err.Error()),
			slog.String("line", truncate(line, 120)),
		)
	})
	flush()
	if err == nil {
		err = writeErr
	}

	in.mu.Lock()
	in.stats.Read += read
	in.stats.Skipped += skipped
	in.stats.Written += written
	in.mu.Unlock()

	if err != nil {
		return errors.Wrapf(err, "feed %d", idx+1)
	}
	slog.Info("pass 2 complete",
		slog.Int("feed", idx+1),
		slog.Int("products", read),
		slog.Int("held", held),
		slog.Int64("written", written),
	)
	return nil
}

func (in *ingester) hold(feed int, p product.Product) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if cur, ok := in.contested[p.ID]; ok && cur.feed > feed {
		return
	}
	in.contested[p.ID] = contestedRecord{feed: feed, p: p}
}

func (in *ingester) markOverriding(id string) {
	in.mu.Lock()
	in.overriding[id] = struct{}{}
	in.mu.Unlock()
}

// resolve writes the winning contested records. It runs after every feed
// has been written, so no locking is needed.
func (in *ingester) resolve(ctx context.Context) error {
	in.stats.Contested = len(in.contested)

	var winners []product.Product
	for id, rec := range in.contested {
		if _, lost := in.overriding[id]; lost {
			continue
		}
		winners = append(winners, rec.p)
	}
	slog.Info("resolving contested products",
		slog.Int("contested", len(in.contested)),
		slog.Int("winners", len(winners)),
	)

	for start := 0; start < len(winners); start += in.batchSize {
		end := min(start+in.batchSize, len(winners))
		n, err := in.repo.Upsert(ctx, winners[start:end])
		in.stats.Written += n
		if err != nil {
			return err
		}
	}
	return nil
}

func laterMayContain(filters []*bloom.BloomFilter, idx int, id string) bool {
	for _, f := range filters[idx+1:] {
		if f.TestString(id) {
			return true
		}
	}
	return false
}

func earlierMayContain(filters []*bloom.BloomFilter, idx int, id string) bool {
	for _, f := range filters[:idx] {
		if f.TestString(id) {
			return true
		}
	}
	return false
}

// streamFeed decodes a gzip-compressed JSON-lines feed and calls fn for each
// valid product. Invalid records go to bad when it is non-nil.
func streamFeed(ctx context.Context, path string, fn func(product.Product), bad func(line string, err error)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		p, err := parseRecord(line)
		if err != nil {
			if bad != nil {
				bad(line, err)
			}
			continue
		}
		fn(p)
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}

func parseRecord(line string) (product.Product, error) {
	var p product.Product
	if err := json.Unmarshal([]byte(line), &p); err != nil {
		return p, errors.Wrap(err, "decode")
	}
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	switch {
	case p.ID == "":
		return p, errors.New("missing id")
	case p.Name == "":
		return p, errors.Errorf("product %s: missing name", p.ID)
	case p.Price.IsNegative():
		return p, errors.Errorf("product %s: negative price", p.ID)
	case p.Stock < 0:
		return p, errors.Errorf("product %s: negative stock", p.ID)
	}
	return p, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
