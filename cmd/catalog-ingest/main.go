// Command catalog-ingest imports supplier item feeds into the catalog.
//
// Feeds are gzip-compressed text files named itemfeedN.gz, one item per line
// in the form "code|name|category|price|stock". The same code may appear in
// several feeds (or several times in one feed); the last occurrence in feed
// order wins. Bloom filters keep the duplicate bookkeeping cheap: only codes
// that may collide are held in memory exactly, everything else streams
// straight into batched upserts.
package main

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/pahanaedu/bookshop/internal/app"
	"github.com/pahanaedu/bookshop/internal/domain/catalog"
	"github.com/pahanaedu/bookshop/internal/postgres"
)

const (
	bloomCapacity   = 5_000_000
	bloomFPR        = 0.001
	progressEvery   = 1_000_000
	feedFieldCount  = 5
	defaultMinStock = 5
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, cfg *app.Config) error {
	files, err := filepath.Glob(filepath.Join(cfg.Ingest.DataDir, "itemfeed*.gz"))
	if err != nil {
		return errors.Wrap(err, "glob feed files")
	}
	if len(files) == 0 {
		return errors.Errorf("no itemfeed*.gz files in %s", cfg.Ingest.DataDir)
	}
	sort.Strings(files)

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Pass 1: one bloom filter of codes per feed, built concurrently.
	slog.Info("pass 1: building bloom filters", slog.Int("files", len(files)))

	filters, err := buildBloomFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	// Pass 2: sequential scan in feed order, upserting as we go.
	slog.Info("pass 2: importing feeds")

	items := postgres.NewItemRepository(pool)
	ing := &ingester{
		repo:       items,
		batchSize:  cfg.Ingest.BatchSize,
		seen:       bloom.NewWithEstimates(bloomCapacity, bloomFPR),
		candidates: make(map[string]catalog.Item),
	}

	for i, path := range files {
		if err := ing.scanFeed(ctx, i, path, filters); err != nil {
			return errors.Wrapf(err, "import feed %s", path)
		}
	}
	if err := ing.flush(ctx); err != nil {
		return err
	}

	slog.Info("feeds imported",
		slog.Uint64("items", ing.imported),
		slog.Uint64("skipped_lines", ing.skipped),
		slog.Int("deduped_codes", len(ing.candidates)),
	)
	return nil
}

// buildBloomFilters creates one bloom filter per feed file, concurrently.
func buildBloomFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(buildFilterForFile(ctx, i, f, filters))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return filters, nil
}

func buildFilterForFile(ctx context.Context, idx int, path string, filters []*bloom.BloomFilter) func() error {
	return func() error {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var count uint64

		if err := streamGzFile(ctx, path, func(line string) {
			if code, ok := feedCode(line); ok {
				filter.AddString(code)
				count++
				if count%progressEvery == 0 {
					slog.Info("pass 1 progress",
						slog.Int("file", idx+1),
						slog.Uint64("lines", count),
					)
				}
			}
		}); err != nil {
			return errors.Wrapf(err, "build filter for file %d", idx+1)
		}

		slog.Info("pass 1 complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_lines", count),
		)

		filters[idx] = filter
		return nil
	}
}

// ingester accumulates parsed items into upsert batches, routing codes that
// may collide across (or within) feeds through an exact map so that the last
// occurrence wins.
type ingester struct {
	repo      *postgres.ItemRepository
	batchSize int

	seen       *bloom.BloomFilter
	candidates map[string]catalog.Item
	batch      []catalog.Item

	imported uint64
	skipped  uint64
}

func (g *ingester) scanFeed(ctx context.Context, idx int, path string, filters []*bloom.BloomFilter) error {
	var flushErr error
	err := streamGzFile(ctx, path, func(line string) {
		if flushErr != nil {
			return
		}

		item, ok := parseFeedLine(line)
		if !ok {
			g.skipped++
			return
		}

		// A code is a duplicate candidate when it was already scanned in this
		// pass, or when a later feed may also carry it. Bloom false positives
		// only cost map memory; the map keeps occurrences exact.
		dup := g.seen.TestOrAddString(item.Code)
		for j := idx + 1; j < len(filters) && !dup; j++ {
			dup = filters[j].TestString(item.Code)
		}

		if dup {
			g.candidates[item.Code] = item
			return
		}

		g.batch = append(g.batch, item)
		if len(g.batch) >= g.batchSize {
			flushErr = g.flushBatch(ctx)
		}
	})
	if err != nil {
		return err
	}
	return flushErr
}

// flush writes the remaining batch and the deduplicated candidates.
func (g *ingester) flush(ctx context.Context) error {
	if err := g.flushBatch(ctx); err != nil {
		return err
	}
	for _, item := range g.candidates {
		g.batch = append(g.batch, item)
		if len(g.batch) >= g.batchSize {
			if err := g.flushBatch(ctx); err != nil {
				return err
			}
		}
	}
	return g.flushBatch(ctx)
}

func (g *ingester) flushBatch(ctx context.Context) error {
	if len(g.batch) == 0 {
		return nil
	}
	if err := g.repo.UpsertBatch(ctx, g.batch); err != nil {
		return err
	}
	g.imported += uint64(len(g.batch))
	g.batch = g.batch[:0]
	return nil
}

// feedCode extracts just the item code from a feed line.
func feedCode(line string) (string, bool) {
	code, _, ok := strings.Cut(line, "|")
	code = strings.TrimSpace(code)
	return code, ok && code != ""
}

// parseFeedLine parses "code|name|category|price|stock" into a catalog item.
func parseFeedLine(line string) (catalog.Item, bool) {
	fields := strings.Split(line, "|")
	if len(fields) != feedFieldCount {
		return catalog.Item{}, false
	}

	price, err := decimal.NewFromString(strings.TrimSpace(fields[3]))
	if err != nil {
		return catalog.Item{}, false
	}
	stock, err := strconv.Atoi(strings.TrimSpace(fields[4]))
	if err != nil {
		return catalog.Item{}, false
	}

	item := catalog.Item{
		ID:       uuid.New().String(),
		Code:     strings.TrimSpace(fields[0]),
		Name:     strings.TrimSpace(fields[1]),
		Category: catalog.Category(strings.TrimSpace(fields[2])),
		Price:    price,
		Stock:    stock,
		MinStock: defaultMinStock,
	}
	if item.Validate() != nil {
		return catalog.Item{}, false
	}
	return item, true
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(line string)) error {
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
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}
