package store

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"finboard/internal/core"
)

// FetchPageSize is the page size FetchAll requests.
const FetchPageSize = 100

// FetchAll reads every page matching f. The first page is read alone to learn
// the page count; the remaining pages are fetched with at most concurrency
// requests in flight. Results keep the store's order.
func FetchAll(ctx context.Context, l Lister, f ListFilters, concurrency int) ([]core.Transaction, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	if f.Limit <= 0 {
		f.Limit = FetchPageSize
	}
	f.Page = 1

	first, err := l.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("fetch page 1: %w", err)
	}
	pages := first.Pagination.TotalPages
	if pages <= 1 {
		return first.Transactions, nil
	}

	results := make([][]core.Transaction, pages)
	results[0] = first.Transactions

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for page := 2; page <= pages; page++ {
		pf := f
		pf.Page = page
		g.Go(func() error {
			res, err := l.List(gctx, pf)
			if err != nil {
				return fmt.Errorf("fetch page %d: %w", pf.Page, err)
			}
			results[pf.Page-1] = res.Transactions
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []core.Transaction
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}
