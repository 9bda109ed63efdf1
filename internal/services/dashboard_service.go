package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"finboard/internal/analytics"
	"finboard/internal/core"
	"finboard/internal/csvcodec"
	"finboard/internal/store"
)

// DashboardService serves the read side: it keeps a snapshot of the whole
// collection and answers filtered views from it.
type DashboardService struct {
	store       store.Lister
	engine      *analytics.Engine
	fence       Fence
	concurrency int
	maxAge      time.Duration
	now         func() time.Time

	mu    sync.RWMutex
	snap  analytics.Snapshot
	stale bool
	// invalidated is the last refresh sequence issued before the most
	// recent Invalidate. Refreshes up to it may predate the write.
	invalidated uint64
}

type DashboardOption func(*DashboardService)

// WithConcurrency bounds the parallel page fetches of a refresh.
func WithConcurrency(n int) DashboardOption {
	return func(s *DashboardService) { s.concurrency = n }
}

// WithMaxAge makes reads refresh a snapshot older than d. Zero disables it.
func WithMaxAge(d time.Duration) DashboardOption {
	return func(s *DashboardService) { s.maxAge = d }
}

func WithClock(now func() time.Time) DashboardOption {
	return func(s *DashboardService) { s.now = now }
}

func NewDashboardService(l store.Lister, engine *analytics.Engine, opts ...DashboardOption) *DashboardService {
	s := &DashboardService{
		store:       l,
		engine:      engine,
		concurrency: 4,
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Refresh reloads the snapshot from the store. When refreshes overlap, only
// the most recently started one that completes is kept. A refresh that
// started before an Invalidate is applied but leaves the snapshot stale.
func (s *DashboardService) Refresh(ctx context.Context) (analytics.Snapshot, error) {
	seq := s.fence.Begin()
	start := s.now()

	txs, err := store.FetchAll(ctx, s.store, store.ListFilters{}, s.concurrency)
	if err != nil {
		return analytics.Snapshot{}, fmt.Errorf("refresh snapshot: %w", err)
	}

	applied := s.fence.Apply(seq, func() {
		s.mu.Lock()
		s.snap = analytics.Snapshot{Version: seq, FetchedAt: s.now(), Transactions: txs}
		s.stale = seq <= s.invalidated
		s.mu.Unlock()
	})
	if applied {
		slog.InfoContext(ctx, "Snapshot refreshed",
			"component", "dashboard",
			"version", seq,
			"transactions", len(txs),
			"duration", s.now().Sub(start))
	} else {
		slog.DebugContext(ctx, "Discarded stale snapshot", "component", "dashboard", "version", seq)
	}
	return s.Snapshot(), nil
}

// Invalidate marks the snapshot out of date; the next read refreshes it.
func (s *DashboardService) Invalidate() {
	gen := s.fence.Issued()
	s.mu.Lock()
	s.stale = true
	if gen > s.invalidated {
		s.invalidated = gen
	}
	s.mu.Unlock()
}

// Snapshot returns the current snapshot without refreshing it.
func (s *DashboardService) Snapshot() analytics.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// current returns a fresh enough snapshot, refreshing when none was loaded,
// it was invalidated, or it is older than maxAge.
func (s *DashboardService) current(ctx context.Context) (analytics.Snapshot, error) {
	s.mu.RLock()
	snap, stale := s.snap, s.stale
	s.mu.RUnlock()

	expired := s.maxAge > 0 && s.now().Sub(snap.FetchedAt) > s.maxAge
	if snap.Version == 0 || stale || expired {
		return s.Refresh(ctx)
	}
	return snap, nil
}

// Overview returns the memoized aggregations for the filtered view.
func (s *DashboardService) Overview(ctx context.Context, c analytics.Criteria, mode analytics.SeriesMode) (analytics.Overview, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return analytics.Overview{}, err
	}
	return s.engine.Overview(snap, c, mode), nil
}

// Transactions returns one page of the filtered view in store order.
func (s *DashboardService) Transactions(ctx context.Context, c analytics.Criteria, page, size int) (analytics.Page[core.Transaction], error) {
	snap, err := s.current(ctx)
	if err != nil {
		return analytics.Page[core.Transaction]{}, err
	}
	return analytics.Paginate(analytics.Filter(snap.Transactions, c), page, size), nil
}

// Categories returns the filtered view's breakdown for scope, sorted by
// amount and cut to top entries when top > 0.
func (s *DashboardService) Categories(ctx context.Context, c analytics.Criteria, scope analytics.Scope, top int) ([]core.CategoryAmount, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	breakdown := analytics.CategoryBreakdown(analytics.Filter(snap.Transactions, c), scope)
	return analytics.Top(analytics.SortByAmount(breakdown), top), nil
}

// Monthly returns the 12-month series of the filtered view.
func (s *DashboardService) Monthly(ctx context.Context, c analytics.Criteria, mode analytics.SeriesMode) ([]core.MonthBucket, error) {
	ov, err := s.Overview(ctx, c, mode)
	if err != nil {
		return nil, err
	}
	return ov.Monthly, nil
}

// ExportReport builds the export document for the filtered view.
func (s *DashboardService) ExportReport(ctx context.Context, c analytics.Criteria, opts csvcodec.ReportOptions) (csvcodec.Report, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return csvcodec.Report{}, err
	}
	if opts.ExportDate.IsZero() {
		opts.ExportDate = s.now()
	}
	return csvcodec.BuildReport(analytics.Filter(snap.Transactions, c), opts), nil
}

// All returns every transaction of the current snapshot.
func (s *DashboardService) All(ctx context.Context) ([]core.Transaction, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Transactions, nil
}
