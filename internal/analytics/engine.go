package analytics

import (
	"fmt"
	"time"

	"finboard/internal/cache"
	"finboard/internal/core"
)

// Snapshot is an immutable copy of the transaction collection as fetched from
// a store. Version changes whenever the collection is refreshed.
type Snapshot struct {
	Version      uint64
	FetchedAt    time.Time
	Transactions []core.Transaction
}

// Overview bundles the aggregations shown on the dashboard.
type Overview struct {
	Summary    core.Summary          `json:"summary"`
	Categories []core.CategoryAmount `json:"categories"`
	Monthly    []core.MonthBucket    `json:"monthly"`
	DateRange  string                `json:"dateRange"`
}

// Engine memoizes overviews per snapshot version and query.
type Engine struct {
	overviews *cache.LRUCache[Overview]
	now       func() time.Time
}

func NewEngine(size int, ttl time.Duration) *Engine {
	return &Engine{
		overviews: cache.NewLRUCache[Overview](size, ttl),
		now:       time.Now,
	}
}

// Cache exposes the underlying cache for registration with a cleanup manager.
func (e *Engine) Cache() *cache.LRUCache[Overview] {
	return e.overviews
}

// Overview filters the snapshot by c and aggregates the result. The expense
// breakdown is sorted by amount; the monthly series is anchored at the
// current month.
func (e *Engine) Overview(snap Snapshot, c Criteria, mode SeriesMode) Overview {
	anchor := e.now()
	key := fmt.Sprintf("v%d|%s|%s|%04d-%02d", snap.Version, c.Key(), mode, anchor.Year(), anchor.Month())
	return e.overviews.GetOrCompute(key, func() Overview {
		return BuildOverview(Filter(snap.Transactions, c), mode, anchor)
	})
}

// BuildOverview is the uncached computation behind Engine.Overview.
func BuildOverview(txs []core.Transaction, mode SeriesMode, anchor time.Time) Overview {
	return Overview{
		Summary:    Summarize(txs),
		Categories: SortByAmount(CategoryBreakdown(txs, ScopeExpense)),
		Monthly:    MonthlySeries(txs, mode, anchor),
		DateRange:  DateRange(txs),
	}
}
