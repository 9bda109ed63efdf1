// Package memory is an in-process transaction store used for demos, tests
// and offline runs.
package memory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"finboard/internal/analytics"
	"finboard/internal/core"
	"finboard/internal/csvcodec"
	"finboard/internal/store"
)

type Store struct {
	mu    sync.Mutex
	items []core.Transaction
	now   func() time.Time
}

var _ store.TransactionStore = (*Store)(nil)

func New(seed ...core.Transaction) *Store {
	s := &Store{now: time.Now}
	for _, t := range seed {
		s.items = append(s.items, s.stamp(t))
	}
	return s
}

// NewFromCSV seeds the store from an import file. A missing path yields an
// empty store.
func NewFromCSV(path string) (*Store, error) {
	if path == "" {
		return New(), nil
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open seed csv: %w", err)
	}
	defer f.Close()

	res, err := csvcodec.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode seed csv: %w", err)
	}
	return New(res.Transactions...), nil
}

// stamp assigns an id and timestamps to a new record.
func (s *Store) stamp(t core.Transaction) core.Transaction {
	now := s.now().UTC()
	t.ID = uuid.NewString()
	t.CreatedAt, t.UpdatedAt = &now, &now
	return t
}

// List returns the matching records newest first.
func (s *Store) List(_ context.Context, f store.ListFilters) (store.ListResult, error) {
	s.mu.Lock()
	matched := make([]core.Transaction, 0, len(s.items))
	for _, t := range s.items {
		if f.Match(t) {
			matched = append(matched, t)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Date.After(matched[j].Date.Time)
	})
	return store.PageOf(matched, f.Page, f.Limit), nil
}

func (s *Store) Create(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t = s.stamp(t)
	s.items = append(s.items, t)
	return t, nil
}

func (s *Store) Update(_ context.Context, id string, req store.UpdateRequest) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Transaction{}, fmt.Errorf("update %s: %w", id, store.ErrNotFound)
	}
	t := req.Apply(s.items[i])
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	now := s.now().UTC()
	t.UpdatedAt = &now
	s.items[i] = t
	return t, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("delete %s: %w", id, store.ErrNotFound)
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return nil
}

// BulkCreate validates every record before storing any of them.
func (s *Store) BulkCreate(_ context.Context, txs []core.Transaction) ([]core.Transaction, error) {
	for i, t := range txs {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(txs))
	for i, t := range txs {
		out[i] = s.stamp(t)
	}
	s.items = append(s.items, out...)
	return out, nil
}

func (s *Store) Statistics(_ context.Context) (analytics.Statistics, error) {
	return analytics.ComputeStatistics(s.Snapshot(), s.now(), 5), nil
}

// Snapshot returns a copy of every stored record in insertion order.
func (s *Store) Snapshot() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.items...)
}

func (s *Store) indexOf(id string) int {
	for i, t := range s.items {
		if t.ID == id {
			return i
		}
	}
	return -1
}
