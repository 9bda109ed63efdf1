package store

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"finboard/internal/core"
)

func TestListFiltersMatch(t *testing.T) {
	food := core.Transaction{Type: core.Expense, Category: "Food", Date: core.NewDate(2024, 3, 10)}
	undated := core.Transaction{Type: core.Income}

	cases := []struct {
		name string
		f    ListFilters
		t    core.Transaction
		want bool
	}{
		{"no filters", ListFilters{}, undated, true},
		{"type", ListFilters{Type: core.Income}, food, false},
		{"category case-insensitive", ListFilters{Category: "food"}, food, true},
		{"category other", ListFilters{Category: "Other"}, undated, true},
		{"start inclusive", ListFilters{StartDate: core.NewDate(2024, 3, 10)}, food, true},
		{"end exclusive of later", ListFilters{EndDate: core.NewDate(2024, 3, 9)}, food, false},
		{"bounds drop undated", ListFilters{StartDate: core.NewDate(2024, 1, 1)}, undated, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.f.Match(tc.t); got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestUpdateRequestApply(t *testing.T) {
	orig := core.Transaction{ID: "1", Title: "Old", Amount: core.Money{Cents: 100}, Type: core.Expense, Category: "Food"}
	title := " New "
	amount := core.Money{Cents: 250}

	got := UpdateRequest{Title: &title, Amount: &amount}.Apply(orig)
	if got.Title != "New" || got.Amount.Cents != 250 || got.Category != "Food" || got.ID != "1" {
		t.Fatalf("unexpected: %+v", got)
	}
	if !(UpdateRequest{}).Empty() || Replace(orig).Empty() {
		t.Fatalf("Empty misreports")
	}
	if Replace(orig).Apply(core.Transaction{ID: "1"}) != orig {
		t.Fatalf("Replace should copy every field")
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(fmt.Errorf("list: %w", ErrAuthRequired)); got != AuthMessage {
		t.Fatalf("auth message = %q", got)
	}
	re := &RemoteError{Op: "create", Status: 400, Message: "Title is required"}
	if got := UserMessage(fmt.Errorf("wrap: %w", re)); got != "Title is required" {
		t.Fatalf("remote message = %q", got)
	}
	if re.Error() != "create: Title is required (status 400)" {
		t.Fatalf("Error() = %q", re.Error())
	}
}

// pagedLister serves n transactions in pages of the requested size.
type pagedLister struct {
	n     int
	calls atomic.Int32
	fail  int
}

func (p *pagedLister) List(_ context.Context, f ListFilters) (ListResult, error) {
	p.calls.Add(1)
	if f.Page == p.fail {
		return ListResult{}, &RemoteError{Op: "list", Status: 500, Message: "boom"}
	}
	all := make([]core.Transaction, p.n)
	for i := range all {
		all[i] = core.Transaction{ID: fmt.Sprint(i)}
	}
	return PageOf(all, f.Page, f.Limit), nil
}

func TestFetchAllKeepsOrder(t *testing.T) {
	l := &pagedLister{n: 250}
	got, err := FetchAll(context.Background(), l, ListFilters{Type: core.Expense}, 3)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 250 || l.calls.Load() != 3 {
		t.Fatalf("got %d items in %d calls", len(got), l.calls.Load())
	}
	for i, tx := range got {
		if tx.ID != fmt.Sprint(i) {
			t.Fatalf("position %d holds %s", i, tx.ID)
		}
	}
}

func TestFetchAllPropagatesErrors(t *testing.T) {
	_, err := FetchAll(context.Background(), &pagedLister{n: 250, fail: 2}, ListFilters{}, 2)
	var re *RemoteError
	if !errors.As(err, &re) || re.Status != 500 {
		t.Fatalf("expected remote error, got %v", err)
	}
}

func TestPageOfEmpty(t *testing.T) {
	res := PageOf(nil, 1, 10)
	if res.Pagination.TotalPages != 0 || res.Pagination.CurrentPage != 1 || res.Transactions == nil {
		t.Fatalf("unexpected empty page: %+v", res)
	}
}
