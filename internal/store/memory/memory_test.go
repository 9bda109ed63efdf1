package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"finboard/internal/core"
	"finboard/internal/store"
)

func tx(title string, cents int64, typ core.TransactionType, date core.Date) core.Transaction {
	return core.Transaction{Title: title, Amount: core.Money{Cents: cents}, Type: typ, Category: "Food", Date: date}
}

func TestCreateListUpdateDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	a, err := s.Create(ctx, tx("Lunch", 1200, core.Expense, core.NewDate(2024, 1, 5)))
	if err != nil || a.ID == "" || a.CreatedAt == nil {
		t.Fatalf("create: %+v %v", a, err)
	}
	if _, err := s.Create(ctx, tx("Salary", 300000, core.Income, core.NewDate(2024, 1, 31))); err != nil {
		t.Fatalf("create: %v", err)
	}

	res, err := s.List(ctx, store.ListFilters{})
	if err != nil || len(res.Transactions) != 2 || res.Transactions[0].Title != "Salary" {
		t.Fatalf("list should be newest first: %+v %v", res, err)
	}

	title := "Team lunch"
	updated, err := s.Update(ctx, a.ID, store.UpdateRequest{Title: &title})
	if err != nil || updated.Title != "Team lunch" || updated.Amount.Cents != 1200 {
		t.Fatalf("update: %+v %v", updated, err)
	}

	if err := s.Delete(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, a.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
	if _, err := s.Update(ctx, "missing", store.UpdateRequest{Title: &title}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("update missing: %v", err)
	}
}

func TestCreateRejectsInvalid(t *testing.T) {
	_, err := New().Create(context.Background(), tx("", 100, core.Expense, core.NewDate(2024, 1, 1)))
	if !errors.Is(err, core.ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
}

func TestBulkCreateIsAllOrNothing(t *testing.T) {
	s := New()
	_, err := s.BulkCreate(context.Background(), []core.Transaction{
		tx("ok", 100, core.Expense, core.NewDate(2024, 1, 1)),
		tx("bad", -5, core.Expense, core.NewDate(2024, 1, 1)),
	})
	if err == nil || len(s.Snapshot()) != 0 {
		t.Fatalf("expected rejection without partial insert, err=%v", err)
	}
}

func TestListFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	var seed []core.Transaction
	for d := 1; d <= 25; d++ {
		seed = append(seed, tx("day", int64(d), core.Expense, core.NewDate(2024, 3, d)))
	}
	seed = append(seed, tx("april", 1, core.Income, core.NewDate(2024, 4, 1)))
	s := New(seed...)

	res, _ := s.List(ctx, store.ListFilters{
		StartDate: core.NewDate(2024, 3, 1),
		EndDate:   core.NewDate(2024, 3, 31),
		Type:      core.Expense,
		Limit:     10,
		Page:      9,
	})
	if res.Pagination.CurrentPage != 3 || res.Pagination.TotalTransactions != 25 || len(res.Transactions) != 5 {
		t.Fatalf("unexpected page: %+v", res.Pagination)
	}
	if res.Transactions[4].Date != core.NewDate(2024, 3, 1) {
		t.Fatalf("last item should be the oldest: %s", res.Transactions[4].Date)
	}
}

func TestStatisticsAndSeedCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.csv")
	csv := "title,amount,type,category,description,date\nRent,900,expense,Home,,2024-01-01\nPay,2000,income,Work,,2024-01-02\n"
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := NewFromCSV(path)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	st, err := s.Statistics(context.Background())
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if st.Balance.Cents != 110000 || st.TransactionCount != 2 || len(st.CategoryBreakdown) != 1 {
		t.Fatalf("unexpected statistics: %+v", st)
	}

	empty, err := NewFromCSV(filepath.Join(t.TempDir(), "missing.csv"))
	if err != nil || len(empty.Snapshot()) != 0 {
		t.Fatalf("missing seed: %v", err)
	}
}
