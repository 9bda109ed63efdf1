// Package storage is the SQLite transaction store.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"finboard/internal/analytics"
	"finboard/internal/core"
	"finboard/internal/store"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var _ store.TransactionStore = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	dsn := dbPath + "?_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db), now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) List(ctx context.Context, f store.ListFilters) (store.ListResult, error) {
	filter := toFilter(f)
	total, err := r.queries.CountTransactions(ctx, filter)
	if err != nil {
		return store.ListResult{}, fmt.Errorf("count transactions: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = analytics.DefaultPageSize
	}
	pages := (int(total) + limit - 1) / limit
	page := f.Page
	if page > pages {
		page = pages
	}
	if page < 1 {
		page = 1
	}

	rows, err := r.queries.ListTransactions(ctx, filter, limit, (page-1)*limit)
	if err != nil {
		return store.ListResult{}, fmt.Errorf("list transactions: %w", err)
	}
	txs := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		txs = append(txs, fromRow(row))
	}
	return store.ListResult{
		Transactions: txs,
		Pagination: store.Pagination{
			CurrentPage:       page,
			TotalPages:        pages,
			TotalTransactions: int(total),
			Limit:             limit,
		},
	}, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	row := r.newRow(t)
	if err := r.queries.InsertTransaction(ctx, row); err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"component", "storage",
		"id", row.ID,
		"type", row.Type,
		"amount_cents", row.AmountCents,
		"date", row.Date)
	return fromRow(row), nil
}

func (r *SQLiteRepository) Update(ctx context.Context, id string, req store.UpdateRequest) (core.Transaction, error) {
	var out core.Transaction
	err := r.inTx(ctx, func(q *Queries) error {
		row, err := q.GetTransaction(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("update %s: %w", id, store.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get transaction: %w", err)
		}
		t := req.Apply(fromRow(row))
		if err := t.Validate(); err != nil {
			return err
		}
		updated := toRow(t)
		updated.ID, updated.CreatedAt = row.ID, row.CreatedAt
		updated.UpdatedAt = r.now().UTC().Format(time.RFC3339Nano)
		if _, err := q.UpdateTransaction(ctx, updated); err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		out = fromRow(updated)
		return nil
	})
	return out, err
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	n, err := r.queries.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete %s: %w", id, store.ErrNotFound)
	}
	slog.InfoContext(ctx, "Transaction deleted from SQLite", "component", "storage", "id", id)
	return nil
}

// BulkCreate stores every record in one database transaction.
func (r *SQLiteRepository) BulkCreate(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error) {
	for i, t := range txs {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
	}
	out := make([]core.Transaction, 0, len(txs))
	err := r.inTx(ctx, func(q *Queries) error {
		for _, t := range txs {
			row := r.newRow(t)
			if err := q.InsertTransaction(ctx, row); err != nil {
				return fmt.Errorf("insert transaction: %w", err)
			}
			out = append(out, fromRow(row))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Transactions bulk saved to SQLite", "component", "storage", "count", len(out))
	return out, nil
}

func (r *SQLiteRepository) Statistics(ctx context.Context) (analytics.Statistics, error) {
	rows, err := r.queries.ListTransactions(ctx, TransactionFilter{}, 0, 0)
	if err != nil {
		return analytics.Statistics{}, fmt.Errorf("list transactions: %w", err)
	}
	txs := make([]core.Transaction, len(rows))
	for i, row := range rows {
		txs[i] = fromRow(row)
	}
	return analytics.ComputeStatistics(txs, r.now(), 5), nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) newRow(t core.Transaction) TransactionRow {
	row := toRow(t)
	row.ID = uuid.NewString()
	now := r.now().UTC().Format(time.RFC3339Nano)
	row.CreatedAt, row.UpdatedAt = now, now
	return row
}

func toFilter(f store.ListFilters) TransactionFilter {
	return TransactionFilter{
		StartDate: f.StartDate.String(),
		EndDate:   f.EndDate.String(),
		Type:      string(f.Type),
		Category:  f.Category,
	}
}

func toRow(t core.Transaction) TransactionRow {
	return TransactionRow{
		ID:            t.ID,
		Title:         t.Title,
		AmountCents:   t.Amount.Cents,
		Type:          string(t.Type),
		Category:      t.Category,
		Description:   t.Description,
		Date:          t.Date.String(),
		PaymentMethod: t.PaymentMethod,
		Recipient:     t.Recipient,
	}
}

func fromRow(row TransactionRow) core.Transaction {
	d, _ := core.ParseDate(row.Date)
	t := core.Transaction{
		ID:            row.ID,
		Title:         row.Title,
		Amount:        core.Money{Cents: row.AmountCents},
		Type:          core.TransactionType(row.Type),
		Category:      row.Category,
		Description:   row.Description,
		Date:          d,
		PaymentMethod: row.PaymentMethod,
		Recipient:     row.Recipient,
	}
	if ts, err := time.Parse(time.RFC3339Nano, row.CreatedAt); err == nil {
		t.CreatedAt = &ts
	}
	if ts, err := time.Parse(time.RFC3339Nano, row.UpdatedAt); err == nil {
		t.UpdatedAt = &ts
	}
	return t
}
