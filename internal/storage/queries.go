package storage

import (
	"context"
	"database/sql"
	"strings"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// TransactionRow mirrors one row of the transactions table.
type TransactionRow struct {
	ID            string
	Title         string
	AmountCents   int64
	Type          string
	Category      string
	Description   string
	Date          string
	PaymentMethod string
	Recipient     string
	CreatedAt     string
	UpdatedAt     string
}

const transactionColumns = `id, title, amount_cents, type, category, description, date, payment_method, recipient, created_at, updated_at`

func scanTransaction(row interface{ Scan(...any) error }) (TransactionRow, error) {
	var t TransactionRow
	err := row.Scan(&t.ID, &t.Title, &t.AmountCents, &t.Type, &t.Category, &t.Description,
		&t.Date, &t.PaymentMethod, &t.Recipient, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

const insertTransaction = `INSERT INTO transactions (` + transactionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertTransaction(ctx context.Context, t TransactionRow) error {
	_, err := q.db.ExecContext(ctx, insertTransaction,
		t.ID, t.Title, t.AmountCents, t.Type, t.Category, t.Description,
		t.Date, t.PaymentMethod, t.Recipient, t.CreatedAt, t.UpdatedAt)
	return err
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id string) (TransactionRow, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
}

const updateTransaction = `UPDATE transactions
SET title = ?, amount_cents = ?, type = ?, category = ?, description = ?, date = ?,
    payment_method = ?, recipient = ?, updated_at = ?
WHERE id = ?`

func (q *Queries) UpdateTransaction(ctx context.Context, t TransactionRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransaction,
		t.Title, t.AmountCents, t.Type, t.Category, t.Description, t.Date,
		t.PaymentMethod, t.Recipient, t.UpdatedAt, t.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// TransactionFilter holds the optional predicates of a list query. Empty
// strings disable a predicate; dates are YYYY-MM-DD and inclusive.
type TransactionFilter struct {
	StartDate string
	EndDate   string
	Type      string
	Category  string
}

func (f TransactionFilter) where() (string, []any) {
	var conds []string
	var args []any
	if f.StartDate != "" {
		conds = append(conds, "date >= ?")
		args = append(args, f.StartDate)
	}
	if f.EndDate != "" {
		conds = append(conds, "date <= ?")
		args = append(args, f.EndDate)
	}
	if f.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, f.Type)
	}
	if f.Category != "" {
		conds = append(conds, "lower(CASE WHEN category = '' THEN 'Other' ELSE category END) = lower(?)")
		args = append(args, f.Category)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (q *Queries) CountTransactions(ctx context.Context, f TransactionFilter) (int64, error) {
	where, args := f.where()
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&n)
	return n, err
}

// ListTransactions returns matching rows newest first; ties keep insertion
// order. A limit <= 0 returns every row.
func (q *Queries) ListTransactions(ctx context.Context, f TransactionFilter, limit, offset int) ([]TransactionRow, error) {
	where, args := f.where()
	query := `SELECT ` + transactionColumns + ` FROM transactions` + where + ` ORDER BY date DESC, rowid ASC`
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TransactionRow
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
