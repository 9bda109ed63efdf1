// Package store defines the contract every transaction backend fulfils and
// the errors callers can distinguish.
package store

import (
	"context"
	"strings"

	"finboard/internal/analytics"
	"finboard/internal/core"
)

// Ports for transaction backends.
type (
	Lister interface {
		List(ctx context.Context, f ListFilters) (ListResult, error)
	}

	Writer interface {
		Create(ctx context.Context, t core.Transaction) (core.Transaction, error)
		// Update applies the fields set in req and returns the stored record.
		Update(ctx context.Context, id string, req UpdateRequest) (core.Transaction, error)
		Delete(ctx context.Context, id string) error
		BulkCreate(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error)
	}

	StatisticsReader interface {
		Statistics(ctx context.Context) (analytics.Statistics, error)
	}

	TransactionStore interface {
		Lister
		Writer
		StatisticsReader
	}
)

// ListFilters narrows a List call. Zero values mean "no constraint";
// date bounds are inclusive.
type ListFilters struct {
	StartDate core.Date
	EndDate   core.Date
	Type      core.TransactionType
	Category  string
	Limit     int
	Page      int
}

// Match applies the filters the way the local backends do.
func (f ListFilters) Match(t core.Transaction) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Category != "" && !strings.EqualFold(t.EffectiveCategory(), f.Category) {
		return false
	}
	if f.StartDate.Valid() && (!t.Date.Valid() || t.Date.Before(f.StartDate.Time)) {
		return false
	}
	if f.EndDate.Valid() && (!t.Date.Valid() || t.Date.After(f.EndDate.Time)) {
		return false
	}
	return true
}

type Pagination struct {
	CurrentPage       int `json:"currentPage"`
	TotalPages        int `json:"totalPages"`
	TotalTransactions int `json:"totalTransactions"`
	Limit             int `json:"limit"`
}

type ListResult struct {
	Transactions []core.Transaction `json:"transactions"`
	Pagination   Pagination         `json:"pagination"`
}

// PageOf slices an already filtered and ordered collection the way the
// remote API pages its results.
func PageOf(txs []core.Transaction, page, limit int) ListResult {
	p := analytics.Paginate(txs, page, limit)
	return ListResult{
		Transactions: p.Items,
		Pagination: Pagination{
			CurrentPage:       p.CurrentPage,
			TotalPages:        p.TotalPages,
			TotalTransactions: p.TotalItems,
			Limit:             p.PageSize,
		},
	}
}

// UpdateRequest is a partial record: nil fields are left unchanged.
type UpdateRequest struct {
	Title         *string               `json:"title,omitempty"`
	Amount        *core.Money           `json:"amount,omitempty"`
	Type          *core.TransactionType `json:"type,omitempty"`
	Category      *string               `json:"category,omitempty"`
	Description   *string               `json:"description,omitempty"`
	Date          *core.Date            `json:"date,omitempty"`
	PaymentMethod *string               `json:"paymentMethod,omitempty"`
	Recipient     *string               `json:"recipient,omitempty"`
}

// Empty reports whether the request changes nothing.
func (u UpdateRequest) Empty() bool {
	return u == UpdateRequest{}
}

// Apply returns t with the set fields replaced.
func (u UpdateRequest) Apply(t core.Transaction) core.Transaction {
	if u.Title != nil {
		t.Title = strings.TrimSpace(*u.Title)
	}
	if u.Amount != nil {
		t.Amount = *u.Amount
	}
	if u.Type != nil {
		t.Type = *u.Type
	}
	if u.Category != nil {
		t.Category = strings.TrimSpace(*u.Category)
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Date != nil {
		t.Date = *u.Date
	}
	if u.PaymentMethod != nil {
		t.PaymentMethod = *u.PaymentMethod
	}
	if u.Recipient != nil {
		t.Recipient = *u.Recipient
	}
	return t
}

// Replace builds a request that overwrites every field of a record with t.
func Replace(t core.Transaction) UpdateRequest {
	return UpdateRequest{
		Title:         &t.Title,
		Amount:        &t.Amount,
		Type:          &t.Type,
		Category:      &t.Category,
		Description:   &t.Description,
		Date:          &t.Date,
		PaymentMethod: &t.PaymentMethod,
		Recipient:     &t.Recipient,
	}
}
