// Package analytics computes the derived, read-only views of a transaction
// collection: totals, category breakdowns, monthly series, filtered pages.
//
// Every function is pure: inputs are never mutated and results depend only on
// the arguments, so callers may memoize them by snapshot.
package analytics

import (
	"sort"
	"time"

	"finboard/internal/core"
)

// Scope selects which transaction types a category breakdown sums.
type Scope string

const (
	ScopeAll     Scope = "all"
	ScopeExpense Scope = "expense"
	ScopeIncome  Scope = "income"
)

// ParseScope maps a query value to a Scope, defaulting to ScopeExpense.
func ParseScope(s string) Scope {
	switch Scope(s) {
	case ScopeAll, ScopeIncome:
		return Scope(s)
	default:
		return ScopeExpense
	}
}

func (s Scope) includes(t core.TransactionType) bool {
	switch s {
	case ScopeExpense:
		return t == core.Expense
	case ScopeIncome:
		return t == core.Income
	default:
		return true
	}
}

// Summarize computes income, expense and balance totals.
func Summarize(txs []core.Transaction) core.Summary {
	var s core.Summary
	for _, t := range txs {
		if t.Type == core.Income {
			s.TotalIncome = s.TotalIncome.Add(t.Amount)
		} else {
			s.TotalExpenses = s.TotalExpenses.Add(t.Amount)
		}
	}
	s.Balance = s.TotalIncome.Sub(s.TotalExpenses)
	s.TransactionCount = len(txs)
	return s
}

// CategoryBreakdown sums amounts per category in first-seen order.
// Transactions without a category are grouped under "Other".
func CategoryBreakdown(txs []core.Transaction, scope Scope) []core.CategoryAmount {
	index := map[string]int{}
	var out []core.CategoryAmount
	for _, t := range txs {
		if !scope.includes(t.Type) {
			continue
		}
		name := t.EffectiveCategory()
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, core.CategoryAmount{Name: name})
		}
		out[i].Amount = out[i].Amount.Add(t.Amount)
		out[i].Count++
	}
	return out
}

// SortByAmount returns a copy ordered by amount descending. The sort is
// stable, so equal amounts keep their first-seen order.
func SortByAmount(in []core.CategoryAmount) []core.CategoryAmount {
	out := append([]core.CategoryAmount(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.Cents > out[j].Amount.Cents
	})
	return out
}

// Top keeps at most n entries; n <= 0 keeps everything.
func Top(in []core.CategoryAmount, n int) []core.CategoryAmount {
	if n <= 0 || len(in) <= n {
		return in
	}
	return in[:n]
}

// RecentTransactions returns the n most recent transactions with a valid date,
// newest first. Ties keep input order.
func RecentTransactions(txs []core.Transaction, n int) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if t.Date.Valid() {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date.Time)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// DateRange describes the span of valid dates in txs, e.g.
// "2024-01-13 - 2024-01-15".
func DateRange(txs []core.Transaction) string {
	var first, last core.Date
	for _, t := range txs {
		if !t.Date.Valid() {
			continue
		}
		if !first.Valid() || t.Date.Before(first.Time) {
			first = t.Date
		}
		if !last.Valid() || t.Date.After(last.Time) {
			last = t.Date
		}
	}
	if !first.Valid() {
		return "No transactions"
	}
	return first.String() + " - " + last.String()
}

// Statistics mirrors the payload of the remote statistics endpoint so local
// stores can serve it from their own data.
type Statistics struct {
	core.Summary
	MonthlyIncome      core.Money            `json:"monthlyIncome"`
	MonthlyExpenses    core.Money            `json:"monthlyExpenses"`
	CategoryBreakdown  []core.CategoryAmount `json:"categoryBreakdown"`
	RecentTransactions []core.Transaction    `json:"recentTransactions"`
}

// ComputeStatistics builds Statistics with monthly totals for the calendar
// month containing now and an expense breakdown sorted by amount.
func ComputeStatistics(txs []core.Transaction, now time.Time, recent int) Statistics {
	st := Statistics{
		Summary:            Summarize(txs),
		CategoryBreakdown:  SortByAmount(CategoryBreakdown(txs, ScopeExpense)),
		RecentTransactions: RecentTransactions(txs, recent),
	}
	month := Criteria{Date: DateFilter{Mode: ModeMonth, Year: now.Year(), Month: int(now.Month())}}
	current := Summarize(Filter(txs, month))
	st.MonthlyIncome = current.TotalIncome
	st.MonthlyExpenses = current.TotalExpenses
	return st
}
