package analytics

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"finboard/internal/core"
)

// DateMode selects how a DateFilter matches transaction dates.
type DateMode string

const (
	ModeAll   DateMode = "all"
	ModeMonth DateMode = "month"
	ModeYear  DateMode = "year"
	ModeRange DateMode = "range"
)

var ErrInvalidFilter = errors.New("invalid date filter")

// DateFilter is one of the mutually exclusive date predicates.
// Month mode uses Year+Month, year mode uses Year, range mode uses Start/End
// inclusively.
type DateFilter struct {
	Mode  DateMode
	Year  int
	Month int
	Start core.Date
	End   core.Date
}

// ParseDateFilter builds a DateFilter from the query-string shape used by the
// dashboard: value "2024-03" for month mode, "2024" for year mode, start/end
// dates for range mode. An empty mode means ModeAll.
func ParseDateFilter(mode, value, start, end string) (DateFilter, error) {
	value = strings.TrimSpace(value)
	switch DateMode(strings.ToLower(strings.TrimSpace(mode))) {
	case "", ModeAll:
		return DateFilter{Mode: ModeAll}, nil
	case ModeMonth:
		y, m, ok := strings.Cut(value, "-")
		if !ok {
			return DateFilter{}, fmt.Errorf("%w: month value %q must be YYYY-MM", ErrInvalidFilter, value)
		}
		year, err1 := strconv.Atoi(y)
		month, err2 := strconv.Atoi(m)
		if err1 != nil || err2 != nil || month < 1 || month > 12 {
			return DateFilter{}, fmt.Errorf("%w: month value %q must be YYYY-MM", ErrInvalidFilter, value)
		}
		return DateFilter{Mode: ModeMonth, Year: year, Month: month}, nil
	case ModeYear:
		year, err := strconv.Atoi(value)
		if err != nil {
			return DateFilter{}, fmt.Errorf("%w: year value %q", ErrInvalidFilter, value)
		}
		return DateFilter{Mode: ModeYear, Year: year}, nil
	case ModeRange:
		f := DateFilter{Mode: ModeRange}
		if strings.TrimSpace(start) != "" {
			d, err := core.ParseDate(start)
			if err != nil {
				return DateFilter{}, fmt.Errorf("%w: start date %q", ErrInvalidFilter, start)
			}
			f.Start = d
		}
		if strings.TrimSpace(end) != "" {
			d, err := core.ParseDate(end)
			if err != nil {
				return DateFilter{}, fmt.Errorf("%w: end date %q", ErrInvalidFilter, end)
			}
			f.End = d
		}
		return f, nil
	default:
		return DateFilter{}, fmt.Errorf("%w: unknown mode %q", ErrInvalidFilter, mode)
	}
}

// Match reports whether d passes the filter. Records without a valid date
// only pass ModeAll. A range missing either bound does not filter.
func (f DateFilter) Match(d core.Date) bool {
	switch f.Mode {
	case ModeMonth:
		return d.Valid() && d.Year() == f.Year && d.Month() == f.Month
	case ModeYear:
		return d.Valid() && d.Year() == f.Year
	case ModeRange:
		if !f.Start.Valid() || !f.End.Valid() {
			return true
		}
		return d.Valid() && !d.Before(f.Start.Time) && !d.After(f.End.Time)
	default:
		return true
	}
}

// Key is a stable textual form used for memoization.
func (f DateFilter) Key() string {
	switch f.Mode {
	case ModeMonth:
		return fmt.Sprintf("month:%04d-%02d", f.Year, f.Month)
	case ModeYear:
		return fmt.Sprintf("year:%04d", f.Year)
	case ModeRange:
		return "range:" + f.Start.String() + ".." + f.End.String()
	default:
		return "all"
	}
}

// Criteria combines the text search, type and date predicates of a filtered
// view. A transaction is included only when all three pass.
type Criteria struct {
	Search string
	// Type is empty for "all types".
	Type core.TransactionType
	Date DateFilter
}

// ParseTypeFilter maps "income"/"expense" to a type and anything else to all types.
func ParseTypeFilter(s string) core.TransactionType {
	switch core.TransactionType(strings.ToLower(strings.TrimSpace(s))) {
	case core.Income:
		return core.Income
	case core.Expense:
		return core.Expense
	default:
		return ""
	}
}

func (c Criteria) Match(t core.Transaction) bool {
	return c.matchSearch(t) && c.matchType(t) && c.Date.Match(t.Date)
}

func (c Criteria) matchSearch(t core.Transaction) bool {
	q := strings.ToLower(strings.TrimSpace(c.Search))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Title), q) ||
		strings.Contains(strings.ToLower(t.Category), q) ||
		strings.Contains(strings.ToLower(t.Description), q)
}

func (c Criteria) matchType(t core.Transaction) bool {
	return c.Type == "" || t.Type == c.Type
}

func (c Criteria) Key() string {
	return fmt.Sprintf("q=%s|t=%s|d=%s", strings.ToLower(strings.TrimSpace(c.Search)), c.Type, c.Date.Key())
}

// Filter returns the transactions matching c, in input order, as a new slice.
func Filter(txs []core.Transaction, c Criteria) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if c.Match(t) {
			out = append(out, t)
		}
	}
	return out
}
