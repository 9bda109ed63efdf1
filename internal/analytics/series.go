package analytics

import (
	"fmt"
	"time"

	"finboard/internal/core"
)

// SeriesMode selects the 12-month window of a monthly series.
type SeriesMode string

const (
	// SeriesRolling covers the 12 months ending with the anchor month.
	SeriesRolling SeriesMode = "rolling"
	// SeriesCalendar covers January to December of the anchor year.
	SeriesCalendar SeriesMode = "calendar"
)

// SeriesLength is the fixed number of buckets in a monthly series.
const SeriesLength = 12

func ParseSeriesMode(s string) SeriesMode {
	if SeriesMode(s) == SeriesCalendar {
		return SeriesCalendar
	}
	return SeriesRolling
}

// MonthlySeries buckets income and expenses by calendar month. It always
// returns SeriesLength buckets, oldest first, with zero-filled months.
// Transactions without a valid date count in Summarize but never here.
func MonthlySeries(txs []core.Transaction, mode SeriesMode, anchor time.Time) []core.MonthBucket {
	var start time.Time
	if mode == SeriesCalendar {
		start = time.Date(anchor.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	} else {
		start = time.Date(anchor.Year(), anchor.Month()-(SeriesLength-1), 1, 0, 0, 0, 0, time.UTC)
	}

	buckets := make([]core.MonthBucket, SeriesLength)
	index := make(map[string]int, SeriesLength)
	for i := range buckets {
		m := start.AddDate(0, i, 0)
		buckets[i] = core.MonthBucket{
			Year:  m.Year(),
			Month: int(m.Month()),
			Label: monthLabel(m, mode),
		}
		index[monthKey(m.Year(), int(m.Month()))] = i
	}

	for _, t := range txs {
		if !t.Date.Valid() {
			continue
		}
		i, ok := index[monthKey(t.Date.Year(), t.Date.Month())]
		if !ok {
			continue
		}
		if t.Type == core.Income {
			buckets[i].Income = buckets[i].Income.Add(t.Amount)
		} else {
			buckets[i].Expenses = buckets[i].Expenses.Add(t.Amount)
		}
	}
	return buckets
}

func monthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// monthLabel is "Mar" for calendar series and "Mar 24" for rolling ones,
// where a window can span two years.
func monthLabel(m time.Time, mode SeriesMode) string {
	if mode == SeriesCalendar {
		return m.Format("Jan")
	}
	return m.Format("Jan 06")
}
