package csvcodec

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"finboard/internal/analytics"
	"finboard/internal/core"
)

// ErrExport wraps every failure to produce an export document.
var ErrExport = errors.New("export failed")

// Section titles of the export document.
const (
	SectionSummary    = "TRANSACTION SUMMARY"
	SectionCategories = "CATEGORY BREAKDOWN"
	SectionDetails    = "TRANSACTION DETAILS"
)

// DefaultCurrencySymbol prefixes the money values of the summary sections.
const DefaultCurrencySymbol = "$"

// DetailHeader is the header row of the TRANSACTION DETAILS section.
var DetailHeader = []string{"Date", "Title", "Category", "Type", "Amount", "Description", "Payment Method", "Recipient"}

type ReportOptions struct {
	// ExportDate defaults to the current time.
	ExportDate     time.Time
	CurrencySymbol string
}

// Report is the content of an export, independent of its encoding.
type Report struct {
	ExportDate     core.Date
	DateRange      string
	Summary        core.Summary
	Categories     []core.CategoryAmount
	Transactions   []core.Transaction
	CurrencySymbol string
}

// BuildReport aggregates txs for export. Categories cover both types, in
// first-seen order; transactions keep the given order.
func BuildReport(txs []core.Transaction, opts ReportOptions) Report {
	if opts.ExportDate.IsZero() {
		opts.ExportDate = time.Now()
	}
	if opts.CurrencySymbol == "" {
		opts.CurrencySymbol = DefaultCurrencySymbol
	}
	return Report{
		ExportDate:     core.DateOf(opts.ExportDate),
		DateRange:      analytics.DateRange(txs),
		Summary:        analytics.Summarize(txs),
		Categories:     analytics.CategoryBreakdown(txs, analytics.ScopeAll),
		Transactions:   append([]core.Transaction(nil), txs...),
		CurrencySymbol: opts.CurrencySymbol,
	}
}

// Rows lays the report out as records. Sections are separated by an empty
// record.
func (r Report) Rows() [][]string {
	money := func(m core.Money) string { return r.CurrencySymbol + m.String() }

	rows := [][]string{
		{SectionSummary},
		{"Export Date", r.ExportDate.String()},
		{"Date Range", r.DateRange},
		{"Total Transactions", strconv.Itoa(r.Summary.TransactionCount)},
		{"Total Income", money(r.Summary.TotalIncome)},
		{"Total Expenses", money(r.Summary.TotalExpenses)},
		{"Net Balance", money(r.Summary.Balance)},
		{},
		{SectionCategories},
		{"Category", "Amount"},
	}
	for _, c := range r.Categories {
		rows = append(rows, []string{c.Name, money(c.Amount)})
	}
	rows = append(rows, []string{}, []string{SectionDetails}, DetailHeader)
	for _, t := range r.Transactions {
		rows = append(rows, detailRow(t))
	}
	return rows
}

func detailRow(t core.Transaction) []string {
	return []string{
		t.Date.String(),
		t.Title,
		t.EffectiveCategory(),
		string(t.Type),
		t.Amount.String(),
		t.Description,
		t.PaymentMethod,
		t.Recipient,
	}
}

// Encode writes the report as CSV.
func Encode(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(r.Rows()); err != nil {
		return fmt.Errorf("%w: %w", ErrExport, err)
	}
	return nil
}

// FileName is the download name of an export made at t.
func FileName(t time.Time) string {
	return "transactions-" + t.Format(core.DateLayout) + ".csv"
}
