// Package csvcodec reads transaction CSV files and writes the three-section
// export report.
//
// Both directions use the RFC 4180 dialect of encoding/csv, so anything the
// encoder quotes is unquoted again by the decoder.
package csvcodec

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"finboard/internal/core"
)

const utf8BOM = "\xef\xbb\xbf"

// ErrNoDetails is returned by DecodeDetails when the input has no details section.
var ErrNoDetails = errors.New("export has no transaction details section")

// MinFields is the smallest number of cells a data row needs to be imported.
const MinFields = 4

// Positional fallbacks used when a column is missing from the header.
const (
	posTitle = iota
	posAmount
	posType
	posCategory
	posDescription
	posDate
	posPaymentMethod
	posRecipient
)

// Result is the outcome of decoding one import file.
type Result struct {
	Transactions []core.Transaction
	Warnings     []core.Warning
	// Rejected counts rows dropped for having fewer than MinFields cells or
	// for being unparsable.
	Rejected int
	// Rows counts non-empty data rows, accepted or not.
	Rows int
}

// Decoder turns import files into normalized transactions.
type Decoder struct {
	// Now is the clock used for rows without a usable date.
	Now func() time.Time
}

// Decode reads r with the default clock.
func Decode(r io.Reader) (Result, error) {
	return Decoder{}.Decode(r)
}

// ParseTransactions decodes CSV text and returns only the accepted records.
func ParseTransactions(text string) []core.Transaction {
	res, _ := Decode(strings.NewReader(text))
	return res.Transactions
}

// Decode treats the first record as the header. Malformed rows never fail
// the import: they are normalized or counted as rejected. The only errors
// returned are read failures of r.
func (d Decoder) Decode(r io.Reader) (Result, error) {
	return d.decodeTable(newReader(r), true)
}

// DecodeDetails reads an export produced by Encode and decodes the rows of
// its TRANSACTION DETAILS section.
func DecodeDetails(r io.Reader) (Result, error) {
	return Decoder{}.DecodeDetails(r)
}

func (d Decoder) DecodeDetails(r io.Reader) (Result, error) {
	cr := newReader(r)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return Result{}, ErrNoDetails
		}
		var perr *csv.ParseError
		if err != nil && !errors.As(err, &perr) {
			return Result{}, fmt.Errorf("read export: %w", err)
		}
		if len(rec) > 0 && strings.TrimSpace(rec[0]) == SectionDetails {
			return d.decodeTable(cr, false)
		}
	}
}

// decodeTable reads a header record followed by data rows. With positional
// set, a missing or empty named cell falls back to its position in the
// default column order; export details are read by header only.
func (d Decoder) decodeTable(cr *csv.Reader, positional bool) (Result, error) {
	var res Result
	norm := core.Normalizer{Now: d.Now}
	var perr *csv.ParseError

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return res, nil
	}
	if err != nil && !errors.As(err, &perr) {
		return res, fmt.Errorf("read header: %w", err)
	}
	cols := headerIndex(header)

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if errors.As(err, &perr) {
				res.Rows++
				res.Rejected++
				continue
			}
			return res, fmt.Errorf("read row: %w", err)
		}
		if blank(rec) {
			continue
		}
		res.Rows++
		if len(rec) < MinFields {
			res.Rejected++
			continue
		}
		line, _ := cr.FieldPos(0)
		tx, warns := norm.Normalize(cols.row(rec, line, positional))
		res.Transactions = append(res.Transactions, tx)
		res.Warnings = append(res.Warnings, warns...)
	}
	return res, nil
}

func newReader(r io.Reader) *csv.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(3); err == nil && string(b) == utf8BOM {
		_, _ = br.Discard(3)
	}
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	return cr
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// columns maps canonical header names to their position.
type columns map[string]int

// canonical folds "Payment Method", "payment_method" and "paymentMethod"
// to the same key.
func canonical(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(name)
}

func headerIndex(header []string) columns {
	cols := make(columns, len(header))
	for i, h := range header {
		key := canonical(h)
		if _, seen := cols[key]; !seen {
			cols[key] = i
		}
	}
	return cols
}

// get returns the cell under the named column. A negative pos disables the
// fallback to the cell at pos when the column is absent or its cell is empty.
func (c columns) get(rec []string, name string, pos int) string {
	if i, ok := c[name]; ok && i < len(rec) {
		if v := strings.TrimSpace(rec[i]); v != "" {
			return v
		}
	}
	if pos >= 0 && pos < len(rec) {
		return strings.TrimSpace(rec[pos])
	}
	return ""
}

func (c columns) row(rec []string, line int, positional bool) core.RawImportRow {
	if !positional {
		return c.byName(rec, line)
	}
	return core.RawImportRow{
		Title:         c.get(rec, "title", posTitle),
		Amount:        c.get(rec, "amount", posAmount),
		Type:          c.get(rec, "type", posType),
		Category:      c.get(rec, "category", posCategory),
		Description:   c.get(rec, "description", posDescription),
		Date:          c.get(rec, "date", posDate),
		PaymentMethod: c.get(rec, "paymentmethod", posPaymentMethod),
		Recipient:     c.get(rec, "recipient", posRecipient),
		Line:          line,
	}
}

func (c columns) byName(rec []string, line int) core.RawImportRow {
	const none = -1
	return core.RawImportRow{
		Title:         c.get(rec, "title", none),
		Amount:        c.get(rec, "amount", none),
		Type:          c.get(rec, "type", none),
		Category:      c.get(rec, "category", none),
		Description:   c.get(rec, "description", none),
		Date:          c.get(rec, "date", none),
		PaymentMethod: c.get(rec, "paymentmethod", none),
		Recipient:     c.get(rec, "recipient", none),
		Line:          line,
	}
}
