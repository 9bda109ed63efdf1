package core

import (
	"strings"
	"time"
)

// DefaultTitle replaces a blank title on import.
const DefaultTitle = "Untitled"

// RawImportRow is a transaction as it arrives from a form or a CSV row,
// before any field is interpreted.
type RawImportRow struct {
	Title         string
	Amount        string
	Type          string
	Category      string
	Description   string
	Date          string
	PaymentMethod string
	Recipient     string

	// Line is the 1-based source line, 0 when the row did not come from a file.
	Line int
}

type WarningCode string

const (
	WarnTitleDefaulted         WarningCode = "title_defaulted"
	WarnAmountDefaulted        WarningCode = "amount_defaulted"
	WarnAmountNegative         WarningCode = "amount_negative"
	WarnTypeDefaulted          WarningCode = "type_defaulted"
	WarnCategoryDefaulted      WarningCode = "category_defaulted"
	WarnDateDefaulted          WarningCode = "date_defaulted"
	WarnPaymentMethodDefaulted WarningCode = "payment_method_defaulted"
)

// Warning records a field that Normalize had to default or coerce.
type Warning struct {
	Line  int         `json:"line,omitempty"`
	Field string      `json:"field"`
	Code  WarningCode `json:"code"`
	Value string      `json:"value,omitempty"`
}

// Normalizer turns raw rows into fully populated transactions.
// Now supplies "today" for rows without a usable date.
type Normalizer struct {
	Now func() time.Time
}

// Normalize applies the import defaults using the local clock.
func Normalize(raw RawImportRow) (Transaction, []Warning) {
	return Normalizer{}.Normalize(raw)
}

// Normalize never fails: every malformed field is replaced by its default and
// reported as a warning, so callers decide whether to surface them.
func (n Normalizer) Normalize(raw RawImportRow) (Transaction, []Warning) {
	var warns []Warning
	warn := func(field string, code WarningCode, value string) {
		warns = append(warns, Warning{Line: raw.Line, Field: field, Code: code, Value: value})
	}

	t := Transaction{
		Title:       strings.TrimSpace(raw.Title),
		Description: strings.TrimSpace(raw.Description),
		Recipient:   strings.TrimSpace(raw.Recipient),
	}

	if t.Title == "" {
		t.Title = DefaultTitle
		warn("title", WarnTitleDefaulted, raw.Title)
	}

	if f, ok := parseFloatPrefix(raw.Amount); ok {
		t.Amount = MoneyFromFloat(f)
		if t.Amount.Cents < 0 {
			t.Amount = t.Amount.Abs()
			warn("amount", WarnAmountNegative, raw.Amount)
		}
	} else {
		warn("amount", WarnAmountDefaulted, raw.Amount)
	}

	t.Type = ParseTransactionType(raw.Type)
	if !strings.EqualFold(strings.TrimSpace(raw.Type), string(t.Type)) {
		warn("type", WarnTypeDefaulted, raw.Type)
	}

	t.Category = strings.TrimSpace(raw.Category)
	if t.Category == "" {
		t.Category = DefaultCategory
		warn("category", WarnCategoryDefaulted, raw.Category)
	}

	if d, err := ParseDate(raw.Date); err == nil {
		t.Date = d
	} else {
		t.Date = DateOf(n.now())
		warn("date", WarnDateDefaulted, raw.Date)
	}

	t.PaymentMethod = strings.TrimSpace(raw.PaymentMethod)
	if t.PaymentMethod == "" {
		t.PaymentMethod = DefaultPaymentMethod
		warn("paymentMethod", WarnPaymentMethodDefaulted, raw.PaymentMethod)
	}

	return t, warns
}

func (n Normalizer) now() time.Time {
	if n.Now != nil {
		return n.Now()
	}
	return time.Now()
}
