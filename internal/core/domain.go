package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// DefaultCategory is used whenever a transaction carries no category.
const DefaultCategory = "Other"

// DefaultPaymentMethod is applied to imported rows without a payment method.
const DefaultPaymentMethod = "Cash"

// DateLayout is the canonical wire and CSV representation of a Date.
const DateLayout = "2006-01-02"

type (
	TransactionType string

	// Date is a calendar date. The zero value means "missing or unparsable".
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Transaction struct {
		ID            string          `json:"_id,omitempty"`
		Title         string          `json:"title"`
		Amount        Money           `json:"amount"`
		Type          TransactionType `json:"type"`
		Category      string          `json:"category"`
		Description   string          `json:"description,omitempty"`
		Date          Date            `json:"date"`
		PaymentMethod string          `json:"paymentMethod,omitempty"`
		Recipient     string          `json:"recipient,omitempty"`
		CreatedAt     *time.Time      `json:"createdAt,omitempty"`
		UpdatedAt     *time.Time      `json:"updatedAt,omitempty"`
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrInvalidDate   = errors.New("invalid date")
	ErrEmptyTitle    = errors.New("empty title")
	ErrTitleTooLong  = errors.New("title too long (max 200 characters)")
)

var dateLayouts = []string{
	DateLayout,
	"2006/01/02",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate accepts the date shapes produced by the remote store, the
// dashboard forms and the CSV exports. Calendar components are kept as written.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, ErrInvalidDate
}

// Valid reports whether the date carries a real calendar day.
func (d Date) Valid() bool {
	return !d.IsZero()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// String renders the date as YYYY-MM-DD, or "" when missing.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON never fails on a malformed date: the value becomes the zero
// Date and is left out of date-bucketed aggregations.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		*d = Date{}
		return nil
	}
	*d = parsed
	return nil
}

// ParseTransactionType maps "income" (any case) to Income and everything else to Expense.
func ParseTransactionType(s string) TransactionType {
	if strings.EqualFold(strings.TrimSpace(s), string(Income)) {
		return Income
	}
	return Expense
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// EffectiveCategory returns the category used for grouping and export.
func (t Transaction) EffectiveCategory() string {
	if c := strings.TrimSpace(t.Category); c != "" {
		return c
	}
	return DefaultCategory
}

// Signed returns the amount with the sign implied by the transaction type.
func (t Transaction) Signed() Money {
	if t.Type == Income {
		return t.Amount
	}
	return Money{Cents: -t.Amount.Cents}
}

// Validate is the strict check applied by stores before persisting a record.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if len(t.Title) > 200 {
		return ErrTitleTooLong
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if !t.Date.Valid() {
		return ErrInvalidDate
	}
	return nil
}

// Validate rejects negative amounts; zero is a legal magnitude.
func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*m = Money{}
		return nil
	}
	var s string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	} else {
		s = string(b)
	}
	f, ok := parseFloatPrefix(s)
	if !ok {
		return ErrInvalidAmount
	}
	*m = MoneyFromFloat(f)
	return nil
}
