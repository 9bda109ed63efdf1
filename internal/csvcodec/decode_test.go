package csvcodec

import (
	"errors"
	"strings"
	"testing"
	"time"

	"finboard/internal/core"
)

var fixed = time.Date(2025, 6, 9, 10, 0, 0, 0, time.UTC)

func decode(t *testing.T, text string) Result {
	t.Helper()
	res, err := Decoder{Now: func() time.Time { return fixed }}.Decode(strings.NewReader(text))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return res
}

func TestDecodeHeaderOrPosition(t *testing.T) {
	res := decode(t, "date,description,category,type,amount\n2024-01-15,Groceries,Food,expense,85.50")

	if len(res.Transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(res.Transactions))
	}
	got := res.Transactions[0]
	if got.Category != "Food" || got.Type != core.Expense || got.Amount.Cents != 8550 {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.Date != core.NewDate(2024, 1, 15) {
		t.Fatalf("date = %s", got.Date)
	}
	// No title column: the positional fallback reads column 0.
	if got.Title != "2024-01-15" {
		t.Fatalf("title = %q", got.Title)
	}
	if got.PaymentMethod != core.DefaultPaymentMethod {
		t.Fatalf("payment method = %q", got.PaymentMethod)
	}
}

func TestDecodeFullHeader(t *testing.T) {
	text := "Title, Amount ,TYPE,Category,Description,Date,Payment_Method,Recipient\n" +
		"Salary,3000,Income,Work,January,2024-01-31,Bank Transfer,ACME\n"
	got := decode(t, text).Transactions[0]

	want := core.Transaction{
		Title:         "Salary",
		Amount:        core.Money{Cents: 300000},
		Type:          core.Income,
		Category:      "Work",
		Description:   "January",
		Date:          core.NewDate(2024, 1, 31),
		PaymentMethod: "Bank Transfer",
		Recipient:     "ACME",
	}
	if got != want {
		t.Fatalf("got %+v\nwant %+v", got, want)
	}
}

func TestDecodeEmptyMappedCellFallsBackToPosition(t *testing.T) {
	// "amount" maps to column 3, which is empty; position 1 is used instead.
	res := decode(t, "title,x,type,amount\nCoffee,4.20,expense,\n")
	if got := res.Transactions[0].Amount.Cents; got != 420 {
		t.Fatalf("amount = %d", got)
	}
}

func TestDecodeRejectsShortRows(t *testing.T) {
	text := "title,amount,type,category\n" +
		"Lunch,12,expense,Food\n" +
		"\n" +
		"Broken,5,expense\n" +
		"Rent,900,expense,Home\n"
	res := decode(t, text)
	if len(res.Transactions) != 2 || res.Rejected != 1 || res.Rows != 3 {
		t.Fatalf("transactions=%d rejected=%d rows=%d", len(res.Transactions), res.Rejected, res.Rows)
	}
	if res.Transactions[1].Title != "Rent" {
		t.Fatalf("file order not kept: %+v", res.Transactions)
	}
}

func TestDecodeLenientDefaults(t *testing.T) {
	res := decode(t, "title,amount,type,category,description,date\n,abc,whatever,,,not-a-date\n")
	got := res.Transactions[0]
	if got.Amount.Cents != 0 || got.Type != core.Expense || got.Category != core.DefaultCategory {
		t.Fatalf("defaults not applied: %+v", got)
	}
	if got.Date != core.DateOf(fixed) || got.Title != core.DefaultTitle {
		t.Fatalf("date/title defaults: %+v", got)
	}

	codes := map[core.WarningCode]bool{}
	for _, w := range res.Warnings {
		if w.Line != 2 {
			t.Fatalf("warning line = %d", w.Line)
		}
		codes[w.Code] = true
	}
	for _, c := range []core.WarningCode{core.WarnAmountDefaulted, core.WarnTypeDefaulted, core.WarnCategoryDefaulted, core.WarnDateDefaulted, core.WarnTitleDefaulted} {
		if !codes[c] {
			t.Fatalf("missing warning %s in %+v", c, res.Warnings)
		}
	}
}

func TestDecodeQuotedFields(t *testing.T) {
	text := "title,amount,type,category,description\n" +
		"\"Dinner, with \"\"friends\"\"\",40,expense,Food,\"line one\nline two\"\n"
	got := decode(t, text).Transactions[0]
	if got.Title != `Dinner, with "friends"` {
		t.Fatalf("title = %q", got.Title)
	}
	if got.Description != "line one\nline two" {
		t.Fatalf("description = %q", got.Description)
	}
}

func TestDecodeBOMAndEmptyInput(t *testing.T) {
	res := decode(t, "\xef\xbb\xbftitle,amount,type,category\nTea,2,expense,Food\n")
	if len(res.Transactions) != 1 || res.Transactions[0].Title != "Tea" {
		t.Fatalf("BOM not skipped: %+v", res.Transactions)
	}
	if res := decode(t, ""); len(res.Transactions) != 0 || res.Rows != 0 {
		t.Fatalf("empty input: %+v", res)
	}
	if got := ParseTransactions("title,amount,type,category\nA,1,income,X"); len(got) != 1 {
		t.Fatalf("ParseTransactions: %+v", got)
	}
}

func TestDecodeDetailsWithoutSection(t *testing.T) {
	_, err := DecodeDetails(strings.NewReader("title,amount\nA,1\n"))
	if !errors.Is(err, ErrNoDetails) {
		t.Fatalf("expected ErrNoDetails, got %v", err)
	}
}
