package core

import (
	"testing"
	"time"
)

func fixedNow() time.Time {
	return time.Date(2025, 6, 9, 15, 4, 5, 0, time.Local)
}

func hasWarning(ws []Warning, code WarningCode) bool {
	for _, w := range ws {
		if w.Code == code {
			return true
		}
	}
	return false
}

func TestNormalizeCompleteRow(t *testing.T) {
	n := Normalizer{Now: fixedNow}
	tx, warns := n.Normalize(RawImportRow{
		Title:         "Salary",
		Amount:        "3000.00",
		Type:          "Income",
		Category:      "Work",
		Description:   "June",
		Date:          "2025-06-01",
		PaymentMethod: "Bank",
		Recipient:     "Me",
	})
	if len(warns) != 0 {
		t.Fatalf("expected no warnings, got %+v", warns)
	}
	if tx.Type != Income || tx.Amount.Cents != 300000 || tx.Date.String() != "2025-06-01" {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
	if err := tx.Validate(); err != nil {
		t.Fatalf("normalized row must validate: %v", err)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	n := Normalizer{Now: fixedNow}
	tx, warns := n.Normalize(RawImportRow{Amount: "abc", Line: 7})

	if tx.Amount.Cents != 0 {
		t.Fatalf("unparsable amount should become 0, got %d", tx.Amount.Cents)
	}
	if tx.Type != Expense {
		t.Fatalf("missing type should become expense, got %s", tx.Type)
	}
	if tx.Category != DefaultCategory || tx.PaymentMethod != DefaultPaymentMethod || tx.Title != DefaultTitle {
		t.Fatalf("unexpected defaults: %+v", tx)
	}
	if tx.Date.String() != "2025-06-09" {
		t.Fatalf("missing date should become today, got %s", tx.Date)
	}
	for _, code := range []WarningCode{WarnTitleDefaulted, WarnAmountDefaulted, WarnTypeDefaulted, WarnCategoryDefaulted, WarnDateDefaulted, WarnPaymentMethodDefaulted} {
		if !hasWarning(warns, code) {
			t.Fatalf("missing warning %s in %+v", code, warns)
		}
	}
	for _, w := range warns {
		if w.Line != 7 {
			t.Fatalf("warning should carry source line: %+v", w)
		}
	}
	if err := tx.Validate(); err != nil {
		t.Fatalf("defaulted row must still validate: %v", err)
	}
}

func TestNormalizeCoercions(t *testing.T) {
	n := Normalizer{Now: fixedNow}

	tx, warns := n.Normalize(RawImportRow{Title: "x", Amount: "-20.5", Type: "EXPENSE", Category: "c", Date: "2024-13-01", PaymentMethod: "Card"})
	if tx.Amount.Cents != 2050 || !hasWarning(warns, WarnAmountNegative) {
		t.Fatalf("negative amount should be stored as magnitude: %d %+v", tx.Amount.Cents, warns)
	}
	if hasWarning(warns, WarnTypeDefaulted) {
		t.Fatalf("upper-case type is not a default: %+v", warns)
	}
	if !hasWarning(warns, WarnDateDefaulted) || tx.Date.String() != "2025-06-09" {
		t.Fatalf("invalid date should default to today: %s", tx.Date)
	}

	tx, _ = n.Normalize(RawImportRow{Title: "x", Amount: "12.99 EUR", Type: "transfer"})
	if tx.Amount.Cents != 1299 || tx.Type != Expense {
		t.Fatalf("unexpected coercion: %+v", tx)
	}
}

func TestNormalizeAmountOutOfRange(t *testing.T) {
	n := Normalizer{Now: fixedNow}
	for _, raw := range []string{"1e17", "-1e17", "92233720368547758.08"} {
		tx, warns := n.Normalize(RawImportRow{Title: "Big", Amount: raw, Type: "expense", Category: "Food"})
		if tx.Amount.Cents != 0 || !hasWarning(warns, WarnAmountDefaulted) {
			t.Fatalf("%s: amount=%d warnings=%+v", raw, tx.Amount.Cents, warns)
		}
		if err := tx.Validate(); err != nil {
			t.Fatalf("%s: normalized row must validate: %v", raw, err)
		}
	}
	tx, _ := n.Normalize(RawImportRow{Title: "Large", Amount: "1e15", Type: "expense", Category: "Food"})
	if tx.Amount.Cents != 1e17 {
		t.Fatalf("in-range amount: got %d", tx.Amount.Cents)
	}
}
