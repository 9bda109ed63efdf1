package csvcodec

import (
	"encoding/csv"
	"fmt"
	"io"
)

// TemplateHeader lists the import columns in their positional order.
var TemplateHeader = []string{"title", "amount", "type", "category", "description", "date", "paymentmethod", "recipient"}

var templateRows = [][]string{
	{"Grocery Shopping", "85.50", "expense", "Food & Dining", "Weekly groceries", "2024-01-15", "Card", "Supermarket"},
	{"Salary", "3000.00", "income", "Income", "January salary", "2024-01-14", "Bank Transfer", "Employer"},
	{"Gas Station", "45.00", "expense", "Transportation", "", "2024-01-13", "Cash", ""},
}

// WriteTemplate writes a sample import file.
func WriteTemplate(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TemplateHeader); err != nil {
		return fmt.Errorf("write template: %w", err)
	}
	if err := cw.WriteAll(templateRows); err != nil {
		return fmt.Errorf("write template: %w", err)
	}
	return nil
}
