package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"finboard/internal/analytics"
	"finboard/internal/csvcodec"
)

// run executes the command tree with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("AMQP_URL", "")

	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeSeed(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	if err := csvcodec.WriteTemplate(&buf); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "seed.csv")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTemplateCommand(t *testing.T) {
	out, err := run(t, "template")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, strings.Join(csvcodec.TemplateHeader, ",")+"\n") {
		t.Errorf("template output starts with %q", strings.SplitN(out, "\n", 2)[0])
	}
}

func TestImportDryRun(t *testing.T) {
	seed := writeSeed(t)
	out, err := run(t, "import", seed, "--dry-run")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "3 rows: 3 valid, 0 skipped") {
		t.Errorf("output = %q", out)
	}
}

func TestImportIntoMemory(t *testing.T) {
	seed := writeSeed(t)
	out, err := run(t, "import", seed, "--backend", "memory")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Imported 3 transactions") {
		t.Errorf("output = %q", out)
	}
}

func TestSummaryJSON(t *testing.T) {
	seed := writeSeed(t)
	out, err := run(t, "summary", "--seed-csv", seed, "--json", "--series", "calendar")
	if err != nil {
		t.Fatal(err)
	}
	var ov analytics.Overview
	if err := json.Unmarshal([]byte(out), &ov); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if ov.Summary.TransactionCount != 3 {
		t.Errorf("count = %d, want 3", ov.Summary.TransactionCount)
	}
	if got := ov.Summary.TotalExpenses.String(); got != "130.50" {
		t.Errorf("expenses = %s, want 130.50", got)
	}
	if len(ov.Monthly) != 12 {
		t.Errorf("monthly buckets = %d, want 12", len(ov.Monthly))
	}
}

func TestSummaryText(t *testing.T) {
	seed := writeSeed(t)
	out, err := run(t, "summary", "--seed-csv", seed, "--type", "expense", "--currency", "€")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Transactions  2", "€130.50", "Food & Dining"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestExportToFile(t *testing.T) {
	seed := writeSeed(t)
	dest := filepath.Join(t.TempDir(), "out.csv")
	if _, err := run(t, "export", "--seed-csv", seed, "--mode", "month", "--value", "2024-01", "-o", dest); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	res, err := csvcodec.DecodeDetails(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Transactions) != 3 {
		t.Errorf("exported %d transactions, want 3", len(res.Transactions))
	}
}

func TestBadDateFilter(t *testing.T) {
	if _, err := run(t, "summary", "--mode", "month", "--value", "2024"); err == nil {
		t.Error("expected an invalid filter error")
	}
}

func TestBackendFromEnvironment(t *testing.T) {
	t.Setenv("FINBOARD_BACKEND", "mainframe")
	_, err := run(t, "summary")
	if err == nil || !strings.Contains(err.Error(), "invalid data backend") {
		t.Errorf("err = %v, want invalid data backend", err)
	}
}
