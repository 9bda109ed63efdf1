package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finboard/internal/core"
)

func bufferLogger(component string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := New(Config{
		Component: component,
		Handler:   slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
	return l, &buf
}

func TestLogFields(t *testing.T) {
	f := NewFields().
		WithComponent(ComponentImport).
		WithImport(3, 1, 2).
		WithError(errors.New("boom")).
		WithError(nil)

	if f[FieldComponent] != ComponentImport || f[FieldImported] != 3 || f[FieldRejected] != 1 || f[FieldWarnings] != 2 {
		t.Fatalf("unexpected fields: %v", f)
	}
	if f[FieldError] != "boom" {
		t.Fatalf("nil error must not clear the field: %v", f[FieldError])
	}
	if got := len(f.ToSlice()); got != 2*len(f) {
		t.Fatalf("ToSlice length = %d", got)
	}
}

func TestWithTransactionOmitsEmptyID(t *testing.T) {
	f := NewFields().WithTransaction("", "Lunch", "expense", "Food", 1250)
	if _, ok := f[FieldTransactionID]; ok {
		t.Fatal("empty id should be omitted")
	}
	if f[FieldAmountCents] != int64(1250) {
		t.Fatalf("amount = %v", f[FieldAmountCents])
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	l, buf := bufferLogger(ComponentWorker)
	l.Info("hello", "k", "v")
	out := buf.String()
	if !strings.Contains(out, "component=worker") || !strings.Contains(out, "k=v") {
		t.Fatalf("output: %s", out)
	}
}

func TestComponentLoggedOnce(t *testing.T) {
	l, buf := bufferLogger(ComponentApp)
	l.WithComponent(ComponentWorker).With("job_id", "j1").Warn("retry")
	l.With(FieldRequestID, "r1").WithComponent(ComponentHTTP).Info("served")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines: %q", lines)
	}
	for i, want := range []string{"component=worker", "component=http"} {
		if n := strings.Count(lines[i], "component="); n != 1 || !strings.Contains(lines[i], want) {
			t.Errorf("line %d has %d component keys, want one %s: %s", i, n, want, lines[i])
		}
	}
	if !strings.Contains(lines[0], "job_id=j1") || !strings.Contains(lines[1], "request_id=r1") {
		t.Fatalf("attributes lost: %q", lines)
	}
}

func TestConfigFormats(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: FormatJSON, Component: ComponentImport, Output: &buf, Level: slog.LevelWarn})
	l.Info("dropped")
	l.Warn("kept", "n", 2)
	if out := buf.String(); strings.Contains(out, "dropped") || !strings.Contains(out, `"component":"import"`) {
		t.Fatalf("json output: %s", out)
	}

	tests := []struct {
		in   string
		want Format
	}{
		{"", FormatText},
		{"JSON", FormatJSON},
		{"terminal", FormatTerminal},
		{"xml", FormatText},
	}
	for _, tt := range tests {
		if got := ParseFormat(tt.in); got != tt.want {
			t.Errorf("ParseFormat(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
	if ParseLevel("debug") != slog.LevelDebug || ParseLevel("loud") != slog.LevelInfo {
		t.Error("ParseLevel")
	}
}

func TestStructuredLogger(t *testing.T) {
	l, buf := bufferLogger(ComponentApp)
	sl := NewStructuredLogger(l)
	ctx := context.Background()

	sl.LogTransactionChanged(ctx, OpCreate, core.Transaction{ID: "t1", Title: "Rent", Type: core.Expense, Amount: core.Money{Cents: 90000}})
	sl.LogImport(ctx, 5, 1, 2)
	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	sl.LogHTTPEnd(ctx, req, http.StatusBadGateway, 12, "1.2.3.4")

	out := buf.String()
	for _, want := range []string{
		`msg="Transaction created"`, "transaction_id=t1", "category=Other",
		`msg="CSV import completed"`, "imported=5",
		"level=ERROR", "status_code=502",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if strings.Count(line, "component=") != 1 {
			t.Errorf("component repeated: %s", line)
		}
	}
}

func TestMiddlewareStoresLogger(t *testing.T) {
	l, buf := bufferLogger(ComponentHTTP)
	var got *Logger
	h := Middleware(l)(RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = FromContext(r.Context())
			got.Info("inside")
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got == nil || !strings.Contains(buf.String(), "request_id=req-1") {
		t.Fatalf("request id not propagated: %s", buf.String())
	}
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatal("missing logger should fall back to the default")
	}
}

func TestTerminalHandler(t *testing.T) {
	var buf bytes.Buffer
	l := New(TerminalConfig(&buf, ComponentApp, false))
	l.Debug("hidden")
	l.Info("shown", "n", 1)
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") || !strings.Contains(out, "finboard") {
		t.Fatalf("terminal output: %q", out)
	}
	if charmLevel(slog.LevelError+4) != charmLevel(slog.LevelError) {
		t.Fatal("levels above error map to error")
	}
}
