package google

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"finboard/internal/core"
	"finboard/internal/csvcodec"

	goption "google.golang.org/api/option"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{})
	if !errors.Is(err, ErrMissingSpreadsheet) {
		t.Fatalf("expected ErrMissingSpreadsheet, got %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Options{SpreadsheetID: "id"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Options{
		SpreadsheetID:   "id",
		CredentialsFile: filepath.Join(t.TempDir(), "missing.json"),
	})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCredentialsPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sa.json")
	if err := os.WriteFile(file, []byte(`{"from":"file"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	got, err := credentials(ctx, Options{CredentialsJSON: `{"from":"inline"}`, CredentialsFile: file})
	if err != nil || string(got) != `{"from":"inline"}` {
		t.Fatalf("inline should win: %s %v", got, err)
	}
	got, err = credentials(ctx, Options{CredentialsFile: file})
	if err != nil || string(got) != `{"from":"file"}` {
		t.Fatalf("file: %s %v", got, err)
	}
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", file)
	got, err = credentials(ctx, Options{})
	if err != nil || string(got) != `{"from":"file"}` {
		t.Fatalf("application default path: %s %v", got, err)
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base     string
		year     int
		expected string
	}{
		{"Export", 2024, "2024 Export"},
		{"2023 Export", 2024, "2023 Export"},
		{"  Export  ", 2025, "2025 Export"},
		{"", 2024, ""},
		{"1800 Export", 2024, "2024 1800 Export"},
	}
	for _, tt := range tests {
		got := yearPrefixedName(tt.base, tt.year)
		if got != tt.expected {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.expected)
		}
	}
}

type sheetsCall struct {
	method string
	path   string
	query  string
	body   string
}

func TestWriteReport(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []sheetsCall
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, sheetsCall{r.Method, r.URL.Path, r.URL.RawQuery, string(body)})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, ":clear") {
			_ = json.NewEncoder(w).Encode(map[string]any{"clearedRange": "'2024 Export'!A1:Z100"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"updatedRange": "'2024 Export'!A1:H15", "updatedRows": 15})
	}))
	defer srv.Close()

	c, err := New(context.Background(), Options{
		SpreadsheetID: "sheet-1",
		ClientOptions: []goption.ClientOption{
			goption.WithEndpoint(srv.URL + "/"),
			goption.WithHTTPClient(srv.Client()),
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	txs := []core.Transaction{
		{Title: "Lunch", Amount: core.Money{Cents: 1250}, Type: core.Expense, Category: "Food", Date: core.NewDate(2024, 3, 2)},
	}
	report := csvcodec.BuildReport(txs, csvcodec.ReportOptions{ExportDate: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)})

	ref, err := c.WriteReport(context.Background(), report)
	if err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	if ref != "'2024 Export'!A1:H15" {
		t.Errorf("ref = %q", ref)
	}

	if len(calls) != 2 {
		t.Fatalf("expected clear + update, got %+v", calls)
	}
	if calls[0].method != http.MethodPost || !strings.Contains(calls[0].path, "sheet-1/values/2024 Export!A:Z:clear") {
		t.Errorf("clear call: %+v", calls[0])
	}
	upd := calls[1]
	if upd.method != http.MethodPut || !strings.Contains(upd.path, "2024 Export!A1") || !strings.Contains(upd.query, "valueInputOption=USER_ENTERED") {
		t.Errorf("update call: %+v", upd)
	}
	var vr struct {
		Values [][]string `json:"values"`
	}
	if err := json.Unmarshal([]byte(upd.body), &vr); err != nil {
		t.Fatalf("decode update body: %v", err)
	}
	if len(vr.Values) != len(report.Rows()) || vr.Values[0][0] != csvcodec.SectionSummary {
		t.Errorf("unexpected values: %v", vr.Values)
	}
	last := vr.Values[len(vr.Values)-1]
	if last[1] != "Lunch" || last[4] != "12.50" {
		t.Errorf("detail row: %v", last)
	}
}

func TestWriteReport_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"denied"}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := New(context.Background(), Options{
		SpreadsheetID: "sheet-1",
		ClientOptions: []goption.ClientOption{goption.WithEndpoint(srv.URL + "/"), goption.WithHTTPClient(srv.Client())},
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.WriteReport(context.Background(), csvcodec.Report{ExportDate: core.NewDate(2024, 1, 1)})
	if err == nil || !strings.Contains(err.Error(), "clear 2024 Export!A:Z") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestToValuesKeepsBlankSeparator(t *testing.T) {
	got := toValues([][]string{{"a", "b"}, {}, {"c"}})
	if len(got) != 3 || len(got[1]) != 1 || got[1][0] != "" || got[0][1] != "b" {
		t.Fatalf("toValues = %v", got)
	}
}
