package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"finboard/internal/core"
	"finboard/internal/session"
	"finboard/internal/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, session.New("secret-token"), WithLogger(quietLogger()))
}

func writeEnvelope(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": status < 300, "message": "ok", "data": data})
}

func TestListSendsFiltersAndToken(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/transactions" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret-token" {
			t.Errorf("authorization = %q", got)
		}
		q := r.URL.Query()
		if q.Get("startDate") != "2024-01-01" || q.Get("type") != "expense" || q.Get("page") != "2" || q.Get("limit") != "5" {
			t.Errorf("query = %v", q)
		}
		if q.Has("endDate") || q.Has("category") {
			t.Errorf("unset filters sent: %v", q)
		}
		writeEnvelope(w, http.StatusOK, map[string]any{
			"transactions": []map[string]any{
				{"_id": "a1", "title": "Lunch", "amount": 12.5, "type": "expense", "category": "Food", "date": "2024-01-03T00:00:00.000Z"},
			},
			"pagination": map[string]any{"currentPage": 2, "totalPages": 3, "totalTransactions": 11, "limit": 5},
		})
	})

	res, err := c.List(context.Background(), store.ListFilters{
		StartDate: core.NewDate(2024, 1, 1), Type: core.Expense, Page: 2, Limit: 5,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(res.Transactions) != 1 || res.Pagination.TotalTransactions != 11 {
		t.Fatalf("unexpected result: %+v", res)
	}
	got := res.Transactions[0]
	if got.ID != "a1" || got.Amount.Cents != 1250 || got.Date != core.NewDate(2024, 1, 3) {
		t.Fatalf("decoded transaction: %+v", got)
	}
}

func TestUnauthorizedIsAuthRequired(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, nil)
	})
	for name, call := range map[string]func() error{
		"list":       func() error { _, err := c.List(context.Background(), store.ListFilters{}); return err },
		"create":     func() error { _, err := c.Create(context.Background(), core.Transaction{Title: "x"}); return err },
		"delete":     func() error { return c.Delete(context.Background(), "1") },
		"statistics": func() error { _, err := c.Statistics(context.Background()); return err },
	} {
		err := call()
		if !errors.Is(err, store.ErrAuthRequired) {
			t.Fatalf("%s: expected ErrAuthRequired, got %v", name, err)
		}
		if store.UserMessage(err) != store.AuthMessage {
			t.Fatalf("%s: message = %q", name, store.UserMessage(err))
		}
	}
}

func TestRemoteErrorMessages(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"message field", 400, `{"success":false,"message":"Title is required"}`, "Title is required"},
		{"error field", 500, `{"success":false,"error":"db down"}`, "db down"},
		{"fallback", 502, `<html>bad gateway</html>`, "Failed to create transaction"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})
			_, err := c.Create(context.Background(), core.Transaction{Title: "x"})
			var re *store.RemoteError
			if !errors.As(err, &re) {
				t.Fatalf("expected RemoteError, got %v", err)
			}
			if re.Status != tc.status || re.Message != tc.want || re.Op != "create" {
				t.Fatalf("unexpected error: %+v", re)
			}
		})
	}
}

func TestNotFoundWrapsSentinel(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/transactions/a%2Fb" && r.URL.RawPath != "/api/transactions/a%2Fb" {
			t.Errorf("id not escaped: %s", r.URL.EscapedPath())
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"success":false,"message":"Transaction not found"}`)
	})
	title := "new"
	_, err := c.Update(context.Background(), "a/b", store.UpdateRequest{Title: &title})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := New(srv.URL, nil, WithLogger(quietLogger()))

	_, err := c.Statistics(context.Background())
	var re *store.RemoteError
	if !errors.As(err, &re) || re.Status != 0 || re.Message != "Failed to fetch statistics" {
		t.Fatalf("expected transport RemoteError, got %v", err)
	}
}

func TestUpdateSendsOnlySetFields(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if len(body) != 1 || body["amount"] != 9.99 {
			t.Errorf("body = %v", body)
		}
		writeEnvelope(w, http.StatusOK, map[string]any{"_id": "1", "title": "t", "amount": 9.99, "type": "expense", "category": "c", "date": "2024-01-01"})
	})
	amount := core.Money{Cents: 999}
	got, err := c.Update(context.Background(), "1", store.UpdateRequest{Amount: &amount})
	if err != nil || got.Amount.Cents != 999 {
		t.Fatalf("update: %+v %v", got, err)
	}
}

func TestBulkCreateAndDelete(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/transactions/bulk":
			var body struct {
				Transactions []map[string]any `json:"transactions"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			if len(body.Transactions) != 2 {
				t.Errorf("bulk body = %+v", body)
			}
			if _, ok := body.Transactions[0]["_id"]; ok {
				t.Errorf("client-side id sent")
			}
			writeEnvelope(w, http.StatusCreated, body.Transactions)
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	})
	got, err := c.BulkCreate(context.Background(), []core.Transaction{
		{ID: "local", Title: "a", Type: core.Expense, Date: core.NewDate(2024, 1, 1)},
		{Title: "b", Type: core.Income, Date: core.NewDate(2024, 1, 2)},
	})
	if err != nil || len(got) != 2 || got[1].Type != core.Income {
		t.Fatalf("bulk: %+v %v", got, err)
	}
	if err := c.Delete(context.Background(), "1"); err != nil {
		t.Fatalf("delete with empty body: %v", err)
	}
}

func TestFetchAllAgainstServer(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]bool{}
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		mu.Lock()
		seen[r.URL.Query().Get("page")] = true
		mu.Unlock()
		txs := []map[string]any{}
		for i := 0; i < 2; i++ {
			txs = append(txs, map[string]any{"_id": fmt.Sprintf("%d-%d", page, i), "title": "t", "amount": 1, "type": "expense", "date": "2024-01-01"})
		}
		writeEnvelope(w, http.StatusOK, map[string]any{
			"transactions": txs,
			"pagination":   map[string]any{"currentPage": page, "totalPages": 4, "totalTransactions": 8, "limit": 2},
		})
	})
	got, err := store.FetchAll(context.Background(), c, store.ListFilters{Limit: 2}, 2)
	if err != nil {
		t.Fatalf("fetch all: %v", err)
	}
	if len(got) != 8 || got[0].ID != "1-0" || got[7].ID != "4-1" || len(seen) != 4 {
		t.Fatalf("unexpected: %d items, first %s, pages %v", len(got), got[0].ID, seen)
	}
}
