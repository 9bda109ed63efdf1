// Package remote implements the transaction store contract against the
// dashboard's REST API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"finboard/internal/analytics"
	"finboard/internal/core"
	"finboard/internal/session"
	"finboard/internal/store"
)

const (
	pathTransactions = "/api/transactions"
	pathBulk         = "/api/transactions/bulk"
	pathStatistics   = "/api/transactions/statistics"

	// maxBody caps how much of a response is read.
	maxBody = 10 << 20
)

// Fallback messages used when a failed response carries none.
const (
	msgList       = "Failed to fetch transactions"
	msgCreate     = "Failed to create transaction"
	msgUpdate     = "Failed to update transaction"
	msgDelete     = "Failed to delete transaction"
	msgBulk       = "Failed to bulk create transactions"
	msgStatistics = "Failed to fetch statistics"
)

// envelope is the wrapper every API response uses.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// Client is a store.TransactionStore backed by the REST API. Every request
// carries the bearer token of the session it was built with. Calls are never
// retried.
type Client struct {
	baseURL string
	http    *http.Client
	session *session.Session
	logger  *slog.Logger
}

var _ store.TransactionStore = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func New(baseURL string, sess *session.Session, opts ...Option) *Client {
	if sess == nil {
		sess = session.New("")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		session: sess,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) List(ctx context.Context, f store.ListFilters) (store.ListResult, error) {
	var out store.ListResult
	err := c.do(ctx, "list", http.MethodGet, pathTransactions, listQuery(f), nil, &out, msgList)
	if err != nil {
		return store.ListResult{}, err
	}
	if out.Transactions == nil {
		out.Transactions = []core.Transaction{}
	}
	return out, nil
}

func (c *Client) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	var out core.Transaction
	if err := c.do(ctx, "create", http.MethodPost, pathTransactions, nil, createBody(t), &out, msgCreate); err != nil {
		return core.Transaction{}, err
	}
	return out, nil
}

func (c *Client) Update(ctx context.Context, id string, req store.UpdateRequest) (core.Transaction, error) {
	var out core.Transaction
	if err := c.do(ctx, "update", http.MethodPut, transactionPath(id), nil, req, &out, msgUpdate); err != nil {
		return core.Transaction{}, err
	}
	return out, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, "delete", http.MethodDelete, transactionPath(id), nil, nil, nil, msgDelete)
}

func (c *Client) BulkCreate(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error) {
	body := struct {
		Transactions []core.Transaction `json:"transactions"`
	}{Transactions: make([]core.Transaction, len(txs))}
	for i, t := range txs {
		body.Transactions[i] = createBody(t)
	}
	var out []core.Transaction
	if err := c.do(ctx, "bulk_create", http.MethodPost, pathBulk, nil, body, &out, msgBulk); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Statistics(ctx context.Context) (analytics.Statistics, error) {
	var out analytics.Statistics
	if err := c.do(ctx, "statistics", http.MethodGet, pathStatistics, nil, nil, &out, msgStatistics); err != nil {
		return analytics.Statistics{}, err
	}
	return out, nil
}

// createBody strips the fields the server assigns.
func createBody(t core.Transaction) core.Transaction {
	t.ID = ""
	t.CreatedAt, t.UpdatedAt = nil, nil
	return t
}

func transactionPath(id string) string {
	return pathTransactions + "/" + url.PathEscape(id)
}

func listQuery(f store.ListFilters) url.Values {
	q := url.Values{}
	if f.StartDate.Valid() {
		q.Set("startDate", f.StartDate.String())
	}
	if f.EndDate.Valid() {
		q.Set("endDate", f.EndDate.String())
	}
	if f.Type != "" {
		q.Set("type", string(f.Type))
	}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	return q
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any, fallback string) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if tok := c.session.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("Remote call failed", "operation", op, "error", err)
		return &store.RemoteError{Op: op, Message: fallback, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return &store.RemoteError{Op: op, Status: resp.StatusCode, Message: fallback, Err: err}
	}

	var env envelope
	var decodeErr error
	if len(bytes.TrimSpace(raw)) > 0 {
		decodeErr = json.Unmarshal(raw, &env)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Error("Remote call rejected credential", "operation", op, "status_code", resp.StatusCode)
		return fmt.Errorf("%s: %w", op, store.ErrAuthRequired)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fallback
		switch {
		case env.Message != "":
			msg = env.Message
		case env.Error != "":
			msg = env.Error
		}
		re := &store.RemoteError{Op: op, Status: resp.StatusCode, Message: msg}
		if resp.StatusCode == http.StatusNotFound {
			re.Err = store.ErrNotFound
		}
		c.logger.Error("Remote call failed", "operation", op, "status_code", resp.StatusCode, "message", msg)
		return re
	}
	if decodeErr != nil {
		return &store.RemoteError{Op: op, Status: resp.StatusCode, Message: fallback, Err: fmt.Errorf("decode response: %w", decodeErr)}
	}

	c.logger.Debug("Remote call completed", "operation", op, "status_code", resp.StatusCode, "duration", time.Since(start))

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &store.RemoteError{Op: op, Status: resp.StatusCode, Message: fallback, Err: fmt.Errorf("decode data: %w", err)}
	}
	return nil
}
