// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// filter criteria, pagination and transaction bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"finboard/internal/analytics"
	"finboard/internal/core"
	"finboard/internal/store"
)

// maxBodyBytes bounds JSON and form bodies; CSV uploads use maxUploadBytes.
const (
	maxBodyBytes   = 1 << 20
	maxUploadBytes = 10 << 20
)

var errInvalidInput = errors.New("invalid input")

// ParseCriteria reads the filter query parameters shared by the list,
// aggregation and export endpoints:
//
//	q          search text (title, category, description)
//	type       income | expense | anything else for all types
//	dateMode   all | month | year | range
//	dateValue  2024-03 for month mode, 2024 for year mode
//	startDate, endDate  range bounds
func ParseCriteria(query url.Values) (analytics.Criteria, error) {
	df, err := analytics.ParseDateFilter(
		query.Get("dateMode"),
		query.Get("dateValue"),
		query.Get("startDate"),
		query.Get("endDate"),
	)
	if err != nil {
		return analytics.Criteria{}, err
	}
	return analytics.Criteria{
		Search: sanitizeInput(query.Get("q")),
		Type:   analytics.ParseTypeFilter(query.Get("type")),
		Date:   df,
	}, nil
}

// PageParams holds the parsed page and limit query values.
type PageParams struct {
	Page  int
	Limit int
}

// ParsePageParams extracts page and limit, falling back to page 1 and
// defaultLimit. Out-of-range pages are clamped later by pagination.
func ParsePageParams(query url.Values, defaultLimit int) PageParams {
	params := PageParams{Page: 1, Limit: defaultLimit}
	if v, ok := parsePositive(query.Get("page")); ok {
		params.Page = v
	}
	if v, ok := parsePositive(query.Get("limit")); ok {
		params.Limit = v
	}
	return params
}

// parseTop reads the optional top-N cut of a category breakdown.
func parseTop(query url.Values) int {
	v, _ := parsePositive(query.Get("top"))
	return v
}

func parsePositive(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: malformed JSON body", errInvalidInput)
			return p.err
		}
		return nil
	}

	// Fall back to form parsing
	p.formData, p.err = url.ParseQuery(string(p.body))
	if p.err != nil {
		p.err = fmt.Errorf("%w: malformed form body", errInvalidInput)
	}
	return p.err
}

// Has reports whether key was present in the body, even with an empty value.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	if p.formData != nil {
		_, ok := p.formData[key]
		return ok
	}
	return false
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// GetRaw returns the raw body bytes.
func (p *RequestBodyParser) GetRaw() []byte {
	return p.body
}

// ContentType returns the Content-Type header value.
func (p *RequestBodyParser) ContentType() string {
	return p.contentType
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseTransaction builds a new transaction from a create body. Unlike CSV
// import, manual entry is strict: a malformed amount or date is rejected
// instead of defaulted. A missing date means today.
func ParseTransaction(p *RequestBodyParser, today core.Date) (core.Transaction, error) {
	if err := p.Parse(); err != nil {
		return core.Transaction{}, err
	}
	cents, err := core.ParseDecimalToCents(p.Get("amount"))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount %q: %w", p.Get("amount"), core.ErrInvalidAmount)
	}
	typ, err := parseType(p.Get("type"))
	if err != nil {
		return core.Transaction{}, err
	}
	date := today
	if v := p.Get("date"); v != "" {
		if date, err = core.ParseDate(v); err != nil {
			return core.Transaction{}, fmt.Errorf("date %q: %w", v, core.ErrInvalidDate)
		}
	}
	t := core.Transaction{
		Title:         p.Get("title"),
		Amount:        core.Money{Cents: cents},
		Type:          typ,
		Category:      p.Get("category"),
		Description:   p.Get("description"),
		Date:          date,
		PaymentMethod: p.Get("paymentMethod"),
		Recipient:     p.Get("recipient"),
	}
	if t.Category == "" {
		t.Category = core.DefaultCategory
	}
	if t.PaymentMethod == "" {
		t.PaymentMethod = core.DefaultPaymentMethod
	}
	return t, nil
}

// ParseUpdate builds a partial update from the fields present in the body.
func ParseUpdate(p *RequestBodyParser) (store.UpdateRequest, error) {
	if err := p.Parse(); err != nil {
		return store.UpdateRequest{}, err
	}
	var req store.UpdateRequest
	str := func(key string) *string {
		if !p.Has(key) {
			return nil
		}
		v := p.Get(key)
		return &v
	}
	req.Title = str("title")
	req.Category = str("category")
	req.Description = str("description")
	req.PaymentMethod = str("paymentMethod")
	req.Recipient = str("recipient")

	if p.Has("amount") {
		cents, err := core.ParseDecimalToCents(p.Get("amount"))
		if err != nil {
			return store.UpdateRequest{}, fmt.Errorf("amount %q: %w", p.Get("amount"), core.ErrInvalidAmount)
		}
		req.Amount = &core.Money{Cents: cents}
	}
	if p.Has("type") {
		typ, err := parseType(p.Get("type"))
		if err != nil {
			return store.UpdateRequest{}, err
		}
		req.Type = &typ
	}
	if p.Has("date") {
		d, err := core.ParseDate(p.Get("date"))
		if err != nil {
			return store.UpdateRequest{}, fmt.Errorf("date %q: %w", p.Get("date"), core.ErrInvalidDate)
		}
		req.Date = &d
	}
	if req.Title != nil && *req.Title == "" {
		return store.UpdateRequest{}, core.ErrEmptyTitle
	}
	return req, nil
}

// parseType accepts only the two known types; an empty value means expense.
func parseType(s string) (core.TransactionType, error) {
	switch core.TransactionType(strings.ToLower(s)) {
	case "", core.Expense:
		return core.Expense, nil
	case core.Income:
		return core.Income, nil
	default:
		return "", fmt.Errorf("type %q: %w", s, core.ErrInvalidType)
	}
}
