package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"finboard/internal/amqp"
	"finboard/internal/analytics"
	"finboard/internal/core"
	"finboard/internal/csvcodec"
	"finboard/internal/store"
)

var (
	// ErrQueueDisabled is returned by SubmitImport when no job queue is configured.
	ErrQueueDisabled = errors.New("import queue not configured")
	// ErrEmptyUpdate rejects an update that sets no field.
	ErrEmptyUpdate = errors.New("update sets no field")
)

// Publishers for the optional message queue.
type (
	EventPublisher interface {
		PublishEvent(ctx context.Context, msg *amqp.TransactionEventMessage) error
	}

	ImportJobPublisher interface {
		PublishImportJob(ctx context.Context, msg *amqp.ImportJobMessage) error
	}
)

// ImportReport summarizes one CSV import.
type ImportReport struct {
	Imported     int                `json:"imported"`
	Rejected     int                `json:"rejected"`
	Rows         int                `json:"rows"`
	Warnings     []core.Warning     `json:"warnings,omitempty"`
	Transactions []core.Transaction `json:"transactions,omitempty"`
}

// TransactionService handles the write side: single-record changes and CSV
// imports. Every successful change invalidates the dashboard snapshot and is
// announced on the event publisher when one is set.
type TransactionService struct {
	store    store.TransactionStore
	events   EventPublisher
	jobs     ImportJobPublisher
	decoder  csvcodec.Decoder
	onChange func()
}

type TransactionOption func(*TransactionService)

func WithEvents(p EventPublisher) TransactionOption {
	return func(s *TransactionService) { s.events = p }
}

func WithImportQueue(p ImportJobPublisher) TransactionOption {
	return func(s *TransactionService) { s.jobs = p }
}

// WithOnChange registers a callback run after every successful change.
func WithOnChange(fn func()) TransactionOption {
	return func(s *TransactionService) { s.onChange = fn }
}

func WithDecoder(d csvcodec.Decoder) TransactionOption {
	return func(s *TransactionService) { s.decoder = d }
}

func NewTransactionService(st store.TransactionStore, opts ...TransactionOption) *TransactionService {
	s := &TransactionService{store: st}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	created, err := s.store.Create(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	s.changed(ctx, amqp.NewTransactionEvent(amqp.EventCreated, created.ID, 1))
	return created, nil
}

func (s *TransactionService) Update(ctx context.Context, id string, req store.UpdateRequest) (core.Transaction, error) {
	if req.Empty() {
		return core.Transaction{}, fmt.Errorf("update %s: %w", id, ErrEmptyUpdate)
	}
	updated, err := s.store.Update(ctx, id, req)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.changed(ctx, amqp.NewTransactionEvent(amqp.EventUpdated, id, 1))
	return updated, nil
}

func (s *TransactionService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.changed(ctx, amqp.NewTransactionEvent(amqp.EventDeleted, id, 1))
	return nil
}

// Import decodes a CSV file and stores the accepted rows in one bulk call.
// Malformed fields are defaulted and short rows dropped; only read and store
// failures are errors.
func (s *TransactionService) Import(ctx context.Context, r io.Reader) (ImportReport, error) {
	res, err := s.decoder.Decode(r)
	if err != nil {
		return ImportReport{}, fmt.Errorf("decode import: %w", err)
	}
	report := ImportReport{Rejected: res.Rejected, Rows: res.Rows, Warnings: res.Warnings}

	for _, w := range res.Warnings {
		slog.DebugContext(ctx, "Import field defaulted",
			"component", "import",
			"line", w.Line,
			"field", w.Field,
			"code", w.Code)
	}
	if len(res.Transactions) == 0 {
		slog.InfoContext(ctx, "Import contained no usable rows", "component", "import", "rejected", res.Rejected)
		return report, nil
	}

	created, err := s.store.BulkCreate(ctx, res.Transactions)
	if err != nil {
		return report, fmt.Errorf("store import: %w", err)
	}
	report.Imported = len(created)
	report.Transactions = created

	slog.InfoContext(ctx, "Import completed",
		"component", "import",
		"imported", report.Imported,
		"rejected", report.Rejected,
		"warnings", len(report.Warnings))
	s.changed(ctx, amqp.NewTransactionEvent(amqp.EventImported, "", report.Imported))
	return report, nil
}

// ImportText is Import over an in-memory CSV document.
func (s *TransactionService) ImportText(ctx context.Context, csv string) (ImportReport, error) {
	return s.Import(ctx, strings.NewReader(csv))
}

// SubmitImport queues a CSV document for the import worker and returns the
// job id.
func (s *TransactionService) SubmitImport(ctx context.Context, filename, csv string) (string, error) {
	if s.jobs == nil {
		return "", ErrQueueDisabled
	}
	msg := amqp.NewImportJobMessage(filename, csv)
	if err := s.jobs.PublishImportJob(ctx, msg); err != nil {
		return "", fmt.Errorf("queue import: %w", err)
	}
	return msg.JobID, nil
}

// Statistics returns the store's own statistics payload.
func (s *TransactionService) Statistics(ctx context.Context) (analytics.Statistics, error) {
	return s.store.Statistics(ctx)
}

func (s *TransactionService) changed(ctx context.Context, ev *amqp.TransactionEventMessage) {
	if s.onChange != nil {
		s.onChange()
	}
	if s.events == nil {
		return
	}
	if err := s.events.PublishEvent(ctx, ev); err != nil {
		// The change is already stored; a lost event is only logged.
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"component", "amqp",
			"action", ev.Action,
			"error", err)
	}
}
