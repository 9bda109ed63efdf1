// Package worker runs the queued side of CSV imports.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/analytics"
	"finboard/internal/csvcodec"
	"finboard/internal/services"
	"finboard/internal/sheets"
	"finboard/internal/store"
)

// Importer stores the rows of one CSV document.
type Importer interface {
	ImportText(ctx context.Context, csv string) (services.ImportReport, error)
}

// ReportSource builds the export report mirrored after each import.
type ReportSource interface {
	ExportReport(ctx context.Context, c analytics.Criteria, opts csvcodec.ReportOptions) (csvcodec.Report, error)
}

// ImportWorker handles import jobs from the queue and, when a sheet mirror is
// configured, republishes the full export report after every import. The
// import event comes from the Importer's own change notification.
type ImportWorker struct {
	importer Importer
	reports  ReportSource
	mirror   sheets.ReportWriter
	now      func() time.Time
}

type Option func(*ImportWorker)

// WithSheetMirror writes the export report of src to dst after each import.
func WithSheetMirror(src ReportSource, dst sheets.ReportWriter) Option {
	return func(w *ImportWorker) {
		w.reports = src
		w.mirror = dst
	}
}

func NewImportWorker(importer Importer, opts ...Option) *ImportWorker {
	w := &ImportWorker{importer: importer, now: time.Now}
	for _, o := range opts {
		o(w)
	}
	return w
}

// HandleImportJob processes a single import job message. Authentication
// failures are permanent: retrying cannot succeed until the session is renewed.
func (w *ImportWorker) HandleImportJob(ctx context.Context, msg *amqp.ImportJobMessage) error {
	slog.InfoContext(ctx, "Processing import job",
		"component", "worker",
		"job_id", msg.JobID,
		"filename", msg.Filename,
		"queued_for", w.now().Sub(msg.SubmittedAt).Round(time.Millisecond))

	report, err := w.importer.ImportText(ctx, msg.CSV)
	if err != nil {
		if errors.Is(err, store.ErrAuthRequired) {
			return fmt.Errorf("import job %s: %w: %w", msg.JobID, amqp.ErrPermanent, err)
		}
		return fmt.Errorf("import job %s: %w", msg.JobID, err)
	}

	slog.InfoContext(ctx, "Import job completed",
		"component", "worker",
		"job_id", msg.JobID,
		"imported", report.Imported,
		"rejected", report.Rejected,
		"warnings", len(report.Warnings))

	if report.Imported > 0 {
		w.mirrorReport(ctx, msg.JobID)
	}
	return nil
}

// mirrorReport failures never fail the job: the rows are already stored.
func (w *ImportWorker) mirrorReport(ctx context.Context, jobID string) {
	if w.mirror == nil || w.reports == nil {
		return
	}
	report, err := w.reports.ExportReport(ctx, analytics.Criteria{}, csvcodec.ReportOptions{ExportDate: w.now()})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to build report for sheet mirror", "component", "worker", "job_id", jobID, "error", err)
		return
	}
	ref, err := w.mirror.WriteReport(ctx, report)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to mirror report to sheets", "component", "worker", "job_id", jobID, "error", err)
		return
	}
	slog.InfoContext(ctx, "Mirrored report to sheets", "component", "worker", "job_id", jobID, "range", ref)
}
