// Package sheets defines the outbound port for publishing export reports to a
// spreadsheet.
package sheets

import (
	"context"

	"finboard/internal/csvcodec"
)

// Ports for outbound adapters.
type (
	// ReportWriter replaces the content of the export sheet with the report
	// and returns a reference to the written range.
	ReportWriter interface {
		WriteReport(ctx context.Context, r csvcodec.Report) (rangeRef string, err error)
	}
)
