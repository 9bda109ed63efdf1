package memory

import (
	"context"
	"fmt"
	"sync"

	"finboard/internal/csvcodec"
	ports "finboard/internal/sheets"
)

// Sink keeps written reports in memory, in write order.
type Sink struct {
	mu      sync.Mutex
	reports [][][]string
}

var _ ports.ReportWriter = (*Sink)(nil)

func New() *Sink {
	return &Sink{}
}

// WriteReport stores the report rows and returns a synthetic range reference.
func (s *Sink) WriteReport(_ context.Context, r csvcodec.Report) (string, error) {
	rows := r.Rows()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, rows)
	return fmt.Sprintf("mem:%d!A1:H%d", len(s.reports), len(rows)), nil
}

// Last returns the rows of the most recent report, or nil.
func (s *Sink) Last() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.reports) == 0 {
		return nil
	}
	return s.reports[len(s.reports)-1]
}

func (s *Sink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}
