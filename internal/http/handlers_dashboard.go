package http

import (
	"net/http"

	"finboard/internal/analytics"
	"finboard/internal/log"
)

// handleSummary returns the dashboard overview of the filtered view: totals,
// the sorted expense breakdown, the monthly series and the date range.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	c, err := ParseCriteria(r.URL.Query())
	if err != nil {
		FromError(err).Write(w)
		return
	}
	mode := analytics.ParseSeriesMode(r.URL.Query().Get("series"))
	ov, err := s.deps.Dashboard.Overview(r.Context(), c, mode)
	if err != nil {
		s.fail(w, r, "Failed to build summary", err, log.OpRead)
		return
	}
	NewJSONResponse().Data(ov).Write(w)
}

// handleCategories returns the category breakdown. scope is expense (the
// default), income or all; top cuts the sorted list.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c, err := ParseCriteria(q)
	if err != nil {
		FromError(err).Write(w)
		return
	}
	cats, err := s.deps.Dashboard.Categories(r.Context(), c, analytics.ParseScope(q.Get("scope")), parseTop(q))
	if err != nil {
		s.fail(w, r, "Failed to build category breakdown", err, log.OpRead)
		return
	}
	NewJSONResponse().Data(cats).Write(w)
}

// handleMonthly returns the twelve-bucket income/expense series.
func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	c, err := ParseCriteria(r.URL.Query())
	if err != nil {
		FromError(err).Write(w)
		return
	}
	mode := analytics.ParseSeriesMode(r.URL.Query().Get("series"))
	buckets, err := s.deps.Dashboard.Monthly(r.Context(), c, mode)
	if err != nil {
		s.fail(w, r, "Failed to build monthly series", err, log.OpRead)
		return
	}
	NewJSONResponse().Data(buckets).Write(w)
}
