package http

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"finboard/internal/csvcodec"
	"finboard/internal/log"
)

// handleImport stores the rows of an uploaded CSV. The file comes either as
// the "file" part of a multipart form or as the raw request body. With
// ?async=true the document is queued for the import worker instead.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	name, body, err := s.readUpload(w, r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	defer body.Close()

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		data, err := io.ReadAll(body)
		if err != nil {
			BadRequestError("Failed to read upload").Write(w)
			return
		}
		jobID, err := s.deps.Transactions.SubmitImport(r.Context(), name, string(data))
		if err != nil {
			s.fail(w, r, "Failed to queue import", err, log.OpImport)
			return
		}
		log.FromContext(r.Context()).InfoContext(r.Context(), "Import queued",
			log.FieldJobID, jobID,
			log.FieldOperation, log.OpImport)
		NewJSONResponse().
			Status(http.StatusAccepted).
			Message("Import queued").
			Data(map[string]string{"jobId": jobID}).
			Write(w)
		return
	}

	report, err := s.deps.Transactions.Import(r.Context(), body)
	if err != nil {
		s.fail(w, r, "Failed to import transactions", err, log.OpImport)
		return
	}
	s.count(&s.appMetrics.imported, report.Imported)
	s.logger.LogImport(r.Context(), report.Imported, report.Rejected, len(report.Warnings))
	NewJSONResponse().
		Message(fmt.Sprintf("Imported %d transactions", report.Imported)).
		Data(report).
		Write(w)
}

func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, io.ReadCloser, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return "upload.csv", r.Body, nil
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", nil, fmt.Errorf("invalid multipart upload")
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		return "", nil, fmt.Errorf("missing file field")
	}
	return hdr.Filename, f, nil
}

// handleImportTemplate serves a sample CSV in the import layout.
func (s *Server) handleImportTemplate(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := csvcodec.WriteTemplate(&buf); err != nil {
		s.fail(w, r, "Failed to write import template", err, log.OpExport)
		return
	}
	writeCSV(w, "transaction-template.csv", buf.Bytes())
}

// handleExportCSV downloads the three-section report of the filtered view.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	c, err := ParseCriteria(r.URL.Query())
	if err != nil {
		FromError(err).Write(w)
		return
	}
	report, err := s.deps.Dashboard.ExportReport(r.Context(), c, csvcodec.ReportOptions{
		ExportDate:     s.now(),
		CurrencySymbol: s.deps.CurrencySymbol,
	})
	if err != nil {
		s.fail(w, r, "Failed to build export", err, log.OpExport)
		return
	}
	// Encode fully before writing so a failure can still become a JSON error.
	var buf bytes.Buffer
	if err := csvcodec.Encode(&buf, report); err != nil {
		s.fail(w, r, "Failed to encode export", err, log.OpExport)
		return
	}
	s.count(&s.appMetrics.exports, 1)
	log.FromContext(r.Context()).InfoContext(r.Context(), "CSV export served",
		log.FieldOperation, log.OpExport,
		"transactions", len(report.Transactions))
	writeCSV(w, csvcodec.FileName(s.now()), buf.Bytes())
}

// handleExportSheets writes the same report to the configured spreadsheet.
func (s *Server) handleExportSheets(w http.ResponseWriter, r *http.Request) {
	if s.deps.Sheets == nil {
		ServiceUnavailableError("Google Sheets export is not configured").Write(w)
		return
	}
	c, err := ParseCriteria(r.URL.Query())
	if err != nil {
		FromError(err).Write(w)
		return
	}
	report, err := s.deps.Dashboard.ExportReport(r.Context(), c, csvcodec.ReportOptions{
		ExportDate:     s.now(),
		CurrencySymbol: s.deps.CurrencySymbol,
	})
	if err != nil {
		s.fail(w, r, "Failed to build export", err, log.OpExport)
		return
	}
	ref, err := s.deps.Sheets.WriteReport(r.Context(), report)
	if err != nil {
		s.fail(w, r, "Failed to write spreadsheet", fmt.Errorf("%w: %w", csvcodec.ErrExport, err), log.OpExport)
		return
	}
	s.count(&s.appMetrics.exports, 1)
	log.FromContext(r.Context()).InfoContext(r.Context(), "Sheets export written",
		log.FieldOperation, log.OpExport,
		log.FieldSheetsRef, ref)
	NewJSONResponse().
		Message("Exported to Google Sheets").
		Data(map[string]string{"range": ref}).
		Write(w)
}

func writeCSV(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
