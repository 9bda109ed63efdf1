package http

import (
	"net/http"

	"finboard/internal/log"
)

// handleListTransactions returns one page of the filtered view.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	c, err := ParseCriteria(r.URL.Query())
	if err != nil {
		FromError(err).Write(w)
		return
	}
	pp := ParsePageParams(r.URL.Query(), s.deps.PageSize)

	page, err := s.deps.Dashboard.Transactions(r.Context(), c, pp.Page, pp.Limit)
	if err != nil {
		s.fail(w, r, "Failed to list transactions", err, log.OpList)
		return
	}
	NewJSONResponse().Data(page).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := ParseTransaction(NewRequestBodyParser(r), today(s.now))
	if err != nil {
		FromError(err).Write(w)
		return
	}
	created, err := s.deps.Transactions.Create(r.Context(), t)
	if err != nil {
		s.fail(w, r, "Failed to create transaction", err, log.OpCreate)
		return
	}
	s.count(&s.appMetrics.created, 1)
	s.logger.LogTransactionChanged(r.Context(), log.OpCreate, created)
	NewJSONResponse().
		Status(http.StatusCreated).
		Message("Transaction created successfully").
		Data(created).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	req, err := ParseUpdate(NewRequestBodyParser(r))
	if err != nil {
		FromError(err).Write(w)
		return
	}
	updated, err := s.deps.Transactions.Update(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.fail(w, r, "Failed to update transaction", err, log.OpUpdate)
		return
	}
	s.logger.LogTransactionChanged(r.Context(), log.OpUpdate, updated)
	NewJSONResponse().
		Message("Transaction updated successfully").
		Data(updated).
		Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.deps.Transactions.Delete(r.Context(), id); err != nil {
		s.fail(w, r, "Failed to delete transaction", err, log.OpDelete)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction deleted",
		log.FieldTransactionID, id,
		log.FieldOperation, log.OpDelete)
	NewJSONResponse().Message("Transaction deleted successfully").Write(w)
}

// fail logs a service error and writes its mapped response. Validation and
// not-found outcomes are the caller's fault and logged at Warn.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, msg string, err error, op string) {
	resp := FromError(err)
	if resp.statusCode >= http.StatusInternalServerError {
		s.logger.LogError(r.Context(), msg, err, log.ComponentHTTP, op, log.NewFields().
			WithStatus(resp.statusCode))
	} else {
		log.FromContext(r.Context()).WarnContext(r.Context(), msg,
			log.FieldError, err.Error(),
			log.FieldOperation, op,
			log.FieldStatusCode, resp.statusCode)
	}
	resp.Write(w)
}
