package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"finboard/internal/advisor"
	"finboard/internal/log"
)

type chatRequest struct {
	Message string            `json:"message"`
	History []advisor.Message `json:"history"`
}

type chatResponse struct {
	Reply    string `json:"reply"`
	Fallback bool   `json:"fallback"`
}

// handleAdvisorChat answers a finance question grounded in the whole
// collection. When the advisor is unavailable or its endpoint fails the
// canned fallback reply is returned instead of an error.
func (s *Server) handleAdvisorChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		BadRequestError("Malformed chat request").Write(w)
		return
	}
	req.Message = sanitizeInput(req.Message)
	if req.Message == "" {
		FromError(advisor.ErrEmptyQuestion).Write(w)
		return
	}
	s.count(&s.appMetrics.advisorCalls, 1)

	if s.deps.Advisor == nil || !s.deps.Advisor.Configured() {
		NewJSONResponse().Data(chatResponse{Reply: advisor.Fallback(req.Message), Fallback: true}).Write(w)
		return
	}

	txs, err := s.deps.Dashboard.All(r.Context())
	if err != nil {
		s.fail(w, r, "Failed to load transactions for advisor", err, log.OpRead)
		return
	}
	reply, err := s.deps.Advisor.Ask(r.Context(), req.Message, req.History, txs)
	if err != nil {
		if errors.Is(err, advisor.ErrEmptyQuestion) {
			FromError(err).Write(w)
			return
		}
		log.FromContext(r.Context()).WarnContext(r.Context(), "Advisor unavailable, using fallback reply",
			log.FieldError, err.Error())
		NewJSONResponse().Data(chatResponse{Reply: advisor.Fallback(req.Message), Fallback: true}).Write(w)
		return
	}
	NewJSONResponse().Data(chatResponse{Reply: reply}).Write(w)
}
