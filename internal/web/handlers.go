package web

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/orgsync/internal/core"
	"github.com/JonMunkholm/orgsync/internal/web/templates"
)

const healthTimeout = 2 * time.Second

// emailParam returns the {email} path segment, unescaped.
func emailParam(r *http.Request) string {
	raw := chi.URLParam(r, "email")
	if email, err := url.PathUnescape(raw); err == nil {
		return email
	}
	return raw
}

func (s *Server) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := s.service.Employee(r.Context(), emailParam(r))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

// handleGetChain returns the employee with its stored chain of command.
func (s *Server) handleGetChain(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.Chain(r.Context(), emailParam(r))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	if wantsHTML(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		employee, chain := chainEntries(view)
		_ = templates.ChainList(employee, chain).Render(r.Context(), w)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleBatchStatus reports the batch limiter state, for monitoring and
// for clients deciding whether to retry.
func (s *Server) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.BatchLimiterStatus())
}

type healthResponse struct {
	Status  string                  `json:"status"`
	Error   string                  `json:"error,omitempty"`
	Batches core.BatchLimiterStatus `json:"batches"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Batches: s.service.BatchLimiterStatus()}
	if err := s.service.Ping(ctx); err != nil {
		resp.Status = "unavailable"
		resp.Error = core.MapError(err).Message
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
