// Package api exposes builder sessions and saved forms over a JSON HTTP API.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"form-connectors/internal/common/errors"
	"form-connectors/internal/common/logger"
	"form-connectors/internal/persistence"
	"form-connectors/internal/session"
	"form-connectors/internal/submission"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxBodyBytes = 1 << 20

// ReadinessCheck reports whether the backing services are reachable.
type ReadinessCheck func(ctx context.Context) error

type Server struct {
	sessions *session.Manager
	repo     persistence.Repository
	runner   *submission.SavedFormRunner
	ready    ReadinessCheck
	logger   logger.Logger
	mux      *http.ServeMux
}

// NewServer wires the routes. runner and ready may be nil.
func NewServer(sessions *session.Manager, repo persistence.Repository, runner *submission.SavedFormRunner, ready ReadinessCheck, log logger.Logger) *Server {
	s := &Server{
		sessions: sessions,
		repo:     repo,
		runner:   runner,
		ready:    ready,
		logger:   logger.Component(log, "api"),
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /ready", s.handleReady)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	s.mux.HandleFunc("POST /api/sessions", s.handleOpenSession)
	s.mux.HandleFunc("GET /api/sessions/{id}", s.withSession(s.handleGetSession))
	s.mux.HandleFunc("DELETE /api/sessions/{id}", s.handleCloseSession)
	s.mux.HandleFunc("GET /api/sessions/{id}/preview", s.withSession(s.handlePreview))
	s.mux.HandleFunc("POST /api/sessions/{id}/mutations", s.withSession(s.handleMutation))
	s.mux.HandleFunc("PUT /api/sessions/{id}/values", s.withSession(s.handleValues))
	s.mux.HandleFunc("POST /api/sessions/{id}/save", s.withSession(s.handleSave))
	s.mux.HandleFunc("POST /api/sessions/{id}/submit", s.withSession(s.handleSubmit))
	s.mux.HandleFunc("POST /api/sessions/{id}/confirm", s.withSession(s.handleConfirm))
	s.mux.HandleFunc("POST /api/sessions/{id}/cancel", s.withSession(s.handleCancel))
	s.mux.HandleFunc("POST /api/sessions/{id}/catalog/reload", s.withSession(s.handleReloadCatalog))

	s.mux.HandleFunc("GET /api/forms", s.handleListForms)
	s.mux.HandleFunc("GET /api/forms/{id}", s.handleGetForm)
	s.mux.HandleFunc("DELETE /api/forms/{id}", s.handleDeleteForm)
	s.mux.HandleFunc("POST /api/forms/{id}/submit", s.handleSubmitForm)
}

// Handler returns the routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		fields := map[string]interface{}{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"durationMs": time.Since(start).Milliseconds(),
		}
		if rec.status >= http.StatusInternalServerError {
			s.logger.Error("request failed", fields)
			return
		}
		s.logger.Debug("request served", fields)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// ==========================
// Encoding helpers
// ==========================

type errorResponse struct {
	Error *errors.StandardError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	se := errors.Normalize(err)
	status := errors.HTTPStatus(se.Code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request error", map[string]interface{}{
			"code":    se.Code,
			"message": se.Message,
			"details": se.Details,
		})
	}
	writeJSON(w, status, errorResponse{Error: se})
}

// decodeBody leaves dst untouched when the body is empty.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && err != io.EOF {
		return errors.NewInvalidInputError("invalid request body: " + err.Error())
	}
	return nil
}
