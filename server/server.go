// Package server exposes TutorFlow over HTTP. A run request streams its
// frames back as newline-delimited JSON; aborting the request cancels the
// run it started, as do an explicit cancel and a newer run for the same
// session. A disconnect never touches a generation that has already been
// superseded.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/studyarch/tutorflow"
	"github.com/studyarch/tutorflow/content"
	"github.com/studyarch/tutorflow/logging"
	"github.com/studyarch/tutorflow/stream"
)

// Options configures the Server.
type Options struct {
	Logger *logging.TutorLogger
}

// Server wires the TutorFlow façade into an http.Handler.
type Server struct {
	flow   *tutorflow.TutorFlow
	logger *logging.TutorLogger
	mux    *http.ServeMux
}

// New constructs a Server around an existing TutorFlow instance.
func New(flow *tutorflow.TutorFlow, optFns ...func(o *Options)) *Server {
	opts := Options{Logger: logging.NewLogger(nil)}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Server{flow: flow, logger: opts.Logger.WithComponent("server"), mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /v1/sessions/{id}/run", s.handleRun)
	s.mux.HandleFunc("POST /v1/sessions/{id}/cancel", s.handleCancel)
	s.mux.HandleFunc("GET /v1/sessions/{id}", s.handleGetSession)
	s.mux.HandleFunc("POST /v1/content", s.handleAddContent)
	s.mux.HandleFunc("GET /v1/healthz", s.handleHealth)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type runRequest struct {
	Message string `json:"message"`
}

// handleRun admits a run and streams its frames until the terminal one. A
// new run for the same session supersedes this one; the stream then ends
// with a cancelled terminal frame.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, errors.New("message must not be empty"))
		return
	}

	handle, err := s.flow.StartRun(r.Context(), sessionID, req.Message)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.logger.WithSession(sessionID, handle.Generation).Info("run admitted")

	if err := stream.WriteNDJSON(r.Context(), w, handle.Events); err != nil {
		if errors.Is(err, r.Context().Err()) {
			// The client went away; its run must not keep burning provider
			// calls unless a newer generation already took over.
			if s.flow.CancelRun(sessionID, handle.Generation) {
				s.logger.WithSession(sessionID, handle.Generation).Info("client disconnected, run cancelled")
			}
			return
		}
		s.logger.WithSession(sessionID, handle.Generation).Warn("stream ended early: %v", err)
	}
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	cancelled := s.flow.Cancel(sessionID)
	writeJSON(w, http.StatusOK, map[string]any{"cancelled": cancelled})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	rec, err := s.flow.SessionStore().Get(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":         rec.ID,
		"generation": s.flow.Generation(sessionID),
		"checkpoint": rec.Checkpoint,
		"state":      rec.State,
	})
}

func (s *Server) handleAddContent(w http.ResponseWriter, r *http.Request) {
	var item content.Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode item: %w", err))
		return
	}
	if item.Title == "" && item.Body == "" {
		writeError(w, http.StatusBadRequest, errors.New("item must have a title or body"))
		return
	}
	id, err := s.flow.ContentStore().Add(r.Context(), item)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}
