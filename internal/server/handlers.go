package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"adforge/internal/llm"
	"adforge/internal/store"
)

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// StatusResponse is the /api/status payload.
type StatusResponse struct {
	Version string            `json:"version"`
	Uptime  string            `json:"uptime"`
	Models  map[string]string `json:"models"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

var serverStartTime = time.Now()

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"store": "ok"}

	if err := s.store.Ping(r.Context()); err != nil {
		checks["store"] = "error"
		s.respondJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Checks: checks})
		return
	}

	s.respondJSON(w, http.StatusOK, HealthResponse{Status: "ok", Checks: checks})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, StatusResponse{
		Version: s.cfg.App.Version,
		Uptime:  time.Since(serverStartTime).String(),
		Models: map[string]string{
			"text":  s.cfg.AI.Gemini.TextModel,
			"image": s.cfg.AI.Gemini.ImageModel,
			"video": s.cfg.AI.Gemini.VideoModel,
		},
	})
}

// decodeJSON reads the request body into v; a failure is the caller's 400.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid JSON request body")
	}
	return nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("Failed to encode JSON response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: message})
}

// respondPipelineError maps pipeline failures onto HTTP statuses: unknown
// records are 404, a provider finishing without a payload is 502, a poll
// budget running out is 504, everything else is 500.
func (s *Server) respondPipelineError(w http.ResponseWriter, err error) {
	var pollTimeout *llm.PollTimeoutError
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, llm.ErrNoMedia):
		s.respondError(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &pollTimeout):
		s.respondError(w, http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		s.respondError(w, http.StatusGatewayTimeout, err.Error())
	default:
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}
