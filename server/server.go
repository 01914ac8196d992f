// Package server exposes the kernel over HTTP: POST /chat with a JSON body,
// a Connect RPC endpoint, health and metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tailored-agentic-units/flora/kernel"
	"github.com/tailored-agentic-units/flora/observability"
)

// Client-facing error messages. Internal detail is logged, never returned.
const (
	MissingFieldsMessage = "Missing message or session_id"
	InternalErrorMessage = "An internal error occurred"
	UnavailableMessage   = "The assistant is busy, please try again shortly"
	RateLimitedMessage   = "Too many requests"
	TooLargeMessage      = "Request body too large"
)

// Server events.
const (
	EventRequest observability.EventType = "server.request"
	EventError   observability.EventType = "server.error"
)

// Runner processes one user message for a session. *kernel.Kernel
// satisfies it.
type Runner interface {
	Run(ctx context.Context, sessionID, message string) (*kernel.Result, error)
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server routes HTTP requests to a Runner.
type Server struct {
	runner   Runner
	observer observability.Observer
	cfg      Config
}

// Option configures a Server.
type Option func(*Server)

// WithObserver sets the observer receiving access and error events.
func WithObserver(o observability.Observer) Option {
	return func(s *Server) { s.observer = o }
}

// New creates a Server for runner.
func New(runner Runner, cfg Config, opts ...Option) *Server {
	d := DefaultConfig()
	d.Merge(&cfg)
	s := &Server{
		runner:   runner,
		observer: observability.NoOpObserver{},
		cfg:      d,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed, instrumented HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		requestID,
		accessLog(s.observer),
		cors,
		rateLimit(s.cfg.RequestsPerSecond, s.cfg.Burst),
	)

	r.Post("/chat", s.handleChat)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	path, handler := s.connectHandler()
	r.Handle(path, handler)

	return otelhttp.NewHandler(r, "flora")
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)).Decode(&req)
	if tooLarge := (*http.MaxBytesError)(nil); errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: TooLargeMessage})
		return
	}
	if err != nil || req.Message == "" || req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: MissingFieldsMessage})
		return
	}

	result, err := s.runner.Run(r.Context(), req.SessionID, req.Message)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Response: result.Response})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.observer.OnEvent(r.Context(), observability.NewEvent(EventError, observability.LevelError, "server.chat", map[string]any{
		"request_id": RequestIDFrom(r.Context()),
		"error":      err.Error(),
	}))

	switch {
	case errors.Is(err, kernel.ErrAgentTimeout):
		w.Header().Set("Retry-After", strconv.Itoa(int(s.cfg.RetryAfter.Seconds())))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: UnavailableMessage})
	case errors.Is(err, kernel.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: MissingFieldsMessage})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: InternalErrorMessage})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
