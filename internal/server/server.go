// Package server exposes a checklist session over a small JSON HTTP API.
// Every request runs against the one session under a mutex, so each mutation
// is applied, normalised and recompiled before the next one starts.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/kingrea/narcorisks/internal/activator"
	"github.com/kingrea/narcorisks/internal/export"
	"github.com/kingrea/narcorisks/internal/session"
)

// ServerStatus reports runtime lifecycle states for the HTTP server.
type ServerStatus string

const (
	StatusStarting ServerStatus = "starting"
	StatusReady    ServerStatus = "ready"
	StatusDraining ServerStatus = "draining"
)

// Logger is satisfied by *logging.Logger.
type Logger interface {
	Info(msg any, keyvals ...any)
	Warn(msg any, keyvals ...any)
	Error(msg any, keyvals ...any)
}

// Server wraps the HTTP listener and handlers backing the API.
type Server struct {
	settings Settings
	logger   Logger
	clock    func() time.Time
	metrics  *metrics

	sessMu  sync.Mutex
	session *session.Session

	mu        sync.RWMutex
	server    *http.Server
	listener  net.Listener
	status    ServerStatus
	startTime time.Time
}

// Option customizes server construction.
type Option func(*Server)

// WithLogger overrides the default no-op logger.
func WithLogger(l Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock allows tests to control timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Server) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewServer prepares a server for sess.
func NewServer(settings Settings, sess *session.Session, opts ...Option) *Server {
	settings.normalize()
	s := &Server{
		settings: settings,
		session:  sess,
		logger:   nopLogger{},
		clock:    time.Now,
		metrics:  newMetrics(),
		status:   StatusStarting,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /schema", s.handleSchema)
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("POST /toggle", s.handleToggle)
	mux.HandleFunc("POST /activate", s.handleActivate)
	mux.HandleFunc("POST /textblock", s.handleTextBlock)
	mux.HandleFunc("POST /preset", s.handlePreset)
	mux.HandleFunc("POST /procedure", s.handleProcedure)
	mux.HandleFunc("POST /language", s.handleLanguage)
	mux.HandleFunc("PUT /freetext", s.handleFreeText)
	mux.HandleFunc("GET /summary", s.handleSummary)
	mux.HandleFunc("POST /reset", s.handleReset)
	mux.Handle("GET /metrics", s.metrics.handler())
	return mux
}

// Start binds the TCP listener and begins serving HTTP traffic.
func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.session == nil {
		return fmt.Errorf("server: no session")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return fmt.Errorf("server: already started")
	}
	addr := s.settings.Address()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}
	s.listener = listener
	s.startTime = s.clock()
	server := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.settings.ReadTimeout,
		WriteTimeout: s.settings.WriteTimeout,
		IdleTimeout:  s.settings.IdleTimeout,
	}
	if ctx != nil {
		server.BaseContext = func(net.Listener) context.Context { return ctx }
	}
	s.server = server
	s.status = StatusReady
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("serve failed", "err", err)
		}
	}()
	s.logger.Info("listening", "addr", listener.Addr().String(), "session", s.session.ID())
	return nil
}

// Shutdown stops accepting new connections and waits for in-flight requests to exit.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil || s.server == nil {
		return nil
	}
	s.status = StatusDraining
	deadline := ctx
	if deadline == nil {
		var cancel context.CancelFunc
		deadline, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
	}
	if err := s.server.Shutdown(deadline); err != nil {
		return err
	}
	s.listener = nil
	s.server = nil
	return nil
}

// Addr returns the bound TCP address once the server has started.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// BaseURL returns the HTTP base URL (scheme + host:port) for the running server.
func (s *Server) BaseURL() string {
	addr := s.Addr()
	if addr == "" {
		return s.settings.URL()
	}
	return "http://" + addr
}

// Status reports the server's lifecycle state.
func (s *Server) Status() ServerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Server) uptimeSeconds() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.startTime.IsZero() {
		return 0
	}
	return int64(s.clock().Sub(s.startTime).Seconds())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        string(s.Status()),
		Session:       s.session.ID(),
		UptimeSeconds: s.uptimeSeconds(),
	})
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	writeJSON(w, http.StatusOK, describeSchema(s.session))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	writeJSON(w, http.StatusOK, s.stateLocked())
}

type toggleRequest struct {
	Path   string `json:"path"`
	Active *bool  `json:"active"`
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	s.apply(w, "toggle", func(sess *session.Session) error {
		sess.Toggle(req.Path, active)
		return nil
	})
}

type activateRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	s.apply(w, "activate", func(sess *session.Session) error {
		sess.Activate(req.Path)
		return nil
	})
}

type textBlockRequest struct {
	Key    string `json:"key"`
	Active *bool  `json:"active"`
}

var errUnknownTextBlock = errors.New("unknown text block")

func (s *Server) handleTextBlock(w http.ResponseWriter, r *http.Request) {
	var req textBlockRequest
	if !s.decode(w, r, &req) {
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	s.apply(w, "textblock", func(sess *session.Session) error {
		if !sess.SetTextBlock(req.Key, active) {
			return fmt.Errorf("%w: %q", errUnknownTextBlock, req.Key)
		}
		return nil
	})
}

type presetRequest struct {
	Preset string `json:"preset"`
	Option string `json:"option"`
}

func (s *Server) handlePreset(w http.ResponseWriter, r *http.Request) {
	var req presetRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.apply(w, "preset", func(sess *session.Session) error {
		return sess.HandlePresetSelection(req.Preset, req.Option)
	})
}

type procedureRequest struct {
	Procedure string `json:"procedure"`
}

func (s *Server) handleProcedure(w http.ResponseWriter, r *http.Request) {
	var req procedureRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.apply(w, "procedure", func(sess *session.Session) error {
		return sess.SelectProcedure(req.Procedure)
	})
}

type languageRequest struct {
	Language string `json:"language"`
}

func (s *Server) handleLanguage(w http.ResponseWriter, r *http.Request) {
	var req languageRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.apply(w, "language", func(sess *session.Session) error {
		return sess.SetLanguage(req.Language)
	})
}

type freeTextRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleFreeText(w http.ResponseWriter, r *http.Request) {
	var req freeTextRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.apply(w, "freetext", func(sess *session.Session) error {
		sess.SetFreeText(req.Text)
		return nil
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.apply(w, "reset", func(sess *session.Session) error {
		sess.Reset()
		return nil
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.sessMu.Lock()
	doc := s.session.Compile()
	s.sessMu.Unlock()
	s.metrics.compiles.Inc()

	data, err := export.Render(doc, format)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	switch format {
	case export.FormatJSON:
		w.Header().Set("Content-Type", "application/json")
	case export.FormatMarkdown:
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// apply runs op against the session and answers with the resulting state.
func (s *Server) apply(w http.ResponseWriter, name string, op func(*session.Session) error) {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	if err := op(s.session); err != nil {
		s.metrics.failures.WithLabelValues(name).Inc()
		s.logger.Warn("operation rejected", "op", name, "err", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.metrics.operations.WithLabelValues(name).Inc()
	s.metrics.warnings.Add(float64(len(s.session.Warnings())))
	writeJSON(w, http.StatusOK, s.stateLocked())
}

func (s *Server) stateLocked() stateResponse {
	s.metrics.compiles.Inc()
	return stateResponse{State: s.session.Snapshot(), Summary: s.session.Summary()}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil {
		writeError(w, http.StatusBadRequest, "empty body")
		return false
	}
	reader := http.MaxBytesReader(w, r.Body, s.settings.MaxBodyBytes)
	defer reader.Close()
	body, err := io.ReadAll(reader)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload exceeds limit")
			return false
		}
		writeError(w, http.StatusBadRequest, "unable to read body")
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, activator.ErrUnknownPreset),
		errors.Is(err, activator.ErrUnknownOption),
		errors.Is(err, activator.ErrUnknownProcedure),
		errors.Is(err, errUnknownTextBlock):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type nopLogger struct{}

func (nopLogger) Info(any, ...any)  {}
func (nopLogger) Warn(any, ...any)  {}
func (nopLogger) Error(any, ...any) {}
