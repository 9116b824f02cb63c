// Package aasandbox is an in-process AA gateway simulator for development
// and tests: canned FIPs and accounts in in-memory SQLite, deterministic
// OTPs, consent lifecycle PENDING -> ACTIVE/REJECTED, and per-endpoint
// failure injection for exercising the journey's error branches.
package aasandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

// OTP accepted for every login and linking confirmation.
const OTP = "123456"

// SessionHeader mirrors the header the gateway client replays.
const SessionHeader = "X-AA-Session"

// failure is one injected fault. times counts remaining triggers; negative
// means every call fails until cleared.
type failure struct {
	status  int
	code    string
	message string
	times   int
}

// Server simulates the AA gateway over HTTP.
type Server struct {
	store  *Store
	log    *slog.Logger
	apiKey string

	http *http.Server
	addr string

	mu       sync.Mutex
	failures map[string]*failure
}

// Option configures the sandbox.
type Option func(*Server)

// WithAPIKey pins the accepted API key. By default any non-empty bearer
// token is accepted.
func WithAPIKey(key string) Option {
	return func(s *Server) { s.apiKey = key }
}

// WithLogger replaces the default slog logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// New creates a sandbox with a freshly seeded store.
func New(opts ...Option) (*Server, error) {
	store, err := OpenStore()
	if err != nil {
		return nil, err
	}

	s := &Server{
		store:    store,
		log:      slog.Default(),
		failures: make(map[string]*failure),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the sandbox store.
func (s *Server) Close() error {
	return s.store.Close()
}

// Handler returns the routed HTTP handler, for httptest servers.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/v1/ping", s.handlePing).Methods("GET")
	r.HandleFunc("/v1/session/connect", s.handleConnect).Methods("POST")
	r.HandleFunc("/v1/session/disconnect", s.handleDisconnect).Methods("POST")

	r.HandleFunc("/v1/auth/login", s.handleLogin).Methods("POST")
	r.HandleFunc("/v1/auth/verify", s.handleVerify).Methods("POST")
	r.HandleFunc("/v1/auth/logout", s.handleLogout).Methods("POST")

	r.HandleFunc("/v1/fips", s.handleListFIPs).Methods("GET")
	r.HandleFunc("/v1/fips/{fipID}", s.handleFIPDetails).Methods("GET")
	r.HandleFunc("/v1/fips/{fipID}/discover", s.handleDiscover).Methods("POST")

	r.HandleFunc("/v1/accounts/link", s.handleLink).Methods("POST")
	r.HandleFunc("/v1/accounts/link/confirm", s.handleConfirmLink).Methods("POST")
	r.HandleFunc("/v1/accounts/linked", s.handleLinkedAccounts).Methods("GET")

	r.HandleFunc("/v1/consents/{handle}", s.handleConsentDetails).Methods("GET")
	r.HandleFunc("/v1/consents/{handle}/approve", s.handleApprove).Methods("POST")
	r.HandleFunc("/v1/consents/{handle}/deny", s.handleDeny).Methods("POST")

	r.Use(s.recoveryMiddleware, s.loggingMiddleware, s.authMiddleware)
	return r
}

// Start begins listening on addr (non-blocking). Use addr ":0" for an
// ephemeral port; Addr reports the bound address.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.addr = ln.Addr().String()

	s.http = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error("sandbox server", "err", err)
		}
	}()

	s.log.Info("aa sandbox listening", "addr", s.addr)
	return nil
}

// Addr returns the bound listen address after Start.
func (s *Server) Addr() string {
	return s.addr
}

// Shutdown gracefully stops the server and closes the store.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.http != nil {
		err = s.http.Shutdown(ctx)
	}
	if cerr := s.store.Close(); err == nil {
		err = cerr
	}
	return err
}

// --- Failure injection ---

// FailNext makes the next call to op fail with the given status and error
// payload. Op names match the endpoint handlers: connect, disconnect,
// login, verify, logout, fips, fip_details, discover, link, confirm_link,
// linked_accounts, consent_details, approve, deny, ping.
func (s *Server) FailNext(op string, status int, code, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = &failure{status: status, code: code, message: message, times: 1}
}

// FailAlways makes every call to op fail until ClearFailures.
func (s *Server) FailAlways(op string, status int, code, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = &failure{status: status, code: code, message: message, times: -1}
}

// ClearFailures removes all injected failures.
func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]*failure)
}

// takeFailure consumes one injected failure for op, if any.
func (s *Server) takeFailure(op string) *failure {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.failures[op]
	if !ok {
		return nil
	}
	if f.times > 0 {
		f.times--
		if f.times == 0 {
			delete(s.failures, op)
		}
	}
	return f
}

// injected writes the failure for op and reports whether one fired.
func (s *Server) injected(w http.ResponseWriter, op string) bool {
	f := s.takeFailure(op)
	if f == nil {
		return false
	}
	writeError(w, f.status, f.code, f.message)
	return true
}

// --- Middleware ---

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("panic recovered", "panic", rec, "path", r.URL.Path)
				writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// statusCapture wraps ResponseWriter to capture the status code.
type statusCapture struct {
	http.ResponseWriter
	code int
}

func (sc *statusCapture) WriteHeader(code int) {
	sc.code = code
	sc.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sc := &statusCapture{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sc, r)
		s.log.Info("req",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sc.code,
			"dur", time.Since(start).String(),
		)
	})
}

// authMiddleware enforces the bearer API key everywhere and a live gateway
// session everywhere except ping and connect.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing API key")
			return
		}
		if s.apiKey != "" && token != s.apiKey {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid API key")
			return
		}

		if !sessionExempt(r.URL.Path) {
			session := r.Header.Get(SessionHeader)
			if session == "" {
				writeError(w, http.StatusUnauthorized, "session_required", "no gateway session, call connect first")
				return
			}
			ok, err := s.store.HasSession(session)
			if err != nil {
				s.log.Error("session lookup", "err", err)
				writeError(w, http.StatusInternalServerError, "internal_error", "session lookup failed")
				return
			}
			if !ok {
				writeError(w, http.StatusUnauthorized, "session_required", "gateway session expired or disconnected")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func sessionExempt(path string) bool {
	return path == "/v1/ping" || path == "/v1/session/connect"
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || auth[:len(prefix)] != prefix {
		return ""
	}
	return auth[len(prefix):]
}

// --- Response helpers ---

// apiError mirrors the gateway error envelope: {"error": {"code", "message"}}.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{
		Error: apiError{Code: code, Message: message},
	}); err != nil {
		slog.Error("write error response", "err", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("write json response", "err", err)
	}
}
