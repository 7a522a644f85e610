package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/d2oracle/oracle/core/infra/buildinfo"
	"github.com/d2oracle/oracle/core/infra/logging"
	"github.com/d2oracle/oracle/core/oracle"
	"github.com/google/uuid"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/oracle", s.instrumented("/v1/oracle", s.handleScore))
	mux.HandleFunc("GET /v1/oracle/metadata", s.instrumented("/v1/oracle/metadata", s.handleMetadata))
	mux.HandleFunc("GET /v1/oracle/status", s.instrumented("/v1/oracle/status", s.handleStatus))
	mux.HandleFunc("GET /v1/oracle/stream", s.instrumented("/v1/oracle/stream", s.handleStream))
	mux.HandleFunc("GET /health", s.instrumented("/health", s.handleHealth))
	return s.corsMiddleware(requestIDMiddleware(mux))
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Request Too Large", http.StatusRequestEntityTooLarge)
			return
		}
		oracle.WriteFailure(w, fmt.Errorf("%w: read body: %v", oracle.ErrInvalidPayload, err))
		return
	}
	out, err := s.svc.Score(r.Context(), body)
	if err != nil {
		oracle.WriteFailure(w, err)
		return
	}
	if err := oracle.WriteWeapon(w, out); err != nil {
		logging.Warn("http", "response discarded", "request_id", oracle.RequestIDFrom(r.Context()), "error", err)
	}
}

func (s *Server) handleMetadata(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, buildinfo.Current())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	now := time.Now().UTC()
	engine := map[string]any{"mode": "none", "waiters": 0}
	if s.gateway != nil {
		mode := "isolated"
		if s.gateway.Shared() {
			mode = "shared"
		}
		engine = map[string]any{"mode": mode, "waiters": s.gateway.Waiters()}
	}
	writeJSON(w, map[string]any{
		"time":           now.Format(time.RFC3339),
		"uptime_seconds": int64(now.Sub(s.started).Seconds()),
		"build":          buildinfo.Current(),
		"engine":         engine,
		"validation":     string(s.svc.ValidationMode()),
		"catalog": map[string]any{
			"revision": s.catalog.Revision(),
			"weapons":  s.catalog.Len(),
		},
		"nats": map[string]any{
			"connected": s.bus.IsConnected(),
			"status":    s.bus.Status(),
			"url":       s.bus.ConnectedURL(),
		},
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(headerRequestID))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(oracle.WithRequestID(r.Context(), id)))
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin != "" {
			if !s.isAllowedOrigin(r) {
				http.Error(w, "origin not allowed", http.StatusForbidden)
				return
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, Retry-After")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) isAllowedOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		// Non-browser clients omit Origin.
		return true
	}
	if s.allowAll {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}
	if len(s.origins) == 0 {
		switch strings.ToLower(u.Hostname()) {
		case "localhost", "127.0.0.1", "::1":
			return true
		}
		return false
	}
	_, ok := s.origins[origin]
	return ok
}

func originSet(list []string) (map[string]struct{}, bool) {
	set := make(map[string]struct{})
	for _, o := range list {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if o == "*" {
			return nil, true
		}
		set[o] = struct{}{}
	}
	return set, false
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack forwards websocket hijacking support to the underlying writer when available.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("hijacker not supported")
	}
	return hj.Hijack()
}

// Flush preserves streaming support if the wrapped writer implements it.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// instrumented wraps handlers to record metrics.
func (s *Server) instrumented(route string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		fn(rec, r)
		s.metrics.ObserveRequest(r.Method, route, fmt.Sprintf("%d", rec.status), time.Since(start).Seconds())
	}
}
