// Package trace assigns request ids and logs one line per finished request.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	flog "fintrack/internal/log"
)

type contextKey struct{}

// Observer receives the outcome of every request, e.g. a metrics sink.
type Observer interface {
	ObserveRequest(method, route string, status int, d time.Duration)
}

type Middleware struct {
	extractIP func(*http.Request) string
	observer  Observer
}

// NewMiddleware accepts a nil observer.
func NewMiddleware(extractIP func(*http.Request) string, observer Observer) *Middleware {
	return &Middleware{extractIP: extractIP, observer: observer}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = GenerateRequestID()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), contextKey{}, requestID)
		r = r.WithContext(ctx)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		if m.observer != nil {
			m.observer.ObserveRequest(r.Method, route, rw.statusCode, duration)
		}

		level := slog.LevelInfo
		if rw.statusCode >= 500 {
			level = slog.LevelError
		} else if rw.statusCode >= 400 {
			level = slog.LevelWarn
		}

		fields := flog.NewFields().
			WithRequestID(requestID).
			WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery).
			WithHTTPResponse(rw.statusCode, duration.Milliseconds()).
			WithClientIP(clientIP)
		fields[flog.FieldRoute] = route
		fields[flog.FieldUserAgent] = r.UserAgent()
		slog.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// GenerateRequestID returns "req_" followed by 16 hex digits.
func GenerateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(b)
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKey{}).(string); ok {
		return id
	}
	return ""
}

// RequestID is GetRequestID over a request, for log.Middleware.
func RequestID(r *http.Request) string {
	return GetRequestID(r.Context())
}
