package trace

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	flog "fintrack/internal/log"
)

type recordingObserver struct {
	method, route string
	status        int
}

func (o *recordingObserver) ObserveRequest(method, route string, status int, _ time.Duration) {
	o.method, o.route, o.status = method, route, status
}

func TestGenerateRequestID(t *testing.T) {
	id := GenerateRequestID()
	if !strings.HasPrefix(id, "req_") || len(id) != len("req_")+16 {
		t.Fatalf("id = %q", id)
	}
	if id == GenerateRequestID() {
		t.Fatal("ids must differ")
	}
}

func TestMiddlewareRecordsRoute(t *testing.T) {
	obs := &recordingObserver{}
	var seen string

	r := chi.NewRouter()
	r.Use(NewMiddleware(func(*http.Request) string { return "1.2.3.4" }, obs).Middleware)
	r.Get("/api/expenses/{id}", func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/expenses/9", nil))

	if obs.route != "/api/expenses/{id}" || obs.status != http.StatusTeapot || obs.method != "GET" {
		t.Fatalf("observed %+v", obs)
	}
	if seen == "" || rec.Header().Get("X-Request-ID") != seen {
		t.Fatalf("request id %q, header %q", seen, rec.Header().Get("X-Request-ID"))
	}
}

func TestMiddlewareKeepsIncomingRequestID(t *testing.T) {
	h := NewMiddleware(nil, nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if RequestID(r) != "req_upstream" {
			t.Errorf("RequestID = %q", RequestID(r))
		}
	}))
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "req_upstream")
	h.ServeHTTP(httptest.NewRecorder(), req)
}

func TestMiddlewareLogsRequestLine(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	h := NewMiddleware(func(*http.Request) string { return "198.51.100.4" }, nil).Middleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
	req := httptest.NewRequest("GET", "/api/overview?month=2026-01", nil)
	req.Header.Set("User-Agent", "fintrack-test/1.0")
	h.ServeHTTP(httptest.NewRecorder(), req)

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("log line %q: %v", buf.String(), err)
	}
	want := map[string]any{
		"level":              "WARN",
		flog.FieldPath:       "/api/overview",
		flog.FieldQuery:      "month=2026-01",
		flog.FieldUserAgent:  "fintrack-test/1.0",
		flog.FieldClientIP:   "198.51.100.4",
		flog.FieldStatusCode: float64(http.StatusNotFound),
		flog.FieldSuccess:    false,
	}
	for k, v := range want {
		if rec[k] != v {
			t.Errorf("%s = %v, want %v", k, rec[k], v)
		}
	}
}
