package reqlog

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/jerometseng/requestlog/internal/route"
)

type logEntry map[string]interface{}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func parseEntries(t *testing.T, buf *bytes.Buffer) []logEntry {
	t.Helper()
	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e logEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("invalid log line %q: %v", line, err)
		}
		entries = append(entries, e)
	}
	return entries
}

func testMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /api/users/{id}", route.Named("users.get", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if RequestID(r.Context()) == "" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"id":1}`))
	})))
	mux.Handle("GET /internal/ping", NoLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})))
	mux.HandleFunc("GET /v3/api-docs", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"openapi":"3.0.1"}`))
	})
	mux.HandleFunc("GET /boom", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "broken", http.StatusBadGateway)
	})
	mux.HandleFunc("GET /panic", func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func TestMiddleware_LogsStartAndFinish(t *testing.T) {
	var buf bytes.Buffer
	h := New(WithLogger(newTestLogger(&buf))).Middleware(testMux())

	req := httptest.NewRequest("GET", "/api/users/42?verbose=1", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	id := rec.Header().Get(HeaderRequestID)
	if !regexp.MustCompile(`^[0-9a-f]{32}$`).MatchString(id) {
		t.Errorf("unexpected request id %q", id)
	}

	entries := parseEntries(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d: %s", len(entries), buf.String())
	}

	start, finish := entries[0], entries[1]
	if start["msg"] != "request started" || finish["msg"] != "request finished" {
		t.Errorf("unexpected messages: %v / %v", start["msg"], finish["msg"])
	}
	for _, e := range entries {
		if e["request_id"] != id {
			t.Errorf("expected request_id %s, got %v", id, e["request_id"])
		}
		if e["ip"] != "203.0.113.7" {
			t.Errorf("expected forwarded ip, got %v", e["ip"])
		}
		if e["handler"] != "users.get" {
			t.Errorf("expected handler name, got %v", e["handler"])
		}
		if e["uri"] != "/api/users/42?verbose=1" {
			t.Errorf("unexpected uri %v", e["uri"])
		}
	}
	if _, ok := start["params"]; !ok {
		t.Error("expected params on start entry")
	}
	if finish["status"] != float64(200) {
		t.Errorf("expected status 200, got %v", finish["status"])
	}
	if finish["bytes"] != float64(8) {
		t.Errorf("expected 8 bytes, got %v", finish["bytes"])
	}
}

func TestMiddleware_SkipsDocumentationResources(t *testing.T) {
	var buf bytes.Buffer
	h := New(WithLogger(newTestLogger(&buf))).Middleware(testMux())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/v3/api-docs", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no logs for docs path, got %s", buf.String())
	}
	if rec.Header().Get(HeaderRequestID) != "" {
		t.Error("docs responses should not carry a request id")
	}
}

func TestMiddleware_SkipsNoLogHandlers(t *testing.T) {
	var buf bytes.Buffer
	h := New(WithLogger(newTestLogger(&buf))).Middleware(testMux())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/internal/ping", nil))

	if rec.Body.String() != "pong" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
	if buf.Len() != 0 {
		t.Errorf("expected no logs for NoLog handler, got %s", buf.String())
	}
}

func TestMiddleware_SkipPaths(t *testing.T) {
	var buf bytes.Buffer
	h := New(WithLogger(newTestLogger(&buf)), WithSkipPaths("/health")).Middleware(testMux())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", nil))

	if buf.Len() != 0 {
		t.Errorf("expected no logs for skipped path, got %s", buf.String())
	}
}

func TestMiddleware_ServerErrorLoggedAsFailure(t *testing.T) {
	var buf bytes.Buffer
	h := New(WithLogger(newTestLogger(&buf))).Middleware(testMux())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/boom", nil))

	entries := parseEntries(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	last := entries[1]
	if last["msg"] != "request failed" || last["level"] != "ERROR" {
		t.Errorf("expected error entry, got %v", last)
	}
	if last["status"] != float64(http.StatusBadGateway) {
		t.Errorf("expected 502, got %v", last["status"])
	}
	if last["handler"] != "GET /boom" {
		t.Errorf("expected pattern as handler name, got %v", last["handler"])
	}
}

func TestMiddleware_PanicLoggedAndRepanicked(t *testing.T) {
	var buf bytes.Buffer
	h := New(WithLogger(newTestLogger(&buf))).Middleware(testMux())

	defer func() {
		p := recover()
		if p != "kaboom" {
			t.Fatalf("expected panic to propagate, got %v", p)
		}

		entries := parseEntries(t, &buf)
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(entries))
		}
		if entries[1]["panic"] != "kaboom" {
			t.Errorf("expected panic value logged, got %v", entries[1])
		}
		if _, ok := entries[1]["stack"]; !ok {
			t.Error("expected stack trace on panic entry")
		}
	}()

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/panic", nil))
}

type prefixClassifier struct{}

func (prefixClassifier) IsDocumentationResource(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

func TestMiddleware_CustomClassifierAndRouter(t *testing.T) {
	var buf bytes.Buffer
	mux := testMux()
	wrapped := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r)
	})

	h := New(
		WithLogger(newTestLogger(&buf)),
		WithClassifier(prefixClassifier{}),
		WithRouter(mux),
	).Middleware(wrapped)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/users/1", nil))
	if buf.Len() != 0 {
		t.Errorf("custom classifier should skip /api/, got %s", buf.String())
	}

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/internal/ping", nil))
	if buf.Len() != 0 {
		t.Errorf("router option should expose NoLog, got %s", buf.String())
	}

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", nil))
	if len(parseEntries(t, &buf)) != 2 {
		t.Errorf("expected /health to be logged, got %s", buf.String())
	}
}

func TestNewRequestID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewRequestID()
		if len(id) != 32 || strings.Contains(id, "-") {
			t.Fatalf("malformed id %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
