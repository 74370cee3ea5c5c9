package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jerometseng/requestlog/internal/model"
	"github.com/jerometseng/requestlog/internal/reqlog"
)

type envelopeBody struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, mutate func(*model.Config)) (*Server, *bytes.Buffer) {
	t.Helper()
	cfg := model.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	s, err := New(cfg, log)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s, &buf
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, envelopeBody) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", target, nil))
	var body envelopeBody
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
	}
	return rec, body
}

func TestServer_Hello(t *testing.T) {
	s, logs := newTestServer(t, nil)

	rec, body := get(t, s.Handler(), "/api/hello?name=gopher")
	if rec.Code != http.StatusOK || body.Code != 200 || string(body.Data) != `"hello, gopher"` {
		t.Errorf("unexpected response: %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(reqlog.HeaderRequestID) == "" {
		t.Error("expected request id header")
	}
	if !strings.Contains(logs.String(), `"handler":"hello"`) {
		t.Errorf("expected named handler in logs, got %s", logs.String())
	}
}

func TestServer_HelloMissingName(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec, body := get(t, s.Handler(), "/api/hello")
	if rec.Code != http.StatusBadRequest || body.Msg != "parameter <name> is required" {
		t.Errorf("unexpected response: %d %s", rec.Code, rec.Body.String())
	}
}

func TestServer_RequestIDVisibleToHandler(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec, body := get(t, s.Handler(), "/api/request-id")
	var data map[string]string
	if err := json.Unmarshal(body.Data, &data); err != nil {
		t.Fatalf("invalid data: %v", err)
	}
	if data["request_id"] != rec.Header().Get(reqlog.HeaderRequestID) {
		t.Errorf("handler saw %q, header has %q", data["request_id"], rec.Header().Get(reqlog.HeaderRequestID))
	}
}

func TestServer_DocsUntouched(t *testing.T) {
	s, logs := newTestServer(t, nil)

	rec, _ := get(t, s.Handler(), "/v3/api-docs")
	if rec.Body.String() != openAPIDoc {
		t.Errorf("docs should be served raw, got %s", rec.Body.String())
	}
	rec, _ = get(t, s.Handler(), "/swagger-ui.html")
	if rec.Body.String() != swaggerUIPage {
		t.Errorf("swagger ui should be served raw, got %s", rec.Body.String())
	}
	if strings.Contains(logs.String(), "request started") {
		t.Errorf("docs requests should not be logged: %s", logs.String())
	}
}

func TestServer_HealthNotLogged(t *testing.T) {
	s, logs := newTestServer(t, nil)

	_, body := get(t, s.Handler(), "/health")
	if string(body.Data) != `"ok"` {
		t.Errorf("unexpected health data %s", body.Data)
	}
	if logs.Len() != 0 {
		t.Errorf("health should not be logged: %s", logs.String())
	}
}

func TestServer_Raw(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec, _ := get(t, s.Handler(), "/api/raw")
	if rec.Body.String() != `{"raw":true}` {
		t.Errorf("raw route should not be wrapped, got %s", rec.Body.String())
	}
}

func TestServer_ContextPath(t *testing.T) {
	s, _ := newTestServer(t, func(c *model.Config) { c.Server.ContextPath = "/app/" })

	rec, body := get(t, s.Handler(), "/app/api/echo?a=1")
	if rec.Code != http.StatusOK || string(body.Data) != `{"a":"1"}` {
		t.Errorf("unexpected response: %d %s", rec.Code, rec.Body.String())
	}
}

func TestServer_RateLimit(t *testing.T) {
	s, _ := newTestServer(t, func(c *model.Config) {
		c.RateLimit.Enabled = true
		c.RateLimit.RequestsPerSecond = 0.001
		c.RateLimit.Burst = 1
	})

	if rec, _ := get(t, s.Handler(), "/api/echo"); rec.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", rec.Code)
	}
	rec, body := get(t, s.Handler(), "/api/echo")
	if rec.Code != http.StatusTooManyRequests || body.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 envelope, got %d %s", rec.Code, rec.Body.String())
	}
	if rec, _ := get(t, s.Handler(), "/v3/api-docs"); rec.Code != http.StatusOK {
		t.Errorf("docs must bypass rate limiting, got %d", rec.Code)
	}
}

func TestServer_UpdateMarkers(t *testing.T) {
	s, logs := newTestServer(t, nil)
	s.Handle("GET /openapi.json", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"openapi":"3.1.0"}`))
	}))

	if rec, _ := get(t, s.Handler(), "/openapi.json"); rec.Body.String() == `{"openapi":"3.1.0"}` {
		t.Fatal("custom route should be wrapped before markers change")
	}

	if err := s.UpdateMarkers([]string{"openapi.json"}); err != nil {
		t.Fatalf("UpdateMarkers failed: %v", err)
	}
	logs.Reset()

	if rec, _ := get(t, s.Handler(), "/openapi.json"); rec.Body.String() != `{"openapi":"3.1.0"}` {
		t.Errorf("custom docs route should be raw after update, got %s", rec.Body.String())
	}
	if logs.Len() != 0 {
		t.Errorf("custom docs route should not be logged: %s", logs.String())
	}

	if err := s.UpdateMarkers(nil); err == nil {
		t.Error("expected error for empty markers")
	}
}

func TestNew_InvalidMarkers(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Docs.Markers = []string{""}
	if _, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
		t.Error("expected error for blank marker")
	}
}

func TestServer_Serve(t *testing.T) {
	s, _ := newTestServer(t, func(c *model.Config) { c.Server.MaxConns = 4 })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/hello?name=net")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	data, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(data), "hello, net") {
		t.Errorf("unexpected body %s", data)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Serve returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop after cancel")
	}
}

func TestServer_CustomDocPage(t *testing.T) {
	s, _ := newTestServer(t, func(c *model.Config) { c.Docs.Path = "reference.html" })

	rec, _ := get(t, s.Handler(), "/reference.html")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "swagger-ui") {
		t.Errorf("expected documentation page, got %d %q", rec.Code, rec.Body.String())
	}

	rec, _ = get(t, s.Handler(), "/doc.html")
	if rec.Code != http.StatusNotFound {
		t.Errorf("default doc page should not be registered, got %d", rec.Code)
	}
}
