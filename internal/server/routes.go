package server

import (
	"net/http"
	"strings"

	"github.com/jerometseng/requestlog/internal/envelope"
	"github.com/jerometseng/requestlog/internal/reqlog"
	"github.com/jerometseng/requestlog/internal/route"
)

const openAPIDoc = `{"openapi":"3.0.1","info":{"title":"requestlog demo","version":"v1"},"paths":{"/api/hello":{"get":{"summary":"Say hello"}},"/api/echo":{"get":{"summary":"Echo query parameters"}}}}`

const swaggerUIPage = `<!DOCTYPE html>
<html>
<head><title>API documentation</title></head>
<body><div id="swagger-ui" data-url="v3/api-docs"></div></body>
</html>
`

func (s *Server) routes() {
	s.mux.Handle("GET /health", reqlog.NoLog(http.HandlerFunc(handleHealth)))
	s.mux.Handle("GET /api/hello", route.Named("hello", http.HandlerFunc(handleHello)))
	s.mux.Handle("GET /api/echo", route.Named("echo", http.HandlerFunc(handleEcho)))
	s.mux.Handle("GET /api/request-id", route.Named("request-id", http.HandlerFunc(handleRequestID)))
	s.mux.Handle("GET /api/raw", envelope.Raw(http.HandlerFunc(handleRaw)))
	s.mux.HandleFunc("GET /v3/api-docs", handleAPIDocs)
	s.mux.HandleFunc("GET /swagger-ui.html", handleSwaggerUI)
	if p := "/" + strings.TrimPrefix(s.cfg.Docs.Path, "/"); p != "/" && p != "/swagger-ui.html" {
		s.mux.HandleFunc("GET "+p, handleSwaggerUI)
	}
	s.mux.Handle("GET /robots.txt", reqlog.NoLog(envelope.Raw(http.HandlerFunc(s.handleRobots))))
}

// handleRobots keeps crawlers away from every documentation marker.
// Robots rules are case-sensitive, so each marker is listed in lower and
// upper case; mixed-case spellings are still crawlable.
func (s *Server) handleRobots(w http.ResponseWriter, r *http.Request) {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	for _, m := range s.classifier.Classifier().Markers() {
		m = strings.TrimPrefix(m, "/")
		b.WriteString("Disallow: /*" + m + "\n")
		if up := asciiUpper(m); up != m {
			b.WriteString("Disallow: /*" + up + "\n")
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(b.String()))
}

func asciiUpper(s string) string {
	return strings.Map(func(r rune) rune {
		if 'a' <= r && r <= 'z' {
			return r - ('a' - 'A')
		}
		return r
	}, s)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func handleHello(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		http.Error(w, "parameter <name> is required", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("hello, " + name))
}

func handleEcho(w http.ResponseWriter, r *http.Request) {
	params := make(map[string]string)
	for k, v := range r.URL.Query() {
		params[k] = strings.Join(v, ",")
	}
	envelope.WriteOK(w, params)
}

func handleRequestID(w http.ResponseWriter, r *http.Request) {
	envelope.WriteOK(w, map[string]string{"request_id": reqlog.RequestID(r.Context())})
}

func handleRaw(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"raw":true}`))
}

func handleAPIDocs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(openAPIDoc))
}

func handleSwaggerUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(swaggerUIPage))
}
