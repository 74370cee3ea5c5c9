// Package envelope wraps handler output into a uniform model.Result.
package envelope

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/jerometseng/requestlog/internal/docpath"
	"github.com/jerometseng/requestlog/internal/model"
	"github.com/jerometseng/requestlog/internal/reqlog"
	"github.com/jerometseng/requestlog/internal/route"
)

const contentTypeJSON = "application/json"

// Classifier decides which paths are documentation resources
type Classifier interface {
	IsDocumentationResource(path string) bool
}

type wrapper struct {
	next       http.Handler
	classifier Classifier
	router     route.Router
	log        *slog.Logger
}

// Option configures Wrap
type Option func(*wrapper)

// WithClassifier replaces the default documentation classifier
func WithClassifier(c Classifier) Option {
	return func(w *wrapper) {
		if c != nil {
			w.classifier = c
		}
	}
}

// WithRouter sets the router used to find Raw handlers
func WithRouter(r route.Router) Option {
	return func(w *wrapper) {
		w.router = r
	}
}

// WithLogger sets the logger for recovered panics
func WithLogger(l *slog.Logger) Option {
	return func(w *wrapper) {
		if l != nil {
			w.log = l
		}
	}
}

// Wrap returns a handler that wraps next's JSON and text responses in a Result
func Wrap(next http.Handler, opts ...Option) http.Handler {
	w := &wrapper{
		next:       next,
		classifier: docpath.Default(),
		log:        slog.Default(),
	}
	if r, ok := next.(route.Router); ok {
		w.router = r
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// rawMarker marks handlers whose responses are written untouched
type rawMarker interface {
	RawResponse() bool
}

type rawHandler struct {
	next http.Handler
}

// Raw marks h so its responses are never wrapped
func Raw(h http.Handler) http.Handler {
	return &rawHandler{next: h}
}

func (h *rawHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) { h.next.ServeHTTP(w, r) }

func (h *rawHandler) Unwrap() http.Handler { return h.next }

func (h *rawHandler) RawResponse() bool { return true }

func (wr *wrapper) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if wr.classifier.IsDocumentationResource(r.URL.Path) {
		wr.next.ServeHTTP(w, r)
		return
	}

	h, _ := route.Resolve(wr.router, r)
	if m, ok := route.Find[rawMarker](h); ok && m.RawResponse() {
		wr.serveRaw(w, r)
		return
	}

	bw := &bufferWriter{w: w}
	if p, panicked := wr.serve(bw, r); panicked {
		wr.writePanic(w, r, p)
		return
	}
	wr.flush(w, bw)
}

// serve runs the next handler and reports a recovered panic
func (wr *wrapper) serve(w http.ResponseWriter, r *http.Request) (p any, panicked bool) {
	defer func() {
		if v := recover(); v != nil {
			if v == http.ErrAbortHandler {
				panic(v)
			}
			p, panicked = v, true
		}
	}()
	wr.next.ServeHTTP(w, r)
	return nil, false
}

func (wr *wrapper) serveRaw(w http.ResponseWriter, r *http.Request) {
	tw := &trackingWriter{ResponseWriter: w}
	p, panicked := wr.serve(tw, r)
	if !panicked {
		return
	}
	if tw.wrote {
		wr.log.ErrorContext(r.Context(), "panic after response started", slog.String("panic", fmt.Sprint(p)))
		return
	}
	wr.writePanic(w, r, p)
}

func (wr *wrapper) writePanic(w http.ResponseWriter, r *http.Request, p any) {
	wr.log.ErrorContext(r.Context(), "handler panic recovered",
		slog.String("request_id", w.Header().Get(reqlog.HeaderRequestID)),
		slog.String("uri", r.URL.RequestURI()),
		slog.String("panic", fmt.Sprint(p)),
	)
	w.Header().Del("Content-Length")
	WriteFail(w, http.StatusInternalServerError, panicMessage(p))
}

// flush writes the buffered response, wrapping it where appropriate
func (wr *wrapper) flush(w http.ResponseWriter, bw *bufferWriter) {
	status := bw.Status()
	body := bw.buf.Bytes()

	if !bodyAllowed(status) {
		w.WriteHeader(status)
		return
	}

	ct := w.Header().Get("Content-Type")
	if ct == "" && len(body) > 0 {
		ct = http.DetectContentType(body)
	}
	kind := classifyContent(ct)

	if kind == contentOther || (kind == contentJSON && isResult(body)) {
		w.WriteHeader(status)
		_, _ = w.Write(body)
		return
	}

	var result any
	switch {
	case status >= http.StatusBadRequest:
		result = model.FailWithCode(status, failMessage(status, body))
	case kind == contentJSON && len(body) > 0 && json.Valid(body):
		result = model.Ok(json.RawMessage(body))
	case len(body) == 0:
		result = model.Ok[any](nil)
	default:
		result = model.Ok(string(body))
	}

	w.Header().Del("Content-Length")
	writeJSON(w, status, result)
}

type contentKind int

const (
	contentOther contentKind = iota
	contentJSON
	contentText
)

func classifyContent(ct string) contentKind {
	if ct == "" {
		return contentText
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return contentOther
	}
	switch {
	case mt == contentTypeJSON || strings.HasSuffix(mt, "+json"):
		return contentJSON
	case mt == "text/plain":
		return contentText
	default:
		return contentOther
	}
}

func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status <= 199:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}

// isResult reports whether body is already a Result object
func isResult(body []byte) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return false
	}
	_, hasCode := probe["code"]
	_, hasMsg := probe["msg"]
	return hasCode && hasMsg
}

func failMessage(status int, body []byte) string {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return msg
}

func panicMessage(p any) string {
	if err, ok := p.(error); ok {
		return fmt.Sprintf("%T: %s", err, err.Error())
	}
	return fmt.Sprintf("%T: %v", p, p)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		data, _ = json.Marshal(model.Fail(fmt.Sprintf("encode result: %v", err)))
	}
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// WriteOK writes data wrapped in a successful Result
func WriteOK[T any](w http.ResponseWriter, data T) {
	writeJSON(w, http.StatusOK, model.Ok(data))
}

// WriteFail writes a failed Result with the given HTTP status as its code
func WriteFail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.FailWithCode(status, msg))
}
