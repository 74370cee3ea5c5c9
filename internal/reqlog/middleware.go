// Package reqlog writes start, finish and failure records for HTTP requests.
//
// Every logged request gets a request ID (returned in the X-Request-Id header
// and available through RequestID on the request context). Documentation
// resources, configured skip paths and handlers wrapped with NoLog are served
// without any log records.
package reqlog

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/jerometseng/requestlog/internal/docpath"
	"github.com/jerometseng/requestlog/internal/route"
)

// Classifier decides which paths are documentation resources
type Classifier interface {
	IsDocumentationResource(path string) bool
}

// Logger is the request-log middleware
type Logger struct {
	log        *slog.Logger
	classifier Classifier
	router     route.Router
	skipPaths  map[string]struct{}
	now        func() time.Time
}

// Option configures a Logger
type Option func(*Logger)

// WithLogger sets the destination logger
func WithLogger(log *slog.Logger) Option {
	return func(l *Logger) {
		if log != nil {
			l.log = log
		}
	}
}

// WithClassifier replaces the default documentation classifier
func WithClassifier(c Classifier) Option {
	return func(l *Logger) {
		if c != nil {
			l.classifier = c
		}
	}
}

// WithRouter sets the router used to find per-route opt-outs and names.
// When unset, the wrapped handler is used if it is a router.
func WithRouter(r route.Router) Option {
	return func(l *Logger) {
		l.router = r
	}
}

// WithSkipPaths excludes exact request paths from logging
func WithSkipPaths(paths ...string) Option {
	return func(l *Logger) {
		for _, p := range paths {
			l.skipPaths[p] = struct{}{}
		}
	}
}

// New creates a request-log middleware
func New(opts ...Option) *Logger {
	l := &Logger{
		log:        slog.Default(),
		classifier: docpath.Default(),
		skipPaths:  make(map[string]struct{}),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// skipper marks handlers that must not be logged
type skipper interface {
	SkipRequestLog() bool
}

type noLogHandler struct {
	next http.Handler
}

// NoLog marks h so that requests routed to it are not logged
func NoLog(h http.Handler) http.Handler {
	return &noLogHandler{next: h}
}

func (n *noLogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n.next.ServeHTTP(w, r)
}

func (n *noLogHandler) Unwrap() http.Handler { return n.next }

func (n *noLogHandler) SkipRequestLog() bool { return true }

// Skips reports whether r would be served without request logs
func (l *Logger) Skips(r *http.Request, h http.Handler) bool {
	if _, ok := l.skipPaths[r.URL.Path]; ok {
		return true
	}
	if l.classifier.IsDocumentationResource(r.URL.Path) {
		return true
	}
	if s, ok := route.Find[skipper](h); ok && s.SkipRequestLog() {
		return true
	}
	return false
}

// Middleware wraps next with request logging
func (l *Logger) Middleware(next http.Handler) http.Handler {
	router := l.router
	if router == nil {
		if r, ok := next.(route.Router); ok {
			router = r
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, pattern := route.Resolve(router, r)
		if l.Skips(r, h) {
			next.ServeHTTP(w, r)
			return
		}

		id := NewRequestID()
		w.Header().Set(HeaderRequestID, id)
		ctx := WithRequestID(r.Context(), id)
		r = r.WithContext(ctx)

		entry := l.log.With(
			slog.String("request_id", id),
			slog.String("ip", ClientIP(r)),
			slog.String("method", r.Method),
			slog.String("uri", r.URL.RequestURI()),
		)
		if name := route.Name(h, pattern); name != "" {
			entry = entry.With(slog.String("handler", name))
		}

		startAttrs := []any{}
		if q := r.URL.Query(); len(q) > 0 {
			startAttrs = append(startAttrs, slog.Any("params", q))
		}
		entry.InfoContext(ctx, "request started", startAttrs...)

		start := l.now()
		rec := &statusRecorder{ResponseWriter: w}

		defer func() {
			elapsed := l.now().Sub(start)

			if p := recover(); p != nil {
				if p != http.ErrAbortHandler {
					entry.ErrorContext(ctx, "request failed",
						slog.String("panic", fmt.Sprint(p)),
						slog.Duration("duration", elapsed),
						slog.String("stack", string(debug.Stack())),
					)
				}
				panic(p)
			}

			status := rec.Status()
			attrs := []any{
				slog.Int("status", status),
				slog.Int("bytes", rec.bytes),
				slog.Duration("duration", elapsed),
			}
			if status >= http.StatusInternalServerError {
				entry.ErrorContext(ctx, "request failed", attrs...)
				return
			}
			entry.InfoContext(ctx, "request finished", attrs...)
		}()

		next.ServeHTTP(rec, r)
	})
}
