// Package server assembles the classifier, middlewares and demo routes into
// an HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/netutil"

	"github.com/jerometseng/requestlog/internal/cache"
	"github.com/jerometseng/requestlog/internal/docpath"
	"github.com/jerometseng/requestlog/internal/envelope"
	"github.com/jerometseng/requestlog/internal/model"
	"github.com/jerometseng/requestlog/internal/reqlog"
	"github.com/jerometseng/requestlog/internal/worker"
)

const shutdownTimeout = 10 * time.Second

// Server serves the application mux behind the request-log, rate-limit and
// envelope middlewares.
type Server struct {
	cfg        *model.Config
	log        *slog.Logger
	classifier *cache.CachedClassifier
	limiter    *worker.Limiter
	mux        *http.ServeMux
	handler    http.Handler
}

// New builds a server from cfg
func New(cfg *model.Config, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}

	c, err := docpath.New(cfg.Docs.Markers)
	if err != nil {
		return nil, fmt.Errorf("build classifier: %w", err)
	}

	var verdicts cache.Cache
	if cfg.Cache.Enabled {
		verdicts = cache.NewMemoryCache(cfg.Cache.TTL, cfg.Cache.CleanupInterval).WithMaxEntries(cfg.Cache.MaxEntries)
	}

	s := &Server{
		cfg:        cfg,
		log:        log,
		classifier: cache.NewCachedClassifier(c, verdicts, cfg.Cache.TTL),
		mux:        http.NewServeMux(),
	}
	s.routes()

	var h http.Handler = reqlog.New(
		reqlog.WithLogger(log),
		reqlog.WithClassifier(s.classifier),
		reqlog.WithRouter(s.mux),
		reqlog.WithSkipPaths(cfg.Log.SkipPaths...),
	).Middleware(s.mux)

	if cfg.RateLimit.Enabled {
		s.limiter = worker.NewLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		s.limiter.SetIdleTimeout(cfg.RateLimit.IdleTimeout)
		if err := s.limiter.TrustProxies(cfg.RateLimit.TrustedProxies); err != nil {
			return nil, fmt.Errorf("configure rate limit: %w", err)
		}
		h = s.limiter.Middleware(s.classifier, h)
	}

	h = envelope.Wrap(h,
		envelope.WithClassifier(s.classifier),
		envelope.WithRouter(s.mux),
		envelope.WithLogger(log),
	)

	if prefix := strings.TrimSuffix(cfg.Server.ContextPath, "/"); prefix != "" {
		h = http.StripPrefix(prefix, h)
	}

	s.handler = h
	return s, nil
}

// Handle registers an application handler on the server mux
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// Handler returns the fully wrapped handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Classifier returns the cached documentation classifier in use
func (s *Server) Classifier() *cache.CachedClassifier {
	return s.classifier
}

// UpdateMarkers rebuilds the classifier from markers and swaps it in
func (s *Server) UpdateMarkers(markers []string) error {
	c, err := docpath.New(markers)
	if err != nil {
		return fmt.Errorf("rebuild classifier: %w", err)
	}
	s.classifier.Swap(c)
	s.log.Info("documentation markers updated", slog.Any("markers", c.Markers()))
	return nil
}

// ListenAndServe listens on the configured address and serves until ctx is done
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.cfg.Server.MaxConns > 0 {
		ln = netutil.LimitListener(ln, s.cfg.Server.MaxConns)
	}

	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		ErrorLog:     slog.NewLogLogger(s.log.Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.log.Info("server started", slog.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}

	s.log.Info("server stopped")
	return nil
}
