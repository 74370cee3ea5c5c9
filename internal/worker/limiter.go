package worker

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/jerometseng/requestlog/internal/docpath"
	"github.com/jerometseng/requestlog/internal/envelope"
	"github.com/jerometseng/requestlog/internal/reqlog"
)

// DefaultIdleTimeout is how long an unused client limiter is kept
const DefaultIdleTimeout = 10 * time.Minute

// Limiter implements per-client rate limiting.
// Client limiters are dropped after being idle for the idle timeout.
type Limiter struct {
	limiters     *gocache.Cache
	idle         time.Duration
	defaultRate  rate.Limit
	defaultBurst int
	trusted      []netip.Prefix
}

// NewLimiter creates a new rate limiter
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	return &Limiter{
		limiters:     gocache.New(DefaultIdleTimeout, DefaultIdleTimeout/2),
		idle:         DefaultIdleTimeout,
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
	}
}

// SetIdleTimeout changes how long unused client limiters are kept
func (l *Limiter) SetIdleTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	l.idle = d
	l.limiters = gocache.New(d, d/2)
}

// TrustProxies makes the limiter key on proxy headers for requests whose
// peer address is one of cidrs. Plain IPs are accepted as single-host prefixes.
func (l *Limiter) TrustProxies(cidrs []string) error {
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if p, err := netip.ParsePrefix(c); err == nil {
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(c)
		if err != nil {
			return fmt.Errorf("trusted proxy %q: %w", c, err)
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}
	l.trusted = prefixes
	return nil
}

// Allow checks if a request for key is allowed without waiting
func (l *Limiter) Allow(key string) bool {
	return l.getLimiter(key).Allow()
}

// getLimiter returns the rate limiter for a key, refreshing its idle deadline
func (l *Limiter) getLimiter(key string) *rate.Limiter {
	if v, found := l.limiters.Get(key); found {
		limiter := v.(*rate.Limiter)
		l.limiters.Set(key, limiter, l.idle)
		return limiter
	}

	limiter := rate.NewLimiter(l.defaultRate, l.defaultBurst)
	if err := l.limiters.Add(key, limiter, l.idle); err != nil {
		// Lost the race with another request for the same key
		if v, found := l.limiters.Get(key); found {
			return v.(*rate.Limiter)
		}
	}
	return limiter
}

// Len returns the number of tracked keys, including idle ones not yet swept
func (l *Limiter) Len() int {
	return l.limiters.ItemCount()
}

// Key returns the rate-limit key for r: the peer address, or the forwarded
// client address when the peer is a trusted proxy.
func (l *Limiter) Key(r *http.Request) string {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	if len(l.trusted) == 0 {
		return host
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return host
	}
	addr = addr.Unmap()
	for _, p := range l.trusted {
		if p.Contains(addr) {
			return reqlog.ClientIP(r)
		}
	}
	return host
}

// Classifier decides which paths are documentation resources
type Classifier interface {
	IsDocumentationResource(path string) bool
}

// Middleware rejects requests over the per-client rate with 429.
// Documentation resources are never limited.
func (l *Limiter) Middleware(c Classifier, next http.Handler) http.Handler {
	if c == nil {
		c = docpath.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c.IsDocumentationResource(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		if !l.Allow(l.Key(r)) {
			w.Header().Set("Retry-After", "1")
			envelope.WriteFail(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
