// Package ratelimit throttles API clients with fixed one-minute windows.
// Every request spends from the client's general budget; writes also spend
// from a smaller write budget, since each write fans out to events and
// exports.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const (
	window = time.Minute
	// idleAfter is how long a client may stay silent before it is forgotten.
	idleAfter = 10 * time.Minute
)

// Config sets the per-client budgets. A budget of zero or less is unlimited.
type Config struct {
	RequestsPerMinute int
	WritesPerMinute   int
	CleanupInterval   time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 120,
		WritesPerMinute:   30,
		CleanupInterval:   5 * time.Minute,
	}
}

type bucket struct {
	opened time.Time // start of the current window
	seen   time.Time
	used   int
}

// spend takes one unit from b, opening a new window when the old one has
// passed. It reports whether the unit was within limit.
func (b *bucket) spend(now time.Time, limit int) bool {
	if now.Sub(b.opened) >= window {
		b.opened, b.used = now, 0
	}
	b.seen = now
	if b.used >= limit {
		return false
	}
	b.used++
	return true
}

type client struct {
	all, writes bucket
}

// Limiter tracks budgets per client key, usually the client IP.
type Limiter struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	clients map[string]*client

	rejected atomic.Int64
	stop     chan struct{}
	stopOnce sync.Once
}

// NewLimiter starts a limiter and its cleanup goroutine; Stop releases it.
func NewLimiter(cfg Config) *Limiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultConfig().CleanupInterval
	}
	l := &Limiter{
		cfg:     cfg,
		now:     time.Now,
		clients: make(map[string]*client),
		stop:    make(chan struct{}),
	}
	go l.sweep()
	return l
}

// Allow spends one request for key, and one write too when write is set.
// A request refused by either budget spends nothing from the write budget.
func (l *Limiter) Allow(key string, write bool) bool {
	if l.cfg.RequestsPerMinute <= 0 && (!write || l.cfg.WritesPerMinute <= 0) {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.clients[key]
	if !ok {
		c = &client{all: bucket{opened: now}, writes: bucket{opened: now}}
		l.clients[key] = c
	}

	allowed := l.cfg.RequestsPerMinute <= 0 || c.all.spend(now, l.cfg.RequestsPerMinute)
	if allowed && write && l.cfg.WritesPerMinute > 0 {
		allowed = c.writes.spend(now, l.cfg.WritesPerMinute)
	}
	if !allowed {
		l.rejected.Add(1)
	}
	return allowed
}

// retryAfter is the number of whole seconds until key's oldest exhausted
// window reopens, at least 1.
func (l *Limiter) retryAfter(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[key]
	if !ok {
		return 1
	}
	now := l.now()
	left := window - now.Sub(c.all.opened)
	if l.cfg.WritesPerMinute > 0 && c.writes.used >= l.cfg.WritesPerMinute {
		if w := window - now.Sub(c.writes.opened); w > left {
			left = w
		}
	}
	if secs := int((left + time.Second - 1) / time.Second); secs > 1 {
		return secs
	}
	return 1
}

func (l *Limiter) sweep() {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.forgetIdle()
		case <-l.stop:
			return
		}
	}
}

// forgetIdle drops clients that sent nothing for idleAfter.
func (l *Limiter) forgetIdle() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-idleAfter)
	n := 0
	for key, c := range l.clients {
		if c.all.seen.Before(cutoff) && c.writes.seen.Before(cutoff) {
			delete(l.clients, key)
			n++
		}
	}
	return n
}

// ActiveClients is the number of clients currently tracked.
func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

type Metrics struct {
	Rejected int64
	Clients  int
}

func (l *Limiter) GetMetrics() Metrics {
	return Metrics{Rejected: l.rejected.Load(), Clients: l.ActiveClients()}
}

// IsWrite reports whether r changes state.
func IsWrite(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// Middleware refuses requests over budget with Retry-After set. onLimit
// writes the refusal body; nil means a plain-text 429.
func (l *Limiter) Middleware(clientKey func(*http.Request) string, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			if l.Allow(key, IsWrite(r)) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", strconv.Itoa(l.retryAfter(key)))
			if onLimit == nil {
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			onLimit(w, r)
		})
	}
}
