// Package ratelimit limits requests per client IP over fixed one-minute
// windows.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const window = time.Minute

// Limiter counts requests per client in a window that starts with the
// client's first request and resets one minute later.
type Limiter struct {
	limit     int
	idleAfter time.Duration
	now       func() time.Time

	mu      sync.Mutex
	clients map[string]*bucket

	rejected int64
	stop     chan struct{}
	stopOnce sync.Once
}

type bucket struct {
	start    time.Time
	count    int
	lastSeen time.Time
}

// Config holds rate limiter configuration. Clients idle for IdleAfter are
// forgotten by a sweep running every CleanupInterval.
type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
	IdleAfter         time.Duration
	Now               func() time.Time
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 120,
		CleanupInterval:   5 * time.Minute,
		IdleAfter:         10 * time.Minute,
	}
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// RetryAfter is the time until the client's window resets.
	RetryAfter time.Duration
}

// RetryAfterSeconds renders RetryAfter for the Retry-After header, never
// below one second.
func (d Decision) RetryAfterSeconds() string {
	secs := int(math.Ceil(d.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}
	if config.IdleAfter <= 0 {
		config.IdleAfter = def.IdleAfter
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	rl := &Limiter{
		limit:     config.RequestsPerMinute,
		idleAfter: config.IdleAfter,
		now:       config.Now,
		clients:   make(map[string]*bucket),
		stop:      make(chan struct{}),
	}
	go rl.sweepEvery(config.CleanupInterval)
	return rl
}

// Allow records a request from clientIP and reports whether it fits the
// client's current window. Rejected requests still count toward the window.
func (rl *Limiter) Allow(clientIP string) Decision {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.clients[clientIP]
	if !ok || now.Sub(b.start) >= window {
		b = &bucket{start: now}
		rl.clients[clientIP] = b
	}
	b.count++
	b.lastSeen = now

	d := Decision{
		Allowed:    b.count <= rl.limit,
		Limit:      rl.limit,
		Remaining:  max(rl.limit-b.count, 0),
		RetryAfter: b.start.Add(window).Sub(now),
	}
	if !d.Allowed {
		atomic.AddInt64(&rl.rejected, 1)
	}
	return d
}

func (rl *Limiter) sweepEvery(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.Sweep()
		case <-rl.stop:
			return
		}
	}
}

// Sweep forgets clients idle longer than IdleAfter and returns how many it
// removed.
func (rl *Limiter) Sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.idleAfter)
	removed := 0
	for ip, b := range rl.clients {
		if b.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
			removed++
		}
	}
	return removed
}

func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Stop ends the sweep goroutine. It is safe to call more than once.
func (rl *Limiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Stats is a point-in-time view for the metrics endpoint.
type Stats struct {
	Rejected int64
	Clients  int
}

func (rl *Limiter) Stats() Stats {
	return Stats{
		Rejected: atomic.LoadInt64(&rl.rejected),
		Clients:  rl.ActiveClients(),
	}
}

// Middleware rejects requests over the limit with 429 and a Retry-After
// header, handing them to onLimit when set. Every response carries the
// X-RateLimit-Limit and X-RateLimit-Remaining headers.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request, Decision)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := rl.Allow(extractIP(r))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if d.Allowed {
				next.ServeHTTP(w, r)
				return
			}
			if onLimit != nil {
				onLimit(w, r, d)
				return
			}
			w.Header().Set("Retry-After", d.RetryAfterSeconds())
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		})
	}
}
