package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	perr "helioserve/internal/platform/errors"
	"helioserve/internal/platform/logger"
	phttp "helioserve/internal/platform/net/http"

	"golang.org/x/time/rate"
)

// RateLimitOptions configures the per client token bucket
type RateLimitOptions struct {
	RPS   float64
	Burst int
	// IdleAfter drops a client bucket once it has been refilled and unused this long
	IdleAfter time.Duration
}

// RateLimiter hands out one token bucket per client ip
type RateLimiter struct {
	opt RateLimitOptions

	mu      sync.Mutex
	clients map[string]*client
}

type client struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewRateLimiter builds a limiter, RPS <= 0 disables limiting
func NewRateLimiter(opt RateLimitOptions) *RateLimiter {
	if opt.Burst <= 0 {
		opt.Burst = 1
	}
	if opt.IdleAfter <= 0 {
		opt.IdleAfter = 5 * time.Minute
	}
	return &RateLimiter{opt: opt, clients: make(map[string]*client)}
}

func (rl *RateLimiter) limiter(ip string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	c, ok := rl.clients[ip]
	if !ok {
		c = &client{lim: rate.NewLimiter(rate.Limit(rl.opt.RPS), rl.opt.Burst)}
		rl.clients[ip] = c
	}
	c.seen = now
	return c.lim
}

// Sweep removes idle buckets, returns how many were dropped
func (rl *RateLimiter) Sweep(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	n := 0
	for ip, c := range rl.clients {
		if now.Sub(c.seen) >= rl.opt.IdleAfter {
			delete(rl.clients, ip)
			n++
		}
	}
	return n
}

// Run sweeps idle buckets every minute until ctx is done
func (rl *RateLimiter) Run(ctx context.Context) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			rl.Sweep(now)
		}
	}
}

// Middleware rejects requests over budget with a 429 envelope
// RealIP should run first so RemoteAddr is the client address
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	if rl == nil || rl.opt.RPS <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.limiter(ip, time.Now()).Allow() {
			logger.C(r.Context()).Warn().
				Str("client_ip", ip).
				Str("path", r.URL.Path).
				Float64("rps", rl.opt.RPS).
				Msg("rate limit exceeded")
			w.Header().Set("Retry-After", "1")
			phttp.RespondError(w, r, perr.TooManyRequestsf("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
