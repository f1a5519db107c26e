package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Defaults for the per-IP limiter.
const (
	DefaultIPLimit  = 20
	DefaultIPWindow = time.Minute

	visitorIdleTimeout = 3 * time.Minute
	cleanupInterval    = time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPLimiter is a token bucket per client address.
// Limit requests are allowed per Window, with bursts up to Limit.
type IPLimiter struct {
	limit  rate.Limit
	burst  int
	now    func() time.Time
	stopCh chan struct{}
	once   sync.Once

	// trusted proxies may set X-Forwarded-For and X-Real-IP.
	trusted []netip.Prefix

	mu       sync.Mutex
	visitors map[string]*visitor
}

// LimiterOption configures an IPLimiter.
type LimiterOption func(*IPLimiter)

// WithTrustedProxies lets requests arriving from these networks name the
// client through forwarding headers.
func WithTrustedProxies(prefixes ...netip.Prefix) LimiterOption {
	return func(l *IPLimiter) {
		l.trusted = append(l.trusted, prefixes...)
	}
}

// NewIPLimiter creates a limiter and starts its idle-visitor cleanup.
// Call Stop to release the cleanup goroutine.
func NewIPLimiter(limit int, window time.Duration, opts ...LimiterOption) *IPLimiter {
	if limit <= 0 {
		limit = DefaultIPLimit
	}
	if window <= 0 {
		window = DefaultIPWindow
	}
	l := &IPLimiter{
		limit:    rate.Limit(float64(limit) / window.Seconds()),
		burst:    limit,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		visitors: make(map[string]*visitor),
	}
	for _, opt := range opts {
		opt(l)
	}
	go l.cleanupLoop()
	return l
}

// Allow reports whether a request from ip may proceed now.
func (l *IPLimiter) Allow(ip string) bool {
	l.mu.Lock()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = l.now()
	l.mu.Unlock()

	if !v.limiter.Allow() {
		signinBlocksTotal.WithLabelValues("ip").Inc()
		return false
	}
	return true
}

// Len returns the number of tracked addresses.
func (l *IPLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (l *IPLimiter) Stop() {
	l.once.Do(func() { close(l.stopCh) })
}

func (l *IPLimiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCh:
			return
		}
	}
}

// cleanup forgets addresses idle for longer than visitorIdleTimeout.
func (l *IPLimiter) cleanup() {
	cutoff := l.now().Add(-visitorIdleTimeout)
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, ip)
		}
	}
}

// Middleware rejects requests over the per-IP rate with 429.
func (l *IPLimiter) Middleware(onLimited http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(ClientIP(r, l.trusted)) {
				onLimited.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the address the limiter keys r on.
//
// Forwarding headers are only honoured when the connection comes from a
// trusted proxy. X-Forwarded-For is then read right to left and the first
// hop outside the trusted networks wins; X-Real-IP is the fallback.
func ClientIP(r *http.Request, trusted []netip.Prefix) string {
	remote := remoteHost(r)
	if !isTrusted(remote, trusted) {
		return remote
	}

	if values := r.Header.Values("X-Forwarded-For"); len(values) > 0 {
		hops := strings.Split(strings.Join(values, ","), ",")
		client := ""
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			client = hop
			if !isTrusted(hop, trusted) {
				break
			}
		}
		if client != "" {
			return client
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return remote
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func isTrusted(ip string, trusted []netip.Prefix) bool {
	if len(trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ParseTrustedProxies parses addresses and CIDR ranges such as
// "10.0.0.0/8" or "127.0.0.1".
func ParseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", entry, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", entry, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}
