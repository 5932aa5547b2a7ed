package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"careerkit/internal/auth"
	"careerkit/internal/errors"
	"careerkit/internal/types"

	"golang.org/x/time/rate"
)

const limiterCleanupInterval = 10 * time.Minute

// LimiterManager manages a collection of rate limiters for different keys (IPs, session tokens).
type LimiterManager struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	lastSeen  map[string]time.Time
	rate      rate.Limit
	burst     int
	done      chan struct{}
	closeOnce sync.Once
	logger    *errors.Logger
}

// RateLimiter is the limiter used by the HTTP server
type RateLimiter = LimiterManager

// NewRateLimiter creates a new manager.
// requestsPerMin is the number of requests allowed per minute.
// burstCapacity is the token bucket size.
func NewRateLimiter(requestsPerMin, burstCapacity int, logger *errors.Logger) *LimiterManager {
	return newRateLimiter(requestsPerMin, burstCapacity, limiterCleanupInterval, logger)
}

func newRateLimiter(requestsPerMin, burstCapacity int, cleanupInterval time.Duration, logger *errors.Logger) *LimiterManager {
	// The rate.Limit is specified in requests per second.
	r := rate.Limit(float64(requestsPerMin) / 60.0)
	if burstCapacity < 1 {
		burstCapacity = 1
	}

	m := &LimiterManager{
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		rate:     r,
		burst:    burstCapacity,
		done:     make(chan struct{}),
		logger:   logger,
	}

	go m.cleanupRoutine(cleanupInterval)
	return m
}

// GetLimiter retrieves or creates a limiter for a given key.
func (m *LimiterManager) GetLimiter(key string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	limiter, exists := m.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(m.rate, m.burst)
		m.limiters[key] = limiter
	}
	m.lastSeen[key] = time.Now()

	return limiter
}

// Allow checks if a request should be allowed for the given key
func (m *LimiterManager) Allow(key string) bool {
	return m.GetLimiter(key).Allow()
}

// GetStats returns current rate limiter statistics
func (m *LimiterManager) GetStats() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	return map[string]any{
		"active_limiters": len(m.limiters),
		"rate_per_second": float64(m.rate),
		"rate_per_minute": float64(m.rate) * 60.0,
		"burst_capacity":  m.burst,
	}
}

// cleanupRoutine periodically removes inactive limiters
func (m *LimiterManager) cleanupRoutine(cleanupInterval time.Duration) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup(cleanupInterval)
		case <-m.done:
			return
		}
	}
}

// cleanup removes limiters that haven't been used for the specified duration
func (m *LimiterManager) cleanup(evictionAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for key, lastSeen := range m.lastSeen {
		if now.Sub(lastSeen) > evictionAge {
			delete(m.limiters, key)
			delete(m.lastSeen, key)
		}
	}

	if m.logger != nil {
		m.logger.Debug("Rate limiter cleanup completed",
			"remaining_limiters", len(m.limiters))
	}
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (m *LimiterManager) Close() {
	m.closeOnce.Do(func() { close(m.done) })
}

// rateLimitMiddleware rejects requests over the limit with 429 and the failure envelope
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	if s.RateLimiter == nil || s.RateLimit == nil || !s.RateLimit.Enabled {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Every enabled bucket must have room; the IP bucket is checked first
		// so rotating bearer values cannot mint fresh token buckets past it.
		for _, k := range getRateLimitKeys(r, s.RateLimit.ByToken, s.RateLimit.ByIP) {
			if s.RateLimiter.Allow(k.key) {
				continue
			}
			s.Logger.Info("Rate limit exceeded",
				"limiter", k.kind,
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			s.Observability.GetMetrics().RecordRateLimitHit(r.Context(), k.kind)
			writeEnvelope(w, http.StatusTooManyRequests, types.FailureResponse("Rate limit exceeded"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// rateLimitKey is one limiter bucket a request is charged against
type rateLimitKey struct {
	key  string
	kind string // "ip" or "token"
}

// getRateLimitKeys returns the buckets a request is charged against, IP
// first. The token is only used as a key, never logged.
func getRateLimitKeys(r *http.Request, byToken, byIP bool) []rateLimitKey {
	var keys []rateLimitKey
	if byIP {
		keys = append(keys, rateLimitKey{key: "ip:" + getClientIP(r), kind: "ip"})
	}
	if byToken {
		if token := auth.BearerToken(r.Header.Get("Authorization")); token != "" {
			keys = append(keys, rateLimitKey{key: "token:" + token, kind: "token"})
		} else if !byIP {
			// Anonymous requests still need a bucket
			keys = append(keys, rateLimitKey{key: "ip:" + getClientIP(r), kind: "ip"})
		}
	}
	return keys
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (for proxies)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := parseFirstIP(xff); ip != "" {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip := net.ParseIP(xri); ip != nil {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// parseFirstIP parses the first valid IP from a comma-separated list
func parseFirstIP(ips string) string {
	for ip := range strings.SplitSeq(ips, ",") {
		ip = strings.TrimSpace(ip)
		if parsed := net.ParseIP(ip); parsed != nil {
			return ip
		}
	}
	return ""
}
