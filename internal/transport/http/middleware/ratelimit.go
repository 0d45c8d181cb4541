package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"ems/internal/transport/http/api"
)

// Counter counts hits of key in a fixed window. It returns the count
// including this hit and the time left before the window resets.
type Counter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int, time.Duration, error)
}

// MemoryCounter is a per-process Counter, used when Redis is not configured.
type MemoryCounter struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	now     func() time.Time
}

type memoryWindow struct {
	count int
	reset time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{windows: map[string]*memoryWindow{}, now: time.Now}
}

func (c *MemoryCounter) Hit(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.windows[key]
	if !ok || !now.Before(w.reset) {
		w = &memoryWindow{reset: now.Add(window)}
		c.windows[key] = w
		c.sweep(now)
	}
	w.count++
	return w.count, w.reset.Sub(now), nil
}

// sweep drops expired windows so idle callers do not accumulate.
func (c *MemoryCounter) sweep(now time.Time) {
	for k, w := range c.windows {
		if !now.Before(w.reset) {
			delete(c.windows, k)
		}
	}
}

type rateRule struct {
	bucket string
	limit  int
	key    func(r *http.Request) string
}

// rulesFor lists the windows a request counts against. Every API call
// counts per actor; identity sync is also limited per client address and
// role-changing calls per actor at a lower rate.
func rulesFor(r *http.Request, perWindow int) []rateRule {
	rules := []rateRule{{bucket: "api", limit: perWindow, key: actorOrIPKey}}
	switch sensitiveRateScope(r) {
	case sensitiveScopeSync:
		rules = append(rules, rateRule{bucket: "sync", limit: max(perWindow/4, 1), key: ClientIP})
	case sensitiveScopeActor:
		rules = append(rules, rateRule{bucket: "sensitive", limit: max(perWindow/2, 1), key: actorOrIPKey})
	}
	return rules
}

// RateLimit limits /api/v1 traffic. A failing counter lets the request
// through.
func RateLimit(counter Counter, perWindow int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if perWindow <= 0 || counter == nil {
				next.ServeHTTP(w, r)
				return
			}
			for _, rule := range rulesFor(r, perWindow) {
				if !enforce(w, r, counter, rule, window) {
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func enforce(w http.ResponseWriter, r *http.Request, counter Counter, rule rateRule, window time.Duration) bool {
	key := rule.bucket + ":" + rule.key(r)
	count, resetIn, err := counter.Hit(r.Context(), key, window)
	if err != nil {
		slog.Warn("rate limit counter failed", "bucket", rule.bucket, "err", err)
		return true
	}

	resetSec := ceilSeconds(resetIn)
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rule.limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(rule.limit-count, 0)))
	w.Header().Set("X-RateLimit-Reset", strconv.Itoa(resetSec))
	if count <= rule.limit {
		return true
	}

	w.Header().Set("Retry-After", strconv.Itoa(max(resetSec, 1)))
	slog.Warn("rate limit exceeded", "key", key, "path", r.URL.Path, "method", r.Method, "limit", rule.limit)
	api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
	return false
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

// ClientIP is the caller address, first X-Forwarded-For hop when present.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}

func actorOrIPKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.AuthID != "" {
		return "user:" + user.AuthID
	}
	return "ip:" + ClientIP(r)
}

type sensitiveScope int

const (
	sensitiveScopeNone sensitiveScope = iota
	sensitiveScopeSync
	sensitiveScopeActor
)

func sensitiveRateScope(r *http.Request) sensitiveScope {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return sensitiveScopeNone
	}

	p := strings.TrimPrefix(r.URL.Path, "/api/v1")
	switch {
	case p == "/auth/sync":
		return sensitiveScopeSync
	case p == "/jobs/dept-sweep", p == "/announcements", p == "/roles":
		return sensitiveScopeActor
	case strings.HasPrefix(p, "/departments/") && strings.HasSuffix(p, "/reconcile"):
		return sensitiveScopeActor
	case strings.HasPrefix(p, "/leave/requests/") && (strings.HasSuffix(p, "/approve") || strings.HasSuffix(p, "/reject")):
		return sensitiveScopeActor
	case strings.HasPrefix(p, "/attendance/") && strings.HasSuffix(p, "/regularize"):
		return sensitiveScopeActor
	}
	return sensitiveScopeNone
}
