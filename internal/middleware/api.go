// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// APIError represents a JSON error response for the API.
type APIError struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// WriteAPIError writes a JSON error response.
func WriteAPIError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	apiErr := APIError{}
	apiErr.Error.Code = code
	apiErr.Error.Message = message
	apiErr.Error.Details = details

	_ = json.NewEncoder(w).Encode(apiErr)
}

// maxLimiterEntries bounds the per-key limiter maps.
const maxLimiterEntries = 10000

// limiterCache hands out one token bucket per key (actor id or client IP).
type limiterCache[K comparable] struct {
	mu       sync.Mutex
	limiters map[K]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newLimiterCache[K comparable](rps float64, burst int) *limiterCache[K] {
	return &limiterCache[K]{
		limiters: make(map[K]*rate.Limiter),
		limit:    rate.Limit(rps),
		burst:    burst,
	}
}

// get returns key's bucket. A full map is reset rather than grown;
// forgotten keys start again with a full bucket.
func (lc *limiterCache[K]) get(key K) *rate.Limiter {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if l, ok := lc.limiters[key]; ok {
		return l
	}
	if len(lc.limiters) >= maxLimiterEntries {
		clear(lc.limiters)
	}
	l := rate.NewLimiter(lc.limit, lc.burst)
	lc.limiters[key] = l
	return l
}

// admit takes a token for key. When none is left it returns how long the
// caller should wait before retrying.
func (lc *limiterCache[K]) admit(key K) (time.Duration, bool) {
	res := lc.get(key).Reserve()
	if !res.OK() {
		return 0, false
	}
	if wait := res.Delay(); wait > 0 {
		res.Cancel()
		return wait, false
	}
	return 0, true
}

// clearIfExceeds drops every bucket once there are more than maxSize.
func (lc *limiterCache[K]) clearIfExceeds(maxSize int) bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if len(lc.limiters) <= maxSize {
		return false
	}
	clear(lc.limiters)
	return true
}

func (lc *limiterCache[K]) len() int {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return len(lc.limiters)
}

// writeRateLimited answers 429 with a Retry-After in whole seconds.
func writeRateLimited(w http.ResponseWriter, wait time.Duration) {
	if wait > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
	}
	WriteAPIError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Rate limit exceeded. Please slow down.", nil)
}

// isWrite reports whether the method can change a resource.
func isWrite(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

// ActorRateLimit limits mutating requests per resolved actor so one
// staff member cannot flood the change feed. Reads pass through. It must
// run after ResolveActor.
func ActorRateLimit(rps float64, burst int, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	buckets := newLimiterCache[string](rps, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := GetActor(r)
			if !ok || !isWrite(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			if wait, ok := buckets.admit(actor.ID); !ok {
				logger.Warn("actor rate limit exceeded", "actor_id", actor.ID, "method", r.Method, "path", r.URL.Path)
				writeRateLimited(w, wait)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GlobalRateLimiter limits every request per client IP, before any actor
// is resolved.
type GlobalRateLimiter struct {
	buckets *limiterCache[string]
}

func NewGlobalRateLimiter(rps float64, burst int) *GlobalRateLimiter {
	return &GlobalRateLimiter{buckets: newLimiterCache[string](rps, burst)}
}

func (rl *GlobalRateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if wait, ok := rl.buckets.admit(GetClientIP(r)); !ok {
				writeRateLimited(w, wait)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
