// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// LoginProtection guards POST /auth/verify: a per-IP rate limit on the
// endpoint plus a per-account lockout that doubles with every repeat.
type LoginProtection struct {
	ipLimiters *limiterCache[string]

	mu       sync.Mutex
	accounts map[string]*failures

	cfg    LoginProtectionConfig
	logger *slog.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

// failures tracks one staff email's recent failed verifications.
type failures struct {
	count       int
	windowStart time.Time
	lockedUntil time.Time
	lockouts    int
}

// maxLockout caps the doubling lockout.
const maxLockout = 24 * time.Hour

// LoginProtectionConfig holds the limits. Zero values take the defaults.
type LoginProtectionConfig struct {
	IPRateLimit       float64       // verify requests per second per IP
	IPBurst           int           // burst allowance per IP
	MaxFailedAttempts int           // the Nth failure inside AttemptWindow locks the account
	LockoutDuration   time.Duration // first lockout; doubles on each repeat
	AttemptWindow     time.Duration // failures older than this are forgotten
	Now               func() time.Time
	Logger            *slog.Logger
}

// DefaultLoginProtectionConfig returns the production limits.
func DefaultLoginProtectionConfig() LoginProtectionConfig {
	return LoginProtectionConfig{
		IPRateLimit:       0.5,
		IPBurst:           5,
		MaxFailedAttempts: 5,
		LockoutDuration:   15 * time.Minute,
		AttemptWindow:     15 * time.Minute,
	}
}

// NewLoginProtection starts a LoginProtection. Close stops its sweeper.
func NewLoginProtection(cfg LoginProtectionConfig) *LoginProtection {
	def := DefaultLoginProtectionConfig()
	if cfg.IPRateLimit <= 0 {
		cfg.IPRateLimit = def.IPRateLimit
	}
	if cfg.IPBurst <= 0 {
		cfg.IPBurst = def.IPBurst
	}
	if cfg.MaxFailedAttempts <= 0 {
		cfg.MaxFailedAttempts = def.MaxFailedAttempts
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = def.LockoutDuration
	}
	if cfg.AttemptWindow <= 0 {
		cfg.AttemptWindow = def.AttemptWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	lp := &LoginProtection{
		ipLimiters: newLimiterCache[string](cfg.IPRateLimit, cfg.IPBurst),
		accounts:   make(map[string]*failures),
		cfg:        cfg,
		logger:     logger.With("category", "auth"),
		stop:       make(chan struct{}),
	}
	go lp.sweep()
	return lp
}

// Close stops the sweeper. It is safe to call more than once.
func (lp *LoginProtection) Close() {
	lp.stopOnce.Do(func() { close(lp.stop) })
}

// CheckIPRateLimit reports whether ip may make another verify request.
func (lp *LoginProtection) CheckIPRateLimit(ip string) bool {
	return lp.ipLimiters.get(ip).Allow()
}

// IsAccountLocked reports whether email is locked and for how much longer.
func (lp *LoginProtection) IsAccountLocked(email string) (bool, time.Duration) {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	f, ok := lp.accounts[normalizeEmail(email)]
	if !ok {
		return false, 0
	}
	if left := f.lockedUntil.Sub(lp.cfg.Now()); left > 0 {
		return true, left
	}
	return false, 0
}

// RecordFailedAttempt counts a failed verification. When it reaches
// MaxFailedAttempts the account is locked and the lock duration returned.
func (lp *LoginProtection) RecordFailedAttempt(email string) (bool, time.Duration) {
	email = normalizeEmail(email)
	now := lp.cfg.Now()

	lp.mu.Lock()
	defer lp.mu.Unlock()

	f, ok := lp.accounts[email]
	if !ok {
		f = &failures{windowStart: now}
		lp.accounts[email] = f
	}
	if now.Sub(f.windowStart) > lp.cfg.AttemptWindow {
		f.count, f.windowStart = 0, now
	}
	f.count++
	lp.logger.Debug("verification failure recorded", "email", email, "count", f.count)
	if f.count < lp.cfg.MaxFailedAttempts {
		return false, 0
	}

	lock := lp.cfg.LockoutDuration
	for range f.lockouts {
		if lock >= maxLockout/2 {
			lock = maxLockout
			break
		}
		lock *= 2
	}
	f.lockedUntil = now.Add(lock)
	f.lockouts++
	f.count = 0
	lp.logger.Warn("staff account locked", "email", email, "lockouts", f.lockouts, "duration", lock)
	return true, lock
}

// RecordSuccessfulLogin forgets the account's failures and lockout history.
func (lp *LoginProtection) RecordSuccessfulLogin(email string) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	delete(lp.accounts, normalizeEmail(email))
}

// GetRemainingAttempts returns how many more failures email may have
// before it is locked.
func (lp *LoginProtection) GetRemainingAttempts(email string) int {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	f, ok := lp.accounts[normalizeEmail(email)]
	if !ok || lp.cfg.Now().Sub(f.windowStart) > lp.cfg.AttemptWindow {
		return lp.cfg.MaxFailedAttempts
	}
	return max(lp.cfg.MaxFailedAttempts-f.count, 0)
}

func (lp *LoginProtection) sweep() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-lp.stop:
			return
		case <-ticker.C:
			lp.forgetStale()
		}
	}
}

// forgetStale drops accounts that are neither locked nor inside their
// attempt window, and resets the IP limiters once there are too many.
func (lp *LoginProtection) forgetStale() {
	if lp.ipLimiters.clearIfExceeds(maxLimiterEntries) {
		lp.logger.Info("verify rate limiters reset")
	}
	now := lp.cfg.Now()

	lp.mu.Lock()
	defer lp.mu.Unlock()
	for email, f := range lp.accounts {
		if now.After(f.lockedUntil) && now.Sub(f.windowStart) > lp.cfg.AttemptWindow {
			delete(lp.accounts, email)
		}
	}
}

// Middleware returns HTTP middleware for IP rate limiting on credential
// verification. Only POST requests are limited.
func (lp *LoginProtection) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			ip := GetClientIP(r)
			if !lp.CheckIPRateLimit(ip) {
				lp.logger.Warn("verify rate limit exceeded", "ip", ip)
				WriteAPIError(w, http.StatusTooManyRequests, "rate_limit_exceeded",
					"Too many verification attempts. Please wait a moment and try again.", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetClientIP extracts the client IP from the request. The first
// X-Forwarded-For entry wins over X-Real-IP, which wins over RemoteAddr.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
