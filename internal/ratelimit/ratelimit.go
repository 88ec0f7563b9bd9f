// Package ratelimit bounds the rate of sign-in link requests per client key.
// The counter store is pluggable: an in-process map for single-instance
// deployments, or Redis when limits must be shared across instances.
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultLimit  = 10
	DefaultWindow = 60 * time.Second
)

// Result is the outcome of a limit check. A denied check is a value, not an
// error.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

// Store counts requests per key within a fixed window.
type Store interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// Limiter fronts a Store and absorbs store failures so callers never have to
// branch on limiter errors.
type Limiter struct {
	store  Store
	logger *zap.SugaredLogger
}

func NewLimiter(store Store, logger *zap.SugaredLogger) *Limiter {
	return &Limiter{store: store, logger: logger}
}

// Check reports whether a request for key is admitted. The in-memory store
// cannot fail; a shared-store error is logged and the request admitted, so a
// Redis outage degrades to unlimited rather than locking sign-in out.
func (l *Limiter) Check(ctx context.Context, key string) Result {
	res, err := l.store.Allow(ctx, key)
	if err != nil {
		l.logger.Warnw("rate limit store unavailable, admitting request", "err", err)
		return Result{Allowed: true}
	}
	return res
}

// RecordFailedAttempt charges one request to key's budget. It is invoked on
// syntactically invalid input, so malformed submissions burn through the same
// window as well-formed ones instead of being free.
func (l *Limiter) RecordFailedAttempt(ctx context.Context, key string) {
	_ = l.Check(ctx, key)
}

// ClientKey derives the limiter key for an HTTP request: the first hop of
// X-Forwarded-For when present (set by the reverse proxy in front of the
// site), otherwise the remote address without its ephemeral port.
func ClientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return "ip:" + ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return "ip:" + r.RemoteAddr
	}
	return "ip:" + host
}
