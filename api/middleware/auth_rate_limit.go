package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/brametal/chapas-backend/pkg/errors"
	"github.com/brametal/chapas-backend/pkg/logger"
)

type failureStore interface {
	Get(context.Context, string) (string, error)
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// AccessFailureLimiter blocks a client ip after too many rejected access keys
// within the window.
type AccessFailureLimiter struct {
	store  failureStore
	window time.Duration
	limit  int64
}

// NewAccessFailureLimiter returns nil, which disables limiting, when store is
// nil or the window or limit is not positive.
func NewAccessFailureLimiter(store failureStore, window time.Duration, limit int) *AccessFailureLimiter {
	if store == nil || window <= 0 || limit <= 0 {
		return nil
	}
	return &AccessFailureLimiter{store: store, window: window, limit: int64(limit)}
}

func (l *AccessFailureLimiter) key(ip string) string {
	return l.store.RateLimitKey("access:" + ip)
}

func (l *AccessFailureLimiter) check(ctx context.Context, ip string) error {
	if l == nil || ip == "" {
		return nil
	}
	raw, err := l.store.Get(ctx, l.key(ip))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting")
	}
	count, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return nil
	}
	if count >= l.limit {
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many failed access attempts")
	}
	return nil
}

func (l *AccessFailureLimiter) recordFailure(ctx context.Context, ip string, logg *logger.Logger) {
	if l == nil || ip == "" {
		return
	}
	count, err := l.store.IncrWithTTL(ctx, l.key(ip), l.window)
	if logg == nil {
		return
	}
	if err != nil {
		logg.Error(ctx, "access.failure.count", err)
		return
	}
	if count >= l.limit {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"ip":             ip,
			"attempts":       count,
			"limit":          l.limit,
			"window_seconds": int(l.window.Seconds()),
		}), "access.rate_limit.blocked")
	}
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
