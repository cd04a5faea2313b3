package api

import (
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	namesrvAddrPath = "/api/config/namesrv-addr"
	vipChannelPath  = "/api/config/vip-channel"
)

// adminFields maps each administrative setter route to the field it updates.
var adminFields = map[string]string{
	namesrvAddrPath: "namesrvAddr",
	vipChannelPath:  "isVIPChannel",
}

type rateLimiter interface {
	Allow() bool
}

type tokenBucket struct {
	limiter *rate.Limiter
}

func newTokenBucketLimiter(ratePerSecond float64, burst int) rateLimiter {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}

	return &tokenBucket{
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

func (b *tokenBucket) Allow() bool {
	if b == nil || b.limiter == nil {
		return true
	}
	return b.limiter.Allow()
}

// retryAfter is the whole-second wait until the next token, at least one.
func (b *tokenBucket) retryAfter() time.Duration {
	if b == nil || b.limiter == nil || b.limiter.Limit() <= 0 {
		return time.Second
	}
	wait := time.Duration(float64(time.Second) / float64(b.limiter.Limit()))
	if wait < time.Second {
		return time.Second
	}
	return wait.Round(time.Second)
}

// limiters splits traffic between read routes and the administrative
// setters. A nil limiter leaves its class unlimited.
type limiters struct {
	read  rateLimiter
	admin rateLimiter
}

// classify returns the limiter for r and, for setter routes, the field the
// request would update.
func (l limiters) classify(r *http.Request) (rateLimiter, string) {
	if r.Method == http.MethodPut {
		if field, ok := adminFields[r.URL.Path]; ok {
			return l.admin, field
		}
	}
	return l.read, ""
}

func rateLimitMiddleware(l limiters, next http.Handler) http.Handler {
	if l.read == nil && l.admin == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter, field := l.classify(r)
		if limiter == nil || limiter.Allow() {
			next.ServeHTTP(w, r)
			return
		}

		wait := time.Second
		if tb, ok := limiter.(*tokenBucket); ok {
			wait = tb.retryAfter()
		}
		w.Header().Set("Retry-After", strconv.Itoa(int(wait/time.Second)))

		resp := errorResponse{
			Error:   "Too many requests",
			Details: "rate limit exceeded, please retry shortly",
		}
		if field != "" {
			resp.Field = field
			resp.Details = "too many " + field + " updates, please retry shortly"
		}
		writeJSON(w, http.StatusTooManyRequests, resp)
	})
}
