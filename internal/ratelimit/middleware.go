package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/redis"
	libredis "github.com/redis/go-redis/v9"

	"github.com/kaos-euy/backend-kaos/internal/common"
	"github.com/kaos-euy/backend-kaos/internal/obs"
)

// Limiter wraps a shared Redis-backed fixed-window limiter so every API
// instance counts against the same budget.
type Limiter struct {
	store   limiter.Store
	metrics *obs.ShopMetrics
}

// New constructs a Limiter on the given Redis client.
func New(client *libredis.Client, metrics *obs.ShopMetrics) (*Limiter, error) {
	store, err := redis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix: "ratelimit",
	})
	if err != nil {
		return nil, err
	}
	return &Limiter{store: store, metrics: metrics}, nil
}

// Middleware enforces `limit` requests per `period` per client IP for the
// named scope. Limit headers are set on every response; a rejected request
// gets 429 with Retry-After.
func (l *Limiter) Middleware(scope string, limit int64, period time.Duration) func(http.Handler) http.Handler {
	instance := limiter.New(l.store, limiter.Rate{Period: period, Limit: limit})
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := scope + ":" + common.ClientIP(r)
			lctx, err := instance.Get(r.Context(), key)
			if err != nil {
				// A limiter outage should not take the API down.
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

			if lctx.Reached {
				if l.metrics != nil {
					l.metrics.RateLimitRejections.WithLabelValues(scope).Inc()
				}
				retryAfter := lctx.Reset - time.Now().Unix()
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
				common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED",
					"too many requests, try again shortly", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
