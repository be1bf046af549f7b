package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// RateLimitConfig configures RateLimit.
type RateLimitConfig struct {
	// RequestsPerPeriod is the number of requests a client may make per Period.
	RequestsPerPeriod int

	// Period defaults to one minute.
	Period time.Duration

	// Prefix namespaces the counters so several limiters can share a store.
	Prefix string

	Store limiter.Store
}

// NewMemoryStore returns an in-process counter store.
func NewMemoryStore() limiter.Store {
	return memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          "orgsync",
		CleanUpInterval: time.Minute,
	})
}

// NewRedisStore returns a counter store shared through redis, so limits
// hold across server replicas.
func NewRedisStore(redisURL string) (limiter.Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	store, err := sredis.NewStoreWithOptions(redis.NewClient(opts), limiter.StoreOptions{
		Prefix: "orgsync",
	})
	if err != nil {
		return nil, errors.Wrap(err, "create redis limiter store")
	}
	return store, nil
}

// RateLimit limits requests per client IP. Clients over the limit get a
// 429 with a Retry-After header; a failing counter store yields 503.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	period := cfg.Period
	if period <= 0 {
		period = time.Minute
	}
	rate := limiter.Rate{Period: period, Limit: int64(cfg.RequestsPerPeriod)}

	lim := limiter.New(cfg.Store, rate)
	mw := stdlib.NewMiddleware(lim,
		stdlib.WithKeyGetter(func(r *http.Request) string {
			return cfg.Prefix + ":" + clientIP(r)
		}),
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			slog.Warn("rate limit exceeded", "ip", clientIP(r), "limit", cfg.RequestsPerPeriod)
			w.Header().Set("Retry-After", strconv.Itoa(int(period.Seconds())))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": "rate limit exceeded",
				"code":  "RATE001",
			})
		}),
		stdlib.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			slog.Error("rate limiter store error", "error", err)
			http.Error(w, "rate limiter unavailable", http.StatusServiceUnavailable)
		}),
	)

	return mw.Handler
}
