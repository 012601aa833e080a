package middlewares

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"github.com/yeremiapane/locum-staffing/utils"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-IP token bucket applied to every request.
type RateLimiter struct {
	rps      rate.Limit
	burst    int
	visitors map[string]*visitor
	mu       sync.Mutex
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		visitors: make(map[string]*visitor),
	}
}

func (rl *RateLimiter) get(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// Cleanup forgets visitors idle for longer than idle and returns how many were dropped.
func (rl *RateLimiter) Cleanup(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	cutoff := time.Now().Add(-idle)
	for ip, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, ip)
			removed++
		}
	}
	return removed
}

// Run cleans idle visitors every minute until ctx ends.
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.Cleanup(3 * time.Minute)
		case <-ctx.Done():
			return
		}
	}
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.rps <= 0 {
			c.Next()
			return
		}
		lim := rl.get(c.ClientIP())
		if !lim.Allow() {
			wait := time.Duration(math.Ceil(float64(time.Second) / float64(rl.rps)))
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			utils.RespondError(c, http.StatusTooManyRequests, errors.New("too many requests, please retry shortly"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// NewLimiterStore builds the ulule store for the login limiter, falling back to memory when
// Redis is unreachable.
func NewLimiterStore(storage, redisURL string) limiter.Store {
	if storage != "redis" {
		return memory.NewStore()
	}

	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		utils.ErrorLogger.WithError(err).Warn("Invalid Redis URL for rate limiting, falling back to memory")
		return memory.NewStore()
	}
	client := goredis.NewClient(opts)
	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:   "locum_limiter",
		MaxRetry: 3,
	})
	if err != nil {
		utils.ErrorLogger.WithError(err).Warn("Failed to create Redis store for rate limiting, falling back to memory")
		return memory.NewStore()
	}
	return store
}

// NewStrictRateLimiter guards credential endpoints with a fixed window, e.g. "10-M".
func NewStrictRateLimiter(formatted string, store limiter.Store) (gin.HandlerFunc, error) {
	r, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	return mgin.NewMiddleware(limiter.New(store, r),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			utils.RespondError(c, http.StatusTooManyRequests,
				errors.New("too many attempts, please wait before trying again"))
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			utils.ErrorLogger.WithError(err).Error("login rate limiter failed")
			c.Next()
		}),
	), nil
}
