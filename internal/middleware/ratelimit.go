package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// RateLimit returns a fixed-window per-client limiter backed by Redis.
// Each client (IP, plus route) gets rpm requests per minute; the counter
// key expires with the window.  With a nil Redis client or rpm <= 0 the
// middleware is a pass-through, and Redis errors fail open so an outage
// never blocks booking traffic.
func RateLimit(rdb *redis.Client, rpm int) echo.MiddlewareFunc {
	if rdb == nil || rpm <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	const window = time.Minute
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			key := "rl:" + ip + ":" + c.Request().Method + ":" + c.Path()
			ctx := c.Request().Context()

			n, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				c.Logger().Warnf("ratelimit: redis incr failed: %v", err)
				return next(c)
			}
			if n == 1 {
				// First hit in this window starts its clock.
				if err := rdb.Expire(ctx, key, window).Err(); err != nil {
					c.Logger().Warnf("ratelimit: redis expire failed: %v", err)
				}
			}

			remaining := int64(rpm) - n
			if remaining < 0 {
				remaining = 0
			}
			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(rpm))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if n > int64(rpm) {
				ttl, err := rdb.TTL(ctx, key).Result()
				if err != nil || ttl < 0 {
					ttl = window
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(ttl/time.Second)+1))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error": "too many requests",
				})
			}
			return next(c)
		}
	}
}
