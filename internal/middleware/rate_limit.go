package middleware

import (
	"strconv"
	"time"

	"registro-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const rateLimitPrefix = "ratelimit:"

// RateLimit allows at most perMinute requests per client IP and fixed one-minute window.
// Redis failures let the request through. perMinute <= 0 disables the limiter.
func RateLimit(rdb *redis.Client, scope string, perMinute int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if perMinute <= 0 || rdb == nil {
			return c.Next()
		}
		window := time.Now().Unix() / 60
		key := rateLimitPrefix + scope + ":" + c.IP() + ":" + strconv.FormatInt(window, 10)
		ctx := c.UserContext()

		n, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable")
			return c.Next()
		}
		if n == 1 {
			rdb.Expire(ctx, key, time.Minute)
		}
		if n > int64(perMinute) {
			c.Set(fiber.HeaderRetryAfter, strconv.FormatInt(60-time.Now().Unix()%60, 10))
			return response.Error(c, "Demasiadas solicitudes, intente de nuevo en un momento", fiber.StatusTooManyRequests, nil)
		}
		return c.Next()
	}
}
