package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// SubmissionLimiter caps the number of reports a single user may create per
// day, counted in redis so the cap holds across instances.
type SubmissionLimiter struct {
	client *redis.Client
	limit  int
}

// NewSubmissionLimiter connects to redis. A nil return means the cap is
// disabled; callers skip registering the middleware.
func NewSubmissionLimiter(address, password string, limit int) *SubmissionLimiter {
	if address == "" || limit <= 0 {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
	})
	return &SubmissionLimiter{client: client, limit: limit}
}

// Limit enforces the daily cap for the authenticated user. Runs after
// AuthMiddleware. Redis outages fail open: the cap is a courtesy limit, not
// a security boundary.
func (sl *SubmissionLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("user_id")
		if !exists {
			c.Next()
			return
		}

		key := "report_limit:" + userID.(string) + ":" + time.Now().UTC().Format("2006-01-02")

		count, err := sl.client.Incr(c.Request.Context(), key).Result()
		if err != nil {
			logrus.WithError(err).Warn("submission limiter unavailable, allowing request")
			c.Next()
			return
		}
		if count == 1 {
			sl.client.Expire(c.Request.Context(), key, 24*time.Hour)
		}

		if count > int64(sl.limit) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Daily report submission limit reached. Please try again tomorrow.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func (sl *SubmissionLimiter) Close() error {
	return sl.client.Close()
}
