package ratelimit

import (
	"fmt"
	"math"
	"strconv"

	"codejudge/pkg/errors"
	"codejudge/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

const (
	headerRemaining  = "X-Rate-Limit-Remaining"
	headerRetryAfter = "Retry-After"
)

// Middleware gates a route group behind the distributed limiter. The client
// key is the authenticated account when present, otherwise the caller
// address. Remaining-token and retry-after information is exposed on every
// response so clients can back off.
func Middleware(limiter *Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		decision, _ := limiter.Admit(c.Request.Context(), clientKey(c))
		if decision.Remaining >= 0 {
			c.Header(headerRemaining, strconv.FormatInt(decision.Remaining, 10))
		}
		if decision.Allowed {
			c.Next()
			return
		}

		retryAfterS := int64(math.Ceil(decision.RetryAfter.Seconds()))
		if retryAfterS < 1 {
			retryAfterS = 1
		}
		c.Header(headerRetryAfter, strconv.FormatInt(retryAfterS, 10))
		response.AbortWithErrorCode(c, errors.TooManyRequests,
			fmt.Sprintf("rate limit exceeded, retry after %d seconds", retryAfterS))
	}
}

func clientKey(c *gin.Context) string {
	if userID, ok := c.Get("user_id"); ok {
		return fmt.Sprintf("user:%v", userID)
	}
	return "ip:" + c.ClientIP()
}
