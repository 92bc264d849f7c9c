package middleware

import (
	"fmt"
	"strconv"
	"time"

	"auto-savings-vault/internal/core/ports"
	"auto-savings-vault/pkg/apperror"
	"auto-savings-vault/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// Endpoint groups
const (
	GroupAuthLogin = "auth_login"
	GroupRead      = "read"
	GroupMovement  = "movement"
	GroupConfig    = "config"
	GroupTreasury  = "treasury"
)

// DefaultRateLimitRules returns the limits per endpoint group.
func DefaultRateLimitRules() map[string]RateLimitRule {
	return map[string]RateLimitRule{
		GroupAuthLogin: {Limit: 10, Window: time.Minute},
		GroupRead:      {Limit: 120, Window: time.Minute},
		GroupMovement:  {Limit: 60, Window: time.Minute},
		GroupConfig:    {Limit: 20, Window: time.Minute},
		GroupTreasury:  {Limit: 10, Window: time.Minute},
	}
}

// RateLimiter creates a rate-limiting middleware for a given endpoint group.
func RateLimiter(limiter ports.RateLimiter, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", extractIdentifier(c), group)

		result, err := limiter.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		// Always set rate limit headers
		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			retryAfter := result.ResetAt - time.Now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}

// extractIdentifier keys limits by authenticated signer, then claimed signer, then IP.
func extractIdentifier(c *gin.Context) string {
	if signer, ok := SignerFrom(c); ok {
		return signer.String()
	}
	if s := c.GetHeader(HeaderSigner); s != "" {
		return s
	}
	return c.ClientIP()
}
