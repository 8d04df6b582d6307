package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/wyverncodes/universalis-proxy/internal/ratelimit"
)

// RateLimit gates admission before a request reaches any handler, setting
// the X-RateLimit-* headers on every response it lets through and
// Retry-After plus a 429 body on denial.
func RateLimit(limiter *ratelimit.Limiter, policy ratelimit.Policy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identifier := clientIdentifier(c)
			decision := limiter.Check(identifier, policy)

			resp := c.Response()
			resp.Header().Set("X-RateLimit-Limit", strconv.Itoa(policy.MaxRequests))
			resp.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			resp.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(decision.ResetIn).Unix(), 10))

			if !decision.Allowed {
				resp.Header().Set("Retry-After", strconv.Itoa(int(decision.ResetIn.Seconds())))
				return c.JSON(http.StatusTooManyRequests, errorBody{
					Error:      "rate limit exceeded",
					RetryAfter: int(decision.ResetIn.Seconds()),
				})
			}

			return next(c)
		}
	}
}

// clientIdentifier resolves the rate-limit identity: the front-proxy's
// client-IP header if present, else the first entry of X-Forwarded-For,
// else the literal "unknown". Malformed values are accepted verbatim.
func clientIdentifier(c echo.Context) string {
	if realIP := c.Request().Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	if forwarded := c.Request().Header.Get("X-Forwarded-For"); forwarded != "" {
		return firstForwardedFor(forwarded)
	}
	return "unknown"
}

func firstForwardedFor(header string) string {
	if i := strings.IndexByte(header, ','); i >= 0 {
		return strings.TrimSpace(header[:i])
	}
	return header
}
