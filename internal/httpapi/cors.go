package httpapi

import (
	"net"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
)

// corsConfig carries the resolved allow-list and environment used to
// decide the Access-Control-Allow-Origin value per request.
type corsConfig struct {
	allowedOrigins []string
	development    bool
}

// CORS applies the CORS policy to every response, including errors and
// the preflight itself: echo the request Origin back if it is allowed,
// otherwise fall back to the first configured origin. In development,
// any http://localhost:* or http://127.0.0.1:* origin is also allowed.
func CORS(cfg corsConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			origin := c.Request().Header.Get("Origin")
			resp := c.Response()

			resp.Header().Set("Access-Control-Allow-Origin", resolveOrigin(cfg, origin))
			resp.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			resp.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")
			resp.Header().Set("Access-Control-Max-Age", "86400")
			resp.Header().Set("Vary", "Origin")

			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusNoContent)
			}

			return next(c)
		}
	}
}

func resolveOrigin(cfg corsConfig, origin string) string {
	if origin == "" {
		return firstOrEmpty(cfg.allowedOrigins)
	}
	for _, allowed := range cfg.allowedOrigins {
		if allowed == origin {
			return origin
		}
	}
	if cfg.development && isLocalOrigin(origin) {
		return origin
	}
	return firstOrEmpty(cfg.allowedOrigins)
}

func firstOrEmpty(origins []string) string {
	if len(origins) == 0 {
		return ""
	}
	return origins[0]
}

func isLocalOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Scheme != "http" {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || net.ParseIP(host).IsLoopback()
}
