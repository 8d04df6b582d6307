package httpapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wyverncodes/universalis-proxy/internal/cache"
	"github.com/wyverncodes/universalis-proxy/internal/keys"
)

// setCacheDebugHeaders writes the cache-debug headers describing which
// tier served the response and whether it was stale.
func setCacheDebugHeaders(c echo.Context, result cache.Result, cfg cache.Config) {
	resp := c.Response()
	if result.Source == cache.SourceUpstream {
		resp.Header().Set("X-Cache", "MISS")
	} else {
		resp.Header().Set("X-Cache", "HIT")
	}
	resp.Header().Set("X-Cache-Source", string(result.Source))
	resp.Header().Set("X-Cache-Stale", boolString(result.Stale))
	resp.Header().Set("Cache-Control", (&cache.Entry{TTL: cfg.EdgeTTL, SWRWindow: cfg.SWRWindow}).CacheControl())
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func (s *Server) serveCached(c echo.Context, key string, cfg cache.Config, fetch cache.Fetcher) error {
	result, err := s.cache.Lookup(c.Request().Context(), key, cfg, fetch)
	if err != nil {
		return writeUpstreamError(c, err)
	}
	setCacheDebugHeaders(c, result, cfg)
	return c.JSONBlob(http.StatusOK, result.Payload)
}

// handleAggregated serves GET /api/v2/aggregated/{datacenter}/{itemIds}.
func (s *Server) handleAggregated(c echo.Context) error {
	datacenter, verr := validateDatacenter(c.Param("datacenter"))
	if verr != nil {
		return writeValidationError(c, verr)
	}
	ids, verr := validateItemIDs(c.Param("itemIds"))
	if verr != nil {
		return writeValidationError(c, verr)
	}

	key := keys.Aggregated(datacenter, ids)
	cfg := cache.DefaultConfigs[cache.ClassAggregated]

	return s.serveCached(c, key, cfg, func(ctx context.Context) ([]byte, error) {
		return s.upstream.FetchAggregated(ctx, datacenter, ids)
	})
}

// handleDataCenters serves GET /api/v2/data-centers.
func (s *Server) handleDataCenters(c echo.Context) error {
	key := keys.DataCenters()
	cfg := cache.DefaultConfigs[cache.ClassStatic]
	return s.serveCached(c, key, cfg, func(ctx context.Context) ([]byte, error) {
		return s.upstream.FetchDataCenters(ctx)
	})
}

// handleWorlds serves GET /api/v2/worlds.
func (s *Server) handleWorlds(c echo.Context) error {
	key := keys.Worlds()
	cfg := cache.DefaultConfigs[cache.ClassStatic]
	return s.serveCached(c, key, cfg, func(ctx context.Context) ([]byte, error) {
		return s.upstream.FetchWorlds(ctx)
	})
}

// handleHealth serves GET /health.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleRoot serves GET / with the service identity document.
func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"name":        s.serviceName,
		"status":      "ok",
		"environment": s.environment,
		"version":     s.serviceVersion,
	})
}
