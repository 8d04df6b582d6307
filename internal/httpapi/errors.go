package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wyverncodes/universalis-proxy/internal/upstream"
)

// errorBody is the JSON shape returned for every non-2xx response.
type errorBody struct {
	Error      string   `json:"error"`
	Offending  []string `json:"offending,omitempty"`
	RetryAfter int      `json:"retryAfter,omitempty"`
}

func writeValidationError(c echo.Context, verr *validationError) error {
	return c.JSON(http.StatusBadRequest, errorBody{
		Error:     verr.Message,
		Offending: verr.Offending,
	})
}

// writeUpstreamError classifies an upstream.Error: a 429 is mirrored with
// a fixed Retry-After (we do not trust upstream's own window), other
// 4xx/5xx statuses are mirrored verbatim (any other status becomes a 502),
// and transport failures become a 502.
func writeUpstreamError(c echo.Context, err error) error {
	upstreamErr, ok := err.(*upstream.Error)
	if !ok {
		return writeInternalError(c, err)
	}

	switch upstreamErr.Kind {
	case upstream.KindRateLimited:
		c.Response().Header().Set("Retry-After", "60")
		return c.JSON(http.StatusTooManyRequests, errorBody{
			Error:      "Rate limited by upstream API",
			RetryAfter: 60,
		})
	case upstream.KindTransport:
		return c.JSON(http.StatusBadGateway, errorBody{Error: "failed to fetch"})
	default:
		status := upstreamErr.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		return c.JSON(status, errorBody{Error: upstreamErr.Reason})
	}
}

// writeInternalError is the top-level catch-all: 500 with a generic body.
func writeInternalError(c echo.Context, err error) error {
	return c.JSON(http.StatusInternalServerError, errorBody{Error: "Internal Server Error"})
}

// writeInternalErrorDev is writeInternalError with the raw error text
// included in the body, used only when the server is in development mode.
func writeInternalErrorDev(c echo.Context, err error) error {
	return c.JSON(http.StatusInternalServerError, errorBody{Error: err.Error()})
}
