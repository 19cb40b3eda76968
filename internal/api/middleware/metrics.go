package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/issuetracker/issues-api/internal/api/metrics"
)

// Metrics records request counts and latencies by route pattern. It must be
// registered before the request logger, which commits error responses.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			code := c.Response().Status
			if err != nil && !c.Response().Committed {
				code = statusFromError(err)
			}

			metrics.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func statusFromError(err error) int {
	if he, ok := err.(*echo.HTTPError); ok {
		return he.Code
	}
	return 500
}
