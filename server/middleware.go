package server

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// observe logs and records every request. Handler errors are rendered here so the final status
// is known.
func (s *Server) observe(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		if err := next(c); err != nil {
			c.Error(err)
		}
		elapsed := time.Since(start)

		req, res := c.Request(), c.Response()
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.RecordRequest(route, strconv.Itoa(res.Status), elapsed)
		slog.Info("request",
			"id", res.Header().Get(echo.HeaderXRequestID),
			"method", req.Method,
			"route", route,
			"status", res.Status,
			"latency", elapsed,
		)
		return nil
	}
}
