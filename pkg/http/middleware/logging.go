package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"FinCurve/pkg/logger"
)

// RequestLogging logs every request: 5xx as errors, requests slower than
// slow as warnings, everything else at debug.
func RequestLogging(l *logger.Logger, slow time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// let the error handler set the final status before logging
				c.Error(err)
			}

			req := c.Request()
			status := c.Response().Status
			latency := time.Since(start)
			fields := []logger.Field{
				logger.String("method", req.Method),
				logger.String("route", c.Path()),
				logger.String("uri", req.RequestURI),
				logger.Int("status", status),
				logger.Duration("duration_ms", latency),
				logger.Int64("bytes", c.Response().Size),
				logger.String("remote_ip", c.RealIP()),
			}

			switch {
			case status >= 500:
				if err != nil {
					fields = append(fields, logger.Error(err))
				}
				l.Error("http request failed", fields...)
			case slow > 0 && latency >= slow:
				l.Warn("http request slow", fields...)
			default:
				l.Debug("http request", fields...)
			}
			return nil
		}
	}
}
