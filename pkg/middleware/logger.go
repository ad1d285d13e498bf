package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sorrel/pkg/context"
)

// Logger logs one line per request. Health and metrics scrapes log at debug.
func Logger(logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			req := c.Request()
			res := c.Response()
			start := time.Now()
			if err = next(c); err != nil {
				c.Error(err)
			}

			log := logger.WithContext(req.Context()).WithFields(map[string]any{
				"request_id":    context.GetRequestID(req.Context()),
				"method":        req.Method,
				"uri":           req.RequestURI,
				"status":        res.Status,
				"route":         c.Path(),
				"remote_ip":     c.RealIP(),
				"user_agent":    req.UserAgent(),
				"response_time": time.Since(start),
				"response_size": strconv.FormatInt(res.Size, 10),
			})
			if isProbe(c.Path()) {
				log.Debug("Request")
			} else {
				log.Info("Request")
			}

			return nil
		}
	}
}

func isProbe(route string) bool {
	return route == "/metrics" || strings.HasPrefix(route, "/api/v1/health")
}
