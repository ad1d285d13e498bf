package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sorrel/pkg/context"
)

// Context assigns every request an id, reusing X-Request-Id when the caller sends one
func Context() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			req := c.Request()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			ctx := context.SetRequestID(req.Context(), requestID)
			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	}
}
