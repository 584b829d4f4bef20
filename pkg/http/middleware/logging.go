package middleware

import (
	"log"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs completed requests in the key=value form the
// application logger uses. Prometheus scrapes are not logged.
func RequestLogging() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			start := time.Now()

			err := next(c)

			if req.URL.Path == "/metrics" {
				return err
			}
			log.Printf("http request method=%s path=%s status=%d latency=%s remote=%s",
				req.Method,
				req.URL.Path,
				res.Status,
				time.Since(start),
				c.RealIP(),
			)
			return err
		}
	}
}
