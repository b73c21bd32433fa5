package observability

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/ticketing-system/pkg/util/errorutil"
)

// RequestLogger logs every request and feeds the request counters. Routes are
// recorded by their pattern so ticket ids do not explode the key space.
func RequestLogger(logger *zap.Logger, metrics *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)

		status := c.Response().StatusCode()
		if err != nil {
			status = apperrors.ToDomainError(err).HTTPStatus
		}

		metrics.RecordRequest(RouteKey(c), c.Method(), status, latency)

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("ip", c.IP()),
		}
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			fields = append(fields, zap.String("request_id", rid))
		}
		logger.Info("http request", fields...)
		return err
	}
}

// UnmatchedRoute is the metrics key for requests no route handled.
const UnmatchedRoute = "unmatched"

// RouteKey returns the matched route pattern so counters stay bounded by the
// route table rather than by request paths.
func RouteKey(c *fiber.Ctx) string {
	route := c.Route().Path
	if route == "" || route == "/" {
		return UnmatchedRoute
	}
	return route
}
