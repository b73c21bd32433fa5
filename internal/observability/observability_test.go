package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/ticketing-system/internal/config"
	apperrors "github.com/spec-kit/ticketing-system/pkg/util/errorutil"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/tickets", "GET", 200, 2*time.Millisecond)
	m.RecordRequest("/tickets", "GET", 200, 4*time.Millisecond)
	m.RecordError("/login", "POST", "INVALID_CREDENTIALS")
	m.RecordEvent("ticket_closed")

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Requests["/tickets|GET|200"])
	assert.Equal(t, int64(1), snap.Errors["/login|POST|INVALID_CREDENTIALS"])
	assert.Equal(t, int64(1), snap.Events["ticket_closed"])
	assert.InDelta(t, 3.0, snap.AverageLatencyMS, 0.001)

	snap.Requests["/tickets|GET|200"] = 99
	assert.Equal(t, int64(2), m.Snapshot().Requests["/tickets|GET|200"])

	var nilMetrics *Metrics
	nilMetrics.RecordRequest("/", "GET", 200, 0)
	nilMetrics.RecordEvent("x")
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	metrics := NewMetrics()

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	app.Use(RequestLogger(zap.New(core), metrics))
	app.Get("/tickets/:ticket_id", func(c *fiber.Ctx) error {
		return apperrors.NewNotFound("ticket", nil)
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/tickets/abc", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, err = app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)

	snap := metrics.Snapshot()
	assert.Equal(t, int64(1), snap.Requests["/tickets/:ticket_id|GET|404"])
	assert.Equal(t, int64(1), snap.Requests["/boom|GET|500"])

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "/tickets/abc", logs.All()[0].ContextMap()["path"])
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("ticketing-system", config.LoggerConfig{Level: "DEBUG"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	logger, err = NewLogger("ticketing-system", config.LoggerConfig{Level: "nonsense"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestNewLoggerConsoleFormat(t *testing.T) {
	logger, err := NewLogger("ticketctl", config.LoggerConfig{Level: " warn ", Format: "CONSOLE"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.WarnLevel))
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
}
