package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

const readinessTimeout = 3 * time.Second

var errNotConfigured = errors.New("not configured")

// readinessCheck tests one backend. A failing required check makes the
// service not ready; a missing optional backend is only reported.
type readinessCheck struct {
	name     string
	required bool
	ping     func(ctx context.Context) error
}

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"uptime": time.Since(startedAt).Round(time.Second).String(),
			"store":  deps.DB != nil,
		})
	}
}

// ReadyHandler requires the store. NATS and the map cache are optional, but a
// configured one that fails its check still makes the service not ready.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	checks := []readinessCheck{
		{name: "database", required: true, ping: pingOrMissing(&deps.DB)},
		{name: "nats", ping: func(context.Context) error {
			switch {
			case deps.NATS == nil:
				return errNotConfigured
			case !deps.NATS.IsConnected():
				return errors.New("disconnected")
			}
			return nil
		}},
		{name: "cache", ping: pingOrMissing(&deps.Cache)},
	}

	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
		defer cancel()

		ready := true
		results := make(map[string]string, len(checks))
		for _, chk := range checks {
			err := chk.ping(ctx)
			switch {
			case err == nil:
				results[chk.name] = "ok"
				continue
			case errors.Is(err, errNotConfigured):
				results[chk.name] = err.Error()
			default:
				results[chk.name] = "error: " + err.Error()
			}
			if chk.required || !errors.Is(err, errNotConfigured) {
				ready = false
			}
		}

		if !ready {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not ready", "checks": results})
		}
		return c.JSON(fiber.Map{"status": "ready", "checks": results})
	}
}

// pingOrMissing is evaluated per request so dependencies set after routing
// are seen.
func pingOrMissing(p *Pinger) func(context.Context) error {
	return func(ctx context.Context) error {
		if *p == nil {
			return errNotConfigured
		}
		return (*p).Ping(ctx)
	}
}
