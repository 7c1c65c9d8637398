package handler

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const readinessTimeout = 2 * time.Second

// dependencyCheck pings one backing store for readiness.
type dependencyCheck struct {
	name string
	ping func(ctx context.Context) error
}

func RegisterHealthRoutes(app fiber.Router, sqlDB *sql.DB, rdb *redis.Client) {
	app.Get("/livez", LivezHandler())
	app.Get("/readyz", ReadyzHandler(
		dependencyCheck{name: "postgres", ping: sqlDB.PingContext},
		dependencyCheck{name: "redis", ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	))
}

func LivezHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	}
}

// ReadyzHandler pings every dependency in parallel; any failure turns the
// probe into a 503 that still reports each dependency's state.
func ReadyzHandler(checks ...dependencyCheck) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
		defer cancel()

		var (
			mu      sync.Mutex
			results = make(fiber.Map, len(checks))
			ready   = true
		)

		var g errgroup.Group
		for _, check := range checks {
			g.Go(func() error {
				state := "ok"
				if err := check.ping(ctx); err != nil {
					state = "down"
				}

				mu.Lock()
				defer mu.Unlock()
				results[check.name] = state
				if state != "ok" {
					ready = false
				}
				return nil
			})
		}
		_ = g.Wait()

		if !ready {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "not_ready",
				"checks": results,
			})
		}

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ready",
			"checks": results,
		})
	}
}
