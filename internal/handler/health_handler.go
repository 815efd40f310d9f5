package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/ecolearn/ecolearn-api/internal/config"
	"github.com/ecolearn/ecolearn-api/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	Service      string            `json:"service"`
	Environment  string            `json:"environment"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// HealthDependencies are the backing stores probed by the health endpoint.
// Nil entries are skipped.
type HealthDependencies struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// HealthCheck returns a handler that reports application health information.
// A failing dependency turns the response into a 503.
func HealthCheck(cfg config.Config, deps HealthDependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:       "ok",
			Timestamp:    time.Now().UTC(),
			Service:      cfg.AppName,
			Environment:  cfg.AppEnv,
			Dependencies: map[string]string{},
		}

		ctx, cancel := context.WithTimeout(requestContext(c), 2*time.Second)
		defer cancel()

		if deps.DB != nil {
			payload.Dependencies["database"] = "ok"
			if sqlDB, err := deps.DB.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
				payload.Dependencies["database"] = "unavailable"
				payload.Status = "degraded"
			}
		}
		if deps.Redis != nil {
			payload.Dependencies["redis"] = "ok"
			if err := deps.Redis.Ping(ctx).Err(); err != nil {
				payload.Dependencies["redis"] = "unavailable"
				payload.Status = "degraded"
			}
		}

		if payload.Status != "ok" {
			return utils.Fail(c, fiber.StatusServiceUnavailable, "service degraded", payload)
		}
		return utils.SendSuccess(c, "service healthy", payload)
	}
}
