package main

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/kadenwood/verifyd/internal/config"
	"github.com/kadenwood/verifyd/internal/dispatcher"
	"github.com/kadenwood/verifyd/internal/store"
)

// verifyRequest and batchVerifyRequest carry the JSON payloads for the
// single and batch verification endpoints, validated declaratively via
// go-playground/validator tags rather than hand-rolled empty checks.
type verifyRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type batchVerifyRequest struct {
	Emails []string `json:"emails" validate:"required,min=1,max=750"`
}

func setupRoutes(app *fiber.App, d *dispatcher.Dispatcher, st store.Store) {
	app.Post("/v1/verify", handleVerify(d))
	app.Post("/v1/verify/batch", handleVerifyBatch(d))
	app.Get("/health", handleHealth(st))
	app.Get("/stats", handleStats(st))
}

func handleVerify(d *dispatcher.Dispatcher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req verifyRequest
		if err := c.BodyParser(&req); err != nil {
			return errorResponse(c, fiber.StatusBadRequest, "invalid request body", err)
		}
		if err := config.ValidateStruct(req); err != nil {
			return errorResponse(c, fiber.StatusBadRequest, "invalid request", err)
		}

		v, err := d.Verify(c.Context(), req.Email)
		if err != nil {
			if errors.Is(err, dispatcher.ErrBackpressure) {
				return errorResponse(c, fiber.StatusTooManyRequests, "verification queue is full, retry shortly", nil)
			}
			return errorResponse(c, fiber.StatusInternalServerError, "verification failed", err)
		}

		return c.JSON(successResponse(v))
	}
}

func handleVerifyBatch(d *dispatcher.Dispatcher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req batchVerifyRequest
		if err := c.BodyParser(&req); err != nil {
			return errorResponse(c, fiber.StatusBadRequest, "invalid request body", err)
		}
		if err := config.ValidateStruct(req); err != nil {
			return errorResponse(c, fiber.StatusBadRequest, "invalid request", err)
		}

		results := d.VerifyBatch(c.Context(), req.Emails)
		return c.JSON(successResponse(fiber.Map{
			"count":   len(results),
			"results": results,
		}))
	}
}

func handleHealth(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()

		if _, err := st.Stats(ctx); err != nil {
			logrus.WithError(err).Warn("health check: store unreachable")
			return errorResponse(c, fiber.StatusServiceUnavailable, "store unreachable", err)
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}

func handleStats(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats, err := st.Stats(c.Context())
		if err != nil {
			return errorResponse(c, fiber.StatusInternalServerError, "failed to load stats", err)
		}
		return c.JSON(successResponse(stats))
	}
}

// errorResponse and successResponse give every handler the same JSON
// envelope shape: {"success": bool, "data"|"error": ...}.
func errorResponse(c *fiber.Ctx, status int, message string, err error) error {
	response := fiber.Map{
		"success": false,
		"error":   message,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	return c.Status(status).JSON(response)
}

func successResponse(data interface{}) fiber.Map {
	return fiber.Map{
		"success": true,
		"data":    data,
	}
}
