// handlers/errors.go
package handlers

import (
	"errors"

	"recycle-rewards-system/services"

	"github.com/gofiber/fiber/v2"
)

// statusFor maps the ledger failure taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrAlreadyExists):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	case errors.Is(err, services.ErrInvalidAmount), errors.Is(err, services.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrOutOfStock):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrInsufficientBalance):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, services.ErrClassificationFailed):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes {"error": ...}; internal causes are only exposed for
// client errors.
func respondError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	body := fiber.Map{"error": err.Error()}
	if status == fiber.StatusInternalServerError {
		body["error"] = "internal error"
		if errors.Is(err, services.ErrInconsistentState) {
			body["error"] = services.ErrInconsistentState.Error()
		}
	}
	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, msg string, cause error) error {
	body := fiber.Map{"error": msg}
	if cause != nil {
		body["cause"] = cause.Error()
	}
	return c.Status(fiber.StatusBadRequest).JSON(body)
}
