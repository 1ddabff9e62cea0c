package errors

import (
	stderrors "errors"

	"talkwire/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
)

// FiberErrorHandler renders errors that escape the handlers with the shared
// taxonomy instead of Fiber's plain-text default. AppErrors keep their status
// and wire code, routing errors (404, 405, upgrade required) keep their status,
// and everything else surfaces as a 500.
func FiberErrorHandler(log logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var appErr *AppError
		if stderrors.As(err, &appErr) {
			return c.Status(appErr.HTTPCode).JSON(fiber.Map{
				"error": appErr.Message,
				"code":  appErr.WireCode(),
			})
		}

		var fiberErr *fiber.Error
		if stderrors.As(err, &fiberErr) {
			code := "INTERNAL_ERROR"
			switch {
			case fiberErr.Code == fiber.StatusNotFound:
				code = "NOT_FOUND"
			case fiberErr.Code == fiber.StatusUnauthorized:
				code = "UNAUTHENTICATED"
			case fiberErr.Code == fiber.StatusTooManyRequests:
				code = "RATE_LIMITED"
			case fiberErr.Code == fiber.StatusUpgradeRequired:
				code = "UPGRADE_REQUIRED"
			case fiberErr.Code >= 400 && fiberErr.Code < 500:
				code = "VALIDATION_ERROR"
			}
			return c.Status(fiberErr.Code).JSON(fiber.Map{
				"error": fiberErr.Message,
				"code":  code,
			})
		}

		if log != nil {
			log.Errorf("Unhandled HTTP error: %v", err)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal Server Error",
			"code":  "INTERNAL_ERROR",
		})
	}
}
