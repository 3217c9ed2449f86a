package handlers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"dimria/internal/errs"
)

// ErrorHandler is the single outermost conversion of escaped errors into
// responses. Expected errors (validation, not found, authorization) map to
// their status codes with their own message; anything else — persistence
// failures included — is logged with full detail and surfaced only as a
// generic server error.
func ErrorHandler(c *fiber.Ctx, err error) error {
	switch {
	case errs.IsValidation(err):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   strings.Join(errs.Problems(err), ", "),
		})
	case errs.IsNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	case errs.IsAuthorization(err):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"error":   "access denied",
		})
	}

	if fe, ok := err.(*fiber.Error); ok {
		return c.Status(fe.Code).JSON(fiber.Map{
			"success": false,
			"error":   fe.Message,
		})
	}

	log.Printf("handler: unhandled error on %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"error":   "internal server error",
	})
}

// NotFoundFallback handles every unmatched path. Paths under the reserved
// admin prefix answer forbidden instead of not found.
func NotFoundFallback(c *fiber.Ctx) error {
	path := strings.Trim(c.Path(), "/")
	if path == "admin" || strings.HasPrefix(path, "admin/") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"error":   "forbidden",
		})
	}
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"success": false,
		"error":   "page not found",
	})
}
