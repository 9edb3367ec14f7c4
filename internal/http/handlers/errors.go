package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/domain"
	applog "storefront/internal/log"
)

const genericError = "Something went wrong. Please try again."

// ErrorHandler maps service errors to status codes. API routes answer JSON,
// pages render the notfound template. Internal details never reach the client.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := genericError
	var fe *fiber.Error
	switch {
	case errors.Is(err, domain.ErrNotFound):
		code, msg = fiber.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrValidation):
		code, msg = fiber.StatusBadRequest, err.Error()
	case errors.As(err, &fe):
		code = fe.Code
		if code < fiber.StatusInternalServerError {
			msg = fe.Message
		}
	}
	if code >= fiber.StatusInternalServerError {
		applog.Error(c, "server.error", err, nil)
	}
	if strings.HasPrefix(c.Path(), "/api/") {
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
	if rerr := c.Status(code).Render("notfound", fiber.Map{"Message": msg}); rerr != nil {
		return c.Status(code).SendString(msg)
	}
	return nil
}

func invalid(c *fiber.Ctx, field string, value any) error {
	applog.Security(c, "validation.fail", map[string]any{"field": field, "value": value})
	return fmt.Errorf("%w: %s", domain.ErrValidation, field)
}
