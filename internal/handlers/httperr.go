package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"mall/internal/apperrors"
)

// statusForError maps the lifecycle error kinds onto HTTP statuses:
// state conflicts and provider cancel rejections are 409, unknown
// identifiers are 404, an unreachable provider is 502.
func statusForError(err error) int {
	switch {
	case apperrors.IsStateConflict(err):
		return fiber.StatusConflict
	case errors.Is(err, apperrors.ErrProviderNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, apperrors.ErrProviderUnavailable):
		return fiber.StatusBadGateway
	case strings.Contains(err.Error(), "not found"):
		return fiber.StatusNotFound
	}
	if _, ok := apperrors.AsCancelError(err); ok {
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

// errorJSON renders an error with its mapped status. Provider cancel errors
// additionally expose their code so callers can branch on it.
func errorJSON(c *fiber.Ctx, message string, err error) error {
	body := fiber.Map{
		"message": message,
		"error":   err.Error(),
	}
	if ce, ok := apperrors.AsCancelError(err); ok {
		body["code"] = ce.Code
	}
	return c.Status(statusForError(err)).JSON(body)
}

// currentUserID pulls the authenticated user id stored by the JWT middleware.
func currentUserID(c *fiber.Ctx) string {
	userID, _ := c.Locals("user_id").(string)
	return userID
}
