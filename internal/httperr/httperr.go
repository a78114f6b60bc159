// Package httperr renders handler errors as {"error": message}.
package httperr

import (
	"errors"

	"doflow-backend/internal/logger"

	"github.com/gofiber/fiber/v2"
)

type Body struct {
	Error string `json:"error"`
}

// Handler is the fiber ErrorHandler. Anything that is not a *fiber.Error is
// treated as an internal failure and its message is not exposed.
func Handler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Errore interno del server"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	} else {
		logger.From(c).Error().Err(err).Msg("unhandled error")
	}

	return c.Status(code).JSON(Body{Error: msg})
}
