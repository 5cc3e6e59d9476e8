package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/quizsplice/internal/apierr"
	"github.com/codebuildervaibhav/quizsplice/internal/logger"
)

// ok writes the success envelope
func ok(c *fiber.Ctx, body fiber.Map) error {
	if body == nil {
		body = fiber.Map{}
	}
	body["ok"] = true
	return c.JSON(body)
}

// fail writes the error envelope with the status carried by err
func fail(c *fiber.Ctx, log *logger.Logger, err error) error {
	status, code := apierr.StatusOf(err)
	if status >= fiber.StatusInternalServerError {
		log.Error("request failed", "method", c.Method(), "path", c.Path(), "code", code, "error", err)
	}
	return c.Status(status).JSON(fiber.Map{
		"ok":    false,
		"error": err.Error(),
		"code":  code,
	})
}

// ErrorHandler renders errors that escape a handler, including fiber's own (404 route, 413 body
// limit), in the same envelope.
func ErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{
				"ok":    false,
				"error": fe.Message,
				"code":  codeForStatus(fe.Code),
			})
		}
		return fail(c, log, err)
	}
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "ERR_BAD_REQUEST"
	case fiber.StatusNotFound:
		return "ERR_NOT_FOUND"
	case fiber.StatusRequestEntityTooLarge:
		return "ERR_FILE_TOO_LARGE"
	case fiber.StatusUpgradeRequired:
		return "ERR_UPGRADE_REQUIRED"
	default:
		return "ERR_INTERNAL"
	}
}
