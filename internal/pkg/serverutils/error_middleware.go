package serverutils

import (
	"errors"

	"ai-docchat-be/internal/feedback"
	"ai-docchat-be/internal/repository/contract"
	"ai-docchat-be/internal/stream"
	"ai-docchat-be/pkg/citation"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware maps domain errors to HTTP statuses. Errors are
// returned to the caller, never swallowed.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if err == nil {
			return nil
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(ErrorResponse(fe.Code, fe.Message))
		}

		code := statusFor(err)
		return c.Status(code).JSON(ErrorResponse(code, err.Error()))
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, contract.ErrSessionNotFound),
		errors.Is(err, contract.ErrMessageNotFound),
		errors.Is(err, stream.ErrInvalidContext),
		errors.Is(err, stream.ErrNoActiveStream):
		return fiber.StatusNotFound
	case errors.Is(err, stream.ErrStreamAlreadyActive):
		return fiber.StatusConflict
	case errors.Is(err, feedback.ErrEmptyComment):
		return fiber.StatusBadRequest
	case errors.Is(err, citation.ErrNoDocumentAvailable):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, stream.ErrGenerationFailed):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
