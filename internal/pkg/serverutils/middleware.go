package serverutils

import (
	"errors"

	"github.com/Hunter5Thompson/Alpha-01/internal/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware maps pipeline errors to HTTP statuses so
// controllers can simply return errors.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		status := fiber.StatusInternalServerError

		var vErr *ValidationError
		var notFoundErr *apperror.DocumentNotFoundError
		var ingestErr *apperror.IngestError
		var answerErr *apperror.AnswerProviderError

		switch {
		case errors.As(err, &vErr):
			status = fiber.StatusBadRequest
		case errors.As(err, &notFoundErr):
			status = fiber.StatusNotFound
		case errors.Is(err, apperror.ErrUnsupportedFormat):
			status = fiber.StatusUnsupportedMediaType
		case errors.As(err, &ingestErr):
			status = fiber.StatusUnprocessableEntity
		case errors.As(err, &answerErr):
			status = fiber.StatusBadGateway
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
		}

		return ctx.Status(status).JSON(ErrorResponse(status, err.Error()))
	}
}
