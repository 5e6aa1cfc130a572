package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
	"github.com/jhoicas/Facturacion-api/pkg/validation"
)

// errInvalidBody el cuerpo o la query no se pudieron decodificar.
var errInvalidBody = errors.New("cuerpo de la petición inválido")

type errorMapping struct {
	target error
	status int
	code   string
}

// El orden importa: ErrValidation es alias de ErrInvalidInput.
var errorMappings = []errorMapping{
	{errInvalidBody, fiber.StatusBadRequest, "INVALID_BODY"},
	{domain.ErrValidation, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE"},
	{domain.ErrSeriesExhausted, fiber.StatusConflict, "SERIES_EXHAUSTED"},
	{domain.ErrInvalidState, fiber.StatusConflict, "INVALID_STATE"},
	{domain.ErrGenerationConflict, fiber.StatusConflict, "GENERATION_CONFLICT"},
	{domain.ErrGenerationFailed, fiber.StatusBadGateway, "GENERATION_FAILED"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT"},
}

// ErrorHandler traduce los errores devueltos por los handlers a ErrorResponse.
// Los errores no reconocidos se registran y se responden como 500 sin detalle.
func ErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, body := mapError(err)
		if status >= fiber.StatusInternalServerError {
			log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("error en petición")
		}
		return c.Status(status).JSON(body)
	}
}

func mapError(err error) (int, dto.ErrorResponse) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, dto.ErrorResponse{Code: codeForStatus(fe.Code), Message: fe.Message}
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			body := dto.ErrorResponse{Code: m.code, Message: err.Error()}
			var fields validation.FieldErrors
			if errors.As(err, &fields) {
				body.Details = fields
			}
			return m.status, body
		}
	}
	return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"}
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusBadRequest:
		return "BAD_REQUEST"
	case fiber.StatusRequestEntityTooLarge:
		return "BODY_TOO_LARGE"
	default:
		return "INTERNAL"
	}
}
