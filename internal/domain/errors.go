package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")
)

// Errores de facturación recurrente. Ninguno deja la serie a medio avanzar:
// todas las rutas de fallo descartan los cambios antes de retornar.
var (
	// ErrValidation regla o datos de entrada mal formados; sin cambio de estado.
	ErrValidation = ErrInvalidInput
	// ErrInvalidState la operación no está permitida en el estado actual de la serie.
	ErrInvalidState = errors.New("operación no permitida en el estado actual de la serie")
	// ErrSeriesExhausted la serie acotada ya generó todas sus facturas.
	ErrSeriesExhausted = errors.New("la serie ya generó todas sus facturas")
	// ErrGenerationConflict otra ejecución avanzó la serie primero; tratar como "ya atendida".
	ErrGenerationConflict = errors.New("la serie fue avanzada por otra ejecución")
	// ErrGenerationFailed falló la persistencia de la factura; la serie queda intacta y se puede reintentar.
	ErrGenerationFailed = errors.New("no se pudo generar la factura")
)
