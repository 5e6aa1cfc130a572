// Package recurring contiene la generación de facturas recurrentes (barrido
// programado y disparo manual) y el ciclo de vida de las series.
package recurring

import (
	"context"

	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

// SeriesTxRunner ejecuta fn dentro de una transacción que incluye los repos de
// series y de facturas. Si fn retorna error se hace rollback de todo.
type SeriesTxRunner interface {
	RunGeneration(ctx context.Context, fn func(
		seriesRepo repository.RecurringSeriesRepository,
		invoiceRepo repository.InvoiceRepository,
	) error) error
}
