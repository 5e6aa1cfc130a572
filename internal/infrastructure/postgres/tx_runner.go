package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/Facturacion-api/internal/application/recurring"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var _ recurring.SeriesTxRunner = (*TxRunner)(nil)

// TxRunner ata los repos de series y facturas a una misma transacción.
type TxRunner struct {
	pool *pgxpool.Pool
	opts pgx.TxOptions
}

// NewTxRunner usa READ COMMITTED: el UPDATE condicional de la serie
// reevalúa su WHERE sobre la fila ya confirmada por otra transacción.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool, opts: pgx.TxOptions{IsoLevel: pgx.ReadCommitted}}
}

// RunGeneration confirma el avance de la serie y la factura generada juntos.
// Si fn devuelve error, o el commit falla, no queda nada escrito.
func (r *TxRunner) RunGeneration(ctx context.Context, fn func(
	seriesRepo repository.RecurringSeriesRepository,
	invoiceRepo repository.InvoiceRepository,
) error) error {
	return pgx.BeginTxFunc(ctx, r.pool, r.opts, func(tx pgx.Tx) error {
		return fn(NewSeriesRepository(tx), NewInvoiceRepository(tx))
	})
}
