package recurring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/jhoicas/Facturacion-api/internal/application/activity"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	"github.com/jhoicas/Facturacion-api/pkg/clock"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
)

// Mode origen de una generación.
type Mode string

const (
	// ModeScheduled la factura toma la fecha programada (next_invoice_date).
	ModeScheduled Mode = "scheduled"
	// ModeManual la factura toma la fecha del disparo, sin mirar el calendario.
	ModeManual Mode = "manual"
)

// EngineConfig parámetros del motor de generación.
type EngineConfig struct {
	InvoicePrefix string
	Workers       int
	MaxRetries    int
	MaxCatchUp    int
	RetryDelay    time.Duration
}

// Engine materializa facturas a partir de series recurrentes.
//
// Cada generación es atómica: el avance de la serie (compare-and-swap sobre
// next_invoice_date + generated_count) y la creación de la factura se confirman
// juntos o no se confirman.
type Engine struct {
	tx         SeriesTxRunner
	seriesRepo repository.RecurringSeriesRepository
	clock      clock.Clock
	activity   *activity.Recorder
	log        *logger.Logger
	cfg        EngineConfig
}

// NewEngine construye el motor.
func NewEngine(
	tx SeriesTxRunner,
	seriesRepo repository.RecurringSeriesRepository,
	clk clock.Clock,
	recorder *activity.Recorder,
	log *logger.Logger,
	cfg EngineConfig,
) *Engine {
	if cfg.InvoicePrefix == "" {
		cfg.InvoicePrefix = "INV"
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxCatchUp <= 0 {
		cfg.MaxCatchUp = 1
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		tx:         tx,
		seriesRepo: seriesRepo,
		clock:      clk,
		activity:   recorder,
		log:        log.Component("recurring.engine"),
		cfg:        cfg,
	}
}

// Generation resultado de una generación confirmada.
type Generation struct {
	Invoice *entity.Invoice
	Series  *entity.RecurringSeries
}

// Generate produce la siguiente factura de la serie a la fecha asOf.
//
// series solo se actualiza después del commit; ante cualquier error queda
// exactamente como llegó. Errores posibles: ErrInvalidState, ErrSeriesExhausted,
// ErrGenerationConflict (otra ejecución ganó la carrera) y ErrGenerationFailed.
func (e *Engine) Generate(ctx context.Context, series *entity.RecurringSeries, asOf civil.Date, mode Mode) (*Generation, error) {
	if err := series.CheckGenerable(); err != nil {
		return nil, err
	}
	invoiceDate := asOf
	if mode == ModeScheduled {
		if series.NextInvoiceDate == nil || series.NextInvoiceDate.After(asOf) {
			return nil, fmt.Errorf("%w: la serie no tiene facturas vencidas al %s", domain.ErrInvalidState, asOf)
		}
		invoiceDate = *series.NextInvoiceDate
	}

	now := e.clock.Now()
	expected := series.Version()
	invoice := series.Snapshot(invoiceDate)
	invoice.ID = uuid.New().String()
	invoice.Number = entity.NewInvoiceNumber(e.cfg.InvoicePrefix, invoiceDate, invoice.ID)
	invoice.CreatedAt = now
	invoice.UpdatedAt = now
	for i := range invoice.Items {
		invoice.Items[i].ID = uuid.New().String()
		invoice.Items[i].InvoiceID = invoice.ID
	}
	next := series.Advance(invoiceDate, asOf, now)

	err := e.tx.RunGeneration(ctx, func(seriesRepo repository.RecurringSeriesRepository, invoiceRepo repository.InvoiceRepository) error {
		// 1) Reservar el avance: si otra ejecución movió la serie, no se crea nada.
		swapped, err := seriesRepo.CompareAndSwapAdvance(ctx, series.ID, expected, next)
		if err != nil {
			return fmt.Errorf("%w: avanzar serie: %v", domain.ErrGenerationFailed, err)
		}
		if !swapped {
			return domain.ErrGenerationConflict
		}
		// 2) Factura; el índice único (serie, secuencia) es la segunda barrera.
		if err := invoiceRepo.Create(ctx, invoice); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				return fmt.Errorf("%w: %v", domain.ErrGenerationConflict, err)
			}
			return fmt.Errorf("%w: crear factura: %v", domain.ErrGenerationFailed, err)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrGenerationConflict) && !errors.Is(err, domain.ErrGenerationFailed) {
			err = fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
		}
		return nil, err
	}

	*series = *next
	e.log.Info().
		Str("series_id", series.ID).
		Str("invoice_id", invoice.ID).
		Str("invoice_date", invoiceDate.String()).
		Str("as_of", asOf.String()).
		Str("mode", string(mode)).
		Int("generated_count", series.GeneratedCount).
		Str("status", series.Status).
		Msg("factura recurrente generada")

	e.activity.Record(ctx, series.CompanyID, entity.ActivitySeriesGenerated, entity.SubjectInvoice, invoice.ID,
		fmt.Sprintf("Factura %s generada desde la serie %q", invoice.Number, series.Title))
	if series.Status == entity.SeriesStatusCompleted {
		e.activity.Record(ctx, series.CompanyID, entity.ActivitySeriesCompleted, entity.SubjectSeries, series.ID,
			fmt.Sprintf("Serie %q completada (%d facturas)", series.Title, series.GeneratedCount))
	}
	return &Generation{Invoice: invoice, Series: series.Clone()}, nil
}

// SweepFailure serie que falló en el barrido después de agotar los reintentos.
type SweepFailure struct {
	SeriesID string
	Err      error
}

// SweepReport resumen de una pasada del barrido.
type SweepReport struct {
	AsOf      civil.Date
	Activated int // pending → active
	Due       int // series vencidas encontradas
	Generated int // facturas creadas
	Skipped   int // series ya atendidas por otra ejecución o sin facturas pendientes
	Failures  []SweepFailure
}

type sweepOutcome struct {
	seriesID  string
	generated int
	skipped   bool
	err       error
}

// Sweep genera todas las series activas con next_invoice_date <= asOf.
//
// Puede ejecutarse varias veces (o en paralelo) con el mismo asOf: las series
// ya avanzadas se omiten. Cada serie se pone al día hasta MaxCatchUp facturas.
func (e *Engine) Sweep(ctx context.Context, asOf civil.Date) (*SweepReport, error) {
	log := e.log.With().Str("as_of", asOf.String()).Logger()
	started := time.Now()

	activated, err := e.seriesRepo.ActivatePending(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("sweep: activar series pendientes: %w", err)
	}
	due, err := e.seriesRepo.LoadActiveDue(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("sweep: cargar series vencidas: %w", err)
	}

	p := pool.NewWithResults[sweepOutcome]().WithMaxGoroutines(e.cfg.Workers)
	for _, s := range due {
		p.Go(func() sweepOutcome {
			return e.sweepSeries(ctx, s, asOf)
		})
	}
	outcomes := p.Wait()

	report := &SweepReport{AsOf: asOf, Activated: activated, Due: len(due), Failures: []SweepFailure{}}
	for _, o := range outcomes {
		report.Generated += o.generated
		if o.skipped {
			report.Skipped++
		}
		if o.err != nil {
			report.Failures = append(report.Failures, SweepFailure{SeriesID: o.seriesID, Err: o.err})
		}
	}

	log.Info().
		Int("activated", report.Activated).
		Int("due", report.Due).
		Int("generated", report.Generated).
		Int("skipped", report.Skipped).
		Int("failed", len(report.Failures)).
		Dur("elapsed", time.Since(started)).
		Msg("barrido de facturas recurrentes terminado")
	return report, nil
}

// sweepSeries genera las facturas atrasadas de una serie, una a la vez.
func (e *Engine) sweepSeries(ctx context.Context, s *entity.RecurringSeries, asOf civil.Date) sweepOutcome {
	out := sweepOutcome{seriesID: s.ID}
	log := e.log.Series(s.ID)
	for i := 0; i < e.cfg.MaxCatchUp; i++ {
		if s.NextInvoiceDate == nil || s.NextInvoiceDate.After(asOf) || !s.Editable() {
			break
		}
		err := e.generateWithRetry(ctx, s, asOf)
		switch {
		case err == nil:
			out.generated++
		case errors.Is(err, domain.ErrGenerationConflict),
			errors.Is(err, domain.ErrSeriesExhausted),
			errors.Is(err, domain.ErrInvalidState):
			log.Debug().Err(err).Msg("serie omitida en el barrido")
			if out.generated == 0 {
				out.skipped = true
			}
			return out
		default:
			log.Error().Err(err).Msg("no se pudo generar la factura recurrente")
			out.err = err
			return out
		}
	}
	return out
}

// generateWithRetry reintenta con backoff exponencial solo los fallos de persistencia.
func (e *Engine) generateWithRetry(ctx context.Context, s *entity.RecurringSeries, asOf civil.Date) error {
	eb := backoff.NewExponentialBackOff()
	if e.cfg.RetryDelay > 0 {
		eb.InitialInterval = e.cfg.RetryDelay
	}
	eb.MaxElapsedTime = 0
	eb.Reset()
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(e.cfg.MaxRetries)), ctx)

	log := e.log.Series(s.ID)
	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		_, err := e.Generate(ctx, s, asOf, ModeScheduled)
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrGenerationFailed) {
			log.Warn().Err(err).Int("attempt", attempt).Msg("reintentando generación")
			return err
		}
		return backoff.Permanent(err)
	}, b)
}
