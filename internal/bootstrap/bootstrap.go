// Package bootstrap arma los casos de uso sobre el driver de persistencia configurado.
// Lo comparten el servidor HTTP y el job de barrido.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jhoicas/Facturacion-api/internal/application/activity"
	"github.com/jhoicas/Facturacion-api/internal/application/analytics"
	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/recurring"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/memory"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Facturacion-api/pkg/clock"
	"github.com/jhoicas/Facturacion-api/pkg/config"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
)

// App casos de uso listos para los adaptadores de entrada.
type App struct {
	Customers *billing.CustomerUseCase
	Invoices  *billing.InvoiceUseCase
	Recurring *recurring.Controller
	Engine    *recurring.Engine
	Dashboard *analytics.DashboardUseCase
	Clock     clock.Clock

	close func()
}

// Close libera las conexiones abiertas.
func (a *App) Close() {
	if a.close != nil {
		a.close()
	}
}

type repos struct {
	customers  repository.CustomerRepository
	invoices   repository.InvoiceRepository
	series     repository.RecurringSeriesRepository
	activities repository.ActivityRepository
	dashboard  repository.DashboardRepository
	tx         recurring.SeriesTxRunner
}

// New conecta la persistencia (postgres o memoria) y construye los casos de uso.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	var r repos
	closeFn := func() {}

	switch cfg.DB.Driver {
	case config.DriverMemory:
		log.Warn().Msg("DB_DRIVER=memory: los datos se pierden al reiniciar")
		store := memory.NewStore()
		r = repos{
			customers:  store.Customers(),
			invoices:   store.Invoices(),
			series:     store.Series(),
			activities: store.Activities(),
			dashboard:  store.Dashboard(),
			tx:         store,
		}
	default:
		if cfg.DB.AutoMigrate {
			if err := migrate(cfg.DB.ConnectionString(), log); err != nil {
				return nil, err
			}
		}
		pool, err := postgres.NewPool(ctx, cfg.DB, log)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		closeFn = pool.Close
		r = repos{
			customers:  postgres.NewCustomerRepository(pool),
			invoices:   postgres.NewInvoiceRepository(pool),
			series:     postgres.NewSeriesRepository(pool),
			activities: postgres.NewActivityRepository(pool),
			dashboard:  postgres.NewDashboardRepository(pool),
			tx:         postgres.NewTxRunner(pool),
		}
	}

	clk := clock.NewSystem(cfg.App.Location())
	rec := activity.NewRecorder(r.activities, clk, log)
	engine := recurring.NewEngine(r.tx, r.series, clk, rec, log, recurring.EngineConfig{
		InvoicePrefix: cfg.Billing.InvoicePrefix,
		Workers:       cfg.Sweep.Workers,
		MaxRetries:    cfg.Sweep.MaxRetries,
		MaxCatchUp:    cfg.Sweep.MaxCatchUp,
		RetryDelay:    cfg.Sweep.RetryDelay,
	})

	return &App{
		Customers: billing.NewCustomerUseCase(r.customers, clk, rec),
		Invoices: billing.NewInvoiceUseCase(r.invoices, r.customers, clk, rec, billing.InvoiceConfig{
			Prefix:          cfg.Billing.InvoicePrefix,
			DefaultCurrency: cfg.Billing.DefaultCurrency,
		}),
		Recurring: recurring.NewController(r.series, r.customers, engine, clk, rec, log, cfg.Billing.DefaultCurrency),
		Engine:    engine,
		Dashboard: analytics.NewDashboardUseCase(r.dashboard, r.series, r.activities, r.customers, clk),
		Clock:     clk,
		close:     closeFn,
	}, nil
}

func migrate(dsn string, log *logger.Logger) error {
	m, err := postgres.NewMigrator(dsn, log.Component("migrate"))
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()
	return m.Up()
}
