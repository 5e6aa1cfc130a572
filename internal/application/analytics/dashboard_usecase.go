// Package analytics contiene el resumen del dashboard de facturación.
package analytics

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/recurrence"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	"github.com/jhoicas/Facturacion-api/pkg/clock"
)

const (
	upcomingDays       = 7  // ventana de series próximas a generar
	recentActivitySize = 10 // entradas de bitácora en el widget
)

// DashboardUseCase genera el resumen de cuentas por cobrar, clientes, series próximas y actividad.
//
// Fuente de datos: repositorios de solo lectura; no modifica nada.
type DashboardUseCase struct {
	dashboardRepo repository.DashboardRepository
	seriesRepo    repository.RecurringSeriesRepository
	activityRepo  repository.ActivityRepository
	customerRepo  repository.CustomerRepository
	clock         clock.Clock
}

// NewDashboardUseCase construye el caso de uso.
func NewDashboardUseCase(
	dashboardRepo repository.DashboardRepository,
	seriesRepo repository.RecurringSeriesRepository,
	activityRepo repository.ActivityRepository,
	customerRepo repository.CustomerRepository,
	clk clock.Clock,
) *DashboardUseCase {
	return &DashboardUseCase{
		dashboardRepo: dashboardRepo,
		seriesRepo:    seriesRepo,
		activityRepo:  activityRepo,
		customerRepo:  customerRepo,
		clock:         clk,
	}
}

// GetSummary construye el DashboardSummaryDTO para la empresa indicada.
//
// Cinco consultas en paralelo:
//  1. TotalReceivables            → total por cobrar
//  2. CountCustomers              → clientes
//  3. DueBetween(mes en curso)    → facturas que vencen este mes
//  4. ListUpcoming(hoy, hoy+7)    → series recurrentes próximas
//  5. ListRecent(10)              → actividad reciente
func (uc *DashboardUseCase) GetSummary(ctx context.Context, companyID string) (*dto.DashboardSummaryDTO, error) {
	today := uc.clock.Today()

	// ── Rangos de fecha ────────────────────────────────────────────────────────
	monthStart := today
	monthStart.Day = 1
	monthEnd := monthStart
	monthEnd.Day = recurrence.DaysIn(today.Year, today.Month)

	// ── Goroutines para paralelizar las consultas ─────────────────────────────
	type amountResult struct {
		amount decimal.Decimal
		err    error
	}
	type countResult struct {
		count int
		err   error
	}
	type dueResult struct {
		count  int
		amount decimal.Decimal
		err    error
	}
	type seriesResult struct {
		series []*entity.RecurringSeries
		err    error
	}
	type activityResult struct {
		items []*entity.Activity
		err   error
	}

	receivablesCh := make(chan amountResult, 1)
	customersCh := make(chan countResult, 1)
	dueCh := make(chan dueResult, 1)
	upcomingCh := make(chan seriesResult, 1)
	activityCh := make(chan activityResult, 1)

	go func() {
		amount, err := uc.dashboardRepo.TotalReceivables(ctx, companyID)
		receivablesCh <- amountResult{amount, err}
	}()
	go func() {
		n, err := uc.dashboardRepo.CountCustomers(ctx, companyID)
		customersCh <- countResult{n, err}
	}()
	go func() {
		n, amount, err := uc.dashboardRepo.DueBetween(ctx, companyID, monthStart, monthEnd)
		dueCh <- dueResult{n, amount, err}
	}()
	go func() {
		list, err := uc.seriesRepo.ListUpcoming(ctx, companyID, today, today.AddDays(upcomingDays))
		upcomingCh <- seriesResult{list, err}
	}()
	go func() {
		items, err := uc.activityRepo.ListRecent(ctx, companyID, recentActivitySize)
		activityCh <- activityResult{items, err}
	}()

	receivables := <-receivablesCh
	customers := <-customersCh
	due := <-dueCh
	upcoming := <-upcomingCh
	recent := <-activityCh

	if receivables.err != nil {
		return nil, fmt.Errorf("dashboard: total por cobrar: %w", receivables.err)
	}
	if customers.err != nil {
		return nil, fmt.Errorf("dashboard: clientes: %w", customers.err)
	}
	if due.err != nil {
		return nil, fmt.Errorf("dashboard: vencimientos del mes: %w", due.err)
	}
	if upcoming.err != nil {
		return nil, fmt.Errorf("dashboard: series próximas: %w", upcoming.err)
	}
	if recent.err != nil {
		return nil, fmt.Errorf("dashboard: actividad reciente: %w", recent.err)
	}

	// ── Construir DTO ──────────────────────────────────────────────────────────
	names := make(map[string]string)
	return &dto.DashboardSummaryDTO{
		TotalReceivables: receivables.amount.Round(2),
		TotalCustomers:   customers.count,
		InvoicesDueThisMonth: dto.DueSummaryDTO{
			Count:  due.count,
			Amount: due.amount.Round(2),
		},
		UpcomingRecurring: lo.Map(upcoming.series, func(s *entity.RecurringSeries, _ int) dto.UpcomingRecurringDTO {
			name, ok := names[s.CustomerID]
			if !ok {
				name = uc.customerName(ctx, s.CustomerID)
				names[s.CustomerID] = name
			}
			template := s.Snapshot(*s.NextInvoiceDate)
			return dto.UpcomingRecurringDTO{
				SeriesID:        s.ID,
				CustomerID:      s.CustomerID,
				CustomerName:    name,
				Title:           s.Title,
				NextInvoiceDate: *s.NextInvoiceDate,
				Total:           template.Total,
				Currency:        s.Currency,
			}
		}),
		RecentActivity: lo.Map(recent.items, func(a *entity.Activity, _ int) dto.ActivityDTO { return dto.FromActivity(a) }),
		AsOf:           today,
	}, nil
}

func (uc *DashboardUseCase) customerName(ctx context.Context, id string) string {
	c, err := uc.customerRepo.GetByID(ctx, id)
	if err != nil || c == nil {
		return ""
	}
	return c.Name
}
