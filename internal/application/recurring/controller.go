package recurring

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Facturacion-api/internal/application/activity"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/recurrence"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	"github.com/jhoicas/Facturacion-api/pkg/clock"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
	"github.com/jhoicas/Facturacion-api/pkg/validation"
)

const (
	defaultPreviewCount = 5
	maxPreviewCount     = 24
	updateAttempts      = 3
)

var hundred = decimal.NewFromInt(100)

// Controller casos de uso del ciclo de vida de las series (crear, editar,
// terminar, disparar) expuestos a la capa HTTP.
type Controller struct {
	seriesRepo      repository.RecurringSeriesRepository
	customerRepo    repository.CustomerRepository
	engine          *Engine
	clock           clock.Clock
	activity        *activity.Recorder
	log             *logger.Logger
	defaultCurrency string
}

// NewController construye el controlador.
func NewController(
	seriesRepo repository.RecurringSeriesRepository,
	customerRepo repository.CustomerRepository,
	engine *Engine,
	clk clock.Clock,
	recorder *activity.Recorder,
	log *logger.Logger,
	defaultCurrency string,
) *Controller {
	if log == nil {
		log = logger.Nop()
	}
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}
	return &Controller{
		seriesRepo:      seriesRepo,
		customerRepo:    customerRepo,
		engine:          engine,
		clock:           clk,
		activity:        recorder,
		log:             log.Component("recurring.controller"),
		defaultCurrency: defaultCurrency,
	}
}

// Create crea una serie. Queda pending si start_date es futura, si no active.
func (uc *Controller) Create(ctx context.Context, companyID string, in dto.CreateRecurringInvoiceRequest) (*dto.RecurringInvoiceResponse, error) {
	if err := validation.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	rule := in.Rule.ToRule()
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if in.StartDate.IsZero() || !in.StartDate.IsValid() {
		return nil, fmt.Errorf("%w: start_date es obligatoria", domain.ErrValidation)
	}
	items := dto.ToLineItems(in.LineItems)
	if err := validateTemplate(items, in.TaxRate); err != nil {
		return nil, err
	}
	customer, err := uc.customerOf(ctx, companyID, in.CustomerID)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	series := &entity.RecurringSeries{
		ID:             uuid.New().String(),
		CompanyID:      companyID,
		CustomerID:     customer.ID,
		Title:          in.Title,
		Rule:           rule,
		TotalCount:     in.TotalCount,
		GeneratedCount: 0,
		StartDate:      in.StartDate,
		DueDateOffset:  in.DueDateOffset,
		LineItems:      items,
		TaxRate:        in.TaxRate,
		Currency:       lo.Ternary(in.Currency == "", uc.defaultCurrency, in.Currency),
		Notes:          in.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	series.Schedule(uc.clock.Today())

	if err := uc.seriesRepo.Create(ctx, series); err != nil {
		return nil, err
	}
	uc.activity.Record(ctx, companyID, entity.ActivitySeriesCreated, entity.SubjectSeries, series.ID,
		fmt.Sprintf("Serie recurrente %q creada para %s", series.Title, customer.Name))
	out := dto.FromSeries(series, customer.Name)
	return &out, nil
}

// Get devuelve una serie de la empresa.
func (uc *Controller) Get(ctx context.Context, companyID, id string) (*dto.RecurringInvoiceResponse, error) {
	series, err := uc.load(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	out := dto.FromSeries(series, uc.customerName(ctx, series.CustomerID))
	return &out, nil
}

// ListByCustomer series de un cliente.
func (uc *Controller) ListByCustomer(ctx context.Context, companyID, customerID string) ([]dto.RecurringInvoiceResponse, error) {
	customer, err := uc.customerRepo.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil || customer.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}
	list, err := uc.seriesRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return lo.Map(list, func(s *entity.RecurringSeries, _ int) dto.RecurringInvoiceResponse {
		return dto.FromSeries(s, customer.Name)
	}), nil
}

// ListUpcoming series activas con generación en los próximos days días.
func (uc *Controller) ListUpcoming(ctx context.Context, companyID string, days int) ([]dto.RecurringInvoiceResponse, error) {
	if days <= 0 {
		days = 7
	}
	today := uc.clock.Today()
	list, err := uc.seriesRepo.ListUpcoming(ctx, companyID, today, today.AddDays(days))
	if err != nil {
		return nil, err
	}
	names := make(map[string]string)
	return lo.Map(list, func(s *entity.RecurringSeries, _ int) dto.RecurringInvoiceResponse {
		name, ok := names[s.CustomerID]
		if !ok {
			name = uc.customerName(ctx, s.CustomerID)
			names[s.CustomerID] = name
		}
		return dto.FromSeries(s, name)
	}), nil
}

// Update modifica campos de plantilla de una serie pending/active.
// Si una generación concurrente avanza la serie, se recarga y se reaplica.
func (uc *Controller) Update(ctx context.Context, companyID, id string, in dto.UpdateRecurringInvoiceRequest) (*dto.RecurringInvoiceResponse, error) {
	if err := validation.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	changes, err := toChanges(in)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < updateAttempts; attempt++ {
		series, err := uc.load(ctx, companyID, id)
		if err != nil {
			return nil, err
		}
		customer, err := uc.customerOf(ctx, companyID, series.CustomerID)
		if err != nil {
			return nil, err
		}
		expected := series.Version()
		if err := series.ApplyChanges(changes, uc.clock.Today(), uc.clock.Now()); err != nil {
			return nil, err
		}
		if err := validateTemplate(series.LineItems, series.TaxRate); err != nil {
			return nil, err
		}
		saved, err := uc.seriesRepo.Update(ctx, series, expected)
		if err != nil {
			return nil, err
		}
		if !saved {
			uc.log.Debug().Str("series_id", id).Int("attempt", attempt+1).Msg("serie modificada en paralelo, reintentando edición")
			continue
		}
		uc.activity.Record(ctx, companyID, entity.ActivitySeriesUpdated, entity.SubjectSeries, series.ID,
			fmt.Sprintf("Serie recurrente %q actualizada", series.Title))
		out := dto.FromSeries(series, customer.Name)
		return &out, nil
	}
	return nil, fmt.Errorf("%w: la serie cambió durante la edición", domain.ErrConflict)
}

// Terminate termina la serie. Es idempotente: terminar una serie ya terminada
// devuelve la serie sin cambios; una serie completada no se puede terminar.
func (uc *Controller) Terminate(ctx context.Context, companyID, id string) (*dto.RecurringInvoiceResponse, error) {
	series, err := uc.load(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	customer, err := uc.customerOf(ctx, companyID, series.CustomerID)
	if err != nil {
		return nil, err
	}
	now := uc.clock.Now()
	changed, err := series.Terminate(now)
	if err != nil {
		return nil, err
	}
	if changed {
		ok, err := uc.seriesRepo.Terminate(ctx, id, now)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Otra ejecución cambió el estado (terminada o completada por el barrido).
			if series, err = uc.load(ctx, companyID, id); err != nil {
				return nil, err
			}
			if series.Status != entity.SeriesStatusTerminated {
				return nil, fmt.Errorf("%w: la serie está %s", domain.ErrInvalidState, series.Status)
			}
		} else {
			uc.activity.Record(ctx, companyID, entity.ActivitySeriesTerminated, entity.SubjectSeries, series.ID,
				fmt.Sprintf("Serie recurrente %q terminada", series.Title))
		}
	}
	out := dto.FromSeries(series, customer.Name)
	return &out, nil
}

// Trigger genera la siguiente factura ya, sin importar next_invoice_date.
// Respeta el estado y el límite de facturas de la serie.
func (uc *Controller) Trigger(ctx context.Context, companyID, id string) (*dto.GenerateInvoiceResponse, error) {
	series, err := uc.load(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	customer, err := uc.customerOf(ctx, companyID, series.CustomerID)
	if err != nil {
		return nil, err
	}
	today := uc.clock.Today()
	gen, err := uc.engine.Generate(ctx, series, today, ModeManual)
	if err != nil {
		return nil, err
	}
	name := customer.Name
	return &dto.GenerateInvoiceResponse{
		Invoice: dto.FromInvoice(gen.Invoice, name, today),
		Series:  dto.FromSeries(gen.Series, name),
	}, nil
}

// Preview próximas fechas de generación (sin persistir nada).
func (uc *Controller) Preview(ctx context.Context, companyID, id string, count int) (*dto.NextDatesResponse, error) {
	if count <= 0 {
		count = defaultPreviewCount
	}
	if count > maxPreviewCount {
		count = maxPreviewCount
	}
	series, err := uc.load(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	return &dto.NextDatesResponse{SeriesID: series.ID, Dates: NextDates(series, count)}, nil
}

// NextDates fechas de las próximas n facturas programadas, limitadas por las que le quedan a la serie.
func NextDates(s *entity.RecurringSeries, n int) []civil.Date {
	if !s.Editable() || s.NextInvoiceDate == nil {
		return []civil.Date{}
	}
	if s.Bounded() {
		n = min(n, *s.TotalCount-s.GeneratedCount)
	}
	if n <= 0 {
		return []civil.Date{}
	}
	dates := []civil.Date{*s.NextInvoiceDate}
	return append(dates, recurrence.Preview(s.Rule, *s.NextInvoiceDate, n-1)...)
}

// Sweep ejecuta una pasada del barrido a la fecha asOf (hoy si es nil).
func (uc *Controller) Sweep(ctx context.Context, asOf *civil.Date) (*dto.SweepResponse, error) {
	date := uc.clock.Today()
	if asOf != nil {
		date = *asOf
	}
	report, err := uc.engine.Sweep(ctx, date)
	if err != nil {
		return nil, err
	}
	return &dto.SweepResponse{
		AsOf:      report.AsOf,
		Activated: report.Activated,
		Due:       report.Due,
		Generated: report.Generated,
		Skipped:   report.Skipped,
		Failed: lo.Map(report.Failures, func(f SweepFailure, _ int) dto.SweepFailureDTO {
			return dto.SweepFailureDTO{SeriesID: f.SeriesID, Error: f.Err.Error()}
		}),
	}, nil
}

func (uc *Controller) load(ctx context.Context, companyID, id string) (*entity.RecurringSeries, error) {
	series, err := uc.seriesRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if series == nil || series.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}
	return series, nil
}

// customerOf valida que el cliente exista y sea de la empresa.
func (uc *Controller) customerOf(ctx context.Context, companyID, customerID string) (*entity.Customer, error) {
	customer, err := uc.customerRepo.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil || customer.CompanyID != companyID {
		return nil, fmt.Errorf("%w: el cliente %s no existe", domain.ErrValidation, customerID)
	}
	return customer, nil
}

func (uc *Controller) customerName(ctx context.Context, customerID string) string {
	customer, err := uc.customerRepo.GetByID(ctx, customerID)
	if err != nil || customer == nil {
		return ""
	}
	return customer.Name
}

func validateTemplate(items []entity.LineItem, taxRate decimal.Decimal) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: la serie necesita al menos una línea", domain.ErrValidation)
	}
	for i, li := range items {
		if !li.Quantity.IsPositive() {
			return fmt.Errorf("%w: line_items[%d].quantity debe ser mayor que cero", domain.ErrValidation, i)
		}
		if li.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: line_items[%d].unit_price no puede ser negativo", domain.ErrValidation, i)
		}
	}
	if taxRate.IsNegative() || taxRate.GreaterThan(hundred) {
		return fmt.Errorf("%w: tax_rate debe estar entre 0 y 100", domain.ErrValidation)
	}
	return nil
}

func toChanges(in dto.UpdateRecurringInvoiceRequest) (entity.SeriesChanges, error) {
	c := entity.SeriesChanges{
		Title:         in.Title,
		StartDate:     in.StartDate,
		DueDateOffset: in.DueDateOffset,
		TaxRate:       in.TaxRate,
		Currency:      in.Currency,
		Notes:         in.Notes,
	}
	if in.Rule != nil {
		rule := in.Rule.ToRule()
		if err := rule.Validate(); err != nil {
			return c, err
		}
		c.Rule = &rule
	}
	if in.TotalCount.Set {
		if in.TotalCount.Value != nil && *in.TotalCount.Value <= 0 {
			return c, fmt.Errorf("%w: total_count debe ser mayor que cero", domain.ErrValidation)
		}
		c.TotalCount = &in.TotalCount.Value
	}
	if in.StartDate != nil && !in.StartDate.IsValid() {
		return c, fmt.Errorf("%w: start_date inválida", domain.ErrValidation)
	}
	if in.LineItems != nil {
		c.LineItems = dto.ToLineItems(in.LineItems)
	}
	return c, nil
}
