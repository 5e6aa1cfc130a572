package recurring_test

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/internal/application/activity"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/application/recurring"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/memory"
	"github.com/jhoicas/Facturacion-api/pkg/clock"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
)

const (
	companyID  = "co-1"
	customerID = "cu-1"
)

type fixture struct {
	store  *memory.Store
	clock  *clock.Fixed
	engine *recurring.Engine
	ctrl   *recurring.Controller
}

func d(y int, m time.Month, day int) civil.Date { return civil.Date{Year: y, Month: m, Day: day} }

func newFixture(t *testing.T, today civil.Date) *fixture {
	t.Helper()
	store := memory.NewStore()
	clk := &clock.Fixed{At: today.In(time.UTC)}
	rec := activity.NewRecorder(store.Activities(), clk, logger.Nop())
	engine := recurring.NewEngine(store, store.Series(), clk, rec, logger.Nop(), recurring.EngineConfig{
		InvoicePrefix: "INV",
		Workers:       4,
		MaxRetries:    3,
		MaxCatchUp:    12,
		RetryDelay:    time.Millisecond,
	})
	ctrl := recurring.NewController(store.Series(), store.Customers(), engine, clk, rec, logger.Nop(), "USD")

	require.NoError(t, store.Customers().Create(context.Background(), &entity.Customer{
		ID:        customerID,
		CompanyID: companyID,
		Name:      "Acme S.A.S.",
		Email:     "pagos@acme.test",
		Status:    entity.CustomerStatusActive,
	}))
	return &fixture{store: store, clock: clk, engine: engine, ctrl: ctrl}
}

func (f *fixture) setToday(day civil.Date) { f.clock.At = day.In(time.UTC) }

func (f *fixture) create(t *testing.T, rule dto.RecurrenceRuleDTO, start civil.Date, total *int) *dto.RecurringInvoiceResponse {
	t.Helper()
	out, err := f.ctrl.Create(context.Background(), companyID, dto.CreateRecurringInvoiceRequest{
		CustomerID:    customerID,
		Title:         "Hosting",
		Rule:          rule,
		TotalCount:    total,
		StartDate:     start,
		DueDateOffset: 15,
		LineItems: []dto.LineItemDTO{
			{Description: "Hosting", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100)},
			{Description: "Backups", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.RequireFromString("12.50")},
		},
		TaxRate:  decimal.NewFromInt(19),
		Currency: "USD",
	})
	require.NoError(t, err)
	return out
}

func (f *fixture) series(t *testing.T, id string) *entity.RecurringSeries {
	t.Helper()
	s, err := f.store.Series().GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, s)
	return s
}

func (f *fixture) invoices(t *testing.T, seriesID string) []*entity.Invoice {
	t.Helper()
	list, _, err := f.store.Invoices().List(context.Background(), companyID, repository.InvoiceFilter{SeriesID: seriesID})
	require.NoError(t, err)
	return list
}

func intPtr(v int) *int { return &v }

func mustDate(t *testing.T, s string) civil.Date {
	t.Helper()
	day, err := civil.ParseDate(s)
	require.NoError(t, err)
	return day
}

func strPtr(s string) *string { return &s }

func datePtr(day civil.Date) *civil.Date { return &day }

func dateStrings(dates []civil.Date) []string {
	out := make([]string, len(dates))
	for i, day := range dates {
		out[i] = day.String()
	}
	return out
}
