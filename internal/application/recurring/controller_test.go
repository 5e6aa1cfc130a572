package recurring_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/recurrence"
)

func validCreate() dto.CreateRecurringInvoiceRequest {
	return dto.CreateRecurringInvoiceRequest{
		CustomerID: customerID,
		Title:      "Mantenimiento",
		Rule:       dto.RecurrenceRuleDTO{Type: "monthly"},
		StartDate:  d(2024, 1, 31),
		LineItems:  []dto.LineItemDTO{{Description: "Mantenimiento", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50)}},
	}
}

func TestCreate_Validaciones(t *testing.T) {
	f := newFixture(t, d(2024, 1, 1))

	tests := []struct {
		name   string
		mutate func(*dto.CreateRecurringInvoiceRequest)
	}{
		{"counted sin interval", func(r *dto.CreateRecurringInvoiceRequest) { r.Rule = dto.RecurrenceRuleDTO{Type: "counted", Unit: "week"} }},
		{"counted sin unit", func(r *dto.CreateRecurringInvoiceRequest) { r.Rule = dto.RecurrenceRuleDTO{Type: "counted", Interval: 2} }},
		{"tipo desconocido", func(r *dto.CreateRecurringInvoiceRequest) { r.Rule = dto.RecurrenceRuleDTO{Type: "daily"} }},
		{"total_count cero", func(r *dto.CreateRecurringInvoiceRequest) { r.TotalCount = intPtr(0) }},
		{"cliente inexistente", func(r *dto.CreateRecurringInvoiceRequest) { r.CustomerID = "otro" }},
		{"sin líneas", func(r *dto.CreateRecurringInvoiceRequest) { r.LineItems = nil }},
		{"cantidad cero", func(r *dto.CreateRecurringInvoiceRequest) { r.LineItems[0].Quantity = decimal.Zero }},
		{"offset negativo", func(r *dto.CreateRecurringInvoiceRequest) { r.DueDateOffset = -1 }},
		{"moneda inválida", func(r *dto.CreateRecurringInvoiceRequest) { r.Currency = "QQQ" }},
		{"sin start_date", func(r *dto.CreateRecurringInvoiceRequest) { r.StartDate = d(0, 0, 0) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreate()
			tt.mutate(&req)
			_, err := f.ctrl.Create(context.Background(), companyID, req)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestCreate_FinDeMesYMonedaPorDefecto(t *testing.T) {
	f := newFixture(t, d(2024, 1, 1))
	out, err := f.ctrl.Create(context.Background(), companyID, validCreate())
	require.NoError(t, err)

	assert.Equal(t, entity.SeriesStatusPending, out.Status)
	assert.Equal(t, d(2024, 2, 29), *out.NextInvoiceDate)
	assert.Equal(t, "USD", out.Currency)
	assert.Equal(t, "Acme S.A.S.", out.CustomerName)
	assert.Nil(t, out.TotalCount)
	assert.Nil(t, out.RemainingCount)
}

func TestCreate_OtraEmpresaNoVeLaSerie(t *testing.T) {
	f := newFixture(t, d(2024, 1, 1))
	out, err := f.ctrl.Create(context.Background(), companyID, validCreate())
	require.NoError(t, err)

	_, err = f.ctrl.Get(context.Background(), "otra-empresa", out.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTerminate_IdempotenteYTerminal(t *testing.T) {
	f := newFixture(t, d(2024, 1, 1))
	created := f.create(t, dto.RecurrenceRuleDTO{Type: "weekly"}, d(2024, 1, 1), nil)

	for i := 0; i < 2; i++ {
		out, err := f.ctrl.Terminate(context.Background(), companyID, created.ID)
		require.NoError(t, err, "intento %d", i+1)
		assert.Equal(t, entity.SeriesStatusTerminated, out.Status)
		assert.Nil(t, out.NextInvoiceDate)
	}

	_, err := f.ctrl.Trigger(context.Background(), companyID, created.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = f.ctrl.Update(context.Background(), companyID, created.ID, dto.UpdateRecurringInvoiceRequest{Title: strPtr("x")})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	report, err := f.engine.Sweep(context.Background(), d(2024, 3, 1))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Due)
	assert.Empty(t, f.invoices(t, created.ID))
}

func TestTerminate_SerieCompletadaEsError(t *testing.T) {
	f := newFixture(t, d(2024, 1, 1))
	created := f.create(t, dto.RecurrenceRuleDTO{Type: "manual"}, d(2024, 1, 1), intPtr(1))
	_, err := f.ctrl.Trigger(context.Background(), companyID, created.ID)
	require.NoError(t, err)

	_, err = f.ctrl.Terminate(context.Background(), companyID, created.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestTrigger_ManualIgnoraElCalendario(t *testing.T) {
	f := newFixture(t, d(2024, 1, 1))
	created := f.create(t, dto.RecurrenceRuleDTO{Type: "manual"}, d(2024, 1, 1), intPtr(2))

	f.setToday(d(2024, 1, 3))
	first, err := f.ctrl.Trigger(context.Background(), companyID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, d(2024, 1, 3), first.Invoice.InvoiceDate)
	assert.Equal(t, d(2024, 1, 18), first.Invoice.DueDate)
	assert.Equal(t, entity.InvoiceStatusDraft, first.Invoice.Status)
	assert.Equal(t, created.ID, first.Invoice.RecurringInvoiceID)
	assert.Equal(t, 1, first.Series.GeneratedCount)
	assert.Nil(t, first.Series.NextInvoiceDate)
	assert.Equal(t, 1, *first.Series.RemainingCount)

	second, err := f.ctrl.Trigger(context.Background(), companyID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SeriesStatusCompleted, second.Series.Status)

	_, err = f.ctrl.Trigger(context.Background(), companyID, created.ID)
	assert.ErrorIs(t, err, domain.ErrSeriesExhausted)
}

func TestTrigger_SeriePendienteSeActiva(t *testing.T) {
	f := newFixture(t, d(2024, 1, 1))
	created := f.create(t, dto.RecurrenceRuleDTO{Type: "monthly"}, d(2024, 3, 1), nil)
	require.Equal(t, entity.SeriesStatusPending, created.Status)

	out, err := f.ctrl.Trigger(context.Background(), companyID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SeriesStatusActive, out.Series.Status)
	assert.Equal(t, d(2024, 1, 1), out.Invoice.InvoiceDate)
	assert.Equal(t, d(2024, 5, 1), *out.Series.NextInvoiceDate)
}

func TestUpdate_TotalCount(t *testing.T) {
	f := newFixture(t, d(2024, 1, 1))
	created := f.create(t, dto.RecurrenceRuleDTO{Type: "manual"}, d(2024, 1, 1), intPtr(5))
	for i := 0; i < 2; i++ {
		_, err := f.ctrl.Trigger(context.Background(), companyID, created.ID)
		require.NoError(t, err)
	}

	var lower dto.UpdateRecurringInvoiceRequest
	require.NoError(t, json.Unmarshal([]byte(`{"total_count": 2}`), &lower))
	_, err := f.ctrl.Update(context.Background(), companyID, created.ID, lower)
	assert.ErrorIs(t, err, domain.ErrValidation)

	var unbounded dto.UpdateRecurringInvoiceRequest
	require.NoError(t, json.Unmarshal([]byte(`{"total_count": null}`), &unbounded))
	out, err := f.ctrl.Update(context.Background(), companyID, created.ID, unbounded)
	require.NoError(t, err)
	assert.Nil(t, out.TotalCount)
	assert.Equal(t, 2, out.GeneratedCount)

	var untouched dto.UpdateRecurringInvoiceRequest
	require.NoError(t, json.Unmarshal([]byte(`{"title": "Nuevo"}`), &untouched))
	out, err = f.ctrl.Update(context.Background(), companyID, created.ID, untouched)
	require.NoError(t, err)
	assert.Nil(t, out.TotalCount)
	assert.Equal(t, "Nuevo", out.Title)
}

func TestUpdate_CambioDeReglaReprograma(t *testing.T) {
	f := newFixture(t, d(2024, 1, 1))
	created := f.create(t, dto.RecurrenceRuleDTO{Type: "weekly"}, d(2024, 1, 1), nil)
	_, err := f.engine.Sweep(context.Background(), d(2024, 1, 8))
	require.NoError(t, err)

	out, err := f.ctrl.Update(context.Background(), companyID, created.ID, dto.UpdateRecurringInvoiceRequest{
		Rule: &dto.RecurrenceRuleDTO{Type: "monthly"},
	})
	require.NoError(t, err)
	assert.Equal(t, d(2024, 2, 8), *out.NextInvoiceDate)
	assert.Equal(t, 1, out.GeneratedCount)

	_, err = f.ctrl.Update(context.Background(), companyID, created.ID, dto.UpdateRecurringInvoiceRequest{
		StartDate: datePtr(d(2024, 1, 2)),
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPreview(t *testing.T) {
	f := newFixture(t, d(2024, 1, 1))
	created := f.create(t, dto.RecurrenceRuleDTO{Type: "monthly"}, d(2024, 1, 31), intPtr(3))

	out, err := f.ctrl.Preview(context.Background(), companyID, created.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-02-29", "2024-03-29", "2024-04-29"}, dateStrings(out.Dates))

	manual := f.create(t, dto.RecurrenceRuleDTO{Type: "manual"}, d(2024, 1, 1), nil)
	out, err = f.ctrl.Preview(context.Background(), companyID, manual.ID, 3)
	require.NoError(t, err)
	assert.Empty(t, out.Dates)
}

func TestListUpcomingYPorCliente(t *testing.T) {
	f := newFixture(t, d(2024, 1, 1))
	soon := f.create(t, dto.RecurrenceRuleDTO{Type: "weekly"}, d(2024, 1, 1), nil)
	f.create(t, dto.RecurrenceRuleDTO{Type: "monthly"}, d(2024, 1, 1), nil)

	upcoming, err := f.ctrl.ListUpcoming(context.Background(), companyID, 7)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, soon.ID, upcoming[0].ID)

	all, err := f.ctrl.ListByCustomer(context.Background(), companyID, customerID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.ctrl.ListByCustomer(context.Background(), companyID, "nadie")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSweepDesdeController(t *testing.T) {
	f := newFixture(t, d(2024, 1, 8))
	f.create(t, dto.RecurrenceRuleDTO{Type: "weekly"}, d(2024, 1, 1), nil)

	out, err := f.ctrl.Sweep(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, d(2024, 1, 8), out.AsOf)
	assert.Equal(t, 1, out.Generated)
	assert.Empty(t, out.Failed)
}

func TestMutaciones_ExigenClienteDeLaEmpresa(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, d(2024, 1, 1))
	require.NoError(t, f.store.Customers().Create(ctx, &entity.Customer{
		ID: "cu-ajeno", CompanyID: "otra-empresa", Name: "Ajeno", Email: "ajeno@test.co", Status: entity.CustomerStatusActive,
	}))
	next := d(2024, 2, 1)
	require.NoError(t, f.store.Series().Create(ctx, &entity.RecurringSeries{
		ID:              "s-ajena",
		CompanyID:       companyID,
		CustomerID:      "cu-ajeno",
		Title:           "Soporte",
		Rule:            recurrence.Rule{Type: recurrence.TypeMonthly},
		StartDate:       d(2024, 1, 1),
		NextInvoiceDate: &next,
		LineItems:       []entity.LineItem{{Description: "Soporte", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(10)}},
		Currency:        "USD",
		Status:          entity.SeriesStatusActive,
	}))

	_, err := f.ctrl.Trigger(ctx, companyID, "s-ajena")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.ctrl.Update(ctx, companyID, "s-ajena", dto.UpdateRecurringInvoiceRequest{Title: strPtr("Otro")})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.ctrl.Terminate(ctx, companyID, "s-ajena")
	assert.ErrorIs(t, err, domain.ErrValidation)

	stored := f.series(t, "s-ajena")
	assert.Equal(t, entity.SeriesStatusActive, stored.Status)
	assert.Equal(t, "Soporte", stored.Title)
	assert.Zero(t, stored.GeneratedCount)
	assert.Empty(t, f.invoices(t, "s-ajena"))
}
