package recurring_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/application/recurring"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

func TestSweep_SemanalGeneraUnaFactura(t *testing.T) {
	f := newFixture(t, d(2024, 1, 1))
	created := f.create(t, dto.RecurrenceRuleDTO{Type: "weekly"}, d(2024, 1, 1), nil)
	require.Equal(t, entity.SeriesStatusActive, created.Status)
	require.Equal(t, d(2024, 1, 8), *created.NextInvoiceDate)

	f.setToday(d(2024, 1, 8))
	report, err := f.engine.Sweep(context.Background(), d(2024, 1, 8))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Due)
	assert.Equal(t, 1, report.Generated)
	assert.Empty(t, report.Failures)

	s := f.series(t, created.ID)
	assert.Equal(t, 1, s.GeneratedCount)
	assert.Equal(t, d(2024, 1, 15), *s.NextInvoiceDate)

	invoices := f.invoices(t, created.ID)
	require.Len(t, invoices, 1)
	inv := invoices[0]
	assert.Equal(t, d(2024, 1, 8), inv.InvoiceDate)
	assert.Equal(t, d(2024, 1, 23), inv.DueDate)
	assert.Equal(t, entity.InvoiceTypeRecurring, inv.Type)
	assert.Equal(t, created.ID, inv.RecurringSeriesID)
	assert.Equal(t, 1, inv.RecurringSequence)
	assert.Equal(t, "125.00", inv.Subtotal.StringFixed(2))
	assert.Equal(t, "23.75", inv.TaxAmount.StringFixed(2))
	assert.Equal(t, "148.75", inv.Total.StringFixed(2))
}

func TestSweep_RepetidoNoDuplica(t *testing.T) {
	f := newFixture(t, d(2024, 1, 1))
	created := f.create(t, dto.RecurrenceRuleDTO{Type: "weekly"}, d(2024, 1, 1), nil)

	for i := 0; i < 3; i++ {
		_, err := f.engine.Sweep(context.Background(), d(2024, 1, 8))
		require.NoError(t, err)
	}
	assert.Len(t, f.invoices(t, created.ID), 1)
	assert.Equal(t, 1, f.series(t, created.ID).GeneratedCount)
}

func TestSweep_ContadoAcotadoSeCompleta(t *testing.T) {
	f := newFixture(t, d(2024, 1, 15))
	rule := dto.RecurrenceRuleDTO{Type: "counted", Interval: 2, Unit: "month"}
	created := f.create(t, rule, d(2024, 1, 15), intPtr(3))

	expected := []struct {
		asOf, next string
	}{
		{"2024-03-15", "2024-05-15"},
		{"2024-05-15", "2024-07-15"},
		{"2024-07-15", ""},
	}
	for i, step := range expected {
		asOf := mustDate(t, step.asOf)
		report, err := f.engine.Sweep(context.Background(), asOf)
		require.NoError(t, err)
		require.Equal(t, 1, report.Generated, "paso %d", i+1)

		s := f.series(t, created.ID)
		assert.Equal(t, i+1, s.GeneratedCount)
		if step.next == "" {
			assert.Nil(t, s.NextInvoiceDate)
			assert.Equal(t, entity.SeriesStatusCompleted, s.Status)
		} else {
			require.NotNil(t, s.NextInvoiceDate)
			assert.Equal(t, mustDate(t, step.next), *s.NextInvoiceDate)
			assert.Equal(t, entity.SeriesStatusActive, s.Status)
		}
	}

	s := f.series(t, created.ID)
	_, err := f.engine.Generate(context.Background(), s, d(2024, 9, 15), recurring.ModeManual)
	assert.ErrorIs(t, err, domain.ErrSeriesExhausted)
	assert.Len(t, f.invoices(t, created.ID), 3)
}

func TestSweep_PoneAlDiaSeriesAtrasadas(t *testing.T) {
	f := newFixture(t, d(2024, 1, 1))
	created := f.create(t, dto.RecurrenceRuleDTO{Type: "weekly"}, d(2024, 1, 1), nil)

	report, err := f.engine.Sweep(context.Background(), d(2024, 1, 29))
	require.NoError(t, err)
	assert.Equal(t, 4, report.Generated)

	s := f.series(t, created.ID)
	assert.Equal(t, 4, s.GeneratedCount)
	assert.Equal(t, d(2024, 2, 5), *s.NextInvoiceDate)

	dates := map[string]bool{}
	for _, inv := range f.invoices(t, created.ID) {
		dates[inv.InvoiceDate.String()] = true
	}
	assert.Equal(t, map[string]bool{"2024-01-08": true, "2024-01-15": true, "2024-01-22": true, "2024-01-29": true}, dates)
}

func TestSweep_ActivaPendientesYOmiteManuales(t *testing.T) {
	f := newFixture(t, d(2024, 1, 1))
	pending := f.create(t, dto.RecurrenceRuleDTO{Type: "monthly"}, d(2024, 2, 1), nil)
	manual := f.create(t, dto.RecurrenceRuleDTO{Type: "manual"}, d(2024, 1, 1), nil)
	require.Equal(t, entity.SeriesStatusPending, pending.Status)
	require.Equal(t, entity.SeriesStatusActive, manual.Status)
	require.Nil(t, manual.NextInvoiceDate)

	report, err := f.engine.Sweep(context.Background(), d(2024, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Activated)
	assert.Equal(t, 0, report.Generated)
	assert.Equal(t, entity.SeriesStatusActive, f.series(t, pending.ID).Status)
	assert.Empty(t, f.invoices(t, manual.ID))
}

func TestGenerate_ConcurrenteUnaSolaFactura(t *testing.T) {
	f := newFixture(t, d(2024, 1, 1))
	created := f.create(t, dto.RecurrenceRuleDTO{Type: "weekly"}, d(2024, 1, 1), nil)

	// Dos ejecuciones que leyeron la misma versión de la serie.
	a := f.series(t, created.ID)
	b := f.series(t, created.ID)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, s := range []*entity.RecurringSeries{a, b} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.engine.Generate(context.Background(), s, d(2024, 1, 8), recurring.ModeScheduled)
		}()
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrGenerationConflict):
			conflicts++
		default:
			t.Fatalf("error inesperado: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)
	assert.Len(t, f.invoices(t, created.ID), 1)
	assert.Equal(t, 1, f.series(t, created.ID).GeneratedCount)
}

func TestGenerate_FalloDePersistenciaNoAvanzaLaSerie(t *testing.T) {
	f := newFixture(t, d(2024, 1, 1))
	created := f.create(t, dto.RecurrenceRuleDTO{Type: "weekly"}, d(2024, 1, 1), nil)
	f.store.SetInvoiceCreateHook(func(*entity.Invoice) error { return errors.New("conexión perdida") })

	s := f.series(t, created.ID)
	before := s.Clone()
	_, err := f.engine.Generate(context.Background(), s, d(2024, 1, 8), recurring.ModeScheduled)
	require.ErrorIs(t, err, domain.ErrGenerationFailed)

	assert.Equal(t, before, s, "la serie del llamador no se modifica")
	stored := f.series(t, created.ID)
	assert.Equal(t, 0, stored.GeneratedCount)
	assert.Equal(t, d(2024, 1, 8), *stored.NextInvoiceDate)
	assert.Nil(t, stored.LastGeneratedAt)
	assert.Empty(t, f.invoices(t, created.ID))
}

func TestSweep_ReintentaFallosTransitorios(t *testing.T) {
	f := newFixture(t, d(2024, 1, 1))
	created := f.create(t, dto.RecurrenceRuleDTO{Type: "weekly"}, d(2024, 1, 1), nil)

	var mu sync.Mutex
	calls := 0
	f.store.SetInvoiceCreateHook(func(*entity.Invoice) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls <= 2 {
			return errors.New("timeout")
		}
		return nil
	})

	report, err := f.engine.Sweep(context.Background(), d(2024, 1, 8))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Generated)
	assert.Empty(t, report.Failures)
	assert.Equal(t, 3, calls)
	assert.Len(t, f.invoices(t, created.ID), 1)
}

func TestSweep_ReportaFallosPersistentes(t *testing.T) {
	f := newFixture(t, d(2024, 1, 1))
	created := f.create(t, dto.RecurrenceRuleDTO{Type: "weekly"}, d(2024, 1, 1), nil)
	f.store.SetInvoiceCreateHook(func(*entity.Invoice) error { return errors.New("disco lleno") })

	report, err := f.engine.Sweep(context.Background(), d(2024, 1, 8))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Generated)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, created.ID, report.Failures[0].SeriesID)
	assert.ErrorIs(t, report.Failures[0].Err, domain.ErrGenerationFailed)
	assert.Equal(t, 0, f.series(t, created.ID).GeneratedCount)
}

func TestGenerate_SnapshotIndependienteDeLaPlantilla(t *testing.T) {
	f := newFixture(t, d(2024, 1, 1))
	created := f.create(t, dto.RecurrenceRuleDTO{Type: "weekly"}, d(2024, 1, 1), nil)
	_, err := f.engine.Sweep(context.Background(), d(2024, 1, 8))
	require.NoError(t, err)

	f.setToday(d(2024, 1, 9))
	updated, err := f.ctrl.Update(context.Background(), companyID, created.ID, dto.UpdateRecurringInvoiceRequest{
		LineItems: []dto.LineItemDTO{{Description: "Hosting dedicado", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(900)}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.GeneratedCount)
	assert.Equal(t, entity.SeriesStatusActive, updated.Status)

	invoices := f.invoices(t, created.ID)
	require.Len(t, invoices, 1)
	require.Len(t, invoices[0].Items, 2)
	assert.Equal(t, "Hosting", invoices[0].Items[0].Description)
	assert.Equal(t, "148.75", invoices[0].Total.StringFixed(2))
}

func TestGenerate_CopiaViejaTrasEditarTotalCountEsConflicto(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, d(2024, 1, 1))
	created := f.create(t, dto.RecurrenceRuleDTO{Type: "weekly"}, d(2024, 1, 1), intPtr(5))
	for i := 0; i < 2; i++ {
		_, err := f.ctrl.Trigger(ctx, companyID, created.ID)
		require.NoError(t, err)
	}

	// Una generación lee la serie; antes de que confirme, el usuario baja el límite.
	stale := f.series(t, created.ID)
	var lower dto.UpdateRecurringInvoiceRequest
	require.NoError(t, json.Unmarshal([]byte(`{"total_count": 3}`), &lower))
	_, err := f.ctrl.Update(ctx, companyID, created.ID, lower)
	require.NoError(t, err)

	_, err = f.engine.Generate(ctx, stale, d(2024, 1, 1), recurring.ModeManual)
	require.ErrorIs(t, err, domain.ErrGenerationConflict)
	stored := f.series(t, created.ID)
	assert.Equal(t, 2, stored.GeneratedCount)
	assert.Equal(t, entity.SeriesStatusActive, stored.Status)
	assert.Len(t, f.invoices(t, created.ID), 2)

	// Con la serie recién leída, la tercera factura completa la serie.
	out, err := f.ctrl.Trigger(ctx, companyID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SeriesStatusCompleted, out.Series.Status)
	assert.Nil(t, out.Series.NextInvoiceDate)

	stored = f.series(t, created.ID)
	assert.Equal(t, 3, stored.GeneratedCount)
	assert.Equal(t, entity.SeriesStatusCompleted, stored.Status)
	assert.Nil(t, stored.NextInvoiceDate)

	_, err = f.ctrl.Trigger(ctx, companyID, created.ID)
	assert.ErrorIs(t, err, domain.ErrSeriesExhausted)
}

func TestUpdate_CopiaViejaNoRevierteLaActivacion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, d(2024, 1, 1))
	created := f.create(t, dto.RecurrenceRuleDTO{Type: "weekly"}, d(2024, 1, 5), nil)
	require.Equal(t, entity.SeriesStatusPending, created.Status)

	stale := f.series(t, created.ID)
	n, err := f.store.Series().ActivatePending(ctx, d(2024, 1, 5))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	edited := stale.Clone()
	edited.Title = "Hosting anual"
	ok, err := f.store.Series().Update(ctx, edited, stale.Version())
	require.NoError(t, err)
	assert.False(t, ok, "la edición leída antes de la activación pierde el CAS")
	assert.Equal(t, entity.SeriesStatusActive, f.series(t, created.ID).Status)

	// El controller relee y reaplica: la edición entra y el estado se conserva.
	var rename dto.UpdateRecurringInvoiceRequest
	require.NoError(t, json.Unmarshal([]byte(`{"title": "Hosting anual"}`), &rename))
	out, err := f.ctrl.Update(ctx, companyID, created.ID, rename)
	require.NoError(t, err)
	assert.Equal(t, "Hosting anual", out.Title)
	assert.Equal(t, entity.SeriesStatusActive, out.Status)
	assert.Equal(t, entity.SeriesStatusActive, f.series(t, created.ID).Status)
}

func TestSweep_TrasEditarUsaLaPlantillaNueva(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, d(2024, 1, 1))
	created := f.create(t, dto.RecurrenceRuleDTO{Type: "weekly"}, d(2024, 1, 1), intPtr(2))

	stale := f.series(t, created.ID)
	var changes dto.UpdateRecurringInvoiceRequest
	require.NoError(t, json.Unmarshal([]byte(`{"total_count": 1, "notes": "tarifa 2024"}`), &changes))
	_, err := f.ctrl.Update(ctx, companyID, created.ID, changes)
	require.NoError(t, err)

	_, err = f.engine.Generate(ctx, stale, d(2024, 1, 8), recurring.ModeScheduled)
	require.ErrorIs(t, err, domain.ErrGenerationConflict)

	report, err := f.engine.Sweep(ctx, d(2024, 1, 15))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Generated, "el límite editado corta el catch-up")

	stored := f.series(t, created.ID)
	assert.Equal(t, entity.SeriesStatusCompleted, stored.Status)
	assert.Nil(t, stored.NextInvoiceDate)
	invoices := f.invoices(t, created.ID)
	require.Len(t, invoices, 1)
	assert.Equal(t, "tarifa 2024", invoices[0].Notes)
}
